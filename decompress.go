package riscv

// decompress re-expresses a 16-bit C-extension instruction as the
// 32-bit base-ISA instruction it is shorthand for. ok is false for any
// reserved encoding — the caller raises IllegalInstruction rather than
// treating it as a NOP. The quadrant-1 funct3=001 slot that RV32 uses
// for C.JAL decodes as C.ADDIW here; only its rd=0 form is rejected.
func decompress(instr16 uint32) (uint32, bool) {
	quadrant := instr16 & 0x3
	funct3 := (instr16 >> 13) & 0x7

	rdRs1C := (instr16 >> 7) & 0x7 // 3-bit compressed register, +8
	rs2C := (instr16 >> 2) & 0x7
	rd := (instr16 >> 7) & 0x1f // full 5-bit register field (quadrant 1/2)
	rs1Full := rd
	rs2Full := (instr16 >> 2) & 0x1f

	creg := func(c uint32) uint32 { return c + 8 }

	switch quadrant {
	case 0:
		rd8 := creg(rs2C) // quadrant 0 places rd' in bits 4:2
		rs1_8 := creg((instr16 >> 7) & 0x7)
		rs2_8 := creg(rs2C)
		switch funct3 {
		case 0b000: // C.ADDI4SPN
			nzuimm := bit(instr16, 6, 2) | bit(instr16, 5, 3) | extract(instr16, 12, 11, 4) | extract(instr16, 10, 7, 6)
			if nzuimm == 0 {
				return 0, false
			}
			return encodeI(int32(nzuimm), 2, 0, rd8, opImm), true
		case 0b010: // C.LW
			off := extract(instr16, 12, 10, 3) | bit(instr16, 6, 2) | bit(instr16, 5, 6)
			return encodeI(int32(off), rs1_8, 0b010, rd8, opLoad), true
		case 0b011: // C.LD
			off := extract(instr16, 12, 10, 3) | extract(instr16, 6, 5, 6)
			return encodeI(int32(off), rs1_8, 0b011, rd8, opLoad), true
		case 0b110: // C.SW
			off := extract(instr16, 12, 10, 3) | bit(instr16, 6, 2) | bit(instr16, 5, 6)
			return encodeS(int32(off), rs2_8, rs1_8, 0b010, opStore), true
		case 0b111: // C.SD
			off := extract(instr16, 12, 10, 3) | extract(instr16, 6, 5, 6)
			return encodeS(int32(off), rs2_8, rs1_8, 0b011, opStore), true
		default:
			return 0, false
		}

	case 1:
		switch funct3 {
		case 0b000: // C.NOP / C.ADDI
			imm := signExtend(bit(instr16, 12, 5)|extract(instr16, 6, 2, 0), 6)
			return encodeI(imm, rd, 0, rd, opImm), true
		case 0b001: // C.ADDIW
			if rd == 0 {
				return 0, false
			}
			imm := signExtend(bit(instr16, 12, 5)|extract(instr16, 6, 2, 0), 6)
			return encodeI(imm, rd, 0, rd, opImm32), true
		case 0b010: // C.LI
			imm := signExtend(bit(instr16, 12, 5)|extract(instr16, 6, 2, 0), 6)
			return encodeI(imm, 0, 0, rd, opImm), true
		case 0b011:
			if rd == 2 { // C.ADDI16SP
				nz := bit(instr16, 12, 9) | bit(instr16, 6, 4) | bit(instr16, 5, 6) |
					extract(instr16, 4, 3, 7) | bit(instr16, 2, 5)
				imm := signExtend(nz, 10)
				if imm == 0 {
					return 0, false
				}
				return encodeI(imm, 2, 0, 2, opImm), true
			}
			// C.LUI
			nz := bit(instr16, 12, 17) | extract(instr16, 6, 2, 12)
			imm := signExtend(nz, 18)
			if imm == 0 || rd == 0 {
				return 0, false
			}
			return encodeU(uint32(imm), rd, opLUI), true
		case 0b100:
			rd8 := creg(rdRs1C)
			funct2 := (instr16 >> 10) & 0x3
			switch funct2 {
			case 0b00: // C.SRLI
				shamt := bit(instr16, 12, 5) | extract(instr16, 6, 2, 0)
				return encodeI(int32(shamt), rd8, 0b101, rd8, opImm), true
			case 0b01: // C.SRAI
				shamt := bit(instr16, 12, 5) | extract(instr16, 6, 2, 0)
				return encodeI(int32(shamt)|(0b010000<<6), rd8, 0b101, rd8, opImm), true
			case 0b10: // C.ANDI
				imm := signExtend(bit(instr16, 12, 5)|extract(instr16, 6, 2, 0), 6)
				return encodeI(imm, rd8, 0b111, rd8, opImm), true
			default: // 0b11: register-register group
				rs2_8 := creg(rs2C)
				bit12 := (instr16 >> 12) & 1
				funct2b := (instr16 >> 5) & 0x3
				if bit12 == 0 {
					switch funct2b {
					case 0b00:
						return encodeR(0x20, rs2_8, rd8, 0, rd8, opOp), true // C.SUB
					case 0b01:
						return encodeR(0, rs2_8, rd8, 0b100, rd8, opOp), true // C.XOR
					case 0b10:
						return encodeR(0, rs2_8, rd8, 0b110, rd8, opOp), true // C.OR
					default:
						return encodeR(0, rs2_8, rd8, 0b111, rd8, opOp), true // C.AND
					}
				}
				switch funct2b {
				case 0b00:
					return encodeR(0x20, rs2_8, rd8, 0, rd8, opOp32), true // C.SUBW
				case 0b01:
					return encodeR(0, rs2_8, rd8, 0, rd8, opOp32), true // C.ADDW
				default:
					return 0, false // reserved
				}
			}
		case 0b101: // C.J
			off := bit(instr16, 12, 11) | bit(instr16, 11, 4) | extract(instr16, 10, 9, 8) |
				bit(instr16, 8, 10) | bit(instr16, 7, 6) | bit(instr16, 6, 7) |
				extract(instr16, 5, 3, 1) | bit(instr16, 2, 5)
			imm := signExtend(off, 12)
			return encodeJ(imm, 0, opJAL), true
		case 0b110, 0b111: // C.BEQZ / C.BNEZ
			rs1_8 := creg(rdRs1C)
			off := bit(instr16, 12, 8) | extract(instr16, 11, 10, 3) | extract(instr16, 6, 5, 6) |
				extract(instr16, 4, 3, 1) | bit(instr16, 2, 5)
			imm := signExtend(off, 9)
			f3 := uint32(0b000)
			if funct3 == 0b111 {
				f3 = 0b001
			}
			return encodeB(imm, 0, rs1_8, f3, opBranch), true
		default:
			return 0, false
		}

	case 2:
		switch funct3 {
		case 0b000: // C.SLLI
			if rd == 0 {
				return 0, false
			}
			shamt := bit(instr16, 12, 5) | extract(instr16, 6, 2, 0)
			return encodeI(int32(shamt), rd, 0b001, rd, opImm), true
		case 0b010: // C.LWSP
			if rd == 0 {
				return 0, false
			}
			off := bit(instr16, 12, 5) | extract(instr16, 6, 4, 2) | extract(instr16, 3, 2, 6)
			return encodeI(int32(off), 2, 0b010, rd, opLoad), true
		case 0b011: // C.LDSP
			if rd == 0 {
				return 0, false
			}
			off := bit(instr16, 12, 5) | extract(instr16, 6, 5, 3) | extract(instr16, 4, 2, 6)
			return encodeI(int32(off), 2, 0b011, rd, opLoad), true
		case 0b100:
			bit12 := (instr16 >> 12) & 1
			if bit12 == 0 {
				if rs2Full == 0 { // C.JR
					if rs1Full == 0 {
						return 0, false
					}
					return encodeI(0, rs1Full, 0, 0, opJALR), true
				}
				// C.MV
				if rd == 0 {
					return 0, false
				}
				return encodeR(0, rs2Full, 0, 0, rd, opOp), true
			}
			if rs2Full == 0 && rd == 0 { // C.EBREAK
				return encodeI(1, 0, 0, 0, opSystem), true
			}
			if rs2Full == 0 { // C.JALR
				return encodeI(0, rs1Full, 0, 1, opJALR), true
			}
			// C.ADD
			if rd == 0 {
				return 0, false
			}
			return encodeR(0, rs2Full, rd, 0, rd, opOp), true
		case 0b110: // C.SWSP
			off := extract(instr16, 12, 9, 2) | extract(instr16, 8, 7, 6)
			return encodeS(int32(off), rs2Full, 2, 0b010, opStore), true
		case 0b111: // C.SDSP
			off := extract(instr16, 12, 10, 3) | extract(instr16, 9, 7, 6)
			return encodeS(int32(off), rs2Full, 2, 0b011, opStore), true
		default:
			return 0, false
		}
	}
	return 0, false
}

// bit extracts bit `from` of instr16 and places it at bit `to`.
func bit(instr16, from, to uint32) uint32 {
	return ((instr16 >> from) & 1) << to
}

// extract copies the [hi:lo] field of instr16 (inclusive, hi>=lo) down
// to bit `to` of the result, preserving field width.
func extract(instr16, hi, lo, to uint32) uint32 {
	width := hi - lo + 1
	mask := (uint32(1) << width) - 1
	return ((instr16 >> lo) & mask) << to
}

func signExtend(v uint32, bits uint32) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
