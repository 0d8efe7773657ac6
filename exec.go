package riscv

import "math/bits"

func immI(instr uint32) int64 { return int64(int32(instr)) >> 20 }

func immS(instr uint32) int64 {
	v := (instr>>25)<<5 | (instr>>7)&0x1f
	return int64(int32(v<<20)) >> 20
}

func immB(instr uint32) int64 {
	v := (instr>>31)<<12 | ((instr>>7)&1)<<11 | ((instr>>25)&0x3f)<<5 | ((instr>>8)&0xf)<<1
	return int64(int32(v<<19)) >> 19
}

func immU(instr uint32) int64 { return int64(int32(instr & 0xfffff000)) }

func immJ(instr uint32) int64 {
	v := (instr>>31)<<20 | ((instr>>12)&0xff)<<12 | ((instr>>20)&1)<<11 | ((instr>>21)&0x3ff)<<1
	return int64(int32(v<<11)) >> 11
}

// mulhu/mulh/mulhsu compute the high 64 bits of a 128-bit product,
// using math/bits.Mul64 (the unsigned case) with the standard signed
// correction terms — the idiomatic way to get a 128-bit multiply
// without a native int128 type.
func mulhu(a, b uint64) uint64 {
	hi, _ := bits.Mul64(a, b)
	return hi
}

func mulh(a, b int64) int64 {
	hi, _ := bits.Mul64(uint64(a), uint64(b))
	if a < 0 {
		hi -= uint64(b)
	}
	if b < 0 {
		hi -= uint64(a)
	}
	return int64(hi)
}

func mulhsu(a int64, b uint64) int64 {
	hi, _ := bits.Mul64(uint64(a), b)
	if a < 0 {
		hi -= b
	}
	return int64(hi)
}

// exec decodes and executes one already-fetched 32-bit instruction
// word (the expansion of a compressed form, or a native 32-bit one),
// advancing h.pc either sequentially by length or to a control-flow
// target. It returns (true, cause, tval) on a synchronous exception.
//
// There is no floating point or S/U-mode privilege state to decode:
// this hart only ever runs in machine mode over the RV64IMAC subset.
func (h *Hart) exec(instr uint32, length uint64) (bool, TrapCause, uint64) {
	opcode := instr & 0x7f
	rd := int((instr >> 7) & 0x1f)
	funct3 := (instr >> 12) & 0x7
	rs1 := int((instr >> 15) & 0x1f)
	rs2 := int((instr >> 20) & 0x1f)
	funct7 := (instr >> 25) & 0x7f

	next := h.pc + length

	switch opcode {
	case opLUI:
		h.setReg(rd, uint64(immU(instr)))
		h.pc = next

	case opAUIPC:
		h.setReg(rd, h.pc+uint64(immU(instr)))
		h.pc = next

	case opJAL:
		target := h.pc + uint64(immJ(instr))
		if target&1 != 0 {
			return true, InstructionAddressMisaligned, target
		}
		h.setReg(rd, next)
		h.pc = target

	case opJALR:
		target := (uint64(int64(h.Reg(rs1)) + immI(instr))) &^ 1
		h.setReg(rd, next)
		h.pc = target

	case opBranch:
		a, b := h.Reg(rs1), h.Reg(rs2)
		var taken bool
		switch funct3 {
		case 0b000:
			taken = a == b
		case 0b001:
			taken = a != b
		case 0b100:
			taken = int64(a) < int64(b)
		case 0b101:
			taken = int64(a) >= int64(b)
		case 0b110:
			taken = a < b
		case 0b111:
			taken = a >= b
		default:
			return true, IllegalInstruction, uint64(instr)
		}
		if taken {
			target := h.pc + uint64(immB(instr))
			if target&1 != 0 {
				return true, InstructionAddressMisaligned, target
			}
			h.pc = target
		} else {
			h.pc = next
		}

	case opLoad:
		addr := uint64(int64(h.Reg(rs1)) + immI(instr))
		var width uint64
		signed := false
		switch funct3 {
		case 0b000:
			width, signed = 1, true
		case 0b001:
			width, signed = 2, true
		case 0b010:
			width, signed = 4, true
		case 0b011:
			width = 8
		case 0b100:
			width = 1
		case 0b101:
			width = 2
		case 0b110:
			width = 4
		default:
			return true, IllegalInstruction, uint64(instr)
		}
		val, err := h.bus.Load(addr, width)
		if err != nil {
			f := err.(*Fault)
			return true, f.Cause, f.Addr
		}
		if signed {
			val = signExtendWidth(val, width)
		}
		h.setReg(rd, val)
		h.pc = next

	case opStore:
		addr := uint64(int64(h.Reg(rs1)) + immS(instr))
		var width uint64
		switch funct3 {
		case 0b000:
			width = 1
		case 0b001:
			width = 2
		case 0b010:
			width = 4
		case 0b011:
			width = 8
		default:
			return true, IllegalInstruction, uint64(instr)
		}
		if err := h.bus.Store(addr, width, h.Reg(rs2)); err != nil {
			f := err.(*Fault)
			return true, f.Cause, f.Addr
		}
		h.invalidateReservation(addr, width)
		h.pc = next

	case opImm:
		a := int64(h.Reg(rs1))
		imm := immI(instr)
		var v uint64
		switch funct3 {
		case 0b000:
			v = uint64(a + imm)
		case 0b010:
			v = boolToU64(a < imm)
		case 0b011:
			v = boolToU64(h.Reg(rs1) < uint64(imm))
		case 0b100:
			v = uint64(a ^ imm)
		case 0b110:
			v = uint64(a | imm)
		case 0b111:
			v = uint64(a & imm)
		case 0b001: // SLLI
			if funct7&^1 != 0 {
				return true, IllegalInstruction, uint64(instr)
			}
			shamt := (instr >> 20) & 0x3f
			v = h.Reg(rs1) << shamt
		case 0b101:
			shamt := (instr >> 20) & 0x3f
			if funct7>>1 == 0x10 { // SRAI
				v = uint64(a >> shamt)
			} else if funct7>>1 == 0 { // SRLI (funct7 bit 0 is shamt[5])
				v = h.Reg(rs1) >> shamt
			} else {
				return true, IllegalInstruction, uint64(instr)
			}
		}
		h.setReg(rd, v)
		h.pc = next

	case opImm32:
		a := int32(h.Reg(rs1))
		var v int32
		switch funct3 {
		case 0b000: // ADDIW
			v = a + int32(immI(instr))
		case 0b001: // SLLIW
			if funct7 != 0 {
				return true, IllegalInstruction, uint64(instr)
			}
			shamt := (instr >> 20) & 0x1f
			v = a << shamt
		case 0b101:
			shamt := (instr >> 20) & 0x1f
			switch funct7 {
			case 0x00: // SRLIW
				v = int32(uint32(a) >> shamt)
			case 0x20: // SRAIW
				v = a >> shamt
			default:
				return true, IllegalInstruction, uint64(instr)
			}
		default:
			return true, IllegalInstruction, uint64(instr)
		}
		h.setReg(rd, uint64(int64(v)))
		h.pc = next

	case opOp:
		a, b := h.Reg(rs1), h.Reg(rs2)
		sa, sb := int64(a), int64(b)
		var v uint64
		switch {
		case funct7 == 0x00 && funct3 == 0b000:
			v = a + b
		case funct7 == 0x20 && funct3 == 0b000:
			v = a - b
		case funct7 == 0x00 && funct3 == 0b001:
			v = a << (b & 0x3f)
		case funct7 == 0x00 && funct3 == 0b010:
			v = boolToU64(sa < sb)
		case funct7 == 0x00 && funct3 == 0b011:
			v = boolToU64(a < b)
		case funct7 == 0x00 && funct3 == 0b100:
			v = a ^ b
		case funct7 == 0x00 && funct3 == 0b101:
			v = a >> (b & 0x3f)
		case funct7 == 0x20 && funct3 == 0b101:
			v = uint64(sa >> (b & 0x3f))
		case funct7 == 0x00 && funct3 == 0b110:
			v = a | b
		case funct7 == 0x00 && funct3 == 0b111:
			v = a & b
		case funct7 == 0x01:
			switch funct3 {
			case 0b000:
				v = a * b
			case 0b001:
				v = uint64(mulh(sa, sb))
			case 0b010:
				v = uint64(mulhsu(sa, b))
			case 0b011:
				v = mulhu(a, b)
			case 0b100:
				v = uint64(divSigned(sa, sb))
			case 0b101:
				v = divUnsigned(a, b)
			case 0b110:
				v = uint64(remSigned(sa, sb))
			case 0b111:
				v = remUnsigned(a, b)
			}
		default:
			return true, IllegalInstruction, uint64(instr)
		}
		h.setReg(rd, v)
		h.pc = next

	case opOp32:
		a, b := int32(h.Reg(rs1)), int32(h.Reg(rs2))
		var v int32
		switch {
		case funct7 == 0x00 && funct3 == 0b000:
			v = a + b
		case funct7 == 0x20 && funct3 == 0b000:
			v = a - b
		case funct7 == 0x00 && funct3 == 0b001:
			v = a << (uint32(b) & 0x1f)
		case funct7 == 0x00 && funct3 == 0b101:
			v = int32(uint32(a) >> (uint32(b) & 0x1f))
		case funct7 == 0x20 && funct3 == 0b101:
			v = a >> (uint32(b) & 0x1f)
		case funct7 == 0x01:
			switch funct3 {
			case 0b000:
				v = a * b
			case 0b100:
				v = int32(divSigned(int64(a), int64(b)))
			case 0b101:
				v = int32(divUnsigned(uint64(uint32(a)), uint64(uint32(b))))
			case 0b110:
				v = int32(remSigned(int64(a), int64(b)))
			case 0b111:
				v = int32(remUnsigned(uint64(uint32(a)), uint64(uint32(b))))
			default:
				return true, IllegalInstruction, uint64(instr)
			}
		default:
			return true, IllegalInstruction, uint64(instr)
		}
		h.setReg(rd, uint64(int64(v)))
		h.pc = next

	case opAMO:
		trapped, cause, tval := h.execAMO(instr, rd, rs1, rs2, funct3, funct7)
		if trapped {
			return true, cause, tval
		}
		h.pc = next

	case opMiscMem: // FENCE / FENCE.I: single-hart, no-op
		h.pc = next

	case opSystem:
		trapped, cause, tval := h.execSystem(instr, rd, rs1, funct3, next)
		if trapped {
			return true, cause, tval
		}
		if funct3 != 0 { // Zicsr instructions advance pc; PRIV ops set it themselves
			h.pc = next
		}

	default:
		return true, IllegalInstruction, uint64(instr)
	}

	return false, 0, 0
}

func signExtendWidth(v, width uint64) uint64 {
	bitsN := width * 8
	shift := 64 - bitsN
	return uint64(int64(v<<shift) >> shift)
}

func divSigned(a, b int64) int64 {
	if b == 0 {
		return -1
	}
	if a == -1<<63 && b == -1 {
		return a
	}
	return a / b
}

func divUnsigned(a, b uint64) uint64 {
	if b == 0 {
		return ^uint64(0)
	}
	return a / b
}

func remSigned(a, b int64) int64 {
	if b == 0 {
		return a
	}
	if a == -1<<63 && b == -1 {
		return 0
	}
	return a % b
}

func remUnsigned(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return a % b
}

// invalidateReservation clears an outstanding LR reservation if a
// regular store overlaps it, per the base ISA's "any store to the
// reserved block clears the reservation" rule.
func (h *Hart) invalidateReservation(addr, width uint64) {
	if h.reservationValid && addr <= h.reservationAddr && h.reservationAddr < addr+width {
		h.reservationValid = false
	}
}
