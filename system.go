package riscv

// execSystem implements the PRIV instructions (ECALL/EBREAK/MRET/WFI)
// and the Zicsr read-modify-write instructions.
// SFENCE.VMA and any other reserved SYSTEM encoding raises
// IllegalInstruction — there is no paging to fence on a machine-mode-
// only hart.
func (h *Hart) execSystem(instr uint32, rd, rs1 int, funct3 uint32, next uint64) (bool, TrapCause, uint64) {
	if funct3 == 0 {
		imm12 := instr >> 20
		if rs1 == 0 && rd == 0 {
			switch imm12 {
			case 0x000: // ECALL
				return true, EnvironmentCallFromM, 0
			case 0x001: // EBREAK
				return true, Breakpoint, h.pc
			case 0x302: // MRET
				h.mret()
				return false, 0, 0
			case 0x105: // WFI
				h.pc = next
				return false, 0, 0
			}
		}
		return true, IllegalInstruction, uint64(instr)
	}

	csrAddr := uint16(instr >> 20)
	var old uint64
	var ok bool
	switch funct3 {
	case 0b001: // CSRRW
		old, ok = h.csrrw(csrAddr, h.Reg(rs1))
	case 0b010: // CSRRS
		old, ok = h.csrrs(csrAddr, h.Reg(rs1))
	case 0b011: // CSRRC
		old, ok = h.csrrc(csrAddr, h.Reg(rs1))
	case 0b101: // CSRRWI
		old, ok = h.csrrw(csrAddr, uint64(rs1))
	case 0b110: // CSRRSI
		old, ok = h.csrrs(csrAddr, uint64(rs1))
	case 0b111: // CSRRCI
		old, ok = h.csrrc(csrAddr, uint64(rs1))
	default:
		return true, IllegalInstruction, uint64(instr)
	}
	if !ok {
		return true, IllegalInstruction, uint64(instr)
	}
	h.setReg(rd, old)
	return false, 0, 0
}
