package riscv

// execAMO implements the A extension: LR/SC and the full AMO read-
// modify-write set, both .W and .D widths.
func (h *Hart) execAMO(instr uint32, rd, rs1, rs2 int, funct3, funct7 uint32) (bool, TrapCause, uint64) {
	var width uint64
	switch funct3 {
	case 0b010:
		width = 4
	case 0b011:
		width = 8
	default:
		return true, IllegalInstruction, uint64(instr)
	}

	addr := h.Reg(rs1)
	funct5 := funct7 >> 2

	if funct5 == 0x02 { // LR
		val, err := h.bus.Load(addr, width)
		if err != nil {
			f := err.(*Fault)
			return true, f.Cause, f.Addr
		}
		h.reservationAddr = addr
		h.reservationValid = true
		h.setReg(rd, signExtendWidth(val, width))
		return false, 0, 0
	}

	if funct5 == 0x03 { // SC
		ok := h.reservationValid && h.reservationAddr == addr
		if ok {
			if err := h.bus.Store(addr, width, h.Reg(rs2)); err != nil {
				f := err.(*Fault)
				return true, f.Cause, f.Addr
			}
			h.reservationValid = false
			h.setReg(rd, 0)
		} else {
			h.setReg(rd, 1)
		}
		return false, 0, 0
	}

	oldRaw, err := h.bus.Load(addr, width)
	if err != nil {
		f := err.(*Fault)
		return true, f.Cause, f.Addr
	}
	b := h.Reg(rs2)

	var result uint64
	switch funct5 {
	case 0x01: // AMOSWAP
		result = b
	case 0x00: // AMOADD
		result = oldRaw + b
	case 0x04: // AMOXOR
		result = oldRaw ^ b
	case 0x0C: // AMOAND
		result = oldRaw & b
	case 0x08: // AMOOR
		result = oldRaw | b
	case 0x10, 0x14, 0x18, 0x1C: // MIN/MAX/MINU/MAXU
		result = amoMinMax(funct5, oldRaw, b, width)
	default:
		return true, IllegalInstruction, uint64(instr)
	}

	if err := h.bus.Store(addr, width, result); err != nil {
		f := err.(*Fault)
		return true, f.Cause, f.Addr
	}
	h.invalidateReservation(addr, width)
	h.setReg(rd, signExtendWidth(oldRaw, width))
	return false, 0, 0
}

func amoMinMax(funct5 uint32, oldRaw, b, width uint64) uint64 {
	if width == 4 {
		oldS, bS := int64(int32(oldRaw)), int64(int32(b))
		oldU, bU := uint32(oldRaw), uint32(b)
		switch funct5 {
		case 0x10:
			if oldS < bS {
				return oldRaw
			}
			return b
		case 0x14:
			if oldS > bS {
				return oldRaw
			}
			return b
		case 0x18:
			if oldU < bU {
				return oldRaw
			}
			return b
		default:
			if oldU > bU {
				return oldRaw
			}
			return b
		}
	}
	oldS, bS := int64(oldRaw), int64(b)
	switch funct5 {
	case 0x10:
		if oldS < bS {
			return oldRaw
		}
		return b
	case 0x14:
		if oldS > bS {
			return oldRaw
		}
		return b
	case 0x18:
		if oldRaw < b {
			return oldRaw
		}
		return b
	default:
		if oldRaw > b {
			return oldRaw
		}
		return b
	}
}
