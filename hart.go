package riscv

// Hart is a single RV64IMAC hart running permanently in machine mode:
// no supervisor/user privilege levels, no virtual memory, and no
// floating point or vector state.
type Hart struct {
	x  [32]uint64
	pc uint64

	// csr is a sparse map rather than a flat [4096]uint64; csrDefs gates
	// which addresses are recognized and how they may be written.
	csr map[uint16]uint64

	bus *Bus

	reservationAddr  uint64
	reservationValid bool

	halted bool // set when a trap occurs with mtvec == 0 (unbootable guest)

	// Trace, if set, receives a line of text per retired instruction.
	Trace traceSink
}

type traceSink interface {
	Tracef(format string, args ...any)
}

// NewHart creates a hart with pc as its reset vector, attached to bus.
func NewHart(bus *Bus, pc uint64) *Hart {
	return &Hart{
		pc:  pc,
		csr: make(map[uint16]uint64),
		bus: bus,
	}
}

func (h *Hart) PC() uint64 { return h.pc }

func (h *Hart) Reg(i int) uint64 {
	if i == 0 {
		return 0
	}
	return h.x[i]
}

func (h *Hart) setReg(i int, v uint64) {
	if i != 0 {
		h.x[i] = v
	}
}

// Halted reports whether the hart has trapped into an unbootable
// configuration (mtvec == 0 at the time of a fault).
func (h *Hart) Halted() bool { return h.halted }

func (h *Hart) mtime() uint64 { return h.bus.CLINT().MTime() }

// syncInterruptPins mirrors the single-wire device interrupt lines
// (UART/VirtIO's shared external line, CLINT's software/timer lines)
// into mip. The UART asserts mip.meip directly; no PLIC is modeled.
func (h *Hart) syncInterruptPins() {
	mip := h.csr[CSR_MIP] &^ (mipMEIP | mipMTIP | mipMSIP)
	if h.bus.ExternalInterruptPending() {
		mip |= mipMEIP
	}
	if h.bus.CLINT().TimerPending() {
		mip |= mipMTIP
	}
	if h.bus.CLINT().SoftwarePending() {
		mip |= mipMSIP
	}
	h.csr[CSR_MIP] = mip
}

// Step retires at most one instruction, or delivers one pending trap.
// It returns false once the hart has halted on an unrecoverable trap.
func (h *Hart) Step() bool {
	if h.halted {
		return false
	}

	h.bus.Tick()
	h.syncInterruptPins()

	if cause, ok := h.pendingInterrupt(); ok {
		if !h.trap(cause, 0) {
			h.halted = true
			return false
		}
		return true
	}

	instr, length, fault := h.fetch()
	if fault != nil {
		if !h.trap(fault.Cause, fault.Addr) {
			h.halted = true
			return false
		}
		return true
	}

	pc := h.pc
	trapped, cause, tval := h.exec(instr, length)
	if trapped {
		if !h.trap(cause, tval) {
			h.halted = true
			return false
		}
		return true
	}

	h.csr[CSR_MCYCLE]++
	h.csr[CSR_MINSTRET]++
	if h.Trace != nil {
		h.Trace.Tracef("pc=%#016x instr=%#08x", pc, instr)
	}
	return true
}

// fetch reads one instruction at pc: a compressed 16-bit form if the
// low two bits of the first halfword aren't both set, otherwise a
// 32-bit form. The C extension relaxes instruction alignment to 2
// bytes; only an odd pc misaligns.
func (h *Hart) fetch() (instr uint32, length uint64, fault *Fault) {
	if h.pc&1 != 0 {
		return 0, 0, &Fault{Cause: InstructionAddressMisaligned, Addr: h.pc}
	}
	lo, err := h.bus.Load(h.pc, 2)
	if err != nil {
		f := err.(*Fault)
		return 0, 0, &Fault{Cause: InstructionAccessFault, Addr: f.Addr}
	}
	if lo&0x3 != 0x3 {
		expanded, ok := decompress(uint32(lo))
		if !ok {
			return 0, 0, &Fault{Cause: IllegalInstruction, Addr: lo}
		}
		return expanded, 2, nil
	}
	hi, err := h.bus.Load(h.pc+2, 2)
	if err != nil {
		f := err.(*Fault)
		return 0, 0, &Fault{Cause: InstructionAccessFault, Addr: f.Addr}
	}
	return uint32(lo) | uint32(hi)<<16, 4, nil
}
