package riscv

import "fmt"

// TrapCause identifies why the hart trapped. Bit 63 set marks an
// interrupt; the low bits carry the exception/interrupt code exactly as
// they are written to mcause.
type TrapCause uint64

const interruptBit TrapCause = 1 << 63

// Synchronous exceptions.
const (
	InstructionAddressMisaligned TrapCause = 0
	InstructionAccessFault       TrapCause = 1
	IllegalInstruction           TrapCause = 2
	Breakpoint                   TrapCause = 3
	LoadAddressMisaligned        TrapCause = 4
	LoadAccessFault               TrapCause = 5
	StoreAddressMisaligned       TrapCause = 6
	StoreAccessFault              TrapCause = 7
	EnvironmentCallFromM         TrapCause = 11
)

// Asynchronous interrupts. Values are the interrupt codes with
// interruptBit set once delivered.
const (
	softwareInterruptCode TrapCause = 3
	timerInterruptCode    TrapCause = 7
	externalInterruptCode TrapCause = 11
)

func (c TrapCause) IsInterrupt() bool {
	return c&interruptBit != 0
}

func (c TrapCause) Code() uint64 {
	return uint64(c &^ interruptBit)
}

func (c TrapCause) String() string {
	if c.IsInterrupt() {
		switch c.Code() {
		case uint64(softwareInterruptCode):
			return "MachineSoftwareInterrupt"
		case uint64(timerInterruptCode):
			return "MachineTimerInterrupt"
		case uint64(externalInterruptCode):
			return "MachineExternalInterrupt"
		default:
			return fmt.Sprintf("Interrupt(%d)", c.Code())
		}
	}
	switch c {
	case InstructionAddressMisaligned:
		return "InstructionAddressMisaligned"
	case InstructionAccessFault:
		return "InstructionAccessFault"
	case IllegalInstruction:
		return "IllegalInstruction"
	case Breakpoint:
		return "Breakpoint"
	case LoadAddressMisaligned:
		return "LoadAddressMisaligned"
	case LoadAccessFault:
		return "LoadAccessFault"
	case StoreAddressMisaligned:
		return "StoreAddressMisaligned"
	case StoreAccessFault:
		return "StoreAccessFault"
	case EnvironmentCallFromM:
		return "EnvironmentCallFromM"
	default:
		return fmt.Sprintf("TrapCause(%d)", uint64(c))
	}
}

// Fault is the error type returned by Bus and device Load/Store calls.
// It is always convertible to the TrapCause the CPU delivers to the
// guest; host-level code that wants the raw cause can use errors.As.
type Fault struct {
	Cause TrapCause
	Addr  uint64
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s at %#x", f.Cause, f.Addr)
}

func loadFault(addr uint64) *Fault  { return &Fault{Cause: LoadAccessFault, Addr: addr} }
func storeFault(addr uint64) *Fault { return &Fault{Cause: StoreAccessFault, Addr: addr} }

// trap delivers a synchronous exception or asynchronous interrupt to
// the hart. It returns false if the hart should halt (mtvec was zero —
// an unbootable guest).
func (h *Hart) trap(cause TrapCause, tval uint64) bool {
	tvec := h.csr[CSR_MTVEC]
	if tvec == 0 {
		return false
	}

	h.csr[CSR_MEPC] = h.pc
	h.csr[CSR_MCAUSE] = uint64(cause)
	h.csr[CSR_MTVAL] = tval

	status := h.csr[CSR_MSTATUS]
	mie := (status >> mstatusMIEBit) & 1
	status = status &^ (uint64(1) << mstatusMPIEBit)
	status |= mie << mstatusMPIEBit
	status = status &^ (uint64(1) << mstatusMIEBit)
	status = status &^ (uint64(0b11) << mstatusMPPBit)
	status |= uint64(machineMode) << mstatusMPPBit
	h.csr[CSR_MSTATUS] = status

	if tvec&0b11 != 0 && cause.IsInterrupt() {
		base := tvec &^ 0b11
		h.pc = base + 4*cause.Code()
	} else {
		h.pc = tvec &^ 0b11
	}

	h.reservationValid = false
	return true
}

// mret restores the pre-trap PC and MIE bit.
func (h *Hart) mret() {
	h.pc = h.csr[CSR_MEPC]
	status := h.csr[CSR_MSTATUS]
	mpie := (status >> mstatusMPIEBit) & 1
	status = status &^ (uint64(1) << mstatusMIEBit)
	status |= mpie << mstatusMIEBit
	status |= uint64(1) << mstatusMPIEBit
	h.csr[CSR_MSTATUS] = status
	h.reservationValid = false
}

// pendingInterrupt reports the highest-priority enabled, pending
// interrupt, if any. Priority order: external, software, timer.
func (h *Hart) pendingInterrupt() (TrapCause, bool) {
	status := h.csr[CSR_MSTATUS]
	if status&(1<<mstatusMIEBit) == 0 {
		return 0, false
	}
	pending := h.csr[CSR_MIE] & h.csr[CSR_MIP]
	switch {
	case pending&mipMEIP != 0:
		return interruptBit | externalInterruptCode, true
	case pending&mipMSIP != 0:
		return interruptBit | softwareInterruptCode, true
	case pending&mipMTIP != 0:
		return interruptBit | timerInterruptCode, true
	default:
		return 0, false
	}
}

const (
	machineMode = 3

	mstatusMIEBit  = 3
	mstatusMPIEBit = 7
	mstatusMPPBit  = 11

	mipMSIP uint64 = 1 << 3
	mipMTIP uint64 = 1 << 7
	mipMEIP uint64 = 1 << 11
)
