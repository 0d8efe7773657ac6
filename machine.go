package riscv

import (
	"fmt"
	"io"
)

// Machine is the top-level embedding façade: one hart, one bus, and
// the optional VirtIO-BLK disk.
type Machine struct {
	hart *Hart
	bus  *Bus

	// Trace, if non-nil, receives one line per Step call, including
	// steps that deliver a trap instead of retiring an instruction.
	Trace io.Writer
}

// Config bundles the optional construction parameters.
type Config struct {
	DRAMSize uint64 // defaults to DefaultDRAMSize when zero
	Disk     []byte // optional VirtIO-BLK backing image
}

// New constructs a machine, loads image (auto-detecting ELF vs a flat
// binary), and leaves the hart ready to Step from the image's entry
// point.
func New(image []byte, cfg Config) (*Machine, error) {
	size := cfg.DRAMSize
	if size == 0 {
		size = DefaultDRAMSize
	}
	dram := NewDRAM(size)
	bus := NewBus(dram)
	if cfg.Disk != nil {
		bus.AttachDisk(cfg.Disk)
	}

	var entry uint64
	var err error
	if LooksLikeELF(image) {
		entry, err = LoadELF(dram, image)
	} else {
		entry, err = LoadRaw(dram, image)
	}
	if err != nil {
		return nil, err
	}

	return &Machine{hart: NewHart(bus, entry), bus: bus}, nil
}

// Step retires one instruction or delivers one trap, returning false
// once the hart has halted (an unrecoverable trap).
func (m *Machine) Step() bool {
	alive := m.hart.Step()
	if m.Trace != nil {
		fmt.Fprintf(m.Trace, "pc=%#016x instret=%d\n", m.hart.PC(), m.hart.csr[CSR_MINSTRET])
	}
	return alive
}

// Run steps the machine until it halts or Step has been called
// maxSteps times, whichever comes first; maxSteps <= 0 means unbounded.
func (m *Machine) Run(maxSteps int64) {
	for i := int64(0); maxSteps <= 0 || i < maxSteps; i++ {
		if !m.Step() {
			return
		}
	}
}

// InputByte feeds one byte of guest-bound UART input.
func (m *Machine) InputByte(b byte) bool { return m.bus.UART().InputByte(b) }

// NextOutputByte drains one byte of guest-produced UART output.
func (m *Machine) NextOutputByte() (byte, bool) { return m.bus.UART().NextOutputByte() }

// PC reports the hart's current program counter.
func (m *Machine) PC() uint64 { return m.hart.PC() }

// Reg reports integer register i (x0 always reads zero).
func (m *Machine) Reg(i int) uint64 { return m.hart.Reg(i) }

// Halted reports whether the hart has stopped retiring instructions.
func (m *Machine) Halted() bool { return m.hart.Halted() }

// CycleCount reports the number of instructions retired.
func (m *Machine) CycleCount() uint64 { return m.hart.csr[CSR_MINSTRET] }

// MemoryUsage reports bytes allocated by DRAM, the attached disk image,
// and device-side queue buffers, exposed as a plain accessor rather
// than a mapped telemetry register since the physical memory map
// reserves no address range for it.
func (m *Machine) MemoryUsage() uint64 {
	usage := m.bus.DRAM().Size() + uint64(len(m.DiskBytes()))
	usage += 2 * uint64(uartQueueCapacity) // UART input + output rings
	return usage
}

// DiskBytes returns the current contents of the attached VirtIO-BLK
// backing image, or nil if none is attached.
func (m *Machine) DiskBytes() []byte {
	if m.bus.VirtIO() == nil {
		return nil
	}
	return m.bus.VirtIO().DiskBytes()
}

// Bus exposes the physical address space for tests and embedders that
// need to poke memory directly (e.g. depositing a program without
// going through New's loader).
func (m *Machine) Bus() *Bus { return m.bus }
