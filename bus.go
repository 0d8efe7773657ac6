package riscv

// device is the common interface every physical-address-space region
// implements. Offsets passed in are already relative to the device's
// own base address.
type device interface {
	Load(offset, width uint64) (uint64, error)
	Store(offset, width, value uint64) error
}

// region is one entry of the Bus's routing table.
type region struct {
	base uint64
	size uint64
	dev  device
}

// Bus routes physical loads/stores to the device mapped at that
// address via an explicit, ordered routing table rather than a chain
// of hardcoded address-range comparisons.
type Bus struct {
	regions []region
	dram    *DRAM
	uart    *UART
	clint   *CLINT
	rom     *ROM
	virtio  *VirtIOBlock
}

// NewBus wires the boot ROM, DRAM, UART, and CLINT into the standard
// physical memory map. VirtIO-BLK is attached separately via
// AttachDisk, since it is an optional device.
func NewBus(dram *DRAM) *Bus {
	b := &Bus{
		dram:  dram,
		uart:  NewUART(),
		clint: NewCLINT(),
		rom:   NewROM(),
	}
	b.regions = []region{
		{base: ROMBase, size: ROMSize, dev: b.rom},
		{base: UARTBase, size: UARTSize, dev: b.uart},
		{base: CLINTBase, size: CLINTSize, dev: b.clint},
		{base: DRAMBase, size: dram.Size(), dev: dram},
	}
	return b
}

// AttachDisk maps a VirtIO-BLK device backed by disk at the standard
// VirtIO-BLK MMIO range.
func (b *Bus) AttachDisk(disk []byte) {
	b.virtio = NewVirtIOBlock(disk, b.dram)
	b.regions = append(b.regions, region{base: VirtIOBlockBase, size: VirtIOBlockSize, dev: b.virtio})
}

func (b *Bus) DRAM() *DRAM          { return b.dram }
func (b *Bus) UART() *UART          { return b.uart }
func (b *Bus) CLINT() *CLINT        { return b.clint }
func (b *Bus) ROM() *ROM            { return b.rom }
func (b *Bus) VirtIO() *VirtIOBlock { return b.virtio }

// find returns the region containing addr, or false if unmapped.
func (b *Bus) find(addr, width uint64) (region, bool) {
	for _, r := range b.regions {
		if addr >= r.base && addr+width <= r.base+r.size {
			return r, true
		}
	}
	return region{}, false
}

// Load reads width bytes (1, 2, 4, or 8) from the physical address
// space, returning LoadAccessFault for any address not mapped by a
// device or straddling a device boundary.
func (b *Bus) Load(addr, width uint64) (uint64, error) {
	r, ok := b.find(addr, width)
	if !ok {
		return 0, loadFault(addr)
	}
	return r.dev.Load(addr-r.base, width)
}

// Store writes width bytes (1, 2, 4, or 8) to the physical address
// space, returning StoreAccessFault for any address not mapped by a
// device or straddling a device boundary.
func (b *Bus) Store(addr, width, value uint64) error {
	r, ok := b.find(addr, width)
	if !ok {
		return storeFault(addr)
	}
	return r.dev.Store(addr-r.base, width, value)
}

// Tick advances time-driven devices by one step.
func (b *Bus) Tick() {
	b.clint.Tick()
}

// ExternalInterruptPending reports whether any device asserting the
// single external-interrupt line (mip.meip) wants service. No PLIC is
// modeled — the UART and VirtIO-BLK lines are ORed directly onto the
// one external-interrupt input a machine-mode-only hart has.
func (b *Bus) ExternalInterruptPending() bool {
	if b.uart.InterruptPending() {
		return true
	}
	if b.virtio != nil && b.virtio.InterruptPending() {
		return true
	}
	return false
}
