package riscv

// ROMBase/ROMSize locate the boot ROM: a fixed, read-only reset-vector
// shim at the physical address a hart resets to.
const (
	ROMBase uint64 = 0x0000_1000
	ROMSize uint64 = 0x0000_1000
)

// ROM is a flat, read-only byte region. Stores are silently ignored
// rather than faulted, matching real boot ROM hardware wired so the
// write strobe never reaches the storage cells.
type ROM struct {
	data []byte
}

// NewROM builds the reset-vector shim that lands a hart reset to
// ROMBase on DRAMBase without any CPU-side special-casing of the reset
// address. `lui` sign-extends its result on RV64, and DRAMBase's bit 31
// is set, so a bare lui would leave the upper 32 bits all ones; the
// shim clears them with a shift pair before jumping:
//
//	lui x5, %hi(DRAMBase)
//	slli x5, x5, 32
//	srli x5, x5, 32
//	jalr x0, 0(x5)
//
// Raw (non-ELF) images start the hart directly at DRAMBase; this shim
// exists so the same jump is observable by a guest that reads or
// re-executes the reset vector itself.
func NewROM() *ROM {
	data := make([]byte, ROMSize)
	lui := encodeU(uint32(DRAMBase), 5, opLUI)
	slli := encodeI(32, 5, 0b001, 5, opImm)
	srli := encodeI(32, 5, 0b101, 5, opImm)
	jalr := encodeI(0, 5, 0, 0, opJALR)
	putLE32(data[0:4], lui)
	putLE32(data[4:8], slli)
	putLE32(data[8:12], srli)
	putLE32(data[12:16], jalr)
	return &ROM{data: data}
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func (r *ROM) Load(offset, width uint64) (uint64, error) {
	if offset+width > ROMSize {
		return 0, loadFault(ROMBase + offset)
	}
	var v uint64
	for i := uint64(0); i < width; i++ {
		v |= uint64(r.data[offset+i]) << (8 * i)
	}
	return v, nil
}

func (r *ROM) Store(offset, width, value uint64) error {
	if offset+width > ROMSize {
		return storeFault(ROMBase + offset)
	}
	return nil
}
