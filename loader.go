package riscv

import (
	"bytes"
	"debug/elf"
	"fmt"
)

// LoadRaw copies image directly to DRAMBase and returns DRAMBase as
// the entry point, for a flat binary with no embedded load address.
func LoadRaw(dram *DRAM, image []byte) (uint64, error) {
	if err := dram.WriteBytes(0, image); err != nil {
		return 0, err
	}
	return DRAMBase, nil
}

// LoadELF loads every PT_LOAD segment of an ELF image at its physical
// address and returns the entry point. A segment mapped below DRAMBase
// is rejected with an error rather than left to panic, and the image
// is taken as an in-memory byte slice rather than a filesystem path,
// since the embedder owns how it obtains the bytes.
func LoadELF(dram *DRAM, image []byte) (uint64, error) {
	f, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if prog.Paddr < DRAMBase {
			return 0, fmt.Errorf("riscv: ELF segment at %#x maps below DRAM base %#x", prog.Paddr, DRAMBase)
		}
		memOffset := prog.Paddr - DRAMBase
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return 0, fmt.Errorf("riscv: reading ELF segment: %w", err)
		}
		if err := dram.WriteBytes(memOffset, data); err != nil {
			return 0, err
		}
		if prog.Memsz > prog.Filesz {
			if err := dram.Fill(memOffset+prog.Filesz, prog.Memsz-prog.Filesz, 0); err != nil {
				return 0, err
			}
		}
	}
	return f.Entry, nil
}

// LooksLikeELF reports whether image begins with the ELF magic,
// letting the Construction API pick the right loader automatically.
func LooksLikeELF(image []byte) bool {
	return len(image) >= 4 && image[0] == 0x7f && image[1] == 'E' && image[2] == 'L' && image[3] == 'F'
}
