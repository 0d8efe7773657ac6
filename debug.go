package riscv

import "github.com/davecgh/go-spew/spew"

// hartSnapshot is a plain-data copy of a Hart's architectural state,
// used only to feed go-spew a stable, exported shape instead of
// dumping the live struct's unexported fields and *Bus pointer.
type hartSnapshot struct {
	PC       uint64
	X        [32]uint64
	CSR      map[uint16]uint64
	Reserved bool
}

// DebugString renders the hart's full architectural state for manual
// inspection using go-spew's configurable dumper, rather than a
// hand-rolled fmt.Printf register dump.
func (m *Machine) DebugString() string {
	snap := hartSnapshot{
		PC:       m.hart.pc,
		X:        m.hart.x,
		CSR:      m.hart.csr,
		Reserved: m.hart.reservationValid,
	}
	return spew.Sdump(snap)
}
