package riscv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// storeHalf writes a 16-bit compressed instruction; storeWord would
// write a word straddling the next slot, so compressed fetches need
// their own narrow helper.
func storeHalf(t *testing.T, bus *Bus, addr uint64, half uint16) {
	t.Helper()
	assert.NoError(t, bus.Store(addr, 2, uint64(half)))
}

func TestCompressedAddiEquivalentToBaseForm(t *testing.T) {
	h, bus := newTestHart(t)
	// c.li x1, 5: funct3=010, quadrant=01, rd=1, imm=5 -> 0b010_0_00001_00101_01
	half := uint16(0b010_0_00001_00101_01)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(5), h.Reg(1))
	assert.Equal(t, DRAMBase+2, h.PC()) // compressed form advances pc by 2
}

func TestCompressedNopIsAddiX0X0Zero(t *testing.T) {
	h, bus := newTestHart(t)
	storeHalf(t, bus, DRAMBase, 0x0001) // canonical C.NOP encoding
	assert.True(t, h.Step())
	assert.Equal(t, uint64(0), h.Reg(0))
	assert.Equal(t, DRAMBase+2, h.PC())
}

func TestCompressedMoveRegisters(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[2] = 77
	// c.mv x1, x2: quadrant 10, funct3 100, bit12=0, rd=1, rs2=2
	half := uint16(0b100_0_00001_00010_10)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(77), h.Reg(1))
}

func TestCompressedJumpRegister(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[1] = DRAMBase + 0x40
	// c.jr x1: quadrant 10, funct3 100, bit12=0, rd=1, rs2=0
	half := uint16(0b100_0_00001_00000_10)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, DRAMBase+0x40, h.PC())
}

func TestCompressedLoadStoreWord(t *testing.T) {
	h, bus := newTestHart(t)
	assert.NoError(t, bus.Store(DRAMBase+0x200, 4, 0xdeadbeef))
	h.x[9] = DRAMBase + 0x200 // x9 = x8+1, compressed register 1 -> rs1'=x9
	// c.lw x8(rd'=0), 0(x9, rs1'=1): quadrant 00 funct3 010, imm=0
	half := uint16(0b010_000_001_00_000_00)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(0xffffffffdeadbeef), h.Reg(8)) // lw sign-extends bit 31
}

func TestCompressedAddi4Spn(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[2] = 100 // sp
	// c.addi4spn x8, sp, 4: nzuimm[5:4|9:6|2|3] = instr[12:11|10:7|6|5];
	// only bit6 set encodes nzuimm=4, rd'=0 -> x8
	half := uint16(0x0040)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(104), h.Reg(8))
}

func TestCompressedJump(t *testing.T) {
	h, bus := newTestHart(t)
	// c.j +16: offset[11|4|9:8|10|6|7|3:1|5] = instr[12|11|10:9|8|7|6|5:3|2];
	// only instr bit11 set encodes offset bit4 (+16)
	half := uint16(0xA801)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, DRAMBase+16, h.PC())
}

func TestCompressedBeqzTaken(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[8] = 0
	// c.beqz x8, +8: offset[8|4:3|7:6|2:1|5] = instr[12|11:10|6:5|4:3|2];
	// only instr bit10 set encodes offset bit3 (+8), rs1'=0 -> x8
	half := uint16(0xC401)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, DRAMBase+8, h.PC())
}

func TestCompressedBnezTaken(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[8] = 5
	half := uint16(0xE401) // same field layout as c.beqz above, funct3=111
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, DRAMBase+8, h.PC())
}

func TestCompressedLui(t *testing.T) {
	h, bus := newTestHart(t)
	// c.lui x1, 1: nzimm[17|16:12] = instr[12|6:2]; only instr bit2 set
	half := uint16(0x6085)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(0x1000), h.Reg(1))
}

func TestCompressedAddi16Sp(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[2] = 1000
	// c.addi16sp sp, 256: nzimm[9|4|6|8:7|5] = instr[12|6|5|4:3|2];
	// only instr bit4 set encodes nzimm bit8 (+256)
	half := uint16(0x6111)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(1256), h.Reg(2))
}

func TestCompressedStoreDoubleword(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[9] = DRAMBase + 0x100   // rs1'=1 -> x9
	h.x[8] = 0x1122334455667788 // rs2'=0 -> x8
	// c.sd x8, 128(x9): off[7:6|5:3] = instr[6:5|12:10]; only instr bit6 set -> off=128
	half := uint16(0xE0C0)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	v, err := bus.Load(DRAMBase+0x180, 8)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x1122334455667788), v)
}

func TestCompressedLoadDoubleword(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[9] = DRAMBase + 0x100 // rs1'=1 -> x9
	assert.NoError(t, bus.Store(DRAMBase+0x180, 8, 0xcafebabedeadbeef))
	// c.ld x8, 128(x9): same field layout as c.sd above, funct3=011
	half := uint16(0x60C0)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(0xcafebabedeadbeef), h.Reg(8))
}

func TestCompressedSrli(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[8] = 160 // rs1'=0 -> x8
	// c.srli x8, x8, 5: shamt[5|4:0] = instr[12|6:2]; instr bits 4 and 2 set -> shamt=5
	half := uint16(0x8015)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(5), h.Reg(8))
}

func TestCompressedSrai(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[8] = 0x8000000000000000 // rs1'=0 -> x8
	// c.srai x8, x8, 4: funct2=01, shamt bit4 of instr -> shamt=4
	half := uint16(0x8411)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(0xf800000000000000), h.Reg(8)) // sign-preserving shift
}

func TestCompressedAndi(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[8] = 0xff // rs1'=0 -> x8
	// c.andi x8, x8, 15: funct2=10, imm[5|4:0] = instr[12|6:2]
	half := uint16(0x883D)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(15), h.Reg(8))
}

func TestCompressedSub(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[8] = 50            // rs1'=0 -> x8
	h.x[9] = 20            // rs2'=1 -> x9
	half := uint16(0x8C05) // c.sub x8, x8, x9
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(30), h.Reg(8))
}

func TestCompressedXor(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[8] = 0b1010
	h.x[9] = 0b0110
	half := uint16(0x8C25) // c.xor x8, x8, x9
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(0b1100), h.Reg(8))
}

func TestCompressedOr(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[8] = 0b1010
	h.x[9] = 0b0101
	half := uint16(0x8C45) // c.or x8, x8, x9
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(0b1111), h.Reg(8))
}

func TestCompressedAnd(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[8] = 0b1100
	h.x[9] = 0b1010
	half := uint16(0x8C65) // c.and x8, x8, x9
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(0b1000), h.Reg(8))
}

func TestCompressedSubw(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[8] = 50
	h.x[9] = 20
	half := uint16(0x9C05) // c.subw x8, x8, x9 (bit12=1 selects the W-suffixed group)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(30), h.Reg(8))
}

func TestCompressedAddw(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[8] = 10
	h.x[9] = 20
	half := uint16(0x9C25) // c.addw x8, x8, x9
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(30), h.Reg(8))
}

func TestCompressedLoadDoublewordSp(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[2] = DRAMBase + 0x100 // sp
	assert.NoError(t, bus.Store(DRAMBase+0x110, 8, 0x1122334455667788))
	// c.ldsp x1, 16(sp): off[5|4:3|8:6] = instr[12|6:5|4:2]; only instr bit6 set -> off=16
	half := uint16(0x60C2)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(0x1122334455667788), h.Reg(1))
}

func TestCompressedStoreDoublewordSp(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[2] = DRAMBase + 0x100 // sp
	h.x[3] = 0xcafebabedeadbeef
	// c.sdsp x3, 8(sp): off[5:3|8:6] = instr[12:10|9:7]; only instr bit10 set -> off=8
	half := uint16(0xE40E)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	v, err := bus.Load(DRAMBase+0x108, 8)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0xcafebabedeadbeef), v)
}

func TestCompressedLoadWordSp(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[2] = DRAMBase + 0x100 // sp
	assert.NoError(t, bus.Store(DRAMBase+0x104, 4, 0x12345678))
	// c.lwsp x1, 4(sp): off[5|4:2|7:6] = instr[12|6:4|3:2]; only instr bit4 set -> off=4
	half := uint16(0x4092)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(0x12345678), h.Reg(1))
}

func TestCompressedStoreWordSp(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[2] = DRAMBase + 0x100 // sp
	h.x[3] = 0x1122334455667788
	// c.swsp x3, 4(sp): off[5:2|7:6] = instr[12:9|8:7]; only instr bit9 set -> off=4
	half := uint16(0xC20E)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	v, err := bus.Load(DRAMBase+0x104, 4)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x55667788), v)
}

func TestCompressedEbreak(t *testing.T) {
	h, bus := newTestHart(t)
	h.csr[CSR_MTVEC] = 0x900
	half := uint16(0x9002) // c.ebreak
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(0x900), h.PC())
	assert.Equal(t, uint64(Breakpoint), h.csr[CSR_MCAUSE])
}

func TestCompressedJumpAndLinkRegister(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[2] = DRAMBase + 0x40
	half := uint16(0x9102) // c.jalr x1, (x2)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, DRAMBase+0x40, h.PC())
	assert.Equal(t, DRAMBase+2, h.Reg(1)) // return address
}

func TestCompressedAdd(t *testing.T) {
	h, bus := newTestHart(t)
	h.x[1] = 5
	h.x[2] = 7
	half := uint16(0x908A) // c.add x1, x1, x2
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(12), h.Reg(1))
}

func TestUnknownCompressedEncodingTrapsIllegal(t *testing.T) {
	h, bus := newTestHart(t)
	h.csr[CSR_MTVEC] = 0x900
	// quadrant 0, funct3 100 is reserved
	half := uint16(0b100_000_000_00_000_00)
	storeHalf(t, bus, DRAMBase, half)
	assert.True(t, h.Step())
	assert.Equal(t, uint64(0x900), h.PC())
	assert.Equal(t, uint64(IllegalInstruction), h.csr[CSR_MCAUSE])
}
