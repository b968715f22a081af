// Package console assembles the Nexel-24: the unified 24-bit memory
// bus, the HXC-24 CPU and the memory-mapped coprocessors, plus the
// ebiten front-end that puts frames on screen.
package console

import (
	"github.com/nexelhq/hx1/apu"
	"github.com/nexelhq/hx1/vdp"
)

// The HX-1 memory map. Routing is range-based and order-sensitive:
// first match wins, in the order listed here.
const (
	ADDR_MASK = 0x00FFFFFF

	WORKRAM_BASE = 0x000000
	WORKRAM_SIZE = 0x10000 // 64KB

	EXPRAM_BASE = 0x010000
	EXPRAM_SIZE = 0x30000 // 192KB

	IO_BASE = 0x100000
	IO_SIZE = 0x10000

	// Within the I/O window: VDP registers in the low 16KB, the APU
	// register bank based at 0x10C000.
	VDP_REG_SIZE = 0x4000
	APU_BASE     = 0x10C000

	VRAM_BASE = 0x200000
	VRAM_SIZE = 0x80000 // 512KB

	CRAM_BASE = 0x280000
	CRAM_SIZE = 0x10000 // 64KB

	CART_ROM_BASE = 0x400000
	CART_ROM_SIZE = 0x600000 // 6MB

	CART_SAVE_BASE = 0xA00000
	CART_SAVE_SIZE = 0x40000 // 256KB

	BIOS_BASE = 0xFF0000
	BIOS_SIZE = 0x10000 // 64KB
)

// Bus is the unified memory bus. It owns backing storage for the RAM
// and ROM regions; the I/O, VRAM and CRAM windows forward to the
// attached coprocessors. Unmapped reads return 0xFF; writes to ROM,
// BIOS and unmapped addresses are silently dropped.
type Bus struct {
	workram  []uint8
	expram   []uint8
	cartROM  []uint8
	cartSave []uint8
	bios     []uint8

	vdp *vdp.VDP
	apu *apu.APU
}

// NewBus builds a bus with zeroed memory. Either coprocessor may be
// nil, in which case its windows behave as unmapped.
func NewBus(v *vdp.VDP, a *apu.APU) *Bus {
	return &Bus{
		workram:  make([]uint8, WORKRAM_SIZE),
		expram:   make([]uint8, EXPRAM_SIZE),
		cartROM:  make([]uint8, CART_ROM_SIZE),
		cartSave: make([]uint8, CART_SAVE_SIZE),
		bios:     make([]uint8, BIOS_SIZE),
		vdp:      v,
		apu:      a,
	}
}

// LoadBIOS copies an image into the BIOS region, truncated to fit.
func (b *Bus) LoadBIOS(data []uint8) {
	copy(b.bios, data)
}

// LoadCart copies a cartridge image into the ROM region.
func (b *Bus) LoadCart(data []uint8) {
	copy(b.cartROM, data)
}

// LoadCartSave restores a save image into the cartridge save region.
func (b *Bus) LoadCartSave(data []uint8) {
	copy(b.cartSave, data)
}

// CartSave exposes the save region so the host can persist it.
func (b *Bus) CartSave() []uint8 {
	return b.cartSave
}

func (b *Bus) Read(addr uint32) uint8 {
	a := addr & ADDR_MASK

	switch {
	case a < WORKRAM_BASE+WORKRAM_SIZE:
		return b.workram[a]
	case a < EXPRAM_BASE+EXPRAM_SIZE:
		return b.expram[a-EXPRAM_BASE]
	case a >= IO_BASE && a < IO_BASE+IO_SIZE:
		return b.readIO(a - IO_BASE)
	case a >= VRAM_BASE && a < VRAM_BASE+VRAM_SIZE:
		if b.vdp != nil {
			return b.vdp.ReadVRAM(a - VRAM_BASE)
		}
	case a >= CRAM_BASE && a < CRAM_BASE+CRAM_SIZE:
		if b.vdp != nil {
			return b.vdp.ReadCRAM(a - CRAM_BASE)
		}
	case a >= CART_ROM_BASE && a < CART_ROM_BASE+CART_ROM_SIZE:
		return b.cartROM[a-CART_ROM_BASE]
	case a >= CART_SAVE_BASE && a < CART_SAVE_BASE+CART_SAVE_SIZE:
		return b.cartSave[a-CART_SAVE_BASE]
	case a >= BIOS_BASE:
		return b.bios[a-BIOS_BASE]
	}

	return 0xFF
}

func (b *Bus) Write(addr uint32, val uint8) {
	a := addr & ADDR_MASK

	switch {
	case a < WORKRAM_BASE+WORKRAM_SIZE:
		b.workram[a] = val
	case a < EXPRAM_BASE+EXPRAM_SIZE:
		b.expram[a-EXPRAM_BASE] = val
	case a >= IO_BASE && a < IO_BASE+IO_SIZE:
		b.writeIO(a-IO_BASE, val)
	case a >= VRAM_BASE && a < VRAM_BASE+VRAM_SIZE:
		if b.vdp != nil {
			b.vdp.WriteVRAM(a-VRAM_BASE, val)
		}
	case a >= CRAM_BASE && a < CRAM_BASE+CRAM_SIZE:
		if b.vdp != nil {
			b.vdp.WriteCRAM(a-CRAM_BASE, val)
		}
	case a >= CART_SAVE_BASE && a < CART_SAVE_BASE+CART_SAVE_SIZE:
		b.cartSave[a-CART_SAVE_BASE] = val
	}
	// Cart ROM, BIOS and unmapped writes drop.
}

// readIO routes an offset within the I/O window.
func (b *Bus) readIO(off uint32) uint8 {
	switch {
	case off < VDP_REG_SIZE:
		if b.vdp != nil {
			return b.vdp.ReadReg8(off)
		}
	case off >= APU_BASE-IO_BASE:
		if b.apu != nil {
			return b.apu.ReadRegister(off - (APU_BASE - IO_BASE))
		}
	}

	return 0xFF
}

func (b *Bus) writeIO(off uint32, val uint8) {
	switch {
	case off < VDP_REG_SIZE:
		if b.vdp != nil {
			b.vdp.WriteReg8(off, val)
		}
	case off >= APU_BASE-IO_BASE:
		if b.apu != nil {
			b.apu.WriteRegister(off-(APU_BASE-IO_BASE), val)
		}
	}
}

// Read16 returns the two bytes at addr as a little-endian 16-bit value.
// Multi-byte accesses go byte-by-byte at ascending addresses, wrapping
// within the 24-bit space.
func (b *Bus) Read16(addr uint32) uint16 {
	lsb := uint16(b.Read(addr))
	msb := uint16(b.Read((addr + 1) & ADDR_MASK))

	return (msb << 8) | lsb
}

// Write16 stores val at addr (lower byte first).
func (b *Bus) Write16(addr uint32, val uint16) {
	b.Write(addr, uint8(val&0x00FF))
	b.Write((addr+1)&ADDR_MASK, uint8(val>>8))
}

// Read24 returns the three bytes at addr as a little-endian 24-bit
// value.
func (b *Bus) Read24(addr uint32) uint32 {
	lo := uint32(b.Read(addr))
	mid := uint32(b.Read((addr + 1) & ADDR_MASK))
	hi := uint32(b.Read((addr + 2) & ADDR_MASK))

	return lo | (mid << 8) | (hi << 16)
}

// Write24 stores the low three bytes of val at addr.
func (b *Bus) Write24(addr uint32, val uint32) {
	b.Write(addr, uint8(val&0xFF))
	b.Write((addr+1)&ADDR_MASK, uint8((val>>8)&0xFF))
	b.Write((addr+2)&ADDR_MASK, uint8((val>>16)&0xFF))
}
