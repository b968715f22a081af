// Package bios builds HX-1 BIOS images: a 64KB read-only region mapped
// at 0xFF0000 whose first 0x20 bytes hold the eight 3-byte
// little-endian interrupt vectors, with boot code at offset 0x20.
package bios

import (
	"fmt"

	"github.com/nexelhq/hx1/hxasm"
)

const (
	SIZE         = 0x10000
	BASE         = 0xFF0000
	VECTOR_COUNT = 8
	CODE_OFFSET  = 0x20
)

// defaultSource is the stock boot program: mask interrupts and idle.
const defaultSource = `
start:
    SEI
loop:
    BRA loop
`

// Build assembles source into a BIOS image. Every vector points at
// entryLabel (offset 0 of the program when the label is absent), the
// way the stock BIOS routes all interrupts through one handler.
func Build(source, entryLabel string) ([]uint8, error) {
	program, err := hxasm.Assemble(source)
	if err != nil {
		return nil, fmt.Errorf("assembling BIOS source: %w", err)
	}
	if len(program.Bytes) > SIZE-CODE_OFFSET {
		return nil, fmt.Errorf("BIOS program is %d bytes; %d available", len(program.Bytes), SIZE-CODE_OFFSET)
	}

	image := make([]uint8, SIZE)
	for i := range image {
		image[i] = 0xFF
	}

	entry := uint32(BASE + CODE_OFFSET + program.Labels[entryLabel])
	for idx := 0; idx < VECTOR_COUNT; idx++ {
		off := idx * 3
		image[off] = uint8(entry & 0xFF)
		image[off+1] = uint8((entry >> 8) & 0xFF)
		image[off+2] = uint8((entry >> 16) & 0xFF)
	}

	copy(image[CODE_OFFSET:], program.Bytes)
	return image, nil
}

// Default produces the stock BIOS image used when the embedder
// supplies none.
func Default() []uint8 {
	image, err := Build(defaultSource, "start")
	if err != nil {
		panic(fmt.Sprintf("stock BIOS failed to assemble: %v", err))
	}
	return image
}
