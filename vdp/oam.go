package vdp

// SpriteAttr is one 64-bit Object Attribute Memory entry.
//
// The attribute word:
// 15                 0
//  E. VH PPPP .... ..SS
//  |  || ++++---------- Palette (bits 8-11; overlaps priority for
//  |  || ||             palettes above 3, which reference hardware
//  |  || ||             never uses)
//  |  || ++------------ Priority (bits 10-11; higher draws on top)
//  |  |+--------------- Flip horizontally (bit 12)
//  |  +---------------- Flip vertically (bit 13)
//  +------------------- Enable (bit 15)
// Bits 0-1 select the square size: 0=8, 1=16, 2=32, 3=64.
type SpriteAttr struct {
	Y    uint16 // 9-bit vertical position
	X    uint16 // 9-bit horizontal position
	Tile uint16 // index of the top-left 8x8 tile
	Attr uint16
}

const (
	ATTR_ENABLE = 1 << 15
	ATTR_FLIP_V = 1 << 13
	ATTR_FLIP_H = 1 << 12
)

func (s SpriteAttr) enabled() bool {
	return s.Attr&ATTR_ENABLE > 0
}

func (s SpriteAttr) flipV() bool {
	return s.Attr&ATTR_FLIP_V > 0
}

func (s SpriteAttr) flipH() bool {
	return s.Attr&ATTR_FLIP_H > 0
}

func (s SpriteAttr) priority() uint16 {
	return (s.Attr >> 10) & 0x03
}

func (s SpriteAttr) palette() uint16 {
	return (s.Attr >> 8) & 0x0F
}

// size returns the square pixel dimension: 8, 16, 32 or 64.
func (s SpriteAttr) size() int {
	return 8 << (s.Attr & 0x03)
}

// screenX/screenY interpret the 9-bit positions as signed so sprites
// can hang off the top and left edges.
func (s SpriteAttr) screenX() int {
	return sign9(s.X)
}

func (s SpriteAttr) screenY() int {
	return sign9(s.Y)
}

func sign9(v uint16) int {
	n := int(v & 0x1FF)
	if n >= 256 {
		n -= 512
	}
	return n
}

// SpriteFromWords decodes the four 16-bit words of an OAM entry.
func SpriteFromWords(in []uint16) SpriteAttr {
	return SpriteAttr{
		Y:    in[0] & 0x1FF,
		X:    in[1] & 0x1FF,
		Tile: in[2],
		Attr: in[3],
	}
}

// words re-encodes the entry; the inverse of SpriteFromWords.
func (s SpriteAttr) words() [4]uint16 {
	return [4]uint16{s.Y & 0x1FF, s.X & 0x1FF, s.Tile, s.Attr}
}
