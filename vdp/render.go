package vdp

import "sort"

// Tile and palette geometry: 8x8 tiles at 8 bits per pixel, palettes
// of 256 RGB666 triples.
const (
	TILE_BYTES     = 64
	PALETTE_STRIDE = 768 // 256 colors x 3 bytes
)

// A tilemap entry is 16 bits little-endian:
// 15                    0
//  PPPP VH TT TTTT TTTT
//  |||| || ++-++++-++++- Tile index (bits 0-9)
//  |||| |+-------------- Flip horizontally (bit 10)
//  |||| +--------------- Flip vertically (bit 11)
//  ++++----------------- Palette (bits 12-15)
const (
	MAP_TILE_MASK = 0x03FF
	MAP_FLIP_H    = 1 << 10
	MAP_FLIP_V    = 1 << 11
)

// Maximum sprites the hardware evaluates on one scanline; sprites that
// would exceed the cap on any line of their extent are skipped whole.
const SPRITES_PER_SCANLINE = 64

// expand666 widens a 6-bit channel to 8 bits so that 0x3F maps to 0xFF
// and 0x00 to 0x00.
func expand666(c uint8) uint32 {
	return uint32((c << 2) | (c >> 4))
}

// paletteColor reads color index c of palette p from CRAM as packed
// 0x00RRGGBB.
func (v *VDP) paletteColor(p, c int) uint32 {
	base := (p*PALETTE_STRIDE + c*3) % CRAM_SIZE
	r := expand666(v.cram[base])
	g := expand666(v.cram[(base+1)%CRAM_SIZE])
	b := expand666(v.cram[(base+2)%CRAM_SIZE])
	return (r << 16) | (g << 8) | b
}

// renderFrame redraws the framebuffer: backdrop, BG1, BG0, sprites.
// Later passes overwrite earlier ones wherever they produce an opaque
// pixel.
func (v *VDP) renderFrame() {
	w, h := v.DisplayDimensions()
	if v.width != w || v.height != h || len(v.pixels) != w*h {
		v.width, v.height = w, h
		v.pixels = make([]uint32, w*h)
	}

	bd := int(v.backdrop)
	backdrop := v.paletteColor(0, bd)
	for i := range v.pixels {
		v.pixels[i] = backdrop
	}

	if v.dispctl&DISP_BG1_ON > 0 {
		v.renderScrollBG(&v.bg[1])
	}
	if v.dispctl&DISP_BG0_ON > 0 {
		if v.bg[0].control&BG_AFFINE > 0 {
			v.renderAffineBG(&v.bg[0])
		} else {
			v.renderScrollBG(&v.bg[0])
		}
	}
	if v.dispctl&DISP_SPR_ON > 0 {
		v.renderSprites()
	}
}

// mapEntry reads the 16-bit little-endian tilemap entry for tile
// (tx, ty) of a layer.
func (v *VDP) mapEntry(bg *background, tx, ty int) uint16 {
	size := bg.mapSize()
	off := (uint32(bg.mapAddr) + uint32(ty*size+tx)*2) % VRAM_SIZE
	lo := uint16(v.vram[off])
	hi := uint16(v.vram[(off+1)%VRAM_SIZE])
	return lo | (hi << 8)
}

// tilePixel samples one pixel of an 8bpp tile, honoring the map entry's
// flip bits. Color index 0 is transparent.
func (v *VDP) tilePixel(entry uint16, px, py int) (uint32, bool) {
	if entry&MAP_FLIP_H > 0 {
		px = 7 - px
	}
	if entry&MAP_FLIP_V > 0 {
		py = 7 - py
	}

	tile := uint32(entry & MAP_TILE_MASK)
	color := v.vram[(tile*TILE_BYTES+uint32(py*8+px))%VRAM_SIZE]
	if color == 0 {
		return 0, false
	}

	pal := int(entry >> 12)
	return v.paletteColor(pal, int(color)), true
}

// renderScrollBG draws a wrapping scroll layer: world coordinates are
// the screen position plus the 16-bit scroll registers, wrapped to the
// map size.
func (v *VDP) renderScrollBG(bg *background) {
	if bg.control&BG_ENABLE == 0 {
		return
	}

	size := bg.mapSize()
	for sy := 0; sy < v.height; sy++ {
		wy := int(uint16(sy) + bg.scrollY)
		ty := (wy / 8) % size
		py := wy % 8
		for sx := 0; sx < v.width; sx++ {
			wx := int(uint16(sx) + bg.scrollX)
			tx := (wx / 8) % size
			px := wx % 8

			entry := v.mapEntry(bg, tx, ty)
			if rgb, ok := v.tilePixel(entry, px, py); ok {
				v.pixels[sy*v.width+sx] = rgb
			}
		}
	}
}

// renderAffineBG draws BG0 through its 2x2 matrix. Screen offsets are
// taken from the display center; texture coordinates accumulate in
// signed 8.8 fixed point and convert to pixels with an arithmetic >>8.
// Flip flags are ignored in affine mode.
func (v *VDP) renderAffineBG(bg *background) {
	if bg.control&BG_ENABLE == 0 {
		return
	}

	size := bg.mapSize()
	extent := size * 8
	wrap := bg.control&BG_WRAPAROUND > 0

	cx, cy := v.width/2, v.height/2
	for sy := 0; sy < v.height; sy++ {
		dy := int32(sy - cy)
		for sx := 0; sx < v.width; sx++ {
			dx := int32(sx - cx)

			texX := bg.refX + int32(bg.pa)*dx + int32(bg.pb)*dy
			texY := bg.refY + int32(bg.pc)*dx + int32(bg.pd)*dy

			px := int(texX >> 8)
			py := int(texY >> 8)

			if wrap {
				px = remEuclid(px, extent)
				py = remEuclid(py, extent)
			} else if px < 0 || py < 0 || px >= extent || py >= extent {
				continue
			}

			entry := v.mapEntry(bg, px/8, py/8)
			tile := uint32(entry & MAP_TILE_MASK)
			color := v.vram[(tile*TILE_BYTES+uint32((py%8)*8+px%8))%VRAM_SIZE]
			if color == 0 {
				continue
			}

			pal := int(entry >> 12)
			v.pixels[sy*v.width+sx] = v.paletteColor(pal, int(color))
		}
	}
}

// remEuclid is the floored modulus: negative coordinates map back into
// [0, m).
func remEuclid(n, m int) int {
	r := n % m
	if r < 0 {
		r += m
	}
	return r
}

// renderSprites draws OAM back-to-front: enabled entries sorted by
// ascending priority (OAM index breaks ties) so higher priorities land
// on top, with the per-scanline evaluation cap applied whole-sprite.
func (v *VDP) renderSprites() {
	type indexed struct {
		idx int
		s   SpriteAttr
	}

	var order []indexed
	for i, s := range v.oam {
		if s.enabled() {
			order = append(order, indexed{i, s})
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].s.priority() != order[j].s.priority() {
			return order[i].s.priority() < order[j].s.priority()
		}
		return order[i].idx < order[j].idx
	})

	lineCount := make([]int, SCANLINES_PER_FRAME)
	for _, entry := range order {
		s := entry.s
		size := s.size()
		x0, y0 := s.screenX(), s.screenY()

		// A sprite that would push any of its scanlines past the
		// cap is dropped entirely.
		blocked := false
		for y := y0; y < y0+size; y++ {
			if y >= 0 && y < len(lineCount) && lineCount[y] >= SPRITES_PER_SCANLINE {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		for y := y0; y < y0+size; y++ {
			if y >= 0 && y < len(lineCount) {
				lineCount[y] += 1
			}
		}

		v.drawSprite(s, x0, y0, size)
	}
}

func (v *VDP) drawSprite(s SpriteAttr, x0, y0, size int) {
	tilesPerRow := size / 8

	for ly := 0; ly < size; ly++ {
		sy := y0 + ly
		if sy < 0 || sy >= v.height {
			continue
		}
		for lx := 0; lx < size; lx++ {
			sx := x0 + lx
			if sx < 0 || sx >= v.width {
				continue
			}

			// Flips apply to the whole sprite before tile lookup.
			tx, ty := lx, ly
			if s.flipH() {
				tx = size - 1 - lx
			}
			if s.flipV() {
				ty = size - 1 - ly
			}

			tile := uint32(s.Tile) + uint32((ty/8)*tilesPerRow+tx/8)
			color := v.vram[(tile*TILE_BYTES+uint32((ty%8)*8+tx%8))%VRAM_SIZE]
			if color == 0 {
				continue
			}

			v.pixels[sy*v.width+sx] = v.paletteColor(int(s.palette()), int(color))
		}
	}
}
