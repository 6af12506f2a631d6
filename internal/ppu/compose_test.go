package ppu

import "testing"

func setupVisiblePPU(p *PPU) {
	p.CPUWrite(0xFF47, 0xE4) // BGP: identity-ish ramp 3,2,1,0
	p.CPUWrite(0xFF40, 0x91) // LCD on, BG on, tile data 0x8000, bg map 0x9800
}

func writeTile(p *PPU, tileIndex int, rows [8][2]byte) {
	for row := 0; row < 8; row++ {
		addr := uint16(0x8000 + tileIndex*16 + row*2)
		p.vram[addr-0x8000] = rows[row][0]
		p.vram[addr+1-0x8000] = rows[row][1]
	}
}

func TestComposeScanline_BackgroundOnly(t *testing.T) {
	p := New(nil)
	setupVisiblePPU(p)
	// Tile 0 at map entry (0,0): solid color index 3 across the row.
	writeTile(p, 0, [8][2]byte{{0xFF, 0xFF}})
	p.vram[0x9800-0x8000] = 0

	p.Tick(80 + 172 + 1) // drive through mode 3 into HBlank for LY=0

	fb := p.Framebuffer()
	want := mapPalette(0xE4, 3)
	if fb[0][0] != want {
		t.Fatalf("pixel(0,0) = %d, want %d", fb[0][0], want)
	}
}

func TestComposeScanline_SpriteOverBackground(t *testing.T) {
	p := New(nil)
	setupVisiblePPU(p)
	p.CPUWrite(0xFF40, 0x91|0x02) // sprites on
	p.CPUWrite(0xFF48, 0xE4)      // OBP0: identity, so sprite color 3 -> shade 3

	// Background is solid color 0, which BGP 0xE4 maps to shade 0 (lightest).
	writeTile(p, 0, [8][2]byte{{0x00, 0x00}})
	p.vram[0x9800-0x8000] = 0

	// Sprite tile 1: solid color index 3.
	writeTile(p, 1, [8][2]byte{{0xFF, 0xFF}})
	// OAM entry 0: Y=16 (screen row 0), X=8 (screen col 0), tile 1, attr 0.
	p.oam[0] = 16
	p.oam[1] = 8
	p.oam[2] = 1
	p.oam[3] = 0x00

	p.Tick(80 + 172 + 1)

	fb := p.Framebuffer()
	want := mapPalette(0xE4, 3)
	if fb[0][0] != want {
		t.Fatalf("sprite pixel(0,0) = %d, want %d", fb[0][0], want)
	}
}

func TestComposeScanline_SpriteBehindBGWhenBGNonzero(t *testing.T) {
	p := New(nil)
	setupVisiblePPU(p)
	p.CPUWrite(0xFF40, 0x91|0x02)

	// Background solid color 3 (nonzero).
	writeTile(p, 0, [8][2]byte{{0xFF, 0xFF}})
	p.vram[0x9800-0x8000] = 0

	writeTile(p, 1, [8][2]byte{{0xFF, 0xFF}})
	p.oam[0] = 16
	p.oam[1] = 8
	p.oam[2] = 1
	p.oam[3] = 0x80 // behind-BG priority bit set

	p.Tick(80 + 172 + 1)

	fb := p.Framebuffer()
	wantBG := mapPalette(0xE4, 3)
	if fb[0][0] != wantBG {
		t.Fatalf("expected sprite hidden behind nonzero BG: pixel(0,0) = %d, want %d", fb[0][0], wantBG)
	}
}

func TestComposeScanline_WindowRendersWhenWXBelowSeven(t *testing.T) {
	p := New(nil)
	setupVisiblePPU(p)
	p.CPUWrite(0xFF40, 0x91|0x20|0x40) // window on, window map at 0x9C00
	p.CPUWrite(0xFF4A, 0x00)           // WY=0: window visible from line 0
	p.CPUWrite(0xFF4B, 0x03)           // WX=3 -> wxStart=-4, window covers the whole line

	// Background (map 0x9800): solid color 0.
	writeTile(p, 0, [8][2]byte{{0x00, 0x00}})
	p.vram[0x9800-0x8000] = 0

	// Window (map 0x9C00): solid color 3, distinct from the background so the
	// two layers are distinguishable.
	writeTile(p, 1, [8][2]byte{{0xFF, 0xFF}})
	for col := 0; col < 32; col++ {
		p.vram[0x9C00-0x8000+col] = 1 // whole first window map row uses tile 1
	}

	p.Tick(80 + 172 + 1)

	fb := p.Framebuffer()
	want := mapPalette(0xE4, 3)
	if fb[0][0] != want {
		t.Fatalf("window pixel(0,0) with WX=3 = %d, want %d (window tile, not BG)", fb[0][0], want)
	}
	if fb[0][159] != want {
		t.Fatalf("window pixel(0,159) with WX=3 = %d, want %d (window tile, not BG)", fb[0][159], want)
	}
}

func TestComposeScanline_SpriteTieBreakEqualXLowerOAMIndexWins(t *testing.T) {
	p := New(nil)
	setupVisiblePPU(p)
	p.CPUWrite(0xFF40, 0x91|0x02)
	p.CPUWrite(0xFF48, 0x04) // OBP0: color1->1
	p.CPUWrite(0xFF49, 0x08) // OBP1: color1->2

	writeTile(p, 0, [8][2]byte{{0x00, 0x00}})
	p.vram[0x9800-0x8000] = 0

	// Two overlapping sprites at x=8: OAM index 0 at X=8 using OBP0, index 1
	// also at X=8 using OBP1. Equal X -> lower OAM index (0, OBP0) wins.
	writeTile(p, 1, [8][2]byte{{0x80, 0x00}}) // leftmost pixel color 1
	p.oam[0] = 16
	p.oam[1] = 8
	p.oam[2] = 1
	p.oam[3] = 0x00 // uses OBP0
	p.oam[4] = 16
	p.oam[5] = 8
	p.oam[6] = 1
	p.oam[7] = 0x10 // uses OBP1

	p.Tick(80 + 172 + 1)

	fb := p.Framebuffer()
	want := mapPalette(0x04, 1)
	if fb[0][0] != want {
		t.Fatalf("tie-break pixel(0,0) = %d, want %d (OBP0 from lower OAM index)", fb[0][0], want)
	}
}
