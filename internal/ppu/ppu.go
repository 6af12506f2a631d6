package ppu

import "sort"

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT).
type InterruptRequester func(bit int)

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC, mode timing, and scanline
// compositing into a 160x144 framebuffer of post-palette color indices.
type PPU struct {
	vram [0x2000]byte // 0x8000-0x9FFF
	oam  [0xA0]byte   // 0xFE00-0xFE9F

	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot               int  // dots within current line [0..455]
	windowLineCounter byte // advances only on lines where the window was actually drawn

	frame      [144][160]byte
	frameReady bool

	req InterruptRequester
}

func New(req InterruptRequester) *PPU { return &PPU{req: req} }

// CPURead returns bytes for VRAM, OAM, and PPU IO registers.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO registers.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			p.ly = 0
			p.dot = 0
			p.windowLineCounter = 0
			p.setMode(0)
			p.updateLYC()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			p.ly = 0
			p.dot = 0
			p.windowLineCounter = 0
			p.setMode(2)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		// LY is read-only from the CPU's perspective; writes are dropped (I3).
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// DirectOAMWrite bypasses the mode gate; used by OAM DMA, which is permitted
// to write OAM even while the CPU itself would be locked out.
func (p *PPU) DirectOAMWrite(index byte, value byte) {
	if int(index) < len(p.oam) {
		p.oam[index] = value
	}
}

// Tick advances PPU state by the given number of T-cycles.
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 {
			continue
		}
		p.dot++

		var mode byte
		if p.ly >= 144 {
			mode = 1
		} else {
			switch {
			case p.dot < 80:
				mode = 2
			case p.dot < 80+172:
				mode = 3
			default:
				mode = 0
			}
		}
		p.setMode(mode)

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				p.frameReady = true
				if p.req != nil {
					p.req(0)
				}
				if (p.stat & (1 << 4)) != 0 {
					if p.req != nil {
						p.req(1)
					}
				}
			} else if p.ly > 153 {
				p.ly = 0
				p.windowLineCounter = 0
			}
			p.updateLYC()
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0: // HBlank: the scanline that just finished mode 3 is composited here.
		if prev == 3 && p.ly < 144 {
			p.composeScanline(p.ly)
		}
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 2: // OAM scan
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// rawVRAM adapts the PPU's own array to the VRAMReader interface used by the
// fetcher, bypassing the CPU mode gate since the PPU always has access to
// its own memory.
type rawVRAM struct{ p *PPU }

func (v rawVRAM) Read(addr uint16) byte {
	if addr >= 0x8000 && addr <= 0x9FFF {
		return v.p.vram[addr-0x8000]
	}
	return 0xFF
}

func mapPalette(palette, colorIdx byte) byte {
	return (palette >> (colorIdx * 2)) & 0x03
}

type spriteCandidate struct {
	x, y  int
	idx   int
	tile  byte
	attr  byte
	tall  bool
}

// gatherSprites returns up to 10 OAM entries whose vertical extent covers
// ly, in OAM index order (how real hardware's mode-2 scan selects them).
func (p *PPU) gatherSprites(ly byte) []spriteCandidate {
	tall := p.lcdc&0x04 != 0
	height := 8
	if tall {
		height = 16
	}
	var out []spriteCandidate
	for i := 0; i < 40 && len(out) < 10; i++ {
		base := i * 4
		y := int(p.oam[base]) - 16
		if int(ly) < y || int(ly) >= y+height {
			continue
		}
		out = append(out, spriteCandidate{
			x:    int(p.oam[base+1]) - 8,
			y:    y,
			idx:  i,
			tile: p.oam[base+2],
			attr: p.oam[base+3],
			tall: tall,
		})
	}
	return out
}

// composeScanline fills one row of the framebuffer, applying background,
// window, and sprite layers per the priority rules in the spec.
func (p *PPU) composeScanline(ly byte) {
	if ly >= 144 {
		return
	}
	vram := rawVRAM{p}

	bgRaw := [160]byte{}
	if p.lcdc&0x01 != 0 {
		mapBase := uint16(0x9800)
		if p.lcdc&0x08 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := p.lcdc&0x10 != 0
		bgRaw = RenderBGScanlineUsingFetcher(vram, mapBase, tileData8000, p.scx, p.scy, ly)
	}

	windowDrawn := false
	winRaw := [160]byte{}
	wxStart := int(p.wx) - 7
	if p.lcdc&0x01 != 0 && p.lcdc&0x20 != 0 && ly >= p.wy && wxStart < 160 {
		winMapBase := uint16(0x9800)
		if p.lcdc&0x40 != 0 {
			winMapBase = 0x9C00
		}
		tileData8000 := p.lcdc&0x10 != 0
		winRaw = RenderWindowScanlineUsingFetcher(vram, winMapBase, tileData8000, wxStart, p.windowLineCounter)
		windowDrawn = true
	}

	var sprites []spriteCandidate
	if p.lcdc&0x02 != 0 {
		sprites = p.gatherSprites(ly)
		sort.SliceStable(sprites, func(i, j int) bool {
			if sprites[i].x != sprites[j].x {
				return sprites[i].x < sprites[j].x
			}
			return sprites[i].idx < sprites[j].idx
		})
	}

	for x := 0; x < 160; x++ {
		bgWinRaw := bgRaw[x]
		if windowDrawn && x >= wxStart {
			bgWinRaw = winRaw[x]
		}
		out := mapPalette(p.bgp, bgWinRaw)

		for _, s := range sprites {
			width := 8
			col := x - s.x
			if col < 0 || col >= width {
				continue
			}
			if s.attr&0x20 != 0 { // X flip
				col = width - 1 - col
			}
			height := 8
			if s.tall {
				height = 16
			}
			row := int(ly) - s.y
			if s.attr&0x40 != 0 {
				row = height - 1 - row
			}
			tile := s.tile
			if s.tall {
				tile = (tile &^ 0x01) | byte(row>>3)
				row &= 7
			}
			addr := 0x8000 + uint16(tile)*16 + uint16(row)*2
			lo := vram.Read(addr)
			hi := vram.Read(addr + 1)
			bit := 7 - byte(col)
			spriteRaw := ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
			if spriteRaw == 0 {
				continue
			}
			if s.attr&0x80 != 0 && bgWinRaw != 0 {
				continue // behind-BG priority: hidden unless BG/window color is 0
			}
			palette := p.obp0
			if s.attr&0x10 != 0 {
				palette = p.obp1
			}
			out = mapPalette(palette, spriteRaw)
			break
		}

		p.frame[ly][x] = out
	}

	if windowDrawn {
		p.windowLineCounter++
	}
}

// Framebuffer returns the most recently completed 160x144 frame of
// post-palette color indices (0-3, a DMG "shade").
func (p *PPU) Framebuffer() [144][160]byte { return p.frame }

// FrameReady reports and clears whether a new frame has been composed since
// the last call, for callers driving frame-paced presentation.
func (p *PPU) FrameReady() bool {
	r := p.frameReady
	p.frameReady = false
	return r
}

func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }
