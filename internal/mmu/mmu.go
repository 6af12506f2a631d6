// Package mmu wires the CPU-visible 16-bit address space to the cartridge,
// work/high RAM, the timer, the PPU, the joypad, and the serial port. It is
// the sole point of contact between components: nothing calls another
// component directly, everything goes through here.
package mmu

import (
	"io"

	"github.com/pixelforge-labs/dmgboy/internal/cart"
	"github.com/pixelforge-labs/dmgboy/internal/ppu"
	"github.com/pixelforge-labs/dmgboy/internal/timer"
)

// Joypad button bitmasks for SetButtons. Bits set mean "pressed".
const (
	ButtonRight  = 1 << 0
	ButtonLeft   = 1 << 1
	ButtonUp     = 1 << 2
	ButtonDown   = 1 << 3
	ButtonA      = 1 << 4
	ButtonB      = 1 << 5
	ButtonSelect = 1 << 6
	ButtonStart  = 1 << 7
)

// dmaMCycles is how long a real OAM DMA transfer keeps the CPU off
// everything but HRAM: one byte copied per M-cycle, 160 bytes total.
const dmaMCycles = 160

// MMU is the DMG address-space multiplexer.
type MMU struct {
	cart cart.Cartridge
	ppu  *ppu.PPU
	tm   *timer.Timer

	wram [0x2000]byte // 0xC000-0xDFFF, echoed at 0xE000-0xFDFF
	hram [0x7F]byte   // 0xFF80-0xFFFE

	ie    byte
	ifReg byte

	joypSelect byte
	buttons    byte
	joypLower4 byte

	sb byte
	sc byte
	sw io.Writer

	bootROM     []byte
	bootEnabled bool

	dma            byte
	dmaActive      bool
	dmaSrc         uint16
	dmaRemaining   int
}

// New builds an MMU around the cartridge cart.NewCartridge picks from the
// ROM header; use NewWithCartridge to supply a cartridge directly.
func New(rom []byte) *MMU {
	return NewWithCartridge(cart.NewCartridge(rom))
}

func NewWithCartridge(c cart.Cartridge) *MMU {
	m := &MMU{cart: c, joypLower4: 0x0F}
	m.ppu = ppu.New(func(bit int) { m.ifReg |= 1 << bit })
	m.tm = timer.New(func() { m.ifReg |= 1 << 2 })
	return m
}

func (m *MMU) PPU() *ppu.PPU       { return m.ppu }
func (m *MMU) Cart() cart.Cartridge { return m.cart }

// SetSerialWriter sets a sink that receives bytes written via the serial
// port; test ROMs (Blargg, Mooneye) report pass/fail this way.
func (m *MMU) SetSerialWriter(w io.Writer) { m.sw = w }

// SetBootROM maps a 256-byte boot ROM over 0x0000-0x00FF until PC first
// reaches 0x0100 or the overlay is disabled via a 0xFF50 write.
func (m *MMU) SetBootROM(data []byte) {
	m.bootROM = nil
	m.bootEnabled = false
	if len(data) >= 0x100 {
		m.bootROM = make([]byte, 0x100)
		copy(m.bootROM, data[:0x100])
		m.bootEnabled = true
	}
}

// NotifyPC is called with the CPU's PC after each CPU step so the boot ROM
// overlay can disable itself the first time execution reaches cartridge
// code, matching real hardware's "PC >= 0x0100" disable condition.
func (m *MMU) NotifyPC(pc uint16) {
	if m.bootEnabled && pc >= 0x0100 {
		m.bootEnabled = false
	}
}

// SetButtons sets which buttons are currently pressed (Button* bitmask).
func (m *MMU) SetButtons(mask byte) {
	m.buttons = mask
	m.updateJoypadIRQ()
}

func (m *MMU) Read(addr uint16) byte {
	if m.dmaActive && !dmaPermitted(addr) {
		return 0xFF
	}
	switch {
	case addr < 0x8000:
		if m.bootEnabled && addr < 0x0100 {
			return m.bootROM[addr]
		}
		return m.cart.Read(addr)
	case addr <= 0x9FFF:
		return m.ppu.CPURead(addr)
	case addr <= 0xBFFF:
		return m.cart.Read(addr)
	case addr <= 0xDFFF:
		return m.wram[addr-0xC000]
	case addr <= 0xFDFF:
		return m.wram[addr-0x2000-0xC000]
	case addr <= 0xFE9F:
		return m.ppu.CPURead(addr)
	case addr <= 0xFEFF:
		return 0xFF
	case addr == 0xFF00:
		return m.readJoyp()
	case addr == 0xFF01:
		return m.sb
	case addr == 0xFF02:
		return 0x7E | m.sc
	case addr >= 0xFF04 && addr <= 0xFF07:
		return m.tm.Read(addr)
	case addr == 0xFF0F:
		return 0xE0 | (m.ifReg & 0x1F)
	case addr == 0xFF46:
		return m.dma
	case addr == 0xFF50:
		return 0xFF
	case addr >= 0xFF40 && addr <= 0xFF4B:
		return m.ppu.CPURead(addr)
	case addr < 0xFF80: // unmapped I/O registers
		return 0xFF
	case addr <= 0xFFFE:
		return m.hram[addr-0xFF80]
	default: // 0xFFFF
		return m.ie
	}
}

func (m *MMU) Write(addr uint16, value byte) {
	if m.dmaActive && !dmaPermitted(addr) {
		return
	}
	switch {
	case addr < 0x8000:
		m.cart.Write(addr, value)
	case addr <= 0x9FFF:
		m.ppu.CPUWrite(addr, value)
	case addr <= 0xBFFF:
		m.cart.Write(addr, value)
	case addr <= 0xDFFF:
		m.wram[addr-0xC000] = value
	case addr <= 0xFDFF:
		mirror := addr - 0x2000
		m.wram[mirror-0xC000] = value
	case addr <= 0xFE9F:
		m.ppu.CPUWrite(addr, value)
	case addr <= 0xFEFF:
		// unused region, writes dropped
	case addr == 0xFF00:
		m.joypSelect = value & 0x30
		m.updateJoypadIRQ()
	case addr == 0xFF01:
		m.sb = value
	case addr == 0xFF02:
		m.sc = value & 0x81
		if m.sc&0x80 != 0 {
			if m.sw != nil {
				_, _ = m.sw.Write([]byte{m.sb})
			}
			m.ifReg |= 1 << 3
			m.sc &^= 0x80
		}
	case addr >= 0xFF04 && addr <= 0xFF07:
		m.tm.Write(addr, value)
	case addr == 0xFF0F:
		m.ifReg = value & 0x1F
	case addr == 0xFF46:
		m.startDMA(value)
	case addr == 0xFF50:
		if value != 0 {
			m.bootEnabled = false
		}
	case addr >= 0xFF40 && addr <= 0xFF4B:
		m.ppu.CPUWrite(addr, value)
	case addr < 0xFF80:
		// unmapped I/O registers, writes dropped
	case addr <= 0xFFFE:
		m.hram[addr-0xFF80] = value
	default: // 0xFFFF
		m.ie = value
	}
}

// dmaPermitted reports whether the CPU may still touch addr while an OAM
// DMA transfer is in flight: HRAM and the IE register only.
func dmaPermitted(addr uint16) bool {
	return (addr >= 0xFF80 && addr <= 0xFFFE) || addr == 0xFFFF
}

func (m *MMU) startDMA(value byte) {
	m.dma = value
	m.dmaActive = true
	m.dmaSrc = uint16(value) << 8
	m.dmaRemaining = dmaMCycles
}

// Tick advances the timer, PPU, and any in-flight OAM DMA by cycles
// M-cycles (the unit CPU.Step returns).
func (m *MMU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	m.tm.Tick(cycles * 4)
	m.ppu.Tick(cycles * 4)
	for i := 0; i < cycles && m.dmaActive; i++ {
		index := dmaMCycles - m.dmaRemaining
		v := m.rawRead(m.dmaSrc + uint16(index))
		m.ppu.DirectOAMWrite(byte(index), v)
		m.dmaRemaining--
		if m.dmaRemaining == 0 {
			m.dmaActive = false
		}
	}
}

// rawRead bypasses the DMA access lock; DMA itself is the one caller
// allowed to read cartridge/WRAM space while a transfer is active.
func (m *MMU) rawRead(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return m.cart.Read(addr)
	case addr <= 0x9FFF:
		return m.ppu.CPURead(addr)
	case addr <= 0xBFFF:
		return m.cart.Read(addr)
	case addr <= 0xDFFF:
		return m.wram[addr-0xC000]
	case addr <= 0xFDFF:
		return m.wram[addr-0x2000-0xC000]
	default:
		return 0xFF
	}
}

func (m *MMU) readJoyp() byte {
	res := byte(0xC0 | (m.joypSelect & 0x30) | 0x0F)
	if m.joypSelect&0x10 == 0 { // P14 low selects D-pad
		if m.buttons&ButtonRight != 0 {
			res &^= 0x01
		}
		if m.buttons&ButtonLeft != 0 {
			res &^= 0x02
		}
		if m.buttons&ButtonUp != 0 {
			res &^= 0x04
		}
		if m.buttons&ButtonDown != 0 {
			res &^= 0x08
		}
	}
	if m.joypSelect&0x20 == 0 { // P15 low selects buttons
		if m.buttons&ButtonA != 0 {
			res &^= 0x01
		}
		if m.buttons&ButtonB != 0 {
			res &^= 0x02
		}
		if m.buttons&ButtonSelect != 0 {
			res &^= 0x04
		}
		if m.buttons&ButtonStart != 0 {
			res &^= 0x08
		}
	}
	return res
}

// updateJoypadIRQ recomputes the active-low lower nibble and raises IF bit 4
// on any 1->0 transition, matching the documented joypad IRQ semantics.
func (m *MMU) updateJoypadIRQ() {
	p := m.readJoyp()
	newLower := p & 0x0F
	falling := m.joypLower4 &^ newLower
	if falling != 0 {
		m.ifReg |= 1 << 4
	}
	m.joypLower4 = newLower
}
