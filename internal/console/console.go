// Package console is the top-level scheduler: it owns the CPU, MMU, and
// their shared framebuffer, and drives the CPU->Timer->PPU cycle loop the
// rest of the core obeys.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/pixelforge-labs/dmgboy/internal/cart"
	"github.com/pixelforge-labs/dmgboy/internal/cpu"
	"github.com/pixelforge-labs/dmgboy/internal/mmu"
)

// Console is the aggregate that owns a running game: one CPU, one MMU (and
// through it, one cartridge, timer, and PPU), reset and stepped together.
type Console struct {
	cpu *cpu.CPU
	mmu *mmu.MMU

	romPath string
	header  *cart.Header

	batteryPath string
}

// New constructs a Console around a loaded ROM image. bootROM may be nil, in
// which case the CPU starts directly at the documented post-boot register
// state instead of executing the boot ROM.
func New(rom []byte, bootROM []byte) (*Console, error) {
	header, err := cart.ParseHeader(rom)
	if err != nil {
		return nil, fmt.Errorf("parse cartridge header: %w", err)
	}
	if !cart.Supported(header.CartType) {
		return nil, fmt.Errorf("unsupported cartridge type %#02x (%s)", header.CartType, header.CartTypeStr)
	}

	m := mmu.New(rom)
	if len(bootROM) > 0 {
		m.SetBootROM(bootROM)
	}

	c := &Console{mmu: m, header: header}
	c.cpu = cpu.New(c)
	if len(bootROM) == 0 {
		c.cpu.ResetNoBoot()
	} else {
		c.cpu.SetPC(0x0000)
	}
	return c, nil
}

// LoadROMFromFile reads a ROM image (and, if present, a sidecar .sav battery
// file) from disk and constructs a Console around it.
func LoadROMFromFile(path string, bootROM []byte) (*Console, error) {
	rom, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ROM %s: %w", path, err)
	}
	c, err := New(rom, bootROM)
	if err != nil {
		return nil, err
	}
	c.romPath = path
	c.batteryPath = batteryPathFor(path)
	if data, err := os.ReadFile(c.batteryPath); err == nil {
		c.LoadBattery(data)
	}
	return c, nil
}

func batteryPathFor(romPath string) string {
	for i := len(romPath) - 1; i >= 0 && romPath[i] != '/'; i-- {
		if romPath[i] == '.' {
			return romPath[:i] + ".sav"
		}
	}
	return romPath + ".sav"
}

// Read and Write satisfy cpu.Bus by delegating to the MMU. The CPU's PC is
// reported to the MMU separately, by step, so the boot-ROM overlay can
// disable itself.
func (c *Console) Read(addr uint16) byte {
	return c.mmu.Read(addr)
}

func (c *Console) Write(addr uint16, value byte) {
	c.mmu.Write(addr, value)
}

// SetSerialWriter attaches a sink for bytes written to the serial port
// (0xFF01/0xFF02); headless test-ROM harnesses read Blargg/Mooneye
// pass/fail reports this way.
func (c *Console) SetSerialWriter(w io.Writer) { c.mmu.SetSerialWriter(w) }

// SetButtons sets which buttons are currently pressed (mmu.Button* bitmask).
func (c *Console) SetButtons(mask byte) { c.mmu.SetButtons(mask) }

// ROMPath returns the path the ROM was loaded from, or "" if constructed
// directly from bytes.
func (c *Console) ROMPath() string { return c.romPath }

// ROMTitle returns the cartridge header's title field.
func (c *Console) ROMTitle() string { return c.header.Title }

// Framebuffer returns the most recently completed 160x144 frame.
func (c *Console) Framebuffer() [144][160]byte { return c.mmu.PPU().Framebuffer() }

// LoadBattery restores persisted external cartridge RAM, if the cartridge
// supports it.
func (c *Console) LoadBattery(data []byte) {
	if bb, ok := c.mmu.Cart().(cart.BatteryBacked); ok {
		bb.LoadRAM(data)
	}
}

// SaveBattery returns the cartridge's external RAM for persistence, or nil
// if the cartridge has none.
func (c *Console) SaveBattery() []byte {
	if bb, ok := c.mmu.Cart().(cart.BatteryBacked); ok {
		return bb.SaveRAM()
	}
	return nil
}

// FlushBattery writes SaveBattery's result to the sidecar .sav path derived
// from the ROM path, if one was loaded from disk and the cartridge has
// persistent RAM.
func (c *Console) FlushBattery() error {
	if c.batteryPath == "" {
		return nil
	}
	data := c.SaveBattery()
	if data == nil {
		return nil
	}
	return os.WriteFile(c.batteryPath, data, 0o644)
}

// step runs exactly one CPU instruction (or interrupt service, or HALT-idle
// M-cycle) and propagates its cycle cost to the timer and PPU, matching the
// fixed CPU->Timer->PPU ordering the whole core depends on.
func (c *Console) step() int {
	cycles := c.cpu.Step()
	c.mmu.NotifyPC(c.cpu.PC)
	c.mmu.Tick(cycles)
	return cycles
}

// StepFrame runs the CPU until a new frame has been composed and returns it.
func (c *Console) StepFrame() [144][160]byte {
	for !c.mmu.PPU().FrameReady() {
		c.step()
	}
	return c.Framebuffer()
}

// StepFrameNoRender is StepFrame without returning the framebuffer, for
// headless test-ROM harnesses that only care about serial output.
func (c *Console) StepFrameNoRender() {
	for !c.mmu.PPU().FrameReady() {
		c.step()
	}
}

// Step exposes a single CPU step for harnesses (e.g. cmd/cpurunner) that
// need fine-grained tracing rather than frame-paced stepping.
func (c *Console) Step() int { return c.step() }

// CPU exposes the underlying CPU for trace-printing harnesses.
func (c *Console) CPU() *cpu.CPU { return c.cpu }
