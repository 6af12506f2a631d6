// Package hostui is the desktop window layer: it presents the console's
// framebuffer and maps the keyboard onto the joypad. It owns no emulation
// state of its own and implements ebiten.Game directly against a
// *console.Console.
package hostui

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/pixelforge-labs/dmgboy/internal/console"
	"github.com/pixelforge-labs/dmgboy/internal/mmu"
)

// dmgShades maps a 2-bit shade index (0=lightest) to an RGBA classic-green
// DMG palette.
var dmgShades = [4][4]byte{
	{0x9B, 0xBC, 0x0F, 0xFF},
	{0x8B, 0xAC, 0x0F, 0xFF},
	{0x30, 0x62, 0x30, 0xFF},
	{0x0F, 0x38, 0x0F, 0xFF},
}

// App is the ebiten.Game implementation that drives one Console.
type App struct {
	cfg Config
	gb  *console.Console
	tex *ebiten.Image

	pixels   []byte // scratch RGBA buffer reused across frames
	lastTime time.Time
	frameAcc float64
}

// NewApp wires a Console into a window with the given configuration.
func NewApp(cfg Config, gb *console.Console) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(windowTitle(cfg, gb))
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	return &App{
		cfg:      cfg,
		gb:       gb,
		pixels:   make([]byte, 160*144*4),
		lastTime: time.Now(),
	}
}

func windowTitle(cfg Config, gb *console.Console) string {
	if gb == nil {
		return cfg.Title
	}
	if t := gb.ROMTitle(); t != "" {
		return cfg.Title + " - " + t
	}
	return cfg.Title
}

// Run starts the ebiten event loop; it blocks until the window closes.
func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	var buttons byte
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		buttons |= mmu.ButtonRight
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		buttons |= mmu.ButtonLeft
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		buttons |= mmu.ButtonUp
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		buttons |= mmu.ButtonDown
	}
	if ebiten.IsKeyPressed(ebiten.KeyZ) {
		buttons |= mmu.ButtonA
	}
	if ebiten.IsKeyPressed(ebiten.KeyX) {
		buttons |= mmu.ButtonB
	}
	if ebiten.IsKeyPressed(ebiten.KeyEnter) {
		buttons |= mmu.ButtonStart
	}
	if ebiten.IsKeyPressed(ebiten.KeyShiftRight) {
		buttons |= mmu.ButtonSelect
	}
	a.gb.SetButtons(buttons)

	// Pace emulation at the real DMG frame rate, decoupled from ebiten's
	// own refresh cadence, matching how the reference front-end schedules
	// StepFrame calls against a time accumulator.
	now := time.Now()
	dt := now.Sub(a.lastTime).Seconds()
	if dt < 0 || dt > 0.25 {
		dt = 0
	}
	a.lastTime = now
	const gbFPS = 4194304.0 / 70224.0 // ~59.7275
	a.frameAcc += dt * gbFPS
	steps := 0
	for a.frameAcc >= 1.0 && steps < 8 {
		a.gb.StepFrame()
		a.frameAcc -= 1.0
		steps++
	}
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	ToRGBA(a.gb.Framebuffer(), a.pixels)
	a.tex.WritePixels(a.pixels)
	screen.DrawImage(a.tex, nil)
}

// ToRGBA renders a console framebuffer (2-bit shade indices) into a
// pre-allocated 160*144*4 RGBA buffer using the classic DMG green palette.
func ToRGBA(fb [144][160]byte, out []byte) {
	for y := 0; y < 144; y++ {
		row := fb[y]
		base := y * 160 * 4
		for x := 0; x < 160; x++ {
			rgba := dmgShades[row[x]&0x03]
			copy(out[base+x*4:base+x*4+4], rgba[:])
		}
	}
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) { return 160, 144 }
