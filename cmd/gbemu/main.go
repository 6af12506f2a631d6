package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/pixelforge-labs/dmgboy/internal/console"
	"github.com/pixelforge-labs/dmgboy/internal/hostui"
)

type cliFlags struct {
	romPath string
	bootROM string
	scale   int
	title   string

	headless bool
	frames   int
	pngOut   string
	expect   string // expected framebuffer CRC32 hex
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.romPath, "rom", "", "path to ROM (.gb)")
	flag.StringVar(&f.bootROM, "bootrom", "", "optional DMG boot ROM")
	flag.IntVar(&f.scale, "scale", 3, "window scale")
	flag.StringVar(&f.title, "title", "dmgboy", "window title")
	flag.BoolVar(&f.headless, "headless", false, "run without a window")
	flag.IntVar(&f.frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.pngOut, "outpng", "", "write the last framebuffer to PNG at path")
	flag.StringVar(&f.expect, "expect", "", "assert the final framebuffer's CRC32 (hex)")
	flag.Parse()
	return f
}

func mustRead(path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func runHeadless(gb *console.Console, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}
	start := time.Now()
	var fb [144][160]byte
	for i := 0; i < frames; i++ {
		fb = gb.StepFrame()
	}
	dur := time.Since(start)

	rgba := make([]byte, 160*144*4)
	hostui.ToRGBA(fb, rgba)
	crc := crc32.ChecksumIEEE(rgba)
	fps := float64(frames) / dur.Seconds()
	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		frames, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := savePNG(rgba, 160, 144, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}
	if expectCRC != "" {
		want := expectCRC
		if len(want) >= 2 && want[:2] == "0x" {
			want = want[2:]
		}
		if got := fmt.Sprintf("%08x", crc); got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func savePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{Pix: pix, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func main() {
	f := parseFlags()
	if f.romPath == "" {
		log.Fatal("-rom is required")
	}
	boot := mustRead(f.bootROM)

	gb, err := console.LoadROMFromFile(f.romPath, boot)
	if err != nil {
		log.Fatalf("load rom: %v", err)
	}
	log.Printf("ROM: %q", gb.ROMTitle())

	if f.headless {
		if err := runHeadless(gb, f.frames, f.pngOut, f.expect); err != nil {
			log.Fatal(err)
		}
		if err := gb.FlushBattery(); err != nil {
			log.Printf("flush battery: %v", err)
		}
		return
	}

	app := hostui.NewApp(hostui.Config{Title: f.title, Scale: f.scale}, gb)
	runErr := app.Run()
	if err := gb.FlushBattery(); err != nil {
		log.Printf("flush battery: %v", err)
	}
	if runErr != nil {
		log.Fatal(runErr)
	}
}
