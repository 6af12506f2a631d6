package cart

// Cartridge is the minimal surface the MMU needs for ROM/RAM banking.
// Implementations are ROM-only or one of the MBC variants. Addresses are
// CPU-space addresses; the MMU is responsible for routing only the ranges
// a cartridge owns (0x0000-0x7FFF and 0xA000-0xBFFF) into these calls.
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

// BatteryBacked is implemented by cartridges whose external RAM survives
// power-off via an onboard battery. The console persists this to a sidecar
// .sav file next to the ROM, independent of any other state.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// Supported reports whether cartType is a cartridge type this package has
// an implementation for. MBC2 and MMM01 headers, among others, decode to a
// cartTypeString but have no banking implementation here and are therefore
// unsupported.
func Supported(cartType byte) bool {
	switch cartType {
	case 0x00, // ROM ONLY
		0x01, 0x02, 0x03, // MBC1 (+RAM, +RAM+BATTERY)
		0x0F, 0x10, 0x11, 0x12, 0x13, // MBC3 (+TIMER/+RAM/+BATTERY)
		0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E: // MBC5 (+RAM/+RUMBLE/+BATTERY)
		return true
	default:
		return false
	}
}

// NewCartridge picks an implementation based on the ROM header's cartridge
// type byte. Callers must check Supported (or go through console.New, which
// does) before calling this — unsupported types still fall back to ROM-only
// here so a Cartridge is always returned, but that fallback must not be
// reached silently by the top-level loader.
func NewCartridge(rom []byte) Cartridge {
	h, err := ParseHeader(rom)
	if err != nil {
		return NewROMOnly(rom)
	}
	switch h.CartType {
	case 0x00:
		return NewROMOnly(rom)
	case 0x01, 0x02, 0x03: // MBC1 (+RAM, +RAM+BATTERY)
		return NewMBC1(rom, h.RAMSizeBytes, h.ROMBanks)
	case 0x0F, 0x10, 0x11, 0x12, 0x13: // MBC3 (+TIMER/+RAM/+BATTERY; RTC not modeled)
		return NewMBC3(rom, h.RAMSizeBytes)
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E: // MBC5 (+RAM/+RUMBLE/+BATTERY)
		return NewMBC5(rom, h.RAMSizeBytes)
	default:
		return NewROMOnly(rom)
	}
}
