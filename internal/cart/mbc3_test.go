package cart

import "testing"

func TestMBC3_ROMBanking(t *testing.T) {
	rom := make([]byte, 0x4000*8)
	for bank := 1; bank < 8; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC3(rom, 0)

	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("default bank1 got %02X want 01", got)
	}
	m.Write(0x2000, 0x05)
	if got := m.Read(0x4000); got != 0x05 {
		t.Fatalf("bank5 got %02X want 05", got)
	}
	m.Write(0x2000, 0x00)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap got %02X want 01", got)
	}
}

func TestMBC3_RAMBankingAndPersistence(t *testing.T) {
	rom := make([]byte, 0x4000*4)
	m := NewMBC3(rom, 0x2000*4)
	m.Write(0x0000, 0x0A) // RAM enable
	m.Write(0x4000, 0x02) // RAM bank 2
	m.Write(0xA000, 0x5A)

	if got := m.Read(0xA000); got != 0x5A {
		t.Fatalf("ram bank2 rw got %02X want 5A", got)
	}

	saved := m.SaveRAM()
	m2 := NewMBC3(rom, 0x2000*4)
	m2.LoadRAM(saved)
	m2.Write(0x0000, 0x0A)
	m2.Write(0x4000, 0x02)
	if got := m2.Read(0xA000); got != 0x5A {
		t.Fatalf("restored ram got %02X want 5A", got)
	}
}
