// Package mem implements the Game Boy address space the CPU simulator runs
// against: a read-only ROM overlay plus the console's RAM regions.
//
// There is no MBC emulation; ROM writes are discarded and the full 32 KiB
// ROM area maps banks 0 and 1 of the image directly.
package mem

import (
	"fmt"
	"io"

	storage "github.com/sarchlab/akita/v4/mem/mem"
)

const (
	romEnd      = 0x8000
	ramSize     = 0x8000 // 0x8000-0xFFFF backing store
	echoStart   = 0xE000
	echoEnd     = 0xFE00
	unusedStart = 0xFEA0
	unusedEnd   = 0xFF00
)

// Space is one test's view of the full 0x0000-0xFFFF address space. The ROM
// image is shared between clones; everything above it is private, so tests
// never observe each other's memory mutations.
type Space struct {
	rom []byte
	ram *storage.Storage
}

// NewSpace creates an address space over a ROM image. The image is not
// copied; callers must treat it as immutable.
func NewSpace(rom []byte) *Space {
	return &Space{
		rom: rom,
		ram: storage.NewStorage(ramSize),
	}
}

// ramOffset maps an address to its offset in the RAM backing store.
// Returns false for addresses that are not RAM-backed (ROM, the unusable
// region). Echo RAM folds onto WRAM.
func ramOffset(address uint16) (uint64, bool) {
	switch {
	case address < romEnd:
		return 0, false
	case address >= echoStart && address < echoEnd:
		return uint64(address - 0x2000 - romEnd), true
	case address >= unusedStart && address < unusedEnd:
		return 0, false
	default:
		return uint64(address - romEnd), true
	}
}

// Read returns the byte at address. Reads are total: ROM reads past the end
// of the image and reads from the unusable region return 0xFF.
func (s *Space) Read(address uint16) byte {
	if address < romEnd {
		if int(address) < len(s.rom) {
			return s.rom[address]
		}
		return 0xFF
	}
	offset, ok := ramOffset(address)
	if !ok {
		return 0xFF
	}
	data, err := s.ram.Read(offset, 1)
	if err != nil {
		return 0xFF
	}
	return data[0]
}

// Write stores a byte at address. Writes to ROM and the unusable region are
// discarded.
func (s *Space) Write(address uint16, value byte) {
	offset, ok := ramOffset(address)
	if !ok {
		return
	}
	_ = s.ram.Write(offset, []byte{value})
}

// Clone duplicates the RAM contents over the shared ROM image, giving a new
// test an isolated copy of the address space.
func (s *Space) Clone() *Space {
	clone := NewSpace(s.rom)
	if data, err := s.ram.Read(0, ramSize); err == nil {
		_ = clone.ram.Write(0, data)
	}
	return clone
}

// dumpRegions names the RAM regions written out by Dump, in address order.
var dumpRegions = []struct {
	name       string
	start, end uint16 // inclusive
}{
	{"VRAM", 0x8000, 0x9FFF},
	{"SRAM", 0xA000, 0xBFFF},
	{"WRAM", 0xC000, 0xDFFF},
	{"OAM", 0xFE00, 0xFE9F},
	{"IO", 0xFF00, 0xFF7F},
	{"HRAM", 0xFF80, 0xFFFE},
	{"IE", 0xFFFF, 0xFFFF},
}

// Dump writes a labeled hexdump of every RAM region, 16 bytes per line.
// ROM is skipped since it never changes.
func (s *Space) Dump(w io.Writer) error {
	for _, region := range dumpRegions {
		if _, err := fmt.Fprintf(w, "== %s ==\n", region.name); err != nil {
			return err
		}
		for line := uint32(region.start); line <= uint32(region.end); line += 16 {
			if _, err := fmt.Fprintf(w, "%04x:", line); err != nil {
				return err
			}
			for addr := line; addr <= uint32(region.end) && addr < line+16; addr++ {
				if _, err := fmt.Fprintf(w, " %02x", s.Read(uint16(addr))); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}
	return nil
}
