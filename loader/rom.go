// Package loader reads Game Boy ROM images from disk or standard input.
package loader

import (
	"fmt"
	"io"
	"os"
)

// MinROMSize is the smallest valid ROM image: one 16 KiB bank. Shorter
// images are padded up to this size.
const MinROMSize = 0x4000

// padByte fills the gap between a short image and MinROMSize. 0xFF reads
// as an illegal opcode, so running off the end of a padded ROM fails fast.
const padByte = 0xFF

// ROM reads a ROM image. The path "-" reads from standard input. Images
// shorter than MinROMSize are padded with 0xFF.
func ROM(path string) ([]byte, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading ROM: %w", err)
	}
	for len(data) < MinROMSize {
		data = append(data, padByte)
	}
	return data, nil
}
