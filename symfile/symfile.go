// Package symfile parses RGBDS symbol files, mapping label names to
// bank:address locations so test configurations can refer to code by name.
package symfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
)

// Location is a banked address.
type Location struct {
	Bank uint32
	Addr uint16
}

// Table maps symbol names to their locations.
type Table map[string]Location

// Lookup resolves a symbol name. The second return is false if the symbol
// is not present.
func (t Table) Lookup(name string) (Location, bool) {
	loc, ok := t[name]
	return loc, ok
}

// symLine matches one symbol definition: a bank of at least two hex digits,
// a colon, a four-digit hex address, whitespace, then a label starting with
// a letter or underscore. Comments and malformed lines simply fail to match.
var symLine = regexp.MustCompile(
	`^[ \t]*([0-9a-fA-F]{2,}):([0-9a-fA-F]{4})[ \t]+([a-zA-Z_].*)`)

// Parse reads symbol definitions from r. Lines that do not match the
// symbol format are skipped, matching how RGBDS tools treat sym files.
func Parse(r io.Reader) (Table, error) {
	table := make(Table)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := symLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		var bank uint32
		var addr uint16
		if _, err := fmt.Sscanf(m[1], "%x", &bank); err != nil {
			continue
		}
		if _, err := fmt.Sscanf(m[2], "%x", &addr); err != nil {
			continue
		}
		table[m[3]] = Location{Bank: bank, Addr: addr}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading symbol file: %w", err)
	}
	return table, nil
}

// Load parses the symbol file at path.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening symbol file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}
