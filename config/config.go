// Package config loads test definitions from TOML. A document's top-level
// scalar keys form a template every test inherits; each top-level table is
// one test. Register values may be written as integers or as symbol names
// resolved against an RGBDS sym file.
package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gbkit/gbunit/runner"
	"github.com/gbkit/gbunit/symfile"
)

// reservedTables are top-level table keys that configure the global
// template rather than defining a test.
var reservedTables = map[string]bool{
	"f":      true,
	"result": true,
}

// Load parses a TOML test document. Symbol names in address positions are
// resolved through syms, which may be nil when no sym file was supplied.
// Tests are returned in lexical name order so runs are deterministic.
func Load(r io.Reader, syms symfile.Table) ([]*runner.TestConfig, error) {
	var raw map[string]any
	if _, err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing test config: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// The global template takes every top-level key that is not a test
	// table, applied in sorted order.
	global := runner.NewTestConfig("global")
	for _, key := range keys {
		if isTestTable(key, raw[key]) {
			continue
		}
		if err := applyKey(global, key, raw[key], syms); err != nil {
			return nil, err
		}
	}

	var tests []*runner.TestConfig
	for _, key := range keys {
		if !isTestTable(key, raw[key]) {
			continue
		}
		test := global.Clone()
		test.Name = key
		table := raw[key].(map[string]any)
		testKeys := make([]string, 0, len(table))
		for k := range table {
			testKeys = append(testKeys, k)
		}
		sort.Strings(testKeys)
		for _, k := range testKeys {
			if err := applyKey(test, k, table[k], syms); err != nil {
				return nil, fmt.Errorf("test %q: %w", key, err)
			}
		}
		tests = append(tests, test)
	}
	return tests, nil
}

// LoadFile parses the TOML test document at path.
func LoadFile(path string, syms symfile.Table) ([]*runner.TestConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening test config: %w", err)
	}
	defer f.Close()
	return Load(f, syms)
}

func isTestTable(key string, value any) bool {
	_, isTable := value.(map[string]any)
	return isTable && !reservedTables[key]
}

// applyKey applies one configuration key to a test. Keys that are not
// execution controls or register names are treated as memory addresses.
func applyKey(t *runner.TestConfig, key string, value any, syms symfile.Table) error {
	switch key {
	case "caller":
		addr, err := asAddress(value, syms)
		if err != nil {
			return fmt.Errorf("caller: %w", err)
		}
		t.CallerAddress = addr
		return nil
	case "crash":
		addrs, err := asAddressList(value, syms)
		if err != nil {
			return fmt.Errorf("crash: %w", err)
		}
		t.CrashAddresses = append(t.CrashAddresses, addrs...)
		return nil
	case "exit":
		addrs, err := asAddressList(value, syms)
		if err != nil {
			return fmt.Errorf("exit: %w", err)
		}
		t.ExitAddresses = append(t.ExitAddresses, addrs...)
		return nil
	case "timeout":
		n, ok := value.(int64)
		if !ok || n < 0 {
			return fmt.Errorf("timeout: expected a non-negative integer, got %v", value)
		}
		t.Timeout = uint64(n)
		return nil
	case "enable-breakpoints":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("enable-breakpoints: expected a boolean, got %v", value)
		}
		t.EnableBreakpoints = b
		return nil
	case "result":
		table, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("result: expected a table, got %v", value)
		}
		if t.Result == nil {
			t.Result = &runner.Registers{}
		}
		return applyRegisters(t.Result, table, syms)
	}
	return applyRegisterKey(&t.Initial, key, value, syms)
}

// applyRegisters applies a register table in sorted key order.
func applyRegisters(regs *runner.Registers, table map[string]any, syms symfile.Table) error {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := applyRegisterKey(regs, k, table[k], syms); err != nil {
			return err
		}
	}
	return nil
}

func applyRegisterKey(regs *runner.Registers, key string, value any, syms symfile.Table) error {
	switch key {
	case "a", "b", "c", "d", "e", "h", "l":
		v, err := asByte(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "a":
			regs.A = &v
		case "b":
			regs.B = &v
		case "c":
			regs.C = &v
		case "d":
			regs.D = &v
		case "e":
			regs.E = &v
		case "h":
			regs.H = &v
		case "l":
			regs.L = &v
		}
		return nil
	case "f":
		table, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("f: expected a table of flags, got %v", value)
		}
		return applyFlags(regs, table)
	case "bc", "de", "hl", "pc", "sp":
		v, err := asAddress(value, syms)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "bc":
			regs.BC = &v
		case "de":
			regs.DE = &v
		case "hl":
			regs.HL = &v
		case "pc":
			regs.PC = &v
		case "sp":
			regs.SP = &v
		}
		return nil
	}

	// Anything else names a memory location.
	addr, err := parseAddress(key, syms)
	if err != nil {
		return fmt.Errorf("%q: %w", key, err)
	}
	data, err := asBytes(value)
	if err != nil {
		return fmt.Errorf("%q: %w", key, err)
	}
	for i, b := range data {
		regs.Memory = append(regs.Memory, runner.MemByte{
			Addr:  addr + uint16(i),
			Value: b,
		})
	}
	return nil
}

func applyFlags(regs *runner.Registers, table map[string]any) error {
	for _, flag := range []string{"z", "n", "h", "c"} {
		value, present := table[flag]
		if !present {
			continue
		}
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("f.%s: expected a boolean, got %v", flag, value)
		}
		switch flag {
		case "z":
			regs.ZF = &b
		case "n":
			regs.NF = &b
		case "h":
			regs.HF = &b
		case "c":
			regs.CF = &b
		}
	}
	for key := range table {
		switch key {
		case "z", "n", "h", "c":
		default:
			return fmt.Errorf("f.%s: unknown flag", key)
		}
	}
	return nil
}

func asByte(value any) (uint8, error) {
	n, ok := value.(int64)
	if !ok || n < 0 || n > 0xFF {
		return 0, fmt.Errorf("expected an integer in 0..255, got %v", value)
	}
	return uint8(n), nil
}

// asAddress accepts an integer or a symbol name.
func asAddress(value any, syms symfile.Table) (uint16, error) {
	switch v := value.(type) {
	case int64:
		if v < 0 || v > 0xFFFF {
			return 0, fmt.Errorf("address %d out of range", v)
		}
		return uint16(v), nil
	case string:
		return parseAddress(v, syms)
	}
	return 0, fmt.Errorf("expected an address or symbol, got %v", value)
}

func asAddressList(value any, syms symfile.Table) ([]uint16, error) {
	list, ok := value.([]any)
	if !ok {
		addr, err := asAddress(value, syms)
		if err != nil {
			return nil, err
		}
		return []uint16{addr}, nil
	}
	addrs := make([]uint16, 0, len(list))
	for _, entry := range list {
		addr, err := asAddress(entry, syms)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// parseAddress resolves a symbol name, falling back to a numeric literal
// ("$" or "0x" prefix for hex, plain digits for decimal).
func parseAddress(name string, syms symfile.Table) (uint16, error) {
	if loc, ok := syms.Lookup(name); ok {
		return loc.Addr, nil
	}
	text := name
	base := 10
	switch {
	case strings.HasPrefix(text, "$"):
		text = text[1:]
		base = 16
	case strings.HasPrefix(text, "0x"), strings.HasPrefix(text, "0X"):
		text = text[2:]
		base = 16
	}
	n, err := strconv.ParseUint(text, base, 16)
	if err != nil {
		return 0, fmt.Errorf("unknown symbol or address %q", name)
	}
	return uint16(n), nil
}

// asBytes flattens a memory value: an integer is one byte, a boolean is 0
// or 1, a string contributes its bytes, and an array concatenates its
// elements.
func asBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case int64:
		b, err := asByte(v)
		if err != nil {
			return nil, err
		}
		return []byte{b}, nil
	case bool:
		if v {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case string:
		return []byte(v), nil
	case []any:
		var data []byte
		for _, entry := range v {
			part, err := asBytes(entry)
			if err != nil {
				return nil, err
			}
			data = append(data, part...)
		}
		return data, nil
	}
	return nil, fmt.Errorf("expected an integer, string, boolean or array, got %v", value)
}
