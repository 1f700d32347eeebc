// Package runner drives the CPU simulator through one unit test at a time:
// it seeds initial state, steps the interpreter to a termination point,
// classifies the outcome and compares the final state against expectations.
package runner

import (
	"fmt"
	"strings"

	"github.com/gbkit/gbunit/cpu"
)

// MemByte is one (address, value) entry of a sparse memory assignment.
type MemByte struct {
	Addr  uint16
	Value byte
}

// Registers is a sparse, partially specified snapshot of CPU state. A nil
// field means "don't care": it is neither configured nor compared. The same
// type serves both as an initializer and as an expected result.
type Registers struct {
	A *uint8
	B *uint8
	C *uint8
	D *uint8
	E *uint8
	H *uint8
	L *uint8

	// The flags register is decomposed into four bools so each flag can be
	// constrained independently.
	ZF *bool
	NF *bool
	HF *bool
	CF *bool

	BC *uint16
	DE *uint16
	HL *uint16
	PC *uint16
	SP *uint16

	// Memory holds constraints on arbitrary addresses, applied and compared
	// in order.
	Memory []MemByte
}

// Clone returns a deep copy; the copy can be mutated without affecting the
// original.
func (r *Registers) Clone() Registers {
	clone := *r
	clone.A = clonePtr(r.A)
	clone.B = clonePtr(r.B)
	clone.C = clonePtr(r.C)
	clone.D = clonePtr(r.D)
	clone.E = clonePtr(r.E)
	clone.H = clonePtr(r.H)
	clone.L = clonePtr(r.L)
	clone.ZF = clonePtr(r.ZF)
	clone.NF = clonePtr(r.NF)
	clone.HF = clonePtr(r.HF)
	clone.CF = clonePtr(r.CF)
	clone.BC = clonePtr(r.BC)
	clone.DE = clonePtr(r.DE)
	clone.HL = clonePtr(r.HL)
	clone.PC = clonePtr(r.PC)
	clone.SP = clonePtr(r.SP)
	clone.Memory = append([]MemByte(nil), r.Memory...)
	return clone
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Configure writes every present field into the CPU. The order is fixed so
// identical inputs always produce identical state: 8-bit registers, flags,
// 16-bit pairs (which override their halves), PC, SP, then memory entries
// in declaration order.
func (r *Registers) Configure(s *cpu.State) {
	setU8 := func(dst *uint8, src *uint8) {
		if src != nil {
			*dst = *src
		}
	}
	setU8(&s.A, r.A)
	setU8(&s.B, r.B)
	setU8(&s.C, r.C)
	setU8(&s.D, r.D)
	setU8(&s.E, r.E)
	setU8(&s.H, r.H)
	setU8(&s.L, r.L)

	if r.ZF != nil {
		s.F.SetZ(*r.ZF)
	}
	if r.NF != nil {
		s.F.SetN(*r.NF)
	}
	if r.HF != nil {
		s.F.SetH(*r.HF)
	}
	if r.CF != nil {
		s.F.SetC(*r.CF)
	}

	if r.BC != nil {
		s.SetBC(*r.BC)
	}
	if r.DE != nil {
		s.SetDE(*r.DE)
	}
	if r.HL != nil {
		s.SetHL(*r.HL)
	}
	if r.PC != nil {
		s.PC = *r.PC
	}
	if r.SP != nil {
		s.SP = *r.SP
	}

	for _, entry := range r.Memory {
		s.Write(entry.Addr, entry.Value)
	}
}

// Discrepancy is one mismatch between expected and actual state.
type Discrepancy struct {
	// Source identifies what mismatched: a register name, a flag name like
	// "f.z", or a memory address rendered as "[$XXXX]".
	Source   string
	Actual   string
	Expected string
}

// CompareResult collects every discrepancy of one comparison. An empty
// result means the state matched.
type CompareResult struct {
	Diffs []Discrepancy
}

// OK reports whether the comparison found no mismatches.
func (c CompareResult) OK() bool { return len(c.Diffs) == 0 }

// String renders one line per discrepancy.
func (c CompareResult) String() string {
	var b strings.Builder
	for _, d := range c.Diffs {
		fmt.Fprintf(&b, "%s (%s) does not match expected value (%s)\n",
			d.Source, d.Actual, d.Expected)
	}
	return b.String()
}

// Compare checks every present field against the CPU and returns all
// mismatches at once; it never stops at the first one, since the diagnostic
// value lies in seeing the complete picture.
func (r *Registers) Compare(s *cpu.State) CompareResult {
	var result CompareResult
	checkU8 := func(name string, want *uint8, got uint8) {
		if want != nil && got != *want {
			result.Diffs = append(result.Diffs, Discrepancy{
				Source:   name,
				Actual:   fmt.Sprintf("$%02X", got),
				Expected: fmt.Sprintf("$%02X", *want),
			})
		}
	}
	checkU16 := func(name string, want *uint16, got uint16) {
		if want != nil && got != *want {
			result.Diffs = append(result.Diffs, Discrepancy{
				Source:   name,
				Actual:   fmt.Sprintf("$%04X", got),
				Expected: fmt.Sprintf("$%04X", *want),
			})
		}
	}
	checkFlag := func(name string, want *bool, got bool) {
		if want != nil && got != *want {
			result.Diffs = append(result.Diffs, Discrepancy{
				Source:   name,
				Actual:   fmt.Sprintf("%v", got),
				Expected: fmt.Sprintf("%v", *want),
			})
		}
	}

	checkU8("a", r.A, s.A)
	checkU8("b", r.B, s.B)
	checkU8("c", r.C, s.C)
	checkU8("d", r.D, s.D)
	checkU8("e", r.E, s.E)
	checkU8("h", r.H, s.H)
	checkU8("l", r.L, s.L)

	checkFlag("f.z", r.ZF, s.F.Z())
	checkFlag("f.n", r.NF, s.F.N())
	checkFlag("f.h", r.HF, s.F.H())
	checkFlag("f.c", r.CF, s.F.C())

	checkU16("bc", r.BC, s.BC())
	checkU16("de", r.DE, s.DE())
	checkU16("hl", r.HL, s.HL())
	checkU16("pc", r.PC, s.PC)
	checkU16("sp", r.SP, s.SP)

	for _, entry := range r.Memory {
		got := s.Read(entry.Addr)
		if got != entry.Value {
			result.Diffs = append(result.Diffs, Discrepancy{
				Source:   fmt.Sprintf("[$%04X]", entry.Addr),
				Actual:   fmt.Sprintf("$%02X", got),
				Expected: fmt.Sprintf("$%02X", entry.Value),
			})
		}
	}

	return result
}
