// Package cpu provides a functional SM83 (Game Boy CPU) simulator.
//
// The simulator treats instructions as atomic: the address space cannot
// observe intra-instruction timing, so reads from "dynamic" locations such as
// hardware registers will not track the cycle counter. This is a design
// choice for simplicity and performance, not a bug.
package cpu

import "fmt"

// AddressSpace is how the CPU communicates with the outside world.
// Reads never fail; the CPU always gets a byte back for any address in
// 0x0000-0xFFFF. Writes are total as well, even where they end up discarded.
type AddressSpace interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
}

// Flag bit positions inside the F register. Only the top nibble is
// architecturally meaningful; the low nibble always reads as zero.
const (
	FlagZ byte = 1 << 7 // zero
	FlagN byte = 1 << 6 // subtract
	FlagH byte = 1 << 5 // half-carry (bit 3)
	FlagC byte = 1 << 4 // carry (bit 7)

	flagMask byte = 0xF0
)

// Flags is the CPU's flags register.
type Flags struct {
	// Value is the raw 8-bit register contents.
	Value byte
}

// Z reports the zero flag.
func (f *Flags) Z() bool { return f.Value&FlagZ != 0 }

// N reports the subtract flag.
func (f *Flags) N() bool { return f.Value&FlagN != 0 }

// H reports the half-carry flag.
func (f *Flags) H() bool { return f.Value&FlagH != 0 }

// C reports the carry flag.
func (f *Flags) C() bool { return f.Value&FlagC != 0 }

// SetZ sets the zero flag.
func (f *Flags) SetZ(v bool) { f.set(FlagZ, v) }

// SetN sets the subtract flag.
func (f *Flags) SetN(v bool) { f.set(FlagN, v) }

// SetH sets the half-carry flag.
func (f *Flags) SetH(v bool) { f.set(FlagH, v) }

// SetC sets the carry flag.
func (f *Flags) SetC(v bool) { f.set(FlagC, v) }

// set updates one flag bit, leaving the other flags untouched. The low
// nibble is forced to zero, as on hardware.
func (f *Flags) set(mask byte, v bool) {
	f.Value &= flagMask &^ mask
	if v {
		f.Value |= mask
	}
}

// String renders the flags as a "znhc" mask, with '-' for clear bits.
func (f *Flags) String() string {
	buf := []byte{'-', '-', '-', '-'}
	if f.Z() {
		buf[0] = 'z'
	}
	if f.N() {
		buf[1] = 'n'
	}
	if f.H() {
		buf[2] = 'h'
	}
	if f.C() {
		buf[3] = 'c'
	}
	return string(buf)
}

// State is the CPU's architectural state, which is what gets stepped.
type State struct {
	A byte
	F Flags
	B byte
	C byte
	D byte
	E byte
	H byte
	L byte

	PC uint16
	SP uint16

	// IME is the interrupt master enable flag.
	IME bool

	// Cycles is the total number of M-cycles that have passed during this
	// CPU's life.
	Cycles uint64

	// Mem is the address space the CPU is communicating with.
	Mem AddressSpace
}

// NewState creates a fresh CPU bound to the given address space.
// SP defaults to the top of WRAM to minimize conflicts with test setup;
// tests that care should set SP explicitly.
func NewState(mem AddressSpace) *State {
	return &State{
		SP:  0xE000,
		IME: true,
		Mem: mem,
	}
}

// AF returns the A and F registers as one big-endian 16-bit value.
func (s *State) AF() uint16 { return uint16(s.A)<<8 | uint16(s.F.Value) }

// BC returns the B and C registers as one big-endian 16-bit value.
func (s *State) BC() uint16 { return uint16(s.B)<<8 | uint16(s.C) }

// DE returns the D and E registers as one big-endian 16-bit value.
func (s *State) DE() uint16 { return uint16(s.D)<<8 | uint16(s.E) }

// HL returns the H and L registers as one big-endian 16-bit value.
func (s *State) HL() uint16 { return uint16(s.H)<<8 | uint16(s.L) }

// SetAF stores a 16-bit value into the A and F registers. The low nibble of
// F is forced to zero, exactly as `pop af` behaves on hardware.
func (s *State) SetAF(v uint16) {
	s.A = byte(v >> 8)
	s.F.Value = byte(v) & flagMask
}

// SetBC stores a 16-bit value into the B and C registers.
func (s *State) SetBC(v uint16) {
	s.B = byte(v >> 8)
	s.C = byte(v)
}

// SetDE stores a 16-bit value into the D and E registers.
func (s *State) SetDE(v uint16) {
	s.D = byte(v >> 8)
	s.E = byte(v)
}

// SetHL stores a 16-bit value into the H and L registers.
func (s *State) SetHL(v uint16) {
	s.H = byte(v >> 8)
	s.L = byte(v)
}

// reg8 reads an 8-bit register by encoding index (b, c, d, e, h, l, [hl], a).
// Index 6 goes through the address space at HL and charges one M-cycle.
func (s *State) reg8(id byte) byte {
	switch id & 7 {
	case 0:
		return s.B
	case 1:
		return s.C
	case 2:
		return s.D
	case 3:
		return s.E
	case 4:
		return s.H
	case 5:
		return s.L
	case 6:
		s.Cycles++
		return s.Read(s.HL())
	default:
		return s.A
	}
}

// setReg8 writes an 8-bit register by encoding index. Index 6 goes through
// the address space at HL and charges one M-cycle.
func (s *State) setReg8(id, value byte) {
	switch id & 7 {
	case 0:
		s.B = value
	case 1:
		s.C = value
	case 2:
		s.D = value
	case 3:
		s.E = value
	case 4:
		s.H = value
	case 5:
		s.L = value
	case 6:
		s.Cycles++
		s.Write(s.HL(), value)
	default:
		s.A = value
	}
}

// Read is a passthrough for the address space. It does not charge a cycle;
// the interpreter accounts for memory access cycles per instruction.
func (s *State) Read(address uint16) byte {
	return s.Mem.Read(address)
}

// Write is a passthrough for the address space.
func (s *State) Write(address uint16, value byte) {
	s.Mem.Write(address, value)
}

// readPC fetches the byte at PC, advancing PC and charging one M-cycle.
func (s *State) readPC() byte {
	value := s.Mem.Read(s.PC)
	s.PC++
	s.Cycles++
	return value
}

// push stores a 16-bit value on the stack in big-endian byte order (high
// byte at the lower address) and charges the 3 extra M-cycles of a push.
func (s *State) push(value uint16) {
	s.SP--
	s.Write(s.SP, byte(value))
	s.SP--
	s.Write(s.SP, byte(value>>8))
	s.Cycles += 3
}

// pop is the inverse of push, charging the 2 extra M-cycles of a pop.
func (s *State) pop() uint16 {
	result := uint16(s.Read(s.SP)) << 8
	s.SP++
	result |= uint16(s.Read(s.SP))
	s.SP++
	s.Cycles += 2
	return result
}

// String renders the register dump used in failure diagnostics.
func (s *State) String() string {
	ime := "dis"
	if s.IME {
		ime = "en"
	}
	return fmt.Sprintf(
		"a:  0x%02x\nbc: 0x%02x%02x\nde: 0x%02x%02x\nhl: 0x%02x%02x\nf: %s\npc: 0x%04x\nsp: 0x%04x\nInterrupts %sabled\nElapsed cycles: %d",
		s.A, s.B, s.C, s.D, s.E, s.H, s.L, &s.F, s.PC, s.SP, ime, s.Cycles,
	)
}
