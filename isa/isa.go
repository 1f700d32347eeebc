// Package isa provides SM83 opcode metadata: mnemonics, the
// illegal-encoding set, and the documented M-cycle cost tables.
//
// The interpreter does its own decoding; this package exists for
// diagnostics (naming the instruction at a breakpoint or crash site) and
// for cross-checking the interpreter's cycle accounting.
package isa

import "fmt"

// reg8Names are the 8-bit operand names in encoding-index order.
var reg8Names = [8]string{"b", "c", "d", "e", "h", "l", "[hl]", "a"}

// aluNames are the 8-way ALU family names in encoding-index order.
var aluNames = [8]string{"add", "adc", "sub", "sbc", "and", "xor", "or", "cp"}

// shiftNames are the CB-prefixed shift/rotate family names.
var shiftNames = [8]string{"rlc", "rrc", "rl", "rr", "sla", "sra", "swap", "srl"}

// condNames are the condition codes in encoding-index order.
var condNames = [4]string{"nz", "z", "nc", "c"}

// reg16Names are the 16-bit register pair names used by ld/inc/dec/add.
var reg16Names = [4]string{"bc", "de", "hl", "sp"}

// stackNames are the 16-bit register pair names used by push/pop.
var stackNames = [4]string{"bc", "de", "hl", "af"}

// Illegal reports whether op has no defined behavior on hardware.
func Illegal(op byte) bool {
	switch op {
	case 0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD:
		return true
	}
	return false
}

// Mnemonic names a base-page opcode. Operand bytes are rendered
// generically (n8, n16, e8) since this is metadata, not a disassembler.
// Illegal encodings are named "db $XX".
func Mnemonic(op byte) string {
	if Illegal(op) {
		return fmt.Sprintf("db $%02X", op)
	}

	switch {
	case op == 0x76:
		return "halt"
	case op >= 0x40 && op < 0x80:
		return fmt.Sprintf("ld %s, %s", reg8Names[op>>3&7], reg8Names[op&7])
	case op >= 0x80 && op < 0xC0:
		return fmt.Sprintf("%s a, %s", aluNames[op>>3&7], reg8Names[op&7])
	case op&0xC7 == 0xC6:
		return fmt.Sprintf("%s a, n8", aluNames[op>>3&7])
	case op&0xC7 == 0xC7:
		return fmt.Sprintf("rst $%02X", op&0x38)
	case op&0xC7 == 0x04:
		return "inc " + reg8Names[op>>3&7]
	case op&0xC7 == 0x05:
		return "dec " + reg8Names[op>>3&7]
	case op&0xC7 == 0x06:
		return fmt.Sprintf("ld %s, n8", reg8Names[op>>3&7])
	case op&0xCF == 0x01:
		return fmt.Sprintf("ld %s, n16", reg16Names[op>>4&3])
	case op&0xCF == 0x03:
		return "inc " + reg16Names[op>>4&3]
	case op&0xCF == 0x0B:
		return "dec " + reg16Names[op>>4&3]
	case op&0xCF == 0x09:
		return "add hl, " + reg16Names[op>>4&3]
	case op&0xCF == 0xC1:
		return "pop " + stackNames[op>>4&3]
	case op&0xCF == 0xC5:
		return "push " + stackNames[op>>4&3]
	case op&0xE7 == 0x20:
		return fmt.Sprintf("jr %s, e8", condNames[op>>3&3])
	case op&0xE7 == 0xC2:
		return fmt.Sprintf("jp %s, n16", condNames[op>>3&3])
	case op&0xE7 == 0xC4:
		return fmt.Sprintf("call %s, n16", condNames[op>>3&3])
	case op&0xE7 == 0xC0:
		return "ret " + condNames[op>>3&3]
	}

	switch op {
	case 0x00:
		return "nop"
	case 0x02:
		return "ld [bc], a"
	case 0x07:
		return "rlca"
	case 0x08:
		return "ld [n16], sp"
	case 0x0A:
		return "ld a, [bc]"
	case 0x0F:
		return "rrca"
	case 0x10:
		return "stop"
	case 0x12:
		return "ld [de], a"
	case 0x17:
		return "rla"
	case 0x18:
		return "jr e8"
	case 0x1A:
		return "ld a, [de]"
	case 0x1F:
		return "rra"
	case 0x22:
		return "ld [hli], a"
	case 0x27:
		return "daa"
	case 0x2A:
		return "ld a, [hli]"
	case 0x2F:
		return "cpl"
	case 0x32:
		return "ld [hld], a"
	case 0x37:
		return "scf"
	case 0x3A:
		return "ld a, [hld]"
	case 0x3F:
		return "ccf"
	case 0xC3:
		return "jp n16"
	case 0xC9:
		return "ret"
	case 0xCB:
		return "prefix"
	case 0xCD:
		return "call n16"
	case 0xD9:
		return "reti"
	case 0xE0:
		return "ldh [n8], a"
	case 0xE2:
		return "ldh [c], a"
	case 0xE8:
		return "add sp, e8"
	case 0xE9:
		return "jp hl"
	case 0xEA:
		return "ld [n16], a"
	case 0xF0:
		return "ldh a, [n8]"
	case 0xF2:
		return "ldh a, [c]"
	case 0xF3:
		return "di"
	case 0xF8:
		return "ld hl, sp+e8"
	case 0xF9:
		return "ld sp, hl"
	case 0xFA:
		return "ld a, [n16]"
	case 0xFB:
		return "ei"
	}

	// Unreachable: every non-illegal encoding is covered above.
	return fmt.Sprintf("db $%02X", op)
}

// MnemonicCB names a 0xCB-prefixed opcode.
func MnemonicCB(op byte) string {
	reg := reg8Names[op&7]
	switch {
	case op < 0x40:
		return fmt.Sprintf("%s %s", shiftNames[op>>3&7], reg)
	case op < 0x80:
		return fmt.Sprintf("bit %d, %s", op>>3&7, reg)
	case op < 0xC0:
		return fmt.Sprintf("res %d, %s", op>>3&7, reg)
	default:
		return fmt.Sprintf("set %d, %s", op>>3&7, reg)
	}
}

// cycles holds the documented M-cycle cost of each base-page opcode with
// conditional branches not taken. Illegal encodings and the 0xCB prefix
// hold zero.
var cycles = [256]uint8{
	1, 3, 2, 2, 1, 1, 2, 1, 5, 2, 2, 2, 1, 1, 2, 1, // 0x00
	2, 3, 2, 2, 1, 1, 2, 1, 3, 2, 2, 2, 1, 1, 2, 1, // 0x10
	2, 3, 2, 2, 1, 1, 2, 1, 2, 2, 2, 2, 1, 1, 2, 1, // 0x20
	2, 3, 2, 2, 3, 3, 3, 1, 2, 2, 2, 2, 1, 1, 2, 1, // 0x30
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1, // 0x40
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1, // 0x50
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1, // 0x60
	2, 2, 2, 2, 2, 2, 1, 2, 1, 1, 1, 1, 1, 1, 2, 1, // 0x70
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1, // 0x80
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1, // 0x90
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1, // 0xA0
	1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1, // 0xB0
	2, 3, 3, 4, 3, 4, 2, 4, 2, 4, 3, 0, 3, 6, 2, 4, // 0xC0
	2, 3, 3, 0, 3, 4, 2, 4, 2, 4, 3, 0, 3, 0, 2, 4, // 0xD0
	3, 3, 2, 0, 0, 4, 2, 4, 4, 1, 4, 0, 0, 0, 2, 4, // 0xE0
	3, 3, 2, 1, 0, 4, 2, 4, 3, 2, 4, 1, 0, 0, 2, 4, // 0xF0
}

// Cycles returns the M-cycle cost of a base-page opcode. For conditional
// jumps, calls and returns, notTaken is the cheaper fall-through cost and
// taken includes the control-transfer overhead; the two are equal for every
// other instruction. The 0xCB prefix and illegal encodings report zero.
func Cycles(op byte) (notTaken, taken uint64) {
	notTaken = uint64(cycles[op])
	taken = notTaken
	switch {
	case op&0xE7 == 0x20: // jr cc
		taken++
	case op&0xE7 == 0xC2: // jp cc
		taken++
	case op&0xE7 == 0xC4: // call cc
		taken += 3
	case op&0xE7 == 0xC0: // ret cc
		taken += 3
	}
	return notTaken, taken
}

// CyclesCB returns the M-cycle cost of a 0xCB-prefixed opcode, including
// the prefix fetch.
func CyclesCB(op byte) uint64 {
	if op&7 != 6 {
		return 2
	}
	// [hl] operand: bit only reads, the rest read and write back.
	if op >= 0x40 && op < 0x80 {
		return 3
	}
	return 4
}
