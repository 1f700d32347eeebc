package cpu

// Outcome classifies what a single Step produced.
type Outcome uint8

// Step outcomes. Break, Debug, Halt and Stop are signals, not errors; the
// caller decides what each means for the run.
const (
	// Continue means nothing noteworthy happened.
	Continue Outcome = iota
	// Break means a `ld b, b` instruction was executed.
	Break
	// Debug means a `ld d, d` instruction was executed.
	Debug
	// Halt means a `halt` instruction was executed.
	Halt
	// Stop means a `stop` instruction was executed.
	Stop
	// InvalidOpcode means an opcode with no defined behavior was fetched.
	InvalidOpcode
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Break:
		return "break"
	case Debug:
		return "debug"
	case Halt:
		return "halt"
	case Stop:
		return "stop"
	case InvalidOpcode:
		return "invalid opcode"
	default:
		return "unknown"
	}
}

// Step executes one instruction, updating registers, memory and the elapsed
// M-cycle count. Cycle costs follow the documented SM83 timing table: one
// cycle per memory access plus the internal cycles each instruction takes.
func (s *State) Step() Outcome {
	op := s.readPC()
	switch op {
	case 0x00: // nop

	case 0x01: // ld bc, n16
		s.C = s.readPC()
		s.B = s.readPC()
	case 0x02: // ld [bc], a
		s.Write(s.BC(), s.A)
		s.Cycles++
	case 0x03: // inc bc
		s.SetBC(s.BC() + 1)
		s.Cycles++
	case 0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x34, 0x3C: // inc r8
		s.incReg8(op >> 3)
	case 0x05, 0x0D, 0x15, 0x1D, 0x25, 0x2D, 0x35, 0x3D: // dec r8
		s.decReg8(op >> 3)
	case 0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x36, 0x3E: // ld r8, n8
		value := s.readPC()
		s.setReg8(op>>3, value)
	case 0x07: // rlca
		s.rlc(7)
		s.F.SetZ(false)
	case 0x08: // ld [n16], sp
		pointer := s.readImm16()
		s.Write(pointer, byte(s.SP))
		s.Write(pointer+1, byte(s.SP>>8))
		s.Cycles += 2
	case 0x09: // add hl, bc
		s.addHL(s.BC())
	case 0x0A: // ld a, [bc]
		s.A = s.Read(s.BC())
		s.Cycles++
	case 0x0B: // dec bc
		s.SetBC(s.BC() - 1)
		s.Cycles++
	case 0x0F: // rrca
		s.rrc(7)
		s.F.SetZ(false)

	case 0x10: // stop
		s.readPC() // padding byte
		return Stop
	case 0x11: // ld de, n16
		s.E = s.readPC()
		s.D = s.readPC()
	case 0x12: // ld [de], a
		s.Write(s.DE(), s.A)
		s.Cycles++
	case 0x13: // inc de
		s.SetDE(s.DE() + 1)
		s.Cycles++
	case 0x17: // rla
		s.rl(7)
		s.F.SetZ(false)
	case 0x18: // jr e8
		s.jrIf(true)
	case 0x19: // add hl, de
		s.addHL(s.DE())
	case 0x1A: // ld a, [de]
		s.A = s.Read(s.DE())
		s.Cycles++
	case 0x1B: // dec de
		s.SetDE(s.DE() - 1)
		s.Cycles++
	case 0x1F: // rra
		s.rr(7)
		s.F.SetZ(false)

	case 0x20: // jr nz, e8
		s.jrIf(!s.F.Z())
	case 0x21: // ld hl, n16
		s.L = s.readPC()
		s.H = s.readPC()
	case 0x22: // ld [hli], a
		s.Write(s.HL(), s.A)
		s.SetHL(s.HL() + 1)
		s.Cycles++
	case 0x23: // inc hl
		s.SetHL(s.HL() + 1)
		s.Cycles++
	case 0x27: // daa
		s.daa()
	case 0x28: // jr z, e8
		s.jrIf(s.F.Z())
	case 0x29: // add hl, hl
		s.addHL(s.HL())
	case 0x2A: // ld a, [hli]
		s.A = s.Read(s.HL())
		s.SetHL(s.HL() + 1)
		s.Cycles++
	case 0x2B: // dec hl
		s.SetHL(s.HL() - 1)
		s.Cycles++
	case 0x2F: // cpl
		s.A = ^s.A
		s.F.SetN(true)
		s.F.SetH(true)

	case 0x30: // jr nc, e8
		s.jrIf(!s.F.C())
	case 0x31: // ld sp, n16
		s.SP = s.readImm16()
	case 0x32: // ld [hld], a
		s.Write(s.HL(), s.A)
		s.SetHL(s.HL() - 1)
		s.Cycles++
	case 0x33: // inc sp
		s.SP++
		s.Cycles++
	case 0x37: // scf
		s.F.SetN(false)
		s.F.SetH(false)
		s.F.SetC(true)
	case 0x38: // jr c, e8
		s.jrIf(s.F.C())
	case 0x39: // add hl, sp
		s.addHL(s.SP)
	case 0x3A: // ld a, [hld]
		s.A = s.Read(s.HL())
		s.SetHL(s.HL() - 1)
		s.Cycles++
	case 0x3B: // dec sp
		s.SP--
		s.Cycles++
	case 0x3F: // ccf
		s.F.SetN(false)
		s.F.SetH(false)
		s.F.SetC(!s.F.C())

	case 0x40: // ld b, b is a soft breakpoint
		return Break
	case 0x52: // ld d, d is a debug marker
		return Debug
	case 0x76: // ld [hl], [hl] is actually halt
		return Halt

	case 0xC0: // ret nz
		s.retIf(!s.F.Z())
	case 0xC1: // pop bc
		s.SetBC(s.pop())
	case 0xC2: // jp nz, n16
		s.jpIf(!s.F.Z())
	case 0xC3: // jp n16
		s.jpIf(true)
	case 0xC4: // call nz, n16
		s.callIf(!s.F.Z())
	case 0xC5: // push bc
		s.push(s.BC())
	case 0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF: // rst
		s.push(s.PC)
		s.PC = uint16(op & 0x38)
	case 0xC8: // ret z
		s.retIf(s.F.Z())
	case 0xC9: // ret
		s.PC = s.pop()
		s.Cycles++
	case 0xCA: // jp z, n16
		s.jpIf(s.F.Z())
	case 0xCB: // prefix byte
		s.stepCB()
	case 0xCC: // call z, n16
		s.callIf(s.F.Z())
	case 0xCD: // call n16
		s.callIf(true)

	case 0xD0: // ret nc
		s.retIf(!s.F.C())
	case 0xD1: // pop de
		s.SetDE(s.pop())
	case 0xD2: // jp nc, n16
		s.jpIf(!s.F.C())
	case 0xD4: // call nc, n16
		s.callIf(!s.F.C())
	case 0xD5: // push de
		s.push(s.DE())
	case 0xD8: // ret c
		s.retIf(s.F.C())
	case 0xD9: // reti
		s.PC = s.pop()
		s.Cycles++
		s.IME = true
	case 0xDA: // jp c, n16
		s.jpIf(s.F.C())
	case 0xDC: // call c, n16
		s.callIf(s.F.C())

	case 0xE0: // ldh [n8], a
		s.Write(0xFF00|uint16(s.readPC()), s.A)
		s.Cycles++
	case 0xE1: // pop hl
		s.SetHL(s.pop())
	case 0xE2: // ldh [c], a
		s.Write(0xFF00|uint16(s.C), s.A)
		s.Cycles++
	case 0xE5: // push hl
		s.push(s.HL())
	case 0xE8: // add sp, e8
		s.SP = s.offsetSP(s.readPC())
		s.Cycles += 2
	case 0xE9: // jp hl
		s.PC = s.HL()
	case 0xEA: // ld [n16], a
		s.Write(s.readImm16(), s.A)
		s.Cycles++

	case 0xF0: // ldh a, [n8]
		s.A = s.Read(0xFF00 | uint16(s.readPC()))
		s.Cycles++
	case 0xF1: // pop af
		s.SetAF(s.pop())
	case 0xF2: // ldh a, [c]
		s.A = s.Read(0xFF00 | uint16(s.C))
		s.Cycles++
	case 0xF3: // di
		s.IME = false
	case 0xF5: // push af
		s.push(s.AF())
	case 0xF8: // ld hl, sp+e8
		s.SetHL(s.offsetSP(s.readPC()))
		s.Cycles++
	case 0xF9: // ld sp, hl
		s.SP = s.HL()
		s.Cycles++
	case 0xFA: // ld a, [n16]
		s.A = s.Read(s.readImm16())
		s.Cycles++
	case 0xFB: // ei
		s.IME = true

	default:
		switch {
		case op >= 0x40 && op < 0x80: // ld r8, r8 (self-loads handled above)
			s.setReg8(op>>3, s.reg8(op))
		case op >= 0x80 && op < 0xC0: // add/adc/sub/sbc/and/xor/or/cp a, r8
			s.aluOp(op>>3, s.reg8(op))
		case op&0xC7 == 0xC6: // same ALU family with an immediate operand
			s.aluOp(op>>3, s.readPC())
		default:
			// 0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB-0xED, 0xF4, 0xFC, 0xFD
			return InvalidOpcode
		}
	}

	return Continue
}

// stepCB fetches and executes one 0xCB-prefixed instruction.
func (s *State) stepCB() {
	op := s.readPC()
	switch {
	case op < 0x08: // rlc r8
		s.rlc(op)
	case op < 0x10: // rrc r8
		s.rrc(op)
	case op < 0x18: // rl r8
		s.rl(op)
	case op < 0x20: // rr r8
		s.rr(op)
	case op < 0x28: // sla r8
		s.sla(op)
	case op < 0x30: // sra r8
		s.sra(op)
	case op < 0x38: // swap r8
		s.swap(op)
	case op < 0x40: // srl r8
		s.srl(op)
	case op < 0x80: // bit n, r8
		value := s.reg8(op) & (1 << (op >> 3 & 7))
		s.F.SetZ(value == 0)
		s.F.SetN(false)
		s.F.SetH(true)
	case op < 0xC0: // res n, r8
		s.setReg8(op, s.reg8(op)&^(1<<(op>>3&7)))
	default: // set n, r8
		s.setReg8(op, s.reg8(op)|1<<(op>>3&7))
	}
}

// readImm16 fetches a little-endian 16-bit immediate from the instruction
// stream.
func (s *State) readImm16() uint16 {
	lo := uint16(s.readPC())
	hi := uint16(s.readPC())
	return hi<<8 | lo
}

// aluOp dispatches the 8-way ALU family by its encoding index
// (add, adc, sub, sbc, and, xor, or, cp).
func (s *State) aluOp(id, operand byte) {
	switch id & 7 {
	case 0:
		s.add(operand, false)
	case 1:
		s.add(operand, s.F.C())
	case 2:
		s.sub(operand, false)
	case 3:
		s.sub(operand, s.F.C())
	case 4:
		s.and(operand)
	case 5:
		s.xor(operand)
	case 6:
		s.or(operand)
	default:
		s.cp(operand)
	}
}

func (s *State) add(operand byte, carryIn bool) {
	var carry byte
	if carryIn {
		carry = 1
	}
	sum := uint16(s.A) + uint16(operand) + uint16(carry)
	s.F.SetH((s.A&0xF)+(operand&0xF)+carry > 0xF)
	s.F.SetC(sum > 0xFF)
	s.F.SetZ(byte(sum) == 0)
	s.F.SetN(false)
	s.A = byte(sum)
}

func (s *State) sub(operand byte, carryIn bool) {
	var carry byte
	if carryIn {
		carry = 1
	}
	diff := int(s.A) - int(operand) - int(carry)
	s.F.SetH(s.A&0xF < operand&0xF+carry)
	s.F.SetC(diff < 0)
	s.F.SetZ(byte(diff) == 0)
	s.F.SetN(true)
	s.A = byte(diff)
}

func (s *State) and(operand byte) {
	s.A &= operand
	s.F.SetZ(s.A == 0)
	s.F.SetN(false)
	s.F.SetH(true) // No, this is not a typo.
	s.F.SetC(false)
}

func (s *State) xor(operand byte) {
	s.A ^= operand
	s.F.SetZ(s.A == 0)
	s.F.SetN(false)
	s.F.SetH(false)
	s.F.SetC(false)
}

func (s *State) or(operand byte) {
	s.A |= operand
	s.F.SetZ(s.A == 0)
	s.F.SetN(false)
	s.F.SetH(false)
	s.F.SetC(false)
}

func (s *State) cp(operand byte) {
	diff := int(s.A) - int(operand)
	s.F.SetH(s.A&0xF < operand&0xF)
	s.F.SetC(diff < 0)
	s.F.SetZ(byte(diff) == 0)
	s.F.SetN(true)
}

func (s *State) incReg8(id byte) {
	old := s.reg8(id)
	value := old + 1
	s.setReg8(id, value)
	s.F.SetZ(value == 0)
	s.F.SetN(false)
	s.F.SetH(old&0xF == 0xF)
}

func (s *State) decReg8(id byte) {
	old := s.reg8(id)
	value := old - 1
	s.setReg8(id, value)
	s.F.SetZ(value == 0)
	s.F.SetN(true)
	s.F.SetH(old&0xF == 0)
}

// rlc rotates left; the generic form sets Z normally. The rlca short form
// clears Z at the call site.
func (s *State) rlc(id byte) {
	value := s.reg8(id)
	value = value<<1 | value>>7
	s.setReg8(id, value)
	s.F.SetZ(value == 0)
	s.F.SetC(value&0x01 != 0)
	s.F.SetN(false)
	s.F.SetH(false)
}

func (s *State) rl(id byte) {
	value := s.reg8(id)
	carry := value&0x80 != 0
	value <<= 1
	if s.F.C() {
		value |= 0x01
	}
	s.setReg8(id, value)
	s.F.SetZ(value == 0)
	s.F.SetC(carry)
	s.F.SetN(false)
	s.F.SetH(false)
}

func (s *State) rrc(id byte) {
	value := s.reg8(id)
	value = value>>1 | value<<7
	s.setReg8(id, value)
	s.F.SetZ(value == 0)
	s.F.SetC(value&0x80 != 0)
	s.F.SetN(false)
	s.F.SetH(false)
}

func (s *State) rr(id byte) {
	value := s.reg8(id)
	carry := value&0x01 != 0
	value >>= 1
	if s.F.C() {
		value |= 0x80
	}
	s.setReg8(id, value)
	s.F.SetZ(value == 0)
	s.F.SetC(carry)
	s.F.SetN(false)
	s.F.SetH(false)
}

func (s *State) sla(id byte) {
	value := s.reg8(id)
	s.F.SetC(value&0x80 != 0)
	value <<= 1
	s.setReg8(id, value)
	s.F.SetZ(value == 0)
	s.F.SetN(false)
	s.F.SetH(false)
}

func (s *State) sra(id byte) {
	value := s.reg8(id)
	s.F.SetC(value&0x01 != 0)
	value = value>>1 | value&0x80
	s.setReg8(id, value)
	s.F.SetZ(value == 0)
	s.F.SetN(false)
	s.F.SetH(false)
}

func (s *State) swap(id byte) {
	value := s.reg8(id)
	value = value>>4 | value<<4
	s.setReg8(id, value)
	s.F.Value = 0
	s.F.SetZ(value == 0)
}

func (s *State) srl(id byte) {
	value := s.reg8(id)
	s.F.SetC(value&0x01 != 0)
	value >>= 1
	s.setReg8(id, value)
	s.F.SetZ(value == 0)
	s.F.SetN(false)
	s.F.SetH(false)
}

// addHL implements `add hl, r16`: half-carry out of bit 11, carry out of
// bit 15, Z untouched.
func (s *State) addHL(operand uint16) {
	hl := s.HL()
	sum := uint32(hl) + uint32(operand)
	s.F.SetH(hl&0xFFF+operand&0xFFF > 0xFFF)
	s.F.SetC(sum > 0xFFFF)
	s.F.SetN(false)
	s.SetHL(uint16(sum))
	s.Cycles++
}

// offsetSP computes SP plus a signed 8-bit offset for `add sp, e8` and
// `ld hl, sp+e8`. Half-carry comes out of bit 3 and carry out of bit 7,
// both computed on the unsigned offset byte.
func (s *State) offsetSP(offset byte) uint16 {
	s.F.SetH(s.SP&0xF+uint16(offset&0xF) > 0xF)
	s.F.SetC(s.SP&0xFF+uint16(offset) > 0xFF)
	s.F.SetZ(false)
	s.F.SetN(false)
	return s.SP + uint16(int16(int8(offset)))
}

// daa adjusts A back into binary-coded decimal after an addition or
// subtraction.
func (s *State) daa() {
	if !s.F.N() {
		if s.A >= 0x9A {
			s.F.SetC(true)
		}
		if s.A&0xF >= 0xA {
			s.F.SetH(true)
		}
	}
	var adjust byte
	if s.F.H() {
		adjust |= 0x06
	}
	if s.F.C() {
		adjust |= 0x60
	}
	if s.F.N() {
		s.A -= adjust
	} else {
		s.A += adjust
	}
	s.F.SetZ(s.A == 0)
	s.F.SetH(false)
}

// jrIf implements relative jumps; the branch not taken skips the extra
// internal cycle since no control transfer occurs.
func (s *State) jrIf(condition bool) {
	offset := s.readPC()
	if condition {
		s.PC += uint16(int16(int8(offset)))
		s.Cycles++
	}
}

// jpIf implements absolute jumps. The target bytes are fetched either way.
func (s *State) jpIf(condition bool) {
	target := s.readImm16()
	if condition {
		s.PC = target
		s.Cycles++
	}
}

// callIf implements calls. The return address pushed is the address of the
// following instruction.
func (s *State) callIf(condition bool) {
	target := s.readImm16()
	if condition {
		s.push(s.PC)
		s.PC = target
	}
}

// retIf implements conditional returns. The condition check costs one
// internal cycle on top of what `ret` itself takes.
func (s *State) retIf(condition bool) {
	s.Cycles++
	if condition {
		s.PC = s.pop()
		s.Cycles++
	}
}
