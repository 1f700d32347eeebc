package cpu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gbkit/gbunit/cpu"
)

var _ = Describe("Step", func() {
	var (
		memory *ram
		s      *cpu.State
	)

	BeforeEach(func() {
		memory = &ram{}
		s = cpu.NewState(memory)
		s.PC = 0xC000
		s.SP = 0xD000
	})

	// load places a program at the current PC.
	load := func(program ...byte) {
		copy(memory[s.PC:], program)
	}

	Context("loads", func() {
		It("should execute ld r8, n8", func() {
			load(0x06, 0x42) // ld b, $42
			Expect(s.Step()).To(Equal(cpu.Continue))
			Expect(s.B).To(Equal(byte(0x42)))
			Expect(s.PC).To(Equal(uint16(0xC002)))
			Expect(s.Cycles).To(Equal(uint64(2)))
		})

		It("should execute ld r8, r8", func() {
			s.E = 0x99
			load(0x7B) // ld a, e
			s.Step()
			Expect(s.A).To(Equal(byte(0x99)))
			Expect(s.Cycles).To(Equal(uint64(1)))
		})

		It("should execute ld r8, [hl]", func() {
			s.SetHL(0xC800)
			memory[0xC800] = 0x5A
			load(0x4E) // ld c, [hl]
			s.Step()
			Expect(s.C).To(Equal(byte(0x5A)))
			Expect(s.Cycles).To(Equal(uint64(2)))
		})

		It("should execute ld r16, n16 little-endian", func() {
			load(0x11, 0xCD, 0xAB) // ld de, $ABCD
			s.Step()
			Expect(s.DE()).To(Equal(uint16(0xABCD)))
			Expect(s.Cycles).To(Equal(uint64(3)))
		})

		It("should post-increment through ld [hli], a", func() {
			s.SetHL(0xC900)
			s.A = 0x77
			load(0x22) // ld [hli], a
			s.Step()
			Expect(memory[0xC900]).To(Equal(byte(0x77)))
			Expect(s.HL()).To(Equal(uint16(0xC901)))
		})

		It("should post-decrement through ld a, [hld]", func() {
			s.SetHL(0xC900)
			memory[0xC900] = 0x33
			load(0x3A) // ld a, [hld]
			s.Step()
			Expect(s.A).To(Equal(byte(0x33)))
			Expect(s.HL()).To(Equal(uint16(0xC8FF)))
		})

		It("should address the high page through ldh", func() {
			s.A = 0x12
			load(0xE0, 0x80) // ldh [$80], a
			s.Step()
			Expect(memory[0xFF80]).To(Equal(byte(0x12)))
			Expect(s.Cycles).To(Equal(uint64(3)))

			s.C = 0x81
			memory[0xFF81] = 0x34
			load(0xF2) // ldh a, [c]
			s.Step()
			Expect(s.A).To(Equal(byte(0x34)))
			Expect(s.Cycles).To(Equal(uint64(5)))
		})

		It("should store SP little-endian through ld [n16], sp", func() {
			s.SP = 0xBEEF
			load(0x08, 0x00, 0xCA) // ld [$CA00], sp
			s.Step()
			Expect(memory[0xCA00]).To(Equal(byte(0xEF)))
			Expect(memory[0xCA01]).To(Equal(byte(0xBE)))
			Expect(s.Cycles).To(Equal(uint64(5)))
		})
	})

	Context("arithmetic", func() {
		It("should set half-carry on add", func() {
			s.A = 0x0F
			load(0xC6, 0x01) // add a, $01
			s.Step()
			Expect(s.A).To(Equal(byte(0x10)))
			Expect(s.F.H()).To(BeTrue())
			Expect(s.F.C()).To(BeFalse())
			Expect(s.F.Z()).To(BeFalse())
			Expect(s.F.N()).To(BeFalse())
		})

		It("should chain the carry through adc", func() {
			s.A = 0xFF
			s.B = 0x00
			load(0xC6, 0x01, 0x88) // add a, $01 ; adc a, b
			s.Step()
			Expect(s.F.C()).To(BeTrue())
			s.Step()
			Expect(s.A).To(Equal(byte(0x01)))
			Expect(s.F.C()).To(BeFalse())
		})

		It("should borrow through sub", func() {
			s.A = 0x00
			load(0xD6, 0x01) // sub a, $01
			s.Step()
			Expect(s.A).To(Equal(byte(0xFF)))
			Expect(s.F.C()).To(BeTrue())
			Expect(s.F.H()).To(BeTrue())
			Expect(s.F.N()).To(BeTrue())
		})

		It("should set the half-carry flag on and", func() {
			s.A = 0xF0
			load(0xE6, 0x0F) // and a, $0F
			s.Step()
			Expect(s.A).To(Equal(byte(0)))
			Expect(s.F.Z()).To(BeTrue())
			Expect(s.F.H()).To(BeTrue())
			Expect(s.F.C()).To(BeFalse())
		})

		It("should compare without modifying A", func() {
			s.A = 0x10
			load(0xFE, 0x10) // cp a, $10
			s.Step()
			Expect(s.A).To(Equal(byte(0x10)))
			Expect(s.F.Z()).To(BeTrue())
			Expect(s.F.N()).To(BeTrue())
		})

		It("should set half-carry on inc only at a low-nibble overflow", func() {
			s.B = 0x0F
			load(0x04, 0x04) // inc b ; inc b
			s.Step()
			Expect(s.B).To(Equal(byte(0x10)))
			Expect(s.F.H()).To(BeTrue())
			s.Step()
			Expect(s.F.H()).To(BeFalse())
		})

		It("should set half-carry on dec only at a low-nibble borrow", func() {
			s.B = 0x10
			load(0x05, 0x05) // dec b ; dec b
			s.Step()
			Expect(s.B).To(Equal(byte(0x0F)))
			Expect(s.F.H()).To(BeTrue())
			s.Step()
			Expect(s.F.H()).To(BeFalse())
		})

		It("should leave Z alone on add hl, r16", func() {
			s.F.SetZ(true)
			s.SetHL(0x0FFF)
			s.SetBC(0x0001)
			load(0x09) // add hl, bc
			s.Step()
			Expect(s.HL()).To(Equal(uint16(0x1000)))
			Expect(s.F.H()).To(BeTrue())
			Expect(s.F.Z()).To(BeTrue())
			Expect(s.Cycles).To(Equal(uint64(2)))
		})

		It("should adjust BCD addition through daa", func() {
			s.A = 0x19
			load(0xC6, 0x28, 0x27) // add a, $28 ; daa
			s.Step()
			Expect(s.A).To(Equal(byte(0x41)))
			s.Step()
			Expect(s.A).To(Equal(byte(0x47)))
			Expect(s.F.H()).To(BeFalse())
		})

		It("should complement A through cpl", func() {
			s.A = 0x5A
			load(0x2F) // cpl
			s.Step()
			Expect(s.A).To(Equal(byte(0xA5)))
			Expect(s.F.N()).To(BeTrue())
			Expect(s.F.H()).To(BeTrue())
		})

		It("should set and toggle the carry through scf and ccf", func() {
			load(0x37, 0x3F) // scf ; ccf
			s.Step()
			Expect(s.F.C()).To(BeTrue())
			s.Step()
			Expect(s.F.C()).To(BeFalse())
			Expect(s.F.N()).To(BeFalse())
			Expect(s.F.H()).To(BeFalse())
		})

		It("should offset SP by a negative immediate", func() {
			s.SP = 0xD000
			load(0xE8, 0xFE) // add sp, -2
			s.Step()
			Expect(s.SP).To(Equal(uint16(0xCFFE)))
			Expect(s.Cycles).To(Equal(uint64(4)))
		})

		It("should compute flags on the unsigned offset byte of ld hl, sp+e8", func() {
			s.SP = 0x000F
			load(0xF8, 0x01) // ld hl, sp+1
			s.Step()
			Expect(s.HL()).To(Equal(uint16(0x0010)))
			Expect(s.F.H()).To(BeTrue())
			Expect(s.F.Z()).To(BeFalse())
			Expect(s.Cycles).To(Equal(uint64(3)))
		})
	})

	Context("stack", func() {
		It("should push the high byte at the lower address", func() {
			s.SetBC(0x1234)
			load(0xC5) // push bc
			s.Step()
			Expect(s.SP).To(Equal(uint16(0xCFFE)))
			Expect(memory[0xCFFE]).To(Equal(byte(0x12)))
			Expect(memory[0xCFFF]).To(Equal(byte(0x34)))
			Expect(s.Cycles).To(Equal(uint64(4)))
		})

		It("should round-trip a value through push and pop", func() {
			s.SetDE(0xBEEF)
			load(0xD5, 0xE1) // push de ; pop hl
			s.Step()
			s.Step()
			Expect(s.HL()).To(Equal(uint16(0xBEEF)))
			Expect(s.SP).To(Equal(uint16(0xD000)))
			Expect(s.Cycles).To(Equal(uint64(7)))
		})

		It("should mask the flag low nibble on pop af", func() {
			memory[0xCFFE] = 0x12
			memory[0xCFFF] = 0xFF
			s.SP = 0xCFFE
			load(0xF1) // pop af
			s.Step()
			Expect(s.A).To(Equal(byte(0x12)))
			Expect(s.F.Value).To(Equal(byte(0xF0)))
		})
	})

	Context("control flow", func() {
		It("should take a backward relative jump", func() {
			load(0x18, 0xFE) // jr -2 (self)
			s.Step()
			Expect(s.PC).To(Equal(uint16(0xC000)))
			Expect(s.Cycles).To(Equal(uint64(3)))
		})

		It("should fall through an unmet jr condition at a lower cost", func() {
			load(0x20, 0x10) // jr nz, +16
			s.F.SetZ(true)
			s.Step()
			Expect(s.PC).To(Equal(uint16(0xC002)))
			Expect(s.Cycles).To(Equal(uint64(2)))
		})

		It("should jump absolute", func() {
			load(0xC3, 0x00, 0xC8) // jp $C800
			s.Step()
			Expect(s.PC).To(Equal(uint16(0xC800)))
			Expect(s.Cycles).To(Equal(uint64(4)))
		})

		It("should jump to HL in one cycle", func() {
			s.SetHL(0xC123)
			load(0xE9) // jp hl
			s.Step()
			Expect(s.PC).To(Equal(uint16(0xC123)))
			Expect(s.Cycles).To(Equal(uint64(1)))
		})

		It("should call and return", func() {
			load(0xCD, 0x00, 0xC8) // call $C800
			memory[0xC800] = 0xC9  // ret
			s.Step()
			Expect(s.PC).To(Equal(uint16(0xC800)))
			Expect(s.SP).To(Equal(uint16(0xCFFE)))
			Expect(s.Cycles).To(Equal(uint64(6)))
			s.Step()
			Expect(s.PC).To(Equal(uint16(0xC003)))
			Expect(s.SP).To(Equal(uint16(0xD000)))
			Expect(s.Cycles).To(Equal(uint64(10)))
		})

		It("should charge the not-taken cost on an unmet ret condition", func() {
			load(0xD0) // ret nc
			s.F.SetC(true)
			s.Step()
			Expect(s.PC).To(Equal(uint16(0xC001)))
			Expect(s.Cycles).To(Equal(uint64(2)))
		})

		It("should vector rst to op & $38", func() {
			load(0xEF) // rst $28
			s.Step()
			Expect(s.PC).To(Equal(uint16(0x0028)))
			Expect(s.SP).To(Equal(uint16(0xCFFE)))
			Expect(s.Cycles).To(Equal(uint64(4)))
		})

		It("should enable interrupts through reti", func() {
			s.IME = false
			memory[0xCFFE] = 0xC1
			memory[0xCFFF] = 0x23
			s.SP = 0xCFFE
			load(0xD9) // reti
			s.Step()
			Expect(s.PC).To(Equal(uint16(0xC123)))
			Expect(s.IME).To(BeTrue())
		})

		It("should toggle IME through di and ei", func() {
			load(0xF3, 0xFB) // di ; ei
			s.Step()
			Expect(s.IME).To(BeFalse())
			s.Step()
			Expect(s.IME).To(BeTrue())
		})
	})

	Context("CB-prefixed instructions", func() {
		It("should test a bit without clobbering the carry", func() {
			s.A = 0x00
			s.F.SetC(true)
			load(0xCB, 0x7F) // bit 7, a
			s.Step()
			Expect(s.F.Z()).To(BeTrue())
			Expect(s.F.N()).To(BeFalse())
			Expect(s.F.H()).To(BeTrue())
			Expect(s.F.C()).To(BeTrue())
			Expect(s.Cycles).To(Equal(uint64(2)))
		})

		It("should clear Z when the tested bit is set", func() {
			s.A = 0x80
			load(0xCB, 0x7F) // bit 7, a
			s.Step()
			Expect(s.F.Z()).To(BeFalse())
		})

		It("should set and reset bits", func() {
			s.B = 0x00
			load(0xCB, 0xF8, 0xCB, 0xB8) // set 7, b ; res 7, b
			s.Step()
			Expect(s.B).To(Equal(byte(0x80)))
			s.Step()
			Expect(s.B).To(Equal(byte(0x00)))
		})

		It("should swap nibbles and clear the other flags", func() {
			s.A = 0xF1
			s.F.SetC(true)
			load(0xCB, 0x37) // swap a
			s.Step()
			Expect(s.A).To(Equal(byte(0x1F)))
			Expect(s.F.C()).To(BeFalse())
			Expect(s.F.Z()).To(BeFalse())
		})

		It("should shift arithmetically through sra", func() {
			s.A = 0x81
			load(0xCB, 0x2F) // sra a
			s.Step()
			Expect(s.A).To(Equal(byte(0xC0)))
			Expect(s.F.C()).To(BeTrue())
		})

		It("should operate on [hl] with a read-modify-write", func() {
			s.SetHL(0xC800)
			memory[0xC800] = 0x01
			load(0xCB, 0x06) // rlc [hl]
			s.Step()
			Expect(memory[0xC800]).To(Equal(byte(0x02)))
			Expect(s.Cycles).To(Equal(uint64(4)))
		})

		It("should set Z through the generic rotate but not the A short forms", func() {
			s.A = 0x00
			load(0x07, 0xCB, 0x07) // rlca ; rlc a
			s.Step()
			Expect(s.F.Z()).To(BeFalse())
			s.Step()
			Expect(s.F.Z()).To(BeTrue())
		})
	})

	Context("protocol encodings", func() {
		It("should report ld b, b as a breakpoint", func() {
			load(0x40)
			Expect(s.Step()).To(Equal(cpu.Break))
			Expect(s.PC).To(Equal(uint16(0xC001)))
		})

		It("should report ld d, d as a debug marker", func() {
			load(0x52)
			Expect(s.Step()).To(Equal(cpu.Debug))
		})

		It("should report halt", func() {
			load(0x76)
			Expect(s.Step()).To(Equal(cpu.Halt))
			Expect(s.Cycles).To(Equal(uint64(1)))
		})

		It("should consume the stop padding byte", func() {
			load(0x10, 0x00)
			Expect(s.Step()).To(Equal(cpu.Stop))
			Expect(s.PC).To(Equal(uint16(0xC002)))
			Expect(s.Cycles).To(Equal(uint64(2)))
		})

		It("should not treat other self-loads specially", func() {
			s.C = 0x42
			load(0x49) // ld c, c
			Expect(s.Step()).To(Equal(cpu.Continue))
			Expect(s.C).To(Equal(byte(0x42)))
		})

		It("should report undefined encodings", func() {
			for _, op := range []byte{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD} {
				s.PC = 0xC000
				memory[0xC000] = op
				Expect(s.Step()).To(Equal(cpu.InvalidOpcode), "opcode %#02x", op)
			}
		})
	})

	It("should wrap the program counter", func() {
		s.PC = 0xFFFF
		memory[0xFFFF] = 0x3E // ld a, n8
		memory[0x0000] = 0x42
		s.Step()
		Expect(s.A).To(Equal(byte(0x42)))
		Expect(s.PC).To(Equal(uint16(0x0001)))
	})
})
