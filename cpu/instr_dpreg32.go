// This file is part of thumbm.
//
// thumbm is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// thumbm is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with thumbm.  If not, see <https://www.gnu.org/licenses/>.

package cpu

import "fmt"

// dpRegShift is the 32-bit data-processing (shifted register) family:
// Rd := Rn <op> Shift(Rm, type, #imm5). For the logical operations the
// carry flag comes from the shifter rather than the operation itself.
type dpRegShift struct {
	mnemonic     string
	rd, rn, rm   RegID
	typ          shiftType
	n            uint
	setFlags     bool
	shifterCarry bool
	compare      bool // TST/TEQ/CMP/CMN: discard the result
	op           func(x, y uint32, carryIn bool) (uint32, bool, bool)
}

func (i dpRegShift) Name() string { return i.mnemonic }
func (i dpRegShift) Args() string {
	shift := ""
	switch {
	case i.typ == shiftRRX:
		shift = ", RRX"
	case i.n != 0 || i.typ != shiftLSL:
		shift = fmt.Sprintf(", %s #%d", [...]string{"LSL", "LSR", "ASR", "ROR"}[i.typ], i.n)
	}
	if i.compare {
		return fmt.Sprintf("%s, %s%s", i.rn, i.rm, shift)
	}
	return fmt.Sprintf("%s, %s, %s%s", i.rd, i.rn, i.rm, shift)
}

func (i dpRegShift) Execute(p *Processor) Effect {
	shifted, shiftCarry := shiftC(p.Register(i.rm), i.typ, i.n, p.status.carry)
	x := p.Register(i.rn)
	result, carryOut, overflow := i.op(x, shifted, p.status.carry)
	if i.shifterCarry {
		carryOut = shiftCarry
	}
	if !i.compare {
		p.SetRegister(i.rd, result)
	}
	if i.setFlags || i.compare {
		p.status.setNZ(result)
		p.status.carry = carryOut
		if !i.shifterCarry {
			p.status.overflow = overflow
		}
	}
	return Effect{}
}

// movRegShift is the MOV (register, shifted) form of the group: LSL/LSR/
// ASR/ROR Rd, Rm, #imm5 and RRX Rd, Rm, produced when Rn == 1111.
type movRegShift struct {
	rd, rm   RegID
	typ      shiftType
	n        uint
	setFlags bool
	not      bool // MVN when true
}

func (i movRegShift) Name() string {
	base := "MOV"
	if i.not {
		base = "MVN"
	}
	if i.typ == shiftRRX && !i.not {
		base = "RRX"
	}
	if i.setFlags {
		base += "S"
	}
	return base
}
func (i movRegShift) Args() string {
	if i.n == 0 && i.typ == shiftLSL {
		return fmt.Sprintf("%s, %s", i.rd, i.rm)
	}
	if i.typ == shiftRRX {
		return fmt.Sprintf("%s, %s", i.rd, i.rm)
	}
	return fmt.Sprintf("%s, %s, %s #%d", i.rd, i.rm, [...]string{"LSL", "LSR", "ASR", "ROR"}[i.typ], i.n)
}

func (i movRegShift) Execute(p *Processor) Effect {
	result, carry := shiftC(p.Register(i.rm), i.typ, i.n, p.status.carry)
	if i.not {
		result = ^result
	}
	p.SetRegister(i.rd, result)
	if i.setFlags {
		p.status.setNZ(result)
		p.status.carry = carry
	}
	return Effect{}
}

// shiftRegWide is the 32-bit shift-by-register forms: LSL/LSR/ASR/ROR
// Rd, Rn, Rm with the amount in the low byte of Rm.
type shiftRegWide struct {
	mnemonic   string
	rd, rn, rm RegID
	typ        shiftType
	setFlags   bool
}

func (i shiftRegWide) Name() string { return i.mnemonic }
func (i shiftRegWide) Args() string { return fmt.Sprintf("%s, %s, %s", i.rd, i.rn, i.rm) }

func (i shiftRegWide) Execute(p *Processor) Effect {
	n := uint(p.Register(i.rm) & 0xFF)
	result, carry := shiftC(p.Register(i.rn), i.typ, n, p.status.carry)
	p.SetRegister(i.rd, result)
	if i.setFlags {
		p.status.setNZ(result)
		p.status.carry = carry
	}
	return Effect{}
}

// decodeImmShift decodes the type/imm5 fields per the "DecodeImmShift"
// pseudocode: LSR/ASR with a zero immediate mean a shift of 32, and a
// zero-immediate ROR is RRX.
func decodeImmShift(typ2 uint32, imm5 uint32) (shiftType, uint) {
	switch typ2 {
	case 0b00:
		return shiftLSL, uint(imm5)
	case 0b01:
		if imm5 == 0 {
			return shiftLSR, 32
		}
		return shiftLSR, uint(imm5)
	case 0b10:
		if imm5 == 0 {
			return shiftASR, 32
		}
		return shiftASR, uint(imm5)
	default:
		if imm5 == 0 {
			return shiftRRX, 1
		}
		return shiftROR, uint(imm5)
	}
}

func init() {
	// data processing (shifted register) - 1110101 oooo S nnnn (0) iii
	// dddd ii tt mmmm
	registerVariant(variant{
		name:     "dp-reg32",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "1110101xxxxxxxxxzxxxxxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			op := (bits >> 21) & 0xF
			s := (bits>>20)&1 != 0
			rn := reg4(bits, 16)
			imm3 := (bits >> 12) & 0x7
			rd := reg4(bits, 8)
			imm2 := (bits >> 6) & 0x3
			typ2 := (bits >> 4) & 0x3
			rm := reg4(bits, 0)
			typ, n := decodeImmShift(typ2, imm3<<2|imm2)

			mk := func(mnemonic string, fn func(x, y uint32, carryIn bool) (uint32, bool, bool), shifterCarry bool) (Instruction, decodeOutcome) {
				name := mnemonic
				if s {
					name += "S"
				}
				return dpRegShift{mnemonic: name, rd: rd, rn: rn, rm: rm, typ: typ, n: n, setFlags: s, shifterCarry: shifterCarry, op: fn}, decodeOK
			}
			cmp := func(mnemonic string, fn func(x, y uint32, carryIn bool) (uint32, bool, bool), shifterCarry bool) (Instruction, decodeOutcome) {
				return dpRegShift{mnemonic: mnemonic, rn: rn, rm: rm, typ: typ, n: n, shifterCarry: shifterCarry, compare: true, op: fn}, decodeOK
			}

			switch op {
			case 0b0000:
				if rd == PC && s {
					return cmp("TST", andOp, true)
				}
				return mk("AND", andOp, true)
			case 0b0001:
				return mk("BIC", bicOp, true)
			case 0b0010:
				if rn == PC {
					return movRegShift{rd: rd, rm: rm, typ: typ, n: n, setFlags: s}, decodeOK
				}
				return mk("ORR", orrOp, true)
			case 0b0011:
				if rn == PC {
					return movRegShift{rd: rd, rm: rm, typ: typ, n: n, setFlags: s, not: true}, decodeOK
				}
				return mk("ORN", ornOp, true)
			case 0b0100:
				if rd == PC && s {
					return cmp("TEQ", eorOp, true)
				}
				return mk("EOR", eorOp, true)
			case 0b1000:
				if rd == PC && s {
					return cmp("CMN", addOp, false)
				}
				return mk("ADD", addOp, false)
			case 0b1010:
				return mk("ADC", adcOp, false)
			case 0b1011:
				return mk("SBC", sbcOp, false)
			case 0b1101:
				if rd == PC && s {
					return cmp("CMP", subOp, false)
				}
				return mk("SUB", subOp, false)
			case 0b1110:
				return mk("RSB", rsbOp, false)
			}
			return nil, decodeOther
		},
	})

	// LSL/LSR/ASR/ROR Rd, Rn, Rm (register-amount, T2) - 11111010 0 tt S
	// nnnn 1111 dddd 0000 mmmm
	registerVariant(variant{
		name:     "shift-reg32",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "111110100xxxxxxx1111xxxx0000xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			typ2 := (bits >> 21) & 0x3
			s := (bits>>20)&1 != 0
			rn := reg4(bits, 16)
			rd := reg4(bits, 8)
			rm := reg4(bits, 0)
			if rd == SP || rd == PC || rn == SP || rn == PC || rm == SP || rm == PC {
				return nil, decodeUnpredictable
			}
			mnemonic := [...]string{"LSL", "LSR", "ASR", "ROR"}[typ2]
			if s {
				mnemonic += "S"
			}
			typ := [...]shiftType{shiftLSL, shiftLSR, shiftASR, shiftROR}[typ2]
			return shiftRegWide{mnemonic: mnemonic, rd: rd, rn: rn, rm: rm, typ: typ, setFlags: s}, decodeOK
		},
	})
}
