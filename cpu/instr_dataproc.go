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

func reg3(bits uint32, shift uint) RegID { return RegID((bits >> shift) & 0x7) }
func reg4(bits uint32, shift uint) RegID { return RegID((bits >> shift) & 0xF) }

// dpRegReg is ADD/SUB/AND/ORR/EOR/BIC/ORN/ADC/SBC/RSB Rd, Rn, Rm (16-bit
// three-register T1 forms) and the two-register T2 ADD/CMP/MOV (high
// registers, interworking-free) forms.
type dpRegReg struct {
	mnemonic   string
	rd, rn, rm RegID
	setFlags   bool
	op         func(x, y uint32, carryIn bool) (result uint32, carryOut, overflow bool)
}

func (i dpRegReg) Name() string { return i.mnemonic }
func (i dpRegReg) Args() string { return fmt.Sprintf("%s, %s, %s", i.rd, i.rn, i.rm) }

func (i dpRegReg) Execute(p *Processor) Effect {
	x := p.Register(i.rn)
	y := p.Register(i.rm)
	result, carryOut, overflow := i.op(x, y, p.status.carry)
	if i.rd == PC && !i.setFlags {
		return p.aluWritePC(result)
	}
	p.SetRegister(i.rd, result)
	if i.setFlags {
		p.status.setNZ(result)
		p.status.carry = carryOut
		p.status.overflow = overflow
	}
	return Effect{}
}

func addOp(x, y uint32, carryIn bool) (uint32, bool, bool) {
	return addWithCarry(x, y, false)
}
func adcOp(x, y uint32, carryIn bool) (uint32, bool, bool) {
	return addWithCarry(x, y, carryIn)
}
func subOp(x, y uint32, carryIn bool) (uint32, bool, bool) {
	return addWithCarry(x, ^y, true)
}
func sbcOp(x, y uint32, carryIn bool) (uint32, bool, bool) {
	return addWithCarry(x, ^y, carryIn)
}
func rsbOp(x, y uint32, carryIn bool) (uint32, bool, bool) {
	return addWithCarry(^x, y, true)
}
func andOp(x, y uint32, carryIn bool) (uint32, bool, bool) { return x & y, carryIn, false }
func orrOp(x, y uint32, carryIn bool) (uint32, bool, bool) { return x | y, carryIn, false }
func eorOp(x, y uint32, carryIn bool) (uint32, bool, bool) { return x ^ y, carryIn, false }
func bicOp(x, y uint32, carryIn bool) (uint32, bool, bool) { return x &^ y, carryIn, false }
func ornOp(x, y uint32, carryIn bool) (uint32, bool, bool) { return x | ^y, carryIn, false }

// dpImm is the {ADD,SUB,AND,ORR,EOR,BIC,ORN,ADC,SBC,RSB,MOV,MVN} Rd, Rn,
// #imm modified-immediate (T3/T1-32-bit) family, and the 16-bit
// MOVS/CMP/ADDS/SUBS Rdn, #imm8 family.
type dpImm struct {
	mnemonic string
	rd, rn   RegID
	imm      uint32
	carry    *bool // non-nil when thumb_expand_imm produced a shifter carry
	setFlags bool
	op       func(x, y uint32, carryIn bool) (uint32, bool, bool)
}

func (i dpImm) Name() string { return i.mnemonic }
func (i dpImm) Args() string { return fmt.Sprintf("%s, %s, #%d", i.rd, i.rn, i.imm) }

func (i dpImm) Execute(p *Processor) Effect {
	x := p.Register(i.rn)
	result, carryOut, overflow := i.op(x, i.imm, p.status.carry)
	if i.carry != nil {
		carryOut = *i.carry
	}
	p.SetRegister(i.rd, result)
	if i.setFlags {
		p.status.setNZ(result)
		p.status.carry = carryOut
		p.status.overflow = overflow
	}
	return Effect{}
}

// cmpLike implements CMP/CMN/TST/TEQ: compute flags from the comparison,
// discard the result.
type cmpLike struct {
	mnemonic string
	rn, rm   RegID
	imm      uint32
	useImm   bool
	op       func(x, y uint32, carryIn bool) (uint32, bool, bool)
}

func (i cmpLike) Name() string { return i.mnemonic }
func (i cmpLike) Args() string {
	if i.useImm {
		return fmt.Sprintf("%s, #%d", i.rn, i.imm)
	}
	return fmt.Sprintf("%s, %s", i.rn, i.rm)
}

func (i cmpLike) Execute(p *Processor) Effect {
	x := p.Register(i.rn)
	y := i.imm
	if !i.useImm {
		y = p.Register(i.rm)
	}
	result, carryOut, overflow := i.op(x, y, p.status.carry)
	p.status.setNZ(result)
	p.status.carry = carryOut
	p.status.overflow = overflow
	return Effect{}
}

// movReg is MOV/MOVS Rd, Rm (register-to-register move, including the
// high-register T1 form with no flag update).
type movReg struct {
	rd, rm   RegID
	setFlags bool
}

func (i movReg) Name() string {
	if i.setFlags {
		return "MOVS"
	}
	return "MOV"
}
func (i movReg) Args() string { return fmt.Sprintf("%s, %s", i.rd, i.rm) }

func (i movReg) Execute(p *Processor) Effect {
	v := p.Register(i.rm)
	if i.rd == PC {
		return p.aluWritePC(v)
	}
	p.SetRegister(i.rd, v)
	if i.setFlags {
		p.status.setNZ(v)
	}
	return Effect{}
}

// movImm is MOV/MOVS Rd, #imm (16-bit T1 and 32-bit T2/T3 modified
// immediate forms).
type movImm struct {
	rd       RegID
	imm      uint32
	carry    *bool
	setFlags bool
	not      bool // true for MVN
}

func (i movImm) Name() string {
	switch {
	case i.not && i.setFlags:
		return "MVNS"
	case i.not:
		return "MVN"
	case i.setFlags:
		return "MOVS"
	default:
		return "MOV"
	}
}
func (i movImm) Args() string { return fmt.Sprintf("%s, #%d", i.rd, i.imm) }

func (i movImm) Execute(p *Processor) Effect {
	v := i.imm
	if i.not {
		v = ^v
	}
	p.SetRegister(i.rd, v)
	if i.setFlags {
		p.status.setNZ(v)
		if i.carry != nil {
			p.status.carry = *i.carry
		}
	}
	return Effect{}
}

// movt is MOVT Rd, #imm16: loads the top halfword of Rd, leaving the
// bottom halfword untouched.
type movt struct {
	rd  RegID
	imm uint16
}

func (i movt) Name() string { return "MOVT" }
func (i movt) Args() string { return fmt.Sprintf("%s, #%d", i.rd, i.imm) }

func (i movt) Execute(p *Processor) Effect {
	v := p.Register(i.rd)
	v = uint32(i.imm)<<16 | (v & 0xFFFF)
	p.SetRegister(i.rd, v)
	return Effect{}
}

// adr is ADR Rd, label: Rd := Align(PC,4) + imm (add form) or - imm (sub
// form, T2 ADR encoding reuses SUB).
type adr struct {
	rd       RegID
	imm      uint32
	negative bool
}

func (i adr) Name() string { return "ADR" }
func (i adr) Args() string { return fmt.Sprintf("%s, #%d", i.rd, i.imm) }

func (i adr) Execute(p *Processor) Effect {
	base := p.regs.pc &^ 3 // PC was already speculatively advanced to address-of-instruction+4
	if i.negative {
		p.SetRegister(i.rd, base-i.imm)
	} else {
		p.SetRegister(i.rd, base+i.imm)
	}
	return Effect{}
}

func init() {
	registerThumb16DataProcessing()
	registerThumb32DataProcessing()
}

// registerThumb16DataProcessing wires the 16-bit three-register ADD/SUB/
// AND/ORR/EOR/BIC family (encoding T1, bits 15:9 = 0001100/0001101 for
// ADD/SUB, bits 15:10 = 010000 for the ALU group) plus the 8-bit-immediate
// MOV/CMP/ADD/SUB Rdn,#imm8 group (encoding T2, bits 15:11=00100..00111).
func registerThumb16DataProcessing() {
	// ADDS/SUBS Rd, Rn, Rm - 000110 0 mmm nnn ddd / 000110 1 mmm nnn ddd
	registerVariant(variant{
		name:     "ADDS/SUBS (3-reg)",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "0001100xxxxxxxxx"}, {tag: "T1sub", versions: verAll, pattern: "0001101xxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rm, rn, rd := reg3(bits, 6), reg3(bits, 3), reg3(bits, 0)
			if tag == "T1sub" {
				return dpRegReg{mnemonic: "SUBS", rd: rd, rn: rn, rm: rm, setFlags: !it.inITBlock, op: subOp}, decodeOK
			}
			return dpRegReg{mnemonic: "ADDS", rd: rd, rn: rn, rm: rm, setFlags: !it.inITBlock, op: addOp}, decodeOK
		},
	})

	// ADDS/SUBS Rd, Rn, #imm3 - 0001110 iii nnn ddd / 0001111 iii nnn ddd
	registerVariant(variant{
		name:     "ADDS/SUBS (3-imm)",
		patterns: []encoding{{tag: "T1add", versions: verAll, pattern: "0001110xxxxxxxxx"}, {tag: "T1sub", versions: verAll, pattern: "0001111xxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			imm3 := (bits >> 6) & 0x7
			rn := reg3(bits, 3)
			rd := reg3(bits, 0)
			if tag == "T1sub" {
				return dpImm{mnemonic: "SUBS", rd: rd, rn: rn, imm: imm3, setFlags: !it.inITBlock, op: subOp}, decodeOK
			}
			return dpImm{mnemonic: "ADDS", rd: rd, rn: rn, imm: imm3, setFlags: !it.inITBlock, op: addOp}, decodeOK
		},
	})

	// MOVS/CMP/ADDS/SUBS Rdn, #imm8 - 001 op ddd iiiiiiii
	registerVariant(variant{
		name:     "dp-imm8",
		patterns: []encoding{{tag: "T", versions: verAll, pattern: "001xxxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			op := (bits >> 11) & 0x3
			rdn := reg3(bits, 8)
			imm := bits & 0xFF
			switch op {
			case 0b00:
				return movImm{rd: rdn, imm: imm, setFlags: !it.inITBlock}, decodeOK
			case 0b01:
				return cmpLike{mnemonic: "CMP", rn: rdn, imm: imm, useImm: true, op: subOp}, decodeOK
			case 0b10:
				return dpImm{mnemonic: "ADDS", rd: rdn, rn: rdn, imm: imm, setFlags: !it.inITBlock, op: addOp}, decodeOK
			default:
				return dpImm{mnemonic: "SUBS", rd: rdn, rn: rdn, imm: imm, setFlags: !it.inITBlock, op: subOp}, decodeOK
			}
		},
	})

	// Data-processing register group - 010000 oooo mmm ddd (AND, EOR, ...)
	registerVariant(variant{
		name:     "alu-reg",
		patterns: []encoding{{tag: "T", versions: verAll, pattern: "010000xxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			op := (bits >> 6) & 0xF
			rm := reg3(bits, 3)
			rdn := reg3(bits, 0)
			setFlags := !it.inITBlock
			switch op {
			case 0b0000:
				return dpRegReg{mnemonic: "ANDS", rd: rdn, rn: rdn, rm: rm, setFlags: setFlags, op: andOp}, decodeOK
			case 0b0001:
				return dpRegReg{mnemonic: "EORS", rd: rdn, rn: rdn, rm: rm, setFlags: setFlags, op: eorOp}, decodeOK
			case 0b0010:
				return shiftReg{mnemonic: "LSLS", rdn: rdn, rm: rm, typ: shiftLSL, setFlags: setFlags}, decodeOK
			case 0b0011:
				return shiftReg{mnemonic: "LSRS", rdn: rdn, rm: rm, typ: shiftLSR, setFlags: setFlags}, decodeOK
			case 0b0100:
				return shiftReg{mnemonic: "ASRS", rdn: rdn, rm: rm, typ: shiftASR, setFlags: setFlags}, decodeOK
			case 0b0101:
				return dpRegReg{mnemonic: "ADCS", rd: rdn, rn: rdn, rm: rm, setFlags: setFlags, op: adcOp}, decodeOK
			case 0b0110:
				return dpRegReg{mnemonic: "SBCS", rd: rdn, rn: rdn, rm: rm, setFlags: setFlags, op: sbcOp}, decodeOK
			case 0b0111:
				return shiftReg{mnemonic: "RORS", rdn: rdn, rm: rm, typ: shiftROR, setFlags: setFlags}, decodeOK
			case 0b1000:
				return cmpLike{mnemonic: "TST", rn: rdn, rm: rm, op: andOp}, decodeOK
			case 0b1001:
				return dpRegReg{mnemonic: "RSBS", rd: rdn, rn: rm, rm: RegID(0), setFlags: setFlags, op: func(x, y uint32, c bool) (uint32, bool, bool) { return addWithCarry(^x, 0, true) }}, decodeOK
			case 0b1010:
				return cmpLike{mnemonic: "CMP", rn: rdn, rm: rm, op: subOp}, decodeOK
			case 0b1011:
				return cmpLike{mnemonic: "CMN", rn: rdn, rm: rm, op: addOp}, decodeOK
			case 0b1100:
				return dpRegReg{mnemonic: "ORRS", rd: rdn, rn: rdn, rm: rm, setFlags: setFlags, op: orrOp}, decodeOK
			case 0b1101:
				return mulSimple{rd: rdn, rn: rm, rm: rdn, setFlags: setFlags}, decodeOK
			case 0b1110:
				return dpRegReg{mnemonic: "BICS", rd: rdn, rn: rdn, rm: rm, setFlags: setFlags, op: bicOp}, decodeOK
			default: // 0b1111 MVN
				return movImm{}, decodeOther // handled by alu-mvn below for clarity
			}
		},
	})
	registerVariant(variant{
		name:     "mvn-reg",
		patterns: []encoding{{tag: "T", versions: verAll, pattern: "0100001111xxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rm := reg3(bits, 3)
			rd := reg3(bits, 0)
			return dpRegReg{mnemonic: "MVNS", rd: rd, rn: RegID(0), rm: rm, setFlags: !it.inITBlock, op: func(x, y uint32, c bool) (uint32, bool, bool) { return ^y, c, false }}, decodeOK
		},
	})

	// High-register ADD/CMP/MOV/BX/BLX - 010001 oo D m mmm ddd
	registerVariant(variant{
		name:     "hi-reg",
		patterns: []encoding{{tag: "T", versions: verAll, pattern: "010001xxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			op := (bits >> 8) & 0x3
			dBit := (bits >> 7) & 0x1
			rm := reg4(bits, 3)
			rdn := RegID((dBit<<3 | (bits & 0x7)))
			switch op {
			case 0b00:
				return dpRegReg{mnemonic: "ADD", rd: rdn, rn: rdn, rm: rm, setFlags: false, op: addOp}, decodeOK
			case 0b01:
				return cmpLike{mnemonic: "CMP", rn: rdn, rm: rm, op: subOp}, decodeOK
			case 0b10:
				return movReg{rd: rdn, rm: rm, setFlags: false}, decodeOK
			default:
				return branchExchange{rm: rm, link: bits&0x80 != 0}, decodeOK
			}
		},
	})
}

// registerThumb32DataProcessing wires a representative subset of the
// 32-bit modified-immediate data-processing group (T3 encoding, 1111 0 i
// 0 oooo S nnnn 0 iii dddd iiiiiiii): ADD/SUB/AND/ORR/EOR/BIC/ORN, plus
// the separate MOV/MOVW/MOVT 32-bit immediate encodings.
func registerThumb32DataProcessing() {
	registerVariant(variant{
		name: "dp-imm32",
		patterns: []encoding{
			{tag: "T3", versions: verAll, pattern: "11110x0xxxxxxxxx0xxxxxxxxxxxxxxx"},
		},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			op := (bits >> 21) & 0xF
			s := (bits >> 20) & 1
			rn := reg4(bits, 16)
			rd := reg4(bits, 8)
			i := (bits >> 26) & 1
			imm3 := (bits >> 12) & 0x7
			imm8 := bits & 0xFF
			imm12 := uint16(i<<11 | imm3<<8 | imm8)

			setFlags := s != 0
			switch op {
			case 0b0000:
				if rd == 0xF && s != 0 {
					return cmpLike{mnemonic: "TST", rn: rn, imm: uint32(thumbExpandImm(imm12)), useImm: true, op: andOp}, decodeOK
				}
				v, c := thumbExpandImmOptC(imm12, false)
				return dpImm{mnemonic: "AND", rd: rd, rn: rn, imm: v, carry: c, setFlags: setFlags, op: andOp}, decodeOK
			case 0b0001:
				v, c := thumbExpandImmOptC(imm12, false)
				return dpImm{mnemonic: "BIC", rd: rd, rn: rn, imm: v, carry: c, setFlags: setFlags, op: bicOp}, decodeOK
			case 0b0010:
				if rn == 0xF {
					v, c := thumbExpandImmOptC(imm12, false)
					return movImm{rd: rd, imm: v, carry: c, setFlags: setFlags}, decodeOK
				}
				v, c := thumbExpandImmOptC(imm12, false)
				return dpImm{mnemonic: "ORR", rd: rd, rn: rn, imm: v, carry: c, setFlags: setFlags, op: orrOp}, decodeOK
			case 0b0011:
				if rn == 0xF {
					v, c := thumbExpandImmOptC(imm12, false)
					return movImm{rd: rd, imm: v, carry: c, setFlags: setFlags, not: true}, decodeOK
				}
				v, c := thumbExpandImmOptC(imm12, false)
				return dpImm{mnemonic: "ORN", rd: rd, rn: rn, imm: v, carry: c, setFlags: setFlags, op: ornOp}, decodeOK
			case 0b0100:
				if rd == 0xF && s != 0 {
					return cmpLike{mnemonic: "TEQ", rn: rn, imm: uint32(thumbExpandImm(imm12)), useImm: true, op: eorOp}, decodeOK
				}
				v, c := thumbExpandImmOptC(imm12, false)
				return dpImm{mnemonic: "EOR", rd: rd, rn: rn, imm: v, carry: c, setFlags: setFlags, op: eorOp}, decodeOK
			case 0b1000:
				if rd == 0xF && s != 0 {
					return cmpLike{mnemonic: "CMN", rn: rn, imm: uint32(thumbExpandImm(imm12)), useImm: true, op: addOp}, decodeOK
				}
				return dpImm{mnemonic: "ADD", rd: rd, rn: rn, imm: uint32(thumbExpandImm(imm12)), setFlags: setFlags, op: addOp}, decodeOK
			case 0b1010:
				return dpImm{mnemonic: "ADC", rd: rd, rn: rn, imm: uint32(thumbExpandImm(imm12)), setFlags: setFlags, op: adcOp}, decodeOK
			case 0b1011:
				return dpImm{mnemonic: "SBC", rd: rd, rn: rn, imm: uint32(thumbExpandImm(imm12)), setFlags: setFlags, op: sbcOp}, decodeOK
			case 0b1101:
				if rd == 0xF && s != 0 {
					return cmpLike{mnemonic: "CMP", rn: rn, imm: uint32(thumbExpandImm(imm12)), useImm: true, op: subOp}, decodeOK
				}
				return dpImm{mnemonic: "SUB", rd: rd, rn: rn, imm: uint32(thumbExpandImm(imm12)), setFlags: setFlags, op: subOp}, decodeOK
			case 0b1110:
				return dpImm{mnemonic: "RSB", rd: rd, rn: rn, imm: uint32(thumbExpandImm(imm12)), setFlags: setFlags, op: rsbOp}, decodeOK
			}
			return nil, decodeOther
		},
	})

	// MOVW Rd, #imm16 - 1111 0 i 1 0 0 1 0 0 iiii 0 iii dddd iiiiiiii
	registerVariant(variant{
		name:     "movw",
		patterns: []encoding{{tag: "T3", versions: verAll, pattern: "11110x100100xxxx0xxxxxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			i := (bits >> 26) & 1
			imm4 := (bits >> 16) & 0xF
			imm3 := (bits >> 12) & 0x7
			imm8 := bits & 0xFF
			rd := reg4(bits, 8)
			imm16 := uint16(imm4<<12 | i<<11 | imm3<<8 | imm8)
			return movImm{rd: rd, imm: uint32(imm16)}, decodeOK
		},
	})

	// MOVT Rd, #imm16 - 1111 0 i 1 0 1 1 0 0 iiii 0 iii dddd iiiiiiii
	registerVariant(variant{
		name:     "movt",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "11110x101100xxxx0xxxxxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			i := (bits >> 26) & 1
			imm4 := (bits >> 16) & 0xF
			imm3 := (bits >> 12) & 0x7
			imm8 := bits & 0xFF
			rd := reg4(bits, 8)
			imm16 := uint16(imm4<<12 | i<<11 | imm3<<8 | imm8)
			return movt{rd: rd, imm: imm16}, decodeOK
		},
	})

	// ADR Rd, label (T1, 16-bit, ADD form only - PC-relative address
	// generation used by literal pools and position-independent branches).
	registerVariant(variant{
		name:     "adr16",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "10100xxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rd := reg3(bits, 8)
			imm := (bits & 0xFF) << 2
			return adr{rd: rd, imm: imm}, decodeOK
		},
	})

	// ADR.W Rd, label - T3 add form 11110 i 100000 1111 0 iii dddd iiiiiiii,
	// T2 subtract form 11110 i 101010 1111 0 iii dddd iiiiiiii
	registerVariant(variant{
		name: "adr32",
		patterns: []encoding{
			{tag: "T3", versions: verV7Up, pattern: "11110x10000011110xxxxxxxxxxxxxxx"},
			{tag: "T2", versions: verV7Up, pattern: "11110x10101011110xxxxxxxxxxxxxxx"},
		},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			i := (bits >> 26) & 1
			imm3 := (bits >> 12) & 0x7
			rd := reg4(bits, 8)
			imm8 := bits & 0xFF
			if rd == SP || rd == PC {
				return nil, decodeUnpredictable
			}
			imm := i<<11 | imm3<<8 | imm8
			return adr{rd: rd, imm: imm, negative: tag == "T2"}, decodeOK
		},
	})

	// ADD Rd, SP, #imm - 10101 ddd iiiiiiii (imm zero-extended, << 2)
	registerVariant(variant{
		name:     "add-sp-imm8",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "10101xxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rd := reg3(bits, 8)
			imm := (bits & 0xFF) << 2
			return dpImm{mnemonic: "ADD", rd: rd, rn: SP, imm: imm, op: addOp}, decodeOK
		},
	})

	// ADD/SUB SP, SP, #imm - 101100000 iiiiiii / 101100001 iiiiiii (<<2)
	registerVariant(variant{
		name:     "addsub-sp-imm7",
		patterns: []encoding{{tag: "add", versions: verAll, pattern: "101100000xxxxxxx"}, {tag: "sub", versions: verAll, pattern: "101100001xxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			imm := (bits & 0x7F) << 2
			if tag == "sub" {
				return dpImm{mnemonic: "SUB", rd: SP, rn: SP, imm: imm, op: subOp}, decodeOK
			}
			return dpImm{mnemonic: "ADD", rd: SP, rn: SP, imm: imm, op: addOp}, decodeOK
		},
	})
}
