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

// mulSimple is MULS Rdn, Rm, Rdn (16-bit T1): the only Thumb-1 multiply,
// folded into the alu-reg group in instr_dataproc.go since it shares that
// encoding's opcode field.
type mulSimple struct {
	rd, rn, rm RegID
	setFlags   bool
}

func (i mulSimple) Name() string {
	if i.setFlags {
		return "MULS"
	}
	return "MUL"
}
func (i mulSimple) Args() string { return fmt.Sprintf("%s, %s, %s", i.rd, i.rn, i.rm) }

func (i mulSimple) Execute(p *Processor) Effect {
	result := p.Register(i.rn) * p.Register(i.rm)
	p.SetRegister(i.rd, result)
	if i.setFlags {
		p.status.setNZ(result)
	}
	return Effect{}
}

// mul32 is the 32-bit MUL/MLA/MLS Rd, Rn, Rm{, Ra} family: plain multiply
// (Ra implicitly 0), multiply-accumulate, and multiply-subtract.
type mul32 struct {
	mnemonic   string
	rd, rn, rm RegID
	ra         RegID
	hasRa      bool
	subtract   bool
}

func (i mul32) Name() string { return i.mnemonic }
func (i mul32) Args() string {
	if i.hasRa {
		return fmt.Sprintf("%s, %s, %s, %s", i.rd, i.rn, i.rm, i.ra)
	}
	return fmt.Sprintf("%s, %s, %s", i.rd, i.rn, i.rm)
}

func (i mul32) Execute(p *Processor) Effect {
	product := p.Register(i.rn) * p.Register(i.rm)
	result := product
	if i.hasRa {
		acc := p.Register(i.ra)
		if i.subtract {
			result = acc - product
		} else {
			result = acc + product
		}
	}
	p.SetRegister(i.rd, result)
	return Effect{}
}

// mulLong64 is the SMULL/UMULL/SMLAL/UMLAL RdLo, RdHi, Rn, Rm family: a
// 64-bit product, optionally accumulated into the existing {RdLo,RdHi}
// pair, split across the two 32-bit halves.
type mulLong64 struct {
	mnemonic   string
	rdLo, rdHi RegID
	rn, rm     RegID
	signed     bool
	accumulate bool
}

func (i mulLong64) Name() string { return i.mnemonic }
func (i mulLong64) Args() string {
	return fmt.Sprintf("%s, %s, %s, %s", i.rdLo, i.rdHi, i.rn, i.rm)
}

func (i mulLong64) Execute(p *Processor) Effect {
	var product int64
	if i.signed {
		product = int64(int32(p.Register(i.rn))) * int64(int32(p.Register(i.rm)))
	} else {
		product = int64(uint64(p.Register(i.rn)) * uint64(p.Register(i.rm)))
	}
	if i.accumulate {
		existing := int64(uint64(p.Register(i.rdHi))<<32 | uint64(p.Register(i.rdLo)))
		product += existing
	}
	p.SetRegister(i.rdLo, uint32(product))
	p.SetRegister(i.rdHi, uint32(product>>32))
	return Effect{}
}

// divide is SDIV/UDIV Rd, Rn, Rm: integer division, truncating toward
// zero, with division by zero yielding 0 rather than a trap (per the
// ARMv7-M integer division extension; a CONFIGURABLE DIV-by-zero trap via
// CCR.DIV_0_TRP is not modeled - this core always returns 0).
type divide struct {
	mnemonic   string
	rd, rn, rm RegID
	signed     bool
}

func (i divide) Name() string { return i.mnemonic }
func (i divide) Args() string { return fmt.Sprintf("%s, %s, %s", i.rd, i.rn, i.rm) }

func (i divide) Execute(p *Processor) Effect {
	n, d := p.Register(i.rn), p.Register(i.rm)
	var result uint32
	if d != 0 {
		if i.signed {
			result = uint32(int32(n) / int32(d))
		} else {
			result = n / d
		}
	}
	p.SetRegister(i.rd, result)
	return Effect{}
}

func init() {
	// MUL Rd, Rn, Rm (T2) - 111110110000 nnnn 1111 dddd 0000 mmmm
	registerVariant(variant{
		name:     "mul32",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "111110110000xxxx1111xxxx0000xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg4(bits, 16)
			rd := reg4(bits, 8)
			rm := reg4(bits, 0)
			return mul32{mnemonic: "MUL", rd: rd, rn: rn, rm: rm}, decodeOK
		},
	})

	// MLA Rd, Rn, Rm, Ra (T1) - 111110110000 nnnn aaaa dddd 0000 mmmm
	registerVariant(variant{
		name:     "mla",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111110110000xxxxxxxxxxxx0000xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			ra := reg4(bits, 12)
			if ra == 0xF {
				return nil, decodeOther // MUL, handled above
			}
			rn := reg4(bits, 16)
			rd := reg4(bits, 8)
			rm := reg4(bits, 0)
			return mul32{mnemonic: "MLA", rd: rd, rn: rn, rm: rm, ra: ra, hasRa: true}, decodeOK
		},
	})

	// MLS Rd, Rn, Rm, Ra (T1) - 111110110000 nnnn aaaa dddd 0001 mmmm
	registerVariant(variant{
		name:     "mls",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111110110000xxxxxxxxxxxx0001xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg4(bits, 16)
			ra := reg4(bits, 12)
			rd := reg4(bits, 8)
			rm := reg4(bits, 0)
			return mul32{mnemonic: "MLS", rd: rd, rn: rn, rm: rm, ra: ra, hasRa: true, subtract: true}, decodeOK
		},
	})

	// SMULL RdLo, RdHi, Rn, Rm - 111110111000 nnnn llll hhhh 0000 mmmm
	registerVariant(variant{
		name:     "smull",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111110111000xxxxxxxxxxxx0000xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rdLo, rdHi, rm := reg4(bits, 16), reg4(bits, 12), reg4(bits, 8), reg4(bits, 0)
			return mulLong64{mnemonic: "SMULL", rdLo: rdLo, rdHi: rdHi, rn: rn, rm: rm, signed: true}, decodeOK
		},
	})

	// UMULL RdLo, RdHi, Rn, Rm - 111110111010 nnnn llll hhhh 0000 mmmm
	registerVariant(variant{
		name:     "umull",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111110111010xxxxxxxxxxxx0000xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rdLo, rdHi, rm := reg4(bits, 16), reg4(bits, 12), reg4(bits, 8), reg4(bits, 0)
			return mulLong64{mnemonic: "UMULL", rdLo: rdLo, rdHi: rdHi, rn: rn, rm: rm}, decodeOK
		},
	})

	// SMLAL RdLo, RdHi, Rn, Rm - 111110111100 nnnn llll hhhh 0000 mmmm
	registerVariant(variant{
		name:     "smlal",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111110111100xxxxxxxxxxxx0000xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rdLo, rdHi, rm := reg4(bits, 16), reg4(bits, 12), reg4(bits, 8), reg4(bits, 0)
			return mulLong64{mnemonic: "SMLAL", rdLo: rdLo, rdHi: rdHi, rn: rn, rm: rm, signed: true, accumulate: true}, decodeOK
		},
	})

	// UMLAL RdLo, RdHi, Rn, Rm - 111110111110 nnnn llll hhhh 0000 mmmm
	registerVariant(variant{
		name:     "umlal",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111110111110xxxxxxxxxxxx0000xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rdLo, rdHi, rm := reg4(bits, 16), reg4(bits, 12), reg4(bits, 8), reg4(bits, 0)
			return mulLong64{mnemonic: "UMLAL", rdLo: rdLo, rdHi: rdHi, rn: rn, rm: rm, accumulate: true}, decodeOK
		},
	})

	// SDIV Rd, Rn, Rm - 111110111001 nnnn 1111 dddd 1111 mmmm
	registerVariant(variant{
		name:     "sdiv",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111110111001xxxx1111xxxx1111xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd, rm := reg4(bits, 16), reg4(bits, 8), reg4(bits, 0)
			return divide{mnemonic: "SDIV", rd: rd, rn: rn, rm: rm, signed: true}, decodeOK
		},
	})

	// UDIV Rd, Rn, Rm - 111110111011 nnnn 1111 dddd 1111 mmmm
	registerVariant(variant{
		name:     "udiv",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111110111011xxxx1111xxxx1111xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd, rm := reg4(bits, 16), reg4(bits, 8), reg4(bits, 0)
			return divide{mnemonic: "UDIV", rd: rd, rn: rn, rm: rm}, decodeOK
		},
	})
}
