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

// extend is SXTB/SXTH/UXTB/UXTH Rd, Rm{, ROR #rotation}: rotate Rm right
// by 0/8/16/24 then sign- or zero-extend the low byte/halfword.
type extend struct {
	mnemonic string
	rd, rm   RegID
	rotate   uint
	width    uint // 8 or 16
	signed   bool
}

func (i extend) Name() string { return i.mnemonic }
func (i extend) Args() string {
	if i.rotate == 0 {
		return fmt.Sprintf("%s, %s", i.rd, i.rm)
	}
	return fmt.Sprintf("%s, %s, ROR #%d", i.rd, i.rm, i.rotate)
}

func (i extend) Execute(p *Processor) Effect {
	v := p.Register(i.rm)
	if i.rotate != 0 {
		v, _ = rorC(v, i.rotate)
	}
	mask := uint32(1)<<i.width - 1
	v &= mask
	if i.signed {
		v = signExtend(v, i.width)
	}
	p.SetRegister(i.rd, v)
	return Effect{}
}

func init() {
	// SXTH Rd, Rm (16-bit T1) - 1011001000 mmm ddd
	registerVariant(variant{
		name:     "sxth-16bit",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "1011001000xxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rm, rd := reg3(bits, 3), reg3(bits, 0)
			return extend{mnemonic: "SXTH", rd: rd, rm: rm, width: 16, signed: true}, decodeOK
		},
	})

	// SXTB Rd, Rm (16-bit T1) - 1011001001 mmm ddd
	registerVariant(variant{
		name:     "sxtb-16bit",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "1011001001xxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rm, rd := reg3(bits, 3), reg3(bits, 0)
			return extend{mnemonic: "SXTB", rd: rd, rm: rm, width: 8, signed: true}, decodeOK
		},
	})

	// UXTH Rd, Rm (16-bit T1) - 1011001010 mmm ddd
	registerVariant(variant{
		name:     "uxth-16bit",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "1011001010xxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rm, rd := reg3(bits, 3), reg3(bits, 0)
			return extend{mnemonic: "UXTH", rd: rd, rm: rm, width: 16}, decodeOK
		},
	})

	// UXTB Rd, Rm (16-bit T1) - 1011001011 mmm ddd
	registerVariant(variant{
		name:     "uxtb-16bit",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "1011001011xxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rm, rd := reg3(bits, 3), reg3(bits, 0)
			return extend{mnemonic: "UXTB", rd: rd, rm: rm, width: 8}, decodeOK
		},
	})

	// SXTH Rd, Rm{, ROR #rot} (32-bit T2) - 111110100000 1111 1111 dddd 10rr mmmm
	registerVariant(variant{
		name:     "sxth-32bit",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "11111010000011111111xxxx10xxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rd := reg4(bits, 8)
			rotate := ((bits >> 4) & 0x3) * 8
			rm := reg4(bits, 0)
			return extend{mnemonic: "SXTH", rd: rd, rm: rm, rotate: uint(rotate), width: 16, signed: true}, decodeOK
		},
	})

	// SXTB Rd, Rm{, ROR #rot} (32-bit T2) - 111110100100 1111 1111 dddd 10rr mmmm
	registerVariant(variant{
		name:     "sxtb-32bit",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "11111010010011111111xxxx10xxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rd := reg4(bits, 8)
			rotate := ((bits >> 4) & 0x3) * 8
			rm := reg4(bits, 0)
			return extend{mnemonic: "SXTB", rd: rd, rm: rm, rotate: uint(rotate), width: 8, signed: true}, decodeOK
		},
	})

	// UXTH Rd, Rm{, ROR #rot} (32-bit T2) - 111110100001 1111 1111 dddd 10rr mmmm
	registerVariant(variant{
		name:     "uxth-32bit",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "11111010000111111111xxxx10xxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rd := reg4(bits, 8)
			rotate := ((bits >> 4) & 0x3) * 8
			rm := reg4(bits, 0)
			return extend{mnemonic: "UXTH", rd: rd, rm: rm, rotate: uint(rotate), width: 16}, decodeOK
		},
	})

	// UXTB Rd, Rm{, ROR #rot} (32-bit T2) - 111110100101 1111 1111 dddd 10rr mmmm
	registerVariant(variant{
		name:     "uxtb-32bit",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "11111010010111111111xxxx10xxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rd := reg4(bits, 8)
			rotate := ((bits >> 4) & 0x3) * 8
			rm := reg4(bits, 0)
			return extend{mnemonic: "UXTB", rd: rd, rm: rm, rotate: uint(rotate), width: 8}, decodeOK
		},
	})
}
