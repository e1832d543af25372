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

import (
	"fmt"
	"math/bits"
)

// bitfieldInsert is BFI Rd, Rn, #lsb, #width (and BFC Rd, #lsb, #width
// when Rn is omitted, per the decoder below folding Rn==PC into "no
// source bits"): clears bits [msb:lsb] of Rd and, for BFI, replaces them
// with the low `width` bits of Rn.
type bitfieldInsert struct {
	rd, rn   RegID
	hasRn    bool
	lsb, msb uint
}

func (i bitfieldInsert) Name() string {
	if i.hasRn {
		return "BFI"
	}
	return "BFC"
}
func (i bitfieldInsert) Args() string {
	width := i.msb - i.lsb + 1
	if i.hasRn {
		return fmt.Sprintf("%s, %s, #%d, #%d", i.rd, i.rn, i.lsb, width)
	}
	return fmt.Sprintf("%s, #%d, #%d", i.rd, i.lsb, width)
}

func (i bitfieldInsert) Execute(p *Processor) Effect {
	mask := uint32(0)
	for b := i.lsb; b <= i.msb; b++ {
		mask |= 1 << b
	}
	result := p.Register(i.rd) &^ mask
	if i.hasRn {
		result |= (p.Register(i.rn) << i.lsb) & mask
	}
	p.SetRegister(i.rd, result)
	return Effect{}
}

// bitfieldExtract is SBFX/UBFX Rd, Rn, #lsb, #width: extract `width` bits
// from Rn starting at `lsb`, then sign- or zero-extend to 32 bits.
type bitfieldExtract struct {
	mnemonic string
	rd, rn   RegID
	lsb      uint
	width    uint
	signed   bool
}

func (i bitfieldExtract) Name() string { return i.mnemonic }
func (i bitfieldExtract) Args() string {
	return fmt.Sprintf("%s, %s, #%d, #%d", i.rd, i.rn, i.lsb, i.width)
}

func (i bitfieldExtract) Execute(p *Processor) Effect {
	v := (p.Register(i.rn) >> i.lsb) & ((uint32(1) << i.width) - 1)
	if i.signed {
		v = signExtend(v, i.width)
	}
	p.SetRegister(i.rd, v)
	return Effect{}
}

// clz is CLZ Rd, Rm: count of leading zero bits in Rm.
type clz struct{ rd, rm RegID }

func (i clz) Name() string { return "CLZ" }
func (i clz) Args() string { return fmt.Sprintf("%s, %s", i.rd, i.rm) }
func (i clz) Execute(p *Processor) Effect {
	p.SetRegister(i.rd, uint32(bits.LeadingZeros32(p.Register(i.rm))))
	return Effect{}
}

// rbit is RBIT Rd, Rm: reverse the bit order of Rm.
type rbit struct{ rd, rm RegID }

func (i rbit) Name() string { return "RBIT" }
func (i rbit) Args() string { return fmt.Sprintf("%s, %s", i.rd, i.rm) }
func (i rbit) Execute(p *Processor) Effect {
	p.SetRegister(i.rd, bits.Reverse32(p.Register(i.rm)))
	return Effect{}
}

// byteReverse is REV/REV16/REVSH Rd, Rm: byte-order reversal variants.
type byteReverse struct {
	mnemonic string
	rd, rm   RegID
	kind     int // 0=REV, 1=REV16, 2=REVSH
}

func (i byteReverse) Name() string { return i.mnemonic }
func (i byteReverse) Args() string { return fmt.Sprintf("%s, %s", i.rd, i.rm) }

func (i byteReverse) Execute(p *Processor) Effect {
	v := p.Register(i.rm)
	var result uint32
	switch i.kind {
	case 0: // REV - full 32-bit byte swap
		result = bits.ReverseBytes32(v)
	case 1: // REV16 - swap bytes within each halfword independently
		lo := v & 0xFFFF
		hi := v >> 16
		result = uint32(bits.ReverseBytes16(uint16(hi)))<<16 | uint32(bits.ReverseBytes16(uint16(lo)))
	case 2: // REVSH - byte-swap the low halfword, then sign-extend it
		lo := bits.ReverseBytes16(uint16(v))
		result = signExtend(uint32(lo), 16)
	}
	p.SetRegister(i.rd, result)
	return Effect{}
}

func init() {
	// BFI/BFC Rd, {Rn,} #lsb, #width - 111100110110 nnnn 0iii dddd ii0mmmmm
	registerVariant(variant{
		name:     "bfi",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111100110110xxxx0xxxxxxxxx0xxxxx"}},
		decode: func(tag string, bits_ uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg4(bits_, 16)
			imm3 := (bits_ >> 12) & 0x7
			rd := reg4(bits_, 8)
			imm2 := (bits_ >> 6) & 0x3
			msb := uint(bits_ & 0x1F)
			lsb := uint(imm3<<2 | imm2)
			if rn == 0xF {
				return bitfieldInsert{rd: rd, lsb: lsb, msb: msb}, decodeOK
			}
			return bitfieldInsert{rd: rd, rn: rn, hasRn: true, lsb: lsb, msb: msb}, decodeOK
		},
	})

	// SBFX Rd, Rn, #lsb, #width - 111100110100 nnnn 0iii dddd ii0wwwww
	registerVariant(variant{
		name:     "sbfx",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111100110100xxxx0xxxxxxxxx0xxxxx"}},
		decode: func(tag string, bits_ uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg4(bits_, 16)
			imm3 := (bits_ >> 12) & 0x7
			rd := reg4(bits_, 8)
			imm2 := (bits_ >> 6) & 0x3
			widthm1 := bits_ & 0x1F
			return bitfieldExtract{mnemonic: "SBFX", rd: rd, rn: rn, lsb: uint(imm3<<2 | imm2), width: uint(widthm1) + 1, signed: true}, decodeOK
		},
	})

	// UBFX Rd, Rn, #lsb, #width - 111100111100 nnnn 0iii dddd ii0wwwww
	registerVariant(variant{
		name:     "ubfx",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111100111100xxxx0xxxxxxxxx0xxxxx"}},
		decode: func(tag string, bits_ uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg4(bits_, 16)
			imm3 := (bits_ >> 12) & 0x7
			rd := reg4(bits_, 8)
			imm2 := (bits_ >> 6) & 0x3
			widthm1 := bits_ & 0x1F
			return bitfieldExtract{mnemonic: "UBFX", rd: rd, rn: rn, lsb: uint(imm3<<2 | imm2), width: uint(widthm1) + 1}, decodeOK
		},
	})

	// CLZ Rd, Rm - 111110101011 mmmm 1111 dddd 1000 mmmm
	registerVariant(variant{
		name:     "clz",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111110101011xxxx1111xxxx1000xxxx"}},
		decode: func(tag string, bits_ uint32, it itStateView) (Instruction, decodeOutcome) {
			rm1, rd, rm2 := reg4(bits_, 16), reg4(bits_, 8), reg4(bits_, 0)
			if rm1 != rm2 {
				return nil, decodeUnpredictable
			}
			return clz{rd: rd, rm: rm1}, decodeOK
		},
	})

	// RBIT Rd, Rm - 111110101001 mmmm 1111 dddd 1010 mmmm
	registerVariant(variant{
		name:     "rbit",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111110101001xxxx1111xxxx1010xxxx"}},
		decode: func(tag string, bits_ uint32, it itStateView) (Instruction, decodeOutcome) {
			rm1, rd, rm2 := reg4(bits_, 16), reg4(bits_, 8), reg4(bits_, 0)
			if rm1 != rm2 {
				return nil, decodeUnpredictable
			}
			return rbit{rd: rd, rm: rm1}, decodeOK
		},
	})

	// REV Rd, Rm (16-bit T1) - 1011101000 mmm ddd
	registerVariant(variant{
		name:     "rev16bit",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "1011101000xxxxxx"}},
		decode: func(tag string, bits_ uint32, it itStateView) (Instruction, decodeOutcome) {
			rm, rd := reg3(bits_, 3), reg3(bits_, 0)
			return byteReverse{mnemonic: "REV", rd: rd, rm: rm, kind: 0}, decodeOK
		},
	})

	// REV16 Rd, Rm (16-bit T1) - 1011101001 mmm ddd
	registerVariant(variant{
		name:     "rev16_16bit",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "1011101001xxxxxx"}},
		decode: func(tag string, bits_ uint32, it itStateView) (Instruction, decodeOutcome) {
			rm, rd := reg3(bits_, 3), reg3(bits_, 0)
			return byteReverse{mnemonic: "REV16", rd: rd, rm: rm, kind: 1}, decodeOK
		},
	})

	// REVSH Rd, Rm (16-bit T1) - 1011101011 mmm ddd
	registerVariant(variant{
		name:     "revsh_16bit",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "1011101011xxxxxx"}},
		decode: func(tag string, bits_ uint32, it itStateView) (Instruction, decodeOutcome) {
			rm, rd := reg3(bits_, 3), reg3(bits_, 0)
			return byteReverse{mnemonic: "REVSH", rd: rd, rm: rm, kind: 2}, decodeOK
		},
	})

	// REV/REV16/REVSH Rd, Rm (32-bit T2) - 111110101001 mmmm 1111 dddd
	// 10oo mmmm, sharing the group with RBIT (oo=10) above.
	registerVariant(variant{
		name:     "rev32",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "111110101001xxxx1111xxxx10xxxxxx"}},
		decode: func(tag string, bits_ uint32, it itStateView) (Instruction, decodeOutcome) {
			op := (bits_ >> 4) & 0x3
			if op == 0b10 {
				return nil, decodeOther // RBIT
			}
			rm1, rd, rm2 := reg4(bits_, 16), reg4(bits_, 8), reg4(bits_, 0)
			if rm1 != rm2 {
				return nil, decodeUnpredictable
			}
			if rd == SP || rd == PC || rm1 == SP || rm1 == PC {
				return nil, decodeUnpredictable
			}
			switch op {
			case 0b00:
				return byteReverse{mnemonic: "REV", rd: rd, rm: rm1, kind: 0}, decodeOK
			case 0b01:
				return byteReverse{mnemonic: "REV16", rd: rd, rm: rm1, kind: 1}, decodeOK
			default:
				return byteReverse{mnemonic: "REVSH", rd: rd, rm: rm1, kind: 2}, decodeOK
			}
		},
	})
}
