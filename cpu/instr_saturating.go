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

// qSatAdd is QADD/QSUB/QDADD/QDSUB Rd, Rm, Rn: the non-parallel saturating
// add/subtract family (optionally doubling Rn first), per the DSP
// extension. Saturation is sticky in APSR.Q, per the data model.
type qSatAdd struct {
	mnemonic   string
	rd, rm, rn RegID
	doubleRn   bool
	subtract   bool
}

func (i qSatAdd) Name() string { return i.mnemonic }
func (i qSatAdd) Args() string { return fmt.Sprintf("%s, %s, %s", i.rd, i.rm, i.rn) }

func (i qSatAdd) Execute(p *Processor) Effect {
	n := int64(int32(p.Register(i.rn)))
	if i.doubleRn {
		doubled, sat := signedSatQ(n*2, 32)
		if sat {
			p.status.setQ()
		}
		n = int64(doubled)
	}
	m := int64(int32(p.Register(i.rm)))
	var sum int64
	if i.subtract {
		sum = m - n
	} else {
		sum = m + n
	}
	result, sat := signedSatQ(sum, 32)
	if sat {
		p.status.setQ()
	}
	p.SetRegister(i.rd, uint32(result))
	return Effect{}
}

// parallelByteOp is SADD8/SADD16/QADD8/QADD16/QSUB8/QSUB16 Rd, Rn, Rm: a
// SIMD add/subtract across 8-bit or 16-bit lanes, either wrapping (with
// each GE flag set iff the lane's signed sum is non-negative, for the
// plain S* forms) or saturating (for the Q* forms, which do not touch GE).
type parallelByteOp struct {
	mnemonic   string
	rd, rn, rm RegID
	laneBits   uint // 8 or 16
	subtract   bool
	saturating bool
}

func (i parallelByteOp) Name() string { return i.mnemonic }
func (i parallelByteOp) Args() string { return fmt.Sprintf("%s, %s, %s", i.rd, i.rn, i.rm) }

func (i parallelByteOp) Execute(p *Processor) Effect {
	lanes := 32 / i.laneBits
	x, y := p.Register(i.rn), p.Register(i.rm)
	var result uint32
	var ge uint8
	for lane := uint(0); lane < lanes; lane++ {
		shift := lane * i.laneBits
		mask := (uint32(1) << i.laneBits) - 1
		a := int64(int32(signExtend((x>>shift)&mask, i.laneBits)))
		b := int64(int32(signExtend((y>>shift)&mask, i.laneBits)))
		var sum int64
		if i.subtract {
			sum = a - b
		} else {
			sum = a + b
		}
		var lane32 uint32
		if i.saturating {
			sat, _ := signedSatQ(sum, i.laneBits)
			lane32 = uint32(sat) & mask
		} else {
			lane32 = uint32(sum) & mask
			if sum >= 0 {
				bit := uint8(1)
				if i.laneBits == 8 {
					ge |= bit << lane
				} else {
					ge |= (bit<<(2*lane) | bit<<(2*lane+1))
				}
			}
		}
		result |= lane32 << shift
	}
	p.SetRegister(i.rd, result)
	if !i.saturating {
		p.status.ge = ge
	}
	return Effect{}
}

// saturate is SSAT/USAT Rd, #sat_imm, Rn: saturate Rn to a signed or
// unsigned `width`-bit range. The {,shift} pre-shift operand named in the
// full encoding is not modeled - callers needing a pre-shifted SSAT/USAT
// compose it with an explicit shift instruction first.
type saturate struct {
	mnemonic string
	rd, rn   RegID
	width    uint
	signed   bool
}

func (i saturate) Name() string { return i.mnemonic }
func (i saturate) Args() string { return fmt.Sprintf("%s, #%d, %s", i.rd, i.width, i.rn) }

func (i saturate) Execute(p *Processor) Effect {
	v := int64(int32(p.Register(i.rn)))
	if i.signed {
		result, sat := signedSatQ(v, i.width)
		if sat {
			p.status.setQ()
		}
		p.SetRegister(i.rd, uint32(result))
	} else {
		result, sat := unsignedSatQ(v, i.width)
		if sat {
			p.status.setQ()
		}
		p.SetRegister(i.rd, result)
	}
	return Effect{}
}

// usat16 is USAT16 Rd, #sat_imm, Rn: USAT applied independently to each
// 16-bit halfword lane of Rn.
type usat16 struct {
	rd, rn RegID
	width  uint
}

func (i usat16) Name() string { return "USAT16" }
func (i usat16) Args() string { return fmt.Sprintf("%s, #%d, %s", i.rd, i.width, i.rn) }

func (i usat16) Execute(p *Processor) Effect {
	v := p.Register(i.rn)
	var result uint32
	var saturated bool
	for lane := uint(0); lane < 2; lane++ {
		shift := lane * 16
		lo := int64(int32(int16(uint16(v >> shift))))
		lane32, sat := unsignedSatQ(lo, i.width)
		if sat {
			saturated = true
		}
		result |= (lane32 & 0xFFFF) << shift
	}
	if saturated {
		p.status.setQ()
	}
	p.SetRegister(i.rd, result)
	return Effect{}
}

func init() {
	// QADD/QSUB/QDADD/QDSUB Rd, Rm, Rn - 111110101000 nnnn 1111 dddd 10oo mmmm
	registerVariant(variant{
		name:     "qadd-family",
		patterns: []encoding{{tag: "T1", versions: verV7EMUp, pattern: "111110101000xxxx1111xxxx1000xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd, rm := reg4(bits, 16), reg4(bits, 8), reg4(bits, 0)
			return qSatAdd{mnemonic: "QADD", rd: rd, rm: rm, rn: rn}, decodeOK
		},
	})
	registerVariant(variant{
		name:     "qdadd",
		patterns: []encoding{{tag: "T1", versions: verV7EMUp, pattern: "111110101000xxxx1111xxxx1001xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd, rm := reg4(bits, 16), reg4(bits, 8), reg4(bits, 0)
			return qSatAdd{mnemonic: "QDADD", rd: rd, rm: rm, rn: rn, doubleRn: true}, decodeOK
		},
	})
	registerVariant(variant{
		name:     "qsub",
		patterns: []encoding{{tag: "T1", versions: verV7EMUp, pattern: "111110101000xxxx1111xxxx1010xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd, rm := reg4(bits, 16), reg4(bits, 8), reg4(bits, 0)
			return qSatAdd{mnemonic: "QSUB", rd: rd, rm: rm, rn: rn, subtract: true}, decodeOK
		},
	})
	registerVariant(variant{
		name:     "qdsub",
		patterns: []encoding{{tag: "T1", versions: verV7EMUp, pattern: "111110101000xxxx1111xxxx1011xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd, rm := reg4(bits, 16), reg4(bits, 8), reg4(bits, 0)
			return qSatAdd{mnemonic: "QDSUB", rd: rd, rm: rm, rn: rn, subtract: true, doubleRn: true}, decodeOK
		},
	})

	// SADD8/QADD8 Rd, Rn, Rm - 111110101000 nnnn 1111 dddd 0000/0001 mmmm
	registerVariant(variant{
		name:     "sadd8",
		patterns: []encoding{{tag: "T1", versions: verV7EMUp, pattern: "111110101000xxxx1111xxxx0000xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd, rm := reg4(bits, 16), reg4(bits, 8), reg4(bits, 0)
			return parallelByteOp{mnemonic: "SADD8", rd: rd, rn: rn, rm: rm, laneBits: 8}, decodeOK
		},
	})
	registerVariant(variant{
		name:     "qadd8",
		patterns: []encoding{{tag: "T1", versions: verV7EMUp, pattern: "111110101000xxxx1111xxxx0001xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd, rm := reg4(bits, 16), reg4(bits, 8), reg4(bits, 0)
			return parallelByteOp{mnemonic: "QADD8", rd: rd, rn: rn, rm: rm, laneBits: 8, saturating: true}, decodeOK
		},
	})

	// SADD16/QADD16 Rd, Rn, Rm - 111110101001 nnnn 1111 dddd 0000/0001 mmmm
	registerVariant(variant{
		name:     "sadd16",
		patterns: []encoding{{tag: "T1", versions: verV7EMUp, pattern: "111110101001xxxx1111xxxx0000xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd, rm := reg4(bits, 16), reg4(bits, 8), reg4(bits, 0)
			return parallelByteOp{mnemonic: "SADD16", rd: rd, rn: rn, rm: rm, laneBits: 16}, decodeOK
		},
	})
	registerVariant(variant{
		name:     "qadd16",
		patterns: []encoding{{tag: "T1", versions: verV7EMUp, pattern: "111110101001xxxx1111xxxx0001xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd, rm := reg4(bits, 16), reg4(bits, 8), reg4(bits, 0)
			return parallelByteOp{mnemonic: "QADD16", rd: rd, rn: rn, rm: rm, laneBits: 16, saturating: true}, decodeOK
		},
	})

	// QSUB8 Rd, Rn, Rm - 111110101100 nnnn 1111 dddd 0001 mmmm
	registerVariant(variant{
		name:     "qsub8",
		patterns: []encoding{{tag: "T1", versions: verV7EMUp, pattern: "111110101100xxxx1111xxxx0001xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd, rm := reg4(bits, 16), reg4(bits, 8), reg4(bits, 0)
			return parallelByteOp{mnemonic: "QSUB8", rd: rd, rn: rn, rm: rm, laneBits: 8, saturating: true, subtract: true}, decodeOK
		},
	})

	// QSUB16 Rd, Rn, Rm - 111110101101 nnnn 1111 dddd 0001 mmmm
	registerVariant(variant{
		name:     "qsub16",
		patterns: []encoding{{tag: "T1", versions: verV7EMUp, pattern: "111110101101xxxx1111xxxx0001xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd, rm := reg4(bits, 16), reg4(bits, 8), reg4(bits, 0)
			return parallelByteOp{mnemonic: "QSUB16", rd: rd, rn: rn, rm: rm, laneBits: 16, saturating: true, subtract: true}, decodeOK
		},
	})

	// SSAT Rd, #sat_imm, Rn - 111100110000 nnnn 0000 dddd iiiiiiii
	registerVariant(variant{
		name:     "ssat",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111100110000xxxx0000xxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd := reg4(bits, 16), reg4(bits, 8)
			width := uint((bits & 0x1F) + 1)
			return saturate{mnemonic: "SSAT", rd: rd, rn: rn, width: width, signed: true}, decodeOK
		},
	})

	// USAT Rd, #sat_imm, Rn - 111100111010 nnnn 0000 dddd iiiiiiii
	registerVariant(variant{
		name:     "usat",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111100111010xxxx0000xxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd := reg4(bits, 16), reg4(bits, 8)
			width := uint(bits & 0x1F)
			return saturate{mnemonic: "USAT", rd: rd, rn: rn, width: width}, decodeOK
		},
	})

	// USAT16 Rd, #sat_imm, Rn - 111100111011 nnnn 0000 dddd 0000iiii
	registerVariant(variant{
		name:     "usat16",
		patterns: []encoding{{tag: "T1", versions: verV7EMUp, pattern: "111100111011xxxx0000xxxx0000xxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn, rd := reg4(bits, 16), reg4(bits, 8)
			width := uint(bits & 0xF)
			return usat16{rd: rd, rn: rn, width: width}, decodeOK
		},
	})
}
