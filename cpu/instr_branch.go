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

// bCond is the conditional 16-bit B (T1) and unconditional 16-bit B (T2).
// B is the only instruction consulting a condition field outside of an IT
// block.
type bCond struct {
	cond   uint8
	offset int32 // already sign-extended, in bytes
}

func (i bCond) Name() string     { return "B" }
func (i bCond) Args() string     { return fmt.Sprintf("#%d", i.offset) }
func (i bCond) condition() uint8 { return i.cond }

func (i bCond) Execute(p *Processor) Effect {
	p.regs.pc = uint32(int32(p.regs.pc) + i.offset)
	return Effect{Kind: EffectBranch}
}

// bw is the 32-bit unconditional B (T4) and conditional B (T3) branch
// with a longer offset.
type bw struct {
	cond    uint8
	hasCond bool
	offset  int32
}

func (i bw) Name() string { return "B" }
func (i bw) Args() string { return fmt.Sprintf("#%d", i.offset) }
func (i bw) condition() uint8 {
	if i.hasCond {
		return i.cond
	}
	return 0b1110
}

func (i bw) Execute(p *Processor) Effect {
	p.regs.pc = uint32(int32(p.regs.pc) + i.offset)
	return Effect{Kind: EffectBranch}
}

// blImm is BL label: LR := (address of next instruction)|1, PC := target.
type blImm struct {
	offset int32
}

func (i blImm) Name() string { return "BL" }
func (i blImm) Args() string { return fmt.Sprintf("#%d", i.offset) }

func (i blImm) Execute(p *Processor) Effect {
	p.regs.lr = p.regs.pc | 1
	p.regs.pc = uint32(int32(p.regs.pc) + i.offset)
	return Effect{Kind: EffectBranch}
}

// branchExchange is BX/BLX Rm: interworking branch, optionally linking.
// In Handler mode, a BX target with bits[31:28]==0xF is an exception
// return rather than an ordinary branch.
type branchExchange struct {
	rm   RegID
	link bool
}

func (i branchExchange) Name() string {
	if i.link {
		return "BLX"
	}
	return "BX"
}
func (i branchExchange) Args() string { return i.rm.String() }

func (i branchExchange) Execute(p *Processor) Effect {
	target := p.Register(i.rm)
	if i.link {
		// BLX-write-PC is defined as ALU-write-PC (no exception-return
		// check) - only plain BX can trigger an exception return.
		p.regs.lr = p.regs.pc | 1
		return p.aluWritePC(target)
	}
	return p.bxWritePC(target)
}

// cbz is CBZ/CBNZ Rn, label: compare-and-branch, only takeable outside an
// IT block (enforced at decode time only in the strictest readings; here
// we trust well-formed input, per this package's Thumb-only scope).
type cbz struct {
	rn      RegID
	offset  uint32
	negated bool // true for CBNZ
}

func (i cbz) Name() string {
	if i.negated {
		return "CBNZ"
	}
	return "CBZ"
}
func (i cbz) Args() string { return fmt.Sprintf("%s, #%d", i.rn, i.offset) }

func (i cbz) Execute(p *Processor) Effect {
	zero := p.Register(i.rn) == 0
	if zero != i.negated {
		p.regs.pc += i.offset
		return Effect{Kind: EffectBranch}
	}
	return Effect{}
}

// tableBranch is TBB/TBH [Rn, Rm] / [Rn, Rm, LSL #1]: loads a byte or
// halfword offset table entry at Rn+Rm (or Rn+2*Rm) and branches to
// PC+2*entry.
type tableBranch struct {
	rn, rm RegID
	half   bool
}

func (i tableBranch) Name() string {
	if i.half {
		return "TBH"
	}
	return "TBB"
}
func (i tableBranch) Args() string { return fmt.Sprintf("[%s, %s]", i.rn, i.rm) }

func (i tableBranch) Execute(p *Processor) Effect {
	base := p.Register(i.rn)
	if i.rn == PC {
		base = p.regs.pc
	}
	index := p.Register(i.rm)
	var entry uint32
	if i.half {
		addr := base + index*2
		v, err := p.readU16Unchecked(addr)
		if err != nil {
			return Effect{Err: err}
		}
		entry = uint32(v)
	} else {
		addr := base + index
		v, err := p.readU8(addr)
		if err != nil {
			return Effect{Err: err}
		}
		entry = uint32(v)
	}
	p.regs.pc = p.regs.pc + 2*entry
	return Effect{Kind: EffectBranch}
}

func init() {
	// B<c> (T1) - 1101 cccc iiiiiiii (cond 1110/1111 excluded - AL/SVC)
	registerVariant(variant{
		name:     "b-t1",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "1101xxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			cond := uint8((bits >> 8) & 0xF)
			if cond == 0b1111 || cond == 0b1110 {
				return nil, decodeOther // SVC / unconditional handled elsewhere
			}
			imm8 := int32(int8(bits & 0xFF))
			return bCond{cond: cond, offset: imm8 * 2}, decodeOK
		},
	})

	// B (T2), unconditional - 11100 iiiiiiiiiii
	registerVariant(variant{
		name:     "b-t2",
		patterns: []encoding{{tag: "T2", versions: verAll, pattern: "11100xxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			imm11 := bits & 0x7FF
			offset := signExtend(imm11<<1, 12)
			return bCond{cond: 0b1110, offset: int32(offset)}, decodeOK
		},
	})

	// B<c>.W label (T3) - 11110 S cccc iiiiii 10 J1 0 J2 iiiiiiiiiii.
	// cond high bits 111x mean this is really one of the miscellaneous
	// control encodings (hints, barriers, MSR/MRS, UDF.W).
	registerVariant(variant{
		name:     "b-t3",
		patterns: []encoding{{tag: "T3", versions: verV7Up, pattern: "11110xxxxxxxxxxx10x0xxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			cond := uint8((bits >> 22) & 0xF)
			if cond>>1 == 0b111 {
				return nil, decodeOther
			}
			if it.inITBlock {
				return nil, decodeUnpredictable
			}
			s := (bits >> 26) & 1
			j1 := (bits >> 13) & 1
			j2 := (bits >> 11) & 1
			imm6 := (bits >> 16) & 0x3F
			imm11 := bits & 0x7FF
			imm := s<<20 | j2<<19 | j1<<18 | imm6<<12 | imm11<<1
			return bw{cond: cond, hasCond: true, offset: int32(signExtend(imm, 21))}, decodeOK
		},
	})

	// B.W label (T4) - 11110 S iiiiiiiiii 10 J1 1 J2 iiiiiiiiiii
	registerVariant(variant{
		name:     "b-t4",
		patterns: []encoding{{tag: "T4", versions: verV7Up, pattern: "11110xxxxxxxxxxx10x1xxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			if it.inITBlock && !it.lastInITBlock {
				return nil, decodeUnpredictable
			}
			s := (bits >> 26) & 1
			imm10 := (bits >> 16) & 0x3FF
			j1 := (bits >> 13) & 1
			j2 := (bits >> 11) & 1
			imm11 := bits & 0x7FF
			i1 := 1 - (j1 ^ s)
			i2 := 1 - (j2 ^ s)
			imm := s<<24 | i1<<23 | i2<<22 | imm10<<12 | imm11<<1
			return bw{offset: int32(signExtend(imm, 25))}, decodeOK
		},
	})

	// BL label (T1, 32-bit) - 11110 S iiiiiiiiii 11 J1 1 J2 iiiiiiiiiii
	registerVariant(variant{
		name:     "bl",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "11110xxxxxxxxxxx11x1xxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			s := (bits >> 26) & 1
			imm10 := (bits >> 16) & 0x3FF
			j1 := (bits >> 13) & 1
			j2 := (bits >> 11) & 1
			imm11 := bits & 0x7FF
			i1 := 1 - (j1 ^ s)
			i2 := 1 - (j2 ^ s)
			imm := s<<24 | i1<<23 | i2<<22 | imm10<<12 | imm11<<1
			return blImm{offset: int32(signExtend(imm, 25))}, decodeOK
		},
	})

	// CBZ/CBNZ Rn, label - 1011 o 0 i1 1 iiiii nnn
	registerVariant(variant{
		name:     "cbz",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "1011x0x1xxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			negated := (bits>>11)&1 != 0
			i := (bits >> 9) & 1
			imm5 := (bits >> 3) & 0x1F
			rn := reg3(bits, 0)
			offset := (i<<6 | imm5<<1)
			return cbz{rn: rn, offset: offset, negated: negated}, decodeOK
		},
	})

	// TBB/TBH [Rn, Rm{, LSL #1}] - 111010001101 nnnn 1111 0000 000 h mmmm
	registerVariant(variant{
		name:     "tb",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111010001101xxxx11110000000xxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg4(bits, 16)
			half := (bits>>4)&1 != 0
			rm := reg4(bits, 0)
			return tableBranch{rn: rn, rm: rm, half: half}, decodeOK
		},
	})
}
