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

	"github.com/cortexm/thumbm/armlog"
)

// coprocAccepted resolves the coprocessor slot for a raw instruction word
// and asks it to claim the encoding. A nil slot or a rejection raises a
// NOCP UsageFault.
func (p *Processor) coprocAccepted(cp uint32, opcode uint32) (Coprocessor, bool) {
	impl := p.coprocs[cp&0xF]
	if impl == nil || !impl.Accepted(opcode) {
		armlog.Logf("coprocessor", "p%d rejected opcode %#08x", cp&0xF, opcode)
		p.scb.SetNoCP()
		p.pending.add(ExceptionUsageFault)
		p.eventFlag = true
		return nil, false
	}
	return impl, true
}

// cdp is CDP/CDP2: a coprocessor-internal operation with no GPR transfer.
type cdp struct {
	opcode uint32
	cp     uint32
	alt    bool // CDP2
}

func (i cdp) Name() string {
	if i.alt {
		return "CDP2"
	}
	return "CDP"
}
func (i cdp) Args() string { return fmt.Sprintf("p%d, ...", i.cp) }

func (i cdp) Execute(p *Processor) Effect {
	impl, ok := p.coprocAccepted(i.cp, i.opcode)
	if !ok {
		return Effect{}
	}
	impl.InternalOperation(i.opcode)
	return Effect{}
}

// mcr is MCR/MCR2 (one GPR to coprocessor) and mrc is MRC/MRC2 (one word
// back). An MRC with Rt=15 writes the top four bits into the APSR flags
// instead of a GPR, per "A7.7.77 MRC".
type mcr struct {
	opcode uint32
	cp     uint32
	rt     RegID
	alt    bool
}

func (i mcr) Name() string {
	if i.alt {
		return "MCR2"
	}
	return "MCR"
}
func (i mcr) Args() string { return fmt.Sprintf("p%d, %s, ...", i.cp, i.rt) }

func (i mcr) Execute(p *Processor) Effect {
	impl, ok := p.coprocAccepted(i.cp, i.opcode)
	if !ok {
		return Effect{}
	}
	impl.SendOneWord(i.opcode, p.Register(i.rt))
	return Effect{}
}

type mrc struct {
	opcode uint32
	cp     uint32
	rt     RegID
	alt    bool
}

func (i mrc) Name() string {
	if i.alt {
		return "MRC2"
	}
	return "MRC"
}
func (i mrc) Args() string { return fmt.Sprintf("p%d, %s, ...", i.cp, i.rt) }

func (i mrc) Execute(p *Processor) Effect {
	impl, ok := p.coprocAccepted(i.cp, i.opcode)
	if !ok {
		return Effect{}
	}
	v := impl.GetOneWord(i.opcode)
	if i.rt == PC {
		p.status.negative = v&(1<<31) != 0
		p.status.zero = v&(1<<30) != 0
		p.status.carry = v&(1<<29) != 0
		p.status.overflow = v&(1<<28) != 0
		return Effect{}
	}
	p.SetRegister(i.rt, v)
	return Effect{}
}

// mcrr/mrrc move two GPRs to/from a coprocessor in one instruction.
type mcrr struct {
	opcode  uint32
	cp      uint32
	rt, rt2 RegID
	load    bool // MRRC when true
	alt     bool
}

func (i mcrr) Name() string {
	switch {
	case i.load && i.alt:
		return "MRRC2"
	case i.load:
		return "MRRC"
	case i.alt:
		return "MCRR2"
	}
	return "MCRR"
}
func (i mcrr) Args() string { return fmt.Sprintf("p%d, %s, %s, ...", i.cp, i.rt, i.rt2) }

func (i mcrr) Execute(p *Processor) Effect {
	impl, ok := p.coprocAccepted(i.cp, i.opcode)
	if !ok {
		return Effect{}
	}
	if i.load {
		v1, v2 := impl.GetTwoWords(i.opcode)
		p.SetRegister(i.rt, v1)
		p.SetRegister(i.rt2, v2)
		return Effect{}
	}
	impl.SendTwoWords(i.opcode, p.Register(i.rt), p.Register(i.rt2))
	return Effect{}
}

// ldcStc is LDC/LDC2/STC/STC2: word transfers between memory and the
// coprocessor, looping until the coprocessor reports the transfer
// complete via DoneLoading/DoneStoring.
type ldcStc struct {
	opcode uint32
	cp     uint32
	rn     RegID
	imm    uint32
	add    bool
	index  bool
	wback  bool
	load   bool
	alt    bool
}

func (i ldcStc) Name() string {
	switch {
	case i.load && i.alt:
		return "LDC2"
	case i.load:
		return "LDC"
	case i.alt:
		return "STC2"
	}
	return "STC"
}
func (i ldcStc) Args() string { return fmt.Sprintf("p%d, [%s, #%d]", i.cp, i.rn, i.imm) }

func (i ldcStc) Execute(p *Processor) Effect {
	impl, ok := p.coprocAccepted(i.cp, i.opcode)
	if !ok {
		return Effect{}
	}
	base := p.Register(i.rn)
	if i.rn == PC {
		base = p.regs.pc &^ 3
	}
	var effectiveAddr uint32
	if i.add {
		effectiveAddr = base + i.imm
	} else {
		effectiveAddr = base - i.imm
	}
	addr := base
	if i.index {
		addr = effectiveAddr
	}

	if i.load {
		for !impl.DoneLoading(i.opcode) {
			v, err := p.memAReadWithPriv(addr, 4, p.privileged())
			if err != nil {
				return Effect{Err: err}
			}
			impl.LoadedWord(i.opcode, v)
			addr += 4
		}
	} else {
		for !impl.DoneStoring(i.opcode) {
			if err := p.memAWriteWithPriv(addr, 4, impl.GetWordToStore(i.opcode), p.privileged()); err != nil {
				return Effect{Err: err}
			}
			addr += 4
		}
	}

	if i.wback {
		p.SetRegister(i.rn, effectiveAddr)
	}
	return Effect{}
}

func init() {
	// CDP/CDP2 - 111x1110 oooo nnnn dddd cccc ooo0 mmmm
	registerVariant(variant{
		name: "cdp",
		patterns: []encoding{
			{tag: "T1", versions: verAll, pattern: "11101110xxxxxxxxxxxxxxxxxxx0xxxx"},
			{tag: "T2", versions: verAll, pattern: "11111110xxxxxxxxxxxxxxxxxxx0xxxx"},
		},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			cp := (bits >> 8) & 0xF
			return cdp{opcode: bits, cp: cp, alt: tag == "T2"}, decodeOK
		},
	})

	// MCR/MCR2 and MRC/MRC2 - 111x1110 ooo L nnnn tttt cccc ooo1 mmmm
	registerVariant(variant{
		name: "mcr-mrc",
		patterns: []encoding{
			{tag: "T1", versions: verAll, pattern: "11101110xxxxxxxxxxxxxxxxxxx1xxxx"},
			{tag: "T2", versions: verAll, pattern: "11111110xxxxxxxxxxxxxxxxxxx1xxxx"},
		},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			cp := (bits >> 8) & 0xF
			rt := reg4(bits, 12)
			load := (bits>>20)&1 != 0
			alt := tag == "T2"
			if load {
				return mrc{opcode: bits, cp: cp, rt: rt, alt: alt}, decodeOK
			}
			if rt == SP || rt == PC {
				return nil, decodeUnpredictable
			}
			return mcr{opcode: bits, cp: cp, rt: rt, alt: alt}, decodeOK
		},
	})

	// MCRR/MCRR2 and MRRC/MRRC2 - 111x11000100/0101 tttt2 tttt cccc oooo mmmm
	registerVariant(variant{
		name: "mcrr-mrrc",
		patterns: []encoding{
			{tag: "T1", versions: verAll, pattern: "11101100010xxxxxxxxxxxxxxxxxxxxx"},
			{tag: "T2", versions: verAll, pattern: "11111100010xxxxxxxxxxxxxxxxxxxxx"},
		},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			load := (bits>>20)&1 != 0
			rt2 := reg4(bits, 16)
			rt := reg4(bits, 12)
			cp := (bits >> 8) & 0xF
			if rt == SP || rt == PC || rt2 == SP || rt2 == PC {
				return nil, decodeUnpredictable
			}
			if load && rt == rt2 {
				return nil, decodeUnpredictable
			}
			return mcrr{opcode: bits, cp: cp, rt: rt, rt2: rt2, load: load, alt: tag == "T2"}, decodeOK
		},
	})

	// LDC/LDC2/STC/STC2 - 111x110 P U N W L nnnn dddd cccc iiiiiiii, with
	// the 0x00 P/U/W combination carved out for MCRR/MRRC above.
	registerVariant(variant{
		name: "ldc-stc",
		patterns: []encoding{
			{tag: "T1", versions: verAll, pattern: "1110110xxxxxxxxxxxxxxxxxxxxxxxxx"},
			{tag: "T2", versions: verAll, pattern: "1111110xxxxxxxxxxxxxxxxxxxxxxxxx"},
		},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			pre := (bits >> 24) & 1
			add := (bits >> 23) & 1
			wback := (bits >> 21) & 1
			load := (bits>>20)&1 != 0
			if pre == 0 && add == 0 && wback == 0 {
				return nil, decodeOther // MCRR/MRRC space
			}
			rn := reg4(bits, 16)
			cp := (bits >> 8) & 0xF
			imm8 := bits & 0xFF
			if rn == PC && wback == 1 {
				return nil, decodeUnpredictable
			}
			return ldcStc{
				opcode: bits, cp: cp, rn: rn, imm: imm8 * 4,
				add: add == 1, index: pre == 1, wback: wback == 1,
				load: load, alt: tag == "T2",
			}, decodeOK
		},
	})
}
