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

// loadExclusive is LDREX/LDREXB/LDREXH: performs the load and tags the
// exclusive monitor with the granule-aligned address.
type loadExclusive struct {
	mnemonic string
	rt, rn   RegID
	imm      uint32
	size     uint32
}

func (i loadExclusive) Name() string { return i.mnemonic }
func (i loadExclusive) Args() string {
	if i.imm != 0 {
		return fmt.Sprintf("%s, [%s, #%d]", i.rt, i.rn, i.imm)
	}
	return fmt.Sprintf("%s, [%s]", i.rt, i.rn)
}

func (i loadExclusive) Execute(p *Processor) Effect {
	addr := p.Register(i.rn) + i.imm
	p.monitor.setExclusive(addr)
	v, err := p.memAReadWithPriv(addr, i.size, p.privileged())
	if err != nil {
		return Effect{Err: err}
	}
	p.SetRegister(i.rt, v)
	return Effect{}
}

// storeExclusive is STREX/STREXB/STREXH: the store happens only if the
// monitor holds a matching reservation; Rd receives 0 on success, 1 on
// failure. The reservation is consumed either way.
type storeExclusive struct {
	mnemonic   string
	rd, rt, rn RegID
	imm        uint32
	size       uint32
}

func (i storeExclusive) Name() string { return i.mnemonic }
func (i storeExclusive) Args() string {
	if i.imm != 0 {
		return fmt.Sprintf("%s, %s, [%s, #%d]", i.rd, i.rt, i.rn, i.imm)
	}
	return fmt.Sprintf("%s, %s, [%s]", i.rd, i.rt, i.rn)
}

func (i storeExclusive) Execute(p *Processor) Effect {
	addr := p.Register(i.rn) + i.imm
	if !p.monitor.exclusivePasses(addr) {
		p.SetRegister(i.rd, 1)
		return Effect{}
	}
	if err := p.memAWriteWithPriv(addr, i.size, p.Register(i.rt), p.privileged()); err != nil {
		return Effect{Err: err}
	}
	p.SetRegister(i.rd, 0)
	return Effect{}
}

// clrex clears any outstanding exclusive reservation.
type clrex struct{}

func (i clrex) Name() string { return "CLREX" }
func (i clrex) Args() string { return "" }

func (i clrex) Execute(p *Processor) Effect {
	p.monitor.clear()
	return Effect{}
}

func init() {
	// STREX Rd, Rt, [Rn, #imm8*4] - 111010000100 nnnn tttt dddd iiiiiiii
	registerVariant(variant{
		name:     "strex",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111010000100xxxxxxxxxxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg4(bits, 16)
			rt := reg4(bits, 12)
			rd := reg4(bits, 8)
			imm8 := bits & 0xFF
			if rd == SP || rd == PC || rt == SP || rt == PC || rn == PC {
				return nil, decodeUnpredictable
			}
			if rd == rn || rd == rt {
				return nil, decodeUnpredictable
			}
			return storeExclusive{mnemonic: "STREX", rd: rd, rt: rt, rn: rn, imm: imm8 * 4, size: 4}, decodeOK
		},
	})

	// LDREX Rt, [Rn, #imm8*4] - 111010000101 nnnn tttt (1)(1)(1)(1) iiiiiiii
	registerVariant(variant{
		name:     "ldrex",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111010000101xxxxxxxxooooxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg4(bits, 16)
			rt := reg4(bits, 12)
			imm8 := bits & 0xFF
			if rt == SP || rt == PC || rn == PC {
				return nil, decodeUnpredictable
			}
			return loadExclusive{mnemonic: "LDREX", rt: rt, rn: rn, imm: imm8 * 4, size: 4}, decodeOK
		},
	})

	// STREXB/STREXH Rd, Rt, [Rn] - 111010001100 nnnn tttt (1)(1)(1)(1) 010s dddd
	registerVariant(variant{
		name:     "strexbh",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111010001100xxxxxxxxoooo010xxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg4(bits, 16)
			rt := reg4(bits, 12)
			rd := reg4(bits, 0)
			half := (bits>>4)&1 != 0
			if rd == SP || rd == PC || rt == SP || rt == PC || rn == PC {
				return nil, decodeUnpredictable
			}
			if rd == rn || rd == rt {
				return nil, decodeUnpredictable
			}
			mnemonic, size := "STREXB", uint32(1)
			if half {
				mnemonic, size = "STREXH", 2
			}
			return storeExclusive{mnemonic: mnemonic, rd: rd, rt: rt, rn: rn, size: size}, decodeOK
		},
	})

	// LDREXB/LDREXH Rt, [Rn] - 111010001101 nnnn tttt (1)(1)(1)(1) 010s (1)(1)(1)(1)
	registerVariant(variant{
		name:     "ldrexbh",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111010001101xxxxxxxxoooo010xoooo"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg4(bits, 16)
			rt := reg4(bits, 12)
			half := (bits>>4)&1 != 0
			if rt == SP || rt == PC || rn == PC {
				return nil, decodeUnpredictable
			}
			mnemonic, size := "LDREXB", uint32(1)
			if half {
				mnemonic, size = "LDREXH", 2
			}
			return loadExclusive{mnemonic: mnemonic, rt: rt, rn: rn, size: size}, decodeOK
		},
	})

	// CLREX - 111100111011 (1)(1)(1)(1) 10 (0)0 (1)(1)(1)(1) 0010 (1)(1)(1)(1)
	registerVariant(variant{
		name:     "clrex",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "111100111011oooo10z0oooo0010oooo"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			return clrex{}, decodeOK
		},
	})
}
