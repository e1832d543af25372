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
	"strings"
)

// loadStoreMultiple is the LDM/LDMDB/STM/STMDB family, which PUSH and POP
// are assembler aliases of (PUSH = STMDB SP!, POP = LDM SP!). The register
// list is a 16-bit bitmap; registers transfer in ascending number from the
// lowest address, with the lowest address computed up-front for the
// decrement-before forms.
type loadStoreMultiple struct {
	mnemonic string
	rn       RegID
	list     uint16
	load     bool
	before   bool // decrement-before (DB) addressing
	wback    bool
}

func (i loadStoreMultiple) Name() string { return i.mnemonic }
func (i loadStoreMultiple) Args() string {
	regs := make([]string, 0, 16)
	for r := R0; r <= PC; r++ {
		if i.list&(1<<uint(r)) != 0 {
			regs = append(regs, r.String())
		}
	}
	listStr := "{" + strings.Join(regs, ", ") + "}"
	if i.mnemonic == "PUSH" || i.mnemonic == "POP" {
		return listStr
	}
	wb := ""
	if i.wback {
		wb = "!"
	}
	return fmt.Sprintf("%s%s, %s", i.rn, wb, listStr)
}

func (i loadStoreMultiple) Execute(p *Processor) Effect {
	count := uint32(bits.OnesCount16(i.list))
	base := p.Register(i.rn)

	addr := base
	if i.before {
		addr = base - 4*count
	}

	var effect Effect
	a := addr
	for r := R0; r <= PC; r++ {
		if i.list&(1<<uint(r)) == 0 {
			continue
		}
		if i.load {
			v, err := p.memAReadWithPriv(a, 4, p.privileged())
			if err != nil {
				return Effect{Err: err}
			}
			if r == PC {
				effect = p.loadWritePC(v)
				if effect.Err != nil {
					return effect
				}
			} else {
				p.SetRegister(r, v)
			}
		} else {
			if err := p.memAWriteWithPriv(a, 4, p.Register(r), p.privileged()); err != nil {
				return Effect{Err: err}
			}
		}
		a += 4
	}

	if i.wback {
		if i.before {
			p.SetRegister(i.rn, base-4*count)
		} else {
			p.SetRegister(i.rn, base+4*count)
		}
	}
	return effect
}

func init() {
	// STM Rn!, {r0-r7} (T1) - 11000 nnn llllllll
	registerVariant(variant{
		name:     "stm16",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "11000xxxxxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg3(bits32, 8)
			list := uint16(bits32 & 0xFF)
			if bits.OnesCount16(list) < 1 {
				return nil, decodeUnpredictable
			}
			return loadStoreMultiple{mnemonic: "STM", rn: rn, list: list, wback: true}, decodeOK
		},
	})

	// LDM Rn{!}, {r0-r7} (T1) - 11001 nnn llllllll; writeback iff Rn is
	// not in the register list.
	registerVariant(variant{
		name:     "ldm16",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "11001xxxxxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg3(bits32, 8)
			list := uint16(bits32 & 0xFF)
			if bits.OnesCount16(list) < 1 {
				return nil, decodeUnpredictable
			}
			wback := list&(1<<uint(rn)) == 0
			return loadStoreMultiple{mnemonic: "LDM", rn: rn, list: list, load: true, wback: wback}, decodeOK
		},
	})

	// PUSH {r0-r7, lr} (T1) - 1011010 M llllllll
	registerVariant(variant{
		name:     "push16",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "1011010xxxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			list := uint16(bits32 & 0xFF)
			if bits32&0x100 != 0 {
				list |= 1 << uint(LR)
			}
			if bits.OnesCount16(list) < 1 {
				return nil, decodeUnpredictable
			}
			return loadStoreMultiple{mnemonic: "PUSH", rn: SP, list: list, before: true, wback: true}, decodeOK
		},
	})

	// POP {r0-r7, pc} (T1) - 1011110 P llllllll
	registerVariant(variant{
		name:     "pop16",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "1011110xxxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			list := uint16(bits32 & 0xFF)
			if bits32&0x100 != 0 {
				list |= 1 << uint(PC)
			}
			if bits.OnesCount16(list) < 1 {
				return nil, decodeUnpredictable
			}
			if list&(1<<uint(PC)) != 0 && it.inITBlock && !it.lastInITBlock {
				return nil, decodeUnpredictable
			}
			return loadStoreMultiple{mnemonic: "POP", rn: SP, list: list, load: true, wback: true}, decodeOK
		},
	})

	// STM{.W} Rn{!}, registers (T2) - 1110100010W0 nnnn 0M0lllllllllllll
	registerVariant(variant{
		name:     "stm32",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "1110100010x0xxxxzxzxxxxxxxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			wback := (bits32>>21)&1 != 0
			rn := reg4(bits32, 16)
			list := uint16(bits32 & 0x5FFF)
			if rn == PC || bits.OnesCount16(list) < 2 {
				return nil, decodeUnpredictable
			}
			if wback && list&(1<<uint(rn)) != 0 {
				return nil, decodeUnpredictable
			}
			return loadStoreMultiple{mnemonic: "STM", rn: rn, list: list, wback: wback}, decodeOK
		},
	})

	// LDM{.W} Rn{!}, registers (T2) - 1110100010W1 nnnn PM0lllllllllllll.
	// With W=1 and Rn=SP this is POP.W.
	registerVariant(variant{
		name:     "ldm32",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "1110100010x1xxxxxxzxxxxxxxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			wback := (bits32>>21)&1 != 0
			rn := reg4(bits32, 16)
			if wback && rn == SP {
				return nil, decodeOther // POP.W below
			}
			list := uint16(bits32 & 0xDFFF)
			if rn == PC || bits.OnesCount16(list) < 2 {
				return nil, decodeUnpredictable
			}
			if list&(1<<uint(PC)) != 0 && list&(1<<uint(LR)) != 0 {
				return nil, decodeUnpredictable
			}
			if wback && list&(1<<uint(rn)) != 0 {
				return nil, decodeUnpredictable
			}
			if list&(1<<uint(PC)) != 0 && it.inITBlock && !it.lastInITBlock {
				return nil, decodeUnpredictable
			}
			return loadStoreMultiple{mnemonic: "LDM", rn: rn, list: list, load: true, wback: wback}, decodeOK
		},
	})

	// POP.W registers (T2) - LDM SP!, registers
	registerVariant(variant{
		name:     "pop32",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "1110100010111101xxzxxxxxxxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			list := uint16(bits32 & 0xDFFF)
			if bits.OnesCount16(list) < 2 {
				return nil, decodeUnpredictable
			}
			if list&(1<<uint(PC)) != 0 && list&(1<<uint(LR)) != 0 {
				return nil, decodeUnpredictable
			}
			if list&(1<<uint(PC)) != 0 && it.inITBlock && !it.lastInITBlock {
				return nil, decodeUnpredictable
			}
			return loadStoreMultiple{mnemonic: "POP", rn: SP, list: list, load: true, wback: true}, decodeOK
		},
	})

	// STMDB Rn{!}, registers (T1) - 1110100100W0 nnnn 0M0lllllllllllll.
	// With W=1 and Rn=SP this is PUSH.W.
	registerVariant(variant{
		name:     "stmdb",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "1110100100x0xxxxzxzxxxxxxxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			wback := (bits32>>21)&1 != 0
			rn := reg4(bits32, 16)
			list := uint16(bits32 & 0x5FFF)
			if rn == PC || bits.OnesCount16(list) < 2 {
				return nil, decodeUnpredictable
			}
			if wback && list&(1<<uint(rn)) != 0 {
				return nil, decodeUnpredictable
			}
			mnemonic := "STMDB"
			if wback && rn == SP {
				mnemonic = "PUSH"
			}
			return loadStoreMultiple{mnemonic: mnemonic, rn: rn, list: list, before: true, wback: wback}, decodeOK
		},
	})

	// LDMDB Rn{!}, registers (T1) - 1110100100W1 nnnn PM0lllllllllllll
	registerVariant(variant{
		name:     "ldmdb",
		patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: "1110100100x1xxxxxxzxxxxxxxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			wback := (bits32>>21)&1 != 0
			rn := reg4(bits32, 16)
			list := uint16(bits32 & 0xDFFF)
			if rn == PC || bits.OnesCount16(list) < 2 {
				return nil, decodeUnpredictable
			}
			if list&(1<<uint(PC)) != 0 && list&(1<<uint(LR)) != 0 {
				return nil, decodeUnpredictable
			}
			if wback && list&(1<<uint(rn)) != 0 {
				return nil, decodeUnpredictable
			}
			if list&(1<<uint(PC)) != 0 && it.inITBlock && !it.lastInITBlock {
				return nil, decodeUnpredictable
			}
			return loadStoreMultiple{mnemonic: "LDMDB", rn: rn, list: list, load: true, before: true, wback: wback}, decodeOK
		},
	})
}
