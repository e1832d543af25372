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

// hint is NOP/YIELD/WFE/WFI/SEV in both the 16-bit T1 and 32-bit T2
// encodings. YIELD is architecturally a NOP on a single-core emulation;
// WFE/WFI report their effect to the pipeline, which owns the event flag
// and the suspension states.
type hint struct {
	mnemonic string
	effect   EffectKind
}

func (i hint) Name() string { return i.mnemonic }
func (i hint) Args() string { return "" }

func (i hint) Execute(p *Processor) Effect {
	if i.mnemonic == "SEV" {
		p.eventFlag = true
		return Effect{}
	}
	return Effect{Kind: i.effect}
}

// decodeHint maps an 8-bit hint operand to its instruction. Unallocated
// hint operands execute as NOPs, per "B4.1 Hint instructions".
func decodeHint(op8 uint32, wide bool) (Instruction, decodeOutcome) {
	switch op8 {
	case 0x00:
		return hint{mnemonic: "NOP"}, decodeOK
	case 0x01:
		return hint{mnemonic: "YIELD"}, decodeOK
	case 0x02:
		return hint{mnemonic: "WFE", effect: EffectWaitForEvent}, decodeOK
	case 0x03:
		return hint{mnemonic: "WFI", effect: EffectWaitForInterrupt}, decodeOK
	case 0x04:
		return hint{mnemonic: "SEV"}, decodeOK
	case 0x14:
		if !wide {
			return hint{mnemonic: "NOP"}, decodeOK
		}
		return hint{mnemonic: "CSDB"}, decodeOK
	}
	return hint{mnemonic: "NOP"}, decodeOK
}

// itInstruction loads a fresh IT state. The pipeline advances IT state
// before execute, so the state written here survives into the next step
// untouched.
type itInstruction struct {
	firstCond uint8
	mask      uint8
}

func (i itInstruction) Name() string {
	// the then/else suffix expands from the mask: positions between the
	// top of the mask and its terminating bit append T when the mask bit
	// matches firstCond bit 0, E otherwise.
	s := "IT"
	for pos := 3; pos > bits.TrailingZeros8(i.mask); pos-- {
		if (i.mask>>uint(pos))&1 == i.firstCond&1 {
			s += "T"
		} else {
			s += "E"
		}
	}
	return s
}

func (i itInstruction) Args() string { return condName(i.firstCond) }

func (i itInstruction) Execute(p *Processor) Effect {
	p.status.itCond = i.firstCond
	p.status.itMask = i.mask
	return Effect{}
}

// condName renders a condition code for disassembly.
func condName(cond uint8) string {
	names := [...]string{"EQ", "NE", "CS", "CC", "MI", "PL", "VS", "VC", "HI", "LS", "GE", "LT", "GT", "LE", "AL", ""}
	return names[cond&0xF]
}

// barrier is DMB/DSB/ISB (and the v8-M SSBB/PSSBB aliases of DSB): all
// no-ops here since the emulator executes in strict program order, but they
// decode and disassemble faithfully.
type barrier struct {
	mnemonic string
	option   uint8
}

func (i barrier) Name() string { return i.mnemonic }
func (i barrier) Args() string {
	if i.mnemonic == "SSBB" || i.mnemonic == "PSSBB" {
		return ""
	}
	if i.option == 0xF {
		return "SY"
	}
	return fmt.Sprintf("#%d", i.option)
}

func (i barrier) Execute(p *Processor) Effect { return Effect{} }

// svc raises the SVCall exception, taken at the start of the next step.
type svc struct {
	imm8 uint8
}

func (i svc) Name() string { return "SVC" }
func (i svc) Args() string { return fmt.Sprintf("#%d", i.imm8) }

func (i svc) Execute(p *Processor) Effect {
	p.pending.add(ExceptionSVCall)
	p.eventFlag = true
	return Effect{}
}

// bkpt halts with a Break event carrying the immediate.
type bkpt struct {
	imm8 uint8
}

func (i bkpt) Name() string { return "BKPT" }
func (i bkpt) Args() string { return fmt.Sprintf("#%#02x", i.imm8) }

func (i bkpt) Execute(p *Processor) Effect {
	return Effect{Kind: EffectBreak, Imm8: i.imm8}
}

// dbg is a debug hint; the 4-bit option is surfaced as an event.
type dbg struct {
	option uint8
}

func (i dbg) Name() string { return "DBG" }
func (i dbg) Args() string { return fmt.Sprintf("#%d", i.option) }

func (i dbg) Execute(p *Processor) Effect {
	return Effect{Kind: EffectDebugHint, Imm8: i.option}
}

// special register SYSm encodings used by MRS/MSR, per "B5.1 Special
// register encodings".
const (
	sysmAPSR       = 0
	sysmIAPSR      = 1
	sysmEAPSR      = 2
	sysmXPSR       = 3
	sysmIPSR       = 5
	sysmEPSR       = 6
	sysmIEPSR      = 7
	sysmMSP        = 8
	sysmPSP        = 9
	sysmPRIMASK    = 16
	sysmBASEPRI    = 17
	sysmBASEPRIMAX = 18
	sysmFAULTMASK  = 19
	sysmCONTROL    = 20
)

func sysmName(sysm uint8) string {
	switch sysm {
	case sysmAPSR:
		return "APSR"
	case sysmIAPSR:
		return "IAPSR"
	case sysmEAPSR:
		return "EAPSR"
	case sysmXPSR:
		return "XPSR"
	case sysmIPSR:
		return "IPSR"
	case sysmEPSR:
		return "EPSR"
	case sysmIEPSR:
		return "IEPSR"
	case sysmMSP:
		return "MSP"
	case sysmPSP:
		return "PSP"
	case sysmPRIMASK:
		return "PRIMASK"
	case sysmBASEPRI:
		return "BASEPRI"
	case sysmBASEPRIMAX:
		return "BASEPRI_MAX"
	case sysmFAULTMASK:
		return "FAULTMASK"
	case sysmCONTROL:
		return "CONTROL"
	}
	return fmt.Sprintf("SYSm(%d)", sysm)
}

// mrs reads a special register into Rd. An unprivileged read of the mask
// registers returns zero rather than faulting, per "B5.2.2 MRS".
type mrs struct {
	rd   RegID
	sysm uint8
}

func (i mrs) Name() string { return "MRS" }
func (i mrs) Args() string { return fmt.Sprintf("%s, %s", i.rd, sysmName(i.sysm)) }

func (i mrs) Execute(p *Processor) Effect {
	var v uint32
	switch i.sysm {
	case sysmAPSR:
		v = p.status.apsr()
	case sysmIAPSR:
		v = p.status.apsr() | uint32(p.status.exceptionNumber)
	case sysmEAPSR:
		v = p.status.apsr() | p.status.epsr()
	case sysmXPSR:
		v = p.status.xpsr()
	case sysmIPSR:
		v = uint32(p.status.exceptionNumber)
	case sysmEPSR:
		v = p.status.epsr()
	case sysmIEPSR:
		v = p.status.epsr() | uint32(p.status.exceptionNumber)
	case sysmMSP:
		v = p.regs.msp
	case sysmPSP:
		v = p.regs.psp
	case sysmPRIMASK:
		if p.privileged() {
			v = p.regs.Read(PRIMASK, p.status.mode())
		}
	case sysmBASEPRI, sysmBASEPRIMAX:
		if p.privileged() {
			v = uint32(p.regs.basepri)
		}
	case sysmFAULTMASK:
		if p.privileged() {
			v = p.regs.Read(FAULTMASK, p.status.mode())
		}
	case sysmCONTROL:
		v = uint32(p.regs.control)
	}
	p.SetRegister(i.rd, v)
	return Effect{}
}

// msr writes a special register from Rn. The mask field selects, for the
// APSR forms, whether the flag byte (bit 1, "_nzcvq") and/or the GE byte
// (bit 0, "_g") are written. Writes to the mask registers and CONTROL are
// silently ignored when unprivileged, per "B5.2.3 MSR".
type msr struct {
	rn   RegID
	sysm uint8
	mask uint8
}

func (i msr) Name() string { return "MSR" }
func (i msr) Args() string { return fmt.Sprintf("%s, %s", sysmName(i.sysm), i.rn) }

func (i msr) Execute(p *Processor) Effect {
	v := p.Register(i.rn)
	writeAPSR := func() {
		if i.mask&0x2 != 0 {
			cur := p.status.apsr() & 0x000F0000
			p.status.setAPSR(v&0xF8000000 | cur)
		}
		if i.mask&0x1 != 0 {
			p.status.ge = uint8((v >> 16) & 0xF)
		}
	}
	switch i.sysm {
	case sysmAPSR, sysmIAPSR, sysmEAPSR, sysmXPSR:
		writeAPSR()
	case sysmMSP:
		if p.privileged() {
			p.regs.msp = v
		}
	case sysmPSP:
		if p.privileged() {
			p.regs.psp = v
		}
	case sysmPRIMASK:
		if p.privileged() {
			p.regs.Write(PRIMASK, p.status.mode(), v)
		}
	case sysmBASEPRI:
		if p.privileged() {
			p.regs.Write(BASEPRI, p.status.mode(), v)
		}
	case sysmBASEPRIMAX:
		if p.privileged() {
			p.regs.Write(BASEPRIMASK, p.status.mode(), v)
		}
	case sysmFAULTMASK:
		if p.privileged() {
			p.regs.Write(FAULTMASK, p.status.mode(), v)
		}
	case sysmCONTROL:
		if p.privileged() {
			p.regs.Write(CONTROL, p.status.mode(), v)
		}
	}
	return Effect{}
}

// cps sets or clears PRIMASK/FAULTMASK. Unprivileged execution is a no-op.
type cps struct {
	disable bool // CPSID when true, CPSIE when false
	affectI bool
	affectF bool
}

func (i cps) Name() string {
	if i.disable {
		return "CPSID"
	}
	return "CPSIE"
}

func (i cps) Args() string {
	s := ""
	if i.affectI {
		s += "i"
	}
	if i.affectF {
		s += "f"
	}
	return s
}

func (i cps) Execute(p *Processor) Effect {
	if !p.privileged() {
		return Effect{}
	}
	if i.affectI {
		p.regs.primask = i.disable
	}
	if i.affectF {
		// FAULTMASK can only be raised when the current execution
		// priority allows it; with this scheduler that means not inside
		// NMI or HardFault.
		if !i.disable || (p.status.exceptionNumber != ExceptionNMI && p.status.exceptionNumber != ExceptionHardFault) {
			p.regs.faultmask = i.disable
		}
	}
	return Effect{}
}

// preload is PLD/PLI in all their forms: performance hints with no
// architectural effect beyond decoding.
type preload struct {
	mnemonic string
	rn       RegID
}

func (i preload) Name() string { return i.mnemonic }
func (i preload) Args() string { return fmt.Sprintf("[%s, ...]", i.rn) }

func (i preload) Execute(p *Processor) Effect { return Effect{} }

func init() {
	// IT and the 16-bit hints share the 10111111 prefix: a zero mask
	// nibble means hint, anything else is IT.
	registerVariant(variant{
		name:     "it-hints16",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "10111111xxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			firstCond := uint8((bits32 >> 4) & 0xF)
			mask := uint8(bits32 & 0xF)
			if mask == 0 {
				return decodeHint(uint32(firstCond), false)
			}
			if !validateITState(firstCond, mask) {
				return nil, decodeUnpredictable
			}
			if it.inITBlock {
				return nil, decodeUnpredictable
			}
			return itInstruction{firstCond: firstCond, mask: mask}, decodeOK
		},
	})

	// 32-bit hints (NOP.W, YIELD.W, WFE.W, WFI.W, SEV.W, CSDB) and DBG -
	// 111100111010 (1)(1)(1)(1) 10 (0)0 (0)000 hhhhhhhh
	registerVariant(variant{
		name:     "hints32",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "111100111010oooo10z0z000xxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			op8 := bits32 & 0xFF
			if op8&0xF0 == 0xF0 {
				return dbg{option: uint8(op8 & 0xF)}, decodeOK
			}
			return decodeHint(op8, true)
		},
	})

	// DMB/DSB/ISB (and SSBB/PSSBB) - 111100111011 (1)(1)(1)(1) 10 (0)0
	// (1)(1)(1)(1) 01oo oooo
	registerVariant(variant{
		name:     "barrier",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "111100111011oooo10z0oooo01xxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			op := (bits32 >> 4) & 0xF
			option := uint8(bits32 & 0xF)
			switch op {
			case 0b0100:
				switch option {
				case 0x0:
					return barrier{mnemonic: "SSBB"}, decodeOK
				case 0x4:
					return barrier{mnemonic: "PSSBB", option: 4}, decodeOK
				}
				return barrier{mnemonic: "DSB", option: option}, decodeOK
			case 0b0101:
				return barrier{mnemonic: "DMB", option: option}, decodeOK
			case 0b0110:
				return barrier{mnemonic: "ISB", option: option}, decodeOK
			}
			return nil, decodeOther
		},
	})

	// SVC #imm8 - 11011111 iiiiiiii (the would-be B T1 with cond=1111)
	registerVariant(variant{
		name:     "svc",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "11011111xxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			return svc{imm8: uint8(bits32 & 0xFF)}, decodeOK
		},
	})

	// BKPT #imm8 - 10111110 iiiiiiii
	registerVariant(variant{
		name:     "bkpt",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "10111110xxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			return bkpt{imm8: uint8(bits32 & 0xFF)}, decodeOK
		},
	})

	// UDF #imm8 (T1) - 11011110 iiiiiiii: permanently undefined.
	registerVariant(variant{
		name:     "udf16",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "11011110xxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			return nil, decodeUndefined
		},
	})

	// UDF.W #imm16 (T2) - 111101111111 xxxx 1010 xxxxxxxxxxxx
	registerVariant(variant{
		name:     "udf32",
		patterns: []encoding{{tag: "T2", versions: verAll, pattern: "111101111111xxxx1010xxxxxxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			return nil, decodeUndefined
		},
	})

	// MRS Rd, spec_reg - 11110011111 0 (1)(1)(1)(1) 10 (0)0 dddd ssssssss
	registerVariant(variant{
		name:     "mrs",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "111100111110oooo10z0xxxxxxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			rd := reg4(bits32, 8)
			if rd == SP || rd == PC {
				return nil, decodeUnpredictable
			}
			return mrs{rd: rd, sysm: uint8(bits32 & 0xFF)}, decodeOK
		},
	})

	// MSR spec_reg, Rn - 11110011100 0 nnnn 10 (0)0 mm (0)(0) ssssssss
	registerVariant(variant{
		name:     "msr",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "111100111000xxxx10z0xxzzxxxxxxxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg4(bits32, 16)
			if rn == SP || rn == PC {
				return nil, decodeUnpredictable
			}
			mask := uint8((bits32 >> 10) & 0x3)
			sysm := uint8(bits32 & 0xFF)
			if sysm <= sysmXPSR && mask == 0 {
				return nil, decodeUnpredictable
			}
			return msr{rn: rn, sysm: sysm, mask: mask}, decodeOK
		},
	})

	// CPSIE/CPSID - 10110110011 im (0) (0) I F
	registerVariant(variant{
		name:     "cps",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "10110110011xzzxx"}},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			if it.inITBlock {
				return nil, decodeUnpredictable
			}
			disable := (bits32>>4)&1 != 0
			affectI := bits32&0x2 != 0
			affectF := bits32&0x1 != 0
			if !affectI && !affectF {
				return nil, decodeUnpredictable
			}
			return cps{disable: disable, affectI: affectI, affectF: affectF}, decodeOK
		},
	})

	// PLD/PLDW [Rn, #imm12] and PLI [Rn, #imm12] - the Rt=1111 space of
	// the byte/halfword load encodings.
	registerVariant(variant{
		name: "preload",
		patterns: []encoding{
			{tag: "pld", versions: verV7Up, pattern: "1111100010x1xxxx1111xxxxxxxxxxxx"},
			{tag: "pli", versions: verV7Up, pattern: "111110011001xxxx1111xxxxxxxxxxxx"},
		},
		decode: func(tag string, bits32 uint32, it itStateView) (Instruction, decodeOutcome) {
			rn := reg4(bits32, 16)
			mnemonic := "PLD"
			if tag == "pli" {
				mnemonic = "PLI"
			}
			return preload{mnemonic: mnemonic, rn: rn}, decodeOK
		},
	})
}
