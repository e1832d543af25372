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

// loadStoreImm is the single-register load/store immediate-offset family:
// LDR/STR/LDRB/STRB/LDRH/STRH/LDRSB/LDRSH Rt, [Rn, #imm]{!} and the
// post-indexed Rt, [Rn], #imm form, plus the T-suffixed unprivileged
// variants (which force MemU_unpriv regardless of current privilege).
type loadStoreImm struct {
	mnemonic     string
	rt, rn       RegID
	imm          uint32
	add          bool
	index        bool
	wback        bool
	size         uint32
	signed       bool
	load         bool
	unprivileged bool
}

func (i loadStoreImm) Name() string { return i.mnemonic }
func (i loadStoreImm) Args() string {
	switch {
	case !i.index && i.wback:
		return fmt.Sprintf("%s, [%s], #%d", i.rt, i.rn, i.signedImm())
	case i.index && i.wback:
		return fmt.Sprintf("%s, [%s, #%d]!", i.rt, i.rn, i.signedImm())
	default:
		return fmt.Sprintf("%s, [%s, #%d]", i.rt, i.rn, i.signedImm())
	}
}

func (i loadStoreImm) signedImm() int32 {
	if i.add {
		return int32(i.imm)
	}
	return -int32(i.imm)
}

func (i loadStoreImm) Execute(p *Processor) Effect {
	base := p.Register(i.rn)
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
	priv := p.privileged() && !i.unprivileged

	if i.load {
		v, err := p.memUReadWithPriv(addr, i.size, priv)
		if err != nil {
			return Effect{Err: err}
		}
		if i.signed {
			v = signExtend(v, uint(i.size*8))
		}
		if i.wback {
			p.SetRegister(i.rn, effectiveAddr)
		}
		if i.rt == PC && i.size == 4 {
			return p.loadWritePC(v)
		}
		p.SetRegister(i.rt, v)
		return Effect{}
	}

	if err := p.memUWriteWithPriv(addr, i.size, p.Register(i.rt), priv); err != nil {
		return Effect{Err: err}
	}
	if i.wback {
		p.SetRegister(i.rn, effectiveAddr)
	}
	return Effect{}
}

// loadStoreLiteral is LDR Rt, [PC, #imm] (and LDRSB/LDRSH literal, though
// those are rarer and not separately modeled): a PC-relative read from the
// word aligned below PC's current (speculative, +4) value.
type loadStoreLiteral struct {
	rt  RegID
	imm uint32
	add bool
}

func (i loadStoreLiteral) Name() string { return "LDR" }
func (i loadStoreLiteral) Args() string {
	sign := ""
	if !i.add {
		sign = "-"
	}
	return fmt.Sprintf("%s, [PC, #%s%d]", i.rt, sign, i.imm)
}

func (i loadStoreLiteral) Execute(p *Processor) Effect {
	base := p.regs.pc &^ 3
	var addr uint32
	if i.add {
		addr = base + i.imm
	} else {
		addr = base - i.imm
	}
	v, err := p.memUReadWithPriv(addr, 4, p.privileged())
	if err != nil {
		return Effect{Err: err}
	}
	if i.rt == PC {
		return p.loadWritePC(v)
	}
	p.SetRegister(i.rt, v)
	return Effect{}
}

// loadStoreReg is LDR/STR/LDRB/STRB/LDRH/STRH/LDRSB/LDRSH Rt, [Rn, Rm {,
// LSL #imm2}]: register-offset addressing, offset only (no writeback).
type loadStoreReg struct {
	mnemonic   string
	rt, rn, rm RegID
	shift      uint
	size       uint32
	signed     bool
	load       bool
}

func (i loadStoreReg) Name() string { return i.mnemonic }
func (i loadStoreReg) Args() string {
	if i.shift == 0 {
		return fmt.Sprintf("%s, [%s, %s]", i.rt, i.rn, i.rm)
	}
	return fmt.Sprintf("%s, [%s, %s, LSL #%d]", i.rt, i.rn, i.rm, i.shift)
}

func (i loadStoreReg) Execute(p *Processor) Effect {
	base := p.Register(i.rn)
	if i.rn == PC {
		base = p.regs.pc &^ 3
	}
	addr := base + (p.Register(i.rm) << i.shift)
	priv := p.privileged()

	if i.load {
		v, err := p.memUReadWithPriv(addr, i.size, priv)
		if err != nil {
			return Effect{Err: err}
		}
		if i.signed {
			v = signExtend(v, uint(i.size*8))
		}
		if i.rt == PC && i.size == 4 {
			return p.loadWritePC(v)
		}
		p.SetRegister(i.rt, v)
		return Effect{}
	}

	if err := p.memUWriteWithPriv(addr, i.size, p.Register(i.rt), priv); err != nil {
		return Effect{Err: err}
	}
	return Effect{}
}

// doubleWord is LDRD/STRD Rt, Rt2, [Rn, #imm]{!} / [Rn], #imm: a pair of
// adjacent word transfers, per the DSP extension's wide-data support.
type doubleWord struct {
	rt, rt2, rn RegID
	imm         uint32
	add         bool
	index       bool
	wback       bool
	load        bool
}

func (i doubleWord) Name() string {
	if i.load {
		return "LDRD"
	}
	return "STRD"
}
func (i doubleWord) Args() string {
	sign := ""
	if !i.add {
		sign = "-"
	}
	switch {
	case !i.index && i.wback:
		return fmt.Sprintf("%s, %s, [%s], #%s%d", i.rt, i.rt2, i.rn, sign, i.imm)
	case i.index && i.wback:
		return fmt.Sprintf("%s, %s, [%s, #%s%d]!", i.rt, i.rt2, i.rn, sign, i.imm)
	default:
		return fmt.Sprintf("%s, %s, [%s, #%s%d]", i.rt, i.rt2, i.rn, sign, i.imm)
	}
}

func (i doubleWord) Execute(p *Processor) Effect {
	base := p.Register(i.rn)
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
	priv := p.privileged()

	if i.load {
		v1, err := p.memUReadWithPriv(addr, 4, priv)
		if err != nil {
			return Effect{Err: err}
		}
		v2, err := p.memUReadWithPriv(addr+4, 4, priv)
		if err != nil {
			return Effect{Err: err}
		}
		if i.wback {
			p.SetRegister(i.rn, effectiveAddr)
		}
		p.SetRegister(i.rt, v1)
		p.SetRegister(i.rt2, v2)
		return Effect{}
	}

	if err := p.memUWriteWithPriv(addr, 4, p.Register(i.rt), priv); err != nil {
		return Effect{Err: err}
	}
	if err := p.memUWriteWithPriv(addr+4, 4, p.Register(i.rt2), priv); err != nil {
		return Effect{Err: err}
	}
	if i.wback {
		p.SetRegister(i.rn, effectiveAddr)
	}
	return Effect{}
}

// decodeImm12 builds the common T3-style "always add, offset only" form.
func decodeImm12(mnemonic string, size uint32, signed, load bool) tryDecodeFunc {
	return func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
		rn := reg4(bits, 16)
		rt := reg4(bits, 12)
		if rt == PC && load && size < 4 {
			return nil, decodeOther // PLD/PLI memory hint space
		}
		imm12 := bits & 0xFFF
		return loadStoreImm{mnemonic: mnemonic, rt: rt, rn: rn, imm: imm12, add: true, index: true, size: size, signed: signed, load: load}, decodeOK
	}
}

// decodeImm8PUW builds the T4-style "{pre,post}-indexed, either direction,
// imm8" form, deferring to the dedicated unprivileged-form variant when
// P=1,U=1,W=0 (the reserved T-suffix encoding).
func decodeImm8PUW(mnemonic string, size uint32, signed, load bool) tryDecodeFunc {
	return func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
		rn := reg4(bits, 16)
		rt := reg4(bits, 12)
		p := (bits >> 10) & 1
		u := (bits >> 9) & 1
		w := (bits >> 8) & 1
		if p == 1 && u == 1 && w == 0 {
			return nil, decodeOther // reserved for the T-suffixed unprivileged variant
		}
		if rt == PC && load && size < 4 {
			return nil, decodeOther // PLD/PLI memory hint space
		}
		imm8 := bits & 0xFF
		return loadStoreImm{
			mnemonic: mnemonic, rt: rt, rn: rn, imm: imm8,
			add: u == 1, index: p == 1, wback: w == 1,
			size: size, signed: signed, load: load,
		}, decodeOK
	}
}

// decodeUnprivT builds the T-suffixed (LDRT/STRT/...) fixed P=1,U=1,W=0 form.
func decodeUnprivT(mnemonic string, size uint32, signed, load bool) tryDecodeFunc {
	return func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
		rn := reg4(bits, 16)
		rt := reg4(bits, 12)
		imm8 := bits & 0xFF
		return loadStoreImm{
			mnemonic: mnemonic, rt: rt, rn: rn, imm: imm8,
			add: true, index: true, size: size, signed: signed, load: load, unprivileged: true,
		}, decodeOK
	}
}

// decodeRegOffset builds the 32-bit T2 register-offset form: Rt, [Rn, Rm,
// LSL #imm2].
func decodeRegOffset(mnemonic string, size uint32, signed, load bool) tryDecodeFunc {
	return func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
		rn := reg4(bits, 16)
		rt := reg4(bits, 12)
		if rt == PC && load && size < 4 {
			return nil, decodeOther // PLD/PLI memory hint space
		}
		imm2 := (bits >> 4) & 0x3
		rm := reg4(bits, 0)
		return loadStoreReg{mnemonic: mnemonic, rt: rt, rn: rn, rm: rm, shift: uint(imm2), size: size, signed: signed, load: load}, decodeOK
	}
}

func init() {
	// --- 16-bit T1 immediate forms ---
	sixteenBitImm := []struct {
		name         string
		pattern      string
		size         uint32
		signed, load bool
		scale        uint32
	}{
		{"STR", "01100xxxxxxxxxxx", 4, false, false, 4},
		{"LDR", "01101xxxxxxxxxxx", 4, false, true, 4},
		{"STRB", "01110xxxxxxxxxxx", 1, false, false, 1},
		{"LDRB", "01111xxxxxxxxxxx", 1, false, true, 1},
		{"STRH", "10000xxxxxxxxxxx", 2, false, false, 2},
		{"LDRH", "10001xxxxxxxxxxx", 2, false, true, 2},
	}
	for _, e := range sixteenBitImm {
		e := e
		registerVariant(variant{
			name:     "ls-imm-16bit-" + e.name,
			patterns: []encoding{{tag: "T1", versions: verAll, pattern: e.pattern}},
			decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
				imm5 := (bits >> 6) & 0x1F
				rn := reg3(bits, 3)
				rt := reg3(bits, 0)
				return loadStoreImm{mnemonic: e.name, rt: rt, rn: rn, imm: imm5 * e.scale, add: true, index: true, size: e.size, load: e.load}, decodeOK
			},
		})
	}

	// STR Rt, [SP, #imm8*4] - 10010 ttt iiiiiiii
	registerVariant(variant{
		name:     "str-sp-16bit",
		patterns: []encoding{{tag: "T2", versions: verAll, pattern: "10010xxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rt := reg3(bits, 8)
			imm8 := bits & 0xFF
			return loadStoreImm{mnemonic: "STR", rt: rt, rn: SP, imm: imm8 * 4, add: true, index: true, size: 4}, decodeOK
		},
	})

	// LDR Rt, [SP, #imm8*4] - 10011 ttt iiiiiiii
	registerVariant(variant{
		name:     "ldr-sp-16bit",
		patterns: []encoding{{tag: "T2", versions: verAll, pattern: "10011xxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rt := reg3(bits, 8)
			imm8 := bits & 0xFF
			return loadStoreImm{mnemonic: "LDR", rt: rt, rn: SP, imm: imm8 * 4, add: true, index: true, size: 4, load: true}, decodeOK
		},
	})

	// LDR Rt, [PC, #imm8*4] - 01001 ttt iiiiiiii
	registerVariant(variant{
		name:     "ldr-literal-16bit",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "01001xxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			rt := reg3(bits, 8)
			imm8 := bits & 0xFF
			return loadStoreLiteral{rt: rt, imm: imm8 * 4, add: true}, decodeOK
		},
	})

	// LDR Rt, [PC, #imm12] (32-bit T2 literal) - 11111000x1011111 tttt iiiiiiiiiiii
	registerVariant(variant{
		name:     "ldr-literal-32bit",
		patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: "111110001" + "x" + "011111" + "xxxx" + "xxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			add := (bits>>23)&1 != 0
			rt := reg4(bits, 12)
			imm12 := bits & 0xFFF
			return loadStoreLiteral{rt: rt, imm: imm12, add: add}, decodeOK
		},
	})

	// --- 16-bit T1 register-offset forms ---
	sixteenBitReg := []struct {
		name         string
		pattern      string
		size         uint32
		signed, load bool
	}{
		{"STR", "0101000xxxxxxxxx", 4, false, false},
		{"STRH", "0101001xxxxxxxxx", 2, false, false},
		{"STRB", "0101010xxxxxxxxx", 1, false, false},
		{"LDRSB", "0101011xxxxxxxxx", 1, true, true},
		{"LDR", "0101100xxxxxxxxx", 4, false, true},
		{"LDRH", "0101101xxxxxxxxx", 2, false, true},
		{"LDRB", "0101110xxxxxxxxx", 1, false, true},
		{"LDRSH", "0101111xxxxxxxxx", 2, true, true},
	}
	for _, e := range sixteenBitReg {
		e := e
		registerVariant(variant{
			name:     "ls-reg-16bit-" + e.name,
			patterns: []encoding{{tag: "T1", versions: verAll, pattern: e.pattern}},
			decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
				rm := reg3(bits, 6)
				rn := reg3(bits, 3)
				rt := reg3(bits, 0)
				return loadStoreReg{mnemonic: e.name, rt: rt, rn: rn, rm: rm, size: e.size, signed: e.signed, load: e.load}, decodeOK
			},
		})
	}

	// --- 32-bit T3 imm12 (always add, offset only) forms ---
	imm12Forms := []struct {
		name         string
		pattern      string
		size         uint32
		signed, load bool
	}{
		{"STR", "111110001100xxxxxxxxxxxxxxxxxxxx", 4, false, false},
		{"LDR", "111110001101xxxxxxxxxxxxxxxxxxxx", 4, false, true},
		{"STRB", "111110001000xxxxxxxxxxxxxxxxxxxx", 1, false, false},
		{"LDRB", "111110001001xxxxxxxxxxxxxxxxxxxx", 1, false, true},
		{"STRH", "111110001010xxxxxxxxxxxxxxxxxxxx", 2, false, false},
		{"LDRH", "111110001011xxxxxxxxxxxxxxxxxxxx", 2, false, true},
		{"LDRSB", "111110011001xxxxxxxxxxxxxxxxxxxx", 1, true, true},
		{"LDRSH", "111110011011xxxxxxxxxxxxxxxxxxxx", 2, true, true},
	}
	for _, e := range imm12Forms {
		e := e
		registerVariant(variant{
			name:     "ls-imm12-32bit-" + e.name,
			patterns: []encoding{{tag: "T3", versions: verV7Up, pattern: e.pattern}},
			decode:   decodeImm12(e.name, e.size, e.signed, e.load),
		})
	}

	// --- 32-bit T4 imm8 P/U/W forms - the literal "1" before PUW is what
	// keeps these from colliding with the register-offset forms below,
	// which fix that nibble to "000000" instead.
	imm8Forms := []struct {
		name         string
		prefix       string
		size         uint32
		signed, load bool
	}{
		{"STR", "111110000100", 4, false, false},
		{"LDR", "111110000101", 4, false, true},
		{"STRB", "111110000000", 1, false, false},
		{"LDRB", "111110000001", 1, false, true},
		{"STRH", "111110000010", 2, false, false},
		{"LDRH", "111110000011", 2, false, true},
		{"LDRSB", "111110010001", 1, true, true},
		{"LDRSH", "111110010011", 2, true, true},
	}
	for _, e := range imm8Forms {
		e := e
		pattern := e.prefix + "xxxx" + "xxxx" + "1xxxxxxxxxxx"
		registerVariant(variant{
			name:     "ls-imm8-32bit-" + e.name,
			patterns: []encoding{{tag: "T4", versions: verV7Up, pattern: pattern}},
			decode:   decodeImm8PUW(e.name, e.size, e.signed, e.load),
		})
		registerVariant(variant{
			name:     "ls-unpriv-32bit-" + e.name,
			patterns: []encoding{{tag: "T4", versions: verV7Up, pattern: pattern}},
			decode:   decodeUnprivT(e.name+"T", e.size, e.signed, e.load),
		})
	}

	// --- 32-bit T2 register-offset forms ---
	type regForm struct {
		name         string
		prefix       string
		size         uint32
		signed, load bool
	}
	regForms := []regForm{
		{"STR", "111110000100", 4, false, false},
		{"LDR", "111110000101", 4, false, true},
		{"STRB", "111110000000", 1, false, false},
		{"LDRB", "111110000001", 1, false, true},
		{"STRH", "111110000010", 2, false, false},
		{"LDRH", "111110000011", 2, false, true},
		{"LDRSB", "111110010001", 1, true, true},
		{"LDRSH", "111110010011", 2, true, true},
	}
	for _, e := range regForms {
		e := e
		pattern := e.prefix + "xxxx" + "xxxx" + "000000" + "xx" + "xxxx"
		registerVariant(variant{
			name:     "ls-reg-32bit-" + e.name,
			patterns: []encoding{{tag: "T2", versions: verV7Up, pattern: pattern}},
			decode:   decodeRegOffset(e.name, e.size, e.signed, e.load),
		})
	}

	// LDRD/STRD Rt, Rt2, [Rn, #imm8*4]{!} / [Rn], #imm8*4 - 1110100 PU1W1 nnnn tttt tttt2 iiiiiiii
	dwForms := []struct {
		name    string
		literal string
		load    bool
	}{
		{"STRD", "1110100", false},
		{"LDRD", "1110100", true},
	}
	for _, e := range dwForms {
		e := e
		loadBit := "0"
		if e.load {
			loadBit = "1"
		}
		pattern := e.literal + "xx1x" + loadBit + "xxxxxxxxxxxxxxxxxxxx"
		registerVariant(variant{
			name:     "ls-dword-" + e.name,
			patterns: []encoding{{tag: "T1", versions: verV7Up, pattern: pattern}},
			decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
				p := (bits >> 24) & 1
				u := (bits >> 23) & 1
				w := (bits >> 21) & 1
				if p == 0 && w == 0 {
					return nil, decodeOther // reserved encoding
				}
				rn := reg4(bits, 16)
				rt := reg4(bits, 12)
				rt2 := reg4(bits, 8)
				imm8 := bits & 0xFF
				return doubleWord{rt: rt, rt2: rt2, rn: rn, imm: imm8 * 4, add: u == 1, index: p == 1, wback: w == 1, load: e.load}, decodeOK
			},
		})
	}
}
