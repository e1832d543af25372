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
	"strings"
)

// Status is the combined program status register (xPSR): the APSR flags
// and GE bits, the EPSR T bit and IT state, and the IPSR exception
// number.
type Status struct {
	// APSR bits
	negative bool
	zero     bool
	carry    bool
	overflow bool
	sticky   bool  // Q
	ge       uint8 // GE[3:0], one bit per byte lane

	// EPSR bits
	thumb bool // T bit - always true for this Thumb-only core once running

	// itCond/itMask together encode EPSR.IT[7:0] as (first_cond:4, mask:4),
	// split for clarity and for a cheap itMask!=0 "in an IT block" test.
	itCond uint8
	itMask uint8

	// IPSR: exception number currently being serviced, or 0 in Thread mode.
	exceptionNumber uint16
}

func (sr Status) String() string {
	s := strings.Builder{}
	for _, f := range []struct {
		set  bool
		r, l rune
	}{
		{sr.negative, 'N', 'n'},
		{sr.zero, 'Z', 'z'},
		{sr.carry, 'C', 'c'},
		{sr.overflow, 'V', 'v'},
		{sr.sticky, 'Q', 'q'},
	} {
		if f.set {
			s.WriteRune(f.r)
		} else {
			s.WriteRune(f.l)
		}
	}
	fmt.Fprintf(&s, " GE:%04b IT:%04b%04b IPSR:%d", sr.ge, sr.itCond, sr.itMask, sr.exceptionNumber)
	return s.String()
}

func (sr *Status) reset() {
	*sr = Status{thumb: true}
}

// mode derives the current processor Mode from IPSR: Handler iff
// currently servicing an exception (IPSR != 0).
func (sr *Status) mode() Mode {
	if sr.exceptionNumber != 0 {
		return ModeHandler
	}
	return ModeThread
}

func (sr *Status) setNZ(v uint32) {
	sr.negative = v&0x80000000 != 0
	sr.zero = v == 0
}

func (sr *Status) setCarryOpt(c *bool) {
	if c != nil {
		sr.carry = *c
	}
}

// setQ is sticky: once raised it stays set until an explicit write to
// APSR clears it.
func (sr *Status) setQ() {
	sr.sticky = true
}

// apsr packs N,Z,C,V,Q and GE into the low/high bits of the APSR word.
func (sr *Status) apsr() uint32 {
	var v uint32
	if sr.negative {
		v |= 1 << 31
	}
	if sr.zero {
		v |= 1 << 30
	}
	if sr.carry {
		v |= 1 << 29
	}
	if sr.overflow {
		v |= 1 << 28
	}
	if sr.sticky {
		v |= 1 << 27
	}
	v |= uint32(sr.ge&0xf) << 16
	return v
}

func (sr *Status) setAPSR(v uint32) {
	sr.negative = v&(1<<31) != 0
	sr.zero = v&(1<<30) != 0
	sr.carry = v&(1<<29) != 0
	sr.overflow = v&(1<<28) != 0
	sr.sticky = v&(1<<27) != 0
	sr.ge = uint8((v >> 16) & 0xf)
}

// itState packs EPSR.IT[7:0] as (first_cond:4, mask:4).
func (sr *Status) itState() uint8 {
	return sr.itCond<<4 | sr.itMask
}

func (sr *Status) setITState(it uint8) {
	sr.itCond = it >> 4
	sr.itMask = it & 0xf
}

// epsr packs the T bit and IT state. EPSR.IT[7:0] (the combined
// first_cond:mask byte returned by itState()) is split architecturally:
// IT[7:2] lives in bits[15:10] and IT[1:0] lives in bits[26:25].
func (sr *Status) epsr() uint32 {
	var v uint32
	if sr.thumb {
		v |= 1 << 24
	}
	it := uint32(sr.itState())
	v |= (it >> 2 & 0x3f) << 10
	v |= (it & 0x3) << 25
	return v
}

// xpsr packs APSR | IPSR | EPSR.
func (sr *Status) xpsr() uint32 {
	return sr.apsr() | sr.epsr() | uint32(sr.exceptionNumber)
}

// inITBlock reports whether execution is currently inside an IT block.
func (sr *Status) inITBlock() bool {
	return sr.itMask != 0
}

// InITBlock reports whether execution is currently inside an IT block.
func (sr Status) InITBlock() bool {
	return sr.itMask != 0
}

// lastInITBlock reports whether the current instruction is the last one
// covered by the active IT block (mask's only remaining set bit is bit 3,
// i.e. the next advance() will clear the block).
func (sr *Status) lastInITBlock() bool {
	return sr.itMask&0x7 == 0
}

// currentCondition returns the condition code that applies to the
// instruction about to execute while inside an IT block.
func (sr *Status) currentCondition() (uint8, bool) {
	if !sr.inITBlock() {
		return 0, false
	}
	return sr.itCond, true
}

// advance consumes one position of the IT state: the pipeline invokes it
// once per executed (or conditionally-skipped) instruction, before execute.
// For the IT instruction itself the state is still empty at that point, so
// the fresh state IT loads survives into the next step (see pipeline.go).
// Like the architectural IT[4:0] shift, the top mask bit moves into bit 0
// of itCond, which is how the "else" slots get the inverted condition.
func (sr *Status) advance() {
	if sr.itMask&0x7 == 0 {
		sr.itCond = 0
		sr.itMask = 0
		return
	}
	sr.itCond = sr.itCond&0xE | sr.itMask>>3
	sr.itMask = (sr.itMask << 1) & 0xf
}

// validateITState checks the forbidden IT-state encodings named in the
// data model: first_cond==0b1111 is always invalid, and first_cond==0b1110
// (AL) only permits mask in {0001,0010,0100,1000} since "AL, else" cannot
// be negated.
func validateITState(firstCond, mask uint8) bool {
	if firstCond == 0b1111 {
		return false
	}
	if firstCond == 0b1110 {
		switch mask {
		case 0b0001, 0b0010, 0b0100, 0b1000:
			return true
		default:
			return false
		}
	}
	return true
}

// condition evaluates one of the sixteen condition codes against the
// current flags ("A7.3 Conditional execution").
func (sr *Status) condition(cond uint8) bool {
	var b bool
	switch cond {
	case 0b0000: // EQ
		b = sr.zero
	case 0b0001: // NE
		b = !sr.zero
	case 0b0010: // CS
		b = sr.carry
	case 0b0011: // CC
		b = !sr.carry
	case 0b0100: // MI
		b = sr.negative
	case 0b0101: // PL
		b = !sr.negative
	case 0b0110: // VS
		b = sr.overflow
	case 0b0111: // VC
		b = !sr.overflow
	case 0b1000: // HI
		b = sr.carry && !sr.zero
	case 0b1001: // LS
		b = !sr.carry || sr.zero
	case 0b1010: // GE
		b = sr.negative == sr.overflow
	case 0b1011: // LT
		b = sr.negative != sr.overflow
	case 0b1100: // GT
		b = !sr.zero && sr.negative == sr.overflow
	case 0b1101: // LE
		b = sr.zero || sr.negative != sr.overflow
	case 0b1110: // AL
		b = true
	case 0b1111:
		panic("status: condition 0b1111 is not a valid branch condition")
	}
	return b
}
