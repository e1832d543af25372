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
	"testing"

	"github.com/cortexm/thumbm/test"
)

func TestITStateAdvance(t *testing.T) {
	var sr Status
	sr.reset()

	// ITTE EQ: firstcond=0000, mask=0110 -> three slots
	sr.itCond = 0b0000
	sr.itMask = 0b0110
	test.ExpectEquality(t, sr.inITBlock(), true)
	test.ExpectEquality(t, sr.lastInITBlock(), false)

	sr.advance()
	test.ExpectEquality(t, sr.itMask, 0b1100)
	sr.advance()
	test.ExpectEquality(t, sr.itMask, 0b1000)
	test.ExpectEquality(t, sr.lastInITBlock(), true)
	sr.advance()
	test.ExpectEquality(t, sr.inITBlock(), false)
	test.ExpectEquality(t, sr.itCond, 0)
}

func TestITStateValidation(t *testing.T) {
	test.ExpectEquality(t, validateITState(0b1111, 0b1000), false)
	test.ExpectEquality(t, validateITState(0b1110, 0b1000), true)
	test.ExpectEquality(t, validateITState(0b1110, 0b0100), true)
	test.ExpectEquality(t, validateITState(0b1110, 0b0010), true)
	test.ExpectEquality(t, validateITState(0b1110, 0b0001), true)
	test.ExpectEquality(t, validateITState(0b1110, 0b1100), false)
	test.ExpectEquality(t, validateITState(0b1110, 0b0110), false)
	test.ExpectEquality(t, validateITState(0b0000, 0b1100), true)
}

func TestConditionEvaluation(t *testing.T) {
	var sr Status
	sr.reset()

	sr.zero = true
	test.ExpectEquality(t, sr.condition(0b0000), true)  // EQ
	test.ExpectEquality(t, sr.condition(0b0001), false) // NE

	sr.zero = false
	sr.carry = true
	test.ExpectEquality(t, sr.condition(0b0010), true) // CS
	test.ExpectEquality(t, sr.condition(0b1000), true) // HI

	sr.negative = true
	sr.overflow = false
	test.ExpectEquality(t, sr.condition(0b1010), false) // GE
	test.ExpectEquality(t, sr.condition(0b1011), true)  // LT
	test.ExpectEquality(t, sr.condition(0b1101), true)  // LE

	test.ExpectEquality(t, sr.condition(0b1110), true) // AL
}

func TestXPSRPacking(t *testing.T) {
	var sr Status
	sr.reset()
	sr.negative = true
	sr.carry = true
	sr.sticky = true
	sr.ge = 0b1010
	sr.itCond = 0b0101
	sr.itMask = 0b0010
	sr.exceptionNumber = 15

	x := sr.xpsr()
	test.ExpectEquality(t, x&(1<<31) != 0, true)  // N
	test.ExpectEquality(t, x&(1<<30) != 0, false) // Z
	test.ExpectEquality(t, x&(1<<29) != 0, true)  // C
	test.ExpectEquality(t, x&(1<<27) != 0, true)  // Q
	test.ExpectEquality(t, (x>>16)&0xF, 0b1010)   // GE
	test.ExpectEquality(t, x&(1<<24) != 0, true)  // T
	test.ExpectEquality(t, x&0x1FF, 15)           // IPSR

	// IT[7:2] lives in bits 15:10, IT[1:0] in bits 26:25
	it := sr.itState()
	recovered := uint8((x>>10&0x3F)<<2 | (x >> 25 & 0x3))
	test.ExpectEquality(t, recovered, it)
}

func TestSPBanking(t *testing.T) {
	var r Registers
	r.reset()
	r.msp = 0x20001000
	r.psp = 0x20002000

	test.ExpectEquality(t, r.Read(SP, ModeThread), 0x20001000)

	r.control |= controlSPSEL
	test.ExpectEquality(t, r.Read(SP, ModeThread), 0x20002000)
	// Handler mode always uses MSP regardless of SPSEL
	test.ExpectEquality(t, r.Read(SP, ModeHandler), 0x20001000)

	r.Write(SP, ModeThread, 0x20002004)
	test.ExpectEquality(t, r.psp, 0x20002004)
	test.ExpectEquality(t, r.msp, 0x20001000)
}

func TestBasePriMax(t *testing.T) {
	var r Registers
	r.reset()

	r.Write(BASEPRIMASK, ModeThread, 0x40)
	test.ExpectEquality(t, r.basepri, 0x40)

	// a numerically higher (lower priority) value is ignored
	r.Write(BASEPRIMASK, ModeThread, 0x80)
	test.ExpectEquality(t, r.basepri, 0x40)

	// a numerically lower (higher priority) value takes effect
	r.Write(BASEPRIMASK, ModeThread, 0x20)
	test.ExpectEquality(t, r.basepri, 0x20)

	// zero never takes effect through BASEPRI_MAX
	r.Write(BASEPRIMASK, ModeThread, 0)
	test.ExpectEquality(t, r.basepri, 0x20)

	// but does through plain BASEPRI
	r.Write(BASEPRI, ModeThread, 0)
	test.ExpectEquality(t, r.basepri, 0)
}
