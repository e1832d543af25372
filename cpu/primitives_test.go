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

var primitiveSamples = []uint32{
	0, 1, 2, 0x7FFFFFFF, 0x80000000, 0x80000001, 0xFFFFFFFE, 0xFFFFFFFF,
	0x12345678, 0x87654321, 0xDEADBEEF, 0x0000FFFF, 0xFFFF0000, 0x55555555,
	0xAAAAAAAA, 0x00000100,
}

func TestAddWithCarrySubtractIdentity(t *testing.T) {
	for _, x := range primitiveSamples {
		for _, y := range primitiveSamples {
			result, _, _ := addWithCarry(x, ^y, true)
			test.ExpectEquality(t, result, x-y)
		}
	}
}

func TestAddWithCarryOverflow(t *testing.T) {
	result, c, v := addWithCarry(0x7FFFFFFF, 1, false)
	test.ExpectEquality(t, result, uint32(0x80000000))
	test.ExpectEquality(t, c, false)
	test.ExpectEquality(t, v, true)

	result, c, v = addWithCarry(0xFFFFFFFF, 1, false)
	test.ExpectEquality(t, result, 0)
	test.ExpectEquality(t, c, true)
	test.ExpectEquality(t, v, false)
}

func TestShiftsMatchNativeOperators(t *testing.T) {
	for _, x := range primitiveSamples {
		for n := uint(1); n <= 31; n++ {
			r, _ := asrC(x, n)
			test.ExpectEquality(t, r, uint32(int32(x)>>n))
			r, _ = lslC(x, n)
			test.ExpectEquality(t, r, x<<n)
			r, _ = lsrC(x, n)
			test.ExpectEquality(t, r, x>>n)
		}
	}
}

func TestShiftEdgeBehavior(t *testing.T) {
	// LSL at exactly 32 shifts everything out, carrying the old bit 0
	r, c := lslC(1, 32)
	test.ExpectEquality(t, r, 0)
	test.ExpectEquality(t, c, true)
	r, c = lslC(2, 32)
	test.ExpectEquality(t, r, 0)
	test.ExpectEquality(t, c, false)
	r, c = lslC(1, 33)
	test.ExpectEquality(t, r, 0)
	test.ExpectEquality(t, c, false)

	// LSR/ASR at 32: zero/sign fill, carry from the departing sign bit
	r, c = lsrC(0x80000000, 32)
	test.ExpectEquality(t, r, 0)
	test.ExpectEquality(t, c, true)
	r, c = asrC(0x80000000, 32)
	test.ExpectEquality(t, r, 0xFFFFFFFF)
	test.ExpectEquality(t, c, true)
	r, c = asrC(0x7FFFFFFF, 32)
	test.ExpectEquality(t, r, 0)
	test.ExpectEquality(t, c, false)

	// ROR by a multiple of 32 is the identity, carrying the sign bit
	r, c = rorC(0x80000001, 32)
	test.ExpectEquality(t, r, 0x80000001)
	test.ExpectEquality(t, c, true)

	// RRX rotates through the carry
	r, c = rrxC(0x87654321, true)
	test.ExpectEquality(t, r, 0xC3B2A190)
	test.ExpectEquality(t, c, true)
}

func TestShiftCZeroAmountPassesCarry(t *testing.T) {
	r, c := shiftC(0x1234, shiftLSL, 0, true)
	test.ExpectEquality(t, r, 0x1234)
	test.ExpectEquality(t, c, true)
	r, c = shiftC(0x1234, shiftASR, 0, false)
	test.ExpectEquality(t, r, 0x1234)
	test.ExpectEquality(t, c, false)
}

func TestSignExtend(t *testing.T) {
	test.ExpectEquality(t, signExtend(0x7FFFFFFF, 31), 0xFFFFFFFF)
	test.ExpectEquality(t, signExtend(0xFF, 8), 0xFFFFFFFF)
	test.ExpectEquality(t, signExtend(0x7F, 8), 0x7F)
	test.ExpectEquality(t, signExtend(0x8000, 16), 0xFFFF8000)
}

func TestThumbExpandImm(t *testing.T) {
	test.ExpectEquality(t, thumbExpandImm(0x000), 0)
	test.ExpectEquality(t, thumbExpandImm(0x0AB), 0x000000AB)
	test.ExpectEquality(t, thumbExpandImm(0x100|0x0AB), 0x00AB00AB)
	test.ExpectEquality(t, thumbExpandImm(0x200|0x0AB), 0xAB00AB00)
	test.ExpectEquality(t, thumbExpandImm(0x300|0x0AB), 0xABABABAB)

	// rotated forms report a carry; splatted forms do not
	_, c := thumbExpandImmOptC(0x4FF, false)
	if c == nil {
		t.Fatal("rotated immediate must produce a carry")
	}
	_, c = thumbExpandImmOptC(0x1AB, false)
	if c != nil {
		t.Fatal("splatted immediate must not produce a carry")
	}

	// 0x4FF is 0xFF rotated right by 9: 0x7F800000
	v, c := thumbExpandImmOptC(0x4FF, false)
	test.ExpectEquality(t, v, 0x7F800000)
	test.ExpectEquality(t, *c, false)
}

func TestSaturation(t *testing.T) {
	r, sat := signedSatQ(1<<40, 32)
	test.ExpectEquality(t, r, int32(0x7FFFFFFF))
	test.ExpectEquality(t, sat, true)

	r, sat = signedSatQ(-(1 << 40), 32)
	test.ExpectEquality(t, r, -0x80000000)
	test.ExpectEquality(t, sat, true)

	r, sat = signedSatQ(-3, 8)
	test.ExpectEquality(t, r, -3)
	test.ExpectEquality(t, sat, false)

	u, sat := unsignedSatQ(-1, 8)
	test.ExpectEquality(t, u, 0)
	test.ExpectEquality(t, sat, true)

	u, sat = unsignedSatQ(300, 8)
	test.ExpectEquality(t, u, 255)
	test.ExpectEquality(t, sat, true)
}
