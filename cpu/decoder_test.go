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
	"errors"
	"testing"

	"github.com/cortexm/thumbm/cpu/architecture"
	"github.com/cortexm/thumbm/test"
)

func TestInstructionSize(t *testing.T) {
	test.ExpectEquality(t, instructionSize(0x2005), 2) // MOVS
	test.ExpectEquality(t, instructionSize(0xBF00), 2) // NOP
	test.ExpectEquality(t, instructionSize(0xE7FE), 2) // B
	test.ExpectEquality(t, instructionSize(0xE851), 4) // LDREX prefix
	test.ExpectEquality(t, instructionSize(0xF2C1), 4) // MOVT prefix
	test.ExpectEquality(t, instructionSize(0xFA82), 4) // QADD prefix
}

func TestMatchPattern(t *testing.T) {
	m := matchPattern("1101xxxxxxxxxxxx", 0xD005)
	test.ExpectEquality(t, m.matched, true)
	test.ExpectEquality(t, m.unpredictable, false)

	m = matchPattern("1101xxxxxxxxxxxx", 0xC005)
	test.ExpectEquality(t, m.matched, false)

	// a mismatched (0) constraint still matches, but unpredictably
	m = matchPattern("1101zxxxxxxxxxxx", 0xD805)
	test.ExpectEquality(t, m.matched, true)
	test.ExpectEquality(t, m.unpredictable, true)

	m = matchPattern("1101oxxxxxxxxxxx", 0xD005)
	test.ExpectEquality(t, m.matched, true)
	test.ExpectEquality(t, m.unpredictable, true)
}

func TestDecodeKnownEncodings(t *testing.T) {
	basic := Basic{}
	cases := []struct {
		bits uint32
		size int
		name string
	}{
		{0x2005, 2, "MOVS"},
		{0x1A42, 2, "SUBS"},
		{0xBEA5, 2, "BKPT"},
		{0xBF20, 2, "WFE"},
		{0xBF30, 2, "WFI"},
		{0xBF00, 2, "NOP"},
		{0x4770, 2, "BX"},
		{0xB40F, 2, "PUSH"},
		{0xBC0F, 2, "POP"},
		{0xDF2A, 2, "SVC"},
		{0xF2C12034, 4, "MOVT"},
		{0xF3BF8F4F, 4, "DSB"},
		{0xF3BF8F5F, 4, "DMB"},
		{0xF3BF8F6F, 4, "ISB"},
		{0xF3BF8F2F, 4, "CLREX"},
		{0xE8510F00, 4, "LDREX"},
		{0xE8410200, 4, "STREX"},
		{0xFB90F0F1, 4, "SDIV"},
		{0xFBB0F0F1, 4, "UDIV"},
	}
	for _, c := range cases {
		ins, err := basic.Decode(c.bits, c.size, itStateView{}, architecture.V7M)
		if err != nil {
			t.Errorf("decode %#x: %v", c.bits, err)
			continue
		}
		test.ExpectEquality(t, ins.Name(), c.name)
	}
}

func TestDecodeITConstraints(t *testing.T) {
	basic := Basic{}

	// IT with firstcond == 1111 is unpredictable
	_, err := basic.Decode(0xBFF1, 2, itStateView{}, architecture.V7M)
	expectDecodeError(t, err, DecodeUnpredictable)

	// IT with firstcond == 1110 and a multi-bit mask is unpredictable
	_, err = basic.Decode(0xBFE3, 2, itStateView{}, architecture.V7M)
	expectDecodeError(t, err, DecodeUnpredictable)

	// IT inside an IT block is unpredictable
	_, err = basic.Decode(0xBF08, 2, itStateView{inITBlock: true}, architecture.V7M)
	expectDecodeError(t, err, DecodeUnpredictable)

	// a plain IT EQ decodes
	ins, err := basic.Decode(0xBF08, 2, itStateView{}, architecture.V7M)
	test.ExpectSuccess(t, err == nil)
	test.ExpectEquality(t, ins.Name(), "IT")
}

func TestDecodeUndefinedAndUnknown(t *testing.T) {
	basic := Basic{}

	// UDF is permanently undefined
	_, err := basic.Decode(0xDE00, 2, itStateView{}, architecture.V7M)
	expectDecodeError(t, err, DecodeUndefined)
	_, err = basic.Decode(0xF7F0A000, 4, itStateView{}, architecture.V7M)
	expectDecodeError(t, err, DecodeUndefined)

	// a v7-only encoding is unknown to a v6-M core
	_, err = basic.Decode(0xE8510F00, 4, itStateView{}, architecture.V6M)
	expectDecodeError(t, err, DecodeUnknown)
}

func expectDecodeError(t *testing.T, err error, kind DecodeErrorKind) {
	t.Helper()
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected a DecodeError, got %v", err)
	}
	test.ExpectEquality(t, derr.Kind, kind)
}

// TestDecoderEquivalence checks that the linear-scan and LUT decoders
// accept the identical instruction set: every 16-bit word and a broad
// sweep of the 32-bit space must decode identically.
func TestDecoderEquivalence(t *testing.T) {
	basic := Basic{}
	lut := newLUTDecoder()
	its := []itStateView{{}, {inITBlock: true}, {inITBlock: true, lastInITBlock: true}}

	compare := func(bits uint32, size int, it itStateView) {
		for _, version := range []architecture.Version{architecture.V6M, architecture.V7M, architecture.V7EM, architecture.V8M} {
			bIns, bErr := basic.Decode(bits, size, it, version)
			lIns, lErr := lut.Decode(bits, size, it, version)
			if (bErr == nil) != (lErr == nil) {
				t.Fatalf("decoders disagree on %#x (%s): basic=%v lut=%v", bits, version, bErr, lErr)
			}
			if bErr != nil {
				if bErr.Error() != lErr.Error() {
					t.Fatalf("decoders disagree on error for %#x (%s): basic=%v lut=%v", bits, version, bErr, lErr)
				}
				continue
			}
			if bIns.Name() != lIns.Name() || bIns.Args() != lIns.Args() {
				t.Fatalf("decoders disagree on %#x (%s): basic=%s %s lut=%s %s",
					bits, version, bIns.Name(), bIns.Args(), lIns.Name(), lIns.Args())
			}
		}
	}

	for word := 0; word < 0x10000; word++ {
		if instructionSize(uint16(word)) != 2 {
			continue
		}
		compare(uint32(word), 2, its[word%len(its)])
	}

	// the 32-bit space is too large to sweep exhaustively; walk the first
	// halfword exhaustively with a handful of second halfwords that
	// exercise register fields, writeback bits and constraint bits.
	seconds := []uint32{0x0000, 0x0F00, 0x1234, 0x8F4F, 0xF081, 0xFFFF, 0x0206, 0x7FFF}
	for hi := 0xE800; hi < 0x10000; hi += 3 {
		if instructionSize(uint16(hi)) != 4 {
			continue
		}
		for si, lo := range seconds {
			compare(uint32(hi)<<16|lo, 4, its[(hi+si)%len(its)])
		}
	}
}
