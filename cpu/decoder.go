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

	"github.com/cortexm/thumbm/cpu/architecture"
)

// Instruction is a decoded instruction variant, ready to execute or
// disassemble. Every mnemonic's variants (one Go type per {mnemonic,
// encoding-group}) implement this.
type Instruction interface {
	// Execute performs the operation against p and reports the resulting
	// control-flow effect.
	Execute(p *Processor) Effect
	// Name is the disassembly mnemonic, e.g. "ADDS".
	Name() string
	// Args is the disassembly operand string, e.g. "R0, R1, #4".
	Args() string
}

// decodeOutcome is the result of a variant's tryDecode.
type decodeOutcome int

const (
	decodeOther decodeOutcome = iota
	decodeOK
	decodeUnpredictable
	decodeUndefined
)

// itStateView is the subset of IT state a tryDecode function needs (e.g.
// "IT must not itself appear inside an IT block").
type itStateView struct {
	inITBlock     bool
	lastInITBlock bool
}

// tryDecodeFunc builds the decoded instruction for one variant, given the
// matched encoding tag and the raw instruction bits (already known to
// match that variant's pattern).
type tryDecodeFunc func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome)

// encoding is one {tag, allowed versions, bit pattern} entry in a
// variant's patterns() list. The pattern alphabet is 16 or 32 characters
// long, read MSB-to-LSB:
//
//	'0'/'1'  literal opcode bit, must match exactly
//	'x'      argument bit, any value accepted
//	'z'      argument bit constrained to 0 - mismatching it still matches
//	         the encoding, but execution is UNPREDICTABLE (the "(0)" token
//	         in the source ISA tables)
//	'o'      argument bit constrained to 1, the "(1)" token
type encoding struct {
	tag      string
	versions versionSet
	pattern  string
}

// versionSet is a bitmask over architecture.Version, used to restrict an
// encoding to the architecture revisions that actually define it.
type versionSet uint8

const (
	verV6M versionSet = 1 << iota
	verV7M
	verV7EM
	verV8M
)

const verAll = verV6M | verV7M | verV7EM | verV8M
const verV7Up = verV7M | verV7EM | verV8M
const verV7EMUp = verV7EM | verV8M

func versionBit(v architecture.Version) versionSet {
	switch v {
	case architecture.V6M:
		return verV6M
	case architecture.V7M:
		return verV7M
	case architecture.V7EM:
		return verV7EM
	case architecture.V8M:
		return verV8M
	}
	return 0
}

// variant bundles one instruction record's patterns() and try_decode().
type variant struct {
	name     string
	patterns []encoding
	decode   tryDecodeFunc
}

// variants is the global registry every instruction file populates via
// registerVariant in an init function.
var variants []variant

func registerVariant(v variant) {
	variants = append(variants, v)
}

// matchResult reports a single pattern match attempt.
type matchResult struct {
	matched       bool
	unpredictable bool
}

// matchPattern compares word's low len(pattern) bits (MSB-first in the
// pattern string) against the pattern alphabet described on encoding.
func matchPattern(pattern string, word uint32) matchResult {
	n := len(pattern)
	for i, c := range pattern {
		bitPos := n - 1 - i
		bit := (word >> uint(bitPos)) & 1
		switch c {
		case '0':
			if bit != 0 {
				return matchResult{}
			}
		case '1':
			if bit != 1 {
				return matchResult{}
			}
		case 'x':
			// any value
		case 'z':
			if bit != 0 {
				return matchResult{matched: true, unpredictable: true}
			}
		case 'o':
			if bit != 1 {
				return matchResult{matched: true, unpredictable: true}
			}
		default:
			panic(fmt.Sprintf("decoder: invalid pattern character %q", c))
		}
	}
	return matchResult{matched: true}
}

// instructionSize classifies a fetched halfword as the start of a 16-bit
// or 32-bit instruction: a top-5-bits value of 0b11101, 0b11110 or
// 0b11111 selects the 32-bit space ("A5.1 Thumb instruction set
// encoding").
func instructionSize(firstHalfword uint16) int {
	top5 := firstHalfword >> 11
	if top5 == 0b11101 || top5 == 0b11110 || top5 == 0b11111 {
		return 4
	}
	return 2
}

// DecodeErrorKind classifies why decoding failed.
type DecodeErrorKind int

const (
	DecodeUnknown DecodeErrorKind = iota
	DecodeUndefined
	DecodeUnpredictable
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeUndefined:
		return "Undefined"
	case DecodeUnpredictable:
		return "Unpredictable"
	default:
		return "Unknown"
	}
}

// DecodeError is returned by a Decoder when raw_bits does not resolve to
// an instruction to execute.
type DecodeError struct {
	Kind DecodeErrorKind
	Bits uint32
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoder: %s instruction %#08x", e.Kind, e.Bits)
}

// Decoder accepts the raw instruction bits, their size and the current
// IT state, and returns a decoded instruction or a DecodeError.
type Decoder interface {
	Decode(rawBits uint32, size int, it itStateView, version architecture.Version) (Instruction, error)
}

// tryVariantPatterns runs one variant's full patterns-then-try_decode resolution
// against rawBits, honoring the current architecture version and the
// "Other" signal that means "try the next matching pattern instead".
func tryVariantPatterns(v variant, rawBits uint32, size int, it itStateView, version architecture.Version) (Instruction, decodeOutcome) {
	vbit := versionBit(version)
	for _, enc := range v.patterns {
		if len(enc.pattern) != size*8 {
			continue
		}
		if enc.versions&vbit == 0 {
			continue
		}
		m := matchPattern(enc.pattern, rawBits)
		if !m.matched {
			continue
		}
		if m.unpredictable {
			return nil, decodeUnpredictable
		}
		ins, outcome := v.decode(enc.tag, rawBits, it)
		if outcome == decodeOther {
			continue
		}
		return ins, outcome
	}
	return nil, decodeOther
}

// Basic is a linear-scan decoder: it tries every registered variant in
// registration order, honoring Other as "keep looking".
type Basic struct{}

func (Basic) Decode(rawBits uint32, size int, it itStateView, version architecture.Version) (Instruction, error) {
	for _, v := range variants {
		ins, outcome := tryVariantPatterns(v, rawBits, size, it, version)
		switch outcome {
		case decodeOK:
			return ins, nil
		case decodeUnpredictable:
			return nil, &DecodeError{Kind: DecodeUnpredictable, Bits: rawBits}
		case decodeUndefined:
			return nil, &DecodeError{Kind: DecodeUndefined, Bits: rawBits}
		}
	}
	return nil, &DecodeError{Kind: DecodeUnknown, Bits: rawBits}
}

// lutDecoder precomputes dispatch: a 65536-entry table maps any 16-bit
// opcode directly to its candidate variant list; 32-bit instructions are
// grouped by their first 5 bits (which always select the 32-bit space)
// and linearly scanned within the group. It decodes the identical set of
// instructions as Basic - this is purely a dispatch optimization.
type lutDecoder struct {
	lut16    [65536][]int
	groups32 [32][]int
}

func newLUTDecoder() *lutDecoder {
	d := &lutDecoder{}
	for vi, v := range variants {
		for _, enc := range v.patterns {
			switch len(enc.pattern) {
			case 16:
				for word := 0; word < 65536; word++ {
					if matchPattern(enc.pattern, uint32(word)).matched {
						d.lut16[word] = appendUnique(d.lut16[word], vi)
					}
				}
			case 32:
				top5, ok := fixedTop5(enc.pattern)
				if ok {
					d.groups32[top5] = appendUnique(d.groups32[top5], vi)
					continue
				}
				for g := 0; g < 32; g++ {
					d.groups32[g] = appendUnique(d.groups32[g], vi)
				}
			}
		}
	}
	return d
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// fixedTop5 reports the literal value of a 32-bit pattern's first 5 bits,
// when they are all literal '0'/'1' (always true for real Thumb-2
// encodings, since those bits select the 32-bit space itself).
func fixedTop5(pattern string) (int, bool) {
	top := pattern[:5]
	if strings.ContainsAny(top, "xzo") {
		return 0, false
	}
	v := 0
	for _, c := range top {
		v <<= 1
		if c == '1' {
			v |= 1
		}
	}
	return v, true
}

func (d *lutDecoder) Decode(rawBits uint32, size int, it itStateView, version architecture.Version) (Instruction, error) {
	var candidates []int
	if size == 2 {
		candidates = d.lut16[uint16(rawBits)]
	} else {
		top5 := int(rawBits>>27) & 0x1F
		candidates = d.groups32[top5]
	}
	for _, vi := range candidates {
		ins, outcome := tryVariantPatterns(variants[vi], rawBits, size, it, version)
		switch outcome {
		case decodeOK:
			return ins, nil
		case decodeUnpredictable:
			return nil, &DecodeError{Kind: DecodeUnpredictable, Bits: rawBits}
		case decodeUndefined:
			return nil, &DecodeError{Kind: DecodeUndefined, Bits: rawBits}
		}
	}
	return nil, &DecodeError{Kind: DecodeUnknown, Bits: rawBits}
}
