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

// Package cpu implements an instruction-accurate emulator for the 32-bit
// Thumb-only ARM M-profile family (v6-M, v7-M, v7E-M, v8-M).
//
// Only the Thumb and Thumb-2 instruction streams are emulated - there is no
// ARM (32-bit) instruction set support, since M-profile cores are
// Thumb-only. Binary loading, disassembly symbol resolution and floating
// point (VFP) are not implemented here; they are treated as the concern of
// a host harness built on top of this package.
//
// The reference used throughout is the "ARMv7-M Architecture Reference
// Manual" ("ARMv7-M" for brevity) and the "ARM Architecture Reference
// Manual Thumb-2 Supplement" ("Thumb-2 Supplement"), together with the
// per-instruction pseudocode they define. Where a particular piece of
// pseudocode is directly relevant it is quoted in a comment near the code
// that implements it.
package cpu
