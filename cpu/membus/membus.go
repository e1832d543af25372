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

// Package membus defines the memory-mapped region abstraction shared by the
// cpu package and its peripherals: a polymorphic Interface capability set
// (byte/halfword/word read-write plus an Update tick), the non-overlapping
// Region map that owns one of these per address range, and the deferred
// action queue peripherals use to request a Reset, raise an Irq, or ask to
// be ticked again after a number of cycles.
package membus

import "fmt"

// Interface is the capability set a mapped region exposes. Implementations
// that only care about byte-granular storage (RAM) can embed ByteRegion to
// get the wider operations for free; register-block peripherals typically
// implement all six methods directly since their registers are not
// naturally byte-addressable.
type Interface interface {
	ReadU8(offset uint32) (uint8, bool)
	WriteU8(offset uint32, value uint8) bool
	ReadU16LE(offset uint32) (uint16, bool)
	WriteU16LE(offset uint32, value uint16) bool
	ReadU32LE(offset uint32) (uint32, bool)
	WriteU32LE(offset uint32, value uint32) bool
	Size() uint32

	// Update is called once per CPU step with the current cycle count
	// since the previous tick. Deferred actions produced as a result are
	// appended to actions.
	Update(cycles uint32, actions *[]DeferredAction)
}

// ActionKind enumerates the kinds of deferred action a peripheral can
// request.
type ActionKind int

const (
	ActionReset ActionKind = iota
	ActionIRQ
	ActionUpdateIn
)

// DeferredAction is produced by a peripheral's Update (or by a register
// write, e.g. AIRCR.VECTRESET) and drained by the CPU pipeline after the
// current instruction retires - peripherals must never mutate processor
// state directly.
type DeferredAction struct {
	Kind ActionKind

	// IRQ is valid when Kind == ActionIRQ: the exception number to post.
	IRQ uint16

	// Cycles is valid when Kind == ActionUpdateIn.
	Cycles uint32
}

// Region binds an Interface to an address range.
type Region struct {
	Base  uint32
	Size  uint32
	Iface Interface
	// Executable marks a region as containing code the CPU is allowed to
	// fetch instructions from.
	Executable bool
	// Writable marks a region as accepting writes; read-only code regions
	// set this to false.
	Writable bool
}

func (r Region) contains(addr uint32) bool {
	return addr >= r.Base && uint64(addr) < uint64(r.Base)+uint64(r.Size)
}

func (r Region) overlaps(o Region) bool {
	aEnd := uint64(r.Base) + uint64(r.Size)
	bEnd := uint64(o.Base) + uint64(o.Size)
	return uint64(r.Base) < bEnd && uint64(o.Base) < aEnd
}

// ErrMapConflict is returned by Map.Insert when a region would overflow the
// 32-bit address space or overlap an existing region.
type ErrMapConflict struct {
	Base uint32
	Size uint32
}

func (e *ErrMapConflict) Error() string {
	return fmt.Sprintf("membus: region at %#08x size %#x conflicts with an existing mapping or overflows the address space", e.Base, e.Size)
}

// Map is the ordered collection of non-overlapping regions that makes up
// the processor's address space. Lookup is a linear scan - a typical map
// holds well under sixteen regions.
type Map struct {
	regions []Region
}

// Insert adds a region to the map. It fails with ErrMapConflict if the
// region would overflow the 32-bit address space or overlap any existing
// region.
func (m *Map) Insert(r Region) error {
	if r.Size == 0 || uint64(r.Base)+uint64(r.Size) > 1<<32 {
		return &ErrMapConflict{r.Base, r.Size}
	}
	for _, existing := range m.regions {
		if existing.overlaps(r) {
			return &ErrMapConflict{r.Base, r.Size}
		}
	}
	m.regions = append(m.regions, r)
	return nil
}

// Lookup returns the region containing addr, and addr translated to a
// region-local offset.
func (m *Map) Lookup(addr uint32) (*Region, uint32, bool) {
	for i := range m.regions {
		if m.regions[i].contains(addr) {
			return &m.regions[i], addr - m.regions[i].Base, true
		}
	}
	return nil, 0, false
}

// Regions returns the mapped regions in insertion order.
func (m *Map) Regions() []Region {
	return m.regions
}

// ByteRegion is an embeddable helper: a plain byte-addressable block,
// giving RAM and flash-like regions the wider halfword/word accessors by
// composing byte operations.
type ByteRegion struct {
	Bytes []byte
}

func NewByteRegion(size uint32) *ByteRegion {
	return &ByteRegion{Bytes: make([]byte, size)}
}

func (b *ByteRegion) Size() uint32 { return uint32(len(b.Bytes)) }

func (b *ByteRegion) ReadU8(offset uint32) (uint8, bool) {
	if offset >= uint32(len(b.Bytes)) {
		return 0, false
	}
	return b.Bytes[offset], true
}

func (b *ByteRegion) WriteU8(offset uint32, value uint8) bool {
	if offset >= uint32(len(b.Bytes)) {
		return false
	}
	b.Bytes[offset] = value
	return true
}

func (b *ByteRegion) ReadU16LE(offset uint32) (uint16, bool) {
	lo, ok := b.ReadU8(offset)
	if !ok {
		return 0, false
	}
	hi, ok := b.ReadU8(offset + 1)
	if !ok {
		return 0, false
	}
	return uint16(lo) | uint16(hi)<<8, true
}

func (b *ByteRegion) WriteU16LE(offset uint32, value uint16) bool {
	if !b.WriteU8(offset, uint8(value)) {
		return false
	}
	return b.WriteU8(offset+1, uint8(value>>8))
}

func (b *ByteRegion) ReadU32LE(offset uint32) (uint32, bool) {
	lo, ok := b.ReadU16LE(offset)
	if !ok {
		return 0, false
	}
	hi, ok := b.ReadU16LE(offset + 2)
	if !ok {
		return 0, false
	}
	return uint32(lo) | uint32(hi)<<16, true
}

func (b *ByteRegion) WriteU32LE(offset uint32, value uint32) bool {
	if !b.WriteU16LE(offset, uint16(value)) {
		return false
	}
	return b.WriteU16LE(offset+2, uint16(value>>16))
}

// Update is a no-op for plain RAM/flash.
func (b *ByteRegion) Update(cycles uint32, actions *[]DeferredAction) {}
