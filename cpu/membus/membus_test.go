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

package membus_test

import (
	"testing"

	"github.com/cortexm/thumbm/cpu/membus"
	"github.com/cortexm/thumbm/test"
)

func TestInsertRejectsOverlap(t *testing.T) {
	var m membus.Map

	a := membus.NewByteRegion(0x100)
	test.ExpectSuccess(t, m.Insert(membus.Region{Base: 0x1000, Size: a.Size(), Iface: a}) == nil)

	// identical range
	b := membus.NewByteRegion(0x100)
	test.ExpectFailure(t, m.Insert(membus.Region{Base: 0x1000, Size: b.Size(), Iface: b}))

	// partial overlap at the tail
	test.ExpectFailure(t, m.Insert(membus.Region{Base: 0x10FF, Size: b.Size(), Iface: b}))

	// adjacent is fine
	test.ExpectSuccess(t, m.Insert(membus.Region{Base: 0x1100, Size: b.Size(), Iface: b}) == nil)
}

func TestInsertRejectsOverflowAndEmpty(t *testing.T) {
	var m membus.Map
	r := membus.NewByteRegion(0x20)
	test.ExpectFailure(t, m.Insert(membus.Region{Base: 0xFFFFFFF0, Size: r.Size(), Iface: r}))
	test.ExpectFailure(t, m.Insert(membus.Region{Base: 0x1000, Size: 0, Iface: r}))

	// a region ending exactly at the top of the address space is legal
	test.ExpectSuccess(t, m.Insert(membus.Region{Base: 0xFFFFFFE0, Size: r.Size(), Iface: r}) == nil)
}

func TestLookupTranslatesOffset(t *testing.T) {
	var m membus.Map
	r := membus.NewByteRegion(0x100)
	test.ExpectSuccess(t, m.Insert(membus.Region{Base: 0x2000, Size: r.Size(), Iface: r}) == nil)

	region, off, ok := m.Lookup(0x2080)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, region.Base, 0x2000)
	test.ExpectEquality(t, off, 0x80)

	_, _, ok = m.Lookup(0x2100)
	test.ExpectEquality(t, ok, false)
	_, _, ok = m.Lookup(0x1FFF)
	test.ExpectEquality(t, ok, false)
}

func TestByteRegionComposition(t *testing.T) {
	r := membus.NewByteRegion(8)

	test.ExpectSuccess(t, r.WriteU32LE(0, 0x11223344))
	v8, ok := r.ReadU8(0)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, v8, 0x44)
	v8, _ = r.ReadU8(3)
	test.ExpectEquality(t, v8, 0x11)

	v16, ok := r.ReadU16LE(2)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, v16, 0x1122)

	v32, ok := r.ReadU32LE(0)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, v32, 0x11223344)

	// out-of-range accesses fail rather than truncating
	test.ExpectEquality(t, r.WriteU32LE(6, 1), false)
	_, ok = r.ReadU16LE(7)
	test.ExpectEquality(t, ok, false)
}
