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

// Coprocessor is the interface a caller implements to populate one of the
// sixteen CDP/LDC/STC/MCR/MRC/MCRR/MRRC slots. Implementations model a
// single external coprocessor; this package never assumes any particular
// semantics for what "accepted" means.
type Coprocessor interface {
	// Accepted reports whether this coprocessor claims the given
	// instruction encoding (the raw 32-bit opcode, coprocessor number
	// already matched by the caller).
	Accepted(opcode uint32) bool

	// InternalOperation executes a CDP/CDP2.
	InternalOperation(opcode uint32)

	// SendOneWord/SendTwoWords deliver the GPR operand(s) of an MCR/MCRR
	// to the coprocessor.
	SendOneWord(opcode uint32, value uint32)
	SendTwoWords(opcode uint32, value1, value2 uint32)

	// GetOneWord/GetTwoWords retrieve the result GPR operand(s) of an
	// MRC/MRRC from the coprocessor.
	GetOneWord(opcode uint32) uint32
	GetTwoWords(opcode uint32) (uint32, uint32)

	// GetWordToStore/LoadedWord implement STC/LDC: the coprocessor
	// supplies the word to store, or receives the word that was loaded.
	GetWordToStore(opcode uint32) uint32
	LoadedWord(opcode uint32, value uint32)

	// DoneLoading/DoneStoring let a multi-word LDC/STC tell the
	// coprocessor whether it should expect another transfer word.
	DoneLoading(opcode uint32) bool
	DoneStoring(opcode uint32) bool
}

// monitorState is the exclusive monitor's two-state machine: open, or
// exclusive over one granule-aligned address.
type monitorState int

const (
	monitorOpen monitorState = iota
	monitorExclusiveState
)

// exclusiveMonitor tracks the local monitor used by LDREX/STREX/CLREX, with
// reservations rounded down to the architecture's exclusives reservation
// granule.
type exclusiveMonitor struct {
	state   monitorState
	address uint32
	granule uint32
}

func (m *exclusiveMonitor) line(addr uint32) uint32 {
	if m.granule <= 1 {
		return addr
	}
	return addr &^ (m.granule - 1)
}

// setExclusive records an exclusive reservation covering addr's granule,
// per the LDREX family.
func (m *exclusiveMonitor) setExclusive(addr uint32) {
	m.state = monitorExclusiveState
	m.address = m.line(addr)
}

// exclusivePasses reports whether a STREX family access to addr should
// succeed, and clears the reservation either way (a STREX always consumes
// it, successful or not).
func (m *exclusiveMonitor) exclusivePasses(addr uint32) bool {
	ok := m.state == monitorExclusiveState && m.line(addr) == m.line(m.address)
	m.state = monitorOpen
	return ok
}

// clear implements CLREX and the monitor-clearing side effect of exception
// entry and return.
func (m *exclusiveMonitor) clear() {
	m.state = monitorOpen
}
