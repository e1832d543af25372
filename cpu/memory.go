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

// UsageFaultNumber is exception number 6, raised by this package's own
// memory paths on an unaligned access that traps.
const UsageFaultNumber uint16 = 6

// privileged reports whether the current execution level may bypass the
// access checks that LDRT/STRT and friends must not get the benefit of.
func (p *Processor) privileged() bool {
	return p.status.mode() == ModeHandler || p.regs.control&controlNPRIV == 0
}

func (p *Processor) readU8(addr uint32) (uint8, *RunError) {
	r, off, ok := p.mem.Lookup(addr)
	if !ok {
		return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: 1, Cause: CauseInvalidAddress}
	}
	v, ok := r.Iface.ReadU8(off)
	if !ok {
		return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: 1, Cause: CauseInvalidAddress}
	}
	return v, nil
}

func (p *Processor) writeU8(addr uint32, v uint8) *RunError {
	r, off, ok := p.mem.Lookup(addr)
	if !ok {
		return &RunError{Kind: ErrMemWrite, Address: addr, Size: 1, Value: uint32(v), Cause: CauseInvalidAddress}
	}
	if !r.Writable {
		return &RunError{Kind: ErrMemWrite, Address: addr, Size: 1, Value: uint32(v), Cause: CauseReadOnly}
	}
	if !r.Iface.WriteU8(off, v) {
		return &RunError{Kind: ErrMemWrite, Address: addr, Size: 1, Value: uint32(v), Cause: CauseInvalidAddress}
	}
	return nil
}

// readU32Unchecked/writeU32Unchecked etc are the "iface" paths: they
// bypass privilege and alignment trapping entirely, for use by pipeline
// internals (vector table reads, exception stack push/pop). They still
// honor AIRCR.ENDIANNESS.
func (p *Processor) readU16Unchecked(addr uint32) (uint16, *RunError) {
	r, off, ok := p.mem.Lookup(addr)
	if !ok {
		return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: 2, Cause: CauseInvalidAddress}
	}
	if addr&1 == 0 {
		v, ok := r.Iface.ReadU16LE(off)
		if !ok {
			return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: 2, Cause: CauseInvalidAddress}
		}
		return p.swap16(v), nil
	}
	lo, err := p.readU8(addr)
	if err != nil {
		return 0, err
	}
	hi, err := p.readU8(addr + 1)
	if err != nil {
		return 0, err
	}
	return p.swap16(uint16(lo) | uint16(hi)<<8), nil
}

func (p *Processor) readU32Unchecked(addr uint32) (uint32, *RunError) {
	r, off, ok := p.mem.Lookup(addr)
	if !ok {
		return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: 4, Cause: CauseInvalidAddress}
	}
	if addr&3 == 0 {
		v, ok := r.Iface.ReadU32LE(off)
		if !ok {
			return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: 4, Cause: CauseInvalidAddress}
		}
		return p.swap32(v), nil
	}
	lo, err := p.readU16Unchecked(addr)
	if err != nil {
		return 0, err
	}
	hi, err := p.readU16Unchecked(addr + 2)
	if err != nil {
		return 0, err
	}
	return p.swap32(uint32(lo) | uint32(hi)<<16), nil
}

func (p *Processor) writeU32Unchecked(addr uint32, v uint32) *RunError {
	v = p.swap32(v)
	r, off, ok := p.mem.Lookup(addr)
	if !ok {
		return &RunError{Kind: ErrMemWrite, Address: addr, Size: 4, Value: v, Cause: CauseInvalidAddress}
	}
	if addr&3 == 0 {
		if !r.Writable || !r.Iface.WriteU32LE(off, v) {
			return &RunError{Kind: ErrMemWrite, Address: addr, Size: 4, Value: v, Cause: CauseReadOnly}
		}
		return nil
	}
	if err := p.writeU8(addr, uint8(v)); err != nil {
		return err
	}
	if err := p.writeU8(addr+1, uint8(v>>8)); err != nil {
		return err
	}
	if err := p.writeU8(addr+2, uint8(v>>16)); err != nil {
		return err
	}
	return p.writeU8(addr+3, uint8(v>>24))
}

func (p *Processor) swap16(v uint16) uint16 {
	if !p.scb.BigEndian() {
		return v
	}
	return v<<8 | v>>8
}

func (p *Processor) swap32(v uint32) uint32 {
	if !p.scb.BigEndian() {
		return v
	}
	return v<<24 | (v&0xFF00)<<8 | (v>>8)&0xFF00 | v>>24
}

// raiseUnalignedUsageFault marks CFSR.UNALIGNED and posts the UsageFault
// exception to the pending set.
func (p *Processor) raiseUnalignedUsageFault() {
	p.scb.SetUnaligned()
	p.pending.add(UsageFaultNumber)
}

// memAReadWithPriv implements MemA_with_priv for halfword (size=2) or
// word (size=4) accesses: aligned accesses proceed (with an endianness
// swap); unaligned accesses raise a UsageFault ("B2.3 Memory accesses").
func (p *Processor) memAReadWithPriv(addr uint32, size uint32, priv bool) (uint32, *RunError) {
	if addr%size != 0 {
		p.raiseUnalignedUsageFault()
		return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: int(size), Cause: CauseInvalidAlignment}
	}
	return p.memReadAligned(addr, size, priv)
}

func (p *Processor) memAWriteWithPriv(addr uint32, size uint32, value uint32, priv bool) *RunError {
	if addr%size != 0 {
		p.raiseUnalignedUsageFault()
		return &RunError{Kind: ErrMemWrite, Address: addr, Size: int(size), Value: value, Cause: CauseInvalidAlignment}
	}
	return p.memWriteAligned(addr, size, value, priv)
}

func (p *Processor) memReadAligned(addr uint32, size uint32, priv bool) (uint32, *RunError) {
	r, off, ok := p.mem.Lookup(addr)
	if !ok {
		return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: int(size), Cause: CauseInvalidAddress}
	}
	if !priv && addr >= peripheralsBase && addr < peripheralsBase+0x100000 {
		return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: int(size), Cause: CausePrivilegedOnly}
	}
	switch size {
	case 1:
		v, ok := r.Iface.ReadU8(off)
		if !ok {
			return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: int(size), Cause: CauseInvalidAddress}
		}
		return uint32(v), nil
	case 2:
		v, ok := r.Iface.ReadU16LE(off)
		if !ok {
			return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: int(size), Cause: CauseInvalidAddress}
		}
		return uint32(p.swap16(v)), nil
	case 4:
		v, ok := r.Iface.ReadU32LE(off)
		if !ok {
			return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: int(size), Cause: CauseInvalidAddress}
		}
		return p.swap32(v), nil
	}
	panic("memory: memReadAligned called with unsupported size")
}

func (p *Processor) memWriteAligned(addr uint32, size uint32, value uint32, priv bool) *RunError {
	r, off, ok := p.mem.Lookup(addr)
	if !ok {
		return &RunError{Kind: ErrMemWrite, Address: addr, Size: int(size), Value: value, Cause: CauseInvalidAddress}
	}
	if !priv && addr >= peripheralsBase && addr < peripheralsBase+0x100000 {
		return &RunError{Kind: ErrMemWrite, Address: addr, Size: int(size), Value: value, Cause: CausePrivilegedOnly}
	}
	if !r.Writable {
		return &RunError{Kind: ErrMemWrite, Address: addr, Size: int(size), Value: value, Cause: CauseReadOnly}
	}
	switch size {
	case 1:
		if !r.Iface.WriteU8(off, uint8(value)) {
			return &RunError{Kind: ErrMemWrite, Address: addr, Size: int(size), Value: value, Cause: CauseInvalidValue}
		}
	case 2:
		if !r.Iface.WriteU16LE(off, uint16(p.swap16(uint16(value)))) {
			return &RunError{Kind: ErrMemWrite, Address: addr, Size: int(size), Value: value, Cause: CauseInvalidValue}
		}
	case 4:
		if !r.Iface.WriteU32LE(off, p.swap32(value)) {
			return &RunError{Kind: ErrMemWrite, Address: addr, Size: int(size), Value: value, Cause: CauseInvalidValue}
		}
	default:
		panic("memory: memWriteAligned called with unsupported size")
	}
	return nil
}

// peripheralsBase marks the start of the System Control Space region used
// for the privileged-only check; real firmware maps further peripherals
// beyond this page, but enforcing privilege there is a concern of those
// peripherals, not this package.
const peripheralsBase = 0xE0000000

// memUReadWithPriv implements MemU_with_priv: aligned accesses delegate
// to the aligned path; unaligned accesses either trap (CCR.UNALIGN_TRP)
// or are composed byte-wise in the configured endianness.
func (p *Processor) memUReadWithPriv(addr uint32, size uint32, priv bool) (uint32, *RunError) {
	if addr%size == 0 {
		return p.memReadAligned(addr, size, priv)
	}
	if p.scb.UnalignTrap() {
		p.raiseUnalignedUsageFault()
		return 0, &RunError{Kind: ErrMemRead, Address: addr, Size: int(size), Cause: CauseInvalidAlignment}
	}
	var bytes [4]uint8
	for i := uint32(0); i < size; i++ {
		b, err := p.readU8(addr + i)
		if err != nil {
			return 0, err
		}
		bytes[i] = b
	}
	return p.composeBytes(bytes[:size]), nil
}

func (p *Processor) memUWriteWithPriv(addr uint32, size uint32, value uint32, priv bool) *RunError {
	if addr%size == 0 {
		return p.memWriteAligned(addr, size, value, priv)
	}
	if p.scb.UnalignTrap() {
		p.raiseUnalignedUsageFault()
		return &RunError{Kind: ErrMemWrite, Address: addr, Size: int(size), Value: value, Cause: CauseInvalidAlignment}
	}
	bytes := p.decomposeBytes(value, size)
	for i := uint32(0); i < size; i++ {
		if err := p.writeU8(addr+i, bytes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) composeBytes(b []byte) uint32 {
	if p.scb.BigEndian() {
		var v uint32
		for _, x := range b {
			v = v<<8 | uint32(x)
		}
		return v
	}
	var v uint32
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v
}

func (p *Processor) decomposeBytes(value uint32, size uint32) []byte {
	out := make([]byte, size)
	if p.scb.BigEndian() {
		for i := uint32(0); i < size; i++ {
			out[size-1-i] = byte(value >> (8 * i))
		}
		return out
	}
	for i := uint32(0); i < size; i++ {
		out[i] = byte(value >> (8 * i))
	}
	return out
}
