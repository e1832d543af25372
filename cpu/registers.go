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

import "fmt"

// RegID identifies one of the architectural register variants. SP is a
// virtual identifier: reading or writing it resolves to MSP or PSP
// depending on CONTROL.SPSEL and the current Mode.
type RegID int

// register identifiers: the general-purpose bank, then the M-profile
// special registers.
const (
	R0 RegID = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	SP
	LR
	PC
	NumGeneralRegisters

	APSR RegID = iota + 100
	IPSR
	EPSR
	XPSR
	MSP
	PSP
	PRIMASK
	FAULTMASK
	BASEPRI
	BASEPRIMASK
	CONTROL
)

func (r RegID) String() string {
	switch {
	case r <= R12:
		return fmt.Sprintf("R%d", int(r))
	case r == SP:
		return "SP"
	case r == LR:
		return "LR"
	case r == PC:
		return "PC"
	case r == APSR:
		return "APSR"
	case r == IPSR:
		return "IPSR"
	case r == EPSR:
		return "EPSR"
	case r == XPSR:
		return "xPSR"
	case r == MSP:
		return "MSP"
	case r == PSP:
		return "PSP"
	case r == PRIMASK:
		return "PRIMASK"
	case r == FAULTMASK:
		return "FAULTMASK"
	case r == BASEPRI:
		return "BASEPRI"
	case r == BASEPRIMASK:
		return "BASEPRIMASK"
	case r == CONTROL:
		return "CONTROL"
	}
	return fmt.Sprintf("RegID(%d)", int(r))
}

// Mode is Thread or Handler, per "B1.4.1 Processor mode" in the ARMv7-M ARM.
type Mode int

const (
	ModeThread Mode = iota
	ModeHandler
)

func (m Mode) String() string {
	if m == ModeHandler {
		return "Handler"
	}
	return "Thread"
}

// control register bit positions.
const (
	controlNPRIV = 1 << 0
	controlSPSEL = 1 << 1
)

// Registers is the general-purpose and special register file. Flags, IT
// state and GE bits live in Status, not here - they are packaged together
// into xPSR only at the point of a read/write of the combined register.
type Registers struct {
	gpr [13]uint32 // R0-R12
	lr  uint32
	pc  uint32

	msp uint32
	psp uint32

	primask   bool
	faultmask bool
	basepri   uint8
	control   uint8
}

// spSel reports whether SP currently resolves to PSP (true) or MSP
// (false), per CONTROL.SPSEL - but Handler mode always uses MSP regardless
// of SPSEL.
func (r *Registers) spSel(mode Mode) bool {
	return mode == ModeThread && r.control&controlSPSEL != 0
}

// Read returns the value of a general-purpose or banked-SP register. It
// does not know about APSR/IPSR/EPSR/xPSR - those are read through Status.
func (r *Registers) Read(id RegID, mode Mode) uint32 {
	switch {
	case id <= R12:
		return r.gpr[id]
	case id == SP:
		if r.spSel(mode) {
			return r.psp
		}
		return r.msp
	case id == LR:
		return r.lr
	case id == PC:
		return r.pc
	case id == MSP:
		return r.msp
	case id == PSP:
		return r.psp
	case id == PRIMASK:
		if r.primask {
			return 1
		}
		return 0
	case id == FAULTMASK:
		if r.faultmask {
			return 1
		}
		return 0
	case id == BASEPRI, id == BASEPRIMASK:
		return uint32(r.basepri)
	case id == CONTROL:
		return uint32(r.control)
	}
	panic(fmt.Sprintf("registers: read of unsupported register %s", id))
}

// Write sets the value of a general-purpose or banked-SP register. Writes
// to PC must go through one of the PC-write policies below (aluWritePC,
// bxWritePC, loadWritePC) instead of this method, which performs no
// interworking side effects.
func (r *Registers) Write(id RegID, mode Mode, value uint32) {
	switch {
	case id <= R12:
		r.gpr[id] = value
	case id == SP:
		if r.spSel(mode) {
			r.psp = value
		} else {
			r.msp = value
		}
	case id == LR:
		r.lr = value
	case id == PC:
		r.pc = value
	case id == MSP:
		r.msp = value
	case id == PSP:
		r.psp = value
	case id == PRIMASK:
		r.primask = value&1 != 0
	case id == FAULTMASK:
		r.faultmask = value&1 != 0
	case id == BASEPRI:
		r.basepri = uint8(value)
	case id == BASEPRIMASK:
		// MSR to BASEPRI_MAX: only takes effect if the new value is
		// non-zero and either the current BASEPRI is zero or the new
		// value is of higher priority (numerically lower) than it.
		nv := uint8(value)
		if nv != 0 && (r.basepri == 0 || nv < r.basepri) {
			r.basepri = nv
		}
	case id == CONTROL:
		r.control = uint8(value) & 0x3
	default:
		panic(fmt.Sprintf("registers: write of unsupported register %s", id))
	}
}

// reset sets the banked stack pointers and clears the general-purpose bank.
// SP/LR/PC are then expected to be loaded from the vector table by the
// caller.
func (r *Registers) reset() {
	*r = Registers{}
}

// aluWritePC implements the ALU-write-PC policy (also BLX-write-PC): used
// when ADD/MOV write directly to PC. This core is Thumb-only so the T bit
// implied by bit 0 is not re-validated; bit 0 is simply dropped.
func (p *Processor) aluWritePC(target uint32) Effect {
	p.regs.pc = target &^ 1
	return Effect{Kind: EffectBranch}
}

// bxWritePC implements the BX-write-PC policy: in Handler mode, a target
// whose high nibble is 0xF is an EXC_RETURN code rather than an ordinary
// branch target ("B1.5.8 Exception return behavior").
func (p *Processor) bxWritePC(target uint32) Effect {
	if p.status.mode() == ModeHandler && target>>28 == 0xF {
		if err := p.exceptionReturn(target); err != nil {
			return Effect{Kind: EffectBranch, Err: err}
		}
		return Effect{Kind: EffectBranch}
	}
	return p.aluWritePC(target)
}

// loadWritePC implements the LoadWritePC policy used by LDR into PC and
// POP with PC - identical to BX-write-PC.
func (p *Processor) loadWritePC(target uint32) Effect {
	return p.bxWritePC(target)
}
