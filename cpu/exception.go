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

	"github.com/cortexm/thumbm/armlog"
)

// Fixed exception numbers ("B1.5.2 Exception number definition").
const (
	ExceptionReset        uint16 = 1
	ExceptionNMI          uint16 = 2
	ExceptionHardFault    uint16 = 3
	ExceptionMemManage    uint16 = 4
	ExceptionBusFault     uint16 = 5
	ExceptionUsageFault   uint16 = 6
	ExceptionSVCall       uint16 = 11
	ExceptionDebugMonitor uint16 = 12
	ExceptionPendSV       uint16 = 14
	ExceptionSysTick      uint16 = 15
	externalExceptionBase uint16 = 16
)

// IRQ identifies an exception to request via RequestInterrupt. Use the
// External constructor for interrupts wired through NVIC rather than one of
// the fixed system exceptions.
type IRQ struct {
	number uint16
}

// External builds the IRQ for external interrupt line n (0-based); it maps
// to exception number 16+n.
func External(n uint16) IRQ { return IRQ{number: externalExceptionBase + n} }

// Number returns the exception number this IRQ posts.
func (i IRQ) Number() uint16 { return i.number }

var (
	Reset        = IRQ{number: ExceptionReset}
	NMI          = IRQ{number: ExceptionNMI}
	HardFault    = IRQ{number: ExceptionHardFault}
	MemManage    = IRQ{number: ExceptionMemManage}
	BusFault     = IRQ{number: ExceptionBusFault}
	UsageFault   = IRQ{number: ExceptionUsageFault}
	SVCall       = IRQ{number: ExceptionSVCall}
	DebugMonitor = IRQ{number: ExceptionDebugMonitor}
	PendSV       = IRQ{number: ExceptionPendSV}
	SysTickExc   = IRQ{number: ExceptionSysTick}
)

// pendingSet is the set of exception numbers currently pending: lowest
// number dispatches first. NVIC_IPR and SHPR are plain storage only -
// this emulator's scheduler does not consult them, dispatching strictly
// in numerical order instead.
type pendingSet struct {
	numbers map[uint16]bool
}

// add records n as pending. Posting the same source twice behaves as
// posting it once.
func (s *pendingSet) add(n uint16) {
	if s.numbers == nil {
		s.numbers = make(map[uint16]bool)
	}
	s.numbers[n] = true
}

func (s *pendingSet) remove(n uint16) {
	delete(s.numbers, n)
}

func (s *pendingSet) has(n uint16) bool {
	return s.numbers[n]
}

func (s *pendingSet) isEmpty() bool {
	return len(s.numbers) == 0
}

// lowestPending returns the numerically lowest pending exception number
// that is not already active, and whether one exists.
func (s *pendingSet) lowestPending(active map[uint16]bool) (uint16, bool) {
	best := uint16(0)
	found := false
	for n := range s.numbers {
		if active[n] {
			continue
		}
		if !found || n < best {
			best, found = n, true
		}
	}
	return best, found
}

// exceptionActive reports whether exception n is currently on the active
// stack (it or an exception it preempted).
func (p *Processor) exceptionActive(n uint16) bool {
	return p.active[n]
}

// errNoException describes the case where no sufficiently high priority
// exception is pending. No path returns it: serviceExceptions reports that
// case by returning nil.
var errNoException = fmt.Errorf("cpu: no exception eligible to be taken")

// exceptionFrame is the eight (or, with FP lazy stacking, more - not
// modeled, since this core has no FPU) words pushed on exception entry.
type exceptionFrame struct {
	r0, r1, r2, r3, r12 uint32
	lr, pc, xpsr        uint32
}

// pushStack implements the stack-frame push performed on exception entry,
// writing through the currently selected SP (MSP or PSP per the frame's
// origin), applying CCR.STKALIGN 8-byte re-alignment and reporting the
// resulting, possibly-adjusted, frame pointer and the forced-alignment bit
// that exception return must restore.
func (p *Processor) pushStack(usePSP bool) (frameSP uint32, framePtrAligned bool, rerr *RunError) {
	sp := p.regs.msp
	if usePSP {
		sp = p.regs.psp
	}
	forced := false
	if p.scb.StackAlign() && sp&0x4 != 0 {
		sp -= 4
		forced = true
	}
	sp -= 32
	frame := exceptionFrame{
		r0: p.regs.gpr[R0], r1: p.regs.gpr[R1], r2: p.regs.gpr[R2], r3: p.regs.gpr[R3],
		r12: p.regs.gpr[R12], lr: p.regs.lr, pc: p.regs.pc, xpsr: p.status.xpsr(),
	}
	if forced {
		frame.xpsr |= 1 << 9
	}
	words := [8]uint32{frame.r0, frame.r1, frame.r2, frame.r3, frame.r12, frame.lr, frame.pc, frame.xpsr}
	for i, w := range words {
		if err := p.writeU32Unchecked(sp+uint32(i*4), w); err != nil {
			return 0, false, err
		}
	}
	if usePSP {
		p.regs.psp = sp
	} else {
		p.regs.msp = sp
	}
	return sp, forced, nil
}

// popStack implements the stack-frame pop performed on exception return,
// the mirror image of pushStack.
func (p *Processor) popStack(usePSP bool) *RunError {
	sp := p.regs.msp
	if usePSP {
		sp = p.regs.psp
	}
	var words [8]uint32
	for i := range words {
		w, err := p.readU32Unchecked(sp + uint32(i*4))
		if err != nil {
			return err
		}
		words[i] = w
	}
	sp += 32
	xpsr := words[7]
	if xpsr&(1<<9) != 0 {
		sp += 4
	}
	p.regs.gpr[R0], p.regs.gpr[R1], p.regs.gpr[R2], p.regs.gpr[R3] = words[0], words[1], words[2], words[3]
	p.regs.gpr[R12] = words[4]
	p.regs.lr = words[5]
	pc := words[6]
	if pc&1 != 0 {
		// exception entry pushes an even return address; a stacked PC
		// with bit 0 set means the frame was corrupted (or hand-built).
		if !p.toleratePopStackUnalignedPC {
			return &RunError{Kind: ErrUnpredictable, Address: pc, Cause: CauseInvalidValue}
		}
		armlog.Logf("exception", "tolerating popped PC %#08x with bit 0 set", pc)
	}
	p.regs.pc = pc &^ 1
	p.status.setAPSR(xpsr)
	p.status.setITState(uint8((xpsr>>10&0x3f)<<2 | (xpsr >> 25 & 0x3)))
	p.status.exceptionNumber = uint16(xpsr & 0x1ff)
	if usePSP {
		p.regs.psp = sp
	} else {
		p.regs.msp = sp
	}
	return nil
}

// excReturnMode describes the decoded meaning of an EXC_RETURN value's low
// nibble: which stack the frame came from, and whether it returns to
// Thread or Handler mode.
type excReturnMode struct {
	toThread bool
	usePSP   bool
}

// decodeExcReturn validates an EXC_RETURN value against the three
// supported encodings named in the data model (0xFFFFFFF1, 0xFFFFFFF9,
// 0xFFFFFFFD); any other low nibble is architecturally UNPREDICTABLE and,
// per this package's resolution of that open question, is surfaced as
// ErrUnpredictable rather than silently coerced to one of the valid forms.
func decodeExcReturn(value uint32) (excReturnMode, *RunError) {
	if value&0xFFFFFF00 != 0xFFFFFF00 {
		return excReturnMode{}, &RunError{Kind: ErrUnpredictable, Value: value, Cause: CauseInvalidValue}
	}
	switch value & 0xF {
	case 0x1:
		return excReturnMode{toThread: false, usePSP: false}, nil
	case 0x9:
		return excReturnMode{toThread: true, usePSP: false}, nil
	case 0xD:
		return excReturnMode{toThread: true, usePSP: true}, nil
	default:
		armlog.Logf("exception", "reserved EXC_RETURN value %#08x", value)
		return excReturnMode{}, &RunError{Kind: ErrUnpredictable, Value: value, Cause: CauseInvalidValue}
	}
}

// takeException performs exception entry for number n: pushes the stack
// frame on the currently active stack, switches to Handler mode / MSP,
// fetches the handler address from the vector table at VTOR+4*n, and sets
// LR to the appropriate EXC_RETURN value.
func (p *Processor) takeException(n uint16) *RunError {
	usePSP := p.status.mode() == ModeThread && p.regs.control&controlSPSEL != 0
	sp, _, err := p.pushStack(usePSP)
	_ = sp
	if err != nil {
		return err
	}
	excReturn := uint32(0xFFFFFFF1)
	switch {
	case p.status.mode() == ModeThread && usePSP:
		excReturn = 0xFFFFFFFD
	case p.status.mode() == ModeThread && !usePSP:
		excReturn = 0xFFFFFFF9
	}
	p.active[n] = true
	p.pending.remove(n)
	p.waiting = waitNone
	p.status.exceptionNumber = n
	p.regs.control &^= controlSPSEL
	p.regs.lr = excReturn
	p.monitor.clear()
	vector, err := p.readU32Unchecked(p.scb.VTOR() + 4*uint32(n))
	if err != nil {
		return err
	}
	p.regs.pc = vector &^ 1
	p.status.itCond, p.status.itMask = 0, 0
	return nil
}

// exceptionReturn performs exception return given an EXC_RETURN value
// written to PC (via BX LR or a POP that loads PC), popping the
// appropriate stack frame and restoring Thread/Handler mode.
func (p *Processor) exceptionReturn(excReturn uint32) *RunError {
	mode, err := decodeExcReturn(excReturn)
	if err != nil {
		return err
	}
	returning := p.status.exceptionNumber
	p.active[returning] = false
	if mode.toThread {
		p.status.exceptionNumber = 0
		if mode.usePSP {
			p.regs.control |= controlSPSEL
		} else {
			p.regs.control &^= controlSPSEL
		}
	} else {
		p.status.exceptionNumber = 0 // overwritten by the popped xPSR below
	}
	p.monitor.clear()
	return p.popStack(mode.usePSP && mode.toThread)
}

// serviceExceptions checks for a pending, not-yet-active exception and, if
// one exists, takes it. Dispatch is strictly in numerical order (see
// pendingSet) - PRIMASK/FAULTMASK still gate dispatch since they are a
// simple global on/off switch, but BASEPRI and the stored NVIC/SHPR
// priorities are not consulted. Called once per Step before fetch/decode.
func (p *Processor) serviceExceptions() *RunError {
	if p.pending.isEmpty() {
		return nil
	}
	n, ok := p.pending.lowestPending(p.active)
	if !ok {
		return nil
	}
	if p.regs.faultmask && n != ExceptionNMI {
		return nil
	}
	if p.regs.primask && n != ExceptionNMI && n != ExceptionHardFault {
		return nil
	}
	return p.takeException(n)
}
