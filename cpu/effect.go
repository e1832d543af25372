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

// EffectKind classifies the side effect an executed instruction reports
// back to the pipeline, beyond its direct register/memory writes.
type EffectKind int

const (
	// EffectNone is the ordinary case: no special pipeline handling needed.
	EffectNone EffectKind = iota
	// EffectBranch indicates the instruction wrote PC itself (directly or
	// via one of the PC-write policies); the pipeline must not apply its
	// own PC correction.
	EffectBranch
	// EffectBreak corresponds to BKPT; the immediate is carried in Imm8.
	EffectBreak
	// EffectDebugHint corresponds to DBG; the 4-bit option is in Imm8.
	EffectDebugHint
	// EffectWaitForEvent corresponds to WFE.
	EffectWaitForEvent
	// EffectWaitForInterrupt corresponds to WFI.
	EffectWaitForInterrupt
)

// Effect is returned by every Instruction's Execute method.
type Effect struct {
	Kind EffectKind
	Imm8 uint8
	// Err, when non-nil, is surfaced by the pipeline as the Step/Run
	// error instead of emitting an ordinary event - used by the handful
	// of instructions (exception-return branches, coprocessor dispatch)
	// whose execute-time fault can only be discovered while running.
	Err *RunError
}

// EventKind classifies what Step/Run observed.
type EventKind int

const (
	EventInstruction EventKind = iota
	EventHook
	EventReset
	EventBreak
	EventDebugHint
)

// Event is returned by Step, and by Run for the first non-instruction event
// it observes (or when it runs out of gas).
type Event struct {
	Kind    EventKind
	Address uint32 // valid for EventHook
	Imm8    uint8  // valid for EventBreak/EventDebugHint
}

// FaultCause enumerates the reasons a memory access can fail.
type FaultCause int

const (
	CauseInvalidAddress FaultCause = iota
	CauseInvalidSize
	CauseInvalidValue
	CauseInvalidAlignment
	CauseReadOnly
	CauseIllegal
	CausePrivilegedOnly
	CauseHardwareError
)

func (c FaultCause) String() string {
	switch c {
	case CauseInvalidAddress:
		return "invalid address"
	case CauseInvalidSize:
		return "invalid size"
	case CauseInvalidValue:
		return "invalid value"
	case CauseInvalidAlignment:
		return "invalid alignment"
	case CauseReadOnly:
		return "read only"
	case CauseIllegal:
		return "illegal"
	case CausePrivilegedOnly:
		return "privileged only"
	case CauseHardwareError:
		return "hardware error"
	}
	return "unknown cause"
}

// RunError is returned by Step/Run when execution cannot continue the way
// an ordinary Event can represent.
type RunError struct {
	// Kind categorizes the error for callers that want to switch on it
	// without string matching.
	Kind RunErrorKind

	// fields valid depending on Kind
	Address uint32
	Size    int
	Value   uint32
	Cause   FaultCause
}

// RunErrorKind enumerates the RunError categories.
type RunErrorKind int

const (
	ErrInstructionUnknown RunErrorKind = iota
	ErrInstructionUnpredictable
	ErrInstructionUndefined
	ErrUnpredictable
	ErrMemRead
	ErrMemWrite
)

func (e *RunError) Error() string {
	switch e.Kind {
	case ErrInstructionUnknown:
		return fmt.Sprintf("unknown instruction at %#08x", e.Address)
	case ErrInstructionUnpredictable:
		return fmt.Sprintf("unpredictable instruction encoding at %#08x", e.Address)
	case ErrInstructionUndefined:
		return fmt.Sprintf("undefined instruction at %#08x", e.Address)
	case ErrUnpredictable:
		return fmt.Sprintf("unpredictable execution at %#08x", e.Address)
	case ErrMemRead:
		return fmt.Sprintf("memory read fault: address=%#08x size=%d cause=%s", e.Address, e.Size, e.Cause)
	case ErrMemWrite:
		return fmt.Sprintf("memory write fault: address=%#08x size=%d value=%#08x cause=%s", e.Address, e.Size, e.Value, e.Cause)
	}
	return "unknown run error"
}
