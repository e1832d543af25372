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
	"github.com/cortexm/thumbm/armlog"
	"github.com/cortexm/thumbm/cpu/membus"
)

// RunOptions controls Run's stopping condition.
type RunOptions struct {
	// Gas, if non-nil, bounds the number of steps Run will take; it is
	// decremented once per step and Run stops when it reaches zero.
	Gas *int
}

// Run repeatedly calls Step until a non-Instruction event occurs, an error
// is returned, or opts.Gas (if set) is exhausted. Only Instruction events
// count against the gas; on exhaustion the last Instruction event is
// returned.
func (p *Processor) Run(opts RunOptions) (Event, *RunError) {
	for {
		ev, err := p.Step()
		if err != nil {
			return ev, err
		}
		if ev.Kind != EventInstruction {
			return ev, nil
		}
		if opts.Gas != nil {
			*opts.Gas--
			if *opts.Gas <= 0 {
				return ev, nil
			}
		}
	}
}

// Step executes one pipeline tick: pending-interrupt dispatch, code-hook
// check, fetch-decode-execute, WFE/WFI handling, deferred-action
// draining, peripheral update and the cycle increment - in that order.
func (p *Processor) Step() (Event, *RunError) {
	if err := p.serviceExceptions(); err != nil {
		return Event{}, err
	}
	if p.waiting == waitForInterrupt {
		if p.endOfStep() {
			return Event{Kind: EventReset}, nil
		}
		return Event{Kind: EventInstruction, Address: p.regs.pc}, nil
	}

	for _, h := range p.hooks {
		if h.Address == p.regs.pc {
			ev := Event{Kind: EventHook, Address: p.regs.pc}
			p.endOfStep()
			return ev, nil
		}
	}

	var ev Event
	var rerr *RunError
	if p.waiting == waitForEvent {
		if p.eventFlag {
			p.eventFlag = false
			p.waiting = waitNone
			ev, rerr = p.fetchDecodeExecute()
		} else {
			ev = Event{Kind: EventInstruction, Address: p.regs.pc}
		}
	} else {
		ev, rerr = p.fetchDecodeExecute()
	}
	if rerr != nil {
		return ev, rerr
	}

	if p.endOfStep() {
		return Event{Kind: EventReset}, nil
	}
	return ev, nil
}

// endOfStep drains the deferred-action queue, updates every mapped
// peripheral, and advances the cycle counter. It reports whether a
// deferred Reset action fired, in which case the processor has already
// been reset and the step surfaces EventReset.
func (p *Processor) endOfStep() bool {
	for _, r := range p.mem.Regions() {
		r.Iface.Update(1, &p.actions)
	}
	for _, a := range p.actions {
		switch a.Kind {
		case membus.ActionIRQ:
			p.pending.add(a.IRQ)
			p.eventFlag = true
		case membus.ActionReset:
			p.actions = p.actions[:0]
			p.reset()
			return true
		}
	}
	p.actions = p.actions[:0]
	p.cycles++
	return false
}

// fetchDecodeExecute is the core of a step: fetch, classify size, decode,
// speculative PC adjustment, condition resolution, IT advance,
// conditional execute and the 16-bit PC correction.
func (p *Processor) fetchDecodeExecute() (Event, *RunError) {
	pc := p.regs.pc
	if r, _, ok := p.mem.Lookup(pc); ok && !r.Executable {
		return Event{}, &RunError{Kind: ErrMemRead, Address: pc, Size: 2, Cause: CauseIllegal}
	}
	first, err := p.readU16Unchecked(pc)
	if err != nil {
		return Event{}, err
	}
	size := instructionSize(first)

	var rawBits uint32
	if size == 2 {
		rawBits = uint32(first)
	} else {
		second, err := p.readU16Unchecked(pc + 2)
		if err != nil {
			return Event{}, err
		}
		rawBits = uint32(first)<<16 | uint32(second)
	}

	it := itStateView{inITBlock: p.status.inITBlock(), lastInITBlock: p.status.lastInITBlock()}
	ins, derr := p.lutDecoder.Decode(rawBits, size, it, p.cfg.Version)
	if derr != nil {
		switch dec := derr.(type) {
		case *DecodeError:
			switch dec.Kind {
			case DecodeUnpredictable:
				armlog.Logf("decoder", "unpredictable encoding %#08x at %#08x", rawBits, pc)
				p.scb.SetInvState()
				return Event{}, &RunError{Kind: ErrInstructionUnpredictable, Address: pc}
			case DecodeUndefined:
				armlog.Logf("decoder", "undefined encoding %#08x at %#08x", rawBits, pc)
				return Event{}, &RunError{Kind: ErrInstructionUndefined, Address: pc}
			}
		}
		armlog.Logf("decoder", "unknown encoding %#08x at %#08x", rawBits, pc)
		return Event{}, &RunError{Kind: ErrInstructionUnknown, Address: pc}
	}

	p.regs.pc = pc + 4 // speculative; corrected below if this was a 16-bit non-branch

	cond, hasCond := uint8(0b1110), false
	if bCond, ok := ins.(conditionalBranch); ok {
		cond, hasCond = bCond.condition(), true
	} else if itCond, ok := p.status.currentCondition(); ok {
		cond, hasCond = itCond, true
	}
	p.status.advance()

	execute := !hasCond || p.status.condition(cond)

	var effect Effect
	if execute {
		effect = ins.Execute(p)
	}
	if effect.Err != nil {
		return Event{}, effect.Err
	}

	if effect.Kind != EffectBranch && size == 2 {
		p.regs.pc -= 2
	}

	ev := Event{Kind: EventInstruction, Address: pc}
	switch effect.Kind {
	case EffectBreak:
		ev.Kind = EventBreak
		ev.Imm8 = effect.Imm8
	case EffectDebugHint:
		ev.Kind = EventDebugHint
		ev.Imm8 = effect.Imm8
	case EffectWaitForEvent:
		p.waiting = waitForEvent
	case EffectWaitForInterrupt:
		p.waiting = waitForInterrupt
	}
	return ev, nil
}

// conditionalBranch is implemented only by the B instruction variants,
// which are the sole instructions carrying their own condition field
// outside of an IT block.
type conditionalBranch interface {
	condition() uint8
}
