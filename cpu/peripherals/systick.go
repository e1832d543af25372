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

package peripherals

import "github.com/cortexm/thumbm/cpu/membus"

// SysTickIRQ is the fixed exception number for the SysTick exception.
const SysTickIRQ = 15

// SysTick bits within STCSR.
const (
	stcsrEnable    = 1 << 0
	stcsrTickInt   = 1 << 1
	stcsrClkSource = 1 << 2
	stcsrCountFlag = 1 << 16
)

// SysTick implements the SysTick timer: on each tick, if ENABLE, decrement
// the current value register; on wrap, reload from STRVR and, if TICKINT,
// queue an Irq ("B3.3 The system timer, SysTick").
type SysTick struct {
	csr   uint32
	rvr   uint32
	cvr   uint32
	calib uint32

	countFlag bool
}

// NewSysTick constructs a SysTick with a plausible 10ms calibration value
// (TENMS unknown, SKEW and NOREF set, as is typical when no reference
// clock is modeled).
func NewSysTick() SysTick {
	return SysTick{calib: 0xC0000000}
}

func (t *SysTick) Reset() {
	t.csr = 0
	t.rvr = 0
	t.cvr = 0
	t.countFlag = false
}

// readCSR returns STCSR and clears COUNTFLAG, which is set-on-wrap and
// cleared-on-read.
func (t *SysTick) readCSR() uint32 {
	v := t.csr
	if t.countFlag {
		v |= stcsrCountFlag
	}
	t.countFlag = false
	return v
}

func (t *SysTick) writeCSR(value uint32) {
	t.csr = value & (stcsrEnable | stcsrTickInt | stcsrClkSource)
}

func (t *SysTick) writeCVR(value uint32) {
	// any write clears the current value and COUNTFLAG
	t.cvr = 0
	t.countFlag = false
}

func (t *SysTick) enabled() bool { return t.csr&stcsrEnable != 0 }
func (t *SysTick) tickInt() bool { return t.csr&stcsrTickInt != 0 }

// update decrements STCVR by cycles, reloading from STRVR and posting an
// Irq on wraparound.
func (t *SysTick) update(cycles uint32, actions *[]membus.DeferredAction) {
	if !t.enabled() || cycles == 0 {
		return
	}
	for cycles > 0 {
		if t.cvr == 0 {
			if t.rvr == 0 {
				return
			}
			t.cvr = t.rvr
		}
		step := cycles
		if step > t.cvr {
			step = t.cvr
		}
		t.cvr -= step
		cycles -= step
		if t.cvr == 0 {
			t.countFlag = true
			if t.tickInt() {
				*actions = append(*actions, membus.DeferredAction{Kind: membus.ActionIRQ, IRQ: SysTickIRQ})
			}
		}
	}
}
