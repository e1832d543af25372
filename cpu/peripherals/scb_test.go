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

package peripherals_test

import (
	"testing"

	"github.com/cortexm/thumbm/cpu/architecture"
	"github.com/cortexm/thumbm/cpu/membus"
	"github.com/cortexm/thumbm/cpu/peripherals"
	"github.com/cortexm/thumbm/test"
)

const (
	offSTCSR = 0x010
	offSTRVR = 0x014
	offSTCVR = 0x018
	offVTOR  = 0xD08
	offAIRCR = 0xD0C
	offCCR   = 0xD14
)

func prepareSCB() *peripherals.SystemControlBlock {
	return peripherals.NewSystemControlBlock(architecture.NewConfig(architecture.V7M, 32, 4))
}

func TestVTORReservedBits(t *testing.T) {
	scb := prepareSCB()

	test.ExpectEquality(t, scb.WriteU32LE(offVTOR, 0x00010000), true)
	test.ExpectEquality(t, scb.VTOR(), 0x00010000)

	// the low seven bits are reserved and must be zero on write
	test.ExpectEquality(t, scb.WriteU32LE(offVTOR, 0x00010040), false)
	test.ExpectEquality(t, scb.VTOR(), 0x00010000)
}

func TestAIRCRRequiresVectKey(t *testing.T) {
	scb := prepareSCB()

	// a write without the 0x05FA key in the top halfword is ignored
	test.ExpectEquality(t, scb.WriteU32LE(offAIRCR, 0x00000001), false)

	// with the key, VECTRESET queues a reset
	test.ExpectEquality(t, scb.WriteU32LE(offAIRCR, 0x05FA0001), true)

	var actions []membus.DeferredAction
	scb.Update(1, &actions)
	if len(actions) != 1 || actions[0].Kind != membus.ActionReset {
		t.Fatalf("expected one queued reset action, got %v", actions)
	}

	// the reset request is consumed
	actions = actions[:0]
	scb.Update(1, &actions)
	test.ExpectEquality(t, len(actions), 0)
}

func TestCCRResetValue(t *testing.T) {
	scb := prepareSCB()
	// STKALIGN resets to 1, per the recommended reset value
	test.ExpectEquality(t, scb.StackAlign(), true)
	test.ExpectEquality(t, scb.UnalignTrap(), false)

	test.ExpectEquality(t, scb.WriteU32LE(offCCR, 1<<3), true)
	test.ExpectEquality(t, scb.UnalignTrap(), true)
}

func TestSysTickCountdown(t *testing.T) {
	scb := prepareSCB()

	test.ExpectEquality(t, scb.WriteU32LE(offSTRVR, 10), true)
	test.ExpectEquality(t, scb.WriteU32LE(offSTCSR, 0x3), true) // ENABLE | TICKINT

	var actions []membus.DeferredAction
	for i := 0; i < 10; i++ {
		scb.Update(1, &actions)
	}
	if len(actions) != 1 || actions[0].Kind != membus.ActionIRQ || actions[0].IRQ != 15 {
		t.Fatalf("expected one SysTick IRQ after 10 ticks, got %v", actions)
	}

	// COUNTFLAG reads set once, then clears on read
	csr, ok := scb.ReadU32LE(offSTCSR)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, csr&(1<<16) != 0, true)
	csr, _ = scb.ReadU32LE(offSTCSR)
	test.ExpectEquality(t, csr&(1<<16) != 0, false)
}

func TestSysTickDisabled(t *testing.T) {
	scb := prepareSCB()
	test.ExpectEquality(t, scb.WriteU32LE(offSTRVR, 10), true)

	// without ENABLE nothing counts
	var actions []membus.DeferredAction
	for i := 0; i < 100; i++ {
		scb.Update(1, &actions)
	}
	test.ExpectEquality(t, len(actions), 0)
}

func TestSysTickCVRWriteClears(t *testing.T) {
	scb := prepareSCB()
	test.ExpectEquality(t, scb.WriteU32LE(offSTRVR, 100), true)
	test.ExpectEquality(t, scb.WriteU32LE(offSTCSR, 0x1), true)

	var actions []membus.DeferredAction
	scb.Update(5, &actions)
	cvr, _ := scb.ReadU32LE(offSTCVR)
	test.ExpectEquality(t, cvr, 95)

	// any write to STCVR clears it
	test.ExpectEquality(t, scb.WriteU32LE(offSTCVR, 0x1234), true)
	cvr, _ = scb.ReadU32LE(offSTCVR)
	test.ExpectEquality(t, cvr, 0)
}

func TestNVICEnableDisable(t *testing.T) {
	scb := prepareSCB()

	// ISER is write-one-to-enable
	test.ExpectEquality(t, scb.WriteU32LE(0x100, 1<<5), true)
	test.ExpectEquality(t, scb.IRQEnabled(5), true)
	test.ExpectEquality(t, scb.IRQEnabled(6), false)

	// ICER is write-one-to-disable
	test.ExpectEquality(t, scb.WriteU32LE(0x180, 1<<5), true)
	test.ExpectEquality(t, scb.IRQEnabled(5), false)
}

func TestPriorityStorage(t *testing.T) {
	scb := prepareSCB()

	// NVIC_IPR bytes are plain storage
	test.ExpectEquality(t, scb.WriteU32LE(0x400, 0x40302010), true)
	test.ExpectEquality(t, scb.PriorityOf(16), 0x10)
	test.ExpectEquality(t, scb.PriorityOf(17), 0x20)
	test.ExpectEquality(t, scb.PriorityOf(18), 0x30)
	test.ExpectEquality(t, scb.PriorityOf(19), 0x40)

	// SHPR likewise, for the configurable system exceptions
	test.ExpectEquality(t, scb.WriteU32LE(0xD18, 0x0000A000), true)
	test.ExpectEquality(t, scb.PriorityOf(5), 0xA0)
}
