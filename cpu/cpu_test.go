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

package cpu_test

import (
	"encoding/binary"
	"testing"

	"github.com/cortexm/thumbm/cpu"
	"github.com/cortexm/thumbm/cpu/architecture"
	"github.com/cortexm/thumbm/test"
)

// assemble packs a sequence of 16-bit instruction halfwords into a
// little-endian byte stream. 32-bit instructions are supplied as two
// halfwords, first halfword first.
func assemble(halfwords ...uint16) []byte {
	out := make([]byte, 0, len(halfwords)*2)
	for _, h := range halfwords {
		out = binary.LittleEndian.AppendUint16(out, h)
	}
	return out
}

func prepareProcessor(t *testing.T, version architecture.Version, program []byte) *cpu.Processor {
	t.Helper()
	proc, err := cpu.NewProcessor(architecture.NewConfig(version, 32, 4))
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	if program != nil {
		if _, err := proc.Map(0x1000, program); err != nil {
			t.Fatalf("Map: %v", err)
		}
		proc.SetRegister(cpu.PC, 0x1000)
	}
	return proc
}

func stepN(t *testing.T, proc *cpu.Processor, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := proc.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestSubtractRegister(t *testing.T) {
	// MOVS r0, #5; MOVS r1, #2; SUBS r2, r0, r1
	proc := prepareProcessor(t, architecture.V7M, []byte{0x05, 0x20, 0x02, 0x21, 0x42, 0x1A})
	stepN(t, proc, 3)

	regs := proc.Registers()
	test.ExpectEquality(t, regs[cpu.R0], 5)
	test.ExpectEquality(t, regs[cpu.R1], 2)
	test.ExpectEquality(t, regs[cpu.R2], 3)

	// SUBS borrows through an inverted carry: 5-2 does not borrow, so C
	// must be set and N/Z/V clear.
	test.ExpectEquality(t, proc.Register(cpu.APSR), uint32(1<<29))
}

func TestAddOverflowFlags(t *testing.T) {
	// MOVS r1, #1; ADDS r0, r0, r1 with r0 = 0x7FFFFFFF
	proc := prepareProcessor(t, architecture.V7M, assemble(0x2101, 0x1840))
	proc.SetRegister(cpu.R0, 0x7FFFFFFF)
	stepN(t, proc, 2)

	test.ExpectEquality(t, proc.Registers()[cpu.R0], uint32(0x80000000))
	apsr := proc.Register(cpu.APSR)
	test.ExpectEquality(t, apsr&(1<<31) != 0, true)  // N
	test.ExpectEquality(t, apsr&(1<<30) != 0, false) // Z
	test.ExpectEquality(t, apsr&(1<<29) != 0, false) // C
	test.ExpectEquality(t, apsr&(1<<28) != 0, true)  // V
}

func TestBreakpointEvent(t *testing.T) {
	proc := prepareProcessor(t, architecture.V7M, assemble(0xBEA5))
	before := proc.Registers()

	ev, err := proc.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	test.ExpectEquality(t, ev.Kind, cpu.EventBreak)
	test.ExpectEquality(t, ev.Imm8, 0xA5)

	after := proc.Registers()
	for r := cpu.R0; r <= cpu.LR; r++ {
		test.ExpectEquality(t, after[r], before[r])
	}
	test.ExpectEquality(t, after[cpu.PC], before[cpu.PC]+2)
}

func TestMOVTCompose(t *testing.T) {
	// MOVT r0, #0x1234; MOVT r0, #0
	proc := prepareProcessor(t, architecture.V7M, assemble(0xF2C1, 0x2034, 0xF2C0, 0x0000))
	proc.SetRegister(cpu.R0, 0x87654321)

	stepN(t, proc, 1)
	test.ExpectEquality(t, proc.Registers()[cpu.R0], uint32(0x12344321))

	stepN(t, proc, 1)
	test.ExpectEquality(t, proc.Registers()[cpu.R0], uint32(0x00004321))
}

func TestMovPCReadsAhead(t *testing.T) {
	// MOV r0, PC (hi-reg T1) then MOV.W r1, PC is not encodable; the
	// 16-bit form suffices to check the speculative +4: PC reads as the
	// address of the instruction plus 4.
	proc := prepareProcessor(t, architecture.V7M, assemble(0x4678))
	stepN(t, proc, 1)
	test.ExpectEquality(t, proc.Registers()[cpu.R0], uint32(0x1004))
}

func TestPushPopRoundTrip(t *testing.T) {
	// PUSH {r0-r3}; POP {r0-r3}
	proc := prepareProcessor(t, architecture.V7M, assemble(0xB40F, 0xBC0F))
	if _, err := proc.MapRAM(0x20000000, 1024); err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	proc.SetRegister(cpu.SP, 0x20000400)
	proc.SetRegister(cpu.R0, 0x11111111)
	proc.SetRegister(cpu.R1, 0x22222222)
	proc.SetRegister(cpu.R2, 0x33333333)
	proc.SetRegister(cpu.R3, 0x44444444)

	before := proc.Registers()
	stepN(t, proc, 2)
	after := proc.Registers()

	for r := cpu.R0; r <= cpu.R3; r++ {
		test.ExpectEquality(t, after[r], before[r])
	}
	test.ExpectEquality(t, after[cpu.SP], before[cpu.SP])
}

func TestStoreLoadRoundTrip(t *testing.T) {
	// STR r0, [r1, #0]; LDR r2, [r1, #0]
	proc := prepareProcessor(t, architecture.V7M, assemble(0x6008, 0x680A))
	if _, err := proc.MapRAM(0x20000000, 64); err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	proc.SetRegister(cpu.R0, 0xCAFEF00D)
	proc.SetRegister(cpu.R1, 0x20000000)
	stepN(t, proc, 2)
	test.ExpectEquality(t, proc.Registers()[cpu.R2], uint32(0xCAFEF00D))
}

func TestLoadStoreMultipleMirrors(t *testing.T) {
	// STM r0!, {r1,r2}; then LDMDB with the recomputed base must restore
	// the same values.
	proc := prepareProcessor(t, architecture.V7M, assemble(
		0xC006,         // STM r0!, {r1, r2}
		0x2100,         // MOVS r1, #0
		0x2200,         // MOVS r2, #0
		0xE910, 0x0006, // LDMDB r0, {r1, r2}
	))
	if _, err := proc.MapRAM(0x20000000, 64); err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	proc.SetRegister(cpu.R0, 0x20000000)
	proc.SetRegister(cpu.R1, 0xAAAA5555)
	proc.SetRegister(cpu.R2, 0x5555AAAA)

	stepN(t, proc, 4)
	regs := proc.Registers()
	test.ExpectEquality(t, regs[cpu.R0], uint32(0x20000008))
	test.ExpectEquality(t, regs[cpu.R1], uint32(0xAAAA5555))
	test.ExpectEquality(t, regs[cpu.R2], uint32(0x5555AAAA))
}

func TestITBlockSkipAdvancesPC(t *testing.T) {
	// MOVS r0, #0 (sets Z); ITE EQ; MOVEQ r1, #7; MOVNE r2, #9
	proc := prepareProcessor(t, architecture.V7M, assemble(0x2000, 0xBF0C, 0x2107, 0x2209))
	stepN(t, proc, 4)

	regs := proc.Registers()
	test.ExpectEquality(t, regs[cpu.R1], 7) // EQ leg taken
	test.ExpectEquality(t, regs[cpu.R2], 0) // NE leg skipped
	test.ExpectEquality(t, regs[cpu.PC], uint32(0x1008))
	test.ExpectEquality(t, proc.Status().InITBlock(), false)
}

func TestITBlockNoFlagClobber(t *testing.T) {
	// inside an IT block the 16-bit MOV immediate decodes as the flag-less
	// MOV: MOVS r0, #1; IT EQ; MOVEQ r1, #0. Only r1 is checked.
	proc := prepareProcessor(t, architecture.V7M, assemble(0x2001, 0xBF08, 0x2100))
	// MOVS r0, #1 clears Z, so the EQ leg must be skipped
	stepN(t, proc, 3)
	test.ExpectEquality(t, proc.Registers()[cpu.R1], 0)
}

func TestExclusiveStoreSucceedsAfterLoad(t *testing.T) {
	// LDREX r0, [r1]; STREX r2, r0, [r1]
	proc := prepareProcessor(t, architecture.V7M, assemble(0xE851, 0x0F00, 0xE841, 0x0200))
	ram, err := proc.MapRAM(0x20000000, 64)
	if err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	binary.LittleEndian.PutUint32(ram.Bytes[0:], 0x12345678)
	proc.SetRegister(cpu.R1, 0x20000000)

	stepN(t, proc, 2)
	regs := proc.Registers()
	test.ExpectEquality(t, regs[cpu.R0], uint32(0x12345678))
	test.ExpectEquality(t, regs[cpu.R2], 0) // store succeeded
}

func TestExclusiveStoreFailsWithoutReservation(t *testing.T) {
	// STREX r2, r0, [r1] with an open monitor: Rd=1 and no store.
	proc := prepareProcessor(t, architecture.V7M, assemble(0xE841, 0x0200))
	ram, err := proc.MapRAM(0x20000000, 64)
	if err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	proc.SetRegister(cpu.R0, 0xDDDDDDDD)
	proc.SetRegister(cpu.R1, 0x20000000)

	stepN(t, proc, 1)
	test.ExpectEquality(t, proc.Registers()[cpu.R2], 1)
	test.ExpectEquality(t, binary.LittleEndian.Uint32(ram.Bytes[0:]), 0)
}

func TestExclusiveStoreFailsOnDifferentGranule(t *testing.T) {
	// LDREX r0, [r1]; STREX r2, r0, [r3] with r3 in a different
	// reservation granule: the store must fail.
	proc := prepareProcessor(t, architecture.V7M, assemble(0xE851, 0x0F00, 0xE843, 0x0200))
	if _, err := proc.MapRAM(0x20000000, 64); err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	proc.SetRegister(cpu.R1, 0x20000000)
	proc.SetRegister(cpu.R3, 0x20000010)

	stepN(t, proc, 2)
	test.ExpectEquality(t, proc.Registers()[cpu.R2], 1)
}

func TestUnalignedLoadComposesBytes(t *testing.T) {
	// LDR r0, [r1, #0] at an odd address with CCR.UNALIGN_TRP clear:
	// byte-wise little-endian composition.
	proc := prepareProcessor(t, architecture.V7M, assemble(0x6808))
	ram, err := proc.MapRAM(0x20000000, 64)
	if err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	copy(ram.Bytes, []byte{0x00, 0x11, 0x22, 0x33, 0x44})
	proc.SetRegister(cpu.R1, 0x20000001)

	stepN(t, proc, 1)
	test.ExpectEquality(t, proc.Registers()[cpu.R0], uint32(0x44332211))
}

func TestUnalignedLoadTraps(t *testing.T) {
	// same access with CCR.UNALIGN_TRP set surfaces an alignment fault
	proc := prepareProcessor(t, architecture.V7M, assemble(0x6808))
	if _, err := proc.MapRAM(0x20000000, 64); err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	proc.SetRegister(cpu.R1, 0x20000001)
	proc.SystemControl().WriteU32LE(0xD14, 1<<9|1<<3) // CCR: STKALIGN | UNALIGN_TRP

	_, err := proc.Step()
	if err == nil {
		t.Fatal("expected an alignment fault")
	}
	test.ExpectEquality(t, err.Kind, cpu.ErrMemRead)
	test.ExpectEquality(t, err.Cause, cpu.CauseInvalidAlignment)
}

func TestStickyQFlag(t *testing.T) {
	// QADD r0, r1, r2 saturating, then QADD r0, r3, r4 not saturating:
	// Q stays set until APSR is explicitly written.
	proc := prepareProcessor(t, architecture.V7EM, assemble(
		0xFA82, 0xF081, // QADD r0, r1, r2
		0xFA84, 0xF083, // QADD r0, r3, r4
	))
	proc.SetRegister(cpu.R1, 0x7FFFFFFF)
	proc.SetRegister(cpu.R2, 0x7FFFFFFF)
	proc.SetRegister(cpu.R3, 1)
	proc.SetRegister(cpu.R4, 2)

	stepN(t, proc, 1)
	test.ExpectEquality(t, proc.Registers()[cpu.R0], uint32(0x7FFFFFFF))
	test.ExpectEquality(t, proc.Register(cpu.APSR)&(1<<27) != 0, true)

	stepN(t, proc, 1)
	test.ExpectEquality(t, proc.Registers()[cpu.R0], 3)
	test.ExpectEquality(t, proc.Register(cpu.APSR)&(1<<27) != 0, true)

	proc.SetRegister(cpu.APSR, 0)
	test.ExpectEquality(t, proc.Register(cpu.APSR)&(1<<27) != 0, false)
}

func TestBICImmediateShifterCarry(t *testing.T) {
	// BICS r0, r1, #0xF0000000: the rotated modified immediate carries
	// its top bit out into APSR.C.
	proc := prepareProcessor(t, architecture.V7M, assemble(0xF031, 0x4070))
	proc.SetRegister(cpu.R1, 0xF2345678)
	proc.SetRegister(cpu.APSR, 0)

	stepN(t, proc, 1)
	test.ExpectEquality(t, proc.Registers()[cpu.R0], uint32(0x02345678))
	test.ExpectEquality(t, proc.Register(cpu.APSR)&(1<<29) != 0, true)
}

func TestParallelAddGEFlags(t *testing.T) {
	// SADD8 r0, r1, r2 twice: all-negative lane sums clear GE, then
	// all-positive lane sums set it.
	proc := prepareProcessor(t, architecture.V7EM, assemble(
		0xFA81, 0xF002, // SADD8 r0, r1, r2
		0xFA83, 0xF004, // SADD8 r0, r3, r4
	))
	proc.SetRegister(cpu.R1, 0)
	proc.SetRegister(cpu.R2, 0xFFFFFFFF) // each lane -1

	stepN(t, proc, 1)
	test.ExpectEquality(t, proc.Registers()[cpu.R0], uint32(0xFFFFFFFF))
	test.ExpectEquality(t, (proc.Register(cpu.APSR)>>16)&0xF, 0)

	proc.SetRegister(cpu.R3, 0x01010101)
	proc.SetRegister(cpu.R4, 0x01010101)
	stepN(t, proc, 1)
	test.ExpectEquality(t, proc.Registers()[cpu.R0], uint32(0x02020202))
	test.ExpectEquality(t, (proc.Register(cpu.APSR)>>16)&0xF, 0b1111)
}

func TestFibonacci(t *testing.T) {
	program := assemble(
		0x2100, // MOVS r1, #0
		0x2201, // MOVS r2, #1
		0x2800, // loop: CMP r0, #0
		0xD004, // BEQ done
		0x188B, // ADDS r3, r1, r2
		0x0011, // MOVS r1, r2
		0x001A, // MOVS r2, r3
		0x3801, // SUBS r0, #1
		0xE7F8, // B loop
		0x0008, // done: MOVS r0, r1
		0x4770, // BX lr
	)
	proc, err := cpu.NewProcessor(architecture.NewConfig(architecture.V7M, 0, 4))
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	if _, err := proc.Map(0, program); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if _, err := proc.MapRAM(0x10000000, 1024); err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	proc.SetRegister(cpu.SP, 0x10000400)
	proc.SetRegister(cpu.LR, 0xFFFFFFFE)
	proc.SetRegister(cpu.R0, 12)
	proc.SetRegister(cpu.PC, 0)

	for i := 0; i < 20000; i++ {
		if _, err := proc.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}
		if proc.Registers()[cpu.PC] == 0xFFFFFFFE {
			break
		}
	}

	regs := proc.Registers()
	test.ExpectEquality(t, regs[cpu.PC], uint32(0xFFFFFFFE))
	test.ExpectEquality(t, regs[cpu.R0], 144)
	test.ExpectEquality(t, regs[cpu.SP], uint32(0x10000400))
}

func TestMemcpy(t *testing.T) {
	const expect = "Lorem ipsum dolor sit amet, consectetur adipiscing elit.\x00"

	program := assemble(
		0x2A00, // loop: CMP r2, #0
		0xD005, // BEQ done
		0x780B, // LDRB r3, [r1, #0]
		0x7003, // STRB r3, [r0, #0]
		0x3001, // ADDS r0, #1
		0x3101, // ADDS r1, #1
		0x3A01, // SUBS r2, #1
		0xE7F7, // B loop
		0x4770, // done: BX lr
	)
	image := make([]byte, 0x40+len(expect))
	copy(image, program)
	copy(image[0x40:], expect)

	proc, err := cpu.NewProcessor(architecture.NewConfig(architecture.V7M, 0, 4))
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	if _, err := proc.Map(0, image); err != nil {
		t.Fatalf("Map: %v", err)
	}
	ram, err := proc.MapRAM(0x10000000, 1024)
	if err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	proc.SetRegister(cpu.SP, 0x10000400)
	proc.SetRegister(cpu.LR, 0xFFFFFFFE)
	proc.SetRegister(cpu.R0, 0x10000000)
	proc.SetRegister(cpu.R1, 0x40)
	proc.SetRegister(cpu.R2, uint32(len(expect)))
	proc.SetRegister(cpu.PC, 0)

	for i := 0; i < 20000; i++ {
		if _, err := proc.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}
		if proc.Registers()[cpu.PC] == 0xFFFFFFFE {
			break
		}
	}

	test.ExpectEquality(t, string(ram.Bytes[:len(expect)]), expect)
	test.ExpectEquality(t, proc.Registers()[cpu.SP], uint32(0x10000400))
}

func TestWFEResumesOnSysTick(t *testing.T) {
	// image: vector table (SysTick vector at 0x3C), main at 0x40, the
	// SysTick handler at 0x50
	image := make([]byte, 0x100)
	binary.LittleEndian.PutUint32(image[0x3C:], 0x50|1)
	copy(image[0x40:], assemble(
		0xBF20,         // WFE
		0xF64B, 0x60EF, // MOVW r0, #0xBEEF
		0xF6CD, 0x60AD, // MOVT r0, #0xDEAD
		0xBEA5, // BKPT #0xA5
	))
	copy(image[0x50:], assemble(0x4770)) // BX lr

	proc, err := cpu.NewProcessor(architecture.NewConfig(architecture.V7M, 0, 4))
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	if _, err := proc.Map(0, image); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if _, err := proc.MapRAM(0x20000000, 1024); err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	proc.SetRegister(cpu.SP, 0x20000400)
	proc.SetRegister(cpu.PC, 0x40)

	scb := proc.SystemControl()
	scb.WriteU32LE(0x14, 1000) // STRVR: reload value
	scb.WriteU32LE(0x10, 0x3)  // STCSR: ENABLE | TICKINT

	gas := 5000
	ev, rerr := proc.Run(cpu.RunOptions{Gas: &gas})
	if rerr != nil {
		t.Fatalf("run: %v", rerr)
	}
	test.ExpectEquality(t, ev.Kind, cpu.EventBreak)
	test.ExpectEquality(t, ev.Imm8, 0xA5)
	test.ExpectEquality(t, proc.Registers()[cpu.R0], uint32(0xDEADBEEF))

	if proc.Cycles() < 1000 || proc.Cycles() >= 1100 {
		t.Errorf("expected the wait to end after 1000-1099 cycles, got %d", proc.Cycles())
	}
	test.ExpectEquality(t, proc.Mode(), cpu.ModeThread)
}

func TestHookStopsExecution(t *testing.T) {
	proc := prepareProcessor(t, architecture.V7M, assemble(0x2005, 0x2102))
	proc.AddHook(0x1002)

	ev, rerr := proc.Run(cpu.RunOptions{})
	if rerr != nil {
		t.Fatalf("run: %v", rerr)
	}
	test.ExpectEquality(t, ev.Kind, cpu.EventHook)
	test.ExpectEquality(t, ev.Address, uint32(0x1002))
	// the hooked instruction must not have executed
	test.ExpectEquality(t, proc.Registers()[cpu.R1], 0)
}

func TestRunGasExhaustion(t *testing.T) {
	// an infinite loop: B .
	proc := prepareProcessor(t, architecture.V7M, assemble(0xE7FE))
	gas := 10
	ev, rerr := proc.Run(cpu.RunOptions{Gas: &gas})
	if rerr != nil {
		t.Fatalf("run: %v", rerr)
	}
	test.ExpectEquality(t, ev.Kind, cpu.EventInstruction)
	test.ExpectEquality(t, gas, 0)
}

func TestMapConflict(t *testing.T) {
	proc, err := cpu.NewProcessor(architecture.NewConfig(architecture.V7M, 0, 4))
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	if _, err := proc.MapRAM(0x20000000, 1024); err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	_, err = proc.MapRAM(0x20000200, 64)
	test.ExpectFailure(t, err)

	// the System Control Space page is pre-mapped
	_, err = proc.MapRAM(0xE000E000, 16)
	test.ExpectFailure(t, err)

	// address space overflow
	_, err = proc.MapRAM(0xFFFFFFF0, 0x20)
	test.ExpectFailure(t, err)
}

func TestSVCallTaken(t *testing.T) {
	image := make([]byte, 0x100)
	binary.LittleEndian.PutUint32(image[11*4:], 0x50|1) // SVCall vector
	copy(image[0x40:], assemble(
		0xDF2A, // SVC #42
		0xBE01, // BKPT #1
	))
	copy(image[0x50:], assemble(
		0x2707, // MOVS r7, #7
		0x4770, // BX lr
	))

	proc, err := cpu.NewProcessor(architecture.NewConfig(architecture.V7M, 0, 4))
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	if _, err := proc.Map(0, image); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if _, err := proc.MapRAM(0x20000000, 1024); err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	proc.SetRegister(cpu.SP, 0x20000400)
	proc.SetRegister(cpu.PC, 0x40)

	ev, rerr := proc.Run(cpu.RunOptions{})
	if rerr != nil {
		t.Fatalf("run: %v", rerr)
	}
	test.ExpectEquality(t, ev.Kind, cpu.EventBreak)
	test.ExpectEquality(t, ev.Imm8, 1)
	test.ExpectEquality(t, proc.Registers()[cpu.R7], 7)
	test.ExpectEquality(t, proc.Mode(), cpu.ModeThread)
}

func TestInterruptRequest(t *testing.T) {
	image := make([]byte, 0x200)
	binary.LittleEndian.PutUint32(image[(16+5)*4:], 0x50|1) // external IRQ 5
	copy(image[0x40:], assemble(0xBF00, 0xBF00, 0xBE02))    // NOP; NOP; BKPT #2
	copy(image[0x50:], assemble(0x2605, 0x4770))            // MOVS r6, #5; BX lr

	proc, err := cpu.NewProcessor(architecture.NewConfig(architecture.V7M, 32, 4))
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	if _, err := proc.Map(0, image); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if _, err := proc.MapRAM(0x20000000, 1024); err != nil {
		t.Fatalf("MapRAM: %v", err)
	}
	proc.SetRegister(cpu.SP, 0x20000400)
	proc.SetRegister(cpu.PC, 0x40)

	proc.RequestInterrupt(cpu.External(5))

	ev, rerr := proc.Run(cpu.RunOptions{})
	if rerr != nil {
		t.Fatalf("run: %v", rerr)
	}
	test.ExpectEquality(t, ev.Kind, cpu.EventBreak)
	test.ExpectEquality(t, proc.Registers()[cpu.R6], 5)
}

func TestVectResetSurfacesEvent(t *testing.T) {
	// build AIRCR's address and the VECTKEY|VECTRESET value, then store:
	// the queued reset is drained after the store retires.
	proc := prepareProcessor(t, architecture.V7M, assemble(
		0xF64E, 0x500C, // MOVW r0, #0xED0C
		0xF2CE, 0x0000, // MOVT r0, #0xE000
		0xF240, 0x0101, // MOVW r1, #0x0001
		0xF2C0, 0x51FA, // MOVT r1, #0x05FA
		0x6001, // STR r1, [r0, #0]
	))

	ev, rerr := proc.Run(cpu.RunOptions{})
	if rerr != nil {
		t.Fatalf("run: %v", rerr)
	}
	test.ExpectEquality(t, ev.Kind, cpu.EventReset)
	// the register file has been through reset
	test.ExpectEquality(t, proc.Registers()[cpu.R1], 0)
}

func TestDisassemble(t *testing.T) {
	proc := prepareProcessor(t, architecture.V7M, assemble(
		0x2005,         // MOVS r0, #5
		0x1A42,         // SUBS r2, r0, r1
		0xF2C1, 0x2034, // MOVT r0, #0x1234
		0xEA01, 0x0302, // AND.W r3, r1, r2
		0xBF00, // NOP
	))

	cases := []struct {
		addr uint32
		text string
	}{
		{0x1000, "MOVS R0, #5"},
		{0x1002, "SUBS R2, R0, R1"},
		{0x1004, "MOVT R0, #4660"},
		{0x1008, "AND.W R3, R1, R2"},
		{0x100C, "NOP"},
	}
	for _, c := range cases {
		s, err := proc.Disassemble(c.addr)
		if err != nil {
			t.Fatalf("disassemble %#x: %v", c.addr, err)
		}
		test.ExpectEquality(t, s, c.text)
	}
}

func TestDecodeSameWordTwice(t *testing.T) {
	// executing the same instruction from two processors in the same
	// state yields the same architectural result.
	run := func() [16]uint32 {
		proc := prepareProcessor(t, architecture.V7M, assemble(0xF2C1, 0x2034))
		proc.SetRegister(cpu.R0, 0x87654321)
		stepN(t, proc, 1)
		return proc.Registers()
	}
	test.ExpectEquality(t, run(), run())
}
