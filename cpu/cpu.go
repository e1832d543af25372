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
	"github.com/cortexm/thumbm/cpu/architecture"
	"github.com/cortexm/thumbm/cpu/membus"
	"github.com/cortexm/thumbm/cpu/peripherals"
)

// CodeHook is checked during Step/Run for every mapped hook address; a
// match is reported as an EventHook instead of being executed.
type CodeHook struct {
	Address uint32
}

// Processor is an instruction-accurate ARM M-profile core. The register
// file, memory map, decoder state and exception machinery all live here;
// there is no module-level mutable state.
type Processor struct {
	cfg architecture.Config

	regs   Registers
	status Status

	mem membus.Map
	scb *peripherals.SystemControlBlock

	// exceptions
	pending pendingSet
	active  map[uint16]bool

	// exclusive monitor
	monitor exclusiveMonitor

	// coprocessors, indexed 0-15
	coprocs [16]Coprocessor

	// deferred actions collected during the current step, merged from
	// memory-mapped peripheral Update() calls and from register writes
	// such as AIRCR.VECTRESET
	actions []membus.DeferredAction

	hooks []CodeHook

	cycles uint64

	// waiting tracks WaitForEvent/WaitForInterrupt suspension
	waiting waitState

	// eventFlag is the internal event register set by SEV (and any
	// exception becoming pending) and consumed by WFE.
	eventFlag bool

	// toleratePopStackUnalignedPC controls whether a popped PC with bit 0
	// set is masked on exception return rather than surfaced as
	// Unpredictable.
	toleratePopStackUnalignedPC bool

	lutDecoder *lutDecoder
}

type waitState int

const (
	waitNone waitState = iota
	waitForEvent
	waitForInterrupt
)

// NewProcessor creates a processor for the given configuration. The memory
// map starts out containing only the mandatory System Control Block (and,
// for v7-M/v7E-M/v8-M, its MPU register block) at 0xE000E000; callers map
// code and RAM with Map/MapRAM/MapIface before calling Step/Run.
func NewProcessor(cfg architecture.Config) (*Processor, error) {
	p := &Processor{
		cfg:        cfg,
		scb:        peripherals.NewSystemControlBlock(cfg),
		active:     make(map[uint16]bool),
		monitor:    exclusiveMonitor{granule: uint32(cfg.ExclusivesReservationGranule)},
		lutDecoder: newLUTDecoder(),
	}
	if err := p.mem.Insert(membus.Region{
		Base:     peripherals.Base,
		Size:     p.scb.Size(),
		Iface:    p.scb,
		Writable: true,
	}); err != nil {
		return nil, err
	}
	p.reset()
	return p, nil
}

// reset restores the register file, exception state and exclusive monitor,
// and loads SP/PC from the vector table at VTOR (0 until code is mapped
// and VTOR is programmed by firmware or by the caller).
func (p *Processor) reset() {
	p.regs.reset()
	p.status.reset()
	p.pending = pendingSet{}
	p.active = make(map[uint16]bool)
	p.monitor.state = monitorOpen
	p.waiting = waitNone

	sp, _ := p.readU32Unchecked(p.scb.VTOR() + 0)
	pc, _ := p.readU32Unchecked(p.scb.VTOR() + 4)
	p.regs.msp = sp
	p.regs.pc = pc &^ 1
	p.status.thumb = true // this core is Thumb-only; bit 0 of the reset PC is consumed, not stored
}

// Map creates a RAM-backed region pre-loaded with bytes, returning a
// handle the host can use to inspect the region's contents directly.
func (p *Processor) Map(address uint32, data []byte) (*membus.ByteRegion, error) {
	r := membus.NewByteRegion(uint32(len(data)))
	copy(r.Bytes, data)
	if err := p.mem.Insert(membus.Region{Base: address, Size: r.Size(), Iface: r, Executable: true, Writable: true}); err != nil {
		return nil, err
	}
	return r, nil
}

// MapRAM creates a zero-initialized RAM region of the given size.
func (p *Processor) MapRAM(address uint32, size uint32) (*membus.ByteRegion, error) {
	r := membus.NewByteRegion(size)
	if err := p.mem.Insert(membus.Region{Base: address, Size: size, Iface: r, Executable: true, Writable: true}); err != nil {
		return nil, err
	}
	return r, nil
}

// MapIface maps a caller-supplied peripheral implementation.
func (p *Processor) MapIface(address uint32, iface membus.Interface) error {
	return p.mem.Insert(membus.Region{Base: address, Size: iface.Size(), Iface: iface, Executable: false, Writable: true})
}

// MapCodeReadOnly creates a read-only, executable region pre-loaded with
// bytes - for flash/code images that must reject writes.
func (p *Processor) MapCodeReadOnly(address uint32, data []byte) (*membus.ByteRegion, error) {
	r := membus.NewByteRegion(uint32(len(data)))
	copy(r.Bytes, data)
	if err := p.mem.Insert(membus.Region{Base: address, Size: r.Size(), Iface: r, Executable: true, Writable: false}); err != nil {
		return nil, err
	}
	return r, nil
}

// SystemControl returns the processor's System Control Block, letting the
// host program SysTick, VTOR and friends directly instead of through
// emulated stores.
func (p *Processor) SystemControl() *peripherals.SystemControlBlock {
	return p.scb
}

// AddHook registers a code hook address; Step will emit EventHook and not
// execute when PC reaches it.
func (p *Processor) AddHook(address uint32) {
	p.hooks = append(p.hooks, CodeHook{Address: address})
}

// SetCoprocessor populates one of the 16 coprocessor slots. An unpopulated
// slot causes CDP/MCR/MRC/LDC/STC to raise a NOCP UsageFault.
func (p *Processor) SetCoprocessor(index int, impl Coprocessor) {
	p.coprocs[index] = impl
}

// SetTolerantPopStackUnalignedPC makes exception return mask bit 0 of a
// popped PC instead of failing with an Unpredictable error. The
// architecture leaves that situation UNPREDICTABLE; some firmware builds
// frames by hand and relies on the tolerant reading.
func (p *Processor) SetTolerantPopStackUnalignedPC(tolerate bool) {
	p.toleratePopStackUnalignedPC = tolerate
}

// RequestInterrupt inserts irq into the pending set, to be taken at the
// start of a future Step.
func (p *Processor) RequestInterrupt(irq IRQ) {
	p.pending.add(irq.Number())
	p.eventFlag = true
}

// Registers returns a copy of the sixteen core registers R0-R12,SP,LR,PC.
func (p *Processor) Registers() [16]uint32 {
	var out [16]uint32
	for i := R0; i <= R12; i++ {
		out[i] = p.regs.gpr[i]
	}
	out[SP] = p.regs.Read(SP, p.status.mode())
	out[LR] = p.regs.lr
	out[PC] = p.regs.pc
	return out
}

// Register reads an arbitrary register identifier.
func (p *Processor) Register(id RegID) uint32 {
	switch id {
	case APSR:
		return p.status.apsr()
	case IPSR:
		return uint32(p.status.exceptionNumber)
	case EPSR:
		return p.status.epsr()
	case XPSR:
		return p.status.xpsr()
	default:
		return p.regs.Read(id, p.status.mode())
	}
}

// SetRegister writes an arbitrary register identifier. Writing PC this way
// bypasses interworking - callers that need interworking semantics should
// drive that through instruction execution instead.
func (p *Processor) SetRegister(id RegID, value uint32) {
	switch id {
	case APSR:
		p.status.setAPSR(value)
	case IPSR:
		p.status.exceptionNumber = uint16(value)
	case XPSR:
		p.status.setAPSR(value)
		p.status.setITState(uint8((value>>10&0x3f)<<2 | (value >> 25 & 0x3)))
		p.status.exceptionNumber = uint16(value & 0x1FF)
	default:
		p.regs.Write(id, p.status.mode(), value)
	}
}

// Status returns a copy of the combined program status register.
func (p *Processor) Status() Status {
	return p.status
}

// Mode returns the current processor mode.
func (p *Processor) Mode() Mode {
	return p.status.mode()
}

// Cycles returns the total number of steps executed (every instruction
// costs exactly one cycle; no attempt is made at cycle accuracy).
func (p *Processor) Cycles() uint64 {
	return p.cycles
}
