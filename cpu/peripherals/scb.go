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

// Package peripherals implements the memory-mapped system control
// peripherals: the System Control Block (and the NVIC/MPU register blocks
// that share its page) and SysTick. Each peripheral is a small Go type
// with Reset/Read/Write/Update methods.
package peripherals

import (
	"github.com/cortexm/thumbm/cpu/architecture"
	"github.com/cortexm/thumbm/cpu/membus"
)

// Base is the fixed address of the System Control Space page. It is
// mandatory and pre-mapped for every configuration.
const Base uint32 = 0xE000E000

// offsets within the System Control Space page.
const (
	offACTLR   = 0x008
	offSTCSR   = 0x010
	offSTRVR   = 0x014
	offSTCVR   = 0x018
	offSTCR    = 0x01C
	offISER0   = 0x100
	offICER0   = 0x180
	offIPR0    = 0x400
	offCPUID   = 0xD00
	offICSR    = 0xD04
	offVTOR    = 0xD08
	offAIRCR   = 0xD0C
	offSCR     = 0xD10
	offCCR     = 0xD14
	offSHPR1   = 0xD18
	offSHPR2   = 0xD1C
	offSHPR3   = 0xD20
	offSHCSR   = 0xD24
	offCFSR    = 0xD28
	offHFSR    = 0xD2C
	offDFSR    = 0xD30
	offMMFAR   = 0xD34
	offBFAR    = 0xD38
	offISAR0   = 0xD60
	offCPACR   = 0xD88
	offMPUTYPE = 0xD90
	offMPUCTRL = 0xD94
	offMPURNR  = 0xD98
	offMPURBAR = 0xD9C
	offMPURASR = 0xDA0
)

const vectKey uint32 = 0x05FA

// CFSR (UsageFault sub-field) bit positions, relative to the whole 32-bit
// CFSR word.
const (
	cfsrUndefInstr = 1 << 16
	cfsrInvState   = 1 << 17
	cfsrInvPC      = 1 << 18
	cfsrNoCP       = 1 << 19
	cfsrUnaligned  = 1 << 24
	cfsrDivByZero  = 1 << 25
)

// CCR bits.
const (
	ccrUnalignTrp = 1 << 3
	ccrStkAlign   = 1 << 9
)

// AIRCR bits.
const (
	aircrVectReset     = 1 << 0
	aircrVectClrActive = 1 << 1
	aircrSysResetReq   = 1 << 2
	aircrEndianness    = 1 << 15
)

// SystemControlBlock implements the System Control Block, the NVIC
// ISER/ICER/IPR register arrays, and a v7-M/v7E-M-style MPU register block
// that share the same page. For v8-M the MPU block
// lives at the same base address but with a different (RBAR/RLAR-pair)
// layout; since MPU region checking itself is out of scope, only the
// common register plumbing is implemented.
type SystemControlBlock struct {
	cfg architecture.Config

	actlr uint32
	cpuid uint32

	icsr  uint32
	vtor  uint32
	aircr uint32
	scr   uint32
	ccr   uint32

	shpr  [3]uint32
	shcsr uint32
	cfsr  uint32
	hfsr  uint32
	dfsr  uint32
	mmfar uint32
	bfar  uint32

	isar  [5]uint32
	cpacr uint32

	mputype uint32
	mpuctrl uint32
	mpurnr  uint32
	mpurbar uint32
	mpurasr uint32

	pendingReset bool

	iser []uint32
	icer []uint32
	ipr  []uint8

	systick SysTick
}

// NewSystemControlBlock creates the SCB for the given configuration, sized
// to hold ExternalExceptions NVIC lines.
func NewSystemControlBlock(cfg architecture.Config) *SystemControlBlock {
	nwords := (cfg.ExternalExceptions + 31) / 32
	if nwords == 0 {
		nwords = 1
	}
	scb := &SystemControlBlock{
		cfg:     cfg,
		cpuid:   0x410FC230, // Cortex-M3-like ARMv7-M implementer/variant/partno/revision
		iser:    make([]uint32, nwords),
		icer:    make([]uint32, nwords),
		ipr:     make([]uint8, cfg.ExternalExceptions+16),
		systick: NewSysTick(),
	}
	if cfg.Version.HasMPU() {
		scb.mputype = 8 << 8 // 8 regions, unified
	}
	scb.Reset()
	return scb
}

// Reset restores architectural reset values, per the data model's
// "Reset value recommended 1" note for CCR.STKALIGN.
func (s *SystemControlBlock) Reset() {
	s.icsr = 0
	s.vtor = 0
	s.aircr = 0
	s.scr = 0
	s.ccr = ccrStkAlign
	s.shpr = [3]uint32{}
	s.shcsr = 0
	s.cfsr = 0
	s.hfsr = 0
	s.dfsr = 0
	s.mmfar = 0
	s.bfar = 0
	s.mpuctrl = 0
	s.mpurnr = 0
	s.mpurbar = 0
	s.mpurasr = 0
	for i := range s.iser {
		s.iser[i] = 0
		s.icer[i] = 0
	}
	for i := range s.ipr {
		s.ipr[i] = 0
	}
	if s.cfg.BigEndian {
		s.aircr |= aircrEndianness
	}
	s.systick.Reset()
}

// VTOR returns the current vector table base address.
func (s *SystemControlBlock) VTOR() uint32 { return s.vtor }

// BigEndian reports AIRCR.ENDIANNESS.
func (s *SystemControlBlock) BigEndian() bool { return s.aircr&aircrEndianness != 0 }

// UnalignTrap reports CCR.UNALIGN_TRP.
func (s *SystemControlBlock) UnalignTrap() bool { return s.ccr&ccrUnalignTrp != 0 }

// StackAlign reports CCR.STKALIGN.
func (s *SystemControlBlock) StackAlign() bool { return s.ccr&ccrStkAlign != 0 }

// SetUnaligned raises CFSR.UNALIGNED. It does not itself raise the
// exception - the caller (the CPU pipeline) queues the UsageFault.
func (s *SystemControlBlock) SetUnaligned() { s.cfsr |= cfsrUnaligned }

// SetNoCP raises CFSR.NOCP, for an undispatchable coprocessor instruction.
func (s *SystemControlBlock) SetNoCP() { s.cfsr |= cfsrNoCP }

// SetInvState raises CFSR.INVSTATE, for an attempt to execute with an
// invalid EPSR.T/IT combination.
func (s *SystemControlBlock) SetInvState() { s.cfsr |= cfsrInvState }

// IRQEnabled reports whether external IRQ n is enabled via NVIC_ISER.
func (s *SystemControlBlock) IRQEnabled(n uint16) bool {
	w, b := int(n)/32, uint(n)%32
	if w >= len(s.iser) {
		return false
	}
	return s.iser[w]&(1<<b) != 0
}

// SysTick returns the SysTick peripheral sharing this page.
func (s *SystemControlBlock) SysTick() *SysTick { return &s.systick }

// PriorityOf resolves the configurable priority of exception number n
// (4-15 from SHPR1-3, 16+ from the NVIC IPR array). Exceptions below 4
// (Reset/NMI/HardFault) have fixed priorities the caller resolves itself.
func (s *SystemControlBlock) PriorityOf(n uint16) uint8 {
	switch {
	case n >= 4 && n <= 15:
		shprIdx := (n - 4) / 4
		byteIdx := (n - 4) % 4
		if int(shprIdx) >= len(s.shpr) {
			return 0
		}
		return uint8(s.shpr[shprIdx] >> (8 * byteIdx))
	case n >= 16:
		idx := n - 16
		if int(idx) >= len(s.ipr) {
			return 0
		}
		return s.ipr[idx]
	default:
		return 0
	}
}

func (s *SystemControlBlock) readWord(off uint32) (uint32, bool) {
	switch {
	case off == offACTLR:
		return s.actlr, true
	case off == offSTCSR:
		return s.systick.readCSR(), true
	case off == offSTRVR:
		return s.systick.rvr, true
	case off == offSTCVR:
		return s.systick.cvr, true
	case off == offSTCR:
		return s.systick.calib, true
	case off >= offISER0 && off < offISER0+uint32(len(s.iser))*4:
		return s.iser[(off-offISER0)/4], true
	case off >= offICER0 && off < offICER0+uint32(len(s.icer))*4:
		return s.icer[(off-offICER0)/4], true
	case off >= offIPR0 && off < offIPR0+uint32(len(s.ipr)):
		return s.readIPRWord(off), true
	case off == offCPUID:
		return s.cpuid, true
	case off == offICSR:
		return s.icsr, true
	case off == offVTOR:
		return s.vtor, true
	case off == offAIRCR:
		return s.aircr, true // VECTKEY reads as 0
	case off == offSCR:
		return s.scr, true
	case off == offCCR:
		return s.ccr, true
	case off == offSHPR1:
		return s.shpr[0], true
	case off == offSHPR2:
		return s.shpr[1], true
	case off == offSHPR3:
		return s.shpr[2], true
	case off == offSHCSR:
		return s.shcsr, true
	case off == offCFSR:
		v := s.cfsr
		return v, true
	case off == offHFSR:
		return s.hfsr, true
	case off == offDFSR:
		return s.dfsr, true
	case off == offMMFAR:
		return s.mmfar, true
	case off == offBFAR:
		return s.bfar, true
	case off >= offISAR0 && off < offISAR0+uint32(len(s.isar))*4:
		return s.isar[(off-offISAR0)/4], true
	case off == offCPACR:
		return s.cpacr, true
	case off == offMPUTYPE && s.cfg.Version.HasMPU():
		return s.mputype, true
	case off == offMPUCTRL && s.cfg.Version.HasMPU():
		return s.mpuctrl, true
	case off == offMPURNR && s.cfg.Version.HasMPU():
		return s.mpurnr, true
	case off == offMPURBAR && s.cfg.Version.HasMPU():
		return s.mpurbar, true
	case off == offMPURASR && s.cfg.Version.HasMPU():
		return s.mpurasr, true
	}
	return 0, false
}

func (s *SystemControlBlock) readIPRWord(off uint32) uint32 {
	base := off - offIPR0
	var v uint32
	for i := uint32(0); i < 4 && base+i < uint32(len(s.ipr)); i++ {
		v |= uint32(s.ipr[base+i]) << (8 * i)
	}
	return v
}

func (s *SystemControlBlock) writeIPRWord(off uint32, value uint32) {
	base := off - offIPR0
	for i := uint32(0); i < 4 && base+i < uint32(len(s.ipr)); i++ {
		s.ipr[base+i] = uint8(value >> (8 * i))
	}
}

// writeWord applies register-write semantics, including reserved-bit
// enforcement; it reports false when the write violates a register's
// constraints.
func (s *SystemControlBlock) writeWord(off uint32, value uint32, actions *[]membus.DeferredAction) bool {
	switch {
	case off == offACTLR:
		s.actlr = value
	case off == offSTCSR:
		s.systick.writeCSR(value)
	case off == offSTRVR:
		s.systick.rvr = value & 0x00FFFFFF
	case off == offSTCVR:
		s.systick.writeCVR(value)
	case off == offSTCR:
		// read-only calibration register
		return false
	case off >= offISER0 && off < offISER0+uint32(len(s.iser))*4:
		s.iser[(off-offISER0)/4] |= value
	case off >= offICER0 && off < offICER0+uint32(len(s.icer))*4:
		w := (off - offICER0) / 4
		s.icer[w] |= value
		s.iser[w] &^= value
	case off >= offIPR0 && off < offIPR0+uint32(len(s.ipr)):
		s.writeIPRWord(off, value)
	case off == offCPUID:
		return false // read-only
	case off == offICSR:
		s.icsr = value
	case off == offVTOR:
		if value&0x7F != 0 {
			return false
		}
		s.vtor = value
	case off == offAIRCR:
		if value>>16 != vectKey {
			return false
		}
		// the low three bits are write-only actions and read as zero
		s.aircr = value &^ (0xFFFF0000 | aircrVectReset | aircrVectClrActive | aircrSysResetReq)
		if value&aircrEndianness != 0 {
			s.aircr |= aircrEndianness
		} else {
			s.aircr &^= aircrEndianness
		}
		if value&aircrVectReset != 0 {
			*actions = append(*actions, membus.DeferredAction{Kind: membus.ActionReset})
		}
	case off == offSCR:
		s.scr = value
	case off == offCCR:
		s.ccr = value
	case off == offSHPR1:
		s.shpr[0] = value
	case off == offSHPR2:
		s.shpr[1] = value
	case off == offSHPR3:
		s.shpr[2] = value
	case off == offSHCSR:
		s.shcsr = value
	case off == offCFSR:
		s.cfsr &^= value // write-one-to-clear
	case off == offHFSR:
		s.hfsr &^= value
	case off == offDFSR:
		s.dfsr &^= value
	case off == offMMFAR:
		s.mmfar = value
	case off == offBFAR:
		s.bfar = value
	case off >= offISAR0 && off < offISAR0+uint32(len(s.isar))*4:
		return false // read-only
	case off == offCPACR:
		s.cpacr = value
	case off == offMPUCTRL && s.cfg.Version.HasMPU():
		s.mpuctrl = value
	case off == offMPURNR && s.cfg.Version.HasMPU():
		s.mpurnr = value
	case off == offMPURBAR && s.cfg.Version.HasMPU():
		s.mpurbar = value
	case off == offMPURASR && s.cfg.Version.HasMPU():
		s.mpurasr = value
	default:
		return false
	}
	return true
}

// Update ticks SysTick, translating a wrap-and-reload into a deferred IRQ,
// and drains any AIRCR.VECTRESET requested since the last call into a
// deferred Reset action.
func (s *SystemControlBlock) Update(cycles uint32, actions *[]membus.DeferredAction) {
	if s.PendingReset() {
		*actions = append(*actions, membus.DeferredAction{Kind: membus.ActionReset})
	}
	s.systick.update(cycles, actions)
}

func (s *SystemControlBlock) Size() uint32 { return 0x1000 }

func (s *SystemControlBlock) ReadU32LE(offset uint32) (uint32, bool) {
	return s.readWord(offset &^ 0x3)
}

func (s *SystemControlBlock) WriteU32LE(offset uint32, value uint32) bool {
	return s.writeWordChecked(offset&^0x3, value)
}

// writeWordChecked adapts writeWord (which needs the deferred-action slice)
// for the Interface signature that has no such slice - AIRCR.VECTRESET is
// instead surfaced through PendingReset(), polled once per step by the
// pipeline.
func (s *SystemControlBlock) writeWordChecked(offset uint32, value uint32) bool {
	var actions []membus.DeferredAction
	ok := s.writeWord(offset, value, &actions)
	for _, a := range actions {
		if a.Kind == membus.ActionReset {
			s.pendingReset = true
		}
	}
	return ok
}

func (s *SystemControlBlock) ReadU16LE(offset uint32) (uint16, bool) {
	w, ok := s.readWord(offset &^ 0x3)
	if !ok {
		return 0, false
	}
	shift := (offset & 0x2) * 8
	return uint16(w >> shift), true
}

func (s *SystemControlBlock) WriteU16LE(offset uint32, value uint16) bool {
	w, ok := s.readWord(offset &^ 0x3)
	if !ok {
		w = 0
	}
	shift := (offset & 0x2) * 8
	mask := uint32(0xFFFF) << shift
	nv := (w &^ mask) | (uint32(value) << shift)
	return s.writeWordChecked(offset&^0x3, nv)
}

func (s *SystemControlBlock) ReadU8(offset uint32) (uint8, bool) {
	w, ok := s.readWord(offset &^ 0x3)
	if !ok {
		return 0, false
	}
	shift := (offset & 0x3) * 8
	return uint8(w >> shift), true
}

func (s *SystemControlBlock) WriteU8(offset uint32, value uint8) bool {
	w, ok := s.readWord(offset &^ 0x3)
	if !ok {
		w = 0
	}
	shift := (offset & 0x3) * 8
	mask := uint32(0xFF) << shift
	nv := (w &^ mask) | (uint32(value) << shift)
	return s.writeWordChecked(offset&^0x3, nv)
}

// PendingReset reports (and clears) whether AIRCR.VECTRESET was requested
// since the last call.
func (s *SystemControlBlock) PendingReset() bool {
	r := s.pendingReset
	s.pendingReset = false
	return r
}
