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

// shiftImm is LSL/LSR/ASR/ROR #n Rd, Rm (16-bit T1 immediate-shift forms,
// and RRX which always shifts by exactly one).
type shiftImm struct {
	mnemonic string
	rd, rm   RegID
	typ      shiftType
	n        uint
	setFlags bool
}

func (i shiftImm) Name() string { return i.mnemonic }
func (i shiftImm) Args() string {
	if i.typ == shiftRRX {
		return fmt.Sprintf("%s, %s", i.rd, i.rm)
	}
	return fmt.Sprintf("%s, %s, #%d", i.rd, i.rm, i.n)
}

func (i shiftImm) Execute(p *Processor) Effect {
	v := p.Register(i.rm)
	result, carryOut := shiftC(v, i.typ, i.n, p.status.carry)
	p.SetRegister(i.rd, result)
	if i.setFlags {
		p.status.setNZ(result)
		p.status.carry = carryOut
	}
	return Effect{}
}

// shiftReg is LSL/LSR/ASR/ROR Rdn, Rm (16-bit T1 register-shift forms: the
// shift amount is the low byte of Rm).
type shiftReg struct {
	mnemonic string
	rdn, rm  RegID
	typ      shiftType
	setFlags bool
}

func (i shiftReg) Name() string { return i.mnemonic }
func (i shiftReg) Args() string { return fmt.Sprintf("%s, %s", i.rdn, i.rm) }

func (i shiftReg) Execute(p *Processor) Effect {
	v := p.Register(i.rdn)
	n := uint(p.Register(i.rm) & 0xFF)
	result, carryOut := shiftC(v, i.typ, n, p.status.carry)
	p.SetRegister(i.rdn, result)
	if i.setFlags {
		p.status.setNZ(result)
		p.status.carry = carryOut
	}
	return Effect{}
}

func init() {
	// LSLS/LSRS/ASRS #imm5 Rd, Rm - 000 op iiiii mmm ddd. A zero-shift LSL
	// (op==00, imm5==0) is actually the MOV Rd,Rm encoding; a zero-shift
	// LSR/ASR (imm5==0) means "shift by 32".
	registerVariant(variant{
		name:     "shift-imm",
		patterns: []encoding{{tag: "T1", versions: verAll, pattern: "000xxxxxxxxxxxxx"}},
		decode: func(tag string, bits uint32, it itStateView) (Instruction, decodeOutcome) {
			opField := (bits >> 11) & 0x3
			if opField == 0b11 {
				return nil, decodeOther // ADD/SUB 3-reg or 3-imm, handled elsewhere
			}
			imm5 := uint((bits >> 6) & 0x1F)
			rm := reg3(bits, 3)
			rd := reg3(bits, 0)
			switch opField {
			case 0b00:
				if imm5 == 0 {
					return movReg{rd: rd, rm: rm, setFlags: !it.inITBlock}, decodeOK
				}
				return shiftImm{mnemonic: "LSLS", rd: rd, rm: rm, typ: shiftLSL, n: imm5, setFlags: !it.inITBlock}, decodeOK
			case 0b01:
				n := imm5
				if n == 0 {
					n = 32
				}
				return shiftImm{mnemonic: "LSRS", rd: rd, rm: rm, typ: shiftLSR, n: n, setFlags: !it.inITBlock}, decodeOK
			default: // 0b10 ASR
				n := imm5
				if n == 0 {
					n = 32
				}
				return shiftImm{mnemonic: "ASRS", rd: rd, rm: rm, typ: shiftASR, n: n, setFlags: !it.inITBlock}, decodeOK
			}
		},
	})
}
