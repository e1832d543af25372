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
	"strings"
)

// narrowCapable lists the mnemonics that have a 16-bit encoding: a 32-bit
// encoding of one of these prints with a .W qualifier, matching the UAL
// "wide" rule. Mnemonics only ever encoded in 32 bits print unqualified.
var narrowCapable = map[string]bool{
	"ADC": true, "ADD": true, "AND": true, "ASR": true, "B": true,
	"BIC": true, "CMN": true, "CMP": true, "EOR": true, "LDM": true,
	"LDR": true, "LDRB": true, "LDRH": true, "LDRSB": true, "LDRSH": true,
	"LSL": true, "LSR": true, "MOV": true, "MUL": true, "MVN": true,
	"NOP": true, "ORR": true, "POP": true, "PUSH": true, "REV": true,
	"REV16": true, "REVSH": true, "ROR": true, "RSB": true, "SBC": true,
	"SEV": true, "STM": true, "STR": true, "STRB": true, "STRH": true,
	"SUB": true, "SXTB": true, "SXTH": true, "TST": true, "UXTB": true,
	"UXTH": true, "WFE": true, "WFI": true, "YIELD": true,
}

// Disassemble decodes the instruction at address without executing it or
// disturbing any processor state, and renders it as "MNEMONIC args". A
// 32-bit encoding of an instruction that also has a 16-bit encoding is
// rendered with the .W width qualifier.
func (p *Processor) Disassemble(address uint32) (string, error) {
	first, rerr := p.readU16Unchecked(address)
	if rerr != nil {
		return "", rerr
	}
	size := instructionSize(first)
	rawBits := uint32(first)
	if size == 4 {
		second, rerr := p.readU16Unchecked(address + 2)
		if rerr != nil {
			return "", rerr
		}
		rawBits = uint32(first)<<16 | uint32(second)
	}

	it := itStateView{inITBlock: p.status.inITBlock(), lastInITBlock: p.status.lastInITBlock()}
	ins, err := p.lutDecoder.Decode(rawBits, size, it, p.cfg.Version)
	if err != nil {
		return "", err
	}

	name := ins.Name()
	if size == 4 {
		base := strings.TrimSuffix(name, "S")
		if narrowCapable[base] || narrowCapable[name] {
			name += ".W"
		}
	}
	args := ins.Args()
	if args == "" {
		return name, nil
	}
	return fmt.Sprintf("%s %s", name, args), nil
}
