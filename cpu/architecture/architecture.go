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

// Package architecture defines the Version type and the Config record used
// to specify the differences between the M-profile architecture variants.
package architecture

import "fmt"

// Version identifies the M-profile architecture variant being emulated.
type Version string

// List of valid Version values.
const (
	V6M  Version = "v6-M"
	V7M  Version = "v7-M"
	V7EM Version = "v7E-M"
	V8M  Version = "v8-M"
)

// HasMPU reports whether this version carries an MPU register block at all
// (the block's layout still differs between v7-M/v7E-M and v8-M).
func (v Version) HasMPU() bool {
	return v == V7M || v == V7EM || v == V8M
}

// HasDSP reports whether the version implements the DSP extension
// (SIMD add/subtract, saturating arithmetic, GE flags).
func (v Version) HasDSP() bool {
	return v == V7EM || v == V8M
}

// Config carries the feature differences between architecture variants,
// analogous to a per-core memory map.
type Config struct {
	Version Version

	// ExternalExceptions is the number of implemented external interrupt
	// lines (IRQ0..IRQn-1), used to size the NVIC register blocks.
	ExternalExceptions uint

	// ExclusivesReservationGranule is the size, in bytes, of the address
	// range covered by a single exclusive reservation. Must be a power of
	// two in [2,512].
	ExclusivesReservationGranule uint

	// BigEndian is the default state of AIRCR.ENDIANNESS on reset.
	BigEndian bool
}

// NewConfig is the preferred method of initialisation for Config. It
// validates the reservation granule and panics on a malformed value - this
// is a programmer error (an invalid static configuration), not a runtime
// architectural fault, so it is not surfaced as an error value.
func NewConfig(version Version, externalExceptions uint, reservationGranule uint) Config {
	if reservationGranule < 2 || reservationGranule > 512 || reservationGranule&(reservationGranule-1) != 0 {
		panic(fmt.Sprintf("architecture: exclusives reservation granule must be a power of two in [2,512], got %d", reservationGranule))
	}

	return Config{
		Version:                      version,
		ExternalExceptions:           externalExceptions,
		ExclusivesReservationGranule: reservationGranule,
	}
}
