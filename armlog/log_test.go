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

package armlog_test

import (
	"strings"
	"testing"

	"github.com/cortexm/thumbm/armlog"
	"github.com/cortexm/thumbm/test"
)

func TestLoggerWriteAndTail(t *testing.T) {
	log := armlog.NewLogger(100)
	w := &strings.Builder{}

	log.Write(w)
	test.ExpectEquality(t, w.String(), "")

	log.Log("decoder", "this is a test")
	log.Write(w)
	test.ExpectEquality(t, w.String(), "decoder: this is a test\n")

	w.Reset()
	log.Logf("exception", "number %d", 15)
	log.Write(w)
	test.ExpectEquality(t, w.String(), "decoder: this is a test\nexception: number 15\n")

	// asking for too many entries in a Tail is okay
	w.Reset()
	log.Tail(w, 100)
	test.ExpectEquality(t, w.String(), "decoder: this is a test\nexception: number 15\n")

	// asking for fewer entries returns the most recent
	w.Reset()
	log.Tail(w, 1)
	test.ExpectEquality(t, w.String(), "exception: number 15\n")
}

func TestLoggerCoalescesDuplicates(t *testing.T) {
	log := armlog.NewLogger(100)
	w := &strings.Builder{}

	log.Log("coprocessor", "p10 rejected")
	log.Log("coprocessor", "p10 rejected")
	log.Log("coprocessor", "p10 rejected")
	log.Write(w)
	test.ExpectEquality(t, w.String(), "coprocessor: p10 rejected (repeat x3)\n")
}

func TestLoggerBounded(t *testing.T) {
	log := armlog.NewLogger(2)
	w := &strings.Builder{}

	log.Log("a", "1")
	log.Log("b", "2")
	log.Log("c", "3")
	log.Write(w)
	test.ExpectEquality(t, w.String(), "b: 2\nc: 3\n")
}

func TestLoggerClear(t *testing.T) {
	log := armlog.NewLogger(10)
	w := &strings.Builder{}

	log.Log("a", "1")
	log.Clear()
	log.Write(w)
	test.ExpectEquality(t, w.String(), "")
}
