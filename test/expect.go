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

// Package test contains helper functions to remove common boilerplate from
// the package tests in this repository.
package test

import "testing"

// ExpectEquality compares value to expectedValue and fails the test on
// mismatch.
func ExpectEquality[T comparable](t *testing.T, value T, expectedValue T) bool {
	t.Helper()
	if value != expectedValue {
		t.Errorf("equality test of type %T failed: %v does not equal %v", value, value, expectedValue)
		return false
	}
	return true
}

// ExpectInequality is the inverse of ExpectEquality.
func ExpectInequality[T comparable](t *testing.T, value T, unexpectedValue T) bool {
	t.Helper()
	if value == unexpectedValue {
		t.Errorf("inequality test of type %T failed: %v equals %v", value, value, unexpectedValue)
		return false
	}
	return true
}

// ExpectSuccess fails the test unless value is true (or a nil error).
func ExpectSuccess(t *testing.T, value interface{}) bool {
	t.Helper()
	switch v := value.(type) {
	case bool:
		if !v {
			t.Errorf("success test failed: boolean is false")
			return false
		}
	case error:
		if v != nil {
			t.Errorf("success test failed: error is not nil: %v", v)
			return false
		}
	case nil:
		// a nil error arrives as an untyped nil
	default:
		t.Fatalf("success test of type %T is not supported", value)
		return false
	}
	return true
}

// ExpectFailure fails the test unless value is false (or a non-nil error).
func ExpectFailure(t *testing.T, value interface{}) bool {
	t.Helper()
	switch v := value.(type) {
	case bool:
		if v {
			t.Errorf("failure test failed: boolean is true")
			return false
		}
	case error:
		if v == nil {
			t.Errorf("failure test failed: error is nil")
			return false
		}
	case nil:
		t.Errorf("failure test failed: error is nil")
		return false
	default:
		t.Fatalf("failure test of type %T is not supported", value)
		return false
	}
	return true
}
