// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/lassandro/i2crip/pkg/debugger"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		Key     byte
		Err     error
		Confirm bool
	}{
		{'y', nil, true},
		{'Y', nil, true},
		{'n', nil, false},
		{'\n', nil, false},
		{0, errors.New("closed"), false},
	}

	for _, test := range tests {
		var out bytes.Buffer

		have := confirm(&out, func() (byte, error) { return test.Key, test.Err })

		if have != test.Confirm {
			t.Errorf("Key %q confirm mismatch\nwant:%t\nhave:%t", test.Key, test.Confirm, have)
		}

		if !strings.HasPrefix(out.String(), warning) {
			t.Errorf("Key %q missing warning\nhave:%q", test.Key, out.String())
		}

		aborted := strings.Contains(out.String(), "Aborting on user request.")

		if aborted == test.Confirm {
			t.Errorf("Key %q abort message mismatch\nhave:%q", test.Key, out.String())
		}
	}
}

func TestInterrupt(t *testing.T) {
	var dbg debugger.Debugger

	pollInterrupt(&dbg)

	if dbg.Break {
		t.Fatal("Break set without an interrupt")
	}

	c := make(chan os.Signal)
	done := make(chan struct{})

	go func() {
		watchInterrupt(c)
		close(done)
	}()

	c <- os.Interrupt
	close(c)
	<-done

	pollInterrupt(nil)
	pollInterrupt(&dbg)

	if !dbg.Break {
		t.Fatal("Interrupt did not break into the debugger")
	}

	dbg.Break = false
	pollInterrupt(&dbg)

	if dbg.Break {
		t.Fatal("Interrupt delivered twice")
	}
}
