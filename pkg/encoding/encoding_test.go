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

package encoding_test

import (
	"bytes"
	"testing"

	"github.com/lassandro/i2crip/pkg/encoding"
)

func TestDecodeLiteral(t *testing.T) {
	tests := []struct {
		Input  string
		Output int64
		Valid  bool
	}{
		{"26", 26, true},
		{"0x1A", 26, true},
		{"0x1a", 26, true},
		{"0x5", 5, true},
		{"010", 10, true},
		{"-3", -3, true},
		{"+3", 3, true},
		{"0xFFFFFFFF", 0xFFFFFFFF, true},
		{"0x", 0, false},
		{"0X1A", 0, false},
		{"x1A", 0, false},
		{"0x-1", 0, false},
		{"0x1_0", 0, false},
		{"1A", 0, false},
		{"", 0, false},
		{"0x100000000", 0, false},
	}

	for _, test := range tests {
		have, err := encoding.DecodeLiteral(test.Input)

		if test.Valid && err != nil {
			t.Errorf("%q failed to decode: %v", test.Input, err)
		} else if !test.Valid && err == nil {
			t.Errorf("%q decoded to %d, want failure", test.Input, have)
		} else if test.Valid && have != test.Output {
			t.Errorf(
				"%q decode mismatch\nwant:%d\nhave:%d",
				test.Input,
				test.Output,
				have,
			)
		}
	}
}

func TestEncodeHex(t *testing.T) {
	for _, value := range []uint16{0, 5, 0x10, 0xFF, 0x100, 0xFFFF} {
		have, err := encoding.DecodeLiteral(encoding.EncodeHex(value))

		if err != nil || have != int64(value) {
			t.Errorf(
				"%#x did not survive hex encoding\nhave:%d (%v)", value, have, err,
			)
		}
	}
}

func TestBytes(t *testing.T) {
	if have := encoding.EncodeBytes(0x1234, 2); !bytes.Equal(have, []byte{0x12, 0x34}) {
		t.Errorf("Word encoding mismatch\nwant:[12 34]\nhave:% x", have)
	}

	if have := encoding.EncodeBytes(0x1234, 1); !bytes.Equal(have, []byte{0x34}) {
		t.Errorf("Byte encoding mismatch\nwant:[34]\nhave:% x", have)
	}

	if have, _ := encoding.DecodeBytes([]byte{0xBE, 0xEF}); have != 0xBEEF {
		t.Errorf("Word decoding mismatch\nwant:0xbeef\nhave:%#x", have)
	}

	if _, err := encoding.DecodeBytes(nil); err == nil {
		t.Error("Empty buffer decoded")
	}

	if have := encoding.WidthOf(16); have != 2 {
		t.Errorf("Width mismatch\nwant:2\nhave:%d", have)
	}
}
