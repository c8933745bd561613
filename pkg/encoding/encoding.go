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

package encoding

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidLiteral = errors.New("Invalid numeric literal")

// Decodes a numeric token in the formats: 0x1A, 26
//
// Only tokens longer than two characters with a literal 0x prefix are read
// as hexadecimal, everything else is base-10.
func DecodeLiteral(s string) (int64, error) {
	if len(s) > 2 && strings.HasPrefix(s, "0x") {
		return DecodeHex(s[2:])
	}

	return DecodeInt(s)
}

// Decodes the digits of a hexadecimal literal with its prefix removed
func DecodeHex(s string) (int64, error) {
	result, err := strconv.ParseUint(s, 16, 32)

	if err != nil {
		return 0, ErrInvalidLiteral
	}

	return int64(result), nil
}

// Decodes a base-10 string in the formats: 123, +123, -123
func DecodeInt(s string) (int64, error) {
	result, err := strconv.ParseInt(s, 10, 32)

	if err != nil {
		return 0, ErrInvalidLiteral
	}

	return result, nil
}

// Formats a register or data value so that DecodeLiteral reads it back as
// hexadecimal
func EncodeHex(value uint16) string {
	return fmt.Sprintf("0x%02X", value)
}

// Encodes value into width bytes, most significant byte first
func EncodeBytes(value uint16, width int) []byte {
	switch width {
	case 1:
		return []byte{byte(value & 0xFF)}
	case 2:
		return []byte{byte(value >> 8), byte(value & 0xFF)}
	}

	panic(fmt.Sprintf("Invalid register width %d", width))
}

// Decodes a most significant byte first value of one or two bytes
func DecodeBytes(buf []byte) (uint16, error) {
	switch len(buf) {
	case 1:
		return uint16(buf[0]), nil
	case 2:
		return uint16(buf[0])<<8 | uint16(buf[1]), nil
	}

	return 0, fmt.Errorf("Invalid register width %d", len(buf))
}

// Number of bytes needed to hold a value of the given bit size
func WidthOf(bits uint) int {
	return int((bits + 7) / 8)
}
