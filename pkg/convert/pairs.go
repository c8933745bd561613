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

package convert

import (
	"io"
	"strings"
)

const (
	DEFAULT_PAIRS_BUS   = 16
	DEFAULT_PAIRS_SLAVE = 0x10
)

// Pairs converts "addr value" lines into 16-bit address byte writes on a
// single bus and slave. Lines without exactly two fields are skipped.
func Pairs(input io.Reader, bus int, slave uint8) (*Script, error) {
	lines, err := readLines(input)

	if err != nil {
		return nil, err
	}

	result := &Script{}

	if err := result.add("SET-BUS %d", bus); err != nil {
		return nil, &ConvertError{0, "", err}
	}

	if err := result.add("SET-ID 0x%02X", slave); err != nil {
		return nil, &ConvertError{0, "", err}
	}

	for i, line := range lines {
		fields := strings.Fields(line)

		if len(fields) != 2 {
			continue
		}

		if err := result.add("WB-16 %s %s", fields[0], fields[1]); err != nil {
			return nil, &ConvertError{i + 1, line, err}
		}
	}

	return result, nil
}
