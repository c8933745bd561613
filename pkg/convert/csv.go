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
	"fmt"
	"io"
	"strconv"
	"strings"
)

func splitFields(line string) []string {
	var fields []string

	for _, field := range strings.Split(line, ",") {
		if field = strings.TrimSpace(field); field != "" {
			fields = append(fields, field)
		}
	}

	return fields
}

func parseHex(text string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(text, "0x"), 16, 16)
}

// CSV converts C initializer rows of "bus,id,addrHi,addrLo,value". The id
// is an 8-bit write address and is shifted down to the 7-bit slave address.
// A row of two fields becomes a 1ms delay.
func CSV(input io.Reader) (*Script, error) {
	lines, err := readLines(input)

	if err != nil {
		return nil, err
	}

	var comments commentFilter

	result := &Script{}
	lastBus, lastID := "", ""

	for i, line := range lines {
		fields := splitFields(strings.TrimSpace(comments.filter(line)))

		switch len(fields) {
		case 5:
			if fields[0] != lastBus {
				if err := result.add("SET-BUS %s", fields[0]); err != nil {
					return nil, &ConvertError{i + 1, line, err}
				}

				lastBus = fields[0]
			}

			if fields[1] != lastID {
				id, err := parseHex(fields[1])

				if err == nil {
					err = result.add("SET-ID 0x%x", id>>1)
				}

				if err != nil {
					return nil, &ConvertError{i + 1, line, err}
				}

				lastID = fields[1]
			}

			if !strings.HasPrefix(fields[3], "0x") {
				return nil, &ConvertError{
					i + 1, line, fmt.Errorf("low address byte lacks 0x prefix"),
				}
			}

			addr := fields[2] + strings.TrimPrefix(fields[3], "0x")

			if err := result.add("WB-16 %s %s", addr, fields[4]); err != nil {
				return nil, &ConvertError{i + 1, line, err}
			}

		case 2:
			if err := result.add("DELAY 1"); err != nil {
				return nil, &ConvertError{i + 1, line, err}
			}
		}
	}

	return result, nil
}
