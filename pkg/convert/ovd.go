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

	"github.com/lassandro/i2crip/pkg/script"
)

const (
	OVD_SECTION      = "@@"
	OVD_DELAY        = "; Delay "
	OVD_COMMENT      = ";;"
	OVD_FUNCTION     = "function"
	OVD_MAX_SLAVE    = 0x7F
	OVD_OUTPUT_EXT   = ".txt"
	OVD_DEFAULT_NAME = "section"
)

// Drops function bodies, from the line naming the function to the brace
// closing it
func dropFunctions(lines []string) []string {
	var result []string

	for i := 0; i < len(lines); i++ {
		if !strings.Contains(lines[i], OVD_FUNCTION) {
			result = append(result, lines[i])
			continue
		}

		for i < len(lines) && !strings.Contains(lines[i], "{") {
			i++
		}

		for depth := 0; i < len(lines); i++ {
			depth += strings.Count(lines[i], "{") - strings.Count(lines[i], "}")

			if depth == 0 {
				break
			}
		}
	}

	return result
}

func parseFields(fields []string) ([]uint64, bool) {
	values := make([]uint64, len(fields))

	for i, field := range fields {
		value, err := strconv.ParseUint(field, 16, 32)

		if err != nil {
			return nil, false
		}

		values[i] = value
	}

	return values, true
}

// OVD converts a sensor settings file into one script per "@@name" section.
// Register lines are "slave reg value" in bare hex; a two digit value is a
// byte write, up to four digits a word write. Lines naming a slave address
// outside 7 bits or a longer value are kept as comments.
func OVD(input io.Reader, bus int) ([]*Script, error) {
	raw, err := readLines(input)

	if err != nil {
		return nil, err
	}

	var comments commentFilter

	lines := make([]string, len(raw))

	for i, line := range raw {
		lines[i] = comments.filter(line)
	}

	var result []*Script
	var current *Script
	var slave string

	for _, line := range dropFunctions(lines) {
		line = strings.TrimSpace(line)

		if len(line) < 2 || strings.HasPrefix(line, OVD_COMMENT) {
			continue
		}

		if i := strings.Index(line, OVD_SECTION); i >= 0 {
			name := strings.TrimSpace(line[i+len(OVD_SECTION):])

			if name == "" {
				name = OVD_DEFAULT_NAME
			}

			current = &Script{Name: fmt.Sprintf("%s_%d", name, len(result))}
			result = append(result, current)
			slave = ""

			if err := current.add("SET-BUS %d", bus); err != nil {
				return nil, &ConvertError{0, line, err}
			}

			continue
		}

		if current == nil {
			continue
		}

		if i := strings.Index(line, OVD_DELAY); i >= 0 {
			delay := line[i+len(OVD_DELAY):]
			j := strings.Index(delay, "ms")

			if j < 0 {
				continue
			}

			if err := current.add("DELAY %s", strings.TrimSpace(delay[:j])); err != nil {
				current.comment(line)
			}

			continue
		}

		fields := strings.Split(line, " ")

		if len(fields) != 3 {
			continue
		}

		values, ok := parseFields(fields)

		if !ok {
			continue
		}

		var command string

		switch {
		case values[0] >= OVD_MAX_SLAVE:
		case len(fields[2]) == 2:
			command = "WB-16"
		case len(fields[2]) <= 4:
			command = "WW-16"
		}

		if command == "" {
			current.comment(line)
			continue
		}

		var setID string

		if fields[0] != slave {
			setID = fmt.Sprintf("SET-ID 0x%s", fields[0])

			if _, _, err := script.DecodeLine(setID); err != nil {
				current.comment(line)
				continue
			}
		}

		write := fmt.Sprintf("%s 0x%s 0x%s", command, fields[1], fields[2])

		if _, _, err := script.DecodeLine(write); err != nil {
			current.comment(line)
			continue
		}

		if setID != "" {
			current.Lines = append(current.Lines, setID)
			slave = fields[0]
		}

		current.Lines = append(current.Lines, write)
	}

	return result, nil
}
