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

// Package convert turns register tables exported by other tools into
// scripts. Every line a converter emits is checked with the script decoder.
package convert

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/lassandro/i2crip/pkg/script"
)

type Script struct {
	Name  string
	Lines []string
}

// Adds one line, which must decode
func (s *Script) add(format string, args ...interface{}) error {
	line := fmt.Sprintf(format, args...)

	if _, _, err := script.DecodeLine(line); err != nil {
		return err
	}

	s.Lines = append(s.Lines, line)

	return nil
}

// Adds text as a comment line, cut to the maximum line length
func (s *Script) comment(text string) {
	line := script.COMMENT_PREFIX + text

	if len(line) > script.MAX_LINE_SIZE {
		line = line[:script.MAX_LINE_SIZE]
	}

	s.Lines = append(s.Lines, line)
}

func (s *Script) String() string {
	var b strings.Builder

	for _, line := range s.Lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	return b.String()
}

func (s *Script) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, s.String())
	return int64(n), err
}

type ConvertError struct {
	Line int
	Text string
	Err  error
}

func (err *ConvertError) Error() string {
	return fmt.Sprintf("%02d: '%s': %v", err.Line, err.Text, err.Err)
}

func (err *ConvertError) Unwrap() error {
	return err.Err
}

// Strips C style comments, carrying block comments across lines
type commentFilter struct {
	block bool
}

func (f *commentFilter) filter(line string) string {
	if f.block {
		i := strings.Index(line, "*/")

		if i < 0 {
			return ""
		}

		line = line[i+2:]
		f.block = false
	}

	if i := strings.Index(line, "/*"); i >= 0 {
		rest := line[i+2:]

		if j := strings.Index(rest, "*/"); j >= 0 {
			line = line[:i] + rest[j+2:]
		} else {
			line = line[:i]
			f.block = true
		}
	}

	if i := strings.Index(line, "//"); !f.block && i >= 0 {
		line = line[:i]
	}

	return line
}

// Reads every line of input, numbering from 1
func readLines(input io.Reader) ([]string, error) {
	var lines []string

	scanner := bufio.NewScanner(input)

	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	return lines, scanner.Err()
}
