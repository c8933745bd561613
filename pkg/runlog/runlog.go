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

// Package runlog writes the messages of a run to the terminal and to a log
// file, each toggled on its own.
package runlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

const DEFAULT_FILE = "i2crip.log"

type Sinks struct {
	term *log.Logger
	file *log.Logger

	handle *os.File
	path   string
	quiet  bool
}

// New creates sinks writing to terminal and, once OpenFile is called, to
// the file at path. In quiet mode nothing is ever written.
func New(terminal io.Writer, path string, quiet bool) *Sinks {
	if quiet || terminal == nil {
		terminal = io.Discard
	}

	if path == "" {
		path = DEFAULT_FILE
	}

	return &Sinks{
		term:  log.New(terminal, "", 0),
		path:  path,
		quiet: quiet,
	}
}

func (s *Sinks) Path() string {
	return s.path
}

// OpenFile opens the log file for appending. Opening an open file does
// nothing.
func (s *Sinks) OpenFile() error {
	if s.quiet || s.file != nil {
		return nil
	}

	handle, err := os.OpenFile(
		s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644,
	)

	if err != nil {
		return err
	}

	s.handle = handle
	s.file = log.New(handle, "", log.LstdFlags)

	return nil
}

func (s *Sinks) FileOpen() bool {
	return s.file != nil
}

// Print writes one message to the enabled sinks, prefixed with the source
// line when line is positive
func (s *Sinks) Print(line int, toTerm, toFile bool, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	if line > 0 {
		msg = fmt.Sprintf("line %d: %s", line, msg)
	}

	if toTerm {
		s.term.Println(msg)
	}

	if toFile && s.file != nil {
		s.file.Println(msg)
	}
}

func (s *Sinks) Close() error {
	if s.handle == nil {
		return nil
	}

	err := s.handle.Close()

	s.handle = nil
	s.file = nil

	return err
}
