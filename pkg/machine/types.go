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

package machine

import (
	"time"

	"github.com/lassandro/i2crip/pkg/bus"
	"github.com/lassandro/i2crip/pkg/runlog"
	"github.com/lassandro/i2crip/pkg/script"
)

type Status uint

type MachineState struct {
	Bus      int
	BusValid bool

	SuppressErrors bool
	LogToFile      bool
	LogToTerm      bool

	// Index of the next instruction
	Program int

	// Value of the last successful read or verify
	LastRead uint16
}

type MachineDebugger interface {
	Step(mc *Machine)
	Read(addr uint16, mc *Machine)
	Write(addr uint16, mc *Machine)
}

type MachineRecorder interface {
	Record(transfer *Transfer) error
}

// Transfer describes one register write, read or verify, successful or not
type Transfer struct {
	Line     int
	Bus      int
	Slave    uint8
	Command  script.CommandKind
	Reg      uint16
	Data     uint16
	Expected uint16
	OK       bool
	Err      error
	At       time.Time
}

type Result struct {
	Status     Status
	Executed   int
	Errors     int
	Mismatches int

	// The error that halted the run
	Err error
}

type Machine struct {
	Document *script.Document
	Registry *bus.Registry
	Log      *runlog.Sinks
	State    MachineState
	Status   Status
	Debugger MachineDebugger
	Recorder MachineRecorder

	// Replaces time.Sleep for DELAY when set
	Sleep func(time.Duration)

	result Result
}
