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

package debugger

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/lassandro/i2crip/pkg/encoding"
	"github.com/lassandro/i2crip/pkg/machine"
)

func (wtype WatchpointType) String() string {
	switch wtype {
	case ReadWatch:
		return "read"
	case WriteWatch:
		return "write"
	case ReadWriteWatch:
		return "readwrite"
	}

	return "<invalid>"
}

func (dbg *Debugger) Step(mc *machine.Machine) {
	if dbg.HandleBreak == nil {
		return
	}

	if dbg.Break {
		dbg.HandleBreak(dbg, mc)
		return
	}

	line := mc.Line()

	for _, breakpoint := range dbg.Breakpoints {
		if line == breakpoint.Line {
			dbg.HandleBreak(dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Read(addr uint16, mc *machine.Machine) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr && dbg.HandleRead != nil {
			dbg.HandleRead(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Write(addr uint16, mc *machine.Machine) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr && dbg.HandleWrite != nil {
			dbg.HandleWrite(addr, dbg, mc)
			break
		}
	}
}

// AddBreakpoint reports false when the line already has one
func (dbg *Debugger) AddBreakpoint(line int) bool {
	for _, breakpoint := range dbg.Breakpoints {
		if breakpoint.Line == line {
			return false
		}
	}

	dbg.Breakpoints = append(dbg.Breakpoints, Breakpoint{line})

	return true
}

// AddWatchpoint reports false when an identical watchpoint exists
func (dbg *Debugger) AddWatchpoint(addr uint16, wtype WatchpointType) bool {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Addr == addr && watchpoint.Type == wtype {
			return false
		}
	}

	dbg.Watchpoints = append(dbg.Watchpoints, Watchpoint{addr, wtype})

	return true
}

func (dbg *Debugger) LoadSource(filename string) error {
	file, err := os.Open(filename)

	if err != nil {
		return err
	}

	defer file.Close()

	dbg.Source = dbg.Source[:0]
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		dbg.Source = append(dbg.Source, scanner.Text())
	}

	return scanner.Err()
}

// PrintSource lists count lines starting at line, marking the current one
func (dbg *Debugger) PrintSource(w io.Writer, line, current, count int) {
	if len(dbg.Source) == 0 {
		fmt.Fprintln(w, "No source file loaded")
		return
	}

	if line < 1 || line > len(dbg.Source) {
		fmt.Fprintf(w, "No line %d in source\n", line)
		return
	}

	for i := line; i < line+count && i <= len(dbg.Source); i++ {
		if i == current {
			fmt.Fprintf(w, "\033[1m[%4d]\033[0m ", i)
		} else {
			fmt.Fprintf(w, "\033[1;30m %4d \033[0m ", i)
		}

		fmt.Fprintln(w, dbg.Source[i-1])
	}
}

func (dbg *Debugger) PrintState(w io.Writer, mc *machine.Machine) {
	state := &mc.State

	if state.BusValid {
		fmt.Fprintf(w, "\033[1mBUS:\033[0m %d\t", state.Bus)

		if slave, ok := mc.Registry.Slave(state.Bus); ok {
			fmt.Fprintf(
				w, "\033[1mID:\033[0m %s\t", encoding.EncodeHex(uint16(slave)),
			)
		} else {
			fmt.Fprint(w, "\033[1mID:\033[0m -\t")
		}
	} else {
		fmt.Fprint(w, "\033[1mBUS:\033[0m -\t")
	}

	fmt.Fprintf(
		w,
		"\033[1mSUPPRESS:\033[0m %t\t\033[1mLOG:\033[0m term=%t file=%t\n",
		state.SuppressErrors,
		state.LogToTerm,
		state.LogToFile,
	)

	fmt.Fprintf(
		w,
		"\033[1mLINE:\033[0m %d\t\033[1mLAST:\033[0m %s\t\033[1mSTATUS:\033[0m %s\n",
		mc.Line(),
		encoding.EncodeHex(state.LastRead),
		mc.Status,
	)
}
