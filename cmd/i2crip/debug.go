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
	"bufio"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/lassandro/i2crip/pkg/bus"
	"github.com/lassandro/i2crip/pkg/debugger"
	"github.com/lassandro/i2crip/pkg/encoding"
	"github.com/lassandro/i2crip/pkg/machine"
)

var lastcmd []string

const SOURCE_CONTEXT = 8

func listFormat(count int, suffix string) string {
	digits := math.Floor(math.Log10(float64(count + 1)))
	return fmt.Sprintf("#%%0%dd: %s\n", int64(digits)+1, suffix)
}

func parseIndex(arg string, count int) (int, bool) {
	i, err := strconv.ParseInt(arg, 10, 64)

	if err != nil {
		log.Println(err)
		return 0, false
	}

	if i < 0 || i >= int64(count) {
		log.Println("Invalid index")
		return 0, false
	}

	return int(i), true
}

func debugBreak(dbg *debugger.Debugger, args []string) {
	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [line]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		line, err := strconv.Atoi(args[0])

		if err != nil || line < 1 {
			log.Println(usage)
			return
		}

		if dbg.AddBreakpoint(line) {
			fmt.Printf("Breakpoint added [line %d]\n", line)
		}

	case "l", "ls", "list":
		if len(args) != 0 {
			log.Println("break list")
			return
		}

		format := listFormat(len(dbg.Breakpoints), "line %d")

		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf(format, i, breakpoint.Line)
		}

	case "r", "rm", "remove":
		if len(args) != 1 {
			log.Println("break remove [#]")
			return
		}

		i, ok := parseIndex(args[0], len(dbg.Breakpoints))

		if !ok {
			return
		}

		dbg.Breakpoints[i] = dbg.Breakpoints[len(dbg.Breakpoints)-1]
		dbg.Breakpoints = dbg.Breakpoints[:len(dbg.Breakpoints)-1]
		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = make([]debugger.Breakpoint, 0)
		fmt.Println("Breakpoints reset")

	default:
		log.Printf("break: '%s' is not a valid command\n", cmd)
	}
}

func debugWatch(dbg *debugger.Debugger, args []string) {
	const usage = "watch [add|list|rm|clear]"

	if len(args) == 0 {
		log.Println(usage)
		return
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [0x####] [read|write|readwrite]"

		if len(args) != 2 {
			log.Println(usage)
			return
		}

		value, err := encoding.DecodeLiteral(args[0])

		if err != nil || value < 0 || value > 0xFFFF {
			log.Println("Invalid register address")
			return
		}

		addr := uint16(value)

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			log.Println(usage)
			return
		}

		if dbg.AddWatchpoint(addr, wtype) {
			fmt.Printf(
				"Watchpoint added [%s] (%s)\n", encoding.EncodeHex(addr), wtype,
			)
		}

	case "l", "ls", "list":
		if len(args) != 0 {
			log.Println("watch list")
			return
		}

		format := listFormat(len(dbg.Watchpoints), "%s %s")

		for i, watchpoint := range dbg.Watchpoints {
			fmt.Printf(
				format, i, encoding.EncodeHex(watchpoint.Addr), watchpoint.Type,
			)
		}

	case "r", "rm", "remove":
		if len(args) != 1 {
			log.Println("watch rm [#]")
			return
		}

		i, ok := parseIndex(args[0], len(dbg.Watchpoints))

		if !ok {
			return
		}

		dbg.Watchpoints[i] = dbg.Watchpoints[len(dbg.Watchpoints)-1]
		dbg.Watchpoints = dbg.Watchpoints[:len(dbg.Watchpoints)-1]
		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = make([]debugger.Watchpoint, 0)
		fmt.Println("Watchpoints reset")

	default:
		log.Printf("watch: '%s' is not a valid command\n", cmd)
	}
}

func debugSource(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	const usage = "source [line] [#]"

	if len(args) > 2 {
		log.Println(usage)
		return
	}

	line := mc.Line()
	count := SOURCE_CONTEXT

	for i, arg := range args {
		value, err := strconv.Atoi(arg)

		if err != nil {
			log.Println(usage)
			return
		}

		if i == 0 {
			line = value
		} else {
			count = value
		}
	}

	dbg.PrintSource(os.Stdout, line, mc.Line(), count)
}

func debugBuses(mc *machine.Machine, args []string) {
	if len(args) != 0 {
		log.Println("buses")
		return
	}

	found := false

	for i := 0; i < bus.MAX_BUSES; i++ {
		if !mc.Registry.Connected(i) {
			continue
		}

		found = true

		if slave, ok := mc.Registry.Slave(i); ok {
			fmt.Printf(
				"\033[1m[%2d]\033[0m ID %s\n", i, encoding.EncodeHex(uint16(slave)),
			)
		} else {
			fmt.Printf("\033[1m[%2d]\033[0m ID -\n", i)
		}
	}

	if !found {
		fmt.Println("No buses connected")
	}
}

// Moves the program to the first instruction at or after a source line
func debugJump(mc *machine.Machine, args []string) {
	const usage = "jump [line]"

	if len(args) != 1 {
		log.Println(usage)
		return
	}

	line, err := strconv.Atoi(args[0])

	if err != nil {
		log.Println(usage)
		return
	}

	for i := 0; i < mc.Document.Len(); i++ {
		if mc.Document.Line(i) >= line {
			mc.State.Program = i
			fmt.Printf("\033[1mLINE:\033[0m %d\n", mc.Line())
			return
		}
	}

	fmt.Printf("No instruction at or after line %d\n", line)
}

func debugSet(mc *machine.Machine, args []string) {
	const usage = "set [suppress|logterm|logfile] [0|1]"

	if len(args) != 2 || (args[1] != "0" && args[1] != "1") {
		log.Println(usage)
		return
	}

	value := args[1] == "1"

	switch args[0] {
	case "suppress":
		mc.State.SuppressErrors = value
	case "logterm":
		mc.State.LogToTerm = value
	case "logfile":
		if value {
			if err := mc.Log.OpenFile(); err != nil {
				log.Println(err)
				return
			}
		}

		mc.State.LogToFile = value
	default:
		log.Println(usage)
		return
	}

	fmt.Printf("\033[1m%s:\033[0m %t\n", strings.ToUpper(args[0]), value)
}

func stop(mc *machine.Machine) {
	shouldexit = true
	mc.Status = machine.STATUS_HALTED
}

func debugREPL(dbg *debugger.Debugger, mc *machine.Machine) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		if !scanner.Scan() {
			fmt.Println()
			stop(mc)
			return
		}

		args := strings.Fields(scanner.Text())

		if len(args) == 0 {
			if len(lastcmd) == 0 {
				continue
			}
			args = lastcmd
		} else {
			lastcmd = make([]string, len(args))
			copy(lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			debugBreak(dbg, args)

		case "w", "wp", "watch", "watchpoint":
			debugWatch(dbg, args)

		case "s", "src", "source":
			debugSource(dbg, mc, args)

		case "st", "state":
			dbg.PrintState(os.Stdout, mc)

		case "bus", "buses":
			debugBuses(mc, args)

		case "j", "jmp", "jump":
			debugJump(mc, args)

		case "set":
			debugSet(mc, args)

		case "c", "continue":
			dbg.Break = false
			return

		case "n", "next":
			dbg.Break = true
			return

		case "q", "quit", "exit":
			stop(mc)
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		case "reset":
			mc.Reset()
			fmt.Println("Program reset")

		default:
			fmt.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if !dbg.Break {
		fmt.Println()
		fmt.Println("Program stopped")
	}

	dbg.PrintSource(os.Stdout, mc.Line(), mc.Line(), 1)
	debugREPL(dbg, mc)
}

func handleWatch(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Printf("Program stopped [%s]\n", encoding.EncodeHex(addr))
	dbg.PrintState(os.Stdout, mc)
	debugREPL(dbg, mc)
}

func handleRead(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	handleWatch(addr, dbg, mc)
}

func handleWrite(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	handleWatch(addr, dbg, mc)
}
