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
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/lassandro/i2crip/pkg/bus"
	"github.com/lassandro/i2crip/pkg/capture"
	"github.com/lassandro/i2crip/pkg/config"
	"github.com/lassandro/i2crip/pkg/debugger"
	"github.com/lassandro/i2crip/pkg/machine"
	"github.com/lassandro/i2crip/pkg/runlog"
	"github.com/lassandro/i2crip/pkg/script"
	"github.com/lassandro/i2crip/pkg/transport/usbi2c"
)

var helpvar bool
var yesvar bool
var simvar bool
var quietvar bool
var debugvar bool
var listvar bool
var configvar string
var drivervar string
var logvar string
var capturevar string
var verbosevar int

var shouldexit bool

const usage = "i2crip [-y] [-sim] [-q] [-debug] [-config file] [-driver name] " +
	"[-log file] [-capture db] filename"

const (
	EXIT_OK       = 0
	EXIT_FAILURE  = 1
	EXIT_MISMATCH = 2
)

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&yesvar, "y", false, "Skips the confirmation prompt")
	flag.BoolVar(&simvar, "sim", false, "Runs against the simulated transport")
	flag.BoolVar(&quietvar, "q", false, "Suppresses all run logging output")
	flag.BoolVar(&debugvar, "debug", false, "Runs the script in a debug CLI")
	flag.BoolVar(&listvar, "list", false, "Lists serial ports and exits")
	flag.StringVar(
		&configvar, "config", "",
		"Configuration file, by default "+config.FILENAME+" is searched "+
			"for from the working directory upwards",
	)
	flag.StringVar(
		&drivervar, "driver", "",
		"Transport driver, one of "+config.DRIVER_I2CDEV+", "+
			config.DRIVER_USBI2C+" or "+config.DRIVER_SIM,
	)
	flag.StringVar(&logvar, "log", "", "File opened by LOG-FILE 1")
	flag.StringVar(&capturevar, "capture", "", "SQLite database journalling every transfer")
	flag.IntVar(&verbosevar, "v", 0, "Diagnostics verbosity, 1 for info, 2 for debug")
}

func listPorts() int {
	ports, err := usbi2c.ListPorts()

	if err != nil {
		log.Println(err)
		return EXIT_FAILURE
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
	}

	for _, port := range ports {
		if port.IsUSB {
			fmt.Printf(
				"%s\tUSB %s:%s %s\n", port.Name, port.VID, port.PID, port.SerialNumber,
			)
		} else {
			fmt.Println(port.Name)
		}
	}

	return EXIT_OK
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configvar != "" {
		cfg, err = config.Load(configvar)
	} else {
		cfg, err = config.FindAndLoad(".")
	}

	if err != nil {
		return nil, err
	}

	if logvar != "" {
		cfg.Log.File = logvar
	}

	if capturevar != "" {
		cfg.Capture.Database = capturevar
	}

	if simvar {
		cfg.Transport.Driver = config.DRIVER_SIM
	} else if drivervar != "" {
		cfg.Transport.Driver = drivervar
	}

	return cfg, cfg.Validate()
}

// Set by SIGINT, consumed by the stepping loop
var interrupted atomic.Bool

func watchInterrupt(c <-chan os.Signal) {
	for range c {
		fmt.Println()
		interrupted.Store(true)
	}
}

// Breaks into the debugger if an interrupt arrived since the last step
func pollInterrupt(dbg *debugger.Debugger) {
	if dbg != nil && interrupted.Swap(false) {
		dbg.Break = true
	}
}

func setupDebugger(mc *machine.Machine) *debugger.Debugger {
	var dbg debugger.Debugger
	dbg.Break = true
	dbg.HandleBreak = handleBreak
	dbg.HandleRead = handleRead
	dbg.HandleWrite = handleWrite
	mc.Debugger = &dbg

	if mc.Document.Source != "" {
		if err := dbg.LoadSource(mc.Document.Source); err != nil {
			log.Println("Error loading source file")
			log.Println(err)
		}
	}

	c := make(chan os.Signal, 1)

	signal.Notify(c, os.Interrupt)
	go watchInterrupt(c)

	return &dbg
}

func i2crip() int {
	flag.Parse()

	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return EXIT_OK
	}

	if verbosevar > 0 {
		commonlog.Configure(verbosevar, nil)
	} else {
		commonlog.Configure(-4, nil)
	}

	if listvar {
		return listPorts()
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return EXIT_FAILURE
	}

	cfg, err := loadConfig()

	if err != nil {
		log.Println(err)
		return EXIT_FAILURE
	}

	doc, err := script.LoadFile(args[0])

	if err != nil {
		log.Printf("%s: %v", args[0], err)
		return EXIT_FAILURE
	}

	driver, err := cfg.NewDriver("")

	if err != nil {
		log.Println(err)
		return EXIT_FAILURE
	}

	if !yesvar && cfg.Transport.Driver != config.DRIVER_SIM && !confirm(os.Stderr, readKey) {
		return EXIT_OK
	}

	registry := bus.NewRegistry(driver)

	defer func() {
		if err := registry.Close(); err != nil {
			log.Println(err)
		}
	}()

	sinks := runlog.New(os.Stdout, cfg.Log.File, quietvar)
	defer sinks.Close()

	mc := machine.NewMachine(doc, registry, sinks)

	if cfg.Capture.Database != "" {
		journal, err := capture.Open(
			cfg.Capture.Database, capture.NewRunID(time.Now()),
		)

		if err != nil {
			log.Println(err)
			return EXIT_FAILURE
		}

		defer journal.Close()

		mc.Recorder = journal
	}

	var dbg *debugger.Debugger

	if debugvar {
		dbg = setupDebugger(mc)
	}

	for mc.Status == machine.STATUS_RUNNING && !shouldexit {
		pollInterrupt(dbg)
		mc.Step()
	}

	return summarize(mc)
}

// Prints the outcome of the run and picks the exit code
func summarize(mc *machine.Machine) int {
	result := mc.Result()
	toFile := mc.State.LogToFile

	switch {
	case result.Status == machine.STATUS_COMPLETED:
		mc.Log.Print(
			0, true, toFile,
			"Completed %d instructions, %d errors",
			result.Executed,
			result.Errors,
		)

		return EXIT_OK

	case result.Status == machine.STATUS_HALTED && result.Err != nil:
		mc.Log.Print(
			mc.Document.Line(mc.State.Program-1), true, toFile,
			"Halted after %d instructions: %v",
			result.Executed,
			result.Err,
		)

		var mismatch *machine.VerifyMismatchError

		if errors.As(result.Err, &mismatch) {
			return EXIT_MISMATCH
		}

		return EXIT_FAILURE
	}

	mc.Log.Print(0, true, toFile, "Stopped after %d instructions", result.Executed)

	return EXIT_FAILURE
}

func main() {
	os.Exit(i2crip())
}
