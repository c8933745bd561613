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

package machine_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lassandro/i2crip/pkg/bus"
	"github.com/lassandro/i2crip/pkg/machine"
	"github.com/lassandro/i2crip/pkg/runlog"
	"github.com/lassandro/i2crip/pkg/script"
	"github.com/lassandro/i2crip/pkg/transport"
	"github.com/lassandro/i2crip/pkg/transport/mock"
	"github.com/lassandro/i2crip/pkg/transport/sim"
)

type testCase struct {
	Name       string
	Source     string
	Status     machine.Status
	Executed   int
	Errors     int
	Mismatches int
	Type       error

	// Messages expected in the terminal log
	Output []string
}

func newMachine(t *testing.T, driver transport.Driver, source string) (*machine.Machine, *bytes.Buffer) {
	doc, err := script.Compile(strings.NewReader(source))

	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer

	registry := bus.NewRegistry(driver)
	sinks := runlog.New(&out, filepath.Join(t.TempDir(), "run.log"), false)

	t.Cleanup(func() {
		registry.Close()
		sinks.Close()
	})

	mc := machine.NewMachine(doc, registry, sinks)
	mc.Sleep = func(time.Duration) {}

	return mc, &out
}

func testRun(t *testing.T, driver transport.Driver, test *testCase) *machine.Machine {
	mc, out := newMachine(t, driver, test.Source)
	result := mc.Run()

	if result.Status != test.Status {
		t.Fatalf(
			"%s status mismatch\nwant:%s\nhave:%s\nlog:\n%s",
			test.Name,
			test.Status,
			result.Status,
			out.String(),
		)
	}

	if result.Executed != test.Executed {
		t.Errorf(
			"%s executed mismatch\nwant:%d\nhave:%d",
			test.Name,
			test.Executed,
			result.Executed,
		)
	}

	if result.Errors != test.Errors {
		t.Errorf(
			"%s error count mismatch\nwant:%d\nhave:%d\nlog:\n%s",
			test.Name,
			test.Errors,
			result.Errors,
			out.String(),
		)
	}

	if result.Mismatches != test.Mismatches {
		t.Errorf(
			"%s mismatch count mismatch\nwant:%d\nhave:%d",
			test.Name,
			test.Mismatches,
			result.Mismatches,
		)
	}

	for _, want := range test.Output {
		if !strings.Contains(out.String(), want) {
			t.Errorf("%s missing message %q\nlog:\n%s", test.Name, want, out.String())
		}
	}

	if test.Status == machine.STATUS_HALTED {
		if reflect.TypeOf(result.Err) != reflect.TypeOf(test.Type) {
			t.Errorf(
				"%s halted with error of incorrect type\nwant:%T\nhave:%T (%v)",
				test.Name,
				test.Type,
				result.Err,
				result.Err,
			)
		}
	} else if result.Err != nil {
		t.Errorf("%s completed with error: %v", test.Name, result.Err)
	}

	return mc
}

func TestScenarios(t *testing.T) {
	tests := []testCase{
		{
			Name:     "Write then read",
			Source:   "SET-BUS 0\nSET-ID 80\nWB-8 16 255\nRB-8 16\n",
			Status:   machine.STATUS_COMPLETED,
			Executed: 4,
		},
		{
			Name:     "Suppressed precondition",
			Source:   "SUPRESS-ERRORS 1\nRB-8 16\n",
			Status:   machine.STATUS_COMPLETED,
			Executed: 2,
			Errors:   1,
		},
		{
			Name:     "Precondition",
			Source:   "RB-8 16\nRB-8 16\n",
			Status:   machine.STATUS_HALTED,
			Executed: 1,
			Errors:   1,
			Type:     &machine.PreconditionError{},
		},
		{
			Name:       "Verify mismatch",
			Source:     "SET-BUS 0\nSET-ID 80\nVB-8 16 255\nRB-8 16\n",
			Status:     machine.STATUS_HALTED,
			Executed:   3,
			Errors:     1,
			Mismatches: 1,
			Type:       &machine.VerifyMismatchError{},
		},
		{
			Name:       "Suppressed verify mismatch",
			Source:     "SUPRESS-ERRORS 1\nSET-BUS 0\nSET-ID 80\nVB-8 16 255\nRB-8 16\n",
			Status:     machine.STATUS_COMPLETED,
			Executed:   5,
			Errors:     1,
			Mismatches: 1,
			Output:     []string{"line 4: error (suppressed): ", "line 5: RB-8: 0x10 = 0x00"},
		},
		{
			Name:     "Verify zero",
			Source:   "SET-BUS 0\nSET-ID 80\nVW-16 0x1234 0\n",
			Status:   machine.STATUS_COMPLETED,
			Executed: 3,
		},
		{
			Name:     "Bus out of range",
			Source:   "SET-BUS 64\nSET-ID 80\n",
			Status:   machine.STATUS_HALTED,
			Executed: 1,
			Errors:   1,
			Type:     &bus.BusIndexOutOfRangeError{},
		},
		{
			Name:     "Negative bus",
			Source:   "SET-BUS -1\n",
			Status:   machine.STATUS_HALTED,
			Executed: 1,
			Errors:   1,
			Type:     &bus.BusIndexOutOfRangeError{},
		},
		{
			Name:     "Slave without bus",
			Source:   "SET-ID 80\n",
			Status:   machine.STATUS_HALTED,
			Executed: 1,
			Errors:   1,
			Type:     &bus.BusNotSelectedError{},
		},
		{
			Name:     "Failed bus select clears the active bus",
			Source:   "SUPRESS-ERRORS 1\nSET-BUS 0\nSET-BUS 99\nSET-ID 80\n",
			Status:   machine.STATUS_COMPLETED,
			Executed: 4,
			Errors:   2,
		},
		{
			Name:     "Zero delay",
			Source:   "DELAY 0\n",
			Status:   machine.STATUS_HALTED,
			Executed: 1,
			Errors:   1,
			Type:     &machine.InvalidDelayError{},
		},
		{
			Name:     "Suppression toggled off",
			Source:   "SUPRESS-ERRORS 1\nDELAY -5\nSUPRESS-ERRORS 0\nDELAY -5\nDELAY 1\n",
			Status:   machine.STATUS_HALTED,
			Executed: 4,
			Errors:   2,
			Type:     &machine.InvalidDelayError{},
		},
		{
			Name:     "Blank script",
			Source:   "\n  \n",
			Status:   machine.STATUS_COMPLETED,
			Executed: 0,
		},
	}

	for i := range tests {
		t.Run(tests[i].Name, func(t *testing.T) {
			testRun(t, &sim.Driver{}, &tests[i])
		})
	}
}

func TestScenarioState(t *testing.T) {
	mc := testRun(t, &sim.Driver{}, &testCase{
		Name:     "Write then read",
		Source:   "SET-BUS 0\nSET-ID 80\nWB-8 16 255\nRB-8 16\n",
		Status:   machine.STATUS_COMPLETED,
		Executed: 4,
	})

	if !mc.Registry.Connected(0) {
		t.Fatal("Bus 0 not connected")
	}

	if slave, ok := mc.Registry.Slave(0); !ok || slave != 0x50 {
		t.Fatalf("Slave mismatch\nwant:0x50\nhave:%#02x (%v)", slave, ok)
	}

	if !mc.State.BusValid || mc.State.Bus != 0 {
		t.Fatalf("Active bus mismatch\nhave:%+v", mc.State)
	}
}

func TestReadIdempotent(t *testing.T) {
	mc, _ := newMachine(t, &sim.Driver{}, "SET-BUS 0\nSET-ID 80\nRB-8 0x10\nRB-8 0x10\n")

	var values []uint16

	for mc.Status == machine.STATUS_RUNNING {
		if err := mc.Step(); err != nil {
			t.Fatal(err)
		}

		if mc.State.Program > 2 {
			values = append(values, mc.State.LastRead)
		}
	}

	if len(values) != 2 || values[0] != values[1] {
		t.Fatalf("Reads differ\nhave:%v", values)
	}
}

func TestTransfers(t *testing.T) {
	driver := mock.NewDriver()

	source := `SET-BUS 1
SET-ID 0x50
WB-8 0x10 0xAB
WB-16 0x1234 0xCD
WW-8 0x20 0xBEEF
WW-16 0x2021 0xCAFE
RB-8 0x10
RW-16 0x2021
VB-16 0x1234 0xCD
VW-8 0x20 0xBEEF
`

	mc := testRun(t, driver, &testCase{
		Name:     "Transfers",
		Source:   source,
		Status:   machine.STATUS_COMPLETED,
		Executed: 10,
	})

	want := []mock.Transfer{
		{Slave: 0x50, Reg: []byte{0x10}, Data: []byte{0xAB}, Read: false},
		{Slave: 0x50, Reg: []byte{0x12, 0x34}, Data: []byte{0xCD}, Read: false},
		{Slave: 0x50, Reg: []byte{0x20}, Data: []byte{0xBE, 0xEF}, Read: false},
		{Slave: 0x50, Reg: []byte{0x20, 0x21}, Data: []byte{0xCA, 0xFE}, Read: false},
		{Slave: 0x50, Reg: []byte{0x10}, Data: []byte{0xAB}, Read: true},
		{Slave: 0x50, Reg: []byte{0x20, 0x21}, Data: []byte{0xCA, 0xFE}, Read: true},
		{Slave: 0x50, Reg: []byte{0x12, 0x34}, Data: []byte{0xCD}, Read: true},
		{Slave: 0x50, Reg: []byte{0x20}, Data: []byte{0xBE, 0xEF}, Read: true},
	}

	if have := driver.Conns[1].Transfers; !reflect.DeepEqual(have, want) {
		t.Fatalf("Transfer mismatch\nwant:%v\nhave:%v", want, have)
	}

	if mc.State.LastRead != 0xBEEF {
		t.Fatalf("Last read mismatch\nwant:0xbeef\nhave:%#04x", mc.State.LastRead)
	}
}

func TestTransportFailures(t *testing.T) {
	tests := []struct {
		Name   string
		Source string
		Setup  func(*mock.Conn)
		Type   error
	}{
		{
			"Write",
			"SET-BUS 0\nSET-ID 1\nWB-8 0 0\n",
			func(conn *mock.Conn) { conn.WriteErr = mock.ErrInjected },
			&machine.TransportWriteError{},
		},
		{
			"Read",
			"SET-BUS 0\nSET-ID 1\nRB-8 0\n",
			func(conn *mock.Conn) { conn.ReadErr = mock.ErrInjected },
			&machine.TransportReadError{},
		},
		{
			"Verify read",
			"SET-BUS 0\nSET-ID 1\nVB-8 0 0\n",
			func(conn *mock.Conn) { conn.ReadErr = mock.ErrInjected },
			&machine.TransportReadError{},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			driver := mock.NewDriver()
			driver.Conns[0] = &mock.Conn{Bus: 0}
			test.Setup(driver.Conns[0])

			mc, _ := newMachine(t, driver, test.Source)
			result := mc.Run()

			if reflect.TypeOf(result.Err) != reflect.TypeOf(test.Type) {
				t.Fatalf(
					"%s produced error of incorrect type\nwant:%T\nhave:%T",
					test.Name,
					test.Type,
					result.Err,
				)
			}

			if !errors.Is(result.Err, mock.ErrInjected) {
				t.Fatalf("%s error does not wrap its cause", test.Name)
			}
		})
	}
}

func TestSlaveInvalidated(t *testing.T) {
	driver := mock.NewDriver()
	driver.Conns[0] = &mock.Conn{Bus: 0}

	mc, _ := newMachine(
		t, driver, "SUPRESS-ERRORS 1\nSET-BUS 0\nSET-ID 1\nSET-ID 2\nRB-8 0\n",
	)

	for i := 0; i < 3; i++ {
		mc.Step()
	}

	driver.Conns[0].SlaveErr = mock.ErrInjected

	if err := mc.Step(); reflect.TypeOf(err) != reflect.TypeOf(&bus.SlaveSetError{}) {
		t.Fatalf("want:*bus.SlaveSetError\nhave:%T", err)
	}

	if err := mc.Step(); reflect.TypeOf(err) != reflect.TypeOf(&machine.PreconditionError{}) {
		t.Fatalf("want:*machine.PreconditionError\nhave:%T", err)
	}

	if result := mc.Result(); result.Status != machine.STATUS_COMPLETED {
		t.Fatalf("Status mismatch\nwant:completed\nhave:%s", result.Status)
	}
}

func TestDelay(t *testing.T) {
	mc, _ := newMachine(t, &sim.Driver{}, "DELAY 5\nDELAY 250\n")

	var slept []time.Duration

	mc.Sleep = func(d time.Duration) {
		slept = append(slept, d)
	}

	mc.Run()

	want := []time.Duration{5 * time.Millisecond, 250 * time.Millisecond}

	if !reflect.DeepEqual(slept, want) {
		t.Fatalf("Delay mismatch\nwant:%v\nhave:%v", want, slept)
	}
}

func TestLogging(t *testing.T) {
	mc, out := newMachine(
		t,
		&sim.Driver{},
		"SET-BUS 0\nSET-ID 80\nLOG-TERM 0\nRB-8 16\nLOG-TERM 1\n\nRB-8 17\n",
	)

	mc.Run()

	log := out.String()

	if !strings.Contains(log, "line 1: bus 0 selected") {
		t.Errorf("Missing bus message\nhave:\n%s", log)
	}

	if strings.Contains(log, "line 4:") {
		t.Errorf("Message logged while terminal logging was off\nhave:\n%s", log)
	}

	if !strings.Contains(log, "line 7: RB-8: 0x11 = 0x00") {
		t.Errorf("Missing read message\nhave:\n%s", log)
	}
}

func TestFileLogging(t *testing.T) {
	doc, err := script.Compile(strings.NewReader(
		"SET-BUS 0\nLOG-FILE 1\nSET-ID 80\nLOG-FILE 1\nLOG-FILE 0\nRB-8 1\n" +
			"SUPRESS-ERRORS 1\nLOG-FILE 1\nDELAY 0\n",
	))

	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer

	path := filepath.Join(t.TempDir(), "run.log")
	sinks := runlog.New(&out, path, false)
	registry := bus.NewRegistry(&sim.Driver{})

	defer registry.Close()
	defer sinks.Close()

	mc := machine.NewMachine(doc, registry, sinks)

	if result := mc.Run(); result.Status != machine.STATUS_COMPLETED {
		t.Fatalf("want:%s\nhave:%s (%v)", machine.STATUS_COMPLETED, result.Status, result.Err)
	}

	data, err := os.ReadFile(path)

	if err != nil {
		t.Fatal(err)
	}

	file := string(data)

	tests := []struct {
		Message string
		File    bool
	}{
		{"line 1: bus 0 selected", false},
		{"line 3: slave 0x50 selected", true},
		{"line 6: RB-8: 0x01 = 0x00", false},
		{"line 9: error (suppressed): ", true},
	}

	for _, test := range tests {
		if have := strings.Contains(file, test.Message); have != test.File {
			t.Errorf(
				"%q file logging mismatch\nwant:%t\nhave:%t\nfile:\n%s",
				test.Message,
				test.File,
				have,
				file,
			)
		}

		if !strings.Contains(out.String(), test.Message) {
			t.Errorf("%q missing from terminal\nhave:\n%s", test.Message, out.String())
		}
	}

	if count := strings.Count(file, "\n"); count != 2 {
		t.Errorf("File line count mismatch\nwant:2\nhave:%d\nfile:\n%s", count, file)
	}
}

type recorder struct {
	transfers []machine.Transfer
}

func (r *recorder) Record(transfer *machine.Transfer) error {
	r.transfers = append(r.transfers, *transfer)
	return nil
}

func TestRecorder(t *testing.T) {
	var rec recorder

	mc, _ := newMachine(
		t,
		&sim.Driver{},
		"SUPRESS-ERRORS 1\nSET-BUS 2\nSET-ID 80\nWB-8 1 2\nVB-8 1 2\n",
	)

	mc.Recorder = &rec
	mc.Run()

	if len(rec.transfers) != 2 {
		t.Fatalf("Recorded %d transfers, want 2", len(rec.transfers))
	}

	write, verify := rec.transfers[0], rec.transfers[1]

	if !write.OK || write.Line != 4 || write.Bus != 2 || write.Slave != 0x50 || write.Data != 2 {
		t.Errorf("Write record mismatch\nhave:%+v", write)
	}

	if verify.OK || verify.Expected != 2 || verify.Data != 0 || verify.Err == nil {
		t.Errorf("Verify record mismatch\nhave:%+v", verify)
	}

	if verify.Command != script.COMMAND_VERIFY_8_8 {
		t.Errorf("Command mismatch\nwant:VB-8\nhave:%s", verify.Command)
	}
}

type hooks struct {
	steps  []int
	reads  []uint16
	writes []uint16

	// Halts the machine on reaching this line
	stopAt int
}

func (h *hooks) Step(mc *machine.Machine) {
	h.steps = append(h.steps, mc.Line())

	if h.stopAt != 0 && mc.Line() == h.stopAt {
		mc.Status = machine.STATUS_HALTED
	}
}

func (h *hooks) Read(addr uint16, mc *machine.Machine) {
	h.reads = append(h.reads, addr)
}

func (h *hooks) Write(addr uint16, mc *machine.Machine) {
	h.writes = append(h.writes, addr)
}

func TestDebuggerHooks(t *testing.T) {
	var h hooks

	mc, _ := newMachine(
		t, &sim.Driver{}, "SET-BUS 0\nSET-ID 80\n\nWW-16 0x100 1\nRB-8 0x20\n",
	)

	mc.Debugger = &h
	mc.Run()

	if want := []int{1, 2, 4, 5}; !reflect.DeepEqual(h.steps, want) {
		t.Errorf("Step mismatch\nwant:%v\nhave:%v", want, h.steps)
	}

	if want := []uint16{0x20}; !reflect.DeepEqual(h.reads, want) {
		t.Errorf("Read mismatch\nwant:%v\nhave:%v", want, h.reads)
	}

	if want := []uint16{0x100}; !reflect.DeepEqual(h.writes, want) {
		t.Errorf("Write mismatch\nwant:%v\nhave:%v", want, h.writes)
	}
}

func TestDebuggerStop(t *testing.T) {
	h := hooks{stopAt: 3}

	mc, _ := newMachine(t, &sim.Driver{}, "SET-BUS 0\nSET-ID 80\nWB-8 0x10 1\n")

	mc.Debugger = &h
	result := mc.Run()

	if result.Status != machine.STATUS_HALTED || result.Err != nil {
		t.Fatalf("want:halted without error\nhave:%s (%v)", result.Status, result.Err)
	}

	if result.Executed != 2 {
		t.Errorf("Executed mismatch\nwant:2\nhave:%d", result.Executed)
	}

	if len(h.writes) != 0 {
		t.Errorf("Stopped instruction was executed\nhave:%v", h.writes)
	}
}

func TestLogFileError(t *testing.T) {
	doc, err := script.Compile(strings.NewReader("LOG-FILE 1\n"))

	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer

	// A directory cannot be opened as the log file
	sinks := runlog.New(&out, t.TempDir(), false)
	mc := machine.NewMachine(doc, bus.NewRegistry(&sim.Driver{}), sinks)

	result := mc.Run()

	if _, ok := result.Err.(*machine.LogFileError); !ok {
		t.Fatalf("want:*machine.LogFileError\nhave:%T", result.Err)
	}
}
