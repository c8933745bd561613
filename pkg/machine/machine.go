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
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/tliron/commonlog"

	"github.com/lassandro/i2crip/pkg/bus"
	"github.com/lassandro/i2crip/pkg/encoding"
	"github.com/lassandro/i2crip/pkg/runlog"
	"github.com/lassandro/i2crip/pkg/script"
	"github.com/lassandro/i2crip/pkg/transport"
)

var log = commonlog.GetLogger("i2crip.machine")

func (status Status) String() string {
	switch status {
	case STATUS_RUNNING:
		return "running"
	case STATUS_HALTED:
		return "halted"
	case STATUS_COMPLETED:
		return "completed"
	}

	return "<invalid>"
}

func (ms *MachineState) Reset() {
	ms.Bus = 0
	ms.BusValid = false
	ms.SuppressErrors = false
	ms.LogToFile = false
	ms.LogToTerm = true
	ms.Program = 0
	ms.LastRead = 0
}

func NewMachine(doc *script.Document, registry *bus.Registry, sinks *runlog.Sinks) *Machine {
	mc := &Machine{Document: doc, Registry: registry, Log: sinks}
	mc.Reset()

	return mc
}

// Reset rewinds the machine to the first instruction. Open bus connections
// are kept.
func (mc *Machine) Reset() {
	mc.State.Reset()
	mc.Status = STATUS_RUNNING
	mc.result = Result{}
}

func (mc *Machine) Result() Result {
	result := mc.result
	result.Status = mc.Status

	return result
}

func (result Result) OK() bool {
	return result.Status == STATUS_COMPLETED && result.Err == nil
}

// Source line of the next instruction
func (mc *Machine) Line() int {
	return mc.Document.Line(mc.State.Program)
}

func (mc *Machine) logf(line int, format string, args ...interface{}) {
	if mc.Log == nil {
		return
	}

	mc.Log.Print(
		line, mc.State.LogToTerm, mc.State.LogToFile, format, args...,
	)
}

func (mc *Machine) sleep(d time.Duration) {
	if mc.Sleep != nil {
		mc.Sleep(d)
	} else {
		time.Sleep(d)
	}
}

// Run steps the machine until it completes or halts
func (mc *Machine) Run() Result {
	for mc.Status == STATUS_RUNNING {
		mc.Step()
	}

	return mc.Result()
}

// Step executes the next instruction and returns its error, if any. A
// returned error only halts the machine when errors are not suppressed.
func (mc *Machine) Step() error {
	if mc.Status != STATUS_RUNNING {
		return nil
	}

	if mc.State.Program >= mc.Document.Len() {
		mc.Status = STATUS_COMPLETED
		return nil
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)

		// The debugger may have stopped or rewound the machine
		if mc.Status != STATUS_RUNNING {
			return nil
		}
	}

	index := mc.State.Program
	inst := mc.Document.Instructions[index]
	line := mc.Document.Line(index)

	mc.State.Program++
	mc.result.Executed++

	err := mc.execute(inst, line)

	if err != nil {
		mc.fail(err, line)
	}

	if mc.Status == STATUS_RUNNING && mc.State.Program >= mc.Document.Len() {
		mc.Status = STATUS_COMPLETED
	}

	return err
}

func (mc *Machine) fail(err error, line int) {
	mc.result.Errors++

	var mismatch *VerifyMismatchError

	if errors.As(err, &mismatch) {
		mc.result.Mismatches++
	}

	if mc.State.SuppressErrors {
		mc.logf(line, "error (suppressed): %v", err)
		return
	}

	mc.logf(line, "error: %v", err)
	mc.Status = STATUS_HALTED
	mc.result.Err = err
}

func (mc *Machine) execute(inst script.Instruction, line int) error {
	switch inst.Command {
	case script.COMMAND_SET_BUS:
		index := int(inst.Args.Value)

		if _, err := mc.Registry.Ensure(index); err != nil {
			mc.State.BusValid = false
			return err
		}

		mc.State.Bus = index
		mc.State.BusValid = true
		mc.logf(line, "bus %d selected", index)

	case script.COMMAND_SET_ID:
		active := -1

		if mc.State.BusValid {
			active = mc.State.Bus
		}

		addr := uint8(inst.Args.Value)

		if err := mc.Registry.SetSlave(active, addr); err != nil {
			return err
		}

		mc.logf(line, "slave %s selected", encoding.EncodeHex(uint16(addr)))

	case script.COMMAND_DELAY:
		if inst.Args.Value <= 0 {
			return &InvalidDelayError{inst.Args.Value}
		}

		mc.sleep(time.Duration(inst.Args.Value) * time.Millisecond)

	case script.COMMAND_SUPPRESS_ERRORS:
		mc.State.SuppressErrors = inst.Args.Value == 1

	case script.COMMAND_LOG_FILE:
		if inst.Args.Value == 1 && mc.Log != nil {
			if err := mc.Log.OpenFile(); err != nil {
				return &LogFileError{mc.Log.Path(), err}
			}
		}

		mc.State.LogToFile = inst.Args.Value == 1

	case script.COMMAND_LOG_TERM:
		mc.State.LogToTerm = inst.Args.Value == 1

	default:
		return mc.transfer(inst, line)
	}

	return nil
}

// Connection and slave address for a register instruction
func (mc *Machine) target() (transport.Conn, uint8, error) {
	if !mc.State.BusValid {
		return nil, 0, &PreconditionError{"no bus selected"}
	}

	if !mc.Registry.Connected(mc.State.Bus) {
		return nil, 0, &PreconditionError{
			fmt.Sprintf("bus %d is not connected", mc.State.Bus),
		}
	}

	slave, ok := mc.Registry.Slave(mc.State.Bus)

	if !ok {
		return nil, 0, &PreconditionError{
			fmt.Sprintf("no slave address set on bus %d", mc.State.Bus),
		}
	}

	return mc.Registry.Conn(mc.State.Bus), slave, nil
}

func (mc *Machine) transfer(inst script.Instruction, line int) error {
	conn, slave, err := mc.target()

	if err != nil {
		return err
	}

	kind := inst.Command
	addr := inst.Args.Addr
	reg := encoding.EncodeBytes(addr, kind.AddrWidth())

	record := &Transfer{
		Line:    line,
		Bus:     mc.State.Bus,
		Slave:   slave,
		Command: kind,
		Reg:     addr,
		At:      time.Now(),
	}

	switch kind.Op() {
	case script.OP_WRITE:
		record.Data = inst.Args.Data
		data := encoding.EncodeBytes(inst.Args.Data, kind.DataWidth())

		if err := conn.WriteRegister(slave, reg, data); err != nil {
			err = &TransportWriteError{mc.State.Bus, slave, addr, err}
			mc.record(record, err)

			return err
		}

		mc.logf(
			line,
			"%s: wrote %s to %s",
			kind,
			encoding.EncodeHex(inst.Args.Data),
			encoding.EncodeHex(addr),
		)

		mc.record(record, nil)

		if mc.Debugger != nil {
			mc.Debugger.Write(addr, mc)
		}

	case script.OP_READ, script.OP_VERIFY:
		width := kind.DataWidth()
		buf, err := conn.ReadRegister(slave, reg, width)

		if err == nil && len(buf) != width {
			err = &transport.ShortReadError{Required: width, Received: len(buf)}
		}

		if err != nil {
			err = &TransportReadError{mc.State.Bus, slave, addr, err}
			mc.record(record, err)

			return err
		}

		value, _ := encoding.DecodeBytes(buf)
		record.Data = value
		mc.State.LastRead = value

		if kind.Op() == script.OP_VERIFY {
			record.Expected = inst.Args.Data
			expected := encoding.EncodeBytes(inst.Args.Data, width)

			if !bytes.Equal(buf, expected) {
				err := &VerifyMismatchError{
					mc.State.Bus, slave, addr, inst.Args.Data, value,
				}

				mc.record(record, err)

				return err
			}

			mc.logf(
				line,
				"%s: %s == %s",
				kind,
				encoding.EncodeHex(addr),
				encoding.EncodeHex(value),
			)
		} else {
			mc.logf(
				line,
				"%s: %s = %s",
				kind,
				encoding.EncodeHex(addr),
				encoding.EncodeHex(value),
			)
		}

		mc.record(record, nil)

		if mc.Debugger != nil {
			mc.Debugger.Read(addr, mc)
		}
	}

	return nil
}

func (mc *Machine) record(transfer *Transfer, err error) {
	if mc.Recorder == nil {
		return
	}

	transfer.OK = err == nil
	transfer.Err = err

	if err := mc.Recorder.Record(transfer); err != nil {
		log.Warningf("failed to record transfer: %v", err)
	}
}
