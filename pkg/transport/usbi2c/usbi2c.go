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

// Package usbi2c drives buses behind a Devantech style USB-I2C serial
// bridge. Every transfer is a single command frame on the serial line.
package usbi2c

import (
	"fmt"
	"io"
	"time"

	"github.com/tliron/commonlog"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/lassandro/i2crip/pkg/transport"
)

const (
	CMD_I2C_AD1 = 0x55 // 8-bit register address
	CMD_I2C_AD2 = 0x56 // 16-bit register address
	CMD_USBI2C  = 0x5A

	USBI2C_REVISION = 0x01
)

const (
	DEFAULT_BAUD    = 19200
	DEFAULT_TIMEOUT = 500 * time.Millisecond

	// The bridge buffers at most 60 data bytes per frame
	MAX_PAYLOAD = 60
)

var log = commonlog.GetLogger("i2crip.transport.usbi2c")

// Port is the part of serial.Port the bridge protocol needs
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

type Driver struct {
	// Serial port name per bus index
	Ports   map[int]string
	Baud    int
	Timeout time.Duration

	// Replaces serial.Open when set
	OpenPort func(name string, mode *serial.Mode) (Port, error)
}

type Conn struct {
	port  Port
	name  string
	slave uint8
}

func (d *Driver) Open(bus int) (transport.Conn, error) {
	name, exists := d.Ports[bus]

	if !exists {
		return nil, &NoPortError{bus}
	}

	baud := d.Baud

	if baud == 0 {
		baud = DEFAULT_BAUD
	}

	timeout := d.Timeout

	if timeout == 0 {
		timeout = DEFAULT_TIMEOUT
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.TwoStopBits,
	}

	log.Infof("opening %s at %d baud for bus %d", name, baud, bus)

	openPort := d.OpenPort

	if openPort == nil {
		openPort = func(name string, mode *serial.Mode) (Port, error) {
			return serial.Open(name, mode)
		}
	}

	port, err := openPort(name, mode)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("%s: failed to set read timeout: %w", name, err)
	}

	return &Conn{port: port, name: name}, nil
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]*enumerator.PortDetails, error) {
	return enumerator.GetDetailedPortsList()
}

func (c *Conn) send(buf []byte) error {
	sent := 0

	for sent < len(buf) {
		n, err := c.port.Write(buf[sent:])

		if err != nil {
			return err
		}

		sent += n
	}

	return nil
}

// A read timeout surfaces as a zero length read
func (c *Conn) recv(n int) ([]byte, error) {
	rsp := make([]byte, n)

	for o := 0; o < n; {
		count, err := c.port.Read(rsp[o:])

		if err != nil {
			return nil, err
		}

		if count <= 0 {
			return nil, &transport.ShortReadError{Required: n, Received: o}
		}

		o += count
	}

	return rsp, nil
}

func (c *Conn) exchange(frame []byte, n int) ([]byte, error) {
	log.Debugf("%s: send % x", c.name, frame)

	if err := c.port.ResetInputBuffer(); err != nil {
		return nil, err
	}

	if err := c.send(frame); err != nil {
		return nil, err
	}

	rsp, err := c.recv(n)

	if err != nil {
		return nil, err
	}

	log.Debugf("%s: recv % x", c.name, rsp)

	return rsp, nil
}

// Builds an I2C_AD1 or I2C_AD2 frame depending on the register width
func encodeFrame(slave uint8, read bool, reg []byte, count int, data []byte) ([]byte, error) {
	if slave > 0x7F {
		return nil, &AddressError{slave}
	}

	if count < 1 || count > MAX_PAYLOAD {
		return nil, &PayloadError{count}
	}

	addr := slave << 1

	if read {
		addr |= 1
	}

	var frame []byte

	switch len(reg) {
	case 1:
		frame = []byte{CMD_I2C_AD1, addr, reg[0]}
	case 2:
		frame = []byte{CMD_I2C_AD2, addr, reg[0], reg[1]}
	default:
		return nil, fmt.Errorf("unsupported register width %d", len(reg))
	}

	frame = append(frame, byte(count))

	return append(frame, data...), nil
}

// The bridge does not track a selected device, the address goes out with
// every frame instead.
func (c *Conn) SetSlaveAddress(addr uint8) error {
	if addr > 0x7F {
		return &AddressError{addr}
	}

	c.slave = addr

	return nil
}

func (c *Conn) CheckCapabilities() error {
	rsp, err := c.exchange([]byte{CMD_USBI2C, USBI2C_REVISION, 0, 0}, 1)

	if err != nil {
		return fmt.Errorf("%s: no response from bridge: %w", c.name, err)
	}

	log.Infof("%s: bridge firmware revision %d", c.name, rsp[0])

	return nil
}

func (c *Conn) WriteRegister(slave uint8, reg []byte, data []byte) error {
	frame, err := encodeFrame(slave, false, reg, len(data), data)

	if err != nil {
		return err
	}

	rsp, err := c.exchange(frame, 1)

	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}

	if rsp[0] == 0 {
		return &NakError{slave}
	}

	return nil
}

func (c *Conn) ReadRegister(slave uint8, reg []byte, n int) ([]byte, error) {
	frame, err := encodeFrame(slave, true, reg, n, nil)

	if err != nil {
		return nil, err
	}

	rsp, err := c.exchange(frame, n)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}

	return rsp, nil
}

func (c *Conn) Close() error {
	log.Infof("closing %s", c.name)
	return c.port.Close()
}

type NoPortError struct {
	Bus int
}

func (err *NoPortError) Error() string {
	return fmt.Sprintf("No serial port configured for bus %d", err.Bus)
}

type AddressError struct {
	Addr uint8
}

func (err *AddressError) Error() string {
	return fmt.Sprintf("Slave address %#02x exceeds 7 bits", err.Addr)
}

type PayloadError struct {
	Size int
}

func (err *PayloadError) Error() string {
	return fmt.Sprintf(
		"Payload of %d bytes outside 1..%d", err.Size, MAX_PAYLOAD,
	)
}

type NakError struct {
	Slave uint8
}

func (err *NakError) Error() string {
	return fmt.Sprintf("Slave %#02x did not acknowledge the write", err.Slave)
}
