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

// Package mock provides an in-memory transport that remembers register
// writes and can be told to fail, for exercising callers in tests.
package mock

import (
	"errors"

	"github.com/lassandro/i2crip/pkg/transport"
)

var ErrInjected = errors.New("mock: injected failure")

type Driver struct {
	// Per bus failures
	OpenErr map[int]error
	CapErr  map[int]error

	Conns map[int]*Conn
}

type Transfer struct {
	Slave uint8
	Reg   []byte
	Data  []byte
	Read  bool
}

type Conn struct {
	Bus    int
	Slave  uint8
	Closed bool

	CapErr   error
	SlaveErr error
	WriteErr error
	ReadErr  error

	// Register contents keyed by slave, then by encoded register address
	Registers map[uint8]map[string][]byte

	Transfers []Transfer
}

func NewDriver() *Driver {
	return &Driver{
		OpenErr: make(map[int]error),
		CapErr:  make(map[int]error),
		Conns:   make(map[int]*Conn),
	}
}

func (d *Driver) Open(bus int) (transport.Conn, error) {
	if err := d.OpenErr[bus]; err != nil {
		return nil, err
	}

	conn, exists := d.Conns[bus]

	if !exists {
		conn = &Conn{Bus: bus}
		d.Conns[bus] = conn
	}

	conn.Closed = false
	conn.CapErr = d.CapErr[bus]

	return conn, nil
}

// Preset stores a register value as if a write had happened
func (c *Conn) Preset(slave uint8, reg []byte, data []byte) {
	if c.Registers == nil {
		c.Registers = make(map[uint8]map[string][]byte)
	}

	if c.Registers[slave] == nil {
		c.Registers[slave] = make(map[string][]byte)
	}

	c.Registers[slave][string(reg)] = append([]byte(nil), data...)
}

func (c *Conn) CheckCapabilities() error {
	return c.CapErr
}

func (c *Conn) SetSlaveAddress(addr uint8) error {
	if c.SlaveErr != nil {
		return c.SlaveErr
	}

	c.Slave = addr

	return nil
}

func (c *Conn) WriteRegister(slave uint8, reg []byte, data []byte) error {
	if c.WriteErr != nil {
		return c.WriteErr
	}

	c.Preset(slave, reg, data)
	c.Transfers = append(c.Transfers, Transfer{slave, reg, data, false})

	return nil
}

// Unwritten registers read as zero
func (c *Conn) ReadRegister(slave uint8, reg []byte, n int) ([]byte, error) {
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}

	result := make([]byte, n)
	copy(result, c.Registers[slave][string(reg)])

	c.Transfers = append(c.Transfers, Transfer{slave, reg, result, true})

	return result, nil
}

func (c *Conn) Close() error {
	c.Closed = true
	return nil
}
