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

// Package sim provides a transport that accepts every request without
// touching any hardware. Reads return zero-filled buffers.
package sim

import (
	"github.com/tliron/commonlog"

	"github.com/lassandro/i2crip/pkg/transport"
)

var log = commonlog.GetLogger("i2crip.transport.sim")

type Driver struct{}

type Conn struct {
	bus   int
	slave uint8
}

func (d *Driver) Open(bus int) (transport.Conn, error) {
	log.Debugf("open bus %d", bus)
	return &Conn{bus: bus}, nil
}

func (c *Conn) CheckCapabilities() error {
	return nil
}

func (c *Conn) SetSlaveAddress(addr uint8) error {
	c.slave = addr
	return nil
}

func (c *Conn) WriteRegister(slave uint8, reg []byte, data []byte) error {
	log.Debugf("bus %d slave %#02x write % x: % x", c.bus, slave, reg, data)
	return nil
}

func (c *Conn) ReadRegister(slave uint8, reg []byte, n int) ([]byte, error) {
	log.Debugf("bus %d slave %#02x read % x: %d bytes", c.bus, slave, reg, n)
	return make([]byte, n), nil
}

func (c *Conn) Close() error {
	return nil
}
