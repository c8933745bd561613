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

// Package i2cdev drives buses exposed by the Linux i2c-dev interface
// (/dev/i2c-N character devices).
package i2cdev

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/lassandro/i2crip/pkg/transport"
)

const DEFAULT_DEVICE = "/dev/i2c-%d"

// From <linux/i2c-dev.h> and <linux/i2c.h>
const (
	I2C_SLAVE       = 0x0703
	I2C_FUNCS       = 0x0705
	I2C_SLAVE_FORCE = 0x0706
	I2C_RDWR        = 0x0707

	I2C_FUNC_I2C = 0x00000001

	I2C_M_RD = 0x0001
)

var log = commonlog.GetLogger("i2crip.transport.i2cdev")

type Driver struct {
	// Path template, formatted with the bus index
	Device string

	// Claim slave addresses already bound to a kernel driver
	Force bool
}

func (d *Driver) path(bus int) string {
	device := d.Device

	if device == "" {
		device = DEFAULT_DEVICE
	}

	return fmt.Sprintf(device, bus)
}

func (d *Driver) Open(bus int) (transport.Conn, error) {
	path := d.path(bus)

	log.Infof("opening %s", path)

	conn, err := open(path, d.Force)

	if err != nil {
		return nil, &DeviceError{path, "open", err}
	}

	return conn, nil
}

type DeviceError struct {
	Path string
	Op   string
	Err  error
}

func (err *DeviceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", err.Path, err.Op, err.Err)
}

func (err *DeviceError) Unwrap() error {
	return err.Err
}

type CapabilityError struct {
	Path  string
	Funcs uint64
}

func (err *CapabilityError) Error() string {
	return fmt.Sprintf(
		"%s: adapter lacks plain I2C transfers (funcs %#08x)", err.Path, err.Funcs,
	)
}
