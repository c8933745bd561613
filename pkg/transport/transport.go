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

// Package transport defines the boundary between the interpreter and the
// hardware performing the byte exchange with a bus.
package transport

import (
	"fmt"
)

// Driver opens connections to logical buses
type Driver interface {
	Open(bus int) (Conn, error)
}

// Conn is an open bus. Register addresses and data are passed MSB-first,
// already encoded to their 1 or 2 byte widths.
type Conn interface {
	CheckCapabilities() error
	SetSlaveAddress(addr uint8) error
	WriteRegister(slave uint8, reg []byte, data []byte) error
	ReadRegister(slave uint8, reg []byte, n int) ([]byte, error)
	Close() error
}

// DriverFunc adapts an ordinary function to the Driver interface
type DriverFunc func(bus int) (Conn, error)

func (fn DriverFunc) Open(bus int) (Conn, error) {
	return fn(bus)
}

type ShortReadError struct {
	Required int
	Received int
}

func (err *ShortReadError) Error() string {
	return fmt.Sprintf(
		"Short read\n\twant:%d bytes\n\thave:%d bytes",
		err.Required,
		err.Received,
	)
}

type ClosedError struct {
	Bus int
}

func (err *ClosedError) Error() string {
	return fmt.Sprintf("Bus %d is closed", err.Bus)
}
