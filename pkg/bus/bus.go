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

// Package bus tracks the connection and latched slave address of every
// logical bus used by a run.
package bus

import (
	"errors"

	"github.com/tliron/commonlog"

	"github.com/lassandro/i2crip/pkg/transport"
)

const MAX_BUSES = 64

var log = commonlog.GetLogger("i2crip.bus")

type Connection struct {
	Conn       transport.Conn
	Connected  bool
	Slave      uint8
	SlaveValid bool
}

// Registry owns the connections of a run. Slots open lazily on first use
// and stay open until Close.
type Registry struct {
	driver transport.Driver
	slots  [MAX_BUSES]Connection
	closed bool
}

func NewRegistry(driver transport.Driver) *Registry {
	if driver == nil {
		panic("bus: nil driver")
	}

	return &Registry{driver: driver}
}

func inRange(bus int) bool {
	return bus >= 0 && bus < MAX_BUSES
}

// Ensure opens and capability checks a bus the first time it is referenced
func (reg *Registry) Ensure(bus int) (transport.Conn, error) {
	if !inRange(bus) {
		return nil, &BusIndexOutOfRangeError{bus}
	}

	if reg.closed {
		return nil, &RegistryClosedError{}
	}

	slot := &reg.slots[bus]

	if slot.Connected {
		return slot.Conn, nil
	}

	conn, err := reg.driver.Open(bus)

	if err != nil {
		return nil, &TransportOpenError{bus, err}
	}

	if err := conn.CheckCapabilities(); err != nil {
		if err := conn.Close(); err != nil {
			log.Warningf("bus %d: close after failed capability check: %v", bus, err)
		}

		return nil, &CapabilityCheckError{bus, err}
	}

	log.Infof("bus %d connected", bus)

	slot.Conn = conn
	slot.Connected = true

	return conn, nil
}

// SetSlave latches addr on the active bus. A bus index of -1 means no bus
// has been selected.
func (reg *Registry) SetSlave(active int, addr uint8) error {
	if !inRange(active) {
		return &BusNotSelectedError{}
	}

	slot := &reg.slots[active]

	if !slot.Connected {
		return &BusNotConnectedError{active}
	}

	if err := slot.Conn.SetSlaveAddress(addr); err != nil {
		slot.SlaveValid = false
		return &SlaveSetError{active, addr, err}
	}

	slot.Slave = addr
	slot.SlaveValid = true

	return nil
}

// Slave returns the address latched on a bus, ok is false when none is
func (reg *Registry) Slave(bus int) (addr uint8, ok bool) {
	if !inRange(bus) {
		return 0, false
	}

	slot := &reg.slots[bus]

	return slot.Slave, slot.SlaveValid
}

func (reg *Registry) Connected(bus int) bool {
	return inRange(bus) && reg.slots[bus].Connected
}

func (reg *Registry) Conn(bus int) transport.Conn {
	if !reg.Connected(bus) {
		return nil
	}

	return reg.slots[bus].Conn
}

// Close releases every open connection. Later calls do nothing and the
// registry opens no further buses.
func (reg *Registry) Close() error {
	if reg.closed {
		return nil
	}

	reg.closed = true

	var errs []error

	for i := range reg.slots {
		slot := &reg.slots[i]

		if !slot.Connected {
			continue
		}

		if err := slot.Conn.Close(); err != nil {
			errs = append(errs, &TransportCloseError{i, err})
		}

		*slot = Connection{}

		log.Infof("bus %d closed", i)
	}

	return errors.Join(errs...)
}
