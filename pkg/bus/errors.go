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

package bus

import (
	"fmt"
)

type BusIndexOutOfRangeError struct {
	Bus int
}

func (err *BusIndexOutOfRangeError) Error() string {
	return fmt.Sprintf(
		"Bus index out of range\n\twant:0..%d\n\thave:%d", MAX_BUSES-1, err.Bus,
	)
}

type TransportOpenError struct {
	Bus int
	Err error
}

func (err *TransportOpenError) Error() string {
	return fmt.Sprintf("Failed to open bus %d: %v", err.Bus, err.Err)
}

func (err *TransportOpenError) Unwrap() error {
	return err.Err
}

type CapabilityCheckError struct {
	Bus int
	Err error
}

func (err *CapabilityCheckError) Error() string {
	return fmt.Sprintf("Capability check failed on bus %d: %v", err.Bus, err.Err)
}

func (err *CapabilityCheckError) Unwrap() error {
	return err.Err
}

type BusNotSelectedError struct{}

func (err *BusNotSelectedError) Error() string {
	return "No bus selected"
}

type BusNotConnectedError struct {
	Bus int
}

func (err *BusNotConnectedError) Error() string {
	return fmt.Sprintf("Bus %d is not connected", err.Bus)
}

type SlaveSetError struct {
	Bus  int
	Addr uint8
	Err  error
}

func (err *SlaveSetError) Error() string {
	return fmt.Sprintf(
		"Failed to set slave %#02x on bus %d: %v", err.Addr, err.Bus, err.Err,
	)
}

func (err *SlaveSetError) Unwrap() error {
	return err.Err
}

type TransportCloseError struct {
	Bus int
	Err error
}

func (err *TransportCloseError) Error() string {
	return fmt.Sprintf("Failed to close bus %d: %v", err.Bus, err.Err)
}

func (err *TransportCloseError) Unwrap() error {
	return err.Err
}

type RegistryClosedError struct{}

func (err *RegistryClosedError) Error() string {
	return "Bus registry is closed"
}
