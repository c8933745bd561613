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
	"fmt"

	"github.com/lassandro/i2crip/pkg/encoding"
)

type PreconditionError struct {
	Reason string
}

func (err *PreconditionError) Error() string {
	return fmt.Sprintf("Precondition failed: %s", err.Reason)
}

type TransportWriteError struct {
	Bus   int
	Slave uint8
	Addr  uint16
	Err   error
}

func (err *TransportWriteError) Error() string {
	return fmt.Sprintf(
		"Write to %s failed on bus %d slave %s: %v",
		encoding.EncodeHex(err.Addr),
		err.Bus,
		encoding.EncodeHex(uint16(err.Slave)),
		err.Err,
	)
}

func (err *TransportWriteError) Unwrap() error {
	return err.Err
}

type TransportReadError struct {
	Bus   int
	Slave uint8
	Addr  uint16
	Err   error
}

func (err *TransportReadError) Error() string {
	return fmt.Sprintf(
		"Read of %s failed on bus %d slave %s: %v",
		encoding.EncodeHex(err.Addr),
		err.Bus,
		encoding.EncodeHex(uint16(err.Slave)),
		err.Err,
	)
}

func (err *TransportReadError) Unwrap() error {
	return err.Err
}

type VerifyMismatchError struct {
	Bus      int
	Slave    uint8
	Addr     uint16
	Expected uint16
	Received uint16
}

func (err *VerifyMismatchError) Error() string {
	return fmt.Sprintf(
		"Verify of %s failed on bus %d slave %s\n\twant:%s\n\thave:%s",
		encoding.EncodeHex(err.Addr),
		err.Bus,
		encoding.EncodeHex(uint16(err.Slave)),
		encoding.EncodeHex(err.Expected),
		encoding.EncodeHex(err.Received),
	)
}

type InvalidDelayError struct {
	Received int32
}

func (err *InvalidDelayError) Error() string {
	return fmt.Sprintf("Delay must be positive, have %d", err.Received)
}

type LogFileError struct {
	Path string
	Err  error
}

func (err *LogFileError) Error() string {
	return fmt.Sprintf("Failed to open log file %s: %v", err.Path, err.Err)
}

func (err *LogFileError) Unwrap() error {
	return err.Err
}
