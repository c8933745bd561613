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

//go:build linux

package i2cdev

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// struct i2c_msg
type message struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   *byte
}

// struct i2c_rdwr_ioctl_data
type transfer struct {
	msgs  *message
	nmsgs uint32
}

type Conn struct {
	fd    int
	path  string
	force bool
}

func open(path string, force bool) (*Conn, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)

	if err != nil {
		return nil, err
	}

	return &Conn{fd: fd, path: path, force: force}, nil
}

func (c *Conn) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL, uintptr(c.fd), req, uintptr(arg),
	)

	if errno != 0 {
		return errno
	}

	return nil
}

func (c *Conn) CheckCapabilities() error {
	// unsigned long
	var funcs uint

	if err := c.ioctl(I2C_FUNCS, unsafe.Pointer(&funcs)); err != nil {
		return &DeviceError{c.path, "I2C_FUNCS", err}
	}

	log.Debugf("%s: funcs %#08x", c.path, funcs)

	if funcs&I2C_FUNC_I2C == 0 {
		return &CapabilityError{c.path, uint64(funcs)}
	}

	return nil
}

func (c *Conn) SetSlaveAddress(addr uint8) error {
	var req uint = I2C_SLAVE

	if c.force {
		req = I2C_SLAVE_FORCE
	}

	if err := unix.IoctlSetInt(c.fd, req, int(addr)); err != nil {
		return &DeviceError{c.path, "I2C_SLAVE", err}
	}

	return nil
}

func (c *Conn) rdwr(msgs []message) error {
	data := transfer{msgs: &msgs[0], nmsgs: uint32(len(msgs))}
	err := c.ioctl(I2C_RDWR, unsafe.Pointer(&data))

	runtime.KeepAlive(msgs)

	return err
}

func (c *Conn) WriteRegister(slave uint8, reg []byte, data []byte) error {
	buf := make([]byte, 0, len(reg)+len(data))
	buf = append(buf, reg...)
	buf = append(buf, data...)

	msgs := []message{
		{addr: uint16(slave), len: uint16(len(buf)), buf: &buf[0]},
	}

	if err := c.rdwr(msgs); err != nil {
		return &DeviceError{c.path, "I2C_RDWR write", err}
	}

	runtime.KeepAlive(buf)

	return nil
}

func (c *Conn) ReadRegister(slave uint8, reg []byte, n int) ([]byte, error) {
	result := make([]byte, n)

	msgs := []message{
		{addr: uint16(slave), len: uint16(len(reg)), buf: &reg[0]},
		{addr: uint16(slave), flags: I2C_M_RD, len: uint16(n), buf: &result[0]},
	}

	if err := c.rdwr(msgs); err != nil {
		return nil, &DeviceError{c.path, "I2C_RDWR read", err}
	}

	runtime.KeepAlive(reg)

	return result, nil
}

func (c *Conn) Close() error {
	log.Infof("closing %s", c.path)
	return unix.Close(c.fd)
}
