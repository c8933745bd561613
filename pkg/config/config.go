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

// Package config handles i2crip.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lassandro/i2crip/pkg/runlog"
	"github.com/lassandro/i2crip/pkg/transport"
	"github.com/lassandro/i2crip/pkg/transport/i2cdev"
	"github.com/lassandro/i2crip/pkg/transport/sim"
	"github.com/lassandro/i2crip/pkg/transport/usbi2c"
)

const FILENAME = "i2crip.toml"

const (
	DRIVER_I2CDEV = "i2cdev"
	DRIVER_USBI2C = "usbi2c"
	DRIVER_SIM    = "sim"
)

type Config struct {
	Transport Transport `toml:"transport"`
	USBI2C    USBI2C    `toml:"usbi2c"`
	Log       Log       `toml:"log"`
	Capture   Capture   `toml:"capture"`

	// File the configuration was loaded from, empty for defaults
	Path string `toml:"-"`
}

type Transport struct {
	Driver string `toml:"driver"`
	Device string `toml:"device"`
	Force  bool   `toml:"force"`
}

type USBI2C struct {
	Baud      int               `toml:"baud"`
	TimeoutMS int               `toml:"timeout_ms"`
	Ports     map[string]string `toml:"ports"`
}

type Log struct {
	File string `toml:"file"`
}

type Capture struct {
	Database string `toml:"database"`
}

func Default() *Config {
	return &Config{
		Transport: Transport{
			Driver: DRIVER_I2CDEV,
			Device: i2cdev.DEFAULT_DEVICE,
		},
		USBI2C: USBI2C{
			Baud:      usbi2c.DEFAULT_BAUD,
			TimeoutMS: int(usbi2c.DEFAULT_TIMEOUT / time.Millisecond),
		},
		Log: Log{
			File: runlog.DEFAULT_FILE,
		},
	}
}

// Load parses the file at path over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()

	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Path = path

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

// FindAndLoad walks up from startDir looking for i2crip.toml. The defaults
// are returned when none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)

	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FILENAME)

		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)

		if parent == dir {
			return Default(), nil
		}

		dir = parent
	}
}

func (c *Config) Validate() error {
	switch c.Transport.Driver {
	case DRIVER_I2CDEV, DRIVER_USBI2C, DRIVER_SIM:
	default:
		return &UnknownDriverError{c.Transport.Driver}
	}

	if c.USBI2C.Baud <= 0 {
		return fmt.Errorf("usbi2c.baud must be positive, have %d", c.USBI2C.Baud)
	}

	if c.USBI2C.TimeoutMS <= 0 {
		return fmt.Errorf(
			"usbi2c.timeout_ms must be positive, have %d", c.USBI2C.TimeoutMS,
		)
	}

	_, err := c.SerialPorts()

	return err
}

// SerialPorts returns the usbi2c port table keyed by bus index
func (c *Config) SerialPorts() (map[int]string, error) {
	result := make(map[int]string, len(c.USBI2C.Ports))

	for key, name := range c.USBI2C.Ports {
		bus, err := strconv.Atoi(key)

		if err != nil || bus < 0 {
			return nil, fmt.Errorf("usbi2c.ports: invalid bus index '%s'", key)
		}

		result[bus] = name
	}

	return result, nil
}

// NewDriver builds the transport driver named by name, or by the
// configuration when name is empty
func (c *Config) NewDriver(name string) (transport.Driver, error) {
	if name == "" {
		name = c.Transport.Driver
	}

	switch name {
	case DRIVER_I2CDEV:
		return &i2cdev.Driver{
			Device: c.Transport.Device,
			Force:  c.Transport.Force,
		}, nil

	case DRIVER_USBI2C:
		ports, err := c.SerialPorts()

		if err != nil {
			return nil, err
		}

		return &usbi2c.Driver{
			Ports:   ports,
			Baud:    c.USBI2C.Baud,
			Timeout: time.Duration(c.USBI2C.TimeoutMS) * time.Millisecond,
		}, nil

	case DRIVER_SIM:
		return &sim.Driver{}, nil
	}

	return nil, &UnknownDriverError{name}
}

type UnknownDriverError struct {
	Name string
}

func (err *UnknownDriverError) Error() string {
	return fmt.Sprintf(
		"Unknown driver '%s'\n\twant:%s|%s|%s",
		err.Name,
		DRIVER_I2CDEV,
		DRIVER_USBI2C,
		DRIVER_SIM,
	)
}
