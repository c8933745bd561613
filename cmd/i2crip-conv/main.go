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

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/lassandro/i2crip/pkg/convert"
)

var helpvar bool
var formatvar string
var busvar int
var slavevar uint
var outvar string
var dirvar string

const usage = "i2crip-conv [-format pairs|csv|ovd] [-bus #] [-slave #] " +
	"[-out outfile] [-dir outdir] [filename]"

const (
	FORMAT_PAIRS = "pairs"
	FORMAT_CSV   = "csv"
	FORMAT_OVD   = "ovd"
)

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.StringVar(&formatvar, "format", FORMAT_PAIRS, "Input format, one of pairs, csv or ovd")
	flag.IntVar(&busvar, "bus", convert.DEFAULT_PAIRS_BUS, "Bus used by pairs and ovd input")
	flag.UintVar(&slavevar, "slave", convert.DEFAULT_PAIRS_SLAVE, "Slave address used by pairs input")
	flag.StringVar(&outvar, "out", "", "Output file, stdout when empty")
	flag.StringVar(&dirvar, "dir", ".", "Directory receiving one script per ovd section")
	flag.Parse()
}

func writeScript(s *convert.Script, filename string) error {
	if filename == "" {
		_, err := s.WriteTo(os.Stdout)
		return err
	}

	file, err := os.Create(filename)

	if err != nil {
		return err
	}

	if _, err := s.WriteTo(file); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

func convertInput(input io.Reader) error {
	switch formatvar {
	case FORMAT_PAIRS:
		if slavevar > 0x7F {
			return fmt.Errorf("slave address %#x is out of range", slavevar)
		}

		s, err := convert.Pairs(input, busvar, uint8(slavevar))

		if err != nil {
			return err
		}

		return writeScript(s, outvar)

	case FORMAT_CSV:
		s, err := convert.CSV(input)

		if err != nil {
			return err
		}

		return writeScript(s, outvar)

	case FORMAT_OVD:
		scripts, err := convert.OVD(input, busvar)

		if err != nil {
			return err
		}

		if err := os.MkdirAll(dirvar, 0755); err != nil {
			return err
		}

		for _, s := range scripts {
			filename := filepath.Join(dirvar, s.Name+convert.OVD_OUTPUT_EXT)

			if err := writeScript(s, filename); err != nil {
				return err
			}

			fmt.Printf("%s: %d lines\n", filename, len(s.Lines))
		}

		return nil
	}

	return fmt.Errorf("'%s' is not a valid format", formatvar)
}

func i2cripConv() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()
	input := io.Reader(os.Stdin)

	switch len(args) {
	case 0:
	case 1:
		file, err := os.Open(args[0])

		if err != nil {
			log.Println(err)
			return 1
		}

		defer file.Close()
		input = file
	default:
		log.Println(usage)
		return 1
	}

	if err := convertInput(input); err != nil {
		log.Println(err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(i2cripConv())
}
