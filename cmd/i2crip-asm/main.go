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
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/lassandro/i2crip/pkg/script"
)

var helpvar bool
var checkvar bool
var outvar string

const usage = "i2crip-asm [-check] [-out outfile] filename"

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&checkvar, "check", false,
		"Only reports errors in the script, no image is written",
	)
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
	flag.Parse()
}

// Prints err, underlining the offending token when its position is known
func printError(err error, data []byte) {
	tokenErr, ok := err.(script.TokenError)

	if !ok || data == nil {
		log.Println(err)
		return
	}

	cursor := tokenErr.GetPosition()

	if cursor.LineByte > int64(len(data)) {
		log.Println(err)
		return
	}

	line := data[cursor.LineByte:]

	if end := bytes.IndexByte(line, '\n'); end >= 0 {
		line = line[:end]
	}

	line = bytes.TrimSuffix(line, []byte("\r"))

	size := int(cursor.Size)

	if size < 1 {
		size = 1
	}

	underlinefmt := fmt.Sprintf(
		"%% %ds%s",
		int(cursor.Byte-cursor.LineByte)+1,
		strings.Repeat("~", size-1),
	)

	log.Printf(
		"%s\n%s\n\033[31m%s\033[0m",
		err,
		line,
		fmt.Sprintf(underlinefmt, "^"),
	)
}

func i2crip_asm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	var infile string
	var data []byte
	var err error

	if stat, _ := os.Stdin.Stat(); len(args) == 0 && stat != nil && stat.Mode()&os.ModeCharDevice == 0 {
		log.SetPrefix("\033[1m<stdin>:\033[0m")

		if data, err = io.ReadAll(os.Stdin); err != nil {
			log.Println(err)
			return 1
		}

		if outvar == "" {
			outvar = "out" + script.IMAGE_EXT
		}
	} else {
		if len(args) != 1 {
			log.Println(usage)
			return 1
		}

		infile = args[0]
		filename := filepath.Base(infile)

		if stat, err := os.Stat(infile); err != nil {
			log.Println(err)
			return 1
		} else if stat.IsDir() {
			log.Printf("%s is not a valid script file", filename)
			return 1
		}

		if data, err = os.ReadFile(infile); err != nil {
			log.Println(err)
			return 1
		}

		log.SetPrefix(fmt.Sprintf("\033[1m%s:\033[0m", filename))

		if outvar == "" {
			outvar = strings.TrimSuffix(
				infile, filepath.Ext(infile),
			) + script.IMAGE_EXT
		}
	}

	if errs := script.Check(bytes.NewReader(data)); len(errs) > 0 {
		for _, err := range errs {
			printError(err, data)
		}

		return 1
	}

	if checkvar {
		return 0
	}

	doc, err := script.Compile(bytes.NewReader(data))

	if err != nil {
		log.Println(err)
		return 1
	}

	if infile != "" {
		if doc.Source, err = filepath.Abs(infile); err != nil {
			log.Println(err)
			doc.Source = infile
		}
	}

	image, err := script.MarshalImage(doc)

	if err != nil {
		log.Println("Error encoding script image")
		log.Println(err)
		return 1
	}

	if err := os.WriteFile(outvar, image, 0666); err != nil {
		log.Println("Error writing output file")
		log.Println(err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(i2crip_asm())
}
