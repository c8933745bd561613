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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const warning = "WARNING! This program can confuse your I2C bus, cause data " +
	"loss and worse!"

// Asks before touching real hardware, only 'y' or 'Y' continues
func confirm(w io.Writer, readKey func() (byte, error)) bool {
	fmt.Fprintln(w, warning)
	fmt.Fprint(w, "Continue? [y/N] ")

	key, err := readKey()
	fmt.Fprintln(w)

	if err != nil || (key != 'y' && key != 'Y') {
		fmt.Fprintln(w, "Aborting on user request.")
		return false
	}

	return true
}

func readLineKey() (byte, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	line = strings.TrimSpace(line)

	if len(line) == 0 {
		return 0, err
	}

	return line[0], nil
}
