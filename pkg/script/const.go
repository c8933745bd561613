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

package script

const (
	MAX_LINE_SIZE  = 100
	MAX_TOKEN_SIZE = 20
	MAX_LINES      = 100000
)

const COMMENT_PREFIX = "//"

const (
	LITERAL_FLAG LiteralType = 1
	LITERAL_BYTE LiteralType = 8
	LITERAL_WORD LiteralType = 16
	LITERAL_INT  LiteralType = 32
)

const (
	OP_CONTROL OpType = iota
	OP_WRITE
	OP_READ
	OP_VERIFY
)

const (
	COMMAND_INVALID CommandKind = iota

	// Control
	COMMAND_SET_BUS
	COMMAND_SET_ID
	COMMAND_DELAY
	COMMAND_SUPPRESS_ERRORS
	COMMAND_LOG_FILE
	COMMAND_LOG_TERM

	// Write, <addr bits>_<data bits>
	COMMAND_WRITE_8_8
	COMMAND_WRITE_16_8
	COMMAND_WRITE_8_16
	COMMAND_WRITE_16_16

	// Read
	COMMAND_READ_8_8
	COMMAND_READ_16_8
	COMMAND_READ_8_16
	COMMAND_READ_16_16

	// Verify
	COMMAND_VERIFY_8_8
	COMMAND_VERIFY_16_8
	COMMAND_VERIFY_8_16
	COMMAND_VERIFY_16_16
)

// Script mnemonics. The misspelling of SUPRESS-ERRORS is part of the script
// format and existing scripts depend on it.
var commands = map[string]commandSpec{
	"SET-BUS":        {COMMAND_SET_BUS, "SET-BUS", OP_CONTROL, 1, LITERAL_INT, 0},
	"SET-ID":         {COMMAND_SET_ID, "SET-ID", OP_CONTROL, 1, LITERAL_BYTE, 0},
	"DELAY":          {COMMAND_DELAY, "DELAY", OP_CONTROL, 1, LITERAL_INT, 0},
	"SUPRESS-ERRORS": {COMMAND_SUPPRESS_ERRORS, "SUPRESS-ERRORS", OP_CONTROL, 1, LITERAL_FLAG, 0},
	"LOG-FILE":       {COMMAND_LOG_FILE, "LOG-FILE", OP_CONTROL, 1, LITERAL_FLAG, 0},
	"LOG-TERM":       {COMMAND_LOG_TERM, "LOG-TERM", OP_CONTROL, 1, LITERAL_FLAG, 0},

	"WB-8":  {COMMAND_WRITE_8_8, "WB-8", OP_WRITE, 2, LITERAL_BYTE, LITERAL_BYTE},
	"WB-16": {COMMAND_WRITE_16_8, "WB-16", OP_WRITE, 2, LITERAL_WORD, LITERAL_BYTE},
	"WW-8":  {COMMAND_WRITE_8_16, "WW-8", OP_WRITE, 2, LITERAL_BYTE, LITERAL_WORD},
	"WW-16": {COMMAND_WRITE_16_16, "WW-16", OP_WRITE, 2, LITERAL_WORD, LITERAL_WORD},

	"RB-8":  {COMMAND_READ_8_8, "RB-8", OP_READ, 1, LITERAL_BYTE, LITERAL_BYTE},
	"RB-16": {COMMAND_READ_16_8, "RB-16", OP_READ, 1, LITERAL_WORD, LITERAL_BYTE},
	"RW-8":  {COMMAND_READ_8_16, "RW-8", OP_READ, 1, LITERAL_BYTE, LITERAL_WORD},
	"RW-16": {COMMAND_READ_16_16, "RW-16", OP_READ, 1, LITERAL_WORD, LITERAL_WORD},

	"VB-8":  {COMMAND_VERIFY_8_8, "VB-8", OP_VERIFY, 2, LITERAL_BYTE, LITERAL_BYTE},
	"VB-16": {COMMAND_VERIFY_16_8, "VB-16", OP_VERIFY, 2, LITERAL_WORD, LITERAL_BYTE},
	"VW-8":  {COMMAND_VERIFY_8_16, "VW-8", OP_VERIFY, 2, LITERAL_BYTE, LITERAL_WORD},
	"VW-16": {COMMAND_VERIFY_16_16, "VW-16", OP_VERIFY, 2, LITERAL_WORD, LITERAL_WORD},
}

var commandsByKind = func() map[CommandKind]commandSpec {
	result := make(map[CommandKind]commandSpec, len(commands))

	for _, spec := range commands {
		result[spec.Kind] = spec
	}

	return result
}()
