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

import (
	"fmt"

	"github.com/lassandro/i2crip/pkg/encoding"
)

type LiteralType uint
type OpType uint
type CommandKind uint

type commandSpec struct {
	Kind     CommandKind
	Name     string
	Op       OpType
	Args     int
	AddrBits LiteralType
	DataBits LiteralType
}

type Cursor struct {
	Line     int
	Column   int
	Byte     int64
	Size     int64
	LineByte int64
}

type Token struct {
	Position Cursor
	Value    string
}

// Payload holds the decoded arguments of an instruction. Control commands
// only use Value, register commands only use Addr and Data.
type Payload struct {
	Value int32
	Addr  uint16
	Data  uint16
}

type Instruction struct {
	Command CommandKind
	Args    Payload
}

// Document is a compiled script. Lines[i] is the 1-based source line of
// Instructions[i].
type Document struct {
	Source       string
	Instructions []Instruction
	Lines        []int
}

func (kind CommandKind) String() string {
	if spec, exists := commandsByKind[kind]; exists {
		return spec.Name
	}

	return "<invalid>"
}

func (kind CommandKind) Op() OpType {
	return commandsByKind[kind].Op
}

// Number of numeric arguments the command takes
func (kind CommandKind) Args() int {
	return commandsByKind[kind].Args
}

// Register address width in bytes, zero for control commands
func (kind CommandKind) AddrWidth() int {
	return encoding.WidthOf(uint(commandsByKind[kind].AddrBits))
}

// Register data width in bytes, zero for control commands
func (kind CommandKind) DataWidth() int {
	return encoding.WidthOf(uint(commandsByKind[kind].DataBits))
}

func (op OpType) String() string {
	switch op {
	case OP_CONTROL:
		return "control"
	case OP_WRITE:
		return "write"
	case OP_READ:
		return "read"
	case OP_VERIFY:
		return "verify"
	}

	return "<invalid>"
}

// Canonical text form, decodes back to the same instruction
func (inst Instruction) String() string {
	switch inst.Command.Op() {
	case OP_CONTROL:
		return fmt.Sprintf("%s %d", inst.Command, inst.Args.Value)
	case OP_READ:
		return fmt.Sprintf(
			"%s %s", inst.Command, encoding.EncodeHex(inst.Args.Addr),
		)
	}

	return fmt.Sprintf(
		"%s %s %s",
		inst.Command,
		encoding.EncodeHex(inst.Args.Addr),
		encoding.EncodeHex(inst.Args.Data),
	)
}

func (doc *Document) Len() int {
	return len(doc.Instructions)
}

// Source line of the i'th instruction, zero when lines are not tracked
func (doc *Document) Line(i int) int {
	if i < 0 || i >= len(doc.Lines) {
		return 0
	}

	return doc.Lines[i]
}

type TokenError interface {
	GetPosition() Cursor
}

type UnknownCommandError struct {
	Position Cursor
	Received string
}

func (err *UnknownCommandError) GetPosition() Cursor {
	return err.Position
}

func (err *UnknownCommandError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Unknown command '%s'",
		err.Position.Line,
		err.Position.Column,
		err.Received,
	)
}

type InvalidNumArgumentsError struct {
	Position Cursor
	Required int
	Received int
}

func (err *InvalidNumArgumentsError) GetPosition() Cursor {
	return err.Position
}

func (err *InvalidNumArgumentsError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Invalid number of arguments\n\twant:%d\n\thave:%v",
		err.Position.Line,
		err.Position.Column,
		err.Required,
		err.Received,
	)
}

type InvalidLiteralError struct {
	Position Cursor
	Received string
}

func (err *InvalidLiteralError) GetPosition() Cursor {
	return err.Position
}

func (err *InvalidLiteralError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Invalid numeric literal '%s'",
		err.Position.Line,
		err.Position.Column,
		err.Received,
	)
}

type OversizedLiteralError struct {
	Position Cursor
	Required int64
	Received int64
}

func (err *OversizedLiteralError) GetPosition() Cursor {
	return err.Position
}

func (err *OversizedLiteralError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Literal exceeds allowed size\n\twant:<=%#x\n\thave:%#x",
		err.Position.Line,
		err.Position.Column,
		err.Required,
		err.Received,
	)
}

type OversizedArgumentError struct {
	Position Cursor
	Received int
}

func (err *OversizedArgumentError) GetPosition() Cursor {
	return err.Position
}

func (err *OversizedArgumentError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Argument exceeds allowed length\n\twant:%d\n\thave:%d",
		err.Position.Line,
		err.Position.Column,
		MAX_TOKEN_SIZE,
		err.Received,
	)
}

type OversizedLineError struct {
	Position Cursor
}

func (err *OversizedLineError) GetPosition() Cursor {
	return err.Position
}

func (err *OversizedLineError) Error() string {
	return fmt.Sprintf(
		"%02d:%02d: Line exceeds %d characters",
		err.Position.Line,
		err.Position.Column,
		MAX_LINE_SIZE,
	)
}

type EmptyScriptError struct{}

func (err *EmptyScriptError) Error() string {
	return "Script is empty"
}

type OversizedScriptError struct{}

func (err *OversizedScriptError) Error() string {
	return fmt.Sprintf("Script exceeds %d lines", MAX_LINES)
}

type InvalidImageError struct {
	Reason string
}

func (err *InvalidImageError) Error() string {
	return fmt.Sprintf("Invalid script image: %s", err.Reason)
}
