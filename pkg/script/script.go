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
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/lassandro/i2crip/pkg/encoding"
)

// LineReader splits a script into lines of at most MAX_LINE_SIZE bytes,
// with "\n" and "\r\n" terminators removed.
type LineReader struct {
	reader *bufio.Reader
	cursor Cursor
	done   bool
}

func NewLineReader(input io.Reader) *LineReader {
	return &LineReader{
		// Room for a full line plus its "\r\n" terminator
		reader: bufio.NewReaderSize(input, MAX_LINE_SIZE+2),
	}
}

// Current position, Line is the number of the line last returned
func (lr *LineReader) Position() Cursor {
	return lr.cursor
}

// Next returns the next line and whether it is the last one in the input.
// io.EOF is returned once every line has been read.
func (lr *LineReader) Next() (text string, last bool, err error) {
	if lr.done {
		return "", true, io.EOF
	}

	lr.cursor.LineByte = lr.cursor.Byte

	buf, err := lr.reader.ReadSlice('\n')

	if err == bufio.ErrBufferFull {
		lr.done = true
		lr.cursor.Line++

		return "", false, &OversizedLineError{
			Cursor{
				Line:     lr.cursor.Line,
				Column:   MAX_LINE_SIZE + 1,
				Byte:     lr.cursor.LineByte + MAX_LINE_SIZE,
				Size:     int64(len(buf) - MAX_LINE_SIZE),
				LineByte: lr.cursor.LineByte,
			},
		}
	} else if err == io.EOF {
		if len(buf) == 0 {
			lr.done = true
			return "", true, io.EOF
		}

		last = true
	} else if err != nil {
		lr.done = true
		return "", false, err
	}

	lr.cursor.Line++
	lr.cursor.Byte += int64(len(buf))

	text = strings.TrimSuffix(string(buf), "\n")
	text = strings.TrimSuffix(text, "\r")
	lr.cursor.Size = int64(len(text))

	if len(text) > MAX_LINE_SIZE {
		lr.done = true

		return "", false, &OversizedLineError{
			Cursor{
				Line:     lr.cursor.Line,
				Column:   MAX_LINE_SIZE + 1,
				Byte:     lr.cursor.LineByte + MAX_LINE_SIZE,
				Size:     int64(len(text) - MAX_LINE_SIZE),
				LineByte: lr.cursor.LineByte,
			},
		}
	}

	if !last {
		if _, err := lr.reader.Peek(1); err == io.EOF {
			last = true
		}
	}

	lr.done = last

	return text, last, nil
}

func isDelimiter(char byte) bool {
	return char == ' ' || char == '\t'
}

// Splits a line into tokens on spaces and tabs, dropping everything from a
// token starting with "//" onwards.
func tokenize(line string, cursor Cursor) []Token {
	var tokens = make([]Token, 0, 3)

	for column := 0; column < len(line); {
		if isDelimiter(line[column]) {
			column++
			continue
		}

		start := column

		for column < len(line) && !isDelimiter(line[column]) {
			column++
		}

		value := line[start:column]

		if strings.HasPrefix(value, COMMENT_PREFIX) {
			break
		}

		tokens = append(tokens, Token{
			Position: Cursor{
				Line:     cursor.Line,
				Column:   start + 1,
				Byte:     cursor.LineByte + int64(start),
				Size:     int64(len(value)),
				LineByte: cursor.LineByte,
			},
			Value: value,
		})
	}

	return tokens
}

func parseCommand(token *Token) (commandSpec, error) {
	if len(token.Value) > MAX_TOKEN_SIZE {
		return commandSpec{}, &OversizedArgumentError{
			token.Position, len(token.Value),
		}
	}

	spec, exists := commands[token.Value]

	if !exists {
		return commandSpec{}, &UnknownCommandError{
			token.Position, token.Value,
		}
	}

	return spec, nil
}

func parseLiteral(token *Token) (int64, error) {
	if len(token.Value) > MAX_TOKEN_SIZE {
		return 0, &OversizedArgumentError{token.Position, len(token.Value)}
	}

	result, err := encoding.DecodeLiteral(token.Value)

	if err != nil {
		return 0, &InvalidLiteralError{token.Position, token.Value}
	}

	return result, nil
}

func checkLiteral(position Cursor, value int64, bits LiteralType) error {
	var min, max int64

	if bits == LITERAL_INT {
		min, max = -(1 << 31), (1<<31)-1
	} else {
		min, max = 0, (int64(1)<<bits)-1
	}

	if value < min || value > max {
		return &OversizedLiteralError{position, max, value}
	}

	return nil
}

// Decodes one line of the given source position. ok is false for blank and
// comment-only lines.
func decodeLine(line string, cursor Cursor) (inst Instruction, ok bool, errs []error) {
	tokens := tokenize(line, cursor)

	if len(tokens) == 0 {
		return Instruction{}, false, nil
	}

	spec, err := parseCommand(&tokens[0])

	if err != nil {
		return Instruction{}, false, []error{err}
	}

	operands := tokens[1:]
	values := make([]int64, 0, len(operands))

	for i := range operands {
		value, err := parseLiteral(&operands[i])

		if err != nil {
			errs = append(errs, err)
			continue
		}

		values = append(values, value)
	}

	if len(errs) > 0 {
		return Instruction{}, false, errs
	}

	if count := len(values); count != spec.Args {
		return Instruction{}, false, []error{
			&InvalidNumArgumentsError{tokens[0].Position, spec.Args, count},
		}
	}

	inst.Command = spec.Kind

	switch spec.Op {
	case OP_CONTROL:
		if err := checkLiteral(operands[0].Position, values[0], spec.AddrBits); err != nil {
			return Instruction{}, false, []error{err}
		}

		inst.Args.Value = int32(values[0])

	default:
		if err := checkLiteral(operands[0].Position, values[0], spec.AddrBits); err != nil {
			errs = append(errs, err)
		}

		inst.Args.Addr = uint16(values[0])

		if spec.Args > 1 {
			if err := checkLiteral(operands[1].Position, values[1], spec.DataBits); err != nil {
				errs = append(errs, err)
			}

			inst.Args.Data = uint16(values[1])
		}
	}

	if len(errs) > 0 {
		return Instruction{}, false, errs
	}

	return inst, true, nil
}

// DecodeLine decodes a single script line. ok is false, with a nil error,
// for lines holding only whitespace or a comment.
func DecodeLine(line string) (inst Instruction, ok bool, err error) {
	if len(line) > MAX_LINE_SIZE {
		return Instruction{}, false, &OversizedLineError{
			Cursor{
				Line:   1,
				Column: MAX_LINE_SIZE + 1,
				Byte:   MAX_LINE_SIZE,
				Size:   int64(len(line) - MAX_LINE_SIZE),
			},
		}
	}

	inst, ok, errs := decodeLine(line, Cursor{Line: 1, Size: int64(len(line))})

	if len(errs) > 0 {
		return Instruction{}, false, errs[0]
	}

	return inst, ok, nil
}

func compile(input io.Reader, all bool) (*Document, []error) {
	var doc = &Document{}
	var errs []error

	reader := NewLineReader(input)
	lines := 0

	for {
		line, _, err := reader.Next()

		if err == io.EOF {
			break
		} else if err != nil {
			return nil, append(errs, err)
		}

		if lines++; lines > MAX_LINES {
			return nil, append(errs, &OversizedScriptError{})
		}

		inst, ok, lineErrs := decodeLine(line, reader.Position())

		if len(lineErrs) > 0 {
			if !all {
				return nil, lineErrs[:1]
			}

			errs = append(errs, lineErrs...)
			continue
		}

		if ok {
			doc.Instructions = append(doc.Instructions, inst)
			doc.Lines = append(doc.Lines, reader.Position().Line)
		}
	}

	if lines == 0 {
		return nil, append(errs, &EmptyScriptError{})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return doc, nil
}

// Compile reads a whole script and returns the compiled document, or the
// first error found. No document is returned when any line fails.
func Compile(input io.Reader) (*Document, error) {
	doc, errs := compile(input, false)

	if len(errs) > 0 {
		return nil, errs[0]
	}

	return doc, nil
}

// Check reads a whole script and returns every decode error in it rather
// than stopping at the first.
func Check(input io.Reader) []error {
	_, errs := compile(input, true)
	return errs
}

func CompileFile(filename string) (*Document, error) {
	file, err := os.Open(filename)

	if err != nil {
		return nil, err
	}

	defer file.Close()

	doc, err := Compile(file)

	if err != nil {
		return nil, err
	}

	doc.Source = filename

	return doc, nil
}
