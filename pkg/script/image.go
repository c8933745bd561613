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
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

const (
	IMAGE_MAGIC    = "I2CRIP"
	IMAGE_VERSION  = 1
	IMAGE_EXT      = ".i2cb"
	MAX_IMAGE_SIZE = 16 << 20
)

type imageInstruction struct {
	Command string `cbor:"1,keyasint"`
	Value   int32  `cbor:"2,keyasint,omitempty"`
	Addr    uint16 `cbor:"3,keyasint,omitempty"`
	Data    uint16 `cbor:"4,keyasint,omitempty"`
}

type image struct {
	Magic        string             `cbor:"1,keyasint"`
	Version      uint               `cbor:"2,keyasint"`
	Source       string             `cbor:"3,keyasint,omitempty"`
	Instructions []imageInstruction `cbor:"4,keyasint"`
	Lines        []int              `cbor:"5,keyasint,omitempty"`
}

var imageEncMode cbor.EncMode

// Encoded magic field, which canonical key order puts right after the map
// header of every image
var imageHeader []byte

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()

	if err != nil {
		panic(fmt.Sprintf("script: failed to create CBOR enc mode: %v", err))
	}

	imageEncMode = em

	magic, err := em.Marshal(&struct {
		Magic string `cbor:"1,keyasint"`
	}{IMAGE_MAGIC})

	if err != nil {
		panic(fmt.Sprintf("script: failed to encode image header: %v", err))
	}

	imageHeader = magic[1:]
}

// MarshalImage serializes a compiled document
func MarshalImage(doc *Document) ([]byte, error) {
	img := image{
		Magic:        IMAGE_MAGIC,
		Version:      IMAGE_VERSION,
		Source:       doc.Source,
		Instructions: make([]imageInstruction, 0, len(doc.Instructions)),
		Lines:        doc.Lines,
	}

	for _, inst := range doc.Instructions {
		img.Instructions = append(img.Instructions, imageInstruction{
			Command: inst.Command.String(),
			Value:   inst.Args.Value,
			Addr:    inst.Args.Addr,
			Data:    inst.Args.Data,
		})
	}

	return imageEncMode.Marshal(&img)
}

// UnmarshalImage deserializes a compiled document. Every instruction is
// checked against the command table the same way the decoder checks
// source lines.
func UnmarshalImage(data []byte) (*Document, error) {
	var img image

	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, &InvalidImageError{err.Error()}
	}

	if img.Magic != IMAGE_MAGIC {
		return nil, &InvalidImageError{"bad magic"}
	}

	if img.Version != IMAGE_VERSION {
		return nil, &InvalidImageError{
			fmt.Sprintf("unsupported version %d", img.Version),
		}
	}

	if len(img.Instructions) > MAX_LINES {
		return nil, &InvalidImageError{"too many instructions"}
	}

	if len(img.Lines) != 0 && len(img.Lines) != len(img.Instructions) {
		return nil, &InvalidImageError{"line table size mismatch"}
	}

	doc := &Document{
		Source:       img.Source,
		Instructions: make([]Instruction, 0, len(img.Instructions)),
		Lines:        img.Lines,
	}

	for i, entry := range img.Instructions {
		spec, exists := commands[entry.Command]

		if !exists {
			return nil, &InvalidImageError{
				fmt.Sprintf("instruction %d: unknown command '%s'", i, entry.Command),
			}
		}

		var err error

		if spec.Op == OP_CONTROL {
			err = checkLiteral(Cursor{}, int64(entry.Value), spec.AddrBits)
		} else {
			err = checkLiteral(Cursor{}, int64(entry.Addr), spec.AddrBits)

			if err == nil && spec.Args > 1 {
				err = checkLiteral(Cursor{}, int64(entry.Data), spec.DataBits)
			}

			if err == nil && entry.Value != 0 {
				err = fmt.Errorf("unexpected value %d", entry.Value)
			}
		}

		if err == nil && spec.Op != OP_VERIFY && spec.Op != OP_WRITE && entry.Data != 0 {
			err = fmt.Errorf("unexpected data %#x", entry.Data)
		}

		if err == nil && spec.Op == OP_CONTROL && entry.Addr != 0 {
			err = fmt.Errorf("unexpected address %#x", entry.Addr)
		}

		if err != nil {
			return nil, &InvalidImageError{
				fmt.Sprintf("instruction %d: %v", i, err),
			}
		}

		doc.Instructions = append(doc.Instructions, Instruction{
			Command: spec.Kind,
			Args: Payload{
				Value: entry.Value,
				Addr:  entry.Addr,
				Data:  entry.Data,
			},
		})
	}

	return doc, nil
}

// IsImage reports whether data starts like a serialized document. Only the
// first bytes are needed.
func IsImage(data []byte) bool {
	if len(data) < len(imageHeader)+1 {
		return false
	}

	// CBOR major type 5, a map
	if data[0]>>5 != 5 {
		return false
	}

	return bytes.HasPrefix(data[1:], imageHeader)
}

// LoadFile compiles a script, or loads a document previously written with
// MarshalImage. Scripts are compiled as they are read.
func LoadFile(filename string) (*Document, error) {
	file, err := os.Open(filename)

	if err != nil {
		return nil, err
	}

	defer file.Close()

	reader := bufio.NewReader(file)
	header, _ := reader.Peek(len(imageHeader) + 1)

	if IsImage(header) {
		data, err := io.ReadAll(io.LimitReader(reader, MAX_IMAGE_SIZE+1))

		if err != nil {
			return nil, err
		}

		if len(data) > MAX_IMAGE_SIZE {
			return nil, &InvalidImageError{"image too large"}
		}

		return UnmarshalImage(data)
	}

	doc, err := Compile(reader)

	if err != nil {
		return nil, err
	}

	doc.Source = filename

	return doc, nil
}
