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

package convert_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/lassandro/i2crip/pkg/convert"
	"github.com/lassandro/i2crip/pkg/script"
)

func testCompiles(t *testing.T, s *convert.Script) {
	if _, err := script.Compile(strings.NewReader(s.String())); err != nil {
		t.Fatalf("Converted script does not compile: %v\n%s", err, s)
	}
}

func TestPairs(t *testing.T) {
	input := "0x3000 0x01\n\n  0x3001   0x02  \nskipped line here\n"

	s, err := convert.Pairs(strings.NewReader(input), 16, 0x10)

	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"SET-BUS 16",
		"SET-ID 0x10",
		"WB-16 0x3000 0x01",
		"WB-16 0x3001 0x02",
	}

	if !reflect.DeepEqual(s.Lines, want) {
		t.Fatalf("Pairs mismatch\nwant:%q\nhave:%q", want, s.Lines)
	}

	testCompiles(t, s)

	_, err = convert.Pairs(strings.NewReader("0x3000 0x100\n"), 16, 0x10)

	if _, ok := err.(*convert.ConvertError); !ok {
		t.Fatalf("want:*convert.ConvertError\nhave:%T (%v)", err, err)
	}
}

func TestCSV(t *testing.T) {
	input := `/* sensor init
   generated table */
{0, 0xA0, 0x30, 0x00, 0x01}, // reset
{0, 0xA0, 0x30, 0x01, 0x02},
{10, 0},
/* bank */ {1, 0x6C, 0x01, 0x0A, 0xFF},
`

	s, err := convert.CSV(strings.NewReader(strings.NewReplacer("{", "", "}", "").Replace(input)))

	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"SET-BUS 0",
		"SET-ID 0x50",
		"WB-16 0x3000 0x01",
		"WB-16 0x3001 0x02",
		"DELAY 1",
		"SET-BUS 1",
		"SET-ID 0x36",
		"WB-16 0x010A 0xFF",
	}

	if !reflect.DeepEqual(s.Lines, want) {
		t.Fatalf("CSV mismatch\nwant:%q\nhave:%q", want, s.Lines)
	}

	testCompiles(t, s)
}

func TestOVD(t *testing.T) {
	input := `;; header comment
function init() {
	if (x) {
		78 3000 01
	}
}
78 3000 01
@@ Preview 1080p
6c 3000 01
6c 3001 1234
; Delay 10ms
; Delay soon
6c 3002 123456
90 3003 01
60 3004 zz
36 3005 02
@@Capture
36 0100 01 02
36 0101 FF
`

	scripts, err := convert.OVD(strings.NewReader(input), 2)

	if err != nil {
		t.Fatal(err)
	}

	if len(scripts) != 2 {
		t.Fatalf("Section count mismatch\nwant:2\nhave:%d", len(scripts))
	}

	want := []*convert.Script{
		{
			Name: "Preview 1080p_0",
			Lines: []string{
				"SET-BUS 2",
				"SET-ID 0x6c",
				"WB-16 0x3000 0x01",
				"WW-16 0x3001 0x1234",
				"DELAY 10",
				"//6c 3002 123456",
				"//90 3003 01",
				"SET-ID 0x36",
				"WB-16 0x3005 0x02",
			},
		},
		{
			Name: "Capture_1",
			Lines: []string{
				"SET-BUS 2",
				"SET-ID 0x36",
				"WB-16 0x0101 0xFF",
			},
		},
	}

	if !reflect.DeepEqual(scripts, want) {
		for i := range scripts {
			t.Logf("have %q: %q", scripts[i].Name, scripts[i].Lines)
		}

		t.Fatal("OVD mismatch")
	}

	for _, s := range scripts {
		testCompiles(t, s)
	}
}
