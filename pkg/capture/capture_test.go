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

package capture_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lassandro/i2crip/pkg/capture"
	"github.com/lassandro/i2crip/pkg/machine"
	"github.com/lassandro/i2crip/pkg/script"
)

var _ machine.MachineRecorder = (*capture.Journal)(nil)

func TestJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.db")
	at := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

	journal, err := capture.Open(path, capture.NewRunID(at))

	if err != nil {
		t.Fatal(err)
	}

	transfers := []machine.Transfer{
		{Line: 3, Bus: 0, Slave: 0x50, Command: script.COMMAND_WRITE_16_8, Reg: 0x1234, Data: 0xAB, OK: true, At: at},
		{Line: 4, Bus: 0, Slave: 0x50, Command: script.COMMAND_VERIFY_8_8, Reg: 0x10, Data: 0, Expected: 0xFF, Err: errors.New("mismatch"), At: at},
	}

	for i := range transfers {
		if err := journal.Record(&transfers[i]); err != nil {
			t.Fatal(err)
		}
	}

	if err := journal.Close(); err != nil {
		t.Fatal(err)
	}

	// A second run in the same file only sees its own rows
	other, err := capture.Open(path, "other")

	if err != nil {
		t.Fatal(err)
	}

	defer other.Close()

	if rows, err := other.Transfers(); err != nil || len(rows) != 0 {
		t.Fatalf("Other run rows\nwant:0\nhave:%d (%v)", len(rows), err)
	}

	rows, err := other.AllTransfers()

	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 2 {
		t.Fatalf("Row count mismatch\nwant:2\nhave:%d", len(rows))
	}

	write, verify := rows[0], rows[1]

	if write.Run != "20210601T120000.000Z" {
		t.Errorf("Run mismatch\nwant:20210601T120000.000Z\nhave:%s", write.Run)
	}

	if write.Command != "WB-16" || write.Reg != 0x1234 || write.Data != 0xAB || !write.OK {
		t.Errorf("Write row mismatch\nhave:%+v", write)
	}

	if write.Expected.Valid || write.Error.Valid {
		t.Errorf("Write row carries verify fields\nhave:%+v", write)
	}

	if !write.At.Equal(at) {
		t.Errorf("Time mismatch\nwant:%v\nhave:%v", at, write.At)
	}

	if verify.OK || verify.Expected.Int64 != 0xFF || verify.Error.String != "mismatch" {
		t.Errorf("Verify row mismatch\nhave:%+v", verify)
	}

	if verify.Line != 4 || verify.Slave != 0x50 {
		t.Errorf("Verify position mismatch\nhave:%+v", verify)
	}
}
