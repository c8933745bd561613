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

// Package capture journals every register transfer of a run to a SQLite
// database.
package capture

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lassandro/i2crip/pkg/machine"
	"github.com/lassandro/i2crip/pkg/script"
)

const schema = `CREATE TABLE IF NOT EXISTS transfers (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run      TEXT    NOT NULL,
	line     INTEGER NOT NULL,
	bus      INTEGER NOT NULL,
	slave    INTEGER NOT NULL,
	command  TEXT    NOT NULL,
	reg      INTEGER NOT NULL,
	data     INTEGER NOT NULL,
	expected INTEGER,
	ok       INTEGER NOT NULL,
	error    TEXT,
	at       TEXT    NOT NULL
)`

// Row is one journalled transfer
type Row struct {
	ID       int64
	Run      string
	Line     int
	Bus      int
	Slave    uint8
	Command  string
	Reg      uint16
	Data     uint16
	Expected sql.NullInt64
	OK       bool
	Error    sql.NullString
	At       time.Time
}

type Journal struct {
	db  *sql.DB
	run string
}

// Open opens or creates the journal at path. Transfers recorded through the
// returned journal are tagged with run.
func Open(path string, run string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Journal{db: db, run: run}, nil
}

// NewRunID names a run after the time it started
func NewRunID(start time.Time) string {
	return start.UTC().Format("20060102T150405.000Z")
}

func (j *Journal) Run() string {
	return j.run
}

func (j *Journal) Record(transfer *machine.Transfer) error {
	var expected sql.NullInt64
	var message sql.NullString

	if transfer.Command.Op() == script.OP_VERIFY {
		expected = sql.NullInt64{Int64: int64(transfer.Expected), Valid: true}
	}

	if transfer.Err != nil {
		message = sql.NullString{String: transfer.Err.Error(), Valid: true}
	}

	_, err := j.db.Exec(
		`INSERT INTO transfers
			(run, line, bus, slave, command, reg, data, expected, ok, error, at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.run,
		transfer.Line,
		transfer.Bus,
		transfer.Slave,
		transfer.Command.String(),
		transfer.Reg,
		transfer.Data,
		expected,
		transfer.OK,
		message,
		transfer.At.UTC().Format(time.RFC3339Nano),
	)

	if err != nil {
		return fmt.Errorf("recording transfer: %w", err)
	}

	return nil
}

// Transfers returns the rows of the journal's run in recording order
func (j *Journal) Transfers() ([]Row, error) {
	return j.query("WHERE run = ?", j.run)
}

// AllTransfers returns every row in the journal
func (j *Journal) AllTransfers() ([]Row, error) {
	return j.query("")
}

func (j *Journal) query(where string, args ...interface{}) ([]Row, error) {
	rows, err := j.db.Query(
		`SELECT id, run, line, bus, slave, command, reg, data, expected, ok, error, at
			FROM transfers `+where+` ORDER BY id`,
		args...,
	)

	if err != nil {
		return nil, fmt.Errorf("querying transfers: %w", err)
	}

	defer rows.Close()

	var result []Row

	for rows.Next() {
		var row Row
		var at string

		if err := rows.Scan(
			&row.ID,
			&row.Run,
			&row.Line,
			&row.Bus,
			&row.Slave,
			&row.Command,
			&row.Reg,
			&row.Data,
			&row.Expected,
			&row.OK,
			&row.Error,
			&at,
		); err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}

		if row.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parsing transfer time: %w", err)
		}

		result = append(result, row)
	}

	return result, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
