// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package recording keeps an append-only CSV log of every processed sample
// and writes it to disk on demand.
package recording

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/relabs-tech/inertial_recorder/internal/imu"
)

// Column layout of the export file.
var (
	BaseColumns = []string{
		"timestamp",
		"accel_x", "accel_y", "accel_z",
		"gyro_x", "gyro_y", "gyro_z",
	}
	TiltColumns = []string{"accel_roll", "accel_pitch"}
)

const (
	timestampPrecision = 4
	valuePrecision     = 5
)

// Header returns the header line (without newline).
func Header(withTilt bool) string {
	cols := BaseColumns
	if withTilt {
		cols = append(append([]string{}, BaseColumns...), TiltColumns...)
	}
	return strings.Join(cols, ",")
}

// Log is an in-memory CSV document that only grows. The header is written at
// construction; Save writes the whole document out. Safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	rows     int
	withTilt bool
	id       string
}

// New returns a log with its header already written. withTilt adds the
// accel_roll and accel_pitch columns.
func New(withTilt bool) *Log {
	l := &Log{withTilt: withTilt, id: uuid.New().String()}
	l.buf.WriteString(Header(withTilt))
	l.buf.WriteByte('\n')
	return l
}

// SessionID identifies this log; a new session means a new Log.
func (l *Log) SessionID() string {
	return l.id
}

// WithTilt reports whether rows carry the derived tilt columns.
func (l *Log) WithTilt() bool {
	return l.withTilt
}

// Record appends one row. accelRoll and accelPitch are ignored unless the log
// was created with tilt columns.
func (l *Log) Record(s imu.Sample, accelRoll, accelPitch float64) {
	b := make([]byte, 0, 128)
	b = strconv.AppendFloat(b, s.Timestamp, 'f', timestampPrecision, 64)
	for _, v := range [...]float64{s.Accel.X, s.Accel.Y, s.Accel.Z, s.Gyro.X, s.Gyro.Y, s.Gyro.Z} {
		b = append(b, ',')
		b = strconv.AppendFloat(b, v, 'f', valuePrecision, 64)
	}
	if l.withTilt {
		b = append(b, ',')
		b = strconv.AppendFloat(b, accelRoll, 'f', valuePrecision, 64)
		b = append(b, ',')
		b = strconv.AppendFloat(b, accelPitch, 'f', valuePrecision, 64)
	}
	b = append(b, '\n')

	l.mu.Lock()
	l.buf.Write(b)
	l.rows++
	l.mu.Unlock()
}

// Rows returns the number of data rows recorded, excluding the header.
func (l *Log) Rows() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows
}

// Bytes returns a copy of the full document including the header.
func (l *Log) Bytes() []byte {
	data, _ := l.snapshot()
	return data
}

func (l *Log) snapshot() ([]byte, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]byte, l.buf.Len())
	copy(out, l.buf.Bytes())
	return out, l.rows
}

// Save writes the log to path, replacing any existing file. The data goes to
// a temporary file in the same directory which is then renamed over path, so
// readers see either the old file or the complete new one.
//
// It returns the number of data rows written. On failure the in-memory log is
// unchanged and recording can continue.
func (l *Log) Save(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, rows := l.snapshot()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("recording: create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return 0, fmt.Errorf("recording: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, fmt.Errorf("recording: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("recording: close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("recording: chmod %s: %w", tmpName, err)
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpName)
		return 0, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("recording: rename to %s: %w", path, err)
	}
	return rows, nil
}
