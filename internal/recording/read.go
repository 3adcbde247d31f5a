package recording

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/relabs-tech/inertial_recorder/internal/imu"
)

// ErrBadHeader is returned when a file does not start with a known header.
var ErrBadHeader = errors.New("recording: unrecognised header")

// Row is one parsed data row.
type Row struct {
	Sample     imu.Sample
	AccelRoll  float64
	AccelPitch float64
	HasTilt    bool
}

// ReadFile parses a file written by Log.Save.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recording: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a recording from r.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("recording: read header: %w", err)
	}
	var withTilt bool
	switch len(header) {
	case len(BaseColumns):
	case len(BaseColumns) + len(TiltColumns):
		withTilt = true
	default:
		return nil, fmt.Errorf("%w: %d columns", ErrBadHeader, len(header))
	}
	want := BaseColumns
	if withTilt {
		want = append(append([]string{}, BaseColumns...), TiltColumns...)
	}
	for i, name := range want {
		if header[i] != name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i, header[i], name)
		}
	}
	// all rows must match the header width
	cr.FieldsPerRecord = len(want)

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("recording: line %d: %w", line, err)
		}

		var v [9]float64
		for i, field := range rec {
			v[i], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("recording: line %d column %s: %w", line, want[i], err)
			}
		}
		row := Row{
			Sample: imu.Sample{
				Timestamp: v[0],
				Accel:     imu.Vec3{X: v[1], Y: v[2], Z: v[3]},
				Gyro:      imu.Vec3{X: v[4], Y: v[5], Z: v[6]},
			},
			HasTilt: withTilt,
		}
		if withTilt {
			row.AccelRoll = v[7]
			row.AccelPitch = v[8]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
