// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/inertial_recorder/internal/imu"
)

// GyroBias is a static gyro offset estimate.
type GyroBias struct {
	Bias    imu.Vec3 `json:"bias"`   // rad/s, mean of the still samples
	StdDev  imu.Vec3 `json:"stddev"` // rad/s
	Samples int      `json:"samples"`
}

// EstimateGyroBias collects n readings from a running, motionless source at
// the given interval and returns the mean gyro rate per axis. Ticks with no
// data are skipped and do not count towards n.
func EstimateGyroBias(ctx context.Context, src Source, n int, interval time.Duration) (GyroBias, error) {
	if n < 2 {
		return GyroBias{}, fmt.Errorf("gyro bias: need at least 2 samples, got %d", n)
	}
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	zs := make([]float64, 0, n)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for len(xs) < n {
		select {
		case <-ctx.Done():
			return GyroBias{}, fmt.Errorf("gyro bias: collected %d of %d samples: %w", len(xs), n, ctx.Err())
		case <-ticker.C:
		}
		s, ok := src.Latest()
		if !ok {
			continue
		}
		xs = append(xs, s.Gyro.X)
		ys = append(ys, s.Gyro.Y)
		zs = append(zs, s.Gyro.Z)
	}
	return gyroBiasFrom(xs, ys, zs), nil
}

func gyroBiasFrom(xs, ys, zs []float64) GyroBias {
	mx, sx := stat.MeanStdDev(xs, nil)
	my, sy := stat.MeanStdDev(ys, nil)
	mz, sz := stat.MeanStdDev(zs, nil)
	return GyroBias{
		Bias:    imu.Vec3{X: mx, Y: my, Z: mz},
		StdDev:  imu.Vec3{X: sx, Y: sy, Z: sz},
		Samples: len(xs),
	}
}

// BiasCorrected subtracts a fixed gyro bias from every reading of Source.
type BiasCorrected struct {
	Source
	Bias imu.Vec3
}

func (b BiasCorrected) Latest() (imu.Sample, bool) {
	s, ok := b.Source.Latest()
	if !ok {
		return s, false
	}
	s.Gyro = s.Gyro.Sub(b.Bias)
	return s, true
}
