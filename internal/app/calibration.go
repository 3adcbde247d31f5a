// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/relabs-tech/inertial_recorder/internal/config"
	"github.com/relabs-tech/inertial_recorder/internal/sensors"
)

// CalibrationResult is what the calibration tool writes out.
type CalibrationResult struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Samples   int       `json:"samples"`

	GyroBiasX float64 `json:"gyro_bias_x"`
	GyroBiasY float64 `json:"gyro_bias_y"`
	GyroBiasZ float64 `json:"gyro_bias_z"`

	GyroStdDevX float64 `json:"gyro_stddev_x"`
	GyroStdDevY float64 `json:"gyro_stddev_y"`
	GyroStdDevZ float64 `json:"gyro_stddev_z"`
}

// RunGyroCalibration estimates the gyro bias of the configured source from
// n still samples and writes the result as JSON to out.
func RunGyroCalibration(ctx context.Context, n int, out io.Writer) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("calibration: config not initialized")
	}
	src, err := sensors.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	if err := src.Start(cfg.SampleRateHz); err != nil {
		return fmt.Errorf("calibration: start source: %w", err)
	}
	defer src.Stop()

	log.Printf("calibration: keep the device still, collecting %d samples at %.1f Hz", n, cfg.SampleRateHz)
	interval := time.Duration(float64(time.Second) / cfg.SampleRateHz)
	bias, err := sensors.EstimateGyroBias(ctx, src, n, interval)
	if err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	return writeCalibration(out, cfg.SensorSource, time.Now(), bias)
}

func writeCalibration(out io.Writer, source string, at time.Time, bias sensors.GyroBias) error {
	res := CalibrationResult{
		Source:      source,
		Timestamp:   at,
		Samples:     bias.Samples,
		GyroBiasX:   bias.Bias.X,
		GyroBiasY:   bias.Bias.Y,
		GyroBiasZ:   bias.Bias.Z,
		GyroStdDevX: bias.StdDev.X,
		GyroStdDevY: bias.StdDev.Y,
		GyroStdDevZ: bias.StdDev.Z,
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
