// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"fmt"
	"math"
	"time"
)

// Vec3 is a three-axis reading.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) String() string {
	return fmt.Sprintf("x: %8.5f, y: %8.5f, z: %8.5f", v.X, v.Y, v.Z)
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Norm returns the euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sample is one accelerometer + gyroscope reading.
//
// Timestamp is wall-clock seconds since the Unix epoch. Accel may be in g or
// m/s² as long as the unit is consistent; only ratios matter for tilt. Gyro is
// in rad/s.
type Sample struct {
	Timestamp float64 `json:"timestamp"`
	Accel     Vec3    `json:"accel"`
	Gyro      Vec3    `json:"gyro"`
}

// Seconds converts t to fractional Unix seconds.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
