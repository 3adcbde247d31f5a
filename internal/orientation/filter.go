// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"fmt"
	"math"

	"github.com/relabs-tech/inertial_recorder/internal/imu"
)

// ErrInvalidAlpha is returned when the blend weight is outside [0, 1].
var ErrInvalidAlpha = errors.New("alpha must be in [0, 1]")

// State is the filter's carried state. All angles are radians.
//
// GyroRoll/GyroPitch/GyroYaw are the pure gyro integrals since the last reset.
// They do not feed the blend directly but are kept for inspection.
type State struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`

	GyroRoll  float64 `json:"gyro_roll"`
	GyroPitch float64 `json:"gyro_pitch"`
	GyroYaw   float64 `json:"gyro_yaw"`
}

// Estimate is one filter output. Roll, Pitch and Yaw are degrees;
// AccelRoll and AccelPitch are the instantaneous accelerometer tilt in radians.
type Estimate struct {
	Index     uint64  `json:"index"`
	Timestamp float64 `json:"timestamp"`

	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`

	AccelRoll  float64 `json:"accel_roll"`
	AccelPitch float64 `json:"accel_pitch"`
}

// Pose drops the bookkeeping fields.
func (e Estimate) Pose() Pose {
	return Pose{Roll: e.Roll, Pitch: e.Pitch, Yaw: e.Yaw}
}

// ComplementaryFilter fuses accelerometer tilt with gyro integration.
//
// alpha weights the gyro-propagated angle against the accelerometer tilt:
// 1 trusts the gyro only, 0 takes the accelerometer tilt as-is. Yaw has no
// accelerometer reference and is always the raw gyro integral, so it drifts
// and is not wrapped.
//
// A filter is not safe for concurrent use; one goroutine owns it per session.
type ComplementaryFilter struct {
	alpha float64
	state State
	next  uint64
}

// New returns a filter with zero state.
func New(alpha float64) (*ComplementaryFilter, error) {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("orientation: %w (got %v)", ErrInvalidAlpha, alpha)
	}
	return &ComplementaryFilter{alpha: alpha}, nil
}

// Alpha returns the blend weight.
func (f *ComplementaryFilter) Alpha() float64 {
	return f.alpha
}

// Init seeds roll and pitch from an accelerometer reading and zeroes
// everything else, including the sample index.
func (f *ComplementaryFilter) Init(s imu.Sample) {
	roll, pitch := ComputeTilt(s.Accel.X, s.Accel.Y, s.Accel.Z)
	f.state = State{Roll: roll, Pitch: pitch}
	f.next = 0
}

// Reset zeroes the state and the sample index.
func (f *ComplementaryFilter) Reset() {
	f.state = State{}
	f.next = 0
}

// State returns a copy of the current state.
func (f *ComplementaryFilter) State() State {
	return f.state
}

// Update advances the filter by one sample taken dt seconds after the previous one.
func (f *ComplementaryFilter) Update(s imu.Sample, dt float64) Estimate {
	gx := s.Gyro.X * dt
	gy := s.Gyro.Y * dt
	gz := s.Gyro.Z * dt

	st := f.state
	st.GyroRoll += gx
	st.GyroPitch += gy
	st.GyroYaw += gz

	ax, ay, az := s.Accel.X, s.Accel.Y, s.Accel.Z
	accelRoll := math.Atan2(ay, az)
	// Pitch sign is flipped relative to ComputeTilt so that nose-up reads positive
	// in the device frame used by the recordings.
	accelPitch := -math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	st.Roll = f.alpha*(st.Roll+gx) + (1-f.alpha)*accelRoll
	st.Pitch = f.alpha*(st.Pitch+gy) + (1-f.alpha)*accelPitch
	st.Yaw += gz

	f.state = st
	idx := f.next
	f.next++

	return Estimate{
		Index:      idx,
		Timestamp:  s.Timestamp,
		Roll:       st.Roll * radToDeg,
		Pitch:      st.Pitch * radToDeg,
		Yaw:        st.Yaw * radToDeg,
		AccelRoll:  accelRoll,
		AccelPitch: accelPitch,
	}
}
