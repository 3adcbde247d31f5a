// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/inertial_recorder/internal/imu"
)

const gravity = 9.80665

// MockSource generates a smoothly rocking device: roll and pitch follow slow
// sinusoids and the device turns at a constant yaw rate. Accel is in m/s².
type MockSource struct {
	now func() time.Time

	mu      sync.Mutex
	start   time.Time
	running bool
}

// NewMockSource creates a mock source driven by the wall clock.
func NewMockSource() *MockSource {
	return &MockSource{now: time.Now}
}

func (m *MockSource) Available() bool { return true }

func (m *MockSource) Start(rateHz float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		m.start = m.now()
		m.running = true
	}
	return nil
}

func (m *MockSource) Stop() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

// Latest synthesises the reading for the current instant.
func (m *MockSource) Latest() (imu.Sample, bool) {
	m.mu.Lock()
	running, start := m.running, m.start
	m.mu.Unlock()
	if !running {
		return imu.Sample{}, false
	}

	now := m.now()
	t := now.Sub(start).Seconds()

	roll := 20 * math.Pi / 180 * math.Sin(t)
	pitch := 15 * math.Pi / 180 * math.Cos(t*0.7)
	rollRate := 20 * math.Pi / 180 * math.Cos(t)
	pitchRate := -15 * math.Pi / 180 * 0.7 * math.Sin(t*0.7)
	yawRate := 30 * math.Pi / 180

	// gravity seen by a body rotated by roll then pitch, consistent with
	// roll = atan2(ay, az) and pitch = atan2(-ax, sqrt(ay²+az²))
	return imu.Sample{
		Timestamp: imu.Seconds(now),
		Accel: imu.Vec3{
			X: -gravity * math.Sin(pitch),
			Y: gravity * math.Cos(pitch) * math.Sin(roll),
			Z: gravity * math.Cos(pitch) * math.Cos(roll),
		},
		Gyro: imu.Vec3{X: rollRate, Y: pitchRate, Z: yawRate},
	}, true
}
