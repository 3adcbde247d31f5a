package imu

import "math"

// IMURaw represents a single raw accel+gyro sample in device counts.
type IMURaw struct {
	Source string `json:"source"`

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// Accel full-scale sensitivity in LSB/g, indexed by range setting (0=±2g .. 3=±16g).
var AccelLSBPerG = [4]float64{16384, 8192, 4096, 2048}

// Gyro full-scale sensitivity in LSB/(°/s), indexed by range setting (0=±250 .. 3=±2000).
var GyroLSBPerDPS = [4]float64{131, 65.5, 32.8, 16.4}

// Scaled converts raw counts into a Sample with accel in g and gyro in rad/s.
// Out of range settings fall back to the most sensitive range.
func (r IMURaw) Scaled(timestamp float64, accelRange, gyroRange byte) Sample {
	if int(accelRange) >= len(AccelLSBPerG) {
		accelRange = 0
	}
	if int(gyroRange) >= len(GyroLSBPerDPS) {
		gyroRange = 0
	}
	a := AccelLSBPerG[accelRange]
	g := GyroLSBPerDPS[gyroRange]
	toRad := math.Pi / 180.0

	return Sample{
		Timestamp: timestamp,
		Accel: Vec3{
			X: float64(r.Ax) / a,
			Y: float64(r.Ay) / a,
			Z: float64(r.Az) / a,
		},
		Gyro: Vec3{
			X: float64(r.Gx) / g * toRad,
			Y: float64(r.Gy) / g * toRad,
			Z: float64(r.Gz) / g * toRad,
		},
	}
}
