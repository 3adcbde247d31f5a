package orientation

import (
	"math"
)

const radToDeg = 180.0 / math.Pi

// Pose is the canonical representation of orientation for your app, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// ComputeTilt returns roll and pitch in radians from accelerometer data only.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
//
// A zero vector yields (0, 0).
func ComputeTilt(ax, ay, az float64) (roll, pitch float64) {
	roll = math.Atan2(ay, az)
	pitch = math.Atan2(-ax, math.Sqrt(ay*ay+az*az))
	return roll, pitch
}

// ComputePoseFromAccel computes roll and pitch in degrees from accelerometer
// data only. Yaw is 0 since gravity carries no heading information.
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	roll, pitch := ComputeTilt(ax, ay, az)
	return Pose{
		Roll:  roll * radToDeg,
		Pitch: pitch * radToDeg,
		Yaw:   0,
	}
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * radToDeg
}
