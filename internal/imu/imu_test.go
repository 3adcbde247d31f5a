package imu

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScaledDefaultRanges(t *testing.T) {
	r := IMURaw{Ax: 0, Ay: -16384, Az: 16384, Gx: 131, Gy: 0, Gz: -262}
	s := r.Scaled(42.5, 0, 0)

	assert.Equal(t, 42.5, s.Timestamp)
	assert.Equal(t, Vec3{X: 0, Y: -1, Z: 1}, s.Accel)
	assert.InDelta(t, math.Pi/180, s.Gyro.X, 1e-12)
	assert.InDelta(t, 0, s.Gyro.Y, 1e-12)
	assert.InDelta(t, -2*math.Pi/180, s.Gyro.Z, 1e-12)
}

func TestScaledRanges(t *testing.T) {
	r := IMURaw{Az: 2048, Gz: 164}
	s := r.Scaled(0, 3, 3)
	assert.InDelta(t, 1.0, s.Accel.Z, 1e-12)
	assert.InDelta(t, 10*math.Pi/180, s.Gyro.Z, 1e-12)

	// out of range settings use the ±2g / ±250°/s scale
	s = IMURaw{Az: 16384}.Scaled(0, 9, 9)
	assert.InDelta(t, 1.0, s.Accel.Z, 1e-12)
}

func TestVec3(t *testing.T) {
	v := Vec3{X: 3, Y: 4, Z: 12}
	assert.Equal(t, 13.0, v.Norm())
	assert.Equal(t, Vec3{X: 2, Y: 3, Z: 11}, v.Sub(Vec3{X: 1, Y: 1, Z: 1}))
	assert.Equal(t, "x:  3.00000, y:  4.00000, z: 12.00000", v.String())
}

func TestSeconds(t *testing.T) {
	ts := time.Unix(1713571200, 500_000_000)
	assert.Equal(t, 1713571200.5, Seconds(ts))
}
