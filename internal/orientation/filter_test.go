package orientation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_recorder/internal/imu"
)

const tol = 1e-9

func sample(ax, ay, az, gx, gy, gz float64) imu.Sample {
	return imu.Sample{
		Accel: imu.Vec3{X: ax, Y: ay, Z: az},
		Gyro:  imu.Vec3{X: gx, Y: gy, Z: gz},
	}
}

func TestNewRejectsAlphaOutOfRange(t *testing.T) {
	for _, a := range []float64{-0.1, 1.01, math.NaN()} {
		_, err := New(a)
		assert.ErrorIs(t, err, ErrInvalidAlpha, "alpha=%v", a)
	}
	for _, a := range []float64{0, 0.5, 1} {
		f, err := New(a)
		require.NoError(t, err)
		assert.Equal(t, a, f.Alpha())
	}
}

func TestStaticLevelDevice(t *testing.T) {
	f, err := New(0)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		e := f.Update(sample(0, 0, 9.8, 0, 0, 0), 0.1)
		assert.InDelta(t, 0, e.Roll, tol)
		assert.InDelta(t, 0, e.Pitch, tol)
		assert.InDelta(t, 0, e.Yaw, tol)
		assert.Equal(t, uint64(i), e.Index)
	}
}

func TestYawIntegratesGyroZ(t *testing.T) {
	f, err := New(0)
	require.NoError(t, err)

	var e Estimate
	for i := 0; i < 10; i++ {
		e = f.Update(sample(0, 0, 9.8, 0, 0, 1.0), 0.1)
		assert.InDelta(t, 0, e.Roll, tol)
		assert.InDelta(t, 0, e.Pitch, tol)
	}

	st := f.State()
	assert.InDelta(t, 1.0, st.Yaw, 1e-12)
	assert.InDelta(t, 1.0, st.GyroYaw, 1e-12)
	assert.InDelta(t, 180/math.Pi, e.Yaw, 1e-9)
}

func TestAlphaZeroMatchesAccelTilt(t *testing.T) {
	f, err := New(0)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		ax := rng.Float64()*20 - 10
		ay := rng.Float64()*20 - 10
		az := rng.Float64()*20 - 10
		e := f.Update(sample(ax, ay, az, rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()), 0.02)

		wantRoll := math.Atan2(ay, az)
		wantPitch := -math.Atan2(-ax, math.Sqrt(ay*ay+az*az))
		assert.InDelta(t, wantRoll*180/math.Pi, e.Roll, 1e-9)
		assert.InDelta(t, wantPitch*180/math.Pi, e.Pitch, 1e-9)
		assert.InDelta(t, wantRoll, e.AccelRoll, tol)
		assert.InDelta(t, wantPitch, e.AccelPitch, tol)
	}
}

func TestYawIsRunningSum(t *testing.T) {
	f, err := New(0.3)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(42))

	const dt = 0.1
	sum := 0.0
	for i := 0; i < 1000; i++ {
		gz := rng.NormFloat64() * 2
		f.Update(sample(0.1, 0.2, 9.8, 0, 0, gz), dt)
		sum += gz * dt
		assert.InDelta(t, sum, f.State().Yaw, 1e-9)
	}
}

func TestYawIsNotWrapped(t *testing.T) {
	f, err := New(0)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		f.Update(sample(0, 0, 1, 0, 0, 10), 0.1)
	}
	assert.InDelta(t, 100.0, f.State().Yaw, 1e-9)
}

func TestAlphaOneIsPureGyroIntegration(t *testing.T) {
	f, err := New(1)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		f.Update(sample(3, 4, 5, 0.5, -0.25, 0), 0.1)
	}
	st := f.State()
	assert.InDelta(t, 0.5, st.Roll, 1e-12)
	assert.InDelta(t, -0.25, st.Pitch, 1e-12)
	assert.InDelta(t, st.GyroRoll, st.Roll, 1e-12)
	assert.InDelta(t, st.GyroPitch, st.Pitch, 1e-12)
}

func TestBlendWeightsBothSources(t *testing.T) {
	f, err := New(0.5)
	require.NoError(t, err)

	// Device tilted 90° about x: accel roll is pi/2.
	e := f.Update(sample(0, 1, 0, 1, 0, 0), 0.1)
	want := 0.5*(0+0.1) + 0.5*(math.Pi/2)
	assert.InDelta(t, want, f.State().Roll, 1e-12)
	assert.InDelta(t, want*180/math.Pi, e.Roll, 1e-9)
}

func TestInitSeedsFromAccel(t *testing.T) {
	f, err := New(1)
	require.NoError(t, err)

	f.Init(sample(0, 1, 1, 0, 0, 0))
	st := f.State()
	assert.InDelta(t, math.Pi/4, st.Roll, 1e-12)
	assert.InDelta(t, 0, st.Pitch, 1e-12)
	assert.Zero(t, st.Yaw)
	assert.Zero(t, st.GyroRoll)

	// With alpha=1 the seeded roll carries straight through.
	e := f.Update(sample(0, 0, 1, 0, 0, 0), 0.1)
	assert.InDelta(t, 45, e.Roll, 1e-9)
	assert.Equal(t, uint64(0), e.Index)
}

func TestZeroAccelVectorIsDefined(t *testing.T) {
	f, err := New(0)
	require.NoError(t, err)
	e := f.Update(sample(0, 0, 0, 0, 0, 0), 0.1)
	assert.False(t, math.IsNaN(e.Roll))
	assert.False(t, math.IsNaN(e.Pitch))
	assert.Zero(t, e.Roll)
	assert.Zero(t, e.Pitch)
}

func TestReset(t *testing.T) {
	f, err := New(0)
	require.NoError(t, err)
	f.Update(sample(0, 1, 1, 1, 1, 1), 0.5)
	f.Reset()
	assert.Equal(t, State{}, f.State())
	assert.Equal(t, uint64(0), f.Update(sample(0, 0, 1, 0, 0, 0), 0.1).Index)
}

func TestComputePoseFromAccel(t *testing.T) {
	p := ComputePoseFromAccel(0, 0, 1)
	assert.Equal(t, Pose{}, p)

	p = ComputePoseFromAccel(-1, 0, 0)
	assert.InDelta(t, 90, p.Pitch, 1e-9)
	assert.Zero(t, p.Yaw)
}
