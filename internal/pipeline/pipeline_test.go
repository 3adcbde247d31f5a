package pipeline

import (
	"context"
	"errors"
	"io"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_recorder/internal/history"
	"github.com/relabs-tech/inertial_recorder/internal/imu"
	"github.com/relabs-tech/inertial_recorder/internal/orientation"
	"github.com/relabs-tech/inertial_recorder/internal/recording"
	"github.com/relabs-tech/inertial_recorder/internal/sensors"
)

// scriptedSource returns queued samples; nil entries simulate missing data.
type scriptedSource struct {
	mu      sync.Mutex
	queue   []*imu.Sample
	started float64
	stopped bool
}

func (s *scriptedSource) Available() bool { return true }
func (s *scriptedSource) Start(rate float64) error {
	s.mu.Lock()
	s.started = rate
	s.mu.Unlock()
	return nil
}
func (s *scriptedSource) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}
func (s *scriptedSource) Latest() (imu.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return imu.Sample{}, false
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	if next == nil {
		return imu.Sample{}, false
	}
	return *next, true
}

func newPipeline(t *testing.T, src sensors.Source, alpha, rate float64) *Pipeline {
	t.Helper()
	f, err := orientation.New(alpha)
	require.NoError(t, err)
	p, err := New(src, f, history.New(1000, history.DefaultInterval), recording.New(true), rate)
	require.NoError(t, err)
	return p
}

func constant(n int, s imu.Sample) []*imu.Sample {
	out := make([]*imu.Sample, n)
	for i := range out {
		c := s
		c.Timestamp = float64(i) * 0.1
		out[i] = &c
	}
	return out
}

func TestNewRejectsBadRate(t *testing.T) {
	f, _ := orientation.New(0)
	_, err := New(&scriptedSource{}, f, history.New(0, 0), recording.New(false), 0)
	assert.Error(t, err)
}

func TestStepYawScenario(t *testing.T) {
	src := &scriptedSource{queue: constant(10, imu.Sample{
		Accel: imu.Vec3{Z: 9.8},
		Gyro:  imu.Vec3{Z: 1.0},
	})}
	p := newPipeline(t, src, 0, 10)

	var last Update
	for i := 0; i < 10; i++ {
		u, ok := p.Step()
		require.True(t, ok)
		assert.InDelta(t, 0, u.Estimate.Roll, 1e-9)
		assert.InDelta(t, 0, u.Estimate.Pitch, 1e-9)
		last = u
	}
	assert.InDelta(t, 180/math.Pi, last.Estimate.Yaw, 1e-9)
	assert.Equal(t, 10, p.History().Len())
	assert.Equal(t, 10, p.Log().Rows())
	assert.Equal(t, Stats{Ticks: 10, Processed: 10}, p.Stats())
}

func TestStepSkipsMissingSamples(t *testing.T) {
	s := imu.Sample{Accel: imu.Vec3{Z: 1}, Gyro: imu.Vec3{Z: 1}}
	src := &scriptedSource{queue: []*imu.Sample{&s, nil, &s, nil, nil}}
	p := newPipeline(t, src, 0, 10)

	var processed int
	for i := 0; i < 6; i++ {
		if _, ok := p.Step(); ok {
			processed++
		}
	}
	assert.Equal(t, 2, processed)
	assert.Equal(t, 2, p.History().Len())
	assert.Equal(t, 2, p.Log().Rows())
	st := p.Stats()
	assert.Equal(t, uint64(6), st.Ticks)
	assert.Equal(t, uint64(4), st.Skipped)

	// skipped ticks do not advance yaw
	last, ok := p.History().Latest()
	require.True(t, ok)
	assert.InDelta(t, 2*0.1*180/math.Pi, last.Yaw, 1e-9)
}

func TestFirstSampleSeedsFilter(t *testing.T) {
	tilted := imu.Sample{Accel: imu.Vec3{Y: 1, Z: 1}}
	src := &scriptedSource{queue: []*imu.Sample{&tilted}}
	p := newPipeline(t, src, 1, 10)

	u, ok := p.Step()
	require.True(t, ok)
	// alpha=1 keeps the seeded roll of 45°
	assert.InDelta(t, 45, u.Estimate.Roll, 1e-9)
}

func TestSubscribersReceiveAndDrop(t *testing.T) {
	src := &scriptedSource{queue: constant(5, imu.Sample{Accel: imu.Vec3{Z: 1}})}
	p := newPipeline(t, src, 0, 10)

	fast, cancelFast := p.Subscribe(10)
	slow, cancelSlow := p.Subscribe(1)

	for i := 0; i < 5; i++ {
		p.Step()
	}

	for i := 0; i < 5; i++ {
		u := <-fast
		assert.Equal(t, uint64(i), u.Estimate.Index)
		assert.Equal(t, uint64(i), u.Point.Index)
	}
	u := <-slow
	assert.Equal(t, uint64(0), u.Estimate.Index)
	assert.Equal(t, uint64(4), p.Stats().Dropped)

	cancelFast()
	cancelFast()
	_, open := <-fast
	assert.False(t, open)
	cancelSlow()
}

func TestRunStartsAndStopsSource(t *testing.T) {
	src := &scriptedSource{queue: constant(1000, imu.Sample{Accel: imu.Vec3{Z: 9.8}})}
	p := newPipeline(t, src, 0, 200)

	updates, cancelSub := p.Subscribe(1000)
	defer cancelSub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("no update from running pipeline")
	}

	// saving while the producer runs
	path := filepath.Join(t.TempDir(), "live.csv")
	n, err := p.Save(context.Background(), path)
	require.NoError(t, err)
	assert.Positive(t, n)

	cancel()
	require.NoError(t, <-done)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 200.0, src.started)
	assert.True(t, src.stopped)

	rows, err := recording.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, rows, n)
}

func TestRunWithUnavailableSourceRecordsNothing(t *testing.T) {
	p := newPipeline(t, sensors.Unavailable{}, 0, 500)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	assert.Zero(t, p.Log().Rows())
	assert.Zero(t, p.History().Len())
}

func TestRunSurvivesVanishedSerialPort(t *testing.T) {
	src := sensors.NewSerialSource("gone", func() (io.ReadWriteCloser, error) {
		return nil, errors.New("no such device")
	})
	p := newPipeline(t, src, 0, 500)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	assert.False(t, src.Available())
	assert.Zero(t, p.Log().Rows())
	assert.Positive(t, p.Stats().Skipped)
}
