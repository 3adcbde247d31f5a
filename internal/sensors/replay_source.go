package sensors

import (
	"fmt"
	"sync"

	"github.com/relabs-tech/inertial_recorder/internal/imu"
	"github.com/relabs-tech/inertial_recorder/internal/recording"
)

// ReplaySource plays back a saved recording. Each call to Latest hands out
// the next row, so a pipeline ticking at the recording's original rate
// reproduces the session.
type ReplaySource struct {
	mu      sync.Mutex
	samples []imu.Sample
	pos     int
	loop    bool
	running bool
}

// OpenReplaySource loads a CSV written by recording.Log.Save.
func OpenReplaySource(path string, loop bool) (*ReplaySource, error) {
	rows, err := recording.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	samples := make([]imu.Sample, len(rows))
	for i, r := range rows {
		samples[i] = r.Sample
	}
	return NewReplaySource(samples, loop), nil
}

// NewReplaySource replays samples in order.
func NewReplaySource(samples []imu.Sample, loop bool) *ReplaySource {
	return &ReplaySource{samples: samples, loop: loop}
}

func (r *ReplaySource) Available() bool {
	return len(r.samples) > 0
}

func (r *ReplaySource) Start(float64) error {
	r.mu.Lock()
	r.running = r.Available()
	r.mu.Unlock()
	return nil
}

func (r *ReplaySource) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// Latest returns the next recorded sample, or false once the recording is
// exhausted and looping is off.
func (r *ReplaySource) Latest() (imu.Sample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return imu.Sample{}, false
	}
	if r.pos >= len(r.samples) {
		if !r.loop {
			return imu.Sample{}, false
		}
		r.pos = 0
	}
	s := r.samples[r.pos]
	r.pos++
	return s, true
}

// Remaining returns how many samples are left before the end of the recording.
func (r *ReplaySource) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples) - r.pos
}
