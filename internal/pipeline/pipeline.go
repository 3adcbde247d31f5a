// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pipeline drives one recording session: on every tick it pulls the
// latest sensor reading, runs the complementary filter, and hands the result
// to the live history, the recording log and any subscribers.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/inertial_recorder/internal/history"
	"github.com/relabs-tech/inertial_recorder/internal/imu"
	"github.com/relabs-tech/inertial_recorder/internal/orientation"
	"github.com/relabs-tech/inertial_recorder/internal/recording"
	"github.com/relabs-tech/inertial_recorder/internal/sensors"
)

// Stats counts what happened on the tick path.
type Stats struct {
	Ticks     uint64 `json:"ticks"`
	Processed uint64 `json:"processed"`
	Skipped   uint64 `json:"skipped"` // ticks with no sample available
	Dropped   uint64 `json:"dropped"` // estimates a slow subscriber missed
}

// Update is what subscribers receive for each processed sample.
type Update struct {
	Sample   imu.Sample           `json:"sample"`
	Estimate orientation.Estimate `json:"estimate"`
	Point    history.Point        `json:"point"`
}

// Pipeline owns the filter, history and log of one session.
type Pipeline struct {
	src     sensors.Source
	filter  *orientation.ComplementaryFilter
	hist    *history.History
	rec     *recording.Log
	rateHz  float64
	dt      float64
	started bool

	mu    sync.Mutex
	subs  map[int]chan Update
	nextS int
	stats Stats
}

// New wires a session together. rateHz sets both the ticker and the filter's
// nominal dt.
func New(src sensors.Source, filter *orientation.ComplementaryFilter, hist *history.History, rec *recording.Log, rateHz float64) (*Pipeline, error) {
	if rateHz <= 0 {
		return nil, fmt.Errorf("pipeline: invalid sample rate %v Hz", rateHz)
	}
	return &Pipeline{
		src:    src,
		filter: filter,
		hist:   hist,
		rec:    rec,
		rateHz: rateHz,
		dt:     1 / rateHz,
		subs:   make(map[int]chan Update),
	}, nil
}

// History returns the live window.
func (p *Pipeline) History() *history.History { return p.hist }

// Log returns the session's recording log.
func (p *Pipeline) Log() *recording.Log { return p.rec }

// Source returns the sensor source.
func (p *Pipeline) Source() sensors.Source { return p.src }

// Stats returns a copy of the counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Subscribe returns a channel that receives every processed update. Sends
// never block the tick path; when buf is full the update is dropped for that
// subscriber. Call cancel to unsubscribe; it closes the channel.
func (p *Pipeline) Subscribe(buf int) (<-chan Update, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Update, buf)
	p.mu.Lock()
	id := p.nextS
	p.nextS++
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
			close(ch)
		})
	}
}

// Step runs one tick. It returns false when no sample was available, in which
// case nothing changes.
func (p *Pipeline) Step() (Update, bool) {
	s, ok := p.src.Latest()
	p.mu.Lock()
	p.stats.Ticks++
	if !ok {
		p.stats.Skipped++
		p.mu.Unlock()
		return Update{}, false
	}
	p.mu.Unlock()

	if !p.started {
		// seed tilt from the first reading
		p.filter.Init(s)
		p.started = true
	}

	est := p.filter.Update(s, p.dt)
	pt := p.hist.Append(est)
	p.rec.Record(s, est.AccelRoll, est.AccelPitch)

	u := Update{Sample: s, Estimate: est, Point: pt}
	p.mu.Lock()
	p.stats.Processed++
	for _, ch := range p.subs {
		select {
		case ch <- u:
		default:
			p.stats.Dropped++
		}
	}
	p.mu.Unlock()
	return u, true
}

// Run starts the source and ticks until ctx is done, then stops the source.
// It must not be called concurrently with Step.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.src.Available() {
		log.Println("pipeline: WARNING: sensor source unavailable, no samples will be recorded")
	}
	if err := p.src.Start(p.rateHz); err != nil {
		return fmt.Errorf("pipeline: start source: %w", err)
	}
	defer p.src.Stop()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / p.rateHz))
	defer ticker.Stop()
	log.Printf("pipeline: running at %.1f Hz (dt=%.4fs, alpha=%.3f)", p.rateHz, p.dt, p.filter.Alpha())

	for {
		select {
		case <-ctx.Done():
			st := p.Stats()
			log.Printf("pipeline: stopped (ticks=%d, processed=%d, skipped=%d, dropped=%d)",
				st.Ticks, st.Processed, st.Skipped, st.Dropped)
			return nil
		case <-ticker.C:
			p.Step()
		}
	}
}

// Save writes the recording to path. It only holds the log lock while copying
// the buffer, so it can run alongside Run.
func (p *Pipeline) Save(ctx context.Context, path string) (int, error) {
	n, err := p.rec.Save(ctx, path)
	if err != nil {
		log.Printf("pipeline: save %s failed: %v", path, err)
		return 0, err
	}
	log.Printf("pipeline: saved %d rows to %s", n, path)
	return n, nil
}
