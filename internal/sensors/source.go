// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/inertial_recorder/internal/imu"
)

// ErrUnavailable means the accelerometer or gyroscope did not respond.
var ErrUnavailable = errors.New("sensor unavailable")

// Source is an accelerometer + gyroscope pair that can be polled for its most
// recent reading.
type Source interface {
	// Available is true only if both accelerometer and gyroscope respond.
	Available() bool
	// Start begins sampling at rateHz. It is a no-op on an unavailable source.
	Start(rateHz float64) error
	// Stop halts sampling. Safe to call more than once.
	Stop()
	// Latest returns the most recent reading, or false if none has arrived.
	Latest() (imu.Sample, bool)
}

// latest holds the newest sample for concurrent readers.
type latest struct {
	mu     sync.RWMutex
	sample imu.Sample
	have   bool
}

func (l *latest) set(s imu.Sample) {
	l.mu.Lock()
	l.sample = s
	l.have = true
	l.mu.Unlock()
}

func (l *latest) get() (imu.Sample, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sample, l.have
}

func (l *latest) clear() {
	l.mu.Lock()
	l.have = false
	l.mu.Unlock()
}

// poller reads a device at a fixed rate on its own goroutine.
type poller struct {
	name string
	read func() (imu.Sample, error)

	latest

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *poller) start(rateHz float64) error {
	if rateHz <= 0 {
		return fmt.Errorf("%s: invalid sample rate %v Hz", p.name, rateHz)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	interval := time.Duration(float64(time.Second) / rateHz)

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var failures int
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			s, err := p.read()
			if err != nil {
				failures++
				// first failure, then every 100th
				if failures == 1 || failures%100 == 0 {
					log.Printf("%s: read error (%d so far): %v", p.name, failures, err)
				}
				continue
			}
			p.set(s)
		}
	}(p.done)

	log.Printf("%s: sampling at %.1f Hz", p.name, rateHz)
	return nil
}

func (p *poller) stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Printf("%s: stopped", p.name)
}

// Unavailable is a Source for hardware that could not be opened. Every call is
// a no-op and Latest never returns data.
type Unavailable struct {
	Reason error
}

func (Unavailable) Available() bool            { return false }
func (Unavailable) Start(float64) error        { return nil }
func (Unavailable) Stop()                      {}
func (Unavailable) Latest() (imu.Sample, bool) { return imu.Sample{}, false }
