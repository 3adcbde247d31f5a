// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/relabs-tech/inertial_recorder/internal/config"
	"github.com/relabs-tech/inertial_recorder/internal/pipeline"
	"github.com/relabs-tech/inertial_recorder/internal/sensors"
)

// RunConsole runs a session on the configured source and prints each
// estimate to out, without MQTT or the web server.
func RunConsole(ctx context.Context, out io.Writer) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("console: config not initialized")
	}
	src, err := sensors.FromConfig(cfg)
	if src == nil {
		return err
	}
	p, err := NewSession(cfg, src)
	if err != nil {
		return err
	}

	updates, cancel := p.Subscribe(16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range updates {
			printUpdate(out, u)
		}
	}()

	err = p.Run(ctx)
	cancel()
	<-done
	return err
}

func printUpdate(out io.Writer, u pipeline.Update) {
	fmt.Fprintf(out,
		"#%-6d ROLL=%7.2f  PITCH=%7.2f  YAW=%8.2f\n",
		u.Estimate.Index, u.Estimate.Roll, u.Estimate.Pitch, u.Estimate.Yaw,
	)
}
