// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Gyro bias calibration for the configured sensor source.
//
// Keep the device still while it runs. The result is printed and written as
// JSON under ./calibration/ so it can be compared across runs.
//
// Run:
//
//	go run ./cmd/calibration -samples 500
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/relabs-tech/inertial_recorder/internal/app"
	"github.com/relabs-tech/inertial_recorder/internal/config"
)

func main() {
	configPath := flag.String("config", "./inertial_config.txt", "path to configuration file")
	samples := flag.Int("samples", 200, "number of still samples to average")
	outDir := flag.String("out", "calibration", "directory for the JSON result")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var buf bytes.Buffer
	if err := app.RunGyroCalibration(ctx, *samples, &buf); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	fmt.Print(buf.String())

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create %s: %v", *outDir, err)
	}
	name := filepath.Join(*outDir, fmt.Sprintf("gyro_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
		log.Fatalf("write %s: %v", name, err)
	}
	log.Printf("calibration: saved %s", name)
}
