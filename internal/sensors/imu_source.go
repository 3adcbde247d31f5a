// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_recorder/internal/imu"
)

// MPU9250Source samples an MPU9250 over SPI. Accel is reported in g and gyro
// in rad/s according to the configured full-scale ranges.
type MPU9250Source struct {
	poller

	name       string
	dev        *mpu9250.MPU9250
	accelRange byte
	gyroRange  byte
}

// NewMPU9250Source initializes the MPU9250 on spiDev with chip select csPin.
// Errors wrap ErrUnavailable.
func NewMPU9250Source(name, spiDev, csPin string, accelRange, gyroRange byte) (*MPU9250Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: periph host init: %w: %v", name, ErrUnavailable, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%s IMU: CS pin %q not found: %w", name, csPin, ErrUnavailable)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: SPI transport (%s): %w: %v", name, spiDev, ErrUnavailable, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: device creation: %w: %v", name, ErrUnavailable, err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: initialization: %w: %v", name, ErrUnavailable, err)
	}

	if err := dev.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("%s IMU: set accel range: %w", name, err)
	}
	log.Printf("%s IMU: accelerometer range set to %d (±%dg)", name, accelRange, []int{2, 4, 8, 16}[accelRange])

	if err := dev.SetGyroRange(gyroRange); err != nil {
		return nil, fmt.Errorf("%s IMU: set gyro range: %w", name, err)
	}
	log.Printf("%s IMU: gyroscope range set to %d (±%d°/s)", name, gyroRange, []int{250, 500, 1000, 2000}[gyroRange])

	testResult, err := dev.SelfTest()
	if err != nil {
		log.Printf("Warning: %s IMU self-test failed: %v", name, err)
	} else {
		log.Printf("%s IMU self-test passed:", name)
		log.Printf("  Accelerometer deviation: X: %.2f%%, Y: %.2f%%, Z: %.2f%%",
			testResult.AccelDeviation.X, testResult.AccelDeviation.Y, testResult.AccelDeviation.Z)
		log.Printf("  Gyroscope deviation: X: %.2f%%, Y: %.2f%%, Z: %.2f%%",
			testResult.GyroDeviation.X, testResult.GyroDeviation.Y, testResult.GyroDeviation.Z)
	}

	if err := dev.Calibrate(); err != nil {
		log.Printf("Warning: %s IMU calibration failed: %v", name, err)
	} else {
		log.Printf("%s IMU calibration complete", name)
	}

	s := &MPU9250Source{
		name:       name,
		dev:        dev,
		accelRange: accelRange,
		gyroRange:  gyroRange,
	}
	s.poller = poller{name: name + " IMU", read: s.readSample}

	// both halves must answer before we call the device available
	if _, err := s.ReadRaw(); err != nil {
		return nil, fmt.Errorf("%s IMU: probe read: %w: %v", name, ErrUnavailable, err)
	}
	return s, nil
}

func (s *MPU9250Source) Available() bool { return s.dev != nil }

func (s *MPU9250Source) Start(rateHz float64) error {
	if !s.Available() {
		return nil
	}
	return s.poller.start(rateHz)
}

func (s *MPU9250Source) Stop() { s.poller.stop() }

func (s *MPU9250Source) Latest() (imu.Sample, bool) { return s.poller.get() }

func (s *MPU9250Source) readSample() (imu.Sample, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return imu.Sample{}, err
	}
	return raw.Scaled(imu.Seconds(time.Now()), s.accelRange, s.gyroRange), nil
}

// ReadRaw reads accelerometer and gyroscope counts from the device.
func (s *MPU9250Source) ReadRaw() (imu.IMURaw, error) {
	ax, err := s.dev.GetAccelerationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU accel X: %w", s.name, err)
	}
	ay, err := s.dev.GetAccelerationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU accel Y: %w", s.name, err)
	}
	az, err := s.dev.GetAccelerationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU accel Z: %w", s.name, err)
	}

	gx, err := s.dev.GetRotationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU gyro X: %w", s.name, err)
	}
	gy, err := s.dev.GetRotationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU gyro Y: %w", s.name, err)
	}
	gz, err := s.dev.GetRotationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("%s IMU gyro Z: %w", s.name, err)
	}

	return imu.IMURaw{
		Source: s.name,
		Ax:     ax,
		Ay:     ay,
		Az:     az,
		Gx:     gx,
		Gy:     gy,
		Gz:     gz,
	}, nil
}
