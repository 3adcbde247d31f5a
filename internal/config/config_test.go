package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader("# nothing but a comment\n\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 0.0, cfg.Alpha)
	assert.Equal(t, 10.0, cfg.SampleRateHz)
	assert.Equal(t, 1000, cfg.DisplayCapacity)
	assert.InDelta(t, 0.02, cfg.DisplayIntervalSeconds, 1e-12)
	assert.Equal(t, SourceMock, cfg.SensorSource)
}

func TestParseValues(t *testing.T) {
	in := `
ALPHA = 0.98
SAMPLE_RATE_HZ=50
DISPLAY_CAPACITY=200
DISPLAY_INTERVAL_SECONDS=0.1
SENSOR_SOURCE=serial
IMU_SERIAL_PORT=/dev/ttyUSB0
IMU_BAUD_RATE=57600
IMU_ACCEL_RANGE=2
IMU_GYRO_RANGE=1
CSV_INCLUDE_TILT=false
MQTT_BROKER=tcp://localhost:1883
TOPIC_POSE=test/pose
GYRO_BIAS_SAMPLES=100
`
	cfg, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 0.98, cfg.Alpha)
	assert.Equal(t, 50.0, cfg.SampleRateHz)
	assert.Equal(t, 200, cfg.DisplayCapacity)
	assert.Equal(t, 0.1, cfg.DisplayIntervalSeconds)
	assert.Equal(t, SourceSerial, cfg.SensorSource)
	assert.Equal(t, "/dev/ttyUSB0", cfg.IMUSerialPort)
	assert.Equal(t, 57600, cfg.IMUBaudRate)
	assert.Equal(t, byte(2), cfg.IMUAccelRange)
	assert.Equal(t, byte(1), cfg.IMUGyroRange)
	assert.False(t, cfg.CSVIncludeTilt)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "test/pose", cfg.TopicPose)
	assert.Equal(t, 100, cfg.GyroBiasSamples)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"missing equals":      "ALPHA 0.5",
		"unknown key":         "COLOR=blue",
		"alpha out of range":  "ALPHA=1.5",
		"alpha not a number":  "ALPHA=high",
		"bad source":          "SENSOR_SOURCE=kinect",
		"accel range":         "IMU_ACCEL_RANGE=4",
		"zero rate":           "SAMPLE_RATE_HZ=0",
		"zero capacity":       "DISPLAY_CAPACITY=0",
		"replay without file": "SENSOR_SOURCE=replay",
		"serial without port": "SENSOR_SOURCE=serial",
		"bad bool":            "SAVE_ON_EXIT=maybe",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestLoadAndGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inertial_config.txt")
	require.NoError(t, os.WriteFile(path, []byte("ALPHA=0.5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Alpha)

	require.NoError(t, InitGlobal(path))
	require.NotNil(t, Get())
	assert.Equal(t, 0.5, Get().Alpha)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
