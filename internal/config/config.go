package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Sensor source kinds accepted by SENSOR_SOURCE.
const (
	SourceMock    = "mock"
	SourceMPU9250 = "mpu9250"
	SourceSerial  = "serial"
	SourceReplay  = "replay"
)

// Config holds all application configuration values.
type Config struct {
	// Filter
	Alpha                  float64 // complementary blend weight, 0..1
	SampleRateHz           float64 // sampling and filter update cadence
	DisplayCapacity        int     // points retained for live views
	DisplayIntervalSeconds float64 // synthetic time step between retained points

	// Sensor source
	SensorSource    string
	GyroBiasSamples int // 0 disables the startup gyro bias estimate

	// MPU9250 over SPI
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// Serial $PIMU stream
	IMUSerialPort string
	IMUBaudRate   int

	// Replay
	ReplayFile string
	ReplayLoop bool

	// Recording
	CSVOutputPath  string
	CSVIncludeTilt bool
	SaveOnExit     bool

	// MQTT
	MQTTBroker           string
	MQTTClientIDRecorder string
	MQTTClientIDConsole  string
	MQTTClientIDDisplay  string

	// Topics
	TopicPose string
	TopicIMU  string

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	return &Config{
		Alpha:                  0,
		SampleRateHz:           10,
		DisplayCapacity:        1000,
		DisplayIntervalSeconds: 1.0 / 50.0,

		SensorSource: SourceMock,

		IMUSPIDevice: "/dev/spidev6.0",
		IMUCSPin:     "18",

		IMUBaudRate: 115200,

		CSVOutputPath:  "imu_data.csv",
		CSVIncludeTilt: true,
		SaveOnExit:     true,

		MQTTClientIDRecorder: "inertial-recorder",
		MQTTClientIDConsole:  "inertial-console-subscriber",
		MQTTClientIDDisplay:  "inertial-display",

		TopicPose: "inertial/pose",
		TopicIMU:  "inertial/imu",

		WebServerPort: 8080,

		DisplayI2CBus:         "",
		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default().
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Filter
	case "ALPHA":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ALPHA %q: %w", value, err)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("ALPHA must be in [0, 1], got %v", v)
		}
		c.Alpha = v
	case "SAMPLE_RATE_HZ":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_RATE_HZ %q: %w", value, err)
		}
		c.SampleRateHz = v
	case "DISPLAY_CAPACITY":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_CAPACITY %q: %w", value, err)
		}
		c.DisplayCapacity = v
	case "DISPLAY_INTERVAL_SECONDS":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_INTERVAL_SECONDS %q: %w", value, err)
		}
		c.DisplayIntervalSeconds = v

	// Sensor source
	case "SENSOR_SOURCE":
		switch value {
		case SourceMock, SourceMPU9250, SourceSerial, SourceReplay:
			c.SensorSource = value
		default:
			return fmt.Errorf("SENSOR_SOURCE must be one of mock, mpu9250, serial, replay, got %q", value)
		}
	case "GYRO_BIAS_SAMPLES":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GYRO_BIAS_SAMPLES %q: %w", value, err)
		}
		if v < 0 {
			return fmt.Errorf("GYRO_BIAS_SAMPLES must be >= 0, got %d", v)
		}
		c.GyroBiasSamples = v

	// MPU9250
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)

	// Serial
	case "IMU_SERIAL_PORT":
		c.IMUSerialPort = value
	case "IMU_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_BAUD_RATE %q: %w", value, err)
		}
		c.IMUBaudRate = rate

	// Replay
	case "REPLAY_FILE":
		c.ReplayFile = value
	case "REPLAY_LOOP":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid REPLAY_LOOP %q: %w", value, err)
		}
		c.ReplayLoop = b

	// Recording
	case "CSV_OUTPUT_PATH":
		c.CSVOutputPath = value
	case "CSV_INCLUDE_TILT":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid CSV_INCLUDE_TILT %q: %w", value, err)
		}
		c.CSVIncludeTilt = b
	case "SAVE_ON_EXIT":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid SAVE_ON_EXIT %q: %w", value, err)
		}
		c.SaveOnExit = b

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_RECORDER":
		c.MQTTClientIDRecorder = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_IMU":
		c.TopicIMU = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks cross-field requirements.
func (c *Config) validate() error {
	if c.SampleRateHz <= 0 {
		return fmt.Errorf("SAMPLE_RATE_HZ must be > 0")
	}
	if c.DisplayCapacity <= 0 {
		return fmt.Errorf("DISPLAY_CAPACITY must be > 0")
	}
	if c.DisplayIntervalSeconds <= 0 {
		return fmt.Errorf("DISPLAY_INTERVAL_SECONDS must be > 0")
	}
	if c.CSVOutputPath == "" {
		return fmt.Errorf("CSV_OUTPUT_PATH is required")
	}
	switch c.SensorSource {
	case SourceMPU9250:
		if c.IMUSPIDevice == "" || c.IMUCSPin == "" {
			return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required for SENSOR_SOURCE=mpu9250")
		}
	case SourceSerial:
		if c.IMUSerialPort == "" {
			return fmt.Errorf("IMU_SERIAL_PORT is required for SENSOR_SOURCE=serial")
		}
		if c.IMUBaudRate <= 0 {
			return fmt.Errorf("IMU_BAUD_RATE must be > 0")
		}
	case SourceReplay:
		if c.ReplayFile == "" {
			return fmt.Errorf("REPLAY_FILE is required for SENSOR_SOURCE=replay")
		}
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be > 0")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
