package sensors

import (
	"fmt"
	"log"

	"github.com/relabs-tech/inertial_recorder/internal/config"
)

// FromConfig builds the source selected by SENSOR_SOURCE.
//
// Hardware that cannot be reached is not fatal: the returned Source is an
// Unavailable placeholder and the error explains why, so callers can log it and
// keep running.
func FromConfig(cfg *config.Config) (Source, error) {
	switch cfg.SensorSource {
	case config.SourceMock:
		log.Println("using mock sensor source")
		return NewMockSource(), nil

	case config.SourceMPU9250:
		src, err := NewMPU9250Source("main", cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange, cfg.IMUGyroRange)
		if err != nil {
			return Unavailable{Reason: err}, err
		}
		return src, nil

	case config.SourceSerial:
		src, err := OpenSerialSource("serial IMU", cfg.IMUSerialPort, cfg.IMUBaudRate)
		if err != nil {
			return Unavailable{Reason: err}, err
		}
		return src, nil

	case config.SourceReplay:
		src, err := OpenReplaySource(cfg.ReplayFile, cfg.ReplayLoop)
		if err != nil {
			return nil, err
		}
		log.Printf("replaying %d samples from %s", src.Remaining(), cfg.ReplayFile)
		return src, nil

	default:
		return nil, fmt.Errorf("unknown sensor source %q", cfg.SensorSource)
	}
}
