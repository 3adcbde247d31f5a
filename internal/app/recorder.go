package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/inertial_recorder/internal/config"
	"github.com/relabs-tech/inertial_recorder/internal/history"
	"github.com/relabs-tech/inertial_recorder/internal/orientation"
	"github.com/relabs-tech/inertial_recorder/internal/pipeline"
	"github.com/relabs-tech/inertial_recorder/internal/recording"
	"github.com/relabs-tech/inertial_recorder/internal/sensors"
)

// NewSession builds a pipeline for one recording session from cfg.
func NewSession(cfg *config.Config, src sensors.Source) (*pipeline.Pipeline, error) {
	filter, err := orientation.New(cfg.Alpha)
	if err != nil {
		return nil, err
	}
	hist := history.New(cfg.DisplayCapacity, cfg.DisplayIntervalSeconds)
	rec := recording.New(cfg.CSVIncludeTilt)
	return pipeline.New(src, filter, hist, rec, cfg.SampleRateHz)
}

// RunRecorder samples the configured source until ctx is cancelled, serving
// the live window over HTTP and publishing estimates over MQTT when a broker
// is configured.
func RunRecorder(ctx context.Context) error {
	log.Println("starting inertial recorder")
	cfg := config.Get()
	if cfg == nil {
		return errors.New("recorder: config not initialized")
	}

	// --- sensor source ---
	src, err := sensors.FromConfig(cfg)
	if src == nil {
		return fmt.Errorf("recorder: %w", err)
	}
	if err != nil {
		log.Printf("recorder: WARNING: %v", err)
	}

	if cfg.GyroBiasSamples > 0 && src.Available() && cfg.SensorSource != config.SourceReplay {
		src, err = calibrateGyro(ctx, cfg, src)
		if err != nil {
			return err
		}
	}

	// --- session ---
	p, err := NewSession(cfg, src)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	log.Printf("recorder: session %s", p.Log().SessionID())

	// --- MQTT ---
	if cfg.MQTTBroker != "" {
		opts := mqtt.NewClientOptions().
			AddBroker(cfg.MQTTBroker).
			SetClientID(cfg.MQTTClientIDRecorder)

		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return fmt.Errorf("recorder: MQTT connect: %w", token.Error())
		}
		defer client.Disconnect(250)
		log.Printf("recorder: connected to MQTT broker at %s", cfg.MQTTBroker)

		updates, unsubscribe := p.Subscribe(64)
		defer unsubscribe()
		go publishUpdates(client, cfg.TopicPose, cfg.TopicIMU, updates)
	}

	// --- web ---
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: NewWebServer(p, cfg.CSVOutputPath).Routes(),
	}
	go func() {
		log.Printf("web server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("web server error: %v", err)
		}
	}()

	runErr := p.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("web server shutdown: %v", err)
	}

	if cfg.SaveOnExit {
		if _, err := p.Save(shutdownCtx, cfg.CSVOutputPath); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

func calibrateGyro(ctx context.Context, cfg *config.Config, src sensors.Source) (sensors.Source, error) {
	log.Printf("recorder: keep the device still, estimating gyro bias from %d samples", cfg.GyroBiasSamples)
	if err := src.Start(cfg.SampleRateHz); err != nil {
		return nil, fmt.Errorf("recorder: start source for calibration: %w", err)
	}
	interval := time.Duration(float64(time.Second) / cfg.SampleRateHz)
	bias, err := sensors.EstimateGyroBias(ctx, src, cfg.GyroBiasSamples, interval)
	if err != nil {
		src.Stop()
		return nil, fmt.Errorf("recorder: %w", err)
	}
	log.Printf("recorder: gyro bias X=%.5f Y=%.5f Z=%.5f rad/s (stddev X=%.5f Y=%.5f Z=%.5f)",
		bias.Bias.X, bias.Bias.Y, bias.Bias.Z, bias.StdDev.X, bias.StdDev.Y, bias.StdDev.Z)
	return sensors.BiasCorrected{Source: src, Bias: bias.Bias}, nil
}
