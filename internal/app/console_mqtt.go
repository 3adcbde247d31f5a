package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/inertial_recorder/internal/config"
	"github.com/relabs-tech/inertial_recorder/internal/imu"
	"github.com/relabs-tech/inertial_recorder/internal/orientation"
)

func formatPose(payload []byte) (string, error) {
	var p orientation.Pose
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", err
	}
	return fmt.Sprintf("[POSE]  ROLL=%7.2f  PITCH=%7.2f  YAW=%8.2f", p.Roll, p.Pitch, p.Yaw), nil
}

func formatIMU(payload []byte) (string, error) {
	var s imu.Sample
	if err := json.Unmarshal(payload, &s); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"[IMU ]  t=%.4f  ax=%8.5f ay=%8.5f az=%8.5f  gx=%8.5f gy=%8.5f gz=%8.5f",
		s.Timestamp, s.Accel.X, s.Accel.Y, s.Accel.Z, s.Gyro.X, s.Gyro.Y, s.Gyro.Z,
	), nil
}

// RunConsoleMQTT prints every pose and sample the recorder publishes.
func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("console: config not initialized")
	}
	if cfg.MQTTBroker == "" {
		return errors.New("console: MQTT_BROKER is not set")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	subs := []struct {
		topic  string
		format func([]byte) (string, error)
	}{
		{cfg.TopicPose, formatPose},
		{cfg.TopicIMU, formatIMU},
	}
	for _, sub := range subs {
		if sub.topic == "" {
			continue
		}
		topic, format := sub.topic, sub.format
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			line, err := format(msg.Payload())
			if err != nil {
				log.Printf("console: %s unmarshal error: %v", topic, err)
				return
			}
			fmt.Println(line)
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("console: subscribed to %s", topic)
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
