package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/inertial_recorder/internal/pipeline"
)

// publisher is the part of mqtt.Client used for publishing.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

const publishTimeout = time.Second

// publishUpdates forwards pipeline updates to MQTT until updates is closed:
// the pose in degrees on poseTopic, the raw sample on imuTopic.
func publishUpdates(client publisher, poseTopic, imuTopic string, updates <-chan pipeline.Update) {
	for u := range updates {
		if poseTopic != "" {
			publishJSON(client, poseTopic, u.Estimate.Pose())
		}
		if imuTopic != "" {
			publishJSON(client, imuTopic, u.Sample)
		}
	}
}

func publishJSON(client publisher, topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("json marshal error (%s): %v", topic, err)
		return
	}
	token := client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("MQTT publish timeout (%s)", topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("MQTT publish error (%s): %v", topic, err)
	}
}
