package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/inertial_recorder/internal/config"
	"github.com/relabs-tech/inertial_recorder/internal/imu"
	"github.com/relabs-tech/inertial_recorder/internal/orientation"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	pose     orientation.Pose
	havePose bool

	sample     imu.Sample
	haveSample bool
}

func (d *DisplayData) setPose(p orientation.Pose) {
	d.mu.Lock()
	d.pose = p
	d.havePose = true
	d.mu.Unlock()
}

func (d *DisplayData) setSample(s imu.Sample) {
	d.mu.Lock()
	d.sample = s
	d.haveSample = true
	d.mu.Unlock()
}

// snapshot copies the fields without the mutex.
func (d *DisplayData) snapshot() (orientation.Pose, bool, imu.Sample, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pose, d.havePose, d.sample, d.haveSample
}

// RunDisplay mirrors the recorder's published pose on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("display: config not initialized")
	}
	if cfg.MQTTBroker == "" {
		return errors.New("display: MQTT_BROKER is not set")
	}

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: initialized")

	if err := draw(dev, renderSplash()); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p orientation.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("display: pose unmarshal error: %v", err)
			return
		}
		data.setPose(p)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicPose)

	if cfg.TopicIMU != "" {
		token := client.Subscribe(cfg.TopicIMU, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var s imu.Sample
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				log.Printf("display: imu unmarshal error: %v", err)
				return
			}
			data.setSample(s)
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("display: subscribed to %s", cfg.TopicIMU)
	}

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		pose, havePose, sample, haveSample := data.snapshot()
		if err := draw(dev, renderOrientation(pose, havePose, sample, haveSample)); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func draw(dev *ssd1306.Dev, img *image1bit.VerticalLSB) error {
	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// renderOrientation lays out roll, pitch and yaw in degrees plus the
// accelerometer magnitude when a sample has been seen.
func renderOrientation(pose orientation.Pose, havePose bool, sample imu.Sample, haveSample bool) *image1bit.VerticalLSB {
	img, d := newCanvas()

	if !havePose {
		drawLine(d, 0, 26, "Orientation")
		drawLine(d, 0, 39, "Waiting...")
		return img
	}

	drawLine(d, 0, 13, fmt.Sprintf("R: %7.1f", pose.Roll))
	drawLine(d, 0, 26, fmt.Sprintf("P: %7.1f", pose.Pitch))
	drawLine(d, 0, 39, fmt.Sprintf("Y: %7.1f", pose.Yaw))
	if haveSample {
		drawLine(d, 0, 52, fmt.Sprintf("|a|: %.3f", sample.Accel.Norm()))
	}
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, d := newCanvas()
	drawLine(d, 10, 26, "Inertial Pi")
	drawLine(d, 20, 43, "Recorder")
	return img
}
