package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/inertial_recorder/internal/imu"
)

// TypeIMU is the sentence type of the proprietary $PIMU sentence:
//
//	$PIMU,ax,ay,az,gx,gy,gz*CS
//
// with accel in any consistent unit and gyro in rad/s.
const TypeIMU = "IMU"

// IMUSentence is a parsed $PIMU sentence.
type IMUSentence struct {
	nmea.BaseSentence
	Accel imu.Vec3
	Gyro  imu.Vec3
}

func parseIMUSentence(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	p.AssertType(TypeIMU)
	m := IMUSentence{
		BaseSentence: s,
		Accel: imu.Vec3{
			X: p.Float64(0, "accel x"),
			Y: p.Float64(1, "accel y"),
			Z: p.Float64(2, "accel z"),
		},
		Gyro: imu.Vec3{
			X: p.Float64(3, "gyro x"),
			Y: p.Float64(4, "gyro y"),
			Z: p.Float64(5, "gyro z"),
		},
	}
	return m, p.Err()
}

// NewIMUParser returns an NMEA parser that understands $PIMU.
func NewIMUParser() *nmea.SentenceParser {
	return &nmea.SentenceParser{
		CustomParsers: map[string]nmea.ParserFunc{
			TypeIMU: parseIMUSentence,
		},
	}
}

// SerialSource reads $PIMU sentences streamed by a microcontroller over a
// serial line. The device sets its own output rate; Latest returns whatever
// arrived last.
type SerialSource struct {
	name   string
	open   func() (io.ReadWriteCloser, error)
	parser *nmea.SentenceParser
	now    func() time.Time

	latest

	mu      sync.Mutex
	port    io.ReadWriteCloser
	done    chan struct{}
	errored bool
}

// OpenSerialSource probes the serial port and returns a source for it.
func OpenSerialSource(name, portName string, baud int) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	open := func() (io.ReadWriteCloser, error) { return serial.Open(opts) }

	port, err := open()
	if err != nil {
		return nil, fmt.Errorf("%s: open serial port %s: %w: %v", name, portName, ErrUnavailable, err)
	}
	if err := port.Close(); err != nil {
		log.Printf("%s: close probe handle: %v", name, err)
	}
	log.Printf("%s: serial port %s available at %d baud", name, portName, baud)
	return NewSerialSource(name, open), nil
}

// NewSerialSource builds a source around an arbitrary stream opener.
func NewSerialSource(name string, open func() (io.ReadWriteCloser, error)) *SerialSource {
	return &SerialSource{
		name:   name,
		open:   open,
		parser: NewIMUParser(),
		now:    time.Now,
	}
}

func (s *SerialSource) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open != nil && !s.errored
}

// Start opens the stream and begins decoding. rateHz is informational; the
// device decides how often it sends.
func (s *SerialSource) Start(rateHz float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil || s.port != nil {
		return nil
	}
	port, err := s.open()
	if err != nil {
		s.errored = true
		log.Printf("%s: WARNING: open failed, no samples will be produced: %v", s.name, err)
		return nil
	}
	s.port = port
	s.done = make(chan struct{})
	go s.readLoop(port, s.done)
	log.Printf("%s: started (requested %.1f Hz, device paced)", s.name, rateHz)
	return nil
}

func (s *SerialSource) Stop() {
	s.mu.Lock()
	port, done := s.port, s.done
	s.port, s.done = nil, nil
	s.mu.Unlock()
	if port == nil {
		return
	}
	if err := port.Close(); err != nil {
		log.Printf("%s: close: %v", s.name, err)
	}
	<-done
	s.clear()
	log.Printf("%s: stopped", s.name)
}

func (s *SerialSource) Latest() (imu.Sample, bool) { return s.get() }

func (s *SerialSource) readLoop(port io.ReadWriteCloser, done chan struct{}) {
	defer close(done)
	reader := bufio.NewReader(port)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			s.handleLine(line)
		}
		if err != nil {
			s.streamEnded(port, err)
			return
		}
	}
}

// streamEnded marks the source unavailable when the stream ends without Stop,
// so stale readings are never served again.
func (s *SerialSource) streamEnded(port io.ReadWriteCloser, err error) {
	s.mu.Lock()
	stopping := s.port != port
	if !stopping {
		s.clear()
		s.errored = true
	}
	s.mu.Unlock()
	if stopping {
		return
	}
	if err == io.EOF {
		log.Printf("%s: WARNING: stream ended, source unavailable", s.name)
	} else {
		log.Printf("%s: WARNING: read error, source unavailable: %v", s.name, err)
	}
}

func (s *SerialSource) handleLine(line string) {
	if !strings.HasPrefix(line, "$") {
		return
	}
	sentence, err := s.parser.Parse(line)
	if err != nil {
		log.Printf("%s: NMEA parse error: %v", s.name, err)
		return
	}
	m, ok := sentence.(IMUSentence)
	if !ok {
		return
	}
	s.set(imu.Sample{
		Timestamp: imu.Seconds(s.now()),
		Accel:     m.Accel,
		Gyro:      m.Gyro,
	})
}
