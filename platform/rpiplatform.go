package platform

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	c "github.com/flamingods/glow/config"
	p "github.com/flamingods/glow/plan"
)

// RaspberryPiPlatform drives a chain of addressable LEDs over SPI.
type RaspberryPiPlatform struct {
	conf      *c.Config
	segments  []*segment
	ledDriver ledDriver
	spiPort   spi.PortCloser
	spiConn   spi.Conn
	spiMutex  sync.Mutex
	readyChan chan bool
}

// NewRaspberryPiPlatform creates the hardware platform for conf.
func NewRaspberryPiPlatform(conf *c.Config) *RaspberryPiPlatform {
	return &RaspberryPiPlatform{
		conf:      conf,
		readyChan: make(chan bool),
	}
}

func (s *RaspberryPiPlatform) Ready() <-chan bool {
	return s.readyChan
}

func (s *RaspberryPiPlatform) Start() error {
	s.segments = parseSegments(s.conf.Hardware, s.conf.Device.LedsTotal)

	slog.Info("Initialise SPI...")
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to init periph: %w", err)
	}

	var err error
	s.spiPort, err = spireg.Open(s.conf.Hardware.SPIDevice)
	if err != nil {
		return fmt.Errorf("failed to open spi: %w", err)
	}

	s.spiConn, err = s.spiPort.Connect(physic.Frequency(s.conf.Hardware.SPIFrequency)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		return fmt.Errorf("failed to connect to spi device: %w", err)
	}

	switch strings.ToUpper(s.conf.Hardware.LEDType) {
	case "APA102":
		s.ledDriver = newApa102Driver(s.conf.Hardware, s.conf.Device.LedsTotal)
	case "WS2801":
		s.ledDriver = newWs2801Driver(s.conf.Hardware, s.conf.Device.LedsTotal)
	default:
		return fmt.Errorf("unknown LED type: %s", s.conf.Hardware.LEDType)
	}

	close(s.readyChan) // For RPi, we are ready immediately.
	return nil
}

func (s *RaspberryPiPlatform) Stop() {
	if s.spiPort != nil {
		if err := s.spiPort.Close(); err != nil {
			slog.Error("Error closing spi port", "error", err)
		}
		s.spiPort = nil
	}
}

func (s *RaspberryPiPlatform) DisplayLeds(leds []p.Led, brightness float64) {
	for _, seg := range s.segments {
		seg.setLeds(leds)
	}
	if err := s.ledDriver.write(s.segments, brightness, s.spiExchange); err != nil {
		slog.Error("Error writing to LED driver", "error", err)
	}
}

func (s *RaspberryPiPlatform) spiExchange(data []byte) []byte {
	s.spiMutex.Lock()
	defer s.spiMutex.Unlock()

	read := make([]byte, len(data))
	if err := s.spiConn.Tx(data, read); err != nil {
		slog.Error("spi transaction failed", "error", err)
	}
	return read
}

// ledDriver encodes one frame of segment data into the chain's wire
// format.
type ledDriver interface {
	write(segments []*segment, brightness float64, exchangeFunc func([]byte) []byte) error
}

type ws2801Driver struct {
	hw     c.HardwareConfig
	buffer []byte
}

func newWs2801Driver(hw c.HardwareConfig, ledsTotal int) *ws2801Driver {
	// Pre-allocate buffer to the maximum possible size.
	return &ws2801Driver{
		hw:     hw,
		buffer: make([]byte, 3*ledsTotal),
	}
}

func (d *ws2801Driver) write(segments []*segment, brightness float64, exchangeFunc func([]byte) []byte) error {
	offset := 0
	for _, seg := range segments {
		for _, led := range seg.leds {
			scaled := led.Scale(brightness)
			d.buffer[offset] = correct(scaled.Red, d.hw.ColorCorrection[0])
			d.buffer[offset+1] = correct(scaled.Green, d.hw.ColorCorrection[1])
			d.buffer[offset+2] = correct(scaled.Blue, d.hw.ColorCorrection[2])
			offset += 3
		}
	}
	exchangeFunc(d.buffer[:offset])
	return nil
}

type apa102Driver struct {
	hw     c.HardwareConfig
	buffer []byte
}

func newApa102Driver(hw c.HardwareConfig, ledsTotal int) *apa102Driver {
	// Frame start (4 bytes), 4 bytes per LED, frame end of len/16+1 bytes.
	frameEndLength := (ledsTotal / 16) + 1
	return &apa102Driver{
		hw:     hw,
		buffer: make([]byte, 4+(4*ledsTotal)+frameEndLength),
	}
}

func (d *apa102Driver) write(segments []*segment, brightness float64, exchangeFunc func([]byte) []byte) error {
	// Frame start: 4 zero bytes.
	copy(d.buffer[0:4], []byte{0x00, 0x00, 0x00, 0x00})

	// The APA102 per-LED brightness field has 5 bits; the global scalar
	// maps onto it so color resolution is preserved.
	brightnessByte := byte(math.Round(brightness*31)) | 0xE0

	offset := 4
	ledCount := 0
	for _, seg := range segments {
		for _, led := range seg.leds {
			// protocol: brightness byte, blue, green, red
			d.buffer[offset] = brightnessByte
			d.buffer[offset+1] = correct(led.Blue, d.hw.ColorCorrection[2])
			d.buffer[offset+2] = correct(led.Green, d.hw.ColorCorrection[1])
			d.buffer[offset+3] = correct(led.Red, d.hw.ColorCorrection[0])
			offset += 4
			ledCount++
		}
	}

	// Frame end: fill with 0xFF.
	end := offset + (ledCount / 16) + 1
	for i := offset; i < end; i++ {
		d.buffer[i] = 0xFF
	}

	exchangeFunc(d.buffer[:end])
	return nil
}

func correct(value, correction float64) byte {
	return byte(math.Min(value*correction, 255))
}
