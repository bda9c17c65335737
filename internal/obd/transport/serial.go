package transport

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/tarm/serial"
	"go.uber.org/zap"

	"cardiag/pkg/log"
)

const (
	// DefaultBaud is the usual ELM327 rate (8 data bits, no parity, 1 stop).
	DefaultBaud = 38400

	// DefaultTimeout bounds the read loop of a single command.
	DefaultTimeout = 5 * time.Second

	prompt = '>'
)

// SerialPort drives a real ELM327 adapter over a serial device.
type SerialPort struct {
	device  string
	baud    int
	timeout time.Duration

	mu   sync.Mutex
	port *serial.Port
}

// NewSerialPort creates an unopened link to the given device. Zero values
// for baud and timeout pick the defaults.
func NewSerialPort(device string, baud int, timeout time.Duration) *SerialPort {
	if baud <= 0 {
		baud = DefaultBaud
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SerialPort{device: device, baud: baud, timeout: timeout}
}

func (p *SerialPort) Open() error {
	cfg := &serial.Config{
		Name:        p.device,
		Baud:        p.baud,
		ReadTimeout: 100 * time.Millisecond,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}

	var port *serial.Port
	err := retry.Do(
		func() error {
			var err error
			port, err = serial.OpenPort(cfg)
			return err
		},
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.FixedDelay),
	)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.device, err)
	}

	p.mu.Lock()
	p.port = port
	p.mu.Unlock()

	log.Info("serial port opened", zap.String("device", p.device), zap.Int("baud", p.baud))
	return nil
}

// Send writes cmd terminated by a carriage return and reads until the
// adapter prompt or the timeout. Every exchange is logged for replay.
func (p *SerialPort) Send(cmd string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return "", ErrNotOpen
	}

	log.Debug("obd write", zap.String("cmd", cmd))
	if _, err := p.port.Write([]byte(cmd + "\r")); err != nil {
		return "", fmt.Errorf("write %q: %w", cmd, err)
	}

	raw, err := p.readUntilPrompt()
	log.Debug("obd read", zap.String("cmd", cmd), zap.String("raw", raw), zap.Error(err))
	if err != nil {
		return "", err
	}
	return CleanResponse(raw, cmd), nil
}

// readUntilPrompt collects bytes until '>' or the deadline. Hitting the
// deadline is not an error; the partial response is returned as is.
func (p *SerialPort) readUntilPrompt() (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	deadline := time.Now().Add(p.timeout)

	for time.Now().Before(deadline) {
		n, err := p.port.Read(buf)
		if err != nil {
			// tarm/serial reports EOF when ReadTimeout elapses with no data
			if err == io.EOF {
				continue
			}
			return sb.String(), fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			continue
		}
		if buf[0] == prompt {
			return sb.String(), nil
		}
		sb.WriteByte(buf[0])
	}
	return sb.String(), nil
}

func (p *SerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", p.device, err)
	}
	return nil
}

func (p *SerialPort) Description() string {
	return fmt.Sprintf("%s @ %d baud", p.device, p.baud)
}
