package smp

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"go.bug.st/serial"
)

// readPollInterval bounds a single blocking port read so the overall Recv
// deadline and context cancellation stay responsive.
const readPollInterval = 20 * time.Millisecond

// maxLineLength caps the line buffer against unframed console noise that
// never terminates in a newline.
const maxLineLength = 4096

// SerialConfig describes an SMP-over-serial connection. Zero values select
// the package defaults.
type SerialConfig struct {
	// Device is the serial port name. Empty selects the sole connected port;
	// zero or several candidates is a configuration error.
	Device         string
	BaudRate       int
	LineLength     int
	MTU            int
	InitialTimeout time.Duration
}

// SerialTransport frames SMP packets onto a serial port using the console
// line framing (markers, base64, CRC16).
type SerialTransport struct {
	port    serial.Port
	cfg     SerialConfig
	timeout time.Duration

	line []byte
	dec  frameDecoder
}

var _ Transport = (*SerialTransport)(nil)

// OpenSerial opens the configured device at 8N1 with no flow control.
func OpenSerial(cfg SerialConfig) (*SerialTransport, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.LineLength == 0 {
		cfg.LineLength = DefaultLineLength
	}
	if cfg.MTU == 0 {
		cfg.MTU = DefaultMTU
	}
	if cfg.InitialTimeout == 0 {
		cfg.InitialTimeout = DefaultInitialTimeout
	}

	if cfg.Device == "" {
		device, err := detectSerialDevice()
		if err != nil {
			return nil, err
		}
		cfg.Device = device
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	if err := port.SetReadTimeout(readPollInterval); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Device, err)
	}

	slog.Debug("opened serial port", "device", cfg.Device, "baudrate", cfg.BaudRate)

	return &SerialTransport{
		port:    port,
		cfg:     cfg,
		timeout: cfg.InitialTimeout,
	}, nil
}

// detectSerialDevice picks the single connected serial port. On macOS only
// cu.usbmodem* ports count as candidates when any are present, since the tty
// siblings and built-in ports never carry an SMP console.
func detectSerialDevice() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}

	if runtime.GOOS == "darwin" {
		var usb []string
		for _, p := range ports {
			if strings.Contains(p, "cu.usbmodem") {
				usb = append(usb, p)
			}
		}
		if len(usb) > 0 {
			ports = usb
		}
	}

	switch len(ports) {
	case 0:
		return "", &ConfigError{Reason: "no serial port found"}
	case 1:
		slog.Info("one serial port found, using it", "device", ports[0])
		return ports[0], nil
	default:
		return "", &ConfigError{Reason: fmt.Sprintf(
			"more than one serial port found, specify one of: %s", strings.Join(ports, ", "))}
	}
}

// Send discards pending input, so the next response pairs with this request,
// and writes the framed packet.
func (t *SerialTransport) Send(ctx context.Context, packet []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_ = t.port.ResetInputBuffer()
	t.line = t.line[:0]
	t.dec.reset()

	framed, err := EncodeFrame(packet, t.cfg.LineLength)
	if err != nil {
		return err
	}
	if _, err := t.port.Write(framed); err != nil {
		return fmt.Errorf("write to %s: %w", t.cfg.Device, err)
	}
	return nil
}

// Recv polls the port and feeds complete lines to the frame decoder until a
// valid packet arrives or the deadline passes. Corrupt frames are logged and
// dropped; the line buffer survives across calls so a packet split between
// reads is reassembled.
func (t *SerialTransport) Recv(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(t.timeout)
	buf := make([]byte, 256)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}

		n, err := t.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read from %s: %w", t.cfg.Device, err)
		}

		for _, b := range buf[:n] {
			if b != '\n' {
				if len(t.line) < maxLineLength {
					t.line = append(t.line, b)
				}
				continue
			}

			packet, err := t.dec.Line(t.line)
			t.line = t.line[:0]
			if err != nil {
				slog.Debug("dropped corrupt frame", "err", err)
				continue
			}
			if packet != nil {
				return packet, nil
			}
		}
	}
}

func (t *SerialTransport) SetTimeout(d time.Duration) {
	t.timeout = d
}

func (t *SerialTransport) FramedSize(packetLen int) int {
	return FramedSize(packetLen, t.cfg.LineLength)
}

func (t *SerialTransport) MTU() int {
	return t.cfg.MTU
}

func (t *SerialTransport) Close() error {
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("close serial port %s: %w", t.cfg.Device, err)
	}
	return nil
}
