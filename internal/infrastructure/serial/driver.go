// Package serial adapts a serial port to the modem line protocol.
package serial

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	bugserial "go.bug.st/serial"

	"NewsBroadcaster/internal/gateway"
)

// DefaultBaudRate matches the SIM800C bridge firmware.
const DefaultBaudRate = 9600

// Config selects the port. An empty Port picks the first port the OS reports.
type Config struct {
	Port     string
	BaudRate int
}

// Driver is a gateway.Driver over go.bug.st/serial.
type Driver struct {
	cfg     Config
	open    func(name string, mode *bugserial.Mode) (bugserial.Port, error)
	list    func() ([]string, error)
	port    bugserial.Port
	pending []byte
}

var _ gateway.Driver = (*Driver)(nil)

func NewDriver(cfg Config) *Driver {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	return &Driver{cfg: cfg, open: bugserial.Open, list: bugserial.GetPortsList}
}

// Open opens the configured port with 8N1 framing.
func (d *Driver) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.port != nil {
		return nil
	}

	name, err := d.portName()
	if err != nil {
		return err
	}

	port, err := d.open(name, &bugserial.Mode{
		BaudRate: d.cfg.BaudRate,
		DataBits: 8,
		Parity:   bugserial.NoParity,
		StopBits: bugserial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return fmt.Errorf("reset input %s: %w", name, err)
	}

	d.port = port
	d.pending = d.pending[:0]
	return nil
}

func (d *Driver) WriteCommand(command string) error {
	if d.port == nil {
		return errors.New("serial port is not open")
	}
	if _, err := io.WriteString(d.port, command); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// ReadLine waits up to timeout for one complete line.
func (d *Driver) ReadLine(timeout time.Duration) (string, error) {
	if d.port == nil {
		return "", io.EOF
	}
	if line, ok := d.takeLine(); ok {
		return line, nil
	}

	if err := d.port.SetReadTimeout(timeout); err != nil {
		return "", fmt.Errorf("set read timeout: %w", err)
	}

	buf := make([]byte, 256)
	n, err := d.port.Read(buf)
	if err != nil {
		return "", err
	}
	d.pending = append(d.pending, buf[:n]...)

	if line, ok := d.takeLine(); ok {
		return line, nil
	}
	return "", nil
}

func (d *Driver) Close() error {
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	d.pending = d.pending[:0]
	return err
}

// Ports lists the serial ports the OS knows about.
func (d *Driver) Ports() ([]string, error) {
	return d.list()
}

func (d *Driver) takeLine() (string, bool) {
	idx := bytes.IndexByte(d.pending, '\n')
	if idx < 0 {
		return "", false
	}
	line := strings.TrimRight(string(d.pending[:idx]), "\r")
	d.pending = append(d.pending[:0], d.pending[idx+1:]...)
	return line, true
}

func (d *Driver) portName() (string, error) {
	if d.cfg.Port != "" {
		return d.cfg.Port, nil
	}
	ports, err := d.list()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}
	return ports[0], nil
}
