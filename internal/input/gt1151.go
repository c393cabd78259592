package input

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

const (
	gt1151Addr   = 0x14
	regStatus    = 0x814E
	regPoints    = 0x814F
	pointSize    = 8
	maxPoints    = 5
	wakeInterval = 200 * time.Millisecond

	// maxWakeErrors consecutive failed polls end WaitForWake with an error.
	maxWakeErrors = 5
)

// Bus is the register access the touch controller needs. *i2c.Dev satisfies it.
type Bus interface {
	Tx(w, r []byte) error
}

// GT1151 polls a Goodix GT1151 touch controller.
type GT1151 struct {
	closer   i2c.BusCloser
	dev      Bus
	interval time.Duration
}

// OpenGT1151 opens the controller on the named i2c bus (e.g. "1").
// periph host drivers must already be initialized.
func OpenGT1151(busName string) (*GT1151, error) {
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("opening i2c bus %q: %w", busName, err)
	}
	return &GT1151{
		closer:   bus,
		dev:      &i2c.Dev{Bus: bus, Addr: gt1151Addr},
		interval: wakeInterval,
	}, nil
}

// NewGT1151 wraps an already opened register bus.
func NewGT1151(dev Bus) *GT1151 {
	return &GT1151{dev: dev, interval: wakeInterval}
}

func (g *GT1151) read(reg uint16, n int) ([]byte, error) {
	w := []byte{byte(reg >> 8), byte(reg & 0xFF)}
	r := make([]byte, n)
	if err := g.dev.Tx(w, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (g *GT1151) write(reg uint16, b byte) error {
	return g.dev.Tx([]byte{byte(reg >> 8), byte(reg & 0xFF), b}, nil)
}

// Touched reads the status register and acknowledges any reported points.
func (g *GT1151) Touched() (bool, error) {
	status, err := g.read(regStatus, 1)
	if err != nil {
		return false, fmt.Errorf("reading touch status: %w", err)
	}
	if status[0]&0x80 == 0 {
		return false, nil
	}

	count := int(status[0] & 0x0F)
	if count > 0 && count <= maxPoints {
		if _, err := g.read(regPoints, count*pointSize); err != nil {
			return false, fmt.Errorf("reading touch points: %w", err)
		}
	}
	if err := g.write(regStatus, 0x00); err != nil {
		return false, fmt.Errorf("clearing touch status: %w", err)
	}
	return count > 0 && count <= maxPoints, nil
}

func (g *GT1151) Flush() error {
	if err := g.write(regStatus, 0x00); err != nil {
		return fmt.Errorf("clearing touch status: %w", err)
	}
	return nil
}

// WaitForWake polls slowly until a touch is reported. Isolated read errors
// are retried on the next poll; maxWakeErrors in a row are returned so a
// dead controller cannot keep the board asleep.
func (g *GT1151) WaitForWake(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			touched, err := g.Touched()
			if err != nil {
				failures++
				if failures >= maxWakeErrors {
					return fmt.Errorf("waiting for touch after %d failed polls: %w", failures, err)
				}
				continue
			}
			failures = 0
			if touched {
				return nil
			}
		}
	}
}

func (g *GT1151) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer.Close()
}
