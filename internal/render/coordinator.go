// Package render lays departure boards out on the panel frame.
package render

import (
	"fmt"
	"image"
	"strconv"

	"github.com/danpilch/tramboard/internal/board"
)

// Placeholder replaces countdowns of departures that are already due.
const Placeholder = "--"

const (
	margin        = 10
	headerSize    = 3
	labelSize     = 2
	countdownSize = 4
	messageSize   = 2
	maxRowHeight  = 90
)

// Aux is optional status drawn in the top-right corner.
type Aux struct {
	Battery    int
	HasBattery bool
}

// Coordinator is the only writer of the frame.
type Coordinator struct {
	surface Surface
	rows    int
}

// NewCoordinator draws up to rows departures per column onto surface.
func NewCoordinator(surface Surface, rows int) *Coordinator {
	if rows < 1 {
		rows = board.DefaultDisplayRows
	}
	return &Coordinator{surface: surface, rows: rows}
}

// Countdown formats minutes until departure: "5'" or the placeholder for
// departures whose time has already passed.
func Countdown(minutes int) string {
	if minutes < 0 {
		return Placeholder
	}
	return strconv.Itoa(minutes) + "'"
}

// ErrorText is the message shown in a column whose feed failed.
func ErrorText(b board.StationBoard) string {
	switch b.Status {
	case board.StatusUnreachable:
		if b.HTTPStatus > 0 {
			return fmt.Sprintf("HTTP error: %d", b.HTTPStatus)
		}
		return "No connection"
	case board.StatusMalformed:
		return "JSON parse error"
	default:
		return ""
	}
}

// Render redraws the whole frame with two station columns and flushes once.
func (c *Coordinator) Render(left, right board.StationBoard, aux Aux) error {
	s := c.surface
	bounds := s.Bounds()
	colWidth := bounds.Dx() / 2

	s.Clear()
	if aux.HasBattery {
		c.drawBattery(aux.Battery)
	}
	c.drawColumn(left, bounds.Min.X+margin, colWidth-2*margin)
	c.drawColumn(right, bounds.Min.X+colWidth+margin, colWidth-2*margin)

	if err := s.Flush(); err != nil {
		return fmt.Errorf("flushing frame: %w", err)
	}
	return nil
}

// RenderMessage shows a full-screen status message, one line per argument.
func (c *Coordinator) RenderMessage(size int, lines ...string) error {
	s := c.surface
	bounds := s.Bounds()
	s.Clear()

	lineHeight := s.TextHeight(size) * 3 / 2
	y := bounds.Min.Y + (bounds.Dy()-lineHeight*len(lines))/2
	for _, line := range lines {
		x := bounds.Min.X + (bounds.Dx()-s.TextWidth(size, line))/2
		if x < bounds.Min.X+margin {
			x = bounds.Min.X + margin
		}
		s.Text(x, y, size, line)
		y += lineHeight
	}

	if err := s.Flush(); err != nil {
		return fmt.Errorf("flushing frame: %w", err)
	}
	return nil
}

func (c *Coordinator) drawColumn(b board.StationBoard, x, width int) {
	s := c.surface
	top := s.Bounds().Min.Y + margin

	s.Text(x, top, headerSize, b.Station)
	y := top + s.TextHeight(headerSize) + margin

	if !b.OK() {
		s.Text(x, y, messageSize, ErrorText(b))
		return
	}

	rowHeight := (s.Bounds().Max.Y - y) / c.rows
	if rowHeight > maxRowHeight {
		rowHeight = maxRowHeight
	}
	countdownHeight := s.TextHeight(countdownSize)
	labelOffset := (countdownHeight - s.TextHeight(labelSize)) / 2

	for i, dep := range b.Departures {
		if i >= c.rows {
			break
		}
		countdown := Countdown(dep.MinutesUntil)
		s.Text(x+5, y+labelOffset, labelSize, dep.Label)
		s.Text(x+width-s.TextWidth(countdownSize, countdown), y, countdownSize, countdown)
		y += rowHeight
	}
}

// drawBattery draws the charge percentage and a battery icon in the
// top-right corner.
func (c *Coordinator) drawBattery(percent int) {
	s := c.surface
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	bounds := s.Bounds()
	x := bounds.Max.X - 70
	y := bounds.Min.Y + margin

	s.Text(x, y, 2, strconv.Itoa(percent)+"%")

	icon := image.Rect(x-50, y, x-10, y+20)
	s.Rect(icon)
	s.FillRect(image.Rect(x-10, y+6, x-5, y+14))
	if fill := percent * 36 / 100; fill > 0 {
		s.FillRect(image.Rect(x-48, y+2, x-48+fill, y+18))
	}
}
