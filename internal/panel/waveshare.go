package panel

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v4"
	"periph.io/x/host/v3"
)

// Waveshare drives a Waveshare 2.13" e-paper HAT over SPI. The panel is
// mounted landscape; frames are scaled to fit and rotated into the
// controller's portrait memory layout.
type Waveshare struct {
	port     spi.PortCloser
	dev      *waveshare2in13v4.Dev
	sleeping bool
}

// OpenWaveshare initializes the host drivers, opens the SPI port (empty name
// picks the first one) and clears the panel.
func OpenWaveshare(spiPort string) (*Waveshare, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing host drivers: %w", err)
	}

	port, err := spireg.Open(spiPort)
	if err != nil {
		return nil, fmt.Errorf("opening spi port: %w", err)
	}

	opts := waveshare2in13v4.EPD2in13v4
	dev, err := waveshare2in13v4.NewHat(port, &opts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("opening e-paper hat: %w", err)
	}

	if err := dev.Init(); err != nil {
		port.Close()
		return nil, fmt.Errorf("initializing panel: %w", err)
	}
	if err := dev.Clear(color.White); err != nil {
		port.Close()
		return nil, fmt.Errorf("clearing panel: %w", err)
	}

	return &Waveshare{port: port, dev: dev}, nil
}

func (w *Waveshare) Show(img image.Image) error {
	if w.sleeping {
		if err := w.Wake(); err != nil {
			return err
		}
	}

	bounds := w.dev.Bounds()
	portrait := Portrait(img, bounds)

	frame := image1bit.NewVerticalLSB(bounds)
	draw.Draw(frame, bounds, portrait, bounds.Min, draw.Src)

	if err := w.dev.Draw(bounds, frame, bounds.Min); err != nil {
		return fmt.Errorf("drawing frame: %w", err)
	}

	// The panel keeps its image unpowered; sleeping between frames saves power.
	if err := w.dev.Sleep(); err != nil {
		return fmt.Errorf("sleeping panel: %w", err)
	}
	w.sleeping = true
	return nil
}

func (w *Waveshare) Sleep() error {
	if w.sleeping {
		return nil
	}
	if err := w.dev.Sleep(); err != nil {
		return fmt.Errorf("sleeping panel: %w", err)
	}
	w.sleeping = true
	return nil
}

func (w *Waveshare) Wake() error {
	if err := w.dev.Init(); err != nil {
		return fmt.Errorf("waking panel: %w", err)
	}
	w.sleeping = false
	return nil
}

func (w *Waveshare) Close() error {
	if err := w.dev.Halt(); err != nil {
		w.port.Close()
		return fmt.Errorf("halting panel: %w", err)
	}
	return w.port.Close()
}

// Portrait scales a landscape frame down to a portrait panel of the given
// bounds, rotating it 90 degrees clockwise.
func Portrait(src image.Image, panel image.Rectangle) *image.Gray {
	landscape := image.NewGray(image.Rect(0, 0, panel.Dy(), panel.Dx()))
	xdraw.ApproxBiLinear.Scale(landscape, landscape.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	w, h := landscape.Bounds().Dx(), landscape.Bounds().Dy()
	dst := image.NewGray(image.Rect(0, 0, h, w))
	for y := 0; y < w; y++ {
		for x := 0; x < h; x++ {
			dst.SetGray(x, y, landscape.GrayAt(y, h-1-x))
		}
	}
	return dst
}
