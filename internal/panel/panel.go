// Package panel pushes finished frames to a physical or virtual display.
package panel

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
)

// Panel shows complete frames and can be powered down between refreshes.
type Panel interface {
	Show(img image.Image) error
	Sleep() error
	Wake() error
	Close() error
}

// PNG writes every frame to a file. Useful on hosts without a panel and for
// checking layouts.
type PNG struct {
	path string

	mu       sync.Mutex
	sleeping bool
	frames   int
}

func NewPNG(path string) *PNG {
	return &PNG{path: path}
}

// Show replaces the file atomically so readers never see a partial image.
func (p *PNG) Show(img image.Image) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".frame-*.png")
	if err != nil {
		return fmt.Errorf("creating frame file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("replacing frame: %w", err)
	}

	p.sleeping = false
	p.frames++
	return nil
}

func (p *PNG) Sleep() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sleeping = true
	return nil
}

func (p *PNG) Wake() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sleeping = false
	return nil
}

func (p *PNG) Close() error {
	return nil
}

// Sleeping reports whether Sleep was called since the last frame or Wake.
func (p *PNG) Sleeping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sleeping
}

// Frames returns how many frames were written.
func (p *PNG) Frames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}
