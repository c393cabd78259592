package panel

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPNG_ShowWritesFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	p := NewPNG(path)

	img := image.NewGray(image.Rect(0, 0, 40, 20))
	img.SetGray(3, 4, color.Gray{Y: 0x80})
	require.NoError(t, p.Sleep())
	require.NoError(t, p.Show(img))
	assert.False(t, p.Sleeping())
	assert.Equal(t, 1, p.Frames())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
	assert.Equal(t, color.Gray{Y: 0x80}, color.GrayModel.Convert(decoded.At(3, 4)))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPNG_SleepWake(t *testing.T) {
	p := NewPNG(filepath.Join(t.TempDir(), "frame.png"))
	require.NoError(t, p.Sleep())
	assert.True(t, p.Sleeping())
	require.NoError(t, p.Wake())
	assert.False(t, p.Sleeping())
	assert.NoError(t, p.Close())
}

func TestPNG_ShowFailsForMissingDir(t *testing.T) {
	p := NewPNG(filepath.Join(t.TempDir(), "missing", "frame.png"))
	assert.Error(t, p.Show(image.NewGray(image.Rect(0, 0, 1, 1))))
}

func TestPortrait_RotatesClockwise(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 250, 122))
	for y := 0; y < 122; y++ {
		for x := 0; x < 250; x++ {
			src.SetGray(x, y, color.Gray{Y: 0xff})
		}
	}
	// Mark the landscape top-left corner.
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.SetGray(x, y, color.Gray{Y: 0})
		}
	}

	dst := Portrait(src, image.Rect(0, 0, 122, 250))
	assert.Equal(t, image.Rect(0, 0, 122, 250), dst.Bounds())
	// Landscape top-left ends up at portrait top-right.
	assert.Equal(t, uint8(0), dst.GrayAt(118, 3).Y)
	assert.Equal(t, uint8(0xff), dst.GrayAt(3, 3).Y)
}
