package render

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Surface is an off-screen frame the coordinator draws into. Flush pushes
// the whole frame to the panel; there are no partial updates.
type Surface interface {
	Bounds() image.Rectangle
	Clear()
	Text(x, y, size int, s string)
	TextWidth(size int, s string) int
	TextHeight(size int) int
	Rect(r image.Rectangle)
	FillRect(r image.Rectangle)
	Flush() error
}

// Sink receives complete frames.
type Sink interface {
	Show(img image.Image) error
}

var (
	paper = color.Gray{Y: 0xff}
	ink   = color.Gray{Y: 0x00}
)

var face = basicfont.Face7x13

// Canvas is a grayscale frame buffer. Text is drawn with the 7x13 bitmap
// font, magnified by an integer size factor. (x, y) is the top-left corner.
type Canvas struct {
	img  *image.Gray
	sink Sink
	last *image.Gray
}

func NewCanvas(width, height int, sink Sink) *Canvas {
	c := &Canvas{
		img:  image.NewGray(image.Rect(0, 0, width, height)),
		sink: sink,
	}
	c.Clear()
	return c
}

func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(paper), image.Point{}, draw.Src)
}

func (c *Canvas) Text(x, y, size int, s string) {
	if size < 1 {
		size = 1
	}
	w := font.MeasureString(face, s).Ceil()
	if w == 0 {
		return
	}

	glyphs := image.NewAlpha(image.Rect(0, 0, w, face.Height))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)

	dst := image.Rect(x, y, x+w*size, y+face.Height*size)
	mask := image.NewAlpha(image.Rect(0, 0, dst.Dx(), dst.Dy()))
	xdraw.NearestNeighbor.Scale(mask, mask.Bounds(), glyphs, glyphs.Bounds(), xdraw.Src, nil)
	draw.DrawMask(c.img, dst, image.NewUniform(ink), image.Point{}, mask, image.Point{}, draw.Over)
}

func (c *Canvas) TextWidth(size int, s string) int {
	if size < 1 {
		size = 1
	}
	return font.MeasureString(face, s).Ceil() * size
}

func (c *Canvas) TextHeight(size int) int {
	if size < 1 {
		size = 1
	}
	return face.Height * size
}

func (c *Canvas) Rect(r image.Rectangle) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	c.FillRect(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1))
	c.FillRect(image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y))
	c.FillRect(image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y))
	c.FillRect(image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y))
}

func (c *Canvas) FillRect(r image.Rectangle) {
	draw.Draw(c.img, r.Canon().Intersect(c.img.Bounds()), image.NewUniform(ink), image.Point{}, draw.Src)
}

// Flush sends the current frame to the sink and keeps a copy for Frame.
func (c *Canvas) Flush() error {
	frame := image.NewGray(c.img.Bounds())
	copy(frame.Pix, c.img.Pix)
	c.last = frame
	if c.sink == nil {
		return nil
	}
	return c.sink.Show(frame)
}

// Frame returns the last flushed frame, or nil before the first flush.
func (c *Canvas) Frame() *image.Gray {
	return c.last
}
