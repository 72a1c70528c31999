package codec

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Frame represents a raw RGB24 image (packed as [R G B], row-major, top-to-bottom).
type Frame struct {
	Data          []byte
	Width, Height int
}

// NewFrame allocates a black frame of the given size.
func NewFrame(width, height int) Frame {
	if width <= 0 || height <= 0 {
		return Frame{}
	}
	return Frame{Data: make([]byte, width*height*3), Width: width, Height: height}
}

// Valid reports whether the frame has positive dimensions and a buffer of the right size.
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Data) == f.Width*f.Height*3
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

// Clone returns a deep copy so the caller can mutate it without touching the original.
func (f Frame) Clone() Frame {
	if f.Data == nil {
		return Frame{Width: f.Width, Height: f.Height}
	}
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return Frame{Data: data, Width: f.Width, Height: f.Height}
}

// At returns the RGB triplet at (x, y). Out of range coordinates return black.
func (f Frame) At(x, y int) (r, g, b uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, 0, 0
	}
	off := (y*f.Width + x) * 3
	if off+2 >= len(f.Data) {
		return 0, 0, 0
	}
	return f.Data[off], f.Data[off+1], f.Data[off+2]
}

// Fill paints every pixel with the given colour.
func (f Frame) Fill(r, g, b uint8) {
	for i := 0; i+2 < len(f.Data); i += 3 {
		f.Data[i] = r
		f.Data[i+1] = g
		f.Data[i+2] = b
	}
}

// FrameFromRGB wraps an RGB24 buffer, validating its size. The buffer is not copied.
func FrameFromRGB(data []byte, width, height int) (Frame, error) {
	if width <= 0 || height <= 0 {
		return Frame{}, fmt.Errorf("bad frame size %dx%d", width, height)
	}
	if len(data) != width*height*3 {
		return Frame{}, fmt.Errorf("frame data size mismatch: got %d, want %d", len(data), width*height*3)
	}
	return Frame{Data: data, Width: width, Height: height}, nil
}

// FrameFromImage normalises any decoded image (paletted, gray, YCbCr, CMYK, with or without
// alpha) into an RGB24 frame. Transparent pixels are composited over black.
func FrameFromImage(img image.Image) Frame {
	if img == nil {
		return Frame{}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return Frame{}
	}
	src, ok := img.(*image.NRGBA)
	if !ok || src.Rect.Min != (image.Point{}) {
		src = imaging.Clone(img)
	}
	out := NewFrame(w, h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		dst := out.Data[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			s := row[x*4 : x*4+4]
			a := uint32(s[3])
			d := dst[x*3 : x*3+3]
			if a == 0xff {
				d[0], d[1], d[2] = s[0], s[1], s[2]
				continue
			}
			d[0] = uint8(uint32(s[0]) * a / 0xff)
			d[1] = uint8(uint32(s[1]) * a / 0xff)
			d[2] = uint8(uint32(s[2]) * a / 0xff)
		}
	}
	return out
}

// Image exposes the frame as an opaque NRGBA image for resampling.
func (f Frame) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	if !f.Valid() {
		return img
	}
	for i, j := 0, 0; i+2 < len(f.Data); i, j = i+3, j+4 {
		img.Pix[j] = f.Data[i]
		img.Pix[j+1] = f.Data[i+1]
		img.Pix[j+2] = f.Data[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
