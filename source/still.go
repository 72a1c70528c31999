package source

import (
	"errors"
	"io/fs"

	"github.com/disintegration/imaging"

	"github.com/svanichkin/asciiplay/codec"
)

// LoadImage decodes a still image into a frame, honouring EXIF orientation.
func LoadImage(path string) (codec.Frame, error) {
	const op = "load_image"
	if _, err := checkMedia(op, path); err != nil {
		return codec.Frame{}, err
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return codec.Frame{}, newError(KindIO, op, path, err)
		}
		return codec.Frame{}, newError(KindDecoding, op, path, err)
	}
	f := codec.FrameFromImage(img)
	if !f.Valid() {
		return codec.Frame{}, newError(KindDecoding, op, path, errors.New("empty image"))
	}
	return f, nil
}
