package mediactrl

import (
	"github.com/disintegration/imaging"

	"github.com/svanichkin/asciiplay/codec"
)

func imagingSave(path string, f codec.Frame) error {
	return imaging.Save(f.Image(), path)
}
