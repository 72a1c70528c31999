package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MediaKind tells videos from still images.
type MediaKind int

const (
	MediaUnknown MediaKind = iota
	MediaVideo
	MediaImage
)

func (k MediaKind) String() string {
	switch k {
	case MediaVideo:
		return "video"
	case MediaImage:
		return "image"
	}
	return "unknown"
}

var videoExts = map[string]struct{}{
	"mp4": {}, "m4v": {}, "avi": {}, "mkv": {}, "mov": {}, "wmv": {}, "flv": {}, "webm": {},
}

var imageExts = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "bmp": {}, "tif": {}, "tiff": {},
}

// Classify looks only at the file extension.
func Classify(path string) MediaKind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if _, ok := videoExts[ext]; ok {
		return MediaVideo
	}
	if _, ok := imageExts[ext]; ok {
		return MediaImage
	}
	return MediaUnknown
}

// IsMedia reports whether path has an extension the player can open.
func IsMedia(path string) bool {
	return Classify(path) != MediaUnknown
}

// checkMedia validates the extension first and existence second, so an unknown
// extension is UnsupportedFormat even when the file is missing.
func checkMedia(op, path string) (MediaKind, error) {
	kind := Classify(path)
	if kind == MediaUnknown {
		ext := filepath.Ext(path)
		if ext == "" {
			return kind, newError(KindUnsupportedFormat, op, path, fmt.Errorf("no file extension"))
		}
		return kind, newError(KindUnsupportedFormat, op, path, fmt.Errorf("extension %q", ext))
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return kind, newError(KindNotFound, op, path, nil)
		}
		return kind, newError(KindIO, op, path, err)
	}
	if info.IsDir() {
		return kind, newError(KindUnsupportedFormat, op, path, fmt.Errorf("is a directory"))
	}
	return kind, nil
}
