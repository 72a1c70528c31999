package source

import (
	"context"

	"github.com/svanichkin/asciiplay/codec"
)

// Decoder is the external decoding capability. Implementations may shell out to a tool
// or link a native library; callers only see the NotFound / UnsupportedFormat /
// Decoding / ToolMissing contract carried by *Error.
type Decoder interface {
	// Probe reads container metadata without decoding pixels.
	Probe(ctx context.Context, path string) (VideoMetadata, error)
	// Open prepares frame-by-index access to the first video stream of path.
	Open(ctx context.Context, path string) (Stream, error)
}

// Stream gives indexed access to decoded frames of one opened video.
type Stream interface {
	Metadata() VideoMetadata
	// Frame decodes the frame at index. Indices past the last decodable frame return
	// an error of kind EndOfStream.
	Frame(ctx context.Context, index int) (codec.Frame, error)
	Close() error
}

// Extractor samples a video into numbered still images inside dir.
type Extractor interface {
	Extract(ctx context.Context, path, dir string, rate float64) error
}
