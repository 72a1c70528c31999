// Package source turns a media path into indexed RGB frames, either by decoding on
// demand through a running ffmpeg process or by extracting a PNG sequence up front.
package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/svanichkin/asciiplay/codec"
	"github.com/svanichkin/asciiplay/logs"
)

// Strategy selects how frames are obtained from a video.
type Strategy int

const (
	StrategySeek Strategy = iota
	StrategyExtract
)

// DefaultExtractFPS is the bulk extraction sample rate.
const DefaultExtractFPS = 10.0

func (s Strategy) String() string {
	if s == StrategyExtract {
		return "extract"
	}
	return "seek"
}

// ParseStrategy accepts "seek" and "extract"; empty means seek.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "seek":
		return StrategySeek, nil
	case "extract":
		return StrategyExtract, nil
	}
	return StrategySeek, fmt.Errorf("unknown strategy %q", s)
}

// Options configure an Opener.
type Options struct {
	Strategy   Strategy
	ExtractFPS float64
	Workdir    *Workdir
}

// Opener builds Sources. Decoder and Extractor are usually the same *FFmpeg.
type Opener struct {
	Decoder   Decoder
	Extractor Extractor
	Options   Options

	log zerolog.Logger
}

// NewOpener wires the ffmpeg backend for both decoding and extraction.
func NewOpener(ff *FFmpeg, opts Options) *Opener {
	return &Opener{Decoder: ff, Extractor: ff, Options: opts, log: logs.For("source")}
}

// Open resolves path into a ready Source. The returned error is always a *Error
// unless ctx was cancelled.
func (o *Opener) Open(ctx context.Context, path string) (*Source, error) {
	kind, err := checkMedia("open", path)
	if err != nil {
		return nil, err
	}
	if kind == MediaImage {
		frame, err := LoadImage(path)
		if err != nil {
			return nil, err
		}
		meta := NewMetadata(frame.Width, frame.Height, DefaultFPS, 0, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."), false)
		meta.TotalFrames = 1
		return &Source{path: path, kind: kind, meta: meta, frames: []codec.Frame{frame}}, nil
	}
	if o.Decoder == nil {
		return nil, newError(KindToolMissing, "open", path, errors.New("no decoder configured"))
	}
	if o.Options.Strategy == StrategyExtract {
		return o.openExtracted(ctx, path)
	}
	stream, err := o.Decoder.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	meta := stream.Metadata()
	o.log.Info().Str("path", path).Int("width", meta.Width).Int("height", meta.Height).
		Float64("fps", meta.FPS).Int("frames", meta.TotalFrames).Msg("opened for seeking")
	return &Source{path: path, kind: kind, meta: meta, stream: stream}, nil
}

func (o *Opener) openExtracted(ctx context.Context, path string) (*Source, error) {
	if o.Extractor == nil {
		return nil, newError(KindToolMissing, "extract", path, errors.New("no extractor configured"))
	}
	meta, err := o.Decoder.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	wd := o.Options.Workdir
	if wd == nil {
		if wd, err = NewWorkdir(""); err != nil {
			return nil, err
		}
		o.Options.Workdir = wd
	}
	if err := wd.Reset(); err != nil {
		return nil, err
	}
	rate := o.Options.ExtractFPS
	if rate <= 0 {
		rate = DefaultExtractFPS
	}
	if err := o.Extractor.Extract(ctx, path, wd.Path(), rate); err != nil {
		return nil, err
	}
	frames, err := LoadSequence(wd.Path())
	if err != nil {
		return nil, err
	}
	meta.FPS = rate
	meta.TotalFrames = len(frames)
	meta.Duration = float64(len(frames)) / rate
	o.log.Info().Str("path", path).Int("frames", len(frames)).Float64("rate", rate).Msg("extracted frame sequence")
	return &Source{path: path, kind: MediaVideo, meta: meta, frames: frames}, nil
}

// Source is one opened piece of media. Frames are either held in memory
// (stills, extracted sequences) or pulled from a decoder stream.
type Source struct {
	path   string
	kind   MediaKind
	meta   VideoMetadata
	frames []codec.Frame
	stream Stream

	closeOnce sync.Once
	closeErr  error
}

// NewMemorySource wraps already decoded frames, mostly for tests and tools.
func NewMemorySource(path string, meta VideoMetadata, frames []codec.Frame) *Source {
	meta.TotalFrames = len(frames)
	return &Source{path: path, kind: MediaVideo, meta: meta, frames: frames}
}

func (s *Source) Path() string            { return s.path }
func (s *Source) Kind() MediaKind         { return s.kind }
func (s *Source) Metadata() VideoMetadata { return s.meta }

// Frame returns the frame at index. Indices outside [0, TotalFrames) are EndOfStream.
// When TotalFrames is unknown (0) a streaming source decodes until the stream ends.
func (s *Source) Frame(ctx context.Context, index int) (codec.Frame, error) {
	if index < 0 {
		return codec.Frame{}, newError(KindEndOfStream, "frame", s.path, fmt.Errorf("index %d", index))
	}
	if s.stream == nil {
		if index >= len(s.frames) {
			return codec.Frame{}, newError(KindEndOfStream, "frame", s.path, fmt.Errorf("index %d of %d", index, len(s.frames)))
		}
		return s.frames[index].Clone(), nil
	}
	if s.meta.TotalFrames > 0 && index >= s.meta.TotalFrames {
		return codec.Frame{}, newError(KindEndOfStream, "frame", s.path, fmt.Errorf("index %d of %d", index, s.meta.TotalFrames))
	}
	return s.stream.Frame(ctx, index)
}

func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		if s.stream != nil {
			s.closeErr = s.stream.Close()
		}
	})
	return s.closeErr
}
