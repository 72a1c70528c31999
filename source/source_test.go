package source

import (
	"context"
	"errors"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svanichkin/asciiplay/codec"
)

type fakeDecoder struct {
	meta      VideoMetadata
	openErr   error
	extracted []string
}

func (d *fakeDecoder) Probe(context.Context, string) (VideoMetadata, error) {
	return d.meta, d.openErr
}

func (d *fakeDecoder) Open(ctx context.Context, path string) (Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return &fakeStream{meta: d.meta}, nil
}

func (d *fakeDecoder) Extract(_ context.Context, _ string, dir string, _ float64) error {
	for _, name := range d.extracted {
		if err := imagingSave(filepath.Join(dir, name), color.NRGBA{R: 10, G: 20, B: 30, A: 255}); err != nil {
			return err
		}
	}
	return nil
}

type fakeStream struct {
	meta   VideoMetadata
	closed bool
}

func (s *fakeStream) Metadata() VideoMetadata { return s.meta }
func (s *fakeStream) Frame(_ context.Context, index int) (codec.Frame, error) {
	f := codec.NewFrame(s.meta.Width, s.meta.Height)
	f.Fill(uint8(index), 0, 0)
	return f, nil
}
func (s *fakeStream) Close() error { s.closed = true; return nil }

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategySeek, s)
	s, err = ParseStrategy("EXTRACT")
	require.NoError(t, err)
	assert.Equal(t, StrategyExtract, s)
	assert.Equal(t, "extract", s.String())
	_, err = ParseStrategy("magic")
	assert.Error(t, err)
}

func TestOpenerSeekBounds(t *testing.T) {
	clip := filepath.Join(t.TempDir(), "clip.mp4")
	writeFile(t, clip, []byte("x"))
	dec := &fakeDecoder{meta: NewMetadata(4, 2, 10, 1, "mp4", false)}
	op := &Opener{Decoder: dec, Extractor: dec}

	src, err := op.Open(context.Background(), clip)
	require.NoError(t, err)
	assert.Equal(t, 10, src.Metadata().TotalFrames)
	assert.Equal(t, MediaVideo, src.Kind())

	f, err := src.Frame(context.Background(), 9)
	require.NoError(t, err)
	r, _, _ := f.At(0, 0)
	assert.Equal(t, uint8(9), r)

	_, err = src.Frame(context.Background(), 10)
	assert.ErrorIs(t, err, ErrEndOfStream)
	_, err = src.Frame(context.Background(), -1)
	assert.ErrorIs(t, err, ErrEndOfStream)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
}

func TestOpenerErrors(t *testing.T) {
	dec := &fakeDecoder{}
	op := &Opener{Decoder: dec, Extractor: dec}

	_, err := op.Open(context.Background(), "/nonexistent/path.mp4")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = op.Open(context.Background(), "file.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	clip := filepath.Join(t.TempDir(), "clip.mp4")
	writeFile(t, clip, []byte("x"))
	dec.openErr = newError(KindDecoding, "probe", clip, errors.New("moov atom not found"))
	_, err = op.Open(context.Background(), clip)
	assert.ErrorIs(t, err, ErrDecoding)
}

func TestOpenerStillImage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "still.png")
	writeGradient(t, p, 16, 8)
	src, err := (&Opener{}).Open(context.Background(), p)
	require.NoError(t, err)

	meta := src.Metadata()
	assert.Equal(t, 1, meta.TotalFrames)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, MediaImage, src.Kind())
	_, err = src.Frame(context.Background(), 0)
	require.NoError(t, err)
	_, err = src.Frame(context.Background(), 1)
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestOpenerExtract(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "clip.mov")
	writeFile(t, clip, []byte("x"))
	wd, err := NewWorkdir(filepath.Join(dir, "work"))
	require.NoError(t, err)

	dec := &fakeDecoder{
		meta:      NewMetadata(2, 2, 30, 3, "mov", true),
		extracted: []string{"frame_00001.png", "frame_00002.png", "frame_00003.png"},
	}
	op := &Opener{Decoder: dec, Extractor: dec, Options: Options{Strategy: StrategyExtract, ExtractFPS: 2, Workdir: wd}}

	src, err := op.Open(context.Background(), clip)
	require.NoError(t, err)
	meta := src.Metadata()
	assert.Equal(t, 2.0, meta.FPS)
	assert.Equal(t, 3, meta.TotalFrames)
	assert.Equal(t, 1.5, meta.Duration)
	assert.True(t, meta.HasAudio)

	dec.extracted = nil
	_, err = op.Open(context.Background(), clip)
	assert.ErrorIs(t, err, ErrDecoding, "reset leaves no stale frames behind")
}

func TestMemorySource(t *testing.T) {
	frames := []codec.Frame{codec.NewFrame(1, 1), codec.NewFrame(1, 1)}
	src := NewMemorySource("mem", VideoMetadata{FPS: 5}, frames)
	assert.Equal(t, 2, src.Metadata().TotalFrames)
	f, err := src.Frame(context.Background(), 1)
	require.NoError(t, err)
	f.Fill(9, 9, 9)
	again, _ := src.Frame(context.Background(), 1)
	r, _, _ := again.At(0, 0)
	assert.Zero(t, r, "frames are handed out as copies")
}
