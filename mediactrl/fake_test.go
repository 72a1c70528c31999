package mediactrl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/svanichkin/asciiplay/codec"
	"github.com/svanichkin/asciiplay/source"
)

type fakeSource struct {
	mu      sync.Mutex
	meta    source.VideoMetadata
	tag     uint8
	failAt  map[int]error
	endAt   int // streams with unknown length end here
	decodes map[int]int
	closed  bool
}

func newFakeSource(tag uint8, frames int, hasAudio bool) *fakeSource {
	meta := source.NewMetadata(2, 2, 10, float64(frames)/10, "fake", hasAudio)
	meta.TotalFrames = frames
	return &fakeSource{
		meta:    meta,
		tag:     tag,
		failAt:  map[int]error{},
		decodes: map[int]int{},
	}
}

func (f *fakeSource) Metadata() source.VideoMetadata { return f.meta }

func (f *fakeSource) Frame(ctx context.Context, index int) (codec.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return codec.Frame{}, err
	}
	f.decodes[index]++
	if err, ok := f.failAt[index]; ok {
		return codec.Frame{}, err
	}
	if (f.meta.TotalFrames > 0 && index >= f.meta.TotalFrames) || (f.endAt > 0 && index >= f.endAt) {
		return codec.Frame{}, &source.Error{Kind: source.KindEndOfStream, Op: "frame", Err: fmt.Errorf("index %d", index)}
	}
	fr := codec.NewFrame(2, 2)
	fr.Fill(f.tag, uint8(index), 0)
	return fr, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) decodeCount(index int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decodes[index]
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func openerOf(sources map[string]*fakeSource) OpenFunc {
	return func(_ context.Context, path string) (FrameSource, error) {
		s, ok := sources[path]
		if !ok {
			return nil, &source.Error{Kind: source.KindNotFound, Op: "open", Path: path}
		}
		return s, nil
	}
}

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.t = c.t.Add(d)
	return c.t
}

type fakeAudio struct {
	starts  []time.Duration
	stops   int
	volume  float64
	muted   bool
	failure error
}

func (a *fakeAudio) Start(_ string, offset time.Duration) error {
	a.starts = append(a.starts, offset)
	return a.failure
}
func (a *fakeAudio) Stop()               { a.stops++ }
func (a *fakeAudio) SetVolume(v float64) { a.volume = v }
func (a *fakeAudio) SetMuted(m bool)     { a.muted = m }
