// Package mediactrl owns playback state: which media is loaded, the current frame
// index, play/pause, and pacing of frame advances against the clip's own rate.
//
// A Controller is driven from a single goroutine. The optional prefetch worker
// hands decoded frames back over a channel and never writes the cache itself.
package mediactrl

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/svanichkin/asciiplay/cache"
	"github.com/svanichkin/asciiplay/codec"
	"github.com/svanichkin/asciiplay/logs"
	"github.com/svanichkin/asciiplay/source"
)

const (
	MinFrameRate = 1.0
	MaxFrameRate = 60.0
	VolumeStep   = 0.1

	MsgEndOfMedia = "End of media"
)

// ErrNoMedia is returned by frame commands when nothing is loaded.
var ErrNoMedia = errors.New("no media loaded")

// FrameSource is what the controller needs from opened media.
type FrameSource interface {
	Metadata() source.VideoMetadata
	Frame(ctx context.Context, index int) (codec.Frame, error)
	Close() error
}

// OpenFunc resolves a path into a FrameSource.
type OpenFunc func(ctx context.Context, path string) (FrameSource, error)

// Audio plays the soundtrack of a clip alongside the frames.
type Audio interface {
	Start(path string, offset time.Duration) error
	Stop()
	SetVolume(v float64)
	SetMuted(muted bool)
}

// Options tune a Controller. Zero values pick the defaults, except Volume which is taken as is.
type Options struct {
	CacheSize     int
	CompressCache bool
	Prefetch      int
	Quality       codec.Quality
	FrameRate     float64 // 0 follows the clip
	Volume        float64
	Muted         bool
	Audio         Audio
	Now           func() time.Time
}

// Controller is the playback state machine.
type Controller struct {
	open  OpenFunc
	cache *cache.Cache
	audio Audio
	now   func() time.Time
	log   zerolog.Logger

	src     FrameSource
	path    string
	meta    source.VideoMetadata
	state   State
	index   int
	current codec.Frame
	version uint64

	fpsOverride float64
	fps         float64
	lastAdvance time.Time

	quality codec.Quality
	volume  float64
	muted   bool
	message string

	advanced int

	prefetch     *prefetcher
	depth        int
	gen          uint64
	genCtx       context.Context
	genCancel    context.CancelFunc
	pending      map[int]struct{}
	prefetchErrs map[int]error

	subs listeners
}

// New builds a stopped controller. open must not be nil.
func New(open OpenFunc, opts Options) *Controller {
	size := opts.CacheSize
	if size <= 0 {
		size = cache.DefaultMaxSize
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		open:         open,
		cache:        cache.New(size, cache.WithCompression(opts.CompressCache)),
		audio:        opts.Audio,
		now:          now,
		log:          logs.For("playback"),
		quality:      opts.Quality,
		volume:       clampVolume(opts.Volume),
		muted:        opts.Muted,
		pending:      make(map[int]struct{}),
		prefetchErrs: make(map[int]error),
	}
	if opts.FrameRate > 0 {
		c.fpsOverride = clampRate(opts.FrameRate)
	}
	if opts.Prefetch > 0 {
		c.depth = opts.Prefetch
		if c.depth >= size {
			c.depth = size - 1
		}
		if c.depth > 0 {
			c.prefetch = newPrefetcher(c.depth)
		}
	}
	return c
}

// Load switches to new media. The old source is abandoned and closed and the cache
// cleared before the new one is opened. On failure the controller is left Stopped.
func (c *Controller) Load(ctx context.Context, path string) error {
	c.unload()
	c.message = "Loading " + filepath.Base(path)
	c.changed()

	src, err := c.open(ctx, path)
	if err != nil {
		c.message = "Error: " + err.Error()
		c.log.Warn().Err(err).Str("path", path).Msg("load failed")
		c.changed()
		return err
	}
	meta := src.Metadata()
	first, err := src.Frame(ctx, 0)
	if err != nil {
		_ = src.Close()
		c.message = "Error: " + err.Error()
		c.log.Warn().Err(err).Str("path", path).Msg("first frame failed")
		c.changed()
		return err
	}
	c.cache.Insert(0, first)

	c.src = src
	c.path = path
	c.meta = meta
	c.index = 0
	c.current = first
	c.state = Paused
	c.fps = c.fpsOverride
	if c.fps == 0 {
		// The clip's own rate is used as is; only user supplied rates are clamped.
		c.fps = meta.FPS
		if c.fps <= 0 || math.IsNaN(c.fps) || math.IsInf(c.fps, 0) {
			c.fps = source.DefaultFPS
		}
	}
	c.lastAdvance = c.now()
	c.message = fmt.Sprintf("Loaded %s (%dx%d, %.2f fps)", filepath.Base(path), meta.Width, meta.Height, meta.FPS)
	c.version++
	c.log.Info().Str("path", path).Int("frames", meta.TotalFrames).Float64("fps", c.fps).Msg("media loaded")
	c.changed()
	return nil
}

func (c *Controller) unload() {
	c.abandonPrefetch()
	c.stopAudio()
	if c.src != nil {
		if err := c.src.Close(); err != nil {
			c.log.Debug().Err(err).Str("path", c.path).Msg("close source")
		}
	}
	c.cache.Clear()
	c.src = nil
	c.path = ""
	c.meta = source.VideoMetadata{}
	c.state = Stopped
	c.index = 0
	c.current = codec.Frame{}
	c.advanced = 0
	c.version++
}

// Play starts playback. With no media loaded it only reports that fact.
// Playing from the last frame starts over from the beginning.
func (c *Controller) Play() {
	if c.src == nil {
		c.message = ErrNoMedia.Error()
		c.changed()
		return
	}
	if c.state == Playing {
		return
	}
	if c.isLast(c.index) && c.index > 0 {
		if err := c.seekTo(context.Background(), 0); err != nil {
			c.changed()
			return
		}
	}
	c.state = Playing
	c.lastAdvance = c.now()
	c.message = "Playing"
	c.startAudio()
	c.schedulePrefetch()
	c.changed()
}

func (c *Controller) Pause() {
	if c.state != Playing {
		return
	}
	c.state = Paused
	c.message = "Paused"
	c.stopAudio()
	c.changed()
}

func (c *Controller) TogglePlayback() {
	if c.state == Playing {
		c.Pause()
		return
	}
	c.Play()
}

// NextFrame steps forward one frame. At the last frame it pauses and reports end of media.
func (c *Controller) NextFrame(ctx context.Context) error {
	if c.src == nil {
		return ErrNoMedia
	}
	if c.isLast(c.index) {
		c.endOfMedia()
		return nil
	}
	err := c.seekTo(ctx, c.index+1)
	if source.KindOf(err) == source.KindEndOfStream {
		c.endOfMedia()
		return nil
	}
	c.changed()
	return err
}

// PreviousFrame steps back one frame, staying at 0.
func (c *Controller) PreviousFrame(ctx context.Context) error {
	if c.src == nil {
		return ErrNoMedia
	}
	if c.index == 0 {
		return nil
	}
	err := c.seekTo(ctx, c.index-1)
	c.changed()
	return err
}

// Tick advances at most one frame when playing and at least 1/fps has passed since
// the last advance. It reports whether the visible frame changed.
func (c *Controller) Tick(ctx context.Context, now time.Time) (bool, error) {
	c.drainPrefetch()
	if c.state != Playing || c.src == nil {
		return false, nil
	}
	if now.Sub(c.lastAdvance) < c.interval() {
		return false, nil
	}
	next := c.index + 1
	if c.isLast(c.index) {
		c.endOfMedia()
		return false, nil
	}

	if c.prefetch != nil && !c.cache.Contains(next) {
		if err, ok := c.prefetchErrs[next]; ok {
			delete(c.prefetchErrs, next)
			return false, c.advanceFailed(err)
		}
		c.schedulePrefetch()
		return false, nil
	}

	frame, err := c.resolve(ctx, next)
	if err != nil {
		return false, c.advanceFailed(err)
	}
	c.index = next
	c.current = frame
	c.lastAdvance = now
	c.advanced++
	c.version++
	c.schedulePrefetch()
	c.changed()
	return true, nil
}

func (c *Controller) advanceFailed(err error) error {
	if source.KindOf(err) == source.KindEndOfStream {
		c.endOfMedia()
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	c.state = Paused
	c.stopAudio()
	c.message = "Error: " + err.Error()
	c.log.Warn().Err(err).Int("index", c.index+1).Msg("advance failed")
	c.changed()
	return err
}

func (c *Controller) endOfMedia() {
	if c.state == Playing {
		c.stopAudio()
	}
	c.state = Paused
	c.message = MsgEndOfMedia
	c.changed()
}

// seekTo resolves index and makes it current. On failure index and frame stay as they were.
func (c *Controller) seekTo(ctx context.Context, index int) error {
	if total := c.meta.TotalFrames; total > 0 && index > total-1 {
		index = total - 1
	}
	if index < 0 {
		index = 0
	}
	frame, err := c.resolve(ctx, index)
	if err != nil {
		if source.KindOf(err) != source.KindEndOfStream {
			c.message = "Error: " + err.Error()
			c.log.Warn().Err(err).Int("index", index).Msg("seek failed")
		}
		return err
	}
	c.index = index
	c.current = frame
	c.lastAdvance = c.now()
	c.version++
	c.message = fmt.Sprintf("Frame %d", index+1)
	if c.state == Playing {
		c.startAudio()
	}
	return nil
}

// resolve reads through the cache and fills it from the source on a miss.
func (c *Controller) resolve(ctx context.Context, index int) (codec.Frame, error) {
	if f, ok := c.cache.Get(index); ok {
		return f, nil
	}
	f, err := c.src.Frame(ctx, index)
	if err != nil {
		return codec.Frame{}, err
	}
	c.cache.Insert(index, f)
	return f, nil
}

func (c *Controller) isLast(index int) bool {
	total := c.meta.TotalFrames
	return total > 0 && index >= total-1
}

func (c *Controller) interval() time.Duration {
	fps := c.fps
	if fps <= 0 {
		fps = source.DefaultFPS
	}
	return time.Duration(float64(time.Second) / fps)
}

// SetFrameRate changes playback pacing, clamped to [MinFrameRate, MaxFrameRate].
func (c *Controller) SetFrameRate(fps float64) {
	c.fps = clampRate(fps)
	c.fpsOverride = c.fps
	c.message = fmt.Sprintf("FPS: %g", c.fps)
	c.changed()
}

func (c *Controller) AdjustFrameRate(delta float64) {
	base := c.fps
	if base == 0 {
		base = source.DefaultFPS
	}
	c.SetFrameRate(math.Round(base + delta))
}

func (c *Controller) SetQuality(q codec.Quality) {
	c.quality = q
	c.version++
	c.message = "Quality: " + q.String()
	c.changed()
}

func (c *Controller) CycleQuality() {
	c.SetQuality(c.quality.Next())
}

func (c *Controller) SetVolume(v float64) {
	c.volume = clampVolume(v)
	if c.audio != nil {
		c.audio.SetVolume(c.volume)
	}
	c.message = fmt.Sprintf("Volume: %d%%", int(math.Round(c.volume*100)))
	c.changed()
}

func (c *Controller) AdjustVolume(delta float64) {
	c.SetVolume(math.Round((c.volume+delta)*10) / 10)
}

func (c *Controller) ToggleMute() {
	c.muted = !c.muted
	if c.audio != nil {
		c.audio.SetMuted(c.muted)
	}
	if c.muted {
		c.message = "Muted"
	} else {
		c.message = fmt.Sprintf("Volume: %d%%", int(math.Round(c.volume*100)))
	}
	c.changed()
}

// SetMessage replaces the status line text.
func (c *Controller) SetMessage(msg string) {
	c.message = msg
	c.changed()
}

// CurrentFrame returns the displayed frame and its version. The version changes
// whenever the frame or anything affecting its rendering changes.
func (c *Controller) CurrentFrame() (codec.Frame, uint64, bool) {
	if c.src == nil || !c.current.Valid() {
		return codec.Frame{}, c.version, false
	}
	return c.current, c.version, true
}

func (c *Controller) Quality() codec.Quality { return c.quality }
func (c *Controller) State() State           { return c.state }
func (c *Controller) Index() int             { return c.index }

func (c *Controller) Status() Status {
	return Status{
		Path:     c.path,
		Metadata: c.meta,
		Index:    c.index,
		State:    c.state,
		FPS:      c.fps,
		Quality:  c.quality,
		Volume:   c.volume,
		Muted:    c.muted,
		Message:  c.message,
		Version:  c.version,
		Advanced: c.advanced,
		Cache:    c.cache.Stats(),
		At:       c.now(),
	}
}

// Subscribe registers fn for every status change. The returned func removes it.
func (c *Controller) Subscribe(fn func(Status)) func() {
	return c.subs.subscribe(fn)
}

func (c *Controller) changed() {
	c.subs.notify(c.Status())
}

// Close releases the source, the audio track and the prefetch worker.
func (c *Controller) Close() error {
	c.unload()
	if c.prefetch != nil {
		c.prefetch.stop()
		c.prefetch = nil
	}
	return nil
}

func (c *Controller) startAudio() {
	if c.audio == nil || !c.meta.HasAudio || c.meta.FPS <= 0 {
		return
	}
	offset := time.Duration(float64(c.index) / c.meta.FPS * float64(time.Second))
	c.audio.SetVolume(c.volume)
	c.audio.SetMuted(c.muted)
	if err := c.audio.Start(c.path, offset); err != nil {
		c.log.Warn().Err(err).Msg("audio start failed")
	}
}

func (c *Controller) stopAudio() {
	if c.audio != nil {
		c.audio.Stop()
	}
}

func (c *Controller) schedulePrefetch() {
	if c.prefetch == nil || c.src == nil {
		return
	}
	if c.genCancel == nil {
		c.newGeneration()
	}
	ctx := c.genCtx
	for i := c.index + 1; i <= c.index+c.depth; i++ {
		if c.meta.TotalFrames > 0 && i >= c.meta.TotalFrames {
			break
		}
		if _, ok := c.pending[i]; ok || c.cache.Contains(i) {
			continue
		}
		if _, failed := c.prefetchErrs[i]; failed {
			break
		}
		if !c.prefetch.submit(prefetchJob{ctx: ctx, gen: c.gen, src: c.src, index: i}) {
			break
		}
		c.pending[i] = struct{}{}
	}
}

func (c *Controller) drainPrefetch() {
	if c.prefetch == nil {
		return
	}
	for {
		select {
		case res := <-c.prefetch.results:
			if res.gen != c.gen {
				continue
			}
			delete(c.pending, res.index)
			if res.err != nil {
				c.prefetchErrs[res.index] = res.err
				continue
			}
			c.cache.Insert(res.index, res.frame)
		default:
			return
		}
	}
}

func (c *Controller) newGeneration() {
	c.gen++
	c.genCtx, c.genCancel = context.WithCancel(context.Background())
}

func (c *Controller) abandonPrefetch() {
	if c.genCancel != nil {
		c.genCancel()
		c.genCancel = nil
	}
	c.genCtx = nil
	c.gen++
	clear(c.pending)
	clear(c.prefetchErrs)
}

func clampRate(fps float64) float64 {
	if math.IsNaN(fps) || fps < MinFrameRate {
		return MinFrameRate
	}
	if fps > MaxFrameRate {
		return MaxFrameRate
	}
	return fps
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FromOpener adapts a source.Opener to an OpenFunc.
func FromOpener(o *source.Opener) OpenFunc {
	return func(ctx context.Context, path string) (FrameSource, error) {
		s, err := o.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
