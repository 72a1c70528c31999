package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/svanichkin/asciiplay/codec"
	"github.com/svanichkin/asciiplay/conf"
	"github.com/svanichkin/asciiplay/mediactrl"
	"github.com/svanichkin/asciiplay/source"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSurface struct {
	cols, rows int
	draws      []string
	clears     int
	clipboard  string
}

func (s *fakeSurface) Draw(p string)               { s.draws = append(s.draws, p) }
func (s *fakeSurface) Clear()                      { s.clears++ }
func (s *fakeSurface) Size() (int, int, error)     { return s.cols, s.rows, nil }
func (s *fakeSurface) CopyToClipboard(text string) { s.clipboard = text }
func (s *fakeSurface) lastDraw() string            { return s.draws[len(s.draws)-1] }

func gradientClip(n int) *source.Source {
	frames := make([]codec.Frame, n)
	for i := range frames {
		f := codec.NewFrame(8, 4)
		for y := 0; y < 4; y++ {
			for x := 0; x < 8; x++ {
				v := uint8(x * 255 / 7)
				off := (y*8 + x) * 3
				f.Data[off], f.Data[off+1], f.Data[off+2] = v, v, v
			}
		}
		frames[i] = f
	}
	meta := source.NewMetadata(8, 4, 10, float64(n)/10, "mem", false)
	return source.NewMemorySource("clip.mp4", meta, frames)
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newTestApp(t *testing.T, frames int, opts Options) (*App, *mediactrl.Controller, *fakeSurface, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	open := func(_ context.Context, path string) (mediactrl.FrameSource, error) {
		if path != "clip.mp4" {
			return nil, &source.Error{Kind: source.KindNotFound, Op: "open", Path: path}
		}
		return gradientClip(frames), nil
	}
	ctrl := mediactrl.New(open, mediactrl.Options{Now: clock.Now, Volume: 1, Quality: codec.QualityMedium})
	t.Cleanup(func() { _ = ctrl.Close() })
	surface := &fakeSurface{cols: 40, rows: 12}
	opts.Now = clock.Now
	return New(ctrl, surface, opts), ctrl, surface, clock
}

func TestRunLoadsPlaysAndQuits(t *testing.T) {
	actions := make(chan Action, 1)
	app, ctrl, surface, _ := newTestApp(t, 10, Options{Actions: actions, PollInterval: time.Millisecond})
	actions <- ActionQuit

	require.NoError(t, app.Run(context.Background(), "clip.mp4"))
	assert.Equal(t, mediactrl.Playing, ctrl.State())
	require.NotEmpty(t, surface.draws)
	last := surface.lastDraw()
	assert.Contains(t, last, "clip.mp4")
	assert.Contains(t, last, "▶")
	assert.Positive(t, surface.clears)
}

func TestRunSurvivesLoadErrorAndStopsOnCancel(t *testing.T) {
	app, ctrl, surface, _ := newTestApp(t, 10, Options{PollInterval: time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, app.Run(ctx, "missing.mp4"))
	assert.Equal(t, mediactrl.Stopped, ctrl.State())
	assert.Contains(t, surface.lastDraw(), "Error:")
}

func TestDispatch(t *testing.T) {
	app, ctrl, surface, _ := newTestApp(t, 10, Options{})
	ctx := context.Background()
	require.NoError(t, ctrl.Load(ctx, "clip.mp4"))

	assert.False(t, app.dispatch(ctx, ActionNext))
	assert.Equal(t, 1, ctrl.Index())
	app.dispatch(ctx, ActionPrev)
	assert.Equal(t, 0, ctrl.Index())

	app.dispatch(ctx, ActionToggle)
	assert.Equal(t, mediactrl.Playing, ctrl.State())
	app.dispatch(ctx, ActionToggle)
	assert.Equal(t, mediactrl.Paused, ctrl.State())

	app.dispatch(ctx, ActionFaster)
	assert.Equal(t, 11.0, ctrl.Status().FPS)
	app.dispatch(ctx, ActionSlower)
	app.dispatch(ctx, ActionSlower)
	assert.Equal(t, 9.0, ctrl.Status().FPS)

	app.dispatch(ctx, ActionQuality)
	assert.Equal(t, codec.QualityHigh, ctrl.Quality())
	app.dispatch(ctx, ActionVolumeDown)
	app.dispatch(ctx, ActionMute)
	app.dispatch(ctx, ActionColor)
	assert.True(t, app.color)

	assert.True(t, app.Touched())
	cfg := conf.DefaultConfig()
	app.ApplySettings(&cfg)
	assert.Equal(t, "high", cfg.Quality)
	assert.InDelta(t, 0.9, cfg.Volume, 1e-9)
	assert.True(t, cfg.Muted)
	assert.True(t, cfg.Color)

	assert.True(t, app.dispatch(ctx, ActionQuit))
	assert.Empty(t, surface.clipboard)
}

func TestCopyFrame(t *testing.T) {
	app, ctrl, surface, _ := newTestApp(t, 3, Options{})
	ctx := context.Background()
	app.dispatch(ctx, ActionCopy)
	assert.Equal(t, "Nothing to copy", ctrl.Status().Message)

	require.NoError(t, ctrl.Load(ctx, "clip.mp4"))
	app.redraw()
	app.dispatch(ctx, ActionCopy)
	require.NotEmpty(t, surface.clipboard)
	lines := strings.Split(surface.clipboard, "\n")
	ramp := codec.ProfileFor(codec.QualityMedium).Ramp
	assert.Equal(t, ramp[0], []rune(lines[0])[0], "left edge is black")
	assert.Equal(t, ramp[len(ramp)-1], []rune(lines[0])[len([]rune(lines[0]))-1], "right edge is white")
	assert.Equal(t, "Frame copied to clipboard", ctrl.Status().Message)
}

func TestRedrawOnlyOnChange(t *testing.T) {
	app, ctrl, surface, _ := newTestApp(t, 10, Options{})
	require.NoError(t, ctrl.Load(context.Background(), "clip.mp4"))

	app.redraw()
	n := len(surface.draws)
	app.redraw()
	assert.Len(t, surface.draws, n, "identical state is not redrawn")

	require.NoError(t, ctrl.NextFrame(context.Background()))
	app.redraw()
	assert.Len(t, surface.draws, n+1)
	clears := surface.clears

	surface.cols = 60
	app.redraw()
	assert.Equal(t, clears+1, surface.clears, "resize clears the screen")
}

func TestApplyConfig(t *testing.T) {
	app, ctrl, _, _ := newTestApp(t, 10, Options{})
	require.NoError(t, ctrl.Load(context.Background(), "clip.mp4"))

	cfg := conf.DefaultConfig()
	cfg.Quality = "low"
	cfg.FPS = 24
	cfg.Volume = 0.5
	cfg.Color = true
	cfg.PollIntervalMS = 50
	app.applyConfig(cfg)

	st := ctrl.Status()
	assert.Equal(t, codec.QualityLow, st.Quality)
	assert.Equal(t, 24.0, st.FPS)
	assert.Equal(t, 0.5, st.Volume)
	assert.True(t, app.color)
	assert.Equal(t, 50*time.Millisecond, app.poll)
	assert.Equal(t, "Config reloaded", st.Message)
	assert.False(t, app.Touched(), "reloaded values are not written back")
}

func TestRunAppliesReloads(t *testing.T) {
	actions := make(chan Action)
	reloads := make(chan conf.Config, 1)
	app, ctrl, _, _ := newTestApp(t, 10, Options{Actions: actions, Reloads: reloads, PollInterval: time.Millisecond})
	cfg := conf.DefaultConfig()
	cfg.Quality = "high"
	reloads <- cfg
	close(reloads)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx, "clip.mp4") }()

	require.Eventually(t, func() bool { return len(reloads) == 0 }, time.Second, time.Millisecond)
	actions <- ActionNone // returns once the loop is back in select, after the reload was applied
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, codec.QualityHigh, ctrl.Quality())
}
