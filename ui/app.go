// Package ui is the owner loop: it reads keys, paces the playback controller and
// draws the current frame with a status bar.
package ui

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/svanichkin/asciiplay/conf"
	"github.com/svanichkin/asciiplay/logs"
	"github.com/svanichkin/asciiplay/mediactrl"
)

const (
	fallbackCols = 80
	fallbackRows = 24
)

// Surface is where frames are drawn.
type Surface interface {
	Draw(payload string)
	Clear()
	Size() (cols, rows int, err error)
	CopyToClipboard(text string)
}

type setting uint8

const (
	settingQuality setting = 1 << iota
	settingVolume
	settingMuted
	settingColor
)

// App drives one Controller from one goroutine. The controller is never touched
// from anywhere else while Run is active.
type App struct {
	ctrl      *mediactrl.Controller
	surface   Surface
	actions   <-chan Action
	reloads   <-chan conf.Config
	poll      time.Duration
	color     bool
	trueColor bool
	now       func() time.Time
	log       zerolog.Logger

	render  renderer
	fps     fpsCounter
	last    drawState
	drawn   bool
	touched setting
}

// Options configure an App.
type Options struct {
	Actions      <-chan Action
	Reloads      <-chan conf.Config
	PollInterval time.Duration
	Color        bool
	TrueColor    bool
	Now          func() time.Time
}

type drawState struct {
	cols    int
	rows    int
	version uint64
	color   bool
	status  string
}

func New(ctrl *mediactrl.Controller, surface Surface, opts Options) *App {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = conf.DefaultPollInterval * time.Millisecond
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &App{
		ctrl:      ctrl,
		surface:   surface,
		actions:   opts.Actions,
		reloads:   opts.Reloads,
		poll:      poll,
		color:     opts.Color,
		trueColor: opts.TrueColor,
		now:       now,
		log:       logs.For("ui"),
	}
}

// Run loads path, starts playback and loops until the user quits or ctx is done.
// Load and decode failures are shown in the status bar and never end the loop.
func (a *App) Run(ctx context.Context, path string) error {
	a.redraw()
	if err := a.ctrl.Load(ctx, path); err != nil {
		a.log.Warn().Err(err).Str("path", path).Msg("load failed")
	} else {
		a.ctrl.Play()
	}
	a.redraw()

	timer := time.NewTimer(a.poll)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case act, ok := <-a.actions:
			if !ok {
				a.actions = nil
				break
			}
			if a.dispatch(ctx, act) {
				return nil
			}
		case cfg, ok := <-a.reloads:
			if !ok {
				a.reloads = nil
				break
			}
			a.applyConfig(cfg)
		case <-timer.C:
		}
		if _, err := a.ctrl.Tick(ctx, a.now()); err != nil {
			a.log.Debug().Err(err).Msg("tick")
		}
		a.redraw()
		timer.Reset(a.poll)
	}
}

// dispatch runs one user command. It reports true when the loop should end.
func (a *App) dispatch(ctx context.Context, act Action) bool {
	var err error
	switch act {
	case ActionQuit:
		return true
	case ActionToggle:
		a.ctrl.TogglePlayback()
	case ActionPrev:
		err = a.ctrl.PreviousFrame(ctx)
	case ActionNext:
		err = a.ctrl.NextFrame(ctx)
	case ActionSlower:
		a.ctrl.AdjustFrameRate(-1)
	case ActionFaster:
		a.ctrl.AdjustFrameRate(1)
	case ActionVolumeUp:
		a.ctrl.AdjustVolume(mediactrl.VolumeStep)
		a.touched |= settingVolume
	case ActionVolumeDown:
		a.ctrl.AdjustVolume(-mediactrl.VolumeStep)
		a.touched |= settingVolume
	case ActionMute:
		a.ctrl.ToggleMute()
		a.touched |= settingMuted
	case ActionQuality:
		a.ctrl.CycleQuality()
		a.touched |= settingQuality
	case ActionColor:
		a.toggleColor()
		a.touched |= settingColor
	case ActionCopy:
		a.copyFrame()
	}
	if err != nil {
		a.log.Debug().Err(err).Str("action", act.String()).Msg("command failed")
	}
	return false
}

func (a *App) toggleColor() {
	a.color = !a.color
	a.render.invalidate()
	switch {
	case a.color && !a.trueColor:
		a.ctrl.SetMessage("Colour on (terminal does not advertise truecolor)")
	case a.color:
		a.ctrl.SetMessage("Colour on")
	default:
		a.ctrl.SetMessage("Colour off")
	}
}

func (a *App) copyFrame() {
	frame, _, ok := a.ctrl.CurrentFrame()
	if !ok {
		a.ctrl.SetMessage("Nothing to copy")
		return
	}
	text := a.render.text(frame, a.ctrl.Quality())
	if text == "" {
		a.ctrl.SetMessage("Nothing to copy")
		return
	}
	a.surface.CopyToClipboard(text)
	a.ctrl.SetMessage("Frame copied to clipboard")
}

func (a *App) applyConfig(cfg conf.Config) {
	st := a.ctrl.Status()
	if q := cfg.QualityLevel(); q != st.Quality {
		a.ctrl.SetQuality(q)
	}
	if cfg.FPS > 0 && cfg.FPS != st.FPS {
		a.ctrl.SetFrameRate(cfg.FPS)
	}
	if cfg.Volume != st.Volume {
		a.ctrl.SetVolume(cfg.Volume)
	}
	if cfg.Muted != st.Muted {
		a.ctrl.ToggleMute()
	}
	if cfg.Color != a.color {
		a.color = cfg.Color
		a.render.invalidate()
	}
	if p := cfg.PollInterval(); p > 0 {
		a.poll = p
	}
	a.ctrl.SetMessage("Config reloaded")
	a.log.Info().Str("quality", cfg.Quality).Float64("fps", cfg.FPS).Msg("config applied")
}

func (a *App) colorActive() bool {
	return a.color && a.trueColor
}

func (a *App) redraw() {
	cols, rows, err := a.surface.Size()
	if err != nil || cols <= 0 || rows <= 0 {
		cols, rows = fallbackCols, fallbackRows
	}
	st := a.ctrl.Status()
	st.At = time.Time{}
	frame, version, ok := a.ctrl.CurrentFrame()
	statusBar := buildStatusBar(cols, rows, st, a.fps.label())

	next := drawState{cols: cols, rows: rows, version: version, color: a.colorActive(), status: statusBar}
	if a.drawn && next == a.last {
		return
	}
	layoutChanged := !a.drawn || next.cols != a.last.cols || next.rows != a.last.rows || next.color != a.last.color
	frameChanged := !a.drawn || next.version != a.last.version
	a.last = next
	a.drawn = true

	if layoutChanged {
		a.surface.Clear()
	}
	var payload string
	if ok {
		payload = a.render.render(frame, version, cols, rows-statusRows, a.ctrl.Quality(), a.colorActive())
		if frameChanged {
			a.fps.recordFrame(a.now())
		}
	}
	a.surface.Draw(payload + statusBar)
}

// ApplySettings copies the settings the user changed with keys into c.
func (a *App) ApplySettings(c *conf.Config) {
	st := a.ctrl.Status()
	if a.touched&settingQuality != 0 {
		c.Quality = st.Quality.String()
	}
	if a.touched&settingVolume != 0 {
		c.Volume = st.Volume
	}
	if a.touched&settingMuted != 0 {
		c.Muted = st.Muted
	}
	if a.touched&settingColor != 0 {
		c.Color = a.color
	}
}

// Touched reports whether any persisted setting was changed with a key.
func (a *App) Touched() bool {
	return a.touched != 0
}
