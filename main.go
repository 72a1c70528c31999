package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/svanichkin/asciiplay/conf"
	"github.com/svanichkin/asciiplay/device"
	"github.com/svanichkin/asciiplay/logs"
	"github.com/svanichkin/asciiplay/mediactrl"
	"github.com/svanichkin/asciiplay/source"
	"github.com/svanichkin/asciiplay/ui"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[asciiplay] %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	opts, err := conf.ParseCLI(os.Args[1:])
	if errors.Is(err, conf.ErrHelp) {
		fmt.Println(conf.Usage)
		return nil
	}
	if err != nil {
		return err
	}
	if opts.ShowVersion {
		printVersion()
		return nil
	}
	cfg := opts.Config

	logWriter, closeLog, logPath, logErr := initLogSink(opts.ConfigPath)
	if closeLog != nil {
		defer closeLog()
	}
	// stderr belongs to the screen while playing, so logs only go to the file.
	logs.Init(logWriter, opts.Verbose)
	if logErr == nil {
		fmt.Fprintf(os.Stderr, "[asciiplay] logs: %s\n", logPath)
	} else {
		fmt.Fprintf(os.Stderr, "[asciiplay] log file disabled (%v)\n", logErr)
	}
	log := logs.For("main")
	log.Info().Str("version", appVersion()).Str("media", opts.MediaPath).Str("config", opts.ConfigPath).Msg("starting")

	appCtx, appCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer appCancel()

	wd, err := source.NewWorkdir(cfg.WorkDir)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := wd.Remove(); rmErr != nil {
			log.Warn().Err(rmErr).Str("dir", wd.Path()).Msg("workdir cleanup failed")
		}
	}()
	ff := source.NewFFmpeg(cfg.FFmpeg, cfg.FFprobe)
	opener := source.NewOpener(ff, source.Options{
		Strategy:   cfg.StrategyKind(),
		ExtractFPS: cfg.ExtractFPS,
		Workdir:    wd,
	})

	audio := device.NewAudioTrack(ff.FFmpegPath)
	defer audio.Close()

	ctrl := mediactrl.New(mediactrl.FromOpener(opener), mediactrl.Options{
		CacheSize:     cfg.CacheSize,
		CompressCache: cfg.CompressCache,
		Prefetch:      cfg.Prefetch,
		Quality:       cfg.QualityLevel(),
		FrameRate:     cfg.FPS,
		Volume:        cfg.Volume,
		Muted:         cfg.Muted,
		Audio:         audio,
	})
	defer ctrl.Close()

	screen, err := ui.OpenTerminal(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer screen.Close()

	g, ctx := errgroup.WithContext(appCtx)
	reloads := make(chan conf.Config, 1)
	updates, watchErr := conf.Watch(ctx, opts.ConfigPath)
	if watchErr != nil {
		log.Warn().Err(watchErr).Msg("config reload disabled")
		close(reloads)
	} else {
		g.Go(func() error {
			defer close(reloads)
			for next := range updates {
				select {
				case reloads <- opts.Apply(next):
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		})
	}

	app := ui.New(ctrl, screen, ui.Options{
		Actions:      ui.ReadActions(ctx, os.Stdin),
		Reloads:      reloads,
		PollInterval: cfg.PollInterval(),
		Color:        cfg.Color,
		TrueColor:    device.SupportsTrueColor(),
	})
	g.Go(func() error {
		defer appCancel()
		return app.Run(ctx, opts.MediaPath)
	})
	err = g.Wait()

	if app.Touched() {
		if saveErr := conf.Update(opts.ConfigPath, app.ApplySettings); saveErr != nil {
			log.Warn().Err(saveErr).Msg("settings not saved")
		}
	}
	log.Info().Str("quality", ctrl.Quality().String()).Msg("bye")
	return err
}

// initLogSink opens asciiplay.log next to the config file.
func initLogSink(configPath string) (io.Writer, func() error, string, error) {
	dir := filepath.Dir(configPath)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, "", err
	}
	logPath := filepath.Join(dir, "asciiplay.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, logPath, err
	}
	return f, f.Close, logPath, nil
}

func appVersion() string {
	v := strings.TrimSpace(version)
	if v == "" {
		v = "dev"
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if v == "dev" {
			if ver := strings.TrimSpace(bi.Main.Version); ver != "" && ver != "(devel)" {
				return ver
			}
		}
		if v == "dev" {
			if derived := vcsVersion(bi); derived != "" {
				return derived
			}
		}
	}
	return v
}

func vcsVersion(bi *debug.BuildInfo) string {
	revision := buildInfoSetting(bi, "vcs.revision")
	if revision == "" {
		return ""
	}
	short := revision
	if len(short) > 12 {
		short = short[:12]
	}
	dirty := ""
	if buildInfoSetting(bi, "vcs.modified") == "true" {
		dirty = "+dirty"
	}
	if ts := buildInfoSetting(bi, "vcs.time"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return fmt.Sprintf("v0.0.0-%s-%s%s", t.UTC().Format("20060102150405"), short, dirty)
		}
	}
	return short + dirty
}

func buildInfoSetting(bi *debug.BuildInfo, key string) string {
	for _, setting := range bi.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printVersion() {
	fmt.Printf("asciiplay %s\n", appVersion())
}
