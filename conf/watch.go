package conf

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/svanichkin/asciiplay/logs"
)

const reloadDebounce = 150 * time.Millisecond

// Watch emits the re-parsed config each time path changes on disk. The parent
// directory is watched so editors that replace the file atomically are seen too.
// The channel is closed when ctx is done. Only the latest config is kept when the
// consumer falls behind.
func Watch(ctx context.Context, path string) (<-chan Config, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}
	target := filepath.Clean(path)
	log := logs.For("conf")
	out := make(chan Config, 1)

	go func() {
		defer close(out)
		defer w.Close()

		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					debounce = time.After(reloadDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher")
			case <-debounce:
				debounce = nil
				cfg, err := Load(path)
				if err != nil {
					log.Warn().Err(err).Str("path", path).Msg("config reload rejected")
					continue
				}
				log.Info().Str("path", path).Msg("config reloaded")
				select {
				case out <- cfg:
				default:
					select {
					case <-out:
					default:
					}
					select {
					case out <- cfg:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}
