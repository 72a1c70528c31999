package mediactrl

import (
	"sync"
	"time"

	"github.com/svanichkin/asciiplay/cache"
	"github.com/svanichkin/asciiplay/codec"
	"github.com/svanichkin/asciiplay/source"
)

// State is the playback state machine position.
type State int

const (
	Stopped State = iota
	Paused
	Playing
)

func (s State) String() string {
	switch s {
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	}
	return "stopped"
}

// Status is a copy of everything the UI shows about the controller.
type Status struct {
	Path     string
	Metadata source.VideoMetadata
	Index    int
	State    State
	FPS      float64
	Quality  codec.Quality
	Volume   float64
	Muted    bool
	Message  string
	Version  uint64
	Advanced int
	Cache    cache.Stats
	At       time.Time
}

// listeners keeps Subscribe callbacks. Callbacks run on the goroutine that changed state.
type listeners struct {
	mu     sync.Mutex
	fns    map[int]func(Status)
	nextID int
}

func (l *listeners) subscribe(fn func(Status)) func() {
	if fn == nil {
		return func() {}
	}
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[int]func(Status))
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners) notify(st Status) {
	l.mu.Lock()
	snapshot := make([]func(Status), 0, len(l.fns))
	for _, fn := range l.fns {
		snapshot = append(snapshot, fn)
	}
	l.mu.Unlock()
	for _, fn := range snapshot {
		func(cb func(Status)) {
			defer func() { recover() }()
			cb(st)
		}(fn)
	}
}
