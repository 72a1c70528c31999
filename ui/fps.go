package ui

import (
	"fmt"
	"time"
)

// fpsCounter measures how many distinct frames reach the screen per second.
type fpsCounter struct {
	lastTick time.Time
	frames   int
	display  string
}

func (fc *fpsCounter) recordFrame(now time.Time) {
	if fc.lastTick.IsZero() {
		fc.lastTick = now
	}
	fc.frames++
	elapsed := now.Sub(fc.lastTick)
	if elapsed >= time.Second {
		fps := int(float64(fc.frames) / elapsed.Seconds())
		if fps < 0 {
			fps = 0
		}
		fc.display = fmt.Sprintf("%d draw/s", fps)
		fc.frames = 0
		fc.lastTick = now
	}
}

func (fc *fpsCounter) label() string {
	return fc.display
}
