package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMetadataTotalFrames(t *testing.T) {
	tests := []struct {
		name     string
		fps      float64
		duration float64
		wantFPS  float64
		want     int
	}{
		{"exact", 30, 2, 30, 60},
		{"floored", 29.97, 1.5, 29.97, 44},
		{"unknown duration", 25, 0, 25, 0},
		{"default fps", 0, 4, DefaultFPS, 100},
		{"negative duration", 24, -1, 24, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetadata(640, 360, tt.fps, tt.duration, "mp4", false)
			assert.Equal(t, tt.wantFPS, m.FPS)
			assert.Equal(t, tt.want, m.TotalFrames)
			assert.Equal(t, 640*360*3, m.FrameBytes())
		})
	}
}

func TestParseRate(t *testing.T) {
	assert.InDelta(t, 29.97, parseRate("30000/1001"), 0.001)
	assert.Equal(t, 25.0, parseRate("25/1"))
	assert.Equal(t, 24.0, parseRate("24"))
	assert.Zero(t, parseRate("0/0"))
	assert.Zero(t, parseRate("1/0"))
	assert.Zero(t, parseRate(""))
	assert.Zero(t, parseRate("abc"))
}

func TestParseSeconds(t *testing.T) {
	assert.Equal(t, 12.5, parseSeconds("12.500000"))
	assert.Zero(t, parseSeconds("N/A"))
	assert.Zero(t, parseSeconds("-3"))
}
