package source

import (
	"math"
	"strconv"
	"strings"
)

// DefaultFPS is assumed when a stream does not declare its frame rate.
const DefaultFPS = 25.0

// VideoMetadata is computed once when media is opened and never changes afterwards.
type VideoMetadata struct {
	Width       int
	Height      int
	FPS         float64
	Duration    float64 // seconds
	TotalFrames int
	Format      string
	PixelFormat string
	HasAudio    bool
}

// NewMetadata fills TotalFrames = floor(duration × fps) when both are positive, 0 otherwise.
// A non-positive fps is replaced with DefaultFPS.
func NewMetadata(width, height int, fps, duration float64, format string, hasAudio bool) VideoMetadata {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = DefaultFPS
	}
	if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		duration = 0
	}
	return VideoMetadata{
		Width:       width,
		Height:      height,
		FPS:         fps,
		Duration:    duration,
		TotalFrames: totalFrames(duration, fps),
		Format:      format,
		HasAudio:    hasAudio,
	}
}

func totalFrames(duration, fps float64) int {
	if duration <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Floor(duration * fps))
}

// FrameBytes is the size of one RGB24 frame of this stream.
func (m VideoMetadata) FrameBytes() int {
	return m.Width * m.Height * 3
}

// parseRate turns "30000/1001", "25/1" or "25" into frames per second. Zero means unknown.
func parseRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "0/0" {
		return 0
	}
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// parseSeconds parses ffprobe's decimal seconds; "N/A" and garbage yield 0.
func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
