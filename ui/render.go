package ui

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/svanichkin/asciiplay/codec"
	"github.com/svanichkin/asciiplay/mediactrl"
)

// Terminal cell aspect: one character cell is about half as wide as it is tall.
const termCellWidthToHeight = 0.5

// statusRows is the height of the bar under the picture.
const statusRows = 2

const statusStyle = "\x1b[48;2;20;20;24m\x1b[38;2;245;245;245m"

type renderKey struct {
	version uint64
	cols    int
	rows    int
	quality codec.Quality
	color   bool
}

// renderer converts frames for the current layout and reuses the last result while
// nothing that affects it has changed.
type renderer struct {
	key     renderKey
	valid   bool
	payload string
	grid    codec.Grid
	hits    int
	misses  int
}

// render returns the positioned picture for a cols×rows area starting at the top-left.
func (r *renderer) render(frame codec.Frame, version uint64, cols, rows int, q codec.Quality, color bool) string {
	key := renderKey{version: version, cols: cols, rows: rows, quality: q, color: color}
	if r.valid && r.key == key {
		r.hits++
		return r.payload
	}
	r.misses++
	r.key = key
	r.valid = true
	r.grid = nil
	r.payload = ""

	gridCols, gridRows := fitGrid(frame.Width, frame.Height, cols, rows)
	if gridCols == 0 || gridRows == 0 {
		return ""
	}
	startCol := 1 + max(0, (cols-gridCols)/2)
	startRow := 1 + max(0, (rows-gridRows)/2)
	profile := codec.ProfileFor(q)

	var lines []string
	if color {
		lines = strings.Split(codec.RenderHalfBlock(frame, gridCols, gridRows, profile), "\n")
	} else {
		r.grid = codec.Convert(frame, gridCols, gridRows, profile)
		lines = r.grid.Lines()
	}

	var sb strings.Builder
	sb.Grow(len(lines) * (gridCols + 16))
	for i, line := range lines {
		fmt.Fprintf(&sb, "\x1b[%d;%dH", startRow+i, startCol)
		sb.WriteString(line)
	}
	r.payload = sb.String()
	return r.payload
}

// text returns the ASCII grid of frame at the last rendered size, converting on demand
// when the last render was in colour.
func (r *renderer) text(frame codec.Frame, q codec.Quality) string {
	if r.grid != nil && r.key.quality == q {
		return r.grid.String()
	}
	cols, rows := fitGrid(frame.Width, frame.Height, r.key.cols, r.key.rows)
	return codec.Convert(frame, cols, rows, codec.ProfileFor(q)).String()
}

func (r *renderer) invalidate() {
	r.valid = false
}

// fitGrid picks the largest cell grid inside cols×rows that keeps the frame's aspect.
func fitGrid(frameW, frameH, cols, rows int) (int, int) {
	if frameW <= 0 || frameH <= 0 || cols <= 0 || rows <= 0 {
		return 0, 0
	}
	aspect := float64(frameH) / float64(frameW) * termCellWidthToHeight
	gridCols := cols
	gridRows := int(math.Round(float64(cols) * aspect))
	if gridRows > rows {
		gridRows = rows
		gridCols = int(math.Round(float64(rows) / aspect))
	}
	return min(max(gridCols, 1), cols), min(max(gridRows, 1), rows)
}

func buildStatusBar(cols, rows int, st mediactrl.Status, drawFPS string) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	info := composeStatusLabel(st, drawFPS)
	msg := st.Message

	var sb strings.Builder
	top := rows - statusRows + 1
	if top < 1 {
		top = 1
	}
	writeStatusLine(&sb, top, cols, info)
	if top+1 <= rows {
		writeStatusLine(&sb, top+1, cols, msg)
	}
	return sb.String()
}

func writeStatusLine(sb *strings.Builder, row, cols int, text string) {
	runes := []rune(" " + truncateRunes(text, cols-1))
	fmt.Fprintf(sb, "\x1b[%d;1H%s%s", row, statusStyle, string(runes))
	if pad := cols - len(runes); pad > 0 {
		sb.WriteString(strings.Repeat(" ", pad))
	}
	sb.WriteString("\x1b[0m")
}

func composeStatusLabel(st mediactrl.Status, drawFPS string) string {
	icon := "■"
	switch st.State {
	case mediactrl.Playing:
		icon = "▶"
	case mediactrl.Paused:
		icon = "❚❚"
	}
	if st.Path == "" {
		return icon + " no media"
	}
	parts := []string{icon + " " + filepath.Base(st.Path)}

	meta := st.Metadata
	position := 0.0
	if meta.FPS > 0 {
		position = float64(st.Index) / meta.FPS
	}
	parts = append(parts, formatClock(position)+"/"+formatClock(meta.Duration))
	if meta.TotalFrames > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", st.Index+1, meta.TotalFrames))
	} else {
		parts = append(parts, fmt.Sprintf("%d", st.Index+1))
	}
	parts = append(parts, fmt.Sprintf("%g fps", math.Round(st.FPS*100)/100), st.Quality.String())
	if meta.HasAudio {
		if st.Muted {
			parts = append(parts, "muted")
		} else {
			parts = append(parts, fmt.Sprintf("vol %d%%", int(math.Round(st.Volume*100))))
		}
	}
	if drawFPS != "" {
		parts = append(parts, drawFPS)
	}
	return strings.Join(parts, " │ ")
}

func formatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second)).Round(100 * time.Millisecond)
	m := int(d / time.Minute)
	s := (d % time.Minute).Seconds()
	return fmt.Sprintf("%02d:%04.1f", m, s)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit == 1 {
		return string(runes[:1])
	}
	return string(runes[:limit-1]) + "…"
}
