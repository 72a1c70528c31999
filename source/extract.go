package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/svanichkin/asciiplay/codec"
	"github.com/svanichkin/asciiplay/logs"
)

// SequencePattern is the file name template handed to ffmpeg for bulk extraction.
const SequencePattern = "frame_%05d.png"

// Extract samples path at rate frames per second into dir as numbered PNG files.
func (f *FFmpeg) Extract(ctx context.Context, path, dir string, rate float64) error {
	const op = "extract"
	if _, err := checkMedia(op, path); err != nil {
		return err
	}
	if rate <= 0 {
		return newError(KindDecoding, op, path, fmt.Errorf("invalid sample rate %g", rate))
	}
	bin, err := lookupTool(op, f.FFmpegPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newError(KindIO, op, dir, err)
	}

	// #nosec G204 - binary is configured by the user, paths are single arguments
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-vf", "fps="+strconv.FormatFloat(rate, 'f', -1, 64),
		"-y",
		filepath.Join(dir, SequencePattern),
	)
	setProcessGroup(cmd)
	f.log.Debug().Str("path", path).Str("dir", dir).Float64("rate", rate).Msg("extracting frames")

	out, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return newError(KindDecoding, op, path, fmt.Errorf("ffmpeg: %w (output: %s)", err, truncate(string(out))))
	}
	return nil
}

// LoadSequence loads the frame_*.png files of dir in file name order. Files that fail to
// decode are skipped; an error is returned only when nothing could be loaded.
func LoadSequence(dir string) ([]codec.Frame, error) {
	const op = "load_sequence"
	log := logs.For("source")

	paths, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		return nil, newError(KindIO, op, dir, err)
	}
	if len(paths) == 0 {
		if _, statErr := os.Stat(dir); errors.Is(statErr, os.ErrNotExist) {
			return nil, newError(KindNotFound, op, dir, nil)
		}
		return nil, newError(KindDecoding, op, dir, errors.New("no frames extracted"))
	}
	sort.Strings(paths)

	frames := make([]codec.Frame, 0, len(paths))
	for _, p := range paths {
		img, err := imaging.Open(p)
		if err != nil {
			log.Warn().Err(err).Str("file", filepath.Base(p)).Msg("skipping undecodable frame")
			continue
		}
		frames = append(frames, codec.FrameFromImage(img))
	}
	if len(frames) == 0 {
		return nil, newError(KindDecoding, op, dir, fmt.Errorf("none of %d frames decoded", len(paths)))
	}
	return frames, nil
}
