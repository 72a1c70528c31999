package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/svanichkin/asciiplay/codec"
	"github.com/svanichkin/asciiplay/logs"
)

const maxStderrBytes = 4096

// FFmpeg implements Decoder and Extractor with the ffprobe and ffmpeg executables.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string

	log zerolog.Logger
}

// NewFFmpeg returns a decoder that resolves empty binary paths through $PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath, log: logs.For("ffmpeg")}
}

func lookupTool(op, name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", newError(KindToolMissing, op, "", fmt.Errorf("%s: %w", name, err))
	}
	return p, nil
}

type probeData struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		PixFmt       string `json:"pix_fmt,omitempty"`
		Width        int    `json:"width,omitempty"`
		Height       int    `json:"height,omitempty"`
		AvgFrameRate string `json:"avg_frame_rate,omitempty"`
		RFrameRate   string `json:"r_frame_rate,omitempty"`
		Duration     string `json:"duration,omitempty"`
		Disposition  struct {
			AttachedPic int `json:"attached_pic"`
		} `json:"disposition"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe and extracts the metadata of the first real video stream.
func (f *FFmpeg) Probe(ctx context.Context, path string) (VideoMetadata, error) {
	const op = "probe"
	if _, err := checkMedia(op, path); err != nil {
		return VideoMetadata{}, err
	}
	bin, err := lookupTool(op, f.FFprobePath)
	if err != nil {
		return VideoMetadata{}, err
	}

	// #nosec G204 - binary is configured by the user, path is passed as a single argument
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	setProcessGroup(cmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return VideoMetadata{}, ctxErr
	}
	if err != nil {
		return VideoMetadata{}, newError(KindDecoding, op, path, fmt.Errorf("ffprobe: %w (stderr: %s)", err, truncate(stderr.String())))
	}
	return parseProbe(path, out)
}

func parseProbe(path string, out []byte) (VideoMetadata, error) {
	const op = "probe"
	var data probeData
	if err := json.Unmarshal(out, &data); err != nil {
		return VideoMetadata{}, newError(KindDecoding, op, path, fmt.Errorf("json decode: %w", err))
	}

	videoIdx := -1
	hasAudio := false
	for i, s := range data.Streams {
		switch s.CodecType {
		case "video":
			if videoIdx < 0 && s.Disposition.AttachedPic == 0 && s.Width > 0 && s.Height > 0 {
				videoIdx = i
			}
		case "audio":
			hasAudio = true
		}
	}
	if videoIdx < 0 {
		return VideoMetadata{}, newError(KindUnsupportedFormat, op, path, fmt.Errorf("no video stream found"))
	}
	vs := data.Streams[videoIdx]

	fps := parseRate(vs.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(vs.RFrameRate)
	}
	duration := parseSeconds(data.Format.Duration)
	if duration == 0 {
		duration = parseSeconds(vs.Duration)
	}
	format, _, _ := strings.Cut(data.Format.FormatName, ",")

	meta := NewMetadata(vs.Width, vs.Height, fps, duration, strings.TrimSpace(format), hasAudio)
	meta.PixelFormat = vs.PixFmt
	return meta, nil
}

// Open probes path and returns a stream that decodes frames on demand.
func (f *FFmpeg) Open(ctx context.Context, path string) (Stream, error) {
	meta, err := f.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	bin, err := lookupTool("open", f.FFmpegPath)
	if err != nil {
		return nil, err
	}
	return &ffmpegStream{bin: bin, path: path, meta: meta, log: f.log}, nil
}

// ffmpegStream seeks by decoding from the start of the container. It keeps one decoder
// process running as a cursor so that a request for the cursor's next index costs a
// single frame read.
type ffmpegStream struct {
	bin  string
	path string
	meta VideoMetadata
	log  zerolog.Logger

	mu     sync.Mutex
	cursor *decodeCursor
	closed bool
}

func (s *ffmpegStream) Metadata() VideoMetadata { return s.meta }

func (s *ffmpegStream) Frame(ctx context.Context, index int) (codec.Frame, error) {
	const op = "decode"
	if index < 0 {
		return codec.Frame{}, newError(KindDecoding, op, s.path, fmt.Errorf("negative frame index %d", index))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return codec.Frame{}, newError(KindDecoding, op, s.path, fmt.Errorf("stream closed"))
	}

	if s.cursor != nil && index == s.cursor.next-1 {
		return s.cursor.frame(), nil
	}
	if s.cursor == nil || s.cursor.next > index {
		if s.cursor != nil {
			s.log.Debug().Int("from", s.cursor.next).Int("to", index).Msg("restarting decoder for backward seek")
			s.cursor.close()
		}
		c, err := startCursor(s.bin, s.path, s.meta)
		if err != nil {
			return codec.Frame{}, err
		}
		s.cursor = c
	}

	start := time.Now()
	skipped := index - s.cursor.next
	for s.cursor.next <= index {
		if err := ctx.Err(); err != nil {
			return codec.Frame{}, err
		}
		if err := s.cursor.read(); err != nil {
			s.cursor.close()
			s.cursor = nil
			return codec.Frame{}, err
		}
	}
	if skipped > 0 {
		s.log.Debug().Int("index", index).Int("skipped", skipped).Dur("elapsed", time.Since(start)).Msg("sequential seek")
	}
	return s.cursor.frame(), nil
}

func (s *ffmpegStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cursor != nil {
		s.cursor.close()
		s.cursor = nil
	}
	return nil
}

type decodeCursor struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	out    *bufio.Reader
	stderr *bytes.Buffer
	path   string
	buf    []byte
	width  int
	height int
	next   int
}

func startCursor(bin, path string, meta VideoMetadata) (*decodeCursor, error) {
	const op = "decode"
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, newError(KindUnsupportedFormat, op, path, fmt.Errorf("unknown frame size"))
	}
	ctx, cancel := context.WithCancel(context.Background())
	// #nosec G204 - binary is configured by the user, path is passed as a single argument
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-nostdin",
		"-noautorotate",
		"-i", path,
		"-map", "0:v:0",
		"-an", "-sn",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)
	setProcessGroup(cmd)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, newError(KindIO, op, path, err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		if errors.Is(err, exec.ErrNotFound) {
			return nil, newError(KindToolMissing, op, path, err)
		}
		return nil, newError(KindDecoding, op, path, err)
	}
	return &decodeCursor{
		cmd:    cmd,
		cancel: cancel,
		out:    bufio.NewReaderSize(stdout, 1<<20),
		stderr: stderr,
		path:   path,
		buf:    make([]byte, meta.FrameBytes()),
		width:  meta.Width,
		height: meta.Height,
	}, nil
}

func (c *decodeCursor) read() error {
	_, err := io.ReadFull(c.out, c.buf)
	if err == nil {
		c.next++
		return nil
	}
	waitErr := c.cmd.Wait()
	c.cmd = nil
	if errors.Is(err, io.EOF) && waitErr == nil {
		return newError(KindEndOfStream, "decode", c.path, fmt.Errorf("stream ended after %d frames", c.next))
	}
	if msg := truncate(c.stderr.String()); msg != "" {
		return newError(KindDecoding, "decode", c.path, fmt.Errorf("frame %d: %s", c.next, msg))
	}
	if waitErr != nil {
		return newError(KindDecoding, "decode", c.path, fmt.Errorf("frame %d: %w", c.next, waitErr))
	}
	return newError(KindEndOfStream, "decode", c.path, fmt.Errorf("truncated frame %d", c.next))
}

func (c *decodeCursor) frame() codec.Frame {
	data := make([]byte, len(c.buf))
	copy(data, c.buf)
	return codec.Frame{Data: data, Width: c.width, Height: c.height}
}

func (c *decodeCursor) close() {
	c.cancel()
	if c.cmd != nil {
		_ = c.cmd.Wait()
		c.cmd = nil
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrBytes {
		return s[:maxStderrBytes] + "..."
	}
	return s
}

// Command builds a cancellable command that runs in its own process group.
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	// #nosec G204 - callers pass configured binaries and single path arguments
	cmd := exec.CommandContext(ctx, name, args...)
	setProcessGroup(cmd)
	return cmd
}
