package device

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	malgo "github.com/gen2brain/malgo"
	"github.com/rs/zerolog"

	"github.com/svanichkin/asciiplay/logs"
	"github.com/svanichkin/asciiplay/source"
)

const (
	AudioSampleRate = 48000
	AudioChannels   = 2
	chunkFrames     = 1024
)

// AudioTrack plays the soundtrack of a media file: ffmpeg decodes to s16le PCM and
// a malgo playback device pulls it. Volume and mute apply inside the device callback.
type AudioTrack struct {
	ffmpeg string
	log    zerolog.Logger

	volume atomic.Uint64 // math.Float64bits
	muted  atomic.Bool

	mu      sync.Mutex
	mctx    *malgo.AllocatedContext
	dev     *malgo.Device
	cancel  context.CancelFunc
	done    chan struct{}
	pcm     chan []int16
	pending []int16
}

// NewAudioTrack creates an idle track. The audio device is opened on the first Start.
func NewAudioTrack(ffmpegPath string) *AudioTrack {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	a := &AudioTrack{ffmpeg: ffmpegPath, log: logs.For("audio")}
	a.volume.Store(math.Float64bits(1))
	return a
}

func (a *AudioTrack) SetVolume(v float64) {
	a.volume.Store(math.Float64bits(math.Max(0, math.Min(1, v))))
}

func (a *AudioTrack) SetMuted(m bool) { a.muted.Store(m) }

func (a *AudioTrack) Volume() float64 { return math.Float64frombits(a.volume.Load()) }

// Start begins playback of path from offset, replacing anything already playing.
func (a *AudioTrack) Start(path string, offset time.Duration) error {
	a.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureDevice(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := source.Command(ctx, a.ffmpeg,
		"-v", "error",
		"-nostdin",
		"-ss", strconv.FormatFloat(offset.Seconds(), 'f', 3, 64),
		"-i", path,
		"-vn",
		"-f", "s16le",
		"-ac", strconv.Itoa(AudioChannels),
		"-ar", strconv.Itoa(AudioSampleRate),
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start audio decoder: %w", err)
	}

	pcm := make(chan []int16, 16)
	done := make(chan struct{})
	a.pcm = pcm
	a.pending = nil
	a.cancel = cancel
	a.done = done

	go func() {
		defer close(done)
		defer func() { _ = cmd.Wait() }()
		defer close(pcm)
		buf := make([]byte, chunkFrames*AudioChannels*2)
		for {
			n, err := io.ReadFull(stdout, buf)
			if n > 0 {
				select {
				case pcm <- bytesToInt16(buf[:n]):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && ctx.Err() == nil {
					a.log.Warn().Err(err).Msg("audio decoder read failed")
				}
				return
			}
		}
	}()

	a.log.Debug().Str("path", path).Dur("offset", offset).Msg("audio started")
	return nil
}

// Stop halts the decoder. The device keeps running and plays silence.
func (a *AudioTrack) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.pcm = nil
	a.pending = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// Close stops playback and releases device resources.
func (a *AudioTrack) Close() {
	a.Stop()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dev != nil {
		_ = a.dev.Stop()
		a.dev.Uninit()
		a.dev = nil
	}
	if a.mctx != nil {
		_ = a.mctx.Uninit()
		a.mctx.Free()
		a.mctx = nil
	}
}

func (a *AudioTrack) ensureDevice() error {
	if a.dev != nil {
		return nil
	}
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		a.log.Debug().Str("malgo", message).Send()
	})
	if err != nil {
		return fmt.Errorf("audio context: %w", err)
	}
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = AudioChannels
	cfg.SampleRate = AudioSampleRate
	cfg.PeriodSizeInFrames = chunkFrames
	if cfg.Periods < 4 {
		cfg.Periods = 4
	}
	dev, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: a.fill})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("audio device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("audio device start: %w", err)
	}
	a.mctx, a.dev = mctx, dev
	return nil
}

// fill runs on the device thread.
func (a *AudioTrack) fill(out, _ []byte, frameCount uint32) {
	samples := make([]int16, int(frameCount)*AudioChannels)
	a.mu.Lock()
	filled := 0
	for filled < len(samples) {
		if len(a.pending) == 0 {
			if a.pcm == nil {
				break
			}
			select {
			case chunk, ok := <-a.pcm:
				if !ok {
					a.pcm = nil
				}
				a.pending = chunk
			default:
			}
			if len(a.pending) == 0 {
				break
			}
		}
		n := copy(samples[filled:], a.pending)
		filled += n
		a.pending = a.pending[n:]
	}
	a.mu.Unlock()

	applyGain(samples, a.Volume(), a.muted.Load())
	b := int16ToBytes(samples)
	n := copy(out, b)
	clear(out[n:])
}

func applyGain(samples []int16, volume float64, muted bool) {
	if muted || volume <= 0 {
		clear(samples)
		return
	}
	if volume >= 1 {
		return
	}
	for i, v := range samples {
		samples[i] = int16(math.Round(float64(v) * volume))
	}
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

func int16ToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, v := range samples {
		b[2*i] = byte(v)
		b[2*i+1] = byte(v >> 8)
	}
	return b
}
