package device

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyGain(t *testing.T) {
	s := []int16{1000, -1000, 32767, -32768}
	applyGain(s, 0.5, false)
	assert.Equal(t, []int16{500, -500, 16384, -16384}, s)

	s = []int16{1000, -1000}
	applyGain(s, 1, false)
	assert.Equal(t, []int16{1000, -1000}, s)

	applyGain(s, 1, true)
	assert.Equal(t, []int16{0, 0}, s)
}

func TestPCMConversion(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768}
	assert.Equal(t, in, bytesToInt16(int16ToBytes(in)))
	assert.Len(t, bytesToInt16([]byte{1, 2, 3}), 1, "odd trailing byte is dropped")
}

func TestAudioTrackVolumeClamp(t *testing.T) {
	a := NewAudioTrack("")
	assert.Equal(t, 1.0, a.Volume())
	a.SetVolume(1.7)
	assert.Equal(t, 1.0, a.Volume())
	a.SetVolume(-2)
	assert.Equal(t, 0.0, a.Volume())
	a.Stop()
}

func TestAudioFillWithoutDecoderIsSilent(t *testing.T) {
	a := NewAudioTrack("")
	out := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	a.fill(out, nil, 2)
	assert.Equal(t, make([]byte, 8), out)
}

func TestAudioFillDrainsPending(t *testing.T) {
	a := NewAudioTrack("")
	a.SetVolume(0.5)
	pcm := make(chan []int16, 1)
	pcm <- []int16{100, 200, 300, 400, 500, 600}
	a.pcm = pcm
	out := make([]byte, 8)
	a.fill(out, nil, 2)
	assert.Equal(t, []int16{50, 100, 150, 200}, bytesToInt16(out))
	assert.Equal(t, []int16{500, 600}, a.pending)
}

func TestScreenDraw(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	s, err := OpenScreen(w)
	require.NoError(t, err)
	s.Draw("hello")
	s.Draw("")
	require.NoError(t, s.Close())
	s.Draw("after close")
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	text := string(out)
	assert.True(t, strings.HasPrefix(text, "\x1b[?1049h"))
	assert.Contains(t, text, "\x1b[Hhello")
	assert.True(t, strings.HasSuffix(text, "\x1b[?1049l"))
	assert.NotContains(t, text, "after close")
}

func TestSupportsTrueColor(t *testing.T) {
	t.Setenv("COLORTERM", "truecolor")
	assert.True(t, SupportsTrueColor())
	t.Setenv("COLORTERM", "")
	t.Setenv("WT_SESSION", "")
	assert.False(t, SupportsTrueColor())
}
