package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, MediaVideo, Classify("a/b/clip.MP4"))
	assert.Equal(t, MediaVideo, Classify("x.webm"))
	assert.Equal(t, MediaImage, Classify("pic.jpeg"))
	assert.Equal(t, MediaUnknown, Classify("notes.txt"))
	assert.Equal(t, MediaUnknown, Classify("noext"))
	assert.True(t, IsMedia("film.mkv"))
	assert.False(t, IsMedia("film.mkv.part"))
}

func TestCheckMediaOrder(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hi"), 0o644))

	_, err := checkMedia("open", txt)
	assert.Equal(t, KindUnsupportedFormat, KindOf(err))

	_, err = checkMedia("open", filepath.Join(dir, "missing.txt"))
	assert.Equal(t, KindUnsupportedFormat, KindOf(err), "extension is checked before existence")

	_, err = checkMedia("open", "/nonexistent/path.mp4")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.ErrorIs(t, err, ErrNotFound)

	sub := filepath.Join(dir, "folder.mp4")
	require.NoError(t, os.Mkdir(sub, 0o755))
	_, err = checkMedia("open", sub)
	assert.Equal(t, KindUnsupportedFormat, KindOf(err))

	clip := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(clip, nil, 0o644))
	kind, err := checkMedia("open", clip)
	require.NoError(t, err)
	assert.Equal(t, MediaVideo, kind)
}
