package recording

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSaveListOpenRemove(t *testing.T) {
	store, err := NewStore(t.TempDir(), 7, 30)
	assert.NoError(t, err)

	clip, err := store.Save(1, strings.NewReader("audio-bytes"), 10*time.Second)
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(clip.Name, ".webm"))
	assert.Equal(t, int64(len("audio-bytes")), clip.SizeBytes)

	clips, err := store.ListForUser(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(clips))

	reader, err := store.Open(1, clip.Name)
	assert.NoError(t, err)
	data, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.NoError(t, reader.Close())
	assert.Equal(t, "audio-bytes", string(data))

	// Other users never see the clip.
	clips, err = store.ListForUser(2)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(clips))

	assert.NoError(t, store.Remove(1, clip.Name))
	assert.ErrorIs(t, store.Remove(1, clip.Name), ErrClipNotFound)
}

func TestSaveRejectsClipsOverMaxDuration(t *testing.T) {
	store, err := NewStore(t.TempDir(), 7, 30)
	assert.NoError(t, err)

	_, err = store.Save(1, strings.NewReader("too-long"), 31*time.Second)
	assert.ErrorIs(t, err, ErrClipTooLong)

	// Nothing is written for a rejected clip.
	clips, err := store.ListForUser(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(clips))

	// An undeclared duration only trips the byte cap upstream.
	_, err = store.Save(1, strings.NewReader("undeclared"), 0)
	assert.NoError(t, err)
}

func TestOpenRejectsPathTraversal(t *testing.T) {
	store, err := NewStore(t.TempDir(), 7, 30)
	assert.NoError(t, err)

	_, err = store.Open(1, "../user_2/secret.webm")
	assert.ErrorIs(t, err, ErrClipNotFound)

	_, err = store.Open(1, ".hidden")
	assert.ErrorIs(t, err, ErrClipNotFound)
}

func TestSweepRemovesExpiredClips(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 7, 30)
	assert.NoError(t, err)

	oldClip, err := store.Save(1, strings.NewReader("old"), 0)
	assert.NoError(t, err)
	_, err = store.Save(1, strings.NewReader("fresh"), 0)
	assert.NoError(t, err)

	oldPath := filepath.Join(dir, "recordings", "user_1", oldClip.Name)
	expired := time.Now().Add(-8 * 24 * time.Hour)
	assert.NoError(t, os.Chtimes(oldPath, expired, expired))

	removed, err := store.Sweep()
	assert.NoError(t, err)
	assert.Equal(t, 1, removed)

	clips, err := store.ListForUser(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(clips))
}
