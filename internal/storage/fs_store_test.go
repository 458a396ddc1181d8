package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"birthday-memory-app/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestFSStore_PutOpenRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	data := []byte("GIF89a birthday bytes")

	n, err := s.Put(ctx, "image/abc.gif", bytes.NewReader(data), int64(len(data)), "image/gif")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	rc, info, err := s.Open(ctx, "image/abc.gif")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.Equal(t, "image/gif", info.ContentType)
}

func TestFSStore_OpenMissing(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.Open(context.Background(), "image/missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSStore_DeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "audio-notes/n.webm", bytes.NewReader([]byte("x")), 1, "audio/webm")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "audio-notes/n.webm"))
	require.NoError(t, s.Delete(ctx, "audio-notes/n.webm"))

	ok, err := s.Exists(ctx, "audio-notes/n.webm")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(filepath.Join(s.Root(), "audio-notes"))
	assert.True(t, os.IsNotExist(err), "empty parent directory should be removed")
}

func TestFSStore_PutLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Put(context.Background(), "video/v.mp4", bytes.NewReader([]byte("data")), 4, "video/mp4")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(s.Root(), tempDirName))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFSStore_PutCanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Put(ctx, "image/x.png", bytes.NewReader([]byte("x")), 1, "image/png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateKey(t *testing.T) {
	valid := []string{"image/abc.jpg", "audio-notes/1_2.webm", "image/thumb_x.jpg"}
	for _, k := range valid {
		assert.NoError(t, ValidateKey(k), k)
	}

	invalid := []string{"", "/abs", "trailing/", "../etc/passwd", "a//b", "a/./b", "sp ace.jpg", "a\\b"}
	for _, k := range invalid {
		assert.Error(t, ValidateKey(k), k)
	}
}

func TestNewBlobStore(t *testing.T) {
	s, err := NewBlobStore(context.Background(), config.BlobConfig{Backend: config.BlobBackendFS, Root: t.TempDir()}, config.S3Config{})
	require.NoError(t, err)
	assert.IsType(t, &FSStore{}, s)

	_, err = NewBlobStore(context.Background(), config.BlobConfig{Backend: config.BlobBackendS3}, config.S3Config{})
	assert.Error(t, err, "s3 needs region and bucket")

	_, err = NewBlobStore(context.Background(), config.BlobConfig{Backend: "ftp"}, config.S3Config{})
	assert.Error(t, err)
}
