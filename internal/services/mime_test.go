package services

import (
	"bytes"
	"testing"

	"birthday-memory-app/internal/domain/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMime(t *testing.T) {
	cases := map[string]string{
		"":                         "",
		"image/JPEG":               "image/jpeg",
		"audio/webm;codecs=opus":   "audio/webm",
		" video/webm; codecs=vp8 ": "video/webm",
		"audio/x-wav":              "audio/wav",
		"image/pjpeg":              "image/jpeg",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeMime(in), in)
	}
}

func TestClassifyMime(t *testing.T) {
	kind, ok := ClassifyMime("image/webp")
	assert.True(t, ok)
	assert.Equal(t, memory.KindImage, kind)

	kind, ok = ClassifyMime("video/quicktime")
	assert.True(t, ok)
	assert.Equal(t, memory.KindVideo, kind)

	_, ok = ClassifyMime("application/pdf")
	assert.False(t, ok)
	_, ok = ClassifyMime("image/svg+xml")
	assert.False(t, ok)
}

func TestDetectMime(t *testing.T) {
	png := pngBytes(t, 2, 2)

	got, err := DetectMime("", bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", got)

	got, err = DetectMime("application/octet-stream", bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", got)

	got, err = DetectMime("audio/mpeg", bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", got, "declared type wins")
}

func TestRepairFilename(t *testing.T) {
	assert.Equal(t, "café.mp3", RepairFilename("cafÃ©.mp3"))
	assert.Equal(t, "cake.png", RepairFilename("cake.png"))
	assert.Equal(t, "日本.png", RepairFilename("日本.png"))
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", extensionFor("Cake.JPG", "image/jpeg"))
	assert.Equal(t, ".png", extensionFor("no-extension", "image/png"))
	assert.Equal(t, ".webm", extensionFor("bad.ext!", "audio/webm"))
	assert.Equal(t, "", extensionFor("x", "application/x-unknown-thing"))
}
