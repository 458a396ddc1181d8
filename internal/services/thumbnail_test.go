package services

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThumbnailer_Generate(t *testing.T) {
	th := NewThumbnailer(0)

	t.Run("fits inside the box", func(t *testing.T) {
		out, info, err := th.Generate(bytes.NewReader(pngBytes(t, 800, 400)), ThumbnailProfile{Width: 300, Height: 300, Quality: 80})
		require.NoError(t, err)
		assert.Equal(t, ImageInfo{Width: 800, Height: 400, Format: "png"}, info)

		cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 300, cfg.Width)
		assert.Equal(t, 150, cfg.Height)
	})

	t.Run("never upscales", func(t *testing.T) {
		out, _, err := th.Generate(bytes.NewReader(pngBytes(t, 50, 20)), ThumbnailProfile{Width: 400, Height: 400, Quality: 80})
		require.NoError(t, err)
		cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.Width)
		assert.Equal(t, 20, cfg.Height)
	})

	t.Run("refuses oversized dimensions before decoding", func(t *testing.T) {
		_, info, err := th.Generate(bytes.NewReader(hugePNG(40000, 40000)), ThumbnailProfile{Width: 400, Height: 400, Quality: 80})
		assert.ErrorIs(t, err, ErrImageTooLarge)
		assert.Equal(t, 40000, info.Width)

		small := NewThumbnailer(100)
		_, _, err = small.Generate(bytes.NewReader(pngBytes(t, 20, 20)), ThumbnailProfile{Width: 10, Height: 10, Quality: 80})
		assert.ErrorIs(t, err, ErrImageTooLarge)
	})

	t.Run("invalid data", func(t *testing.T) {
		_, _, err := th.Generate(bytes.NewReader([]byte("not an image")), ThumbnailProfile{Width: 10, Height: 10, Quality: 80})
		assert.Error(t, err)
	})
}
