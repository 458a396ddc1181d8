package services

import (
	"context"
	"testing"
	"time"

	"birthday-memory-app/internal/domain/memory"
	app_errors "birthday-memory-app/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageImages(t *testing.T, e *testEnv, n int) []*memory.File {
	t.Helper()
	parts := make([]Part, n)
	for i := range parts {
		parts[i] = newPart("img.png", "image/png", pngBytes(t, 20, 20))
	}
	res, err := e.uploads.UploadStaged(context.Background(), parts)
	require.NoError(t, err)
	return res.Files
}

func TestGalleryCreate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	staged := stageImages(t, e, 2)

	t.Run("two images with defaults", func(t *testing.T) {
		m, err := e.gallery.Create(ctx, GalleryInput{Images: []ImageRef{{ID: staged[0].ID}, {ID: staged[1].ID, Name: "second"}}})
		require.NoError(t, err)
		assert.Equal(t, memory.KindGallery, m.Kind)
		assert.Equal(t, "Gallery (2 images)", m.DisplayName)
		assert.Equal(t, "A collection of 2 images", m.Description)
		require.Equal(t, 2, m.ImageCount())
		assert.Equal(t, "img.png", m.Gallery.Images[0].Name)
		assert.Equal(t, "second", m.Gallery.Images[1].Name)
		assert.Empty(t, m.BlobKeys())
	})

	t.Run("one image rejected", func(t *testing.T) {
		before := e.memories.Len()
		_, err := e.gallery.Create(ctx, GalleryInput{Images: []ImageRef{{ID: staged[0].ID}}})
		assert.Equal(t, app_errors.KindValidation, app_errors.KindOf(err))
		assert.Equal(t, before, e.memories.Len())
	})

	t.Run("unknown id rejected", func(t *testing.T) {
		_, err := e.gallery.Create(ctx, GalleryInput{Images: []ImageRef{{ID: staged[0].ID}, {ID: "missing"}}})
		assert.Equal(t, app_errors.KindValidation, app_errors.KindOf(err))
		assert.Equal(t, msgInvalidImages, app_errors.MessageOf(err, ""))
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		before := e.memories.Len()
		_, err := e.gallery.Create(ctx, GalleryInput{Images: []ImageRef{{ID: staged[0].ID}, {ID: staged[0].ID}}})
		assert.Equal(t, app_errors.KindValidation, app_errors.KindOf(err))
		assert.Equal(t, msgInvalidImages, app_errors.MessageOf(err, ""))
		assert.Equal(t, before, e.memories.Len())
	})

	t.Run("audio memory rejected", func(t *testing.T) {
		res, err := e.uploads.Upload(ctx, []Part{newPart("a.mp3", "audio/mpeg", []byte("x"))}, "", true)
		require.NoError(t, err)
		_, err = e.gallery.Create(ctx, GalleryInput{Images: []ImageRef{{ID: staged[0].ID}, {ID: res.Memories[0].ID}}})
		assert.Equal(t, msgInvalidImages, app_errors.MessageOf(err, ""))
	})

	t.Run("image memories accepted", func(t *testing.T) {
		res, err := e.uploads.Upload(ctx, []Part{
			newPart("a.png", "image/png", pngBytes(t, 8, 8)),
			newPart("b.png", "image/png", pngBytes(t, 8, 8)),
		}, "", true)
		require.NoError(t, err)
		m, err := e.gallery.Create(ctx, GalleryInput{
			DisplayName: "Cake",
			Description: "the cake",
			Images:      []ImageRef{{ID: res.Memories[0].ID}, {ID: res.Memories[1].ID}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Cake", m.DisplayName)
		assert.Equal(t, "a.png", m.Gallery.Images[0].Name)
	})
}

func TestGalleryUpdate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	staged := stageImages(t, e, 3)

	g, err := e.gallery.Create(ctx, GalleryInput{DisplayName: "Party", Description: "night", Images: []ImageRef{{ID: staged[0].ID}, {ID: staged[1].ID}}})
	require.NoError(t, err)

	t.Run("replaces images and keeps empty fields", func(t *testing.T) {
		m, err := e.gallery.Update(ctx, g.ID, GalleryInput{Description: "morning", Images: []ImageRef{{ID: staged[2].ID}}})
		require.NoError(t, err)
		assert.Equal(t, "Party", m.DisplayName)
		assert.Equal(t, "morning", m.Description)
		require.Equal(t, 1, m.ImageCount())
		assert.Equal(t, staged[2].ID, m.Gallery.Images[0].ID)
	})

	t.Run("missing gallery", func(t *testing.T) {
		_, err := e.gallery.Update(ctx, "nope", GalleryInput{Images: []ImageRef{{ID: staged[0].ID}}})
		assert.Equal(t, app_errors.KindNotFound, app_errors.KindOf(err))
		assert.Equal(t, "gallery not found", app_errors.MessageOf(err, ""))
	})

	t.Run("not a gallery", func(t *testing.T) {
		res, err := e.uploads.Upload(ctx, []Part{newPart("a.mp3", "audio/mpeg", []byte("x"))}, "", true)
		require.NoError(t, err)
		_, err = e.gallery.Update(ctx, res.Memories[0].ID, GalleryInput{Images: []ImageRef{{ID: staged[0].ID}}})
		assert.Equal(t, app_errors.KindNotFound, app_errors.KindOf(err))
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		_, err := e.gallery.Update(ctx, g.ID, GalleryInput{Images: []ImageRef{{ID: staged[1].ID}, {ID: staged[1].ID}}})
		assert.Equal(t, msgInvalidImages, app_errors.MessageOf(err, ""))
	})

	t.Run("empty image list", func(t *testing.T) {
		_, err := e.gallery.Update(ctx, g.ID, GalleryInput{})
		assert.Equal(t, app_errors.KindValidation, app_errors.KindOf(err))
	})
}

func TestGalleryBackfillsLegacyThumbnails(t *testing.T) {
	e := newTestEnv(t)
	e.memories.Put(&memory.Memory{
		ID:         "legacy",
		Kind:       memory.KindGallery,
		UploadDate: time.Now(),
		Gallery:    &memory.Gallery{Images: []memory.GalleryImage{{ID: "x", URL: "/api/file/x"}}},
	})

	m, err := e.memory.Get(context.Background(), "legacy")
	require.NoError(t, err)
	assert.Equal(t, "/api/file/x?thumb=true", m.Gallery.Images[0].Thumbnail)
}
