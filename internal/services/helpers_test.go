package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"path/filepath"
	"testing"

	"birthday-memory-app/config"
	"birthday-memory-app/internal/repository/repotest"
	"birthday-memory-app/internal/storage"
	"birthday-memory-app/pkg/logger"

	"github.com/stretchr/testify/require"
)

type memPart struct {
	*bytes.Reader
}

func (memPart) Close() error { return nil }

func newPart(name, contentType string, data []byte) Part {
	return Part{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (PartReader, error) {
			return memPart{bytes.NewReader(data)}, nil
		},
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// hugePNG is a tiny file whose header claims a w x h image.
func hugePNG(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(typ string, data []byte) {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		body := append([]byte(typ), data...)
		buf.Write(body)
		_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(body))
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor
	chunk("IHDR", ihdr)
	chunk("IDAT", []byte{0x78, 0x9c, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01})
	chunk("IEND", nil)
	return buf.Bytes()
}

type panickingThumbnailer struct{}

func (panickingThumbnailer) Generate(io.ReadSeeker, ThumbnailProfile) ([]byte, ImageInfo, error) {
	panic("decoder exploded")
}

// flakyStore fails deletes while failDelete is set.
type flakyStore struct {
	storage.BlobStore
	failDelete bool
}

var errBlobDown = errors.New("blob store down")

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	if s.failDelete {
		return errBlobDown
	}
	return s.BlobStore.Delete(ctx, key)
}

type testEnv struct {
	cfg      *config.Config
	memories *repotest.MemoryRepo
	files    *repotest.FileRepo
	fs       *storage.FSStore
	blobs    *flakyStore
	queue    *MemoryCleanupQueue
	janitor  *BlobJanitor
	uploads  *UploadService
	gallery  *GalleryService
	memory   *MemoryService
	fileSvc  *FileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	fsStore, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	e := &testEnv{
		cfg:      cfg,
		memories: repotest.NewMemoryRepo(),
		files:    repotest.NewFileRepo(),
		fs:       fsStore,
		blobs:    &flakyStore{BlobStore: fsStore},
		queue:    NewMemoryCleanupQueue(),
	}
	l := logger.NewNop()
	e.janitor = NewBlobJanitor(e.blobs, e.queue, l, nil)
	e.uploads = NewUploadService(e.memories, e.files, e.blobs, e.janitor, NewThumbnailer(cfg.Upload.ThumbMaxPixels), cfg.Upload, l, nil)
	e.gallery = NewGalleryService(e.memories, e.files, l, nil)
	e.memory = NewMemoryService(e.memories, e.blobs, e.janitor, cfg.Upload, l)
	e.fileSvc = NewFileService(e.memories, e.files, e.blobs, l)
	return e
}

// blobCount counts stored blobs, ignoring the temp directory.
func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(e.fs.Root(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".tmp" {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}
