package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ThumbnailProfile bounds a thumbnail box and sets its JPEG quality.
type ThumbnailProfile struct {
	Width   int
	Height  int
	Quality int
}

// ImageInfo describes the decoded original.
type ImageInfo struct {
	Width  int
	Height int
	Format string
}

// DefaultMaxPixels is the largest image area decoded for a thumbnail.
const DefaultMaxPixels int64 = 268402689

var ErrImageTooLarge = errors.New("image dimensions exceed the decode limit")

// Thumbnailer derives JPEG thumbnails. The result fits inside the profile
// box with the aspect ratio kept and is never larger than the original.
type Thumbnailer struct {
	maxPixels int64
}

// NewThumbnailer refuses to decode images larger than maxPixels. Zero or
// less uses DefaultMaxPixels.
func NewThumbnailer(maxPixels int64) *Thumbnailer {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Thumbnailer{maxPixels: maxPixels}
}

func (t *Thumbnailer) Generate(src io.ReadSeeker, p ThumbnailProfile) ([]byte, ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(src)
	if err != nil {
		return nil, ImageInfo{}, fmt.Errorf("decode image header: %w", err)
	}
	info := ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > t.maxPixels {
		return nil, info, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrImageTooLarge)
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, info, err
	}
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, info, fmt.Errorf("decode image: %w", err)
	}

	thumb := imaging.Fit(img, p.Width, p.Height, imaging.Lanczos)
	b := thumb.Bounds()
	flat := imaging.New(b.Dx(), b.Dy(), color.White)
	flat = imaging.Overlay(flat, thumb, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(p.Quality)); err != nil {
		return nil, info, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), info, nil
}
