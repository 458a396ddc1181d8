package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"birthday-memory-app/internal/repository"
	"birthday-memory-app/internal/storage"
	app_errors "birthday-memory-app/pkg/errors"
	"birthday-memory-app/pkg/logger"

	"go.uber.org/zap"
)

// Variant selects which asset of a record to stream.
type Variant int

const (
	VariantOriginal Variant = iota
	VariantThumbnail
	VariantAudioNote
)

// Asset is an opened blob ready to stream. The caller closes Body.
type Asset struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	Filename    string
}

var audioNoteTypes = map[string]string{
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
}

type FileService struct {
	memories repository.MemoryRepository
	files    repository.FileRepository
	blobs    storage.BlobStore
	log      *logger.Logger
}

func NewFileService(memories repository.MemoryRepository, files repository.FileRepository, blobs storage.BlobStore, log *logger.Logger) *FileService {
	return &FileService{memories: memories, files: files, blobs: blobs, log: log}
}

type fileRef struct {
	mimeType  string
	path      string
	thumbnail string
	audioNote string
}

// Open resolves id against memories first and staged files second, then
// opens the requested variant. A missing thumbnail falls back to the
// original.
func (s *FileService) Open(ctx context.Context, id string, v Variant) (*Asset, error) {
	ref, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	switch v {
	case VariantAudioNote:
		if ref.audioNote == "" {
			return nil, app_errors.NotFound("audio note not found")
		}
		a, err := s.open(ctx, ref.audioNote)
		if err != nil {
			return nil, notFound(err, "audio note file not found")
		}
		ext := path.Ext(ref.audioNote)
		if ct, ok := audioNoteTypes[ext]; ok {
			a.ContentType = ct
		} else if a.ContentType == "" {
			a.ContentType = "audio/wav"
		}
		a.Filename = fmt.Sprintf("audio-note-%s%s", id, ext)
		return a, nil

	case VariantThumbnail:
		if ref.thumbnail != "" {
			a, err := s.open(ctx, ref.thumbnail)
			if err == nil {
				a.ContentType = "image/jpeg"
				return a, nil
			}
			if app_errors.KindOf(err) != app_errors.KindNotFound {
				return nil, err
			}
			s.log.Warn(ctx, "thumbnail missing, serving original", zap.String("id", id), zap.String("key", ref.thumbnail))
		}
	}

	if ref.path == "" {
		return nil, app_errors.NotFound("file not found")
	}
	a, err := s.open(ctx, ref.path)
	if err != nil {
		return nil, notFound(err, "file has been deleted")
	}
	if ref.mimeType != "" {
		a.ContentType = ref.mimeType
	}
	return a, nil
}

func (s *FileService) lookup(ctx context.Context, id string) (*fileRef, error) {
	m, err := s.memories.GetByID(ctx, id)
	if err == nil {
		ref := &fileRef{audioNote: m.AudioNote}
		if m.File != nil {
			ref.mimeType = m.File.MimeType
			ref.path = m.File.Path
			ref.thumbnail = m.File.ThumbnailPath
		}
		return ref, nil
	}
	if !errors.Is(err, app_errors.ErrNotFound) {
		return nil, err
	}

	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "file not found")
	}
	return &fileRef{mimeType: f.MimeType, path: f.Path, thumbnail: f.ThumbnailPath}, nil
}

func (s *FileService) open(ctx context.Context, key string) (*Asset, error) {
	body, info, err := s.blobs.Open(ctx, key)
	if err != nil {
		// Keys the store cannot address, such as absolute paths on
		// older records, have no bytes behind them.
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) || errors.Is(err, storage.ErrEmptyKey) {
			return nil, app_errors.ErrNotFound
		}
		return nil, app_errors.Storage("file access failed", err)
	}
	return &Asset{Body: body, ContentType: info.ContentType, Size: info.Size}, nil
}
