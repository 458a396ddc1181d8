package services

import (
	"context"
	"fmt"

	"birthday-memory-app/config"
	"birthday-memory-app/internal/domain/memory"
	"birthday-memory-app/internal/repository"
	"birthday-memory-app/internal/storage"
	app_errors "birthday-memory-app/pkg/errors"
	"birthday-memory-app/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const audioNotePrefix = "audio-notes"

// DeleteResult reports a delete. Cleanup is CleanupDeferred when at least
// one blob could not be removed yet.
type DeleteResult struct {
	ID      string `json:"id"`
	Cleanup string `json:"cleanup"`
}

type MemoryService struct {
	memories repository.MemoryRepository
	blobs    storage.BlobStore
	janitor  *BlobJanitor
	cfg      config.UploadConfig
	log      *logger.Logger
}

func NewMemoryService(memories repository.MemoryRepository, blobs storage.BlobStore, janitor *BlobJanitor, cfg config.UploadConfig, log *logger.Logger) *MemoryService {
	return &MemoryService{memories: memories, blobs: blobs, janitor: janitor, cfg: cfg, log: log}
}

// List returns every memory, newest first.
func (s *MemoryService) List(ctx context.Context) ([]*memory.Memory, error) {
	items, err := s.memories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	for _, m := range items {
		m.BackfillThumbnails()
	}
	return items, nil
}

func (s *MemoryService) Get(ctx context.Context, id string) (*memory.Memory, error) {
	m, err := s.memories.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "memory not found")
	}
	m.BackfillThumbnails()
	return m, nil
}

// Update changes the mutable fields. Nil fields are left as they are.
func (s *MemoryService) Update(ctx context.Context, id string, displayName, description *string) (*memory.Memory, error) {
	m, err := s.memories.UpdateDetails(ctx, id, displayName, description)
	if err != nil {
		return nil, notFound(err, "memory not found")
	}
	m.BackfillThumbnails()
	return m, nil
}

// AttachAudioNote stores an audio note for a memory, replacing any
// previous note.
func (s *MemoryService) AttachAudioNote(ctx context.Context, id string, part *Part) (*memory.Memory, error) {
	if _, err := s.memories.GetByID(ctx, id); err != nil {
		return nil, notFound(err, "memory not found")
	}
	if part == nil {
		return nil, app_errors.Validation("no audio file uploaded")
	}
	if s.cfg.MaxFileSize > 0 && part.Size > s.cfg.MaxFileSize {
		return nil, app_errors.ValidationWrap(fmt.Sprintf("file too large, maximum size is %s", humanBytes(s.cfg.MaxFileSize)), app_errors.ErrTooLarge)
	}

	mimeType, err := s.audioMime(part)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s%s", audioNotePrefix, uuid.NewString(), extensionFor(RepairFilename(part.Filename), mimeType))
	f, err := part.Open()
	if err != nil {
		return nil, app_errors.ValidationWrap("unreadable file", err)
	}
	_, err = s.blobs.Put(ctx, key, f, part.Size, mimeType)
	_ = f.Close()
	if err != nil {
		return nil, app_errors.Storage("audio note upload failed", err)
	}

	previous, err := s.memories.SetAudioNote(ctx, id, key)
	if err != nil {
		s.janitor.Remove(ctx, key)
		return nil, notFound(err, "memory not found")
	}
	if previous != "" && previous != key {
		s.janitor.Remove(ctx, previous)
	}

	s.log.Info(ctx, "audio note attached", zap.String("id", id), zap.String("key", key))
	return s.Get(ctx, id)
}

func (s *MemoryService) audioMime(part *Part) (string, error) {
	mimeType := NormalizeMime(part.ContentType)
	if mimeType == "" || mimeType == octetStream {
		f, err := part.Open()
		if err != nil {
			return "", app_errors.ValidationWrap("unreadable file", err)
		}
		mimeType, err = DetectMime(part.ContentType, f)
		_ = f.Close()
		if err != nil {
			return "", app_errors.ValidationWrap("unreadable file", err)
		}
	}
	// Recorders commonly label audio-only WebM as video/webm.
	if mimeType == "video/webm" {
		mimeType = "audio/webm"
	}
	if kind, ok := ClassifyMime(mimeType); !ok || kind != memory.KindAudio {
		return "", app_errors.ValidationWrap("audio note must be an audio file, got "+displayMime(mimeType), app_errors.ErrUnsupportedType)
	}
	return mimeType, nil
}

// Delete removes the record first, then its blobs. Blob failures never
// fail the delete; they are queued and reported as deferred cleanup.
func (s *MemoryService) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	m, err := s.memories.Delete(ctx, id)
	if err != nil {
		return nil, notFound(err, "memory not found")
	}
	status := s.janitor.Remove(ctx, m.BlobKeys()...)
	s.log.Info(ctx, "memory deleted", zap.String("id", id), zap.String("type", string(m.Kind)), zap.String("cleanup", status))
	return &DeleteResult{ID: id, Cleanup: status}, nil
}
