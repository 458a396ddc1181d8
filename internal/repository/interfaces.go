package repository

import (
	"context"
	"time"

	"birthday-memory-app/internal/domain/memory"
)

type MemoryRepository interface {
	Create(ctx context.Context, m *memory.Memory) error
	GetByID(ctx context.Context, id string) (*memory.Memory, error)
	// List returns every memory, newest first.
	List(ctx context.Context) ([]*memory.Memory, error)

	UpdateDetails(ctx context.Context, id string, displayName, description *string) (*memory.Memory, error)
	// SetAudioNote stores key as the memory's audio note and returns the
	// key it replaced, if any.
	SetAudioNote(ctx context.Context, id, key string) (string, error)
	ReplaceGallery(ctx context.Context, id string, images []memory.GalleryImage, displayName, description *string) (*memory.Memory, error)

	// Delete removes the record and returns it so the caller can release
	// its blobs.
	Delete(ctx context.Context, id string) (*memory.Memory, error)

	FindImages(ctx context.Context, ids []string) ([]*memory.Memory, error)
	IsReferenced(ctx context.Context, imageID string) (bool, error)
}

type FileRepository interface {
	Create(ctx context.Context, f *memory.File) error
	GetByID(ctx context.Context, id string) (*memory.File, error)
	FindByIDs(ctx context.Context, ids []string) ([]*memory.File, error)
	ListStagedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*memory.File, error)
	Delete(ctx context.Context, id string) error
}
