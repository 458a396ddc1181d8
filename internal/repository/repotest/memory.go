// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"birthday-memory-app/internal/domain/memory"
	"birthday-memory-app/internal/repository"
	app_errors "birthday-memory-app/pkg/errors"
)

var ErrInjected = errors.New("injected repository failure")

type MemoryRepo struct {
	mu    sync.Mutex
	items map[string]*memory.Memory

	// FailCreateAt makes the n-th Create call (1-based) fail. Zero disables.
	FailCreateAt int
	creates      int
}

var _ repository.MemoryRepository = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: map[string]*memory.Memory{}}
}

func (r *MemoryRepo) Create(ctx context.Context, m *memory.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.FailCreateAt > 0 && r.creates == r.FailCreateAt {
		return ErrInjected
	}
	if _, ok := r.items[m.ID]; ok {
		return app_errors.ErrAlreadyExists
	}
	r.items[m.ID] = clone(m)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (*memory.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return nil, app_errors.ErrNotFound
	}
	return clone(m), nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]*memory.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*memory.Memory, 0, len(r.items))
	for _, m := range r.items {
		out = append(out, clone(m))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadDate.After(out[j].UploadDate) })
	return out, nil
}

func (r *MemoryRepo) UpdateDetails(ctx context.Context, id string, displayName, description *string) (*memory.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return nil, app_errors.ErrNotFound
	}
	if displayName != nil {
		m.DisplayName = *displayName
	}
	if description != nil {
		m.Description = *description
	}
	return clone(m), nil
}

func (r *MemoryRepo) SetAudioNote(ctx context.Context, id, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return "", app_errors.ErrNotFound
	}
	prev := m.AudioNote
	m.AudioNote = key
	return prev, nil
}

func (r *MemoryRepo) ReplaceGallery(ctx context.Context, id string, images []memory.GalleryImage, displayName, description *string) (*memory.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok || m.Kind != memory.KindGallery {
		return nil, app_errors.ErrNotFound
	}
	m.Gallery = &memory.Gallery{Images: append([]memory.GalleryImage(nil), images...)}
	if displayName != nil {
		m.DisplayName = *displayName
	}
	if description != nil {
		m.Description = *description
	}
	return clone(m), nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) (*memory.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return nil, app_errors.ErrNotFound
	}
	delete(r.items, id)
	return m, nil
}

func (r *MemoryRepo) FindImages(ctx context.Context, ids []string) ([]*memory.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*memory.Memory
	for _, id := range ids {
		m, ok := r.items[id]
		if ok && m.Kind == memory.KindImage && m.File != nil && strings.HasPrefix(m.File.MimeType, "image/") {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

func (r *MemoryRepo) IsReferenced(ctx context.Context, imageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.items {
		if m.Gallery == nil {
			continue
		}
		for _, img := range m.Gallery.Images {
			if img.ID == imageID {
				return true, nil
			}
		}
	}
	return false, nil
}

// Len reports how many memories are stored.
func (r *MemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Put stores m directly, bypassing Create's failure injection.
func (r *MemoryRepo) Put(m *memory.Memory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[m.ID] = clone(m)
}

func clone(m *memory.Memory) *memory.Memory {
	c := *m
	if m.File != nil {
		f := *m.File
		c.File = &f
	}
	if m.Gallery != nil {
		c.Gallery = &memory.Gallery{Images: append([]memory.GalleryImage(nil), m.Gallery.Images...)}
	}
	return &c
}

type FileRepo struct {
	mu    sync.Mutex
	items map[string]*memory.File

	FailCreateAt int
	creates      int
}

var _ repository.FileRepository = (*FileRepo)(nil)

func NewFileRepo() *FileRepo {
	return &FileRepo{items: map[string]*memory.File{}}
}

func (r *FileRepo) Create(ctx context.Context, f *memory.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.FailCreateAt > 0 && r.creates == r.FailCreateAt {
		return ErrInjected
	}
	if _, ok := r.items[f.ID]; ok {
		return app_errors.ErrAlreadyExists
	}
	c := *f
	r.items[f.ID] = &c
	return nil
}

func (r *FileRepo) GetByID(ctx context.Context, id string) (*memory.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.items[id]
	if !ok {
		return nil, app_errors.ErrNotFound
	}
	c := *f
	return &c, nil
}

func (r *FileRepo) FindByIDs(ctx context.Context, ids []string) ([]*memory.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*memory.File
	for _, id := range ids {
		if f, ok := r.items[id]; ok {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *FileRepo) ListStagedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*memory.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*memory.File
	for _, f := range r.items {
		if f.UploadDate.Before(cutoff) {
			c := *f
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadDate.Before(out[j].UploadDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *FileRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return app_errors.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *FileRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *FileRepo) Put(f *memory.File) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *f
	r.items[f.ID] = &c
}
