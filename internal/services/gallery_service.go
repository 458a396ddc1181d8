package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"birthday-memory-app/internal/domain/memory"
	"birthday-memory-app/internal/metrics"
	"birthday-memory-app/internal/repository"
	app_errors "birthday-memory-app/pkg/errors"
	"birthday-memory-app/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minGalleryImagesCreate = 2
	minGalleryImagesUpdate = 1

	msgInvalidImages = "some images are missing or are not valid images"
)

// ImageRef is a requested gallery entry.
type ImageRef struct {
	ID   string
	Name string
}

type GalleryInput struct {
	DisplayName string
	Description string
	Images      []ImageRef
}

type GalleryService struct {
	memories repository.MemoryRepository
	files    repository.FileRepository
	log      *logger.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

func NewGalleryService(memories repository.MemoryRepository, files repository.FileRepository, log *logger.Logger, m *metrics.Collector) *GalleryService {
	return &GalleryService{
		memories: memories,
		files:    files,
		log:      log,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create composes a gallery from at least two stored images. No blob is
// written; the gallery only references them.
func (s *GalleryService) Create(ctx context.Context, in GalleryInput) (*memory.Memory, error) {
	if len(in.Images) < minGalleryImagesCreate {
		return nil, app_errors.Validation(fmt.Sprintf("at least %d images are required to create a gallery", minGalleryImagesCreate))
	}
	images, err := s.resolve(ctx, in.Images)
	if err != nil {
		return nil, err
	}

	n := len(images)
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name = fmt.Sprintf("Gallery (%d images)", n)
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = fmt.Sprintf("A collection of %d images", n)
	}

	m, err := memory.NewGalleryMemory(uuid.NewString(), name, desc, images, s.now())
	if err != nil {
		return nil, app_errors.ValidationWrap(err.Error(), err)
	}
	if err := s.memories.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create gallery: %w", err)
	}

	s.count("create")
	s.log.Info(ctx, "gallery created", zap.String("id", m.ID), zap.Int("images", n))
	return m, nil
}

// Update replaces the image list of an existing gallery wholesale. Empty
// displayName or description keep the stored values.
func (s *GalleryService) Update(ctx context.Context, id string, in GalleryInput) (*memory.Memory, error) {
	current, err := s.memories.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "gallery not found")
	}
	if !current.IsGallery() {
		return nil, app_errors.NotFound("gallery not found")
	}
	if len(in.Images) < minGalleryImagesUpdate {
		return nil, app_errors.Validation("a gallery needs at least one image")
	}
	images, err := s.resolve(ctx, in.Images)
	if err != nil {
		return nil, err
	}

	var name, desc *string
	if v := strings.TrimSpace(in.DisplayName); v != "" {
		name = &v
	}
	if v := strings.TrimSpace(in.Description); v != "" {
		desc = &v
	}

	updated, err := s.memories.ReplaceGallery(ctx, id, images, name, desc)
	if err != nil {
		return nil, notFound(err, "gallery not found")
	}
	updated.BackfillThumbnails()

	s.count("update")
	s.log.Info(ctx, "gallery updated", zap.String("id", id), zap.Int("images", len(images)))
	return updated, nil
}

// resolve checks that every reference is a distinct staged image file or
// image memory, keeping the requested order.
func (s *GalleryService) resolve(ctx context.Context, refs []ImageRef) ([]memory.GalleryImage, error) {
	ids := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		if strings.TrimSpace(r.ID) == "" {
			return nil, app_errors.Validation(msgInvalidImages)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, app_errors.Validation(msgInvalidImages)
		}
		seen[r.ID] = struct{}{}
		ids = append(ids, r.ID)
	}

	names := make(map[string]string, len(ids))
	files, err := s.files.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup staged files: %w", err)
	}
	for _, f := range files {
		if f.IsImage() {
			names[f.ID] = f.DisplayName
		}
	}
	images, err := s.memories.FindImages(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup image memories: %w", err)
	}
	for _, m := range images {
		names[m.ID] = m.DisplayName
	}

	out := make([]memory.GalleryImage, 0, len(refs))
	for _, r := range refs {
		stored, ok := names[r.ID]
		if !ok {
			return nil, app_errors.Validation(msgInvalidImages)
		}
		name := r.Name
		if name == "" {
			name = stored
		}
		out = append(out, memory.NewGalleryImage(r.ID, name))
	}
	return out, nil
}

func (s *GalleryService) count(op string) {
	if s.metrics != nil {
		s.metrics.Galleries.WithLabelValues(op).Inc()
	}
}

// notFound maps a repository miss onto a NotFound error with msg.
func notFound(err error, msg string) error {
	if app_errors.KindOf(err) == app_errors.KindNotFound {
		return app_errors.NotFound(msg)
	}
	return err
}
