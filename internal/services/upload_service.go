package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"birthday-memory-app/config"
	"birthday-memory-app/internal/domain/memory"
	"birthday-memory-app/internal/metrics"
	"birthday-memory-app/internal/repository"
	"birthday-memory-app/internal/storage"
	app_errors "birthday-memory-app/pkg/errors"
	"birthday-memory-app/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PartReader is an opened upload part.
type PartReader interface {
	io.Reader
	io.Seeker
	io.Closer
}

// Part is one file of a multipart batch.
type Part struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (PartReader, error)
}

type ItemStatus string

const (
	ItemCreated ItemStatus = "created"
	ItemFailed  ItemStatus = "failed"
	ItemSkipped ItemStatus = "skipped"
)

// ItemResult reports what happened to one file of a batch.
type ItemResult struct {
	Index        int        `json:"index"`
	OriginalName string     `json:"originalName"`
	Status       ItemStatus `json:"status"`
	ID           string     `json:"id,omitempty"`
	Error        string     `json:"error,omitempty"`
}

type UploadResult struct {
	Memories []*memory.Memory
	Files    []*memory.File
	Items    []ItemResult
}

// BatchError is returned when a batch stops part way. Items committed
// before the failure keep their records and blobs.
type BatchError struct {
	Items []ItemResult
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("upload batch failed: %v", e.Err)
}

func (e *BatchError) Unwrap() error {
	return app_errors.Storage("file upload failed", e.Err)
}

// ThumbnailGenerator derives a thumbnail from an image stream.
type ThumbnailGenerator interface {
	Generate(src io.ReadSeeker, p ThumbnailProfile) ([]byte, ImageInfo, error)
}

type UploadService struct {
	memories repository.MemoryRepository
	files    repository.FileRepository
	blobs    storage.BlobStore
	janitor  *BlobJanitor
	thumbs   ThumbnailGenerator
	cfg      config.UploadConfig
	log      *logger.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

func NewUploadService(
	memories repository.MemoryRepository,
	files repository.FileRepository,
	blobs storage.BlobStore,
	janitor *BlobJanitor,
	thumbs ThumbnailGenerator,
	cfg config.UploadConfig,
	log *logger.Logger,
	m *metrics.Collector,
) *UploadService {
	return &UploadService{
		memories: memories,
		files:    files,
		blobs:    blobs,
		janitor:  janitor,
		thumbs:   thumbs,
		cfg:      cfg,
		log:      log,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type preparedPart struct {
	Part
	name     string
	mimeType string
	kind     memory.Kind
}

// storedBlob is the outcome of writing one part and its thumbnail.
type storedBlob struct {
	id       string
	key      string
	thumbKey string
	size     int64
	info     ImageInfo
}

// Upload stores a batch. With createMemories each file becomes a Memory
// sharing description; otherwise each file is staged as a File record.
func (s *UploadService) Upload(ctx context.Context, parts []Part, description string, createMemories bool) (*UploadResult, error) {
	if !createMemories {
		return s.stage(ctx, parts, s.memoryProfile())
	}
	res := &UploadResult{}
	err := s.run(ctx, res, parts, s.memoryProfile(), func(p preparedPart, b storedBlob, now time.Time) error {
		m, err := memory.NewFileMemory(b.id, p.kind, p.name, description, memory.FileAsset{
			MimeType:      p.mimeType,
			Size:          b.size,
			Path:          b.key,
			ThumbnailPath: b.thumbKey,
			Width:         b.info.Width,
			Height:        b.info.Height,
		}, now)
		if err != nil {
			return err
		}
		if err := s.memories.Create(ctx, m); err != nil {
			return err
		}
		res.Memories = append(res.Memories, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UploadStaged stores a batch as File staging records for later gallery
// composition.
func (s *UploadService) UploadStaged(ctx context.Context, parts []Part) (*UploadResult, error) {
	return s.stage(ctx, parts, s.stagedProfile())
}

func (s *UploadService) stage(ctx context.Context, parts []Part, profile ThumbnailProfile) (*UploadResult, error) {
	res := &UploadResult{}
	err := s.run(ctx, res, parts, profile, func(p preparedPart, b storedBlob, now time.Time) error {
		f := &memory.File{
			ID:            b.id,
			OriginalName:  p.name,
			DisplayName:   p.name,
			Path:          b.key,
			ThumbnailPath: b.thumbKey,
			Size:          b.size,
			MimeType:      p.mimeType,
			UploadDate:    now,
			Width:         b.info.Width,
			Height:        b.info.Height,
			Format:        b.info.Format,
		}
		if err := s.files.Create(ctx, f); err != nil {
			return err
		}
		res.Files = append(res.Files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *UploadService) stagedProfile() ThumbnailProfile {
	return ThumbnailProfile{Width: s.cfg.StagedThumbWidth, Height: s.cfg.StagedThumbHeight, Quality: s.cfg.StagedThumbQuality}
}

func (s *UploadService) memoryProfile() ThumbnailProfile {
	return ThumbnailProfile{Width: s.cfg.ThumbWidth, Height: s.cfg.ThumbHeight, Quality: s.cfg.ThumbQuality}
}

type commitFunc func(p preparedPart, b storedBlob, now time.Time) error

func (s *UploadService) run(ctx context.Context, result *UploadResult, parts []Part, profile ThumbnailProfile, commit commitFunc) error {
	prepared, err := s.prepare(parts)
	if err != nil {
		return err
	}

	result.Items = make([]ItemResult, len(prepared))
	for i, p := range prepared {
		result.Items[i] = ItemResult{Index: i, OriginalName: p.name, Status: ItemSkipped}
	}

	for i, p := range prepared {
		blob, err := s.store(ctx, p, profile)
		if err == nil {
			err = commit(p, blob, s.now())
			if err == nil {
				result.Items[i].Status = ItemCreated
				result.Items[i].ID = blob.id
				s.countUpload(p.kind, "created", blob.size)
				continue
			}
			s.janitor.Remove(ctx, blob.key, blob.thumbKey)
		}

		s.log.Error(ctx, "upload item failed",
			zap.Int("index", i), zap.String("original_name", p.name), zap.Error(err))
		s.countUpload(p.kind, "failed", 0)
		result.Items[i].Status = ItemFailed
		result.Items[i].Error = err.Error()
		return &BatchError{Items: result.Items, Err: err}
	}
	return nil
}

// prepare validates the whole batch before anything is written.
func (s *UploadService) prepare(parts []Part) ([]preparedPart, error) {
	if len(parts) == 0 {
		return nil, app_errors.Validation("no files uploaded")
	}
	if s.cfg.MaxFiles > 0 && len(parts) > s.cfg.MaxFiles {
		return nil, app_errors.ValidationWrap(fmt.Sprintf("too many files, at most %d files per upload", s.cfg.MaxFiles), app_errors.ErrTooMany)
	}

	out := make([]preparedPart, 0, len(parts))
	for _, p := range parts {
		if s.cfg.MaxFileSize > 0 && p.Size > s.cfg.MaxFileSize {
			return nil, app_errors.ValidationWrap(fmt.Sprintf("file too large, maximum size is %s", humanBytes(s.cfg.MaxFileSize)), app_errors.ErrTooLarge)
		}
		mimeType, err := s.resolveMime(p)
		if err != nil {
			return nil, err
		}
		kind, ok := ClassifyMime(mimeType)
		if !ok {
			return nil, app_errors.ValidationWrap("unsupported file type: "+displayMime(mimeType), app_errors.ErrUnsupportedType)
		}
		out = append(out, preparedPart{Part: p, name: RepairFilename(p.Filename), mimeType: mimeType, kind: kind})
	}
	return out, nil
}

func (s *UploadService) resolveMime(p Part) (string, error) {
	declared := NormalizeMime(p.ContentType)
	if declared != "" && declared != octetStream {
		return declared, nil
	}
	f, err := p.Open()
	if err != nil {
		return "", app_errors.ValidationWrap("unreadable file", err)
	}
	defer f.Close()
	return DetectMime(p.ContentType, f)
}

func (s *UploadService) store(ctx context.Context, p preparedPart, profile ThumbnailProfile) (storedBlob, error) {
	id := uuid.NewString()
	b := storedBlob{id: id, key: fmt.Sprintf("%s/%s%s", p.kind, id, extensionFor(p.name, p.mimeType))}

	f, err := p.Open()
	if err != nil {
		return b, fmt.Errorf("open part: %w", err)
	}
	defer f.Close()

	n, err := s.blobs.Put(ctx, b.key, f, p.Size, p.mimeType)
	if err != nil {
		return storedBlob{}, fmt.Errorf("store blob: %w", err)
	}
	b.size = n

	if p.kind == memory.KindImage {
		b.thumbKey, b.info = s.thumbnail(ctx, f, id, p, profile)
	}
	return b, nil
}

// thumbnail derives and stores a thumbnail. Failures are logged and the
// upload continues without one.
func (s *UploadService) thumbnail(ctx context.Context, f PartReader, id string, p preparedPart, profile ThumbnailProfile) (key string, info ImageInfo) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(ctx, "thumbnail generation panicked", zap.String("original_name", p.name), zap.Any("panic", r))
			s.countThumb("failed")
			key, info = "", ImageInfo{}
		}
	}()

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		s.log.Warn(ctx, "thumbnail skipped", zap.String("original_name", p.name), zap.Error(err))
		s.countThumb("failed")
		return "", ImageInfo{}
	}
	data, info, err := s.thumbs.Generate(f, profile)
	if err != nil {
		s.log.Warn(ctx, "thumbnail generation failed", zap.String("original_name", p.name), zap.Error(err))
		s.countThumb("failed")
		return "", info
	}
	key = fmt.Sprintf("%s/thumb_%s.jpg", p.kind, id)
	if _, err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "image/jpeg"); err != nil {
		s.log.Warn(ctx, "thumbnail store failed", zap.String("key", key), zap.Error(err))
		s.countThumb("failed")
		return "", info
	}
	s.countThumb("ok")
	return key, info
}

func (s *UploadService) countUpload(kind memory.Kind, result string, size int64) {
	if s.metrics == nil {
		return
	}
	s.metrics.UploadedFiles.WithLabelValues(string(kind), result).Inc()
	if size > 0 {
		s.metrics.UploadedBytes.Add(float64(size))
	}
}

func (s *UploadService) countThumb(result string) {
	if s.metrics != nil {
		s.metrics.Thumbnails.WithLabelValues(result).Inc()
	}
}

func displayMime(mt string) string {
	if mt == "" {
		return "unknown"
	}
	return mt
}

func humanBytes(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
