package memory

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the variant tag of a Memory. It never changes after creation.
type Kind string

const (
	KindImage   Kind = "image"
	KindAudio   Kind = "audio"
	KindVideo   Kind = "video"
	KindGallery Kind = "gallery"
)

func (k Kind) Valid() bool {
	switch k {
	case KindImage, KindAudio, KindVideo, KindGallery:
		return true
	}
	return false
}

var (
	ErrInvalidKind     = errors.New("invalid memory type")
	ErrMissingAsset    = errors.New("file memory requires a stored asset")
	ErrUnexpectedAsset = errors.New("gallery memory cannot own a stored asset")
	ErrEmptyGallery    = errors.New("gallery requires at least one image")
)

// Memory is one user-visible item. Exactly one of File and Gallery is set,
// matching Kind.
type Memory struct {
	ID           string
	Kind         Kind
	Name         string
	OriginalName string
	DisplayName  string
	Description  string
	AudioNote    string
	UploadDate   time.Time

	File    *FileAsset
	Gallery *Gallery
}

// FileAsset holds the blob references of an image, audio or video memory.
type FileAsset struct {
	MimeType      string
	Size          int64
	Path          string
	ThumbnailPath string
	Width         int
	Height        int
}

type Gallery struct {
	Images []GalleryImage
}

// GalleryImage references bytes owned by a staged file or an image memory.
type GalleryImage struct {
	ID        string
	Name      string
	URL       string
	Thumbnail string
}

func FileURL(id string) string {
	return "/api/file/" + id
}

func ThumbnailURL(id string) string {
	return "/api/file/" + id + "?thumb=true"
}

// NewGalleryImage builds a reference with derived URLs.
func NewGalleryImage(id, name string) GalleryImage {
	return GalleryImage{
		ID:        id,
		Name:      name,
		URL:       FileURL(id),
		Thumbnail: ThumbnailURL(id),
	}
}

// NewFileMemory builds an image, audio or video memory.
func NewFileMemory(id string, kind Kind, originalName, description string, asset FileAsset, uploaded time.Time) (*Memory, error) {
	m := &Memory{
		ID:           id,
		Kind:         kind,
		Name:         id,
		OriginalName: originalName,
		DisplayName:  originalName,
		Description:  description,
		UploadDate:   uploaded,
		File:         &asset,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewGalleryMemory builds a gallery referencing previously stored images.
func NewGalleryMemory(id, displayName, description string, images []GalleryImage, created time.Time) (*Memory, error) {
	m := &Memory{
		ID:           id,
		Kind:         KindGallery,
		Name:         displayName,
		OriginalName: displayName,
		DisplayName:  displayName,
		Description:  description,
		UploadDate:   created,
		Gallery:      &Gallery{Images: images},
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the per-variant invariants.
func (m *Memory) Validate() error {
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, m.Kind)
	}
	if m.Kind == KindGallery {
		if m.File != nil {
			return ErrUnexpectedAsset
		}
		if m.Gallery == nil || len(m.Gallery.Images) == 0 {
			return ErrEmptyGallery
		}
		return nil
	}
	if m.File == nil || m.File.Path == "" || m.File.MimeType == "" {
		return ErrMissingAsset
	}
	if m.Gallery != nil {
		return fmt.Errorf("%w: %s memory has gallery images", ErrInvalidKind, m.Kind)
	}
	return nil
}

func (m *Memory) IsGallery() bool {
	return m.Kind == KindGallery
}

// ImageCount is the number of gallery images, zero for file memories.
func (m *Memory) ImageCount() int {
	if m.Gallery == nil {
		return 0
	}
	return len(m.Gallery.Images)
}

// BlobKeys lists every blob owned by the memory. Gallery images are not
// owned and are never returned.
func (m *Memory) BlobKeys() []string {
	var keys []string
	if m.File != nil {
		if m.File.Path != "" {
			keys = append(keys, m.File.Path)
		}
		if m.File.ThumbnailPath != "" {
			keys = append(keys, m.File.ThumbnailPath)
		}
	}
	if m.AudioNote != "" {
		keys = append(keys, m.AudioNote)
	}
	return keys
}

// BackfillThumbnails fills in thumbnail URLs missing from older gallery
// records. The change is not persisted.
func (m *Memory) BackfillThumbnails() {
	if m.Gallery == nil {
		return
	}
	for i := range m.Gallery.Images {
		if m.Gallery.Images[i].Thumbnail == "" {
			m.Gallery.Images[i].Thumbnail = ThumbnailURL(m.Gallery.Images[i].ID)
		}
	}
}
