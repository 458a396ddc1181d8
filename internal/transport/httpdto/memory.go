package httpdto

import (
	"time"

	"birthday-memory-app/internal/domain/memory"
	"birthday-memory-app/internal/services"
)

// MemoryDTO is the flat JSON shape of a memory.
type MemoryDTO struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Name          string            `json:"name"`
	OriginalName  string            `json:"originalName"`
	DisplayName   string            `json:"displayName"`
	Description   string            `json:"description"`
	MimeType      string            `json:"mimeType,omitempty"`
	Size          int64             `json:"size"`
	FilePath      string            `json:"filePath,omitempty"`
	ThumbnailPath string            `json:"thumbnailPath,omitempty"`
	AudioNote     string            `json:"audioNote,omitempty"`
	UploadDate    time.Time         `json:"uploadDate"`
	Images        []GalleryImageDTO `json:"images,omitempty"`
	Metadata      MetadataDTO       `json:"metadata"`
}

type GalleryImageDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
}

type MetadataDTO struct {
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	ImageCount int    `json:"imageCount,omitempty"`
	Format     string `json:"format,omitempty"`
}

// FileDTO describes a staged upload.
type FileDTO struct {
	ID            string      `json:"id"`
	OriginalName  string      `json:"originalName"`
	DisplayName   string      `json:"displayName"`
	FilePath      string      `json:"filePath"`
	ThumbnailPath string      `json:"thumbnailPath,omitempty"`
	Size          int64       `json:"size"`
	MimeType      string      `json:"mimeType"`
	Type          string      `json:"type"`
	UploadDate    time.Time   `json:"uploadDate"`
	Metadata      MetadataDTO `json:"metadata"`
}

// UpdateMemoryRequest is used for PUT /api/memories/:id
type UpdateMemoryRequest struct {
	DisplayName *string `json:"displayName" binding:"omitempty,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// GalleryRequest is used for POST /api/gallery and PUT /api/gallery/:id
type GalleryRequest struct {
	DisplayName string                `json:"displayName" binding:"max=200"`
	Description string                `json:"description" binding:"max=2000"`
	Images      []GalleryImageRequest `json:"images" binding:"dive"`
}

type GalleryImageRequest struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name"`
}

// BatchFailure is the data of a failed upload: one entry per file, in
// request order.
type BatchFailure struct {
	Items []services.ItemResult `json:"items"`
}

type DeleteResponse struct {
	ID      string `json:"id"`
	Cleanup string `json:"cleanup"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	MongoDB   string    `json:"mongodb"`
	Storage   string    `json:"storage"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

func ToMemoryDTO(m *memory.Memory) MemoryDTO {
	d := MemoryDTO{
		ID:           m.ID,
		Type:         string(m.Kind),
		Name:         m.Name,
		OriginalName: m.OriginalName,
		DisplayName:  m.DisplayName,
		Description:  m.Description,
		AudioNote:    m.AudioNote,
		UploadDate:   m.UploadDate,
	}
	if m.File != nil {
		d.MimeType = m.File.MimeType
		d.Size = m.File.Size
		d.FilePath = m.File.Path
		d.ThumbnailPath = m.File.ThumbnailPath
		d.Metadata.Width = m.File.Width
		d.Metadata.Height = m.File.Height
	}
	if m.Gallery != nil {
		d.Images = make([]GalleryImageDTO, 0, len(m.Gallery.Images))
		for _, img := range m.Gallery.Images {
			d.Images = append(d.Images, GalleryImageDTO{ID: img.ID, Name: img.Name, URL: img.URL, Thumbnail: img.Thumbnail})
		}
		d.Metadata.ImageCount = len(m.Gallery.Images)
	}
	return d
}

func ToMemoryDTOs(items []*memory.Memory) []MemoryDTO {
	out := make([]MemoryDTO, 0, len(items))
	for _, m := range items {
		out = append(out, ToMemoryDTO(m))
	}
	return out
}

func ToFileDTO(f *memory.File) FileDTO {
	return FileDTO{
		ID:            f.ID,
		OriginalName:  f.OriginalName,
		DisplayName:   f.DisplayName,
		FilePath:      f.Path,
		ThumbnailPath: f.ThumbnailPath,
		Size:          f.Size,
		MimeType:      f.MimeType,
		Type:          string(f.Kind()),
		UploadDate:    f.UploadDate,
		Metadata:      MetadataDTO{Width: f.Width, Height: f.Height, Format: f.Format},
	}
}

func ToFileDTOs(items []*memory.File) []FileDTO {
	out := make([]FileDTO, 0, len(items))
	for _, f := range items {
		out = append(out, ToFileDTO(f))
	}
	return out
}

func ToImageRefs(images []GalleryImageRequest) []services.ImageRef {
	out := make([]services.ImageRef, 0, len(images))
	for _, img := range images {
		out = append(out, services.ImageRef{ID: img.ID, Name: img.Name})
	}
	return out
}
