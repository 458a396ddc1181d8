package repository

import (
	"time"

	"birthday-memory-app/internal/domain/memory"
)

// memoryDoc is the stored shape of a Memory. It stays flat so records
// written by earlier versions of the album decode unchanged; their
// absolute filePath values are not valid blob keys and serve as 404.
type memoryDoc struct {
	ID            string      `bson:"id"`
	Type          string      `bson:"type"`
	Name          string      `bson:"name"`
	OriginalName  string      `bson:"originalName"`
	DisplayName   string      `bson:"displayName"`
	Description   string      `bson:"description"`
	FilePath      string      `bson:"filePath,omitempty"`
	ThumbnailPath string      `bson:"thumbnailPath,omitempty"`
	Size          int64       `bson:"size"`
	MimeType      string      `bson:"mimeType,omitempty"`
	AudioNote     string      `bson:"audioNote,omitempty"`
	UploadDate    time.Time   `bson:"uploadDate"`
	Images        []imageDoc  `bson:"images,omitempty"`
	Metadata      metadataDoc `bson:"metadata"`
}

type imageDoc struct {
	ID        string `bson:"id"`
	Name      string `bson:"name"`
	URL       string `bson:"url"`
	Thumbnail string `bson:"thumbnail,omitempty"`
}

type metadataDoc struct {
	Width      int    `bson:"width,omitempty"`
	Height     int    `bson:"height,omitempty"`
	ImageCount int    `bson:"imageCount,omitempty"`
	Format     string `bson:"format,omitempty"`
}

type fileDoc struct {
	ID            string      `bson:"id"`
	OriginalName  string      `bson:"originalName"`
	DisplayName   string      `bson:"displayName"`
	FilePath      string      `bson:"filePath"`
	ThumbnailPath string      `bson:"thumbnailPath,omitempty"`
	Size          int64       `bson:"size"`
	MimeType      string      `bson:"mimeType"`
	UploadDate    time.Time   `bson:"uploadDate"`
	Metadata      metadataDoc `bson:"metadata"`
}

func toMemoryDoc(m *memory.Memory) memoryDoc {
	d := memoryDoc{
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
		d.FilePath = m.File.Path
		d.ThumbnailPath = m.File.ThumbnailPath
		d.Size = m.File.Size
		d.MimeType = m.File.MimeType
		d.Metadata.Width = m.File.Width
		d.Metadata.Height = m.File.Height
	}
	if m.Gallery != nil {
		d.Images = toImageDocs(m.Gallery.Images)
		d.Metadata.ImageCount = len(d.Images)
	}
	return d
}

func toImageDocs(images []memory.GalleryImage) []imageDoc {
	out := make([]imageDoc, 0, len(images))
	for _, img := range images {
		out = append(out, imageDoc{ID: img.ID, Name: img.Name, URL: img.URL, Thumbnail: img.Thumbnail})
	}
	return out
}

func (d memoryDoc) toDomain() *memory.Memory {
	m := &memory.Memory{
		ID:           d.ID,
		Kind:         memory.Kind(d.Type),
		Name:         d.Name,
		OriginalName: d.OriginalName,
		DisplayName:  d.DisplayName,
		Description:  d.Description,
		AudioNote:    d.AudioNote,
		UploadDate:   d.UploadDate,
	}
	if m.Kind == memory.KindGallery {
		images := make([]memory.GalleryImage, 0, len(d.Images))
		for _, img := range d.Images {
			images = append(images, memory.GalleryImage{ID: img.ID, Name: img.Name, URL: img.URL, Thumbnail: img.Thumbnail})
		}
		m.Gallery = &memory.Gallery{Images: images}
		return m
	}
	m.File = &memory.FileAsset{
		MimeType:      d.MimeType,
		Size:          d.Size,
		Path:          d.FilePath,
		ThumbnailPath: d.ThumbnailPath,
		Width:         d.Metadata.Width,
		Height:        d.Metadata.Height,
	}
	return m
}

func toFileDoc(f *memory.File) fileDoc {
	return fileDoc{
		ID:            f.ID,
		OriginalName:  f.OriginalName,
		DisplayName:   f.DisplayName,
		FilePath:      f.Path,
		ThumbnailPath: f.ThumbnailPath,
		Size:          f.Size,
		MimeType:      f.MimeType,
		UploadDate:    f.UploadDate,
		Metadata:      metadataDoc{Width: f.Width, Height: f.Height, Format: f.Format},
	}
}

func (d fileDoc) toDomain() *memory.File {
	return &memory.File{
		ID:            d.ID,
		OriginalName:  d.OriginalName,
		DisplayName:   d.DisplayName,
		Path:          d.FilePath,
		ThumbnailPath: d.ThumbnailPath,
		Size:          d.Size,
		MimeType:      d.MimeType,
		UploadDate:    d.UploadDate,
		Width:         d.Metadata.Width,
		Height:        d.Metadata.Height,
		Format:        d.Metadata.Format,
	}
}
