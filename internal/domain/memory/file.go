package memory

import (
	"strings"
	"time"
)

// File is a staged upload not attached to any Memory. Galleries reference
// staged files by ID.
type File struct {
	ID            string
	OriginalName  string
	DisplayName   string
	Path          string
	ThumbnailPath string
	Size          int64
	MimeType      string
	UploadDate    time.Time
	Width         int
	Height        int
	Format        string
}

func (f *File) Kind() Kind {
	return KindFromMime(f.MimeType)
}

func (f *File) IsImage() bool {
	return f.Kind() == KindImage
}

func (f *File) BlobKeys() []string {
	keys := []string{}
	if f.Path != "" {
		keys = append(keys, f.Path)
	}
	if f.ThumbnailPath != "" {
		keys = append(keys, f.ThumbnailPath)
	}
	return keys
}

// KindFromMime maps a MIME family onto a memory kind. Unknown families
// yield an empty Kind.
func KindFromMime(mimeType string) Kind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "audio/"):
		return KindAudio
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	}
	return ""
}
