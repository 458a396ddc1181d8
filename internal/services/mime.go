package services

import (
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"birthday-memory-app/internal/domain/memory"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/charmap"
)

const octetStream = "application/octet-stream"

var allowedTypes = map[string]memory.Kind{
	"image/jpeg": memory.KindImage,
	"image/jpg":  memory.KindImage,
	"image/png":  memory.KindImage,
	"image/gif":  memory.KindImage,
	"image/webp": memory.KindImage,

	"audio/mp3":  memory.KindAudio,
	"audio/wav":  memory.KindAudio,
	"audio/m4a":  memory.KindAudio,
	"audio/mpeg": memory.KindAudio,
	"audio/ogg":  memory.KindAudio,
	"audio/webm": memory.KindAudio,
	"audio/mp4":  memory.KindAudio,

	"video/mp4":       memory.KindVideo,
	"video/webm":      memory.KindVideo,
	"video/quicktime": memory.KindVideo,
}

// aliases maps spellings produced by browsers and content sniffing onto the
// allow-list.
var aliases = map[string]string{
	"audio/x-wav":  "audio/wav",
	"audio/wave":   "audio/wav",
	"audio/x-m4a":  "audio/m4a",
	"audio/x-mpeg": "audio/mpeg",
	"audio/x-mp3":  "audio/mp3",
	"image/pjpeg":  "image/jpeg",
}

// NormalizeMime lower-cases a declared content type and strips parameters
// such as ";codecs=opus".
func NormalizeMime(declared string) string {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		mt = strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	}
	mt = strings.ToLower(mt)
	if canonical, ok := aliases[mt]; ok {
		return canonical
	}
	return mt
}

// ClassifyMime returns the memory kind of an allowed type, or false.
func ClassifyMime(mimeType string) (memory.Kind, bool) {
	kind, ok := allowedTypes[mimeType]
	return kind, ok
}

// DetectMime resolves the effective type of an upload. Declared types win;
// empty or generic declarations fall back to sniffing the content.
func DetectMime(declared string, content io.Reader) (string, error) {
	mt := NormalizeMime(declared)
	if mt != "" && mt != octetStream {
		return mt, nil
	}
	detected, err := mimetype.DetectReader(content)
	if err != nil {
		return "", err
	}
	return NormalizeMime(detected.String()), nil
}

// extensionFor keeps the original extension when it is safe to use as part
// of a blob key, otherwise derives one from the MIME type.
func extensionFor(filename, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && len(ext) <= 10 && isSafeExt(ext[1:]) {
		return ext
	}
	if m := mimetype.Lookup(mimeType); m != nil {
		return m.Extension()
	}
	return ""
}

func isSafeExt(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// RepairFilename undoes the latin-1 decoding some browsers apply to UTF-8
// multipart filenames. Names that do not round-trip are returned unchanged.
func RepairFilename(name string) string {
	raw, err := charmap.ISO8859_1.NewEncoder().String(name)
	if err != nil {
		return name
	}
	if raw == name || !utf8.ValidString(raw) {
		return name
	}
	return raw
}
