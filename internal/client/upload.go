package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"birthday-memory-app/internal/domain/memory"
	"birthday-memory-app/internal/services"
	"birthday-memory-app/internal/transport/httpdto"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// File is one file picked for upload.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// UploadResult lists what an upload produced. Online uploads fill
// Memories, offline ones fill Local. Rejected names files of unsupported
// types, which are skipped.
type UploadResult struct {
	Memories []httpdto.MemoryDTO
	Local    []LocalMemory
	Rejected []string
}

// Upload stores files on the server, or locally when offline. Online,
// several images become one gallery: they are staged first and then
// composed, while audio and video files become memories of their own.
func (c *Client) Upload(ctx context.Context, files []File, description string) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	res := &UploadResult{}
	var valid, images, others []File
	for _, f := range files {
		f.MimeType, _ = services.DetectMime(f.MimeType, bytes.NewReader(f.Data))
		kind, ok := services.ClassifyMime(f.MimeType)
		if !ok {
			res.Rejected = append(res.Rejected, f.Name)
			continue
		}
		if kind == memory.KindImage {
			f = downscale(f, c.maxDim)
			images = append(images, f)
		} else {
			others = append(others, f)
		}
		valid = append(valid, f)
	}

	limit := c.MaxFileSize()
	for _, f := range valid {
		if int64(len(f.Data)) > limit {
			return nil, fmt.Errorf("%s is larger than %dMB: %w", f.Name, limit>>20, ErrFileTooLarge)
		}
	}
	if len(valid) == 0 {
		return res, nil
	}

	if !c.Online() {
		local, err := c.saveLocal(valid)
		if err != nil {
			return nil, err
		}
		res.Local = local
		c.log.Warn(ctx, "saved files locally", zap.Int("count", len(local)))
		return res, nil
	}

	if len(images) < 2 {
		mems, err := c.uploadMemories(ctx, valid, description)
		if err != nil {
			return nil, err
		}
		res.Memories = mems
		return res, nil
	}

	gallery, err := c.composeGallery(ctx, images, description)
	if err != nil {
		return nil, err
	}
	res.Memories = append(res.Memories, *gallery)

	if len(others) > 0 {
		mems, err := c.uploadMemories(ctx, others, description)
		if err != nil {
			return res, err
		}
		res.Memories = append(res.Memories, mems...)
	}
	return res, nil
}

func (c *Client) uploadMemories(ctx context.Context, files []File, description string) ([]httpdto.MemoryDTO, error) {
	body, contentType, err := encodeFiles("files", files, map[string]string{"description": description})
	if err != nil {
		return nil, err
	}
	var res httpdto.Response[[]httpdto.MemoryDTO]
	if err := c.do(ctx, http.MethodPost, "/api/upload", body, contentType, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (c *Client) uploadStaged(ctx context.Context, files []File) ([]httpdto.FileDTO, error) {
	body, contentType, err := encodeFiles("files", files, nil)
	if err != nil {
		return nil, err
	}
	var res httpdto.Response[[]httpdto.FileDTO]
	if err := c.do(ctx, http.MethodPost, "/api/upload-files-only", body, contentType, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (c *Client) composeGallery(ctx context.Context, images []File, description string) (*httpdto.MemoryDTO, error) {
	staged, err := c.uploadStaged(ctx, images)
	if err != nil {
		return nil, err
	}

	req := httpdto.GalleryRequest{
		Description: description,
		Images:      make([]httpdto.GalleryImageRequest, 0, len(staged)),
	}
	for _, f := range staged {
		req.Images = append(req.Images, httpdto.GalleryImageRequest{ID: f.ID, Name: f.OriginalName})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var res httpdto.Response[httpdto.MemoryDTO]
	if err := c.do(ctx, http.MethodPost, "/api/gallery", bytes.NewReader(body), "application/json", &res); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

func (c *Client) saveLocal(files []File) ([]LocalMemory, error) {
	if c.local == nil {
		return nil, errors.New("offline and no local store configured")
	}
	now := time.Now().UTC()
	items := make([]LocalMemory, 0, len(files))
	for _, f := range files {
		kind, _ := services.ClassifyMime(f.MimeType)
		items = append(items, LocalMemory{
			ID:           uuid.NewString(),
			Name:         f.Name,
			OriginalName: f.Name,
			Type:         string(kind),
			MimeType:     f.MimeType,
			Data:         dataURL(f.MimeType, f.Data),
			UploadDate:   now,
			Size:         int64(len(f.Data)),
			IsLocal:      true,
		})
	}
	if err := c.local.Add(items...); err != nil {
		return nil, err
	}
	return items, nil
}

func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func encodeFiles(field string, files []File, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
		h.Set("Content-Type", f.MimeType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// downscale shrinks JPEG and PNG images whose longer side exceeds maxDim.
// Anything it cannot handle is returned unchanged.
func downscale(f File, maxDim int) File {
	if maxDim <= 0 {
		return f
	}
	var format imaging.Format
	switch f.MimeType {
	case "image/jpeg", "image/jpg":
		format = imaging.JPEG
	case "image/png":
		format = imaging.PNG
	default:
		return f
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil || (cfg.Width <= maxDim && cfg.Height <= maxDim) {
		return f
	}
	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return f
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Fit(img, maxDim, maxDim, imaging.Lanczos), format, imaging.JPEGQuality(85)); err != nil {
		return f
	}
	f.Data = buf.Bytes()
	return f
}
