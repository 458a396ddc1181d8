package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"birthday-memory-app/config"
	"birthday-memory-app/internal/server/servertest"
	"birthday-memory-app/internal/transport/httpdto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, field string, files []upload, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func send(t *testing.T, method, url string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func sendJSON(t *testing.T, method, url string, v any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return send(t, method, url, bytes.NewReader(raw), "application/json")
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func uploadMemories(t *testing.T, env *servertest.Env, files ...upload) []httpdto.MemoryDTO {
	t.Helper()
	body, ct := multipartBody(t, "files", files, map[string]string{"description": "party"})
	resp := send(t, http.MethodPost, env.URL()+"/api/upload", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[httpdto.Response[[]httpdto.MemoryDTO]](t, resp)
	require.True(t, res.Success)
	return res.Data
}

func TestHealth(t *testing.T) {
	env := servertest.New(t)

	resp := send(t, http.MethodGet, env.URL()+"/api/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[httpdto.Response[httpdto.HealthResponse]](t, resp)
	assert.True(t, res.Success)
	assert.Equal(t, "connected", res.Data.MongoDB)
	assert.Equal(t, "available", res.Data.Storage)

	env.SetDatabaseDown(true)
	resp = send(t, http.MethodGet, env.URL()+"/api/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res = decode[httpdto.Response[httpdto.HealthResponse]](t, resp)
	assert.Equal(t, "disconnected", res.Data.MongoDB)
}

func TestUnknownRoute(t *testing.T) {
	env := servertest.New(t)

	resp := send(t, http.MethodGet, env.URL()+"/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	res := decode[httpdto.ErrorResponse](t, resp)
	assert.False(t, res.Success)
	assert.Equal(t, "resource not found", res.Message)
}

func TestUploadAndServeImage(t *testing.T) {
	env := servertest.New(t)
	data := servertest.PNG(t, 800, 600)

	mems := uploadMemories(t, env, upload{"cake.png", "image/png", data})
	require.Len(t, mems, 1)
	m := mems[0]
	assert.Equal(t, "image", m.Type)
	assert.Equal(t, "cake.png", m.DisplayName)
	assert.Equal(t, "party", m.Description)
	assert.Equal(t, 800, m.Metadata.Width)

	resp := send(t, http.MethodGet, env.URL()+"/api/file/"+m.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000", resp.Header.Get("Cache-Control"))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	resp = send(t, http.MethodGet, env.URL()+"/api/file/"+m.ID+"?thumb=true", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	cfg, _, err := image.DecodeConfig(resp.Body)
	require.NoError(t, err)
	assert.LessOrEqual(t, cfg.Width, 400)
	assert.LessOrEqual(t, cfg.Height, 400)
}

func TestServeThumbnailFlagValues(t *testing.T) {
	env := servertest.New(t)
	mems := uploadMemories(t, env, upload{"cake.png", "image/png", servertest.PNG(t, 600, 600)})
	id := mems[0].ID

	for query, want := range map[string]string{
		"?thumb=true":  "image/jpeg",
		"?thumb=1":     "image/jpeg",
		"?thumb=yes":   "image/jpeg",
		"?thumb=false": "image/png",
		"?thumb=0":     "image/png",
		"?thumb=":      "image/png",
	} {
		resp := send(t, http.MethodGet, env.URL()+"/api/file/"+id+query, nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, query)
		assert.Equal(t, want, resp.Header.Get("Content-Type"), query)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	env := servertest.New(t)

	body, ct := multipartBody(t, "files", []upload{
		{"a.png", "image/png", servertest.PNG(t, 10, 10)},
		{"notes.txt", "text/plain", []byte("hello")},
	}, nil)
	resp := send(t, http.MethodPost, env.URL()+"/api/upload", body, ct)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	res := decode[httpdto.ErrorResponse](t, resp)
	assert.Equal(t, "unsupported file type: text/plain", res.Message)
	assert.Equal(t, httpdto.CodeBadRequest, res.Code)
	assert.Zero(t, env.Memories.Len())
}

func TestUploadWithoutFiles(t *testing.T) {
	env := servertest.New(t)

	body, ct := multipartBody(t, "files", nil, map[string]string{"description": "x"})
	resp := send(t, http.MethodPost, env.URL()+"/api/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no files uploaded", decode[httpdto.ErrorResponse](t, resp).Message)

	resp = sendJSON(t, http.MethodPost, env.URL()+"/api/upload", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadCreateMemoriesFalseStagesFiles(t *testing.T) {
	env := servertest.New(t)

	body, ct := multipartBody(t, "files", []upload{{"a.mp3", "audio/mpeg", []byte("ID3 audio")}}, map[string]string{"createMemories": "false"})
	resp := send(t, http.MethodPost, env.URL()+"/api/upload", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decode[httpdto.Response[[]httpdto.FileDTO]](t, resp)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "audio", res.Data[0].Type)
	assert.Equal(t, 1, env.Files.Len())
	assert.Zero(t, env.Memories.Len())
}

func TestUploadBodyTooLarge(t *testing.T) {
	env := servertest.New(t, func(c *config.Config) {
		c.Upload.MaxFileSize = 1024
		c.Upload.MaxFiles = 1
	})

	body, ct := multipartBody(t, "files", []upload{{"big.mp3", "audio/mpeg", bytes.Repeat([]byte{1}, 2<<20)}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.Server.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.Memories.Len())
}

func TestGalleryLifecycle(t *testing.T) {
	env := servertest.New(t)

	body, ct := multipartBody(t, "files", []upload{
		{"one.png", "image/png", servertest.PNG(t, 20, 20)},
		{"two.png", "image/png", servertest.PNG(t, 30, 30)},
		{"three.png", "image/png", servertest.PNG(t, 40, 40)},
	}, nil)
	resp := send(t, http.MethodPost, env.URL()+"/api/upload-files-only", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	staged := decode[httpdto.Response[[]httpdto.FileDTO]](t, resp).Data
	require.Len(t, staged, 3)

	resp = sendJSON(t, http.MethodPost, env.URL()+"/api/gallery", httpdto.GalleryRequest{
		Images: []httpdto.GalleryImageRequest{{ID: staged[0].ID}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = sendJSON(t, http.MethodPost, env.URL()+"/api/gallery", httpdto.GalleryRequest{
		Images: []httpdto.GalleryImageRequest{{ID: staged[0].ID}, {ID: staged[1].ID}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gallery := decode[httpdto.Response[httpdto.MemoryDTO]](t, resp).Data
	assert.Equal(t, "gallery", gallery.Type)
	assert.Equal(t, "Gallery (2 images)", gallery.DisplayName)
	require.Len(t, gallery.Images, 2)
	assert.Equal(t, "/api/file/"+staged[0].ID+"?thumb=true", gallery.Images[0].Thumbnail)

	resp = sendJSON(t, http.MethodPut, env.URL()+"/api/gallery/"+gallery.ID, httpdto.GalleryRequest{
		Images: []httpdto.GalleryImageRequest{{ID: staged[2].ID, Name: "third"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[httpdto.Response[httpdto.MemoryDTO]](t, resp).Data
	assert.Equal(t, "Gallery (2 images)", updated.DisplayName)
	require.Len(t, updated.Images, 1)
	assert.Equal(t, "third", updated.Images[0].Name)

	resp = send(t, http.MethodGet, env.URL()+"/api/file/"+staged[2].ID+"?thumb=true", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	resp = sendJSON(t, http.MethodPut, env.URL()+"/api/gallery/missing", httpdto.GalleryRequest{
		Images: []httpdto.GalleryImageRequest{{ID: staged[2].ID}},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateMemoryPartially(t *testing.T) {
	env := servertest.New(t)
	m := uploadMemories(t, env, upload{"song.mp3", "audio/mpeg", []byte("ID3 song")})[0]

	resp := send(t, http.MethodPut, env.URL()+"/api/memories/"+m.ID, strings.NewReader(`{"description":"sung at midnight"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[httpdto.Response[httpdto.MemoryDTO]](t, resp).Data
	assert.Equal(t, "song.mp3", updated.DisplayName)
	assert.Equal(t, "sung at midnight", updated.Description)

	resp = send(t, http.MethodPut, env.URL()+"/api/memories/missing", strings.NewReader(`{"description":"x"}`), "application/json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAudioNote(t *testing.T) {
	env := servertest.New(t)
	m := uploadMemories(t, env, upload{"cake.png", "image/png", servertest.PNG(t, 10, 10)})[0]

	resp := send(t, http.MethodGet, env.URL()+"/api/file/"+m.ID+"?type=audioNote", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body, ct := multipartBody(t, "audioNote", []upload{{"note.webm", "video/webm", []byte("webm note")}}, nil)
	resp = send(t, http.MethodPost, env.URL()+"/api/memories/"+m.ID+"/audio-note", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	withNote := decode[httpdto.Response[httpdto.MemoryDTO]](t, resp).Data
	assert.True(t, strings.HasPrefix(withNote.AudioNote, "audio-notes/"))

	resp = send(t, http.MethodGet, env.URL()+"/api/file/"+m.ID+"?type=audioNote", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/webm", resp.Header.Get("Content-Type"))
	assert.Equal(t, fmt.Sprintf(`inline; filename="audio-note-%s.webm"`, m.ID), resp.Header.Get("Content-Disposition"))

	body, ct = multipartBody(t, "other", nil, map[string]string{"x": "y"})
	resp = send(t, http.MethodPost, env.URL()+"/api/memories/"+m.ID+"/audio-note", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct = multipartBody(t, "audioNote", []upload{{"note.webm", "audio/webm", []byte("x")}}, nil)
	resp = send(t, http.MethodPost, env.URL()+"/api/memories/missing/audio-note", body, ct)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteTwice(t *testing.T) {
	env := servertest.New(t)
	m := uploadMemories(t, env, upload{"cake.png", "image/png", servertest.PNG(t, 50, 50)})[0]

	resp := send(t, http.MethodDelete, env.URL()+"/api/memories/"+m.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[httpdto.Response[httpdto.DeleteResponse]](t, resp)
	assert.Equal(t, m.ID, res.Data.ID)
	assert.Equal(t, "complete", res.Data.Cleanup)

	resp = send(t, http.MethodDelete, env.URL()+"/api/memories/"+m.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = send(t, http.MethodGet, env.URL()+"/api/file/"+m.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = send(t, http.MethodGet, env.URL()+"/api/memories/"+m.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListMemories(t *testing.T) {
	env := servertest.New(t)
	uploadMemories(t, env,
		upload{"a.mp3", "audio/mpeg", []byte("ID3 a")},
		upload{"b.mp4", "video/mp4", []byte("mp4 b")},
	)

	resp := send(t, http.MethodGet, env.URL()+"/api/memories", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[httpdto.Response[[]httpdto.MemoryDTO]](t, resp)
	assert.Len(t, res.Data, 2)
}

func TestMetricsEndpoint(t *testing.T) {
	env := servertest.New(t)
	send(t, http.MethodGet, env.URL()+"/ping", nil, "")

	resp := send(t, http.MethodGet, env.URL()+"/metrics", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "memories_http_requests_total")
}
