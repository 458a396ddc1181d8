// Package client talks to the memory album API and falls back to a local
// JSON store when the server cannot be reached.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"birthday-memory-app/internal/services"
	"birthday-memory-app/internal/transport/httpdto"
	"birthday-memory-app/pkg/logger"

	"go.uber.org/zap"
)

const (
	OnlineMaxFileSize  int64 = 50 << 20
	OfflineMaxFileSize int64 = 10 << 20

	defaultTimeout = 2 * time.Minute
	maxErrorBody   = 1 << 20
)

var (
	ErrOffline      = errors.New("server is unreachable")
	ErrFileTooLarge = errors.New("file too large")
	ErrNoFiles      = errors.New("no files selected")
)

type Options struct {
	// BaseURL is the server origin, e.g. http://localhost:3000.
	BaseURL string
	// ShareBaseURL is the origin used in share links. Defaults to BaseURL.
	ShareBaseURL string
	// LocalPath is the JSON file used while offline. Empty disables
	// offline storage.
	LocalPath string
	// MaxImageDimension downscales JPEG and PNG uploads whose longer side
	// exceeds it. Zero uploads images untouched.
	MaxImageDimension int
	HTTPClient        *http.Client
	Logger            *logger.Logger
}

type Client struct {
	baseURL   string
	shareBase string
	http      *http.Client
	local     *LocalStore
	maxDim    int
	log       *logger.Logger
	online    atomic.Bool
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Items   []services.ItemResult
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}
	share := strings.TrimRight(opts.ShareBaseURL, "/")
	if share == "" {
		share = base
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	l := opts.Logger
	if l == nil {
		l = logger.NewNop()
	}

	c := &Client{
		baseURL:   base,
		shareBase: share,
		http:      httpClient,
		maxDim:    opts.MaxImageDimension,
		log:       l,
	}
	if opts.LocalPath != "" {
		c.local = NewLocalStore(opts.LocalPath)
	}
	return c, nil
}

// Connect checks server health and switches the client online or offline
// accordingly. It returns the new mode.
func (c *Client) Connect(ctx context.Context) bool {
	ok := c.CheckHealth(ctx)
	c.online.Store(ok)
	if ok {
		c.log.Info(ctx, "connected to memory server", zap.String("base_url", c.baseURL))
	} else {
		c.log.Warn(ctx, "memory server unavailable, using local storage", zap.String("base_url", c.baseURL))
	}
	return ok
}

func (c *Client) Online() bool {
	return c.online.Load()
}

// CheckHealth reports whether the server answers and its database is
// connected.
func (c *Client) CheckHealth(ctx context.Context) bool {
	var res httpdto.Response[httpdto.HealthResponse]
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, "", &res); err != nil {
		return false
	}
	return res.Success && res.Data.MongoDB == "connected"
}

// MaxFileSize is the per-file limit of the current mode.
func (c *Client) MaxFileSize() int64 {
	if c.Online() {
		return OnlineMaxFileSize
	}
	return OfflineMaxFileSize
}

// Album is everything the client can show: server memories when online and
// any memories kept locally.
type Album struct {
	Online   bool
	Memories []httpdto.MemoryDTO
	Local    []LocalMemory
}

func (c *Client) Album(ctx context.Context) (*Album, error) {
	var local []LocalMemory
	if c.local != nil {
		items, err := c.local.Load()
		if err != nil {
			return nil, err
		}
		local = items
	}
	if !c.Online() {
		return &Album{Local: local}, nil
	}

	var res httpdto.Response[[]httpdto.MemoryDTO]
	if err := c.do(ctx, http.MethodGet, "/api/memories", nil, "", &res); err != nil {
		return nil, err
	}
	return &Album{Online: true, Memories: res.Data, Local: local}, nil
}

func (c *Client) Memory(ctx context.Context, id string) (*httpdto.MemoryDTO, error) {
	if err := c.requireOnline(); err != nil {
		return nil, err
	}
	var res httpdto.Response[httpdto.MemoryDTO]
	if err := c.do(ctx, http.MethodGet, "/api/memories/"+url.PathEscape(id), nil, "", &res); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

// UpdateMemory changes the display name and/or description. Nil fields are
// left as they are.
func (c *Client) UpdateMemory(ctx context.Context, id string, displayName, description *string) (*httpdto.MemoryDTO, error) {
	if err := c.requireOnline(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(httpdto.UpdateMemoryRequest{DisplayName: displayName, Description: description})
	if err != nil {
		return nil, err
	}
	var res httpdto.Response[httpdto.MemoryDTO]
	if err := c.do(ctx, http.MethodPut, "/api/memories/"+url.PathEscape(id), bytes.NewReader(body), "application/json", &res); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

func (c *Client) AttachAudioNote(ctx context.Context, id string, note File) (*httpdto.MemoryDTO, error) {
	if err := c.requireOnline(); err != nil {
		return nil, err
	}
	if int64(len(note.Data)) > OnlineMaxFileSize {
		return nil, fmt.Errorf("%s: %w", note.Name, ErrFileTooLarge)
	}
	body, contentType, err := encodeFiles("audioNote", []File{note}, nil)
	if err != nil {
		return nil, err
	}
	var res httpdto.Response[httpdto.MemoryDTO]
	if err := c.do(ctx, http.MethodPost, "/api/memories/"+url.PathEscape(id)+"/audio-note", body, contentType, &res); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

func (c *Client) DeleteMemory(ctx context.Context, id string) (*httpdto.DeleteResponse, error) {
	if err := c.requireOnline(); err != nil {
		return nil, err
	}
	var res httpdto.Response[httpdto.DeleteResponse]
	if err := c.do(ctx, http.MethodDelete, "/api/memories/"+url.PathEscape(id), nil, "", &res); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

func (c *Client) FileURL(id string, thumbnail bool) string {
	u := c.baseURL + "/api/file/" + url.PathEscape(id)
	if thumbnail {
		u += "?thumb=true"
	}
	return u
}

func (c *Client) AudioNoteURL(id string) string {
	return c.baseURL + "/api/file/" + url.PathEscape(id) + "?type=audioNote"
}

// ShareURL is the public viewer link for a memory.
func (c *Client) ShareURL(id string) string {
	return c.shareBase + "/view.html?id=" + url.QueryEscape(id)
}

func (c *Client) requireOnline() error {
	if !c.Online() {
		return ErrOffline
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

type errorBody struct {
	Message string                `json:"message"`
	Code    string                `json:"code"`
	Data    *httpdto.BatchFailure `json:"data"`
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body); err != nil {
		return apiErr
	}
	if body.Message != "" {
		apiErr.Message = body.Message
	}
	apiErr.Code = body.Code
	if body.Data != nil {
		apiErr.Items = body.Data.Items
	}
	return apiErr
}
