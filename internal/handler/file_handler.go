package handler

import (
	"fmt"
	"net/http"
	"strings"

	"birthday-memory-app/internal/services"

	"github.com/gin-gonic/gin"
)

const cacheForever = "public, max-age=31536000"

type FileHandler struct {
	service *services.FileService
}

func NewFileHandler(service *services.FileService) *FileHandler {
	return &FileHandler{service: service}
}

// Serve handles GET /api/file/:id?thumb=true&type=audioNote.
func (h *FileHandler) Serve(c *gin.Context) {
	variant := services.VariantOriginal
	switch {
	case c.Query("type") == "audioNote":
		variant = services.VariantAudioNote
	case queryFlag(c.Query("thumb")):
		variant = services.VariantThumbnail
	}

	asset, err := h.service.Open(c.Request.Context(), c.Param("id"), variant)
	if err != nil {
		fail(c, err)
		return
	}
	defer asset.Body.Close()

	headers := map[string]string{"Cache-Control": cacheForever}
	if asset.Filename != "" {
		headers["Content-Disposition"] = fmt.Sprintf("inline; filename=%q", asset.Filename)
	}
	contentType := asset.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, asset.Size, contentType, asset.Body, headers)
}

// queryFlag treats any value but empty, "false" and "0" as set.
func queryFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0":
		return false
	}
	return true
}
