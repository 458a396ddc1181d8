package handler

import (
	"errors"
	"fmt"
	"net/http"

	"birthday-memory-app/internal/services"
	"birthday-memory-app/internal/transport/httpdto"
	app_errors "birthday-memory-app/pkg/errors"

	"github.com/gin-gonic/gin"
)

const filesField = "files"

type UploadHandler struct {
	service *services.UploadService
}

func NewUploadHandler(service *services.UploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

// Upload handles POST /api/upload.
func (h *UploadHandler) Upload(c *gin.Context) {
	parts, ok := h.parts(c)
	if !ok {
		return
	}
	createMemories := c.PostForm("createMemories") != "false"

	res, err := h.service.Upload(c.Request.Context(), parts, c.PostForm("description"), createMemories)
	if err != nil {
		fail(c, err)
		return
	}
	if createMemories {
		c.JSON(http.StatusOK, httpdto.NewSuccessMessage(httpdto.ToMemoryDTOs(res.Memories), uploadedMessage(len(res.Memories))))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessMessage(httpdto.ToFileDTOs(res.Files), uploadedMessage(len(res.Files))))
}

// UploadFilesOnly handles POST /api/upload-files-only.
func (h *UploadHandler) UploadFilesOnly(c *gin.Context) {
	parts, ok := h.parts(c)
	if !ok {
		return
	}
	res, err := h.service.UploadStaged(c.Request.Context(), parts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessMessage(httpdto.ToFileDTOs(res.Files), uploadedMessage(len(res.Files))))
}

func (h *UploadHandler) parts(c *gin.Context) ([]services.Part, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		switch {
		case isBodyTooLarge(err):
			badRequest(c, "upload too large", app_errors.ErrTooLarge)
		case errors.Is(err, http.ErrNotMultipart):
			fail(c, app_errors.Validation("no files uploaded"))
		default:
			badRequest(c, "invalid multipart body", err)
		}
		return nil, false
	}
	return toParts(form.File[filesField]), true
}

func uploadedMessage(n int) string {
	if n == 1 {
		return "uploaded 1 file"
	}
	return fmt.Sprintf("uploaded %d files", n)
}
