package handler

import (
	"errors"
	"net/http"

	"birthday-memory-app/internal/services"
	"birthday-memory-app/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type MemoryHandler struct {
	service *services.MemoryService
}

func NewMemoryHandler(service *services.MemoryService) *MemoryHandler {
	return &MemoryHandler{service: service}
}

func (h *MemoryHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToMemoryDTOs(items)))
}

func (h *MemoryHandler) Get(c *gin.Context) {
	m, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToMemoryDTO(m)))
}

func (h *MemoryHandler) Update(c *gin.Context) {
	var req httpdto.UpdateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	m, err := h.service.Update(c.Request.Context(), c.Param("id"), req.DisplayName, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessMessage(httpdto.ToMemoryDTO(m), "memory updated"))
}

func (h *MemoryHandler) AttachAudioNote(c *gin.Context) {
	var part *services.Part
	fh, err := c.FormFile("audioNote")
	switch {
	case err == nil:
		p := toPart(fh)
		part = &p
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		if isBodyTooLarge(err) {
			badRequest(c, "file too large", err)
			return
		}
		badRequest(c, "invalid multipart body", err)
		return
	}

	m, err := h.service.AttachAudioNote(c.Request.Context(), c.Param("id"), part)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessMessage(httpdto.ToMemoryDTO(m), "audio note uploaded"))
}

func (h *MemoryHandler) Delete(c *gin.Context) {
	res, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessMessage(httpdto.DeleteResponse{ID: res.ID, Cleanup: res.Cleanup}, "memory deleted"))
}
