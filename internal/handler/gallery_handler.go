package handler

import (
	"fmt"
	"net/http"

	"birthday-memory-app/internal/services"
	"birthday-memory-app/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type GalleryHandler struct {
	service *services.GalleryService
}

func NewGalleryHandler(service *services.GalleryService) *GalleryHandler {
	return &GalleryHandler{service: service}
}

func (h *GalleryHandler) Create(c *gin.Context) {
	var req httpdto.GalleryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	m, err := h.service.Create(c.Request.Context(), services.GalleryInput{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Images:      httpdto.ToImageRefs(req.Images),
	})
	if err != nil {
		fail(c, err)
		return
	}
	msg := fmt.Sprintf("created a gallery with %d images", m.ImageCount())
	c.JSON(http.StatusOK, httpdto.NewSuccessMessage(httpdto.ToMemoryDTO(m), msg))
}

func (h *GalleryHandler) Update(c *gin.Context) {
	var req httpdto.GalleryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	m, err := h.service.Update(c.Request.Context(), c.Param("id"), services.GalleryInput{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Images:      httpdto.ToImageRefs(req.Images),
	})
	if err != nil {
		fail(c, err)
		return
	}
	msg := fmt.Sprintf("gallery updated, %d images", m.ImageCount())
	c.JSON(http.StatusOK, httpdto.NewSuccessMessage(httpdto.ToMemoryDTO(m), msg))
}
