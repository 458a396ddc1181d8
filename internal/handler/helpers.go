package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"birthday-memory-app/internal/services"
	app_errors "birthday-memory-app/pkg/errors"

	"github.com/gin-gonic/gin"
)

// fail hands err to the error middleware, which renders the envelope.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func badRequest(c *gin.Context, msg string, err error) {
	fail(c, app_errors.ValidationWrap(msg, err))
}

func toPart(fh *multipart.FileHeader) services.Part {
	return services.Part{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (services.PartReader, error) {
			return fh.Open()
		},
	}
}

func toParts(files []*multipart.FileHeader) []services.Part {
	parts := make([]services.Part, 0, len(files))
	for _, fh := range files {
		parts = append(parts, toPart(fh))
	}
	return parts
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
