package blobstore

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler serves signed-URL previews and, for the memory backend, the signed
// download route itself.
type Handler struct {
	store Store
	ttl   time.Duration
}

func NewHandler(store Store, ttl time.Duration) *Handler {
	return &Handler{store: store, ttl: ttl}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/file-preview", h.Preview)
	if _, ok := h.store.(*MemoryStore); ok {
		api.GET("/blobs/signed/:token", h.SignedDownload)
	}
}

// Preview returns a short-lived URL for a stored reference.
func (h *Handler) Preview(c echo.Context) error {
	ref := strings.TrimSpace(c.QueryParam("file_url"))
	if ref == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file_url is required")
	}

	u, err := h.store.SignedURL(c.Request().Context(), ref, h.ttl)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownRef):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate presigned URL")
	}
	return c.JSON(http.StatusOK, map[string]string{"presigned_url": u})
}

func (h *Handler) SignedDownload(c echo.Context) error {
	mem, ok := h.store.(*MemoryStore)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	data, ct, key, err := mem.Open(c.Request().Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}

	if ct == "" {
		ct = ContentType(key)
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, key))
	return c.Blob(http.StatusOK, ct, data)
}
