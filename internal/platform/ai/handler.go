package ai

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handler exposes dictation transcription.
type Handler struct {
	transcriber Transcriber
	log         zerolog.Logger
}

func NewHandler(t Transcriber, log zerolog.Logger) *Handler {
	return &Handler{transcriber: t, log: log}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/transcribe-audio", h.TranscribeAudio)
}

func (h *Handler) TranscribeAudio(c echo.Context) error {
	if h.transcriber == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "transcription is not configured")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "audio file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read audio file")
	}
	defer f.Close()

	text, err := h.transcriber.Transcribe(c.Request().Context(), fh.Filename, f)
	if err != nil {
		h.log.Error().Err(err).Str("file", fh.Filename).Msg("transcription failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Transcription failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"transcript": text})
}
