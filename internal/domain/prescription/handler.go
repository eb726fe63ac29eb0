package prescription

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/prescription/generate", h.Generate)
	api.POST("/prescription/save", h.Save)
	api.POST("/parse-voice-prescription", h.ParseVoicePrescription)
	api.POST("/prescription-template", h.SaveTemplate)
	api.GET("/prescription-templates", h.ListTemplates)
	api.GET("/patient/:id/medicines", h.Medicines)
}

func toHTTP(err error, notFound string) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Msg)
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func bindJSON(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Msg)
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

func (h *Handler) Generate(c echo.Context) error {
	var req GenerateRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	out, err := h.svc.Generate(c.Request().Context(), &req)
	if err != nil {
		return toHTTP(err, "Patient not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"prescription": out})
}

func (h *Handler) Save(c echo.Context) error {
	var req SaveRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Save(c.Request().Context(), &req)
	if err != nil {
		return toHTTP(err, "Patient not found")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ParseVoicePrescription(c echo.Context) error {
	var req struct {
		Transcript string `json:"transcript"`
	}
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.svc.ParseVoicePrescription(c.Request().Context(), req.Transcript))
}

func (h *Handler) SaveTemplate(c echo.Context) error {
	var req struct {
		Name string         `json:"name"`
		Data map[string]any `json:"template_data"`
	}
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	id, err := h.svc.SaveTemplate(c.Request().Context(), req.Name, req.Data)
	if err != nil {
		return toHTTP(err, "")
	}
	return c.JSON(http.StatusOK, map[string]any{"id": id, "message": "Template saved successfully"})
}

func (h *Handler) ListTemplates(c echo.Context) error {
	ts, err := h.svc.ListTemplates(c.Request().Context())
	if err != nil {
		return toHTTP(err, "")
	}
	return c.JSON(http.StatusOK, map[string]any{"templates": ts})
}

func (h *Handler) Medicines(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	lines, err := h.svc.Medicines(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err, "No patient found with that ID")
	}
	return c.JSON(http.StatusOK, map[string]any{"medicines": lines})
}
