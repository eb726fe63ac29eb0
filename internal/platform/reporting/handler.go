package reporting

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewHandler creates a new reporting handler.
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{store: store, log: log, now: time.Now}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports")
	g.GET("", h.Dashboard)
	g.GET("/measures", h.ListMeasures)
	g.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Dashboard returns every dashboard aggregate wrapped in a success envelope.
func (h *Handler) Dashboard(c echo.Context) error {
	d, err := h.store.Dashboard(c.Request().Context())
	if err != nil {
		h.log.Error().Err(err).Msg("generate reports")
		return c.JSON(http.StatusInternalServerError, envelope{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: d})
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	params := make(map[string]int, len(measure.Parameters))
	args := make([]interface{}, 0, len(measure.Parameters))
	for _, p := range measure.Parameters {
		v := p.Default
		if raw := strings.TrimSpace(c.QueryParam(p.Name)); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, p.Name+" must be an integer")
			}
			v = n
		}
		params[p.Name] = v
		args = append(args, v)
	}

	results, err := h.store.Rows(c.Request().Context(), measure.SQL, args...)
	if err != nil {
		h.log.Error().Err(err).Str("measure", measure.ID).Msg("evaluate measure")
		return echo.NewHTTPError(http.StatusInternalServerError, "query failed: "+err.Error())
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: h.now().UTC(),
		Results:     results,
		Parameters:  params,
	})
}
