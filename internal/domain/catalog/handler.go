package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/services", h.CreateService)
	api.GET("/services", h.ListServices)
	api.GET("/services/:id", h.GetService)
	api.PUT("/services/:id", h.UpdateService)
	api.DELETE("/services/:id", h.DeleteService)

	api.POST("/doctors", h.CreateDoctor)
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)
	api.PUT("/doctors/:id", h.UpdateDoctor)
	api.DELETE("/doctors/:id", h.DeleteDoctor)

	api.GET("/clinics", h.ListClinics)

	api.POST("/complaint-template", h.SaveComplaintTemplate)
	api.GET("/complaint-templates", h.ComplaintTemplates)
	api.GET("/medicines", h.MedicineNames)
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

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// -- Services --

func (h *Handler) CreateService(c echo.Context) error {
	var in ServiceInput
	if err := bind(c, &in); err != nil {
		return err
	}
	s, err := h.svc.CreateService(c.Request().Context(), in)
	if err != nil {
		return toHTTP(err, "")
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) ListServices(c echo.Context) error {
	out, err := h.svc.ListServices(c.Request().Context())
	if err != nil {
		return toHTTP(err, "")
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetService(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	s, err := h.svc.GetService(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err, "Service not found")
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) UpdateService(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in ServiceInput
	if err := bind(c, &in); err != nil {
		return err
	}
	s, err := h.svc.UpdateService(c.Request().Context(), id, in)
	if err != nil {
		return toHTTP(err, "Service not found")
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteService(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteService(c.Request().Context(), id); err != nil {
		return toHTTP(err, "Service not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Doctors --

func (h *Handler) CreateDoctor(c echo.Context) error {
	var in DoctorInput
	if err := bind(c, &in); err != nil {
		return err
	}
	d, err := h.svc.CreateDoctor(c.Request().Context(), in)
	if err != nil {
		return toHTTP(err, "")
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	var clinicID int64
	if v := strings.TrimSpace(c.QueryParam("clinic_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "clinic_id must be an integer")
		}
		clinicID = id
	}
	out, err := h.svc.ListDoctors(c.Request().Context(), clinicID)
	if err != nil {
		return toHTTP(err, "")
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err, "Doctor not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in DoctorInput
	if err := bind(c, &in); err != nil {
		return err
	}
	d, err := h.svc.UpdateDoctor(c.Request().Context(), id, in)
	if err != nil {
		return toHTTP(err, "Doctor not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDoctor(c.Request().Context(), id); err != nil {
		return toHTTP(err, "Doctor not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListClinics(c echo.Context) error {
	out, err := h.svc.ListClinics(c.Request().Context())
	if err != nil {
		return toHTTP(err, "")
	}
	return c.JSON(http.StatusOK, out)
}

// -- Templates and lookup --

func (h *Handler) SaveComplaintTemplate(c echo.Context) error {
	var in ComplaintTemplateInput
	if err := bind(c, &in); err != nil {
		return err
	}
	id, err := h.svc.SaveComplaintTemplate(c.Request().Context(), in)
	if err != nil {
		return toHTTP(err, "")
	}
	return c.JSON(http.StatusOK, map[string]any{"id": id, "message": "Template saved successfully"})
}

func (h *Handler) ComplaintTemplates(c echo.Context) error {
	out, err := h.svc.ComplaintTemplates(c.Request().Context(), c.QueryParam("department"))
	if err != nil {
		return toHTTP(err, "")
	}
	return c.JSON(http.StatusOK, map[string]any{"templates": out})
}

func (h *Handler) MedicineNames(c echo.Context) error {
	out, err := h.svc.MedicineNames(c.Request().Context(), c.QueryParam("query"))
	if err != nil {
		return toHTTP(err, "")
	}
	return c.JSON(http.StatusOK, out)
}
