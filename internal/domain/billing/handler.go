package billing

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
	api.POST("/bills", h.CreateBill)
	api.GET("/bills/:id", h.GetBill)
	api.DELETE("/bills/:id", h.DeleteBill)
	api.GET("/patients/:id/bills", h.ListPatientBills)

	api.POST("/appointments", h.CreateAppointment)
	api.GET("/appointments", h.Appointments)
	api.GET("/appointments/today", h.TodayAppointments)
}

func toHTTP(err error) error {
	var (
		ve *ValidationError
		nf *NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Msg)
	case errors.As(err, &nf):
		return echo.NewHTTPError(http.StatusNotFound, nf.Error())
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

func queryID(c echo.Context, name string) (int64, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return id, nil
}

// -- Bills --

func (h *Handler) CreateBill(c echo.Context) error {
	var req CreateBillRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, err := h.svc.CreateBill(c.Request().Context(), req)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBill(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.GetBill(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBill(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBill(c.Request().Context(), id); err != nil {
		return toHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatientBills(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.ListPatientBills(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

// -- Appointments --

func (h *Handler) CreateAppointment(c echo.Context) error {
	var in AppointmentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	id, err := h.svc.CreateAppointment(c.Request().Context(), in)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":        "Appointment created successfully",
		"appointment_id": id,
	})
}

func slotFilter(c echo.Context) (SlotFilter, error) {
	var (
		f   SlotFilter
		err error
	)
	if f.ClinicID, err = queryID(c, "clinic_id"); err != nil {
		return f, err
	}
	f.DoctorID, err = queryID(c, "doctor_id")
	return f, err
}

func (h *Handler) Appointments(c echo.Context) error {
	f, err := slotFilter(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Appointments(c.Request().Context(), c.QueryParam("date"), f)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) TodayAppointments(c echo.Context) error {
	f, err := slotFilter(c)
	if err != nil {
		return err
	}
	out, err := h.svc.TodayAppointments(c.Request().Context(), f)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}
