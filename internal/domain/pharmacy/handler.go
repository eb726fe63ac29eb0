package pharmacy

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medassist/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/pharmacy")

	g.POST("/medicines", h.CreateMedicine)
	g.GET("/medicines", h.ListMedicines)
	g.GET("/medicines/search", h.SearchMedicines)
	g.GET("/medicines/low-stock", h.LowStock)
	g.GET("/medicines/:id", h.GetMedicine)
	g.PUT("/medicines/:id", h.UpdateMedicine)
	g.PATCH("/medicines/:id/quantity", h.AdjustQuantity)
	g.DELETE("/medicines/:id", h.DeleteMedicine)

	g.POST("/bills", h.CreateBill)
	g.GET("/bills/recent", h.RecentBills)
	g.GET("/bills/status/:status", h.BillsByStatus)
	g.GET("/bills/:id", h.GetBill)
	g.GET("/bills/:id/pdf", h.BillPDF)
	g.GET("/patient/:id/bills", h.BillsByPatient)
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
		return echo.NewHTTPError(http.StatusNotFound, nf.Msg)
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

// ---- Inventory ----

func (h *Handler) CreateMedicine(c echo.Context) error {
	var in MedicineInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.CreateMedicine(c.Request().Context(), in)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMedicines(c echo.Context) error {
	out, err := h.svc.ListMedicines(c.Request().Context())
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetMedicine(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMedicine(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) UpdateMedicine(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in MedicineInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.UpdateMedicine(c.Request().Context(), id, in)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) AdjustQuantity(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	delta, err := strconv.Atoi(strings.TrimSpace(c.QueryParam("quantity_change")))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity_change must be an integer")
	}
	m, err := h.svc.AdjustQuantity(c.Request().Context(), id, delta)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMedicine(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMedicine(c.Request().Context(), id); err != nil {
		return toHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SearchMedicines(c echo.Context) error {
	out, err := h.svc.SearchMedicines(c.Request().Context(), c.QueryParam("query"))
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) LowStock(c echo.Context) error {
	var threshold int
	if v := strings.TrimSpace(c.QueryParam("threshold")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "threshold must be an integer")
		}
		threshold = n
	}
	out, err := h.svc.LowStock(c.Request().Context(), threshold)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

// ---- Bills ----

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

func (h *Handler) BillPDF(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	pdf, err := h.svc.PDF(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=pharmacy-bill-%d.pdf", id))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) RecentBills(c echo.Context) error {
	out, err := h.svc.RecentBills(c.Request().Context(), pagination.FromContext(c, defaultRecentLimit))
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) BillsByStatus(c echo.Context) error {
	out, err := h.svc.BillsByStatus(c.Request().Context(), c.Param("status"), pagination.FromContext(c, defaultStatusLimit))
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) BillsByPatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.BillsByPatient(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}
