package patient

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
)

const maxMultipartMemory = 32 << 20

type Handler struct {
	svc     *Service
	decoder *schema.Decoder
}

func NewHandler(svc *Service) *Handler {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return &Handler{svc: svc, decoder: d}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patient", h.Create)
	api.PUT("/patient/:id", h.Update)
	api.POST("/patient/:id/update", h.UpdateWithFiles)
	api.GET("/patient/:id", h.Get)
	api.GET("/patient/:id/detailed", h.GetDetailed)
	api.GET("/patient/:id/versions", h.ListVersions)
	api.GET("/version/:id", h.GetVersion)
	api.GET("/version/:id/complaints", h.VersionComplaints)

	api.POST("/final-choices", h.FinalChoices)
	api.GET("/search", h.Search)
	api.POST("/advice", h.Advice)
	api.POST("/parse-voice-transcript", h.ParseVoiceTranscript)
}

// toHTTP maps service errors onto the response taxonomy.
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

// readForm decodes the multipart intake form and its optional files.
func (h *Handler) readForm(c echo.Context) (IntakeForm, Files, error) {
	var (
		form  IntakeForm
		files Files
	)
	if err := c.Request().ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return form, files, echo.NewHTTPError(http.StatusBadRequest, "invalid form: "+err.Error())
	}
	mf := c.Request().MultipartForm
	if mf == nil {
		if err := c.Request().ParseForm(); err != nil {
			return form, files, echo.NewHTTPError(http.StatusBadRequest, "invalid form: "+err.Error())
		}
		if err := h.decoder.Decode(&form, c.Request().PostForm); err != nil {
			return form, files, echo.NewHTTPError(http.StatusBadRequest, "invalid form: "+err.Error())
		}
		return form, files, nil
	}
	if err := h.decoder.Decode(&form, mf.Value); err != nil {
		return form, files, echo.NewHTTPError(http.StatusBadRequest, "invalid form: "+err.Error())
	}

	for _, f := range []struct {
		field string
		dst   **Upload
	}{
		{"lab_report", &files.LabReport},
		{"medical_imaging", &files.MedicalImaging},
		{"previous_prescription", &files.PreviousPrescription},
	} {
		hdrs := mf.File[f.field]
		if len(hdrs) == 0 || hdrs[0].Filename == "" {
			continue
		}
		up, err := readUpload(hdrs[0])
		if err != nil {
			return form, files, echo.NewHTTPError(http.StatusBadRequest, "invalid file "+f.field)
		}
		*f.dst = up
	}
	return form, files, nil
}

func readUpload(fh *multipart.FileHeader) (*Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &Upload{Filename: fh.Filename, Data: data}, nil
}

// -- Intake and updates --

func (h *Handler) Create(c echo.Context) error {
	form, files, err := h.readForm(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Create(c.Request().Context(), form, files)
	if err != nil {
		return toHTTP(err, "No patient found with that ID")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	vid, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return toHTTP(err, "Patient not found")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":    "Patient updated successfully",
		"patient_id": id,
		"version_id": vid,
	})
}

func (h *Handler) UpdateWithFiles(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	form, files, err := h.readForm(c)
	if err != nil {
		return err
	}
	vid, err := h.svc.UpdateWithFiles(c.Request().Context(), id, form, files)
	if err != nil {
		return toHTTP(err, "Patient not found")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":    "Patient updated successfully",
		"patient_id": id,
		"version_id": vid,
	})
}

type finalChoicesRequest struct {
	PatientID int64 `json:"patient_id"`
	FinalChoices
}

func (h *Handler) FinalChoices(c echo.Context) error {
	var req finalChoicesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PatientID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing patient_id")
	}
	res, err := h.svc.UpdateFinalChoices(c.Request().Context(), req.PatientID, req.FinalChoices)
	if err != nil {
		return toHTTP(err, "Patient not found")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":    "Final choices saved successfully!",
		"version_id": res.VersionID,
		"amended":    res.Amended,
	})
}

// -- Reads --

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err, "No patient found with that ID")
	}
	return c.JSON(http.StatusOK, p.Summary())
}

func (h *Handler) GetDetailed(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDetailed(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err, "Patient not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListVersions(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	vs, err := h.svc.ListVersions(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err, "Patient not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"versions": vs})
}

func (h *Handler) GetVersion(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.GetVersion(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err, "Version not found.")
	}
	return c.JSON(http.StatusOK, map[string]any{"version": v})
}

func (h *Handler) VersionComplaints(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	cs, err := h.svc.VersionComplaints(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err, "Version not found.")
	}
	return c.JSON(http.StatusOK, map[string]any{"complaints": cs})
}

func (h *Handler) Search(c echo.Context) error {
	var p SearchParams
	if v := strings.TrimSpace(c.QueryParam("patient_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "patient_id must be an integer")
		}
		p.ID = &id
	}
	if v := strings.TrimSpace(c.QueryParam("age")); v != "" {
		age, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "age must be an integer")
		}
		p.Age = age
	}
	p.Name = strings.TrimSpace(c.QueryParam("name"))
	p.Gender = strings.TrimSpace(c.QueryParam("gender"))
	p.Contact = strings.TrimSpace(c.QueryParam("contact"))

	records, err := h.svc.Search(c.Request().Context(), p)
	if err != nil {
		return toHTTP(err, "")
	}
	return c.JSON(http.StatusOK, map[string]any{"count": len(records), "records": records})
}

// -- AI --

func (h *Handler) Advice(c echo.Context) error {
	var req AdviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PatientID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing patient_id")
	}
	advice, err := h.svc.Advice(c.Request().Context(), req)
	if err != nil {
		return toHTTP(err, "Patient not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"advice": advice})
}

type voiceTranscriptRequest struct {
	Transcript string `json:"transcript"`
	Department string `json:"department"`
}

func (h *Handler) ParseVoiceTranscript(c echo.Context) error {
	var req voiceTranscriptRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusOK, h.svc.ParseVoiceTranscript(c.Request().Context(), req.Transcript, req.Department))
}
