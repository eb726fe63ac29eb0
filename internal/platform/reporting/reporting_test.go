package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	dashboard *Dashboard
	rows      []map[string]interface{}
	err       error

	lastSQL  string
	lastArgs []interface{}
}

func (s *stubStore) Dashboard(context.Context) (*Dashboard, error) {
	return s.dashboard, s.err
}

func (s *stubStore) Rows(_ context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	s.lastSQL, s.lastArgs = sql, args
	return s.rows, s.err
}

func newHandler(store Store) *Handler {
	h := NewHandler(store, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC) }
	return h
}

func get(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestPredefinedMeasures(t *testing.T) {
	ids := make([]string, 0, len(PredefinedMeasures))
	for _, m := range PredefinedMeasures {
		ids = append(ids, m.ID)
		assert.NotEmpty(t, m.SQL, m.ID)
		assert.NotEmpty(t, m.Name, m.ID)
		assert.NotEmpty(t, m.Description, m.ID)
	}
	assert.Equal(t, []string{"patient-count", "bills-by-payment-status", "versions-per-day", "low-stock-medicines"}, ids)
}

func TestFindMeasure(t *testing.T) {
	m := FindMeasure("low-stock-medicines")
	require.NotNil(t, m)
	assert.Equal(t, "threshold", m.Parameters[0].Name)
	assert.Equal(t, 10, m.Parameters[0].Default)

	assert.Nil(t, FindMeasure("nonexistent"))
}

func TestDashboard_Envelope(t *testing.T) {
	store := &stubStore{dashboard: &Dashboard{
		Counts:          Counts{TotalPatients: 12, TotalAppointments: 4, TotalRevenue: 2500.5},
		AgeDistribution: AgeDistribution{Age0To18: 1, Age61Plus: 2},
		TopDiagnosis:    []DiagnosisCount{{Diagnosis: "Hypertension", Count: 3}},
	}}
	c, rec := get("/api/reports")
	require.NoError(t, newHandler(store).Dashboard(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	counts := body.Data["counts"].(map[string]interface{})
	assert.Equal(t, 12.0, counts["totalPatients"])
	assert.Equal(t, 2500.5, counts["totalRevenue"])
	ages := body.Data["ageDistribution"].(map[string]interface{})
	assert.Equal(t, 2.0, ages["61_plus"])
	assert.Contains(t, rec.Body.String(), `"topDiagnosis":[{"diagnosis":"Hypertension","count":3}]`)
}

func TestDashboard_Error(t *testing.T) {
	c, rec := get("/api/reports")
	require.NoError(t, newHandler(&stubStore{err: errors.New("connection refused")}).Dashboard(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"connection refused"}`, rec.Body.String())
}

func TestEvaluateMeasure_Defaults(t *testing.T) {
	store := &stubStore{rows: []map[string]interface{}{{"day": "2026-03-14", "total": 5}}}
	c, rec := get("/api/reports/measures/versions-per-day/evaluate")
	c.SetParamNames("id")
	c.SetParamValues("versions-per-day")

	require.NoError(t, newHandler(store).EvaluateMeasure(c))
	assert.Equal(t, []interface{}{30}, store.lastArgs)

	var report MeasureReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "versions-per-day", report.MeasureID)
	assert.Equal(t, map[string]int{"days": 30}, report.Parameters)
	assert.Len(t, report.Results, 1)
	assert.Equal(t, "2026-03-15T09:00:00Z", report.GeneratedAt.Format(time.RFC3339))
}

func TestEvaluateMeasure_QueryParam(t *testing.T) {
	store := &stubStore{rows: []map[string]interface{}{}}
	c, _ := get("/api/reports/measures/low-stock-medicines/evaluate?threshold=3")
	c.SetParamNames("id")
	c.SetParamValues("low-stock-medicines")

	require.NoError(t, newHandler(store).EvaluateMeasure(c))
	assert.Equal(t, []interface{}{3}, store.lastArgs)
	assert.Contains(t, store.lastSQL, "medicines_inventory")
}

func TestEvaluateMeasure_Errors(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		target string
		store  *stubStore
		code   int
	}{
		{"unknown measure", "nope", "/", &stubStore{}, http.StatusNotFound},
		{"bad parameter", "versions-per-day", "/?days=week", &stubStore{}, http.StatusBadRequest},
		{"query failure", "patient-count", "/", &stubStore{err: errors.New("boom")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := get(tt.target)
			c.SetParamNames("id")
			c.SetParamValues(tt.id)
			err := newHandler(tt.store).EvaluateMeasure(c)
			var he *echo.HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, tt.code, he.Code)
		})
	}
}
