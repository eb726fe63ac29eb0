// Package reporting serves read-only aggregates over the clinic store: the
// dashboard behind the reports page and a small set of named measures.
package reporting

import (
	"context"
	"time"
)

// Counts are the headline numbers of the dashboard.
type Counts struct {
	TotalPatients     int64   `json:"totalPatients"`
	TotalAppointments int64   `json:"totalAppointments"`
	TotalRevenue      float64 `json:"totalRevenue"`
}

type GenderRatio struct {
	Male   int64 `json:"male"`
	Female int64 `json:"female"`
	Others int64 `json:"others"`
}

type AgeDistribution struct {
	Age0To18  int64 `json:"0_18"`
	Age19To30 int64 `json:"19_30"`
	Age31To60 int64 `json:"31_60"`
	Age61Plus int64 `json:"61_plus"`
}

// RepeatVisits buckets patients by how many versions their record has.
type RepeatVisits struct {
	One      int64 `json:"one"`
	Two      int64 `json:"two"`
	Three    int64 `json:"three"`
	FourPlus int64 `json:"four_plus"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

type DoctorCount struct {
	Doctor string `json:"doctor"`
	Count  int64  `json:"count"`
}

type ServiceCount struct {
	Service string `json:"service"`
	Count   int64  `json:"count"`
}

type DepartmentCount struct {
	Department string `json:"department"`
	Count      int64  `json:"count"`
}

type DiagnosisCount struct {
	Diagnosis string `json:"diagnosis"`
	Count     int64  `json:"count"`
}

type ModeCount struct {
	Mode  string `json:"mode"`
	Count int64  `json:"count"`
}

type MonthGender struct {
	Month  string `json:"month"`
	Male   int64  `json:"male"`
	Female int64  `json:"female"`
	Others int64  `json:"others"`
}

type MonthAge struct {
	Month     string `json:"month"`
	Age0To18  int64  `json:"age_0_18"`
	Age19To30 int64  `json:"age_19_30"`
	Age31To60 int64  `json:"age_31_60"`
	Age61Plus int64  `json:"age_61_plus"`
}

type MonthRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// Dashboard is the full reports page payload.
type Dashboard struct {
	Counts                  Counts            `json:"counts"`
	GenderRatio             GenderRatio       `json:"genderRatio"`
	AgeDistribution         AgeDistribution   `json:"ageDistribution"`
	RepeatVisits            RepeatVisits      `json:"repeatVisits"`
	MonthlyFootfall         []MonthCount      `json:"monthlyFootfall"`
	TopDoctors              []DoctorCount     `json:"topDoctors"`
	TopServices             []ServiceCount    `json:"topServices"`
	PaymentModeDistribution []ModeCount       `json:"paymentModeDistribution"`
	TopDepartments          []DepartmentCount `json:"topDepartments"`
	MonthlyGenderTrend      []MonthGender     `json:"monthlyGenderTrend"`
	MonthlyAgeTrend         []MonthAge        `json:"monthlyAgeTrend"`
	TopDiagnosis            []DiagnosisCount  `json:"topDiagnosis"`
	MonthlyRevenue          []MonthRevenue    `json:"monthlyRevenue"`
}

// Parameter is an integer query parameter bound positionally into a
// measure's SQL, in declaration order.
type Parameter struct {
	Name    string `json:"name"`
	Default int    `json:"default"`
}

// MeasureDefinition defines a reporting measure with its SQL query.
type MeasureDefinition struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	SQL         string      `json:"sql"`
	Parameters  []Parameter `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]int           `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "patient-count",
		Name:        "Patient Count",
		Description: "Total number of registered patients and how many were registered in the last 30 days",
		SQL: `SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '30 days') AS last_30_days
			FROM patient_info`,
		Parameters: []Parameter{},
	},
	{
		ID:          "bills-by-payment-status",
		Name:        "Bills by Payment Status",
		Description: "Number and value of clinic bills grouped by payment status",
		SQL: `SELECT payment_status, COUNT(*) AS total, COALESCE(SUM(total_amount), 0)::float8 AS amount
			FROM bills GROUP BY payment_status ORDER BY total DESC`,
		Parameters: []Parameter{},
	},
	{
		ID:          "versions-per-day",
		Name:        "Visits per Day",
		Description: "Patient record versions written per day over the last N days",
		SQL: `SELECT to_char(version_timestamp::date, 'YYYY-MM-DD') AS day, COUNT(*) AS total
			FROM patient_info_versions
			WHERE version_timestamp >= CURRENT_DATE - $1::int
			GROUP BY 1 ORDER BY 1`,
		Parameters: []Parameter{{Name: "days", Default: 30}},
	},
	{
		ID:          "low-stock-medicines",
		Name:        "Low Stock Medicines",
		Description: "Pharmacy medicines in stock at or below the threshold",
		SQL: `SELECT id, name, quantity FROM medicines_inventory
			WHERE quantity > 0 AND quantity <= $1::int ORDER BY quantity ASC, name`,
		Parameters: []Parameter{{Name: "threshold", Default: 10}},
	},
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

// Store runs the aggregate queries.
type Store interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	Rows(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error)
}
