package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AccessEntry records one touch of a patient's record.
type AccessEntry struct {
	PatientID  int64
	Resource   string
	Action     string // read, create, update, delete
	Method     string
	Path       string
	IPAddress  string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AccessRecorder persists access entries somewhere other than the log.
type AccessRecorder interface {
	RecordAccess(entry AccessEntry) error
}

type AccessRecorderFunc func(entry AccessEntry) error

func (f AccessRecorderFunc) RecordAccess(entry AccessEntry) error { return f(entry) }

// PatientAccess logs every /api request that names a patient, either as a
// /patient/:id or /patients/:id path segment or as a patient_id query
// parameter. Requests that name no patient pass through untouched.
func PatientAccess(logger zerolog.Logger, recorders ...AccessRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id, resource := patientFromPath(req.URL.Path)
			if id == 0 {
				id, _ = strconv.ParseInt(c.QueryParam("patient_id"), 10, 64)
				resource = resourceOf(req.URL.Path)
			}
			if id <= 0 {
				return next(c)
			}

			err := next(c)

			entry := AccessEntry{
				PatientID:  id,
				Resource:   resource,
				Action:     methodToAction(req.Method),
				Method:     req.Method,
				Path:       req.URL.Path,
				IPAddress:  c.RealIP(),
				StatusCode: c.Response().Status,
				Timestamp:  time.Now().UTC(),
			}
			entry.RequestID, _ = c.Get("request_id").(string)

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record patient access")
				}
			}

			logger.Info().
				Str("type", "patient_access").
				Str("request_id", entry.RequestID).
				Int64("patient_id", entry.PatientID).
				Str("resource", entry.Resource).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("patient_access")

			return err
		}
	}
}

func methodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// patientFromPath finds "patient/<id>" or "patients/<id>" in path and
// returns the id with whatever follows it as the resource.
//
//	/api/patient/7             -> 7, "patient"
//	/api/patient/7/versions    -> 7, "versions"
//	/api/pharmacy/patient/7/bills -> 7, "bills"
func patientFromPath(path string) (int64, string) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i+1 < len(segs); i++ {
		if segs[i] != "patient" && segs[i] != "patients" {
			continue
		}
		id, err := strconv.ParseInt(segs[i+1], 10, 64)
		if err != nil || id <= 0 {
			return 0, ""
		}
		if i+2 < len(segs) {
			return id, segs[i+2]
		}
		return id, "patient"
	}
	return 0, ""
}

func resourceOf(path string) string {
	segs := strings.Split(strings.TrimPrefix(strings.Trim(path, "/"), "api/"), "/")
	if segs[0] == "" {
		return "unknown"
	}
	return segs[0]
}
