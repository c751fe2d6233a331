package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/billing"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/livefire2015/ez-rent/src/services"
)

const maxBodyBytes = 1 << 20

type apiErrorJSON struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, msg string) {
	reqID := w.Header().Get("X-Request-Id")
	_ = writeJSON(w, status, apiErrorJSON{Code: code, Message: msg, RequestID: reqID})
}

// writeError maps a service error to its HTTP status
func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeAPIError(w, status, code, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrValidation), errors.Is(err, billing.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, services.ErrConflict), errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict, "conflict"
	case errors.Is(err, billing.ErrIncompleteData):
		return http.StatusUnprocessableEntity, "incomplete_data"
	case errors.Is(err, billing.ErrConfigMissing):
		return http.StatusUnprocessableEntity, "configuration_missing"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter
func queryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", name+" must be a UUID")
		return nil, false
	}
	return &id, true
}

// queryPeriod parses a YYYY-MM query parameter; required controls whether it may be absent
func queryPeriod(w http.ResponseWriter, r *http.Request, required bool) (*models.Period, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("period"))
	if raw == "" {
		if required {
			writeAPIError(w, http.StatusBadRequest, "invalid_argument", "period is required (YYYY-MM)")
			return nil, false
		}
		return nil, true
	}
	p, err := models.ParsePeriod(raw)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return nil, false
	}
	return &p, true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", name+" must be a positive integer")
		return 0, false
	}
	return n, true
}

func queryBool(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", name+" must be a boolean")
		return false, false
	}
	return b, true
}

// parseBodyPeriod accepts a YYYY-MM string inside a request body
func parseBodyPeriod(w http.ResponseWriter, raw string) (models.Period, bool) {
	p, err := models.ParsePeriod(strings.TrimSpace(raw))
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return models.Period{}, false
	}
	return p, true
}
