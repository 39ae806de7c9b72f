package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/services"
)

const maxJSONBody = 1_048_576

// decodeJSON reads exactly one JSON object into dst and validates it.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v *services.ValidationHelper, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	if err := v.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// fail writes err and logs it when it is not the client's fault.
func fail(w http.ResponseWriter, logger *slog.Logger, err error) {
	if services.StatusFor(err) == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}
	services.SendError(w, err)
}

func notFound(w http.ResponseWriter, kind, id string) {
	services.SendError(w, &services.NotFoundError{Kind: kind, ID: id})
}

// queryDay parses an optional YYYY-MM-DD query parameter.
func queryDay(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDay(raw)
	if err != nil {
		return nil, &services.ValidationError{Field: name, Message: "expected YYYY-MM-DD"}
	}
	return &d, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &services.ValidationError{Field: name, Message: "expected a non-negative integer"}
	}
	return n, nil
}

// optionalDay parses a body date field; "" means unset.
func optionalDay(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDay(raw)
	if err != nil {
		return nil, &services.ValidationError{Field: field, Message: "expected YYYY-MM-DD"}
	}
	return &d, nil
}

var errNoFile = errors.New("multipart field \"file\" is required")
