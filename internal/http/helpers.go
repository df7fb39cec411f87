package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dividi/internal/core"
	"dividi/internal/log"
)

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// requestID creates a unique request ID for tracing.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	parsedTime, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: bad date %q", core.ErrValidation, dateStr)
	}
	return core.Date{Time: parsedTime}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondError maps the domain error taxonomy onto HTTP statuses:
// validation 422, absent entities 404, blocked removals 409, everything
// else 500. Internal failures, computation errors included, answer with a
// generic message; the detail goes to the server log only.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *core.NotFoundError
	var ri *core.ReferentialIntegrityError

	switch {
	case errors.Is(err, core.ErrValidation):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &nf):
		writeError(w, r, http.StatusNotFound, nf.Error())
	case errors.As(err, &ri):
		writeError(w, r, http.StatusConflict, ri.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			log.FieldPath, r.URL.Path, log.FieldStatusCode, http.StatusInternalServerError,
			log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a request body into dst, rejecting unknown fields so a
// typoed field name fails loudly instead of silently meaning "default".
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
