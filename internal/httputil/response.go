package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/anon-inbox/internal/domain"
)

// Payload holds extra top-level fields merged into a response envelope.
type Payload map[string]any

// JSON writes v as a JSON response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Respond writes {"success": ..., "message": ..., ...payload}.
func Respond(w http.ResponseWriter, status int, success bool, message string, payload Payload) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = success
	body["message"] = message
	JSON(w, status, body)
}

// Success writes a successful envelope.
func Success(w http.ResponseWriter, status int, message string, payload Payload) {
	Respond(w, status, true, message, payload)
}

// Error writes a failed envelope with no payload.
func Error(w http.ResponseWriter, status int, message string) {
	Respond(w, status, false, message, nil)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindConflict:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a failed envelope. Errors outside the domain
// taxonomy are logged and reported as a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := domain.KindOf(err)
	status := StatusFor(kind)

	switch kind {
	case domain.KindInternal:
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	case domain.KindDependency:
		logger.WarnContext(r.Context(), "dependency failure", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		Respond(w, status, false, verr.Error(), Payload{"errors": verr.Fields})
		return
	}
	Error(w, status, domain.PublicMessage(err))
}

var (
	errBodyTooLarge = errors.New("request body too large")
	errInvalidBody  = errors.New("invalid request body")
)

// DecodeJSON decodes the request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errBodyTooLarge
	}
	return errInvalidBody
}

// WriteDecodeError writes the response for a failed DecodeJSON.
func WriteDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		Error(w, http.StatusRequestEntityTooLarge, errBodyTooLarge.Error())
		return
	}
	Error(w, http.StatusBadRequest, errInvalidBody.Error())
}
