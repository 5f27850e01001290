package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"shareit/internal/domain"

	"github.com/rs/zerolog"
)

type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type fieldErrorResponse struct {
	Code      int    `json:"code"`
	FieldName string `json:"fieldName"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Status: statusCode, Message: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnknownState),
		errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrConcurrentModification),
		errors.Is(err, domain.ErrInUse):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError renders err with the body shape its kind calls for.
// Unclassified errors are logged and hidden behind a generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	logger := zerolog.Ctx(r.Context())

	if code == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, code, "internal server error")
		return
	}
	logger.Debug().Err(err).Int("status", code).Msg("request rejected")

	if errors.Is(err, domain.ErrUnknownState) {
		writeJSON(w, code, map[string]string{"error": err.Error()})
		return
	}

	if fields := domain.FieldErrors(err); len(fields) > 0 {
		body := make([]fieldErrorResponse, 0, len(fields))
		for _, f := range fields {
			body = append(body, fieldErrorResponse{Code: code, FieldName: f.Field, Message: f.Message})
		}
		writeJSON(w, code, body)
		return
	}

	writeError(w, code, err.Error())
}
