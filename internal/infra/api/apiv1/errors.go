package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain"
)

type problem struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, problem{Error: code, Message: msg})
}

// statusFor maps an error category to a response status and a stable code.
func statusFor(err error) (int, string) {
	switch domain.Kind(err) {
	case domain.ErrAuthentication:
		return http.StatusUnauthorized, "authentication_failed"
	case domain.ErrValidation:
		return http.StatusBadRequest, "validation_failed"
	case domain.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case domain.ErrBusinessRule:
		return http.StatusConflict, "business_rule"
	case domain.ErrIntegration:
		return http.StatusBadGateway, "integration_failed"
	case domain.ErrStore:
		if errors.Is(err, domain.ErrVersionConflict) {
			return http.StatusConflict, "conflict"
		}
		return http.StatusInternalServerError, "store_failed"
	}
	return http.StatusInternalServerError, "internal"
}

// writeError hides the message of unexpected and store errors.
func writeError(w http.ResponseWriter, log *zerolog.Logger, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		msg = ""
	}
	writeProblem(w, status, code, msg)
}
