package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string         `json:"error"`
	Code  apperrors.Code `json:"code,omitempty"`
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	s.respond(w, statusFor(err), errorResponse{
		Error: apperrors.UserMessage(err),
		Code:  apperrors.GetCode(err),
	})
}

// statusFor maps error codes onto HTTP statuses: validation failures are
// 422, missing resources 404, everything infrastructural 500.
func statusFor(err error) int {
	if apperrors.IsValidation(err) {
		return http.StatusUnprocessableEntity
	}
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeIndexNotFound,
		apperrors.ErrCodeDocumentNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUnsupported:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
