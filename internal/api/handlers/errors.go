package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
	"github.com/matiasleandrokruk/ragline/internal/infra/llm"
)

// statusFor maps service errors onto HTTP statuses:
// validation 400, gateway timeout 504, gateway 502, everything else 500.
func statusFor(err error) int {
	var (
		ve *rag.ValidationError
		ge *llm.GatewayError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &ge):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs err and writes it with the mapped status. Store and
// unexpected failures get a fixed message; their detail stays in the log.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		var se *rag.StoreError
		if errors.As(err, &se) {
			msg = op + " failed: vector store " + se.Op + " error"
		} else {
			msg = op + " failed"
		}
		logger.ErrorContext(r.Context(), op+" failed", "error", err)
	} else {
		logger.WarnContext(r.Context(), op+" rejected", "status", status, "error", err)
	}
	writeError(w, status, msg)
}
