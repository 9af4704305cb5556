package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/matiasleandrokruk/ragline/internal/api/ctxkeys"
)

// Outcome classifies a finished request for the audit log.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
)

// AuditMiddleware writes one structured "rag request" record per request:
// who called which operation, the status and how long it took.
// Expected order in router: AuthMiddleware -> AuditMiddleware -> handlers.
func AuditMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			subject := ctxkeys.SubjectFrom(r.Context())
			if subject == "" {
				subject = "anonymous"
			}
			outcome := outcomeFromStatus(recorder.statusCode)
			level := slog.LevelInfo
			if outcome != OutcomeSuccess {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "rag request",
				"action", actionFromRequest(r.Method, r.URL.Path),
				"subject", subject,
				"status_code", recorder.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"outcome", outcome,
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func outcomeFromStatus(statusCode int) Outcome {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return OutcomeSuccess
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return OutcomeDenied
	default:
		return OutcomeError
	}
}

// actionFromRequest maps /rag/<op> to "rag_<op>"; anything else becomes
// "<method>_request".
func actionFromRequest(method, path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 2 && segments[0] == "rag" && segments[1] != "" {
		return "rag_" + segments[1]
	}
	return strings.ToLower(method) + "_request"
}
