package llm

import (
	"errors"
	"fmt"
)

// ErrGatewayTimeout is returned when a gateway call exceeds its per-call deadline.
var ErrGatewayTimeout = errors.New("llm gateway: timeout")

// errMalformed marks a 200 response whose body could not be decoded.
var errMalformed = errors.New("malformed response")

// maxErrorBody caps how much of a failed response body is kept in GatewayError.
const maxErrorBody = 2048

// GatewayError reports a failed embedding or chat call: a non-200 status, a
// transport failure, or a response missing the expected fields.
type GatewayError struct {
	Op         string // "embed" | "chat" | "health"
	StatusCode int    // 0 when no response was received
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("llm gateway %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("llm gateway %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("llm gateway %s: %s", e.Op, e.Body)
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

// retryable reports whether the failure may succeed on a second attempt.
// Timeouts and 4xx (other than 429) are final.
func (e *GatewayError) retryable() bool {
	if errors.Is(e.Err, ErrGatewayTimeout) || errors.Is(e.Err, errMalformed) {
		return false
	}
	if e.StatusCode == 0 {
		return e.Err != nil
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}
