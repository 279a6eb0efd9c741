package llm

import (
	"fmt"
	"net/http"
)

// StatusError is a non-2xx answer from an embedding API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s embeddings: http %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

// IsRateLimited reports a 429.
func (e *StatusError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }
