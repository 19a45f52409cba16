package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the server accepts a request, after its
// request id has been assigned.
type HTTPStart struct {
	Request   *http.Request
	RequestID string
}

// HTTPFinish is published once the response is written. Kind is the error
// kind reported in the response body, empty on success.
type HTTPFinish struct {
	Request   *http.Request
	RequestID string
	Status    int
	Kind      string
	Duration  time.Duration
}
