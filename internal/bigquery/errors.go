package bigquery

import (
	"encoding/json"
	"fmt"
)

// InvalidArgumentError reports a caller-supplied parameter that violates a
// precondition. Raised before any network I/O happens.
type InvalidArgumentError struct {
	Msg string
}

func (e *InvalidArgumentError) Error() string { return e.Msg }

// InvalidResponseError reports a structurally unexpected payload from the
// API, e.g. a query response without a job id. The raw payload is attached
// for diagnostics.
type InvalidResponseError struct {
	Msg     string
	Payload json.RawMessage
}

func (e *InvalidResponseError) Error() string { return e.Msg }

// TimeoutError reports a query job that did not complete within the poll
// attempt ceiling.
type TimeoutError struct {
	JobID    string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("query job %s did not complete after %d poll attempts", e.JobID, e.Attempts)
}

// TransportError reports a non-2xx HTTP status from the API, carrying the
// status code and the raw response body.
type TransportError struct {
	StatusCode int
	Payload    []byte
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bigquery API error (HTTP %d)", e.StatusCode)
}
