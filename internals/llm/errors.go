package llm

import "fmt"

// ResponseError means the model answered but not with a usable issue.
type ResponseError struct {
	Reason string
	Err    error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid AI response: %s: %v", e.Reason, e.Err)
	}
	return "invalid AI response: " + e.Reason
}

func (e *ResponseError) Unwrap() error { return e.Err }

// QuotaError means the provider refused the call for rate or capacity
// reasons. It is not retried.
type QuotaError struct {
	StatusCode int
	Err        error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("AI quota exceeded (status %d): %v", e.StatusCode, e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }
