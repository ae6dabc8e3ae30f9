package git

import (
	"fmt"
	"net/http"
)

// RemoteAPIError is returned by every Tracker call that fails against the
// hosting platform. StatusCode is zero when no response was received.
type RemoteAPIError struct {
	Platform   Platform
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteAPIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Platform, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %v", e.Platform, e.Op, e.StatusCode, e.Err)
}

func (e *RemoteAPIError) Unwrap() error { return e.Err }

func remoteError(platform Platform, op string, resp *http.Response, err error) error {
	e := &RemoteAPIError{Platform: platform, Op: op, Err: err}
	if resp != nil {
		e.StatusCode = resp.StatusCode
	}
	return e
}
