package bilibili

import "fmt"

// APIError reports a failed call to the member API: a transport failure, a
// non-success status, an unreadable body or an error code in the payload.
type APIError struct {
	Endpoint   string
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("api error: %s returned code %d: %s", e.Endpoint, e.Code, e.Message)
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("api error: %s (HTTP %d): %v", e.Endpoint, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("api error: %s: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("api error: %s returned HTTP %d", e.Endpoint, e.StatusCode)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}
