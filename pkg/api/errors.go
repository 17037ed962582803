package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// RequestFailure is returned for every non-success outcome of a request:
// transport errors and non-2xx responses alike. Error() is the human-readable
// reason and may be shown verbatim.
type RequestFailure struct {
	Op         string
	StatusCode int
	Reason     string
	Err        error
}

func (e *RequestFailure) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s failed", e.Op)
}

func (e *RequestFailure) Unwrap() error { return e.Err }

// Transport reports whether the request never produced an HTTP response.
func (e *RequestFailure) Transport() bool { return e.StatusCode == 0 }

func IsRequestFailure(err error) bool {
	var rf *RequestFailure
	return errors.As(err, &rf)
}
