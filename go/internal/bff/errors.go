package bff

import (
	"fmt"
)

// StatusError is returned when the BFF answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: BFF returned status code: %d, response: %s", e.Method, e.Path, e.Code, e.Body)
}
