package labapi

import (
	"fmt"
	"net/http"
)

// genericFailure is reported when a non-2xx response carries no error field.
const genericFailure = "request failed"

// TransportError is a failure to reach the service or to read its response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError is a non-2xx response from the service.
type ServiceError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s (%d %s)", e.Op, e.Message, e.Status, http.StatusText(e.Status))
}
