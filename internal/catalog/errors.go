package catalog

import (
	"errors"
	"fmt"
)

// GenericErrorCode is reported for failures that carry no status
const GenericErrorCode = 1

// TransportError is a failure talking to the catalog source
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog request failed: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("catalog request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrNotFound is wrapped by sources when a product does not exist
var ErrNotFound = errors.New("product not found")

// ErrorCode classifies err into the code shown to the user: the transport
// status when one is known, GenericErrorCode otherwise.
func ErrorCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) && te.Status != 0 {
		return te.Status
	}
	return GenericErrorCode
}
