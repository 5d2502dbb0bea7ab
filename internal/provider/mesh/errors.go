package mesh

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable     = errors.New("face mesh service unavailable")
	ErrInvalidResponse = errors.New("invalid response from face mesh service")
)

// StatusError is a non-2xx reply from the sidecar
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("face mesh returned status %d: %s", e.Code, e.Body)
}
