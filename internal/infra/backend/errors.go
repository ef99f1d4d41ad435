package backend

import (
	"context"
	"fmt"
	"net"

	"github.com/cockroachdb/errors"
)

// Error kinds. Use errors.Is to classify an error returned by the client.
var (
	ErrStreamResolution = errors.New("stream resolution failed")
	ErrSearch           = errors.New("search failed")
	ErrLyrics           = errors.New("lyrics unavailable")
	ErrDownload         = errors.New("download failed")
	ErrTimeout          = errors.New("backend request timed out")
)

// APIError is the error payload returned by the backend ({"error": "..."}).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return e.Message
}

// classify marks err with kind and, when the request ran out of time, with ErrTimeout.
func classify(err error, kind error) error {
	if err == nil {
		return nil
	}
	err = errors.Mark(err, kind)
	if isTimeout(err) {
		err = errors.Mark(err, ErrTimeout)
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
