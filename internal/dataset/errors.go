package dataset

import (
	"errors"
	"fmt"
)

// ErrEmpty indicates the input has no header row.
var ErrEmpty = errors.New("no columns to parse from file")

// ErrUnsupported indicates a format no registered reader accepts.
var ErrUnsupported = errors.New("unsupported dataset format")

// SizeError rejects source files above the configured byte limit.
type SizeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("file too large (%.1fMB). Maximum supported size is %gMB",
		float64(e.Size)/1024/1024, float64(e.Limit)/1024/1024)
}
