package download

import (
	"errors"
	"fmt"
)

var (
	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrDownloadCancelled     = errors.New("download cancelled")
)

// Error wraps a sentinel error with additional detail.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Progress is a snapshot of a transfer. Expected is -1
// when the server did not announce a content length.
type Progress struct {
	Received int64
	Expected int64
}

// Fraction returns the completed share of the transfer in [0, 1],
// or -1 if the expected size is unknown.
func (p Progress) Fraction() float64 {
	if p.Expected < 0 {
		return -1
	}
	if p.Expected == 0 {
		return 1
	}

	return float64(p.Received) / float64(p.Expected)
}
