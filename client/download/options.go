package download

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"
)

// Option defines optional settings for downloading files.
//
// WithProgress registers a callback receiving a [Progress] snapshot
// after every chunk written to disk.
//
// WithProgressLog enables periodic download progress logging via the
// logger supplied to Handle.
//
// WithChecksum enables checksum validation of the downloaded file.
// h is a hash.Hash instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
type Option func(*options) error

type options struct {
	progressFn  func(Progress)
	progressLog bool
	checksum    *checksumVerifier
}

func WithProgress(fn func(Progress)) Option {
	return func(opts *options) error {
		if fn == nil {
			return errors.New("progress func must not be nil")
		}

		opts.progressFn = fn
		return nil
	}
}

func WithProgressLog() Option {
	return func(opts *options) error {
		opts.progressLog = true
		return nil
	}
}

func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}

		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		h.Reset()
		opts.checksum = &checksumVerifier{hash: h, expected: strings.ToLower(expected)}
		return nil
	}
}

// checksumVerifier hashes everything written to it and compares
// the digest once the stream is complete.
type checksumVerifier struct {
	hash     hash.Hash
	expected string
}

func (v *checksumVerifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

func (v *checksumVerifier) Verify() error {
	if v == nil {
		return nil
	}

	if actual := hex.EncodeToString(v.hash.Sum(nil)); actual != v.expected {
		return &Error{
			Err:    ErrChecksumMismatch,
			Detail: fmt.Sprintf("expected %s, got %s", v.expected, actual),
		}
	}

	return nil
}
