package api

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/adamwoolhether/apiclient/client"
)

// maxEnvelopeSize caps how much of a downloaded file is inspected
// for an envelope.
const maxEnvelopeSize = 1 << 20

// Interpret classifies a response and decodes its payload.
//
// A 2xx body must be an envelope; when it reports success, the
// fragment at keyPath is decoded into T. An authorized request that
// came back 401 calls onAuth and fails with [KindAuth]. Everything else
// is decoded as E, or reported as a [KindRegular] server error when
// that fails.
func Interpret[T any, E error](status int, body []byte, authorized bool, keyPath string, onAuth func()) (T, error) {
	var zero T

	if err := interpretStatus[E](status, body, authorized, onAuth); err != nil {
		return zero, err
	}

	var v T
	if err := DecodeKeyPath(body, keyPath, &v); err != nil {
		return zero, badResponse(status, err)
	}

	return v, nil
}

// InterpretVoid is [Interpret] without the payload decode.
func InterpretVoid[E error](status int, body []byte, authorized bool, onAuth func()) error {
	return interpretStatus[E](status, body, authorized, onAuth)
}

func interpretStatus[E error](status int, body []byte, authorized bool, onAuth func()) error {
	if client.IsSuccess(status) {
		env, err := decodeEnvelope(body)
		if err != nil {
			return badResponse(status, err)
		}
		if env.Success {
			return nil
		}
	} else if authorized && status == http.StatusUnauthorized {
		if onAuth != nil {
			onAuth()
		}
		return authError(status)
	}

	return typedError[E](status, body)
}

func typedError[E error](status int, body []byte) error {
	e, err := decodeTypedError[E](body)
	if err != nil {
		return serverError(status, err)
	}

	return e
}

// InterpretDownload classifies a finished download from its status and
// the file written to path.
//
// A 2xx download succeeds unless the file is a small envelope
// reporting failure. Otherwise the usual 401 handling applies and the
// file is decoded as E.
func InterpretDownload[E error](status int, path string, authorized bool, onAuth func()) error {
	if client.IsSuccess(status) {
		data, err := readEnvelopeCandidate(path)
		if err != nil {
			return nil
		}

		env, err := decodeEnvelope(data)
		if err != nil || env.Success {
			return nil
		}

		if msg, ok := env.FirstError(); ok {
			return &Error{Kind: KindRegular, Message: msg, StatusCode: status}
		}

		return &Error{Kind: KindRegular, Message: fmt.Sprintf(msgDownloadError, status), StatusCode: status}
	}

	if authorized && status == http.StatusUnauthorized {
		if onAuth != nil {
			onAuth()
		}
		return authError(status)
	}

	data, err := readEnvelopeCandidate(path)
	if err != nil {
		return serverError(status, err)
	}

	return typedError[E](status, data)
}

var errTooLarge = fmt.Errorf("file larger than %d bytes", maxEnvelopeSize)

func readEnvelopeCandidate(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxEnvelopeSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxEnvelopeSize {
		return nil, errTooLarge
	}

	return data, nil
}
