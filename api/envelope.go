package api

import (
	"errors"
	"slices"

	"github.com/goccy/go-json"
)

var errMissingSuccess = errors.New("envelope: missing success flag")

// Envelope is the common wrapper around every API response body.
// Success, not the HTTP status code, is the authoritative outcome.
type Envelope struct {
	Success bool              `json:"success"`
	Errors  map[string]string `json:"errors"`
	Token   *string           `json:"token"`
}

// UnmarshalJSON implements json.Unmarshaler. The success key is
// required: an object without it is not an envelope.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		Success *bool             `json:"success"`
		Errors  map[string]string `json:"errors"`
		Token   *string           `json:"token"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Success == nil {
		return errMissingSuccess
	}

	*e = Envelope{
		Success: *raw.Success,
		Errors:  raw.Errors,
		Token:   raw.Token,
	}

	return nil
}

// FirstError returns the message of the first entry of Errors,
// taking field names in sorted order.
func (e *Envelope) FirstError() (string, bool) {
	if len(e.Errors) == 0 {
		return "", false
	}

	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return e.Errors[keys[0]], true
}

func decodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	return &env, nil
}
