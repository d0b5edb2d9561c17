package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DateLayout is the wire format of every date field, always in UTC.
const DateLayout = "2006-01-02 15:04:05"

// DefaultKeyPath is where typed payloads live inside a response body.
const DefaultKeyPath = "data"

// Time is a time.Time encoded and decoded using [DateLayout] in UTC.
// A value that does not match the layout fails to decode.
type Time struct {
	time.Time
}

// NewTime returns t as a Time in UTC, truncated to the second.
func NewTime(t time.Time) Time {
	return Time{Time: t.UTC().Truncate(time.Second)}
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(DateLayout))
}

// UnmarshalJSON implements json.Unmarshaler. A JSON null leaves t unchanged.
func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding time: %w", err)
	}

	parsed, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("parsing time %q: %w", s, err)
	}
	t.Time = parsed

	return nil
}

// ErrPlainTime is wrapped by the error returned when a request body or
// payload type declares a time.Time field. Date fields must be [Time] so
// they use [DateLayout] on the wire.
var ErrPlainTime = errors.New("time.Time field: declare date fields as api.Time")

var (
	timeType        = reflect.TypeFor[time.Time]()
	marshalerType   = reflect.TypeFor[json.Marshaler]()
	unmarshalerType = reflect.TypeFor[json.Unmarshaler]()
)

// checkDateFields fails with [ErrPlainTime] when t reaches a time.Time
// through its fields or elements. Types with their own JSON encoding
// are not inspected.
func checkDateFields(t reflect.Type) error {
	if t == nil {
		return nil
	}

	if path, ok := plainTimeField(t, "", make(map[reflect.Type]bool)); ok {
		if path == "" {
			return ErrPlainTime
		}
		return fmt.Errorf("field[%s]: %w", path, ErrPlainTime)
	}

	return nil
}

func plainTimeField(t reflect.Type, path string, seen map[reflect.Type]bool) (string, bool) {
	if t == timeType {
		return path, true
	}
	if seen[t] {
		return "", false
	}
	seen[t] = true

	if ownsEncoding(t) {
		return "", false
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		return plainTimeField(t.Elem(), path, seen)

	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() && !f.Anonymous {
				continue
			}

			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = f.Name
			}

			fieldPath := name
			if path != "" {
				fieldPath = path + "." + name
			}

			if got, ok := plainTimeField(f.Type, fieldPath, seen); ok {
				return got, true
			}
		}
	}

	return "", false
}

func ownsEncoding(t reflect.Type) bool {
	pt := reflect.PointerTo(t)

	return t.Implements(marshalerType) || pt.Implements(marshalerType) ||
		t.Implements(unmarshalerType) || pt.Implements(unmarshalerType)
}

// DecodeKeyPath locates the fragment of data named by the dot-separated
// keyPath, walking nested JSON objects, and decodes it into v. An empty
// keyPath decodes the whole document.
func DecodeKeyPath(data []byte, keyPath string, v any) error {
	fragment := json.RawMessage(data)

	if keyPath != "" {
		for seg := range strings.SplitSeq(keyPath, ".") {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(fragment, &obj); err != nil {
				return fmt.Errorf("keypath[%s] segment[%s]: %w", keyPath, seg, err)
			}

			next, ok := obj[seg]
			if !ok {
				return fmt.Errorf("keypath[%s] segment[%s]: key not found", keyPath, seg)
			}
			fragment = next
		}
	}

	if err := json.Unmarshal(fragment, v); err != nil {
		return fmt.Errorf("decoding keypath[%s]: %w", keyPath, err)
	}

	return nil
}

// decodeTypedError decodes body into the API family's error type and
// checks its validation tags. A decode producing a nil value fails.
func decodeTypedError[E error](body []byte) (E, error) {
	var e E
	if err := json.Unmarshal(body, &e); err != nil {
		return e, fmt.Errorf("decoding typed error: %w", err)
	}

	switch rv := reflect.ValueOf(&e).Elem(); rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return e, fmt.Errorf("decoding typed error: empty value")
		}
	}

	if err := Validate(e); err != nil {
		return e, fmt.Errorf("validating typed error: %w", err)
	}

	return e, nil
}
