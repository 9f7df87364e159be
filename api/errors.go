package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// ErrSessionExpired is returned when a request hit a 401 and the token
// refresh itself failed. The stored credentials have been cleared and the
// OnSessionExpired callback has fired; the caller should send the user
// through a login flow rather than retry.
var ErrSessionExpired = errors.New("session expired: token refresh failed")

// APIError is a non-2xx response from the backend. Message is the
// human-readable summary extracted from the response body, falling back to
// "Error <status>" when the body carries nothing usable.
type APIError struct {
	StatusCode int
	Message    string
	Body       json.RawMessage
}

// Error implements the error interface for APIError
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// extractMessage pulls a human-readable message out of a DRF-style error
// body. It understands, in priority order:
//
//   - a bare JSON string, used verbatim
//   - an object with a "detail" string
//   - an object with a non-empty "non_field_errors" list (first element)
//   - otherwise the first field, in document order, holding a non-empty list
//     or a string, rendered as "<field> : <value>"
//
// Returns "" when nothing matches; the caller substitutes a generic message.
func extractMessage(body []byte) string {
	dec := json.NewDecoder(bytes.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return ""
	}

	switch t := tok.(type) {
	case string:
		return t
	case json.Delim:
		if t != '{' {
			return ""
		}
	default:
		return ""
	}

	// Walk the top-level object with the decoder so fields are seen in
	// document order, which json.Unmarshal into a map would not preserve.
	type field struct {
		key   string
		value interface{}
	}
	var fields []field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return ""
		}
		key, ok := keyTok.(string)
		if !ok {
			return ""
		}

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return ""
		}
		fields = append(fields, field{key: key, value: value})
	}

	for _, f := range fields {
		if f.key != "detail" {
			continue
		}
		if s, ok := f.value.(string); ok && s != "" {
			return s
		}
	}

	for _, f := range fields {
		if f.key != "non_field_errors" {
			continue
		}
		if list, ok := f.value.([]interface{}); ok && len(list) > 0 {
			return fmt.Sprintf("%v", list[0])
		}
	}

	for _, f := range fields {
		switch v := f.value.(type) {
		case []interface{}:
			if len(v) > 0 {
				return fmt.Sprintf("%s : %v", f.key, v[0])
			}
		case string:
			return fmt.Sprintf("%s : %s", f.key, v)
		}
	}

	return ""
}
