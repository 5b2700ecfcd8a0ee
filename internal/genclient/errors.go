package genclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ConnectivityError means the request never reached the server.
type ConnectivityError struct {
	Host string
	Err  error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("could not reach %s: %v", e.Host, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// APIError is a non-2xx response with a message extracted from the body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// MalformedResponseError is a 2xx response whose body is not valid JSON.
type MalformedResponseError struct {
	Excerpt string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response body: %v (body: %s)", e.Err, e.Excerpt)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

var errInvalidJSON = fmt.Errorf("body is not valid JSON")

const snippetLimit = 160

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= snippetLimit {
		return s
	}
	return s[:snippetLimit] + "..."
}

// errorBody covers the error shapes backends conventionally return: a FastAPI
// style `detail` (string or field-validation array), `message`, or `error`.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type validationDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// extractErrorMessage pulls a human-readable message out of a non-2xx body,
// falling back to "<status> <status text>" and then to a raw snippet.
func extractErrorMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("%d %s", status, http.StatusText(status))

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		if len(strings.TrimSpace(string(body))) == 0 {
			return fallback
		}
		return fallback + ": " + snippet(body)
	}

	if len(eb.Detail) > 0 {
		var asString string
		if json.Unmarshal(eb.Detail, &asString) == nil && asString != "" {
			return asString
		}
		var asList []validationDetail
		if json.Unmarshal(eb.Detail, &asList) == nil && len(asList) > 0 {
			parts := make([]string, 0, len(asList))
			for _, d := range asList {
				loc := make([]string, 0, len(d.Loc))
				for _, l := range d.Loc {
					loc = append(loc, fmt.Sprint(l))
				}
				if len(loc) > 0 {
					parts = append(parts, strings.Join(loc, ".")+": "+d.Msg)
				} else {
					parts = append(parts, d.Msg)
				}
			}
			return strings.Join(parts, "; ")
		}
	}
	if eb.Message != "" {
		return eb.Message
	}
	if eb.Error != "" {
		return eb.Error
	}
	return fallback
}
