package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeError means a 2xx body could not be read as the expected shape.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode response: %s: %v", e.Reason, e.Err)
	}
	return "decode response: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// DecodeList normalizes a collection response. It accepts a bare array,
// {"data": [...]}, {"success": true, "data": [...]}, and a Laravel paginator
// nested in data ({"data": {"data": [...], "current_page": 1}}). All shapes
// yield the same ordered slice. {"success": false} is reported as an APIError.
func DecodeList[T any](raw []byte) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	for depth := 0; depth < 3; depth++ {
		if len(raw) == 0 {
			return nil, &DecodeError{Reason: "empty body"}
		}
		switch raw[0] {
		case '[':
			out := []T{}
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, &DecodeError{Reason: "invalid list", Err: err}
			}
			return out, nil
		case '{':
			var env envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return nil, &DecodeError{Reason: "invalid envelope", Err: err}
			}
			if env.Success != nil && !*env.Success {
				return nil, failedEnvelope(env)
			}
			if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
				return nil, &DecodeError{Reason: "envelope has no data"}
			}
			raw = bytes.TrimSpace(env.Data)
		default:
			return nil, &DecodeError{Reason: "expected a list or an object"}
		}
	}
	return nil, &DecodeError{Reason: "envelope nested too deeply"}
}

// DecodeItem normalizes a single-record response: either the bare object or
// the object wrapped in {"data": {...}} / {"success": true, "data": {...}}.
func DecodeItem[T any](raw []byte) (T, error) {
	var zero T
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return zero, &DecodeError{Reason: "expected an object"}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Success != nil && !*env.Success {
			return zero, failedEnvelope(env)
		}
		data := bytes.TrimSpace(env.Data)
		if len(data) > 0 && data[0] == '{' {
			raw = data
		}
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, &DecodeError{Reason: "invalid object", Err: err}
	}
	return out, nil
}

func failedEnvelope(env envelope) *APIError {
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	return &APIError{Kind: KindUnknown, ServerMessage: msg}
}
