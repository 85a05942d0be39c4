package queue

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is the logical payload of a task message.
type Envelope struct {
	Kwargs map[string]any `json:"kwargs"`
}

// EncodeKwargs serializes kwargs into a task message body:
// URL-safe base64 of the JSON document {"kwargs": {...}}.
func EncodeKwargs(kwargs map[string]any) (string, error) {
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	data, err := json.Marshal(Envelope{Kwargs: kwargs})
	if err != nil {
		return "", fmt.Errorf("failed to marshal task kwargs: %w", err)
	}

	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeKwargs is the inverse of EncodeKwargs. JSON numbers decode as float64.
// Any failure is reported as a *DecodeError matching ErrInvalidEnvelope.
func DecodeKwargs(body string) (map[string]any, error) {
	data, err := base64.URLEncoding.DecodeString(body)
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("base64: %w", err)}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("json: %w", err)}
	}

	kwargsRaw, ok := raw["kwargs"]
	if !ok {
		return nil, &DecodeError{Err: errors.New("missing kwargs field")}
	}
	if bytes.Equal(bytes.TrimSpace(kwargsRaw), []byte("null")) {
		return nil, &DecodeError{Err: errors.New("kwargs is null")}
	}

	var kwargs map[string]any
	if err := json.Unmarshal(kwargsRaw, &kwargs); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("kwargs: %w", err)}
	}

	return kwargs, nil
}
