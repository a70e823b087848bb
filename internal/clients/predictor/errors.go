package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrModelNotTrained is returned when the predictor answers 503.
var ErrModelNotTrained = errors.New("predictor model not trained")

type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "http error"
	}
	if e.Code != "" {
		return fmt.Sprintf("http error: status=%d code=%s message=%s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("http error: status=%d message=%s", e.StatusCode, msg)
}

// parseHTTPError accepts both {"error":{"message":..}} and the flat
// {"success":false,"message":..} envelope.
func parseHTTPError(status int, raw []byte) error {
	out := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(raw))}

	var env struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return out
	}
	var nested struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if len(env.Error) > 0 && json.Unmarshal(env.Error, &nested) == nil && strings.TrimSpace(nested.Message) != "" {
		out.Message = strings.TrimSpace(nested.Message)
		out.Code = strings.TrimSpace(nested.Code)
		return out
	}
	var flat string
	if len(env.Error) > 0 && json.Unmarshal(env.Error, &flat) == nil {
		out.Message = strings.TrimSpace(flat)
	}
	if out.Message == "" {
		out.Message = strings.TrimSpace(env.Message)
	}
	return out
}
