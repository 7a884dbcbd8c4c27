package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Kind classifies a failed backend call.
type Kind uint8

const (
	// KindTransport means no response was received.
	KindTransport Kind = iota + 1
	// KindValidation is a 4xx carrying a structured field error map.
	KindValidation
	// KindUnauthorized covers 401 and 403.
	KindUnauthorized
	// KindNotFound is a 404.
	KindNotFound
	// KindUnknown is any other failure, including 5xx.
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindUnknown:
		return "unknown"
	}
	return "invalid"
}

// Fallback messages shown when the backend gives none.
const (
	MsgTransport    = "Le serveur est injoignable. Vérifiez votre connexion."
	MsgValidation   = "Les données envoyées sont invalides."
	MsgUnauthorized = "Session expirée ou accès refusé."
	MsgNotFound     = "Ressource introuvable."
	MsgUnknown      = "Une erreur inattendue est survenue."
)

// APIError is returned for every failed backend call.
type APIError struct {
	Kind   Kind
	Method string
	Path   string
	Status int
	// ServerMessage is the message field of the error payload, if any.
	ServerMessage string
	// Fields is the validation error map (field -> messages).
	Fields map[string][]string
	Err    error
}

func (e *APIError) Error() string {
	msg := e.ServerMessage
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Status, e.Kind, msg)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Kind, msg)
}

func (e *APIError) Unwrap() error { return e.Err }

// Message is the user facing text: the server's message when present, the
// first field error for validation failures, else a generic message.
func (e *APIError) Message() string {
	if e.Kind == KindTransport {
		return MsgTransport
	}
	if e.ServerMessage != "" {
		return e.ServerMessage
	}
	if first := e.firstFieldError(); first != "" {
		return first
	}
	switch e.Kind {
	case KindValidation:
		return MsgValidation
	case KindUnauthorized:
		return MsgUnauthorized
	case KindNotFound:
		return MsgNotFound
	}
	return MsgUnknown
}

func (e *APIError) firstFieldError() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if msgs := e.Fields[k]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	return ""
}

// IsKind reports whether err wraps an APIError of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// UserMessage turns any error into text fit for a dismissible banner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return "Réponse du serveur illisible."
	}
	return MsgUnknown
}

// errorPayload covers the Laravel shapes seen on the backend:
// {"message": "...", "errors": {"field": ["..."]}} and {"success": false, "error": "..."}.
type errorPayload struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

func classify(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return KindValidation
	}
	return KindUnknown
}

func newStatusError(method, path string, status int, body []byte) *APIError {
	e := &APIError{Kind: classify(status), Method: method, Path: path, Status: status}

	var p errorPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return e
	}
	e.ServerMessage = p.Message
	if e.ServerMessage == "" {
		e.ServerMessage = p.Error
	}
	if len(p.Errors) > 0 {
		fields := map[string][]string{}
		if err := json.Unmarshal(p.Errors, &fields); err != nil {
			// Some endpoints send a single string per field.
			single := map[string]string{}
			if json.Unmarshal(p.Errors, &single) == nil {
				for k, v := range single {
					fields[k] = []string{v}
				}
			}
		}
		if len(fields) > 0 {
			e.Fields = fields
			if status >= 400 && status < 500 && e.Kind == KindUnknown {
				e.Kind = KindValidation
			}
		}
	}
	return e
}
