package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/board"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/lifecycle"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/listing"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/validation"
)

func TestError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"field errors", validation.FieldErrors{"motif": {"x"}}, http.StatusUnprocessableEntity},
		{"transition not found", &lifecycle.TransitionError{Reason: lifecycle.ReasonNotFound}, http.StatusNotFound},
		{"transition role", &lifecycle.TransitionError{Reason: lifecycle.ReasonRole}, http.StatusForbidden},
		{"transition not assigned", &lifecycle.TransitionError{Reason: lifecycle.ReasonNotAssigned}, http.StatusForbidden},
		{"transition terminal", &lifecycle.TransitionError{Reason: lifecycle.ReasonTerminal}, http.StatusConflict},
		{"transition in flight", &lifecycle.TransitionError{Reason: lifecycle.ReasonInFlight}, http.StatusConflict},
		{"backend validation", &apiclient.APIError{Kind: apiclient.KindValidation, Status: 422}, http.StatusUnprocessableEntity},
		{"backend unauthorized", &apiclient.APIError{Kind: apiclient.KindUnauthorized, Status: 401}, http.StatusUnauthorized},
		{"backend forbidden", &apiclient.APIError{Kind: apiclient.KindUnauthorized, Status: 403}, http.StatusForbidden},
		{"backend not found", &apiclient.APIError{Kind: apiclient.KindNotFound, Status: 404}, http.StatusNotFound},
		{"backend down", &apiclient.APIError{Kind: apiclient.KindTransport}, http.StatusBadGateway},
		{"backend 500", &apiclient.APIError{Kind: apiclient.KindUnknown, Status: 500}, http.StatusBadGateway},
		{"load error", &listing.LoadError{Entity: "x", Message: "m", Err: &apiclient.APIError{Kind: apiclient.KindTransport}}, http.StatusBadGateway},
		{"decode error", &apiclient.DecodeError{Reason: "bad"}, http.StatusBadGateway},
		{"not visible", board.NotFound("rendez-vous", 4), http.StatusNotFound},
		{"echo error", echo.NewHTTPError(http.StatusTeapot, "x"), http.StatusTeapot},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Error(tt.err).Code; got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestErrorHandler_WritesServerMessage(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	err := &apiclient.APIError{
		Kind:          apiclient.KindValidation,
		Status:        422,
		ServerMessage: "La date est déjà prise.",
		Fields:        map[string][]string{"date_rv": {"La date est déjà prise."}},
	}
	ErrorHandler(zerolog.Nop())(err, c)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "La date est déjà prise." {
		t.Errorf("unexpected message %q", body.Message)
	}
	if len(body.Errors["date_rv"]) != 1 {
		t.Errorf("expected field errors, got %v", body.Errors)
	}
}

func TestErrorHandler_PlainEchoError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	ErrorHandler(zerolog.Nop())(echo.ErrNotFound, c)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message":"Not Found"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Statut string `json:"statut"`
	}
	if err := DecodeJSON(strings.NewReader(`{"statut":"confirmed"}`), &v); err != nil || v.Statut != "confirmed" {
		t.Fatalf("unexpected %v %q", err, v.Statut)
	}
	if err := DecodeJSON(strings.NewReader(`{"statut":"confirmed","extra":1}`), &v); err == nil {
		t.Error("expected unknown field error")
	}
	if err := DecodeJSON(strings.NewReader(`{"statut":"a"}{"statut":"b"}`), &v); err == nil {
		t.Error("expected trailing object error")
	}
}

func TestParamID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")

	c.SetParamValues("12")
	if id, err := ParamID(c, "id"); err != nil || id != 12 {
		t.Errorf("expected 12, got %d %v", id, err)
	}
	for _, bad := range []string{"abc", "0", "-3"} {
		c.SetParamValues(bad)
		if _, err := ParamID(c, "id"); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}
