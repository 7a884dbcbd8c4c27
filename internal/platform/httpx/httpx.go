// Package httpx translates gateway errors into HTTP responses and decodes
// request bodies.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/board"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/lifecycle"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/listing"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/validation"
)

const MsgBadBody = "Corps de requête invalide."

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Reason  string              `json:"reason,omitempty"`
}

// DecodeJSON reads a single JSON object, rejecting unknown fields.
func DecodeJSON(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// Bind decodes the request body into v or returns a 400.
func Bind(c echo.Context, v interface{}) error {
	if err := DecodeJSON(c.Request().Body, v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, MsgBadBody).SetInternal(err)
	}
	return nil
}

// ParamID parses a positive numeric path parameter.
func ParamID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Identifiant invalide.")
	}
	return id, nil
}

// Error maps err to an *echo.HTTPError whose message is a user facing string.
func Error(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var fe validation.FieldErrors
	if errors.As(err, &fe) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ErrorBody{
			Message: apiclient.MsgValidation,
			Errors:  fe,
		}).SetInternal(err)
	}

	if errors.Is(err, board.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, ErrorBody{Message: board.MsgNotFound}).SetInternal(err)
	}

	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		code := http.StatusConflict
		switch te.Reason {
		case lifecycle.ReasonNotFound:
			code = http.StatusNotFound
		case lifecycle.ReasonRole, lifecycle.ReasonNotAssigned:
			code = http.StatusForbidden
		case lifecycle.ReasonUnknownStatus:
			code = http.StatusUnprocessableEntity
		}
		return echo.NewHTTPError(code, ErrorBody{Message: te.Message(), Reason: string(te.Reason)}).SetInternal(err)
	}

	var le *listing.LoadError
	if errors.As(err, &le) {
		return echo.NewHTTPError(statusFor(le.Err), ErrorBody{Message: le.Message}).SetInternal(err)
	}

	var ae *apiclient.APIError
	if errors.As(err, &ae) {
		body := ErrorBody{Message: ae.Message()}
		if ae.Kind == apiclient.KindValidation {
			body.Errors = ae.Fields
		}
		return echo.NewHTTPError(statusFor(ae), body).SetInternal(err)
	}

	var de *apiclient.DecodeError
	if errors.As(err, &de) {
		return echo.NewHTTPError(http.StatusBadGateway, ErrorBody{Message: apiclient.UserMessage(err)}).SetInternal(err)
	}

	return echo.NewHTTPError(http.StatusInternalServerError, ErrorBody{Message: apiclient.MsgUnknown}).SetInternal(err)
}

func statusFor(err error) int {
	var ae *apiclient.APIError
	if !errors.As(err, &ae) {
		return http.StatusBadGateway
	}
	switch ae.Kind {
	case apiclient.KindValidation:
		return http.StatusUnprocessableEntity
	case apiclient.KindUnauthorized:
		if ae.Status == http.StatusForbidden {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case apiclient.KindNotFound:
		return http.StatusNotFound
	case apiclient.KindTransport:
		return http.StatusBadGateway
	}
	return http.StatusBadGateway
}

// ErrorHandler renders every error as ErrorBody JSON.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		he := Error(err)
		body, ok := he.Message.(ErrorBody)
		if !ok {
			msg, isString := he.Message.(string)
			if !isString || msg == "" {
				msg = http.StatusText(he.Code)
			}
			body = ErrorBody{Message: msg}
		}
		if he.Code >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.Path()).Int("status", he.Code).Msg("request failed")
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(he.Code)
		} else {
			werr = c.JSON(he.Code, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}
