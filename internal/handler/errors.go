package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Yoseph1994/adventurehub/internal/apperr"
	"github.com/Yoseph1994/adventurehub/internal/config"
)

// MsgUnexpected replaces unclassified error details in production.
const MsgUnexpected = "Something went very wrong!"

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// NewErrorHandler translates handler errors into JSON responses.
// Classified errors keep their message; 4xx responses report "fail" and
// 5xx responses "error".  Unclassified errors are logged and, in
// production, masked.
func NewErrorHandler(cfg config.Config) echo.HTTPErrorHandler {
	prod := cfg.IsProduction()
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := translate(err, prod)
		if status >= http.StatusInternalServerError {
			zap.L().Error("request failed",
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Error(err))
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			zap.L().Warn("write error response", zap.Error(werr))
		}
	}
}

func translate(err error, prod bool) (int, errorBody) {
	if ae, ok := apperr.As(err); ok {
		status := ae.Kind.Status()
		body := errorBody{Status: statusWord(status), Message: ae.Message}
		if !prod && ae.Err != nil {
			body.Error = ae.Err.Error()
		}
		return status, body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, errorBody{Status: statusWord(he.Code), Message: msg}
	}

	if prod {
		return http.StatusInternalServerError, errorBody{Status: "error", Message: MsgUnexpected}
	}
	return http.StatusInternalServerError, errorBody{Status: "error", Message: err.Error()}
}

func statusWord(code int) string {
	if code >= http.StatusInternalServerError {
		return "error"
	}
	return "fail"
}
