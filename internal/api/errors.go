package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/labstack/echo/v4"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the kind and message of a failed request.
type ErrorDetail struct {
	Kind    common.Kind `json:"kind"`
	Message string      `json:"message"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind common.Kind) int {
	switch kind {
	case common.KindValidation:
		return http.StatusUnprocessableEntity
	case common.KindConflict:
		return http.StatusConflict
	case common.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func kindForStatus(status int) common.Kind {
	switch {
	case status == http.StatusNotFound || status == http.StatusMethodNotAllowed:
		return common.KindNotFound
	case status == http.StatusConflict:
		return common.KindConflict
	case status >= 400 && status < 500:
		return common.KindValidation
	default:
		return common.KindInternal
	}
}

// errorHandler renders errors as {"error": {"kind", "message"}}. Internal
// failures are logged with their cause and reported with the message only.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status int
		detail ErrorDetail
	)

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		if status == http.StatusBadRequest {
			status = http.StatusUnprocessableEntity
		}
		detail = ErrorDetail{Kind: kindForStatus(httpErr.Code), Message: fmt.Sprint(httpErr.Message)}
	} else {
		var e *common.Error
		if !errors.As(common.AsError(err, "request failed"), &e) {
			e = common.Internal("request failed", err)
		}
		status = StatusFor(e.Kind)
		detail = ErrorDetail{Kind: e.Kind, Message: e.Message}
	}

	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(c.Request().Context(), level, "HTTP error",
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"status", status,
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err.Error(),
	)

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, ErrorBody{Error: detail})
	}
	if err != nil {
		slog.Error("Failed to send error response", "error", err.Error())
	}
}

func badRequest(format string, args ...any) error {
	return common.Validationf(format, args...)
}
