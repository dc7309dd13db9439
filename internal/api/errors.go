package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hbomb79/Hermes/pkg/logger"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ErrorHandler renders every error returned by a handler as a JSON
// body of the form {"detail": "..."}, using the status code of the
// error when it is an *echo.HTTPError and 500 otherwise.
func ErrorHandler(err error, ec echo.Context) {
	if ec.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := http.StatusText(code)

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		detail = fmt.Sprint(httpErr.Message)
	} else {
		log.Emit(logger.ERROR, "Unhandled error for %s %s: %v\n", ec.Request().Method, ec.Request().URL.Path, err)
	}

	if ec.Request().Method == http.MethodHead {
		err = ec.NoContent(code)
	} else {
		err = ec.JSON(code, ErrorResponse{Detail: detail})
	}

	if err != nil {
		log.Emit(logger.WARNING, "Failed to write error response: %v\n", err)
	}
}
