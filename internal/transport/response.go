package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/service"
)

type (
	Envelope struct {
		Success bool              `json:"success"`
		Message string            `json:"message"`
		Data    interface{}       `json:"data"`
		Meta    *service.PageMeta `json:"meta,omitempty"`
	}

	ValidationErrorData struct {
		Errors map[string][]string `json:"errors"`
	}
)

func sendResponse(c echo.Context, code int, data interface{}, message string) error {
	return c.JSON(code, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// sendList writes a listing envelope. Keys from additional[...] query
// parameters are merged into the top level; they never replace data or meta.
func sendList(c echo.Context, data interface{}, meta *service.PageMeta, message string, additional map[string]string) error {
	if len(additional) == 0 {
		return c.JSON(http.StatusOK, Envelope{
			Success: true,
			Message: message,
			Data:    data,
			Meta:    meta,
		})
	}

	body := map[string]interface{}{
		"success": true,
		"message": message,
	}
	for k, v := range additional {
		body[k] = v
	}
	body["data"] = data
	if meta != nil {
		body["meta"] = meta
	} else {
		delete(body, "meta")
	}
	return c.JSON(http.StatusOK, body)
}

func sendError(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, Envelope{
		Success: false,
		Message: message,
		Data:    data,
	})
}

// additionalParams collects additional[key]=value query parameters.
func additionalParams(c echo.Context) map[string]string {
	out := make(map[string]string)
	for key, values := range c.QueryParams() {
		if !strings.HasPrefix(key, "additional[") || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		name := key[len("additional[") : len(key)-1]
		if name == "" {
			continue
		}
		out[name] = values[0]
	}
	return out
}

func (s *HTTPServer) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		verr     *service.ValidationError
		notFound *service.NotFoundError
		httpErr  *echo.HTTPError
		sendErr  error
	)
	switch {
	case errors.As(err, &verr):
		sendErr = sendError(c, http.StatusBadRequest, "Validation Error.", ValidationErrorData{Errors: verr.Fields})
	case errors.As(err, &notFound):
		sendErr = sendError(c, http.StatusNotFound, notFound.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		sendErr = sendError(c, http.StatusNotFound, "Not found.", nil)
	case errors.Is(err, service.ErrAccessDenied):
		sendErr = sendError(c, http.StatusForbidden, service.ErrAccessDenied.Error(), nil)
	case errors.Is(err, service.ErrUnauthorized):
		sendErr = sendError(c, http.StatusUnauthorized, "Unauthenticated.", nil)
	case errors.As(err, &httpErr):
		message := fmt.Sprint(httpErr.Message)
		if httpErr.Code == http.StatusBadRequest {
			sendErr = sendError(c, http.StatusBadRequest, "Validation Error.", ValidationErrorData{
				Errors: map[string][]string{"body": {message}},
			})
			break
		}
		sendErr = sendError(c, httpErr.Code, message, nil)
	default:
		s.logger.Errorw("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		sendErr = sendError(c, http.StatusInternalServerError, "Server Error.", nil)
	}
	if sendErr != nil {
		s.logger.Errorw("write error response", "error", sendErr)
	}
}
