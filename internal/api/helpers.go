package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"
)

const headerRequestID = "X-Request-Id"

func requestID(c *echo.Context) string {
	return c.Response().Header().Get(headerRequestID)
}

func writeJSON(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("api: encode response: %w", err)
	}
	return c.Blob(status, echo.MIMEApplicationJSON, b)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return writeJSON(c, status, ErrorResponse{
		RequestID: requestID(c),
		Error:     ResponseError{Type: errType, Message: msg},
	})
}

// writeDecodeError maps a failed request to a response. Structural failures
// become 422 with the chunk path; deadline expiry becomes 503.
func writeDecodeError(c *echo.Context, err error) error {
	if errors.Is(err, ErrBodyTooLarge) {
		return writeError(c, http.StatusRequestEntityTooLarge, "body_too_large_error", err.Error())
	}
	var ire invalidRequestError
	if errors.As(err, &ire) {
		return writeJSON(c, http.StatusBadRequest, ErrorResponse{
			RequestID: requestID(c),
			Error:     ResponseError{Type: "invalid_request_error", Message: ire.Error(), Param: ire.param},
		})
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return writeError(c, http.StatusServiceUnavailable, "timeout_error", err.Error())
	}
	var de *bes.Error
	if !errors.As(err, &de) {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	re := ResponseError{
		Type:    "decode_error",
		Message: err.Error(),
		Kind:    de.Kind.Error(),
		Path:    de.PathString(),
	}
	if de.Offset >= 0 {
		off := de.Offset
		re.Offset = &off
	}
	return writeJSON(c, http.StatusUnprocessableEntity, ErrorResponse{RequestID: requestID(c), Error: re})
}

// readBody reads at most limit bytes of the request body. limit <= 0 disables the check.
func readBody(c *echo.Context, limit int64) ([]byte, error) {
	body := c.Request().Body
	if limit > 0 {
		body = http.MaxBytesReader(c.Response(), body, limit)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrBodyTooLarge, mbe.Limit)
		}
		return nil, newInvalidRequest("read body: " + err.Error())
	}
	if len(data) == 0 {
		return nil, newInvalidRequest("request body is empty")
	}
	return data, nil
}
