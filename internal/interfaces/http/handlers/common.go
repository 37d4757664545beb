// Package handlers implements the gin handlers of the DockFlow HTTP API.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/DockFlow/pkg/errors"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeAppError maps err to its HTTP status. Server-side failures are masked
// with the code's default message.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	resp := ErrorResponse{Code: code.String()}
	if status >= http.StatusInternalServerError {
		resp.Message = errors.DefaultMessageForCode(code)
	} else {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			resp.Message = appErr.Message
			resp.Detail = appErr.Detail
		} else {
			resp.Message = err.Error()
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// writeBadRequest reports an undecodable request.
func writeBadRequest(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:    errors.ErrCodeBadRequest.String(),
		Message: errors.DefaultMessageForCode(errors.ErrCodeBadRequest),
		Detail:  detail,
	})
}

// parseLimit reads ?limit=, clamped to (0, maxListLimit].
func parseLimit(c *gin.Context) int {
	v := c.Query("limit")
	if v == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

//Personal.AI order the ending
