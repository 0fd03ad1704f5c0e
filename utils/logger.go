package utils

import (
	"errors"
	"net/http"
	"time"

	"dbadminapi/pkg/logger"
	"dbadminapi/services/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the id attached to every log line of a request.
const RequestIDHeader = "X-Request-Id"

// LoggerMiddleware assigns a request id and logs every request once it completes, at a
// level matching its status code.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("requestId", reqID)
		c.Header(RequestIDHeader, reqID)

		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()

		entry := logger.WithFields(logger.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"duration":   elapsed.String(),
			"ip":         c.ClientIP(),
		})
		switch {
		case status >= 500:
			entry.Errorf("HTTP %s %s - Status: %d", c.Request.Method, c.Request.URL.Path, status)
		case status >= 400:
			entry.Warnf("HTTP %s %s - Status: %d", c.Request.Method, c.Request.URL.Path, status)
		default:
			entry.Infof("HTTP %s %s - Status: %d", c.Request.Method, c.Request.URL.Path, status)
		}
	}
}

// RequestLogger returns a log entry scoped to the current request.
func RequestLogger(c *gin.Context) *logger.Entry {
	return logger.WithFields(logger.Fields{"request_id": c.GetString("requestId")})
}

// JSONResponse sends a JSON response with the specified HTTP status code.
func JSONResponse(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// ErrorBody is the error payload of every failed request.
type ErrorBody struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// ErrorResponse answers with the status mapped from the error kind. Errors outside the
// taxonomy are request errors (binding, validation) and answer 400.
func ErrorResponse(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		logger.Warnf("API request error: %v", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: "BAD_REQUEST"})
		return
	}

	status := appErr.Kind.HTTPStatus()
	if status >= 500 {
		logger.Errorf("API Error: %v", err)
	} else {
		logger.Warnf("API Error: %v", err)
	}
	c.AbortWithStatusJSON(status, ErrorBody{
		Error:   err.Error(),
		Code:    apperrors.CodeOf(err),
		Details: appErr.Details,
	})
}
