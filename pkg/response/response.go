// Package response writes the JSON envelope every API endpoint answers
// with: {"success":true,"data":...} or {"success":false,"error":{...}}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeTooLarge        = "PAYLOAD_TOO_LARGE"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternal        = "INTERNAL_ERROR"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
)

var codeByStatus = map[int]string{
	http.StatusBadRequest:            CodeBadRequest,
	http.StatusUnauthorized:          CodeUnauthorized,
	http.StatusForbidden:             CodeForbidden,
	http.StatusNotFound:              CodeNotFound,
	http.StatusConflict:              CodeConflict,
	http.StatusRequestEntityTooLarge: CodeTooLarge,
	http.StatusTooManyRequests:       CodeTooManyRequests,
	http.StatusInternalServerError:   CodeInternal,
	http.StatusServiceUnavailable:    CodeUnavailable,
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func failure(code, message string) Response {
	return Response{Error: &ErrorInfo{Code: code, Message: message}}
}

func Success(c *gin.Context, data interface{}) { ok(c, http.StatusOK, data) }

func Created(c *gin.Context, data interface{}) { ok(c, http.StatusCreated, data) }

// Error answers with an explicit code. Fail picks the code from status.
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, failure(code, message))
}

func Fail(c *gin.Context, status int, message string) {
	code, known := codeByStatus[status]
	if !known {
		code = CodeInternal
	}
	Error(c, status, code, message)
}

// Abort is Error for middleware: the rest of the chain is skipped.
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, failure(code, message))
}

func BadRequest(c *gin.Context, message string)   { Fail(c, http.StatusBadRequest, message) }
func Unauthorized(c *gin.Context, message string) { Fail(c, http.StatusUnauthorized, message) }
func Forbidden(c *gin.Context, message string)    { Fail(c, http.StatusForbidden, message) }
func NotFound(c *gin.Context, message string)     { Fail(c, http.StatusNotFound, message) }
func Conflict(c *gin.Context, message string)     { Fail(c, http.StatusConflict, message) }

func PayloadTooLarge(c *gin.Context, message string) {
	Fail(c, http.StatusRequestEntityTooLarge, message)
}

// InternalError must be given a generic message. The cause belongs in the
// log, never in the body.
func InternalError(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, message)
}

func ServiceUnavailable(c *gin.Context, message string) {
	Fail(c, http.StatusServiceUnavailable, message)
}
