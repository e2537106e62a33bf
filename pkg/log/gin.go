package log

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// GinMiddleware puts a request-scoped logger into the request context and
// writes one line per request once the handler chain returns. The request
// id is echoed in X-Request-ID; a caller-supplied one is kept.
func GinMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		id := requestID(c)
		c.Header(headerRequestID, id)

		reqLog := logger.With().
			Str(FieldRequestID, id).
			Str(FieldMethod, c.Request.Method).
			Str(FieldPath, c.Request.URL.Path).
			Str(FieldClientIP, c.ClientIP()).
			Logger()
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), reqLog))

		c.Next()

		status := c.Writer.Status()
		e := reqLog.WithLevel(levelForStatus(status)).
			Int(FieldStatus, status).
			Float64(FieldLatency, float64(time.Since(began).Microseconds())/1000).
			Int("bytes", c.Writer.Size())
		e = withActor(e, c)
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			e = e.Strs("errors", errs.Errors())
		}
		e.Msg("request completed")
	}
}

func requestID(c *gin.Context) string {
	if id := c.GetHeader(headerRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}

func levelForStatus(status int) zerolog.Level {
	if status >= 500 {
		return zerolog.ErrorLevel
	}
	if status >= 400 {
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}

// withActor adds the caller identity the auth middleware stored on c.
func withActor(e *zerolog.Event, c *gin.Context) *zerolog.Event {
	if id, ok := c.Get(FieldUserID); ok {
		if v, ok := id.(int64); ok {
			e = e.Int64(FieldUserID, v)
		}
	}
	if name := c.GetString(FieldUsername); name != "" {
		e = e.Str(FieldUsername, name)
	}
	return e
}
