package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Logger writes one structured line per request. 5xx responses log at error level,
// 4xx at warn.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size())
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			ev.Str("errors", errs)
		}
		ev.Msg("request")
	}
}
