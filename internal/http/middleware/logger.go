package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RequestLogger logs failed requests and frame uploads.
func RequestLogger(log zerolog.Logger, alwaysLog ...string) gin.HandlerFunc {
	watched := make(map[string]struct{}, len(alwaysLog))
	for _, p := range alwaysLog {
		watched[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		_, important := watched[path]
		if status < 400 && !important {
			return
		}
		if raw != "" {
			path = path + "?" + raw
		}

		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}
		event.
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Msg("http request")
	}
}
