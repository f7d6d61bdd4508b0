// internal/interfaces/http/middleware/logger.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger returns a gin.HandlerFunc that logs HTTP requests
func Logger(logger logrus.FieldLogger) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health", "/ready", "/metrics"},
		Formatter: func(param gin.LogFormatterParams) string {
			entry := logger.WithFields(logrus.Fields{
				"request_id":    param.Keys[contextKeyRequestID],
				"timestamp":     param.TimeStamp.Format(time.RFC3339),
				"method":        param.Method,
				"path":          param.Path,
				"status_code":   param.StatusCode,
				"latency":       param.Latency,
				"client_ip":     param.ClientIP,
				"user_agent":    param.Request.UserAgent(),
				"response_size": param.BodySize,
			})

			if userID, ok := param.Keys[contextKeyUserID]; ok {
				entry = entry.WithField("user_id", userID)
			}

			if param.ErrorMessage != "" {
				entry = entry.WithField("error", param.ErrorMessage)
			}

			if param.StatusCode >= 500 {
				entry.Error("HTTP request completed with server error")
			} else if param.StatusCode >= 400 {
				entry.Warn("HTTP request completed with client error")
			} else {
				entry.Info("HTTP request completed successfully")
			}

			return ""
		},
	})
}
