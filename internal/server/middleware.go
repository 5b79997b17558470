package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/picatz/openai-relay/internal/logger"
	"github.com/segmentio/ksuid"
)

// RequestIDHeader carries the request ID, either supplied by the client or
// generated by the server.
const RequestIDHeader = "X-Request-ID"

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = ksuid.New().String()
		}

		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), id))

		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Captured before c.Next in case a handler rewrites the request.
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		s.logger.InfoContext(c.Request.Context(), "request",
			"client_ip", c.ClientIP(),
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"size", c.Writer.Size(),
			"duration", time.Since(start),
		)
	}
}

// cors allows the configured origins and answers every preflight request
// with 204.
func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (s.allowedOrigins["*"] || s.allowedOrigins[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Expose-Headers", RequestIDHeader)
			c.Writer.Header().Add("Vary", "Origin")
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}

		if c.Writer.Header().Get("Access-Control-Allow-Origin") != "" {
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if headers := c.GetHeader("Access-Control-Request-Headers"); headers != "" {
				c.Header("Access-Control-Allow-Headers", sanitizeHeaderList(headers))
			} else {
				c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, X-Requested-With")
			}
			c.Header("Access-Control-Max-Age", "86400")
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}

// sanitizeHeaderList keeps the valid header names of a comma separated
// Access-Control-Request-Headers value.
func sanitizeHeaderList(headers string) string {
	var names []string
	for name := range strings.SplitSeq(headers, ",") {
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsFunc(name, func(r rune) bool {
			return !(r == '-' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z')
		}) {
			continue
		}
		names = append(names, http.CanonicalHeaderKey(name))
	}
	return strings.Join(names, ", ")
}
