package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/viewhub/viewhub/internal/shared/id"
)

// RequestIDHeader is the response header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a ULID, honoring an ID supplied by
// the client. The ID is stored in the gin context under "request_id".
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = id.NewRequestID().String()
		}
		c.Set("request_id", reqID)
		c.Header(RequestIDHeader, reqID)
		c.Next()
	}
}
