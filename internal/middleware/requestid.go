package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"

	// inbound ids longer than this are replaced; the id lands in every log
	// line and error payload, so it must stay bounded
	maxRequestIDLength = 128
)

// RequestID tags each request with the id that threads through request logs,
// error payloads and the access trail. An inbound X-Request-ID is honored so
// gateway traces line up across services; absent or oversized ids are
// replaced with a fresh uuid.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderXRequestID)
		if rid == "" || len(rid) > maxRequestIDLength {
			rid = uuid.NewString()
		}

		c.Set(ContextRequestID, rid)
		c.Header(HeaderXRequestID, rid)
		c.Next()
	}
}
