package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/RasParker/XclusiveAfrica-sub000/internal/types"
)

// HeaderRequestID is the request correlation header.
const HeaderRequestID = "X-Request-ID"

func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUID()
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)

	c.Header(HeaderRequestID, requestID)

	c.Next()
}
