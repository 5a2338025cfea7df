package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/corebill/corebill/internal/types"
)

// RequestIDMiddleware tags every request with an ID, echoing the caller's
// X-Request-ID when present
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST)
	}

	ctx := context.WithValue(c.Request.Context(), types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}

// OrgContextMiddleware resolves the organization and user scope for the
// request. Every storage operation is scoped by these values.
func OrgContextMiddleware(c *gin.Context) {
	orgID := c.GetHeader(types.HeaderOrgID)
	if orgID == "" {
		orgID = types.DefaultOrgID
	}
	userID := c.GetHeader(types.HeaderUserID)
	if userID == "" {
		userID = types.DefaultUserID
	}

	ctx := c.Request.Context()
	ctx = types.SetOrgID(ctx, orgID)
	ctx = types.SetUserID(ctx, userID)
	c.Request = c.Request.WithContext(ctx)

	c.Next()
}
