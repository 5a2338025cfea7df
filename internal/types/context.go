package types

import (
	"context"
	"fmt"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxOrgID     ContextKey = "ctx_org_id"
	CtxUserID    ContextKey = "ctx_user_id"

	// Default values
	DefaultOrgID  = "00000000-0000-0000-0000-000000000000"
	DefaultUserID = "00000000-0000-0000-0000-000000000000"
)

// HTTP headers the request middleware reads and echoes
const (
	HeaderRequestID = "X-Request-ID"
	HeaderOrgID     = "X-Org-ID"
	HeaderUserID    = "X-User-ID"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

// GetOrgID returns the organization identifier every core operation is
// scoped to. There is no ambient "current org": callers must put it in the
// context explicitly.
func GetOrgID(ctx context.Context) string {
	if orgID, ok := ctx.Value(CtxOrgID).(string); ok {
		return orgID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// SetOrgID sets the organization ID in the context
func SetOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, CtxOrgID, orgID)
}

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// ValidateOrgContext validates that the required org context fields are present
func ValidateOrgContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context is nil")
	}

	if GetOrgID(ctx) == "" {
		return fmt.Errorf("no organization context found in context")
	}

	return nil
}
