package auth

import (
	"context"
	"strings"
)

type userIDContextKey struct{}
type grantContextKey struct{}

// ContextWithUser stores the resolved caller identity in the context.
func ContextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, strings.TrimSpace(userID))
}

// UserIDFromContext extracts the authenticated user id from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(userIDContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ContextWithGrant attaches the authorization context produced by a gate.
func ContextWithGrant(ctx context.Context, grant Grant) context.Context {
	return context.WithValue(ctx, grantContextKey{}, &grant)
}

// GrantFromContext extracts the authorization context if a gate passed.
func GrantFromContext(ctx context.Context) (Grant, bool) {
	if ctx == nil {
		return Grant{}, false
	}
	v, ok := ctx.Value(grantContextKey{}).(*Grant)
	if !ok || v == nil {
		return Grant{}, false
	}
	return *v, true
}
