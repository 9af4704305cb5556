// Package ctxkeys holds the typed context keys shared by middleware and handlers.
// Leaf package so api and api/handlers can both import it without a cycle.
package ctxkeys

import "context"

// Key is the named type for all API context keys.
// Using a named type avoids collisions with string keys from other packages
// at runtime (context.Value compares both type and value).
type Key string

// Subject is the authenticated caller, injected by the auth middleware from
// the token's "sub" claim.
const Subject Key = "subject"

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// SubjectFrom returns the authenticated subject, or "" for anonymous requests.
func SubjectFrom(ctx context.Context) string {
	s, _ := ctx.Value(Subject).(string)
	return s
}
