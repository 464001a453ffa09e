package tools

import "context"

// scopeKey uses an empty struct for a zero-allocation context key.
type scopeKey struct{}

// Scope carries the per-request retrieval context: whose data to fetch,
// with which credentials, from which project. The agent binds it into
// context before generation so tool handlers never receive credentials
// from the model.
type Scope struct {
	Token       string
	UserID      string
	ProjectCode string
}

// ContextWithScope stores the retrieval scope in ctx.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext retrieves the retrieval scope from ctx. The zero Scope
// is returned when none is bound; tool handlers treat a missing token as
// an authentication failure when the API rejects it.
func ScopeFromContext(ctx context.Context) Scope {
	scope, _ := ctx.Value(scopeKey{}).(Scope)
	return scope
}
