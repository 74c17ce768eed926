package auth

import "context"

// Identity is the caller as resolved by the upstream authentication
// gateway. The core trusts these values and performs no credential
// verification of its own.
type Identity struct {
	ID   string
	Role string
}

// IsAgent reports whether the caller may act as a support agent.
func (id Identity) IsAgent() bool {
	return id.Role == "agent" || id.Role == "admin"
}

type ctxIdentityKey struct{}

// WithIdentity attaches the resolved caller identity to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey{}, id)
}

// IdentityFrom extracts the caller identity from ctx.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentityKey{}).(Identity)
	return id, ok
}
