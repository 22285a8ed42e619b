// Package identity resolves the user identifier the survey backend expects
// in the X-USER-ID header. Resolution is a fallback chain (primary source,
// then persisted/secondary sources, then a constant default) so the UI is
// never blocked because identity resolution failed.
package identity

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNoIdentity signals that a provider had nothing to offer; the chain
// moves on to the next provider.
var ErrNoIdentity = errors.New("no user identity available")

// Provider yields a user identifier from one source.
type Provider interface {
	Resolve(ctx context.Context) (string, error)
}

// StaticProvider returns a fixed identifier. Used as the terminal default
// of the chain (configurable, not hard-coded).
type StaticProvider struct {
	ID string
}

func (p *StaticProvider) Resolve(_ context.Context) (string, error) {
	if p.ID == "" {
		return "", ErrNoIdentity
	}
	return p.ID, nil
}

// Chain resolves from the first provider that produces an identifier.
// Provider failures are logged and skipped, never surfaced: a broken
// identity source must not block the survey UI.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	return &Chain{providers: providers, logger: logger}
}

func (c *Chain) Resolve(ctx context.Context) (string, error) {
	for _, p := range c.providers {
		id, err := p.Resolve(ctx)
		if err != nil {
			if !errors.Is(err, ErrNoIdentity) {
				c.logger.Warn("identity provider failed, trying next", "error", err)
			}
			continue
		}
		if id != "" {
			return id, nil
		}
	}
	return "", ErrNoIdentity
}

type tokenContextKey struct{}

// WithToken stashes a request-scoped credential (e.g. a bearer token) for
// token-based providers further down the chain.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the credential stored by WithToken, if any.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}
