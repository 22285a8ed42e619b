package identity

import (
	"context"
	"fmt"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
)

// CasdoorConfig carries the Casdoor application settings needed to verify
// session tokens locally.
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Certificate  string
	Organization string
	Application  string
}

// CasdoorProvider extracts the user identifier from a Casdoor-issued JWT
// found in the request context. It is the primary source of the chain when
// the deployment runs behind Casdoor sign-in.
type CasdoorProvider struct {
	client *casdoorsdk.Client
}

func NewCasdoorProvider(cfg CasdoorConfig) *CasdoorProvider {
	return &CasdoorProvider{
		client: casdoorsdk.NewClient(
			cfg.Endpoint,
			cfg.ClientID,
			cfg.ClientSecret,
			cfg.Certificate,
			cfg.Organization,
			cfg.Application,
		),
	}
}

func (p *CasdoorProvider) Resolve(ctx context.Context) (string, error) {
	token := TokenFromContext(ctx)
	if token == "" {
		return "", ErrNoIdentity
	}

	claims, err := p.client.ParseJwtToken(token)
	if err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}

	if claims.User.Id == "" {
		return "", ErrNoIdentity
	}
	return claims.User.Id, nil
}
