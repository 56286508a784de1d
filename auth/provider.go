// Package auth supplies access tokens for the brokerage API.
package auth

import (
	"context"

	"github.com/brokerlink-io/brokerlink/transport"
)

// Provider obtains valid access tokens, refreshing or caching as the
// implementation requires.
type Provider interface {
	// Token returns a currently valid access token.
	Token(ctx context.Context) (string, error)

	// InjectHeaders adds the Authorization header carrying a current
	// access token to the connection.
	InjectHeaders(ctx context.Context, conn *transport.Connection) error

	// Close releases any resources held by the provider.
	Close() error
}

func injectBearer(ctx context.Context, conn *transport.Connection, p Provider) error {
	token, err := p.Token(ctx)
	if err != nil {
		return err
	}
	return conn.AddHeaders([]transport.KV{{Name: "Authorization", Value: "Bearer " + token}})
}
