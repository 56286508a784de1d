package auth

import (
	"context"

	"github.com/brokerlink-io/brokerlink/transport"
)

// StaticTokenProvider returns a pre-obtained access token. Used when the
// token lifecycle is managed outside the process.
type StaticTokenProvider struct {
	token string
}

func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return p.token, nil
}

func (p *StaticTokenProvider) InjectHeaders(ctx context.Context, conn *transport.Connection) error {
	return injectBearer(ctx, conn, p)
}

func (p *StaticTokenProvider) Close() error {
	return nil
}
