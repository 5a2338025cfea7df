package testutil

import (
	"context"

	"github.com/corebill/corebill/internal/postgres"
)

// MockPostgresClient satisfies postgres.IClient for tests. There is no real
// database under the in-memory stores, so WithTx just runs the function.
type MockPostgresClient struct{}

var _ postgres.IClient = (*MockPostgresClient)(nil)

// NewMockPostgresClient creates a pass-through database client
func NewMockPostgresClient() *MockPostgresClient {
	return &MockPostgresClient{}
}

// WithTx runs the function directly without transactional semantics
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
