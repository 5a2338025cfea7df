package postgres

import "context"

// IClient is the narrow database surface the service layer depends on.
// Tests substitute it with a pass-through implementation so service logic
// runs against in-memory repositories.
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
