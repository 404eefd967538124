package worker

import (
	"context"
)

// Worker is a long-running consumer supervised by a Manager.
type Worker interface {
	// Start blocks until the worker is stopped or ctx is done.
	Start(ctx context.Context) error

	// Stop asks the worker to return from Start. It is safe to call twice.
	Stop() error

	Name() string
}
