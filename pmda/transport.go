package pmda

import (
	"context"

	"github.com/kbukum/pmdakit/httpclient"
)

// Transport executes one HTTP exchange against the aggregator.
// *httpclient.Adapter satisfies it; tests may substitute their own.
type Transport interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// closer is implemented by transports holding idle connections.
type closer interface {
	Close(ctx context.Context) error
}
