package graph

import (
	"context"
	"errors"
)

// Client is the Cypher execution contract the repository depends on. Each call
// runs as one managed transaction.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result holds the records of one statement.
type Result struct {
	Records []Record
}

// Record maps returned column names to values.
type Record map[string]any

// First returns the first record, or nil when the statement matched nothing.
func (r Result) First() Record {
	if len(r.Records) == 0 {
		return nil
	}
	return r.Records[0]
}

// Options configures the Bolt client.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")

// ErrConstraintViolation wraps statement failures caused by a schema
// constraint, such as a reused unique id.
var ErrConstraintViolation = errors.New("graph constraint violated")
