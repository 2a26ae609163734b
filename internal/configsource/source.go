// Package configsource implements the remote sources a deployment can
// fetch flag/bandit configuration from: a plain HTTP endpoint, a
// Postgres table polled on an interval, or a NATS subject pushed to in
// real time.
package configsource

import "context"

// Source fetches the current raw configuration document. Fetch must be
// safe to call repeatedly and should return the full document each
// time; callers are responsible for diffing or simply re-parsing.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}
