// Package notify delivers pipeline alerts to operators.
package notify

import "context"

// Sink receives human-facing alerts from the pipeline. Implementations must
// tolerate being called from scheduler goroutines.
type Sink interface {
	Notify(ctx context.Context, subject, body string) error
}

// Noop discards alerts. Used when no channel is configured.
type Noop struct{}

func (Noop) Notify(context.Context, string, string) error { return nil }
