// registry.go - the narrow boundary the scheduler uses to re-validate
// that a repeat is still warranted.

package alerts

import (
	"context"
	"errors"
)

// ErrAlertNotFound is returned by AlertRegistry.GetState when the alert
// definition backing alertID has been deleted. The scheduler treats this
// as terminal: it resets TimeoutState and exits rather than retrying.
var ErrAlertNotFound = errors.New("alerts: alert not found in registry")

// AlertRegistry is the abstract surface the engine queries to confirm an
// alert is still firing before sending a repeat notification. It is owned
// and implemented by the surrounding system (e.g. the rule evaluator);
// the engine only ever reads from it.
type AlertRegistry interface {
	GetState(ctx context.Context, alertID string) (AlertState, error)
}
