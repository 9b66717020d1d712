// context.go - the immutable per-event record handed to Target.Call

package alerts

import "fmt"

// AlertState is the closed enumeration of alert lifecycle states the
// engine reacts to. Resolved and Silenced are collectively "non-firing".
type AlertState int

const (
	Triggered AlertState = iota
	Resolved
	Silenced
)

func (s AlertState) String() string {
	switch s {
	case Triggered:
		return "triggered"
	case Resolved:
		return "resolved"
	case Silenced:
		return "silenced"
	default:
		return "unknown"
	}
}

// NonFiring reports whether the state belongs to the Resolved/Silenced group.
func (s AlertState) NonFiring() bool {
	return s == Resolved || s == Silenced
}

// EventContext is the immutable event record an external alert evaluator
// pushes into Target.Call. The engine never mutates it; it is cloned by
// value whenever handed to a background task.
type EventContext struct {
	AlertID   string
	AlertName string
	State     AlertState

	DeploymentID       string
	DeploymentInstance string
	DeploymentMode     string
}

// DefaultAlertString renders the human-readable firing notification body.
func (c EventContext) DefaultAlertString() string {
	return fmt.Sprintf("Alert %q is firing on deployment %s (instance %s, mode %s)",
		c.AlertName, c.DeploymentID, c.DeploymentInstance, c.DeploymentMode)
}

// DefaultResolvedString renders the human-readable resolved notification body.
func (c EventContext) DefaultResolvedString() string {
	return fmt.Sprintf("Alert %q has resolved on deployment %s (instance %s, mode %s)",
		c.AlertName, c.DeploymentID, c.DeploymentInstance, c.DeploymentMode)
}

// DefaultSilencedString renders the human-readable silenced notification body.
func (c EventContext) DefaultSilencedString() string {
	return fmt.Sprintf("Alert %q has been silenced on deployment %s (instance %s, mode %s)",
		c.AlertName, c.DeploymentID, c.DeploymentInstance, c.DeploymentMode)
}

// bodyFor picks the rendering helper matching the context's current state.
func (c EventContext) bodyFor(s AlertState) string {
	switch s {
	case Triggered:
		return c.DefaultAlertString()
	case Resolved:
		return c.DefaultResolvedString()
	default:
		return c.DefaultSilencedString()
	}
}
