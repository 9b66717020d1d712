// policy.go - the repeat/retry policy attached to a Target

package alerts

import "time"

// DefaultInterval is the repeat interval applied when a target's
// configuration omits one.
const DefaultInterval = 60 * time.Second

// RepeatPolicy governs how often, and how many times, a firing Target
// re-sends a Triggered notification while no resolve has landed.
type RepeatPolicy struct {
	Interval time.Duration
	Times    Retry
}

// DefaultRepeatPolicy is Finite(1) at the default interval: dispatch once,
// no automatic repeats. alertmanager targets override Times to Infinite
// unless the configuration says otherwise (see config.go).
func DefaultRepeatPolicy() RepeatPolicy {
	return RepeatPolicy{Interval: DefaultInterval, Times: DefaultRetry()}
}
