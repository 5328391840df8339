package job

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidDefaultLease indicates the configured default lease duration is not positive.
var ErrInvalidDefaultLease = errors.New("default lease must be positive")

// minLeaseSeconds is the shortest lease the queue will grant. Anything
// shorter would expire before the worker's first heartbeat.
const minLeaseSeconds = 1

// LeasePolicy normalises requested lease durations into the whole-second
// values the job queue stores.
type LeasePolicy struct {
	defaultLease time.Duration
}

// NewLeasePolicy constructs a LeasePolicy with the provided default lease duration.
func NewLeasePolicy(defaultLease time.Duration) (*LeasePolicy, error) {
	if defaultLease <= 0 {
		return nil, ErrInvalidDefaultLease
	}
	return &LeasePolicy{defaultLease: defaultLease}, nil
}

// Default returns the configured default lease duration.
func (p *LeasePolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.defaultLease
}

// LeaseDecision is the resolved lease for one acquisition or heartbeat.
type LeaseDecision struct {
	// Seconds is the granted lease length, always at least minLeaseSeconds.
	Seconds int
	// Defaulted is set when the caller did not request a duration.
	Defaulted bool
	// Clamped is set when the request was outside the supported range.
	Clamped bool
	// Requested preserves the caller's original value for logging.
	Requested time.Duration
}

// Resolve grants a lease for the requested duration. A zero request takes
// the policy default; negative or sub-second requests are raised to the
// minimum rather than rejected, so a misconfigured worker degrades instead
// of failing.
func (p *LeasePolicy) Resolve(request time.Duration) LeaseDecision {
	if p == nil {
		return LeaseDecision{Defaulted: true, Requested: request}
	}
	if request == 0 {
		seconds, _ := clampSeconds(p.defaultLease)
		return LeaseDecision{Seconds: seconds, Defaulted: true, Requested: request}
	}
	if request < 0 {
		return LeaseDecision{Seconds: minLeaseSeconds, Clamped: true, Requested: request}
	}

	seconds, clamped := clampSeconds(request)
	return LeaseDecision{Seconds: seconds, Clamped: clamped, Requested: request}
}

// clampSeconds truncates to whole seconds and bounds the result to
// [minLeaseSeconds, math.MaxInt].
func clampSeconds(d time.Duration) (int, bool) {
	seconds := int64(d / time.Second)
	switch {
	case seconds < minLeaseSeconds:
		return minLeaseSeconds, true
	case seconds > int64(math.MaxInt):
		return math.MaxInt, true
	default:
		return int(seconds), false
	}
}
