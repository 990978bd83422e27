package limiter

import "github.com/zeebo/errs"

// Error is the error class for admission-check failures. Every operation in
// this package fails closed: when the returned error is non-nil the action
// must be treated as denied.
var Error = errs.Class("ratelimit")

// DefaultPrefix namespaces every key the limiters create in the shared store.
// Override it per limiter with WithPrefix.
const DefaultPrefix = "ratelimit:"

// Decision reports the outcome of a sliding-window admission check.
type Decision struct {
	// Allowed reports whether the action may proceed.
	Allowed bool

	// Count is the number of events observed inside the current window. When
	// the attempt was recorded it includes that event; on failure it is zero.
	Count int64
}
