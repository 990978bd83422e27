// Package clock abstracts time so that every time-dependent decision in this
// module can be tested deterministically, without sleeps.
//
// Production code uses System(); tests inject a Manual clock and advance it
// explicitly.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by time.Now. It is stateless and can be
// shared across goroutines.
func System() Clock { return systemClock{} }
