package service

import "time"

// Clock abstracts time.Now so the admission window and payment-timeout logic
// can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by the wall clock, in UTC.
func SystemClock() Clock { return systemClock{} }
