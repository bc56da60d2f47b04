/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package tracker

import (
	"context"
	"fmt"
	"time"
)

// Unit adapts a Tracker to the service.Unit interface from github.com/acronis/go-appkit/service
// so the drain runs as part of the service's graceful shutdown sequence.
type Unit struct {
	tracker     *Tracker
	gracePeriod time.Duration
}

// NewUnit creates a service unit that drains the passed Tracker on graceful stop.
// Non-positive gracePeriod means DefaultGracePeriod.
func NewUnit(t *Tracker, gracePeriod time.Duration) *Unit {
	return &Unit{tracker: t, gracePeriod: gracePeriod}
}

// Start implements the service.Unit interface. The tracker needs no startup, it returns immediately.
func (u *Unit) Start(fatalErr chan<- error) {
}

// Stop implements the service.Unit interface.
// On graceful stop it drains the tracker and returns an error if the grace period
// expired with requests still in flight. On non-graceful stop it returns immediately.
func (u *Unit) Stop(gracefully bool) error {
	if !gracefully {
		return nil
	}
	res := u.tracker.BeginDrain(context.Background(), u.gracePeriod)
	if res.Abandoned > 0 {
		return fmt.Errorf("drain grace period expired, %d request(s) abandoned", res.Abandoned)
	}
	return nil
}
