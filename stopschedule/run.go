/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package stopschedule

import (
	"context"
	"syscall"
	"time"
)

// pollInterval is the fixed poll cadence while a timeout item waits for
// targets to disappear, per §5's "fixed 20 ms interval".
const pollInterval = 20 * time.Millisecond

// outerDeadline bounds the whole schedule's execution when the interpreted
// service does not carry the notimeout keyword (needed so a `forever` loop
// cannot run unbounded).
const outerDeadline = 300 * time.Second

// Targets reports which of a service's tracked PIDs are still alive, and
// delivers a signal to all of them. Implementations wrap procfind.
type Targets interface {
	Alive() []int
	Signal(sig syscall.Signal) error
}

// Run interprets sched against targets: signal items deliver immediately,
// timeout items poll until targets.Alive() is empty or the timeout
// elapses, forever/goto items jump the instruction pointer back. noTimeout
// disables the outer 300s deadline (the notimeout keyword's effect).
// Returns true if all targets were confirmed gone by the time the
// schedule (or its outer deadline) ended.
func Run(ctx context.Context, sched *Schedule, targets Targets, noTimeout bool) bool {
	var cancel context.CancelFunc
	if !noTimeout {
		ctx, cancel = context.WithTimeout(ctx, outerDeadline)
		defer cancel()
	}

	pc := 0
	for pc < len(sched.Items) {
		if ctx.Err() != nil {
			return len(targets.Alive()) == 0
		}
		item := sched.Items[pc]
		switch item.Kind {
		case KindSignal:
			targets.Signal(item.Signal)
			pc++
		case KindTimeout:
			if waitGone(ctx, targets, time.Duration(item.Seconds)*time.Second) {
				return true
			}
			pc++
		case KindGoto:
			pc = item.Target
		default:
			pc++
		}
	}
	return len(targets.Alive()) == 0
}

// waitGone polls targets.Alive() at pollInterval until it is empty or d
// elapses (or ctx ends first).
func waitGone(ctx context.Context, targets Targets, d time.Duration) bool {
	deadline := time.Now().Add(d)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if len(targets.Alive()) == 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return len(targets.Alive()) == 0
		case <-ticker.C:
		}
	}
}
