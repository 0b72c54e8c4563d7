/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package stopschedule parses and interprets the signal/timeout/forever
// program used to terminate a daemon within a bounded time, grounded on
// start-stop-daemon's schedulelist_t/parse_schedule design: an ordered
// list of items, optionally looping back via a forever marker.
package stopschedule

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrForeverBeforeTimeout is returned by Parse when a `forever` item
// appears before any `timeout` item in the schedule — the source-level
// open question this implementation resolves by rejecting such schedules
// outright rather than guessing at the intended loop bounds.
var ErrForeverBeforeTimeout = errors.New("forever item precedes any timeout item")

// ItemKind distinguishes the four schedule item shapes.
type ItemKind int

const (
	KindSignal ItemKind = iota
	KindTimeout
	KindForever
	KindGoto
)

// Item is one entry of a parsed schedule.
type Item struct {
	Kind    ItemKind
	Signal  syscall.Signal // valid when Kind == KindSignal
	Seconds int            // valid when Kind == KindTimeout
	Target  int            // valid when Kind == KindGoto: index to jump back to
}

// Schedule is an ordered, validated list of items.
type Schedule struct {
	Items []Item
}

// Default returns the schedule used when the caller supplies none:
// signal(SIGTERM); timeout(5).
func Default() *Schedule {
	return &Schedule{Items: []Item{
		{Kind: KindSignal, Signal: syscall.SIGTERM},
		{Kind: KindTimeout, Seconds: 5},
	}}
}

// DefaultWithSignal is Default but substituting stopSignal for SIGTERM,
// the behavior when -R/retry is given without an explicit schedule: the
// tool's own configured stop signal is used instead of SIGTERM.
func DefaultWithSignal(stopSignal syscall.Signal) *Schedule {
	return &Schedule{Items: []Item{
		{Kind: KindSignal, Signal: stopSignal},
		{Kind: KindTimeout, Seconds: 5},
	}}
}

// Parse builds a Schedule from a sequence of raw tokens as produced by the
// command-line/config parser (each token already split into kind and
// argument). A `forever` token inserts a goto back to the item immediately
// following the timeout before the most recent one (or to the first item
// when there is only one), so the loop repeats the signal(s) leading up to
// the most recent timeout and that timeout; encountering `forever` before
// any timeout has been seen is rejected per ErrForeverBeforeTimeout.
func Parse(tokens []RawToken) (*Schedule, error) {
	sched := &Schedule{}
	lastTimeoutIdx := -1
	loopStart := 0

	for _, tok := range tokens {
		switch tok.Kind {
		case "signal":
			sig, err := parseSignal(tok.Arg)
			if err != nil {
				return nil, err
			}
			sched.Items = append(sched.Items, Item{Kind: KindSignal, Signal: sig})
		case "timeout":
			secs, err := parseSeconds(tok.Arg)
			if err != nil {
				return nil, err
			}
			loopStart = lastTimeoutIdx + 1
			sched.Items = append(sched.Items, Item{Kind: KindTimeout, Seconds: secs})
			lastTimeoutIdx = len(sched.Items) - 1
		case "forever":
			if lastTimeoutIdx < 0 {
				return nil, ErrForeverBeforeTimeout
			}
			sched.Items = append(sched.Items, Item{Kind: KindGoto, Target: loopStart})
		default:
			return nil, fmt.Errorf("unknown schedule token %q", tok.Kind)
		}
	}
	return sched, nil
}

// RawToken is one unparsed (kind, argument) pair from the schedule's
// textual form, e.g. ("signal", "TERM") or ("timeout", "5").
type RawToken struct {
	Kind string
	Arg  string
}

func parseSeconds(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %q", s)
	}
	return n, nil
}
