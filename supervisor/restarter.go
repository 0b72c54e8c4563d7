/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package supervisor

import "time"

// restarter tracks the rolling window of recent respawns and decides
// whether the next exit should trigger an immediate respawn, a cooldown
// sleep, or a permanent failure. Adapted from the teacher's
// manager.restarter: same ring-buffer-of-timestamps design, retargeted at
// §4.6's respawn_delay/respawn_max/respawn_period parameters instead of a
// fixed cooldown period.
type restarter struct {
	delay  time.Duration
	max    int
	period time.Duration
	rs     []time.Time
}

func newRestarter(cfg Config) *restarter {
	max := cfg.RespawnMax
	if max <= 0 {
		max = 1
	}
	return &restarter{
		delay:  cfg.RespawnDelay,
		max:    cfg.RespawnMax,
		period: cfg.RespawnPeriod,
		rs:     make([]time.Time, max),
	}
}

// recordExit appends the current respawn attempt to the rolling window and
// reports whether the respawn ceiling of §4.6's "Respawn rule" has been
// exceeded: if respawn_period has elapsed since the oldest tracked
// respawn, the window resets; otherwise the count against respawn_max
// accumulates across the window.
func (r *restarter) recordExit(now time.Time) (exceeded bool) {
	oldest := r.rs[len(r.rs)-1]
	if r.period > 0 && !oldest.IsZero() && now.Sub(oldest) > r.period {
		for i := range r.rs {
			r.rs[i] = time.Time{}
		}
	}

	full := !r.rs[len(r.rs)-1].IsZero()
	for i := len(r.rs) - 1; i > 0; i-- {
		r.rs[i] = r.rs[i-1]
	}
	r.rs[0] = now

	return full && r.max > 0
}

// interruptibleSleep sleeps d unless die fires first, reporting whether it
// was interrupted.
func interruptibleSleep(d time.Duration, die <-chan struct{}) (interrupted bool) {
	if d <= 0 {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-die:
		return true
	}
}
