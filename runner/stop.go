/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package runner

import (
	"sync"

	"github.com/coreinit/rc/depgraph"
	"github.com/coreinit/rc/rclog"
	"github.com/coreinit/rc/statestore"
)

// Stop implements §4.4 point 4: mark stopping, stop every up dependant,
// run the stop payload, and mark the terminal state (stopped, or inactive
// when background is set).
func (r *Runner) Stop(svc string, background bool) error {
	rec, err := r.service(svc)
	if err != nil {
		return err
	}

	res, err := r.Store.Query(svc)
	if err != nil {
		return err
	}
	if res.State == statestore.Stopped {
		return nil
	}
	if res.State == statestore.Failed && r.InTransition {
		return nil // re-entering a failed service during a runlevel stop is a no-op
	}
	wasInactive := res.State == statestore.Inactive

	lock, err := r.Store.AcquireExclusive(svc, rec.ScriptPath)
	if err != nil {
		return ErrAlreadyRunning
	}
	defer lock.Release()

	if wasInactive {
		r.Store.SetWasInactive(svc, rec.ScriptPath)
	}
	if err := r.Store.Mark(svc, rec.ScriptPath, statestore.Stopping); err != nil {
		return err
	}

	if _, stillUp := r.stopDependants(svc, rec); len(stillUp) > 0 {
		if r.InTransition {
			r.Store.Mark(svc, rec.ScriptPath, statestore.Failed)
		} else if wasInactive {
			r.Store.Mark(svc, rec.ScriptPath, statestore.Inactive)
		} else {
			r.Store.Mark(svc, rec.ScriptPath, statestore.Started)
		}
		r.Store.ClearWasInactive(svc)
		r.logger().Warn("dependants still running, refusing to stop", rclog.KV("service", svc), rclog.KV("up", stillUp))
		return ErrDependantsUp
	}

	payloadErr := runPayload(r.logger(), rec.ScriptPath, "stop", svc, background, false)
	if payloadErr != nil {
		if wasInactive {
			r.Store.Mark(svc, rec.ScriptPath, statestore.Inactive)
		} else {
			r.Store.Mark(svc, rec.ScriptPath, statestore.Started)
		}
		if r.InTransition {
			r.Store.Mark(svc, rec.ScriptPath, statestore.Failed)
		}
		r.Store.ClearWasInactive(svc)
		return wrapPayloadErr(payloadErr)
	}

	terminal := statestore.Stopped
	if background {
		terminal = statestore.Inactive
	}
	r.Store.Mark(svc, rec.ScriptPath, terminal)
	r.Store.ClearWasInactive(svc)
	return nil
}

// stopDependants walks needsme/usesme, stops every currently up dependant,
// and returns the names of those it stopped (so Restart can bring them
// back up afterward, per §4.4.5) alongside any that remain up despite the
// stop attempt.
func (r *Runner) stopDependants(svc string, rec *depgraph.Service) (stopped, stillUp []string) {
	var targets []string
	seen := map[string]bool{}
	for _, rt := range []depgraph.RelType{depgraph.RelNeedsMe, depgraph.RelUsesMe} {
		for _, t := range rec.Relations[rt] {
			if !seen[t] {
				seen[t] = true
				targets = append(targets, t)
			}
		}
	}

	isUp := func(name string) bool {
		res, err := r.Store.Query(name)
		return err == nil && (res.State == statestore.Started || res.State == statestore.Inactive)
	}

	var wasUp []string
	for _, t := range targets {
		if isUp(t) {
			wasUp = append(wasUp, t)
		}
	}

	if !r.Parallel {
		for _, t := range wasUp {
			r.Stop(t, false)
		}
	} else {
		var wg sync.WaitGroup
		for _, t := range wasUp {
			wg.Add(1)
			go func(t string) {
				defer wg.Done()
				r.Stop(t, false)
			}(t)
		}
		wg.Wait()
	}

	for _, t := range wasUp {
		if isUp(t) {
			stillUp = append(stillUp, t)
		} else {
			stopped = append(stopped, t)
		}
	}
	return stopped, stillUp
}

// Restart implements §4.4 point 5: stop then start, re-starting both the
// service itself (scheduled if necessary) and every dependant this walk
// stopped along the way, remembering them before the stop so they can be
// brought back up afterward per §4.4.5.
func (r *Runner) Restart(svc string) error {
	wasUp := false
	if res, err := r.Store.Query(svc); err == nil {
		wasUp = res.State == statestore.Started
	}

	rec, recErr := r.service(svc)
	var restartDependants []string
	if recErr == nil {
		restartDependants, _ = r.stopDependants(svc, rec)
	}

	if err := r.Stop(svc, false); err != nil && err != ErrDependantsUp {
		return err
	}

	if !wasUp {
		return nil
	}

	startErr := r.Start(svc, false)
	for _, dep := range restartDependants {
		r.Start(dep, false)
	}
	return startErr
}
