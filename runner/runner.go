/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package runner

import (
	"fmt"
	"sync"

	"github.com/coreinit/rc/depgraph"
	"github.com/coreinit/rc/rclog"
	"github.com/coreinit/rc/statestore"
)

// Runner ties the dependency engine, the state store, and the payload
// executor together to drive one service through an action (§4.4).
type Runner struct {
	Tree      *depgraph.Tree
	Store     *statestore.Store
	RM        depgraph.RunlevelMembership
	Runlevel  string
	Bootlevel string
	Parallel  bool
	Logger    *rclog.Logger

	// InTransition, when true, means the current action runs as part of a
	// runlevel change rather than a standalone rc-service invocation —
	// §4.3.2's "mark failed iff the action occurred during a runlevel
	// change" reads this flag.
	InTransition bool

	// HotplugGate, when set, is consulted by StartHotplug before acting on
	// an IN_HOTPLUG-triggered start — §6.2's plug_services gate.
	HotplugGate interface{ AllowHotplug(svc string) bool }
}

func (r *Runner) logger() *rclog.Logger {
	if r.Logger == nil {
		return rclog.NewDiscardLogger()
	}
	return r.Logger
}

func (r *Runner) service(svc string) (*depgraph.Service, error) {
	s, ok := r.Tree.Services[svc]
	if !ok || s.Placeholder {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, svc)
	}
	return s, nil
}

// Start implements §4.4 point 3: resolve, lock, check hard dependencies,
// bring up need/use targets, run the start payload, and promote scheduled
// dependents once this service reaches started.
func (r *Runner) Start(svc string, background bool) error {
	return r.start(svc, background, false)
}

// StartHotplug starts svc in response to an IN_HOTPLUG event, refusing the
// start outright when HotplugGate rejects it — §6.2's plug_services gate.
func (r *Runner) StartHotplug(svc string) error {
	if r.HotplugGate != nil && !r.HotplugGate.AllowHotplug(svc) {
		return fmt.Errorf("%w: %s", ErrHotplugBlocked, svc)
	}
	return r.start(svc, false, true)
}

func (r *Runner) start(svc string, background, hotplug bool) error {
	rec, err := r.service(svc)
	if err != nil {
		return err
	}

	res, err := r.Store.Query(svc)
	if err != nil {
		return err
	}
	switch res.State {
	case statestore.Started, statestore.Starting, statestore.Stopping:
		return nil // already settled or in flight; not a failure
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
	if err := r.Store.Mark(svc, rec.ScriptPath, statestore.Starting); err != nil {
		return err
	}

	if rec.HasKeyword(depgraph.KeywordBroken) {
		return r.abortStart(svc, wasInactive, ErrBrokenDependency)
	}
	if broken, err := r.hardDepsBroken(svc); err != nil {
		return err
	} else if broken {
		return r.abortStart(svc, wasInactive, ErrBrokenDependency)
	}

	scheduled, err := r.bringUpDirectDeps(svc, rec)
	if err != nil {
		return err
	}
	if scheduled != "" {
		r.Store.ScheduleStartOn(scheduled, svc)
		if wasInactive {
			r.Store.Mark(svc, rec.ScriptPath, statestore.Inactive)
		} else {
			r.Store.Mark(svc, rec.ScriptPath, statestore.Stopped)
		}
		r.Store.ClearWasInactive(svc)
		r.logger().Info("start deferred: dependency inactive", rclog.KV("service", svc), rclog.KV("trigger", scheduled))
		return ErrScheduled
	}

	payloadErr := runPayload(r.logger(), rec.ScriptPath, "start", svc, background, hotplug)

	inControl, icErr := lock.InControl()
	if icErr != nil {
		inControl = false
	}

	if inControl && payloadErr == nil {
		r.Store.Mark(svc, rec.ScriptPath, statestore.Started)
		r.Store.ClearWasInactive(svc)
		r.promoteScheduled(svc, rec)
		return nil
	}

	return r.abortStart(svc, wasInactive, wrapPayloadErr(payloadErr))
}

func wrapPayloadErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrPayloadFailed, err)
}

// abortStart restores the transition-discipline failure path of §4.3.2
// step 4: back to inactive if the service started there, otherwise
// stopped; additionally marked failed when this run is part of a runlevel
// change.
func (r *Runner) abortStart(svc string, wasInactive bool, cause error) error {
	rec := r.Tree.Services[svc]
	target := statestore.Stopped
	if wasInactive {
		target = statestore.Inactive
	}
	r.Store.Mark(svc, rec.ScriptPath, target)
	if r.InTransition {
		r.Store.Mark(svc, rec.ScriptPath, statestore.Failed)
	}
	r.Store.ClearWasInactive(svc)
	return cause
}

// hardDepsBroken computes the transitive `need` closure and reports
// whether any member is failed — §4.4 point 3c.
func (r *Runner) hardDepsBroken(svc string) (bool, error) {
	deps := depgraph.Depends(r.Tree, []depgraph.RelType{depgraph.RelNeed}, []string{svc}, r.Runlevel, r.Bootlevel, r.RM, depgraph.Options{Trace: true, Start: true})
	for _, d := range deps {
		if d == svc {
			continue
		}
		res, err := r.Store.Query(d)
		if err != nil {
			return false, err
		}
		if res.State == statestore.Failed {
			return true, nil
		}
	}
	return false, nil
}

// bringUpDirectDeps starts every direct need/use target currently stopped,
// per §4.4 point 3d, sequentially or concurrently per r.Parallel. It
// returns the name of the first *need* dependency that ended inactive,
// promoting this start to a scheduled one — §4.4.3e restricts that
// promotion to hard `need` deps; a soft `use` dep ending inactive still
// gets started here but must never defer the parent.
func (r *Runner) bringUpDirectDeps(svc string, rec *depgraph.Service) (string, error) {
	need := dedupTargets(rec.Relations[depgraph.RelNeed])
	use := dedupTargets(rec.Relations[depgraph.RelUse])

	if !r.Parallel {
		for _, t := range need {
			if s := r.startOneDep(t); s != "" {
				return s, nil
			}
		}
		for _, t := range use {
			r.startOneDep(t)
		}
		return "", nil
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		scheduled string
	)
	startDep := func(t string, trackInactive bool) {
		defer wg.Done()
		s := r.startOneDep(t)
		if s == "" || !trackInactive {
			return
		}
		mu.Lock()
		if scheduled == "" {
			scheduled = s
		}
		mu.Unlock()
	}
	for _, t := range need {
		wg.Add(1)
		go startDep(t, true)
	}
	for _, t := range use {
		wg.Add(1)
		go startDep(t, false)
	}
	wg.Wait()
	return scheduled, nil
}

func dedupTargets(targets []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// startOneDep starts a single dependency if it is currently stopped and
// reports its name if it ended inactive.
func (r *Runner) startOneDep(dep string) string {
	res, err := r.Store.Query(dep)
	if err != nil {
		return ""
	}
	if res.State == statestore.Stopped {
		r.Start(dep, false)
	}
	res, err = r.Store.Query(dep)
	if err == nil && (res.State == statestore.Inactive || res.Flags.WasInactive) {
		return dep
	}
	return ""
}

// promoteScheduled starts every dependent scheduled against svc and every
// alias svc provides, per §4.4 point 3h, then clears the schedule.
func (r *Runner) promoteScheduled(svc string, rec *depgraph.Service) {
	triggers := append([]string{svc}, rec.Relations[depgraph.RelProvide]...)
	for _, trig := range triggers {
		deps, err := r.Store.Scheduled(trig)
		if err != nil {
			continue
		}
		for _, dep := range deps {
			go r.Start(dep, false)
		}
		r.Store.ClearSchedule(trig)
	}
}
