/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package rclevel

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coreinit/rc/depgraph"
	"github.com/coreinit/rc/rclog"
	"github.com/coreinit/rc/runner"
	"github.com/coreinit/rc/statestore"
)

// stopTraversalTypes are the forward relations a to-stop computation walks
// before reversing — the same edges a start walk follows, since "what
// depends on what" doesn't change direction; only the resulting order
// does.
var stopTraversalTypes = []depgraph.RelType{depgraph.RelNeed, depgraph.RelUse, depgraph.RelAfter}

// Driver executes one runlevel transition: compute to-stop and to-start,
// write the in-flight sentinels, run each list with bounded parallelism,
// and publish the new softlevel (§4.5).
type Driver struct {
	Tree      *depgraph.Tree
	Store     *statestore.Store
	RM        *Membership
	Bootlevel string
	Parallel  int // 0 or 1 means sequential
	Logger    *rclog.Logger
	Interactive *Interactive // nil disables skip/continue/shell prompting
}

func (d *Driver) logger() *rclog.Logger {
	if d.Logger == nil {
		return rclog.NewDiscardLogger()
	}
	return d.Logger
}

// Transition drives the store from its current softlevel to target.
func (d *Driver) Transition(target string) error {
	outcome := "ok"
	defer func() { transitionsTotal.WithLabelValues(target, outcome).Inc() }()

	d.cleanupFailed()

	toStop := d.computeToStop(target)
	toStart := d.computeToStart(target)

	if err := d.Store.BeginTransition(false); err != nil {
		outcome = "error"
		return fmt.Errorf("writing rc.stopping sentinel: %w", err)
	}
	d.runList(toStop, actionStop)
	d.Store.EndTransition()

	if err := d.Store.SetSoftlevel(target); err != nil {
		outcome = "error"
		return fmt.Errorf("updating softlevel: %w", err)
	}

	if err := d.Store.BeginTransition(true); err != nil {
		outcome = "error"
		return fmt.Errorf("writing rc.starting sentinel: %w", err)
	}
	d.runList(toStart, actionStart)
	d.Store.EndTransition()

	return nil
}

// cleanupFailed clears the failed/ markers before a new transition begins,
// per §4.5's "Clean-up of failed/ occurs before the stop phase."
func (d *Driver) cleanupFailed() {
	members, err := d.Store.Members(statestore.Failed)
	if err != nil {
		return
	}
	for _, svc := range members {
		d.Store.Mark(svc, "", statestore.Stopped)
	}
}

// computeToStop implements §4.5's to-stop definition: currently
// started/starting/inactive services, minus the target level's start set,
// minus services kept across the transition because a runlevel-specific
// config override exists for both the current and target levels.
func (d *Driver) computeToStop(target string) []string {
	running := map[string]bool{}
	for _, state := range []statestore.PrimaryState{statestore.Started, statestore.Starting, statestore.Inactive} {
		members, _ := d.Store.Members(state)
		for _, m := range members {
			running[m] = true
		}
	}

	current, _ := d.Store.Softlevel()
	startSet := map[string]bool{}
	for _, s := range depgraph.Order(d.Tree, target, d.Bootlevel, d.RM, depgraph.Options{Start: true}) {
		startSet[s] = true
	}

	var toStop []string
	for svc := range running {
		if startSet[svc] {
			continue
		}
		if current != "" && d.keptAcrossLevels(svc, current, target) {
			continue
		}
		toStop = append(toStop, svc)
	}

	ordered := depgraph.Depends(d.Tree, stopTraversalTypes, toStop, target, d.Bootlevel, d.RM, depgraph.Options{Stop: true})
	reverse(ordered)
	return ordered
}

// keptAcrossLevels reports whether svc carries a per-runlevel config
// override for both from and to, the escape hatch that lets a service
// survive a transition unstopped — grounded on OpenRC's convention of a
// conf.d override living under a runlevel-named subdirectory.
func (d *Driver) keptAcrossLevels(svc, from, to string) bool {
	rec, ok := d.Tree.Services[svc]
	if !ok {
		return false
	}
	hasFrom, hasTo := false, false
	for _, p := range rec.ExternalConfigs {
		if strings.Contains(p, "/"+from+"/") {
			hasFrom = true
		}
		if strings.Contains(p, "/"+to+"/") {
			hasTo = true
		}
	}
	return hasFrom && hasTo
}

func (d *Driver) computeToStart(target string) []string {
	return depgraph.Order(d.Tree, target, d.Bootlevel, d.RM, depgraph.Options{Start: true})
}

type action int

const (
	actionStop action = iota
	actionStart
)

// runList executes svcs' action with bounded parallelism (Parallel<=1
// means sequential), pausing for interactive input between services when
// an Interactive prompter is attached.
func (d *Driver) runList(svcs []string, a action) {
	limit := d.Parallel
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for _, svc := range svcs {
		if d.Interactive != nil {
			switch d.Interactive.Prompt(svc, a) {
			case DecisionSkip:
				continue
			case DecisionShell:
				d.Interactive.Shell(svc)
			}
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(svc string) {
			defer wg.Done()
			defer func() { <-sem }()
			d.runOne(svc, a)
		}(svc)

		if limit == 1 {
			wg.Wait() // sequential mode: don't let the semaphore hide a real barrier
		}
	}
	wg.Wait()
}

func (d *Driver) runOne(svc string, a action) {
	start := time.Now()
	r := &runner.Runner{
		Tree: d.Tree, Store: d.Store, RM: d.RM,
		Runlevel: "", Bootlevel: d.Bootlevel, Logger: d.Logger,
		InTransition: true,
	}
	var err error
	var label string
	if a == actionStop {
		label = "stop"
		err = r.Stop(svc, false)
	} else {
		label = "start"
		err = r.Start(svc, false)
	}
	serviceActionDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		d.logger().Warn("service action failed", rclog.KV("service", svc), rclog.KV("action", label), rclog.KVErr(err))
	}
	if res, qerr := d.Store.Query(svc); qerr == nil && res.State == statestore.Failed {
		servicesFailed.WithLabelValues(svc).Inc()
	}
}

func reverse(ss []string) {
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
}
