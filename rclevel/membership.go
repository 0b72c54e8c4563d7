/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package rclevel implements the runlevel driver: it computes the
// to-stop and to-start service lists for a transition between two named
// runlevels and executes them with bounded parallelism, optionally
// pausing for interactive skip/continue/shell decisions.
package rclevel

import (
	"os"
	"path/filepath"

	"github.com/coreinit/rc/depgraph"
	"github.com/coreinit/rc/statestore"
)

// Membership implements depgraph.RunlevelMembership by combining the
// static runlevel definitions on disk (runlevelsDir/<level>/<service>
// symlinks to the service script, OpenRC's own layout) with the live
// state tracked in the state store.
type Membership struct {
	RunlevelsDir string
	Store        *statestore.Store
}

func NewMembership(runlevelsDir string, store *statestore.Store) *Membership {
	return &Membership{RunlevelsDir: runlevelsDir, Store: store}
}

func (m *Membership) Members(runlevel string) []string {
	entries, err := os.ReadDir(filepath.Join(m.RunlevelsDir, runlevel))
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func (m *Membership) InRunlevel(service, runlevel string) bool {
	for _, s := range m.Members(runlevel) {
		if s == service {
			return true
		}
	}
	return false
}

func (m *Membership) Hotplugged(service string) bool {
	res, err := m.Store.Query(service)
	if err != nil {
		return false
	}
	return res.Flags.Hotplugged
}

func (m *Membership) HotplugMembers() []string {
	out, _ := m.Store.HotplugMembers()
	return out
}

// State adapts statestore's richer six-state enum onto depgraph's
// narrower four-state view that provider resolution cares about; inactive
// and failed both read as stopped for the purpose of probing a provider
// candidate, since neither represents a daemon a dependant can lean on.
func (m *Membership) State(service string) depgraph.ServiceState {
	res, err := m.Store.Query(service)
	if err != nil {
		return depgraph.StateStopped
	}
	switch res.State {
	case statestore.Starting:
		return depgraph.StateStarting
	case statestore.Started:
		return depgraph.StateStarted
	case statestore.Stopping:
		return depgraph.StateStopping
	default:
		return depgraph.StateStopped
	}
}
