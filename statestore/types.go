/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package statestore implements the filesystem-rooted service state
// database: a directory of symlinks and small data files that records
// every service's primary state, its exclusive-lock holders, scheduled
// dependent starts, recorded daemon tuples, and per-service options.
// Every write goes through an atomic rename so a concurrent reader never
// observes a half-written entry.
package statestore

import "path/filepath"

// PrimaryState is one of the mutually-exclusive states of §3.2.
type PrimaryState string

const (
	Stopped  PrimaryState = "stopped"
	Starting PrimaryState = "starting"
	Started  PrimaryState = "started"
	Stopping PrimaryState = "stopping"
	Inactive PrimaryState = "inactive"
	Failed   PrimaryState = "failed"
)

// primaryDirs lists the on-disk directories that back a primary state, in
// the order Mark clears them. "failed" is a primary state like the others:
// Mark(svc, Failed) replaces whatever entry svc had. "stopped" has no
// entries, since Mark represents it by absence.
var primaryDirs = []PrimaryState{Starting, Started, Stopping, Inactive, Stopped, Failed}

// Flags are orthogonal boolean markers layered on top of the primary state.
type Flags struct {
	Hotplugged  bool
	WasInactive bool
	Crashed     bool // derived: started but no recorded daemon is alive
	Scheduled   bool // derived: scheduled/<svc>/ is non-empty
}

// QueryResult is the full answer to query(svc).
type QueryResult struct {
	State PrimaryState
	Flags Flags
}

// Store is the root of one STATE directory tree (§3.4). All operations are
// relative to Root.
type Store struct {
	Root string
}

// Open returns a Store rooted at root, creating the fixed directory layout
// if it does not already exist.
func Open(root string) (*Store, error) {
	if root == "" || root == "." {
		return nil, ErrInvalidStateRoot
	}
	s := &Store{Root: filepath.Clean(root)}
	for _, d := range s.layoutDirs() {
		if err := mkdirAll(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) layoutDirs() []string {
	dirs := []string{
		s.path("starting"), s.path("started"), s.path("stopping"),
		s.path("inactive"), s.path("wasinactive"), s.path("hotplugged"),
		s.path("failed"), s.path("exclusive"), s.path("scheduled"),
		s.path("daemons"), s.path("options"),
	}
	return dirs
}

func (s *Store) path(elem ...string) string {
	return filepath.Join(append([]string{s.Root}, elem...)...)
}

func (s *Store) stateDir(p PrimaryState) string {
	switch p {
	case Starting:
		return s.path("starting")
	case Started:
		return s.path("started")
	case Stopping:
		return s.path("stopping")
	case Inactive:
		return s.path("inactive")
	case Failed:
		return s.path("failed")
	default:
		return s.path("stopped") // never created; stopped is absence, not membership
	}
}
