/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package statestore

import (
	"os"

	"github.com/google/renameio"
)

// SetSoftlevel records the current runlevel name, per §3.4's softlevel
// file. Written with renameio so a concurrent reader of softlevel never
// observes a truncated write mid-transition.
func (s *Store) SetSoftlevel(name string) error {
	return renameio.WriteFile(s.path("softlevel"), []byte(name+"\n"), 0644)
}

// Softlevel returns the recorded runlevel name, or "" if none has been
// recorded yet (first boot).
func (s *Store) Softlevel() (string, error) {
	b, err := os.ReadFile(s.path("softlevel"))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return trimNewline(string(b)), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// BeginTransition creates the rc.starting or rc.stopping sentinel
// directory marking a runlevel change in flight (§3.4 names these as
// directories, the same way OpenRC itself marks a transition). The driver
// sets rc.stopping for the stop phase and rc.starting for the start phase,
// calling EndTransition between them, so at most one is present at a time.
func (s *Store) BeginTransition(starting bool) error {
	name := "rc.stopping"
	if starting {
		name = "rc.starting"
	}
	return mkdirAll(s.path(name))
}

// EndTransition clears both sentinels; harmless if one was never set.
func (s *Store) EndTransition() error {
	os.RemoveAll(s.path("rc.starting"))
	os.RemoveAll(s.path("rc.stopping"))
	return nil
}

// InTransition reports whether a runlevel change is currently in flight.
func (s *Store) InTransition() bool {
	if _, err := os.Stat(s.path("rc.starting")); err == nil {
		return true
	}
	if _, err := os.Stat(s.path("rc.stopping")); err == nil {
		return true
	}
	return false
}
