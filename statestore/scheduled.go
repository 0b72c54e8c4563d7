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
	"path/filepath"
)

// ScheduleStartOn implements schedule_start_on(trigger, dep) of §4.3.1:
// record that dep should be started once trigger reaches started.
func (s *Store) ScheduleStartOn(trigger, dep string) error {
	dir := filepath.Join(s.path("scheduled"), trigger)
	if err := mkdirAll(dir); err != nil {
		return err
	}
	return atomicSymlink(dep, filepath.Join(dir, dep))
}

// ClearSchedule implements clear_schedule(svc): removes scheduled/<svc>/
// entirely, typically once the trigger's dependents have been started.
func (s *Store) ClearSchedule(svc string) error {
	return os.RemoveAll(filepath.Join(s.path("scheduled"), svc))
}

// scheduledEntries lists the dependents scheduled against trigger.
func (s *Store) scheduledEntries(trigger string) ([]string, error) {
	dir := filepath.Join(s.path("scheduled"), trigger)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out, nil
}

// Scheduled is the exported form of scheduledEntries, used by the runner to
// promote dependents once a trigger finishes starting.
func (s *Store) Scheduled(trigger string) ([]string, error) {
	return s.scheduledEntries(trigger)
}
