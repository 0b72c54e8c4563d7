/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package statestore

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// Lock is a held exclusive lock on one service. Release must be called
// exactly once by the holder.
type Lock struct {
	svc   string
	store *Store
	fl    *flock.Flock
	token string
}

func (s *Store) exclusivePath(svc string) string {
	return filepath.Join(s.path("exclusive"), svc) + ".lock"
}

func (s *Store) exclusiveLinkPath(svc string) string {
	return filepath.Join(s.path("exclusive"), svc)
}

// AcquireExclusive implements acquire_exclusive(svc) of §4.3.1. The lock
// itself is a flock(2) advisory lock on exclusive/<svc>.lock (cheap,
// kernel-backed, self-cleaning on crash); exclusive/<svc> is a companion
// symlink to scriptPath tagged with a random holder token, used as the
// visible "service in transition" marker and by InControl for the mtime
// test of §4.3.3.
func (s *Store) AcquireExclusive(svc, scriptPath string) (*Lock, error) {
	fl := flock.New(s.exclusivePath(svc))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyExclusive
	}
	token := uuid.NewString()
	linkTarget := scriptPath + "#" + token
	if err := atomicSymlink(linkTarget, s.exclusiveLinkPath(svc)); err != nil {
		fl.Unlock()
		return nil, err
	}
	return &Lock{svc: svc, store: s, fl: fl, token: token}, nil
}

// Release implements release_exclusive(svc): removes the marker symlink
// then drops the flock; a process blocked in WaitFor sees the marker gone
// on its next 20 ms poll.
func (l *Lock) Release() error {
	os.Remove(l.store.exclusiveLinkPath(l.svc))
	return l.fl.Unlock()
}

// WaitFor implements wait_for(svc, timeout) of §4.3.1: blocks until
// exclusive/<svc> disappears or the context is done. A zero timeout with a
// background context and the notimeout keyword honored by the caller
// disables the deadline by simply passing context.Background().
func (s *Store) WaitFor(ctx context.Context, svc string) error {
	link := s.exclusiveLinkPath(svc)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, err := os.Lstat(link); os.IsNotExist(err) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrWaitTimeout
		case <-ticker.C:
		}
	}
}

// InControl implements the "in control" test of §4.3.3: the caller passes
// the mtime of the test symlink it created when it acquired the lock
// (exclusive/<svc>'s own mtime serves that purpose, since it was created at
// acquisition time); if any primary-state directory entry for svc is newer,
// a different writer has since taken over.
func (l *Lock) InControl() (bool, error) {
	testInfo, err := os.Lstat(l.store.exclusiveLinkPath(l.svc))
	if err != nil {
		return false, err
	}
	for _, p := range []PrimaryState{Starting, Started, Stopping, Inactive, Failed} {
		fi, err := os.Lstat(filepath.Join(l.store.stateDir(p), l.svc))
		if err != nil {
			continue
		}
		if fi.ModTime().After(testInfo.ModTime()) {
			return false, nil
		}
	}
	return true, nil
}

// RecoverStale implements the crash-recovery half of §4.3.2's closing
// paragraph: if exclusive/<svc>.lock exists but no process holds the flock
// (the prior runner died mid-action), clear the stale marker and restore
// svc to stopped when DaemonCrashed reports one of its recorded daemons
// gone, and to started otherwise (including when none are recorded).
func (s *Store) RecoverStale(svc string) (bool, error) {
	fl := flock.New(s.exclusivePath(svc))
	ok, err := fl.TryLock()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil // someone genuinely holds it; not stale
	}
	defer fl.Unlock()

	if _, err := os.Lstat(s.exclusiveLinkPath(svc)); os.IsNotExist(err) {
		return false, nil // clean: no transition was in flight
	}
	os.Remove(s.exclusiveLinkPath(svc))

	crashed, err := s.DaemonCrashed(svc)
	if err != nil {
		return false, err
	}
	target := Started
	if crashed {
		target = Stopped
	}
	scriptPath, _ := s.anyKnownScriptPath(svc)
	return true, s.Mark(svc, scriptPath, target)
}

func (s *Store) anyKnownScriptPath(svc string) (string, error) {
	for _, p := range []PrimaryState{Starting, Started, Stopping, Inactive, Failed} {
		target, err := os.Readlink(filepath.Join(s.stateDir(p), svc))
		if err == nil {
			return target, nil
		}
	}
	return "", nil
}
