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
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestOpenRejectsEmptyRoot(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestMarkAndQueryRoundTrip(t *testing.T) {
	s := openTestStore(t)
	script := filepath.Join(t.TempDir(), "web")
	os.WriteFile(script, []byte("#!/bin/sh\n"), 0755)

	if err := s.Mark("web", script, Starting); err != nil {
		t.Fatal(err)
	}
	res, err := s.Query("web")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Starting {
		t.Fatalf("expected starting, got %v", res.State)
	}

	if err := s.Mark("web", script, Started); err != nil {
		t.Fatal(err)
	}
	res, err = s.Query("web")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Started {
		t.Fatalf("expected started, got %v", res.State)
	}

	if err := s.Mark("web", "", Stopped); err != nil {
		t.Fatal(err)
	}
	res, err = s.Query("web")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Stopped {
		t.Fatalf("expected stopped after clearing, got %v", res.State)
	}
}

func TestQueryAbsentServiceIsStopped(t *testing.T) {
	s := openTestStore(t)
	res, err := s.Query("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != Stopped {
		t.Fatalf("expected stopped, got %v", res.State)
	}
}

func TestExclusiveLockSerializesAcquisition(t *testing.T) {
	s := openTestStore(t)
	lock, err := s.AcquireExclusive("web", "/etc/init.d/web")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AcquireExclusive("web", "/etc/init.d/web"); err == nil {
		t.Fatal("expected second acquisition to fail")
	}
	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	lock2, err := s.AcquireExclusive("web", "/etc/init.d/web")
	if err != nil {
		t.Fatalf("expected re-acquisition after release to succeed: %v", err)
	}
	lock2.Release()
}

func TestWaitForReturnsOnceReleased(t *testing.T) {
	s := openTestStore(t)
	lock, err := s.AcquireExclusive("web", "/etc/init.d/web")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- s.WaitFor(ctx, "web")
	}()
	time.Sleep(20 * time.Millisecond)
	lock.Release()
	if err := <-done; err != nil {
		t.Fatalf("WaitFor returned error after release: %v", err)
	}
}

func TestInControlDetectsTakeover(t *testing.T) {
	s := openTestStore(t)
	lock, err := s.AcquireExclusive("web", "/etc/init.d/web")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := lock.InControl()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected to still be in control immediately after acquiring")
	}
	time.Sleep(50 * time.Millisecond)
	if err := s.Mark("web", "/etc/init.d/web", Started); err != nil {
		t.Fatal(err)
	}
	ok, err = lock.InControl()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected a newer state entry to count as a takeover")
	}
}

func TestScheduleStartOnAndClear(t *testing.T) {
	s := openTestStore(t)
	if err := s.ScheduleStartOn("net", "dns"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Scheduled("net")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "dns" {
		t.Fatalf("expected [dns], got %v", got)
	}
	if err := s.ClearSchedule("net"); err != nil {
		t.Fatal(err)
	}
	got, err = s.Scheduled("net")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty after clear, got %v", got)
	}
}

func TestDaemonRecordOrdinalsPreserveOrder(t *testing.T) {
	s := openTestStore(t)
	d1 := Daemon{Exec: "/usr/sbin/httpd", Name: "httpd", Pidfile: ""}
	d2 := Daemon{Exec: "/usr/sbin/httpd-helper", Name: "helper", Pidfile: ""}
	if err := s.DaemonRecord("web", d1, true); err != nil {
		t.Fatal(err)
	}
	if err := s.DaemonRecord("web", d2, true); err != nil {
		t.Fatal(err)
	}
	got, err := s.Daemons("web")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != d1 || got[1] != d2 {
		t.Fatalf("expected ordered [d1, d2], got %v", got)
	}
	if err := s.DaemonRecord("web", d1, false); err != nil {
		t.Fatal(err)
	}
	got, err = s.Daemons("web")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != d2 {
		t.Fatalf("expected only d2 remaining, got %v", got)
	}
}

func TestDaemonCrashedDetectsDeadPidfile(t *testing.T) {
	s := openTestStore(t)
	pidfile := filepath.Join(t.TempDir(), "web.pid")
	os.WriteFile(pidfile, []byte("999999999\n"), 0644)
	d := Daemon{Exec: "/usr/sbin/httpd", Name: "httpd", Pidfile: pidfile}
	if err := s.DaemonRecord("web", d, true); err != nil {
		t.Fatal(err)
	}
	crashed, err := s.DaemonCrashed("web")
	if err != nil {
		t.Fatal(err)
	}
	if !crashed {
		t.Fatal("expected crashed=true for an unreachable pid")
	}
}

func TestOptionsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	if err := s.SetOption("web", "ionice", "3"); err != nil {
		t.Fatal(err)
	}
	got, ok := s.GetOption("web", "ionice")
	if !ok || got != "3" {
		t.Fatalf("expected (3, true), got (%q, %v)", got, ok)
	}
	if err := s.ClearOption("web", "ionice"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.GetOption("web", "ionice"); ok {
		t.Fatal("expected option to be gone after clear")
	}
}

func TestSoftlevelAndTransitionSentinels(t *testing.T) {
	s := openTestStore(t)
	if lvl, err := s.Softlevel(); err != nil || lvl != "" {
		t.Fatalf("expected empty softlevel before first boot, got (%q, %v)", lvl, err)
	}
	if err := s.SetSoftlevel("default"); err != nil {
		t.Fatal(err)
	}
	lvl, err := s.Softlevel()
	if err != nil {
		t.Fatal(err)
	}
	if lvl != "default" {
		t.Fatalf("expected default, got %q", lvl)
	}

	if s.InTransition() {
		t.Fatal("expected no transition in flight initially")
	}
	if err := s.BeginTransition(true); err != nil {
		t.Fatal(err)
	}
	if !s.InTransition() {
		t.Fatal("expected transition in flight after BeginTransition")
	}
	if err := s.EndTransition(); err != nil {
		t.Fatal(err)
	}
	if s.InTransition() {
		t.Fatal("expected no transition in flight after EndTransition")
	}
}

func TestRecoverStaleNoOpWhenClean(t *testing.T) {
	s := openTestStore(t)
	recovered, err := s.RecoverStale("web")
	if err != nil {
		t.Fatal(err)
	}
	if recovered {
		t.Fatal("expected no recovery needed for a service with no exclusive marker")
	}
}
