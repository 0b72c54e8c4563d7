/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package runner

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coreinit/rc/depgraph"
	"github.com/coreinit/rc/statestore"
)

type fakeRM struct{}

func (fakeRM) InRunlevel(service, runlevel string) bool   { return true }
func (fakeRM) Hotplugged(service string) bool              { return false }
func (fakeRM) State(service string) depgraph.ServiceState { return depgraph.StateStopped }
func (fakeRM) Members(runlevel string) []string           { return nil }
func (fakeRM) HotplugMembers() []string                   { return nil }

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func chainTree(t *testing.T, dir string) *depgraph.Tree {
	t.Helper()
	decls, err := depgraph.LoadDeclarations(strings.NewReader(`
depinfo_0_service='net'
depinfo_1_service='dns'
depinfo_1_need_0='net'
depinfo_2_service='web'
depinfo_2_need_0='dns'
`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := depgraph.Build(decls)
	if err != nil {
		t.Fatal(err)
	}
	res.Tree.Services["net"].ScriptPath = writeScript(t, dir, "net", "exit 0")
	res.Tree.Services["dns"].ScriptPath = writeScript(t, dir, "dns", "exit 0")
	res.Tree.Services["web"].ScriptPath = writeScript(t, dir, "web", "exit 0")
	return res.Tree
}

func newTestRunner(t *testing.T) (*Runner, *depgraph.Tree) {
	t.Helper()
	scriptDir := t.TempDir()
	tree := chainTree(t, scriptDir)
	store, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &Runner{Tree: tree, Store: store, RM: fakeRM{}, Runlevel: "default", Bootlevel: "boot"}, tree
}

func TestStartHappyPathChainEndsAllStarted(t *testing.T) {
	r, _ := newTestRunner(t)
	if err := r.Start("web", false); err != nil {
		t.Fatalf("start web: %v", err)
	}
	for _, svc := range []string{"net", "dns", "web"} {
		res, err := r.Store.Query(svc)
		if err != nil {
			t.Fatal(err)
		}
		if res.State != statestore.Started {
			t.Fatalf("expected %s started, got %v", svc, res.State)
		}
	}
}

func TestStartUnknownServiceErrors(t *testing.T) {
	r, _ := newTestRunner(t)
	if err := r.Start("ghost", false); err == nil {
		t.Fatal("expected error for unknown service")
	}
}

func TestStartAlreadyRunningReturnsErrAlreadyRunning(t *testing.T) {
	r, _ := newTestRunner(t)
	rec := r.Tree.Services["net"]
	lock, err := r.Store.AcquireExclusive("net", rec.ScriptPath)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Release()

	if err := r.Start("net", false); err != ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStartBrokenKeywordAborts(t *testing.T) {
	r, _ := newTestRunner(t)
	r.Tree.Services["dns"].Keywords[depgraph.KeywordBroken] = struct{}{}
	if err := r.Start("dns", false); err == nil {
		t.Fatal("expected broken-keyword start to fail")
	}
	res, err := r.Store.Query("dns")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != statestore.Stopped {
		t.Fatalf("expected dns to settle back to stopped, got %v", res.State)
	}
}

func TestStopReversesOrder(t *testing.T) {
	r, _ := newTestRunner(t)
	if err := r.Start("web", false); err != nil {
		t.Fatal(err)
	}
	if err := r.Stop("net", false); err != nil {
		t.Fatal(err)
	}
	for _, svc := range []string{"net", "dns", "web"} {
		res, err := r.Store.Query(svc)
		if err != nil {
			t.Fatal(err)
		}
		if res.State != statestore.Stopped {
			t.Fatalf("expected %s stopped, got %v", svc, res.State)
		}
	}
}

func TestStopAlreadyStoppedIsNoOp(t *testing.T) {
	r, _ := newTestRunner(t)
	if err := r.Stop("net", false); err != nil {
		t.Fatalf("expected no-op stop of an already-stopped service, got %v", err)
	}
}

func TestRestartOfStoppedServiceStaysStopped(t *testing.T) {
	r, _ := newTestRunner(t)
	if err := r.Restart("net"); err != nil {
		t.Fatal(err)
	}
	res, err := r.Store.Query("net")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != statestore.Stopped {
		t.Fatalf("expected restart of a stopped service to leave it stopped, got %v", res.State)
	}
}

func TestRestartOfStartedServiceEndsStarted(t *testing.T) {
	r, _ := newTestRunner(t)
	if err := r.Start("net", false); err != nil {
		t.Fatal(err)
	}
	if err := r.Restart("net"); err != nil {
		t.Fatal(err)
	}
	res, err := r.Store.Query("net")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != statestore.Started {
		t.Fatalf("expected restart of a running service to end started, got %v", res.State)
	}
}

type fakeGate struct{ allow bool }

func (g fakeGate) AllowHotplug(svc string) bool { return g.allow }

func TestStartHotplugBlockedByGate(t *testing.T) {
	r, _ := newTestRunner(t)
	r.HotplugGate = fakeGate{allow: false}
	if err := r.StartHotplug("net"); !errors.Is(err, ErrHotplugBlocked) {
		t.Fatalf("expected ErrHotplugBlocked, got %v", err)
	}
	res, err := r.Store.Query("net")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != statestore.Stopped {
		t.Fatalf("expected a blocked hotplug start to leave the service stopped, got %v", res.State)
	}
}

func TestStartHotplugAllowedByGateStarts(t *testing.T) {
	r, _ := newTestRunner(t)
	r.HotplugGate = fakeGate{allow: true}
	if err := r.StartHotplug("net"); err != nil {
		t.Fatalf("start net: %v", err)
	}
	res, err := r.Store.Query("net")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != statestore.Started {
		t.Fatalf("expected net started, got %v", res.State)
	}
}
