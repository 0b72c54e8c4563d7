/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package rclevel

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coreinit/rc/depgraph"
	"github.com/coreinit/rc/statestore"
)

func writeScript(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func chainTree(t *testing.T, scriptDir string) *depgraph.Tree {
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
	for _, name := range []string{"net", "dns", "web"} {
		res.Tree.Services[name].ScriptPath = writeScript(t, scriptDir, name)
	}
	return res.Tree
}

func markRunlevel(t *testing.T, runlevelsDir, level string, services ...string) {
	t.Helper()
	dir := filepath.Join(runlevelsDir, level)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, s := range services {
		if err := os.WriteFile(filepath.Join(dir, s), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestDriver(t *testing.T) (*Driver, *depgraph.Tree, *statestore.Store, string) {
	t.Helper()
	scriptDir := t.TempDir()
	tree := chainTree(t, scriptDir)
	store, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runlevelsDir := t.TempDir()
	rm := NewMembership(runlevelsDir, store)
	d := &Driver{Tree: tree, Store: store, RM: rm, Bootlevel: "boot"}
	return d, tree, store, runlevelsDir
}

func TestTransitionStartsRunlevelMembersAndDeps(t *testing.T) {
	d, _, store, runlevelsDir := newTestDriver(t)
	markRunlevel(t, runlevelsDir, "default", "web")

	if err := d.Transition("default"); err != nil {
		t.Fatalf("transition to default: %v", err)
	}
	for _, svc := range []string{"net", "dns", "web"} {
		res, err := store.Query(svc)
		if err != nil {
			t.Fatal(err)
		}
		if res.State != statestore.Started {
			t.Fatalf("expected %s started after transition, got %v", svc, res.State)
		}
	}
	sl, err := store.Softlevel()
	if err != nil {
		t.Fatal(err)
	}
	if sl != "default" {
		t.Fatalf("expected softlevel default, got %q", sl)
	}
}

func TestTransitionToShutdownStopsEverything(t *testing.T) {
	d, _, store, runlevelsDir := newTestDriver(t)
	markRunlevel(t, runlevelsDir, "default", "web")
	if err := d.Transition("default"); err != nil {
		t.Fatalf("transition to default: %v", err)
	}

	if err := d.Transition(depgraph.LevelShutdown); err != nil {
		t.Fatalf("transition to shutdown: %v", err)
	}
	for _, svc := range []string{"net", "dns", "web"} {
		res, err := store.Query(svc)
		if err != nil {
			t.Fatal(err)
		}
		if res.State != statestore.Stopped {
			t.Fatalf("expected %s stopped after shutdown transition, got %v", svc, res.State)
		}
	}
}

func TestTransitionClearsInTransitionSentinelsWhenDone(t *testing.T) {
	d, _, store, runlevelsDir := newTestDriver(t)
	markRunlevel(t, runlevelsDir, "default", "net")
	if err := d.Transition("default"); err != nil {
		t.Fatal(err)
	}
	if store.InTransition() {
		t.Fatal("expected no in-flight sentinel once the transition returns")
	}
}

func TestComputeToStopKeepsConfiguredAcrossLevels(t *testing.T) {
	d, tree, store, runlevelsDir := newTestDriver(t)
	markRunlevel(t, runlevelsDir, "default", "net", "dns", "web")
	if err := d.Transition("default"); err != nil {
		t.Fatal(err)
	}
	tree.Services["net"].ExternalConfigs = []string{"/etc/conf.d/default/net", "/etc/conf.d/single/net"}
	if err := store.SetSoftlevel("default"); err != nil {
		t.Fatal(err)
	}

	toStop := d.computeToStop("single")
	for _, s := range toStop {
		if s == "net" {
			t.Fatal("expected net to be kept across default->single due to matching per-level config")
		}
	}
}
