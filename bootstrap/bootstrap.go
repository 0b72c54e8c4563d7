/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package bootstrap holds the startup sequence shared by every rc binary:
// load the manager config, build or reload the cached dependency tree, and
// open the state store. Factored out of cmd/rc's main so rc-service and
// rc-status don't each reimplement it.
package bootstrap

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/coreinit/rc/config"
	"github.com/coreinit/rc/depgraph"
	"github.com/coreinit/rc/rclevel"
	"github.com/coreinit/rc/rclog"
	"github.com/coreinit/rc/statestore"
)

// dependHelperName is the out-of-scope shell helper named in SPEC_FULL's
// configuration section: it walks script-root and prints the aggregated
// depinfo_<i>_... stream for every init script's declared dependencies.
const dependHelperName = "gendepends.sh"

// Env bundles everything an rc binary needs after startup.
type Env struct {
	Cfg   *config.Config
	Tree  *depgraph.Tree
	Store *statestore.Store
	RM    *rclevel.Membership
	Log   *rclog.Logger
}

// Load runs the full startup sequence for path (the main .conf file) and
// overlayDir (its .conf.d directory, "" to skip).
func Load(path, overlayDir string) (*Env, error) {
	cfg, err := config.Load(path, overlayDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	lg, err := cfg.GetLogger()
	if err != nil {
		return nil, fmt.Errorf("opening logger: %w", err)
	}

	tree, err := LoadTree(cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("loading dependency tree: %w", err)
	}

	store, err := statestore.Open(cfg.StateRoot)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	recoverStaleExclusives(store, tree, lg)

	rm := rclevel.NewMembership(cfg.RunlevelsRoot, store)

	return &Env{Cfg: cfg, Tree: tree, Store: store, RM: rm, Log: lg}, nil
}

// recoverStaleExclusives implements the crash-recovery half of §4.3.2's
// closing paragraph: on every startup, before anything acquires a fresh
// exclusive lock, clear any stale marker left behind by a runner that
// died mid-action and restore the affected service's recorded state.
func recoverStaleExclusives(store *statestore.Store, tree *depgraph.Tree, lg *rclog.Logger) {
	for name, svc := range tree.Services {
		if svc.Placeholder {
			continue
		}
		recovered, err := store.RecoverStale(name)
		if err != nil {
			lg.Warn("failed to check for a stale exclusive lock", rclog.KV("service", name), rclog.KVErr(err))
			continue
		}
		if recovered {
			lg.Info("recovered stale exclusive lock", rclog.KV("service", name))
		}
	}
}

// LoadTree reloads the dependency tree from its cache, or rebuilds it from
// script-root via the shell helper when the cache is stale, per §4.2.2.
func LoadTree(cfg *config.Config, lg *rclog.Logger) (*depgraph.Tree, error) {
	cachePath := filepath.Join(cfg.StateRoot, "depcache")

	stale, err := depgraph.Stale(cachePath, cfg.ScriptRoot, cfg.RunlevelsRoot, "", nil)
	if err != nil {
		return nil, err
	}
	if !stale {
		if res, err := depgraph.LoadCache(cachePath); err == nil {
			return res.Tree, nil
		}
		lg.Warn("dependency cache unreadable, rebuilding", rclog.KV("path", cachePath))
	}

	r, err := runDependHelper(cfg.ScriptRoot)
	if err != nil {
		return nil, err
	}
	decls, err := depgraph.LoadDeclarations(r)
	if err != nil {
		return nil, err
	}
	res, err := depgraph.Build(decls)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		lg.Warn("dependency graph warning", rclog.KVErr(w))
	}
	if err := depgraph.WriteCache(res.Tree, cachePath); err != nil {
		lg.Warn("failed to persist dependency cache", rclog.KVErr(err))
	}
	if depgraph.SkewDetected(cachePath) {
		lg.Warn("clock skew detected writing dependency cache", rclog.KV("path", cachePath))
	}
	return res.Tree, nil
}

// runDependHelper execs gendepends.sh against scriptRoot and returns its
// stdout, the depinfo_<i>_... stream. Invoking per-script dependency
// extraction is the shell helper's job (§4.2.1); this just captures what
// it prints.
func runDependHelper(scriptRoot string) (*bytes.Buffer, error) {
	helper, err := exec.LookPath(dependHelperName)
	if err != nil {
		return nil, fmt.Errorf("locating %s: %w", dependHelperName, err)
	}
	cmd := exec.Command(helper, scriptRoot)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %w", dependHelperName, err)
	}
	return &out, nil
}
