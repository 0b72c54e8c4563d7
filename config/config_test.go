/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConf(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := writeConf(t, dir, "rc.conf", `
[global]
state-root = `+dir+`/state
script-root = `+dir+`/scripts
`)
	c, err := Load(p, "")
	if err != nil {
		t.Fatal(err)
	}
	if c.Bootlevel != "boot" {
		t.Fatalf("expected default bootlevel, got %q", c.Bootlevel)
	}
	if c.DefaultRunlevel != "default" {
		t.Fatalf("expected default runlevel, got %q", c.DefaultRunlevel)
	}
	if c.Parallel != defaultParallel {
		t.Fatalf("expected default parallel, got %d", c.Parallel)
	}
}

func TestLoadRejectsMissingStateRoot(t *testing.T) {
	dir := t.TempDir()
	p := writeConf(t, dir, "rc.conf", `
[global]
script-root = `+dir+`/scripts
`)
	if _, err := Load(p, ""); err != ErrMissingStateRoot {
		t.Fatalf("expected ErrMissingStateRoot, got %v", err)
	}
}

func TestLoadOverlayLayersFragment(t *testing.T) {
	dir := t.TempDir()
	p := writeConf(t, dir, "rc.conf", `
[global]
state-root = `+dir+`/state
script-root = `+dir+`/scripts
parallel = 1
`)
	overlayDir := t.TempDir()
	writeConf(t, overlayDir, "override.conf", `
[global]
parallel = 4
`)
	c, err := Load(p, overlayDir)
	if err != nil {
		t.Fatal(err)
	}
	if c.Parallel != 4 {
		t.Fatalf("expected overlay to bump parallel to 4, got %d", c.Parallel)
	}
}

func TestAllowHotplugEmptyListAllowsEverything(t *testing.T) {
	c := &Config{}
	if !c.AllowHotplug("anything") {
		t.Fatal("expected an empty plug_services list to allow every service")
	}
}

func TestAllowHotplugGlobGating(t *testing.T) {
	dir := t.TempDir()
	p := writeConf(t, dir, "rc.conf", `
[global]
state-root = `+dir+`/state
script-root = `+dir+`/scripts
plug-services = net.*
`)
	c, err := Load(p, "")
	if err != nil {
		t.Fatal(err)
	}
	if !c.AllowHotplug("net.eth0") {
		t.Fatal("expected net.eth0 to match the net.* glob")
	}
	if c.AllowHotplug("dns") {
		t.Fatal("expected dns not to match the net.* glob")
	}
}

func TestLoadConfigFileRejectsOversized(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, maxConfigSize+1)
	p := writeConf(t, dir, "huge.conf", string(big))
	var v cfgType
	if err := LoadConfigFile(&v, p); err != ErrConfigFileTooLarge {
		t.Fatalf("expected ErrConfigFileTooLarge, got %v", err)
	}
}
