/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package config loads the manager-wide .conf file that points the rc
// binaries at their state root, runlevel definitions, and script
// directory, following the load/validate shape of the teacher's
// manager.GetConfig and ingest/config's LoadConfigFile/LoadConfigOverlays.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/coreinit/rc/rclog"
)

const (
	defaultParallel      = 1
	defaultRespawnMax    = 5
	defaultRespawnPeriod = time.Minute
	defaultLogLevel      = "WARN"
)

var (
	ErrMissingStateRoot = errors.New("global state_root is required")
	ErrMissingScriptRoot = errors.New("global script_root is required")
	ErrBadPlugGlob       = errors.New("invalid plug_services glob pattern")
)

// Global holds the gcfg-parsed [global] section.
type Global struct {
	State_Root       string
	Runlevels_Root   string
	Script_Root      string
	Bootlevel        string
	Default_Runlevel string
	Parallel         int
	Respawn_Max      int
	Respawn_Period   int // seconds
	Log_File         string
	Log_Level        string
	Plug_Services    []string // glob patterns gating IN_HOTPLUG starts, §6.2
}

type cfgType struct {
	Global Global
}

// Config is the validated, ready-to-use form of cfgType: defaults applied
// and the plug_services globs compiled.
type Config struct {
	StateRoot       string
	RunlevelsRoot   string
	ScriptRoot      string
	Bootlevel       string
	DefaultRunlevel string
	Parallel        int
	RespawnMax      int
	RespawnPeriod   time.Duration
	LogFile         string
	LogLevel        string

	plugGlobs []glob.Glob
}

// Load reads path and any *.conf fragments in overlayDir (pass "" to skip
// overlays), applies defaults, and validates the result.
func Load(path, overlayDir string) (*Config, error) {
	var raw cfgType
	if err := LoadConfigFile(&raw, path); err != nil {
		return nil, err
	}
	if overlayDir != "" {
		if err := LoadConfigOverlays(&raw, overlayDir); err != nil {
			return nil, err
		}
	}
	return newConfig(raw)
}

func newConfig(raw cfgType) (*Config, error) {
	g := raw.Global
	if strings.TrimSpace(g.State_Root) == "" {
		return nil, ErrMissingStateRoot
	}
	if strings.TrimSpace(g.Script_Root) == "" {
		return nil, ErrMissingScriptRoot
	}

	c := &Config{
		StateRoot:       g.State_Root,
		RunlevelsRoot:   g.Runlevels_Root,
		ScriptRoot:      g.Script_Root,
		Bootlevel:       g.Bootlevel,
		DefaultRunlevel: g.Default_Runlevel,
		Parallel:        g.Parallel,
		RespawnMax:      g.Respawn_Max,
		LogFile:         g.Log_File,
		LogLevel:        g.Log_Level,
	}
	if c.Bootlevel == "" {
		c.Bootlevel = "boot"
	}
	if c.DefaultRunlevel == "" {
		c.DefaultRunlevel = "default"
	}
	if c.Parallel <= 0 {
		c.Parallel = defaultParallel
	}
	if c.RespawnMax <= 0 {
		c.RespawnMax = defaultRespawnMax
	}
	if g.Respawn_Period > 0 {
		c.RespawnPeriod = time.Duration(g.Respawn_Period) * time.Second
	} else {
		c.RespawnPeriod = defaultRespawnPeriod
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	for _, pat := range g.Plug_Services {
		gl, err := glob.Compile(pat)
		if err != nil {
			return nil, errors.Join(ErrBadPlugGlob, err)
		}
		c.plugGlobs = append(c.plugGlobs, gl)
	}
	return c, nil
}

// AllowHotplug reports whether svc may be started by an IN_HOTPLUG event,
// per §6.2: gated by the plug_services glob list. An empty list allows
// every service, matching OpenRC's "unset means unrestricted" default.
func (c *Config) AllowHotplug(svc string) bool {
	if len(c.plugGlobs) == 0 {
		return true
	}
	for _, gl := range c.plugGlobs {
		if gl.Match(svc) {
			return true
		}
	}
	return false
}

// GetLogger opens the configured log file, or a discard logger if none was
// set.
func (c *Config) GetLogger() (*rclog.Logger, error) {
	if c.LogFile == "" {
		return rclog.NewDiscardLogger(), nil
	}
	lg, err := rclog.NewFile(c.LogFile)
	if err != nil {
		return nil, err
	}
	if err := lg.SetLevelString(c.LogLevel); err != nil {
		return nil, err
	}
	return lg, nil
}
