/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package supervisor implements the per-service long-lived daemon
// supervisor of §4.6: a double-forked helper that owns exactly one daemon
// PID, respawns it on a rolling window, runs periodic health checks, and
// exposes a line-oriented control FIFO. Grounded on the teacher's
// manager.processManager/restarter, generalized from a fixed ingester
// process table to one supervised daemon per invocation with the fuller
// resource/environment controls the specification names.
package supervisor

import (
	"time"

	"github.com/coreinit/rc/stopschedule"
)

// Config is the full set of per-service supervision parameters of §4.6.
type Config struct {
	Name string
	Exec string // full command line, split on whitespace (no shell quoting)

	// Pidfile, when set, is the file the daemon itself writes its pid to;
	// recorded via statestore.DaemonRecord so Store.DaemonCrashed can use
	// it for liveness instead of falling back to a /proc exec/argv0 scan.
	Pidfile string

	// ScriptPath is the service script symlink target recorded in the
	// state store's failed/<svc> entry when the respawn ceiling is hit.
	// Defaults to Exec when unset, since a directly-exec'd daemon has no
	// separate init script to point at.
	ScriptPath string

	RespawnDelay  time.Duration
	RespawnMax    int
	RespawnPeriod time.Duration

	HealthcheckDelay time.Duration
	HealthcheckTimer time.Duration
	HealthcheckCron  string   // optional cron expression; overrides HealthcheckTimer's fixed interval
	HealthcheckCmd   []string // argv of the service script's "healthcheck" verb
	UnhealthyCmd     []string // argv of the "unhealthy" observability hook

	RetrySchedule *stopschedule.Schedule

	Nicelevel   int
	HasNice     bool
	IOClass     int
	IOData      int
	HasIOPrio   bool
	OOMScoreAdj int
	HasOOMAdj   bool
	Umask       uint32
	HasUmask    bool
	Chroot      string
	Chdir       string
	User        string
	Group       string
	UID         int
	GID         int
	HasCred     bool
	Capabilities []string
	Secbits      int
	NoNewPrivs   bool
	SchedPolicy  int
	SchedPrio    int
	HasSched     bool

	Stdout string
	Stderr string

	ControlFIFOPath string
	StateOptionsDir string // where SIGHUP reexec persists Config before re-executing
}
