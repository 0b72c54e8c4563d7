/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command rc-supervise is the forked per-daemon supervisor process of
// §4.6: it owns exactly one long-lived daemon, respawning it on a rolling
// window, health-checking it, and answering its control FIFO, until told
// to stop or reexec'd across a SIGHUP.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coreinit/rc/rclog"
	"github.com/coreinit/rc/statestore"
	"github.com/coreinit/rc/supervisor"
)

func newSupervisorLogger(stateRoot, name string) (*rclog.Logger, error) {
	dir := filepath.Join(stateRoot, "log")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return rclog.NewFile(filepath.Join(dir, name+".log"))
}

func main() {
	var (
		name          = flag.String("name", "", "service name")
		execLine      = flag.String("exec", "", "full command line to supervise")
		stateRoot     = flag.String("state-root", "/run/rc", "state store root, for reexec persistence")
		fifoPath      = flag.String("control-fifo", "", "path to create the control FIFO")
		respawnMax    = flag.Int("respawn-max", 5, "respawns allowed within respawn-period before giving up")
		respawnPeriod = flag.Duration("respawn-period", time.Minute, "rolling window respawn-max is counted over")
		respawnDelay  = flag.Duration("respawn-delay", 0, "delay before each respawn")
		nicelevel     = flag.Int("nicelevel", 0, "scheduling priority, see setpriority(2)")
		stdout        = flag.String("stdout", "", "file to append the daemon's stdout to")
		stderr        = flag.String("stderr", "", "file to append the daemon's stderr to")
		pidfile       = flag.String("pidfile", "", "pidfile the daemon itself writes, used for crash detection")
		scriptPath    = flag.String("script-path", "", "service script symlink target recorded if the respawn ceiling is hit (defaults to -exec)")
		reexec        = flag.Bool("reexec", false, "internal: this process replaced its own image via SIGHUP")
	)
	flag.Parse()

	if *name == "" {
		log.Fatal("-name is required")
	}

	store, err := statestore.Open(*stateRoot)
	if err != nil {
		log.Fatalf("opening state store: %v", err)
	}

	cfg := supervisor.Config{
		Name:            *name,
		Exec:            *execLine,
		RespawnMax:      *respawnMax,
		RespawnPeriod:   *respawnPeriod,
		RespawnDelay:    *respawnDelay,
		Nicelevel:       *nicelevel,
		HasNice:         *nicelevel != 0,
		Stdout:          *stdout,
		Stderr:          *stderr,
		Pidfile:         *pidfile,
		ScriptPath:      *scriptPath,
		ControlFIFOPath: *fifoPath,
		StateOptionsDir: *stateRoot,
	}

	if *reexec {
		persistedExec, persistedFIFO, persistedMax := supervisor.LoadPersisted(store, *name)
		if cfg.Exec == "" {
			cfg.Exec = persistedExec
		}
		if cfg.ControlFIFOPath == "" {
			cfg.ControlFIFOPath = persistedFIFO
		}
		if persistedMax > 0 {
			cfg.RespawnMax = persistedMax
		}
	}
	if cfg.ControlFIFOPath == "" {
		log.Fatal("-control-fifo is required")
	}

	lg, err := newSupervisorLogger(*stateRoot, *name)
	if err != nil {
		log.Fatalf("opening logger: %v", err)
	}
	lg.SetAppname(*name)

	sv := supervisor.New(cfg, lg, store)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGHUP:
				lg.Info("reexec requested")
				if err := sv.Reexec(store); err != nil {
					lg.Error("reexec failed", rclog.KVErr(err))
				}
			default:
				cancel()
				return
			}
		}
	}()

	if err := sv.Run(ctx); err != nil && err != context.Canceled {
		if errors.Is(err, supervisor.ErrRespawnCeiling) {
			// Scenario 6: the ceiling is a recorded outcome (failed/<svc>
			// is already written), not a supervisor failure — exit clean.
			lg.Error("respawn ceiling exceeded, service marked failed", rclog.KVErr(err))
		} else {
			lg.Error("supervisor exited with error", rclog.KVErr(err))
			os.Exit(1)
		}
	}
}
