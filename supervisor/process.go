/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package supervisor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/coreinit/rc/rclog"
	"github.com/coreinit/rc/statestore"
)

// Supervisor owns exactly one daemon PID across its lifetime, forking,
// respawning on a rolling window, health-checking, and answering control
// FIFO commands. Its loop mirrors the teacher's processManager.routine,
// generalized from a fixed process table entry to the full resource and
// health-check surface of §4.6.
type Supervisor struct {
	cfg   Config
	lg    *rclog.Logger
	store *statestore.Store

	mu     sync.Mutex
	die    chan struct{}
	wg     sync.WaitGroup
	fifo   *os.File
	failed bool
}

// New constructs a Supervisor for cfg. lg may be nil, in which case
// diagnostics are discarded. store may be nil in tests that never call
// Run; a live Supervisor needs it to record the owned daemon tuple and
// to mark the service failed on a respawn ceiling.
func New(cfg Config, lg *rclog.Logger, store *statestore.Store) *Supervisor {
	if lg == nil {
		lg = rclog.NewDiscardLogger()
	}
	return &Supervisor{cfg: cfg, lg: lg, store: store}
}

type exitResult struct {
	code int
	err  error
}

// Run blocks for the supervised daemon's entire lifetime: fork/exec,
// respawn loop, health checks, and control FIFO handling, per §4.6's
// "Loop" paragraph. It returns when the respawn ceiling is hit (Failed()
// becomes true), the control FIFO receives "stop", or ctx is cancelled.
func (sv *Supervisor) Run(ctx context.Context) error {
	fifo, err := openControlFIFO(sv.cfg.ControlFIFOPath)
	if err != nil {
		return err
	}
	sv.fifo = fifo
	defer func() {
		fifo.Close()
		os.Remove(sv.cfg.ControlFIFOPath)
	}()

	cmds := make(chan Command, 8)
	go readCommands(fifo, cmds)

	rst := newRestarter(sv.cfg)
	args, err := splitArgs(sv.cfg.Exec)
	if err != nil {
		return err
	}

	// Record the tuple this supervisor owns for the full lifetime of Run,
	// per §4.3.1's daemon_record — the supervisor is the one component
	// that actually knows the daemon's exec/pidfile, so crash detection
	// via Store.DaemonCrashed has nothing to inspect until it does.
	daemon := statestore.Daemon{Exec: args[0], Name: filepath.Base(args[0]), Pidfile: sv.cfg.Pidfile}
	if sv.store != nil {
		if err := sv.store.DaemonRecord(sv.cfg.Name, daemon, true); err != nil {
			sv.lg.Warn("failed to record daemon tuple", rclog.KV("name", sv.cfg.Name), rclog.KVErr(err))
		}
		defer func() {
			if err := sv.store.DaemonRecord(sv.cfg.Name, daemon, false); err != nil {
				sv.lg.Warn("failed to withdraw daemon tuple", rclog.KV("name", sv.cfg.Name), rclog.KVErr(err))
			}
		}()
	}

	for {
		cmd, err := sv.startChild(args)
		if err != nil {
			sv.lg.Error("failed to start daemon", rclog.KV("name", sv.cfg.Name), rclog.KVErr(err))
			return err
		}

		exitCh := make(chan exitResult, 1)
		go waitChild(cmd, exitCh)

		hsched, err := newHealthSchedule(sv.cfg)
		if err != nil {
			sv.lg.Error("invalid health check schedule", rclog.KV("name", sv.cfg.Name), rclog.KVErr(err))
			return err
		}
		healthTimer := sv.healthTimer(hsched)
		stopRequested := false

	waitLoop:
		for {
			select {
			case <-ctx.Done():
				sv.killChild(cmd)
				<-exitCh
				return ctx.Err()

			case c := <-cmds:
				switch {
				case c.Stop:
					stopRequested = true
					sv.killChild(cmd)
				case c.HasSig:
					if cmd.Process != nil {
						cmd.Process.Signal(c.Signal)
					}
				}

			case <-healthTimerC(healthTimer):
				if sv.runHealthcheck() {
					healthTimer.Reset(hsched.next(time.Now()))
				} else {
					sv.lg.Warn("health check failed", rclog.KV("name", sv.cfg.Name))
					sv.runUnhealthyHook()
					sv.killChild(cmd)
				}

			case res := <-exitCh:
				if healthTimer != nil {
					healthTimer.Stop()
				}
				sv.lg.Info("daemon exited", rclog.KV("name", sv.cfg.Name), rclog.KV("code", res.code), rclog.KVErr(res.err))
				break waitLoop
			}
		}

		if stopRequested {
			return nil
		}

		if exceeded := rst.recordExit(time.Now()); exceeded {
			sv.mu.Lock()
			sv.failed = true
			sv.mu.Unlock()
			sv.lg.Error("respawn ceiling exceeded, marking failed", rclog.KV("name", sv.cfg.Name), rclog.KV("max", sv.cfg.RespawnMax))
			if sv.store != nil {
				scriptPath := sv.cfg.ScriptPath
				if scriptPath == "" {
					scriptPath = sv.cfg.Exec
				}
				if err := sv.store.Mark(sv.cfg.Name, scriptPath, statestore.Failed); err != nil {
					sv.lg.Warn("failed to persist failed marker", rclog.KV("name", sv.cfg.Name), rclog.KVErr(err))
				}
			}
			return ErrRespawnCeiling
		}

		die := make(chan struct{})
		if interruptibleSleep(sv.cfg.RespawnDelay, die) {
			return ctx.Err()
		}
	}
}

// Failed reports whether the supervisor exited via the respawn ceiling.
func (sv *Supervisor) Failed() bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.failed
}

func (sv *Supervisor) startChild(args []string) (*exec.Cmd, error) {
	attr := buildSysProcAttr(sv.cfg)
	cmd := &exec.Cmd{Path: args[0], Args: args, Dir: sv.cfg.Chdir, SysProcAttr: attr}
	if f, err := openAppend(sv.cfg.Stdout); err == nil && f != nil {
		cmd.Stdout = f
	}
	if f, err := openAppend(sv.cfg.Stderr); err == nil && f != nil {
		cmd.Stderr = f
	}
	sv.lg.Info("starting daemon", rclog.KV("name", sv.cfg.Name), rclog.KV("exec", args[0]))
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	if err := applyPostStartResources(cmd, sv.cfg); err != nil {
		sv.lg.Warn("resource control failed", rclog.KV("name", sv.cfg.Name), rclog.KVErr(err))
	}
	return cmd, nil
}

func waitChild(cmd *exec.Cmd, out chan<- exitResult) {
	var res exitResult
	if err := cmd.Wait(); err != nil {
		res.err = err
		if exitErr, ok := err.(*exec.ExitError); ok {
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				res.code = ws.ExitStatus()
			}
		}
	}
	out <- res
}

func (sv *Supervisor) killChild(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	sched := sv.cfg.RetrySchedule
	if sched == nil {
		sched = defaultKillSchedule()
	}
	runStopSchedule(cmd.Process.Pid, sched)
}

func (sv *Supervisor) healthTimer(hsched *healthSchedule) *time.Timer {
	if hsched == nil {
		return nil
	}
	delay := sv.cfg.HealthcheckDelay
	if delay <= 0 {
		delay = hsched.next(time.Now())
	}
	return time.NewTimer(delay)
}

func healthTimerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (sv *Supervisor) runHealthcheck() bool {
	if len(sv.cfg.HealthcheckCmd) == 0 {
		return true
	}
	c := exec.Command(sv.cfg.HealthcheckCmd[0], sv.cfg.HealthcheckCmd[1:]...)
	return c.Run() == nil
}

func (sv *Supervisor) runUnhealthyHook() {
	if len(sv.cfg.UnhealthyCmd) == 0 {
		return
	}
	c := exec.Command(sv.cfg.UnhealthyCmd[0], sv.cfg.UnhealthyCmd[1:]...)
	if err := c.Run(); err != nil {
		sv.lg.Warn("unhealthy hook failed", rclog.KV("name", sv.cfg.Name), rclog.KVErr(err))
	}
}

func openAppend(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
}

func splitArgs(execLine string) ([]string, error) {
	fields := strings.Fields(execLine)
	if len(fields) == 0 {
		return nil, ErrEmptyExec
	}
	return fields, nil
}
