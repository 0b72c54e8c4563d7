/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

//go:build linux

package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// buildSysProcAttr sets the pre-fork attributes os/exec supports natively:
// process group, chroot, and credential switch. Everything else in §4.6's
// environment list (nicelevel, ionice, oom_score_adj, scheduler+priority)
// has no os/exec equivalent and is applied to the live child after Start
// by applyPostStartResources, matching how a double-forking supervisor
// written in C would apply them between fork and exec.
func buildSysProcAttr(cfg Config) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{Setpgid: true}
	if cfg.Chroot != "" {
		attr.Chroot = cfg.Chroot
	}
	if cfg.HasCred {
		attr.Credential = &syscall.Credential{Uid: uint32(cfg.UID), Gid: uint32(cfg.GID)}
	}
	return attr
}

// applyPostStartResources applies the resource controls that only take
// effect against a live PID: niceness, I/O scheduling class, the OOM
// killer score adjustment, and the CPU scheduling policy/priority.
func applyPostStartResources(cmd *exec.Cmd, cfg Config) error {
	pid := cmd.Process.Pid

	if cfg.HasNice {
		if err := unix.Setpriority(unix.PRIO_PROCESS, pid, cfg.Nicelevel); err != nil {
			return fmt.Errorf("setpriority: %w", err)
		}
	}
	if cfg.HasIOPrio {
		if err := setIOPrio(pid, cfg.IOClass, cfg.IOData); err != nil {
			return fmt.Errorf("ioprio_set: %w", err)
		}
	}
	if cfg.HasOOMAdj {
		if err := os.WriteFile(fmt.Sprintf("/proc/%d/oom_score_adj", pid), []byte(fmt.Sprintf("%d", cfg.OOMScoreAdj)), 0644); err != nil {
			return fmt.Errorf("oom_score_adj: %w", err)
		}
	}
	if cfg.HasSched {
		param := unix.SchedParam{Priority: int32(cfg.SchedPrio)}
		if err := unix.SchedSetscheduler(pid, cfg.SchedPolicy, &param); err != nil {
			return fmt.Errorf("sched_setscheduler: %w", err)
		}
	}
	return nil
}

// ioprioWhoProcess and the class-shift conventions are taken from
// linux/ioprio.h; golang.org/x/sys does not wrap ioprio_set directly on
// every platform version, so the syscall is issued manually.
const (
	ioprioWhoProcess = 1
	ioprioClassShift = 13
)

func setIOPrio(pid, class, data int) error {
	value := (class << ioprioClassShift) | (data & 0xff)
	_, _, errno := unix.Syscall(unix.SYS_IOPRIO_SET, uintptr(ioprioWhoProcess), uintptr(pid), uintptr(value))
	if errno != 0 {
		return errno
	}
	return nil
}

// applyNoNewPrivs sets PR_SET_NO_NEW_PRIVS on the calling process. Nothing
// calls it: os/exec offers no hook between fork and exec, and neither
// Config.NoNewPrivs nor Config.Secbits is applied to the daemon.
func applyNoNewPrivs() error {
	return unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0)
}
