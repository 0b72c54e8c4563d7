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
	"syscall"

	"github.com/coreinit/rc/procfind"
	"github.com/coreinit/rc/stopschedule"
)

func defaultKillSchedule() *stopschedule.Schedule {
	return stopschedule.Default()
}

// pidTarget adapts a single tracked PID into stopschedule.Targets.
type pidTarget struct {
	pid int
}

// Alive confirms the tracked pid is still live via a /proc lookup (§4.1)
// rather than a bare signal-0 probe. Only the pid is matched, so a recycled
// pid that now belongs to an unrelated process still counts as alive.
func (p pidTarget) Alive() []int {
	pids, err := procfind.Find(procfind.Query{PID: p.pid, HasPID: true})
	if err != nil {
		return nil
	}
	return pids
}

func (p pidTarget) Signal(sig syscall.Signal) error {
	proc, err := os.FindProcess(p.pid)
	if err != nil {
		return err
	}
	return proc.Signal(sig)
}

// runStopSchedule interprets sched against pid, used both by the control
// FIFO's "stop" command and by a failed health check (§4.6 treats the
// latter as a respawn trigger once the schedule completes).
func runStopSchedule(pid int, sched *stopschedule.Schedule) bool {
	return stopschedule.Run(context.Background(), sched, pidTarget{pid: pid}, false)
}
