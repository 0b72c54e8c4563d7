/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package runner

import (
	"bytes"
	"os"
	"os/exec"

	"github.com/coreinit/rc/rclog"
)

// lineLogger adapts a *rclog.Logger into an io.Writer that emits one log
// record per line, tagging every record with the service name so captured
// payload output interleaves legibly with the runner's own records.
type lineLogger struct {
	lg      *rclog.Logger
	svc     string
	warn    bool
	partial bytes.Buffer
}

func (w *lineLogger) Write(b []byte) (int, error) {
	w.partial.Write(b)
	for {
		line, err := w.partial.ReadString('\n')
		if err != nil {
			// incomplete line: push back what ReadString already drained
			// and wait for more input.
			w.partial.Reset()
			w.partial.WriteString(line)
			break
		}
		line = line[:len(line)-1]
		if w.warn {
			w.lg.Warn(line, rclog.KV("service", w.svc))
		} else {
			w.lg.Info(line, rclog.KV("service", w.svc))
		}
	}
	return len(b), nil
}

// runPayload invokes the service script's verb (start, stop, healthcheck,
// unhealthy, …) the way the shell helper does, with RC_SVCNAME and the
// background/hotplug hints of §6.2 set in its environment and its
// stdout/stderr captured into lg. background propagates only to this one
// invocation — a caller driving dependencies clears it before recursing,
// per §4.4 point 6.
func runPayload(lg *rclog.Logger, scriptPath, verb, svc string, background, hotplug bool) error {
	cmd := exec.Command(scriptPath, verb)
	env := append(os.Environ(), "RC_SVCNAME="+svc)
	if background {
		env = append(env, "IN_BACKGROUND=1")
	}
	if hotplug {
		env = append(env, "IN_HOTPLUG=1")
	}
	cmd.Env = env
	cmd.Stdout = &lineLogger{lg: lg, svc: svc}
	cmd.Stderr = &lineLogger{lg: lg, svc: svc, warn: true}
	return cmd.Run()
}
