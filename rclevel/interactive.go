/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package rclevel

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/gdamore/tcell/v2"
)

// Decision is the operator's answer to an interactive per-service pause.
type Decision int

const (
	DecisionContinue Decision = iota
	DecisionSkip
	DecisionShell
)

// Interactive drives the single-keystroke skip/continue/shell pause between
// services during a transition, enabled by rc's -interactive flag. It owns a tcell screen only while Prompt is
// being answered; the rest of the time the terminal is left alone so the
// service scripts being run can use it freely.
type Interactive struct {
	ShellPath string // shell to exec for DecisionShell, default /bin/sh
}

// Prompt draws one status line, waits for a single keystroke, and returns
// the operator's decision. Any screen-construction failure (no controlling
// tty, e.g. when running unattended) is treated as "continue" so a driver
// started without a terminal never hangs.
func (i *Interactive) Prompt(svc string, a action) Decision {
	screen, err := tcell.NewScreen()
	if err != nil {
		return DecisionContinue
	}
	if err := screen.Init(); err != nil {
		return DecisionContinue
	}
	defer screen.Fini()

	verb := "starting"
	if a == actionStop {
		verb = "stopping"
	}
	msg := fmt.Sprintf("%s %s — [enter] continue  [s] skip  [!] shell", verb, svc)
	drawLine(screen, msg)
	screen.Show()

	for {
		ev := screen.PollEvent()
		key, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		switch {
		case key.Key() == tcell.KeyEnter:
			return DecisionContinue
		case key.Rune() == 's' || key.Rune() == 'S':
			return DecisionSkip
		case key.Rune() == '!':
			return DecisionShell
		case key.Key() == tcell.KeyCtrlC:
			return DecisionContinue
		}
	}
}

func drawLine(screen tcell.Screen, msg string) {
	screen.Clear()
	style := tcell.StyleDefault
	for x, r := range msg {
		screen.SetContent(x, 0, r, nil, style)
	}
}

// Shell execs an interactive shell in the foreground, returning control to
// the driver once it exits.
func (i *Interactive) Shell(svc string) {
	sh := i.ShellPath
	if sh == "" {
		sh = "/bin/sh"
	}
	cmd := exec.Command(sh)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	cmd.Env = append(os.Environ(), "RC_SVCNAME="+svc)
	cmd.Run()
}
