/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package supervisor

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// maxFIFOLine bounds a single control command per §6.4.
const maxFIFOLine = 2048

// Command is one parsed control-FIFO instruction (§4.6's "Control FIFO
// protocol").
type Command struct {
	Stop   bool
	Signal syscall.Signal
	HasSig bool
}

// openControlFIFO creates (if absent) and opens path as a named FIFO,
// returning a read handle. The FIFO is opened O_RDWR so the read end never
// observes EOF when no writer is currently connected — mirrored from the
// usual control-pipe idiom for long-lived supervisors.
func openControlFIFO(path string) (*os.File, error) {
	if err := unix.Mkfifo(path, 0600); err != nil && !os.IsExist(err) {
		return nil, err
	}
	return os.OpenFile(path, os.O_RDWR, 0600)
}

// readCommands streams parsed Commands from the FIFO until it is closed.
// Malformed or unrecognized lines are dropped per §6.4 ("any other input
// is ignored").
func readCommands(f *os.File, out chan<- Command) {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, maxFIFOLine), maxFIFOLine)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		cmd, ok := parseCommand(line)
		if ok {
			out <- cmd
		}
	}
}

func parseCommand(line string) (Command, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, false
	}
	switch fields[0] {
	case "stop":
		return Command{Stop: true}, true
	case "sig":
		if len(fields) != 2 {
			return Command{}, false
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return Command{}, false
		}
		return Command{Signal: syscall.Signal(n), HasSig: true}, true
	default:
		return Command{}, false
	}
}

// writeCommand is the client-side helper for sending a command into a
// running supervisor's control FIFO (used by SendStop and SendSignal).
func writeCommand(path string, line string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("opening control fifo %s: %w", path, err)
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

// SendStop writes a "stop" command to the control FIFO at path, for
// external callers that need to ask a running
// supervisor to shut its daemon down without killing the supervisor
// itself.
func SendStop(path string) error {
	return writeCommand(path, "stop")
}

// SendSignal writes a "sig <n>" command to the control FIFO at path.
func SendSignal(path string, sig syscall.Signal) error {
	return writeCommand(path, fmt.Sprintf("sig %d", int(sig)))
}
