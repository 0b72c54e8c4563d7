/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

//go:build linux

package procfind

import (
	"bytes"
	"os"
	"strconv"
	"strings"
)

type procInfo struct {
	pid     int
	uid     int
	exe     string
	comm    string
	cmdline []string
}

func listPIDs() ([]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	var pids []int
	for _, e := range entries {
		if pid, err := strconv.Atoi(e.Name()); err == nil {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

func readProc(pid int) (procInfo, error) {
	base := "/proc/" + strconv.Itoa(pid)

	exe, err := os.Readlink(base + "/exe")
	if err != nil {
		// Some processes (kernel threads, or a caller lacking ptrace
		// permission) have no readable exe link; treat as empty rather
		// than failing the whole lookup, matching callers that still
		// want comm/cmdline to work.
		exe = ""
	}
	exe = strings.TrimSuffix(exe, " (deleted)")

	statBytes, err := os.ReadFile(base + "/stat")
	if err != nil {
		return procInfo{}, err
	}
	comm := parseComm(statBytes)

	cmdlineBytes, err := os.ReadFile(base + "/cmdline")
	if err != nil {
		cmdlineBytes = nil
	}
	cmdline := splitCmdline(cmdlineBytes)

	fi, err := os.Stat(base)
	if err != nil {
		return procInfo{}, err
	}
	uid := statUID(fi)

	return procInfo{pid: pid, uid: uid, exe: exe, comm: comm, cmdline: cmdline}, nil
}

// parseComm extracts the comm field from /proc/<pid>/stat, which wraps it
// in parentheses and may itself contain spaces or further parentheses —
// so it parses from the last ')' rather than naively splitting on spaces.
func parseComm(stat []byte) string {
	open := bytes.IndexByte(stat, '(')
	close := bytes.LastIndexByte(stat, ')')
	if open < 0 || close < 0 || close < open {
		return ""
	}
	return string(stat[open+1 : close])
}

func splitCmdline(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	parts := bytes.Split(bytes.TrimRight(b, "\x00"), []byte{0})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, string(p))
	}
	return out
}
