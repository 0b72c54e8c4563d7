/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package statestore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/renameio"

	"github.com/coreinit/rc/procfind"
)

// Daemon is one recorded (exec, name, pidfile) tuple for a service, per
// §3.4's daemons/<svc>/ directory.
type Daemon struct {
	Exec    string
	Name    string
	Pidfile string
}

// DaemonRecord implements daemon_record(svc, tuple, present) of §4.3.1. A
// present record is appended under the next ordinal file name
// (001, 002, …) so daemons/<svc>/ preserves declaration order; a withdrawn
// record removes the first file whose tuple matches.
func (s *Store) DaemonRecord(svc string, d Daemon, present bool) error {
	dir := filepath.Join(s.path("daemons"), svc)
	if present {
		if err := mkdirAll(dir); err != nil {
			return err
		}
		n, err := nextOrdinal(dir)
		if err != nil {
			return err
		}
		return writeDaemonFile(filepath.Join(dir, fmt.Sprintf("%03d", n)), d)
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		got, err := readDaemonFile(p)
		if err != nil {
			continue
		}
		if got == d {
			return os.Remove(p)
		}
	}
	return nil
}

// Daemons lists the recorded tuples for svc in ordinal order.
func (s *Store) Daemons(svc string) ([]Daemon, error) {
	dir := filepath.Join(s.path("daemons"), svc)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	out := make([]Daemon, 0, len(names))
	for _, n := range names {
		d, err := readDaemonFile(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// DaemonCrashed implements daemon_crashed(svc) of §4.3.1: true iff any
// recorded daemon has no matching live process, determined via its
// pidfile when present, or by a /proc scan against its exec/name tuple
// otherwise (§4.1's "pidfile / /proc scans").
func (s *Store) DaemonCrashed(svc string) (bool, error) {
	daemons, err := s.Daemons(svc)
	if err != nil {
		return false, err
	}
	for _, d := range daemons {
		if d.Pidfile != "" {
			pid, err := readPidfile(d.Pidfile)
			if err != nil {
				return true, nil
			}
			if !processAlive(pid) {
				return true, nil
			}
			continue
		}
		alive, err := execOrNameAlive(d)
		if err != nil {
			return false, err
		}
		if !alive {
			return true, nil
		}
	}
	return false, nil
}

// execOrNameAlive scans /proc for a process matching d's exec path or
// argv0 when no pidfile was recorded for it. A daemon with neither field
// set cannot be matched at all and is treated as alive, since there is
// nothing to declare crashed against.
func execOrNameAlive(d Daemon) (bool, error) {
	q := procfind.Query{Exec: d.Exec, Argv0: d.Name}
	if q.Exec == "" && q.Argv0 == "" {
		return true, nil
	}
	pids, err := procfind.Find(q)
	if err != nil {
		return false, err
	}
	return len(pids) > 0, nil
}

func nextOrdinal(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, e := range entries {
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

func writeDaemonFile(path string, d Daemon) error {
	content := d.Exec + "\n" + d.Name + "\n" + d.Pidfile + "\n"
	return renameio.WriteFile(path, []byte(content), 0644)
}

func readDaemonFile(path string) (Daemon, error) {
	f, err := os.Open(path)
	if err != nil {
		return Daemon{}, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	var lines [3]string
	for i := 0; i < 3 && sc.Scan(); i++ {
		lines[i] = sc.Text()
	}
	return Daemon{Exec: lines[0], Name: lines[1], Pidfile: lines[2]}, sc.Err()
}

func readPidfile(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
