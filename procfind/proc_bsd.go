/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

//go:build darwin || freebsd || netbsd || openbsd

package procfind

import "errors"

var errKvmUnavailable = errors.New("kvm_getprocs binding not available")

// BSD process enumeration goes through kvm_getprocs via cgo in the
// reference implementation. That binding isn't wired up here; listPIDs
// always reports ErrCannotFindPids so callers take the "inconclusive,
// don't mis-kill" path of §5/§7 rather than silently matching nothing.
type procInfo struct {
	pid     int
	uid     int
	exe     string
	comm    string
	cmdline []string
}

func listPIDs() ([]int, error) {
	return nil, errKvmUnavailable
}

func readProc(pid int) (procInfo, error) {
	return procInfo{}, errKvmUnavailable
}
