/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package supervisor

import (
	"os"
	"strconv"
	"syscall"

	"github.com/coreinit/rc/statestore"
)

// persistForReexec writes the exec line, the control FIFO path and
// respawn_max to options/<svc>/<key> before a SIGHUP reexec; LoadPersisted
// reads them back after the process image is replaced.
func (sv *Supervisor) persistForReexec(store *statestore.Store) error {
	if err := store.SetOption(sv.cfg.Name, "exec", sv.cfg.Exec); err != nil {
		return err
	}
	if err := store.SetOption(sv.cfg.Name, "fifo", sv.cfg.ControlFIFOPath); err != nil {
		return err
	}
	return store.SetOption(sv.cfg.Name, "respawn_max", strconv.Itoa(sv.cfg.RespawnMax))
}

// Reexec implements §4.6's "Reexec" behavior: on SIGHUP, persist enough of
// the running configuration to the options store that a freshly exec'd
// image of this same binary can resume supervising the same daemon
// without a gap, then replace the process image with argv plus --reexec.
func (sv *Supervisor) Reexec(store *statestore.Store) error {
	if err := sv.persistForReexec(store); err != nil {
		return err
	}
	argv := append(append([]string{}, os.Args...), "--reexec")
	return syscall.Exec(os.Args[0], argv, os.Environ())
}

// LoadPersisted reconstructs the minimal Config fields a --reexec'd
// process needs from the options store, to be merged with the full
// service-script-derived Config the caller already has.
func LoadPersisted(store *statestore.Store, svc string) (execLine, fifoPath string, respawnMax int) {
	execLine, _ = store.GetOption(svc, "exec")
	fifoPath, _ = store.GetOption(svc, "fifo")
	if v, ok := store.GetOption(svc, "respawn_max"); ok {
		respawnMax, _ = strconv.Atoi(v)
	}
	return
}
