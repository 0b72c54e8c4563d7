/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package statestore

import (
	"os"
	"path/filepath"
)

// SetOption implements the options/<svc>/<k> store of §3.4: an arbitrary
// per-service key/value pair, written atomically.
func (s *Store) SetOption(svc, key, value string) error {
	dir := filepath.Join(s.path("options"), svc)
	if err := mkdirAll(dir); err != nil {
		return err
	}
	tmp := filepath.Join(dir, "."+key+".tmp")
	if err := os.WriteFile(tmp, []byte(value), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, key))
}

// GetOption returns the stored value, or ("", false) if unset.
func (s *Store) GetOption(svc, key string) (string, bool) {
	b, err := os.ReadFile(filepath.Join(s.path("options"), svc, key))
	if err != nil {
		return "", false
	}
	return string(b), true
}

// ClearOption removes a single stored key.
func (s *Store) ClearOption(svc, key string) error {
	err := os.Remove(filepath.Join(s.path("options"), svc, key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
