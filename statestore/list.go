/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package statestore

import "os"

// Members lists every service symlinked into state's directory.
func (s *Store) Members(state PrimaryState) ([]string, error) {
	entries, err := os.ReadDir(s.stateDir(state))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out, nil
}

// HotplugMembers lists every service currently flagged hotplugged.
func (s *Store) HotplugMembers() ([]string, error) {
	entries, err := os.ReadDir(s.path("hotplugged"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out, nil
}
