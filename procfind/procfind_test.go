/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package procfind

import (
	"os"
	"testing"
)

func TestFindSelfByPIDIsExcluded(t *testing.T) {
	pids, err := Find(Query{PID: os.Getpid(), HasPID: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(pids) != 0 {
		t.Fatalf("expected self-exclusion to hide our own pid, got %v", pids)
	}
}

func TestFindByPIDRespectsOtherConstraints(t *testing.T) {
	pids, err := Find(Query{PID: 1, HasPID: true, Exec: "/definitely/not/a/real/path"})
	if err != nil {
		t.Fatal(err)
	}
	if len(pids) != 0 {
		t.Fatalf("expected no match for a bogus exec constraint, got %v", pids)
	}
}

func TestFindNonexistentPIDReturnsEmptyNotError(t *testing.T) {
	pids, err := Find(Query{PID: 1 << 30, HasPID: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(pids) != 0 {
		t.Fatalf("expected empty for a pid that cannot exist, got %v", pids)
	}
}

func TestExcludedPIDsHonorsEnvToken(t *testing.T) {
	os.Setenv("OPENRC_PID", "1")
	defer os.Unsetenv("OPENRC_PID")
	excl := excludedPIDs()
	if !excl[1] {
		t.Fatal("expected OPENRC_PID to be excluded")
	}
}
