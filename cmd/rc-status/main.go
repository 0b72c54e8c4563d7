/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command rc-status prints the state of every known service, optionally
// filtered to one runlevel's membership.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/coreinit/rc/bootstrap"
	"github.com/coreinit/rc/statestore"
)

type row struct {
	service     string
	state       statestore.PrimaryState
	hotplugged  bool
	wasInactive bool
	crashed     bool
	scheduled   bool
}

func main() {
	var (
		confPath   = flag.String("conf", "/etc/rc.conf", "path to the manager configuration file")
		overlayDir = flag.String("conf-d", "/etc/rc.conf.d", "directory of configuration overlay fragments")
		runlevel   = flag.String("runlevel", "", "limit the listing to this runlevel's members")
		format     = flag.String("format", "plain", "output format: plain, table")
	)
	flag.Parse()

	env, err := bootstrap.Load(*confPath, *overlayDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rc-status: startup: %v\n", err)
		os.Exit(1)
	}

	level, err := env.Store.Softlevel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rc-status: reading softlevel: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Runlevel: %s\n", level)

	var names []string
	if *runlevel != "" {
		names = env.RM.Members(*runlevel)
	} else {
		for svc := range env.Tree.Services {
			names = append(names, svc)
		}
	}
	sort.Strings(names)

	rows := make([]row, 0, len(names))
	for _, svc := range names {
		res, err := env.Store.Query(svc)
		if err != nil {
			fmt.Printf(" %-20s error: %v\n", svc, err)
			continue
		}
		rows = append(rows, row{
			service: svc, state: res.State,
			hotplugged: res.Flags.Hotplugged, wasInactive: res.Flags.WasInactive,
			crashed: res.Flags.Crashed, scheduled: res.Flags.Scheduled,
		})
	}

	switch *format {
	case "table":
		fmt.Println(renderTable(rows))
	default:
		for _, r := range rows {
			fmt.Printf(" %-20s %s%s\n", r.service, statusGlyph(r.state), flagSuffix(r))
		}
	}
}

func statusGlyph(s statestore.PrimaryState) string {
	switch s {
	case statestore.Started:
		return "started"
	case statestore.Starting:
		return "starting"
	case statestore.Stopping:
		return "stopping"
	case statestore.Inactive:
		return "inactive"
	case statestore.Failed:
		return "failed"
	default:
		return "stopped"
	}
}

func flagSuffix(r row) string {
	s := ""
	if r.hotplugged {
		s += "  [hotplugged]"
	}
	if r.wasInactive {
		s += "  [was-inactive]"
	}
	if r.crashed {
		s += "  [crashed]"
	}
	if r.scheduled {
		s += "  [scheduled]"
	}
	return s
}

