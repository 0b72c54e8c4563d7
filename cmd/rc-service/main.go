/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command rc-service runs a single named action against one service,
// outside of any runlevel transition: start, stop, restart, zap, or status
// (§4.3, §4.4).
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/coreinit/rc/bootstrap"
	"github.com/coreinit/rc/runner"
	"github.com/coreinit/rc/statestore"
)

func main() {
	var (
		confPath   = flag.String("conf", "/etc/rc.conf", "path to the manager configuration file")
		overlayDir = flag.String("conf-d", "/etc/rc.conf.d", "directory of configuration overlay fragments")
		background = flag.Bool("background", false, "treat the start as backgrounded (--background)")
		runlevel   = flag.String("runlevel", "", "runlevel context for dependency resolution (defaults to the current softlevel)")
		hotplug    = flag.Bool("hotplug", false, "treat a start as an IN_HOTPLUG event, gated by plug_services")
	)
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: rc-service [flags] <service> <start|stop|restart|zap|status>")
		os.Exit(2)
	}
	svc, action := flag.Arg(0), flag.Arg(1)

	env, err := bootstrap.Load(*confPath, *overlayDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rc-service: startup: %v\n", err)
		os.Exit(1)
	}

	level := *runlevel
	if level == "" {
		level, _ = env.Store.Softlevel()
	}

	r := &runner.Runner{
		Tree: env.Tree, Store: env.Store, RM: env.RM,
		Runlevel: level, Bootlevel: env.Cfg.Bootlevel, Logger: env.Log,
		HotplugGate: env.Cfg,
	}

	var runErr error
	switch action {
	case "start":
		if *hotplug {
			runErr = r.StartHotplug(svc)
		} else {
			runErr = r.Start(svc, *background)
		}
	case "stop":
		runErr = r.Stop(svc, *background)
	case "restart":
		if runErr = r.Stop(svc, *background); runErr == nil {
			runErr = r.Start(svc, *background)
		}
	case "zap":
		runErr = env.Store.Mark(svc, "", statestore.Stopped)
	case "status":
		runErr = printStatus(env.Store, svc)
	default:
		fmt.Fprintf(os.Stderr, "rc-service: unknown action %q\n", action)
		os.Exit(2)
	}

	if runErr != nil {
		if errors.Is(runErr, runner.ErrScheduled) {
			fmt.Printf("%s: start deferred, waiting on an inactive dependency\n", svc)
			return
		}
		fmt.Fprintf(os.Stderr, "rc-service: %s %s: %v\n", action, svc, runErr)
		os.Exit(1)
	}
}

func printStatus(store *statestore.Store, svc string) error {
	res, err := store.Query(svc)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s", svc, res.State)
	if res.Flags.Hotplugged {
		fmt.Print(" [hotplugged]")
	}
	if res.Flags.WasInactive {
		fmt.Print(" [was-inactive]")
	}
	if res.Flags.Crashed {
		fmt.Print(" [crashed]")
	}
	if res.Flags.Scheduled {
		fmt.Print(" [scheduled]")
	}
	fmt.Println()
	return nil
}
