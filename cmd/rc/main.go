/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command rc drives a full runlevel transition: given a target runlevel it
// loads the dependency tree and current state, computes what must stop and
// what must start, and runs both lists to completion, per §4.5.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/coreinit/rc/bootstrap"
	"github.com/coreinit/rc/rclevel"
	"github.com/coreinit/rc/rclog"
)

func main() {
	var (
		confPath    = flag.String("conf", "/etc/rc.conf", "path to the manager configuration file")
		overlayDir  = flag.String("conf-d", "/etc/rc.conf.d", "directory of configuration overlay fragments")
		interactive = flag.Bool("interactive", false, "pause for skip/continue/shell before each service action")
	)
	flag.Parse()

	target := flag.Arg(0)

	env, err := bootstrap.Load(*confPath, *overlayDir)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	if target == "" {
		target = env.Cfg.DefaultRunlevel
	}

	driver := &rclevel.Driver{
		Tree:      env.Tree,
		Store:     env.Store,
		RM:        env.RM,
		Bootlevel: env.Cfg.Bootlevel,
		Parallel:  env.Cfg.Parallel,
		Logger:    env.Log,
	}
	if *interactive {
		driver.Interactive = &rclevel.Interactive{}
	}

	var cancelled int32
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigCh
		// §5's Cancellation paragraph: propagate SIGTERM to every spawned
		// runner/child and exit non-zero without state cleanup. The driver
		// has no child process group of its own; runner.Stop/Start shell
		// out per service, so reaching them means signalling the process
		// group rc itself belongs to.
		atomic.StoreInt32(&cancelled, 1)
		pgid, err := syscall.Getpgid(0)
		if err == nil {
			syscall.Kill(-pgid, syscall.SIGTERM)
		}
		os.Exit(1)
	}()

	if err := driver.Transition(target); err != nil {
		env.Log.Error("runlevel transition failed", rclog.KV("target", target), rclog.KVErr(err))
		fmt.Fprintf(os.Stderr, "rc: %v\n", err)
		os.Exit(1)
	}
	if atomic.LoadInt32(&cancelled) != 0 {
		os.Exit(1)
	}
}
