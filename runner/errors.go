/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package runner executes a single (service, action) request: resolving
// the script, acquiring the exclusive lock, walking dependencies, running
// the shell payload, and recording the resulting state — §4.4's service
// runner.
package runner

import "errors"

var (
	ErrAlreadyRunning   = errors.New("service busy: exclusive lock held")
	ErrBrokenDependency = errors.New("a hard dependency is broken or failed")
	ErrScheduled        = errors.New("start deferred: a dependency ended inactive")
	ErrUnknownService   = errors.New("service has no registered script")
	ErrPayloadFailed    = errors.New("service payload returned non-zero")
	ErrDependantsUp     = errors.New("dependants still running")
	ErrHotplugBlocked   = errors.New("service not in plug_services, hotplug start refused")
)
