/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package statestore

import "errors"

var (
	ErrAlreadyExclusive = errors.New("service already holds the exclusive lock")
	ErrNotHolder        = errors.New("release attempted by a non-holder")
	ErrWaitTimeout      = errors.New("timed out waiting for exclusive lock to clear")
	ErrUnknownService   = errors.New("no script registered for service")
	ErrInvalidStateRoot = errors.New("invalid state store root")
)
