/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package supervisor

import "errors"

var (
	ErrRespawnCeiling = errors.New("respawn ceiling exceeded")
	ErrEmptyExec      = errors.New("empty exec line")
)
