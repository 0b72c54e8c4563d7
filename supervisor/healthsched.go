/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package supervisor

import (
	"time"

	"github.com/robfig/cron/v3"
)

// healthSchedule computes the delay until the next health check. A plain
// fixed-interval Config.HealthcheckTimer is the common case; a service
// whose on-call hours matter more than a steady cadence (e.g. "only check
// during business hours") can set HealthcheckCron instead to get calendar
// scheduling.
type healthSchedule struct {
	fixed time.Duration
	cron  cron.Schedule
}

func newHealthSchedule(cfg Config) (*healthSchedule, error) {
	if cfg.HealthcheckTimer <= 0 && cfg.HealthcheckCron == "" {
		return nil, nil
	}
	hs := &healthSchedule{fixed: cfg.HealthcheckTimer}
	if cfg.HealthcheckCron != "" {
		sched, err := cron.ParseStandard(cfg.HealthcheckCron)
		if err != nil {
			return nil, err
		}
		hs.cron = sched
	}
	return hs, nil
}

// next returns the duration until the next check should run, from now.
func (hs *healthSchedule) next(now time.Time) time.Duration {
	if hs.cron != nil {
		return hs.cron.Next(now).Sub(now)
	}
	return hs.fixed
}
