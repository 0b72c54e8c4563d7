/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package rclevel

import "github.com/prometheus/client_golang/prometheus"

var (
	transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rc",
		Subsystem: "runlevel",
		Name:      "transitions_total",
		Help:      "Runlevel transitions attempted, labeled by target level and outcome.",
	}, []string{"level", "outcome"})

	serviceActionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rc",
		Subsystem: "runlevel",
		Name:      "service_action_duration_seconds",
		Help:      "Wall-clock time spent running one service's start/stop action during a transition.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	servicesFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rc",
		Subsystem: "runlevel",
		Name:      "services_failed_total",
		Help:      "Services that ended a transition in the failed state.",
	}, []string{"service"})
)

func init() {
	prometheus.MustRegister(transitionsTotal, serviceActionDuration, servicesFailed)
}
