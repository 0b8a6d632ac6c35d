// Package cqcmetrics exposes the prometheus collectors shared by the
// lifecycle engine, admin endpoint, and installer, following the teacher's
// convention of package-level registered collectors under infrastructure/.
package cqcmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageTransitions counts each stage's terminal result, labeled by
	// stage name and result (success/retry/failed).
	StageTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cqcsrv_stage_transitions_total",
		Help: "Total lifecycle stage transitions by stage and result.",
	}, []string{"stage", "result"})

	// StageRetries counts retry attempts per stage, separate from
	// StageTransitions so dashboards can chart retry pressure directly.
	StageRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cqcsrv_stage_retries_total",
		Help: "Total lifecycle stage retry attempts by stage.",
	}, []string{"stage"})

	// AdminCalls counts admin endpoint invocations by operation name.
	AdminCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cqcsrv_admin_calls_total",
		Help: "Total admin endpoint calls by operation.",
	}, []string{"op"})

	// InstallRuns counts installer runs by terminal result
	// (committed/rejected/rolled_back).
	InstallRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cqcsrv_install_runs_total",
		Help: "Total installer runs by result.",
	}, []string{"result"})

	// RebindAttempts counts name-service rebind attempts by outcome.
	RebindAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cqcsrv_rebind_attempts_total",
		Help: "Total name-service rebind attempts by outcome.",
	}, []string{"outcome"})
)
