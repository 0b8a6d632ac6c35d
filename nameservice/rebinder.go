package nameservice

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cqcsystem/cqcsrv/pkg/cqclog"
	"github.com/cqcsystem/cqcsrv/pkg/cqcmetrics"
)

// Rebinder periodically re-asserts a binding on a cron-style schedule
// (an "@every" interval) rather than a bare ticker, so its cadence is
// expressed and logged the same way the rest of the framework's scheduled
// work is.
type Rebinder struct {
	binder   Binder
	binding  string
	address  string
	ttl      time.Duration
	interval time.Duration
	logger   *cqclog.Logger

	cronRunner *cron.Cron
	entryID    cron.EntryID
}

// NewRebinder builds a Rebinder that re-asserts binding → address every
// interval, with a TTL of three intervals so a single missed tick does not
// expire the binding. The schedule is cron's "@every", which fires on
// whole-second boundaries and runs an interval under one second once a
// second.
func NewRebinder(binder Binder, binding, address string, interval time.Duration, logger *cqclog.Logger) *Rebinder {
	if logger == nil {
		logger = cqclog.NewDefault("nameservice")
	}
	ttl := interval * 3
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &Rebinder{
		binder:   binder,
		binding:  binding,
		address:  address,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
	}
}

// Start registers the initial binding and schedules the recurring
// heartbeat. The entry points in cmd/ call it from their PreBindInit hook;
// the engine's StartRebinder stage does not start a rebinder.
func (r *Rebinder) Start(ctx context.Context) error {
	if err := r.binder.Bind(ctx, r.binding, r.address, r.ttl); err != nil {
		return err
	}

	r.cronRunner = cron.New()
	spec := fmt.Sprintf("@every %s", r.interval.String())
	id, err := r.cronRunner.AddFunc(spec, r.heartbeat)
	if err != nil {
		return err
	}
	r.entryID = id
	r.cronRunner.Start()
	return nil
}

func (r *Rebinder) heartbeat() {
	ctx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
	defer cancel()

	if err := r.binder.Rebind(ctx, r.binding, r.address, r.ttl); err != nil {
		cqcmetrics.RebindAttempts.WithLabelValues("failed").Inc()
		r.logger.ForComponent("nameservice").Warnf("rebind failed for %s: %v", r.binding, err)
		return
	}
	cqcmetrics.RebindAttempts.WithLabelValues("success").Inc()
}

// Stop halts the cron schedule. It does not remove the binding; callers
// remove it explicitly (admin.Server.Shutdown does this under the bounded
// deregistration timeout; the engine's cleanup path does not).
func (r *Rebinder) Stop() {
	if r.cronRunner != nil {
		ctx := r.cronRunner.Stop()
		<-ctx.Done()
	}
}
