package lifecycle

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"leaseflow/internal/common/metrics"
	"leaseflow/internal/models"
)

// ExpireStaleDrafts withdraws every draft older than maxAgeDays. Drafts
// are processed with bounded parallelism and each one independently: a
// failure on one (a concurrent edit, for instance) is logged and skipped
// without aborting the sweep. Returns the number successfully withdrawn.
func (o *Orchestrator) ExpireStaleDrafts(ctx context.Context, maxAgeDays int) (int, error) {
	ctx, span := o.tracer.Start(ctx, "lifecycle.ExpireStaleDrafts")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.OperationDuration.WithLabelValues("expire_stale_drafts").Observe(time.Since(start).Seconds())
	}()

	cutoff := o.now().AddDate(0, 0, -maxAgeDays)
	ids, err := o.repo.ListStaleDrafts(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var expired atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(o.expiryConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := o.RequestStatusChange(ctx, id, models.StatusWithdrawn, SystemActorID, models.RoleSystem, ChangeOptions{
				Reason:  "draft expired after inactivity",
				Expired: true,
			})
			if err != nil {
				o.logger.Warn("stale draft not expired", map[string]interface{}{
					"applicationId": id,
					"error":         err.Error(),
				})
				return nil
			}
			expired.Add(1)
			metrics.DraftsExpired.Inc()
			return nil
		})
	}
	_ = g.Wait()

	count := int(expired.Load())
	o.logger.Info("stale draft sweep finished", map[string]interface{}{
		"candidates": len(ids),
		"expired":    count,
		"cutoff":     cutoff.Format(time.RFC3339),
	})
	return count, nil
}
