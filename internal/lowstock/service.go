package lowstock

import (
	"context"

	"markethub-be/internal/events"
	"markethub-be/internal/logger"
	"markethub-be/internal/metrics"

	"go.uber.org/zap"
)

const producerName = "markethub-worker"

// Checker runs the periodic low-stock sweep. A sweep walks every
// tracked item, opens an alert the first time quantity falls to or
// below the threshold, refreshes the quantity on open alerts, and
// resolves alerts whose item has recovered.
type Checker interface {
	Sweep(ctx context.Context) (SweepResult, error)
	MarkNotified(ctx context.Context, alertID int64) error
	ListAlerts(ctx context.Context, status *AlertStatus, limit, offset int32) ([]*Alert, error)
}

type SweepResult struct {
	Scanned  int
	Opened   int
	Resolved int
}

type checker struct {
	repo      Repository
	publisher events.Publisher
}

func NewChecker(repo Repository, publisher events.Publisher) Checker {
	return &checker{repo: repo, publisher: publisher}
}

func (c *checker) Sweep(ctx context.Context) (SweepResult, error) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "service"), zap.String("method", "Sweep"))
	timer := metrics.StartTimer()

	candidates, err := c.repo.ListCandidates(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Scanned: len(candidates)}
	for _, cand := range candidates {
		open, err := c.repo.FindOpenAlert(ctx, cand.Item)
		if err != nil {
			return result, err
		}

		switch {
		case cand.Low() && open == nil:
			alert, err := c.repo.CreateAlert(ctx, cand.Item, cand.Available, cand.Threshold)
			if err != nil {
				return result, err
			}
			result.Opened++
			log.Info("low stock alert opened",
				zap.String("item", cand.Item.String()),
				zap.Int64("available", cand.Available),
				zap.Int64("threshold", cand.Threshold),
			)
			c.publishDetected(ctx, alert)

		case cand.Low():
			// An open alert suppresses duplicates; keep its quantity fresh.
			if open.CurrentQuantity != cand.Available {
				if err := c.repo.UpdateQuantity(ctx, open.ID, cand.Available); err != nil {
					return result, err
				}
			}

		case open != nil:
			if err := c.repo.MarkResolved(ctx, open.ID); err != nil {
				return result, err
			}
			result.Resolved++
			log.Info("low stock alert resolved",
				zap.String("item", cand.Item.String()),
				zap.Int64("available", cand.Available),
			)
		}
	}

	log.Debug("sweep finished", zap.Duration("took", timer.Duration()))
	return result, nil
}

func (c *checker) publishDetected(ctx context.Context, alert *Alert) {
	env, err := events.NewEnvelope(producerName, events.EventLowStockDetected, events.LowStockDetectedPayload{
		ItemType:        string(alert.Item.Kind),
		ItemID:          alert.Item.ID,
		CurrentQuantity: alert.CurrentQuantity,
		Threshold:       alert.Threshold,
	})
	if err != nil {
		logger.FromCtx(ctx).Error("failed to build event", zap.Error(err))
		return
	}
	c.publisher.Publish(ctx, env)
}

func (c *checker) MarkNotified(ctx context.Context, alertID int64) error {
	return c.repo.MarkNotified(ctx, alertID)
}

func (c *checker) ListAlerts(ctx context.Context, status *AlertStatus, limit, offset int32) ([]*Alert, error) {
	return c.repo.ListAlerts(ctx, status, limit, offset)
}
