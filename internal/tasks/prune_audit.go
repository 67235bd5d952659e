package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/logging"
)

const (
	defaultAuditRetentionDays = 90

	// The last week of the trail always survives pruning.
	minAuditRetentionDays = 7
)

// AuditPruner deletes audit trail entries older than a retention window.
type AuditPruner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// PruneAuditTrailTask trims the circulation, membership and signup history
// recorded by the audit service. Zero RetentionDays means the default.
type PruneAuditTrailTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t PruneAuditTrailTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "prune_audit_trail",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func (t PruneAuditTrailTask) retentionDays() int {
	switch {
	case t.RetentionDays <= 0:
		return defaultAuditRetentionDays
	case t.RetentionDays < minAuditRetentionDays:
		return minAuditRetentionDays
	default:
		return t.RetentionDays
	}
}

func PruneAuditTrailProcessor(pruner AuditPruner) backlite.QueueProcessor[PruneAuditTrailTask] {
	return func(ctx context.Context, task PruneAuditTrailTask) error {
		if pruner == nil {
			return fmt.Errorf("audit pruner not configured")
		}
		days := task.retentionDays()
		pruned, err := pruner.DeleteOldEvents(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("prune audit trail: %w", err)
		}
		logging.Component("tasks").WithFields(logrus.Fields{
			"pruned":         pruned,
			"retention_days": days,
		}).Info("audit trail pruned")
		return nil
	}
}

func NewPruneAuditTrailQueue(pruner AuditPruner) backlite.Queue {
	return backlite.NewQueue(PruneAuditTrailProcessor(pruner))
}
