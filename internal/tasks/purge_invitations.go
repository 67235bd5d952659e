package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/logging"
)

// InvitationPurger deletes invitations that were used or expired long ago.
type InvitationPurger interface {
	Purge(retention time.Duration) (int64, error)
}

// PurgeInvitationsTask removes spent invitations older than Retention.
type PurgeInvitationsTask struct {
	Retention time.Duration `json:"retention"`
}

func (t PurgeInvitationsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_invitations",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func PurgeInvitationsProcessor(purger InvitationPurger) backlite.QueueProcessor[PurgeInvitationsTask] {
	return func(ctx context.Context, task PurgeInvitationsTask) error {
		if purger == nil {
			return fmt.Errorf("invitation purger not configured")
		}
		retention := task.Retention
		if retention <= 0 {
			retention = 30 * 24 * time.Hour
		}
		purged, err := purger.Purge(retention)
		if err != nil {
			return fmt.Errorf("purge invitations: %w", err)
		}
		logging.Component("tasks").WithFields(logrus.Fields{
			"purged":    purged,
			"retention": retention.String(),
		}).Info("invitations purged")
		return nil
	}
}

func NewPurgeInvitationsQueue(purger InvitationPurger) backlite.Queue {
	return backlite.NewQueue(PurgeInvitationsProcessor(purger))
}
