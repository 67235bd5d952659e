package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrlokans/shelfshare/internal/config"
	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/database/invitations"
	"github.com/mrlokans/shelfshare/internal/database/locations"
	"github.com/mrlokans/shelfshare/internal/database/users"
	"github.com/mrlokans/shelfshare/internal/services"
)

// PurgeInvitationsCommand deletes accepted, revoked and expired invitations
// older than the retention window. The server runs the same purge on its
// maintenance schedule.
type PurgeInvitationsCommand struct {
	DatabasePath string
	Retention    time.Duration
	Out          io.Writer
}

func newPurgeInvitationsCommand() *cobra.Command {
	cfg := config.NewConfig()
	c := &PurgeInvitationsCommand{}

	cmd := &cobra.Command{
		Use:   "purge-invitations",
		Short: "Delete spent invitations older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Out = cmd.OutOrStdout()
			return c.Run()
		},
	}
	cmd.Flags().StringVar(&c.DatabasePath, "db", cfg.Database.Path, "Path to the database file")
	cmd.Flags().DurationVar(&c.Retention, "retention", cfg.Invitations.Retention, "Keep spent invitations newer than this")
	return cmd
}

func (c *PurgeInvitationsCommand) Run() error {
	if c.Retention < 0 {
		return fmt.Errorf("retention must not be negative")
	}
	out := c.Out
	if out == nil {
		out = io.Discard
	}

	db, err := database.NewDatabase(c.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	service := services.NewInvitationService(
		invitations.NewRepository(db.DB),
		locations.NewRepository(db.DB),
		users.NewRepository(db.DB),
		nil, nil, 0,
	)
	deleted, err := service.Purge(c.Retention)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Purged %d invitation(s)\n", deleted)
	return nil
}
