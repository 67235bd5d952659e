package cli

import (
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrlokans/shelfshare/internal/auth"
	"github.com/mrlokans/shelfshare/internal/config"
	"github.com/mrlokans/shelfshare/internal/database"
)

// CreateAdminCommand creates an approved administrator account, bypassing
// signup approval. Used to bootstrap a fresh install.
type CreateAdminCommand struct {
	DatabasePath string
	Email        string
	Name         string
	BcryptCost   int

	// ReadPassword prompts for the password. Defaults to a masked terminal read.
	ReadPassword func(prompt string) (string, error)
	Out          io.Writer
}

func newCreateAdminCommand() *cobra.Command {
	cfg := config.NewConfig()
	c := &CreateAdminCommand{BcryptCost: cfg.Auth.BcryptCost}

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Out = cmd.OutOrStdout()
			return c.Run()
		},
	}
	cmd.Flags().StringVar(&c.DatabasePath, "db", cfg.Database.Path, "Path to the database file")
	cmd.Flags().StringVar(&c.Email, "email", "", "Administrator email (required)")
	cmd.Flags().StringVar(&c.Name, "name", "", "Display name (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (c *CreateAdminCommand) Run() error {
	read := c.ReadPassword
	if read == nil {
		read = readTerminalPassword
	}
	out := c.Out
	if out == nil {
		out = io.Discard
	}

	password, err := read("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	confirm, err := read("Confirm password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	db, err := database.NewDatabase(c.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	service := auth.NewService(db.DB, config.Auth{BcryptCost: c.BcryptCost}, nil, nil)
	user, err := service.CreateAdmin(c.Email, c.Name, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Created administrator %s (id %d)\n", user.Email, user.ID)
	return nil
}

func readTerminalPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
