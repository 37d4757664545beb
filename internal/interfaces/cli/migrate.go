package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/DockFlow/internal/infrastructure/database/postgres"
	"github.com/turtacn/DockFlow/pkg/errors"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the run history schema",
		Long: `Apply, roll back or inspect the PostgreSQL migrations of the run history.
Requires database.enabled.

Examples:
  dockflow migrate up
  dockflow migrate down 1
  dockflow migrate status
  dockflow migrate force 2`,
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := newMigrator(cmd)
			if err != nil {
				return err
			}
			if err := m.Up(); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}

	down := &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return errors.Newf(errors.ErrCodeValidation, "steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			m, err := newMigrator(cmd)
			if err != nil {
				return err
			}
			if err := m.Rollback(steps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := newMigrator(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := m.Status()
			if err != nil {
				return err
			}
			return PrintResult(cmd, migrationStatus{Version: version, Dirty: dirty})
		},
	}

	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Record a version without running migrations",
		Long:  "Clears the dirty flag after a migration failed half-way and was repaired by hand.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < -1 {
				return errors.Newf(errors.ErrCodeValidation, "invalid version %q", args[0])
			}
			m, err := newMigrator(cmd)
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("schema version forced to %d", version))
			return nil
		},
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}

func newMigrator(cmd *cobra.Command) (*postgres.Migrator, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	if !cliCtx.Config.Database.Enabled {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "run history is disabled (database.enabled)")
	}
	return postgres.NewMigrator(cliCtx.Config.Database.DSN(), cliCtx.Logger), nil
}

type migrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// String implements fmt.Stringer.
func (s migrationStatus) String() string {
	if s.Dirty {
		return fmt.Sprintf("schema version %d (dirty, repair and run migrate force)", s.Version)
	}
	return fmt.Sprintf("schema version %d", s.Version)
}

//Personal.AI order the ending
