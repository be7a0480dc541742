// Package db provides the `db` subcommand, which applies the bridge's schema
// migrations against the configured PostgreSQL database.
package db

import (
	"fmt"
	"strconv"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
	"github.com/stellar/go/support/log"

	cmdUtils "github.com/openg2p/g2p-bridge-backend/cmd/utils"
	"github.com/openg2p/g2p-bridge-backend/db"
	"github.com/openg2p/g2p-bridge-backend/db/migrations"
)

// DBConfigOptionFlagName is the name of the flag that holds the database URL.
const DBConfigOptionFlagName = "database-url"

type DatabaseCommand struct{}

func (c *DatabaseCommand) Command(globalOptions *cmdUtils.GlobalOptionsType) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:              "db",
		Short:            "Database related commands",
		PersistentPreRun: cmdUtils.DefaultPersistentPreRun,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	migrateCmd := &cobra.Command{
		Use:              "migrate",
		Short:            "Apply the G2P Bridge database migrations",
		PersistentPreRun: cmdUtils.DefaultPersistentPreRun,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}
	dbCmd.AddCommand(migrateCmd)

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up [count]",
		Short: "Migrates the database up [count] migrations (all when omitted)",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			count := parseCount(args)
			if err := runMigration(globalOptions.DatabaseURL, migrate.Up, count); err != nil {
				log.Fatalf("Error migrating database up: %s", err.Error())
			}
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down [count]",
		Short: "Migrates the database down [count] migrations",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			count := parseCount(args)
			if err := runMigration(globalOptions.DatabaseURL, migrate.Down, count); err != nil {
				log.Fatalf("Error migrating database down: %s", err.Error())
			}
		},
	})

	return dbCmd
}

func parseCount(args []string) int {
	if len(args) == 0 {
		return 0
	}
	count, err := strconv.Atoi(args[0])
	if err != nil {
		log.Fatalf("Invalid [count] argument: %s", args[0])
	}
	return count
}

func runMigration(databaseURL string, dir migrate.MigrationDirection, count int) error {
	numMigrationsRun, err := db.Migrate(databaseURL, dir, count, migrations.FS)
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	if numMigrationsRun == 0 {
		log.Info("No migrations applied.")
	} else {
		log.Infof("Successfully applied %d migrations.", numMigrationsRun)
	}
	return nil
}
