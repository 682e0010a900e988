// Package migratecmd implements `gametracker migrate`: create or update
// the catalog schema and align the id sequences with any rows that were
// seeded outside the engine.
package migratecmd

import (
	"fmt"

	"github.com/spf13/cobra"

	common "github.com/pressplay/gametracker/internal/cli/common"
	"github.com/pressplay/gametracker/internal/db"
	repocatalog "github.com/pressplay/gametracker/internal/repo/gorm/catalog"
)

// New returns the `gametracker migrate` command.
func New() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := common.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := common.SetupLoggerFromViper(v)

			gdb, err := db.Open(v.GetString("dsn"))
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			if err := repocatalog.AutoMigrate(gdb); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if err := repocatalog.NewRepo(gdb).AlignSequences(cmd.Context()); err != nil {
				return fmt.Errorf("align sequences: %w", err)
			}
			log.Info("schema up to date")
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file path")
	return cmd
}
