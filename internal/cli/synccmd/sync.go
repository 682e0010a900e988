// Package synccmd implements `gametracker sync`: run one catalog
// synchronization pass over a staged batch.
package synccmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pressplay/gametracker/internal/catalog"
	"github.com/pressplay/gametracker/internal/catalog/engine"
	common "github.com/pressplay/gametracker/internal/cli/common"
	"github.com/pressplay/gametracker/internal/db"
	repocatalog "github.com/pressplay/gametracker/internal/repo/gorm/catalog"
	"github.com/pressplay/gametracker/internal/staging"
)

// New returns the `gametracker sync` command.
func New() *cobra.Command {
	var cfgFile, input, key string
	var consume bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize one staged batch into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			v, err := common.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := common.SetupLoggerFromViper(v)

			var reader staging.Reader
			var data []byte
			switch {
			case input == "-":
				if data, err = io.ReadAll(os.Stdin); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			case input != "":
				if data, err = os.ReadFile(input); err != nil {
					return fmt.Errorf("read batch file: %w", err)
				}
			case key != "":
				reader, err = staging.Open(ctx, common.StagingConfig(v))
				if err != nil {
					return fmt.Errorf("open staging: %w", err)
				}
				if data, err = reader.Get(ctx, key); err != nil {
					return fmt.Errorf("fetch batch %s: %w", key, err)
				}
			default:
				return fmt.Errorf("provide --input FILE (or -) or --key OBJECT")
			}

			gdb, err := db.Open(v.GetString("dsn"))
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			if err := repocatalog.AutoMigrate(gdb); err != nil {
				return fmt.Errorf("migrate store: %w", err)
			}

			report, err := engine.New(gdb, log).SyncBatch(ctx, data)
			if err != nil {
				return err
			}
			printReport(cmd, report)

			if consume && key != "" {
				if err := reader.Delete(ctx, key); err != nil {
					return fmt.Errorf("consume batch %s: %w", key, err)
				}
				log.Info("batch consumed", "key", key)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.Flags().StringVar(&input, "input", "", "local batch file, or - for stdin")
	cmd.Flags().StringVar(&key, "key", "", "staged batch object key")
	cmd.Flags().BoolVar(&consume, "consume", false, "delete the staged object after a committed run")
	return cmd
}

func printReport(cmd *cobra.Command, r *catalog.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "received:      %d\n", r.Received)
	fmt.Fprintf(out, "already known: %d\n", r.AlreadyKnown)
	fmt.Fprintf(out, "dropped:       %d\n", len(r.Dropped))
	fmt.Fprintf(out, "new stores:    %d\n", r.NewStores)
	fmt.Fprintf(out, "new games:     %d\n", r.NewGames)
	for _, d := range catalog.Dimensions {
		fmt.Fprintf(out, "new %-11s %d (assignments %d)\n", d.String()+"s:", r.NewDimensions[d], r.Assignments[d])
	}
}
