package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/database"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
)

func newExportDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exportdb",
		Short: "Dump the recognition tables to CSV",
		Long: `Exports all four recognition tables unfiltered into the DB/ folder, with
the dump timestamp appended to the file names.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return runExportDB(ctx, workPaths())
		},
	}
	return cmd
}

func runExportDB(ctx context.Context, paths config.Paths) error {
	settings, err := loadSettings(paths)
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, settings.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	timestamp := database.DumpTimestamp(time.Now())
	queries := database.AllTableQueries(timestamp)
	if err := database.NewClient(db).ExportTables(ctx, queries, paths.DBDir()); err != nil {
		return err
	}
	log.Entry().Infof("exported %d tables to %s", len(queries), paths.DBDir())
	return nil
}
