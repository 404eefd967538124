package main

import (
	"fmt"
	"io"

	"github.com/earthwork-discovery/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTilesCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "tiles",
		Short: "Rank elevation tiles by the known sites they cover",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			src := newSources(cfg, log)
			report, err := usecase.NewTileUseCase(src.elevation, src.sites, cfg.Pipeline.MaxTiles, log).Report(cmd.Context())
			if err != nil {
				log.Error("Tile report failed", zap.Error(err))
				return err
			}
			printTiles(cmd.OutOrStdout(), report, limit)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 15, "number of ranked tiles to print")
	return cmd
}

func printTiles(w io.Writer, report *usecase.TileReport, limit int) {
	sel := report.Selection
	fmt.Fprintf(w, "%d known sites, %d elevation tiles\n", len(report.Sites), report.TotalTiles)
	for i, c := range sel.Ordered {
		if i >= limit {
			break
		}
		marker := " "
		if i < sel.Cutoff {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %3d  %-28s %4d sites  %5.1f%%\n", marker, i+1, c.Tile, c.Count(), sel.Cumulative[i]*100)
	}
	fmt.Fprintf(w, "selected %d tiles, coverage %.1f%%: %s\n", sel.Cutoff, sel.FinalCoverage*100, sel.Rationale)
}
