package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/earthwork-discovery/internal/infrastructure/genai"
	"github.com/earthwork-discovery/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full discovery pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, closeAll := buildDiscovery(ctx, cfg, log)
			defer closeAll()

			res, err := usecase.NewDiscoveryUseCase(deps).Run(ctx)
			if err != nil {
				log.Error("Discovery run failed", zap.Error(err))
				return err
			}
			printRun(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func printRun(w io.Writer, res *usecase.RunResult) {
	cp := res.Checkpoint
	fmt.Fprintf(w, "Run %s finished\n", cp.RunID)
	fmt.Fprintf(w, "  outputs:   %s\n", res.Dir)
	fmt.Fprintf(w, "  test AUC:  %.3f (cv %.3f ± %.3f)\n", cp.Metrics.TestAUC, cp.Metrics.CVMean, cp.Metrics.CVStd)
	fmt.Fprintf(w, "  hotspots:  %d\n", cp.HotspotCount)
	for _, h := range res.Hotspots {
		fmt.Fprintf(w, "  #%-2d %s  mean %.3f  max %.3f  %s\n",
			h.Rank, genai.FormatCoordinate(h.Lat, h.Lon), h.MeanProb, h.MaxProb, h.Confidence)
	}
}
