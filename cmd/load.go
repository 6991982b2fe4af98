package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/config"
	"github.com/xkilldash9x/marquee/internal/loadtest"
	"github.com/xkilldash9x/marquee/internal/network"
	"github.com/xkilldash9x/marquee/internal/observability"
)

func newLoadCmd() *cobra.Command {
	var (
		users     int
		spawnRate float64
		duration  time.Duration
		host      string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Simulate concurrent customers against the booking API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("users") {
				cfg.SetLoadUsers(users)
			}
			if cmd.Flags().Changed("spawn-rate") {
				cfg.SetLoadSpawnRate(spawnRate)
			}
			if cmd.Flags().Changed("duration") {
				cfg.SetLoadDuration(duration)
			}
			if cmd.Flags().Changed("host") {
				cfg.SetLoadHost(host)
			}
			if cfg.Load().Host == "" {
				cfg.SetLoadHost(cfg.App().BaseURL)
			}
			return runLoad(cmd, cfg, asJSON)
		},
	}

	cmd.Flags().IntVarP(&users, "users", "u", 0, "number of virtual users")
	cmd.Flags().Float64VarP(&spawnRate, "spawn-rate", "r", 0, "users started per second")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "how long to run")
	cmd.Flags().StringVar(&host, "host", "", "API host (default app.base_url)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func runLoad(cmd *cobra.Command, cfg config.Interface, asJSON bool) error {
	logger := observability.GetLogger()
	load := cfg.Load()

	client := network.NewClient(network.OptionsFor(load, logger.Named("network")))
	defer client.CloseIdleConnections()

	runner, err := loadtest.NewRunner(load, client, logger)
	if err != nil {
		return err
	}
	report, err := runner.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("load run failed: %w", err)
	}
	logger.Info("Load report ready", zap.String("run_id", report.RunID))

	if asJSON {
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return writeReport(cmd.OutOrStdout(), report)
}

// writeReport prints one aligned row per request name.
func writeReport(out io.Writer, report *loadtest.Report) error {
	fmt.Fprintf(out, "run %s: %d users, %s\n\n", report.RunID, report.Users, report.Elapsed.Round(time.Millisecond))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tREQUESTS\tFAILURES\tMIN\tMEAN\tP50\tP95\tMAX")
	for _, e := range report.Stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Name, e.Requests, e.Failures,
			ms(e.Min), ms(e.Mean), ms(e.P50), ms(e.P95), ms(e.Max),
		)
	}
	return tw.Flush()
}

func ms(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
