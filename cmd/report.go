package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleettrack/app"
	"github.com/kilianp07/fleettrack/config"
	"github.com/kilianp07/fleettrack/core/ingest"
	"github.com/kilianp07/fleettrack/core/telemetry"
)

var (
	reportIdentifier string
	reportLat        float64
	reportLon        float64
	reportBattery    float64
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inject a test location report",
	RunE:  injectReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportIdentifier, "cart", "", "cart identifier")
	reportCmd.Flags().Float64Var(&reportLat, "lat", 0, "latitude")
	reportCmd.Flags().Float64Var(&reportLon, "lon", 0, "longitude")
	reportCmd.Flags().Float64Var(&reportBattery, "battery", -1, "battery percentage (omit to inherit)")
	rootCmd.AddCommand(reportCmd)
}

func injectReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	req := ingest.ReportRequest{
		Identifier: reportIdentifier,
		Latitude:   &reportLat,
		Longitude:  &reportLon,
		Source:     telemetry.SourceManual,
	}
	if reportBattery >= 0 {
		req.Battery = &reportBattery
	}
	rep, err := svc.Coordinator.Report(context.Background(), req)
	if err != nil {
		return err
	}
	fmt.Printf("report %s accepted (battery %.0f%%)\n", rep.ID, rep.Battery)
	return nil
}
