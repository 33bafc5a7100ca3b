package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleettrack/app"
	"github.com/kilianp07/fleettrack/config"
	"github.com/kilianp07/fleettrack/core/fleet"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List carts and their projected state",
	RunE:  runFleetLs,
}

func init() {
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	carts, err := svc.Directory.List(context.Background(), fleet.Filter{})
	if err != nil {
		return err
	}
	for _, c := range carts {
		pos := "-"
		if c.Position != nil {
			pos = fmt.Sprintf("%.5f,%.5f", c.Position.Latitude, c.Position.Longitude)
		}
		fmt.Printf("%s\t%s\t%s\t%.0f%%\t%s\n", c.Identifier, c.Model, c.Status, c.Battery, pos)
	}
	return nil
}
