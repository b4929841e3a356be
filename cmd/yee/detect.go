package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openfluke/yee/gpu"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Print the selected GPU adapter and its limits as JSON",
	Long: `Detect opens the adapter the run command would use and prints its report:
name, backend, limits, features and the recommended workgroup. It also
checks whether the configured grid fits the device.`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	c, err := gpu.Open(gpu.Options{
		PowerPreference: cfg.Device.PowerPreference,
		PreferAdapter:   cfg.Device.Adapter,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer c.Release()

	out, err := c.Report.JSON()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)

	g, wg := cfg.GridModel(), cfg.WorkgroupModel()
	if err := c.Report.Limits.Fits(g, wg); err != nil {
		logger.Warn("configured grid does not fit", zap.Stringer("grid", g), zap.Error(err))
		return nil
	}
	logger.Info("configured grid fits", zap.Stringer("grid", g), zap.Stringer("workgroup", wg))
	return nil
}
