// Command thetacli evaluates Riemann theta functions from YAML input files,
// reduces period matrices, and sweeps evaluation cost over precision.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"riemann-theta/theta"
)

type app struct {
	verbose    bool
	configPath string

	logger *zap.Logger
	tuning theta.Tuning
}

func (a *app) options() []theta.Option {
	return []theta.Option{theta.WithLogger(a.logger), theta.WithTuning(a.tuning)}
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop(), tuning: theta.DefaultTuning()}
	root := &cobra.Command{
		Use:   "thetacli",
		Short: "Certified Riemann theta evaluation",
		Long: `thetacli evaluates theta functions with characteristics in ball
arithmetic. Every printed ball contains the true value.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if a.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			a.logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			if a.configPath == "" {
				return nil
			}
			f, err := os.Open(a.configPath)
			if err != nil {
				return fmt.Errorf("open config: %w", err)
			}
			defer f.Close()
			if a.tuning, err = theta.LoadTuning(f); err != nil {
				return err
			}
			a.logger.Debug("tuning loaded", zap.String("path", a.configPath), zap.Any("tuning", a.tuning))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML tuning file")

	root.AddCommand(newEvalCmd(a), newReduceCmd(a), newSweepCmd(a), newPlotCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
