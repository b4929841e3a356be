package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/openfluke/yee/config"
	"github.com/openfluke/yee/gpu"
	"github.com/openfluke/yee/opencl"
	"github.com/openfluke/yee/probe"
	"github.com/openfluke/yee/solver"
)

var (
	runBackend string
	runSteps   int
	runCSV     string
	runDB      string
	runPlot    string
	runQuiet   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation and emit the probe trace",
	Long: `Run validates the configuration, builds the backend and steps the
simulation, logging one probe value per step. The trace can also be written
to CSV, SQLite and a PNG plot.`,
	Args: cobra.NoArgs,
	RunE: runSimulation,
}

func init() {
	addRunFlags(runCmd.Flags())
}

func addRunFlags(f *pflag.FlagSet) {
	f.StringVarP(&runBackend, "backend", "b", "", "Compute backend: webgpu, opencl or cpu")
	f.IntVarP(&runSteps, "steps", "n", 0, "Number of time steps")
	f.StringVar(&runCSV, "csv", "", "Write the probe trace to this CSV file")
	f.StringVar(&runDB, "db", "", "Append the probe trace to this SQLite database")
	f.StringVar(&runPlot, "plot", "", "Render the probe trace to this PNG file")
	f.BoolVarP(&runQuiet, "quiet", "q", false, "Do not log every step")
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("backend") {
		c.Device.Backend = runBackend
	}
	if f.Changed("steps") {
		c.Time.Steps = runSteps
	}
	if f.Changed("csv") {
		c.Output.CSV = runCSV
	}
	if f.Changed("db") {
		c.Output.SQLite = runDB
	}
	if f.Changed("plot") {
		c.Output.Plot = runPlot
	}
	if f.Changed("quiet") {
		c.Output.Quiet = runQuiet
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	applyRunFlags(cmd, cfg)
	setup, err := solver.NewSetup(cfg)
	if err != nil {
		return err
	}

	backend, release, err := openBackend(cfg, setup)
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	trace := probe.NewRecorder(setup.Steps)
	sinks := []probe.Sink{trace}
	if !cfg.Output.Quiet {
		sinks = append(sinks, probe.NewLogSink(logger))
	}

	var csvSink *probe.CSVSink
	if cfg.Output.CSV != "" {
		if csvSink, err = probe.CreateCSV(cfg.Output.CSV); err != nil {
			return err
		}
		defer csvSink.Close()
		sinks = append(sinks, csvSink)
	}

	var run *probe.RunWriter
	if cfg.Output.SQLite != "" {
		store, err := probe.OpenStore(cfg.Output.SQLite)
		if err != nil {
			return err
		}
		defer store.Close()
		run, err = store.Begin(ctx, probe.RunInfo{
			Backend: cfg.Device.Backend,
			Grid:    setup.Grid.String(),
			Dt:      setup.Dt,
			Steps:   setup.Steps,
			Source:  setup.Source.String(),
			Probe:   setup.Probe.String(),
		})
		if err != nil {
			return fmt.Errorf("begin stored run: %w", err)
		}
		sinks = append(sinks, run)
	}

	if err := solver.NewEngine(setup, backend, logger, sinks...).Run(ctx); err != nil {
		if run != nil {
			_ = run.Abort()
		}
		return err
	}

	if run != nil {
		if err := run.Close(); err != nil {
			return fmt.Errorf("commit stored run: %w", err)
		}
		logger.Info("trace stored", zap.String("db", cfg.Output.SQLite), zap.String("run", run.ID))
	}
	if csvSink != nil {
		if err := csvSink.Close(); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}

	records := trace.Records()
	sum := probe.Analyze(records, setup.Dt)
	logger.Info("probe summary",
		zap.Int("first_nonzero_step", sum.FirstNonZero),
		zap.Float64("peak", sum.Peak),
		zap.Int("peak_step", sum.PeakStep),
		zap.Float64("rms", sum.RMS),
		zap.Float64("dominant_frequency_hz", sum.DominantFrequency),
		zap.Bool("finite", sum.Finite))

	if cfg.Output.Plot != "" {
		title := fmt.Sprintf("%s probe, %s grid", setup.Probe, setup.Grid)
		if err := probe.PlotFile(cfg.Output.Plot, title, records); err != nil {
			return err
		}
		logger.Info("plot written", zap.String("path", cfg.Output.Plot))
	}
	if !sum.Finite {
		return fmt.Errorf("probe trace diverged (non-finite values)")
	}
	return nil
}

// openBackend builds the configured backend and returns its release func.
func openBackend(c *config.Config, setup *solver.Setup) (solver.Backend, func(), error) {
	switch c.Device.Backend {
	case config.BackendCPU:
		b, err := solver.NewCPU(setup)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using CPU reference backend")
		return b, func() { b.Close() }, nil

	case config.BackendOpenCL:
		b, err := opencl.New(setup, c.Timeout(), logger)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { b.Close() }, nil

	default:
		gc, err := gpu.Open(gpu.Options{
			PowerPreference: c.Device.PowerPreference,
			PreferAdapter:   c.Device.Adapter,
			Logger:          logger,
		})
		if err != nil {
			return nil, nil, err
		}
		b, err := gpu.NewSolver(gc, setup, c.Timeout())
		if err != nil {
			gc.Release()
			return nil, nil, err
		}
		return b, func() {
			b.Close()
			gc.Release()
		}, nil
	}
}

