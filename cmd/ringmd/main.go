package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/ringmd/internal/analysis"
	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/compute/builtin"
	"github.com/san-kum/ringmd/internal/config"
	"github.com/san-kum/ringmd/internal/experiment"
	"github.com/san-kum/ringmd/internal/export"
	"github.com/san-kum/ringmd/internal/models"
	"github.com/san-kum/ringmd/internal/storage"
)

var (
	dataDir      string
	configFile   string
	preset       string
	platform     string
	integrator   string
	numCopies    int
	temperature  float64
	friction     float64
	dt           float64
	steps        int
	sampleEvery  int
	seed         int64
	ensemble     int
	params       map[string]string
	saveConfig   string
	plotField    string
	analyzeField string
	svgPath      string
)

var (
	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	label = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Width(16)
	value = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	warn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "ringmd",
		Short:             "ring-polymer molecular dynamics",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default $RINGMD_DATA or .ringmd)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a simulation and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().StringVar(&platform, "platform", "", "compute platform (default: fastest available)")
	runCmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (rpmd, langevin, verlet)")
	runCmd.Flags().IntVar(&numCopies, "copies", config.DefaultNumCopies, "ring polymer beads per particle")
	runCmd.Flags().Float64Var(&temperature, "temperature", config.DefaultTemperature, "temperature (K)")
	runCmd.Flags().Float64Var(&friction, "friction", config.DefaultFriction, "centroid friction (1/ps)")
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "step size (ps)")
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	runCmd.Flags().IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "steps between samples")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	runCmd.Flags().IntVar(&ensemble, "ensemble", 1, "independent runs with consecutive seeds")
	runCmd.Flags().StringToStringVar(&params, "param", nil, "model parameter, e.g. --param k=500")
	runCmd.Flags().StringVar(&saveConfig, "save-config", "", "write the resolved config to this path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotField, "field", "kinetic", "kinetic, potential, total or spread")
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write the series to this svg file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&analyzeField, "field", "potential", "kinetic, potential, total or spread")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(cmd.OutOrStdout(), args[0])
		},
	}

	platformsCmd := &cobra.Command{
		Use:   "platforms",
		Short: "list compute platforms",
		RunE:  listPlatforms,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list presets, optionally for one model",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list built-in models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range models.Names() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, analyzeCmd, exportCmd, platformsCmd, presetsCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	level, err := logrus.ParseLevel(env.LogLevel)
	if err != nil {
		return fmt.Errorf("RINGMD_LOG_LEVEL: %w", err)
	}
	logrus.SetLevel(level)
	if dataDir == "" {
		dataDir = env.DataDir
	}
	return nil
}

// resolveConfig layers defaults, preset, config file and explicitly set
// flags, in that order.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Model = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Model))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if len(args) > 0 {
			cfg.Model = args[0]
		}
	}

	flags := cmd.Flags()
	if flags.Changed("platform") {
		cfg.Platform = platform
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
		if cfg.Integrator != "rpmd" && !flags.Changed("copies") {
			cfg.NumCopies = 1
		}
	}
	if flags.Changed("copies") {
		cfg.NumCopies = numCopies
	}
	if flags.Changed("temperature") {
		cfg.Temperature = temperature
	}
	if flags.Changed("friction") {
		cfg.Friction = friction
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("sample-every") {
		cfg.SampleEvery = sampleEvery
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if len(params) > 0 {
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		for k, v := range params {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("param %s: %w", k, err)
			}
			cfg.Params[k] = f
		}
	}
	return cfg, cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if saveConfig != "" {
		if err := config.Save(saveConfig, cfg); err != nil {
			return err
		}
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	var results []*experiment.Result
	if ensemble > 1 {
		results, err = experiment.Ensemble(ctx, cfg, ensemble)
	} else {
		var res *experiment.Result
		res, err = experiment.Run(ctx, cfg)
		if res != nil {
			results = append(results, res)
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		fmt.Println(warn.Render("interrupted, saving partial run"))
	}

	elapsed := time.Since(start)
	for _, res := range results {
		runID, err := st.Save(res)
		if err != nil {
			return err
		}
		printSummary(runID, res, elapsed)
	}
	return nil
}

func printSummary(runID string, res *experiment.Result, elapsed time.Duration) {
	row := func(k, v string) {
		fmt.Println(label.Render(k) + value.Render(v))
	}
	fmt.Println(title.Render("run " + runID))
	row("model", res.Config.Model)
	row("integrator", fmt.Sprintf("%s (%d copies)", res.Config.Integrator, res.Config.NumCopies))
	row("platform", res.Platform)
	row("seed", strconv.FormatInt(res.Seed, 10))
	row("steps", fmt.Sprintf("%d of %d", res.StepsTaken, res.Config.Steps))
	row("elapsed", elapsed.Round(time.Millisecond).String())

	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row(name, fmt.Sprintf("%.6g", res.Metrics[name]))
	}
	fmt.Println()
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tINTEG\tCOPIES\tTEMP\tSTEPS\tPLATFORM")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.1fK\t%d\t%s\n",
			run.ID,
			run.Config.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Config.Integrator,
			run.Config.NumCopies,
			run.Config.Temperature,
			run.StepsTaken,
			run.Platform,
		)
	}
	return w.Flush()
}

func loadSeries(runID, field string) (*storage.RunMetadata, []float64, []float64, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(samples) == 0 {
		return nil, nil, nil, fmt.Errorf("no data to plot")
	}

	times := make([]float64, len(samples))
	data := make([]float64, len(samples))
	for i, s := range samples {
		times[i] = s.Time
		switch field {
		case "kinetic":
			data[i] = s.Kinetic
		case "potential":
			data[i] = s.Potential
		case "total":
			data[i] = s.Kinetic + s.Potential
		case "spread":
			data[i] = s.Spread
		default:
			return nil, nil, nil, fmt.Errorf("unknown field: %s", field)
		}
	}
	return meta, times, data, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, times, data, err := loadSeries(args[0], plotField)
	if err != nil {
		return err
	}

	fmt.Println(title.Render("run " + meta.ID))
	fmt.Printf("%s, %s, %d samples\n\n", meta.Config.Model, meta.Config.Integrator, len(data))
	caption := fmt.Sprintf("%s per bead vs time (%.4g ps)", plotField, times[len(times)-1])
	if plotField == "spread" {
		caption = fmt.Sprintf("bead spread (nm) vs time (%.4g ps)", times[len(times)-1])
	}
	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	))

	if svgPath == "" {
		return nil
	}
	f, err := os.Create(svgPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.SeriesSVG(f, times, data, 800, 400, "#00d7af"); err != nil {
		return err
	}
	fmt.Println("wrote " + svgPath)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, times, data, err := loadSeries(args[0], analyzeField)
	if err != nil {
		return err
	}
	if len(data) < 4 {
		return fmt.Errorf("need at least 4 samples, got %d", len(data))
	}
	interval := times[1] - times[0]

	ps := analysis.PowerSpectrum(data)
	f := analysis.DominantFrequency(data, interval)

	fmt.Println(title.Render("run " + meta.ID))
	fmt.Println(label.Render("field") + value.Render(analyzeField))
	fmt.Println(label.Render("resolution") + value.Render(fmt.Sprintf("%.4g 1/ps", 1/(float64(len(data))*interval))))
	fmt.Println(label.Render("dominant") + value.Render(fmt.Sprintf("%.4g 1/ps", f)))
	fmt.Println()
	fmt.Println(asciigraph.Plot(ps[1:],
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum (%s)", analyzeField)),
	))
	return nil
}

func listPlatforms(cmd *cobra.Command, args []string) error {
	reg := builtin.Registry()
	kernels := []string{
		compute.KernelCalcForcesAndEnergy,
		compute.KernelIntegrateVerletStep,
		compute.KernelIntegrateLangevinStep,
		compute.KernelIntegrateRPMDStep,
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSPEED\tAVAILABLE\tKERNELS")
	for _, name := range reg.Names() {
		p, err := reg.Get(name)
		if err != nil {
			return err
		}
		var supported []string
		for _, k := range kernels {
			if p.SupportsKernels([]string{k}) {
				supported = append(supported, k)
			}
		}
		fmt.Fprintf(w, "%s\t%g\t%t\t%s\n", p.Name(), p.Speed(), p.Available(), strings.Join(supported, ","))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if p, err := reg.Select(kernels); err == nil {
		fmt.Println("\ndefault: " + title.Render(p.Name()))
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := models.Names()
	if len(args) > 0 {
		names = args[:1]
	}
	for _, model := range names {
		presets := config.ListPresets(model)
		if len(presets) == 0 {
			if len(args) > 0 {
				fmt.Printf("no presets for model: %s\n", model)
			}
			continue
		}
		fmt.Println(title.Render(model))
		for _, p := range presets {
			cfg := config.GetPreset(model, p)
			fmt.Printf("  %-12s %s, %d copies, %gK\n", p, cfg.Integrator, cfg.NumCopies, cfg.Temperature)
		}
	}
	return nil
}
