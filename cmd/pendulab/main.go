package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/pendulab/internal/config"
	"github.com/san-kum/pendulab/internal/metrics"
	"github.com/san-kum/pendulab/internal/optim"
	"github.com/san-kum/pendulab/internal/plot"
	"github.com/san-kum/pendulab/internal/sim"
	"github.com/san-kum/pendulab/internal/storage"
	"github.com/san-kum/pendulab/internal/ui"
	"github.com/san-kum/pendulab/internal/viz"
)

var (
	dataDir    string
	verbose    bool
	noColor    bool
	configFile string
	preset     string
	ticks      int
	dt         float64
	jsonOut    bool
	noSave     bool
	body       string
	tuneBody   string
	pngDir     string
	kpRange    []float64
	kiRange    []float64
	kdRange    []float64
	steps      int
	effort     float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pendulab",
		Short: "inverted pendulum control sandbox",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.SetDebugEnabled(verbose)
			ui.SetColorEnabled(!noColor)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pendulab", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scene headless and store its history",
		Args:  cobra.NoArgs,
		RunE:  runScene,
	}
	sceneFlags(runCmd)
	runCmd.Flags().IntVar(&ticks, "ticks", config.DefaultTicks, "number of ticks")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "write the run as JSON to stdout")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&pngDir, "png", "", "write PNG plots of each body to this directory")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a scene in the terminal with live tuning",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	sceneFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the history of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&body, "body", "", "only plot this body")
	plotCmd.Flags().StringVar(&pngDir, "png", "", "write PNG plots to this directory")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenes",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search PID gains for fastest settling",
		Args:  cobra.NoArgs,
		RunE:  tunePID,
	}
	sceneFlags(tuneCmd)
	tuneCmd.Flags().IntVar(&ticks, "ticks", 600, "ticks per candidate")
	tuneCmd.Flags().StringVar(&tuneBody, "body", "pid", "body whose settling is scored")
	tuneCmd.Flags().Float64SliceVar(&kpRange, "kp", []float64{-12, -4}, "kp range lo,hi")
	tuneCmd.Flags().Float64SliceVar(&kiRange, "ki", []float64{-8, -2}, "ki range lo,hi")
	tuneCmd.Flags().Float64SliceVar(&kdRange, "kd", []float64{-6, -2}, "kd range lo,hi")
	tuneCmd.Flags().IntVar(&steps, "steps", 5, "values per gain")
	tuneCmd.Flags().Float64Var(&effort, "effort-weight", 0.5, "weight of mean control effort in the score")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "scene file helpers",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a scene file from a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	}
	configInitCmd.Flags().StringVar(&preset, "preset", "duel", "preset to start from")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, presetsCmd, tuneCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func sceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "scene file (yaml)")
	cmd.Flags().StringVarP(&preset, "preset", "p", "duel", "built-in scene")
	cmd.Flags().Float64Var(&dt, "dt", 0.05, "tick length in seconds")
}

// loadScene resolves the scene from --config or --preset, then applies flag
// overrides the user set explicitly.
func loadScene(cmd *cobra.Command) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		name string
	)
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	} else {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		name = preset
	}

	if f := cmd.Flags().Lookup("dt"); f != nil && f.Changed {
		cfg.Dt = dt
	}
	if f := cmd.Flags().Lookup("ticks"); f != nil && f.Changed {
		cfg.Ticks = ticks
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	ui.Debug("scene %s: dt=%g ticks=%d bodies=%d", name, cfg.Dt, cfg.Ticks, len(cfg.Bodies))
	return cfg, name, nil
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd)
	if err != nil {
		return err
	}

	w, err := cfg.Build()
	if err != nil {
		return err
	}
	metrics.Attach(w)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !jsonOut {
		ui.Info("running %s for %d ticks...", name, cfg.Ticks)
	}
	start := time.Now()
	if err := w.Run(ctx, cfg.Ticks); err != nil {
		ui.Warning("stopped at tick %d: %v", w.Tick(), err)
	}
	elapsed := time.Since(start)

	if jsonOut {
		return storage.ExportJSON(os.Stdout, name, w)
	}

	for _, b := range w.Bodies() {
		if n := b.Failures(); n > 0 {
			ui.Warning("%s held its previous control on %d ticks: %v", b.Name, n, b.LastError())
		}
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(name, w)
		if err != nil {
			return err
		}
		ui.Success("completed %d ticks in %v, run id: %s", w.Tick(), elapsed, runID)
	} else {
		ui.Success("completed %d ticks in %v", w.Tick(), elapsed)
	}

	if pngDir != "" {
		for _, b := range w.Bodies() {
			path := filepath.Join(pngDir, fmt.Sprintf("%s_%s.png", name, b.Name))
			title := fmt.Sprintf("%s · %s (%s)", name, b.Name, b.Kind())
			if err := plot.SaveHistoryPNG(path, title, storage.Snapshot(b.History(), w.Dt())); err != nil {
				return err
			}
			ui.Success("wrote %s", path)
		}
	}

	return ui.Table(metricsTable(storage.Describe(w)))
}

func metricsTable(bodies []storage.BodyMetadata) [][]string {
	names := make([]string, 0)
	if len(bodies) > 0 {
		for k := range bodies[0].Metrics {
			names = append(names, k)
		}
		sort.Strings(names)
	}

	rows := [][]string{append([]string{"BODY", "CTRL"}, upper(names)...)}
	for _, b := range bodies {
		row := []string{b.Name, b.Controller}
		for _, n := range names {
			row = append(row, fmt.Sprintf("%.4f", b.Metrics[n]))
		}
		rows = append(rows, row)
	}
	return rows
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, name, err := loadScene(cmd)
	if err != nil {
		return err
	}
	w, err := cfg.Build()
	if err != nil {
		return err
	}
	return viz.Run(w, name)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		ui.Info("no runs found")
		return nil
	}

	rows := [][]string{{"ID", "SCENE", "TIME", "TICKS", "DT", "BODIES"}}
	for _, run := range runs {
		bodies := make([]string, len(run.Bodies))
		for i, b := range run.Bodies {
			bodies[i] = b.Name + ":" + b.Controller
		}
		rows = append(rows, []string{
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", run.Ticks),
			fmt.Sprintf("%.4fs", run.Dt),
			strings.Join(bodies, " "),
		})
	}
	return ui.Table(rows)
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	ui.Printfln("run: %s", meta.ID)
	ui.Printfln("scene: %s", meta.Scene)
	ui.Printfln("ticks: %d\n", meta.Ticks)

	plotted := 0
	for _, b := range meta.Bodies {
		if body != "" && b.Name != body {
			continue
		}

		h, err := st.LoadHistory(runID, b.Name)
		if err != nil {
			return err
		}
		if len(h.Times) == 0 {
			ui.Warning("%s: no samples", b.Name)
			continue
		}
		plotted++

		for _, col := range h.Names {
			graph := asciigraph.Plot(h.Columns[col],
				asciigraph.Height(10),
				asciigraph.Width(80),
				asciigraph.Caption(fmt.Sprintf("%s %s (from t=%.2fs)", b.Name, col, h.Times[0])),
			)
			ui.Printfln("%s\n", graph)
		}

		if pngDir != "" {
			path := filepath.Join(pngDir, fmt.Sprintf("%s_%s.png", runID, b.Name))
			if err := plot.SaveHistoryPNG(path, fmt.Sprintf("%s · %s (%s)", meta.Scene, b.Name, b.Controller), h); err != nil {
				return err
			}
			ui.Success("wrote %s", path)
		}
	}

	if plotted == 0 {
		return fmt.Errorf("no data to plot")
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	rows := [][]string{{"PRESET", "BODIES"}}
	for _, name := range config.ListPresets() {
		cfg := config.Presets[name]
		bodies := make([]string, len(cfg.Bodies))
		for i, b := range cfg.Bodies {
			kind := b.Controller.Kind
			if kind == "" {
				kind = sim.KindNone.String()
			}
			bodies[i] = fmt.Sprintf("%s:%s θ=%.2f ω=%.2f", b.Name, kind, b.Init.Angle, b.Init.AngularVelocity)
		}
		rows = append(rows, []string{name, strings.Join(bodies, ", ")})
	}
	return ui.Table(rows)
}

func gainRange(name string, r []float64) ([]float64, error) {
	if len(r) != 2 {
		return nil, fmt.Errorf("--%s takes lo,hi", name)
	}
	return optim.Range(r[0], r[1], steps), nil
}

func tunePID(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("preset") && configFile == "" {
		preset = "pid"
	}
	cfg, name, err := loadScene(cmd)
	if err != nil {
		return err
	}

	names := []string{"kp", "ki", "kd"}
	var ranges [][]float64
	for i, r := range [][]float64{kpRange, kiRange, kdRange} {
		vals, err := gainRange(names[i], r)
		if err != nil {
			return err
		}
		ranges = append(ranges, vals)
	}

	build := func(params map[string]float64) (*sim.World, error) {
		w, err := cfg.Build()
		if err != nil {
			return nil, err
		}
		b, ok := w.Body(tuneBody)
		if !ok || b.Kind() != sim.KindPID {
			return nil, fmt.Errorf("scene %s has no PID body %q", name, tuneBody)
		}
		for k, v := range params {
			if err := b.Controller().SetParam(k, v); err != nil {
				return nil, err
			}
		}
		return w, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := optim.NewGridSearch(names, ranges)
	ui.Info("evaluating %d candidates on %s/%s for %d ticks...", len(g.Candidates()), name, tuneBody, ticks)

	res, err := g.Search(ctx, build, optim.SettlingScore(tuneBody, effort), ticks)
	if err != nil {
		return err
	}

	ui.Success("best of %d: kp=%.3f ki=%.3f kd=%.3f (score %.4f)",
		res.Evaluated, res.Params["kp"], res.Params["ki"], res.Params["kd"], res.Score)
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	ui.Success("wrote %s from preset %s", args[0], preset)
	return nil
}
