package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/volley/internal/config"
	vhttp "github.com/wesleyorama2/volley/internal/http"
	"github.com/wesleyorama2/volley/internal/loadtest"
	"github.com/wesleyorama2/volley/internal/loadtest/metrics"
	"github.com/wesleyorama2/volley/internal/logging"
	"github.com/wesleyorama2/volley/internal/output"
	"github.com/wesleyorama2/volley/internal/preflight"
	"github.com/wesleyorama2/volley/internal/scenarios"
)

// runBindings maps settings keys to run flags.
var runBindings = map[string]string{
	"target.url":                "url",
	"run.name":                  "name",
	"run.vus":                   "vus",
	"run.duration":              "duration",
	"run.iterations":            "iterations",
	"run.graceful_stop":         "graceful-stop",
	"run.scenario":              "scenario",
	"run.profile":               "profile",
	"scenario.think_min":        "think-min",
	"scenario.think_max":        "think-max",
	"scenario.audit_logs":       "audit-logs",
	"scenario.product_path":     "product-path",
	"scenario.audit_path":       "audit-path",
	"http.timeout":              "timeout",
	"http.max_rps":              "max-rps",
	"http.insecure_skip_verify": "insecure",
	"preflight.enabled":         "preflight",
	"preflight.path":            "preflight-path",
	"report.dir":                "report-dir",
	"report.format":             "format",
	"report.no_file":            "no-report-file",
	"metrics.addr":              "metrics-addr",
	"logger.level":              "log-level",
	"logger.format":             "log-format",
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a load test against the target API",
		Long: `Run a fixed number of virtual users against the target for a fixed
duration, then print the summary and judge the thresholds.

  volley run --url http://localhost:8080 --vus 10 --duration 5s
  URL=http://localhost:8080 TYPE=jit volley run

Exits 99 when thresholds fail and 1 on any other error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, nil)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func newSmokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run a single iteration with one virtual user",
		Long: `Run the selected scenario once with one virtual user to verify the
target and the scenario before a full run. No report file is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, func(s *config.Settings) {
				s.Run.VUs = 1
				s.Run.Iterations = 1
				if d, err := config.ParseDurationString(s.Run.Duration); err != nil || d < time.Minute {
					s.Run.Duration = "1m"
				}
				s.Report.NoFile = true
			})
		},
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("url", "u", "", "Target base URL")
	f.String("name", "", "Run name shown in the summary (defaults to the scenario)")
	f.Int("vus", 0, "Number of virtual users")
	f.StringP("duration", "d", "", "Run duration (e.g. 30s, 5m, or seconds)")
	f.Int64("iterations", 0, "Iterations per VU (0 = until the duration elapses)")
	f.String("graceful-stop", "", "Cancel in-flight iterations this long after the duration (0 = wait)")
	f.String("scenario", "", "Scenario to run (product or get)")
	f.String("profile", "", "Runtime profile of the target (jit or aot)")
	f.Duration("think-min", 0, "Minimum think time between product iterations")
	f.Duration("think-max", 0, "Maximum think time between product iterations")
	f.Bool("audit-logs", false, "Also read the audit log in every product iteration")
	f.String("product-path", "", "Product collection path appended to the target URL")
	f.String("audit-path", "", "Audit log path appended to the target URL")
	f.Duration("timeout", 0, "Per-request timeout")
	f.Float64("max-rps", 0, "Cap the request rate across all VUs (0 = unlimited)")
	f.Bool("insecure", false, "Skip TLS certificate verification")
	f.Bool("preflight", false, "Wait for the target to answer before starting")
	f.String("preflight-path", "", "Path polled by --preflight")
	f.String("report-dir", "", "Directory for the text report file")
	f.StringP("format", "o", "", "Summary format on stdout (text, json, yaml)")
	f.Bool("no-report-file", false, "Do not write the text report file")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	f.BoolP("quiet", "q", false, "Suppress live progress output")
}

// runLoad loads settings, applies adjust, runs the scenario and reports.
func runLoad(cmd *cobra.Command, adjust func(*config.Settings)) error {
	configFile, _ := cmd.Flags().GetString("config")
	quiet, _ := cmd.Flags().GetBool("quiet")

	settings, err := config.Load(configFile, cmd.Flags(), runBindings)
	if err != nil {
		return err
	}
	if adjust != nil {
		adjust(settings)
	}

	logger, err := logging.New(settings.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := settings.LoadtestConfig()
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(settings.Report.Format)
	if err != nil {
		return err
	}

	scenario, err := buildScenario(settings)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	httpClient := vhttp.NewHTTPClient(cfg.HTTP)

	if settings.Preflight.Enabled {
		probe := vhttp.NewClient(
			vhttp.WithHTTPClient(httpClient),
			vhttp.WithBaseURL(cfg.Target.BaseURL),
			vhttp.WithHeaders(cfg.Target.Headers),
		)
		if err := preflight.WaitReady(ctx, probe, settings.Preflight, logger); err != nil {
			return err
		}
	}

	opts := []loadtest.Option{
		loadtest.WithLogger(logger),
		loadtest.WithHTTPClient(httpClient),
	}

	if settings.Metrics.Addr != "" {
		reg := newMetricsRegistry()
		opts = append(opts, loadtest.WithObserver(metrics.NewPrometheusObserver(reg)))

		srv, err := startMetricsServer(settings.Metrics.Addr, reg, logger)
		if err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		defer srv.Close()
	}

	driver, err := loadtest.NewDriver(cfg, opts...)
	if err != nil {
		return err
	}

	console := output.NewConsole(output.ConsoleConfig{
		Name:     cfg.Name,
		Duration: cfg.Duration,
		Writer:   cmd.ErrOrStderr(),
		Quiet:    quiet,
	})
	console.PrintHeader(cfg.VUs, cfg.Target.BaseURL)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		watchProgress(driver, console, cfg.VUs, done)
	}()

	summary, err := driver.Run(ctx, scenario)
	close(done)
	wg.Wait()
	console.Finish()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := output.Write(out, summary, format, output.NewColorScheme(output.UseColors(out))); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	if !settings.Report.NoFile {
		path, err := output.WriteReportFile(settings.Report.Dir, settings.Run.Profile, summary)
		if err != nil {
			return err
		}
		logger.Info("report written", zap.String("path", path))
	}

	return summary.Err()
}

func watchProgress(driver *loadtest.Driver, console *output.Console, vus int, done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if driver.Running() {
				console.Update(output.StatsFromSnapshot(driver.Snapshot(), driver.Progress(), vus))
			}
		}
	}
}

func buildScenario(s *config.Settings) (loadtest.Scenario, error) {
	switch s.Run.Scenario {
	case config.ScenarioProduct:
		cfg := scenarios.DefaultProductConfig()
		cfg.ThinkMin = s.Scenario.ThinkMin
		cfg.ThinkMax = s.Scenario.ThinkMax
		cfg.AuditLogs = s.Scenario.AuditLogs
		cfg.ProductPath = s.Scenario.ProductPath
		cfg.AuditPath = s.Scenario.AuditPath
		return scenarios.NewProduct(cfg), nil
	case config.ScenarioGet:
		return scenarios.NewGet(), nil
	default:
		return nil, fmt.Errorf("unknown scenario %q", s.Run.Scenario)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
