package cli

import (
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/volley/internal/config"
	"github.com/wesleyorama2/volley/internal/logging"
	"github.com/wesleyorama2/volley/internal/stub"
)

var stubBindings = map[string]string{
	"stub.addr":       "addr",
	"stub.error_rate": "error-rate",
	"stub.latency":    "latency",
	"logger.level":    "log-level",
	"logger.format":   "log-format",
}

func newStubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve an in-memory Product API to run against",
		Long: `Serve /api/products and /api/audit-logs from memory. Use --error-rate
and --latency to inject failures and slow responses.

  volley stub --addr :8080 --error-rate 0.05 --latency 20ms`,
		Args: cobra.NoArgs,
		RunE: runStub,
	}

	f := cmd.Flags()
	f.String("addr", "", "Listen address")
	f.Float64("error-rate", 0, "Fraction of API requests answered with 500 (0-1)")
	f.Duration("latency", 0, "Delay added to every API response")
	return cmd
}

func runStub(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")

	settings, err := config.Load(configFile, cmd.Flags(), stubBindings)
	if err != nil {
		return err
	}
	if errs := config.Validate(settings); len(errs) > 0 {
		return config.ValidationErrors(errs)
	}

	logger, err := logging.New(settings.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	srv := stub.NewServer(
		stub.WithLogger(logger),
		stub.WithFaults(stub.Faults{
			ErrorRate: settings.Stub.ErrorRate,
			Latency:   settings.Stub.Latency,
		}),
	)
	return srv.ListenAndServe(ctx, settings.Stub.Addr)
}
