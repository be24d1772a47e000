package cli

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/cbout22/policygate/internal/config"
	"github.com/cbout22/policygate/internal/logging"
	"github.com/cbout22/policygate/internal/metrics"
	"github.com/cbout22/policygate/internal/policy"
	"github.com/cbout22/policygate/internal/repository"
)

// app is the gateway wired from settings, shared by the commands that talk to GitHub.
type app struct {
	settings *config.Settings
	logger   *slog.Logger
	registry *prometheus.Registry
	gateway  *repository.Gateway
	service  *policy.Service
	closeLog func() error
}

func (o *rootOptions) newApp(cmd *cobra.Command) (*app, error) {
	s, err := o.settings(cmd)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(s.LogLevel, s.LogFormat, s.LogFilePath)
	if err != nil {
		return nil, err
	}
	logger = logger.With("app", s.AppName)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gw, err := repository.NewGitHubGateway(s,
		repository.WithLogger(logger),
		repository.WithMetrics(metrics.NewSyncMetrics(registry)),
	)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	return &app{
		settings: s,
		logger:   logger,
		registry: registry,
		gateway:  gw,
		service:  policy.NewService(gw, policy.WithLogger(logger)),
		closeLog: closeLog,
	}, nil
}

// Close flushes and closes the log file, if any.
func (a *app) Close() error {
	if a.closeLog == nil {
		return nil
	}
	return a.closeLog()
}
