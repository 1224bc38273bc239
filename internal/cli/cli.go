// Package cli wires configuration into the pipeline and exposes it as commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"flavorwatch/internal/app"
	"flavorwatch/internal/config"
	"flavorwatch/internal/fetcher"
	"flavorwatch/internal/flavor"
	"flavorwatch/internal/httpserver"
	"flavorwatch/internal/mailer"
	"flavorwatch/internal/matcher"
	"flavorwatch/internal/normalize"
	"flavorwatch/internal/notifier"
	"flavorwatch/internal/observability"
	"flavorwatch/internal/scraper"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

const schedulerDrainTimeout = 30 * time.Second

var (
	flagConfig string
	flagNotify bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flavorwatch",
		Short: "Watch a shop's flavor-of-the-day listing and email when a favourite shows up",
		Long: `Scrapes the shop's flavor listing, checks it against the configured keywords and
emails every recipient when one matches. Runs daily on a cron schedule and on demand over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "configs/config.yaml", "Path to the YAML config file")

	cmd.AddCommand(newServeCmd(), newCheckCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daily schedule and the on-demand HTTP endpoint",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the listing once and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}
	cmd.Flags().BoolVar(&flagNotify, "notify", false, "Email the recipients when a keyword matches")
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		return ExitError
	}
	return ExitSuccess
}

type components struct {
	cfg      *config.Config
	logger   *observability.Logger
	pipeline *app.Pipeline
}

func build(configPath string) (*components, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	sender, err := mailer.New(cfg.Mail, logger)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("initializing mailer: %w", err)
	}

	extractor := scraper.NewKeywordContainerExtractor(cfg.Source.Selectors, normalize.NewNormalizer(cfg.Normalize))
	n := notifier.New(sender, cfg.Mail, cfg.GetSendTimeout(), logger)

	pipeline := app.NewPipeline(
		cfg.Source.URL,
		fetcher.New(cfg, logger),
		extractor,
		scraper.NewDateParser(cfg.GetLocation()),
		matcher.New(cfg.Keywords()),
		n,
		logger,
	)

	logger.Info("Configuration loaded",
		"config", configPath,
		"url", cfg.Source.URL,
		"keywords", cfg.Keywords(),
		"recipients", len(n.Recipients()),
		"mail_provider", cfg.Mail.Provider,
		"rod", cfg.Rod.Enabled,
	)

	return &components{cfg: cfg, logger: logger, pipeline: pipeline}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := build(flagConfig)
	if err != nil {
		return err
	}
	defer c.logger.Close()

	ctx, cancel := app.GracefulShutdown(context.Background(), c.logger)
	defer cancel()

	sched, err := app.NewScheduler(ctx, c.cfg.Scheduler.CronExpr, c.cfg.GetLocation(), c.pipeline, c.logger)
	if err != nil {
		return err
	}
	server := httpserver.New(c.cfg.Server, c.pipeline, c.logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run()
	}()
	sched.Start()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
		if runErr != nil {
			c.logger.Error("HTTP server failed", "error", runErr.Error())
		}
	}

	if err := server.Shutdown(); err != nil {
		c.logger.Error("HTTP server shutdown failed", "error", err.Error())
	}

	cancel()
	select {
	case <-sched.Stop().Done():
	case <-time.After(schedulerDrainTimeout):
		c.logger.Warn("Scheduled run still in progress at exit")
	}

	c.logger.Info("Shutdown complete")
	return runErr
}

func runCheck(cmd *cobra.Command, args []string) error {
	c, err := build(flagConfig)
	if err != nil {
		return err
	}
	defer c.logger.Close()

	ctx, cancel := app.GracefulShutdown(context.Background(), c.logger)
	defer cancel()

	outcome, err := c.pipeline.Run(ctx, app.RunOptions{Notify: flagNotify, Trigger: "cli"})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(flavor.NewView(outcome.Result, outcome.Matched))
}
