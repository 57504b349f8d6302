package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alvmarrod/site-spider/internal/config"
	"github.com/alvmarrod/site-spider/internal/crawler"
	"github.com/alvmarrod/site-spider/internal/logging"
	"github.com/alvmarrod/site-spider/internal/metrics"
	"github.com/alvmarrod/site-spider/internal/profile"
	"github.com/alvmarrod/site-spider/internal/storage"
	"github.com/alvmarrod/site-spider/internal/version"
)

const usageLine = "usage: spider DOMAIN OUTPUT_DIR"

// exitError carries the process exit code. Its message has already been
// printed by the time it is returned.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

type rootOptions struct {
	configPath  string
	logLevel    string
	listDomains bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "spider DOMAIN OUTPUT_DIR",
		Short:         "Crawl a documentation site into per-page JSON records",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.listDomains, "list-domains", false, "print the known domain profiles and exit")
	cmd.Flags().StringVar(&opts.configPath, "config", config.DefaultPath, "path to the JSON config file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "diagnostic log level (overrides the config file)")

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		fmt.Fprintln(cmd.ErrOrStderr(), usageLine)
		return &exitError{code: 1}
	})

	return cmd
}

func run(cmd *cobra.Command, opts *rootOptions, args []string) error {
	stderr := cmd.ErrOrStderr()

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return &exitError{code: 1}
	}

	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	if err := logging.Setup(level); err != nil {
		fmt.Fprintln(stderr, err)
		return &exitError{code: 1}
	}

	reg, err := cfg.Registry()
	if err != nil {
		fmt.Fprintf(stderr, "invalid profile: %v\n", err)
		return &exitError{code: 1}
	}

	if opts.listDomains {
		for _, name := range reg.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return &exitError{code: 1}
	}

	if len(args) != 2 {
		fmt.Fprintln(stderr, usageLine)
		return &exitError{code: 1}
	}

	p, err := reg.Lookup(args[0])
	if errors.Is(err, profile.ErrUnknownProfile) {
		fmt.Fprintf(stderr, "unsupported domain %s\n", args[0])
		return &exitError{code: 1}
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return &exitError{code: 1}
	}

	if err := crawl(cmd.Context(), cmd, cfg, p, args[1]); err != nil {
		logrus.Errorf("Crawl of %s failed: %v", p.Name, err)
		return &exitError{code: 1}
	}
	return nil
}

// crawl runs one profile to completion and writes its metrics
func crawl(parent context.Context, cmd *cobra.Command, cfg *config.Config, p profile.Profile, outputRoot string) error {
	if parent == nil {
		parent = context.Background()
	}

	logrus.Infof("site-spider v%s crawling %s into %s", version.Version, p.Name, outputRoot)

	ledgerPath := cfg.LedgerFor(outputRoot, p.Name)
	if err := os.MkdirAll(filepath.Dir(ledgerPath), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	ledger, err := storage.NewLedger(ledgerPath)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledger.Close()

	tracker := metrics.NewTracker(p.Name)

	c, err := crawler.NewCrawler(crawler.Options{
		Config:  cfg,
		Profile: p,
		Store:   storage.NewRecordStore(filepath.Join(outputRoot, p.Name)),
		Ledger:  ledger,
		Tracker: tracker,
		Console: logging.NewConsole(cmd.OutOrStdout()),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		// Restore default handling so a second signal kills the process
		stop()
	}()

	stopProgress := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.ProgressEverySec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				queued, inFlight := c.Pending()
				logrus.Infof("%s (queued=%d in_flight=%d)", tracker.LogProgress(), queued, inFlight)
			case <-stopProgress:
				return
			}
		}
	}()

	reason := c.Run(ctx)
	close(stopProgress)

	logrus.Infof("Crawl finished (%s). Final stats: %s", reason, tracker.LogProgress())

	if summary, err := ledger.Summary(); err != nil {
		logrus.Warnf("Failed to summarize ledger: %v", err)
	} else {
		logrus.Infof("Ledger %s: %v", ledgerPath, summary)
	}

	metricsPath := cfg.MetricsFor(outputRoot, p.Name)
	if err := tracker.WriteToFile(metricsPath, reason); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", metricsPath)
	}
	return nil
}
