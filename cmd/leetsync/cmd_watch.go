package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leetsync/internal/broker"
	"leetsync/internal/browser"
	"leetsync/internal/config"
	"leetsync/internal/deliver"
	"leetsync/internal/detect"
	"leetsync/internal/extract"
	"leetsync/internal/monitor"
	"leetsync/internal/store"
)

var watchURL string

// watchCmd runs the submission watcher until interrupted
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a problem page and sync accepted submissions",
	Long: `Attaches to Chrome, finds an open problem page (or opens one with --url)
and watches it for accepted submissions. Each accepted submission is extracted
and delivered to the configured backend.

Config changes are picked up live, so flipping autoSync in the config file
takes effect without a restart.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := store.Open(config.DataPath())
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer state.Close()

	session := browser.NewSession(logger)
	if err := session.Connect(ctx, cfg.Browser); err != nil {
		return err
	}
	defer session.Close()

	page, err := session.FindProblemPage(ctx, cfg.Watch.PagePattern)
	if err != nil {
		return err
	}
	if page == nil {
		if watchURL == "" {
			return fmt.Errorf("no open tab matches %q; open a problem page or pass --url", cfg.Watch.PagePattern)
		}
		page, err = session.OpenPage(ctx, watchURL)
		if err != nil {
			return err
		}
	}

	client := deliver.New(deliver.Options{
		SubmitURL: cfg.Backend.SubmitURL(),
		Attempts:  cfg.Backend.RetryAttempts,
		BaseDelay: cfg.Backend.RetryDelay(),
		State:     state,
		Logger:    logger,
	})
	bro := broker.New(client, state, cfgPath, logger)

	mon := monitor.New(monitor.Config{
		CheckInterval:     cfg.Watch.CheckInterval(),
		SubmitCheckDelays: cfg.Watch.SubmitCheckDelays(),
		PagePattern:       cfg.Watch.PagePattern,
		AutoSync:          cfg.Watch.AutoSync,
	}, page, detect.New(logger), extract.New(logger), bro, state, logger)

	// Hot reload: only the delivery gate is live-tunable, everything else
	// needs a restart.
	go func() {
		err := config.WatchFile(ctx, cfgPath, logger, func(next *config.Config) {
			mon.SetAutoSync(next.Watch.AutoSync)
		})
		if err != nil && ctx.Err() == nil {
			logger.Warn("config watch stopped", zap.Error(err))
		}
	}()

	if err := mon.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	if ctx.Err() != nil {
		logger.Info("shutting down")
	}
	return nil
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "", "Problem page URL to open when no matching tab exists")
	rootCmd.AddCommand(watchCmd)
}
