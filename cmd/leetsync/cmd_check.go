package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"leetsync/internal/browser"
	"leetsync/internal/detect"
	"leetsync/internal/extract"
)

// checkCmd runs detection and extraction once without delivering anything
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run detection and extraction once, without syncing",
	Long: `Attaches to Chrome, finds the open problem page and reports what the
watcher would see right now: which success signals fire and whether solution
code can be extracted. Nothing is sent to the backend.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

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
		return fmt.Errorf("no open tab matches %q", cfg.Watch.PagePattern)
	}
	info, err := page.Info()
	if err != nil {
		return fmt.Errorf("page info: %w", err)
	}
	fmt.Printf("Page:    %s\n", info.URL)

	signals, err := detect.New(logger).Scan(ctx, page)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	fmt.Printf("Success: %v\n", signals.HasSuccess())
	if len(signals.MatchedSelectors) > 0 {
		fmt.Printf("  selectors: %s\n", strings.Join(signals.MatchedSelectors, ", "))
	}
	if signals.AcceptedText {
		fmt.Println("  accepted text present")
	}
	if signals.ResultAreaHit {
		fmt.Println("  result area reports success")
	}

	rec, err := extract.New(logger).Record(ctx, page, info.URL)
	if errors.Is(err, extract.ErrNoCode) {
		fmt.Println("Code:    none extractable")
		return nil
	}
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	fmt.Printf("Code:    %d bytes (%s)\n", len(rec.Code), rec.Language)
	fmt.Printf("Problem: %s (%s)\n", rec.ProblemTitle, rec.Slug)
	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
