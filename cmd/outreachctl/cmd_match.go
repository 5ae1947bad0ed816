package main

import (
	"fmt"
	"time"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/port"

	"github.com/spf13/cobra"
)

var (
	matchSince    string
	matchLookback time.Duration
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match recent listings against active buyer profiles",
	Long: `Scores listings seen since the given moment against every active buyer
profile and turns matches above the threshold into tasks.`,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&matchSince, "since", "", "RFC3339 timestamp, overrides --lookback")
	matchCmd.Flags().DurationVar(&matchLookback, "lookback", 24*time.Hour, "How far back to look for listings")
}

func matchFrom(now time.Time) (time.Time, error) {
	if matchSince != "" {
		since, err := time.Parse(time.RFC3339, matchSince)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --since: %w", err)
		}
		return since, nil
	}
	if matchLookback <= 0 {
		return time.Time{}, fmt.Errorf("--lookback must be positive")
	}
	return now.Add(-matchLookback), nil
}

func runMatch(cmd *cobra.Command, _ []string) error {
	since, err := matchFrom(time.Now().UTC())
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := contextkeys.ContextWithLogger(cmd.Context(), app.Logger().WithFields(port.Fields{"command": "match"}))
	report, err := app.Matching().Execute(ctx, since)
	if err != nil {
		return fmt.Errorf("matching failed: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), report)
}
