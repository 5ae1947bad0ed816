package main

import (
	"fmt"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	ingestCity         string
	ingestZone         string
	ingestPropertyType string
	ingestMaxPrice     int64
	ingestMaxPages     int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass over all enabled portals",
	Long: `Fetches listings from every enabled portal, normalizes and classifies them
and upserts them into storage. Prints the ingestion report as JSON.

Background geocoding is awaited before the command exits.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCity, "city", "", "City to search in")
	ingestCmd.Flags().StringVar(&ingestZone, "zone", "", "Zone within the city")
	ingestCmd.Flags().StringVar(&ingestPropertyType, "type", "", "Property type")
	ingestCmd.Flags().Int64Var(&ingestMaxPrice, "max-price", 0, "Maximum price, 0 - no limit")
	ingestCmd.Flags().IntVar(&ingestMaxPages, "max-pages", 0, "Pages per portal, 0 - portal default")
}

func ingestCriteria() domain.SearchCriteria {
	criteria := domain.SearchCriteria{
		City:         ingestCity,
		Zone:         ingestZone,
		PropertyType: ingestPropertyType,
		MaxPages:     ingestMaxPages,
	}
	if ingestMaxPrice > 0 {
		maxPrice := ingestMaxPrice
		criteria.MaxPrice = &maxPrice
	}
	return criteria
}

func runIngest(cmd *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	traceID := uuid.New().String()
	logger := app.Logger().WithFields(port.Fields{"command": "ingest", "trace_id": traceID})
	ctx := contextkeys.ContextWithTraceID(contextkeys.ContextWithLogger(cmd.Context(), logger), traceID)

	report, err := app.Ingestion().Execute(ctx, ingestCriteria())
	if err != nil {
		return fmt.Errorf("ingestion run failed: %w", err)
	}
	app.Ingestion().WaitBackground()

	return printJSON(cmd.OutOrStdout(), report)
}
