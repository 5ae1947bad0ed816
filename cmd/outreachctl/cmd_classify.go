package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"outreach-service/internal/core/classifier"
	"outreach-service/internal/core/domain"

	"github.com/spf13/cobra"
)

var classifyKeywords string

var classifyCmd = &cobra.Command{
	Use:   "classify [signals.json]",
	Short: "Classify owner signals read from a file or stdin",
	Long: `Reads a JSON object with owner signals (advertiser_type, agency_name,
contact_block, title, description, ...) and prints the classification.

Does not touch storage or portals.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyKeywords, "keywords", os.Getenv("OWNER_KEYWORDS_FILE"), "Keywords YAML file (default: embedded)")
}

func readSignals(r io.Reader) (domain.OwnerSignals, error) {
	var signals domain.OwnerSignals
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&signals); err != nil {
		return domain.OwnerSignals{}, fmt.Errorf("failed to decode owner signals: %w", err)
	}
	return signals, nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	signals, err := readSignals(in)
	if err != nil {
		return err
	}
	keywords, err := classifier.LoadKeywords(classifyKeywords)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), classifier.New(keywords).Classify(signals))
}
