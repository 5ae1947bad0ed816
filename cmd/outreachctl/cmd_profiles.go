package main

import (
	"fmt"
	"os"
	"strings"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/phone"
	"outreach-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage buyer profiles",
}

var profilesImportCmd = &cobra.Command{
	Use:   "import <profiles.yaml>",
	Short: "Create or replace clients and buyer profiles from a YAML file",
	Long: `Imports clients with their buyer profiles. A client without an id gets a
stable one derived from the phone number, so importing the same file twice
updates the records instead of duplicating them.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfilesImport,
}

func init() {
	profilesCmd.AddCommand(profilesImportCmd)
}

type pointYAML struct {
	Lng float64 `yaml:"lng"`
	Lat float64 `yaml:"lat"`
}

type profileYAML struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Phone       string `yaml:"phone"`
	Salutation  string `yaml:"salutation"`
	Personality string `yaml:"personality"`

	MaxPrice      int64       `yaml:"max_price"`
	MinSize       float64     `yaml:"min_size"`
	RoomsWanted   *int        `yaml:"rooms_wanted"`
	PropertyType  string      `yaml:"property_type"`
	SearchPolygon []pointYAML `yaml:"search_polygon"`
	Wants         struct {
		Elevator bool `yaml:"elevator"`
		Balcony  bool `yaml:"balcony"`
		Parking  bool `yaml:"parking"`
		Garden   bool `yaml:"garden"`
	} `yaml:"wants"`
	Active *bool `yaml:"active"`
}

type profilesFile struct {
	Clients []profileYAML `yaml:"clients"`
}

// parseProfiles: id профиля выводится из id клиента, active по умолчанию true
func parseProfiles(data []byte) ([]domain.ClientProfile, error) {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	res := make([]domain.ClientProfile, 0, len(file.Clients))
	for i, c := range file.Clients {
		number := phone.Normalize(c.Phone)
		if number == "" {
			return nil, fmt.Errorf("client #%d (%s): phone is required", i+1, c.Name)
		}

		clientID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("client:"+number))
		if strings.TrimSpace(c.ID) != "" {
			parsed, err := uuid.Parse(c.ID)
			if err != nil {
				return nil, fmt.Errorf("client #%d (%s): invalid id: %w", i+1, c.Name, err)
			}
			clientID = parsed
		}

		polygon := make([]domain.GeoPoint, 0, len(c.SearchPolygon))
		for _, p := range c.SearchPolygon {
			polygon = append(polygon, domain.GeoPoint{Lng: p.Lng, Lat: p.Lat})
		}

		res = append(res, domain.ClientProfile{
			Client: domain.Client{
				ID:          clientID,
				Name:        c.Name,
				Phone:       number,
				Salutation:  c.Salutation,
				Personality: c.Personality,
			},
			Profile: domain.BuyerProfile{
				ID:            uuid.NewSHA1(clientID, []byte("profile")),
				ClientID:      clientID,
				MaxPrice:      c.MaxPrice,
				MinSize:       c.MinSize,
				RoomsWanted:   c.RoomsWanted,
				PropertyType:  c.PropertyType,
				SearchPolygon: polygon,
				Wants: domain.Features{
					Elevator: c.Wants.Elevator,
					Balcony:  c.Wants.Balcony,
					Parking:  c.Wants.Parking,
					Garden:   c.Wants.Garden,
				},
				Active: c.Active == nil || *c.Active,
			},
		})
	}
	return res, nil
}

func runProfilesImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	profiles, err := parseProfiles(data)
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	logger := app.Logger().WithFields(port.Fields{"command": "profiles import"})
	ctx := contextkeys.ContextWithLogger(cmd.Context(), logger)
	for _, p := range profiles {
		if err := app.Profiles().Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save client %s: %w", p.Client.Name, err)
		}
	}
	logger.Info("Profiles imported", port.Fields{"count": len(profiles), "file": args[0]})
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d profiles\n", len(profiles))
	return nil
}
