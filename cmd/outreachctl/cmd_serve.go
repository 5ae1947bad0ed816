package main

import (
	"outreach-service/internal"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the service: REST API and queue listener",
	RunE: func(_ *cobra.Command, _ []string) error {
		app, err := internal.NewApp(internal.Options{EnvPath: envFile})
		if err != nil {
			return err
		}
		return app.Run()
	},
}
