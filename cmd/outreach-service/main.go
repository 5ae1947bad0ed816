package main

import (
	"log"

	"outreach-service/internal"
)

func main() {
	application, err := internal.NewApp(internal.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Application run failed: %v", err)
	}
}
