package internal

import (
	"fmt"

	"outreach-service/internal/adapters/browserportal"
	"outreach-service/internal/adapters/portalfetcher"
	"outreach-service/internal/configs"
	"outreach-service/internal/core/port"
	"outreach-service/internal/core/usecase"
)

// buildRegistry создаёт адаптер на каждый включённый портал из portals.yaml
func buildRegistry(cfg configs.IngestionConfig, logger port.LoggerPort) (*usecase.SourceRegistry, error) {
	defs, err := portalfetcher.LoadDefinitions(cfg.PortalsConfig)
	if err != nil {
		return nil, err
	}

	registry, err := usecase.NewSourceRegistry()
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if !def.IsEnabled() {
			logger.Info("Portal disabled, skipping", port.Fields{"portal": def.ID})
			continue
		}
		adapter, err := newSourceAdapter(def, cfg)
		if err != nil {
			registry.Cleanup()
			return nil, fmt.Errorf("failed to create adapter for portal %s: %w", def.ID, err)
		}
		if err := registry.Register(adapter); err != nil {
			registry.Cleanup()
			return nil, err
		}
		logger.Info("Portal adapter registered", port.Fields{"portal": def.ID, "kind": def.Kind})
	}
	if registry.Len() == 0 {
		logger.Warn("No portal adapters enabled, ingestion runs will be empty", nil)
	}
	return registry, nil
}

func newSourceAdapter(def portalfetcher.PortalDefinition, cfg configs.IngestionConfig) (port.SourceAdapterPort, error) {
	if def.Kind == portalfetcher.KindBrowser {
		return browserportal.NewAdapter(def, browserportal.Options{
			ExecPath: cfg.BrowserExecPath,
			Headless: cfg.BrowserHeadless,
		})
	}
	return portalfetcher.NewAdapter(def)
}
