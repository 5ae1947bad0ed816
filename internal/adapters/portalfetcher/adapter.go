package portalfetcher

import (
	"context"
	"fmt"
	"time"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

const defaultRequestTimeout = 20 * time.Second

// Adapter обходит портал по HTTP: json_api читает JSON ответа,
// next_data - JSON из <script id="__NEXT_DATA__"> в HTML странице
type Adapter struct {
	// родительский коллектор, лимиты наследуются клонами
	collector *colly.Collector
	def       PortalDefinition
}

var _ port.SourceAdapterPort = (*Adapter)(nil)

func NewAdapter(def PortalDefinition) (*Adapter, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if def.Kind != KindJSONAPI && def.Kind != KindNextData {
		return nil, fmt.Errorf("portal %s: kind %q is not served by the HTTP adapter", def.ID, def.Kind)
	}

	c := colly.NewCollector(colly.AllowedDomains(def.Domains()...), colly.AllowURLRevisit())
	err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       def.Delay,
		RandomDelay: def.RandomDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("portal %s: failed to set limit rule: %w", def.ID, err)
	}

	timeout := def.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	c.SetRequestTimeout(timeout)

	return &Adapter{collector: c, def: def}, nil
}

// clone - одноразовый коллектор для одного запроса. Колбэки при Clone
// не копируются, поэтому расширения вешаются на каждый клон.
func (a *Adapter) clone() *colly.Collector {
	c := a.collector.Clone()
	extensions.RandomUserAgent(c)
	extensions.Referer(c)
	return c
}

func (a *Adapter) Portal() string { return a.def.ID }

// Search обходит страницы 1..Pages и останавливается на первой пустой
func (a *Adapter) Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.RawListing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PortalFetcher",
		"portal":    a.def.ID,
	})

	var all []domain.RawListing
	pages := a.def.Pages(criteria)
	for page := 1; page <= pages; page++ {
		pageParam := page
		if a.def.PageParam == "" {
			pageParam = 0
		}
		target, err := a.def.BuildSearchURL(criteria, pageParam)
		if err != nil {
			return nil, err
		}

		listings, err := a.fetchPage(ctx, target, logger)
		if err != nil {
			return nil, err
		}
		logger.Debug("Page fetched", port.Fields{"page": page, "url": target, "items": len(listings)})
		if len(listings) == 0 {
			break
		}
		all = append(all, listings...)
		if a.def.PageParam == "" {
			break
		}
	}
	return all, nil
}

func (a *Adapter) fetchPage(ctx context.Context, target string, logger port.LoggerPort) ([]domain.RawListing, error) {
	collector := a.clone()

	var listings []domain.RawListing
	var responseErr error

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	parse := func(body []byte) {
		doc, err := DecodeJSON(body)
		if err != nil {
			responseErr = fmt.Errorf("portal %s: failed to decode JSON from %s: %w", a.def.ID, target, err)
			return
		}
		listings, responseErr = a.def.MapDocument(doc)
	}

	if a.def.Kind == KindNextData {
		found := false
		collector.OnHTML("script#__NEXT_DATA__", func(e *colly.HTMLElement) {
			found = true
			parse([]byte(e.Text))
		})
		collector.OnScraped(func(r *colly.Response) {
			if !found && responseErr == nil {
				responseErr = fmt.Errorf("portal %s: __NEXT_DATA__ not found on %s", a.def.ID, target)
			}
		})
	} else {
		collector.OnResponse(func(r *colly.Response) {
			parse(r.Body)
		})
	}

	collector.OnError(func(r *colly.Response, err error) {
		logger.Warn("Portal request failed", port.Fields{
			"url":    r.Request.URL.String(),
			"status": r.StatusCode,
			"error":  err.Error(),
		})
		responseErr = fmt.Errorf("portal %s: request to %s failed with status %d: %w", a.def.ID, r.Request.URL, r.StatusCode, err)
	})

	visitErr := collector.Visit(target)
	collector.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if responseErr != nil {
		return nil, responseErr
	}
	if visitErr != nil {
		return nil, fmt.Errorf("portal %s: failed to visit %s: %w", a.def.ID, target, visitErr)
	}
	return listings, nil
}

// IsAvailable - health_url (или search_url) отвечает 2xx
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	target := a.def.HealthURL
	if target == "" {
		var err error
		if target, err = a.def.BuildSearchURL(domain.SearchCriteria{}, 0); err != nil {
			return false
		}
	}

	collector := a.clone()
	ok := false
	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		ok = r.StatusCode >= 200 && r.StatusCode < 300
	})
	if err := collector.Visit(target); err != nil {
		return false
	}
	collector.Wait()
	return ok && ctx.Err() == nil
}
