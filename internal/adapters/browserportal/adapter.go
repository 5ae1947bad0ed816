// Package browserportal - адаптер для порталов, которые отдают выдачу
// только после выполнения JavaScript. Работает через headless Chrome.
package browserportal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"outreach-service/internal/adapters/portalfetcher"
	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port"

	"github.com/chromedp/chromedp"
)

const (
	defaultPageTimeout = 45 * time.Second
	healthTimeout      = 15 * time.Second
	userAgent          = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type Options struct {
	// ExecPath - путь к бинарнику Chrome; пусто - ищет chromedp
	ExecPath string
	Headless bool
}

type Adapter struct {
	def  PortalDefinition
	opts Options

	// браузер запускается при первом обращении и живёт до Cleanup
	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

// PortalDefinition - та же декларация портала, что и у HTTP адаптера
type PortalDefinition = portalfetcher.PortalDefinition

var (
	_ port.SourceAdapterPort = (*Adapter)(nil)
	_ port.CleanupPort       = (*Adapter)(nil)
)

func NewAdapter(def PortalDefinition, opts Options) (*Adapter, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if def.Kind != portalfetcher.KindBrowser {
		return nil, fmt.Errorf("portal %s: kind %q is not served by the browser adapter", def.ID, def.Kind)
	}
	if def.ItemsScript == "" {
		return nil, fmt.Errorf("portal %s: items_script is required for browser portals", def.ID)
	}
	return &Adapter{def: def, opts: opts}, nil
}

func (a *Adapter) Portal() string { return a.def.ID }

func (a *Adapter) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", a.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if a.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(a.opts.ExecPath))
	}
	return opts
}

func (a *Adapter) browser() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.browserCtx != nil {
		return a.browserCtx, nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), a.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	// пустой Run запускает сам браузер
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("portal %s: failed to start browser: %w", a.def.ID, err)
	}

	a.browserCtx = browserCtx
	a.cancelAlloc = cancelAlloc
	a.cancelBrowser = cancelBrowser
	return browserCtx, nil
}

// tab открывает вкладку, которая закрывается вместе с ctx вызывающего
func (a *Adapter) tab(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	browserCtx, err := a.browser()
	if err != nil {
		return nil, nil, err
	}
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	stop := context.AfterFunc(ctx, cancelTab)

	return tabCtx, func() {
		stop()
		cancelTimeout()
		cancelTab()
	}, nil
}

func (a *Adapter) Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.RawListing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "BrowserPortal",
		"portal":    a.def.ID,
	})

	timeout := a.def.RequestTimeout
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}

	var all []domain.RawListing
	pages := a.def.Pages(criteria)
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageParam := page
		if a.def.PageParam == "" {
			pageParam = 0
		}
		target, err := a.def.BuildSearchURL(criteria, pageParam)
		if err != nil {
			return nil, err
		}

		listings, err := a.scrapePage(ctx, target, timeout)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		logger.Debug("Page rendered", port.Fields{"page": page, "url": target, "items": len(listings)})
		if len(listings) == 0 {
			break
		}
		all = append(all, listings...)
		if a.def.PageParam == "" {
			break
		}
		if page < pages && a.def.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.def.Delay):
			}
		}
	}
	return all, nil
}

func (a *Adapter) scrapePage(ctx context.Context, target string, timeout time.Duration) ([]domain.RawListing, error) {
	tabCtx, cancel, err := a.tab(ctx, timeout)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var payload string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(target),
		a.waitAction(),
		chromedp.Evaluate(a.def.ItemsScript, &payload),
	)
	if err != nil {
		return nil, fmt.Errorf("portal %s: failed to render %s: %w", a.def.ID, target, err)
	}
	return listingsFromPayload(a.def, payload)
}

func (a *Adapter) waitAction() chromedp.Action {
	if a.def.WaitSelector == "" {
		return chromedp.WaitReady("body", chromedp.ByQuery)
	}
	return chromedp.WaitVisible(a.def.WaitSelector, chromedp.ByQuery)
}

// listingsFromPayload разбирает JSON, который вернул items_script
func listingsFromPayload(def PortalDefinition, payload string) ([]domain.RawListing, error) {
	if payload == "" {
		return nil, nil
	}
	doc, err := portalfetcher.DecodeJSON([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("portal %s: items_script returned invalid JSON: %w", def.ID, err)
	}
	return def.MapDocument(doc)
}

func (a *Adapter) IsAvailable(ctx context.Context) bool {
	target := a.def.HealthURL
	if target == "" {
		var err error
		if target, err = a.def.BuildSearchURL(domain.SearchCriteria{}, 0); err != nil {
			return false
		}
	}

	tabCtx, cancel, err := a.tab(ctx, healthTimeout)
	if err != nil {
		return false
	}
	defer cancel()

	return chromedp.Run(tabCtx, chromedp.Navigate(target), chromedp.WaitReady("body", chromedp.ByQuery)) == nil
}

// Cleanup закрывает браузер; повторный вызов ничего не делает
func (a *Adapter) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.browserCtx == nil {
		return nil
	}
	a.cancelBrowser()
	a.cancelAlloc()
	a.browserCtx = nil
	a.cancelBrowser = nil
	a.cancelAlloc = nil
	return nil
}
