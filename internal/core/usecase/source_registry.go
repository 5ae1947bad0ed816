package usecase

import (
	"fmt"
	"sort"
	"sync"

	"outreach-service/internal/core/port"
)

// SourceRegistry - таблица адаптеров по идентификатору портала
type SourceRegistry struct {
	mu       sync.RWMutex
	adapters map[string]port.SourceAdapterPort
}

func NewSourceRegistry(adapters ...port.SourceAdapterPort) (*SourceRegistry, error) {
	r := &SourceRegistry{adapters: make(map[string]port.SourceAdapterPort, len(adapters))}
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *SourceRegistry) Register(adapter port.SourceAdapterPort) error {
	if adapter == nil {
		return fmt.Errorf("source adapter cannot be nil")
	}
	portal := adapter.Portal()
	if portal == "" {
		return fmt.Errorf("source adapter has an empty portal id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[portal]; exists {
		return fmt.Errorf("source adapter for portal %q is already registered", portal)
	}
	r.adapters[portal] = adapter
	return nil
}

func (r *SourceRegistry) Get(portal string) (port.SourceAdapterPort, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[portal]
	return a, ok
}

// All возвращает адаптеры в порядке идентификаторов порталов
func (r *SourceRegistry) All() []port.SourceAdapterPort {
	r.mu.RLock()
	defer r.mu.RUnlock()

	portals := make([]string, 0, len(r.adapters))
	for p := range r.adapters {
		portals = append(portals, p)
	}
	sort.Strings(portals)

	list := make([]port.SourceAdapterPort, 0, len(portals))
	for _, p := range portals {
		list = append(list, r.adapters[p])
	}
	return list
}

func (r *SourceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// Cleanup освобождает ресурсы адаптеров, которые их держат
func (r *SourceRegistry) Cleanup() []error {
	var errs []error
	for _, a := range r.All() {
		if c, ok := a.(port.CleanupPort); ok {
			if err := c.Cleanup(); err != nil {
				errs = append(errs, fmt.Errorf("cleanup %s: %w", a.Portal(), err))
			}
		}
	}
	return errs
}
