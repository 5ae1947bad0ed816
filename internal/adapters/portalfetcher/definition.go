// Package portalfetcher - адаптеры порталов, описанные декларативно в portals.yaml.
package portalfetcher

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"outreach-service/internal/core/domain"

	"gopkg.in/yaml.v3"
)

// Виды адаптеров
const (
	KindJSONAPI  = "json_api"
	KindNextData = "next_data"
	KindBrowser  = "browser"
)

// PortalDefinition - как искать на портале и как читать его ответ
type PortalDefinition struct {
	ID             string   `yaml:"id"`
	Kind           string   `yaml:"kind"`
	Enabled        *bool    `yaml:"enabled"`
	SearchURL      string   `yaml:"search_url"`
	HealthURL      string   `yaml:"health_url"`
	AllowedDomains []string `yaml:"allowed_domains"`

	// QueryParams: поле критериев -> имя параметра запроса
	QueryParams map[string]string `yaml:"query_params"`
	FixedParams map[string]string `yaml:"fixed_params"`
	PageParam   string            `yaml:"page_param"`
	MaxPages    int               `yaml:"max_pages"`

	// ItemsPath - путь до массива объявлений в JSON ответа
	ItemsPath   string `yaml:"items_path"`
	URLTemplate string `yaml:"url_template"`
	// WaitSelector и ItemsScript нужны только браузерному адаптеру
	WaitSelector string `yaml:"wait_selector"`
	ItemsScript  string `yaml:"items_script"`

	Delay          time.Duration     `yaml:"delay"`
	RandomDelay    time.Duration     `yaml:"random_delay"`
	RequestTimeout time.Duration     `yaml:"request_timeout"`
	Fields         map[string]string `yaml:"fields"`
}

type definitionsFile struct {
	Portals []PortalDefinition `yaml:"portals"`
}

// IsEnabled: портал включён, если флаг не задан явно
func (d PortalDefinition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

func (d PortalDefinition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("portal id is required")
	}
	switch d.Kind {
	case KindJSONAPI, KindNextData, KindBrowser:
	default:
		return fmt.Errorf("portal %s: unknown kind %q", d.ID, d.Kind)
	}
	if _, err := url.ParseRequestURI(strings.NewReplacer("{city}", "x", "{zone}", "x").Replace(d.SearchURL)); err != nil {
		return fmt.Errorf("portal %s: invalid search_url: %w", d.ID, err)
	}
	if d.Fields["source_id"] == "" {
		return fmt.Errorf("portal %s: fields.source_id is required", d.ID)
	}
	for name := range d.Fields {
		if _, ok := fieldSetters[name]; !ok {
			return fmt.Errorf("portal %s: unknown field %q", d.ID, name)
		}
	}
	return nil
}

// LoadDefinitions читает portals.yaml
func LoadDefinitions(path string) ([]PortalDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read portals config %s: %w", path, err)
	}
	return ParseDefinitions(data)
}

func ParseDefinitions(data []byte) ([]PortalDefinition, error) {
	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse portals config: %w", err)
	}
	seen := make(map[string]bool, len(file.Portals))
	for _, d := range file.Portals {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate portal id %q", d.ID)
		}
		seen[d.ID] = true
	}
	return file.Portals, nil
}

// BuildSearchURL подставляет критерии в URL поиска; page <= 0 - без параметра страницы
func (d PortalDefinition) BuildSearchURL(criteria domain.SearchCriteria, page int) (string, error) {
	raw := strings.NewReplacer("{city}", slug(criteria.City), "{zone}", slug(criteria.Zone)).Replace(d.SearchURL)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("portal %s: invalid search URL: %w", d.ID, err)
	}

	q := u.Query()
	for k, v := range d.FixedParams {
		q.Set(k, v)
	}
	for field, value := range criteriaValues(criteria) {
		if param := d.QueryParams[field]; param != "" && value != "" {
			q.Set(param, value)
		}
	}
	if page > 0 && d.PageParam != "" {
		q.Set(d.PageParam, strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Pages - сколько страниц обходить: критерии важнее настроек портала
func (d PortalDefinition) Pages(criteria domain.SearchCriteria) int {
	switch {
	case criteria.MaxPages > 0:
		return criteria.MaxPages
	case d.MaxPages > 0:
		return d.MaxPages
	default:
		return 1
	}
}

// Domains - разрешённые хосты; по умолчанию хост search_url
func (d PortalDefinition) Domains() []string {
	if len(d.AllowedDomains) > 0 {
		return d.AllowedDomains
	}
	u, err := url.Parse(strings.NewReplacer("{city}", "x", "{zone}", "x").Replace(d.SearchURL))
	if err != nil || u.Hostname() == "" {
		return nil
	}
	return []string{u.Hostname()}
}

func criteriaValues(c domain.SearchCriteria) map[string]string {
	values := map[string]string{
		"city":          c.City,
		"zone":          c.Zone,
		"property_type": c.PropertyType,
	}
	if c.MinPrice != nil {
		values["min_price"] = strconv.FormatInt(*c.MinPrice, 10)
	}
	if c.MaxPrice != nil {
		values["max_price"] = strconv.FormatInt(*c.MaxPrice, 10)
	}
	if c.MinSize != nil {
		values["min_size"] = strconv.Itoa(*c.MinSize)
	}
	if c.MaxSize != nil {
		values["max_size"] = strconv.Itoa(*c.MaxSize)
	}
	if c.Bedrooms != nil {
		values["bedrooms"] = strconv.Itoa(*c.Bedrooms)
	}
	return values
}

func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
