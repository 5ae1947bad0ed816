package portalfetcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"outreach-service/internal/core/domain"
)

type fieldSetter func(r *domain.RawListing, v string)

// fieldSetters - имена полей, допустимые в fields
var fieldSetters = map[string]fieldSetter{
	"source_id":     func(r *domain.RawListing, v string) { r.SourceID = v },
	"url":           func(r *domain.RawListing, v string) { r.URL = v },
	"title":         func(r *domain.RawListing, v string) { r.Title = v },
	"description":   func(r *domain.RawListing, v string) { r.Description = v },
	"address":       func(r *domain.RawListing, v string) { r.Address = v },
	"city":          func(r *domain.RawListing, v string) { r.City = v },
	"zone":          func(r *domain.RawListing, v string) { r.Zone = v },
	"price":         func(r *domain.RawListing, v string) { r.Price = v },
	"size":          func(r *domain.RawListing, v string) { r.Size = v },
	"bedrooms":      func(r *domain.RawListing, v string) { r.Bedrooms = v },
	"bathrooms":     func(r *domain.RawListing, v string) { r.Bathrooms = v },
	"property_type": func(r *domain.RawListing, v string) { r.PropertyType = v },
	"latitude":      func(r *domain.RawListing, v string) { r.Latitude = v },
	"longitude":     func(r *domain.RawListing, v string) { r.Longitude = v },
	"owner_contact": func(r *domain.RawListing, v string) { r.OwnerContact = v },
	"elevator":      func(r *domain.RawListing, v string) { r.Elevator = v },
	"balcony":       func(r *domain.RawListing, v string) { r.Balcony = v },
	"parking":       func(r *domain.RawListing, v string) { r.Parking = v },
	"garden":        func(r *domain.RawListing, v string) { r.Garden = v },
	"owned":         func(r *domain.RawListing, v string) { r.Owned = v },
	"multiagency":   func(r *domain.RawListing, v string) { r.Multiagency = v },
	"exclusive":     func(r *domain.RawListing, v string) { r.Exclusive = v },

	"signals.preclassified_owner_type": func(r *domain.RawListing, v string) { r.Signals.PreclassifiedOwnerType = v },
	"signals.advertiser_type":          func(r *domain.RawListing, v string) { r.Signals.AdvertiserType = v },
	"signals.advertiser_name":          func(r *domain.RawListing, v string) { r.Signals.AdvertiserName = v },
	"signals.agency_name":              func(r *domain.RawListing, v string) { r.Signals.AgencyName = v },
	"signals.agency_id":                func(r *domain.RawListing, v string) { r.Signals.AgencyID = v },
	"signals.contact_type":             func(r *domain.RawListing, v string) { r.Signals.ContactType = v },
	"signals.contact_block":            func(r *domain.RawListing, v string) { r.Signals.ContactBlock = v },
}

// DecodeJSON разбирает JSON, сохраняя числа как json.Number, чтобы длинные id не теряли точность
func DecodeJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Lookup идёт по пути вида "a.b.0.c"; числовой сегмент - индекс массива
func Lookup(v interface{}, path string) (interface{}, bool) {
	if path == "" || path == "." {
		return v, v != nil
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// scalar приводит значение JSON к строке; массивы строк склеиваются через пробел
func scalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := scalar(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Items достаёт массив объявлений из документа
func (d PortalDefinition) Items(doc interface{}) ([]interface{}, error) {
	node, ok := Lookup(doc, d.ItemsPath)
	if !ok {
		return nil, nil
	}
	items, ok := node.([]interface{})
	if !ok {
		return nil, fmt.Errorf("portal %s: %q is not an array", d.ID, d.ItemsPath)
	}
	return items, nil
}

// MapItem превращает одно объявление в RawListing по карте полей
func (d PortalDefinition) MapItem(item interface{}) domain.RawListing {
	raw := domain.RawListing{Portal: d.ID}
	for field, path := range d.Fields {
		if v, ok := Lookup(item, path); ok {
			fieldSetters[field](&raw, scalar(v))
		}
	}
	if raw.URL == "" && d.URLTemplate != "" && raw.SourceID != "" {
		raw.URL = strings.ReplaceAll(d.URLTemplate, "{id}", raw.SourceID)
	}
	raw.Signals.Title = raw.Title
	raw.Signals.Description = raw.Description
	return raw
}

// MapDocument - Items + MapItem; записи без sourceId отбрасываются
func (d PortalDefinition) MapDocument(doc interface{}) ([]domain.RawListing, error) {
	items, err := d.Items(doc)
	if err != nil {
		return nil, err
	}
	res := make([]domain.RawListing, 0, len(items))
	for _, item := range items {
		if raw := d.MapItem(item); raw.SourceID != "" {
			res = append(res, raw)
		}
	}
	return res, nil
}
