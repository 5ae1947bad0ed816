package portalfetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"outreach-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definitionsYAML = `
portals:
  - id: alpha
    kind: json_api
    search_url: https://api.alpha.test/search/{city}
    query_params:
      max_price: prezzoMassimo
      min_size: superficieMinima
    fixed_params:
      contratto: vendita
    page_param: pag
    max_pages: 3
    items_path: data.results
    url_template: https://alpha.test/annunci/{id}
    delay: 1s
    fields:
      source_id: id
      title: title
      price: price.value
      size: surface
      signals.advertiser_type: advertiser.type
  - id: beta
    kind: next_data
    enabled: false
    search_url: https://beta.test/vendita
    items_path: props.pageProps.listings
    fields:
      source_id: id
`

func TestParseDefinitions(t *testing.T) {
	defs, err := ParseDefinitions([]byte(definitionsYAML))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	alpha := defs[0]
	assert.True(t, alpha.IsEnabled())
	assert.False(t, defs[1].IsEnabled())
	assert.Equal(t, "1s", alpha.Delay.String())
	assert.Equal(t, []string{"api.alpha.test"}, alpha.Domains())

	maxPrice := int64(350000)
	minSize := 60
	criteria := domain.SearchCriteria{City: "Reggio Emilia", MaxPrice: &maxPrice, MinSize: &minSize}

	raw, err := alpha.BuildSearchURL(criteria, 2)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/search/reggio-emilia", u.Path)
	assert.Equal(t, "350000", u.Query().Get("prezzoMassimo"))
	assert.Equal(t, "60", u.Query().Get("superficieMinima"))
	assert.Equal(t, "vendita", u.Query().Get("contratto"))
	assert.Equal(t, "2", u.Query().Get("pag"))

	assert.Equal(t, 3, alpha.Pages(criteria))
	assert.Equal(t, 1, alpha.Pages(domain.SearchCriteria{MaxPages: 1}))
}

func TestParseDefinitions_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown kind":   "portals:\n  - {id: a, kind: ftp, search_url: 'https://a.test', fields: {source_id: id}}\n",
		"no source id":   "portals:\n  - {id: a, kind: json_api, search_url: 'https://a.test', fields: {title: t}}\n",
		"unknown field":  "portals:\n  - {id: a, kind: json_api, search_url: 'https://a.test', fields: {source_id: id, colour: c}}\n",
		"duplicate ids":  "portals:\n  - {id: a, kind: json_api, search_url: 'https://a.test', fields: {source_id: id}}\n  - {id: a, kind: json_api, search_url: 'https://a.test', fields: {source_id: id}}\n",
		"relative url":   "portals:\n  - {id: a, kind: json_api, search_url: 'search', fields: {source_id: id}}\n",
		"malformed yaml": "portals: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDefinitions([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestMapItem(t *testing.T) {
	def := PortalDefinition{
		ID:          "alpha",
		URLTemplate: "https://alpha.test/annunci/{id}",
		Fields: map[string]string{
			"source_id":               "id",
			"title":                   "title",
			"price":                   "price.value",
			"bedrooms":                "rooms.0",
			"signals.advertiser_type": "advertiser.type",
			"elevator":                "features.elevator",
		},
	}
	doc, err := DecodeJSON([]byte(`{
		"id": 98765432101234567,
		"title": "  Bilocale  ",
		"price": {"value": 250000},
		"rooms": [2, 3],
		"advertiser": {"type": "privato"},
		"features": {"elevator": true}
	}`))
	require.NoError(t, err)

	raw := def.MapItem(doc)
	assert.Equal(t, "alpha", raw.Portal)
	assert.Equal(t, "98765432101234567", raw.SourceID)
	assert.Equal(t, "https://alpha.test/annunci/98765432101234567", raw.URL)
	assert.Equal(t, "Bilocale", raw.Title)
	assert.Equal(t, "Bilocale", raw.Signals.Title)
	assert.Equal(t, "250000", raw.Price)
	assert.Equal(t, "2", raw.Bedrooms)
	assert.Equal(t, "privato", raw.Signals.AdvertiserType)
	assert.Equal(t, "true", raw.Elevator)
	assert.Empty(t, raw.Size)
}

func TestMapDocument_DropsItemsWithoutID(t *testing.T) {
	def := PortalDefinition{ID: "alpha", ItemsPath: "results", Fields: map[string]string{"source_id": "id"}}
	doc, err := DecodeJSON([]byte(`{"results": [{"id": "1"}, {"title": "no id"}, {"id": "2"}]}`))
	require.NoError(t, err)

	listings, err := def.MapDocument(doc)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "2", listings[1].SourceID)

	bad := PortalDefinition{ID: "alpha", ItemsPath: "results.0", Fields: def.Fields}
	_, err = bad.MapDocument(doc)
	assert.Error(t, err)
}

func testDefinition(kind, searchURL string) PortalDefinition {
	return PortalDefinition{
		ID:             "alpha",
		Kind:           kind,
		SearchURL:      searchURL,
		AllowedDomains: []string{"127.0.0.1"},
		PageParam:      "page",
		MaxPages:       5,
		ItemsPath:      "results",
		Fields: map[string]string{
			"source_id": "id",
			"title":     "title",
		},
	}
}

func TestAdapter_JSONAPI_StopsOnEmptyPage(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{"results": [{"id": 1, "title": "a"}, {"id": 2, "title": "b"}]}`)
		case "2":
			fmt.Fprint(w, `{"results": [{"id": 3, "title": "c"}]}`)
		default:
			fmt.Fprint(w, `{"results": []}`)
		}
	}))
	defer srv.Close()

	adapter, err := NewAdapter(testDefinition(KindJSONAPI, srv.URL+"/search"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", adapter.Portal())

	listings, err := adapter.Search(context.Background(), domain.SearchCriteria{})
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, "3", listings[2].SourceID)
	assert.Equal(t, int32(3), requests.Load())
}

func TestAdapter_JSONAPI_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter, err := NewAdapter(testDefinition(KindJSONAPI, srv.URL+"/search"))
	require.NoError(t, err)

	_, err = adapter.Search(context.Background(), domain.SearchCriteria{})
	assert.Error(t, err)
	assert.False(t, adapter.IsAvailable(context.Background()))
}

func TestAdapter_NextData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `<html><body><script id="__NEXT_DATA__" type="application/json">{"results": []}</script></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><head></head><body><div>listing</div>
<script id="__NEXT_DATA__" type="application/json">{"results": [{"id": "x1", "title": "Villa"}]}</script>
</body></html>`)
	}))
	defer srv.Close()

	adapter, err := NewAdapter(testDefinition(KindNextData, srv.URL+"/vendita"))
	require.NoError(t, err)

	listings, err := adapter.Search(context.Background(), domain.SearchCriteria{})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Villa", listings[0].Title)
	assert.True(t, adapter.IsAvailable(context.Background()))
}

func TestAdapter_NextDataMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>captcha</body></html>`)
	}))
	defer srv.Close()

	adapter, err := NewAdapter(testDefinition(KindNextData, srv.URL+"/vendita"))
	require.NoError(t, err)

	_, err = adapter.Search(context.Background(), domain.SearchCriteria{})
	assert.ErrorContains(t, err, "__NEXT_DATA__")
}

func TestAdapter_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": [{"id": 1}]}`)
	}))
	defer srv.Close()

	adapter, err := NewAdapter(testDefinition(KindJSONAPI, srv.URL+"/search"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = adapter.Search(ctx, domain.SearchCriteria{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewAdapter_RejectsBrowserKind(t *testing.T) {
	def := testDefinition(KindBrowser, "https://gamma.test/search")
	_, err := NewAdapter(def)
	assert.Error(t, err)
}
