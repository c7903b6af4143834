package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/commands"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peopleProp(ids ...string) map[string]any {
	people := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		people = append(people, map[string]any{"object": "user", "id": id})
	}
	return map[string]any{"type": "people", "people": people}
}

func titleProp(text string) map[string]any {
	return map[string]any{"type": "title", "title": []map[string]any{{"plain_text": text}}}
}

func selectProp(name string) map[string]any {
	return map[string]any{"type": "select", "select": map[string]any{"name": name}}
}

type recordedQuery struct {
	path    string
	version string
	auth    string
	body    queryRequest
}

func newNotionServer(t *testing.T, pages map[string][]map[string]any) (*httptest.Server, func() []recordedQuery) {
	t.Helper()
	var (
		mu      sync.Mutex
		queries []recordedQuery
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body queryRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		queries = append(queries, recordedQuery{
			path:    r.URL.Path,
			version: r.Header.Get("Notion-Version"),
			auth:    r.Header.Get("Authorization"),
			body:    body,
		})
		mu.Unlock()

		dbID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/databases/"), "/query")
		results, ok := pages[dbID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"object":"error","code":"object_not_found"}`))
			return
		}

		// One page per response so pagination is exercised.
		index := 0
		if body.StartCursor != "" {
			index = len(strings.Split(body.StartCursor, "+"))
		}
		resp := map[string]any{"results": []any{}, "has_more": false, "next_cursor": nil}
		if index < len(results) {
			resp["results"] = []any{results[index]}
			if index+1 < len(results) {
				cursor := strings.Repeat("c+", index) + "c"
				resp["has_more"] = true
				resp["next_cursor"] = cursor
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)

	return server, func() []recordedQuery {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedQuery(nil), queries...)
	}
}

func TestSource_Fetch(t *testing.T) {
	ctx := context.Background()
	ids := DatabaseIDs{Pitch: "pitch-db", Experiment: "problem-db"}

	pages := map[string][]map[string]any{
		"pitch-db": {
			{
				"id":  "page-1",
				"url": "https://www.notion.so/page-1",
				"properties": map[string]any{
					"이름":  titleProp("Pitch 2. V2 인증 시스템"),
					"상태":  map[string]any{"type": "status", "status": map[string]any{"name": "Delivering"}},
					"제안자": peopleProp("u1"),
					"실행자": peopleProp("u2", "u3"),
				},
			},
			{
				"id": "page-2",
				"properties": map[string]any{
					"이름": map[string]any{"type": "title", "title": []any{}},
					"상태": selectProp("Pitch"),
				},
			},
		},
		"problem-db": {
			{
				"id": "page-3",
				"properties": map[string]any{
					"Name":    titleProp("AI Native Memory Framework"),
					"Status":  selectProp("Archive"),
					"Lead":    peopleProp("u1"),
					"Members": peopleProp("u4"),
				},
			},
		},
	}

	t.Run("maps pages to raw records across databases and pages", func(t *testing.T) {
		server, recorded := newNotionServer(t, pages)
		source := NewSource("secret-token", DefaultDatabases(ids), nil).WithBaseURL(server.URL)

		records, err := source.Fetch(ctx)

		require.NoError(t, err)
		require.Len(t, records, 3)

		first := records[0]
		assert.Equal(t, "notion:pitch", first.Source)
		assert.Equal(t, "ShapeUp", first.CategoryLabel)
		assert.Equal(t, "page-1", first.ExternalID)
		assert.Equal(t, "Pitch 2. V2 인증 시스템", first.Title)
		assert.Equal(t, "Delivering", first.Status)
		assert.Equal(t, []string{"u1"}, first.DiscoveryCandidates)
		assert.Equal(t, []string{"u2", "u3"}, first.DeliveryCandidates)
		assert.Equal(t, "https://www.notion.so/page-1", first.URL)

		assert.Equal(t, "Untitled Pitch", records[1].Title)
		assert.Equal(t, "Pitch", records[1].Status)

		third := records[2]
		assert.Equal(t, "Experiment", third.CategoryLabel)
		assert.Equal(t, []string{"u1"}, third.DiscoveryCandidates)
		assert.Equal(t, []string{"u1", "u4"}, third.DeliveryCandidates)

		queries := recorded()
		require.Len(t, queries, 3)
		for _, q := range queries {
			assert.Equal(t, defaultVersion, q.version)
			assert.Equal(t, "Bearer secret-token", q.auth)
			if q.path == "/v1/databases/pitch-db/query" {
				require.NotNil(t, q.body.Filter)
				assert.Equal(t, "6-pagers", q.body.Filter["property"])
			} else {
				assert.Nil(t, q.body.Filter)
			}
		}
	})

	t.Run("one failing database fails the whole fetch", func(t *testing.T) {
		server, _ := newNotionServer(t, map[string][]map[string]any{"pitch-db": pages["pitch-db"]})
		source := NewSource("secret-token", DefaultDatabases(ids), nil).WithBaseURL(server.URL)

		records, err := source.Fetch(ctx)

		require.Error(t, err)
		assert.Nil(t, records)
		var transportErr *commands.TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "notion:problems", transportErr.Source)
		assert.Contains(t, err.Error(), "status=404")
	})

	t.Run("unreachable api is a transport error", func(t *testing.T) {
		server, _ := newNotionServer(t, pages)
		server.Close()
		source := NewSource("secret-token", DefaultDatabases(ids), nil).WithBaseURL(server.URL)

		_, err := source.Fetch(ctx)

		var transportErr *commands.TransportError
		assert.ErrorAs(t, err, &transportErr)
	})
}

func TestDefaultDatabases(t *testing.T) {
	t.Run("skips databases without an id", func(t *testing.T) {
		specs := DefaultDatabases(DatabaseIDs{Roadmap: "r"})

		require.Len(t, specs, 1)
		assert.Equal(t, domain.CategoryRoadmap, specs[0].Category)
		assert.Equal(t, []string{"담당자"}, specs[0].DeliveryProperties)
	})

	t.Run("every descriptor parses to its category", func(t *testing.T) {
		for _, spec := range DefaultDatabases(DatabaseIDs{Pitch: "a", Experiment: "b", Roadmap: "c", Global: "d"}) {
			category, err := domain.ParseCategory(spec.Category.String())
			require.NoError(t, err)
			assert.Equal(t, spec.Category, category)
		}
	})
}

func TestStatusName(t *testing.T) {
	assert.Equal(t, "Done", statusName(property{Status: &option{Name: "Done"}}))
	assert.Equal(t, "Must", statusName(property{Select: &option{Name: "Must"}}))
	assert.Equal(t, "검토", statusName(property{RichText: []richText{{PlainText: "검토"}}}))
	assert.Empty(t, statusName(property{}))
}
