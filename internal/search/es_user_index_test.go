package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-social/pulse/internal/domain"
)

// fakeES answers the handful of endpoints the index uses, matching
// documents with a case-insensitive substring check.
type fakeES struct {
	mu        sync.Mutex
	indexed   bool
	docs      map[string]userDocument
	lastQuery map[string]interface{}
	mapping   map[string]interface{}
	bulkCalls int
	failNext  bool
}

func newFakeES() *fakeES {
	return &fakeES{docs: make(map[string]userDocument)}
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if f.failNext {
		f.failNext = false
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"boom"}`)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/":
		io.WriteString(w, `{"version":{"number":"8.17.0"},"tagline":"You Know, for Search"}`)
	case len(parts) == 1 && r.Method == http.MethodHead:
		if !f.indexed {
			w.WriteHeader(http.StatusNotFound)
		}
	case len(parts) == 1 && r.Method == http.MethodPut:
		f.indexed = true
		json.NewDecoder(r.Body).Decode(&f.mapping)
		io.WriteString(w, `{"acknowledged":true}`)
	case len(parts) == 2 && parts[1] == "_bulk":
		f.bulk(w, r)
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodPut:
		var doc userDocument
		json.NewDecoder(r.Body).Decode(&doc)
		f.docs[parts[2]] = doc
		io.WriteString(w, `{"result":"created"}`)
	case len(parts) == 2 && parts[1] == "_search":
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		f.lastQuery = body
		f.search(w, body)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// bulk accepts index actions only. A document without a username is
// rejected per item, the way a mapping failure would be.
func (f *fakeES) bulk(w http.ResponseWriter, r *http.Request) {
	f.bulkCalls++
	dec := json.NewDecoder(r.Body)

	type item struct {
		ID    string            `json:"_id"`
		Error map[string]string `json:"error,omitempty"`
	}
	var items []map[string]item
	failed := false
	for {
		var action struct {
			Index struct {
				ID string `json:"_id"`
			} `json:"index"`
		}
		if err := dec.Decode(&action); err != nil {
			break
		}
		var doc userDocument
		if err := dec.Decode(&doc); err != nil {
			break
		}
		it := item{ID: action.Index.ID}
		if doc.Username == "" {
			failed = true
			it.Error = map[string]string{"type": "document_parsing_exception", "reason": "username missing"}
		} else {
			f.docs[action.Index.ID] = doc
		}
		items = append(items, map[string]item{"index": it})
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"errors": failed, "items": items})
}

func (f *fakeES) search(w http.ResponseWriter, body map[string]interface{}) {
	should := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["should"].([]interface{})
	value := should[0].(map[string]interface{})["wildcard"].(map[string]interface{})["username"].(map[string]interface{})["value"].(string)
	needle := strings.ToLower(strings.Trim(value, "*"))

	type hit struct {
		Source userDocument `json:"_source"`
	}
	var hits []hit
	for _, doc := range f.docs {
		if strings.Contains(strings.ToLower(doc.Username), needle) || strings.Contains(strings.ToLower(doc.DisplayName), needle) {
			hits = append(hits, hit{Source: doc})
		}
	}

	resp := map[string]interface{}{
		"hits": map[string]interface{}{
			"total": map[string]interface{}{"value": len(hits)},
			"hits":  hits,
		},
	}
	json.NewEncoder(w).Encode(resp)
}

func newTestIndex(t *testing.T) (UserIndex, *fakeES) {
	t.Helper()
	fake := newFakeES()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient([]string{srv.URL})
	require.NoError(t, err)

	idx, err := NewESUserIndex(context.Background(), client, "pulse-users")
	require.NoError(t, err)
	return idx, fake
}

func TestESUserIndex_CreatesIndex(t *testing.T) {
	_, fake := newTestIndex(t)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.True(t, fake.indexed)
}

func TestESUserIndex_IndexAndSearch(t *testing.T) {
	idx, fake := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexUser(ctx, &domain.User{ID: 1, Username: "sarah_chen", DisplayName: "Sarah Chen"}))
	require.NoError(t, idx.IndexUser(ctx, &domain.User{ID: 2, Username: "mike_johnson", DisplayName: "Mike Johnson"}))

	ids, err := idx.SearchUsers(ctx, "CHEN", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
	fake.mu.Lock()
	assert.EqualValues(t, 10, fake.lastQuery["size"])
	fake.mu.Unlock()

	ids, err = idx.SearchUsers(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestESUserIndex_MapsNamesAsWildcardFields(t *testing.T) {
	_, fake := newTestIndex(t)
	fake.mu.Lock()
	defer fake.mu.Unlock()

	props := fake.mapping["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
	for _, field := range []string{"username", "display_name"} {
		assert.Equal(t, "wildcard", props[field].(map[string]interface{})["type"], field)
	}
}

func TestESUserIndex_IndexUsersInBulk(t *testing.T) {
	idx, fake := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexUsers(ctx, nil))
	require.NoError(t, idx.IndexUsers(ctx, []*domain.User{
		{ID: 1, Username: "sarah_chen", DisplayName: "Sarah Chen"},
		{ID: 3, Username: "emma_wilson", DisplayName: "Emma Wilson"},
	}))

	fake.mu.Lock()
	assert.Equal(t, 1, fake.bulkCalls)
	assert.Len(t, fake.docs, 2)
	fake.mu.Unlock()

	ids, err := idx.SearchUsers(ctx, "wils", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)

	err = idx.IndexUsers(ctx, []*domain.User{{ID: 4, DisplayName: "No Handle"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username missing")
}

func TestBackfill_Batches(t *testing.T) {
	idx, fake := newTestIndex(t)

	users := make([]*domain.User, backfillBatch+1)
	for i := range users {
		users[i] = &domain.User{ID: int64(i + 1), Username: fmt.Sprintf("user%d", i+1)}
	}
	n, err := Backfill(context.Background(), idx, users)
	require.NoError(t, err)
	assert.Equal(t, len(users), n)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 2, fake.bulkCalls)
	assert.Len(t, fake.docs, len(users))
}

func TestESUserIndex_EscapesWildcards(t *testing.T) {
	idx, fake := newTestIndex(t)

	_, err := idx.SearchUsers(context.Background(), "a*b", 5)
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	should := fake.lastQuery["query"].(map[string]interface{})["bool"].(map[string]interface{})["should"].([]interface{})
	value := should[0].(map[string]interface{})["wildcard"].(map[string]interface{})["username"].(map[string]interface{})["value"]
	assert.Equal(t, `*a\*b*`, value)
}

func TestESUserIndex_ErrorResponse(t *testing.T) {
	idx, fake := newTestIndex(t)
	fake.mu.Lock()
	fake.failNext = true
	fake.mu.Unlock()

	_, err := idx.SearchUsers(context.Background(), "x", 5)
	assert.Error(t, err)
}
