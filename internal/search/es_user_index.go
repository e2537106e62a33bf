package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/pulse-social/pulse/internal/domain"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "long"},
      "username":     {"type": "wildcard"},
      "display_name": {"type": "wildcard"}
    }
  }
}`

type esUserIndex struct {
	client *elasticsearch.Client
	index  string
}

// NewClient connects to Elasticsearch and checks that the cluster answers.
func NewClient(addresses []string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	return client, nil
}

// NewESUserIndex creates the index if it does not exist yet.
func NewESUserIndex(ctx context.Context, client *elasticsearch.Client, index string) (UserIndex, error) {
	r := &esUserIndex{client: client, index: index}
	if err := r.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *esUserIndex) ensureIndex(ctx context.Context) error {
	res, err := r.client.Indices.Exists([]string{r.index}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = r.client.Indices.Create(r.index,
		r.client.Indices.Create.WithContext(ctx),
		r.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	// Another instance may have created it first.
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

type userDocument struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func toDocument(u *domain.User) userDocument {
	return userDocument{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
}

func (r *esUserIndex) IndexUser(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(toDocument(user))
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := r.client.Index(r.index, bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(strconv.FormatInt(user.ID, 10)),
	)
	if err != nil {
		return fmt.Errorf("failed to index user: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// IndexUsers sends users through the _bulk API. A response whose items
// report errors fails as a whole with the first reason.
func (r *esUserIndex) IndexUsers(ctx context.Context, users []*domain.User) error {
	if len(users) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, u := range users {
		action := map[string]interface{}{"index": map[string]interface{}{"_id": strconv.FormatInt(u.ID, 10)}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("failed to marshal bulk action: %w", err)
		}
		if err := enc.Encode(toDocument(u)); err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
	}

	res, err := r.client.Bulk(&body,
		r.client.Bulk.WithContext(ctx),
		r.client.Bulk.WithIndex(r.index),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk index users: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var result bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if !result.Errors {
		return nil
	}
	for _, item := range result.Items {
		for _, op := range item {
			if op.Error != nil {
				return fmt.Errorf("bulk index user %s: %s: %s", op.ID, op.Error.Type, op.Error.Reason)
			}
		}
	}
	return fmt.Errorf("bulk index reported errors")
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID    string `json:"_id"`
		Error *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func (r *esUserIndex) SearchUsers(ctx context.Context, query string, limit int) ([]int64, error) {
	pattern := "*" + wildcardEscaper.Replace(query) + "*"
	wildcard := func(field string) map[string]interface{} {
		return map[string]interface{}{
			"wildcard": map[string]interface{}{
				field: map[string]interface{}{
					"value":            pattern,
					"case_insensitive": true,
				},
			},
		}
	}

	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               []interface{}{wildcard("username"), wildcard("display_name")},
				"minimum_should_match": 1,
			},
		},
		"sort": []interface{}{"_score", map[string]interface{}{"id": "asc"}},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var result esResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	ids := make([]int64, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var doc userDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			continue
		}
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// esResponse is the generic Elasticsearch search response structure.
type esResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
