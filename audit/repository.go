// audit/repository.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type Repository interface {
	Index(ctx context.Context, entry Entry) error
	Search(ctx context.Context, filter Filter, page Pagination) ([]Entry, error)
	AggregateDenials(ctx context.Context, windowDays, denialThreshold int) ([]ActorActivity, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
	index    string
}

// NewElasticsearchRepository creates a new repository with a given Elasticsearch client URL.
func NewElasticsearchRepository(esURL, index string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if index == "" {
		index = "audit-logs"
	}
	return &ElasticsearchRepository{esClient: esClient, index: index}, nil
}

// Index writes one audit entry.
func (r *ElasticsearchRepository) Index(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: entry.ID,
		Body:       bytes.NewReader(data),
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}

	return nil
}

func (r *ElasticsearchRepository) buildFilterClauses(filter Filter) []interface{} {
	must := []interface{}{}

	rangeClause := map[string]interface{}{}
	if !filter.From.IsZero() {
		rangeClause["gte"] = filter.From.Format(time.RFC3339)
	}
	if !filter.To.IsZero() {
		rangeClause["lte"] = filter.To.Format(time.RFC3339)
	}
	if len(rangeClause) > 0 {
		must = append(must, map[string]interface{}{
			"range": map[string]interface{}{"timestamp": rangeClause},
		})
	}

	if filter.ActorID != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"actor_id.keyword": filter.ActorID},
		})
	}
	if filter.Kind != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"kind.keyword": filter.Kind},
		})
	}
	if filter.ResourceType != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"resource_type.keyword": filter.ResourceType},
		})
	}
	if filter.Success != nil {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"success": *filter.Success},
		})
	}

	return must
}

// Search returns audit entries matching the filter, newest first.
func (r *ElasticsearchRepository) Search(ctx context.Context, filter Filter, page Pagination) ([]Entry, error) {
	if page.Limit <= 0 {
		page.Limit = 50
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": r.buildFilterClauses(filter),
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"from": page.Offset,
		"size": page.Limit,
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(r.index),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching documents: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return nil, err
	}

	hits := rmap["hits"].(map[string]interface{})["hits"].([]interface{})
	entries := make([]Entry, len(hits))
	for i, hit := range hits {
		source := hit.(map[string]interface{})["_source"]
		data, _ := json.Marshal(source)
		json.Unmarshal(data, &entries[i])
	}

	return entries, nil
}

// AggregateDenials groups denied entries from the window by actor and
// resource type and keeps the buckets above the threshold.
func (r *ElasticsearchRepository) AggregateDenials(ctx context.Context, windowDays, denialThreshold int) ([]ActorActivity, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	if denialThreshold <= 0 {
		denialThreshold = 10
	}

	query := map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{"kind.keyword": KindAccessDenied},
					},
					map[string]interface{}{
						"range": map[string]interface{}{
							"timestamp": map[string]interface{}{
								"gte": fmt.Sprintf("now-%dd/d", windowDays),
							},
						},
					},
				},
			},
		},
		"aggs": map[string]interface{}{
			"by_actor": map[string]interface{}{
				"terms": map[string]interface{}{
					"field":         "actor_id.keyword",
					"min_doc_count": denialThreshold,
					"size":          100,
				},
				"aggs": map[string]interface{}{
					"by_resource": map[string]interface{}{
						"terms": map[string]interface{}{
							"field": "resource_type.keyword",
							"size":  20,
						},
					},
				},
			},
		},
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(r.index),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error aggregating documents: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return nil, err
	}

	var activity []ActorActivity
	aggs, ok := rmap["aggregations"].(map[string]interface{})
	if !ok {
		return activity, nil
	}
	byActor := aggs["by_actor"].(map[string]interface{})
	for _, b := range byActor["buckets"].([]interface{}) {
		bucket := b.(map[string]interface{})
		actorID := fmt.Sprintf("%v", bucket["key"])
		total := int64(bucket["doc_count"].(float64))

		byResource, ok := bucket["by_resource"].(map[string]interface{})
		if !ok {
			activity = append(activity, ActorActivity{ActorID: actorID, DeniedCount: total})
			continue
		}
		for _, rb := range byResource["buckets"].([]interface{}) {
			rBucket := rb.(map[string]interface{})
			activity = append(activity, ActorActivity{
				ActorID:      actorID,
				ResourceType: fmt.Sprintf("%v", rBucket["key"]),
				DeniedCount:  int64(rBucket["doc_count"].(float64)),
			})
		}
	}

	return activity, nil
}
