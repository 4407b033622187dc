package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"example.com/annapurna/services/donations/config"
	"example.com/annapurna/services/donations/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient indexes listings for free-text item search. It is optional:
// when disabled the matching layer falls back to in-process substring
// filtering, so indexing failures never block the lifecycle.
type ElasticClient struct {
	client  *elasticsearch.Client
	config  config.ElasticConfig
	enabled bool
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return &ElasticClient{enabled: false}, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client:  client,
		config:  cfg,
		enabled: true,
	}, nil
}

// Enabled reports whether search is configured.
func (c *ElasticClient) Enabled() bool {
	return c != nil && c.enabled
}

// IndexListing indexes a listing's searchable fields.
func (c *ElasticClient) IndexListing(ctx context.Context, listing *models.Listing) error {
	if !c.Enabled() {
		return nil
	}

	itemNames := make([]string, 0, len(listing.Items))
	for _, item := range listing.Items {
		itemNames = append(itemNames, item.Name)
	}

	doc := map[string]interface{}{
		"id":           listing.ID.String(),
		"donor_id":     listing.DonorID.String(),
		"item_names":   strings.Join(itemNames, " "),
		"dietary_kind": listing.DietaryKind,
		"status":       listing.Status,
		"address":      listing.Address,
		"created_at":   listing.CreatedAt,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal listing document")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: listing.ID.String(),
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Debug().Str("listing_id", listing.ID.String()).Msg("listing indexed")
	return nil
}

// SearchListingIDs finds available listings whose item names match the
// free-text query and returns their IDs.
func (c *ElasticClient) SearchListingIDs(ctx context.Context, freeText string) ([]uuid.UUID, error) {
	if !c.Enabled() {
		return nil, errors.New("search is disabled")
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"match": map[string]interface{}{
							"item_names": freeText,
						},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{
							"status": models.ListingAvailable,
						},
					},
				},
			},
		},
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	ids := make([]uuid.UUID, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			log.Warn().Str("doc_id", hit.ID).Msg("skipping non-uuid search hit")
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
