package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/scheduler/config"
	"example.com/backstage/services/scheduler/models"
)

const eventsIndex = "events"

// ElasticClient indexes imported events for the operators' search UI.
// Indexing is best effort; a failed index never fails an import.
type ElasticClient struct {
	client  *elasticsearch.Client
	prefix  string
	enabled bool
}

// NewElasticClient creates a new Elasticsearch client. When search is
// disabled in configuration the returned client is a no-op.
func NewElasticClient(cfg config.Config) (*ElasticClient, error) {
	if !cfg.ElasticSearchEnabled {
		return &ElasticClient{enabled: false}, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.ElasticSearchURL},
		Username:  cfg.ElasticSearchUsername,
		Password:  cfg.ElasticSearchPassword,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	res, err := client.Info()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to Elasticsearch")
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.Errorf("Elasticsearch returned error: %s", res.String())
	}

	log.Info().Msg("Successfully connected to Elasticsearch")
	return &ElasticClient{
		client:  client,
		prefix:  cfg.ElasticSearchPrefix,
		enabled: true,
	}, nil
}

// IndexEvent indexes one event document
func (c *ElasticClient) IndexEvent(ctx context.Context, event *models.Event) error {
	if !c.enabled {
		return nil
	}

	doc := map[string]interface{}{
		"id":          event.ID,
		"title":       event.Title,
		"start_time":  event.StartTime,
		"end_time":    event.EndTime,
		"user_id":     event.UserID,
		"description": event.Description,
		"color":       event.Color,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event document")
	}

	req := esapi.IndexRequest{
		Index:      c.formatIndex(eventsIndex),
		DocumentID: strconv.FormatUint(uint64(event.ID), 10),
		Body:       bytes.NewReader(docJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Errorf("Elasticsearch index error: %s", res.String())
	}

	return nil
}

// RemoveEvent deletes an event document after a physical event delete
func (c *ElasticClient) RemoveEvent(ctx context.Context, eventID uint) error {
	if !c.enabled {
		return nil
	}

	req := esapi.DeleteRequest{
		Index:      c.formatIndex(eventsIndex),
		DocumentID: strconv.FormatUint(uint64(eventID), 10),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch delete request")
	}
	defer res.Body.Close()

	// A missing document is fine, the event may never have been indexed
	if res.IsError() && res.StatusCode != 404 {
		return errors.Errorf("Elasticsearch delete error: %s", res.String())
	}

	return nil
}

// formatIndex adds the configured prefix to an index name
func (c *ElasticClient) formatIndex(index string) string {
	return c.prefix + "-" + index
}
