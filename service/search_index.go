package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	model "github.com/Itish41/ContraCam/models"
	"github.com/elastic/go-elasticsearch/v8"
)

// ErrSearchDisabled is returned by Search when no Elasticsearch URL is configured.
var ErrSearchDisabled = errors.New("elasticsearch client is not initialized")

// SearchIndex mirrors the history into a full-text index.
type SearchIndex interface {
	Index(ctx context.Context, doc model.Document) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]map[string]interface{}, error)
}

// ElasticIndex is a SearchIndex backed by Elasticsearch. A nil client turns
// indexing into a no-op.
type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
	logger *slog.Logger
}

// NewElasticIndex returns an index without a client when url is empty.
func NewElasticIndex(url, index string, logger *slog.Logger) (*ElasticIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if index == "" {
		index = "contracts"
	}
	ei := &ElasticIndex{index: index, logger: logger}
	if url == "" {
		return ei, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	ei.client = client
	return ei, nil
}

// Index stores doc under its ID. Indexing failures are logged, never returned,
// so they cannot break an upload.
func (s *ElasticIndex) Index(ctx context.Context, doc model.Document) error {
	if s.client == nil {
		s.logger.Debug("search.index_skipped", "id", doc.ID)
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"id":         doc.ID,
		"title":      doc.DisplayTitle(),
		"text":       doc.Text,
		"summary":    doc.Summary,
		"key_points": doc.KeyPoints,
		"triggers":   doc.Triggers,
		"alerts":     doc.Alerts,
		"thumbnail":  doc.DisplayThumbnail(),
		"created_at": doc.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal document for indexing: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(doc.ID),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		s.logger.Warn("search.index_error", "id", doc.ID, "error", err)
		return nil
	}
	defer res.Body.Close()

	if res.IsError() {
		s.logger.Warn("search.index_failed", "id", doc.ID, "status", res.StatusCode)
		return nil
	}
	s.logger.Info("search.indexed", "id", doc.ID)
	return nil
}

// Delete drops id from the index; missing documents are ignored.
func (s *ElasticIndex) Delete(ctx context.Context, id string) error {
	if s.client == nil {
		return nil
	}
	res, err := s.client.Delete(s.index, id, s.client.Delete.WithContext(ctx))
	if err != nil {
		s.logger.Warn("search.delete_error", "id", id, "error", err)
		return nil
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		s.logger.Warn("search.delete_failed", "id", id, "status", res.StatusCode)
	}
	return nil
}

// Search runs a multi_match query over title, text and summary.
func (s *ElasticIndex) Search(ctx context.Context, query string) ([]map[string]interface{}, error) {
	if s.client == nil {
		return nil, ErrSearchDisabled
	}
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Field: "q", Message: "query is required"}
	}

	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "summary", "text", "key_points"},
			},
		},
	}
	body, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	documents := make([]map[string]interface{}, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		if hit.Source == nil {
			continue
		}
		documents = append(documents, hit.Source)
	}
	return documents, nil
}
