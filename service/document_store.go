package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	model "github.com/Itish41/ContraCam/models"
)

// DocumentStore is the contract history. Positions are 0-based and shift
// down after a removal.
type DocumentStore interface {
	List(ctx context.Context) ([]model.Document, error)
	Get(ctx context.Context, position int) (model.Document, error)
	Append(ctx context.Context, doc model.Document) (int, error)
	RemoveAt(ctx context.Context, position int) (model.Document, error)
}

// BlobDocumentStore keeps the whole history as one JSON array under a single
// KV key and rewrites it on every mutation. Mutations through one store are
// serialized. Separate stores sharing the same KVStore (another process, another
// tab) are not coordinated: they can lose each other's updates, and the last
// Set wins.
type BlobDocumentStore struct {
	mu     sync.Mutex
	kv     KVStore
	key    string
	logger *slog.Logger
}

func NewBlobDocumentStore(kv KVStore, logger *slog.Logger) *BlobDocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobDocumentStore{kv: kv, key: HistoryKey, logger: logger}
}

func (s *BlobDocumentStore) load(ctx context.Context) ([]model.Document, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, ErrKeyNotFound) {
		return []model.Document{}, nil
	}
	if err != nil {
		return nil, storeErr("read history", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return []model.Document{}, nil
	}

	var docs []model.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, storeErr("decode history", err)
	}
	for i := range docs {
		docs[i].KeyPoints = normalizeKeyPoints(docs[i].KeyPoints)
	}
	return docs, nil
}

// normalizeKeyPoints brings records written by older clients back to exactly
// KeyPointCount entries.
func normalizeKeyPoints(points []string) []string {
	if len(points) > KeyPointCount {
		points = points[:KeyPointCount]
	}
	return padKeyPoints(points)
}

func (s *BlobDocumentStore) save(ctx context.Context, docs []model.Document) error {
	raw, err := json.Marshal(docs)
	if err != nil {
		return storeErr("encode history", err)
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		return storeErr("write history", err)
	}
	return nil
}

// List returns the history in insertion order.
func (s *BlobDocumentStore) List(ctx context.Context) ([]model.Document, error) {
	return s.load(ctx)
}

func (s *BlobDocumentStore) Get(ctx context.Context, position int) (model.Document, error) {
	docs, err := s.load(ctx)
	if err != nil {
		return model.Document{}, err
	}
	if position < 0 || position >= len(docs) {
		return model.Document{}, fmt.Errorf("document at position %d: %w", position, ErrNotFound)
	}
	return docs[position], nil
}

// Append adds doc at the end of the history and returns its position.
func (s *BlobDocumentStore) Append(ctx context.Context, doc model.Document) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	docs = append(docs, doc)
	if err := s.save(ctx, docs); err != nil {
		return 0, err
	}

	position := len(docs) - 1
	s.logger.Info("history.append", "id", doc.ID, "position", position, "total", len(docs))
	return position, nil
}

// RemoveAt deletes the record at position and returns it; later records move
// up by one.
func (s *BlobDocumentStore) RemoveAt(ctx context.Context, position int) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(ctx)
	if err != nil {
		return model.Document{}, err
	}
	if position < 0 || position >= len(docs) {
		return model.Document{}, fmt.Errorf("document at position %d: %w", position, ErrNotFound)
	}

	removed := docs[position]
	docs = append(docs[:position], docs[position+1:]...)
	if err := s.save(ctx, docs); err != nil {
		return model.Document{}, err
	}

	s.logger.Info("history.remove", "id", removed.ID, "position", position, "total", len(docs))
	return removed, nil
}
