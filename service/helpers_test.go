package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	model "github.com/Itish41/ContraCam/models"
	"github.com/stretchr/testify/mock"
)

// FixedTime for consistent time patching
var FixedTime = time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// memKV is an in-memory KVStore.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// failingKV reads normally but refuses every write.
type failingKV struct {
	*memKV
}

func (failingKV) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

// hookKV runs onGet once, right after the first Get returns.
type hookKV struct {
	KVStore
	onGet func()
}

func (h *hookKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := h.KVStore.Get(ctx, key)
	if f := h.onGet; f != nil {
		h.onGet = nil
		f()
	}
	return v, err
}

// MockExtractor implements TextExtractor with testify/mock
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractText(ctx context.Context, page model.Page) (string, error) {
	args := m.Called(ctx, page)
	return args.String(0), args.Error(1)
}

// MockSummarizer implements Summarizer with testify/mock
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

type extractorFunc func(ctx context.Context, page model.Page) (string, error)

func (f extractorFunc) ExtractText(ctx context.Context, page model.Page) (string, error) {
	return f(ctx, page)
}

// fakeImages stores previews through put and remembers what was stored and deleted.
type fakeImages struct {
	mu      sync.Mutex
	put     func(ctx context.Context, docID string, page model.Page) (string, error)
	stored  []string
	deleted []string
}

func (f *fakeImages) Put(ctx context.Context, docID string, page model.Page) (string, error) {
	ref, err := f.put(ctx, docID, page)
	if err == nil {
		f.mu.Lock()
		f.stored = append(f.stored, ref)
		f.mu.Unlock()
	}
	return ref, err
}

func (f *fakeImages) Delete(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

// recordingIndex remembers what was indexed and deleted.
type recordingIndex struct {
	mu      sync.Mutex
	indexed []string
	deleted []string
}

func (r *recordingIndex) Index(_ context.Context, doc model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, doc.ID)
	return nil
}

func (r *recordingIndex) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *recordingIndex) Search(context.Context, string) ([]map[string]interface{}, error) {
	return nil, nil
}

func page(name, data string) model.Page {
	return model.Page{FileName: name, ContentType: "image/png", Data: []byte(data)}
}
