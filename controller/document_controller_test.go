package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Itish41/ContraCam/middleware"
	"github.com/Itish41/ContraCam/models"
	service "github.com/Itish41/ContraCam/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeExtractor struct{}

func (fakeExtractor) ExtractText(_ context.Context, p models.Page) (string, error) {
	return string(p.Data), nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(context.Context, string) (string, error) {
	return "A short lease.", nil
}

// historyWriteFails refuses writes to the history key only, so login still works.
type historyWriteFails struct {
	service.KVStore
}

func (h historyWriteFails) Set(ctx context.Context, key string, value []byte) error {
	if key == service.HistoryKey {
		return errors.New("quota exceeded")
	}
	return h.KVStore.Set(ctx, key, value)
}

type testServer struct {
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T, wrap func(service.KVStore) service.KVStore) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// fresh limiters so tests do not share request budgets
	middleware.GlobalRateLimiter = middleware.NewRateLimiter(1000, time.Minute)
	middleware.StrictRateLimiter = middleware.NewRateLimiter(1000, time.Minute)

	var kv service.KVStore
	kv, err := service.NewFileKV(t.TempDir())
	require.NoError(t, err)
	if wrap != nil {
		kv = wrap(kv)
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "rules.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AlertRule{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	rules := service.NewRuleService(db, discardLogger)
	require.NoError(t, rules.AddRule(context.Background(), &models.AlertRule{
		Phrase:  "penalty",
		Level:   models.AlertLevelCritical,
		Section: "Termination",
	}))

	session := service.NewSession(kv, discardLogger)
	require.NoError(t, session.Init(context.Background()))

	store := service.NewBlobDocumentStore(kv, discardLogger)
	pipeline := service.NewIntakePipeline(service.IntakeDeps{
		Extractor:  fakeExtractor{},
		Summarizer: fakeSummarizer{},
		Rules:      rules,
		Store:      store,
		Logger:     discardLogger,
	}, service.IntakeOptions{OCRTimeout: time.Second, OCRConcurrency: 2, SummaryTimeout: time.Second})
	docs := service.NewDocumentService(pipeline, store, nil, discardLogger)

	router := NewRouter(Routes{
		Documents: NewDocumentController(docs, discardLogger),
		Rules:     NewRuleController(rules),
		Session:   NewSessionController(session),
		Auth:      session,
	})

	ts := &testServer{router: router}
	w := ts.do(t, http.MethodPost, "/login", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	ts.token = login.Token
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// upload posts each page as a "files" part.
func (ts *testServer) upload(t *testing.T, pages map[string]string, order ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range order {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(pages[name]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return ts.do(t, http.MethodPost, "/contracts", &buf, mw.FormDataContentType())
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestContractsRequireLogin(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.token = ""

	for _, path := range []string{"/contracts", "/dashboard", "/contracts/0", "/rules"} {
		w := ts.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	ts.token = "stale-token"
	w := ts.do(t, http.MethodGet, "/contracts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadRejectsBadBatches(t *testing.T) {
	ts := newTestServer(t, nil)

	t.Run("no files", func(t *testing.T) {
		w := ts.upload(t, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("eleven files", func(t *testing.T) {
		pages := map[string]string{}
		var order []string
		for i := 0; i < 11; i++ {
			name := fmt.Sprintf("p%d.png", i)
			pages[name] = "text"
			order = append(order, name)
		}
		w := ts.upload(t, pages, order...)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not an image", func(t *testing.T) {
		w := ts.upload(t, map[string]string{"lease.pdf": "text"}, "lease.pdf")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/contracts", strings.NewReader(`{}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w := ts.do(t, http.MethodGet, "/contracts", nil, "")
	assert.JSONEq(t, `{"documents":[],"total":0}`, w.Body.String())
}

func TestContractLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.upload(t, map[string]string{
		"page1.png": "Rent is $1200 per month.",
		"page2.png": "A penalty applies for early exit.",
	}, "page1.png", "page2.png")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID       string          `json:"id"`
		Position int             `json:"position"`
		Document models.Document `json:"document"`
	}
	decode(t, w, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 0, created.Position)
	assert.Equal(t, "Rent is $1200 per month.\nA penalty applies for early exit.", created.Document.Text)
	assert.Equal(t, "A short lease.", created.Document.Summary)
	assert.Len(t, created.Document.KeyPoints, service.KeyPointCount)
	assert.Equal(t, []string{"penalty"}, created.Document.Triggers)
	assert.Equal(t, 1, created.Document.Alerts)

	w = ts.do(t, http.MethodGet, "/contracts", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Documents []models.DocumentSummary `json:"documents"`
		Total     int                      `json:"total"`
	}
	decode(t, w, &list)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, created.ID, list.Documents[0].ID)
	assert.Equal(t, "page1.png", list.Documents[0].Title)
	assert.Equal(t, models.PlaceholderThumbnail, list.Documents[0].Thumbnail)

	w = ts.do(t, http.MethodGet, "/contracts/0", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var doc models.Document
	decode(t, w, &doc)
	assert.Equal(t, created.ID, doc.ID)
	require.Len(t, doc.DetailedSections, 1)
	assert.Equal(t, "Termination", doc.DetailedSections[0].Title)

	w = ts.do(t, http.MethodGet, "/dashboard", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats service.DashboardStats
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.TotalContracts)
	assert.Equal(t, 1, stats.AlertsFound)
	require.Len(t, stats.Recent, 1)

	w = ts.do(t, http.MethodGet, "/contracts/export", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "contracts.xlsx")
	assert.NotZero(t, w.Body.Len())

	w = ts.do(t, http.MethodDelete, "/contracts/0", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/contracts/0", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"contract not found","empty":true}`, w.Body.String())
}

func TestContractPositionErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/contracts/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/contracts/3", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/contracts/-1", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadStoreFailure(t *testing.T) {
	ts := newTestServer(t, func(kv service.KVStore) service.KVStore {
		return historyWriteFails{kv}
	})

	w := ts.upload(t, map[string]string{"lease.png": "Rent is $1200."}, "lease.png")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"processing failed, try again"}`, w.Body.String())
}

func TestSearchContracts(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/search", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/search?q=rent", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRulesEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/rules", strings.NewReader(`{"phrase":"late fee","section":"Payment Terms"}`), "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rule models.AlertRule
	decode(t, w, &rule)
	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, models.AlertLevelWarning, rule.Level)

	w = ts.do(t, http.MethodPost, "/rules", strings.NewReader(`{"phrase":"penalty"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/rules", strings.NewReader(`{"level":"critical"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/rules", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var rules []models.AlertRule
	decode(t, w, &rules)
	assert.Len(t, rules, 2)
}

func TestSessionEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/session", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"lastVisitedPage":"dashboard","theme":"light","loggedIn":true}`, w.Body.String())

	w = ts.do(t, http.MethodPut, "/session/theme", strings.NewReader(`{"theme":"dark"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"lastVisitedPage":"dashboard","theme":"dark","loggedIn":true}`, w.Body.String())

	w = ts.do(t, http.MethodPut, "/session/theme", strings.NewReader(`{"theme":"neon"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/session/view", strings.NewReader(`{"view":"history"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPut, "/session/view", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/logout", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/contracts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/session", nil, "")
	assert.JSONEq(t, `{"lastVisitedPage":"history","theme":"dark","loggedIn":false}`, w.Body.String())
}
