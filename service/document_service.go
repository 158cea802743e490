package services

import (
	"context"
	"log/slog"

	model "github.com/Itish41/ContraCam/models"
)

const recentContracts = 5

// DocumentService is what the HTTP layer talks to: intake, history, search and export.
type DocumentService struct {
	pipeline *IntakePipeline
	store    DocumentStore
	index    SearchIndex
	logger   *slog.Logger
}

func NewDocumentService(pipeline *IntakePipeline, store DocumentStore, index SearchIndex, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{pipeline: pipeline, store: store, index: index, logger: logger}
}

// UploadAndProcess validates the batch and runs it through the intake pipeline.
func (s *DocumentService) UploadAndProcess(ctx context.Context, pages []model.Page) (*IntakeResult, error) {
	if err := ValidateBatch(pages); err != nil {
		s.logger.Info("documents.batch_rejected", "pages", len(pages), "reason", err.Error())
		return nil, err
	}
	return s.pipeline.Process(ctx, pages)
}

// History lists every contract in insertion order with legacy fallbacks applied.
func (s *DocumentService) History(ctx context.Context) ([]model.DocumentSummary, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.DocumentSummary, len(docs))
	for i, d := range docs {
		out[i] = d.Summarize(i)
	}
	return out, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, position int) (model.Document, error) {
	doc, err := s.store.Get(ctx, position)
	if err != nil {
		return model.Document{}, err
	}
	if doc.Thumbnail == "" {
		doc.Thumbnail = model.PlaceholderThumbnail
	}
	return doc, nil
}

// DeleteDocument removes the contract at position and drops it from the search index.
func (s *DocumentService) DeleteDocument(ctx context.Context, position int) error {
	doc, err := s.store.RemoveAt(ctx, position)
	if err != nil {
		return err
	}
	if s.index != nil && doc.ID != "" {
		_ = s.index.Delete(ctx, doc.ID)
	}
	return nil
}

// DashboardStats is the dashboard view: totals and the most recent uploads.
type DashboardStats struct {
	TotalContracts int                     `json:"totalContracts"`
	AlertsFound    int                     `json:"alertsFound"`
	Recent         []model.DocumentSummary `json:"recent"`
}

func (s *DocumentService) Dashboard(ctx context.Context) (DashboardStats, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return DashboardStats{}, err
	}

	stats := DashboardStats{TotalContracts: len(docs), Recent: []model.DocumentSummary{}}
	for _, d := range docs {
		stats.AlertsFound += d.Alerts
	}
	for i := len(docs) - 1; i >= 0 && len(stats.Recent) < recentContracts; i-- {
		stats.Recent = append(stats.Recent, docs[i].Summarize(i))
	}
	return stats, nil
}

func (s *DocumentService) Search(ctx context.Context, query string) ([]map[string]interface{}, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}
	return s.index.Search(ctx, query)
}

// ExportXLSX renders the whole history as a workbook.
func (s *DocumentService) ExportXLSX(ctx context.Context) ([]byte, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return ExportHistoryXLSX(docs)
}
