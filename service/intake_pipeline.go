package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	model "github.com/Itish41/ContraCam/models"
	"golang.org/x/sync/errgroup"
)

const (
	MinBatchSize = 1
	MaxBatchSize = 10

	// NoTextDetected replaces the text of a batch where OCR found nothing.
	NoTextDetected = "No text detected"
)

var allowedExtensions = map[string]bool{
	"jpeg": true,
	"jpg":  true,
	"png":  true,
	"gif":  true,
	"tiff": true,
	"tif":  true,
	"bmp":  true,
}

// ValidateBatch checks an upload before any processing starts.
func ValidateBatch(pages []model.Page) error {
	if len(pages) < MinBatchSize {
		return &ValidationError{Field: "files", Message: "please upload at least one image to process"}
	}
	if len(pages) > MaxBatchSize {
		return &ValidationError{Field: "files", Message: fmt.Sprintf("at most %d images can be processed at once", MaxBatchSize)}
	}
	for _, p := range pages {
		if !allowedExtensions[p.Ext()] {
			return &ValidationError{Field: "files", Message: fmt.Sprintf("%q is not a supported image type", p.FileName)}
		}
		if len(p.Data) == 0 {
			return &ValidationError{Field: "files", Message: fmt.Sprintf("%q is empty", p.FileName)}
		}
	}
	return nil
}

// IntakeOptions bounds the external calls made while processing a batch.
type IntakeOptions struct {
	OCRTimeout     time.Duration
	OCRConcurrency int
	SummaryTimeout time.Duration
}

// IntakeResult identifies the Document created for a batch.
type IntakeResult struct {
	Position int            `json:"position"`
	Document model.Document `json:"document"`
}

// IntakePipeline turns an upload batch into a stored Document.
type IntakePipeline struct {
	extractor  TextExtractor
	summarizer Summarizer
	rules      RuleSource
	store      DocumentStore
	images     ImageStore
	index      SearchIndex
	keyPoints  func(text, summary string) []string
	opts       IntakeOptions
	logger     *slog.Logger

	idMu   sync.Mutex
	lastID int64
}

// IntakeDeps lists the collaborators of an IntakePipeline. Images, Index and
// Rules are optional.
type IntakeDeps struct {
	Extractor  TextExtractor
	Summarizer Summarizer
	Rules      RuleSource
	Store      DocumentStore
	Images     ImageStore
	Index      SearchIndex
	Logger     *slog.Logger
}

func NewIntakePipeline(deps IntakeDeps, opts IntakeOptions) *IntakePipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.OCRConcurrency <= 0 {
		opts.OCRConcurrency = 1
	}
	return &IntakePipeline{
		extractor:  deps.Extractor,
		summarizer: deps.Summarizer,
		rules:      deps.Rules,
		store:      deps.Store,
		images:     deps.Images,
		index:      deps.Index,
		keyPoints:  ExtractKeyPoints,
		opts:       opts,
		logger:     logger,
	}
}

// Process runs OCR on every page, summarizes the joined text, derives key
// points and alerts, and appends the resulting Document to the store.
// Adapter failures degrade the Document; only store failures and a cancelled
// ctx abort, in which case nothing is persisted.
func (p *IntakePipeline) Process(ctx context.Context, pages []model.Page) (*IntakeResult, error) {
	if err := ValidateBatch(pages); err != nil {
		return nil, err
	}
	start := time.Now()
	id := p.nextID()
	log := p.logger.With("doc_id", id, "pages", len(pages))
	log.Info("intake.start")

	raw := strings.Join(p.extractPages(ctx, pages, log), "\n")

	text := raw
	summary := NoSummaryAvailable
	if strings.TrimSpace(raw) == "" {
		text = NoTextDetected
		log.Warn("intake.no_text")
	} else {
		summary = SummarizeOrSentinel(ctx, p.summarizer, raw, p.opts.SummaryTimeout, log)
	}

	points := p.extractKeyPoints(raw, summary, log)
	triggers, sections, alerts := BuildSections(raw, p.loadRules(ctx, log), log)

	doc := model.Document{
		ID:               id,
		Name:             pages[0].FileName,
		Text:             text,
		Summary:          summary,
		KeyPoints:        points,
		Alerts:           alerts,
		Triggers:         triggers,
		DetailedSections: sections,
		CreatedAt:        time.Now().UTC(),
	}

	if err := ctx.Err(); err != nil {
		log.Warn("intake.abandoned", "error", err)
		return nil, fmt.Errorf("intake abandoned: %w", err)
	}

	doc.Thumbnail = p.storeThumbnail(ctx, id, pages[0], log)

	position, err := p.store.Append(ctx, doc)
	if err != nil {
		log.Error("intake.store_failed", "error", err)
		p.dropThumbnail(context.WithoutCancel(ctx), doc.Thumbnail, log)
		return nil, err
	}

	if p.index != nil {
		_ = p.index.Index(ctx, doc)
	}

	log.Info("intake.done",
		"position", position,
		"alerts", alerts,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &IntakeResult{Position: position, Document: doc}, nil
}

// extractPages runs OCR concurrently. Results land at their page index, so the
// order never depends on completion order. A failed page yields "".
func (p *IntakePipeline) extractPages(ctx context.Context, pages []model.Page, log *slog.Logger) []string {
	texts := make([]string, len(pages))

	var g errgroup.Group
	g.SetLimit(p.opts.OCRConcurrency)
	for i, page := range pages {
		i, page := i, page
		g.Go(func() error {
			pctx := ctx
			if p.opts.OCRTimeout > 0 {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(ctx, p.opts.OCRTimeout)
				defer cancel()
			}
			text, err := p.extractor.ExtractText(pctx, page)
			if err != nil {
				log.Warn("intake.ocr_failed", "page", i, "file", page.FileName, "error", err)
				return nil
			}
			texts[i] = strings.TrimSpace(text)
			return nil
		})
	}
	_ = g.Wait()
	return texts
}

// extractKeyPoints always returns KeyPointCount entries. A panicking extractor
// yields the error sentinel followed by placeholders.
func (p *IntakePipeline) extractKeyPoints(text, summary string, log *slog.Logger) (points []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("intake.keypoints_failed", "panic", r)
			points = padKeyPoints([]string{KeyPointErrorSentinel})
		}
	}()

	points = p.keyPoints(text, summary)
	if len(points) > KeyPointCount {
		points = points[:KeyPointCount]
	}
	return padKeyPoints(points)
}

func (p *IntakePipeline) loadRules(ctx context.Context, log *slog.Logger) []model.AlertRule {
	if p.rules == nil {
		return nil
	}
	rules, err := p.rules.ListRules(ctx)
	if err != nil {
		log.Warn("intake.rules_unavailable", "error", err)
		return nil
	}
	return rules
}

func (p *IntakePipeline) storeThumbnail(ctx context.Context, id string, page model.Page, log *slog.Logger) string {
	if p.images == nil {
		return model.PlaceholderThumbnail
	}
	ref, err := p.images.Put(ctx, id, page)
	if err != nil {
		log.Warn("intake.thumbnail_failed", "file", page.FileName, "error", err)
		return model.PlaceholderThumbnail
	}
	return ref
}

// dropThumbnail removes a preview stored for a Document that was never persisted.
func (p *IntakePipeline) dropThumbnail(ctx context.Context, ref string, log *slog.Logger) {
	if p.images == nil || ref == "" || ref == model.PlaceholderThumbnail {
		return
	}
	if err := p.images.Delete(ctx, ref); err != nil {
		log.Warn("intake.thumbnail_cleanup_failed", "ref", ref, "error", err)
	}
}

// nextID returns the current Unix millisecond timestamp, bumped when needed so
// IDs stay unique within this process.
func (p *IntakePipeline) nextID() string {
	p.idMu.Lock()
	defer p.idMu.Unlock()

	id := time.Now().UnixMilli()
	if id <= p.lastID {
		id = p.lastID + 1
	}
	p.lastID = id
	return strconv.FormatInt(id, 10)
}
