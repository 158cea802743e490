package controller

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Itish41/ContraCam/models"
	service "github.com/Itish41/ContraCam/service"

	"github.com/gin-gonic/gin"
)

const (
	maxPageBytes = 20 << 20

	internalErrorMessage = "internal server error"
)

// DocumentController serves the upload, history, analysis and dashboard views.
type DocumentController struct {
	service *service.DocumentService
	logger  *slog.Logger
}

// NewDocumentController initializes the controller with the service
func NewDocumentController(svc *service.DocumentService, logger *slog.Logger) *DocumentController {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentController{service: svc, logger: logger}
}

// writeError maps service errors onto HTTP responses.
func writeError(ctx *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.Is(err, service.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "contract not found", "empty": true})
	case errors.Is(err, service.ErrSearchDisabled):
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
	case errors.Is(err, service.ErrStore):
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed, try again"})
	default:
		// gin's logger records the cause; clients only get a generic message
		_ = ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": internalErrorMessage})
	}
}

func readPage(fh *multipart.FileHeader) (models.Page, error) {
	if fh.Size > maxPageBytes {
		return models.Page{}, &service.ValidationError{Field: "files", Message: fmt.Sprintf("%q is larger than 20MB", fh.Filename)}
	}
	f, err := fh.Open()
	if err != nil {
		return models.Page{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.Page{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return models.Page{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// UploadContract accepts 1-10 images under the "files" form field.
func (c *DocumentController) UploadContract(ctx *gin.Context) {
	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read multipart form"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) > service.MaxBatchSize {
		writeError(ctx, &service.ValidationError{Field: "files", Message: fmt.Sprintf("at most %d images can be processed at once", service.MaxBatchSize)})
		return
	}

	pages := make([]models.Page, 0, len(headers))
	for _, fh := range headers {
		page, err := readPage(fh)
		if err != nil {
			writeError(ctx, err)
			return
		}
		pages = append(pages, page)
	}

	result, err := c.service.UploadAndProcess(ctx.Request.Context(), pages)
	if err != nil {
		c.logger.Error("documents.upload_failed", "pages", len(pages), "error", err)
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"id":       result.Document.ID,
		"position": result.Position,
		"document": result.Document,
	})
}

// ListContracts returns the history in insertion order.
func (c *DocumentController) ListContracts(ctx *gin.Context) {
	docs, err := c.service.History(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

func positionParam(ctx *gin.Context) (int, bool) {
	pos, err := strconv.Atoi(ctx.Param("position"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "position must be a number"})
		return 0, false
	}
	return pos, true
}

// GetContract returns the analysis view of one contract.
func (c *DocumentController) GetContract(ctx *gin.Context) {
	pos, ok := positionParam(ctx)
	if !ok {
		return
	}
	doc, err := c.service.GetDocument(ctx.Request.Context(), pos)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, doc)
}

func (c *DocumentController) DeleteContract(ctx *gin.Context) {
	pos, ok := positionParam(ctx)
	if !ok {
		return
	}
	if err := c.service.DeleteDocument(ctx.Request.Context(), pos); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *DocumentController) Dashboard(ctx *gin.Context) {
	stats, err := c.service.Dashboard(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

func (c *DocumentController) SearchContracts(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	results, err := c.service.Search(ctx.Request.Context(), query)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Search completed successfully",
		"results": results,
	})
}

// ExportContracts streams the history as an xlsx workbook.
func (c *DocumentController) ExportContracts(ctx *gin.Context) {
	data, err := c.service.ExportXLSX(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", `attachment; filename="contracts.xlsx"`)
	ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
