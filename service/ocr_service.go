package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	model "github.com/Itish41/ContraCam/models"
)

// OCRLanguage is the only language hint sent to OCR engines.
const OCRLanguage = "eng"

// TextExtractor turns one page image into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, page model.Page) (string, error)
}

// OCRSpaceExtractor calls the hosted OCR.space parse endpoint.
type OCRSpaceExtractor struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewOCRSpaceExtractor(apiKey, endpoint string, timeout time.Duration, logger *slog.Logger) *OCRSpaceExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if endpoint == "" {
		endpoint = "https://api.ocr.space/parse/image"
	}
	return &OCRSpaceExtractor{
		apiKey:   strings.TrimSpace(apiKey),
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// ocrSpaceFileType maps an extension to the filetype OCR.space expects.
func ocrSpaceFileType(ext string) string {
	switch ext {
	case "png":
		return "PNG"
	case "jpg", "jpeg":
		return "JPG"
	case "gif":
		return "GIF"
	case "tif", "tiff":
		return "TIF"
	case "bmp":
		return "BMP"
	default:
		return "JPG"
	}
}

func (e *OCRSpaceExtractor) ExtractText(ctx context.Context, page model.Page) (string, error) {
	if e.apiKey == "" {
		return "", fmt.Errorf("OCR.space API key is not set")
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fields := [][2]string{
		{"apikey", e.apiKey},
		{"language", OCRLanguage},
		{"isOverlayRequired", "false"},
		{"filetype", ocrSpaceFileType(page.Ext())},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("failed to write %s field: %w", f[0], err)
		}
	}

	fw, err := w.CreateFormFile("file", page.FileName)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(page.Data); err != nil {
		return "", fmt.Errorf("failed to write file bytes: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, &b)
	if err != nil {
		return "", fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	e.logger.Debug("ocr.ocrspace.response",
		"file", page.FileName,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("OCR.space returned status %d", resp.StatusCode)
	}

	var result struct {
		ParsedResults []struct {
			ParsedText string `json:"ParsedText"`
		} `json:"ParsedResults"`
		IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
		ErrorMessage          json.RawMessage `json:"ErrorMessage"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		// plain text bodies carry the error message
		return "", fmt.Errorf("OCR API error: %s", truncate(string(body), 512))
	}
	if result.IsErroredOnProcessing {
		return "", fmt.Errorf("OCR.space error: %s", string(result.ErrorMessage))
	}
	if len(result.ParsedResults) == 0 {
		return "", fmt.Errorf("no OCR results found in response")
	}
	return result.ParsedResults[0].ParsedText, nil
}

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		slog.Error("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

// TesseractExtractor runs a local tesseract binary on a temporary copy of the page.
type TesseractExtractor struct {
	bin     string
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger
}

func NewTesseractExtractor(bin string, timeout time.Duration, runner Runner, logger *slog.Logger) *TesseractExtractor {
	if bin == "" {
		bin = "tesseract"
	}
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractExtractor{bin: bin, runner: runner, timeout: timeout, logger: logger}
}

func (e *TesseractExtractor) ExtractText(ctx context.Context, page model.Page) (string, error) {
	tmp, err := os.CreateTemp("", "contracam-page-*"+filepath.Ext(page.FileName))
	if err != nil {
		return "", fmt.Errorf("creating temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(page.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp image: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	stdout, _, err := e.runner.Run(ctx, e.bin, tmp.Name(), "stdout", "-l", OCRLanguage)
	if err != nil {
		return "", fmt.Errorf("tesseract failed for %s: %w", page.FileName, err)
	}
	return string(stdout), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
