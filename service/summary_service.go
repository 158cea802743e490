package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// SummaryInputLimit is the number of characters sent for summarization.
	SummaryInputLimit = 1024

	// SummaryErrorSentinel is stored as the summary when summarization fails.
	SummaryErrorSentinel = "Error summarizing text."

	// NoSummaryAvailable is stored when there was no text to summarize.
	NoSummaryAvailable = "No summary available."
)

var errSummaryRateLimited = errors.New("summarization rate limit exceeded")

// Summarizer produces a short summary of text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// SummarizeOrSentinel never fails: any error, including an expired timeout,
// becomes SummaryErrorSentinel.
func SummarizeOrSentinel(ctx context.Context, s Summarizer, text string, timeout time.Duration, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	summary, err := s.Summarize(ctx, truncateRunes(text, SummaryInputLimit))
	if err != nil {
		logger.Warn("summary.failed", "error", err)
		return SummaryErrorSentinel
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		logger.Warn("summary.empty")
		return SummaryErrorSentinel
	}
	return summary
}

// HuggingFaceSummarizer calls the hosted inference API for a summarization model.
type HuggingFaceSummarizer struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	limiter *RateLimiter
	logger  *slog.Logger
}

func NewHuggingFaceSummarizer(apiKey, baseURL, model string, timeout time.Duration, limiter *RateLimiter, logger *slog.Logger) *HuggingFaceSummarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co"
	}
	if model == "" {
		model = "facebook/bart-large-cnn"
	}
	return &HuggingFaceSummarizer{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  logger,
	}
}

func (s *HuggingFaceSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if !s.limiter.Allow("huggingface") {
		return "", errSummaryRateLimited
	}

	headers := map[string]string{}
	if s.apiKey != "" {
		headers["Authorization"] = "Bearer " + s.apiKey
	}
	payload := map[string]string{"inputs": truncateRunes(text, SummaryInputLimit)}

	raw, _, err := sendJSON(ctx, s.client, s.baseURL+"/models/"+s.model, payload, headers, s.logger)
	if err != nil {
		return "", fmt.Errorf("huggingface summarization: %w", err)
	}

	var out []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode huggingface response: %w", err)
	}
	if len(out) == 0 || out[0].SummaryText == "" {
		return "", fmt.Errorf("huggingface returned no summary")
	}
	return out[0].SummaryText, nil
}

// GroqSummarizer asks an OpenAI compatible chat completion endpoint for a summary.
type GroqSummarizer struct {
	apiKey  string
	url     string
	model   string
	client  *http.Client
	limiter *RateLimiter
	logger  *slog.Logger
}

func NewGroqSummarizer(apiKey, url, model string, timeout time.Duration, limiter *RateLimiter, logger *slog.Logger) *GroqSummarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if url == "" {
		url = "https://api.groq.com/openai/v1/chat/completions"
	}
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &GroqSummarizer{
		apiKey:  apiKey,
		url:     url,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
}

func (s *GroqSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("groq API key is not set")
	}
	if !s.limiter.Allow("groq_api_call") {
		return "", errSummaryRateLimited
	}

	payload := chatRequest{
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You summarize contracts in two or three plain sentences. Quote key terms exactly as written.",
			},
			{
				Role:    "user",
				Content: truncateRunes(text, SummaryInputLimit),
			},
		},
		Model:       s.model,
		Temperature: 0.2,
	}

	raw, _, err := sendJSON(ctx, s.client, s.url, payload, map[string]string{
		"Authorization": "Bearer " + s.apiKey,
	}, s.logger)
	if err != nil {
		return "", fmt.Errorf("groq summarization: %w", err)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to parse Groq response structure: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no summary returned from Groq")
	}
	return result.Choices[0].Message.Content, nil
}
