package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// LLMClient is the narrow surface the classifier and analyzer depend on.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type CompletionRequest struct {
	Prompt      string
	Model       string
	JSON        bool
	Temperature float64
	MaxTokens   int
}

var errEmptyCompletion = errors.New("empty completion")

// LLMService talks to Gemini through langchaingo.
type LLMService struct {
	Client  llms.Model
	timeout time.Duration
	log     *logger.Logger
}

func NewLLMService(ctx context.Context, apiKey, defaultModel string, timeout time.Duration, log *logger.Logger) (*LLMService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is empty")
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(defaultModel),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &LLMService{
		Client:  llm,
		timeout: timeout,
		log:     log.With("service", "LLMService"),
	}, nil
}

func (s *LLMService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	start := time.Now()
	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, req.Prompt, opts...)
	if err != nil {
		s.log.Warn("LLM call failed", "model", req.Model, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return "", err
	}
	if strings.TrimSpace(resp) == "" {
		return "", errEmptyCompletion
	}
	s.log.Debug("LLM call finished", "model", req.Model, "duration_ms", time.Since(start).Milliseconds(), "chars", len(resp))
	return resp, nil
}
