package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/logger"
	"github.com/okian/riskengine/pkg/metrics"
	"github.com/okian/riskengine/pkg/tracing"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client       *openai.Client
	model        string
	baseURL      string
	systemPrompt string
	timeout      time.Duration
	httpClient   *http.Client
	logger       logger.Logger
	tracer       trace.Tracer
}

// NewOpenAIClient builds a client. An empty apiKey is accepted only for
// loopback endpoints such as a local Ollama.
func NewOpenAIClient(apiKey string, opts ...Option) (*OpenAIClient, error) {
	c := &OpenAIClient{
		model:   DefaultModel,
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		logger:  logger.Get().Named("llm"),
		tracer:  tracing.Tracer("llm"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if strings.TrimSpace(apiKey) == "" && !IsLocalEndpoint(c.baseURL) {
		return nil, ErrMissingAPIKey
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(c.baseURL, "/")
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	} else {
		cfg.HTTPClient = &http.Client{Timeout: c.timeout}
	}
	c.client = openai.NewClientWithConfig(cfg)

	c.logger.Info(context.Background(), "initialized generation client",
		logger.String("model", c.model),
		logger.String("base_url", cfg.BaseURL),
	)
	return c, nil
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string { return c.model }

// Generate sends one chat completion request and returns the reply text.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, params model.GenerationParams) (string, error) {
	ctx, span := c.tracer.Start(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("model", c.model),
		attribute.Bool("json", params.JSON),
		attribute.Int("max_tokens", params.MaxTokens),
	)

	start := time.Now()
	out, err := c.generate(ctx, prompt, params)
	metrics.RecordLLMLatency("generate", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordLLMRequest("generate", statusOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error(ctx, "generation request failed", logger.Error(err))
		return "", err
	}
	metrics.RecordLLMRequest("generate", "ok")
	return out, nil
}

func (c *OpenAIClient) generate(ctx context.Context, prompt string, params model.GenerationParams) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	}
	if req.Temperature == 0 {
		// A zero float is dropped by omitempty and the server default applies.
		req.Temperature = math.SmallestNonzeroFloat32
	}
	if params.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("finish reason %q: %w", resp.Choices[0].FinishReason, ErrEmptyResponse)
	}
	c.logger.Debug(ctx, "received completion", logger.String("finish_reason", string(resp.Choices[0].FinishReason)))
	return content, nil
}

// Health asks the model for a trivial reply.
func (c *OpenAIClient) Health(ctx context.Context) bool {
	reply, err := c.Generate(ctx, healthPrompt, model.GenerationParams{Temperature: 0, MaxTokens: healthMaxTokens})
	if err != nil {
		return false
	}
	if !strings.Contains(reply, "OK") {
		c.logger.Warn(ctx, "unexpected health reply", logger.Error(ErrHealthCheckFail), logger.String("reply", reply))
		return false
	}
	return true
}

// ListModels returns the models the endpoint offers.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, span := c.tracer.Start(ctx, "llm.list_models")
	defer span.End()

	start := time.Now()
	list, err := c.client.ListModels(ctx)
	metrics.RecordLLMLatency("list_models", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordLLMRequest("list_models", statusOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list models: %w", err)
	}
	metrics.RecordLLMRequest("list_models", "ok")

	out := make([]ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		name := strings.TrimPrefix(m.ID, "models/")
		desc := ""
		if m.OwnedBy != "" {
			desc = "Owned by " + m.OwnedBy
		}
		out = append(out, ModelInfo{Name: m.ID, DisplayName: name, Description: desc})
	}
	return out, nil
}

// IsLocalEndpoint reports whether raw points at a loopback host.
func IsLocalEndpoint(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func statusOf(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return strconv.Itoa(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return strconv.Itoa(reqErr.HTTPStatusCode)
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNoChoices), errors.Is(err, ErrEmptyResponse):
		return "empty"
	default:
		return "error"
	}
}
