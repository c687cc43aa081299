package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/logger"
	"github.com/okian/riskengine/pkg/metrics"
	"github.com/okian/riskengine/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxResponseBytes = 10 << 20

// HTTPClient reads risks and controls from the database service REST API.
// The service is never reachable from generated text: keywords are sanitized
// and risk ids validated before any request.
type HTTPClient struct {
	baseURL         string
	http            *http.Client
	timeout         time.Duration
	healthTimeout   time.Duration
	maxKeywords     int
	breakerSettings BreakerSettings
	breaker         *breaker
	logger          logger.Logger
	tracer          trace.Tracer
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:         strings.TrimRight(baseURL, "/"),
		timeout:         DefaultTimeout,
		healthTimeout:   DefaultHealthTimeout,
		maxKeywords:     DefaultMaxSearchKeywords,
		breakerSettings: DefaultBreakerSettings(),
		logger:          logger.Get().Named("repository"),
		tracer:          tracing.Tracer("repository"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	c.breaker = newBreaker(c.breakerSettings, c.logger)
	return c
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type relationship struct {
	SourceID         string `json:"source_id"`
	RelationshipType string `json:"relationship_type"`
	TargetID         string `json:"target_id"`
}

type riskResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Search issues one request per sanitized keyword and merges risk results,
// keeping the first occurrence of each id.
func (c *HTTPClient) Search(ctx context.Context, keywords []string) ([]model.CandidateRisk, error) {
	ctx, span := c.tracer.Start(ctx, "repository.search")
	defer span.End()

	sanitized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if s := SanitizeKeyword(k); s != "" {
			sanitized = append(sanitized, s)
		}
		if len(sanitized) == c.maxKeywords {
			break
		}
	}
	span.SetAttributes(attribute.StringSlice("keywords", sanitized))

	seen := make(map[string]struct{})
	out := make([]model.CandidateRisk, 0)
	for _, kw := range sanitized {
		c.logger.Info(ctx, "searching risks", logger.String("keyword", kw))

		var resp searchResponse
		q := url.Values{"q": {kw}}
		if err := c.get(ctx, "search", "/api/search?"+q.Encode(), c.timeout, &resp); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		for _, r := range resp.Results {
			if r.Type != "risk" {
				continue
			}
			if err := ValidateRiskID(r.ID); err != nil {
				c.logger.Warn(ctx, "dropping search result with malformed id", logger.String("risk_id", r.ID))
				continue
			}
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, model.CandidateRisk{RiskID: r.ID, RiskTitle: r.Title, RiskDescription: r.Description})
		}
	}

	c.logger.Info(ctx, "found unique risks", logger.Int("count", len(out)), logger.Strings("keywords", sanitized))
	span.SetAttributes(attribute.Int("results", len(out)))
	return out, nil
}

// ControlsFor fetches risk to control relationships for the given ids.
func (c *HTTPClient) ControlsFor(ctx context.Context, riskIDs []string) (map[string][]model.Control, error) {
	ctx, span := c.tracer.Start(ctx, "repository.controls_for")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("risk_ids", riskIDs))

	for _, id := range riskIDs {
		if err := ValidateRiskID(id); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	var rels []relationship
	q := url.Values{"risk_ids": {strings.Join(riskIDs, ",")}}
	if err := c.get(ctx, "relationships", "/api/relationships?"+q.Encode(), c.timeout, &rels); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make(map[string][]model.Control, len(riskIDs))
	for _, id := range riskIDs {
		controls := []model.Control{}
		for _, rel := range rels {
			if rel.SourceID != id || rel.RelationshipType != RelationshipRiskControl || rel.TargetID == "" {
				continue
			}
			controls = append(controls, model.Control{
				ControlID:          rel.TargetID,
				ControlTitle:       "Control " + rel.TargetID,
				ControlDescription: "Control for risk " + id,
			})
		}
		out[id] = controls
	}
	c.logger.Info(ctx, "found controls", logger.Int("risks", len(out)))
	return out, nil
}

// Risk fetches a single risk. An unknown id returns nil without error.
func (c *HTTPClient) Risk(ctx context.Context, id string) (*model.CandidateRisk, error) {
	ctx, span := c.tracer.Start(ctx, "repository.risk")
	defer span.End()

	if err := ValidateRiskID(id); err != nil {
		return nil, err
	}
	var resp riskResponse
	err := c.get(ctx, "risk", "/api/risks/"+url.PathEscape(id), c.timeout, &resp)
	switch {
	case err == nil:
		return &model.CandidateRisk{RiskID: resp.ID, RiskTitle: resp.Title, RiskDescription: resp.Description}, nil
	case isNotFound(err):
		return nil, nil
	default:
		span.RecordError(err)
		return nil, err
	}
}

// Health reports whether the service answers its health endpoint with 200.
func (c *HTTPClient) Health(ctx context.Context) bool {
	err := c.get(ctx, "health", "/api/health", c.healthTimeout, nil)
	if err != nil {
		c.logger.Warn(ctx, "database service health check failed", logger.Error(err))
		return false
	}
	return true
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v: %d", ErrUnexpectedStatus, e.code)
}

func (e *statusError) Unwrap() error { return ErrUnexpectedStatus }

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

// get performs a GET through the breaker and decodes a JSON body into v.
func (c *HTTPClient) get(ctx context.Context, op, path string, timeout time.Duration, v any) error {
	start := time.Now()
	_, err := execute(c.breaker, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, path, timeout, v)
	})
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Milliseconds()))
	metrics.RecordRepositoryRequest(op, requestStatus(err))
	if err != nil && !isNotFound(err) {
		c.logger.Error(ctx, "database service request failed", logger.String("op", op), logger.Error(err))
	}
	return err
}

func (c *HTTPClient) do(ctx context.Context, path string, timeout time.Duration, v any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return &statusError{code: resp.StatusCode}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func requestStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}
