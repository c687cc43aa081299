package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/okian/riskengine/internal/domain/assess"
	"github.com/okian/riskengine/internal/domain/model"
)

// Default scripted generator constants.
const (
	defaultScriptedTopN       = 3
	defaultScriptedConfidence = 0.5
	defaultScriptedSeed       = 42
)

var candidateIDPattern = regexp.MustCompile(`(?m)^ID: (\S+)$`) //nolint:gochecknoglobals // compiled once

// Themes searched for in proposal text, in reply order.
var scriptedThemes = []string{ //nolint:gochecknoglobals // fixed vocabulary
	"data privacy",
	"model deployment",
	"training data",
	"supply chain",
	"model governance",
	"access control",
	"data poisoning",
	"model bias",
	"compliance",
	"third party",
}

// ScriptedOption applies a configuration option to the Scripted generator.
type ScriptedOption func(*Scripted)

// WithLatencyRange sets the simulated latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) ScriptedOption {
	return func(s *Scripted) {
		if minLatency >= 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithScriptedTopN sets how many candidate ids ranking replies select.
func WithScriptedTopN(n int) ScriptedOption {
	return func(s *Scripted) {
		if n > 0 {
			s.topN = n
		}
	}
}

// Scripted answers pipeline prompts without a network call. Replies are a
// pure function of the prompt.
type Scripted struct {
	topN       int
	minLatency time.Duration
	maxLatency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewScripted creates an offline generator.
func NewScripted(opts ...ScriptedOption) *Scripted {
	s := &Scripted{
		topN: defaultScriptedTopN,
		rng:  rand.New(rand.NewSource(defaultScriptedSeed)), //nolint:gosec // latency jitter only
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate answers a keyword or ranking prompt.
func (s *Scripted) Generate(ctx context.Context, prompt string, _ model.GenerationParams) (string, error) {
	if err := s.sleep(ctx); err != nil {
		return "", err
	}

	var reply any
	switch {
	case strings.Contains(prompt, assess.CandidateSectionMarker):
		reply = s.rank(prompt)
	case strings.Contains(prompt, assess.ProposalSectionMarker):
		reply = keywordsFor(proposalSection(prompt))
	case strings.Contains(prompt, healthPrompt):
		return "OK", nil
	default:
		return "", ErrUnknownPrompt
	}

	b, err := json.Marshal(reply)
	if err != nil {
		return "", fmt.Errorf("encode scripted reply: %w", err)
	}
	return string(b), nil
}

// Health always succeeds.
func (s *Scripted) Health(context.Context) bool { return true }

// ListModels reports the single scripted model.
func (s *Scripted) ListModels(context.Context) ([]ModelInfo, error) {
	return []ModelInfo{{
		Name:        "scripted",
		DisplayName: "Scripted",
		Description: "Deterministic offline generator",
	}}, nil
}

func (s *Scripted) sleep(ctx context.Context) error {
	if s.maxLatency <= 0 {
		return ctx.Err()
	}
	s.mu.Lock()
	latency := s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)))
	s.mu.Unlock()

	t := time.NewTimer(latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

type scriptedKeywords struct {
	Keywords   []string `json:"keywords"`
	Confidence float64  `json:"confidence"`
}

type scriptedRanking struct {
	Risks []scriptedRisk `json:"risks"`
}

type scriptedRisk struct {
	RiskID    string `json:"risk_id"`
	Reasoning string `json:"reasoning"`
}

func proposalSection(prompt string) string {
	_, after, ok := strings.Cut(prompt, assess.ProposalSectionMarker)
	if !ok {
		return ""
	}
	before, _, _ := strings.Cut(after, assess.InstructionsMarker)
	return before
}

func keywordsFor(text string) scriptedKeywords {
	lower := strings.ToLower(text)
	found := make([]string, 0, len(scriptedThemes))
	for _, theme := range scriptedThemes {
		for _, word := range strings.Fields(theme) {
			if strings.Contains(lower, word) {
				found = append(found, theme)
				break
			}
		}
	}
	if len(found) == 0 {
		found = append(found, scriptedThemes[0], scriptedThemes[1], scriptedThemes[4])
	}
	return scriptedKeywords{Keywords: found, Confidence: defaultScriptedConfidence}
}

func (s *Scripted) rank(prompt string) scriptedRanking {
	matches := candidateIDPattern.FindAllStringSubmatch(prompt, -1)
	out := scriptedRanking{Risks: make([]scriptedRisk, 0, s.topN)}
	for _, m := range matches {
		if len(out.Risks) == s.topN {
			break
		}
		out.Risks = append(out.Risks, scriptedRisk{
			RiskID:    m[1],
			Reasoning: fmt.Sprintf("%s was retrieved for this proposal's themes. It ranks at position %d among the candidates.", m[1], len(out.Risks)+1),
		})
	}
	return out
}
