package assess_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/riskengine/internal/domain/assess"
	"github.com/okian/riskengine/internal/domain/model"
	"github.com/okian/riskengine/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

// stubGenerator answers keyword and ranking prompts with canned replies.
type stubGenerator struct {
	mu           sync.Mutex
	keywordReply string
	rankingReply string
	keywordErr   error
	rankingErr   error
	prompts      []string
	params       []model.GenerationParams
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, params model.GenerationParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.params = append(g.params, params)
	if strings.Contains(prompt, assess.CandidateSectionMarker) {
		return g.rankingReply, g.rankingErr
	}
	return g.keywordReply, g.keywordErr
}

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func (g *stubGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// stubRepository returns scripted search results per call.
type stubRepository struct {
	mu         sync.Mutex
	results    [][]model.CandidateRisk
	searchErr  error
	controls   map[string][]model.Control
	controlErr error
	searches   [][]string
	controlIDs [][]string
}

func (r *stubRepository) Search(_ context.Context, keywords []string) ([]model.CandidateRisk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches = append(r.searches, append([]string(nil), keywords...))
	if r.searchErr != nil {
		return nil, r.searchErr
	}
	i := len(r.searches) - 1
	if i < len(r.results) {
		return r.results[i], nil
	}
	return nil, nil
}

func (r *stubRepository) ControlsFor(_ context.Context, riskIDs []string) (map[string][]model.Control, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controlIDs = append(r.controlIDs, append([]string(nil), riskIDs...))
	if r.controlErr != nil {
		return nil, r.controlErr
	}
	return r.controls, nil
}

func (r *stubRepository) Health(context.Context) bool { return true }

func candidates(n int) []model.CandidateRisk {
	out := make([]model.CandidateRisk, n)
	for i := range out {
		id := fmt.Sprintf("R.AIR.%03d", i+1)
		out[i] = model.CandidateRisk{RiskID: id, RiskTitle: "Title " + id, RiskDescription: "Description " + id}
	}
	return out
}

func rankingJSON(ids ...string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf(`{"risk_id":%q,"reasoning":"Because %s applies. It matters."}`, id, id)
	}
	return `{"risks":[` + strings.Join(parts, ",") + `]}`
}
