package assess

import (
	"fmt"
	"strings"

	"github.com/okian/riskengine/internal/domain/model"
	"github.com/tmc/langchaingo/prompts"
)

const keywordTemplate = `
You are an AI/ML security risk assessor. Your task is to analyze a proposal and extract key risk themes that would be relevant for AI/ML security assessment.

PROPOSAL:
{{.proposal_text}}

INSTRUCTIONS:
1. Read the proposal carefully
2. Identify the main AI/ML use case described
3. Extract 3-5 key risk themes that would be relevant for this type of AI/ML system
4. Focus on security, privacy, governance, and operational risks
5. Use specific, searchable terms

RISK THEMES TO CONSIDER:
- data privacy
- model deployment
- training data
- supply chain
- model governance
- access control
- data poisoning
- model bias
- compliance
- third party

Return ONLY a JSON object with this exact format:
{
  "keywords": ["theme1", "theme2", "theme3", "theme4", "theme5"],
  "confidence": 0.85
}

CRITICAL: Return ONLY valid JSON. No additional text or explanation.
`

const rankingTemplate = `
You are an AI/ML security risk assessor. Your task is to analyze a proposal and select the top {{.top_n}} most relevant risks from a list of candidate risks.

PROPOSAL:
{{.proposal_text}}

CANDIDATE RISKS:
{{.candidate_risks}}

INSTRUCTIONS:
1. Analyze the proposal's AI/ML use case, data sources, deployment approach, and security measures
2. For each candidate risk, assess how relevant it is to this specific proposal
3. Consider the likelihood and impact of each risk for this use case
4. Select the TOP {{.top_n}} most relevant risks
5. For each selected risk, provide a clear explanation of why it applies

CRITICAL CONSTRAINTS:
- You MUST select exactly {{.top_n}} risks
- You MUST only select from the candidate risks list above
- Risk IDs must match exactly (e.g., "R.AIR.001")
- Provide substantive explanations (at least 2 sentences each)

Return ONLY a JSON object with this exact format:
{
  "risks": [
    {
      "risk_id": "R.AIR.XXX",
      "reasoning": "Detailed explanation of why this risk applies to the proposal..."
    }
  ]
}
The "risks" array must contain exactly {{.top_n}} entries.

CRITICAL: Return ONLY valid JSON. No additional text or explanation.
`

// Markers the prompts are guaranteed to contain.
const (
	CandidateSectionMarker = "CANDIDATE RISKS:"
	ProposalSectionMarker  = "PROPOSAL:"
	InstructionsMarker     = "INSTRUCTIONS:"
)

var (
	keywordPrompt = prompts.NewPromptTemplate(keywordTemplate, []string{"proposal_text"})                             //nolint:gochecknoglobals // immutable template
	rankingPrompt = prompts.NewPromptTemplate(rankingTemplate, []string{"proposal_text", "candidate_risks", "top_n"}) //nolint:gochecknoglobals // immutable template
)

// KeywordPrompt renders the extraction prompt.
func KeywordPrompt(proposalText string) (string, error) {
	out, err := keywordPrompt.Format(map[string]any{"proposal_text": proposalText})
	if err != nil {
		return "", fmt.Errorf("render keyword prompt: %w", err)
	}
	return out, nil
}

// RankingPrompt renders the ranking prompt for the given candidates.
func RankingPrompt(proposalText string, candidates []model.CandidateRisk, topN int) (string, error) {
	out, err := rankingPrompt.Format(map[string]any{
		"proposal_text":   proposalText,
		"candidate_risks": FormatCandidates(candidates),
		"top_n":           topN,
	})
	if err != nil {
		return "", fmt.Errorf("render ranking prompt: %w", err)
	}
	return out, nil
}

// FormatCandidates lists candidates as ID/Title/Description blocks.
func FormatCandidates(candidates []model.CandidateRisk) string {
	blocks := make([]string, len(candidates))
	for i, c := range candidates {
		blocks[i] = "ID: " + c.RiskID + "\n" +
			"Title: " + c.RiskTitle + "\n" +
			"Description: " + c.RiskDescription + "\n"
	}
	return strings.Join(blocks, "\n")
}
