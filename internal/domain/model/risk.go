package model

import (
	"time"

	"github.com/google/uuid"
)

// Sentinel identifiers used to keep the result shape fixed.
const (
	ErrorRiskID       = "ERROR"
	UnresolvedRiskID  = "N/A"
	sentinelTitle     = "Assessment Error"
	errorDescription  = "An error occurred during risk assessment"
	unresolvedDesc    = "Could not assess this risk"
	unresolvedExplain = "Assessment failed"
)

// CandidateRisk is a catalog risk eligible for selection.
type CandidateRisk struct {
	RiskID          string `json:"risk_id" yaml:"id"`
	RiskTitle       string `json:"risk_title" yaml:"title"`
	RiskDescription string `json:"risk_description" yaml:"description"`
}

// Control is a remediation mapped to a risk.
type Control struct {
	ControlID          string `json:"control_id"`
	ControlTitle       string `json:"control_title"`
	ControlDescription string `json:"control_description,omitempty"`
}

// KeywordExtractionOutcome holds the search themes produced from a proposal.
type KeywordExtractionOutcome struct {
	Keywords   []string `json:"keywords"`
	Confidence float64  `json:"confidence"`
}

// RankingDecision is one validated selection returned by the ranking stage.
type RankingDecision struct {
	RiskID    string `json:"risk_id"`
	Reasoning string `json:"reasoning"`
}

// RiskAssessment is the externally visible unit of output.
type RiskAssessment struct {
	RiskID          string    `json:"risk_id"`
	RiskTitle       string    `json:"risk_title"`
	RiskDescription string    `json:"risk_description"`
	Explanation     string    `json:"explanation"`
	Controls        []Control `json:"controls"`
}

// IsSentinel reports whether the entry is a placeholder.
func (a RiskAssessment) IsSentinel() bool {
	return a.RiskID == ErrorRiskID || a.RiskID == UnresolvedRiskID
}

// RiskAssessmentResult is the fixed-shape outcome of one pipeline run.
type RiskAssessmentResult struct {
	AssessmentID string           `json:"assessment_id"`
	Timestamp    time.Time        `json:"timestamp"`
	Risks        []RiskAssessment `json:"risks"`
}

// NewResult stamps a fresh id and time on the given entries.
func NewResult(now time.Time, risks []RiskAssessment) RiskAssessmentResult {
	return RiskAssessmentResult{
		AssessmentID: uuid.NewString(),
		Timestamp:    now,
		Risks:        risks,
	}
}

// Degraded reports whether any entry is a sentinel.
func (r RiskAssessmentResult) Degraded() bool {
	for _, a := range r.Risks {
		if a.IsSentinel() {
			return true
		}
	}
	return false
}

// RiskIDs lists the risk ids in result order.
func (r RiskAssessmentResult) RiskIDs() []string {
	ids := make([]string, len(r.Risks))
	for i, a := range r.Risks {
		ids[i] = a.RiskID
	}
	return ids
}

// ErrorAssessment builds the sentinel emitted when a run is abandoned.
func ErrorAssessment(msg string) RiskAssessment {
	return RiskAssessment{
		RiskID:          ErrorRiskID,
		RiskTitle:       sentinelTitle,
		RiskDescription: errorDescription,
		Explanation:     "Error: " + msg,
		Controls:        []Control{},
	}
}

// UnresolvedAssessment builds the sentinel used to pad a short result.
func UnresolvedAssessment() RiskAssessment {
	return RiskAssessment{
		RiskID:          UnresolvedRiskID,
		RiskTitle:       sentinelTitle,
		RiskDescription: unresolvedDesc,
		Explanation:     unresolvedExplain,
		Controls:        []Control{},
	}
}
