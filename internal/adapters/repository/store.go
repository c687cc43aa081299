// Package repository provides the read-only risk catalog used by the
// assessment pipeline.
package repository

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/okian/riskengine/internal/domain/assess"
)

// Input limits applied before any catalog lookup.
const (
	maxKeywordLength = 100
	// RelationshipRiskControl marks a risk to control edge.
	RelationshipRiskControl = "risk_control"
)

var (
	riskIDPattern      = regexp.MustCompile(`^R\.[A-Z]+\.[0-9]+$`) //nolint:gochecknoglobals // compiled once
	keywordStripperPat = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)   //nolint:gochecknoglobals // compiled once
)

// ValidateRiskID rejects ids outside the R.<DOMAIN>.<NUMBER> form.
func ValidateRiskID(id string) error {
	if !riskIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidRiskID, id)
	}
	return nil
}

// SanitizeKeyword strips everything but letters, digits, whitespace, hyphens
// and underscores, then cuts the result to 100 bytes.
func SanitizeKeyword(keyword string) string {
	out := keywordStripperPat.ReplaceAllString(keyword, "")
	if len(out) > maxKeywordLength {
		out = out[:maxKeywordLength]
	}
	return strings.TrimSpace(out)
}

var (
	_ assess.Repository = (*HTTPClient)(nil)
	_ assess.Repository = (*Catalog)(nil)
)
