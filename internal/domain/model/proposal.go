// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Labels used when flattening a proposal into prompt text.
const (
	labelTitle             = "Title"
	labelDescription       = "Description"
	labelTechnicalApproach = "Technical Approach"
	labelDataSources       = "Data Sources"
	labelDeployment        = "Deployment"
	labelDataGovernance    = "Data Governance"
	labelModelGovernance   = "Model Governance"
	labelSecurityMeasures  = "Security Measures"

	blockSeparator  = "\n\n"
	sourceSeparator = ", "
)

// Proposal is the structured document submitted for assessment.
// Fields mirror the OpenAPI schema for /api/v1/assess-risks-simple.
type Proposal struct {
	CFPID             string   `json:"cfp_id,omitempty"`
	Title             string   `json:"proposal_title,omitempty"`
	Description       string   `json:"description" validate:"notblank"`
	TechnicalApproach string   `json:"technical_approach,omitempty"`
	DataSources       []string `json:"data_sources,omitempty"`
	Deployment        string   `json:"deployment,omitempty"`
	DataGovernance    string   `json:"data_governance,omitempty"`
	ModelGovernance   string   `json:"model_governance,omitempty"`
	SecurityMeasures  string   `json:"security_measures,omitempty"`
	AdditionalFields  Fields   `json:"additional_fields,omitempty"`
}

// Field is a single free-form key/value pair attached to a proposal.
type Field struct {
	Key   string
	Value any
}

// Fields keeps additional proposal fields in the order they were supplied.
type Fields []Field

// Format flattens the proposal into labelled blocks separated by a blank line.
// Empty fields are omitted.
func (p Proposal) Format() string {
	parts := make([]string, 0, 8+len(p.AdditionalFields))
	add := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		parts = append(parts, label+": "+value)
	}

	add(labelTitle, p.Title)
	add(labelDescription, p.Description)
	add(labelTechnicalApproach, p.TechnicalApproach)
	if len(p.DataSources) > 0 {
		add(labelDataSources, strings.Join(p.DataSources, sourceSeparator))
	}
	add(labelDeployment, p.Deployment)
	add(labelDataGovernance, p.DataGovernance)
	add(labelModelGovernance, p.ModelGovernance)
	add(labelSecurityMeasures, p.SecurityMeasures)

	for _, f := range p.AdditionalFields {
		parts = append(parts, f.Key+": "+formatValue(f.Value))
	}

	return strings.Join(parts, blockSeparator)
}

// With returns a copy of the proposal with an extra additional field appended.
func (p Proposal) With(key string, value any) Proposal {
	out := p
	out.AdditionalFields = make(Fields, 0, len(p.AdditionalFields)+1)
	out.AdditionalFields = append(out.AdditionalFields, p.AdditionalFields...)
	out.AdditionalFields = append(out.AdditionalFields, Field{Key: key, Value: value})
	return out
}

// DisplayTitle returns the proposal title or a placeholder for logging.
func (p Proposal) DisplayTitle() string {
	if p.Title == "" {
		return "Untitled"
	}
	return p.Title
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case map[string]any, []any, Fields:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// UnmarshalJSON decodes a JSON object while preserving key order.
func (f *Fields) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("additional_fields: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("additional_fields: %w", ErrNotAnObject)
	}

	out := Fields{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("additional_fields: %w", err)
		}
		key, _ := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("additional_fields %q: %w", key, err)
		}
		out = append(out, Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("additional_fields: %w", err)
	}

	*f = out
	return nil
}

// MarshalJSON encodes the fields as a JSON object in their stored order.
func (f Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("additional_fields %q: %w", field.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
