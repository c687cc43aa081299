package assess

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const keywordSchema = `{
  "type": "object",
  "properties": {
    "keywords": {"type": "array", "items": {"type": "string"}},
    "confidence": {"type": "number"}
  },
  "required": ["keywords", "confidence"],
  "additionalProperties": false
}`

// Entry fields are typed but not required here so that a wrong count is
// reported before a missing field.
const rankingSchema = `{
  "type": "object",
  "properties": {
    "risks": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "risk_id": {"type": "string"},
          "reasoning": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  },
  "required": ["risks"],
  "additionalProperties": false
}`

var (
	keywordReplySchema = mustSchema(keywordSchema) //nolint:gochecknoglobals // compiled once
	rankingReplySchema = mustSchema(rankingSchema) //nolint:gochecknoglobals // compiled once
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile reply schema: %v", err))
	}
	return s
}

// decodeReply validates raw against schema and strictly decodes it into v.
func decodeReply(schema *gojsonschema.Schema, raw string, v any) error {
	body := []byte(strings.TrimSpace(raw))
	if len(body) == 0 {
		return fmt.Errorf("empty reply")
	}
	if !json.Valid(body) {
		return fmt.Errorf("reply is not valid JSON")
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validate reply: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("reply does not match schema: %s", strings.Join(msgs, "; "))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}
