package grade

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// finalSchema is the JSON Schema a finished report must satisfy. Intermediate
// stream frames are allowed to violate it; only the terminal record is
// checked before caching.
const finalSchema = `{
  "type": "object",
  "required": ["overall_score", "grade_letter", "summary", "categories", "top_improvements", "upgrade_prompt"],
  "properties": {
    "overall_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "grade_letter": {"enum": ["A+", "A", "B", "C", "D", "F"]},
    "summary": {"type": "string"},
    "categories": {
      "type": "object",
      "required": ["performance", "mobile", "seo", "content"],
      "additionalProperties": false,
      "properties": {
        "performance": {"$ref": "#/definitions/category"},
        "mobile": {"$ref": "#/definitions/category"},
        "seo": {"$ref": "#/definitions/category"},
        "content": {"$ref": "#/definitions/category"}
      }
    },
    "top_improvements": {
      "type": "array",
      "minItems": 5,
      "maxItems": 5,
      "items": {
        "type": "object",
        "required": ["priority", "title", "description", "impact"],
        "properties": {
          "priority": {"enum": ["high", "medium", "low"]},
          "title": {"type": "string"},
          "description": {"type": "string"},
          "impact": {"type": "string"}
        }
      }
    },
    "upgrade_prompt": {"type": "string", "minLength": 1}
  },
  "definitions": {
    "category": {
      "type": "object",
      "required": ["score", "findings", "recommendation"],
      "properties": {
        "score": {"type": "integer", "minimum": 0, "maximum": 100},
        "findings": {
          "type": "array",
          "minItems": 3,
          "maxItems": 3,
          "items": {"type": "string"}
        },
        "recommendation": {"type": "string"}
      }
    }
  }
}`

// ValidateFinal checks a terminal report against the full grading schema.
// The returned error lists every violation.
func ValidateFinal(r Report) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(finalSchema),
		gojsonschema.NewGoLoader(r),
	)
	if err != nil {
		return fmt.Errorf("validate report: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("report schema violations: %s", strings.Join(msgs, "; "))
}
