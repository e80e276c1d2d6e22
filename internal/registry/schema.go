package registry

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"firestige.xyz/canframe/internal/core"
)

// documentSchema is applied to every registry document regardless of its
// file format, after decoding it into generic Go values.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["messages"],
  "properties": {
    "messages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name"],
        "properties": {
          "id": {
            "oneOf": [
              {"type": "integer", "minimum": 0, "maximum": 4294967295},
              {"type": "string", "pattern": "^(0[xX][0-9a-fA-F]+|[0-9]+)$"}
            ]
          },
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// validateDocument checks a decoded document against documentSchema.
func validateDocument(doc any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrRegistryInvalid, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", core.ErrRegistryInvalid, strings.Join(msgs, "; "))
}
