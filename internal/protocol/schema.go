package protocol

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// messageSchema describes a dispatchable "message" line
const messageSchema = `{
	"type": "object",
	"required": ["type", "message_id", "content"],
	"properties": {
		"type": {"type": "string", "enum": ["message"]},
		"message_id": {"type": "string", "minLength": 1},
		"content": {"type": "string", "minLength": 1}
	}
}`

var messageValidator = mustLoadSchema(messageSchema)

func mustLoadSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic("invalid message schema: " + err.Error())
	}
	return schema
}

// validateMessage checks a raw message line against messageSchema
func validateMessage(line []byte) error {
	result, err := messageValidator.Validate(gojsonschema.NewBytesLoader(line))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("message validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
