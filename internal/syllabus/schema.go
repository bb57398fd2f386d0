package syllabus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "schema://syllabus.json"

var documentSchema = map[string]any{
	"type":     "object",
	"required": []any{"title", "topics"},
	"properties": map[string]any{
		"title": map[string]any{"type": "string", "minLength": 1},
		"topics": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "name", "subtopics"},
				"properties": map[string]any{
					"id":          map[string]any{"type": "integer", "exclusiveMinimum": 0},
					"name":        map[string]any{"type": "string", "minLength": 1},
					"description": map[string]any{"type": "string"},
					"subtopics": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type":     "object",
							"required": []any{"id", "name"},
							"properties": map[string]any{
								"id":          map[string]any{"type": "integer", "exclusiveMinimum": 0},
								"name":        map[string]any{"type": "string", "minLength": 1},
								"description": map[string]any{"type": "string"},
							},
						},
					},
				},
			},
		},
	},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, documentSchema); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// validateSchema checks a decoded document against the syllabus schema.
func validateSchema(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile syllabus schema: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &ValidationError{Problems: []string{ve.Error()}}
		}
		return &ValidationError{Problems: []string{err.Error()}}
	}
	return nil
}
