// Package syllabus parses and validates syllabus documents: a titled list
// of topics, each with at least one subtopic.
package syllabus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/bloom/internal/store"
)

// Format is the encoding of a syllabus document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document is a complete syllabus.
type Document struct {
	Title  string  `json:"title" yaml:"title"`
	Topics []Topic `json:"topics" yaml:"topics"`
}

// Topic groups related subtopics.
type Topic struct {
	ID          int64      `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Subtopics   []Subtopic `json:"subtopics" yaml:"subtopics"`
}

// Subtopic is one teachable unit.
type Subtopic struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ValidationError lists every problem found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid syllabus: " + strings.Join(e.Problems, "; ")
}

// LoadFile reads, parses and validates the syllabus at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read syllabus: %w", err)
	}
	return Parse(data, FormatFromPath(path))
}

// Parse decodes and validates a syllabus document. Names are trimmed.
func Parse(data []byte, format Format) (*Document, error) {
	generic, err := decodeGeneric(data, format)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(generic); err != nil {
		return nil, err
	}

	// Re-decode from the normalized JSON so both formats share one path.
	raw, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("normalize syllabus: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode syllabus: %w", err)
	}
	doc.normalize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// decodeGeneric decodes into plain JSON values (map[string]any, []any,
// float64) so the schema validator sees the same shapes for both formats.
func decodeGeneric(data []byte, format Format) (any, error) {
	var v any
	switch format {
	case FormatYAML:
		var y any
		if err := yaml.Unmarshal(data, &y); err != nil {
			return nil, fmt.Errorf("parse syllabus YAML: %w", err)
		}
		raw, err := json.Marshal(y)
		if err != nil {
			return nil, fmt.Errorf("parse syllabus YAML: %w", err)
		}
		data = raw
		fallthrough
	case FormatJSON, "":
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse syllabus JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported syllabus format %q", format)
	}
	return v, nil
}

func (d *Document) normalize() {
	d.Title = strings.TrimSpace(d.Title)
	for i := range d.Topics {
		t := &d.Topics[i]
		t.Name = strings.TrimSpace(t.Name)
		for j := range t.Subtopics {
			t.Subtopics[j].Name = strings.TrimSpace(t.Subtopics[j].Name)
		}
	}
}

// Validate checks the rules the schema cannot express: unique topic IDs,
// subtopic IDs unique across the whole syllabus, and non-blank names.
func (d *Document) Validate() error {
	var problems []string
	if strings.TrimSpace(d.Title) == "" {
		problems = append(problems, "title is blank")
	}
	if len(d.Topics) == 0 {
		problems = append(problems, "at least one topic is required")
	}

	topicIDs := map[int64]bool{}
	subtopicIDs := map[int64]bool{}
	for _, t := range d.Topics {
		if t.ID <= 0 {
			problems = append(problems, fmt.Sprintf("topic id %d must be positive", t.ID))
		}
		if topicIDs[t.ID] {
			problems = append(problems, fmt.Sprintf("duplicate topic id %d", t.ID))
		}
		topicIDs[t.ID] = true
		if strings.TrimSpace(t.Name) == "" {
			problems = append(problems, fmt.Sprintf("topic %d has a blank name", t.ID))
		}
		if len(t.Subtopics) == 0 {
			problems = append(problems, fmt.Sprintf("topic %d has no subtopics", t.ID))
		}
		for _, st := range t.Subtopics {
			if st.ID <= 0 {
				problems = append(problems, fmt.Sprintf("subtopic id %d must be positive", st.ID))
			}
			if subtopicIDs[st.ID] {
				problems = append(problems, fmt.Sprintf("duplicate subtopic id %d", st.ID))
			}
			subtopicIDs[st.ID] = true
			if strings.TrimSpace(st.Name) == "" {
				problems = append(problems, fmt.Sprintf("subtopic %d has a blank name", st.ID))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Counts returns the number of topics and subtopics.
func (d *Document) Counts() (topics, subtopics int) {
	for _, t := range d.Topics {
		subtopics += len(t.Subtopics)
	}
	return len(d.Topics), subtopics
}

// StoreTopics converts the document into store rows.
func (d *Document) StoreTopics() []store.Topic {
	out := make([]store.Topic, 0, len(d.Topics))
	for _, t := range d.Topics {
		st := store.Topic{ID: t.ID, Name: t.Name, Description: t.Description}
		for _, s := range t.Subtopics {
			st.Subtopics = append(st.Subtopics, store.Subtopic{
				ID:          s.ID,
				TopicID:     t.ID,
				Name:        s.Name,
				Description: s.Description,
			})
		}
		out = append(out, st)
	}
	return out
}

// IsValidationError reports whether err describes an invalid document
// rather than an I/O problem.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
