package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const flashcardSchema = `{
  "type": "object",
  "required": ["flashcards"],
  "properties": {
    "flashcards": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["front", "back"],
        "properties": {
          "front": {"type": "string", "minLength": 1},
          "back": {"type": "string", "minLength": 1},
          "hint": {"type": "string"}
        }
      }
    }
  }
}`

const questionSchema = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["type", "prompt"],
        "properties": {
          "type": {"enum": ["mcq", "checkboxes", "true_false", "identification", "short", "paragraph"]},
          "prompt": {"type": "string", "minLength": 1},
          "options": {"type": "array", "items": {"type": "string"}},
          "correct_answers": {"type": "array", "items": {"type": "string"}},
          "points": {"type": "number", "exclusiveMinimum": 0}
        }
      }
    }
  }
}`

var (
	flashcardValidator = mustCompile("flashcards.json", flashcardSchema)
	questionValidator  = mustCompile("questions.json", questionSchema)
)

func mustCompile(name, source string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		panic(fmt.Sprintf("ai: add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// ParseFlashcards validates raw model output and decodes the flashcards.
func ParseFlashcards(content string) ([]FlashcardDraft, error) {
	if err := validate(flashcardValidator, content); err != nil {
		return nil, err
	}

	var payload struct {
		Flashcards []FlashcardDraft `json:"flashcards"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("decode flashcards: %w", err)
	}
	return payload.Flashcards, nil
}

// ParseQuestions validates raw model output and decodes the questions.
func ParseQuestions(content string) ([]QuestionDraft, error) {
	if err := validate(questionValidator, content); err != nil {
		return nil, err
	}

	var payload struct {
		Questions []QuestionDraft `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return payload.Questions, nil
}

func validate(schema *jsonschema.Schema, content string) error {
	var doc interface{}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return nil
}
