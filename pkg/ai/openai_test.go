package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseFlashcardsRejectsInvalidShape(t *testing.T) {
	_, err := ParseFlashcards(`{"flashcards":[{"front":"only front"}]}`)
	require.ErrorIs(t, err, ErrInvalidOutput)

	_, err = ParseFlashcards(`not json`)
	require.ErrorIs(t, err, ErrInvalidOutput)

	cards, err := ParseFlashcards(`{"flashcards":[{"front":"TCP","back":"Transmission Control Protocol"}]}`)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Equal(t, "TCP", cards[0].Front)
}

func TestParseQuestionsRejectsUnknownType(t *testing.T) {
	_, err := ParseQuestions(`{"questions":[{"type":"matching","prompt":"p"}]}`)
	require.ErrorIs(t, err, ErrInvalidOutput)

	questions, err := ParseQuestions(`{"questions":[{"type":"mcq","prompt":"2+2","options":["3","4"],"correct_answers":["4"],"points":2}]}`)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.InDelta(t, 2.0, questions[0].Points, 0.001)
}

func TestOpenAIGeneratorGenerateFlashcards(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		content := `{"flashcards":[{"front":"a","back":"1"},{"front":"b","back":"2"},{"front":"c","back":"3"}]}`
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"}},
			"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
	defer server.Close()

	generator, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "test", BaseURL: server.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	cards, err := generator.GenerateFlashcards(context.Background(), FlashcardRequest{Text: "letters and numbers", Count: 2})
	require.NoError(t, err)
	require.Len(t, cards, 2)
	require.Equal(t, "b", cards[1].Front)
}

func TestNewOpenAIGeneratorRequiresKey(t *testing.T) {
	_, err := NewOpenAIGenerator(OpenAIConfig{})
	require.Error(t, err)
}
