package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxSourceChars = 12000

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gcquest",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of AI content generation requests",
	}, []string{"model", "kind"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gcquest",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of AI content generation failures",
	}, []string{"model", "kind"})
)

// OpenAIConfig defines configuration options for the OpenAI generator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	BaseURL     string
	Logger      zerolog.Logger
}

// OpenAIGenerator implements Generator against the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGenerator builds a new generator using the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_generator").Logger(),
	}, nil
}

// GenerateFlashcards asks the model for front/back pairs covering the text.
func (g *OpenAIGenerator) GenerateFlashcards(ctx context.Context, req FlashcardRequest) ([]FlashcardDraft, error) {
	content, err := g.complete(ctx, "flashcards", flashcardSystemPrompt(), buildFlashcardPrompt(req))
	if err != nil {
		return nil, err
	}

	cards, err := ParseFlashcards(content)
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model, "flashcards").Inc()
		return nil, err
	}

	if req.Count > 0 && len(cards) > req.Count {
		cards = cards[:req.Count]
	}
	return cards, nil
}

// GenerateQuestions asks the model for assessment questions covering the text.
func (g *OpenAIGenerator) GenerateQuestions(ctx context.Context, req QuestionRequest) ([]QuestionDraft, error) {
	content, err := g.complete(ctx, "questions", questionSystemPrompt(), buildQuestionPrompt(req))
	if err != nil {
		return nil, err
	}

	questions, err := ParseQuestions(content)
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model, "questions").Inc()
		return nil, err
	}

	if req.Count > 0 && len(questions) > req.Count {
		questions = questions[:req.Count]
	}
	return questions, nil
}

func (g *OpenAIGenerator) complete(parent context.Context, kind, system, user string) (string, error) {
	ctx, span := g.tracer.Start(parent, "openai.generate", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.String("kind", kind),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(g.cfg.Model, kind).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model, kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai generate %s: %w", kind, err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(g.cfg.Model, kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	g.logger.Debug().
		Str("kind", kind).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("openai generation completed")

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func flashcardSystemPrompt() string {
	return "You create study flashcards for college students. Respond with a JSON object " +
		`{"flashcards":[{"front":string,"back":string,"hint":string}]}. ` +
		"Fronts are questions or terms, backs are concise answers."
}

func questionSystemPrompt() string {
	return "You write assessment questions for college teachers. Respond with a JSON object " +
		`{"questions":[{"type":string,"prompt":string,"options":[string],"correct_answers":[string],"points":number}]}. ` +
		"Allowed types: mcq, checkboxes, true_false, identification, short, paragraph. " +
		"mcq and true_false have exactly one correct answer taken verbatim from options."
}

func buildFlashcardPrompt(req FlashcardRequest) string {
	builder := strings.Builder{}
	if req.Title != "" {
		builder.WriteString("# Topic\n")
		builder.WriteString(req.Title)
		builder.WriteString("\n\n")
	}
	builder.WriteString(fmt.Sprintf("Create %d flashcards from the material below.\n\n## Material\n", countOrDefault(req.Count)))
	builder.WriteString(truncate(req.Text))
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func buildQuestionPrompt(req QuestionRequest) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Write %d questions from the material below.\n", countOrDefault(req.Count)))
	if len(req.Types) > 0 {
		builder.WriteString("Use only these types: ")
		builder.WriteString(strings.Join(req.Types, ", "))
		builder.WriteString(".\n")
	}
	builder.WriteString("\n## Material\n")
	builder.WriteString(truncate(req.Text))
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func countOrDefault(count int) int {
	if count <= 0 {
		return 10
	}
	return count
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= maxSourceChars {
		return text
	}
	return text[:maxSourceChars]
}
