package study

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// DefaultPracticeSize is used when no question count is requested.
const DefaultPracticeSize = 10

const maxDistractors = 3

// BuildPracticeQuestions turns up to count cards into questions. Each card
// becomes a multiple choice question whose answer is its back, with up to
// three distinct distractors drawn from other cards. Decks with fewer than two
// distinct backs produce identification questions instead.
func BuildPracticeQuestions(cards []models.Flashcard, count int, rng *rand.Rand) []models.Question {
	if count <= 0 {
		count = DefaultPracticeSize
	}
	if count > len(cards) {
		count = len(cards)
	}

	picked := make([]models.Flashcard, len(cards))
	copy(picked, cards)
	rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	picked = picked[:count]

	backs := distinctBacks(cards)
	useChoices := len(backs) >= 2

	questions := make([]models.Question, 0, count)
	for i, card := range picked {
		question := models.Question{
			ID:             fmt.Sprintf("q%d", i+1),
			Prompt:         card.Front,
			CorrectAnswers: []string{card.Back},
			Points:         1,
		}

		if !useChoices {
			question.Type = models.QuestionIdentification
			questions = append(questions, question)
			continue
		}

		question.Type = models.QuestionMCQ
		question.Options = choicesFor(card.Back, backs, rng)
		questions = append(questions, question)
	}
	return questions
}

func choicesFor(answer string, backs []string, rng *rand.Rand) []string {
	pool := make([]string, 0, len(backs))
	for _, back := range backs {
		if !strings.EqualFold(strings.TrimSpace(back), strings.TrimSpace(answer)) {
			pool = append(pool, back)
		}
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > maxDistractors {
		pool = pool[:maxDistractors]
	}

	options := append(pool, answer)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options
}

func distinctBacks(cards []models.Flashcard) []string {
	seen := make(map[string]struct{}, len(cards))
	backs := make([]string, 0, len(cards))
	for _, card := range cards {
		key := strings.ToLower(strings.TrimSpace(card.Back))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		backs = append(backs, card.Back)
	}
	return backs
}
