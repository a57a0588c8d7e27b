package study

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/grading"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

func TestReviewMovesBoxes(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	card := models.Flashcard{}
	card, err := Review(card, models.RatingGood, now)
	require.NoError(t, err)
	require.Equal(t, 1, card.Box)
	require.Equal(t, now.Add(10*time.Minute), *card.DueAt)

	card, err = Review(card, models.RatingEasy, now)
	require.NoError(t, err)
	require.Equal(t, 3, card.Box)
	require.Equal(t, now.Add(3*24*time.Hour), *card.DueAt)

	card, err = Review(card, models.RatingHard, now)
	require.NoError(t, err)
	require.Equal(t, 3, card.Box)

	card, err = Review(card, models.RatingAgain, now)
	require.NoError(t, err)
	require.Equal(t, 1, card.Box)
	require.Equal(t, 1, card.Lapses)
	require.Equal(t, 4, card.Reviews)
	require.Equal(t, models.RatingAgain, card.LastRating)
}

func TestReviewCapsAtTopBox(t *testing.T) {
	now := time.Now()
	card := models.Flashcard{Box: 4, Reviews: 3}
	card, err := Review(card, models.RatingEasy, now)
	require.NoError(t, err)
	require.Equal(t, models.MaxLeitnerBox, card.Box)
	require.Equal(t, now.Add(21*24*time.Hour), *card.DueAt)
}

func TestReviewHardOnNewCardStartsAtFirstBox(t *testing.T) {
	card, err := Review(models.Flashcard{}, models.RatingHard, time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, card.Box)
	require.Zero(t, card.Lapses)
}

func TestReviewRejectsUnknownRating(t *testing.T) {
	_, err := Review(models.Flashcard{}, "perfect", time.Now())
	require.ErrorIs(t, err, ErrUnknownRating)
}

func TestSelectModes(t *testing.T) {
	now := time.Now()
	older := now.Add(-2 * time.Hour)
	recent := now.Add(-time.Minute)
	later := now.Add(time.Hour)

	cards := []models.Flashcard{
		{ID: 1, Reviews: 1, DueAt: &recent},
		{ID: 2},
		{ID: 3, Reviews: 2, DueAt: &older},
		{ID: 4, Reviews: 1, DueAt: &later},
	}

	learn := Select(cards, "learn", 0, now, nil)
	require.Equal(t, 2, learn.DueCount)
	require.Equal(t, 1, learn.NewCount)
	require.Equal(t, []uint{3, 1, 2}, cardIDs(learn.Cards))

	review := Select(cards, "review", 0, now, nil)
	require.Equal(t, []uint{3, 1}, cardIDs(review.Cards))

	cram := Select(cards, "cram", 3, now, rand.New(rand.NewSource(7)))
	require.Len(t, cram.Cards, 3)
}

func TestBuildPracticeQuestionsUsesDistractors(t *testing.T) {
	cards := []models.Flashcard{
		{Front: "HTTP port", Back: "80"},
		{Front: "HTTPS port", Back: "443"},
		{Front: "SSH port", Back: "22"},
		{Front: "DNS port", Back: "53"},
		{Front: "SMTP port", Back: "25"},
	}

	questions := BuildPracticeQuestions(cards, 0, rand.New(rand.NewSource(1)))
	require.Len(t, questions, len(cards))

	for _, q := range questions {
		require.Equal(t, models.QuestionMCQ, q.Type)
		require.Len(t, q.Options, 4)
		require.Contains(t, q.Options, q.CorrectAnswers[0])
		require.NoError(t, grading.ValidateQuestion(q))
	}
}

func TestBuildPracticeQuestionsFallsBackToIdentification(t *testing.T) {
	cards := []models.Flashcard{
		{Front: "Capital of the Philippines", Back: "Manila"},
		{Front: "Largest city in Metro Manila", Back: "manila "},
	}

	questions := BuildPracticeQuestions(cards, 5, rand.New(rand.NewSource(1)))
	require.Len(t, questions, 2)
	for _, q := range questions {
		require.Equal(t, models.QuestionIdentification, q.Type)
		require.Empty(t, q.Options)
	}
}

func cardIDs(cards []models.Flashcard) []uint {
	ids := make([]uint, 0, len(cards))
	for _, card := range cards {
		ids = append(ids, card.ID)
	}
	return ids
}
