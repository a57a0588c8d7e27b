// Package study implements Leitner-box scheduling, study-mode card selection
// and practice test generation for flashcard decks.
package study

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// ErrUnknownRating is returned for ratings outside again/hard/good/easy.
var ErrUnknownRating = errors.New("unknown review rating")

// Intervals maps a Leitner box to the delay before the card is due again.
var Intervals = [models.MaxLeitnerBox + 1]time.Duration{
	0,
	10 * time.Minute,
	24 * time.Hour,
	3 * 24 * time.Hour,
	7 * 24 * time.Hour,
	21 * 24 * time.Hour,
}

// Review applies a rating to a card and returns the rescheduled copy.
func Review(card models.Flashcard, rating string, now time.Time) (models.Flashcard, error) {
	box := card.Box
	switch rating {
	case models.RatingAgain:
		box = 1
		card.Lapses++
	case models.RatingHard:
		if box < 1 {
			box = 1
		}
	case models.RatingGood:
		box++
	case models.RatingEasy:
		box += 2
	default:
		return card, ErrUnknownRating
	}

	if box > models.MaxLeitnerBox {
		box = models.MaxLeitnerBox
	}

	due := now.Add(Intervals[box])
	reviewed := now

	card.Box = box
	card.DueAt = &due
	card.ReviewedAt = &reviewed
	card.Reviews++
	card.LastRating = rating
	return card, nil
}

// Selection is the ordered card list for one study session.
type Selection struct {
	Cards    []models.Flashcard
	DueCount int
	NewCount int
}

// Select orders cards for a study mode. learn serves due cards oldest first
// and then new cards, review serves only due cards, cram serves every card in
// random order. A limit of zero or less means no limit.
func Select(cards []models.Flashcard, mode string, limit int, now time.Time, rng *rand.Rand) Selection {
	due := make([]models.Flashcard, 0)
	fresh := make([]models.Flashcard, 0)
	for _, card := range cards {
		switch {
		case card.IsNew():
			fresh = append(fresh, card)
		case card.IsDue(now):
			due = append(due, card)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].DueAt.Before(*due[j].DueAt)
	})

	selection := Selection{DueCount: len(due), NewCount: len(fresh)}

	switch mode {
	case "review":
		selection.Cards = due
	case "cram":
		all := make([]models.Flashcard, len(cards))
		copy(all, cards)
		if rng != nil {
			rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
		}
		selection.Cards = all
	default:
		selection.Cards = append(due, fresh...)
	}

	if limit > 0 && len(selection.Cards) > limit {
		selection.Cards = selection.Cards[:limit]
	}
	return selection
}
