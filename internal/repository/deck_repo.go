package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// DeckRepository persists flashcard decks and their cards.
type DeckRepository interface {
	CreateDeck(ctx context.Context, deck *models.Deck) error
	UpdateDeck(ctx context.Context, deck *models.Deck) error
	DeleteDeck(ctx context.Context, id uint) error
	GetDeck(ctx context.Context, id uint, withCards bool) (models.Deck, error)
	ListDecks(ctx context.Context, ownerID uint, classIDs []uint) ([]models.Deck, error)
	CreateCards(ctx context.Context, cards []models.Flashcard) error
	UpdateCard(ctx context.Context, card *models.Flashcard) error
	DeleteCard(ctx context.Context, deckID, cardID uint) error
	GetCard(ctx context.Context, deckID, cardID uint) (models.Flashcard, error)
	ListCards(ctx context.Context, deckID uint) ([]models.Flashcard, error)
	CountDueCards(ctx context.Context, ownerID uint, reference time.Time) (int64, error)
}

type deckRepository struct {
	db *gorm.DB
}

// NewDeckRepository instantiates a GORM-backed repository.
func NewDeckRepository(db *gorm.DB) DeckRepository {
	return &deckRepository{db: db}
}

func (r *deckRepository) CreateDeck(ctx context.Context, deck *models.Deck) error {
	return r.db.WithContext(ctx).Create(deck).Error
}

func (r *deckRepository) UpdateDeck(ctx context.Context, deck *models.Deck) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(deck).Error
}

func (r *deckRepository) DeleteDeck(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deck_id = ?", id).Delete(&models.Flashcard{}).Error; err != nil {
			return err
		}
		if err := tx.Where("deck_id = ?", id).Delete(&models.PracticeTest{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Deck{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *deckRepository) GetDeck(ctx context.Context, id uint, withCards bool) (models.Deck, error) {
	query := r.db.WithContext(ctx)
	if withCards {
		query = query.Preload("Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("flashcards.id ASC")
		})
	}

	var deck models.Deck
	if err := query.First(&deck, id).Error; err != nil {
		return models.Deck{}, err
	}
	return deck, nil
}

// ListDecks returns decks owned by ownerID plus public decks shared with classIDs.
func (r *deckRepository) ListDecks(ctx context.Context, ownerID uint, classIDs []uint) ([]models.Deck, error) {
	query := r.db.WithContext(ctx).Model(&models.Deck{})
	if len(classIDs) > 0 {
		query = query.Where("owner_id = ? OR (public = ? AND class_id IN ?)", ownerID, true, classIDs)
	} else {
		query = query.Where("owner_id = ?", ownerID)
	}

	var decks []models.Deck
	if err := query.Order("updated_at DESC").Find(&decks).Error; err != nil {
		return nil, err
	}
	return decks, nil
}

func (r *deckRepository) CreateCards(ctx context.Context, cards []models.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&cards).Error
}

func (r *deckRepository) UpdateCard(ctx context.Context, card *models.Flashcard) error {
	return r.db.WithContext(ctx).Save(card).Error
}

func (r *deckRepository) DeleteCard(ctx context.Context, deckID, cardID uint) error {
	result := r.db.WithContext(ctx).Where("deck_id = ? AND id = ?", deckID, cardID).Delete(&models.Flashcard{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *deckRepository) GetCard(ctx context.Context, deckID, cardID uint) (models.Flashcard, error) {
	var card models.Flashcard
	if err := r.db.WithContext(ctx).Where("deck_id = ? AND id = ?", deckID, cardID).First(&card).Error; err != nil {
		return models.Flashcard{}, err
	}
	return card, nil
}

func (r *deckRepository) ListCards(ctx context.Context, deckID uint) ([]models.Flashcard, error) {
	var cards []models.Flashcard
	if err := r.db.WithContext(ctx).Where("deck_id = ?", deckID).Order("id ASC").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *deckRepository) CountDueCards(ctx context.Context, ownerID uint, reference time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Flashcard{}).
		Joins("JOIN decks ON decks.id = flashcards.deck_id").
		Where("decks.owner_id = ? AND (flashcards.due_at IS NULL OR flashcards.due_at <= ?)", ownerID, reference).
		Count(&total).Error
	return total, err
}
