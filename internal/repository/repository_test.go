package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Class{}, &models.ClassMember{}, &models.Assessment{},
		&models.Submission{}, &models.Deck{}, &models.Flashcard{}, &models.PracticeTest{}, &models.Resource{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, role string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: strings.ToLower(name) + "@gc.edu.ph", PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestClassRepositoryMembership(t *testing.T) {
	db := setupTestDB(t)
	repo := NewClassRepository(db)
	ctx := context.Background()

	teacher := seedUser(t, db, "Teacher", models.RoleTeacher)
	student := seedUser(t, db, "Ana", models.RoleStudent)

	class := models.Class{Name: "IT Elective 2", TeacherID: teacher.ID, JoinCode: "ABC123"}
	require.NoError(t, repo.Create(ctx, &class))

	created, err := repo.AddMember(ctx, class.ID, student.ID)
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.AddMember(ctx, class.ID, student.ID)
	require.NoError(t, err)
	require.False(t, created, "joining twice must be idempotent")

	member, err := repo.IsMember(ctx, class.ID, student.ID)
	require.NoError(t, err)
	require.True(t, member)

	classes, err := repo.ListByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, classes, 1)

	counts, err := repo.CountMembers(ctx, []uint{class.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[class.ID])

	members, err := repo.ListMembers(ctx, class.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, "Ana", members[0].Student.Name)

	require.NoError(t, repo.RemoveMember(ctx, class.ID, student.ID))
	require.ErrorIs(t, repo.RemoveMember(ctx, class.ID, student.ID), gorm.ErrRecordNotFound)

	found, err := repo.GetByJoinCode(ctx, "ABC123")
	require.NoError(t, err)
	require.Equal(t, class.ID, found.ID)
}

func TestAssessmentRepositoryUpdateLiveSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssessmentRepository(db)
	ctx := context.Background()

	teacher := seedUser(t, db, "Teacher", models.RoleTeacher)
	class := models.Class{Name: "Networking", TeacherID: teacher.ID, JoinCode: "NET001"}
	require.NoError(t, db.Create(&class).Error)

	assessment := models.Assessment{
		ClassID:   class.ID,
		CreatedBy: teacher.ID,
		Title:     "Subnetting quiz",
		Kind:      models.AssessmentKindQuiz,
		Questions: datatypes.JSONSlice[models.Question]{{ID: "q1", Type: models.QuestionMCQ, Prompt: "p", Options: []string{"a", "b"}, CorrectAnswers: []string{"a"}, Points: 1}},
	}
	require.NoError(t, repo.Create(ctx, &assessment))

	updated, err := repo.UpdateLiveSession(ctx, assessment.ID, func(_ *models.Assessment, session *models.LiveSession) error {
		session.Active = true
		session.Joined = append(session.Joined, 7)
		session.SetParticipant(7, models.LiveParticipant{Status: models.LiveStatusActive})
		return nil
	})
	require.NoError(t, err)
	require.True(t, updated.LiveSession.Data().Active)

	reloaded, err := repo.GetByID(ctx, assessment.ID)
	require.NoError(t, err)
	session := reloaded.LiveSession.Data()
	require.True(t, session.HasJoined(7))
	participant, ok := session.Participant(7)
	require.True(t, ok)
	require.Equal(t, models.LiveStatusActive, participant.Status)
	require.Len(t, reloaded.Questions, 1)

	sentinel := errors.New("stop")
	_, err = repo.UpdateLiveSession(ctx, assessment.ID, func(_ *models.Assessment, session *models.LiveSession) error {
		session.Active = false
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	reloaded, err = repo.GetByID(ctx, assessment.ID)
	require.NoError(t, err)
	require.True(t, reloaded.LiveSession.Data().Active, "failed mutation must not be persisted")
}

func TestAssessmentRepositoryUpdateKeepsLiveSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssessmentRepository(db)
	ctx := context.Background()

	teacher := seedUser(t, db, "Teacher", models.RoleTeacher)
	class := models.Class{Name: "Networking", TeacherID: teacher.ID, JoinCode: "NET002"}
	require.NoError(t, db.Create(&class).Error)

	assessment := models.Assessment{ClassID: class.ID, CreatedBy: teacher.ID, Title: "Routing quiz", Kind: models.AssessmentKindQuiz}
	require.NoError(t, repo.Create(ctx, &assessment))

	stale, err := repo.GetByID(ctx, assessment.ID)
	require.NoError(t, err)

	_, err = repo.UpdateLiveSession(ctx, assessment.ID, func(_ *models.Assessment, session *models.LiveSession) error {
		session.Active = true
		session.Joined = append(session.Joined, 9)
		return nil
	})
	require.NoError(t, err)

	stale.Title = "Routing quiz (revised)"
	require.NoError(t, repo.Update(ctx, &stale))

	reloaded, err := repo.GetByID(ctx, assessment.ID)
	require.NoError(t, err)
	require.Equal(t, "Routing quiz (revised)", reloaded.Title)
	require.True(t, reloaded.LiveSession.Data().Active, "editing must not rewind the live session")
	require.True(t, reloaded.LiveSession.Data().HasJoined(9))
}

func TestSubmissionRepositoryAggregates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	teacher := seedUser(t, db, "Teacher", models.RoleTeacher)
	ana := seedUser(t, db, "Ana", models.RoleStudent)
	ben := seedUser(t, db, "Ben", models.RoleStudent)

	class := models.Class{Name: "Databases", TeacherID: teacher.ID, JoinCode: "DB0001"}
	require.NoError(t, db.Create(&class).Error)

	first := models.Assessment{ClassID: class.ID, CreatedBy: teacher.ID, Title: "Quiz 1", Kind: models.AssessmentKindQuiz}
	second := models.Assessment{ClassID: class.ID, CreatedBy: teacher.ID, Title: "Quiz 2", Kind: models.AssessmentKindQuiz}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	now := time.Now().UTC()
	rows := []models.Submission{
		{AssessmentID: first.ID, StudentID: ana.ID, Status: models.SubmissionStatusGraded, Score: 8, MaxScore: 10, StartedAt: now},
		{AssessmentID: second.ID, StudentID: ana.ID, Status: models.SubmissionStatusGraded, Score: 5, MaxScore: 10, StartedAt: now},
		{AssessmentID: first.ID, StudentID: ben.ID, Status: models.SubmissionStatusGraded, Score: 10, MaxScore: 10, StartedAt: now},
		{AssessmentID: second.ID, StudentID: ben.ID, Status: models.SubmissionStatusNeedsGrading, Score: 2, MaxScore: 10, StartedAt: now},
	}
	for i := range rows {
		require.NoError(t, repo.Create(ctx, &rows[i]))
	}

	points, err := repo.ClassPoints(ctx, class.ID)
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.Equal(t, ana.ID, points[0].StudentID)
	require.InDelta(t, 13.0, points[0].Points, 0.001)
	require.InDelta(t, 10.0, points[1].Points, 0.001)

	benPoints, err := repo.StudentClassPoints(ctx, class.ID, ben.ID)
	require.NoError(t, err)
	require.InDelta(t, 10.0, benPoints, 0.001)

	averages, err := repo.ClassAverages(ctx)
	require.NoError(t, err)
	require.Len(t, averages, 1)
	require.InDelta(t, 76.67, averages[0].Average, 0.01)

	pending, err := repo.List(ctx, SubmissionFilter{ClassIDs: []uint{class.ID}, Statuses: []string{models.SubmissionStatusNeedsGrading}})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "Ben", pending[0].Student.Name)
	require.Equal(t, "Quiz 2", pending[0].Assessment.Title)
}

func TestDeckRepositoryListsOwnedAndSharedDecks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeckRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "Owner", models.RoleStudent)
	other := seedUser(t, db, "Other", models.RoleTeacher)
	classID := uint(3)

	mine := models.Deck{OwnerID: owner.ID, Title: "Mine"}
	shared := models.Deck{OwnerID: other.ID, Title: "Shared", Public: true, ClassID: &classID}
	private := models.Deck{OwnerID: other.ID, Title: "Private", ClassID: &classID}
	for _, deck := range []*models.Deck{&mine, &shared, &private} {
		require.NoError(t, repo.CreateDeck(ctx, deck))
	}

	decks, err := repo.ListDecks(ctx, owner.ID, []uint{classID})
	require.NoError(t, err)
	require.Len(t, decks, 2)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	require.NoError(t, repo.CreateCards(ctx, []models.Flashcard{
		{DeckID: mine.ID, Front: "a", Back: "1"},
		{DeckID: mine.ID, Front: "b", Back: "2", DueAt: &past, Reviews: 1},
		{DeckID: mine.ID, Front: "c", Back: "3", DueAt: &future, Reviews: 1},
	}))

	due, err := repo.CountDueCards(ctx, owner.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(2), due)

	withCards, err := repo.GetDeck(ctx, mine.ID, true)
	require.NoError(t, err)
	require.Len(t, withCards.Cards, 3)

	require.NoError(t, repo.DeleteDeck(ctx, mine.ID))
	_, err = repo.GetDeck(ctx, mine.ID, false)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
