package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/grading"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

func sampleQuestions() []dto.QuestionInput {
	return []dto.QuestionInput{
		{ID: "q1", Type: models.QuestionMCQ, Prompt: "Capital of the Philippines?", Options: []string{"Cebu", "Manila", "Davao"}, CorrectAnswers: []string{"Manila"}, Points: 2},
		{ID: "q2", Type: models.QuestionTrueFalse, Prompt: "Go has generics.", Options: []string{"true", "false"}, CorrectAnswers: []string{"true"}},
		{ID: "q3", Type: models.QuestionParagraph, Prompt: "Explain goroutines.", Points: 3},
	}
}

// seedAssessment stores a published assessment directly.
func seedAssessment(t *testing.T, f *fixture, class models.Class, mutate func(*models.Assessment)) models.Assessment {
	t.Helper()
	assessment := models.Assessment{
		ClassID:   class.ID,
		CreatedBy: class.TeacherID,
		Title:     "Quiz 1",
		Kind:      models.AssessmentKindQuiz,
		Questions: datatypes.NewJSONSlice([]models.Question{
			{ID: "q1", Type: models.QuestionMCQ, Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswers: []string{"4"}, Points: 2},
			{ID: "q2", Type: models.QuestionIdentification, Prompt: "Go mascot?", CorrectAnswers: []string{"gopher"}, Points: 1},
		}),
		Published:   true,
		LiveSession: datatypes.NewJSONType(models.LiveSession{}),
	}
	if mutate != nil {
		mutate(&assessment)
	}
	require.NoError(t, f.assessments.Create(context.Background(), &assessment))
	return assessment
}

func newTestAssessmentService(f *fixture, storage FileStorage) AssessmentService {
	return NewAssessmentService(f.assessments, f.classes, f.users, f.validate, AssessmentServiceConfig{
		Storage:        storage,
		MaxUploadBytes: 1024,
		Publisher:      f.publisher,
		Dashboards:     f.dashboards,
	}, testLogger())
}

func TestAssessmentServiceCreatePublishAndHideAnswers(t *testing.T) {
	f := newFixture(t)
	svc := newTestAssessmentService(f, nil)
	ctx := context.Background()

	teacher := f.user(t, "Teacher", models.RoleTeacher)
	student := f.user(t, "Ana", models.RoleStudent)
	class := f.class(t, teacher, student)

	_, err := svc.Create(ctx, student, dto.AssessmentCreateRequest{ClassID: class.ID, Title: "Quiz", Kind: models.AssessmentKindQuiz})
	require.ErrorIs(t, err, ErrForbidden)

	created, err := svc.Create(ctx, teacher, dto.AssessmentCreateRequest{
		ClassID:   class.ID,
		Title:     "Quiz 1",
		Kind:      models.AssessmentKindQuiz,
		Questions: sampleQuestions(),
	})
	require.NoError(t, err)
	require.Equal(t, 6.0, created.MaxPoints, "missing points default to one")
	require.False(t, created.Published)

	_, err = svc.Get(ctx, student, created.ID)
	require.ErrorIs(t, err, ErrAssessmentNotFound, "drafts are hidden from students")

	published, err := svc.SetPublished(ctx, teacher, created.ID, true)
	require.NoError(t, err)
	require.True(t, published.Published)

	event, ok := f.publisher.find(ClassChannel(class.ID), EventAssessmentPublished)
	require.True(t, ok)
	require.Equal(t, created.ID, event.Data.(map[string]interface{})["assessment_id"])
	require.True(t, f.dashboards.contains(student.ID))

	view, err := svc.Get(ctx, student, created.ID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 3)
	for _, question := range view.Questions {
		require.Empty(t, question.CorrectAnswers)
	}

	teacherView, err := svc.Get(ctx, teacher, created.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"Manila"}, teacherView.Questions[0].CorrectAnswers)

	list, err := svc.List(ctx, student, dto.AssessmentQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestAssessmentServiceRejectsInvalidQuestions(t *testing.T) {
	f := newFixture(t)
	svc := newTestAssessmentService(f, nil)
	ctx := context.Background()

	teacher := f.user(t, "Teacher", models.RoleTeacher)
	class := f.class(t, teacher)

	_, err := svc.Create(ctx, teacher, dto.AssessmentCreateRequest{
		ClassID: class.ID,
		Title:   "Broken",
		Kind:    models.AssessmentKindQuiz,
		Questions: []dto.QuestionInput{
			{ID: "a", Type: models.QuestionMCQ, Prompt: "Pick", Options: []string{"x", "y"}, CorrectAnswers: []string{"z"}},
		},
	})
	require.ErrorIs(t, err, grading.ErrInvalidQuestion)

	_, err = svc.Create(ctx, teacher, dto.AssessmentCreateRequest{
		ClassID: class.ID,
		Title:   "Dupes",
		Kind:    models.AssessmentKindQuiz,
		Questions: []dto.QuestionInput{
			{ID: "a", Type: models.QuestionShort, Prompt: "One"},
			{ID: "a", Type: models.QuestionShort, Prompt: "Two"},
		},
	})
	require.ErrorIs(t, err, ErrDuplicateQuestionID)

	empty, err := svc.Create(ctx, teacher, dto.AssessmentCreateRequest{ClassID: class.ID, Title: "Empty quiz", Kind: models.AssessmentKindQuiz})
	require.NoError(t, err)
	_, err = svc.SetPublished(ctx, teacher, empty.ID, true)
	require.ErrorIs(t, err, ErrAssessmentEmpty)

	activity, err := svc.Create(ctx, teacher, dto.AssessmentCreateRequest{ClassID: class.ID, Title: "Lab work", Kind: models.AssessmentKindActivity})
	require.NoError(t, err)
	_, err = svc.SetPublished(ctx, teacher, activity.ID, true)
	require.NoError(t, err)
}

func TestAssessmentServiceShufflesPerStudent(t *testing.T) {
	f := newFixture(t)
	svc := newTestAssessmentService(f, nil)
	ctx := context.Background()

	teacher := f.user(t, "Teacher", models.RoleTeacher)
	student := f.user(t, "Ana", models.RoleStudent)
	class := f.class(t, teacher, student)

	questions := make([]models.Question, 0, 12)
	for i := 0; i < 12; i++ {
		questions = append(questions, models.Question{ID: string(rune('a' + i)), Type: models.QuestionShort, Prompt: "Prompt", Points: 1})
	}
	assessment := seedAssessment(t, f, class, func(a *models.Assessment) {
		a.Questions = datatypes.NewJSONSlice(questions)
		a.ShuffleQuestions = true
	})

	first, err := svc.Get(ctx, student, assessment.ID)
	require.NoError(t, err)
	second, err := svc.Get(ctx, student, assessment.ID)
	require.NoError(t, err)
	require.Equal(t, first.Questions, second.Questions, "order is stable for the same student")
	require.Len(t, first.Questions, 12)

	teacherView, err := svc.Get(ctx, teacher, assessment.ID)
	require.NoError(t, err)
	require.Equal(t, "a", teacherView.Questions[0].ID)
}

func TestAssessmentServiceUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	svc := newTestAssessmentService(f, nil)
	ctx := context.Background()

	teacher := f.user(t, "Teacher", models.RoleTeacher)
	other := f.user(t, "Other", models.RoleTeacher)
	class := f.class(t, teacher)
	assessment := seedAssessment(t, f, class, nil)

	title := "Renamed quiz"
	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	_, err := svc.Update(ctx, other, assessment.ID, dto.AssessmentUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, teacher, assessment.ID, dto.AssessmentUpdateRequest{Title: &title, DueDate: &due})
	require.NoError(t, err)
	require.Equal(t, "Renamed quiz", updated.Title)
	require.NotNil(t, updated.DueDate)

	cleared, err := svc.Update(ctx, teacher, assessment.ID, dto.AssessmentUpdateRequest{ClearDueDate: true})
	require.NoError(t, err)
	require.Nil(t, cleared.DueDate)

	require.NoError(t, svc.Delete(ctx, teacher, assessment.ID))
	_, err = svc.Get(ctx, teacher, assessment.ID)
	require.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestAssessmentServiceAttachFile(t *testing.T) {
	f := newFixture(t)
	storage := &storageStub{}
	svc := newTestAssessmentService(f, storage)
	ctx := context.Background()

	teacher := f.user(t, "Teacher", models.RoleTeacher)
	class := f.class(t, teacher)
	assessment := seedAssessment(t, f, class, nil)

	attached, err := svc.AttachFile(ctx, teacher, assessment.ID, buildFileHeader(t, "diagram.png", pngHeader))
	require.NoError(t, err)
	require.Contains(t, attached.AttachmentURL, "assessments/")
	require.Equal(t, pngHeader, storage.uploaded.Bytes())

	_, err = svc.AttachFile(ctx, teacher, assessment.ID, buildFileHeader(t, "big.png", make([]byte, 4096)))
	require.ErrorIs(t, err, ErrUploadTooLarge)

	noStorage := newTestAssessmentService(f, nil)
	_, err = noStorage.AttachFile(ctx, teacher, assessment.ID, buildFileHeader(t, "diagram.png", pngHeader))
	require.ErrorIs(t, err, ErrStorageUnavailable)
}
