package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func setupServiceDB(t *testing.T) *gorm.DB {
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

// fixture bundles the repositories every service test needs.
type fixture struct {
	db          *gorm.DB
	users       repository.UserRepository
	classes     repository.ClassRepository
	assessments repository.AssessmentRepository
	submissions repository.SubmissionRepository
	decks       repository.DeckRepository
	tests       repository.PracticeTestRepository
	resources   repository.ResourceRepository
	validate    *validator.Validate
	publisher   *recordingPublisher
	dashboards  *recordingInvalidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupServiceDB(t)
	return &fixture{
		db:          db,
		users:       repository.NewUserRepository(db),
		classes:     repository.NewClassRepository(db),
		assessments: repository.NewAssessmentRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		decks:       repository.NewDeckRepository(db),
		tests:       repository.NewPracticeTestRepository(db),
		resources:   repository.NewResourceRepository(db),
		validate:    validator.New(),
		publisher:   &recordingPublisher{},
		dashboards:  &recordingInvalidator{},
	}
}

func (f *fixture) user(t *testing.T, name, role string) Actor {
	t.Helper()
	user := models.User{Name: name, Email: strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@gc.edu.ph", PasswordHash: "x", Role: role}
	require.NoError(t, f.db.Create(&user).Error)
	return Actor{ID: user.ID, Role: role}
}

func (f *fixture) class(t *testing.T, teacher Actor, students ...Actor) models.Class {
	t.Helper()
	class := models.Class{Name: "IT Elective 2", TeacherID: teacher.ID, JoinCode: fmt.Sprintf("C%05d", teacher.ID)}
	require.NoError(t, f.classes.Create(context.Background(), &class))
	for _, student := range students {
		_, err := f.classes.AddMember(context.Background(), class.ID, student.ID)
		require.NoError(t, err)
	}
	return class
}

type publishedEvent struct {
	Channel string
	Event   string
	Data    interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, channel, event string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Channel: channel, Event: event, Data: data})
	return nil
}

func (p *recordingPublisher) find(channel, event string) (publishedEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Channel == channel && e.Event == event {
			return e, true
		}
	}
	return publishedEvent{}, false
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []uint
}

func (r *recordingInvalidator) Invalidate(_ context.Context, userIDs ...uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, userIDs...)
}

func (r *recordingInvalidator) contains(id uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.ids {
		if v == id {
			return true
		}
	}
	return false
}

type storageStub struct {
	mu       sync.Mutex
	uploaded bytes.Buffer
	folder   string
	deleted  []string
}

func (s *storageStub) Upload(_ context.Context, folder, name string, reader io.Reader) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded.Reset()
	if _, err := s.uploaded.ReadFrom(reader); err != nil {
		return "", "", err
	}
	s.folder = folder
	return "https://cdn.example.com/" + folder + "/" + name, "raw:" + folder + "/" + name, nil
}

func (s *storageStub) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func isValidation(err error) bool {
	var validationErrs validator.ValidationErrors
	return errors.As(err, &validationErrs)
}
