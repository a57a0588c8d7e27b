package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/cache"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/config"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/database"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/handler"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/router"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service"
)

const testJWTSecret = "handler-test-secret"

type testApp struct {
	app *fiber.App
	db  *gorm.DB
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

// setupApp builds the full route table on an in-memory database. When fakeAuth
// is set, identity comes from X-User-ID and X-User-Role headers instead of a JWT.
func setupApp(t *testing.T, fakeAuth bool) *testApp {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	users := repository.NewUserRepository(db)
	classes := repository.NewClassRepository(db)
	assessments := repository.NewAssessmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	decks := repository.NewDeckRepository(db)
	practice := repository.NewPracticeTestRepository(db)
	resources := repository.NewResourceRepository(db)

	relay := service.NewRelayService(nil, "", nil, validate, logger)
	dashboards := service.NewDashboardService(service.DashboardRepositories{
		Users: users, Classes: classes, Assessments: assessments, Submissions: submissions, Decks: decks,
	}, cache.NewMemoryStore(), time.Minute, logger)

	authService := service.NewAuthService(users, validate, service.TokenConfig{
		AccessSecret:  testJWTSecret,
		RefreshSecret: testJWTSecret + "-refresh",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	}, logger)
	leaderboards := service.NewLeaderboardService(submissions, classes, users, nil, logger)
	flashcards := service.NewFlashcardService(decks, classes, users, validate, dashboards, logger)
	practiceTests := service.NewPracticeTestService(practice, flashcards, validate, logger)

	cfg := config.Config{AppName: "GC Quest Test", AppEnv: "test", JWTSecret: testJWTSecret}
	deps := router.Dependencies{
		AuthHandler:  handler.NewAuthHandler(authService, logger),
		UserHandler:  handler.NewUserHandler(service.NewUserService(users, validate, logger), logger),
		ClassHandler: handler.NewClassHandler(service.NewClassService(classes, users, validate, relay, dashboards, leaderboards, logger), leaderboards, service.NewResourceService(resources, classes, users, nil, 0, validate, relay, logger), logger),
		AssessmentHandler: handler.NewAssessmentHandler(service.NewAssessmentService(assessments, classes, users, validate, service.AssessmentServiceConfig{
			Publisher: relay, Dashboards: dashboards, Leaderboards: leaderboards,
		}, logger), logger),
		SubmissionHandler:   handler.NewSubmissionHandler(service.NewSubmissionService(submissions, assessments, classes, users, leaderboards, validate, relay, dashboards, logger), logger),
		LiveSessionHandler:  handler.NewLiveSessionHandler(service.NewLiveSessionService(assessments, classes, users, validate, relay, 30*time.Second, logger), logger),
		FlashcardHandler:    handler.NewFlashcardHandler(flashcards, practiceTests, logger),
		PracticeTestHandler: handler.NewPracticeTestHandler(practiceTests, logger),
		AIHandler:           handler.NewAIHandler(service.NewGenerationService(nil, flashcards, validate, logger), logger),
		DashboardHandler:    handler.NewDashboardHandler(dashboards, logger),
		RelayHandler:        handler.NewRelayHandler(relay, logger),
		DisableRateLimit:    true,
	}
	if fakeAuth {
		deps.JWTMiddleware = func(c *fiber.Ctx) error {
			id, err := strconv.ParseUint(c.Get("X-User-ID"), 10, 64)
			if err != nil || id == 0 {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "unauthenticated"})
			}
			c.Locals("user_id", uint(id))
			c.Locals("user_role", c.Get("X-User-Role"))
			return c.Next()
		}
	}

	app := fiber.New()
	router.Register(app, cfg, deps)
	return &testApp{app: app, db: db}
}

func (a *testApp) user(t *testing.T, name, role string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: strings.ToLower(name) + "@gc.edu.ph", PasswordHash: "x", Role: role}
	require.NoError(t, a.db.Create(&user).Error)
	return user
}

func (a *testApp) do(t *testing.T, method, path string, as *models.User, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("X-User-ID", strconv.FormatUint(uint64(as.ID), 10))
		req.Header.Set("X-User-Role", as.Role)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp, decodeEnvelope(t, resp)
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var body envelope
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &body), string(data))
	}
	return body
}

func decodeData(t *testing.T, body envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body.Data, target))
}
