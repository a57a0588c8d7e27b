package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

func TestHealthEndpoint(t *testing.T) {
	ta := setupApp(t, true)

	resp, body := ta.do(t, http.MethodGet, "/api/v1/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, body.Success)
	require.Equal(t, "service healthy", body.Message)
	require.Equal(t, "GC Quest Test", resp.Header.Get("X-Application"))
}

func TestAuthRegisterAndProfile(t *testing.T) {
	ta := setupApp(t, false)

	resp, body := ta.do(t, http.MethodPost, "/api/v1/auth/register", nil, dto.RegisterRequest{
		Name:     "Lia Santos",
		Email:    "lia@gc.edu.ph",
		Password: "supersecret",
		Role:     models.RoleStudent,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Message)

	var tokens dto.TokenResponse
	decodeData(t, body, &tokens)
	require.NotEmpty(t, tokens.AccessToken)
	require.Equal(t, models.RoleStudent, tokens.User.Role)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	meResp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	meBody := decodeEnvelope(t, meResp)
	require.Equal(t, http.StatusOK, meResp.StatusCode, meBody.Message)

	var profile dto.UserResponse
	decodeData(t, meBody, &profile)
	require.Equal(t, "lia@gc.edu.ph", profile.Email)

	unauth, err := ta.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, unauth.StatusCode)

	loginResp, loginBody := ta.do(t, http.MethodPost, "/api/v1/auth/login", nil, dto.LoginRequest{
		Email:    "lia@gc.edu.ph",
		Password: "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, loginResp.StatusCode)
	require.False(t, loginBody.Success)
}

func TestRegisterValidationDetails(t *testing.T) {
	ta := setupApp(t, true)

	resp, body := ta.do(t, http.MethodPost, "/api/v1/auth/register", nil, dto.RegisterRequest{
		Name:     "X",
		Email:    "not-an-email",
		Password: "short",
		Role:     models.RoleCoordinator,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "validation failed", body.Message)

	var details map[string]string
	require.NoError(t, json.Unmarshal(body.Details, &details))
	require.Equal(t, "email", details["RegisterRequest.Email"])
	require.Equal(t, "oneof", details["RegisterRequest.Role"])
}

func TestClassCreateAndJoin(t *testing.T) {
	ta := setupApp(t, true)
	teacher := ta.user(t, "Reyes", models.RoleTeacher)
	student := ta.user(t, "Ana", models.RoleStudent)

	resp, body := ta.do(t, http.MethodPost, "/api/v1/classes", &student, dto.ClassCreateRequest{Name: "IT Elective 2"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.False(t, body.Success)

	resp, body = ta.do(t, http.MethodPost, "/api/v1/classes", &teacher, dto.ClassCreateRequest{Name: "IT Elective 2", Section: "BSIT-3A"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Message)

	var class dto.ClassResponse
	decodeData(t, body, &class)
	require.Len(t, class.JoinCode, 6)

	resp, _ = ta.do(t, http.MethodGet, fmt.Sprintf("/api/v1/classes/%d", class.ID), &student, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = ta.do(t, http.MethodPost, "/api/v1/classes/join", &student, dto.JoinClassRequest{Code: "ZZZZZZ"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode, body.Message)

	resp, body = ta.do(t, http.MethodPost, "/api/v1/classes/join", &student, dto.JoinClassRequest{Code: class.JoinCode})
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)

	var joined dto.ClassResponse
	decodeData(t, body, &joined)
	require.Equal(t, class.ID, joined.ID)
	require.Empty(t, joined.JoinCode)

	resp, body = ta.do(t, http.MethodGet, fmt.Sprintf("/api/v1/classes/%d/members", class.ID), &teacher, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)

	var members []dto.ClassMemberResponse
	decodeData(t, body, &members)
	require.Len(t, members, 1)
	require.Equal(t, student.ID, members[0].StudentID)

	resp, _ = ta.do(t, http.MethodGet, "/api/v1/classes/abc", &teacher, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAssessmentSubmitFlow(t *testing.T) {
	ta := setupApp(t, true)
	teacher := ta.user(t, "Reyes", models.RoleTeacher)
	student := ta.user(t, "Ana", models.RoleStudent)

	_, body := ta.do(t, http.MethodPost, "/api/v1/classes", &teacher, dto.ClassCreateRequest{Name: "IT Elective 2"})
	var class dto.ClassResponse
	decodeData(t, body, &class)

	resp, body := ta.do(t, http.MethodPost, "/api/v1/classes/join", &student, dto.JoinClassRequest{Code: class.JoinCode})
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)

	resp, body = ta.do(t, http.MethodPost, "/api/v1/assessments", &teacher, dto.AssessmentCreateRequest{
		ClassID: class.ID,
		Title:   "Quiz 1",
		Kind:    models.AssessmentKindQuiz,
		Questions: []dto.QuestionInput{
			{ID: "q1", Type: models.QuestionMCQ, Prompt: "2 + 2", Options: []string{"3", "4"}, CorrectAnswers: []string{"4"}, Points: 2},
			{ID: "q2", Type: models.QuestionTrueFalse, Prompt: "Go has generics", Options: []string{"true", "false"}, CorrectAnswers: []string{"true"}, Points: 1},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Message)

	var assessment dto.AssessmentResponse
	decodeData(t, body, &assessment)
	base := fmt.Sprintf("/api/v1/assessments/%d", assessment.ID)

	resp, _ = ta.do(t, http.MethodPost, base+"/start", &student, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodPost, base+"/publish", &student, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = ta.do(t, http.MethodPost, base+"/publish", &teacher, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)

	resp, body = ta.do(t, http.MethodGet, base, &student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)
	var studentView dto.AssessmentResponse
	decodeData(t, body, &studentView)
	require.Len(t, studentView.Questions, 2)
	for _, question := range studentView.Questions {
		require.Empty(t, question.CorrectAnswers)
	}

	resp, body = ta.do(t, http.MethodPost, base+"/start", &student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)

	resp, body = ta.do(t, http.MethodPut, base+"/answers", &student, dto.SaveAnswersRequest{
		Answers: map[string][]string{"q1": {"4"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)

	resp, body = ta.do(t, http.MethodPost, base+"/submit", &student, dto.SubmitRequest{
		Answers: map[string][]string{"q2": {"false"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)

	var submission dto.SubmissionResponse
	decodeData(t, body, &submission)
	require.Equal(t, models.SubmissionStatusGraded, submission.Status)
	require.InDelta(t, 2, submission.Score, 0.001)
	require.InDelta(t, 3, submission.MaxScore, 0.001)

	resp, _ = ta.do(t, http.MethodPost, base+"/submit", &student, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = ta.do(t, http.MethodGet, base+"/submissions", &teacher, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)
	var submissions []dto.SubmissionResponse
	decodeData(t, body, &submissions)
	require.Len(t, submissions, 1)

	resp, body = ta.do(t, http.MethodGet, fmt.Sprintf("/api/v1/classes/%d/leaderboard", class.ID), &student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)

	var leaderboard dto.LeaderboardResponse
	decodeData(t, body, &leaderboard)
	require.Len(t, leaderboard.Entries, 1)
	require.Equal(t, 1, leaderboard.Entries[0].Rank)
	require.InDelta(t, 2, leaderboard.Entries[0].Points, 0.001)
	require.NotNil(t, leaderboard.Me)
	require.Equal(t, student.ID, leaderboard.Me.StudentID)
}

func TestResourceUploadWithoutStorage(t *testing.T) {
	ta := setupApp(t, true)
	teacher := ta.user(t, "Reyes", models.RoleTeacher)

	_, body := ta.do(t, http.MethodPost, "/api/v1/classes", &teacher, dto.ClassCreateRequest{Name: "IT Elective 2"})
	var class dto.ClassResponse
	decodeData(t, body, &class)

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	require.NoError(t, writer.WriteField("title", "Week 1 slides"))
	part, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("lecture notes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/classes/%d/resources", class.ID), &form)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", strconv.FormatUint(uint64(teacher.ID), 10))
	req.Header.Set("X-User-Role", teacher.Role)

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	uploadBody := decodeEnvelope(t, resp)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, uploadBody.Message)
}

func TestFlashcardDeckRoutes(t *testing.T) {
	ta := setupApp(t, true)
	student := ta.user(t, "Ana", models.RoleStudent)
	other := ta.user(t, "Ben", models.RoleStudent)

	resp, body := ta.do(t, http.MethodPost, "/api/v1/decks", &student, dto.DeckCreateRequest{
		Title: "Networking",
		Cards: []dto.CardInput{
			{Front: "OSI layers", Back: "7"},
			{Front: "TCP port for HTTPS", Back: "443"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Message)

	var deck dto.DeckResponse
	decodeData(t, body, &deck)
	require.Len(t, deck.Cards, 2)

	resp, _ = ta.do(t, http.MethodGet, fmt.Sprintf("/api/v1/decks/%d", deck.ID), &other, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = ta.do(t, http.MethodGet, fmt.Sprintf("/api/v1/decks/%d/study", deck.ID), &student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Message)
}

func TestUserAdministrationIsCoordinatorOnly(t *testing.T) {
	ta := setupApp(t, true)
	coordinator := ta.user(t, "Coordinator", models.RoleCoordinator)
	teacher := ta.user(t, "Teacher", models.RoleTeacher)
	parent := ta.user(t, "Parent", models.RoleParent)

	resp, body := ta.do(t, http.MethodGet, "/api/v1/users", &teacher, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "insufficient permissions", body.Message)

	resp, _ = ta.do(t, http.MethodPost, "/api/v1/users/parent-links", &parent, map[string]uint{"parent_id": parent.ID, "student_id": teacher.ID})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = ta.do(t, http.MethodGet, "/api/v1/users", &coordinator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []dto.UserResponse
	decodeData(t, body, &users)
	require.Len(t, users, 3)

	resp, _ = ta.do(t, http.MethodGet, "/api/v1/users/children", &parent, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "parents keep their own route")
}

func TestProtectedRoutesRequireIdentity(t *testing.T) {
	ta := setupApp(t, true)

	resp, _ := ta.do(t, http.MethodGet, "/api/v1/classes", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodGet, "/api/v1/dashboard", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRelayRequiresUpgrade(t *testing.T) {
	ta := setupApp(t, true)
	student := ta.user(t, "Ana", models.RoleStudent)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("X-User-ID", strconv.FormatUint(uint64(student.ID), 10))
	req.Header.Set("X-User-Role", student.Role)

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
