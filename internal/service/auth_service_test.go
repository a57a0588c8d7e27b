package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/middleware"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

func newTestAuthService(f *fixture) *authService {
	svc := NewAuthService(f.users, f.validate, TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	}, testLogger()).(*authService)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	svc := newTestAuthService(f)
	ctx := context.Background()

	registered, err := svc.Register(ctx, dto.RegisterRequest{
		Name:     "Ana Cruz",
		Email:    "  Ana@GC.edu.ph ",
		Password: "correct-horse",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	require.Equal(t, "ana@gc.edu.ph", registered.User.Email)
	require.Equal(t, "Bearer", registered.TokenType)
	require.Equal(t, int64(3600), registered.ExpiresIn)

	claims, err := middleware.ParseToken("access-secret", registered.AccessToken)
	require.NoError(t, err)
	require.Equal(t, middleware.TokenTypeAccess, claims["typ"])

	_, err = svc.Register(ctx, dto.RegisterRequest{Name: "Ana Two", Email: "ana@gc.edu.ph", Password: "correct-horse", Role: models.RoleStudent})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "ana@gc.edu.ph", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "nobody@gc.edu.ph", Password: "whatever"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	loggedIn, err := svc.Login(ctx, dto.LoginRequest{Email: "ANA@gc.edu.ph", Password: "correct-horse"})
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, loggedIn.User.ID)
}

func TestAuthServiceRegisterRejectsCoordinatorRole(t *testing.T) {
	f := newFixture(t)
	svc := newTestAuthService(f)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name:     "Mallory",
		Email:    "mallory@gc.edu.ph",
		Password: "password123",
		Role:     models.RoleCoordinator,
	})
	require.Error(t, err)
	require.True(t, isValidation(err))
}

func TestAuthServiceRefresh(t *testing.T) {
	f := newFixture(t)
	svc := newTestAuthService(f)
	ctx := context.Background()

	tokens, err := svc.Register(ctx, dto.RegisterRequest{Name: "Teacher Ben", Email: "ben@gc.edu.ph", Password: "password123", Role: models.RoleTeacher})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	require.Equal(t, tokens.User.ID, refreshed.User.ID)
	require.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: tokens.AccessToken})
	require.ErrorIs(t, err, ErrInvalidToken, "access tokens must not refresh")

	_, err = svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: "garbage"})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthServiceEnsureCoordinatorIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := newTestAuthService(f)
	ctx := context.Background()

	require.NoError(t, svc.EnsureCoordinator(ctx, "admin@gc.edu.ph", "bootstrap-pass"))
	require.NoError(t, svc.EnsureCoordinator(ctx, "admin@gc.edu.ph", "bootstrap-pass"))
	require.NoError(t, svc.EnsureCoordinator(ctx, "", ""))

	counts, err := f.users.CountByRole(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[models.RoleCoordinator])

	tokens, err := svc.Login(ctx, dto.LoginRequest{Email: "admin@gc.edu.ph", Password: "bootstrap-pass"})
	require.NoError(t, err)
	require.Equal(t, models.RoleCoordinator, tokens.User.Role)

	me, err := svc.Me(ctx, tokens.User.ID)
	require.NoError(t, err)
	require.Equal(t, "admin@gc.edu.ph", me.Email)

	_, err = svc.Me(ctx, 9999)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserServiceCoordinatorOperations(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.users, f.validate, testLogger()).(*userService)
	svc.cost = bcrypt.MinCost
	ctx := context.Background()

	coordinator := f.user(t, "Coordinator", models.RoleCoordinator)
	teacher := f.user(t, "Teacher", models.RoleTeacher)

	_, err := svc.Create(ctx, teacher, dto.CreateUserRequest{Name: "Parent", Email: "p@gc.edu.ph", Password: "password123", Role: models.RoleParent})
	require.ErrorIs(t, err, ErrForbidden)

	parent, err := svc.Create(ctx, coordinator, dto.CreateUserRequest{Name: "Parent Pia", Email: "pia@gc.edu.ph", Password: "password123", Role: models.RoleParent})
	require.NoError(t, err)
	student, err := svc.Create(ctx, coordinator, dto.CreateUserRequest{Name: "Student Sam", Email: "sam@gc.edu.ph", Password: "password123", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = svc.LinkParent(ctx, coordinator, dto.LinkParentRequest{ParentID: student.ID, StudentID: parent.ID})
	require.ErrorIs(t, err, ErrInvalidLink)

	linked, err := svc.LinkParent(ctx, coordinator, dto.LinkParentRequest{ParentID: parent.ID, StudentID: student.ID})
	require.NoError(t, err)
	require.NotNil(t, linked.ParentID)
	require.Equal(t, parent.ID, *linked.ParentID)

	children, err := svc.Children(ctx, Actor{ID: parent.ID, Role: models.RoleParent})
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, student.ID, children[0].ID)

	users, total, err := svc.List(ctx, coordinator, dto.UserListQuery{Role: models.RoleStudent})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, users, 1)

	_, _, err = svc.List(ctx, teacher, dto.UserListQuery{})
	require.ErrorIs(t, err, ErrForbidden)
}
