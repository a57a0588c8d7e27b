package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
)

// ErrInvalidLink indicates the parent/student pair has the wrong roles.
var ErrInvalidLink = errors.New("parent link requires a parent and a student account")

// UserService covers coordinator account management.
type UserService interface {
	Create(ctx context.Context, actor Actor, payload dto.CreateUserRequest) (dto.UserResponse, error)
	List(ctx context.Context, actor Actor, query dto.UserListQuery) ([]dto.UserResponse, int64, error)
	LinkParent(ctx context.Context, actor Actor, payload dto.LinkParentRequest) (dto.UserResponse, error)
	Children(ctx context.Context, actor Actor) ([]dto.UserResponse, error)
}

type userService struct {
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
	cost      int
}

// NewUserService builds the account management service.
func NewUserService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
		cost:      bcrypt.DefaultCost,
	}
}

func (s *userService) Create(ctx context.Context, actor Actor, payload dto.CreateUserRequest) (dto.UserResponse, error) {
	if !actor.IsCoordinator() {
		return dto.UserResponse{}, ErrForbidden
	}

	payload.Email = normaliseEmail(payload.Email)
	payload.Name = strings.TrimSpace(payload.Name)
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := createAccount(ctx, s.users, s.cost, payload.Name, payload.Email, payload.Password, payload.Role)
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("actor_id", actor.ID).Uint("user_id", user.ID).Str("role", user.Role).Msg("account provisioned")
	return dto.NewUserResponse(user), nil
}

func (s *userService) List(ctx context.Context, actor Actor, query dto.UserListQuery) ([]dto.UserResponse, int64, error) {
	if !actor.IsCoordinator() {
		return nil, 0, ErrForbidden
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, 0, err
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}

	users, total, err := s.users.List(ctx, repository.UserFilter{
		Role:     query.Role,
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return nil, 0, err
	}
	return dto.NewUserResponseSlice(users), total, nil
}

func (s *userService) LinkParent(ctx context.Context, actor Actor, payload dto.LinkParentRequest) (dto.UserResponse, error) {
	if !actor.IsCoordinator() {
		return dto.UserResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	parent, err := s.lookup(ctx, payload.ParentID)
	if err != nil {
		return dto.UserResponse{}, err
	}
	student, err := s.lookup(ctx, payload.StudentID)
	if err != nil {
		return dto.UserResponse{}, err
	}
	if parent.Role != models.RoleParent || student.Role != models.RoleStudent {
		return dto.UserResponse{}, ErrInvalidLink
	}

	student.ParentID = &parent.ID
	if err := s.users.Update(ctx, &student); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("parent_id", parent.ID).Uint("student_id", student.ID).Msg("parent linked")
	return dto.NewUserResponse(student), nil
}

func (s *userService) Children(ctx context.Context, actor Actor) ([]dto.UserResponse, error) {
	if !actor.IsParent() {
		return nil, ErrForbidden
	}
	children, err := s.users.ListChildren(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponseSlice(children), nil
}

func (s *userService) lookup(ctx context.Context, id uint) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
