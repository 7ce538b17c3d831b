package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/angelmondragon/puntoventa-backend/pkg/config"
	"github.com/angelmondragon/puntoventa-backend/pkg/db"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
	"github.com/angelmondragon/puntoventa-backend/pkg/export"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
	"github.com/angelmondragon/puntoventa-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// sessionRevoker drops every refresh session a user holds.
type sessionRevoker interface {
	RevokeUser(ctx context.Context, userID uuid.UUID) error
}

// Service administers the employee accounts.
type Service interface {
	List(ctx context.Context, status enums.UserStatusFilter) ([]UserDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	Create(ctx context.Context, input CreateUserInput) (*UserDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*UserDTO, error)
	Deactivate(ctx context.Context, actorID, id uuid.UUID) (*UserDTO, error)
	Reactivate(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	Export(ctx context.Context, status enums.UserStatusFilter) ([]byte, error)
}

type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      enums.UserRole
	IsStaff   bool
	IsActive  *bool
}

// UpdateUserInput leaves nil fields untouched. A nil Password keeps the current hash.
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *enums.UserRole
	IsStaff   *bool
	IsActive  *bool
	Password  *string
}

type ServiceParams struct {
	Repo           *Repository
	PasswordConfig config.PasswordConfig
	Sessions       sessionRevoker
	Logger         *logger.Logger
	Location       *time.Location
}

type service struct {
	repo     *Repository
	passCfg  config.PasswordConfig
	sessions sessionRevoker
	logg     *logger.Logger
	loc      *time.Location
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session revoker required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:     params.Repo,
		passCfg:  params.PasswordConfig,
		sessions: params.Sessions,
		logg:     params.Logger,
		loc:      loc,
	}, nil
}

func (s *service) List(ctx context.Context, status enums.UserStatusFilter) ([]UserDTO, error) {
	users, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list users")
	}
	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, *FromModel(&users[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "db: load user")
	}
	return FromModel(user), nil
}

func (s *service) Create(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
		Username:     username,
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         input.Role,
		IsStaff:      input.IsStaff,
		IsActive:     input.IsActive,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert user")
	}

	ctx = s.logg.WithUserID(ctx, user.ID.String())
	ctx = s.logg.WithRole(ctx, string(user.Role))
	s.logg.Info(ctx, "user.created")
	return FromModel(user), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "db: load user")
	}
	wasActive := user.IsActive

	if input.Email != nil {
		if err := validateEmail(*input.Email); err != nil {
			return nil, err
		}
		user.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		user.Role = *input.Role
	}
	if input.IsStaff != nil {
		user.IsStaff = *input.IsStaff
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	passwordChanged := false
	if input.Password != nil && *input.Password != "" {
		hash, err := s.hashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		passwordChanged = true
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update user")
	}
	if passwordChanged || (wasActive && !user.IsActive) {
		if err := s.sessions.RevokeUser(ctx, user.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke user sessions")
		}
	}

	ctx = s.logg.WithUserID(ctx, user.ID.String())
	s.logg.Info(ctx, "user.updated")
	return s.Get(ctx, user.ID)
}

func (s *service) Deactivate(ctx context.Context, actorID, id uuid.UUID) (*UserDTO, error) {
	if actorID == id {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate your own account")
	}
	if err := s.setActive(ctx, id, false); err != nil {
		return nil, err
	}
	if err := s.sessions.RevokeUser(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke user sessions")
	}
	s.logg.Info(s.logg.WithUserID(ctx, id.String()), "user.deactivated")
	return s.Get(ctx, id)
}

func (s *service) Reactivate(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	if err := s.setActive(ctx, id, true); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithUserID(ctx, id.String()), "user.reactivated")
	return s.Get(ctx, id)
}

func (s *service) Export(ctx context.Context, status enums.UserStatusFilter) ([]byte, error) {
	users, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list users")
	}
	rows := make([]export.UserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, export.UserRow{
			Username:  u.Username,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      u.Role.Label(),
			Active:    u.IsActive,
			Staff:     u.IsStaff,
			JoinedAt:  u.CreatedAt,
			LastLogin: u.LastLoginAt,
		})
	}
	data, err := export.UsersWorkbook(rows, s.loc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render users workbook")
	}
	return data, nil
}

func (s *service) setActive(ctx context.Context, id uuid.UUID, active bool) error {
	found, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update user status")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

func (s *service) hashPassword(password string) (string, error) {
	if err := security.CheckPasswordPolicy(password); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	hash, err := security.HashPassword(password, s.passCfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hash, nil
}

func validateEmail(raw string) error {
	email := strings.TrimSpace(raw)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}
	return nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
