package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/pkg/rbac"
	"freelanceos/pkg/util"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidInput       = errors.New("invalid input")
)

type Service struct {
	users     repository.UserStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewService(users repository.UserStore, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL, logger: logger}
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	ClientID string `json:"client_id"`
}

type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register creates a workspace owner. Client-portal users are created with InviteClient.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Role = rbac.RoleAdmin
	in.ClientID = ""
	return s.create(ctx, in)
}

// InviteClient creates a portal login bound to clientID.
func (s *Service) InviteClient(ctx context.Context, in RegisterInput) (*model.User, error) {
	if in.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id is required", ErrInvalidInput)
	}
	in.Role = rbac.RoleClient
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         in.Role,
		ClientID:     in.ClientID,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", u.ID), zap.String("role", u.Role))
	return u, nil
}

// Login checks user credentials and returns a signed session.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !util.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(u.ID, u.Role, u.ClientID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

// Me returns the user behind the actor on ctx.
func (s *Service) Me(ctx context.Context) (*model.User, error) {
	return s.users.FindByID(ctx, ActorFrom(ctx).UserID)
}
