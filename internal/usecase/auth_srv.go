package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/dto/request"
	"tour-booking/internal/dto/response"
	"tour-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSessionTTL = 24 * time.Hour

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	// ResolveSession maps a bearer token to the caller it belongs to.
	ResolveSession(ctx context.Context, token string) (Actor, error)
}

type authService struct {
	repo       *repository.Repository
	sessionTTL time.Duration
	log        *zap.Logger
	now        func() time.Time
}

func NewAuthService(repo *repository.Repository, config *utils.Config, log *zap.Logger, now func() time.Time) AuthService {
	s := &authService{
		repo:       repo,
		sessionTTL: defaultSessionTTL,
		log:        log.With(zap.String("service", "auth")),
		now:        now,
	}
	if config != nil && config.Session.TTL > 0 {
		s.sessionTTL = config.Session.TTL
	}
	return s
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Register validation failed", zap.Error(err))
		return nil, err
	}

	existing, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email %s: %w", req.Email, ErrDuplicateAccount)
	}

	existing, err = s.repo.User.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("username %s: %w", req.Username, ErrDuplicateAccount)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Role:         entity.RoleCustomer,
		IsActive:     true,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, user.ID, "", "")
	if err != nil {
		s.log.Warn("Failed to create session after register",
			zap.Error(err), zap.String("user_id", user.ID.String()))
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	resp := response.AuthToResponse(user, session)
	return &resp, nil
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Login validation failed", zap.Error(err))
		return nil, err
	}

	user, err := s.repo.User.FindByEmail(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.repo.User.FindByUsername(ctx, req.Username)
		if err != nil {
			return nil, err
		}
	}

	if user == nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		s.log.Warn("Login rejected", zap.String("identifier", req.Username))
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.log.Warn("Inactive user tried to login", zap.String("user_id", user.ID.String()))
		return nil, ErrAccountDisabled
	}

	session, err := s.createSession(ctx, user.ID, req.UserAgent, req.IPAddress)
	if err != nil {
		return nil, err
	}

	s.log.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	resp := response.AuthToResponse(user, session)
	return &resp, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	tokenID, err := uuid.Parse(token)
	if err != nil {
		return ErrSessionNotFound
	}

	if err := s.repo.Session.Revoke(ctx, tokenID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	s.log.Info("User logged out")
	return nil
}

func (s *authService) ResolveSession(ctx context.Context, token string) (Actor, error) {
	tokenID, err := uuid.Parse(token)
	if err != nil {
		return Actor{}, ErrSessionNotFound
	}

	session, err := s.repo.Session.FindValidSession(ctx, tokenID, s.now())
	if err != nil {
		return Actor{}, err
	}
	if session == nil {
		return Actor{}, ErrSessionNotFound
	}

	user, err := s.repo.User.FindByID(ctx, session.UserID)
	if err != nil {
		return Actor{}, err
	}
	if user == nil {
		return Actor{}, ErrSessionNotFound
	}
	if !user.IsActive {
		return Actor{}, ErrAccountDisabled
	}
	if !user.Role.IsValid() {
		s.log.DPanic("User has unknown role",
			zap.String("user_id", user.ID.String()),
			zap.String("role", string(user.Role)))
		return Actor{}, ErrForbidden
	}

	return Actor{UserID: user.ID, Role: user.Role}, nil
}

func (s *authService) createSession(ctx context.Context, userID uuid.UUID, userAgent, ip string) (*entity.Session, error) {
	now := s.now()
	session := &entity.Session{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		UserID:    userID,
		Token:     utils.GenerateSessionToken(),
		UserAgent: optional(userAgent),
		IPAddress: optional(ip),
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
