// internal/service/auth_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gurkanbulca/barakaflow/internal/models"
	"github.com/gurkanbulca/barakaflow/internal/repository"
	"github.com/gurkanbulca/barakaflow/pkg/auth"
	"github.com/gurkanbulca/barakaflow/pkg/email"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      models.PublicUser `json:"user"`
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type AuthService struct {
	users           repository.UserRepository
	tokenManager    *auth.TokenManager
	passwordManager *auth.PasswordManager
	emailService    email.EmailService
	securityLogger  *SecurityLogger
	logger          *zap.Logger
	now             func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users repository.UserRepository,
	tokenManager *auth.TokenManager,
	passwordManager *auth.PasswordManager,
	emailService email.EmailService,
	securityLogger *SecurityLogger,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:           users,
		tokenManager:    tokenManager,
		passwordManager: passwordManager,
		emailService:    emailService,
		securityLogger:  securityLogger,
		logger:          logger.Named("auth"),
		now:             time.Now,
	}
}

// Register creates a new user account and signs it in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	emailAddr := auth.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	v := &models.ValidationError{}
	if emailAddr == "" {
		v.Add("email", "email is required")
	} else if err := auth.ValidateEmail(emailAddr); err != nil {
		v.Add("email", err.Error())
	}
	if err := s.passwordManager.ValidatePassword(in.Password); err != nil {
		v.Add("password", err.Error())
	}
	if err := auth.ValidateName(name); err != nil {
		v.Add("name", err.Error())
	}
	if v.HasErrors() {
		return nil, v
	}

	// Check if user already exists
	exists, err := s.users.ExistsByEmail(ctx, emailAddr)
	if err != nil {
		return nil, fmt.Errorf("check user existence: %w", err)
	}
	if exists {
		s.securityLogger.LogRegistrationFailed(ctx, emailAddr, "email already registered")
		return nil, ErrEmailTaken
	}

	hashedPassword, err := s.passwordManager.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		PasswordHash: hashedPassword,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration can win the race past the existence check.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.securityLogger.LogRegistered(ctx, user.ID)

	if err := s.emailService.SendWelcomeEmail(ctx, email.Recipient{Email: user.Email, Name: user.Name}); err != nil {
		s.logger.Warn("failed to send welcome email", zap.String("user_id", user.ID), zap.Error(err))
	}

	return s.issue(user)
}

// Login authenticates a user by email and password
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (*AuthResult, error) {
	emailAddr = auth.NormalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		v := &models.ValidationError{}
		if emailAddr == "" {
			v.Add("email", "email is required")
		}
		if password == "" {
			v.Add("password", "password is required")
		}
		return nil, v
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.securityLogger.LogLoginFailed(ctx, emailAddr, "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := s.passwordManager.ComparePassword(user.PasswordHash, password); err != nil {
		s.securityLogger.LogLoginFailed(ctx, emailAddr, "wrong password")
		return nil, ErrInvalidCredentials
	}

	s.securityLogger.LogLoginSuccess(ctx, user.ID)
	return s.issue(user)
}

// Verify resolves a token to the user it was issued for. Tokens for users
// that no longer exist are rejected.
func (s *AuthService) Verify(ctx context.Context, token string) (*models.PublicUser, error) {
	claims, err := s.tokenManager.ValidateToken(token)
	if err != nil {
		s.securityLogger.LogTokenRejected(ctx, err.Error())
		return nil, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.securityLogger.LogTokenRejected(ctx, "user no longer exists")
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	public := user.Public()
	return &public, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokenManager.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user.Public()}, nil
}
