// internal/domain/user/service.go
package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
	"github.com/your-org/commerce-api/internal/pkg/auth"
	"github.com/your-org/commerce-api/internal/pkg/email"
)

const passwordResetTTL = time.Hour

// Service handles user business logic
type Service struct {
	db              *gorm.DB
	redisClient     *redis.Client
	config          *config.Config
	passwordManager *auth.PasswordManager
	jwtManager      *auth.JWTManager
	emailService    *email.EmailService
	log             *logrus.Logger
}

// NewService creates a new user service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		db:              db,
		redisClient:     redisClient,
		config:          cfg,
		passwordManager: auth.NewPasswordManager(cfg),
		jwtManager:      auth.NewJWTManager(cfg),
		emailService:    email.NewEmailService(cfg, log),
		log:             log,
	}
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name" binding:"required"`
	Phone           string `json:"phone"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Register creates a new user account
func (s *Service) Register(req *RegisterRequest) (*AuthResponse, error) {
	if req.Password != req.ConfirmPassword {
		return nil, apperr.New(apperr.Validation, "passwords do not match")
	}

	var existingUser User
	result := s.db.Where("email = ?", req.Email).First(&existingUser)
	if result.Error == nil {
		return nil, apperr.New(apperr.Conflict, "user with this email already exists")
	}

	hashedPassword, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := User{
		Email:     req.Email,
		Password:  hashedPassword,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		IsActive:  true,
		IsAdmin:   false,
	}

	if err := s.db.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Welcome mail is best effort; registration never fails on it.
	if err := s.emailService.SendWelcomeEmail(context.Background(), u.Email, u.GetDisplayName()); err != nil {
		s.log.WithError(err).WithField("email", u.Email).Warn("failed to send welcome email")
	}

	return s.issueTokens(&u)
}

// Login authenticates a user
func (s *Service) Login(req *LoginRequest) (*AuthResponse, error) {
	var u User
	result := s.db.Where("email = ? AND is_active = ?", req.Email, true).First(&u)
	if result.Error != nil {
		return nil, apperr.New(apperr.Validation, "invalid email or password")
	}

	if err := s.passwordManager.VerifyPassword(req.Password, u.Password); err != nil {
		return nil, apperr.New(apperr.Validation, "invalid email or password")
	}

	return s.issueTokens(&u)
}

// RefreshToken generates new tokens using a refresh token
func (s *Service) RefreshToken(refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "invalid refresh token", err)
	}

	var u User
	result := s.db.Where("id = ? AND is_active = ?", claims.UserID, true).First(&u)
	if result.Error != nil {
		return nil, apperr.New(apperr.NotFound, "user not found or inactive")
	}

	return s.issueTokens(&u)
}

// issueTokens generates an access/refresh token pair and stamps last login.
func (s *Service) issueTokens(u *User) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(u.ID, u.Email, u.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now().UTC()
	u.LastLoginAt = &now
	s.db.Model(u).Update("last_login_at", now)

	u.Password = ""

	return &AuthResponse{
		User:         u,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.config.JWT.AccessTokenExpiry.Seconds()),
	}, nil
}

// GetProfile gets user profile by ID
func (s *Service) GetProfile(userID uint) (*User, error) {
	var u User
	result := s.db.Where("id = ? AND is_active = ?", userID, true).First(&u)
	if result.Error != nil {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}

	u.Password = ""
	return &u, nil
}

// UpdateProfile updates user profile
func (s *Service) UpdateProfile(userID uint, updates map[string]interface{}) (*User, error) {
	var u User
	result := s.db.Where("id = ? AND is_active = ?", userID, true).First(&u)
	if result.Error != nil {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}

	// Never mass-assign sensitive fields
	delete(updates, "password")
	delete(updates, "is_admin")
	delete(updates, "is_active")
	delete(updates, "email_verified")
	delete(updates, "stripe_customer_id")

	if err := s.db.Model(&u).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	u.Password = ""
	return &u, nil
}

// ChangePassword changes user password after verifying the current one
func (s *Service) ChangePassword(userID uint, currentPassword, newPassword string) error {
	var u User
	result := s.db.Where("id = ? AND is_active = ?", userID, true).First(&u)
	if result.Error != nil {
		return apperr.New(apperr.NotFound, "user not found")
	}

	if err := s.passwordManager.VerifyPassword(currentPassword, u.Password); err != nil {
		return apperr.New(apperr.Validation, "current password is incorrect")
	}

	hashedPassword, err := s.passwordManager.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.db.Model(&u).Update("password", hashedPassword).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// RequestPasswordReset issues a one-time reset token and emails it. A missing
// account is not revealed to the caller.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	var u User
	result := s.db.Where("email = ? AND is_active = ?", emailAddr, true).First(&u)
	if result.Error != nil {
		s.log.WithField("email", emailAddr).Debug("password reset requested for unknown email")
		return nil
	}

	token := uuid.NewString()
	key := passwordResetKey(token)
	if err := s.redisClient.Set(ctx, key, u.ID, passwordResetTTL).Err(); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.emailService.SendPasswordResetEmail(ctx, u.Email, u.GetDisplayName(), token); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("failed to send password reset email")
	}
	return nil
}

// ResetPasswordWithToken consumes a reset token and sets the new password.
func (s *Service) ResetPasswordWithToken(ctx context.Context, token, newPassword string) error {
	key := passwordResetKey(token)
	userID, err := s.redisClient.Get(ctx, key).Uint64()
	if err != nil {
		if err == redis.Nil {
			return apperr.New(apperr.Validation, "invalid or expired reset token")
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	var u User
	result := s.db.Where("id = ? AND is_active = ?", uint(userID), true).First(&u)
	if result.Error != nil {
		return apperr.New(apperr.NotFound, "user not found")
	}

	hashedPassword, err := s.passwordManager.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.db.Model(&u).Update("password", hashedPassword).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	// Token is single use
	s.redisClient.Del(ctx, key)

	return nil
}

func passwordResetKey(token string) string {
	return "password_reset:" + token
}

// VerifyEmail marks user email as verified
func (s *Service) VerifyEmail(userID uint) error {
	err := s.db.Model(&User{}).
		Where("id = ?", userID).
		Update("email_verified", true).Error
	if err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}
	return nil
}

// SetStripeCustomerID records the payment gateway customer reference.
func (s *Service) SetStripeCustomerID(userID uint, customerID string) error {
	return s.db.Model(&User{}).
		Where("id = ?", userID).
		Update("stripe_customer_id", customerID).Error
}

// GetUserByEmail retrieves user by email
func (s *Service) GetUserByEmail(emailAddr string) (*User, error) {
	var u User
	result := s.db.Where("email = ?", emailAddr).First(&u)
	if result.Error != nil {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}

	u.Password = ""
	return &u, nil
}
