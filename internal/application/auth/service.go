package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-auth-api/internal/domain"
	"github.com/go-auth-api/internal/pkg/id"
	"github.com/go-auth-api/internal/pkg/otp"
	"golang.org/x/crypto/bcrypt"
)

// Redis key prefixes for pending OTP codes, by purpose.
const (
	registerKeyPrefix = "OTP_REGISTER:"
	forgotKeyPrefix   = "OTP_FORGOT:"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldStatus       = "status"
	fieldPasswordHash = "password_hash"
	fieldFullName     = "full_name"
	fieldAvatarURL    = "avatar_url"
	fieldProvider     = "provider"
	fieldProviderID   = "provider_id"
)

type RegisterRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=50"`
	Email       string  `json:"email" validate:"required,email"`
	PhoneNumber *string `json:"phoneNumber"`
	Password    string  `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// AuthResult is the token pair returned by login flows.
type AuthResult struct {
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (string, error)
	VerifyRegisterOTP(ctx context.Context, email, submitted string) (string, error)
	ResendRegisterOTP(ctx context.Context, email string) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) (string, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	LoginWithGoogle(ctx context.Context, token string) (*AuthResult, error)
	LoginWithFacebook(ctx context.Context, token string) (*AuthResult, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByEmailOrPhone(ctx context.Context, identifier string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// codeStore is a key-value store with per-key TTL. Writing an existing
// key overwrites the value and resets the TTL.
type codeStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// notifier accepts outbound mail for background delivery. Enqueue never
// fails from the caller's point of view.
type notifier interface {
	Enqueue(to, subject, body string)
}

type tokenIssuer interface {
	IssuePair(u *domain.User) (access, refresh string, err error)
}

type socialVerifier interface {
	Verify(ctx context.Context, token string) (*domain.SocialProfile, error)
}

type service struct {
	users     userStore
	codes     codeStore
	notifier  notifier
	tokens    tokenIssuer
	google    socialVerifier
	facebook  socialVerifier
	otpExpiry time.Duration
}

type ServiceDeps struct {
	UserRepo  userStore
	Codes     codeStore
	Notifier  notifier
	Tokens    tokenIssuer
	Google    socialVerifier
	Facebook  socialVerifier
	OTPExpiry time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:     deps.UserRepo,
		codes:     deps.Codes,
		notifier:  deps.Notifier,
		tokens:    deps.Tokens,
		google:    deps.Google,
		facebook:  deps.Facebook,
		otpExpiry: deps.OTPExpiry,
	}
}

func registerKey(email string) string { return registerKeyPrefix + email }
func forgotKey(email string) string   { return forgotKeyPrefix + email }

func (s *service) Register(ctx context.Context, req RegisterRequest) (string, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return "", fmt.Errorf("email already exists: %w", domain.ErrConflict)
	}
	if req.PhoneNumber != nil {
		if _, err := s.users.GetByPhone(ctx, *req.PhoneNumber); err == nil {
			return "", fmt.Errorf("phone number already exists: %w", domain.ErrConflict)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        req.Email,
		Phone:        req.PhoneNumber,
		PasswordHash: string(hash),
		FullName:     req.Name,
		Role:         domain.RoleUser,
		Status:       domain.StatusUnverified,
		Provider:     domain.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return "", err
	}

	code, err := s.issueCode(ctx, registerKey(req.Email))
	if err != nil {
		return "", err
	}
	s.sendVerificationMail(req.Email, req.Name, code)

	return "Registration successful. Please check your email to verify your account!", nil
}

func (s *service) VerifyRegisterOTP(ctx context.Context, email, submitted string) (string, error) {
	key := registerKey(email)
	stored, err := s.codes.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Deliberately does not reveal whether the email is unknown or
			// the code expired.
			return "", fmt.Errorf("the OTP code has expired or is incorrect: %w", domain.ErrBadRequest)
		}
		return "", err
	}
	if stored != submitted {
		return "", fmt.Errorf("OTP incorrect: %w", domain.ErrBadRequest)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if u.Status == domain.StatusActive {
		s.deleteCode(ctx, key)
		return "This account has been activated.", nil
	}

	if err := s.users.Update(ctx, u.UserID, map[string]interface{}{fieldStatus: domain.StatusActive}); err != nil {
		return "", err
	}
	s.deleteCode(ctx, key)

	return "Verification successful. Account has been activated.", nil
}

func (s *service) ResendRegisterOTP(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("email not registered: %w", domain.ErrNotFound)
	}
	if u.Status == domain.StatusActive {
		return "", fmt.Errorf("this account has been activated: %w", domain.ErrConflict)
	}

	// Overwrite is unconditional: any unconsumed code is replaced and the
	// TTL starts over.
	code, err := s.issueCode(ctx, registerKey(email))
	if err != nil {
		return "", err
	}
	s.sendVerificationMail(email, u.FullName, code)

	return "The OTP has been sent. Please check your email or spam folder.", nil
}

func (s *service) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("email not found: %w", domain.ErrNotFound)
	}

	code, err := s.issueCode(ctx, forgotKey(email))
	if err != nil {
		return "", err
	}
	s.sendPasswordResetMail(email, u.FullName, code)

	return "The password reset OTP has been sent. Please check your email or spam folder.", nil
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) (string, error) {
	key := forgotKey(req.Email)
	stored, err := s.codes.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("the OTP has expired or does not exist: %w", domain.ErrBadRequest)
		}
		return "", err
	}
	if stored != req.OTP {
		return "", fmt.Errorf("OTP incorrect: %w", domain.ErrBadRequest)
	}

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return "", fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	if err := s.users.Update(ctx, u.UserID, map[string]interface{}{fieldPasswordHash: string(hash)}); err != nil {
		return "", err
	}
	s.deleteCode(ctx, key)

	return "Password reset successful", nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	u, err := s.users.GetByEmailOrPhone(ctx, req.Identifier)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}

	// Account status is not checked here: an UNVERIFIED user can still
	// log in. Pure social accounts have no password hash, so the compare
	// below rejects them.
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	access, refresh, err := s.tokens.IssuePair(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Message:      "Login successfully.",
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *service) LoginWithGoogle(ctx context.Context, token string) (*AuthResult, error) {
	return s.socialLogin(ctx, s.google, domain.ProviderGoogle, token)
}

func (s *service) LoginWithFacebook(ctx context.Context, token string) (*AuthResult, error) {
	return s.socialLogin(ctx, s.facebook, domain.ProviderFacebook, token)
}

func (s *service) socialLogin(ctx context.Context, verifier socialVerifier, provider, token string) (*AuthResult, error) {
	if token == "" {
		return nil, fmt.Errorf("token is required: %w", domain.ErrBadRequest)
	}
	profile, err := verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	u, err := s.reconcileSocialUser(ctx, profile, provider)
	if err != nil {
		return nil, err
	}

	access, refresh, err := s.tokens.IssuePair(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Message:      "Login successfully with " + provider,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// reconcileSocialUser maps a verified social profile onto the user table.
// Unknown emails get a fresh ACTIVE passwordless account. Existing users
// get their name and avatar refreshed from the profile; a LOCAL account
// is claimed by the first social provider that logs into it, while an
// account already bound to another social provider keeps its binding.
func (s *service) reconcileSocialUser(ctx context.Context, p *domain.SocialProfile, provider string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, p.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		now := time.Now().UTC()
		u = &domain.User{
			UserID:     id.New(),
			Email:      p.Email,
			FullName:   p.Name,
			AvatarURL:  p.AvatarURL,
			Role:       domain.RoleUser,
			Status:     domain.StatusActive,
			Provider:   provider,
			ProviderID: p.Subject,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.users.Put(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	}

	updates := map[string]interface{}{
		fieldFullName:  p.Name,
		fieldAvatarURL: p.AvatarURL,
	}
	u.FullName = p.Name
	u.AvatarURL = p.AvatarURL
	if u.Provider == domain.ProviderLocal {
		updates[fieldProvider] = provider
		updates[fieldProviderID] = p.Subject
		u.Provider = provider
		u.ProviderID = p.Subject
	}
	if err := s.users.Update(ctx, u.UserID, updates); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.Get(ctx, userID)
}

// issueCode generates a fresh 6-digit code and stores it under key,
// replacing any previous code and restarting the TTL.
func (s *service) issueCode(ctx context.Context, key string) (string, error) {
	code, err := otp.New()
	if err != nil {
		return "", err
	}
	if err := s.codes.Set(ctx, key, code, s.otpExpiry); err != nil {
		return "", err
	}
	return code, nil
}

// deleteCode removes a consumed OTP. Failure leaves a code that will
// expire on its own, so it is logged and swallowed.
func (s *service) deleteCode(ctx context.Context, key string) {
	if err := s.codes.Delete(ctx, key); err != nil {
		slog.Warn("failed to delete OTP entry", "key", key, "err", err)
	}
}

func (s *service) sendVerificationMail(email, name, code string) {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour verification code is %s. It expires in %d minutes.\n",
		name, code, int(s.otpExpiry.Minutes()),
	)
	s.notifier.Enqueue(email, "Verify your account", body)
}

func (s *service) sendPasswordResetMail(email, name, code string) {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour password reset code is %s. It expires in %d minutes.\nIf you did not request this, you can ignore this email.\n",
		name, code, int(s.otpExpiry.Minutes()),
	)
	s.notifier.Enqueue(email, "Reset your password", body)
}
