package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-auth-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	args := m.Called(ctx, phone)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmailOrPhone(ctx context.Context, identifier string) (*domain.User, error) {
	args := m.Called(ctx, identifier)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockCodeStore struct{ mock.Mock }

func (m *mockCodeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}
func (m *mockCodeStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
func (m *mockCodeStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Enqueue(to, subject, body string) {
	m.Called(to, subject, body)
}

type mockTokenIssuer struct{ mock.Mock }

func (m *mockTokenIssuer) IssuePair(u *domain.User) (string, string, error) {
	args := m.Called(u)
	return args.String(0), args.String(1), args.Error(2)
}

type mockSocialVerifier struct{ mock.Mock }

func (m *mockSocialVerifier) Verify(ctx context.Context, token string) (*domain.SocialProfile, error) {
	args := m.Called(ctx, token)
	if p, _ := args.Get(0).(*domain.SocialProfile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- builder ---

type fixture struct {
	users    *mockUserStore
	codes    *mockCodeStore
	notifier *mockNotifier
	tokens   *mockTokenIssuer
	google   *mockSocialVerifier
	facebook *mockSocialVerifier
	svc      Service
}

func newFixture() *fixture {
	f := &fixture{
		users:    &mockUserStore{},
		codes:    &mockCodeStore{},
		notifier: &mockNotifier{},
		tokens:   &mockTokenIssuer{},
		google:   &mockSocialVerifier{},
		facebook: &mockSocialVerifier{},
	}
	f.svc = NewService(ServiceDeps{
		UserRepo:  f.users,
		Codes:     f.codes,
		Notifier:  f.notifier,
		Tokens:    f.tokens,
		Google:    f.google,
		Facebook:  f.facebook,
		OTPExpiry: 5 * time.Minute,
	})
	return f
}

func strPtr(s string) *string { return &s }

// --- Register ---

func TestRegister_EmailConflict(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{UserID: "u1"}, nil)

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Name: "Alice", Email: "a@x.com", Password: "secret1",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	f.users.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_PhoneConflict(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	f.users.On("GetByPhone", mock.Anything, "555123").Return(&domain.User{UserID: "u2"}, nil)

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Name: "Alice", Email: "a@x.com", PhoneNumber: strPtr("555123"), Password: "secret1",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRegister_HappyPath(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)

	var created *domain.User
	f.users.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.User) }).
		Return(nil)

	var storedCode string
	f.codes.On("Set", mock.Anything, "OTP_REGISTER:a@x.com", mock.AnythingOfType("string"), 5*time.Minute).
		Run(func(args mock.Arguments) { storedCode = args.String(2) }).
		Return(nil)

	var mailBody string
	f.notifier.On("Enqueue", "a@x.com", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { mailBody = args.String(2) }).
		Return()

	msg, err := f.svc.Register(context.Background(), RegisterRequest{
		Name: "Alice", Email: "a@x.com", Password: "secret1",
	})

	require.NoError(t, err)
	assert.Contains(t, msg, "check your email")

	require.NotNil(t, created)
	assert.NotEmpty(t, created.UserID)
	assert.Equal(t, domain.StatusUnverified, created.Status)
	assert.Equal(t, domain.ProviderLocal, created.Provider)
	assert.Equal(t, domain.RoleUser, created.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret1")))

	assert.Regexp(t, sixDigits, storedCode)
	assert.Contains(t, mailBody, storedCode)
}

func TestRegister_CodeStoreDown(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	f.users.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.codes.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("redis down"))

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Name: "Alice", Email: "a@x.com", Password: "secret1",
	})

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrConflict))
	f.notifier.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

// --- VerifyRegisterOTP ---

func TestVerifyRegisterOTP_MissingOrExpired(t *testing.T) {
	f := newFixture()
	f.codes.On("Get", mock.Anything, "OTP_REGISTER:a@x.com").Return("", domain.ErrNotFound)

	_, err := f.svc.VerifyRegisterOTP(context.Background(), "a@x.com", "123456")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.Contains(t, err.Error(), "expired")
}

func TestVerifyRegisterOTP_WrongCode(t *testing.T) {
	f := newFixture()
	f.codes.On("Get", mock.Anything, "OTP_REGISTER:a@x.com").Return("654321", nil)

	_, err := f.svc.VerifyRegisterOTP(context.Background(), "a@x.com", "123456")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	f.codes.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestVerifyRegisterOTP_UserGone(t *testing.T) {
	f := newFixture()
	f.codes.On("Get", mock.Anything, "OTP_REGISTER:a@x.com").Return("123456", nil)
	f.users.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)

	_, err := f.svc.VerifyRegisterOTP(context.Background(), "a@x.com", "123456")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyRegisterOTP_AlreadyActive_Idempotent(t *testing.T) {
	f := newFixture()
	f.codes.On("Get", mock.Anything, "OTP_REGISTER:a@x.com").Return("123456", nil)
	f.users.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.User{UserID: "u1", Status: domain.StatusActive}, nil)
	f.codes.On("Delete", mock.Anything, "OTP_REGISTER:a@x.com").Return(nil)

	msg, err := f.svc.VerifyRegisterOTP(context.Background(), "a@x.com", "123456")

	require.NoError(t, err)
	assert.Contains(t, msg, "activated")
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	f.codes.AssertCalled(t, "Delete", mock.Anything, "OTP_REGISTER:a@x.com")
}

func TestVerifyRegisterOTP_HappyPath(t *testing.T) {
	f := newFixture()
	f.codes.On("Get", mock.Anything, "OTP_REGISTER:a@x.com").Return("123456", nil)
	f.users.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.User{UserID: "u1", Status: domain.StatusUnverified}, nil)
	f.users.On("Update", mock.Anything, "u1", map[string]interface{}{"status": domain.StatusActive}).
		Return(nil)
	f.codes.On("Delete", mock.Anything, "OTP_REGISTER:a@x.com").Return(nil)

	msg, err := f.svc.VerifyRegisterOTP(context.Background(), "a@x.com", "123456")

	require.NoError(t, err)
	assert.Contains(t, msg, "Verification successful")
	f.users.AssertExpectations(t)
	f.codes.AssertExpectations(t)
}

func TestVerifyRegisterOTP_DeleteFailureDoesNotFailVerification(t *testing.T) {
	f := newFixture()
	f.codes.On("Get", mock.Anything, "OTP_REGISTER:a@x.com").Return("123456", nil)
	f.users.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.User{UserID: "u1", Status: domain.StatusUnverified}, nil)
	f.users.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)
	f.codes.On("Delete", mock.Anything, "OTP_REGISTER:a@x.com").Return(errors.New("redis down"))

	_, err := f.svc.VerifyRegisterOTP(context.Background(), "a@x.com", "123456")
	assert.NoError(t, err)
}

// --- ResendRegisterOTP ---

func TestResendRegisterOTP_UnknownEmail(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "x@x.com").Return(nil, domain.ErrNotFound)

	_, err := f.svc.ResendRegisterOTP(context.Background(), "x@x.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestResendRegisterOTP_AlreadyActive(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.User{UserID: "u1", Status: domain.StatusActive}, nil)

	_, err := f.svc.ResendRegisterOTP(context.Background(), "a@x.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	f.codes.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResendRegisterOTP_OverwritesUnconditionally(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.User{UserID: "u1", FullName: "Alice", Status: domain.StatusUnverified}, nil)
	f.codes.On("Set", mock.Anything, "OTP_REGISTER:a@x.com", mock.AnythingOfType("string"), 5*time.Minute).
		Return(nil)
	f.notifier.On("Enqueue", "a@x.com", mock.Anything, mock.Anything).Return()

	msg, err := f.svc.ResendRegisterOTP(context.Background(), "a@x.com")

	require.NoError(t, err)
	assert.Contains(t, msg, "OTP has been sent")
	f.codes.AssertExpectations(t)
}

// --- ForgotPassword / ResetPassword ---

func TestForgotPassword_UnknownEmail(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "missing@x.com").Return(nil, domain.ErrNotFound)

	_, err := f.svc.ForgotPassword(context.Background(), "missing@x.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestForgotPassword_DoesNotCheckStatus(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.User{UserID: "u1", FullName: "Alice", Status: domain.StatusUnverified}, nil)
	f.codes.On("Set", mock.Anything, "OTP_FORGOT:a@x.com", mock.AnythingOfType("string"), 5*time.Minute).
		Return(nil)
	f.notifier.On("Enqueue", "a@x.com", mock.Anything, mock.Anything).Return()

	msg, err := f.svc.ForgotPassword(context.Background(), "a@x.com")

	require.NoError(t, err)
	assert.Contains(t, msg, "password reset OTP")
	f.codes.AssertExpectations(t)
}

func TestResetPassword_MissingOrExpired(t *testing.T) {
	f := newFixture()
	f.codes.On("Get", mock.Anything, "OTP_FORGOT:a@x.com").Return("", domain.ErrNotFound)

	_, err := f.svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Email: "a@x.com", OTP: "123456", NewPassword: "newsecret",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestResetPassword_WrongCode(t *testing.T) {
	f := newFixture()
	f.codes.On("Get", mock.Anything, "OTP_FORGOT:a@x.com").Return("654321", nil)

	_, err := f.svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Email: "a@x.com", OTP: "123456", NewPassword: "newsecret",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPassword_HappyPath(t *testing.T) {
	f := newFixture()

	oldHash, err := bcrypt.GenerateFromPassword([]byte("oldsecret"), bcrypt.DefaultCost)
	require.NoError(t, err)

	f.codes.On("Get", mock.Anything, "OTP_FORGOT:a@x.com").Return("123456", nil)
	f.users.On("GetByEmail", mock.Anything, "a@x.com").
		Return(&domain.User{UserID: "u1", PasswordHash: string(oldHash)}, nil)

	var updates map[string]interface{}
	f.users.On("Update", mock.Anything, "u1", mock.Anything).
		Run(func(args mock.Arguments) { updates = args.Get(2).(map[string]interface{}) }).
		Return(nil)
	f.codes.On("Delete", mock.Anything, "OTP_FORGOT:a@x.com").Return(nil)

	msg, err := f.svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Email: "a@x.com", OTP: "123456", NewPassword: "newsecret",
	})

	require.NoError(t, err)
	assert.Contains(t, msg, "Password reset successful")

	newHash, ok := updates["password_hash"].(string)
	require.True(t, ok)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("newsecret")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("oldsecret")))
	f.codes.AssertCalled(t, "Delete", mock.Anything, "OTP_FORGOT:a@x.com")
}

// --- Login ---

func TestLogin_UnknownIdentifier(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmailOrPhone", mock.Anything, "nobody@x.com").Return(nil, domain.ErrNotFound)

	_, err := f.svc.Login(context.Background(), LoginRequest{Identifier: "nobody@x.com", Password: "pw"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture()
	hash, _ := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.DefaultCost)
	f.users.On("GetByEmailOrPhone", mock.Anything, "a@x.com").
		Return(&domain.User{UserID: "u1", PasswordHash: string(hash)}, nil)

	_, err := f.svc.Login(context.Background(), LoginRequest{Identifier: "a@x.com", Password: "wrong"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	f.tokens.AssertNotCalled(t, "IssuePair", mock.Anything)
}

func TestLogin_SocialAccountWithoutPassword(t *testing.T) {
	f := newFixture()
	f.users.On("GetByEmailOrPhone", mock.Anything, "a@x.com").
		Return(&domain.User{UserID: "u1", Provider: domain.ProviderGoogle}, nil)

	_, err := f.svc.Login(context.Background(), LoginRequest{Identifier: "a@x.com", Password: "anything"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_HappyPath_UnverifiedUserStillAuthenticates(t *testing.T) {
	f := newFixture()
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	u := &domain.User{UserID: "u1", Email: "a@x.com", PasswordHash: string(hash), Status: domain.StatusUnverified}
	f.users.On("GetByEmailOrPhone", mock.Anything, "a@x.com").Return(u, nil)
	f.tokens.On("IssuePair", u).Return("access-tok", "refresh-tok", nil)

	res, err := f.svc.Login(context.Background(), LoginRequest{Identifier: "a@x.com", Password: "secret1"})

	require.NoError(t, err)
	assert.Equal(t, "access-tok", res.AccessToken)
	assert.Equal(t, "refresh-tok", res.RefreshToken)
	assert.Contains(t, res.Message, "Login successfully")
}

func TestLogin_ByPhone(t *testing.T) {
	f := newFixture()
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	u := &domain.User{UserID: "u1", PasswordHash: string(hash)}
	f.users.On("GetByEmailOrPhone", mock.Anything, "555123").Return(u, nil)
	f.tokens.On("IssuePair", u).Return("a", "r", nil)

	_, err := f.svc.Login(context.Background(), LoginRequest{Identifier: "555123", Password: "secret1"})
	assert.NoError(t, err)
}

// --- Social login ---

func TestSocialLogin_EmptyToken(t *testing.T) {
	f := newFixture()

	_, err := f.svc.LoginWithGoogle(context.Background(), "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	f.google.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestSocialLogin_VerifierRejectsToken(t *testing.T) {
	f := newFixture()
	f.google.On("Verify", mock.Anything, "bad-token").
		Return(nil, errors.New("invalid google token: bad request"))

	_, err := f.svc.LoginWithGoogle(context.Background(), "bad-token")
	assert.Error(t, err)
}

func TestSocialLogin_NewUserCreatedActive(t *testing.T) {
	f := newFixture()
	profile := &domain.SocialProfile{Subject: "g-1", Email: "new@x.com", Name: "New", AvatarURL: "https://p/1.png"}
	f.google.On("Verify", mock.Anything, "tok").Return(profile, nil)
	f.users.On("GetByEmail", mock.Anything, "new@x.com").Return(nil, domain.ErrNotFound)

	var created *domain.User
	f.users.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.User) }).
		Return(nil)
	f.tokens.On("IssuePair", mock.Anything).Return("a", "r", nil)

	res, err := f.svc.LoginWithGoogle(context.Background(), "tok")

	require.NoError(t, err)
	assert.Contains(t, res.Message, domain.ProviderGoogle)
	require.NotNil(t, created)
	assert.Equal(t, domain.StatusActive, created.Status)
	assert.Equal(t, domain.ProviderGoogle, created.Provider)
	assert.Equal(t, "g-1", created.ProviderID)
	assert.Empty(t, created.PasswordHash)
}

func TestSocialLogin_ClaimsLocalAccount(t *testing.T) {
	f := newFixture()
	profile := &domain.SocialProfile{Subject: "g-9", Email: "a@x.com", Name: "Alice G", AvatarURL: "https://p/a.png"}
	f.google.On("Verify", mock.Anything, "tok").Return(profile, nil)

	existing := &domain.User{
		UserID:       "u1",
		Email:        "a@x.com",
		FullName:     "Alice",
		PasswordHash: "$2a$10$existinghash",
		Provider:     domain.ProviderLocal,
		Status:       domain.StatusActive,
	}
	f.users.On("GetByEmail", mock.Anything, "a@x.com").Return(existing, nil)

	var updates map[string]interface{}
	f.users.On("Update", mock.Anything, "u1", mock.Anything).
		Run(func(args mock.Arguments) { updates = args.Get(2).(map[string]interface{}) }).
		Return(nil)

	var issuedFor *domain.User
	f.tokens.On("IssuePair", mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { issuedFor = args.Get(0).(*domain.User) }).
		Return("a", "r", nil)

	_, err := f.svc.LoginWithGoogle(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderGoogle, updates["provider"])
	assert.Equal(t, "g-9", updates["provider_id"])
	assert.Equal(t, "Alice G", updates["full_name"])
	assert.Equal(t, "https://p/a.png", updates["avatar_url"])

	// Same account, id and password hash preserved.
	require.NotNil(t, issuedFor)
	assert.Equal(t, "u1", issuedFor.UserID)
	assert.Equal(t, "$2a$10$existinghash", issuedFor.PasswordHash)
	f.users.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSocialLogin_OtherSocialProviderKeepsBinding(t *testing.T) {
	f := newFixture()
	profile := &domain.SocialProfile{Subject: "fb-7", Email: "a@x.com", Name: "Alice FB", AvatarURL: "https://p/fb.png"}
	f.facebook.On("Verify", mock.Anything, "tok").Return(profile, nil)

	existing := &domain.User{
		UserID:     "u1",
		Email:      "a@x.com",
		Provider:   domain.ProviderGoogle,
		ProviderID: "g-9",
		Status:     domain.StatusActive,
	}
	f.users.On("GetByEmail", mock.Anything, "a@x.com").Return(existing, nil)

	var updates map[string]interface{}
	f.users.On("Update", mock.Anything, "u1", mock.Anything).
		Run(func(args mock.Arguments) { updates = args.Get(2).(map[string]interface{}) }).
		Return(nil)
	f.tokens.On("IssuePair", mock.Anything).Return("a", "r", nil)

	_, err := f.svc.LoginWithFacebook(context.Background(), "tok")
	require.NoError(t, err)

	// Name and avatar refreshed, provider binding untouched.
	assert.Equal(t, "Alice FB", updates["full_name"])
	_, hasProvider := updates["provider"]
	assert.False(t, hasProvider)
	assert.Equal(t, domain.ProviderGoogle, existing.Provider)
	assert.Equal(t, "g-9", existing.ProviderID)
}

// --- end-to-end register/verify scenario over an in-memory code store ---

type memCodeStore struct {
	values map[string]string
}

func (m *memCodeStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.values[key] = value
	return nil
}
func (m *memCodeStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}
func (m *memCodeStore) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func TestRegisterVerifyScenario(t *testing.T) {
	users := &mockUserStore{}
	codes := &memCodeStore{values: map[string]string{}}
	notif := &mockNotifier{}

	svc := NewService(ServiceDeps{
		UserRepo:  users,
		Codes:     codes,
		Notifier:  notif,
		OTPExpiry: 5 * time.Minute,
	})

	user := &domain.User{Status: domain.StatusUnverified}
	users.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound).Once()
	users.On("Put", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { *user = *(args.Get(1).(*domain.User)) }).
		Return(nil)
	notif.On("Enqueue", mock.Anything, mock.Anything, mock.Anything).Return()

	msg, err := svc.Register(context.Background(), RegisterRequest{
		Name: "Alice", Email: "a@x.com", Password: "secret1",
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(msg, "check your email"))

	code := codes.values["OTP_REGISTER:a@x.com"]
	require.Regexp(t, sixDigits, code)

	// After registration, lookups find the created user.
	users.On("GetByEmail", mock.Anything, "a@x.com").Return(user, nil)
	users.On("Update", mock.Anything, user.UserID, mock.Anything).
		Run(func(args mock.Arguments) { user.Status = domain.StatusActive }).
		Return(nil)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err = svc.VerifyRegisterOTP(context.Background(), "a@x.com", wrong)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))

	msg, err = svc.VerifyRegisterOTP(context.Background(), "a@x.com", code)
	require.NoError(t, err)
	assert.Contains(t, msg, "Verification successful")
	assert.Equal(t, domain.StatusActive, user.Status)

	// Code consumed: replaying the same code now fails as expired/missing.
	_, ok := codes.values["OTP_REGISTER:a@x.com"]
	assert.False(t, ok)
	_, err = svc.VerifyRegisterOTP(context.Background(), "a@x.com", code)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}
