package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/staybook/auth-service/internal/constants"
	"github.com/staybook/auth-service/internal/dto"
	apperrors "github.com/staybook/auth-service/internal/errors"
	"github.com/staybook/auth-service/internal/model"
	"github.com/staybook/auth-service/internal/repository"
	"github.com/staybook/auth-service/pkg/circuit"
	"github.com/staybook/auth-service/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type serviceFixture struct {
	svc       *UserService
	users     *repository.UserRepository
	tokens    *repository.ActionTokenRepository
	audits    *repository.LoginAuditRepository
	blacklist *TokenBlacklist
	jwt       *JWTService
	db        *gorm.DB
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.ActionToken{}, &model.LoginAudit{}))

	users := repository.NewUserRepository(db)
	tokens := repository.NewActionTokenRepository(db)
	audits := repository.NewLoginAuditRepository(db)

	jwtService := NewJWTService("test-secret", 15*time.Minute, 7*24*time.Hour)
	blacklist := NewTokenBlacklist(redis.NewClient(redis.Config{Enabled: false}, zap.NewNop()))

	breaker := circuit.NewBreaker("smtp-test", circuit.DefaultConfig(), zap.NewNop())
	mailer, err := NewMailer(MailerConfig{BaseURL: "https://app.staybook.local"}, breaker)
	require.NoError(t, err)

	svc := NewUserService(users, tokens, audits, jwtService, blacklist, mailer,
		LockoutPolicy{MaxFailedLogins: 3, LockoutDuration: 15 * time.Minute},
		TokenPolicy{VerificationTTL: 24 * time.Hour, ResetTTL: time.Hour},
	)

	return &serviceFixture{
		svc:       svc,
		users:     users,
		tokens:    tokens,
		audits:    audits,
		blacklist: blacklist,
		jwt:       jwtService,
		db:        db,
	}
}

func (f *serviceFixture) register(t *testing.T, email string) *dto.UserResponse {
	t.Helper()

	resp, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		FirstName: "Test",
		LastName:  "Guest",
		Email:     email,
		Phone:     "+14155550100",
		Password:  "Sup3rSecret!",
	})
	require.NoError(t, err)
	return resp
}

// registerVerified creates an account and marks it verified, skipping the
// email round trip.
func (f *serviceFixture) registerVerified(t *testing.T, email string) *dto.UserResponse {
	t.Helper()

	resp := f.register(t, email)
	require.NoError(t, f.users.SetVerified(context.Background(), resp.ID))
	return resp
}

// plantActionToken stores a token of the given kind and returns its
// plaintext, standing in for the one the user would receive by email.
func (f *serviceFixture) plantActionToken(t *testing.T, userID uint, kind string, expiresAt time.Time) string {
	t.Helper()

	plaintext, hash, err := newActionToken(constants.VerificationTokenBytes)
	require.NoError(t, err)
	require.NoError(t, f.tokens.Create(context.Background(), &model.ActionToken{
		UserID:    userID,
		Kind:      kind,
		TokenHash: hash,
		ExpiresAt: expiresAt,
	}))
	return plaintext
}

func TestUserService_Register(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.register(t, "Guest@Staybook.Local")

	assert.Equal(t, "guest@staybook.local", resp.Email)
	assert.Equal(t, "user", resp.Role)
	assert.False(t, resp.IsVerified)

	// A verification token is stored for the new account.
	var count int64
	require.NoError(t, f.db.Model(&model.ActionToken{}).
		Where("user_id = ? AND kind = ?", resp.ID, model.TokenKindVerification).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Duplicate registration is rejected regardless of case.
	_, err := f.svc.Register(ctx, &dto.RegisterRequest{
		FirstName: "Other",
		LastName:  "Guest",
		Email:     "GUEST@staybook.local",
		Phone:     "+14155550101",
		Password:  "An0therSecret!",
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailExists)
}

func TestUserService_VerifyEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.register(t, "guest@staybook.local")
	plaintext := f.plantActionToken(t, resp.ID, model.TokenKindVerification, time.Now().Add(24*time.Hour))

	require.NoError(t, f.svc.VerifyEmail(ctx, plaintext))

	user, err := f.users.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)

	// Single use.
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, plaintext), apperrors.ErrInvalidVerifyToken)
}

func TestUserService_VerifyEmail_Rejections(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.register(t, "guest@staybook.local")
	expired := f.plantActionToken(t, resp.ID, model.TokenKindVerification, time.Now().Add(-time.Minute))

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, expired), apperrors.ErrInvalidVerifyToken)
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "no-such-token"), apperrors.ErrInvalidVerifyToken)
}

func TestUserService_ResendVerification(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	// Unknown and already-verified emails must not be distinguishable from
	// an unverified one.
	assert.NoError(t, f.svc.ResendVerification(ctx, "nobody@staybook.local"))

	guest := f.register(t, "guest@staybook.local")
	assert.NoError(t, f.svc.ResendVerification(ctx, "guest@staybook.local"))

	done := f.registerVerified(t, "done@staybook.local")
	assert.NoError(t, f.svc.ResendVerification(ctx, "done@staybook.local"))

	// Only the unverified account actually got a fresh token.
	var count int64
	require.NoError(t, f.db.Model(&model.ActionToken{}).
		Where("user_id = ? AND used_at IS NULL", guest.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, f.db.Model(&model.ActionToken{}).
		Where("user_id = ? AND kind = ?", done.ID, model.TokenKindVerification).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserService_Login(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.registerVerified(t, "guest@staybook.local")

	resp, err := f.svc.Login(ctx, "guest@staybook.local", "Sup3rSecret!")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int(15*time.Minute/time.Second), resp.ExpiresIn)
	assert.Equal(t, "guest@staybook.local", resp.User.Email)

	claims, err := f.jwt.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestUserService_Login_Rejections(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.registerVerified(t, "guest@staybook.local")
	f.register(t, "new@staybook.local")

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{
			name:     "Unknown email",
			email:    "nobody@staybook.local",
			password: "Sup3rSecret!",
			wantErr:  apperrors.ErrInvalidCredentials,
		},
		{
			name:     "Wrong password",
			email:    "guest@staybook.local",
			password: "WrongSecret!",
			wantErr:  apperrors.ErrInvalidCredentials,
		},
		{
			name:     "Unverified account",
			email:    "new@staybook.local",
			password: "Sup3rSecret!",
			wantErr:  apperrors.ErrAccountNotVerified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUserService_Lockout(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.registerVerified(t, "guest@staybook.local")

	for i := 0; i < 3; i++ {
		_, err := f.svc.Login(ctx, "guest@staybook.local", "WrongSecret!")
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}

	user, err := f.users.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, user.FailedLoginCount)
	require.NotNil(t, user.LockedUntil)
	assert.True(t, user.LockedUntil.After(time.Now()))

	// Locked accounts refuse even the correct password.
	_, err = f.svc.Login(ctx, "guest@staybook.local", "Sup3rSecret!")
	assert.ErrorIs(t, err, apperrors.ErrAccountLocked)

	require.NoError(t, f.svc.UnlockUser(ctx, resp.ID))

	login, err := f.svc.Login(ctx, "guest@staybook.local", "Sup3rSecret!")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)

	user, err = f.users.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Zero(t, user.FailedLoginCount)
	assert.Nil(t, user.LockedUntil)
}

func TestUserService_LockoutResetOnSuccess(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.registerVerified(t, "guest@staybook.local")

	_, err := f.svc.Login(ctx, "guest@staybook.local", "WrongSecret!")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "guest@staybook.local", "Sup3rSecret!")
	require.NoError(t, err)

	user, err := f.users.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Zero(t, user.FailedLoginCount)
}

func TestUserService_RefreshRotation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.registerVerified(t, "guest@staybook.local")
	login, err := f.svc.Login(ctx, "guest@staybook.local", "Sup3rSecret!")
	require.NoError(t, err)

	refreshed, err := f.svc.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Token)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The old refresh token died with the rotation.
	_, err = f.svc.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

	// So did access tokens minted before it: token_version moved on.
	user, err := f.users.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	oldClaims, err := f.jwt.ValidateToken(login.Token)
	require.NoError(t, err)
	assert.NotEqual(t, oldClaims.TokenVersion, user.TokenVersion)

	newClaims, err := f.jwt.ValidateToken(refreshed.Token)
	require.NoError(t, err)
	assert.Equal(t, user.TokenVersion, newClaims.TokenVersion)
}

func TestUserService_RefreshToken_Rejections(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.registerVerified(t, "guest@staybook.local")
	login, err := f.svc.Login(ctx, "guest@staybook.local", "Sup3rSecret!")
	require.NoError(t, err)

	_, err = f.svc.RefreshToken(ctx, "bogus-refresh-token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

	// Expired stored token is cleared and rejected.
	past := time.Now().Add(-time.Minute)
	hash := f.jwt.HashRefreshToken(login.RefreshToken)
	require.NoError(t, f.users.UpdateRefreshToken(ctx, resp.ID, hash, &past))

	_, err = f.svc.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)

	_, err = f.svc.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestUserService_Logout(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.registerVerified(t, "guest@staybook.local")
	login, err := f.svc.Login(ctx, "guest@staybook.local", "Sup3rSecret!")
	require.NoError(t, err)

	claims, err := f.jwt.ValidateToken(login.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, resp.ID, claims.TokenID, claims.ExpiresAt))

	assert.True(t, f.blacklist.IsBlacklisted(ctx, claims.TokenID))

	_, err = f.svc.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

	user, err := f.users.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.NotEqual(t, claims.TokenVersion, user.TokenVersion)
}

func TestUserService_ForgotPassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	// Unknown email must not be distinguishable from a known one.
	assert.NoError(t, f.svc.ForgotPassword(ctx, "nobody@staybook.local"))

	resp := f.registerVerified(t, "guest@staybook.local")
	require.NoError(t, f.svc.ForgotPassword(ctx, "guest@staybook.local"))

	var count int64
	require.NoError(t, f.db.Model(&model.ActionToken{}).
		Where("user_id = ? AND kind = ? AND used_at IS NULL", resp.ID, model.TokenKindPasswordReset).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// A second request invalidates the first token.
	require.NoError(t, f.svc.ForgotPassword(ctx, "guest@staybook.local"))
	require.NoError(t, f.db.Model(&model.ActionToken{}).
		Where("user_id = ? AND kind = ? AND used_at IS NULL", resp.ID, model.TokenKindPasswordReset).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserService_ResetPassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.registerVerified(t, "guest@staybook.local")
	plaintext := f.plantActionToken(t, resp.ID, model.TokenKindPasswordReset, time.Now().Add(time.Hour))

	err := f.svc.ResetPassword(ctx, &dto.ResetPasswordRequest{
		Token:           plaintext,
		NewPassword:     "Fr3shSecret!",
		ConfirmPassword: "Mismatch!",
	})
	assert.ErrorIs(t, err, apperrors.ErrPasswordMismatch)

	require.NoError(t, f.svc.ResetPassword(ctx, &dto.ResetPasswordRequest{
		Token:           plaintext,
		NewPassword:     "Fr3shSecret!",
		ConfirmPassword: "Fr3shSecret!",
	}))

	// Old password dead, new one works.
	_, err = f.svc.Login(ctx, "guest@staybook.local", "Sup3rSecret!")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "guest@staybook.local", "Fr3shSecret!")
	require.NoError(t, err)

	// Single use.
	err = f.svc.ResetPassword(ctx, &dto.ResetPasswordRequest{
		Token:           plaintext,
		NewPassword:     "Yet4nother!",
		ConfirmPassword: "Yet4nother!",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidResetToken)
}

func TestUserService_ResetPassword_LiftsLockout(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.registerVerified(t, "guest@staybook.local")
	for i := 0; i < 3; i++ {
		_, _ = f.svc.Login(ctx, "guest@staybook.local", "WrongSecret!")
	}

	plaintext := f.plantActionToken(t, resp.ID, model.TokenKindPasswordReset, time.Now().Add(time.Hour))
	require.NoError(t, f.svc.ResetPassword(ctx, &dto.ResetPasswordRequest{
		Token:           plaintext,
		NewPassword:     "Fr3shSecret!",
		ConfirmPassword: "Fr3shSecret!",
	}))

	login, err := f.svc.Login(ctx, "guest@staybook.local", "Fr3shSecret!")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
}

func TestUserService_UpdatePassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.registerVerified(t, "guest@staybook.local")

	err := f.svc.UpdatePassword(ctx, resp.ID, &dto.UpdatePasswordRequest{
		CurrentPassword: "WrongSecret!",
		NewPassword:     "Fr3shSecret!",
		ConfirmPassword: "Fr3shSecret!",
	})
	assert.ErrorIs(t, err, apperrors.ErrIncorrectPassword)

	err = f.svc.UpdatePassword(ctx, resp.ID, &dto.UpdatePasswordRequest{
		CurrentPassword: "Sup3rSecret!",
		NewPassword:     "Fr3shSecret!",
		ConfirmPassword: "Mismatch!",
	})
	assert.ErrorIs(t, err, apperrors.ErrPasswordMismatch)

	require.NoError(t, f.svc.UpdatePassword(ctx, resp.ID, &dto.UpdatePasswordRequest{
		CurrentPassword: "Sup3rSecret!",
		NewPassword:     "Fr3shSecret!",
		ConfirmPassword: "Fr3shSecret!",
	}))

	_, err = f.svc.Login(ctx, "guest@staybook.local", "Fr3shSecret!")
	require.NoError(t, err)
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.registerVerified(t, "guest@staybook.local")

	updated, err := f.svc.UpdateProfile(ctx, resp.ID, &dto.UpdateProfileRequest{
		FirstName: "Renamed",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FirstName)
	// Untouched fields survive.
	assert.Equal(t, "Guest", updated.LastName)
	assert.Equal(t, "+14155550100", updated.Phone)
}

func TestUserService_DeleteUser(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	admin := f.registerVerified(t, "admin@staybook.local")
	guest := f.registerVerified(t, "guest@staybook.local")

	assert.ErrorIs(t, f.svc.DeleteUser(ctx, admin.ID, admin.ID), apperrors.ErrSelfDeletion)

	require.NoError(t, f.svc.DeleteUser(ctx, guest.ID, admin.ID))

	_, err := f.svc.GetByID(ctx, guest.ID)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	assert.ErrorIs(t, f.svc.DeleteUser(ctx, guest.ID, admin.ID), apperrors.ErrUserNotFound)
}

func TestUserService_RevokeSessions(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.registerVerified(t, "guest@staybook.local")
	login, err := f.svc.Login(ctx, "guest@staybook.local", "Sup3rSecret!")
	require.NoError(t, err)

	require.NoError(t, f.svc.RevokeSessions(ctx, resp.ID))

	_, err = f.svc.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

	claims, err := f.jwt.ValidateToken(login.Token)
	require.NoError(t, err)
	user, err := f.users.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.NotEqual(t, claims.TokenVersion, user.TokenVersion)
}

func TestUserService_GetAll(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.registerVerified(t, "alpha@staybook.local")
	f.registerVerified(t, "beta@staybook.local")
	f.register(t, "gamma@staybook.local")

	users, total, verified, locked, pageTotal, err := f.svc.GetAll(ctx, 10, 0, "")
	require.NoError(t, err)
	assert.Len(t, users, 3)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), verified)
	assert.Zero(t, locked)
	assert.Equal(t, 1, pageTotal)

	users, total, _, _, pageTotal, err = f.svc.GetAll(ctx, 2, 0, "")
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, 2, pageTotal)

	users, total, _, _, _, err = f.svc.GetAll(ctx, 10, 0, "ALPHA")
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "alpha@staybook.local", users[0].Email)
}

func TestUserService_ListLoginAudits(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp := f.registerVerified(t, "guest@staybook.local")

	_, _ = f.svc.Login(ctx, "guest@staybook.local", "WrongSecret!")
	_, err := f.svc.Login(ctx, "guest@staybook.local", "Sup3rSecret!")
	require.NoError(t, err)

	entries, total, err := f.svc.ListLoginAudits(ctx, resp.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)

	events := []string{entries[0].Event, entries[1].Event}
	assert.ElementsMatch(t, []string{"login", "login_failed"}, events)

	for _, e := range entries {
		if e.Event != "login_failed" {
			continue
		}
		details, ok := e.Details.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "bad_password", details["reason"])
	}
}
