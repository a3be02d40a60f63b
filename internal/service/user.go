package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/staybook/auth-service/internal/constants"
	"github.com/staybook/auth-service/internal/dto"
	apperrors "github.com/staybook/auth-service/internal/errors"
	"github.com/staybook/auth-service/internal/model"
	"github.com/staybook/auth-service/internal/repository"
	ctxutil "github.com/staybook/auth-service/pkg/context"
	"github.com/staybook/auth-service/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LockoutPolicy controls the failed-login lockout behavior.
type LockoutPolicy struct {
	MaxFailedLogins int
	LockoutDuration time.Duration
}

// TokenPolicy controls email-token lifetimes.
type TokenPolicy struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type UserService struct {
	repoUser   *repository.UserRepository
	repoTokens *repository.ActionTokenRepository
	repoAudit  *repository.LoginAuditRepository
	jwtService *JWTService
	blacklist  *TokenBlacklist
	mailer     *Mailer
	lockout    LockoutPolicy
	tokens     TokenPolicy
}

func NewUserService(
	repoUser *repository.UserRepository,
	repoTokens *repository.ActionTokenRepository,
	repoAudit *repository.LoginAuditRepository,
	jwtService *JWTService,
	blacklist *TokenBlacklist,
	mailer *Mailer,
	lockout LockoutPolicy,
	tokens TokenPolicy,
) *UserService {
	if lockout.MaxFailedLogins <= 0 {
		lockout.MaxFailedLogins = constants.DefaultMaxFailedLogins
	}
	if lockout.LockoutDuration <= 0 {
		lockout.LockoutDuration = constants.DefaultLockoutMinutes * time.Minute
	}
	if tokens.VerificationTTL <= 0 {
		tokens.VerificationTTL = 24 * time.Hour
	}
	if tokens.ResetTTL <= 0 {
		tokens.ResetTTL = time.Hour
	}

	return &UserService{
		repoUser:   repoUser,
		repoTokens: repoTokens,
		repoAudit:  repoAudit,
		jwtService: jwtService,
		blacklist:  blacklist,
		mailer:     mailer,
		lockout:    lockout,
		tokens:     tokens,
	}
}

// helpers

func (s *UserService) hashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

func (s *UserService) checkPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// newActionToken generates size random bytes and returns the url-safe
// single-use token and its storage hash.
func newActionToken(size int) (plaintext, hash string, err error) {
	bytes := make([]byte, size)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	plaintext = base64.URLEncoding.EncodeToString(bytes)
	return plaintext, hashActionToken(plaintext), nil
}

func hashActionToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:         user.ID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Email:      user.Email,
		Phone:      user.Phone,
		Role:       user.Role,
		IsVerified: user.IsVerified,
		LastLogin:  user.LastLogin,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

func toUserAdminResponse(user *model.User) dto.UserAdminResponse {
	return dto.UserAdminResponse{
		UserResponse:     toUserResponse(user),
		FailedLoginCount: user.FailedLoginCount,
		LockedUntil:      user.LockedUntil,
	}
}

// audit records an auth event. Audit failures are logged and swallowed, they
// must never fail the operation being audited.
func (s *UserService) audit(ctx context.Context, userID uint, email, event string, details map[string]interface{}) {
	entry := &model.LoginAudit{
		UserID:    userID,
		Email:     email,
		Event:     event,
		ClientIP:  ctxutil.GetClientIP(ctx),
		UserAgent: ctxutil.GetUserAgent(ctx),
	}

	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = raw
		}
	}

	if err := s.repoAudit.Create(ctx, entry); err != nil {
		logger.WarnWithContext(ctx, "Audit write failed").
			String("event", event).
			Err(err).
			Log()
	}
}

// Register creates an unverified account and mails the verification link.
func (s *UserService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Register")

	logger.InfoWithContext(ctx, "Registering new user").
		String("email", req.Email).
		Log()

	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.repoUser.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if existing != nil && err == nil {
		logger.WarnWithContext(ctx, "Registration rejected, email taken").
			String("email", email).
			Log()
		return nil, apperrors.ErrEmailExists
	}

	hashedPassword, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user := &model.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		Password:     hashedPassword,
		Role:         constants.RoleUser,
		IsVerified:   false,
		TokenVersion: 1,
	}

	if err := s.repoUser.Create(ctx, user); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.issueVerification(ctx, user); err != nil {
		// Account exists; the user can request a resend.
		logger.ErrorWithContext(ctx, "Failed to issue verification token").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	logger.InfoWithContext(ctx, "User registered").
		Uint("user_id", user.ID).
		String("email", user.Email).
		Log()

	response := toUserResponse(user)
	return &response, nil
}

// issueVerification invalidates outstanding verification tokens, stores a
// fresh one, and mails the link.
func (s *UserService) issueVerification(ctx context.Context, user *model.User) error {
	if err := s.repoTokens.InvalidateForUser(ctx, user.ID, model.TokenKindVerification); err != nil {
		return err
	}

	plaintext, hash, err := newActionToken(constants.VerificationTokenBytes)
	if err != nil {
		return err
	}

	token := &model.ActionToken{
		UserID:    user.ID,
		Kind:      model.TokenKindVerification,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(s.tokens.VerificationTTL),
	}
	if err := s.repoTokens.Create(ctx, token); err != nil {
		return err
	}

	return s.mailer.SendVerificationEmail(ctx, user.Email, user.FirstName, plaintext, s.tokens.VerificationTTL.String())
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *UserService) VerifyEmail(ctx context.Context, plaintext string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "VerifyEmail")

	token, err := s.repoTokens.GetByHash(ctx, model.TokenKindVerification, hashActionToken(plaintext))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidVerifyToken
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !token.IsUsable(time.Now()) {
		logger.WarnWithContext(ctx, "Verification token expired or used").
			Uint("user_id", token.UserID).
			Log()
		return apperrors.ErrInvalidVerifyToken
	}

	if err := s.repoTokens.MarkUsed(ctx, token.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidVerifyToken
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user, err := s.repoUser.GetByID(ctx, token.UserID)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.SetVerified(ctx, token.UserID); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.audit(ctx, user.ID, user.Email, constants.AuditEmailVerified, nil)

	logger.InfoWithContext(ctx, "Email verified").
		Uint("user_id", user.ID).
		String("email", user.Email).
		Log()

	return nil
}

// ResendVerification re-issues the verification token. Unknown and
// already-verified emails return nil so the endpoint cannot be used to
// enumerate accounts or their verification state.
func (s *UserService) ResendVerification(ctx context.Context, email string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "ResendVerification")

	user, err := s.repoUser.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.InfoWithContext(ctx, "Resend requested for unknown email").
				String("email", email).
				Log()
			return nil
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if user.IsVerified {
		logger.InfoWithContext(ctx, "Resend requested for verified account, skipping").
			Uint("user_id", user.ID).
			Log()
		return nil
	}

	if err := s.issueVerification(ctx, user); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return nil
}

// Login verifies credentials, enforces lockout and verification state, and
// issues an access/refresh pair.
func (s *UserService) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Login")

	logger.InfoWithContext(ctx, "Login attempt").
		String("email", email).
		Log()

	user, err := s.repoUser.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.audit(ctx, 0, email, constants.AuditLoginFailed, map[string]interface{}{
				"reason": "unknown_email",
			})
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	now := time.Now()

	// Locked accounts are refused before the password is evaluated.
	if user.IsLocked(now) {
		logger.WarnWithContext(ctx, "Login refused, account locked").
			Uint("user_id", user.ID).
			Time("locked_until", *user.LockedUntil).
			Log()
		s.audit(ctx, user.ID, user.Email, constants.AuditLoginFailed, map[string]interface{}{
			"reason":       "locked",
			"locked_until": user.LockedUntil,
		})
		return nil, apperrors.ErrAccountLocked
	}

	if !s.checkPassword(user.Password, password) {
		return nil, s.handleFailedLogin(ctx, user)
	}

	if !user.IsVerified {
		logger.WarnWithContext(ctx, "Login refused, email not verified").
			Uint("user_id", user.ID).
			Log()
		s.audit(ctx, user.ID, user.Email, constants.AuditLoginFailed, map[string]interface{}{
			"reason": "unverified",
		})
		return nil, apperrors.ErrAccountNotVerified
	}

	if user.FailedLoginCount > 0 || user.LockedUntil != nil {
		if err := s.repoUser.ResetFailedLogins(ctx, user.ID); err != nil {
			logger.WarnWithContext(ctx, "Failed to reset lockout counters").
				Uint("user_id", user.ID).
				Err(err).
				Log()
		}
	}

	if err := s.repoUser.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.WarnWithContext(ctx, "Failed to update last login").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}
	user.LastLogin = now

	accessToken, refreshToken, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user.ID, user.Email, constants.AuditLogin, nil)

	logger.InfoWithContext(ctx, "Login succeeded").
		Uint("user_id", user.ID).
		String("email", user.Email).
		Log()

	return &dto.LoginResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtService.AccessTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

// handleFailedLogin bumps the failure counter and locks the account once the
// threshold is hit. Always returns invalid-credentials to the caller.
func (s *UserService) handleFailedLogin(ctx context.Context, user *model.User) error {
	count, err := s.repoUser.RecordFailedLogin(ctx, user.ID)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to record login failure").
			Uint("user_id", user.ID).
			Err(err).
			Log()
		return apperrors.ErrInvalidCredentials
	}

	s.audit(ctx, user.ID, user.Email, constants.AuditLoginFailed, map[string]interface{}{
		"reason":             "bad_password",
		"failed_login_count": count,
	})

	if count >= s.lockout.MaxFailedLogins {
		until := time.Now().Add(s.lockout.LockoutDuration)
		if err := s.repoUser.SetLockedUntil(ctx, user.ID, until); err != nil {
			logger.ErrorWithContext(ctx, "Failed to lock account").
				Uint("user_id", user.ID).
				Err(err).
				Log()
		} else {
			s.audit(ctx, user.ID, user.Email, constants.AuditLockout, map[string]interface{}{
				"failed_login_count": count,
				"locked_until":       until,
			})
		}
	}

	return apperrors.ErrInvalidCredentials
}

// issueTokenPair mints an access token and rotates the stored refresh token.
func (s *UserService) issueTokenPair(ctx context.Context, user *model.User) (string, string, error) {
	accessToken, _, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", "", apperrors.WrapError(apperrors.ErrInternal, err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken()
	if err != nil {
		return "", "", apperrors.WrapError(apperrors.ErrInternal, err)
	}

	expires := time.Now().Add(s.jwtService.RefreshTTL())
	hash := s.jwtService.HashRefreshToken(refreshToken)
	if err := s.repoUser.UpdateRefreshToken(ctx, user.ID, hash, &expires); err != nil {
		return "", "", apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return accessToken, refreshToken, nil
}

// RefreshToken rotates the refresh token and bumps token_version so access
// tokens minted before the rotation die with it.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*dto.RefreshTokenResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "RefreshToken")

	user, err := s.repoUser.FindByRefreshTokenHash(ctx, s.jwtService.HashRefreshToken(refreshToken))
	if err != nil {
		logger.WarnWithContext(ctx, "Refresh rejected, token unknown").
			Log()
		return nil, apperrors.ErrInvalidRefreshToken
	}

	if user.RefreshTokenExpires != nil && user.RefreshTokenExpires.Before(time.Now()) {
		logger.WarnWithContext(ctx, "Refresh rejected, token expired").
			Uint("user_id", user.ID).
			Log()
		_ = s.repoUser.UpdateRefreshToken(ctx, user.ID, "", nil)
		return nil, apperrors.ErrTokenExpired
	}

	newVersion := user.TokenVersion + 1
	if err := s.repoUser.UpdateTokenVersion(ctx, user.ID, newVersion); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	user.TokenVersion = newVersion

	accessToken, newRefreshToken, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user.ID, user.Email, constants.AuditRefresh, map[string]interface{}{
		"token_version": newVersion,
	})

	logger.InfoWithContext(ctx, "Token refreshed").
		Uint("user_id", user.ID).
		Int("token_version", newVersion).
		Log()

	return &dto.RefreshTokenResponse{
		Token:        accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    int(s.jwtService.AccessTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

// Logout kills the session: the presented access token's jti is blacklisted
// for its remaining life, token_version invalidates any others, and the
// refresh token is cleared.
func (s *UserService) Logout(ctx context.Context, userID uint, jti string, tokenExpires time.Time) error {
	ctx = ctxutil.WithOperation(ctx, "service", "Logout")

	user, err := s.repoUser.GetByID(ctx, userID)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if jti != "" {
		if err := s.blacklist.Blacklist(ctx, jti, tokenExpires); err != nil {
			logger.WarnWithContext(ctx, "Failed to blacklist access token").
				Uint("user_id", userID).
				Err(err).
				Log()
		}
	}

	if err := s.repoUser.UpdateTokenVersion(ctx, userID, user.TokenVersion+1); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.UpdateRefreshToken(ctx, userID, "", nil); err != nil {
		logger.WarnWithContext(ctx, "Failed to clear refresh token on logout").
			Uint("user_id", userID).
			Err(err).
			Log()
	}

	s.audit(ctx, user.ID, user.Email, constants.AuditLogout, nil)

	logger.InfoWithContext(ctx, "User logged out").
		Uint("user_id", userID).
		Log()

	return nil
}

// ForgotPassword issues a reset token. Always succeeds from the caller's
// perspective; unknown emails are only logged.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "ForgotPassword")

	user, err := s.repoUser.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.InfoWithContext(ctx, "Password reset requested for unknown email").
				String("email", email).
				Log()
			return nil
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoTokens.InvalidateForUser(ctx, user.ID, model.TokenKindPasswordReset); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	plaintext, hash, err := newActionToken(constants.ResetTokenBytes)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	token := &model.ActionToken{
		UserID:    user.ID,
		Kind:      model.TokenKindPasswordReset,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(s.tokens.ResetTTL),
	}
	if err := s.repoTokens.Create(ctx, token); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, user.FirstName, plaintext, s.tokens.ResetTTL.String()); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Password reset token issued").
		Uint("user_id", user.ID).
		Log()

	return nil
}

// ResetPassword consumes a reset token and sets the new password. All
// sessions die: token_version bumps and the refresh token is cleared.
func (s *UserService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	ctx = ctxutil.WithOperation(ctx, "service", "ResetPassword")

	if req.NewPassword != req.ConfirmPassword {
		return apperrors.ErrPasswordMismatch
	}

	token, err := s.repoTokens.GetByHash(ctx, model.TokenKindPasswordReset, hashActionToken(req.Token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !token.IsUsable(time.Now()) {
		return apperrors.ErrInvalidResetToken
	}

	if err := s.repoTokens.MarkUsed(ctx, token.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user, err := s.repoUser.GetByID(ctx, token.UserID)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	hashedPassword, err := s.hashPassword(req.NewPassword)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.UpdateRefreshToken(ctx, user.ID, "", nil); err != nil {
		logger.WarnWithContext(ctx, "Failed to clear refresh token on reset").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	// A reset proves control of the mailbox, so any lockout is lifted.
	if err := s.repoUser.ResetFailedLogins(ctx, user.ID); err != nil {
		logger.WarnWithContext(ctx, "Failed to reset lockout on password reset").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	s.audit(ctx, user.ID, user.Email, constants.AuditPasswordReset, nil)

	logger.InfoWithContext(ctx, "Password reset completed").
		Uint("user_id", user.ID).
		Log()

	return nil
}

// GetByID returns a user profile.
func (s *UserService) GetByID(ctx context.Context, id uint) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GetByID")

	user, err := s.repoUser.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	response := toUserResponse(user)
	return &response, nil
}

// GetAll lists users for the admin surface.
func (s *UserService) GetAll(ctx context.Context, limit, offset int, search string) ([]dto.UserAdminResponse, int64, int64, int64, int, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GetAll")

	users, total, verifiedCount, lockedCount, err := s.repoUser.GetAll(ctx, limit, offset, search)
	if err != nil {
		return nil, 0, 0, 0, 0, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	pageTotal := 0
	if limit > 0 {
		pageTotal = int(math.Ceil(float64(total) / float64(limit)))
	}

	res := make([]dto.UserAdminResponse, 0, len(users))
	for i := range users {
		res = append(res, toUserAdminResponse(&users[i]))
	}

	return res, total, verifiedCount, lockedCount, pageTotal, nil
}

// UpdateProfile updates first/last name and phone.
func (s *UserService) UpdateProfile(ctx context.Context, id uint, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "UpdateProfile")

	current, err := s.repoUser.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	update := &model.User{
		FirstName: current.FirstName,
		LastName:  current.LastName,
		Phone:     current.Phone,
	}
	if req.FirstName != "" {
		update.FirstName = strings.TrimSpace(req.FirstName)
	}
	if req.LastName != "" {
		update.LastName = strings.TrimSpace(req.LastName)
	}
	if req.Phone != "" {
		update.Phone = strings.TrimSpace(req.Phone)
	}

	if err := s.repoUser.Update(ctx, id, update); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	updated, err := s.repoUser.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	response := toUserResponse(updated)
	return &response, nil
}

// UpdatePassword changes the password after verifying the current one. All
// existing access tokens are invalidated via token_version.
func (s *UserService) UpdatePassword(ctx context.Context, id uint, req *dto.UpdatePasswordRequest) error {
	ctx = ctxutil.WithOperation(ctx, "service", "UpdatePassword")

	if req.NewPassword != req.ConfirmPassword {
		return apperrors.ErrPasswordMismatch
	}

	user, err := s.repoUser.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !s.checkPassword(user.Password, req.CurrentPassword) {
		logger.WarnWithContext(ctx, "Password change rejected, wrong current password").
			Uint("user_id", id).
			Log()
		return apperrors.ErrIncorrectPassword
	}

	hashedPassword, err := s.hashPassword(req.NewPassword)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.UpdatePassword(ctx, id, hashedPassword); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.UpdateTokenVersion(ctx, id, user.TokenVersion+1); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.audit(ctx, user.ID, user.Email, constants.AuditPasswordChange, nil)

	logger.InfoWithContext(ctx, "Password changed").
		Uint("user_id", id).
		Log()

	return nil
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, id uint, requestingUserID uint) error {
	ctx = ctxutil.WithOperation(ctx, "service", "DeleteUser")

	if id == requestingUserID {
		logger.WarnWithContext(ctx, "User attempted to delete themselves").
			Uint("user_id", id).
			Log()
		return apperrors.ErrSelfDeletion
	}

	user, err := s.repoUser.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.Delete(ctx, id); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "User deleted").
		Uint("target_user_id", id).
		Uint("requesting_user_id", requestingUserID).
		String("deleted_user_email", user.Email).
		Log()

	return nil
}

// UnlockUser lifts a lockout immediately. Admin operation.
func (s *UserService) UnlockUser(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "service", "UnlockUser")

	user, err := s.repoUser.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.ResetFailedLogins(ctx, id); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Account unlocked by admin").
		Uint("user_id", id).
		String("email", user.Email).
		Log()

	return nil
}

// RevokeSessions invalidates every session a user holds: token_version bump
// plus refresh-token clear. Admin operation.
func (s *UserService) RevokeSessions(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "service", "RevokeSessions")

	user, err := s.repoUser.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.UpdateTokenVersion(ctx, id, user.TokenVersion+1); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.UpdateRefreshToken(ctx, id, "", nil); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.audit(ctx, user.ID, user.Email, constants.AuditSessionsRevoke, nil)

	logger.InfoWithContext(ctx, "User sessions revoked").
		Uint("user_id", id).
		Log()

	return nil
}

// ListLoginAudits returns a user's recent auth events, newest first.
func (s *UserService) ListLoginAudits(ctx context.Context, userID uint, limit, offset int) ([]dto.LoginAuditResponse, int64, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ListLoginAudits")

	entries, total, err := s.repoAudit.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	res := make([]dto.LoginAuditResponse, 0, len(entries))
	for _, e := range entries {
		item := dto.LoginAuditResponse{
			ID:        e.ID,
			UserID:    e.UserID,
			Email:     e.Email,
			Event:     e.Event,
			ClientIP:  e.ClientIP,
			UserAgent: e.UserAgent,
			CreatedAt: e.CreatedAt,
		}
		if len(e.Details) > 0 {
			var details map[string]interface{}
			if err := json.Unmarshal(e.Details, &details); err == nil {
				item.Details = details
			}
		}
		res = append(res, item)
	}

	return res, total, nil
}
