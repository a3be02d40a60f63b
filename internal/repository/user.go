package repository

import (
	"context"
	"time"

	"github.com/staybook/auth-service/internal/model"
	ctxutil "github.com/staybook/auth-service/pkg/context"
	"github.com/staybook/auth-service/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByID")

	logger.DebugWithContext(ctx, "Getting user by ID").
		Uint("user_id", id).
		Log()

	if err := ctx.Err(); err != nil {
		logger.WarnWithContext(ctx, "Context cancelled before query").
			Err(err).
			Log()
		return nil, err
	}

	start := time.Now()
	var user model.User

	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to get user by ID").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "User retrieved successfully").
		Uint("user_id", id).
		String("email", user.Email).
		Duration(duration).
		Log()

	return &user, nil
}

// GetByEmail finds a user by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetByEmail")

	logger.DebugWithContext(ctx, "Getting user by email").
		String("email", email).
		Log()

	start := time.Now()
	var user model.User

	result := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.DebugWithContext(ctx, "Failed to get user by email").
			String("email", email).
			Duration(duration).
			Err(result.Error).
			Log()
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "User retrieved successfully by email").
		String("email", email).
		Uint("user_id", user.ID).
		Duration(duration).
		Log()

	return &user, nil
}

func (r *UserRepository) GetAll(ctx context.Context, limit, offset int, search string) ([]model.User, int64, int64, int64, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetAll")

	logger.DebugWithContext(ctx, "Getting all users").
		Int("limit", limit).
		Int("offset", offset).
		String("search", search).
		Log()

	if err := ctx.Err(); err != nil {
		logger.WarnWithContext(ctx, "Context cancelled before query").
			Err(err).
			Log()
		return nil, 0, 0, 0, err
	}

	start := time.Now()
	var users []model.User
	var total, verifiedCount, lockedCount int64

	query := r.db.WithContext(ctx).Model(&model.User{})

	if search != "" {
		searchPattern := "%" + search + "%"
		query = query.Where(
			"LOWER(first_name) LIKE LOWER(?) OR LOWER(last_name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?) OR phone LIKE ?",
			searchPattern, searchPattern, searchPattern, searchPattern,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to count total users").
			Err(err).
			Log()
		return nil, 0, 0, 0, err
	}

	if err := query.Session(&gorm.Session{}).Where("is_verified = ?", true).Count(&verifiedCount).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to count verified users").
			Err(err).
			Log()
		return nil, 0, 0, 0, err
	}

	if err := query.Session(&gorm.Session{}).Where("locked_until IS NOT NULL AND locked_until > ?", time.Now()).Count(&lockedCount).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to count locked users").
			Err(err).
			Log()
		return nil, 0, 0, 0, err
	}

	if err := query.Order("id").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to fetch users").
			Int("limit", limit).
			Int("offset", offset).
			String("search", search).
			Duration(time.Since(start)).
			Err(err).
			Log()
		return nil, 0, 0, 0, err
	}

	logger.InfoWithContext(ctx, "Users retrieved successfully").
		Int("limit", limit).
		Int("offset", offset).
		String("search", search).
		Int64("total", total).
		Int64("verified_count", verifiedCount).
		Int64("locked_count", lockedCount).
		Int("returned_count", len(users)).
		Duration(time.Since(start)).
		Log()

	return users, total, verifiedCount, lockedCount, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "Create")

	logger.DebugWithContext(ctx, "Creating new user").
		String("email", user.Email).
		String("first_name", user.FirstName).
		String("last_name", user.LastName).
		Log()

	start := time.Now()
	result := r.db.WithContext(ctx).Create(user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", user.Email).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.InfoWithContext(ctx, "User created successfully").
		String("email", user.Email).
		Uint("user_id", user.ID).
		Duration(duration).
		Log()

	return nil
}

// Update updates profile fields (never email, password, or role)
func (r *UserRepository) Update(ctx context.Context, id uint, user *model.User) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "Update")

	logger.DebugWithContext(ctx, "Updating user").
		Uint("user_id", id).
		String("first_name", user.FirstName).
		String("last_name", user.LastName).
		String("phone", user.Phone).
		Log()

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"phone":      user.Phone,
	})
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update user").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		logger.WarnWithContext(ctx, "No user found to update").
			Uint("user_id", id).
			Log()
		return gorm.ErrRecordNotFound
	}

	logger.InfoWithContext(ctx, "User updated successfully").
		Uint("user_id", id).
		Int64("rows_affected", result.RowsAffected).
		Duration(duration).
		Log()

	return nil
}

// UpdatePassword updates the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, hashedPassword string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdatePassword")

	logger.DebugWithContext(ctx, "Updating user password").
		Uint("user_id", id).
		Log()

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password", hashedPassword)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update user password").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		logger.WarnWithContext(ctx, "No user found to update password").
			Uint("user_id", id).
			Log()
		return gorm.ErrRecordNotFound
	}

	logger.InfoWithContext(ctx, "User password updated successfully").
		Uint("user_id", id).
		Duration(duration).
		Log()

	return nil
}

// UpdateLastLogin updates the last login timestamp
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdateLastLogin")

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("last_login", time.Now())
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update last login").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.DebugWithContext(ctx, "Last login updated successfully").
		Uint("user_id", id).
		Duration(duration).
		Log()

	return nil
}

// UpdateRefreshToken stores the hash of the active refresh token and its
// expiry. Pass empty hash and nil expiry to clear it.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, id uint, refreshTokenHash string, expiresAt *time.Time) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdateRefreshToken")

	logger.DebugWithContext(ctx, "Updating refresh token").
		Uint("user_id", id).
		Bool("has_token", refreshTokenHash != "").
		Log()

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"refresh_token_hash":       refreshTokenHash,
		"refresh_token_expires_at": expiresAt,
	})
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update refresh token").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		logger.WarnWithContext(ctx, "No user found to update refresh token").
			Uint("user_id", id).
			Log()
		return gorm.ErrRecordNotFound
	}

	logger.DebugWithContext(ctx, "Refresh token updated successfully").
		Uint("user_id", id).
		Duration(duration).
		Log()

	return nil
}

// FindByRefreshTokenHash looks up the user holding the given refresh token
// hash. The hash is an exact-match SHA-256 digest, so the partial index on
// refresh_token_hash serves the query.
func (r *UserRepository) FindByRefreshTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "FindByRefreshTokenHash")

	start := time.Now()
	var user model.User

	result := r.db.WithContext(ctx).
		Where("refresh_token_hash = ?", tokenHash).
		First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.DebugWithContext(ctx, "No user found for refresh token").
			Duration(duration).
			Err(result.Error).
			Log()
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "Refresh token matched").
		Uint("user_id", user.ID).
		Duration(duration).
		Log()

	return &user, nil
}

// UpdateTokenVersion sets the user's token version, invalidating all access
// tokens minted under earlier versions.
func (r *UserRepository) UpdateTokenVersion(ctx context.Context, id uint, newVersion int) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdateTokenVersion")

	logger.DebugWithContext(ctx, "Updating token version").
		Uint("user_id", id).
		Int("new_version", newVersion).
		Log()

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("token_version", newVersion)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update token version").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		logger.WarnWithContext(ctx, "No user found to update token version").
			Uint("user_id", id).
			Log()
		return gorm.ErrRecordNotFound
	}

	logger.DebugWithContext(ctx, "Token version updated successfully").
		Uint("user_id", id).
		Duration(duration).
		Log()

	return nil
}

// RecordFailedLogin increments the failure counter and returns the new count.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id uint) (int, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "RecordFailedLogin")

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("failed_login_count", gorm.Expr("failed_login_count + 1"))

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to record failed login").
			Uint("user_id", id).
			Duration(time.Since(start)).
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	var user model.User
	if err := r.db.WithContext(ctx).Select("failed_login_count").Where("id = ?", id).First(&user).Error; err != nil {
		return 0, err
	}

	logger.DebugWithContext(ctx, "Failed login recorded").
		Uint("user_id", id).
		Int("failed_login_count", user.FailedLoginCount).
		Duration(time.Since(start)).
		Log()

	return user.FailedLoginCount, nil
}

// SetLockedUntil locks the account until the given time.
func (r *UserRepository) SetLockedUntil(ctx context.Context, id uint, until time.Time) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "SetLockedUntil")

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("locked_until", until)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to lock account").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.WarnWithContext(ctx, "Account locked").
		Uint("user_id", id).
		Time("locked_until", until).
		Duration(duration).
		Log()

	return nil
}

// ResetFailedLogins clears the failure counter and any lockout.
func (r *UserRepository) ResetFailedLogins(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "ResetFailedLogins")

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to reset failed logins").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.DebugWithContext(ctx, "Failed login counter reset").
		Uint("user_id", id).
		Duration(duration).
		Log()

	return nil
}

// SetVerified marks the account's email as verified.
func (r *UserRepository) SetVerified(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "SetVerified")

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("is_verified", true)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to mark user verified").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		logger.WarnWithContext(ctx, "No user found to verify").
			Uint("user_id", id).
			Log()
		return gorm.ErrRecordNotFound
	}

	logger.InfoWithContext(ctx, "User marked as verified").
		Uint("user_id", id).
		Duration(duration).
		Log()

	return nil
}

// CleanupExpiredRefreshTokens clears refresh token material past its expiry
// (batch operation run by the cleanup worker).
func (r *UserRepository) CleanupExpiredRefreshTokens(ctx context.Context) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "CleanupExpiredRefreshTokens")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("refresh_token_expires_at IS NOT NULL AND refresh_token_expires_at < ?", time.Now()).
		Updates(map[string]interface{}{
			"refresh_token_hash":       nil,
			"refresh_token_expires_at": nil,
		})
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to cleanup expired refresh tokens").
			Duration(duration).
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logger.InfoWithContext(ctx, "Expired refresh tokens cleaned up").
			Int64("cleaned_count", result.RowsAffected).
			Duration(duration).
			Log()
	}

	return result.RowsAffected, nil
}

// Delete performs hard delete on user (permanent deletion)
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "Delete")

	logger.DebugWithContext(ctx, "Hard deleting user").
		Uint("user_id", id).
		Log()

	start := time.Now()
	result := r.db.WithContext(ctx).Unscoped().Delete(&model.User{}, id)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete user").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		logger.WarnWithContext(ctx, "No user found to delete").
			Uint("user_id", id).
			Log()
		return gorm.ErrRecordNotFound
	}

	logger.InfoWithContext(ctx, "User deleted successfully").
		Uint("user_id", id).
		Duration(duration).
		Log()

	return nil
}
