package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/staybook/auth-service/config"
	"github.com/staybook/auth-service/internal/handler"
	"github.com/staybook/auth-service/internal/middleware"
	"github.com/staybook/auth-service/internal/model"
	"github.com/staybook/auth-service/internal/repository"
	"github.com/staybook/auth-service/internal/service"
	"github.com/staybook/auth-service/pkg/circuit"
	"github.com/staybook/auth-service/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type apiFixture struct {
	engine *gin.Engine
	db     *gorm.DB
	jwt    *service.JWTService
}

func newAPIFixture(t *testing.T) *apiFixture {
	return newAPIFixtureWithLimits(t, config.RateLimitConfig{
		Request:      1000,
		Duration:     60,
		AuthRequest:  100,
		AuthDuration: 60,
	})
}

func newAPIFixtureWithLimits(t *testing.T, limits config.RateLimitConfig) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.ActionToken{}, &model.LoginAudit{}))

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewActionTokenRepository(db)
	auditRepo := repository.NewLoginAuditRepository(db)

	redisClient := redis.NewClient(redis.Config{Enabled: false}, zap.NewNop())
	jwtService := service.NewJWTService("test-secret", 15*time.Minute, 7*24*time.Hour)
	blacklist := service.NewTokenBlacklist(redisClient)

	breaker := circuit.NewBreaker("smtp-test", circuit.DefaultConfig(), zap.NewNop())
	mailer, err := service.NewMailer(service.MailerConfig{BaseURL: "https://app.staybook.local"}, breaker)
	require.NoError(t, err)

	userService := service.NewUserService(userRepo, tokenRepo, auditRepo, jwtService, blacklist, mailer,
		service.LockoutPolicy{MaxFailedLogins: 5, LockoutDuration: 15 * time.Minute},
		service.TokenPolicy{VerificationTTL: 24 * time.Hour, ResetTTL: time.Hour},
	)

	cfg := &config.Config{RateLimit: limits}

	engine := NewRouter(
		handler.NewAuthHandler(userService),
		handler.NewUserHandler(userService),
		handler.NewAdminHandler(userService),
		handler.NewHealthHandler(db, redisClient),
		handler.NewSessionHandler(blacklist, redisClient),
		middleware.NewJWTMiddleware(jwtService, userRepo, blacklist),
		cfg,
	).SetupRoutes()

	return &apiFixture{engine: engine, db: db, jwt: jwtService}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// seedUser inserts an account directly, bypassing the registration flow.
func (f *apiFixture) seedUser(t *testing.T, email, password, role string, verified bool) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		FirstName:    "Seeded",
		LastName:     "User",
		Email:        email,
		Phone:        "+14155550100",
		Password:     string(hash),
		Role:         role,
		IsVerified:   verified,
		TokenVersion: 1,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *apiFixture) login(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()

	w := f.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := f.decode(t, w)
	return body["token"].(string), body["refresh_token"].(string)
}

func TestAPI_Health(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/health/deep", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_RegisterValidation(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/auth/register", gin.H{
		"first_name": "A",
		"email":      "not-an-email",
		"password":   "short",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := f.decode(t, w)
	assert.Contains(t, body, "details")
}

func TestAPI_RegisterAndLoginFlow(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/auth/register", gin.H{
		"first_name": "Test",
		"last_name":  "Guest",
		"email":      "guest@staybook.local",
		"phone":      "+14155550100",
		"password":   "Sup3rSecret!",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Unverified accounts cannot log in.
	w = f.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    "guest@staybook.local",
		"password": "Sup3rSecret!",
	}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Bogus verification token is refused.
	w = f.do(t, http.MethodPost, "/api/v1/auth/verify-email", gin.H{
		"token": "bogus",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.NoError(t, f.db.Model(&model.User{}).
		Where("email = ?", "guest@staybook.local").
		Update("is_verified", true).Error)

	access, refresh := f.login(t, "guest@staybook.local", "Sup3rSecret!")

	w = f.do(t, http.MethodGet, "/api/v1/users/me", nil, access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "guest@staybook.local")

	// Rotation issues a new pair and kills the old access token.
	w = f.do(t, http.MethodPost, "/api/v1/auth/refresh", gin.H{
		"refresh_token": refresh,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rotated := f.decode(t, w)
	newAccess := rotated["token"].(string)

	w = f.do(t, http.MethodGet, "/api/v1/users/me", nil, access)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/users/me", nil, newAccess)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_WrongCredentials(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "guest@staybook.local", "Sup3rSecret!", "user", true)

	w := f.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    "guest@staybook.local",
		"password": "WrongSecret!",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    "nobody@staybook.local",
		"password": "Sup3rSecret!",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_Logout(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "guest@staybook.local", "Sup3rSecret!", "user", true)

	access, _ := f.login(t, "guest@staybook.local", "Sup3rSecret!")

	w := f.do(t, http.MethodPost, "/api/v1/auth/logout", nil, access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The session is dead.
	w = f.do(t, http.MethodGet, "/api/v1/users/me", nil, access)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_ForgotPasswordIsGeneric(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "guest@staybook.local", "Sup3rSecret!", "user", true)

	known := f.do(t, http.MethodPost, "/api/v1/auth/forgot-password", gin.H{
		"email": "guest@staybook.local",
	}, "")
	unknown := f.do(t, http.MethodPost, "/api/v1/auth/forgot-password", gin.H{
		"email": "nobody@staybook.local",
	}, "")

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.JSONEq(t, known.Body.String(), unknown.Body.String())
}

func TestAPI_ResendVerificationIsGeneric(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "guest@staybook.local", "Sup3rSecret!", "user", true)

	verified := f.do(t, http.MethodPost, "/api/v1/auth/resend-verification", gin.H{
		"email": "guest@staybook.local",
	}, "")
	unknown := f.do(t, http.MethodPost, "/api/v1/auth/resend-verification", gin.H{
		"email": "nobody@staybook.local",
	}, "")

	assert.Equal(t, http.StatusOK, verified.Code, verified.Body.String())
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.JSONEq(t, verified.Body.String(), unknown.Body.String())
}

func TestAPI_AuthRateLimitScoped(t *testing.T) {
	f := newAPIFixtureWithLimits(t, config.RateLimitConfig{
		Request:      1000,
		Duration:     60,
		AuthRequest:  2,
		AuthDuration: 60,
	})
	f.seedUser(t, "guest@staybook.local", "Sup3rSecret!", "user", true)

	creds := gin.H{"email": "guest@staybook.local", "password": "Sup3rSecret!"}

	for i := 0; i < 2; i++ {
		w := f.do(t, http.MethodPost, "/api/v1/auth/login", creds, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := f.do(t, http.MethodPost, "/api/v1/auth/login", creds, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// The tight window covers only the auth group. The rest of /api/v1
	// keeps answering for the same client.
	w = f.do(t, http.MethodGet, "/api/v1/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_AdminRoutes(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "admin@staybook.local", "Admin@123", "admin", true)
	f.seedUser(t, "guest@staybook.local", "Sup3rSecret!", "user", true)

	userToken, _ := f.login(t, "guest@staybook.local", "Sup3rSecret!")
	adminToken, _ := f.login(t, "admin@staybook.local", "Admin@123")

	// Plain users are refused.
	w := f.do(t, http.MethodGet, "/api/v1/admin/users", nil, userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Unauthenticated requests are refused.
	w = f.do(t, http.MethodGet, "/api/v1/admin/users", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/admin/users", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := f.decode(t, w)
	assert.EqualValues(t, 2, body["total"])

	w = f.do(t, http.MethodGet, "/api/v1/admin/sessions/blacklist", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "memory")
}
