package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/staybook/auth-service/internal/model"
)

type JWTService struct {
	secretKey  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewJWTService(secretKey string, accessTTL, refreshTTL time.Duration) *JWTService {
	return &JWTService{
		secretKey:  secretKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTokenClaims is the typed view of a validated access token.
type AccessTokenClaims struct {
	UserID       uint
	Email        string
	Role         string
	TokenVersion int
	TokenID      string
	ExpiresAt    time.Time
}

// AccessTTL returns the configured access token lifetime.
func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (s *JWTService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// GenerateAccessToken mints a short-lived signed token for the user. Each
// token carries a unique jti so individual tokens can be blacklisted on
// logout, and the user's token_version so bulk revocation works.
func (s *JWTService) GenerateAccessToken(user *model.User) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"user_id":       user.ID,
		"email":         user.Email,
		"role":          user.Role,
		"token_version": user.TokenVersion,
		"jti":           jti,
		"exp":           now.Add(s.accessTTL).Unix(),
		"iat":           now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.secretKey))
	if err != nil {
		return "", "", err
	}

	return tokenString, jti, nil
}

// GenerateRefreshToken creates a secure opaque refresh token.
func (s *JWTService) GenerateRefreshToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return base64.URLEncoding.EncodeToString(bytes), nil
}

// HashRefreshToken digests a refresh token for storage. SHA-256 keeps the
// lookup an indexed exact match; the 256-bit random input makes offline
// guessing infeasible without a salt.
func (s *JWTService) HashRefreshToken(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}

// ValidateToken parses and verifies a signed access token, returning typed
// claims. Expiry is enforced by the parser.
func (s *JWTService) ValidateToken(tokenString string) (*AccessTokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return parseAccessClaims(claims)
}

func parseAccessClaims(claims jwt.MapClaims) (*AccessTokenClaims, error) {
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, errors.New("missing user_id claim")
	}

	email, _ := claims["email"].(string)

	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return nil, errors.New("missing role claim")
	}

	version, ok := claims["token_version"].(float64)
	if !ok {
		return nil, errors.New("missing token_version claim")
	}

	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return nil, errors.New("missing jti claim")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, errors.New("missing exp claim")
	}

	return &AccessTokenClaims{
		UserID:       uint(userID),
		Email:        email,
		Role:         role,
		TokenVersion: int(version),
		TokenID:      jti,
		ExpiresAt:    time.Unix(int64(exp), 0),
	}, nil
}
