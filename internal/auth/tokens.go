// Package auth issues and verifies the platform's credentials: short-lived
// access JWTs, rotating refresh tokens persisted as hashes, and single-use
// magic-link tokens sent over email.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"blog-backend/internal/database"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TokenTypeAccess    = "access"
	TokenTypeMagicLink = "magic_link"

	DefaultAccessTTL    = 30 * time.Minute
	DefaultRefreshTTL   = 30 * 24 * time.Hour
	DefaultMagicLinkTTL = 15 * time.Minute
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongType    = errors.New("token type mismatch")
)

type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies the JWT-based tokens (access and magic
// link). Refresh tokens are opaque and handled by RefreshStore instead.
type TokenManager struct {
	secret       []byte
	accessTTL    time.Duration
	magicLinkTTL time.Duration
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{
		secret:       []byte(secret),
		accessTTL:    DefaultAccessTTL,
		magicLinkTTL: DefaultMagicLinkTTL,
	}
}

func (m *TokenManager) AccessTTL() time.Duration { return m.accessTTL }

func (m *TokenManager) issue(subject, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return token, nil
}

// IssueAccessToken returns a signed access token for the given user.
func (m *TokenManager) IssueAccessToken(userID uuid.UUID) (string, error) {
	return m.issue(userID.String(), TokenTypeAccess, m.accessTTL)
}

// IssueMagicLinkToken returns a signed login token bound to an email address.
func (m *TokenManager) IssueMagicLinkToken(email string) (string, error) {
	return m.issue(email, TokenTypeMagicLink, m.magicLinkTTL)
}

// Verify parses a token, checks the signature and expiry, and enforces the
// expected token type so an access token can never stand in for a magic link
// or vice versa.
func (m *TokenManager) Verify(token, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if claims.Type != wantType {
		return nil, ErrWrongType
	}
	return claims, nil
}

// RefreshStore manages opaque refresh tokens. Only the SHA-256 of a token is
// persisted, so a database leak does not leak usable credentials.
type RefreshStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewRefreshStore(db *gorm.DB) *RefreshStore {
	return &RefreshStore{db: db, ttl: DefaultRefreshTTL}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Issue creates and persists a new refresh token for the user.
func (s *RefreshStore) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}

	record := database.RefreshToken{
		Id:        uuid.New(),
		UserId:    userID,
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return token, nil
}

// Rotate revokes the presented token and issues a replacement in one
// transaction. A revoked or expired token fails with ErrInvalidToken; reuse
// of an already-rotated token is therefore detectable.
func (s *RefreshStore) Rotate(ctx context.Context, token string) (uuid.UUID, string, error) {
	var userID uuid.UUID
	var next string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record database.RefreshToken
		if err := tx.Where("token_hash = ? AND revoked = ?", hashToken(token), false).
			First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidToken
			}
			return fmt.Errorf("failed to look up refresh token: %w", err)
		}
		if time.Now().After(record.ExpiresAt) {
			return ErrInvalidToken
		}

		if err := tx.Model(&record).Update("revoked", true).Error; err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}

		replacement, err := randomToken()
		if err != nil {
			return err
		}
		if err := tx.Create(&database.RefreshToken{
			Id:        uuid.New(),
			UserId:    record.UserId,
			TokenHash: hashToken(replacement),
			ExpiresAt: time.Now().Add(s.ttl),
		}).Error; err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}

		userID = record.UserId
		next = replacement
		return nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	return userID, next, nil
}

// RevokeAll invalidates every outstanding refresh token for a user.
func (s *RefreshStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Model(&database.RefreshToken{}).
		Where("user_id = ?", userID).
		Update("revoked", true).Error
}
