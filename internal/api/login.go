package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"blog-backend/internal/auth"
	"blog-backend/internal/database"
	"blog-backend/internal/email"
	"blog-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// AuthService handles the login flows: password, refresh rotation, and
// email magic links. Failed password logins deliberately return the same
// message whether the email or the password was wrong.
type AuthService struct {
	db          *gorm.DB
	tokens      *auth.TokenManager
	refresh     *auth.RefreshStore
	mailer      *email.Sender
	frontendURL string
}

func NewAuthService(db *gorm.DB, tokens *auth.TokenManager, refresh *auth.RefreshStore, mailer *email.Sender, frontendURL string) *AuthService {
	return &AuthService{db: db, tokens: tokens, refresh: refresh, mailer: mailer, frontendURL: frontendURL}
}

func (s *AuthService) AddRoutes(r chi.Router) {
	r.Route("/login", func(r chi.Router) {
		r.Post("/access-token", RestHandler(s.Login))
		r.Post("/refresh-token", RestHandler(s.Refresh))
		r.Post("/magic-link", RestHandler(s.RequestMagicLink))
		r.Post("/magic-link/verify", RestHandler(s.VerifyMagicLink))
	})
	r.Post("/password-recovery/{email}", RestHandler(s.RecoverPassword))
}

func (s *AuthService) issueTokens(user *database.User, r *http.Request) (any, error) {
	access, err := s.tokens.IssueAccessToken(user.Id)
	if err != nil {
		slog.Error("error issuing access token", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error issuing token")
	}

	refresh, err := s.refresh.Issue(r.Context(), user.Id)
	if err != nil {
		slog.Error("error issuing refresh token", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error issuing token")
	}

	return api.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *AuthService) Login(r *http.Request) (any, error) {
	req, err := ParseRequest[api.LoginRequest](r)
	if err != nil {
		return nil, err
	}

	var user database.User
	if err := s.db.WithContext(r.Context()).First(&user, "email = ?", req.Email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusUnauthorized, "incorrect email or password")
		}
		slog.Error("error looking up user", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error logging in")
	}

	if !auth.VerifyPassword(user.HashedPassword, req.Password) {
		return nil, CodedErrorf(http.StatusUnauthorized, "incorrect email or password")
	}
	if !user.IsActive {
		return nil, CodedErrorf(http.StatusForbidden, "inactive user")
	}

	return s.issueTokens(&user, r)
}

func (s *AuthService) Refresh(r *http.Request) (any, error) {
	req, err := ParseRequest[api.RefreshRequest](r)
	if err != nil {
		return nil, err
	}

	userID, next, err := s.refresh.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return nil, CodedErrorf(http.StatusUnauthorized, "invalid or expired refresh token")
		}
		slog.Error("error rotating refresh token", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error refreshing token")
	}

	access, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		slog.Error("error issuing access token", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error refreshing token")
	}

	return api.Token{
		AccessToken:  access,
		RefreshToken: next,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// RequestMagicLink always reports success so the endpoint cannot be used to
// probe which emails have accounts.
func (s *AuthService) RequestMagicLink(r *http.Request) (any, error) {
	req, err := ParseRequest[api.MagicLinkRequest](r)
	if err != nil {
		return nil, err
	}
	if req.Email == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "email is required")
	}

	response := api.Message{Message: "If the account exists, a sign-in link has been sent"}

	var user database.User
	if err := s.db.WithContext(r.Context()).First(&user, "email = ?", req.Email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response, nil
		}
		slog.Error("error looking up user for magic link", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error sending magic link")
	}

	token, err := s.tokens.IssueMagicLinkToken(user.Email)
	if err != nil {
		slog.Error("error issuing magic link token", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error sending magic link")
	}

	link := fmt.Sprintf("%s/login/magic-link?token=%s", s.frontendURL, token)
	if err := s.mailer.SendMagicLink(r.Context(), user.Email, link); err != nil {
		slog.Error("error sending magic link email", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error sending magic link")
	}

	return response, nil
}

func (s *AuthService) VerifyMagicLink(r *http.Request) (any, error) {
	req, err := ParseRequest[api.MagicLinkVerifyRequest](r)
	if err != nil {
		return nil, err
	}

	claims, err := s.tokens.Verify(req.Token, auth.TokenTypeMagicLink)
	if err != nil {
		return nil, CodedErrorf(http.StatusUnauthorized, "invalid or expired magic link")
	}

	var user database.User
	if err := s.db.WithContext(r.Context()).First(&user, "email = ?", claims.Subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusUnauthorized, "invalid or expired magic link")
		}
		slog.Error("error looking up user for magic link", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error verifying magic link")
	}
	if !user.IsActive {
		return nil, CodedErrorf(http.StatusForbidden, "inactive user")
	}

	return s.issueTokens(&user, r)
}

// RecoverPassword emails a reset link built from a magic-link token. Same
// anti-probing behavior as RequestMagicLink.
func (s *AuthService) RecoverPassword(r *http.Request) (any, error) {
	address := chi.URLParam(r, "email")
	if address == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "email is required")
	}

	response := api.Message{Message: "If the account exists, a recovery email has been sent"}

	var user database.User
	if err := s.db.WithContext(r.Context()).First(&user, "email = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response, nil
		}
		slog.Error("error looking up user for password recovery", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error sending recovery email")
	}

	token, err := s.tokens.IssueMagicLinkToken(user.Email)
	if err != nil {
		slog.Error("error issuing recovery token", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error sending recovery email")
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
	if err := s.mailer.SendPasswordReset(r.Context(), user.Email, link); err != nil {
		slog.Error("error sending recovery email", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error sending recovery email")
	}

	return response, nil
}
