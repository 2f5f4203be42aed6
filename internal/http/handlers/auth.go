package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/chronolog/internal/auth"
	"github.com/geocoder89/chronolog/internal/auth/tokenstore"
	"github.com/geocoder89/chronolog/internal/config"
	"github.com/geocoder89/chronolog/internal/domain/user"
	"github.com/geocoder89/chronolog/internal/security"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, email, passwordHash, timezone string) (user.User, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	jwt        *auth.Manager
	refresh    tokenstore.Store
	cfg        config.Config
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwtManager *auth.Manager, refresh tokenstore.Store, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		jwt:        jwtManager,
		refresh:    refresh,
		cfg:        cfg,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password, h.cfg.BcryptCost)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.userWriter.Create(cctx, req.Email, hash, h.cfg.ReferenceTZ)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "Email already registered", nil)
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	RespondData(ctx, http.StatusCreated, gin.H{"user_id": u.ID})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	// same message for unknown email and wrong password
	if err != nil {
		RespondUnauthorized(ctx, "Invalid credentials")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnauthorized(ctx, "Invalid credentials")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(foundUser.ID, foundUser.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	refreshToken, err := h.jwt.GenerateRefreshToken(foundUser.ID, foundUser.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate refresh token")
		return
	}

	err = h.refresh.Add(cctx, h.jwt.HashRefreshToken(refreshToken), h.jwt.RefreshTTL())

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	RespondData(ctx, http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// Refresh exchanges a live refresh token for a fresh access token. The
// refresh token itself is not rotated.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	var req user.RefreshRequest

	if !BindJSON(ctx, &req) {
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(req.RefreshToken)

	if err != nil {
		RespondUnauthorized(ctx, "Invalid refresh token")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	ok, err := h.refresh.Has(cctx, h.jwt.HashRefreshToken(req.RefreshToken))

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	if !ok {
		RespondUnauthorized(ctx, "Invalid refresh token")
		return
	}

	foundUser, err := h.users.GetByID(cctx, claims.UserID)

	if err != nil {
		RespondUnauthorized(ctx, "Invalid refresh token")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(foundUser.ID, foundUser.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	RespondData(ctx, http.StatusOK, gin.H{"access_token": accessToken})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	var req user.LogoutRequest

	if !BindJSON(ctx, &req) {
		return
	}

	_, err := h.jwt.VerifyRefreshToken(req.RefreshToken)

	if err != nil {
		RespondUnauthorized(ctx, "Invalid refresh token")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err = h.refresh.Remove(cctx, h.jwt.HashRefreshToken(req.RefreshToken))

	if err != nil {
		RespondInternal(ctx, "Could not log out")
		return
	}

	RespondData(ctx, http.StatusOK, gin.H{"message": "Successfully logged out"})
}
