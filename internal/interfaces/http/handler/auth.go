package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	identityapp "github.com/induservicios/backend/internal/application/identity"
	"github.com/induservicios/backend/internal/interfaces/http/middleware"
)

// AuthService is the identity service as seen by the auth endpoints
type AuthService interface {
	SignUp(ctx context.Context, input identityapp.SignUpInput) (*identityapp.AuthResult, error)
	SignIn(ctx context.Context, input identityapp.SignInInput) (*identityapp.AuthResult, error)
	LegacyLogin(ctx context.Context, input identityapp.SignInInput) (*identityapp.AuthResult, error)
	SyncFromSupabaseToken(ctx context.Context, accessToken string) (*identityapp.AuthResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Refresh(ctx context.Context, refreshToken string) (*identityapp.AuthResult, error)
	Logout(ctx context.Context, input identityapp.LogoutInput) error
	Me(ctx context.Context, userID uuid.UUID) (*identityapp.UserInfo, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input identityapp.UpdateProfileInput) (*identityapp.UserInfo, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes mounts the public and authenticated auth routes
func (h *AuthHandler) RegisterRoutes(public, authed gin.IRoutes) {
	public.POST("/auth/signup", h.SignUp)
	public.POST("/auth/signin", h.SignIn)
	public.POST("/auth/login", h.LegacyLogin)
	public.POST("/auth/refresh", h.Refresh)
	public.POST("/auth/supabase/sync", h.SyncSupabase)
	public.POST("/auth/password/forgot", h.RequestPasswordReset)
	public.POST("/auth/password/reset", h.ResetPassword)

	authed.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)
	authed.PUT("/auth/me", h.UpdateProfile)
}

// SignUp registers a customer. 201 also covers sign-ups awaiting email confirmation.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.authService.SignUp(c.Request.Context(), identityapp.SignUpInput{
		Email:          req.Email,
		Password:       req.Password,
		FullName:       req.FullName,
		Phone:          req.Phone,
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// SignIn logs in through Supabase
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.authService.SignIn(c.Request.Context(), identityapp.SignInInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// LegacyLogin checks the local password hash
func (h *AuthHandler) LegacyLogin(c *gin.Context) {
	var req SignInRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.authService.LegacyLogin(c.Request.Context(), identityapp.SignInInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SyncSupabase exchanges a Supabase access token for local tokens
func (h *AuthHandler) SyncSupabase(c *gin.Context) {
	var req SupabaseSyncRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.authService.SyncFromSupabaseToken(c.Request.Context(), req.AccessToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Refresh rotates the local token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RequestPasswordReset always answers 200 so accounts cannot be enumerated
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"message": "If the email is registered, a reset link has been sent"})
}

// ResetPassword sets a new password from a recovery token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"message": "Password updated"})
}

// Logout revokes the caller's access token and the given refresh token
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	// the body is optional
	_ = c.ShouldBindJSON(&req)

	err := h.authService.Logout(c.Request.Context(), identityapp.LogoutInput{
		AccessClaims: middleware.GetJWTClaims(c),
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Me returns the caller's account
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// UpdateProfile edits the caller's own profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	var req UpdateProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, identityapp.UpdateProfileInput{
		FullName:       req.FullName,
		Phone:          req.Phone,
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}
