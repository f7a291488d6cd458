package handler

import (
	"github.com/induservicios/backend/internal/domain/identity"
)

// SignUpRequest is the registration form
type SignUpRequest struct {
	Email          string                `json:"email" binding:"required,email,max=200"`
	Password       string                `json:"password" binding:"required,min=8,max=128"`
	FullName       string                `json:"full_name" binding:"required,min=2,max=200"`
	Phone          string                `json:"phone" binding:"max=30"`
	DocumentType   identity.DocumentType `json:"document_type" binding:"omitempty,oneof=DNI RUC CE"`
	DocumentNumber string                `json:"document_number" binding:"max=20"`
}

// SignInRequest is the login form
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email,max=200"`
	Password string `json:"password" binding:"required,max=128"`
}

// RefreshTokenRequest carries a local refresh token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally names the refresh token to revoke with the access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SupabaseSyncRequest links a Supabase session to a local account
type SupabaseSyncRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
}

// PasswordResetRequest asks for a reset email
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email,max=200"`
}

// PasswordResetConfirmRequest sets the new password. Token is the Supabase
// recovery access token, or the local reset token when Supabase is disabled.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

// UpdateProfileRequest edits the caller's own profile
type UpdateProfileRequest struct {
	FullName       string                `json:"full_name" binding:"required,min=2,max=200"`
	Phone          string                `json:"phone" binding:"max=30"`
	DocumentType   identity.DocumentType `json:"document_type" binding:"omitempty,oneof=DNI RUC CE"`
	DocumentNumber string                `json:"document_number" binding:"max=20"`
}
