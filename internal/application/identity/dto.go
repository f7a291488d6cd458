package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/infrastructure/auth"
)

// SignUpInput contains the input for account registration
type SignUpInput struct {
	Email          string
	Password       string
	FullName       string
	Phone          string
	DocumentType   identity.DocumentType
	DocumentNumber string
}

// SignInInput contains the input for password login
type SignInInput struct {
	Email    string
	Password string
}

// AuthResult is returned by every flow that logs a user in
type AuthResult struct {
	Tokens *auth.TokenPair `json:"tokens"`
	User   UserInfo        `json:"user"`
	// Supabase is nil for legacy logins and for sign-ups awaiting email confirmation
	Supabase *auth.SupabaseSession `json:"supabase,omitempty"`
	// RequiresConfirmation is set when Supabase must confirm the email first
	RequiresConfirmation bool `json:"requires_confirmation"`
}

// UserInfo is the public view of a local user
type UserInfo struct {
	ID             uuid.UUID             `json:"id"`
	Email          string                `json:"email"`
	FullName       string                `json:"full_name"`
	Phone          string                `json:"phone,omitempty"`
	DocumentType   identity.DocumentType `json:"document_type,omitempty"`
	DocumentNumber string                `json:"document_number,omitempty"`
	Role           identity.Role         `json:"role"`
	IsActive       bool                  `json:"is_active"`
	Linked         bool                  `json:"linked"`
	LastLoginAt    *time.Time            `json:"last_login_at,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// ToUserInfo converts a domain user
func ToUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		Phone:          u.Phone,
		DocumentType:   u.DocumentType,
		DocumentNumber: u.DocumentNumber,
		Role:           u.Role,
		IsActive:       u.IsActive,
		Linked:         u.SupabaseUID != nil,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
	}
}

// UpdateProfileInput contains the editable fields of the own profile
type UpdateProfileInput struct {
	FullName       string
	Phone          string
	DocumentType   identity.DocumentType
	DocumentNumber string
}

// LogoutInput identifies the tokens to revoke
type LogoutInput struct {
	AccessClaims *auth.Claims
	// RefreshToken is optional; when valid it is revoked too
	RefreshToken string
}
