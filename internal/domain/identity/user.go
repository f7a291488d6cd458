package identity

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/induservicios/backend/internal/domain/shared"
)

// Role is the authorization role of a local user
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleCliente Role = "CLIENTE"
)

// IsValid reports whether the role is known
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleCliente
}

// Password cost for bcrypt
const bcryptCost = 12

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is the local mirror of a Supabase account.
// SupabaseUID is nil only for legacy users that log in with a local password.
type User struct {
	shared.BaseAggregateRoot
	SupabaseUID    *string      `gorm:"type:varchar(64);uniqueIndex" json:"supabase_uid,omitempty"`
	Email          string       `gorm:"type:varchar(200);not null;uniqueIndex" json:"email"`
	FullName       string       `gorm:"type:varchar(200);not null" json:"full_name"`
	Phone          string       `gorm:"type:varchar(30)" json:"phone"`
	DocumentType   DocumentType `gorm:"type:varchar(10)" json:"document_type,omitempty"`
	DocumentNumber string       `gorm:"type:varchar(20)" json:"document_number,omitempty"`
	Role           Role         `gorm:"type:varchar(20);not null;default:'CLIENTE'" json:"role"`
	PasswordHash   string       `gorm:"type:varchar(255)" json:"-"`
	IsActive       bool         `gorm:"not null" json:"is_active"`
	LastLoginAt    *time.Time   `json:"last_login_at,omitempty"`
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// NewUser creates a client user
func NewUser(email, fullName string) (*User, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		fullName = strings.Split(email, "@")[0]
	}
	if len(fullName) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Full name cannot exceed 200 characters")
	}

	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		FullName:          fullName,
		Role:              RoleCliente,
		IsActive:          true,
	}
	user.AddDomainEvent(NewUserRegisteredEvent(user))
	return user, nil
}

// NewSupabaseUser creates a client user linked to a Supabase account
func NewSupabaseUser(supabaseUID, email, fullName string) (*User, error) {
	if strings.TrimSpace(supabaseUID) == "" {
		return nil, shared.NewDomainError("INVALID_SUPABASE_UID", "Supabase UID cannot be empty")
	}
	user, err := NewUser(email, fullName)
	if err != nil {
		return nil, err
	}
	uid := strings.TrimSpace(supabaseUID)
	user.SupabaseUID = &uid
	return user, nil
}

// LinkSupabase attaches a Supabase account to an existing user.
// A user already linked to a different account cannot be relinked.
func (u *User) LinkSupabase(supabaseUID string) error {
	supabaseUID = strings.TrimSpace(supabaseUID)
	if supabaseUID == "" {
		return shared.NewDomainError("INVALID_SUPABASE_UID", "Supabase UID cannot be empty")
	}
	if u.SupabaseUID != nil {
		if *u.SupabaseUID == supabaseUID {
			return nil
		}
		return shared.NewDomainError("SUPABASE_UID_CONFLICT", "User is already linked to another account")
	}
	u.SupabaseUID = &supabaseUID
	u.Touch()
	u.IncrementVersion()
	u.AddDomainEvent(NewUserSyncedEvent(u))
	return nil
}

// UpdateProfile changes the contact details of the user
func (u *User) UpdateProfile(fullName, phone string) error {
	fullName = strings.TrimSpace(fullName)
	if fullName != "" {
		if len(fullName) > 200 {
			return shared.NewDomainError("INVALID_NAME", "Full name cannot exceed 200 characters")
		}
		u.FullName = fullName
	}
	phone = strings.TrimSpace(phone)
	if len(phone) > 30 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 30 characters")
	}
	if phone != "" {
		u.Phone = phone
	}
	u.Touch()
	u.IncrementVersion()
	return nil
}

// SetDocument sets the identity document after validating its check digit
func (u *User) SetDocument(docType DocumentType, number string) error {
	number = strings.TrimSpace(number)
	if err := ValidateDocument(docType, number); err != nil {
		return err
	}
	u.DocumentType = docType
	u.DocumentNumber = number
	u.Touch()
	u.IncrementVersion()
	return nil
}

// SetPassword stores a bcrypt hash for legacy local login
func (u *User) SetPassword(password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = string(hash)
	u.Touch()
	u.IncrementVersion()
	return nil
}

// VerifyPassword checks a password against the local hash
func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangeRole assigns a new role
func (u *User) ChangeRole(role Role) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Unknown role")
	}
	if u.Role == role {
		return nil
	}
	u.Role = role
	u.Touch()
	u.IncrementVersion()
	u.AddDomainEvent(NewUserRoleChangedEvent(u))
	return nil
}

// Activate enables login
func (u *User) Activate() {
	if u.IsActive {
		return
	}
	u.IsActive = true
	u.Touch()
	u.IncrementVersion()
}

// Deactivate disables login
func (u *User) Deactivate() {
	if !u.IsActive {
		return
	}
	u.IsActive = false
	u.Touch()
	u.IncrementVersion()
}

// RecordLogin stamps the last login time
func (u *User) RecordLogin() {
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the format of an email address
func ValidateEmail(email string) error {
	return validateEmail(NormalizeEmail(email))
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

// UserFilter contains filter options for querying users
type UserFilter struct {
	shared.Filter
	Role     *Role
	IsActive *bool
}
