package identity

import "github.com/induservicios/backend/internal/domain/shared"

// AggregateTypeUser is the aggregate type name for users
const AggregateTypeUser = "User"

// User domain event types
const (
	EventTypeUserRegistered  = "identity.user.registered"
	EventTypeUserSynced      = "identity.user.synced"
	EventTypeUserRoleChanged = "identity.user.role_changed"
)

// UserRegisteredEvent is published when a local user is first created
type UserRegisteredEvent struct {
	shared.BaseDomainEvent
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent
func NewUserRegisteredEvent(user *User) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRegistered, AggregateTypeUser, user.ID),
		Email:           user.Email,
		FullName:        user.FullName,
	}
}

// UserSyncedEvent is published when an existing user gets linked to Supabase
type UserSyncedEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
}

// NewUserSyncedEvent creates a new UserSyncedEvent
func NewUserSyncedEvent(user *User) *UserSyncedEvent {
	return &UserSyncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserSynced, AggregateTypeUser, user.ID),
		Email:           user.Email,
	}
}

// UserRoleChangedEvent is published when an admin changes a role
type UserRoleChangedEvent struct {
	shared.BaseDomainEvent
	Role Role `json:"role"`
}

// NewUserRoleChangedEvent creates a new UserRoleChangedEvent
func NewUserRoleChangedEvent(user *User) *UserRoleChangedEvent {
	return &UserRoleChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRoleChanged, AggregateTypeUser, user.ID),
		Role:            user.Role,
	}
}
