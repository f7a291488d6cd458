package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/auth"
	"github.com/induservicios/backend/internal/infrastructure/logger"
)

// ErrSelfModification is returned when an admin targets their own account
var ErrSelfModification = shared.NewDomainError("SELF_MODIFICATION", "You cannot change your own role or status")

// UserService handles admin user management
type UserService struct {
	users     identity.UserRepository
	blacklist auth.TokenBlacklist
	// sessionTTL bounds how long a user revocation is remembered
	sessionTTL time.Duration
	events     shared.EventPublisher
	logger     *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	users identity.UserRepository,
	blacklist auth.TokenBlacklist,
	sessionTTL time.Duration,
	events shared.EventPublisher,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:      users,
		blacklist:  blacklist,
		sessionTTL: sessionTTL,
		events:     events,
		logger:     logger,
	}
}

// List returns a page of users
func (s *UserService) List(ctx context.Context, filter identity.UserFilter) (shared.Paginated[UserInfo], error) {
	filter.Normalize()
	users, total, err := s.users.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[UserInfo]{}, err
	}
	items := make([]UserInfo, len(users))
	for i := range users {
		items[i] = ToUserInfo(&users[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// GetByID returns a user
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*UserInfo, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// UpdateRole changes the role of another user. Existing sessions are revoked
// so the new role applies on the next login.
func (s *UserService) UpdateRole(ctx context.Context, actorID, id uuid.UUID, role identity.Role) (*UserInfo, error) {
	if actorID == id {
		return nil, ErrSelfModification
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := user.Role
	if err := user.ChangeRole(role); err != nil {
		return nil, err
	}
	if previous == user.Role {
		info := ToUserInfo(user)
		return &info, nil
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.revokeSessions(ctx, user.ID)

	logger.Or(ctx, s.logger).Info("User role changed",
		zap.String("user_id", user.ID.String()),
		zap.String("actor_id", actorID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(role)))
	info := ToUserInfo(user)
	return &info, nil
}

// SetActive activates or deactivates another user. Deactivation revokes
// every token already issued.
func (s *UserService) SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) (*UserInfo, error) {
	if actorID == id {
		return nil, ErrSelfModification
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		user.Activate()
	} else {
		user.Deactivate()
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	if !active {
		s.revokeSessions(ctx, user.ID)
	}

	logger.Or(ctx, s.logger).Info("User status changed",
		zap.String("user_id", user.ID.String()),
		zap.String("actor_id", actorID.String()),
		zap.Bool("active", active))
	info := ToUserInfo(user)
	return &info, nil
}

func (s *UserService) save(ctx context.Context, user *identity.User) error {
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	if err := shared.PublishPending(ctx, s.events, user); err != nil {
		logger.Or(ctx, s.logger).Warn("Failed to publish user events", zap.Error(err))
	}
	return nil
}

func (s *UserService) revokeSessions(ctx context.Context, id uuid.UUID) {
	if s.blacklist == nil {
		return
	}
	if err := s.blacklist.RevokeUser(ctx, id.String(), s.sessionTTL); err != nil {
		logger.Or(ctx, s.logger).Warn("Failed to revoke user sessions",
			zap.String("user_id", id.String()), zap.Error(err))
	}
}
