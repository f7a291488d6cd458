package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/auth"
)

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := NewUserService(repo, nil, time.Hour, nil, zap.NewNop())

	u1, _ := identity.NewUser("a@example.com", "A")
	u2, _ := identity.NewUser("b@example.com", "B")
	repo.On("FindAll", mock.Anything, mock.AnythingOfType("identity.UserFilter")).Return([]identity.User{*u1, *u2}, int64(12), nil)

	page, err := svc.List(ctx, identity.UserFilter{Filter: shared.Filter{Page: 2, PageSize: 10}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, "b@example.com", page.Items[1].Email)
}

func TestUserService_UpdateRole(t *testing.T) {
	ctx := context.Background()
	admin := uuid.New()

	t.Run("cannot change own role", func(t *testing.T) {
		svc := NewUserService(new(MockUserRepository), nil, time.Hour, nil, zap.NewNop())
		_, err := svc.UpdateRole(ctx, admin, admin, identity.RoleCliente)
		assert.ErrorIs(t, err, ErrSelfModification)
	})

	t.Run("promotes and revokes sessions", func(t *testing.T) {
		repo := new(MockUserRepository)
		blacklist := auth.NewInMemoryTokenBlacklist()
		svc := NewUserService(repo, blacklist, time.Hour, nil, zap.NewNop())

		user, _ := identity.NewUser("c@example.com", "C")
		repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("Save", mock.Anything, user).Return(nil)

		info, err := svc.UpdateRole(ctx, admin, user.ID, identity.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, identity.RoleAdmin, info.Role)

		revoked, err := blacklist.IsUserRevoked(ctx, user.ID.String(), time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("unknown role", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewUserService(repo, nil, time.Hour, nil, zap.NewNop())
		user, _ := identity.NewUser("d@example.com", "D")
		repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		_, err := svc.UpdateRole(ctx, admin, user.ID, identity.Role("ROOT"))
		assert.Error(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestUserService_SetActive(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	blacklist := auth.NewInMemoryTokenBlacklist()
	svc := NewUserService(repo, blacklist, time.Hour, nil, zap.NewNop())

	user, _ := identity.NewUser("e@example.com", "E")
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Save", mock.Anything, user).Return(nil)

	info, err := svc.SetActive(ctx, uuid.New(), user.ID, false)
	require.NoError(t, err)
	assert.False(t, info.IsActive)
	revoked, _ := blacklist.IsUserRevoked(ctx, user.ID.String(), time.Now().Add(-time.Minute))
	assert.True(t, revoked)

	info, err = svc.SetActive(ctx, uuid.New(), user.ID, true)
	require.NoError(t, err)
	assert.True(t, info.IsActive)
}
