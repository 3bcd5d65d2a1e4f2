package usecase

import (
	"context"
	"testing"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/dto/request"
	"tour-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_RegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	registered, err := f.svc.Auth.Register(ctx, &request.RegisterRequest{
		Username: "traveler",
		Email:    "traveler@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleCustomer, registered.Role)
	assert.NotEmpty(t, registered.Token)

	_, err = f.svc.Auth.Register(ctx, &request.RegisterRequest{
		Username: "someone-else",
		Email:    "traveler@example.com",
		Password: "s3cret-pass",
	})
	assert.ErrorIs(t, err, ErrDuplicateAccount)

	_, err = f.svc.Auth.Login(ctx, &request.LoginRequest{Username: "traveler", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Auth.Login(ctx, &request.LoginRequest{Username: "nobody", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := f.svc.Auth.Login(ctx, &request.LoginRequest{
		Username:  "traveler@example.com",
		Password:  "s3cret-pass",
		UserAgent: "curl/8.0",
	})
	require.NoError(t, err)
	assert.Equal(t, baseTime.Add(defaultSessionTTL), session.ExpiresAt)

	actor, err := f.svc.Auth.ResolveSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, actor.UserID.String())
	assert.Equal(t, entity.RoleCustomer, actor.Role)

	require.NoError(t, f.svc.Auth.Logout(ctx, session.Token))
	_, err = f.svc.Auth.ResolveSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, f.svc.Auth.Logout(ctx, session.Token), ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.Auth.Logout(ctx, "not-a-token"), ErrSessionNotFound)
}

func TestAuth_SessionExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.svc.Auth.Register(ctx, &request.RegisterRequest{
		Username: "traveler",
		Email:    "traveler@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	f.clock.Advance(defaultSessionTTL + time.Second)
	_, err = f.svc.Auth.ResolveSession(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAuth_InactiveAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	hash, err := utils.HashPassword("s3cret-pass")
	require.NoError(t, err)
	f.store.SeedUser(entity.User{
		Base:         entity.Base{ID: uuid.New()},
		Username:     "operator",
		Email:        "ops@example.com",
		PasswordHash: hash,
		Role:         entity.RoleOperator,
		IsActive:     false,
	})

	_, err = f.svc.Auth.Login(ctx, &request.LoginRequest{Username: "operator", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrAccountDisabled)

	_, err = f.svc.Auth.Register(ctx, &request.RegisterRequest{Username: "x", Email: "bad", Password: "short"})
	assert.ErrorIs(t, err, ErrValidation)
}
