package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfold/mailfold/internal/models"
	"github.com/mailfold/mailfold/internal/testutil"
)

func TestResolveScopeDomain(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	domain := &models.Domain{OwnerID: "owner-1", Name: "x.com", IsVerified: true}
	require.NoError(t, CreateDomain(ctx, pool, domain))

	scope, err := ResolveScope(ctx, pool, "hello", "x.com")
	require.NoError(t, err)
	require.NotNil(t, scope)
	assert.Equal(t, domain.ID, scope.Domain.ID)
	assert.True(t, scope.Domain.IsVerified)
	assert.Nil(t, scope.Alias)
	assert.Equal(t, "domain:"+domain.ID, scope.Key())
}

func TestResolveScopeAlias(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	domain := &models.Domain{OwnerID: "owner-1", Name: "x.com", IsVerified: true}
	require.NoError(t, CreateDomain(ctx, pool, domain))

	alias := &models.Alias{DomainID: domain.ID, LocalPart: "hello", IsEnabled: true}
	require.NoError(t, CreateAlias(ctx, pool, alias))

	scope, err := ResolveScope(ctx, pool, "hello", "x.com")
	require.NoError(t, err)
	require.NotNil(t, scope)
	require.NotNil(t, scope.Alias)
	assert.Equal(t, alias.ID, scope.Alias.ID)
	assert.Equal(t, "alias:"+alias.ID, scope.Key())

	// A local part with no alias row still resolves to the domain.
	scope, err = ResolveScope(ctx, pool, "other", "x.com")
	require.NoError(t, err)
	require.NotNil(t, scope)
	assert.Nil(t, scope.Alias)
}

func TestResolveScopeUnknownDomain(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	scope, err := ResolveScope(context.Background(), pool, "hello", "nowhere.test")
	require.NoError(t, err)
	assert.Nil(t, scope)
}

func TestResolveScopeReturnsFlagsAsStored(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	domain := &models.Domain{OwnerID: "owner-1", Name: "x.com", IsVerified: false}
	require.NoError(t, CreateDomain(ctx, pool, domain))

	alias := &models.Alias{DomainID: domain.ID, LocalPart: "hello", IsEnabled: false}
	require.NoError(t, CreateAlias(ctx, pool, alias))

	// Resolution reports state and leaves policy to the caller.
	scope, err := ResolveScope(ctx, pool, "hello", "x.com")
	require.NoError(t, err)
	require.NotNil(t, scope)
	assert.False(t, scope.Domain.IsVerified)
	require.NotNil(t, scope.Alias)
	assert.False(t, scope.Alias.IsEnabled)

	require.NoError(t, SetDomainVerified(ctx, pool, domain.ID, true))
	require.NoError(t, SetAliasEnabled(ctx, pool, alias.ID, true))

	scope, err = ResolveScope(ctx, pool, "hello", "x.com")
	require.NoError(t, err)
	assert.True(t, scope.Domain.IsVerified)
	assert.True(t, scope.Alias.IsEnabled)
}

func TestCreateDomainDuplicate(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	require.NoError(t, CreateDomain(ctx, pool, &models.Domain{OwnerID: "owner-1", Name: "x.com"}))

	err := CreateDomain(ctx, pool, &models.Domain{OwnerID: "owner-2", Name: "x.com"})
	assert.Error(t, err)
}
