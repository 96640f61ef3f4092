package sqlite

import (
	"context"
	"testing"

	"github.com/yellowgoat/authsvc/internal/auth/domain"
	"github.com/yellowgoat/authsvc/internal/auth/store"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())

	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testUser(id, username string) domain.User {
	return domain.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Role:         domain.RoleUser,
	}
}

func TestCreateAndGetUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	u := testUser("u1", "alice")
	require.NoError(t, st.Users().CreateUser(ctx, u))

	byID, err := st.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)
	require.Equal(t, domain.RoleUser, byID.Role)
	require.False(t, byID.TwoFAEnabled)
	require.Nil(t, byID.TOTPSecret)
	require.False(t, byID.CreatedAt.IsZero())

	byName, err := st.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, byID.ID, byName.ID)
}

func TestGetUser_NotFound(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.Users().GetUserByUsername(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Users().CreateUser(ctx, testUser("u1", "alice")))

	err := st.Users().CreateUser(ctx, testUser("u2", "alice"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestCreateUser_RoleCheck(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	u := testUser("u1", "alice")
	u.Role = "superuser"
	require.Error(t, st.Users().CreateUser(ctx, u),
		"schema restricts role to user/admin")
}

func TestUpdateTwoFactor(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Users().CreateUser(ctx, testUser("u1", "alice")))

	require.NoError(t, st.Users().UpdateTwoFactor(ctx, "u1", "JBSWY3DPEHPK3PXP", true))

	u, err := st.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.True(t, u.TwoFAEnabled)
	require.NotNil(t, u.TOTPSecret)
	require.Equal(t, "JBSWY3DPEHPK3PXP", *u.TOTPSecret)
}

func TestUpdateTwoFactor_NotFound(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.Users().UpdateTwoFactor(ctx, "missing", "JBSWY3DPEHPK3PXP", true)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateTwoFactor_EnabledRequiresSecret(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Users().CreateUser(ctx, testUser("u1", "alice")))

	// The schema CHECK refuses enabled-without-secret
	err := st.Users().UpdateTwoFactor(ctx, "u1", "", true)
	require.Error(t, err)

	u, err := st.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.False(t, u.TwoFAEnabled, "failed update must not flip the flag")
}

func TestListUsers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Users().CreateUser(ctx, testUser("u1", "carol")))
	require.NoError(t, st.Users().CreateUser(ctx, testUser("u2", "alice")))

	users, err := st.Users().ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "alice", users[0].Username)
	require.Equal(t, "carol", users[1].Username)
}

func TestIsEmpty(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	empty, err := st.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	require.NoError(t, st.Users().CreateUser(ctx, testUser("u1", "alice")))

	empty, err = st.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Users().CreateUser(ctx, testUser("u1", "alice")))

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdateTwoFactor(ctx, "u1", "JBSWY3DPEHPK3PXP", true); err != nil {
			return err
		}
		return context.Canceled // force rollback
	})
	require.Error(t, err)

	u, err := st.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.False(t, u.TwoFAEnabled, "rolled-back write must not be visible")
}
