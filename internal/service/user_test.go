package service

import (
	"context"
	"testing"
	"time"

	"github.com/stakeplay/tictactoe-arena/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTokenTTL = time.Hour

func newUserFixture(t *testing.T) (UserService, *fakeLedger) {
	t.Helper()

	ledger := newFakeLedger()

	return NewUserService(testLogger, newFakeUsers(), ledger, 100), ledger
}

func TestUserService_Register(t *testing.T) {
	t.Run("Creates the account and grants starting credits", func(t *testing.T) {
		ctx := context.Background()
		svc, ledger := newUserFixture(t)

		// When: registering a new user
		user, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")

		// Then: the account exists, the password is not stored in clear,
		// and the starting credits are on the ledger
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

		balance, err := ledger.GetBalance(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), balance)
	})

	t.Run("Rejects a duplicate email", func(t *testing.T) {
		ctx := context.Background()
		svc, _ := newUserFixture(t)

		_, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "alice2", "alice@example.com", "other-pass-123")

		require.ErrorIs(t, err, apperror.ErrUserExists)
	})

	t.Run("Rejects malformed input", func(t *testing.T) {
		ctx := context.Background()
		svc, _ := newUserFixture(t)

		_, err := svc.Register(ctx, "al", "not-an-email", "short")

		require.ErrorIs(t, err, apperror.ErrInvalidInput)
	})
}

func TestUserService_Login(t *testing.T) {
	t.Run("Accepts the right password", func(t *testing.T) {
		ctx := context.Background()
		svc, _ := newUserFixture(t)

		registered, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
		require.NoError(t, err)

		user, err := svc.Login(ctx, "alice@example.com", "s3cret-pass")

		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
	})

	t.Run("Rejects a wrong password", func(t *testing.T) {
		ctx := context.Background()
		svc, _ := newUserFixture(t)

		_, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
		require.NoError(t, err)

		_, err = svc.Login(ctx, "alice@example.com", "wrong-pass-123")

		require.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	})

	t.Run("Rejects an unknown email", func(t *testing.T) {
		ctx := context.Background()
		svc, _ := newUserFixture(t)

		_, err := svc.Login(ctx, "nobody@example.com", "whatever-123")

		require.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	})
}

func TestUserService_PurchaseCredits(t *testing.T) {
	t.Run("Deposits the package amount", func(t *testing.T) {
		ctx := context.Background()
		svc, _ := newUserFixture(t)

		user, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
		require.NoError(t, err)

		// When: buying the 500-credit package
		balance, err := svc.PurchaseCredits(ctx, user.ID, 2)

		// Then: the starting grant plus the package
		require.NoError(t, err)
		assert.Equal(t, int64(600), balance)
	})

	t.Run("Rejects an unknown package", func(t *testing.T) {
		ctx := context.Background()
		svc, _ := newUserFixture(t)

		user, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
		require.NoError(t, err)

		_, err = svc.PurchaseCredits(ctx, user.ID, 99)

		require.ErrorIs(t, err, apperror.ErrInvalidInput)
	})

	t.Run("Rejects an unknown user", func(t *testing.T) {
		ctx := context.Background()
		svc, _ := newUserFixture(t)

		_, err := svc.PurchaseCredits(ctx, "nobody", 1)

		require.ErrorIs(t, err, apperror.ErrUserNotFound)
	})
}

func TestAuthService_Tokens(t *testing.T) {
	auth := NewAuthService("test-secret", testTokenTTL)

	t.Run("Round-trips the user id", func(t *testing.T) {
		token, err := auth.GenerateToken("alice-id")
		require.NoError(t, err)

		userID, err := auth.ParseToken(token)

		require.NoError(t, err)
		assert.Equal(t, "alice-id", userID)
	})

	t.Run("Rejects garbage", func(t *testing.T) {
		_, err := auth.ParseToken("not-a-token")

		require.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	})

	t.Run("Rejects a token signed with another key", func(t *testing.T) {
		other := NewAuthService("other-secret", testTokenTTL)

		token, err := other.GenerateToken("alice-id")
		require.NoError(t, err)

		_, err = auth.ParseToken(token)

		require.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	})
}
