package tokenauth_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/boardhub/tokenauth"
	"github.com/boardhub/tokenauth/mocks"
	"github.com/boardhub/tokenauth/session"
)

func mockConfig() tokenauth.Config {
	cfg := tokenauth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newMockEngine(t *testing.T) (*tokenauth.Engine, *mocks.MockStore, *mocks.MockUserProvider) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	users := mocks.NewMockUserProvider(ctrl)

	engine, err := tokenauth.New().
		WithConfig(mockConfig()).
		WithSessionStore(store).
		WithUserProvider(users).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine, store, users
}

func TestIssueStoreFailureMapsToUnavailable(t *testing.T) {
	engine, store, _ := newMockEngine(t)

	store.EXPECT().
		Put(gomock.Any(), "a@example.com", gomock.Any(), 24*time.Hour).
		Return(errors.New("dial tcp: connection refused"))

	_, err := engine.Issue(context.Background(), tokenauth.Identity{Subject: "a@example.com"})
	require.ErrorIs(t, err, tokenauth.ErrStoreUnavailable)
	require.False(t, tokenauth.IsTokenError(err))
}

func TestReissueUsesCompareAndSwap(t *testing.T) {
	engine, store, _ := newMockEngine(t)
	ctx := context.Background()

	var stored string
	store.EXPECT().
		Put(gomock.Any(), "b@example.com", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, token string, _ time.Duration) error {
			stored = token
			return nil
		})

	pair, err := engine.Issue(ctx, tokenauth.Identity{Subject: "b@example.com"})
	require.NoError(t, err)

	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), "b@example.com").DoAndReturn(
			func(context.Context, string) (string, error) { return stored, nil }),
		store.EXPECT().Rotate(gomock.Any(), "b@example.com", pair.RefreshToken, gomock.Any(), 24*time.Hour).
			Return(session.ErrMismatch),
	)

	_, err = engine.Reissue(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, tokenauth.ErrSessionMismatch)
}

func TestReissueStoreTimeoutIsUnavailable(t *testing.T) {
	engine, store, _ := newMockEngine(t)
	ctx := context.Background()

	store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	pair, err := engine.Issue(ctx, tokenauth.Identity{Subject: "c@example.com"})
	require.NoError(t, err)

	store.EXPECT().Get(gomock.Any(), "c@example.com").
		Return("", context.DeadlineExceeded)

	_, err = engine.Reissue(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, tokenauth.ErrStoreUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, "store_unavailable", tokenauth.Reason(err))
	require.Equal(t, "session store unavailable: context deadline exceeded", err.Error())
}

func TestStoreUnavailableMessageNotRepeated(t *testing.T) {
	engine, store, _ := newMockEngine(t)
	ctx := context.Background()

	store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	pair, err := engine.Issue(ctx, tokenauth.Identity{Subject: "f@example.com"})
	require.NoError(t, err)

	store.EXPECT().Get(gomock.Any(), "f@example.com").
		Return("", fmt.Errorf("%w: %v", session.ErrUnavailable, context.DeadlineExceeded))

	_, err = engine.Reissue(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, tokenauth.ErrStoreUnavailable)
	require.ErrorIs(t, err, session.ErrUnavailable)
	require.False(t, tokenauth.IsTokenError(err))
	require.Equal(t, 1, strings.Count(err.Error(), "session store unavailable"), err.Error())
}

func TestLogoutOnlyDeletesMatchingToken(t *testing.T) {
	engine, store, _ := newMockEngine(t)
	ctx := context.Background()

	store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	pair, err := engine.Issue(ctx, tokenauth.Identity{Subject: "d@example.com"})
	require.NoError(t, err)

	store.EXPECT().DeleteIfMatch(gomock.Any(), "d@example.com", pair.RefreshToken).Return(false, nil)

	out, err := engine.Logout(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.False(t, out.Revoked)
	require.Equal(t, "d@example.com", out.Subject)
}

func TestValidateAccessNeverTouchesStore(t *testing.T) {
	engine, store, _ := newMockEngine(t)
	ctx := context.Background()

	store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	pair, err := engine.Issue(ctx, tokenauth.Identity{Subject: "e@example.com", Role: "ROLE_USER"})
	require.NoError(t, err)

	// Any store call here fails the test through the controller.
	auth, err := engine.ValidateAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "ROLE_USER", auth.Role)
}

func TestLoginUnknownUserIsInvalidCredentials(t *testing.T) {
	engine, _, users := newMockEngine(t)

	users.EXPECT().
		GetUserByIdentifier(gomock.Any(), "ghost@example.com").
		Return(tokenauth.UserRecord{}, tokenauth.ErrUserNotFound)

	_, err := engine.Login(context.Background(), "ghost@example.com", "some-password-1")
	require.ErrorIs(t, err, tokenauth.ErrInvalidCredentials)
}
