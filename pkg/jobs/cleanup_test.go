package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/pkg/auth"
	"github.com/keygate/keygate/pkg/storage/memory"
	"github.com/keygate/keygate/pkg/users"
)

func newSweeperFixture(t *testing.T) (*CodeSweeper, *users.Service, *memory.UserStore) {
	t.Helper()
	store := memory.NewUserStore()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := users.NewService(store, auth.NewPasswordHasherWithCost(4), logger)
	return NewCodeSweeper(store, logger), svc, store
}

func TestSweepClearsOnlyExpiredCodes(t *testing.T) {
	sweeper, svc, _ := newSweeperFixture(t)
	ctx := context.Background()

	pending, err := svc.CreateUser(ctx, "pending@example.com", "Pending", "password123", 1, false)
	require.NoError(t, err)
	_, err = svc.GenerateEmailCode(ctx, pending.ID, time.Hour)
	require.NoError(t, err)

	cleared, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, cleared, "non-expired codes survive the sweep")
}

func TestSweepClearsBackdatedCodes(t *testing.T) {
	sweeper, svc, store := newSweeperFixture(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "stale@example.com", "Stale", "password123", 1, false)
	require.NoError(t, err)
	_, err = svc.GenerateEmailCode(ctx, user.ID, time.Hour)
	require.NoError(t, err)

	// Backdate the expiry past
	stored, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	past := time.Now().Add(-time.Minute)
	stored.EmailCodeExpiresAt = &past
	_, err = store.Save(ctx, stored)
	require.NoError(t, err)

	cleared, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	after, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, after.EmailCode)
	assert.Nil(t, after.EmailCodeExpiresAt)
}

func TestSweeperStartStop(t *testing.T) {
	sweeper, _, _ := newSweeperFixture(t)

	require.NoError(t, sweeper.Start("*/10 * * * *"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, sweeper.Stop(ctx))
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	sweeper, _, _ := newSweeperFixture(t)
	assert.Error(t, sweeper.Start("not a schedule"))
}
