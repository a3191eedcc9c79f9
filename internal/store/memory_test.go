package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"llm-arena/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, "m1", models.GlobalScope(), "Model One")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, first.Elo)
	assert.Equal(t, "Model One", first.DisplayName)
	assert.Equal(t, 0, first.Wins)

	require.NoError(t, repo.ApplyDelta(ctx, "m1", models.GlobalScope(), 16, CounterWins))

	// A second GetOrCreate returns the existing record; the display name
	// argument only applies at creation.
	second, err := repo.GetOrCreate(ctx, "m1", models.GlobalScope(), "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Model One", second.DisplayName)
	assert.Equal(t, 1516.0, second.Elo)
	assert.Equal(t, 1, second.Wins)
}

func TestScopesAreIndependent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "m1", models.GlobalScope(), "Model One")
	require.NoError(t, err)
	_, err = repo.GetOrCreate(ctx, "m1", models.UserScope("u1"), "Model One")
	require.NoError(t, err)

	require.NoError(t, repo.ApplyDelta(ctx, "m1", models.UserScope("u1"), -32, CounterLosses))

	global, err := repo.GetOrCreate(ctx, "m1", models.GlobalScope(), "Model One")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, global.Elo)
	assert.Equal(t, 0, global.Losses)

	user, err := repo.GetOrCreate(ctx, "m1", models.UserScope("u1"), "Model One")
	require.NoError(t, err)
	assert.Equal(t, 1468.0, user.Elo)
	assert.Equal(t, 1, user.Losses)
}

func TestApplyDeltaUnknownModel(t *testing.T) {
	repo := NewMemoryRepository()

	err := repo.ApplyDelta(context.Background(), "ghost", models.GlobalScope(), 16, CounterWins)
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestListByScopeOrdering(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := repo.GetOrCreate(ctx, id, models.GlobalScope(), id)
		require.NoError(t, err)
	}
	require.NoError(t, repo.ApplyDelta(ctx, "c", models.GlobalScope(), 20, CounterWins))

	records, err := repo.ListByScope(ctx, models.GlobalScope())
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Highest rating first; the 1500-rated pair keeps insertion order.
	assert.Equal(t, "c", records[0].ModelID)
	assert.Equal(t, "a", records[1].ModelID)
	assert.Equal(t, "b", records[2].ModelID)
}

func newPendingBattle(id string) *models.Battle {
	return &models.Battle{
		BattleID:  id,
		Model1ID:  "m1",
		Model2ID:  "m2",
		Question:  "q",
		Response1: "r1",
		Response2: "r2",
		Outcome:   models.OutcomePending,
		CreatedAt: time.Now(),
	}
}

func TestResolveBattleOnce(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.CreateBattle(ctx, newPendingBattle("b1"))
	require.NoError(t, err)

	resolved, err := repo.ResolveBattle(ctx, "b1", models.OutcomeModel1, "m1", "voter")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeModel1, resolved.Outcome)
	assert.Equal(t, "m1", resolved.WinnerModelID)
	assert.Equal(t, "voter", resolved.VoterID)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = repo.ResolveBattle(ctx, "b1", models.OutcomeModel2, "m2", "other")
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	// The first resolution stands.
	battle, err := repo.GetBattle(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeModel1, battle.Outcome)
}

func TestResolveBattleNotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.ResolveBattle(context.Background(), "nope", models.OutcomeDraw, "", "")
	assert.ErrorIs(t, err, ErrBattleNotFound)
}

func TestInTransactionRollsBackOnError(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "m1", models.GlobalScope(), "Model One")
	require.NoError(t, err)
	_, err = repo.CreateBattle(ctx, newPendingBattle("b1"))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.InTransaction(ctx, func(txCtx context.Context) error {
		if err := repo.ApplyDelta(txCtx, "m1", models.GlobalScope(), 16, CounterWins); err != nil {
			return err
		}
		if _, err := repo.ResolveBattle(txCtx, "b1", models.OutcomeModel1, "m1", ""); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// Every write inside the failed transaction is rolled back.
	record, err := repo.GetOrCreate(ctx, "m1", models.GlobalScope(), "Model One")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, record.Elo)
	assert.Equal(t, 0, record.Wins)

	battle, err := repo.GetBattle(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePending, battle.Outcome)
}

func TestInTransactionRollbackPreservesUnrelatedWrites(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "m1", models.GlobalScope(), "Model One")
	require.NoError(t, err)
	_, err = repo.GetOrCreate(ctx, "m2", models.GlobalScope(), "Model Two")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.InTransaction(ctx, func(txCtx context.Context) error {
		if err := repo.ApplyDelta(txCtx, "m1", models.GlobalScope(), 16, CounterWins); err != nil {
			return err
		}
		// An independent vote commits to a different key while this
		// transaction is still in flight (note the outer ctx).
		if err := repo.ApplyDelta(ctx, "m2", models.GlobalScope(), 16, CounterWins); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// The transaction's own write is undone; the concurrent commit stands.
	m1, err := repo.GetOrCreate(ctx, "m1", models.GlobalScope(), "Model One")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, m1.Elo)
	assert.Equal(t, 0, m1.Wins)

	m2, err := repo.GetOrCreate(ctx, "m2", models.GlobalScope(), "Model Two")
	require.NoError(t, err)
	assert.Equal(t, 1516.0, m2.Elo)
	assert.Equal(t, 1, m2.Wins)
}

func TestInTransactionRollbackRemovesCreatedRecords(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.InTransaction(ctx, func(txCtx context.Context) error {
		if _, err := repo.GetOrCreate(txCtx, "m1", models.UserScope("u1"), "Model One"); err != nil {
			return err
		}
		if _, err := repo.CreateBattle(txCtx, newPendingBattle("b1")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	records, err := repo.ListByScope(ctx, models.UserScope("u1"))
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = repo.GetBattle(ctx, "b1")
	assert.ErrorIs(t, err, ErrBattleNotFound)
}

func TestResetClearsEverything(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "m1", models.GlobalScope(), "Model One")
	require.NoError(t, err)
	_, err = repo.CreateBattle(ctx, newPendingBattle("b1"))
	require.NoError(t, err)

	require.NoError(t, repo.Reset(ctx))

	records, err := repo.ListByScope(ctx, models.GlobalScope())
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = repo.GetBattle(ctx, "b1")
	assert.ErrorIs(t, err, ErrBattleNotFound)
}
