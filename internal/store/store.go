// Package store defines the durable storage contracts for rating records and
// the battle ledger, with a MongoDB implementation for production and an
// in-memory implementation for tests and local development.
package store

import (
	"context"
	"errors"

	"llm-arena/internal/models"
)

var (
	// ErrUnknownModel is returned when a delta is applied to a
	// (modelId, scope) pair that was never created.
	ErrUnknownModel = errors.New("unknown model rating")

	// ErrBattleNotFound is returned when a battle id does not exist.
	ErrBattleNotFound = errors.New("battle not found")

	// ErrAlreadyResolved is returned when resolving a battle that is no
	// longer pending. Duplicate votes are rejected, never double-counted.
	ErrAlreadyResolved = errors.New("battle already resolved")
)

// Counter selects which outcome counter ApplyDelta increments.
type Counter string

const (
	CounterWins    Counter = "wins"
	CounterLosses  Counter = "losses"
	CounterDraws   Counter = "draws"
	CounterInvalid Counter = "invalid"
)

// RatingStore owns rating records: create-if-absent, incremental update, and
// ordered listing per scope.
type RatingStore interface {
	// GetOrCreate returns the rating record for (modelID, scope), creating
	// it with the initial rating and zero counters if absent. Idempotent.
	GetOrCreate(ctx context.Context, modelID string, scope models.Scope, displayName string) (*models.ModelRating, error)

	// ApplyDelta atomically adds delta to the rating and increments exactly
	// one outcome counter. Returns ErrUnknownModel if the record does not
	// exist.
	ApplyDelta(ctx context.Context, modelID string, scope models.Scope, delta float64, counter Counter) error

	// ListByScope returns all rating records in a scope sorted by rating
	// descending, ties broken by creation order.
	ListByScope(ctx context.Context, scope models.Scope) ([]models.ModelRating, error)
}

// BattleLedger owns battle records: create and one-way resolution.
type BattleLedger interface {
	// CreateBattle persists a new pending battle and returns its id.
	CreateBattle(ctx context.Context, battle *models.Battle) (string, error)

	// GetBattle returns the battle or ErrBattleNotFound.
	GetBattle(ctx context.Context, battleID string) (*models.Battle, error)

	// ResolveBattle transitions a pending battle to a terminal outcome.
	// The check-and-set is atomic per battle id: a battle resolves at most
	// once. Returns ErrBattleNotFound or ErrAlreadyResolved.
	ResolveBattle(ctx context.Context, battleID string, outcome models.BattleOutcome, winnerModelID, voterID string) (*models.Battle, error)
}

// Repository is the full storage surface consumed by the arena coordinator.
type Repository interface {
	RatingStore
	BattleLedger

	// InTransaction runs fn atomically: either every write inside fn is
	// applied or none are. A vote must never partially apply.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Reset deletes all rating records and battles.
	Reset(ctx context.Context) error
}
