// Package arena orchestrates battles: fanning a question out to two model
// backends, recording the pending battle, and turning votes into Elo updates
// on the global and per-user leaderboards.
package arena

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"time"

	"llm-arena/internal/catalog"
	"llm-arena/internal/elo"
	"llm-arena/internal/llm"
	"llm-arena/internal/models"
	"llm-arena/internal/rag"
	"llm-arena/internal/store"
	"llm-arena/internal/tokens"

	"golang.org/x/sync/errgroup"
)

// Notifier is told when a vote has changed the leaderboards.
type Notifier interface {
	LeaderboardUpdated()
}

// Config holds the coordinator's budgets and policies.
type Config struct {
	// PromptTokenBudget rejects questions above this estimated size.
	PromptTokenBudget int
	// ResponseTokenBudget truncates model responses above this size.
	ResponseTokenBudget int
	// TruncatePolicy selects how over-budget responses are cut.
	TruncatePolicy tokens.TruncatePolicy
}

// Coordinator drives the battle state machine:
// PENDING_RESPONSES -> AWAITING_VOTE -> RESOLVED.
type Coordinator struct {
	repo      store.Repository
	catalog   *catalog.Catalog
	invoker   llm.Invoker
	retriever rag.Retriever
	counter   tokens.Counter
	calc      *elo.Calculator
	cfg       Config
	locks     *keyLocks
	notifier  Notifier
}

func NewCoordinator(
	repo store.Repository,
	cat *catalog.Catalog,
	invoker llm.Invoker,
	retriever rag.Retriever,
	counter tokens.Counter,
	cfg Config,
) *Coordinator {
	if cfg.PromptTokenBudget <= 0 {
		cfg.PromptTokenBudget = 1000
	}
	if cfg.ResponseTokenBudget <= 0 {
		cfg.ResponseTokenBudget = 2000
	}
	if cfg.TruncatePolicy == "" {
		cfg.TruncatePolicy = tokens.TruncateWord
	}
	return &Coordinator{
		repo:      repo,
		catalog:   cat,
		invoker:   invoker,
		retriever: retriever,
		counter:   counter,
		calc:      elo.NewCalculator(),
		cfg:       cfg,
		locks:     newKeyLocks(),
	}
}

// SetNotifier installs a leaderboard-change listener. Must be called before
// the coordinator starts serving requests.
func (c *Coordinator) SetNotifier(n Notifier) {
	c.notifier = n
}

// BattleResult is returned to the caller of StartBattle. The responses are
// keyed by position, not model, so the client can run a blind comparison.
type BattleResult struct {
	BattleID  string
	Response1 string
	Response2 string
}

func generateBattleID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// StartBattle validates the question, invokes both models concurrently with
// shared retrieved context, and persists the pending battle. Nothing is
// persisted unless both invocations succeed.
func (c *Coordinator) StartBattle(ctx context.Context, model1ID, model2ID, question string) (*BattleResult, error) {
	if _, ok := c.catalog.Get(model1ID); !ok {
		return nil, &UnknownModelError{ModelID: model1ID}
	}
	if _, ok := c.catalog.Get(model2ID); !ok {
		return nil, &UnknownModelError{ModelID: model2ID}
	}

	if n := c.counter.Count(question); n > c.cfg.PromptTokenBudget {
		return nil, &PromptTooLongError{Tokens: n, Budget: c.cfg.PromptTokenBudget}
	}

	// Context retrieval never fails; internal errors degrade to "".
	ragContext := c.retriever.FetchContext(ctx, question)

	var response1, response2 string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := c.invoker.Invoke(gctx, model1ID, question, ragContext)
		if err != nil {
			return &ComparisonFailedError{FailedModelID: model1ID, Err: err}
		}
		response1 = resp
		return nil
	})
	g.Go(func() error {
		resp, err := c.invoker.Invoke(gctx, model2ID, question, ragContext)
		if err != nil {
			return &ComparisonFailedError{FailedModelID: model2ID, Err: err}
		}
		response2 = resp
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	response1 = tokens.Truncate(response1, c.cfg.ResponseTokenBudget, c.counter, c.cfg.TruncatePolicy)
	response2 = tokens.Truncate(response2, c.cfg.ResponseTokenBudget, c.counter, c.cfg.TruncatePolicy)

	battle := &models.Battle{
		BattleID:  generateBattleID(),
		Model1ID:  model1ID,
		Model2ID:  model2ID,
		Question:  question,
		Response1: response1,
		Response2: response2,
		Outcome:   models.OutcomePending,
		CreatedAt: time.Now(),
	}
	if _, err := c.repo.CreateBattle(ctx, battle); err != nil {
		return nil, err
	}

	return &BattleResult{
		BattleID:  battle.BattleID,
		Response1: response1,
		Response2: response2,
	}, nil
}

// VoteResult carries the refreshed rating records for every scope a vote
// touched, ordered model1 then model2.
type VoteResult struct {
	Battle *models.Battle
	Global []*models.ModelRating
	User   []*models.ModelRating // nil when the vote was anonymous
}

// CastVote resolves a pending battle and applies the outcome to the global
// leaderboard, plus the voter's private leaderboard when a voterID is given.
// The two scopes track independent rating trajectories updated by the same
// event. All writes apply atomically; a duplicate vote is rejected.
func (c *Coordinator) CastVote(ctx context.Context, battleID, verdict, voterID string) (*VoteResult, error) {
	battle, err := c.repo.GetBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if battle.Outcome != models.OutcomePending {
		return nil, store.ErrAlreadyResolved
	}

	outcome, ok := models.ParseVerdict(verdict)
	if !ok {
		return nil, &UnknownVerdictError{Verdict: verdict}
	}
	winnerID := battle.Winner(outcome)

	scopes := []models.Scope{models.GlobalScope()}
	if voterID != "" {
		scopes = append(scopes, models.UserScope(voterID))
	}

	// Serialize the read-compute-write against concurrent votes touching
	// the same (modelId, scope) pairs.
	var keys []string
	for _, scope := range scopes {
		keys = append(keys, scope.Key()+"/"+battle.Model1ID, scope.Key()+"/"+battle.Model2ID)
	}
	unlock := c.locks.lockAll(keys)
	defer unlock()

	name1 := c.catalog.DisplayName(battle.Model1ID)
	name2 := c.catalog.DisplayName(battle.Model2ID)

	err = c.repo.InTransaction(ctx, func(txCtx context.Context) error {
		// Resolve first: the pending->terminal check-and-set is the gate
		// that makes a battle's deltas apply at most once. A duplicate vote
		// that slipped past the pending pre-check dies here, before it has
		// written anything, even on stores running without multi-document
		// transactions.
		resolved, err := c.repo.ResolveBattle(txCtx, battleID, outcome, winnerID, voterID)
		if err != nil {
			return err
		}

		for _, scope := range scopes {
			r1, err := c.repo.GetOrCreate(txCtx, battle.Model1ID, scope, name1)
			if err != nil {
				return err
			}
			r2, err := c.repo.GetOrCreate(txCtx, battle.Model2ID, scope, name2)
			if err != nil {
				return err
			}

			if err := c.applyOutcome(txCtx, battle, scope, outcome, r1, r2); err != nil {
				return err
			}
		}

		battle = resolved
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &VoteResult{Battle: battle}
	for i, scope := range scopes {
		r1, err := c.repo.GetOrCreate(ctx, battle.Model1ID, scope, name1)
		if err != nil {
			return nil, err
		}
		r2, err := c.repo.GetOrCreate(ctx, battle.Model2ID, scope, name2)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			result.Global = []*models.ModelRating{r1, r2}
		} else {
			result.User = []*models.ModelRating{r1, r2}
		}
	}

	if c.notifier != nil {
		c.notifier.LeaderboardUpdated()
	}

	log.Printf("Battle %s resolved: %s (%s vs %s, voter=%q)",
		battleID, outcome, battle.Model1ID, battle.Model2ID, voterID)

	return result, nil
}

// applyOutcome writes the rating deltas and counters for one scope. Invalid
// outcomes move counters only; ratings stay bit-for-bit unchanged because the
// comparison produced no signal about relative quality.
func (c *Coordinator) applyOutcome(
	ctx context.Context,
	battle *models.Battle,
	scope models.Scope,
	outcome models.BattleOutcome,
	r1, r2 *models.ModelRating,
) error {
	if outcome == models.OutcomeInvalid {
		if err := c.repo.ApplyDelta(ctx, battle.Model1ID, scope, 0, store.CounterInvalid); err != nil {
			return err
		}
		return c.repo.ApplyDelta(ctx, battle.Model2ID, scope, 0, store.CounterInvalid)
	}

	var score1 elo.Score
	var counter1, counter2 store.Counter
	switch outcome {
	case models.OutcomeModel1:
		score1, counter1, counter2 = elo.ScoreWin, store.CounterWins, store.CounterLosses
	case models.OutcomeModel2:
		score1, counter1, counter2 = elo.ScoreLoss, store.CounterLosses, store.CounterWins
	case models.OutcomeDraw:
		score1, counter1, counter2 = elo.ScoreDraw, store.CounterDraws, store.CounterDraws
	}

	new1, new2 := c.calc.ApplyOutcome(r1.Elo, r2.Elo, score1)
	if err := c.repo.ApplyDelta(ctx, battle.Model1ID, scope, new1-r1.Elo, counter1); err != nil {
		return err
	}
	return c.repo.ApplyDelta(ctx, battle.Model2ID, scope, new2-r2.Elo, counter2)
}

// Battle returns a battle record by id.
func (c *Coordinator) Battle(ctx context.Context, battleID string) (*models.Battle, error) {
	return c.repo.GetBattle(ctx, battleID)
}

// Leaderboard returns the rating records for a scope, best first. An empty
// userID selects the global leaderboard.
func (c *Coordinator) Leaderboard(ctx context.Context, userID string) ([]models.ModelRating, error) {
	scope := models.GlobalScope()
	if userID != "" {
		scope = models.UserScope(userID)
	}
	return c.repo.ListByScope(ctx, scope)
}

// SeedCatalog provisions a global rating record for every catalog model.
// Idempotent; called at startup and after a reset.
func (c *Coordinator) SeedCatalog(ctx context.Context) error {
	for _, entry := range c.catalog.List() {
		if _, err := c.repo.GetOrCreate(ctx, entry.ID, models.GlobalScope(), entry.Name); err != nil {
			return err
		}
	}
	return nil
}

// Reset wipes all ratings and battles and reseeds the catalog.
func (c *Coordinator) Reset(ctx context.Context) error {
	if err := c.repo.Reset(ctx); err != nil {
		return err
	}
	return c.SeedCatalog(ctx)
}
