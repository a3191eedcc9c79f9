package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"llm-arena/internal/elo"
	"llm-arena/internal/models"
)

// MemoryRepository is an in-process Repository used by tests and local
// development without a MongoDB instance. A single mutex serializes all
// writes, which trivially satisfies the per-(modelId, scope) serialization
// requirement.
type MemoryRepository struct {
	mu sync.Mutex

	ratings   map[string]*models.ModelRating // key: scopeKey + "/" + modelID
	ratingSeq []string                       // insertion order for stable ties
	battles   map[string]*models.Battle
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		ratings: make(map[string]*models.ModelRating),
		battles: make(map[string]*models.Battle),
	}
}

func ratingKey(modelID string, scope models.Scope) string {
	return scope.Key() + "/" + modelID
}

// txJournal records pre-images of every record a transaction writes, so a
// failed transaction can be undone without disturbing concurrent writes to
// other keys. A nil pre-image marks a record created inside the transaction.
type txJournal struct {
	ratings map[string]*models.ModelRating
	battles map[string]*models.Battle
}

type txKey struct{}

func journalFrom(ctx context.Context) *txJournal {
	j, _ := ctx.Value(txKey{}).(*txJournal)
	return j
}

// noteRating records the first pre-image seen for a key. Later writes to the
// same key keep the original pre-image.
func (j *txJournal) noteRating(key string, pre *models.ModelRating) {
	if j == nil {
		return
	}
	if _, seen := j.ratings[key]; seen {
		return
	}
	if pre == nil {
		j.ratings[key] = nil
		return
	}
	cp := *pre
	j.ratings[key] = &cp
}

func (j *txJournal) noteBattle(battleID string, pre *models.Battle) {
	if j == nil {
		return
	}
	if _, seen := j.battles[battleID]; seen {
		return
	}
	if pre == nil {
		j.battles[battleID] = nil
		return
	}
	cp := *pre
	j.battles[battleID] = &cp
}

func (r *MemoryRepository) GetOrCreate(ctx context.Context, modelID string, scope models.Scope, displayName string) (*models.ModelRating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(journalFrom(ctx), modelID, scope, displayName), nil
}

func (r *MemoryRepository) getOrCreateLocked(j *txJournal, modelID string, scope models.Scope, displayName string) *models.ModelRating {
	key := ratingKey(modelID, scope)
	if existing, ok := r.ratings[key]; ok {
		cp := *existing
		return &cp
	}

	j.noteRating(key, nil)

	now := time.Now()
	record := &models.ModelRating{
		ModelID:     modelID,
		Scope:       scope.Key(),
		DisplayName: displayName,
		Elo:         elo.InitialRating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.ratings[key] = record
	r.ratingSeq = append(r.ratingSeq, key)

	cp := *record
	return &cp
}

func (r *MemoryRepository) ApplyDelta(ctx context.Context, modelID string, scope models.Scope, delta float64, counter Counter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ratingKey(modelID, scope)
	record, ok := r.ratings[key]
	if !ok {
		return ErrUnknownModel
	}

	journalFrom(ctx).noteRating(key, record)

	record.Elo += delta
	record.UpdatedAt = time.Now()
	switch counter {
	case CounterWins:
		record.Wins++
	case CounterLosses:
		record.Losses++
	case CounterDraws:
		record.Draws++
	case CounterInvalid:
		record.Invalid++
	}
	return nil
}

func (r *MemoryRepository) ListByScope(ctx context.Context, scope models.Scope) ([]models.ModelRating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.ModelRating
	for _, key := range r.ratingSeq {
		record := r.ratings[key]
		if record.Scope == scope.Key() {
			out = append(out, *record)
		}
	}

	// Stable sort keeps insertion order for equal ratings.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Elo > out[j].Elo
	})
	return out, nil
}

func (r *MemoryRepository) CreateBattle(ctx context.Context, battle *models.Battle) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	journalFrom(ctx).noteBattle(battle.BattleID, r.battles[battle.BattleID])

	cp := *battle
	r.battles[battle.BattleID] = &cp
	return battle.BattleID, nil
}

func (r *MemoryRepository) GetBattle(ctx context.Context, battleID string) (*models.Battle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	battle, ok := r.battles[battleID]
	if !ok {
		return nil, ErrBattleNotFound
	}
	cp := *battle
	return &cp, nil
}

func (r *MemoryRepository) ResolveBattle(ctx context.Context, battleID string, outcome models.BattleOutcome, winnerModelID, voterID string) (*models.Battle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	battle, ok := r.battles[battleID]
	if !ok {
		return nil, ErrBattleNotFound
	}
	if battle.Outcome != models.OutcomePending {
		return nil, ErrAlreadyResolved
	}

	journalFrom(ctx).noteBattle(battleID, battle)

	now := time.Now()
	battle.Outcome = outcome
	battle.WinnerModelID = winnerModelID
	battle.VoterID = voterID
	battle.ResolvedAt = &now

	cp := *battle
	return &cp, nil
}

// InTransaction journals every record fn writes and undoes exactly those
// records if fn fails, so a vote never partially applies. Writes committed
// concurrently to other keys are untouched by the rollback.
func (r *MemoryRepository) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	j := &txJournal{
		ratings: make(map[string]*models.ModelRating),
		battles: make(map[string]*models.Battle),
	}

	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		r.rollback(j)
		return err
	}
	return nil
}

func (r *MemoryRepository) rollback(j *txJournal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, pre := range j.ratings {
		if pre == nil {
			delete(r.ratings, key)
			continue
		}
		cp := *pre
		r.ratings[key] = &cp
	}
	if len(j.ratings) > 0 {
		// Drop seq entries for ratings created inside the failed transaction.
		seq := r.ratingSeq[:0]
		for _, key := range r.ratingSeq {
			if pre, seen := j.ratings[key]; seen && pre == nil {
				continue
			}
			seq = append(seq, key)
		}
		r.ratingSeq = seq
	}

	for battleID, pre := range j.battles {
		if pre == nil {
			delete(r.battles, battleID)
			continue
		}
		cp := *pre
		r.battles[battleID] = &cp
	}
}

func (r *MemoryRepository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ratings = make(map[string]*models.ModelRating)
	r.ratingSeq = nil
	r.battles = make(map[string]*models.Battle)
	return nil
}
