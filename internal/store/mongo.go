package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"llm-arena/internal/db"
	"llm-arena/internal/elo"
	"llm-arena/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository on top of MongoDB. Rating updates use
// server-side $inc so a single ApplyDelta is atomic per document; vote-level
// serialization across read-compute-write is handled by the coordinator's
// per-key locks. All-or-nothing vote application comes from InTransaction
// when sessions are available, and from the coordinator resolving the battle
// before writing any delta when they are not.
type MongoRepository struct {
	db *db.MongoDB

	// useTransactions is disabled for standalone deployments that do not
	// run a replica set; InTransaction then runs fn without a session.
	useTransactions bool
}

func NewMongoRepository(database *db.MongoDB, useTransactions bool) *MongoRepository {
	return &MongoRepository{db: database, useTransactions: useTransactions}
}

func (r *MongoRepository) GetOrCreate(ctx context.Context, modelID string, scope models.Scope, displayName string) (*models.ModelRating, error) {
	now := time.Now()
	filter := bson.M{"modelId": modelID, "scope": scope.Key()}
	update := bson.M{
		"$setOnInsert": bson.M{
			"modelId":     modelID,
			"scope":       scope.Key(),
			"displayName": displayName,
			"wins":        0,
			"losses":      0,
			"draws":       0,
			"invalid":     0,
			"elo":         elo.InitialRating,
			"createdAt":   now,
			"updatedAt":   now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var record models.ModelRating
	if err := r.db.ModelRatings().FindOneAndUpdate(ctx, filter, update, opts).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to get or create rating %s/%s: %w", modelID, scope.Key(), err)
	}
	return &record, nil
}

func (r *MongoRepository) ApplyDelta(ctx context.Context, modelID string, scope models.Scope, delta float64, counter Counter) error {
	update := bson.M{
		"$inc": bson.M{
			"elo":            delta,
			string(counter): 1,
		},
		"$set": bson.M{"updatedAt": time.Now()},
	}

	result, err := r.db.ModelRatings().UpdateOne(ctx, bson.M{"modelId": modelID, "scope": scope.Key()}, update)
	if err != nil {
		return fmt.Errorf("failed to apply rating delta %s/%s: %w", modelID, scope.Key(), err)
	}
	if result.MatchedCount == 0 {
		return ErrUnknownModel
	}
	return nil
}

func (r *MongoRepository) ListByScope(ctx context.Context, scope models.Scope) ([]models.ModelRating, error) {
	// Secondary keys keep ties in insertion order.
	opts := options.Find().SetSort(bson.D{
		{Key: "elo", Value: -1},
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := r.db.ModelRatings().Find(ctx, bson.M{"scope": scope.Key()}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings for scope %s: %w", scope.Key(), err)
	}
	defer cursor.Close(ctx)

	var records []models.ModelRating
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode ratings for scope %s: %w", scope.Key(), err)
	}
	return records, nil
}

func (r *MongoRepository) CreateBattle(ctx context.Context, battle *models.Battle) (string, error) {
	if _, err := r.db.Battles().InsertOne(ctx, battle); err != nil {
		return "", fmt.Errorf("failed to create battle: %w", err)
	}
	return battle.BattleID, nil
}

func (r *MongoRepository) GetBattle(ctx context.Context, battleID string) (*models.Battle, error) {
	var battle models.Battle
	err := r.db.Battles().FindOne(ctx, bson.M{"battleId": battleID}).Decode(&battle)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrBattleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load battle %s: %w", battleID, err)
	}
	return &battle, nil
}

func (r *MongoRepository) ResolveBattle(ctx context.Context, battleID string, outcome models.BattleOutcome, winnerModelID, voterID string) (*models.Battle, error) {
	now := time.Now()
	set := bson.M{
		"outcome":    outcome,
		"resolvedAt": now,
	}
	if winnerModelID != "" {
		set["winnerModelId"] = winnerModelID
	}
	if voterID != "" {
		set["voterId"] = voterID
	}

	// Filtering on outcome=pending makes the check-and-set atomic: a
	// concurrent duplicate vote matches no document.
	filter := bson.M{"battleId": battleID, "outcome": models.OutcomePending}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var battle models.Battle
	err := r.db.Battles().FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&battle)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Distinguish missing from already-resolved.
		if _, getErr := r.GetBattle(ctx, battleID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrAlreadyResolved
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve battle %s: %w", battleID, err)
	}
	return &battle, nil
}

func (r *MongoRepository) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !r.useTransactions {
		return fn(ctx)
	}

	session, err := r.db.Client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func (r *MongoRepository) Reset(ctx context.Context) error {
	if _, err := r.db.ModelRatings().DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to delete ratings: %w", err)
	}
	if _, err := r.db.Battles().DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to delete battles: %w", err)
	}
	return nil
}
