package services

import (
	"context"
	"log"
	"os"
	"time"

	"llm-arena/internal/db"
	"llm-arena/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StaleBattleCleanupService periodically finds battles that never received a
// vote and closes them as invalid, so the battles collection doesn't
// accumulate pending documents forever.
type StaleBattleCleanupService struct {
	db             *db.MongoDB
	stopCh         chan struct{}
	interval       time.Duration
	staleThreshold time.Duration
}

// NewStaleBattleCleanupService creates a new cleanup service.
func NewStaleBattleCleanupService(database *db.MongoDB) *StaleBattleCleanupService {
	return &StaleBattleCleanupService{
		db:             database,
		stopCh:         make(chan struct{}),
		interval:       10 * time.Minute,
		staleThreshold: 24 * time.Hour,
	}
}

// Start begins the periodic cleanup loop in a background goroutine.
func (s *StaleBattleCleanupService) Start() {
	go s.runCleanupLoop()
	log.Println("Stale battle cleanup service started (interval: 10m, threshold: 24h)")
}

// Stop signals the cleanup loop to exit.
func (s *StaleBattleCleanupService) Stop() {
	close(s.stopCh)
	log.Println("Stale battle cleanup service stopped")
}

func (s *StaleBattleCleanupService) runCleanupLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runCleanupPass()
		}
	}
}

func (s *StaleBattleCleanupService) runCleanupPass() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Try to acquire distributed lock
	if !s.tryAcquireLock(ctx) {
		return // Another server is handling cleanup
	}
	defer s.releaseLock(ctx)

	closed, err := s.closeStaleBattles(ctx)
	if err != nil {
		log.Printf("Stale battle cleanup: failed to close stale battles: %v", err)
		return
	}

	if closed > 0 {
		log.Printf("Stale battle cleanup: closed %d abandoned battle(s)", closed)
	}
}

func (s *StaleBattleCleanupService) tryAcquireLock(ctx context.Context) bool {
	hostname, err := os.Hostname()
	if err != nil {
		log.Printf("Failed to get hostname: %v", err)
		hostname = "unknown"
	}

	now := time.Now()
	lockExpiry := now.Add(5 * time.Minute)

	filter := bson.M{
		"_id": "stale_battle_cleanup",
		"$or": []bson.M{
			{"lockedUntil": bson.M{"$exists": false}},
			{"lockedUntil": bson.M{"$lt": now}},
		},
	}

	update := bson.M{
		"$set": bson.M{
			"lockedUntil": lockExpiry,
			"lockedBy":    hostname,
			"lockedAt":    now,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true)
	err = s.db.CleanupLocks().FindOneAndUpdate(ctx, filter, update, opts).Err()
	if err != nil {
		// Another server already holds the lock (duplicate key or no match)
		return false
	}

	return true
}

func (s *StaleBattleCleanupService) releaseLock(ctx context.Context) {
	_, err := s.db.CleanupLocks().UpdateOne(ctx,
		bson.M{"_id": "stale_battle_cleanup"},
		bson.M{"$set": bson.M{"lockedUntil": time.Now()}},
	)
	if err != nil {
		log.Printf("Stale battle cleanup: failed to release lock: %v", err)
	}
}

// closeStaleBattles marks abandoned pending battles as invalid. Ratings and
// counters are only written by voted resolutions, never by cleanup. The
// outcome:pending filter makes each close a one-way atomic transition against
// a racing vote.
func (s *StaleBattleCleanupService) closeStaleBattles(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.staleThreshold)
	now := time.Now()

	result, err := s.db.Battles().UpdateMany(ctx,
		bson.M{
			"outcome":   string(models.OutcomePending),
			"createdAt": bson.M{"$lt": cutoff},
		},
		bson.M{
			"$set": bson.M{
				"outcome":    string(models.OutcomeInvalid),
				"resolvedAt": now,
			},
		},
	)
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}
