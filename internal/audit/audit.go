package audit

import (
	"context"
	"log"
	"net/http"
	"time"

	"llm-arena/internal/middleware"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Event types for audit logging
const (
	EventBattleStarted = "battle_started"
	EventVoteCast      = "vote_cast"
	EventDatabaseReset = "database_reset"
)

// Event records one arena action for later review.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	EventType string             `bson:"eventType"`
	BattleID  string             `bson:"battleId,omitempty"`
	VoterID   string             `bson:"voterId,omitempty"`
	IP        string             `bson:"ip"`
	UserAgent string             `bson:"userAgent"`
	Details   string             `bson:"details,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// Logger writes audit events to the audit_log collection. A nil collection
// (or nil Logger) disables logging.
type Logger struct {
	collection *mongo.Collection
}

func NewLogger(collection *mongo.Collection) *Logger {
	return &Logger{collection: collection}
}

// Log writes an audit event (fire-and-forget).
func (l *Logger) Log(r *http.Request, eventType, battleID, voterID, details string) {
	if l == nil || l.collection == nil {
		return
	}

	event := newEvent(r, eventType, battleID, voterID, details)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := l.collection.InsertOne(ctx, event); err != nil {
			log.Printf("Audit log write failed: %v", err)
		}
	}()
}

func newEvent(r *http.Request, eventType, battleID, voterID, details string) Event {
	return Event{
		EventType: eventType,
		BattleID:  battleID,
		VoterID:   voterID,
		IP:        middleware.GetClientIP(r),
		UserAgent: r.UserAgent(),
		Details:   details,
		CreatedAt: time.Now(),
	}
}
