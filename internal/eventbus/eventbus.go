package eventbus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const eventTypeLeaderboardUpdate = "leaderboard_update"

// ArenaEvent is the document stored in the arena_events collection.
type ArenaEvent struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	OriginMachineID string             `bson:"originMachineId"`
	EventType       string             `bson:"eventType"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

// NotifyFunc delivers a leaderboard-changed signal to local subscribers.
type NotifyFunc func()

// EventBus publishes leaderboard updates to MongoDB and watches for events
// from other machines via Change Streams, so every instance's WebSocket
// clients see votes cast anywhere.
type EventBus struct {
	machineID   string
	collection  *mongo.Collection
	notifyLocal NotifyFunc
	cancelFunc  context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	mu          sync.Mutex
}

func generateMachineID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// New creates an EventBus. If collection is nil, the EventBus runs in
// local-only mode (Publish is a no-op, no watcher runs).
func New(collection *mongo.Collection, notifyLocal NotifyFunc) *EventBus {
	return &EventBus{
		machineID:   generateMachineID(),
		collection:  collection,
		notifyLocal: notifyLocal,
	}
}

// Start begins the Change Stream watcher in a background goroutine.
func (eb *EventBus) Start() {
	if eb.collection == nil {
		log.Println("[EventBus] No collection configured, running in local-only mode")
		return
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	eb.cancelFunc = cancel
	eb.running = true
	eb.wg.Add(1)

	go eb.watchLoop(ctx)
	log.Printf("[EventBus] Started (machineId=%s)", eb.machineID)
}

// Stop cancels the Change Stream watcher and waits for it to exit.
func (eb *EventBus) Stop() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if !eb.running {
		return
	}
	eb.running = false
	if eb.cancelFunc != nil {
		eb.cancelFunc()
	}
	eb.wg.Wait()
	log.Println("[EventBus] Stopped")
}

// PublishLeaderboardUpdate inserts a leaderboard-changed event.
// Errors are logged, never returned (fire-and-forget).
func (eb *EventBus) PublishLeaderboardUpdate() {
	if eb.collection == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	doc := ArenaEvent{
		OriginMachineID: eb.machineID,
		EventType:       eventTypeLeaderboardUpdate,
		CreatedAt:       time.Now(),
	}
	if _, err := eb.collection.InsertOne(ctx, doc); err != nil {
		log.Printf("[EventBus] Failed to publish leaderboard update: %v", err)
	}
}

// watchLoop runs the Change Stream in a reconnecting loop.
func (eb *EventBus) watchLoop(ctx context.Context) {
	defer eb.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		err := eb.watch(ctx)
		if ctx.Err() != nil {
			return // normal shutdown
		}
		log.Printf("[EventBus] Change stream error (reconnecting in 2s): %v", err)
		time.Sleep(2 * time.Second)
	}
}

func (eb *EventBus) watch(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: "insert"},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	cs, err := eb.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return err
	}
	defer cs.Close(ctx)

	for cs.Next(ctx) {
		var changeDoc struct {
			FullDocument ArenaEvent `bson:"fullDocument"`
		}
		if err := cs.Decode(&changeDoc); err != nil {
			log.Printf("[EventBus] Failed to decode change event: %v", err)
			continue
		}

		event := changeDoc.FullDocument

		// Skip events from this machine (already delivered locally)
		if event.OriginMachineID == eb.machineID {
			continue
		}

		switch event.EventType {
		case eventTypeLeaderboardUpdate:
			if eb.notifyLocal != nil {
				eb.notifyLocal()
			}
		default:
			log.Printf("[EventBus] Unknown event type: %s", event.EventType)
		}
	}

	return cs.Err()
}
