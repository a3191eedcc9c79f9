package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Scope identifies which leaderboard a rating record belongs to: the shared
// global leaderboard, or a single user's private one. The zero value is the
// global scope.
type Scope struct {
	userID string
}

func GlobalScope() Scope {
	return Scope{}
}

func UserScope(userID string) Scope {
	return Scope{userID: userID}
}

func (s Scope) IsGlobal() bool {
	return s.userID == ""
}

// UserID returns the owning user id and whether the scope is user-owned.
func (s Scope) UserID() (string, bool) {
	return s.userID, s.userID != ""
}

// Key returns the stable storage key for the scope ("global" or "user:<id>").
func (s Scope) Key() string {
	if s.userID == "" {
		return "global"
	}
	return "user:" + s.userID
}

func (s Scope) String() string {
	return s.Key()
}

// ModelRating stores Elo and stats for a model backend, keyed by
// (modelId, scope). One record exists per model on the global leaderboard,
// plus one per user who has voted on that model.
type ModelRating struct {
	ID          primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	ModelID     string             `json:"id" bson:"modelId"`
	Scope       string             `json:"-" bson:"scope"`
	DisplayName string             `json:"name" bson:"displayName"`
	Wins        int                `json:"wins" bson:"wins"`
	Losses      int                `json:"losses" bson:"losses"`
	Draws       int                `json:"draws" bson:"draws"`
	Invalid     int                `json:"invalid" bson:"invalid"`
	Elo         float64            `json:"elo" bson:"elo"`
	CreatedAt   time.Time          `json:"-" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"-" bson:"updatedAt"`
}
