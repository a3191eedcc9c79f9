package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BattleOutcome is the resolution state of a battle. A battle starts pending
// and resolves exactly once into one of the terminal outcomes.
type BattleOutcome string

const (
	OutcomePending BattleOutcome = "pending"
	OutcomeModel1  BattleOutcome = "model1"
	OutcomeModel2  BattleOutcome = "model2"
	OutcomeDraw    BattleOutcome = "draw"
	OutcomeInvalid BattleOutcome = "invalid"
)

// IsTerminal reports whether the outcome resolves a battle.
func (o BattleOutcome) IsTerminal() bool {
	switch o {
	case OutcomeModel1, OutcomeModel2, OutcomeDraw, OutcomeInvalid:
		return true
	}
	return false
}

// ParseVerdict maps a vote request's result field to a battle outcome.
func ParseVerdict(result string) (BattleOutcome, bool) {
	switch result {
	case "model1":
		return OutcomeModel1, true
	case "model2":
		return OutcomeModel2, true
	case "draw":
		return OutcomeDraw, true
	case "invalid":
		return OutcomeInvalid, true
	}
	return "", false
}

// Battle records one comparison instance: two models answering the same
// question, pending a human verdict. Responses are immutable once set.
type Battle struct {
	ID            primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	BattleID      string             `json:"battleId" bson:"battleId"`
	Model1ID      string             `json:"model1" bson:"model1Id"`
	Model2ID      string             `json:"model2" bson:"model2Id"`
	Question      string             `json:"question" bson:"question"`
	Response1     string             `json:"response1" bson:"response1"`
	Response2     string             `json:"response2" bson:"response2"`
	Outcome       BattleOutcome      `json:"outcome" bson:"outcome"`
	WinnerModelID string             `json:"winnerModelId,omitempty" bson:"winnerModelId,omitempty"`
	VoterID       string             `json:"voterId,omitempty" bson:"voterId,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	ResolvedAt    *time.Time         `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
}

// Winner returns the winning model id for a win outcome, or "" otherwise.
func (b *Battle) Winner(outcome BattleOutcome) string {
	switch outcome {
	case OutcomeModel1:
		return b.Model1ID
	case OutcomeModel2:
		return b.Model2ID
	}
	return ""
}
