package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"llm-arena/internal/arena"
	"llm-arena/internal/audit"
	"llm-arena/internal/llm"
	"llm-arena/internal/metrics"
	"llm-arena/internal/models"
	"llm-arena/internal/store"
)

type ArenaHandler struct {
	coordinator *arena.Coordinator
	audit       *audit.Logger
	metrics     *metrics.Metrics
}

func NewArenaHandler(coordinator *arena.Coordinator, auditLog *audit.Logger, m *metrics.Metrics) *ArenaHandler {
	return &ArenaHandler{coordinator: coordinator, audit: auditLog, metrics: m}
}

type BattleRequest struct {
	Model1   string `json:"model1"`
	Model2   string `json:"model2"`
	Question string `json:"question"`
}

type BattleResponse struct {
	BattleID  string `json:"battleId"`
	Response1 string `json:"response1"`
	Response2 string `json:"response2"`
}

// StartBattle runs one blind comparison: both models answer the question and
// the pending battle is persisted for a later vote.
// POST /api/battle
func (h *ArenaHandler) StartBattle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Minute)
	defer cancel()

	var req BattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Model1 == "" || req.Model2 == "" || req.Question == "" {
		respondWithError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	result, err := h.coordinator.StartBattle(ctx, req.Model1, req.Model2, req.Question)
	if err != nil {
		h.respondBattleError(w, err)
		return
	}

	h.metrics.BattleStarted()
	h.audit.Log(r, audit.EventBattleStarted, result.BattleID, "", req.Model1+" vs "+req.Model2)

	respondWithJSON(w, http.StatusOK, BattleResponse{
		BattleID:  result.BattleID,
		Response1: result.Response1,
		Response2: result.Response2,
	})
}

func (h *ArenaHandler) respondBattleError(w http.ResponseWriter, err error) {
	var unknownModel *arena.UnknownModelError
	if errors.As(err, &unknownModel) {
		respondWithError(w, http.StatusBadRequest, unknownModel.Error())
		return
	}

	var tooLong *arena.PromptTooLongError
	if errors.As(err, &tooLong) {
		respondWithError(w, http.StatusBadRequest, tooLong.Error())
		return
	}

	var failed *arena.ComparisonFailedError
	if errors.As(err, &failed) {
		status := http.StatusBadGateway
		var invocation *llm.ModelInvocationError
		if errors.As(err, &invocation) && invocation.Timeout() {
			status = http.StatusGatewayTimeout
		}
		respondWithError(w, status, "Failed to get response from "+failed.FailedModelID)
		return
	}

	respondWithError(w, http.StatusInternalServerError, "Failed to start battle")
}

type VoteRequest struct {
	BattleID string `json:"battleId"`
	Result   string `json:"result"` // "model1", "model2", "draw", "invalid"
	UserID   string `json:"userId,omitempty"`
	// Optional cross-checks against the recorded battle.
	Model1 string `json:"model1,omitempty"`
	Model2 string `json:"model2,omitempty"`
}

type VoteResponse struct {
	Status  string                           `json:"status"`
	Ratings map[string][]*models.ModelRating `json:"ratings"`
}

// CastVote resolves a battle with the voter's verdict and applies the Elo
// outcome to every leaderboard the vote touches.
// POST /api/vote
func (h *ArenaHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BattleID == "" || req.Result == "" {
		respondWithError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	if req.Model1 != "" || req.Model2 != "" {
		battle, err := h.coordinator.Battle(ctx, req.BattleID)
		if err != nil {
			respondWithError(w, http.StatusNotFound, "Battle not found")
			return
		}
		if (req.Model1 != "" && req.Model1 != battle.Model1ID) ||
			(req.Model2 != "" && req.Model2 != battle.Model2ID) {
			respondWithError(w, http.StatusBadRequest, "Models do not match battle")
			return
		}
	}

	result, err := h.coordinator.CastVote(ctx, req.BattleID, req.Result, req.UserID)
	if err != nil {
		h.respondVoteError(w, err)
		return
	}

	h.metrics.VoteCast(req.Result)
	h.audit.Log(r, audit.EventVoteCast, req.BattleID, req.UserID, req.Result)

	ratings := map[string][]*models.ModelRating{"global": result.Global}
	if result.User != nil {
		ratings["user"] = result.User
	}
	respondWithJSON(w, http.StatusOK, VoteResponse{Status: "success", Ratings: ratings})
}

func (h *ArenaHandler) respondVoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrBattleNotFound):
		respondWithError(w, http.StatusNotFound, "Battle not found")
	case errors.Is(err, store.ErrAlreadyResolved):
		respondWithError(w, http.StatusConflict, "Battle already resolved")
	case errors.Is(err, store.ErrUnknownModel):
		respondWithError(w, http.StatusNotFound, "Model not found")
	default:
		var verdictErr *arena.UnknownVerdictError
		if errors.As(err, &verdictErr) {
			respondWithError(w, http.StatusBadRequest, verdictErr.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to record vote")
	}
}

// ResetDatabase wipes all ratings and battles and reseeds the catalog.
// POST /api/admin/reset
func (h *ArenaHandler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := h.coordinator.Reset(ctx); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to reset database")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Database reset successfully",
	})
}
