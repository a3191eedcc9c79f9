package handlers

import (
	"context"
	"net/http"
	"time"

	"llm-arena/internal/arena"
	"llm-arena/internal/models"
)

type LeaderboardHandler struct {
	coordinator *arena.Coordinator
}

func NewLeaderboardHandler(coordinator *arena.Coordinator) *LeaderboardHandler {
	return &LeaderboardHandler{coordinator: coordinator}
}

type LeaderboardEntry struct {
	Rank    int     `json:"rank"`
	ModelID string  `json:"id"`
	Name    string  `json:"name"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Draws   int     `json:"draws"`
	Invalid int     `json:"invalid"`
	Elo     float64 `json:"elo"`
}

// GetLeaderboard returns models ordered by Elo for the requested scope:
// the caller's private leaderboard when userId is given, global otherwise.
// GET /api/leaderboard?userId=
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := r.URL.Query().Get("userId")

	records, err := h.coordinator.Leaderboard(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, toEntries(records))
}

func toEntries(records []models.ModelRating) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, len(records))
	for i, rec := range records {
		entries[i] = LeaderboardEntry{
			Rank:    i + 1,
			ModelID: rec.ModelID,
			Name:    rec.DisplayName,
			Wins:    rec.Wins,
			Losses:  rec.Losses,
			Draws:   rec.Draws,
			Invalid: rec.Invalid,
			Elo:     rec.Elo,
		}
	}
	return entries
}
