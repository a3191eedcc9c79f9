package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"llm-arena/internal/arena"
	"llm-arena/internal/catalog"
	"llm-arena/internal/llm"
	"llm-arena/internal/rag"
	"llm-arena/internal/store"
	"llm-arena/internal/tokens"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInvoker struct {
	failModel string
}

func (s *stubInvoker) Invoke(ctx context.Context, modelID, question, ragContext string) (string, error) {
	if modelID == s.failModel {
		return "", &llm.ModelInvocationError{ModelID: modelID, StatusCode: 500, Message: "upstream down"}
	}
	return "answer from " + modelID, nil
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Entry{
		{ID: "alpha", Name: "Alpha"},
		{ID: "beta", Name: "Beta"},
		{ID: "gamma", Name: "Gamma"},
	})
}

func newTestHandlers(invoker llm.Invoker) (*ArenaHandler, *LeaderboardHandler, *arena.Coordinator) {
	coordinator := arena.NewCoordinator(
		store.NewMemoryRepository(),
		testCatalog(),
		invoker,
		rag.NoopRetriever{},
		tokens.NewWordCounter(1.0),
		arena.Config{},
	)
	return NewArenaHandler(coordinator, nil, nil), NewLeaderboardHandler(coordinator), coordinator
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func startBattle(t *testing.T, h *ArenaHandler, model1, model2 string) BattleResponse {
	t.Helper()
	rec := postJSON(t, h.StartBattle, BattleRequest{
		Model1: model1, Model2: model2, Question: "which is better?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp BattleResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestStartBattleReturnsBothResponses(t *testing.T) {
	h, _, _ := newTestHandlers(&stubInvoker{})

	resp := startBattle(t, h, "alpha", "beta")
	assert.NotEmpty(t, resp.BattleID)
	assert.Equal(t, "answer from alpha", resp.Response1)
	assert.Equal(t, "answer from beta", resp.Response2)
}

func TestStartBattleMissingFields(t *testing.T) {
	h, _, _ := newTestHandlers(&stubInvoker{})

	rec := postJSON(t, h.StartBattle, BattleRequest{Model1: "alpha"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartBattleUnknownModel(t *testing.T) {
	h, _, _ := newTestHandlers(&stubInvoker{})

	rec := postJSON(t, h.StartBattle, BattleRequest{
		Model1: "alpha", Model2: "nope", Question: "q",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartBattleUpstreamFailure(t *testing.T) {
	h, _, _ := newTestHandlers(&stubInvoker{failModel: "beta"})

	rec := postJSON(t, h.StartBattle, BattleRequest{
		Model1: "alpha", Model2: "beta", Question: "q",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStartBattlePromptTooLong(t *testing.T) {
	h, _, _ := newTestHandlers(&stubInvoker{})

	long := ""
	for i := 0; i < 1100; i++ {
		long += fmt.Sprintf("word%d ", i)
	}
	rec := postJSON(t, h.StartBattle, BattleRequest{
		Model1: "alpha", Model2: "beta", Question: long,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCastVoteUpdatesRatings(t *testing.T) {
	h, _, _ := newTestHandlers(&stubInvoker{})
	battle := startBattle(t, h, "alpha", "beta")

	rec := postJSON(t, h.CastVote, VoteRequest{BattleID: battle.BattleID, Result: "model1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp VoteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)

	global := resp.Ratings["global"]
	require.Len(t, global, 2)
	assert.InDelta(t, 1516.0, global[0].Elo, 0.0001)
	assert.InDelta(t, 1484.0, global[1].Elo, 0.0001)
	assert.Equal(t, 1, global[0].Wins)
	assert.Equal(t, 1, global[1].Losses)
	assert.NotContains(t, resp.Ratings, "user")
}

func TestCastVoteWithUserScope(t *testing.T) {
	h, _, _ := newTestHandlers(&stubInvoker{})
	battle := startBattle(t, h, "alpha", "beta")

	rec := postJSON(t, h.CastVote, VoteRequest{
		BattleID: battle.BattleID, Result: "model2", UserID: "alice",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp VoteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Contains(t, resp.Ratings, "user")
	user := resp.Ratings["user"]
	require.Len(t, user, 2)
	assert.InDelta(t, 1484.0, user[0].Elo, 0.0001)
	assert.InDelta(t, 1516.0, user[1].Elo, 0.0001)
}

func TestCastVoteTwiceConflicts(t *testing.T) {
	h, _, _ := newTestHandlers(&stubInvoker{})
	battle := startBattle(t, h, "alpha", "beta")

	rec := postJSON(t, h.CastVote, VoteRequest{BattleID: battle.BattleID, Result: "draw"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h.CastVote, VoteRequest{BattleID: battle.BattleID, Result: "model1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCastVoteUnknownBattle(t *testing.T) {
	h, _, _ := newTestHandlers(&stubInvoker{})

	rec := postJSON(t, h.CastVote, VoteRequest{BattleID: "missing", Result: "model1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCastVoteUnknownVerdict(t *testing.T) {
	h, _, _ := newTestHandlers(&stubInvoker{})
	battle := startBattle(t, h, "alpha", "beta")

	rec := postJSON(t, h.CastVote, VoteRequest{BattleID: battle.BattleID, Result: "tie"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCastVoteModelCrossCheckMismatch(t *testing.T) {
	h, _, _ := newTestHandlers(&stubInvoker{})
	battle := startBattle(t, h, "alpha", "beta")

	rec := postJSON(t, h.CastVote, VoteRequest{
		BattleID: battle.BattleID, Result: "model1", Model1: "gamma",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLeaderboardRanksByElo(t *testing.T) {
	h, lb, _ := newTestHandlers(&stubInvoker{})
	battle := startBattle(t, h, "alpha", "beta")
	rec := postJSON(t, h.CastVote, VoteRequest{BattleID: battle.BattleID, Result: "model2"})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	rec = httptest.NewRecorder()
	lb.GetLeaderboard(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []LeaderboardEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "beta", entries[0].ModelID)
	assert.Equal(t, "Beta", entries[0].Name)
	assert.Equal(t, "alpha", entries[1].ModelID)
	assert.Greater(t, entries[0].Elo, entries[1].Elo)
}

func TestGetLeaderboardUserScopeIsEmptyWithoutVotes(t *testing.T) {
	_, lb, _ := newTestHandlers(&stubInvoker{})

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard?userId=nobody", nil)
	rec := httptest.NewRecorder()
	lb.GetLeaderboard(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []LeaderboardEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
	assert.Empty(t, entries)
}

func TestGetModels(t *testing.T) {
	h := NewModelsHandler(testCatalog())

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	rec := httptest.NewRecorder()
	h.GetModels(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []catalog.Entry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "alpha", entries[0].ID)
}

func TestResetDatabase(t *testing.T) {
	h, lb, coordinator := newTestHandlers(&stubInvoker{})
	require.NoError(t, coordinator.SeedCatalog(context.Background()))

	battle := startBattle(t, h, "alpha", "beta")
	rec := postJSON(t, h.CastVote, VoteRequest{BattleID: battle.BattleID, Result: "model1"})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/reset", nil)
	rec = httptest.NewRecorder()
	h.ResetDatabase(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Leaderboard is back to the seeded catalog at the initial rating
	req = httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	rec = httptest.NewRecorder()
	lb.GetLeaderboard(rec, req)

	var entries []LeaderboardEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.InDelta(t, 1500.0, e.Elo, 0.0001)
		assert.Zero(t, e.Wins)
	}
}
