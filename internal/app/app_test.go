package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datadetective/academy/internal/state"
	"github.com/datadetective/academy/internal/testutil"
	"github.com/datadetective/academy/pkg/core"
)

var selectAll = core.ChallengeKey{UnitID: 1, ChallengeID: 1}

func newOfflineApp(t *testing.T, statePath string) *App {
	t.Helper()
	a, err := New(Config{
		Engine:    "sqlite",
		StatePath: statePath,
		Logger:    testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	return a
}

func TestApp_OfflineSolveAndReport(t *testing.T) {
	ctx := context.Background()
	a := newOfflineApp(t, state.MemoryPath)
	defer func() { require.NoError(t, a.Close(ctx)) }()

	assert.False(t, a.Online())
	assert.Equal(t, 7, a.Catalog().Count())

	s, err := a.OpenChallenge(ctx, selectAll, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close(ctx) }()

	level, err := s.UnlockHint(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, level)

	require.NoError(t, s.SetQuery(ctx, "SELECT * FROM users"))
	verdict, err := s.CheckAnswer(ctx)
	require.NoError(t, err)
	require.True(t, verdict.IsValid, verdict.Message)

	award, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, award.PointsEarned)
	assert.Equal(t, 1, award.HintsUsed)

	report, err := a.Progress(ctx)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "SELECT All Columns", report.Items[0].ChallengeTitle)
	assert.Equal(t, 100, report.Summary.TotalPoints)
	assert.InDelta(t, 100.0/7.0, report.Summary.CompletionPercentage, 0.01)
}

func TestApp_RestoresHintsAndDrafts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	a := newOfflineApp(t, path)
	s, err := a.OpenChallenge(ctx, selectAll, nil)
	require.NoError(t, err)
	_, err = s.UnlockHint(ctx)
	require.NoError(t, err)
	_, err = s.UnlockHint(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SetQuery(ctx, "SELECT name FROM users"))
	require.NoError(t, s.Close(ctx))
	require.NoError(t, a.Close(ctx))

	a = newOfflineApp(t, path)
	defer func() { require.NoError(t, a.Close(ctx)) }()
	s, err = a.OpenChallenge(ctx, selectAll, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close(ctx) }()

	st := s.State()
	assert.Equal(t, 2, st.HintsUsed)
	assert.Equal(t, "SELECT name FROM users", st.QueryText)
	assert.Len(t, s.Hints(), 2)
}

func TestApp_UnknownChallenge(t *testing.T) {
	ctx := context.Background()
	a := newOfflineApp(t, state.MemoryPath)
	defer func() { _ = a.Close(ctx) }()

	_, err := a.OpenChallenge(ctx, core.ChallengeKey{UnitID: 9, ChallengeID: 9}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "challenge not found: unit=9, challenge=9")
}

func TestApp_Practice(t *testing.T) {
	ctx := context.Background()
	a := newOfflineApp(t, state.MemoryPath)
	defer func() { _ = a.Close(ctx) }()

	var outcomes []core.Outcome
	s, err := a.OpenPractice(ctx, func(o core.Outcome) { outcomes = append(outcomes, o) })
	require.NoError(t, err)
	defer func() { _ = s.Close(ctx) }()

	require.NoError(t, s.SetQuery(ctx, "SELECT COUNT(*) AS n FROM orders"))
	out, err := s.Run(ctx)
	require.NoError(t, err)
	require.True(t, out.OK(), out.Message)
	assert.Equal(t, "6", out.Result.Rows[0][0].String())
	assert.Len(t, outcomes, 1)
	assert.False(t, s.State().HasReference)
}

func TestApp_ChallengeUsesItsPackDataset(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(`
name: shop
dataset:
  name: shop
  schema: CREATE TABLE users (name TEXT);
  seed: INSERT INTO users VALUES ('Ada');
units:
  - id: 1
    title: Users
    challenges:
      - {id: 1, title: Users, points: 10, solution: SELECT * FROM users}
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(`
name: zoo
dataset:
  name: zoo
  schema: CREATE TABLE animals (name TEXT);
  seed: INSERT INTO animals VALUES ('otter');
units:
  - id: 2
    title: Animals
    challenges:
      - {id: 1, title: Animals, points: 20, solution: SELECT * FROM animals}
`), 0o600))

	a, err := New(Config{
		Engine:     "sqlite",
		CatalogDir: dir,
		StatePath:  state.MemoryPath,
		Logger:     testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	defer func() { _ = a.Close(ctx) }()

	s, err := a.OpenChallenge(ctx, core.ChallengeKey{UnitID: 2, ChallengeID: 1}, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close(ctx) }()

	require.NoError(t, s.SetQuery(ctx, "SELECT name FROM animals"))
	verdict, err := s.CheckAnswer(ctx)
	require.NoError(t, err)
	assert.True(t, verdict.IsValid, verdict.Message)
}

type remoteCalls struct {
	mu      sync.Mutex
	hints   int
	submits int
}

func newRemote(t *testing.T) (*remoteCalls, string) {
	t.Helper()
	calls := &remoteCalls{}
	r := chi.NewRouter()
	r.Post("/api/hints/access", func(w http.ResponseWriter, _ *http.Request) {
		calls.mu.Lock()
		calls.hints++
		calls.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"hint_id": 1, "accessed_at": "2024-01-01T00:00:00Z"}`))
	})
	r.Post("/api/progress/submit", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(req.Body).Decode(&body)
		calls.mu.Lock()
		calls.submits++
		calls.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": 1, "unit_id": body["unit_id"], "challenge_id": body["challenge_id"],
			"points_earned": 100, "hints_used": body["hints_used"], "query": body["query"],
			"completed_at": time.Now().UTC(),
		})
	})
	r.Get("/api/progress/me", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"progress_items": [], "summary": {"total_points": 0, "total_completed": 0, "completion_percentage": 0}}`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return calls, srv.URL + "/api"
}

func TestApp_Online(t *testing.T) {
	ctx := context.Background()
	calls, url := newRemote(t)

	a, err := New(Config{
		Engine:     "sqlite",
		StatePath:  state.MemoryPath,
		APIBaseURL: url,
		Logger:     testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	defer func() { _ = a.Close(ctx) }()
	assert.True(t, a.Online())

	s, err := a.OpenChallenge(ctx, selectAll, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close(ctx) }()

	_, err = s.UnlockHint(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SetQuery(ctx, "SELECT * FROM users"))
	_, err = s.CheckAnswer(ctx)
	require.NoError(t, err)
	award, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, award.PointsEarned)

	calls.mu.Lock()
	assert.Equal(t, 1, calls.hints)
	assert.Equal(t, 1, calls.submits)
	calls.mu.Unlock()

	// Remote submissions do not touch local progress.
	local, err := a.local.Report(ctx)
	require.NoError(t, err)
	assert.Empty(t, local.Items)

	report, err := a.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.TotalCompleted)

	// Hint accesses are mirrored locally so they survive a restart.
	used, err := a.local.HintsUsed(ctx, selectAll)
	require.NoError(t, err)
	assert.Equal(t, 1, used)
}
