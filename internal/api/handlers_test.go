package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/megabyte0x/accountable/internal/app"
	"github.com/megabyte0x/accountable/internal/config"
	"github.com/megabyte0x/accountable/internal/domain"
	"github.com/megabyte0x/accountable/internal/store"
)

// stubRepo is a minimal in-memory repository for handler tests.
type stubRepo struct {
	goals      map[string]*domain.Goal
	supporters map[string][]domain.Supporter
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		goals:      map[string]*domain.Goal{},
		supporters: map[string][]domain.Supporter{},
	}
}

func (s *stubRepo) ListGoalsByOwner(ctx context.Context, address string) ([]domain.Goal, error) {
	goals := []domain.Goal{}
	for _, g := range s.goals {
		if g.OwnerAddress == address {
			goals = append(goals, *g)
		}
	}
	return goals, nil
}

func (s *stubRepo) GetGoalByID(ctx context.Context, goalID string) (*domain.Goal, error) {
	g, ok := s.goals[goalID]
	if !ok {
		return nil, store.ErrGoalNotFound
	}
	copied := *g
	copied.Supporters = append([]domain.Supporter{}, s.supporters[goalID]...)
	return &copied, nil
}

func (s *stubRepo) CreateGoal(ctx context.Context, goal domain.Goal) (*domain.Goal, error) {
	stored := goal
	s.goals[goal.ID] = &stored
	s.supporters[goal.ID] = append([]domain.Supporter{}, goal.Supporters...)
	return s.GetGoalByID(ctx, goal.ID)
}

func (s *stubRepo) UpdateGoal(ctx context.Context, goalID string, patch store.GoalPatch) (*domain.Goal, error) {
	g, ok := s.goals[goalID]
	if !ok {
		return nil, store.ErrGoalNotFound
	}
	if patch.Status != nil {
		g.Status = *patch.Status
	}
	if patch.IsCompleted != nil {
		g.IsCompleted = *patch.IsCompleted
	}
	return s.GetGoalByID(ctx, goalID)
}

func (s *stubRepo) SupporterExists(ctx context.Context, goalID string, fid int64) (bool, error) {
	for _, sup := range s.supporters[goalID] {
		if sup.FID == fid {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) AddSupporter(ctx context.Context, goalID string, supporter domain.Supporter) error {
	s.supporters[goalID] = append(s.supporters[goalID], supporter)
	return nil
}

func (s *stubRepo) ListSupporters(ctx context.Context, goalID string) ([]domain.Supporter, error) {
	return append([]domain.Supporter{}, s.supporters[goalID]...), nil
}

func (s *stubRepo) CreateIntent(ctx context.Context, intent domain.GoalIntent) error { return nil }

func (s *stubRepo) MarkIntentApplied(ctx context.Context, intentID uuid.UUID) error { return nil }

func (s *stubRepo) ListStaleIntents(ctx context.Context, cutoff time.Time) ([]domain.GoalIntent, error) {
	return []domain.GoalIntent{}, nil
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:                      "development",
		SessionJWTSecret:            "test-secret",
		SessionTTLMinutes:           60,
		LookupRateLimitPerMinute:    30,
		AccountAssociationHeader:    "aGVhZGVy",
		AccountAssociationPayload:   "cGF5bG9hZA",
		AccountAssociationSignature: "c2lnbmF0dXJl",
		FrameVersion:                "1",
		FrameName:                   "accountable",
		FrameIconURL:                "https://accountable.example/icon.png",
		FrameHomeURL:                "https://accountable.example",
		FrameImageURL:               "https://accountable.example/opengraph-image",
		FrameButtonTitle:            "Get Me Accountable!",
		FrameSplashImageURL:         "https://accountable.example/splash.png",
		FrameSplashBackgroundColor:  "#f7f7f7",
		FrameWebhookURL:             "https://api.neynar.com/f/app/test/event",
	}
}

func newTestRouter(repo app.Repository) (http.Handler, config.Config) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	service := app.NewService(repo, nil, "", logger)
	lookup := app.NewLookup(nil, logger)
	handler := NewHandler(service, lookup, nil, cfg, logger)
	return NewRouter(handler, cfg.SessionJWTSecret), cfg
}

func mintTestSession(t *testing.T, router http.Handler, address string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"address": address})
	req := httptest.NewRequest("POST", "/auth/session", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("session mint failed: %d %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode session response: %v", err)
	}
	return resp["token"]
}

func TestFrameManifestServedVerbatim(t *testing.T) {
	router, cfg := newTestRouter(newStubRepo())

	req := httptest.NewRequest("GET", "/.well-known/farcaster.json", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var manifest struct {
		AccountAssociation struct {
			Header    string `json:"header"`
			Payload   string `json:"payload"`
			Signature string `json:"signature"`
		} `json:"accountAssociation"`
		Frame struct {
			Version     string `json:"version"`
			Name        string `json:"name"`
			ButtonTitle string `json:"buttonTitle"`
			WebhookURL  string `json:"webhookUrl"`
		} `json:"frame"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &manifest); err != nil {
		t.Fatalf("failed to decode manifest: %v", err)
	}

	if manifest.AccountAssociation.Header != cfg.AccountAssociationHeader ||
		manifest.AccountAssociation.Payload != cfg.AccountAssociationPayload ||
		manifest.AccountAssociation.Signature != cfg.AccountAssociationSignature {
		t.Fatalf("account association not served verbatim: %+v", manifest.AccountAssociation)
	}
	if manifest.Frame.Name != cfg.FrameName || manifest.Frame.ButtonTitle != cfg.FrameButtonTitle {
		t.Fatalf("frame descriptor not served verbatim: %+v", manifest.Frame)
	}
	if manifest.Frame.WebhookURL != cfg.FrameWebhookURL {
		t.Fatalf("expected webhook URL %q, got %q", cfg.FrameWebhookURL, manifest.Frame.WebhookURL)
	}
}

func TestFrameEmbedLaunchAction(t *testing.T) {
	router, cfg := newTestRouter(newStubRepo())

	req := httptest.NewRequest("GET", "/frame/embed", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var embed struct {
		Version string `json:"version"`
		Button  struct {
			Title  string `json:"title"`
			Action struct {
				Type string `json:"type"`
				URL  string `json:"url"`
			} `json:"action"`
		} `json:"button"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &embed); err != nil {
		t.Fatalf("failed to decode embed: %v", err)
	}

	if embed.Button.Action.Type != "launch_frame" {
		t.Fatalf("expected launch_frame action, got %q", embed.Button.Action.Type)
	}
	if embed.Button.Action.URL != cfg.FrameHomeURL {
		t.Fatalf("expected target %q, got %q", cfg.FrameHomeURL, embed.Button.Action.URL)
	}
}

func TestFrameConfigReflectsNetworkMode(t *testing.T) {
	router, cfg := newTestRouter(newStubRepo())

	req := httptest.NewRequest("GET", "/frame/config", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode config: %v", err)
	}
	if resp["network"] != "testnet" {
		t.Fatalf("expected testnet in development mode, got %q", resp["network"])
	}
	if resp["contract_address"] != cfg.ContractAddress() {
		t.Fatalf("expected contract %q, got %q", cfg.ContractAddress(), resp["contract_address"])
	}
}

func TestCreateGoalRequiresSession(t *testing.T) {
	router, _ := newTestRouter(newStubRepo())

	req := httptest.NewRequest("POST", "/goals", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", rec.Code)
	}
}

func TestCreateGoalValidation(t *testing.T) {
	repo := newStubRepo()
	router, _ := newTestRouter(repo)
	token := mintTestSession(t, router, "0xowner")

	body, _ := json.Marshal(domain.CreateGoalRequest{
		Description: "no title here",
		Deadline:    time.Now().Add(time.Hour),
		StakeAmount: "1",
		TxHash:      "0xabc",
	})
	req := httptest.NewRequest("POST", "/goals", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing title, got %d", rec.Code)
	}
	if len(repo.goals) != 0 {
		t.Fatal("validation failure must not attempt the operation")
	}
}

func TestCreateGoalHappyPath(t *testing.T) {
	repo := newStubRepo()
	router, _ := newTestRouter(repo)
	token := mintTestSession(t, router, "0xowner")

	body, _ := json.Marshal(domain.CreateGoalRequest{
		ID:          "g1",
		Title:       "Run 5k",
		Description: "Run a 5k before the deadline",
		Deadline:    time.Now().Add(7 * 24 * time.Hour),
		StakeAmount: "1000000000000000000",
		TxHash:      "0xabc",
	})
	req := httptest.NewRequest("POST", "/goals", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var goal domain.Goal
	if err := json.Unmarshal(rec.Body.Bytes(), &goal); err != nil {
		t.Fatalf("failed to decode goal: %v", err)
	}
	if goal.Status != domain.GoalStatusActive || goal.IsCompleted {
		t.Fatalf("expected active/false, got %s/%v", goal.Status, goal.IsCompleted)
	}
	if goal.OwnerAddress != "0xowner" {
		t.Fatalf("expected session owner address, got %q", goal.OwnerAddress)
	}
}

func TestTransitionRequiresTxHash(t *testing.T) {
	repo := newStubRepo()
	repo.goals["g1"] = &domain.Goal{ID: "g1", OwnerAddress: "0xowner", Status: domain.GoalStatusActive}
	router, _ := newTestRouter(repo)
	token := mintTestSession(t, router, "0xowner")

	req := httptest.NewRequest("POST", "/goals/g1/complete", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without tx_hash, got %d", rec.Code)
	}
}

func TestTransitionForeignGoalForbidden(t *testing.T) {
	repo := newStubRepo()
	repo.goals["g1"] = &domain.Goal{ID: "g1", OwnerAddress: "0xowner", Status: domain.GoalStatusActive}
	router, _ := newTestRouter(repo)
	token := mintTestSession(t, router, "0xsomeoneelse")

	req := httptest.NewRequest("POST", "/goals/g1/fail", bytes.NewReader([]byte(`{"tx_hash":"0x1"}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-owner, got %d", rec.Code)
	}
}

func TestGetGoalNotFound(t *testing.T) {
	router, _ := newTestRouter(newStubRepo())

	req := httptest.NewRequest("GET", "/goals/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListGoalsRequiresAddress(t *testing.T) {
	router, _ := newTestRouter(newStubRepo())

	req := httptest.NewRequest("GET", "/goals", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without address, got %d", rec.Code)
	}
}

func TestSearchFarcasterUserEmptyQuery(t *testing.T) {
	router, _ := newTestRouter(newStubRepo())

	req := httptest.NewRequest("GET", "/farcaster/user?username=", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result domain.LookupResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode lookup result: %v", err)
	}
	if result.User != nil {
		t.Fatalf("expected no user for empty query, got %+v", result.User)
	}
}

func TestSearchFarcasterUserProceedsWhenLimiterBackendDown(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	cfg := testConfig()

	// A client pointed at a closed port makes every limiter call fail.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	limiter := app.NewRedisRateLimiter(client, "test:rate_limit")

	service := app.NewService(newStubRepo(), nil, "", logger)
	lookup := app.NewLookup(nil, logger)
	handler := NewHandler(service, lookup, limiter, cfg, logger)
	router := NewRouter(handler, cfg.SessionJWTSecret)

	req := httptest.NewRequest("GET", "/farcaster/user?username=alice", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when the limiter backend is down, got %d", rec.Code)
	}
	if !strings.Contains(logBuf.String(), "rate limit check failed") {
		t.Fatalf("expected a degrade warning in the log, got: %q", logBuf.String())
	}
}
