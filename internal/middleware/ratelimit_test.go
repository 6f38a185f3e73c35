package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// newTestRateLimiter はバースト数を絞ったテスト用リミッターを返す。
func newTestRateLimiter(t *testing.T, generalBurst, mutationBurst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中に補充されない低レート
		GeneralBurst:    generalBurst,
		MutationRate:    rate.Limit(0.001),
		MutationBurst:   mutationBurst,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func rateLimitedRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	return req.WithContext(ContextWithUserID(req.Context(), userID))
}

func passHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// バースト内のリクエストが通過し、超過分が429になることを検証
func TestRateLimiter_GeneralBurstExceeded(t *testing.T) {
	rl := newTestRateLimiter(t, 3, 3)
	handler := rl.GeneralMiddleware()(passHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, rateLimitedRequest("user-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, rateLimitedRequest("user-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429 response")
	}
}

// ユーザーごとにリミッターが独立していることを検証
func TestRateLimiter_PerUserIsolation(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	handler := rl.GeneralMiddleware()(passHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, rateLimitedRequest("user-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("user-1 first request: status = %d", rec.Code)
	}

	// user-1は枯渇しているがuser-2は影響を受けない
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, rateLimitedRequest("user-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("user-1 second request: status = %d, want 429", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, rateLimitedRequest("user-2"))
	if rec.Code != http.StatusOK {
		t.Errorf("user-2 request: status = %d, want 200", rec.Code)
	}
}

// API全般と状態変更のリミッターが独立していることを検証
func TestRateLimiter_GeneralAndMutationIndependent(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	general := rl.GeneralMiddleware()(passHandler())
	mutation := rl.MutationMiddleware()(passHandler())

	// API全般を枯渇させる
	rec := httptest.NewRecorder()
	general.ServeHTTP(rec, rateLimitedRequest("user-1"))
	rec = httptest.NewRecorder()
	general.ServeHTTP(rec, rateLimitedRequest("user-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("general: status = %d, want 429", rec.Code)
	}

	// 状態変更リミッターは別枠で許可される
	rec = httptest.NewRecorder()
	mutation.ServeHTTP(rec, rateLimitedRequest("user-1"))
	if rec.Code != http.StatusOK {
		t.Errorf("mutation: status = %d, want 200", rec.Code)
	}
}

// ユーザーIDなしのリクエストが401を返すことを検証
func TestRateLimiter_MissingUserID(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	handler := rl.GeneralMiddleware()(passHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// アクセスしたユーザー数だけエントリが作られることを検証
func TestRateLimiter_LimiterCounts(t *testing.T) {
	rl := newTestRateLimiter(t, 10, 10)
	general := rl.GeneralMiddleware()(passHandler())
	mutation := rl.MutationMiddleware()(passHandler())

	for _, userID := range []string{"user-1", "user-2", "user-3"} {
		rec := httptest.NewRecorder()
		general.ServeHTTP(rec, rateLimitedRequest(userID))
	}
	rec := httptest.NewRecorder()
	mutation.ServeHTTP(rec, rateLimitedRequest("user-1"))

	if got := rl.GeneralLimiterCount(); got != 3 {
		t.Errorf("GeneralLimiterCount = %d, want 3", got)
	}
	if got := rl.MutationLimiterCount(); got != 1 {
		t.Errorf("MutationLimiterCount = %d, want 1", got)
	}
}

// クリーンアップでTTLを超えたエントリが削除されることを検証
func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    10,
		MutationRate:    rate.Limit(1),
		MutationBurst:   10,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)

	rl.getOrCreateGeneralLimiter("user-1")
	rl.getOrCreateMutationLimiter("user-1")

	// 最終アクセスをTTL超過分だけ過去にずらす
	rl.generalMu.Lock()
	rl.generalLimiters["user-1"].lastAccess = time.Now().Add(-3 * time.Hour)
	rl.generalMu.Unlock()
	rl.mutationMu.Lock()
	rl.mutationLimiters["user-1"].lastAccess = time.Now().Add(-3 * time.Hour)
	rl.mutationMu.Unlock()

	rl.cleanup()

	if got := rl.GeneralLimiterCount(); got != 0 {
		t.Errorf("GeneralLimiterCount = %d, want 0", got)
	}
	if got := rl.MutationLimiterCount(); got != 0 {
		t.Errorf("MutationLimiterCount = %d, want 0", got)
	}
}

// デフォルト設定が要件どおりのレートであることを検証
func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if got := float64(cfg.GeneralRate); got != 2.0 {
		t.Errorf("GeneralRate = %v, want 2.0 req/sec", got)
	}
	if got := float64(cfg.MutationRate); got != 0.5 {
		t.Errorf("MutationRate = %v, want 0.5 req/sec", got)
	}
}
