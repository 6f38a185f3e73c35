package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

// --- モック ---

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}
func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	return m.exchangeCodeFn(ctx, code)
}

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn     func(ctx context.Context, username string) (*model.User, error)
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}
func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error { return nil }

type mockIdentityRepo struct {
	findFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findFn != nil {
		return m.findFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

type mockSessionRepo struct {
	createFn     func(ctx context.Context, session *model.Session) error
	findByIDFn   func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error { return nil }

func sampleOAuthUserInfo() *OAuthUserInfo {
	return &OAuthUserInfo{
		ProviderUserID: "google-123",
		Email:          "hitoshi@example.com",
		Name:           "Hitoshi",
		Provider:       "google",
	}
}

// --- テスト ---

// 初回ログインでユーザーとidentityが同時作成されることを検証
func TestService_HandleCallback_FirstLogin_CreatesUser(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return sampleOAuthUserInfo(), nil
		},
	}

	var createdUser *model.User
	var createdIdentity *model.Identity
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			createdUser = user
			createdIdentity = identity
			return nil
		},
	}

	var createdSession *model.Session
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(oauth, userRepo, &mockIdentityRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 3600})

	session, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}

	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	// ユーザー名はメールのローカル部から導出される
	if createdUser.Username != "hitoshi" {
		t.Errorf("Username = %q, want hitoshi", createdUser.Username)
	}
	if createdUser.Email != "hitoshi@example.com" {
		t.Errorf("Email = %q, want hitoshi@example.com", createdUser.Email)
	}

	if createdIdentity == nil {
		t.Fatal("expected identity to be created")
	}
	if createdIdentity.UserID != createdUser.ID {
		t.Errorf("identity.UserID = %q, want %q", createdIdentity.UserID, createdUser.ID)
	}
	if createdIdentity.Provider != "google" {
		t.Errorf("Provider = %q, want google", createdIdentity.Provider)
	}

	if session == nil || createdSession == nil {
		t.Fatal("expected session to be issued")
	}
	if session.UserID != createdUser.ID {
		t.Errorf("session.UserID = %q, want %q", session.UserID, createdUser.ID)
	}
}

// ユーザー名が重複する場合に連番サフィックスが付与されることを検証
func TestService_HandleCallback_UsernameConflict_AppendsSuffix(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return sampleOAuthUserInfo(), nil
		},
	}

	taken := map[string]bool{"hitoshi": true, "hitoshi2": true}
	var createdUser *model.User
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if taken[username] {
				return &model.User{ID: "other", Username: username}, nil
			}
			return nil, nil
		},
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			createdUser = user
			return nil
		},
	}

	svc := NewService(oauth, userRepo, &mockIdentityRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})

	if _, err := svc.HandleCallback(context.Background(), "auth-code"); err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}
	if createdUser.Username != "hitoshi3" {
		t.Errorf("Username = %q, want hitoshi3", createdUser.Username)
	}
}

// 登録済みユーザーの再ログインでユーザーが再作成されないことを検証
func TestService_HandleCallback_ExistingUser_LogsIn(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return sampleOAuthUserInfo(), nil
		},
	}
	identRepo := &mockIdentityRepo{
		findFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return &model.Identity{ID: "ident-1", UserID: "user-1", Provider: provider, ProviderUserID: providerUserID}, nil
		},
	}
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			t.Fatal("CreateWithIdentity should not be called for existing user")
			return nil
		},
	}

	svc := NewService(oauth, userRepo, identRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})

	session, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}
	if session.UserID != "user-1" {
		t.Errorf("session.UserID = %q, want user-1", session.UserID)
	}
}

// セッション有効期限が設定どおりに計算されることを検証
func TestService_HandleCallback_SessionExpiry(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return sampleOAuthUserInfo(), nil
		},
	}
	identRepo := &mockIdentityRepo{
		findFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return &model.Identity{UserID: "user-1"}, nil
		},
	}

	maxAge := 7200
	svc := NewService(oauth, &mockUserRepo{}, identRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: maxAge})

	before := time.Now()
	session, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}

	wantMin := before.Add(time.Duration(maxAge) * time.Second)
	if session.ExpiresAt.Before(wantMin.Add(-time.Minute)) || session.ExpiresAt.After(wantMin.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want ~%v", session.ExpiresAt, wantMin)
	}

	// セッションIDは64文字の16進数
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}
	if strings.ToLower(session.ID) != session.ID {
		t.Error("session ID should be lowercase hex")
	}
}

// Logoutがセッションを削除することを検証
func TestService_Logout(t *testing.T) {
	deleted := ""
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, sessionRepo, ServiceConfig{})

	if err := svc.Logout(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if deleted != "sess-1" {
		t.Errorf("deleted session = %q, want sess-1", deleted)
	}
}

// 空のセッションIDでのLogoutがエラーになることを検証
func TestService_Logout_EmptySessionID(t *testing.T) {
	svc := NewService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{}, ServiceConfig{})

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Error("expected error for empty session ID")
	}
}

// GetCurrentUserが有効なセッションからユーザーを返すことを検証
func TestService_GetCurrentUser(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "hitoshi"}, nil
		},
	}
	svc := NewService(&mockOAuthProvider{}, userRepo, &mockIdentityRepo{}, sessionRepo, ServiceConfig{})

	user, err := svc.GetCurrentUser(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetCurrentUser returned error: %v", err)
	}
	if user.Username != "hitoshi" {
		t.Errorf("Username = %q, want hitoshi", user.Username)
	}
}

// 期限切れ（見つからない）セッションでのGetCurrentUserがエラーになることを検証
func TestService_GetCurrentUser_SessionNotFound(t *testing.T) {
	svc := NewService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{}, ServiceConfig{})

	if _, err := svc.GetCurrentUser(context.Background(), "expired"); err == nil {
		t.Error("expected error for missing session")
	}
}
