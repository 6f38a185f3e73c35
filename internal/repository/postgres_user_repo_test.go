package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// PostgresIdentityRepoはIdentityRepositoryインターフェースを満たすことを検証
func TestPostgresIdentityRepo_ImplementsInterface(t *testing.T) {
	var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
}

// NewPostgresIdentityRepoが正しく初期化されることを検証
func TestNewPostgresIdentityRepo_Initializes(t *testing.T) {
	repo := NewPostgresIdentityRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Identityモデルのフィールドが正しく構築されることを検証
func TestIdentityModel_Fields(t *testing.T) {
	now := time.Now()
	identity := &model.Identity{
		ID:             "ident-1",
		UserID:         "user-1",
		Provider:       "google",
		ProviderUserID: "google-123",
		CreatedAt:      now,
	}

	if identity.Provider != "google" {
		t.Errorf("identity.Provider = %q, want google", identity.Provider)
	}
	if identity.UserID != "user-1" {
		t.Errorf("identity.UserID = %q, want user-1", identity.UserID)
	}
}
