package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/lib/pq"
)

// PostgresProjectRepoはProjectRepositoryインターフェースを満たすことを検証
func TestPostgresProjectRepo_ImplementsInterface(t *testing.T) {
	var _ ProjectRepository = (*PostgresProjectRepo)(nil)
}

// NewPostgresProjectRepoが正しく初期化されることを検証
func TestNewPostgresProjectRepo_Initializes(t *testing.T) {
	repo := NewPostgresProjectRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// ユニーク制約違反の判定を検証
func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "pqのユニーク制約違反",
			err:  &pq.Error{Code: "23505"},
			want: true,
		},
		{
			name: "ラップされたユニーク制約違反",
			err:  errors.Join(errors.New("insert failed"), &pq.Error{Code: "23505"}),
			want: true,
		},
		{
			name: "別のpqエラーコード",
			err:  &pq.Error{Code: "23503"},
			want: false,
		},
		{
			name: "pq以外のエラー",
			err:  errors.New("connection refused"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ProjectWithOwnerがProjectのフィールドを埋め込みで公開することを検証
func TestProjectWithOwner_EmbedsProject(t *testing.T) {
	now := time.Now()
	p := ProjectWithOwner{
		Project: model.Project{
			ID:        "proj-1",
			Name:      "API刷新",
			OwnerID:   "user-1",
			CreatedAt: now,
			UpdatedAt: now,
		},
		OwnerUsername: "hitoshi",
	}

	if p.ID != "proj-1" {
		t.Errorf("p.ID = %q, want proj-1", p.ID)
	}
	if p.Name != "API刷新" {
		t.Errorf("p.Name = %q, want API刷新", p.Name)
	}
	if p.OwnerUsername != "hitoshi" {
		t.Errorf("p.OwnerUsername = %q, want hitoshi", p.OwnerUsername)
	}
}
