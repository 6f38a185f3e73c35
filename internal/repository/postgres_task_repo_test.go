package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

// PostgresTaskRepoはTaskRepositoryインターフェースを満たすことを検証
func TestPostgresTaskRepo_ImplementsInterface(t *testing.T) {
	var _ TaskRepository = (*PostgresTaskRepo)(nil)
}

// NewPostgresTaskRepoが正しく初期化されることを検証
func TestNewPostgresTaskRepo_Initializes(t *testing.T) {
	repo := NewPostgresTaskRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// nullStringが空文字列をNULLとして扱うことを検証
func TestNullString(t *testing.T) {
	if got := nullString(""); got.Valid {
		t.Error("empty string should map to invalid NullString")
	}
	got := nullString("user-1")
	if !got.Valid || got.String != "user-1" {
		t.Errorf("nullString(user-1) = %+v", got)
	}
}

// nullStringValueがNULLを空文字列に戻すことを検証
func TestNullStringValue(t *testing.T) {
	if got := nullStringValue(nullString("")); got != "" {
		t.Errorf("nullStringValue() = %q, want empty", got)
	}
	if got := nullStringValue(nullString("tanaka")); got != "tanaka" {
		t.Errorf("nullStringValue() = %q, want tanaka", got)
	}
}

// nullTimeがnilをNULLとして扱うことを検証
func TestNullTime(t *testing.T) {
	if got := nullTime(nil); got.Valid {
		t.Error("nil should map to invalid NullTime")
	}

	now := time.Now()
	got := nullTime(&now)
	if !got.Valid || !got.Time.Equal(now) {
		t.Errorf("nullTime(now) = %+v", got)
	}
}

// dateArgがタイムゾーンに関係なくローカルの日付文字列を返すことを検証
func TestDateArg(t *testing.T) {
	local := time.Date(2026, 10, 1, 0, 0, 0, 0, time.Local)
	if got := dateArg(local); got != "2026-10-01" {
		t.Errorf("dateArg(local midnight) = %q, want 2026-10-01", got)
	}

	// UTC換算では前日になる時刻でも、そのゾーンでの日付が使われる
	tokyo := time.FixedZone("JST", 9*60*60)
	early := time.Date(2026, 10, 1, 0, 0, 0, 0, tokyo)
	if got := dateArg(early); got != "2026-10-01" {
		t.Errorf("dateArg(JST midnight) = %q, want 2026-10-01", got)
	}
}

// TaskWithAssigneeがTaskのフィールドを埋め込みで公開することを検証
func TestTaskWithAssignee_EmbedsTask(t *testing.T) {
	due := time.Date(2026, 10, 1, 0, 0, 0, 0, time.Local)
	task := TaskWithAssignee{
		Task: model.Task{
			ID:         "task-1",
			ProjectID:  "proj-1",
			Title:      "設計レビュー",
			Status:     model.TaskStatusTodo,
			Priority:   model.TaskPriorityHighest,
			DueDate:    &due,
			AssigneeID: "user-2",
		},
		AssigneeUsername: "tanaka",
	}

	if task.Title != "設計レビュー" {
		t.Errorf("task.Title = %q", task.Title)
	}
	if task.Status != model.TaskStatusTodo {
		t.Errorf("task.Status = %q, want todo", task.Status)
	}
	if task.AssigneeUsername != "tanaka" {
		t.Errorf("task.AssigneeUsername = %q, want tanaka", task.AssigneeUsername)
	}
}

// TaskFilterのゼロ値が「絞り込みなし」を表すことを検証
func TestTaskFilter_ZeroValue(t *testing.T) {
	var filter TaskFilter

	if filter.Status != "" {
		t.Error("zero-value Status should be empty")
	}
	if filter.ProjectID != "" {
		t.Error("zero-value ProjectID should be empty")
	}
	if filter.DueBefore != nil {
		t.Error("zero-value DueBefore should be nil")
	}
}
