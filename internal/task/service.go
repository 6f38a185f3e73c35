// Package task はタスク管理のドメインロジックを提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/authz"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
	"github.com/hitoshi/taskman/internal/security"
)

// MetricsRecorder はタスク操作のメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordTaskCreated()
	RecordValidationFailure(field string)
}

// CreateInput はタスク作成の入力。
// プロジェクトIDはURLパスから決まり、入力には含めない。
type CreateInput struct {
	Title       string
	Description string
	Status      model.TaskStatus // 空の場合はtodo
	Priority    int
	DueDate     *time.Time
	AssigneeID  string // 空の場合は担当者なし
}

// UpdateInput はタスク更新の入力。nilのフィールドは変更しない。
// DueDateはDueDateSetがtrueの場合のみ反映される（nilへの設定=期限日のクリア）。
// AssigneeIDは空文字列へのポインタで担当者をクリアする。
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	Priority    *int
	DueDate     *time.Time
	DueDateSet  bool
	AssigneeID  *string
}

// Service はタスク管理のサービス層。
// 作成、一覧取得、更新のビジネスロジックと保存時バリデーションを提供する。
type Service struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	sanitizer   security.InputSanitizerService
	metrics     MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい（テスト用）。
func NewService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	sanitizer security.InputSanitizerService,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
		metrics:     metrics,
	}
}

// CreateTask はプロジェクト配下にタスクを作成する。
// プロジェクトが存在しない場合はProjectNotFound、オーナー以外はForbidden。
// バリデーションは保存前に順番に適用され、最初の失敗で中断する:
// (1) 優先度が1〜5の整数 (2) 指定された担当者が存在する
// (3) status=doneかつ期限日指定時、期限日が未来でない。
func (s *Service) CreateTask(ctx context.Context, userID, projectID string, in CreateInput) (*repository.TaskWithAssignee, error) {
	proj, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if err := authz.RequireProjectOwner(proj, projectID, userID); err != nil {
		return nil, err
	}

	title := in.Title
	description := in.Description
	if s.sanitizer != nil {
		title = s.sanitizer.Sanitize(title)
		description = s.sanitizer.Sanitize(description)
	}

	status := in.Status
	if status == "" {
		status = model.TaskStatusTodo
	}

	assigneeUsername, err := s.validateTask(ctx, title, status, in.Priority, in.DueDate, in.AssigneeID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	t := &model.Task{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		AssigneeID:  in.AssigneeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordTaskCreated()
	}

	slog.Info("task created",
		slog.String("task_id", t.ID),
		slog.String("project_id", projectID),
	)

	return &repository.TaskWithAssignee{Task: *t, AssigneeUsername: assigneeUsername}, nil
}

// ListTasks はユーザーに可視なタスク一覧を返す。
// 可視性はプロジェクトオーナーであるか担当者であるかの和集合で、
// filterの各条件はANDで合成される。filter.ProjectIDの所有権は検査しない
// （可視性の条件が既に適用されるため、他人のプロジェクトIDを指定しても
// 見えないタスクが返ることはない）。
func (s *Service) ListTasks(ctx context.Context, userID string, filter repository.TaskFilter) ([]repository.TaskWithAssignee, error) {
	tasks, err := s.taskRepo.ListVisible(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// GetTask は単一タスクを取得する。
// 可視性は一覧取得と同じ（プロジェクトオーナーまたは担当者の和集合）。
// 可視でないタスクは存在を漏らさないためTaskNotFoundとして扱う。
func (s *Service) GetTask(ctx context.Context, userID, taskID string) (*repository.TaskWithAssignee, error) {
	t, err := s.taskRepo.FindWithAssigneeByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if t == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	proj, err := s.projectRepo.FindByID(ctx, t.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if proj == nil || !authz.CanViewTask(proj.OwnerID, t.AssigneeID, userID) {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	return t, nil
}

// UpdateTask はタスクを更新する。更新できるのはプロジェクトオーナーのみ。
// 指定されたフィールドをマージした結果に対して作成時と同じバリデーションを
// 適用し、失敗時は一切保存しない（部分適用なし）。
func (s *Service) UpdateTask(ctx context.Context, userID, taskID string, in UpdateInput) (*repository.TaskWithAssignee, error) {
	t, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if t == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	proj, err := s.projectRepo.FindByID(ctx, t.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if err := authz.RequireProjectOwner(proj, t.ProjectID, userID); err != nil {
		return nil, err
	}

	// 指定されたフィールドをマージ
	if in.Title != nil {
		title := *in.Title
		if s.sanitizer != nil {
			title = s.sanitizer.Sanitize(title)
		}
		t.Title = title
	}
	if in.Description != nil {
		description := *in.Description
		if s.sanitizer != nil {
			description = s.sanitizer.Sanitize(description)
		}
		t.Description = description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDateSet {
		t.DueDate = in.DueDate
	}
	if in.AssigneeID != nil {
		t.AssigneeID = *in.AssigneeID
	}

	if _, err := s.validateTask(ctx, t.Title, t.Status, t.Priority, t.DueDate, t.AssigneeID); err != nil {
		return nil, err
	}

	t.UpdatedAt = time.Now()
	if err := s.taskRepo.Update(ctx, t); err != nil {
		return nil, err
	}

	result, err := s.taskRepo.FindWithAssigneeByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("更新後タスクの取得に失敗しました: %w", err)
	}
	if result == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	return result, nil
}

// validateTask は保存前バリデーションを適用する。
// 戻り値は担当者のユーザー名（担当者なしの場合は空文字列）。
// バリデーション順序は外部契約の一部であり変更しないこと。
func (s *Service) validateTask(ctx context.Context, title string, status model.TaskStatus, priority int, dueDate *time.Time, assigneeID string) (string, error) {
	// (1) 優先度
	if priority < model.TaskPriorityHighest || priority > model.TaskPriorityLowest {
		return "", s.validationFailed(model.NewInvalidPriorityError())
	}

	// (2) 担当者の存在
	var assigneeUsername string
	if assigneeID != "" {
		assignee, err := s.userRepo.FindByID(ctx, assigneeID)
		if err != nil {
			return "", fmt.Errorf("担当者の取得に失敗しました: %w", err)
		}
		if assignee == nil {
			return "", s.validationFailed(model.NewAssigneeNotFoundError(assigneeID))
		}
		assigneeUsername = assignee.Username
	}

	// (3) done + 未来の期限日の組み合わせ。「今日」は書き込み時点のローカル日付。
	if status == model.TaskStatusDone && dueDate != nil && dateAfterToday(*dueDate) {
		return "", s.validationFailed(model.NewFutureDueDateError())
	}

	if !status.Valid() {
		return "", s.validationFailed(model.NewInvalidStatusError(string(status)))
	}

	if title == "" {
		return "", s.validationFailed(model.NewValidationError("title", "タスクタイトルは必須です。"))
	}
	if utf8.RuneCountInString(title) > model.TaskTitleMaxLength {
		return "", s.validationFailed(model.NewValidationError("title",
			fmt.Sprintf("タスクタイトルは%d文字以内で指定してください。", model.TaskTitleMaxLength)))
	}

	return assigneeUsername, nil
}

// dateAfterToday はdの日付部分がローカルの今日より後かどうかを返す。
// 時刻部分は比較に使わない。
func dateAfterToday(d time.Time) bool {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	due := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
	return due.After(today)
}

// validationFailed はバリデーション失敗のメトリクスを記録してエラーをそのまま返す。
func (s *Service) validationFailed(err *model.APIError) error {
	if s.metrics != nil {
		s.metrics.RecordValidationFailure(err.Field)
	}
	return err
}
