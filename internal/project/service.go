// Package project はプロジェクト管理のドメインロジックを提供する。
package project

import (
	"context"
	"errors"
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

// MetricsRecorder はプロジェクト操作のメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordProjectCreated()
	RecordValidationFailure(field string)
}

// CreateInput はプロジェクト作成の入力。
// オーナーは認証済みユーザーから決まり、入力には含めない。
type CreateInput struct {
	Name        string
	Description string
}

// Service はプロジェクト管理のサービス層。
// 作成、一覧取得、削除のビジネスロジックを提供する。
type Service struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	sanitizer   security.InputSanitizerService
	metrics     MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい（テスト用）。
func NewService(
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	sanitizer security.InputSanitizerService,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
		metrics:     metrics,
	}
}

// CreateProject はプロジェクトを作成する。
// 名前は必須かつ100文字以内。同一オーナー内の名前重複はDBのユニーク制約が
// 最終的に拒否し、重複名のバリデーションエラーとして返る。
func (s *Service) CreateProject(ctx context.Context, ownerID string, in CreateInput) (*repository.ProjectWithOwner, error) {
	name := in.Name
	description := in.Description
	if s.sanitizer != nil {
		name = s.sanitizer.Sanitize(name)
		description = s.sanitizer.Sanitize(description)
	}

	if name == "" {
		return nil, s.validationFailed(model.NewValidationError("name", "プロジェクト名は必須です。"))
	}
	if utf8.RuneCountInString(name) > model.ProjectNameMaxLength {
		return nil, s.validationFailed(model.NewValidationError("name",
			fmt.Sprintf("プロジェクト名は%d文字以内で指定してください。", model.ProjectNameMaxLength)))
	}

	owner, err := s.userRepo.FindByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("オーナーの取得に失敗しました: %w", err)
	}
	if owner == nil {
		return nil, model.NewUserNotFoundError()
	}

	now := time.Now()
	proj := &model.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.projectRepo.Create(ctx, proj); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeValidation {
			return nil, s.validationFailed(apiErr)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordProjectCreated()
	}

	slog.Info("project created",
		slog.String("project_id", proj.ID),
		slog.String("owner_id", ownerID),
	)

	return &repository.ProjectWithOwner{Project: *proj, OwnerUsername: owner.Username}, nil
}

// ListProjects はオーナーのプロジェクト一覧を返す。
// searchが空でない場合、名前の大文字小文字を無視した部分一致で絞り込む。
func (s *Service) ListProjects(ctx context.Context, ownerID, search string) ([]repository.ProjectWithOwner, error) {
	projects, err := s.projectRepo.ListByOwner(ctx, ownerID, search)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	return projects, nil
}

// DeleteProject はプロジェクトを削除する。配下のタスクはCASCADE削除される。
// オーナー以外による削除はForbidden。
func (s *Service) DeleteProject(ctx context.Context, userID, projectID string) error {
	proj, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if err := authz.RequireProjectOwner(proj, projectID, userID); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}

	slog.Info("project deleted",
		slog.String("project_id", projectID),
		slog.String("owner_id", userID),
	)

	return nil
}

// validationFailed はバリデーション失敗のメトリクスを記録してエラーをそのまま返す。
func (s *Service) validationFailed(err *model.APIError) error {
	if s.metrics != nil {
		s.metrics.RecordValidationFailure(err.Field)
	}
	return err
}
