// Package dashboard はユーザーごとの統計集計を提供する。
package dashboard

import (
	"context"
	"fmt"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// UpcomingLimit は期限間近タスク一覧の最大件数。
const UpcomingLimit = 5

// NoUpcomingTasksMessage は期限間近タスクが1件もない場合にリストの代わりに
// 返される文字列。リスト/文字列で型が変わる挙動は既存クライアントとの
// 互換契約であり、変更しないこと。
const NoUpcomingTasksMessage = "No upcoming tasks!"

// Summary はダッシュボードの集計結果。
// 集計はすべて「リクエストユーザーがオーナーであるプロジェクト」にスコープされる
// （担当者として見えるだけのタスクは含まない）。
type Summary struct {
	TotalProjects int
	TotalTasks    int
	TasksByStatus map[model.TaskStatus]int // 件数0のステータスはキー自体が存在しない
	Upcoming      []repository.TaskWithAssignee
}

// Service はダッシュボード集計のサービス層。
type Service struct {
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(projectRepo repository.ProjectRepository, taskRepo repository.TaskRepository) *Service {
	return &Service{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
	}
}

// GetSummary はユーザーのダッシュボード集計を返す。
// Upcomingはstatus != doneかつ期限日が設定されたタスクをdue_date昇順で
// 最大UpcomingLimit件。
func (s *Service) GetSummary(ctx context.Context, userID string) (*Summary, error) {
	totalProjects, err := s.projectRepo.CountByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト数の集計に失敗しました: %w", err)
	}

	totalTasks, err := s.taskRepo.CountByProjectOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("タスク数の集計に失敗しました: %w", err)
	}

	byStatus, err := s.taskRepo.CountByProjectOwnerGroupedByStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ステータス別タスク数の集計に失敗しました: %w", err)
	}

	upcoming, err := s.taskRepo.ListUpcomingByProjectOwner(ctx, userID, UpcomingLimit)
	if err != nil {
		return nil, fmt.Errorf("期限間近タスクの取得に失敗しました: %w", err)
	}

	return &Summary{
		TotalProjects: totalProjects,
		TotalTasks:    totalTasks,
		TasksByStatus: byStatus,
		Upcoming:      upcoming,
	}, nil
}
