// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// DeleteByID は指定IDのユーザーを削除する。
	// identities、sessions、所有プロジェクト（とそのタスク）はCASCADE削除される。
	// 担当タスクはFKのSET NULLにより担当者だけがクリアされる。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
type ProjectRepository interface {
	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// Create はプロジェクトを作成する。
	// (owner_id, name) のユニーク制約に違反した場合はmodel.APIError（重複エラー）を返す。
	// 同時リクエストによる重複作成はDB制約が最終的な防衛線となる。
	Create(ctx context.Context, project *model.Project) error

	// ListByOwner はオーナーのプロジェクト一覧をオーナーのユーザー名付きで返す。
	// searchが空でない場合、名前の大文字小文字を無視した部分一致で絞り込む。
	ListByOwner(ctx context.Context, ownerID, search string) ([]ProjectWithOwner, error)

	// CountByOwner はオーナーの所有プロジェクト数を返す。
	CountByOwner(ctx context.Context, ownerID string) (int, error)

	// Delete は指定IDのプロジェクトを削除する。配下のタスクはCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// TaskFilter はタスク一覧のオプションフィルタ。
// ゼロ値のフィールドは「フィルタなし」を意味し、指定されたフィルタはANDで合成される。
type TaskFilter struct {
	Status    model.TaskStatus // 空文字列なら絞り込まない
	ProjectID string           // 空文字列なら絞り込まない
	DueBefore *time.Time       // nilなら絞り込まない。due_date <= DueBefore
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// FindWithAssigneeByID は指定IDのタスクを担当者名付きで取得する。
	// 見つからない場合はnilを返す。
	FindWithAssigneeByID(ctx context.Context, id string) (*TaskWithAssignee, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクを上書き更新する。
	Update(ctx context.Context, task *model.Task) error

	// ListVisible はユーザーに可視なタスク一覧を担当者名付きで返す。
	// 可視性: タスクの属するプロジェクトのオーナーである OR タスクの担当者である（和集合）。
	// filterの各条件はANDで合成される。
	ListVisible(ctx context.Context, userID string, filter TaskFilter) ([]TaskWithAssignee, error)

	// CountByProjectOwner は指定オーナーの全プロジェクト配下のタスク数を返す。
	CountByProjectOwner(ctx context.Context, ownerID string) (int, error)

	// CountByProjectOwnerGroupedByStatus は指定オーナーの全プロジェクト配下のタスク数を
	// ステータスごとに集計して返す。件数0のステータスはマップに含まれない。
	CountByProjectOwnerGroupedByStatus(ctx context.Context, ownerID string) (map[model.TaskStatus]int, error)

	// ListUpcomingByProjectOwner は指定オーナーのプロジェクト配下のタスクのうち、
	// status != done かつ due_dateが設定されたものをdue_date昇順で最大limit件返す。
	ListUpcomingByProjectOwner(ctx context.Context, ownerID string, limit int) ([]TaskWithAssignee, error)
}

// TaskWithAssignee はタスクと担当者のユーザー名を結合した構造体。
// 担当者が未設定の場合、AssigneeUsernameは空文字列。
type TaskWithAssignee struct {
	model.Task
	AssigneeUsername string
}

// ProjectWithOwner はプロジェクトとオーナーのユーザー名を結合した構造体。
type ProjectWithOwner struct {
	model.Project
	OwnerUsername string
}
