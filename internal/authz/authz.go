// Package authz は認可判定を提供する。
//
// 「プロジェクトのオーナーのみが変更操作を実行できる」というルールを
// 単一の述語として定義し、プロジェクト・タスクの全ての変更系サービスが
// 同じ判定を経由する。エンドポイントごとの場当たり的なオーナーチェックは行わない。
package authz

import "github.com/hitoshi/taskman/internal/model"

// RequireProjectOwner はプロジェクトに対する変更操作の認可を判定する。
// projectがnilの場合はProjectNotFound、オーナー以外の場合はForbiddenを返す。
// 認可された場合はnilを返す。
func RequireProjectOwner(project *model.Project, projectID, userID string) error {
	if project == nil {
		return model.NewProjectNotFoundError(projectID)
	}
	if project.OwnerID != userID {
		return model.NewForbiddenError()
	}
	return nil
}

// CanViewTask はタスクの読み取り可視性を判定する。
// 可視性はプロジェクトオーナーであるか、タスクの担当者であるかの和集合。
// 一覧取得はSQL側で同じ条件を適用するため、これは単体タスク取得用。
func CanViewTask(projectOwnerID, assigneeID, userID string) bool {
	return projectOwnerID == userID || (assigneeID != "" && assigneeID == userID)
}
