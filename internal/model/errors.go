// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// フィールド単位のバリデーションエラーの場合はFieldに対象フィールド名が入る。
type APIError struct {
	Code     string // エラーコード
	Field    string // バリデーション対象のフィールド名（該当する場合のみ）
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, project, task, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeProjectNotFound = "PROJECT_NOT_FOUND"
	ErrCodeTaskNotFound    = "TASK_NOT_FOUND"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
)

// NewValidationError はフィールド単位のバリデーションエラーを生成する。
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Field:    field,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidPriorityError は優先度の範囲外エラーを生成する。
func NewInvalidPriorityError() *APIError {
	return NewValidationError("priority", "優先度は1（最高）から5（最低）の整数で指定してください。")
}

// NewAssigneeNotFoundError は存在しない担当者IDが指定された場合のエラーを生成する。
func NewAssigneeNotFoundError(assigneeID string) *APIError {
	return NewValidationError("assignee_id", fmt.Sprintf("指定されたIDのユーザーが存在しません: %s", assigneeID))
}

// NewFutureDueDateError は完了タスクに未来の期限日が設定された場合のエラーを生成する。
func NewFutureDueDateError() *APIError {
	return NewValidationError("due_date", "完了（done）にするタスクに未来の期限日は設定できません。")
}

// NewDuplicateProjectNameError は同一オーナー内でのプロジェクト名重複エラーを生成する。
func NewDuplicateProjectNameError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Field:    "name",
		Message:  fmt.Sprintf("同じ名前のプロジェクトが既に存在します: %s", name),
		Category: "validation",
		Action:   "別のプロジェクト名を指定してください。",
	}
}

// NewInvalidStatusError は未定義のステータス値エラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return NewValidationError("status", fmt.Sprintf("無効なステータスです: %s（todo、in_progress、done のいずれかを指定してください）", status))
}

// NewForbiddenError はプロジェクトオーナー以外による変更操作のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作はプロジェクトのオーナーのみが実行できます。",
		Category: "auth",
		Action:   "プロジェクトのオーナーに依頼してください。",
	}
}

// NewUnauthorizedError は未認証リクエストのエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewProjectNotFoundError はプロジェクト未検出エラーを生成する。
func NewProjectNotFoundError(projectID string) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("指定されたプロジェクトが見つかりません: %s", projectID),
		Category: "project",
		Action:   "プロジェクトIDを確認してください。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
