// Package model はドメインモデルを定義する。
package model

import "time"

// TaskTitleMaxLength はタスクタイトルの最大文字数。
const TaskTitleMaxLength = 120

// 優先度の範囲。1が最高、5が最低。
const (
	TaskPriorityHighest = 1
	TaskPriorityLowest  = 5
)

// TaskStatus はタスクの進行状態を表す。
// 状態遷移グラフは定義しない。任意の状態から任意の状態へ更新できるが、
// done への遷移時のみ期限日ルール（未来の期限日は不可）が保存時に検証される。
type TaskStatus string

const (
	// TaskStatusTodo は未着手状態。新規タスクのデフォルト。
	TaskStatusTodo TaskStatus = "todo"
	// TaskStatusInProgress は作業中状態。
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusDone は完了状態。
	TaskStatusDone TaskStatus = "done"
)

// Valid はステータス値が定義済みの3値のいずれかであるかを返す。
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Task はプロジェクト配下のタスクを表す。
// AssigneeID が空文字列の場合は担当者なし。担当ユーザーが削除された場合、
// タスク自体は残り AssigneeID だけがクリアされる（FKのSET NULL）。
// DueDate は日付のみ意味を持つ（時刻部分は常に0時）。
type Task struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Status      TaskStatus
	Priority    int
	DueDate     *time.Time
	AssigneeID  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
