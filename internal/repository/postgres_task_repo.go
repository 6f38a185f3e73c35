package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	task := &model.Task{}
	var dueDate sql.NullTime
	var assigneeID sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, project_id, title, description, status, priority,
		        due_date, assignee_id, created_at, updated_at
		 FROM tasks WHERE id = $1`,
		id,
	).Scan(&task.ID, &task.ProjectID, &task.Title, &task.Description,
		&task.Status, &task.Priority, &dueDate, &assigneeID,
		&task.CreatedAt, &task.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}

	if dueDate.Valid {
		d := dueDate.Time
		task.DueDate = &d
	}
	task.AssigneeID = nullStringValue(assigneeID)

	return task, nil
}

// FindWithAssigneeByID は指定IDのタスクを担当者名付きで取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindWithAssigneeByID(ctx context.Context, id string) (*TaskWithAssignee, error) {
	rows, err := r.db.QueryContext(ctx,
		taskSelectWithAssignee+` WHERE t.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasksWithAssignee(rows)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return &tasks[0], nil
}

// Create はタスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, project_id, title, description, status, priority,
		                    due_date, assignee_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.ProjectID, task.Title, task.Description,
		task.Status, task.Priority, nullTime(task.DueDate),
		nullString(task.AssigneeID), task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はタスクを上書き更新する。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET
		    title = $2, description = $3, status = $4, priority = $5,
		    due_date = $6, assignee_id = $7, updated_at = $8
		 WHERE id = $1`,
		task.ID, task.Title, task.Description, task.Status, task.Priority,
		nullTime(task.DueDate), nullString(task.AssigneeID), task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}
	return nil
}

// ListVisible はユーザーに可視なタスク一覧を担当者名付きで返す。
// 可視性はプロジェクトオーナーであるか担当者であるかの和集合。
// filterの各条件はANDで合成される。
func (r *PostgresTaskRepo) ListVisible(ctx context.Context, userID string, filter TaskFilter) ([]TaskWithAssignee, error) {
	query := taskSelectWithAssignee + `
	 INNER JOIN projects p ON t.project_id = p.id
	 WHERE (p.owner_id = $1 OR t.assignee_id = $1)`
	args := []any{userID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND t.status = $%d`, len(args))
	}
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		query += fmt.Sprintf(` AND t.project_id = $%d`, len(args))
	}
	if filter.DueBefore != nil {
		args = append(args, dateArg(*filter.DueBefore))
		query += fmt.Sprintf(` AND t.due_date <= $%d::date`, len(args))
	}

	query += ` ORDER BY t.created_at ASC, t.id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanTasksWithAssignee(rows)
}

// CountByProjectOwner は指定オーナーの全プロジェクト配下のタスク数を返す。
func (r *PostgresTaskRepo) CountByProjectOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM tasks t
		 INNER JOIN projects p ON t.project_id = p.id
		 WHERE p.owner_id = $1`,
		ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("タスク数の集計に失敗しました: %w", err)
	}
	return count, nil
}

// CountByProjectOwnerGroupedByStatus はオーナーのタスク数をステータスごとに集計する。
// 件数0のステータスは結果に含まれない。
func (r *PostgresTaskRepo) CountByProjectOwnerGroupedByStatus(ctx context.Context, ownerID string) (map[model.TaskStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.status, COUNT(*)
		 FROM tasks t
		 INNER JOIN projects p ON t.project_id = p.id
		 WHERE p.owner_id = $1
		 GROUP BY t.status`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ステータス別タスク数の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.TaskStatus]int)
	for rows.Next() {
		var status model.TaskStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("ステータス別タスク数の読み取りに失敗しました: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ステータス別タスク数の走査に失敗しました: %w", err)
	}

	return counts, nil
}

// ListUpcomingByProjectOwner は期限が近い未完了タスクをdue_date昇順で最大limit件返す。
// status = done と due_dateが未設定のタスクは対象外。
func (r *PostgresTaskRepo) ListUpcomingByProjectOwner(ctx context.Context, ownerID string, limit int) ([]TaskWithAssignee, error) {
	rows, err := r.db.QueryContext(ctx,
		taskSelectWithAssignee+`
		 INNER JOIN projects p ON t.project_id = p.id
		 WHERE p.owner_id = $1
		   AND t.status <> 'done'
		   AND t.due_date IS NOT NULL
		 ORDER BY t.due_date ASC, t.id ASC
		 LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("期限間近タスクの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanTasksWithAssignee(rows)
}

// taskSelectWithAssignee はタスクと担当者名をLEFT JOINで取得する共通SELECT句。
const taskSelectWithAssignee = `SELECT t.id, t.project_id, t.title, t.description, t.status, t.priority,
	        t.due_date, t.assignee_id, t.created_at, t.updated_at,
	        u.username
	 FROM tasks t
	 LEFT JOIN users u ON t.assignee_id = u.id`

// scanTasksWithAssignee は共通SELECT句の結果行をスキャンする。
func scanTasksWithAssignee(rows *sql.Rows) ([]TaskWithAssignee, error) {
	var tasks []TaskWithAssignee
	for rows.Next() {
		var t TaskWithAssignee
		var dueDate sql.NullTime
		var assigneeID, assigneeUsername sql.NullString

		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description,
			&t.Status, &t.Priority, &dueDate, &assigneeID,
			&t.CreatedAt, &t.UpdatedAt, &assigneeUsername); err != nil {
			return nil, fmt.Errorf("タスク行の読み取りに失敗しました: %w", err)
		}

		if dueDate.Valid {
			d := dueDate.Time
			t.DueDate = &d
		}
		t.AssigneeID = nullStringValue(assigneeID)
		t.AssigneeUsername = nullStringValue(assigneeUsername)

		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タスク一覧の走査に失敗しました: %w", err)
	}

	return tasks, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// dateArg はDATE列との比較に使う日付文字列を返す。
// time.Timeのまま渡すとサーバーセッションのTimeZone設定でDATEへの丸めが
// 日付またぎでずれるため、クライアント側の日付を文字列で固定する。
func dateArg(t time.Time) string {
	return t.Format("2006-01-02")
}

// nullTime は*time.Timeをsql.NullTimeに変換する。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
