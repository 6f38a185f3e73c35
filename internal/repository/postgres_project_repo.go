package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/taskman/internal/model"
)

// uniqueViolation はPostgreSQLのunique_violationエラーコード。
const uniqueViolation = "23505"

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	project := &model.Project{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, owner_id, created_at, updated_at
		 FROM projects WHERE id = $1`,
		id,
	).Scan(&project.ID, &project.Name, &project.Description, &project.OwnerID,
		&project.CreatedAt, &project.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}

	return project, nil
}

// Create はプロジェクトを作成する。
// (owner_id, name) のユニーク制約違反は重複名のバリデーションエラーに変換する。
// 同名プロジェクトの同時作成はこの制約により2番目の書き込みが拒否される。
func (r *PostgresProjectRepo) Create(ctx context.Context, project *model.Project) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		project.ID, project.Name, project.Description, project.OwnerID,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicateProjectNameError(project.Name)
		}
		return fmt.Errorf("プロジェクトの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByOwner はオーナーのプロジェクト一覧をオーナーのユーザー名付きで返す。
// searchが空でない場合、名前の大文字小文字を無視した部分一致で絞り込む。
func (r *PostgresProjectRepo) ListByOwner(ctx context.Context, ownerID, search string) ([]ProjectWithOwner, error) {
	query := `SELECT p.id, p.name, p.description, p.owner_id, p.created_at, p.updated_at,
	                 u.username
	          FROM projects p
	          INNER JOIN users u ON p.owner_id = u.id
	          WHERE p.owner_id = $1`
	args := []any{ownerID}

	if search != "" {
		query += ` AND p.name ILIKE '%' || $2 || '%'`
		args = append(args, search)
	}

	query += ` ORDER BY p.created_at ASC, p.id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var projects []ProjectWithOwner
	for rows.Next() {
		var p ProjectWithOwner
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID,
			&p.CreatedAt, &p.UpdatedAt, &p.OwnerUsername); err != nil {
			return nil, fmt.Errorf("プロジェクト一覧の読み取りに失敗しました: %w", err)
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の走査に失敗しました: %w", err)
	}

	return projects, nil
}

// CountByOwner はオーナーの所有プロジェクト数を返す。
func (r *PostgresProjectRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE owner_id = $1`,
		ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("プロジェクト数の集計に失敗しました: %w", err)
	}
	return count, nil
}

// Delete は指定IDのプロジェクトを削除する。配下のタスクはCASCADE削除される。
func (r *PostgresProjectRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}
	return nil
}

// isUniqueViolation はエラーがPostgreSQLのユニーク制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
