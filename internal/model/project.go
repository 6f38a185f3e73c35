// Package model はドメインモデルを定義する。
package model

import "time"

// ProjectNameMaxLength はプロジェクト名の最大文字数。
const ProjectNameMaxLength = 100

// Project はユーザーが所有するプロジェクトを表す。
// (OwnerID, Name) の組はシステム全体で一意。
// プロジェクトを削除すると配下のタスクもCASCADE削除される。
type Project struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
