package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// User 对应 users 表
// 仅作为下单时刻昵称/头像快照的来源，积分账户在外部平台
type User struct {
	ID        int64  `db:"id"`
	UserID    string `db:"user_id"` // 外部用户标识（唯一键）
	Nickname  string `db:"nickname"`
	Avatar    string `db:"avatar"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

// UpsertUser 写入或刷新用户快照（下单时调用）
func UpsertUser(ctx context.Context, exec sqlx.ExtContext, userID, nickname, avatar string) error {
	now := time.Now().UnixMilli()

	sqlStr := `INSERT INTO users (user_id, nickname, avatar, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE nickname = VALUES(nickname), avatar = VALUES(avatar), updated_at = VALUES(updated_at)`
	_, err := exec.ExecContext(ctx, sqlStr, userID, nickname, avatar, now, now)
	return err
}

// GetUser 按外部标识查询
func GetUser(ctx context.Context, exec sqlx.ExtContext, userID string) (*User, error) {
	sqlStr := "SELECT id, user_id, nickname, avatar, created_at, updated_at FROM users WHERE user_id = ? LIMIT 1"
	var u User
	if err := sqlx.GetContext(ctx, exec, &u, sqlStr, userID); err != nil {
		return nil, err
	}
	return &u, nil
}
