package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

// outbox 状态
const (
	OutboxStatusPending int8 = 1
	OutboxStatusSent    int8 = 2
	OutboxStatusFailed  int8 = 3

	outboxMaxRetry = 10
)

// 事务消息主题
const (
	TopicDrawFinalized = "lottery_draw_finalized"
	TopicOrderPaid     = "lottery_order_paid"
)

// Outbox 对应 outbox 表（事务消息表）
// 业务事务内落表，调度器异步投递到 MQ，保证与 DB 提交同生共死
type Outbox struct {
	ID         int64  `db:"id"`
	Topic      string `db:"topic"`
	BizKey     string `db:"biz_key"` // 业务键（draw_id / out_trade_no）
	Payload    string `db:"payload"` // 消息体(JSON字符串)
	Status     int8   `db:"status"`
	RetryCount int    `db:"retry_count"`
	LastError  string `db:"last_error"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

// CreateOutbox 在事务内落一条待投递消息
func CreateOutbox(ctx context.Context, exec sqlx.ExtContext, topic, bizKey string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()

	sqlStr := "INSERT INTO outbox (topic, biz_key, payload, status, retry_count, last_error, created_at, updated_at) VALUES (?, ?, ?, ?, 0, '', ?, ?)"
	_, err = exec.ExecContext(ctx, sqlStr, topic, bizKey, string(b), OutboxStatusPending, now, now)
	return err
}

// OutboxRow 调度器扫描用的轻量投影
type OutboxRow struct {
	ID      int64  `db:"id"`
	Topic   string `db:"topic"`
	BizKey  string `db:"biz_key"`
	Payload string `db:"payload"`
}

// ListOutboxPending 查询待投递消息（retry_count 上限防无限重试）
func ListOutboxPending(ctx context.Context, exec sqlx.ExtContext, limit int) ([]OutboxRow, error) {
	sqlStr := "SELECT id, topic, biz_key, payload FROM outbox WHERE status = ? AND retry_count < ? ORDER BY id ASC LIMIT ?"

	var list []OutboxRow
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, OutboxStatusPending, outboxMaxRetry, limit); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkOutboxSent 标记消息已投递
func MarkOutboxSent(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE outbox SET status = ?, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, OutboxStatusSent, now, id)
	return err
}

// MarkOutboxFailed 记录投递失败；达到重试上限后转永久失败，否则留在待投递态
func MarkOutboxFailed(ctx context.Context, exec sqlx.ExtContext, id int64, lastError string) error {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE outbox SET status = CASE WHEN retry_count >= ? THEN ? ELSE ? END, last_error = ?, retry_count = retry_count + 1, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, outboxMaxRetry-1, OutboxStatusFailed, OutboxStatusPending, lastError, now, id)
	return err
}
