package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Payout 对应 payouts 表（派彩台账，追加写）
// 每张非零中奖票一行；实际打款流程不在本服务范围内，状态固定 pending
type Payout struct {
	ID         int64  `db:"id"`
	DrawID     string `db:"draw_id"`
	TicketID   int64  `db:"ticket_id"`
	OutTradeNo string `db:"out_trade_no"`
	UserID     string `db:"user_id"`
	Tier       int8   `db:"tier"`
	Points     int64  `db:"points"`
	Status     string `db:"status"` // pending
	TraceID    string `db:"trace_id"`
	CreatedAt  int64  `db:"created_at"`
}

const PayoutStatusPending = "pending"

// InsertPayouts 批量插入派彩台账（必须与开奖同事务）
func InsertPayouts(ctx context.Context, exec sqlx.ExtContext, payouts []Payout) error {
	if len(payouts) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()

	sqlStr := `INSERT INTO payouts
		(draw_id, ticket_id, out_trade_no, user_id, tier, points, status, trace_id, created_at)
		VALUES `
	args := make([]interface{}, 0, len(payouts)*9)
	for i, p := range payouts {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, p.DrawID, p.TicketID, p.OutTradeNo, p.UserID, p.Tier, p.Points, PayoutStatusPending, p.TraceID, now)
	}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListPayoutsByDraw 按期查询派彩台账
func ListPayoutsByDraw(ctx context.Context, exec sqlx.ExtContext, drawID string) ([]Payout, error) {
	sqlStr := `SELECT id, draw_id, ticket_id, out_trade_no, user_id, tier, points, status, trace_id, created_at
		FROM payouts WHERE draw_id = ? ORDER BY id ASC`
	var list []Payout
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, drawID); err != nil {
		return nil, err
	}
	return list, nil
}
