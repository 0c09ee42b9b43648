package model

import (
	"context"
	"time"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Ticket 对应 tickets 表
// 一行可代表多张同号票（ticket_count），开奖按 per×ticket_count 派彩
// 唯一键 (out_trade_no, seq) 保证回调重放时票据物化恰好一次
type Ticket struct {
	ID           int64  `db:"id"`
	DrawID       string `db:"draw_id"`
	OutTradeNo   string `db:"out_trade_no"`
	Seq          int    `db:"seq"` // 订单内序号，single 模式恒为 0
	UserID       string `db:"user_id"`
	Nickname     string `db:"nickname"`
	Avatar       string `db:"avatar"`
	Number       string `db:"number"`
	TicketCount  int    `db:"ticket_count"`
	Tier         int8   `db:"tier"` // 0=未中 1/2/3=奖级
	PayoutPoints int64  `db:"payout_points"`
	TraceID      string `db:"trace_id"`
	CreatedAt    int64  `db:"created_at"`
}

// InsertTickets 批量插入票据（必须在事务中调用）
// 返回 (inserted, err)：唯一键冲突视为已物化过，inserted=false 且 err=nil
func InsertTickets(ctx context.Context, exec sqlx.ExtContext, tickets []Ticket) (bool, error) {
	if len(tickets) == 0 {
		return false, nil
	}
	now := time.Now().UnixMilli()

	sqlStr := `INSERT INTO tickets
		(draw_id, out_trade_no, seq, user_id, nickname, avatar, number, ticket_count, tier, payout_points, trace_id, created_at)
		VALUES `
	args := make([]interface{}, 0, len(tickets)*12)
	for i, t := range tickets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += "(?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)"
		args = append(args, t.DrawID, t.OutTradeNo, t.Seq, t.UserID, t.Nickname, t.Avatar, t.Number, t.TicketCount, t.TraceID, now)
	}

	if _, err := exec.ExecContext(ctx, sqlStr, args...); err != nil {
		// MySQL 错误码 1062: Duplicate entry，说明本订单票据已物化（重放回调）
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CountTicketsByOutTradeNo 统计某订单已物化的票据行数（回调修复路径用）
func CountTicketsByOutTradeNo(ctx context.Context, exec sqlx.ExtContext, outTradeNo string) (int, error) {
	sqlStr := "SELECT COUNT(1) FROM tickets WHERE out_trade_no = ?"
	var cnt int
	if err := sqlx.GetContext(ctx, exec, &cnt, sqlStr, outTradeNo); err != nil {
		return 0, err
	}
	return cnt, nil
}

// ListTicketsByDrawAsc 按 id 升序取某期全部票据
// 升序是票集指纹(ticketsHash)可复现的前提，顺序不可改
func ListTicketsByDrawAsc(ctx context.Context, exec sqlx.ExtContext, drawID string) ([]Ticket, error) {
	sqlStr := `SELECT id, draw_id, out_trade_no, seq, user_id, nickname, avatar, number,
		ticket_count, tier, payout_points, trace_id, created_at
		FROM tickets WHERE draw_id = ? ORDER BY id ASC`
	var list []Ticket
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, drawID); err != nil {
		return nil, err
	}
	return list, nil
}

// ResetPrizes 清空某期全部票据的奖级与派彩（先清后置，保证重算不残留旧值）
func ResetPrizes(ctx context.Context, exec sqlx.ExtContext, drawID string) error {
	sqlStr := "UPDATE tickets SET tier = 0, payout_points = 0 WHERE draw_id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, drawID)
	return err
}

// SetTierFullMatch 给全号匹配的票置一等奖，派彩 = per × ticket_count
func SetTierFullMatch(ctx context.Context, exec sqlx.ExtContext, drawID, winning string, perPoints int64) (int64, error) {
	sqlStr := "UPDATE tickets SET tier = 1, payout_points = ? * ticket_count WHERE draw_id = ? AND number = ?"
	res, err := exec.ExecContext(ctx, sqlStr, perPoints, drawID, winning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetTierBySuffix 给尾号匹配且尚未中更高奖级的票置奖级
// tier=2 取后三位，tier=3 取后两位；tier=0 条件保证奖级互斥（只取最高）
func SetTierBySuffix(ctx context.Context, exec sqlx.ExtContext, drawID string, tier int8, suffixLen int, suffix string, perPoints int64) (int64, error) {
	sqlStr := "UPDATE tickets SET tier = ?, payout_points = ? * ticket_count WHERE draw_id = ? AND tier = 0 AND RIGHT(number, ?) = ?"
	res, err := exec.ExecContext(ctx, sqlStr, tier, perPoints, drawID, suffixLen, suffix)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TierCount 奖级汇总行
type TierCount struct {
	Tier    int8  `db:"tier"`
	Tickets int64 `db:"tickets"` // 物理票数合计（sum ticket_count）
	Points  int64 `db:"points"`  // 派彩合计
}

// WinnerCountsByTier 按奖级汇总某期中奖票数与派彩（核对/展示用）
func WinnerCountsByTier(ctx context.Context, exec sqlx.ExtContext, drawID string) ([]TierCount, error) {
	sqlStr := `SELECT tier, COALESCE(SUM(ticket_count), 0) AS tickets, COALESCE(SUM(payout_points), 0) AS points
		FROM tickets WHERE draw_id = ? AND tier > 0 GROUP BY tier ORDER BY tier ASC`
	var list []TierCount
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, drawID); err != nil {
		return nil, err
	}
	return list, nil
}

// ListWinningTickets 取某期全部中奖票据（派彩台账生成用）
func ListWinningTickets(ctx context.Context, exec sqlx.ExtContext, drawID string) ([]Ticket, error) {
	sqlStr := `SELECT id, draw_id, out_trade_no, seq, user_id, nickname, avatar, number,
		ticket_count, tier, payout_points, trace_id, created_at
		FROM tickets WHERE draw_id = ? AND tier > 0 AND payout_points > 0 ORDER BY id ASC`
	var list []Ticket
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, drawID); err != nil {
		return nil, err
	}
	return list, nil
}
