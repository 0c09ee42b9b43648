package model

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// 订单状态（不存 canceled：过期取消为派生状态，见 lottery.EffectiveOrderStatus）
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
)

// Order 对应 orders 表
// 说明：out_trade_no 为对外交易号（唯一键）；nickname/avatar 为下单时刻的
// 用户快照，后续改昵称不回溯影响历史榜单
// number_mode: single=整单一个号码 multi=每张票一个号码（号码存 numbers_json）
type Order struct {
	ID              int64  `db:"id"`
	OutTradeNo      string `db:"out_trade_no"`
	DrawID          string `db:"draw_id"`
	UserID          string `db:"user_id"`
	Nickname        string `db:"nickname"`
	Avatar          string `db:"avatar"`
	TicketCount     int    `db:"ticket_count"`
	UnitPricePoints int64  `db:"unit_price_points"`
	TotalPoints     int64  `db:"total_points"`
	NumberMode      string `db:"number_mode"`
	Number          string `db:"number"`       // single 模式下的 4 位号码
	NumbersJSON     string `db:"numbers_json"` // multi 模式下的号码数组(JSON)
	Status          string `db:"status"`
	TradeNo         string `db:"trade_no"` // 网关流水号（支付成功后回填）
	BonusPoints     int64  `db:"bonus_points"`
	TraceID         string `db:"trace_id"`
	CreatedAt       int64  `db:"created_at"`
	PaidAt          int64  `db:"paid_at"` // 0=未支付
}

// Insert 插入待支付订单
func (o *Order) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	o.CreatedAt = now

	sqlStr := `INSERT INTO orders
		(out_trade_no, draw_id, user_id, nickname, avatar, ticket_count, unit_price_points,
		 total_points, number_mode, number, numbers_json, status, trade_no, bonus_points,
		 trace_id, created_at, paid_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', 0, ?, ?, 0)`
	args := []interface{}{
		o.OutTradeNo, o.DrawID, o.UserID, o.Nickname, o.Avatar, o.TicketCount, o.UnitPricePoints,
		o.TotalPoints, o.NumberMode, o.Number, o.NumbersJSON, OrderStatusPending,
		o.TraceID, now,
	}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

const orderColumns = `id, out_trade_no, draw_id, user_id, nickname, avatar, ticket_count,
	unit_price_points, total_points, number_mode, number, numbers_json, status, trade_no,
	bonus_points, trace_id, created_at, paid_at`

// GetOrderByOutTradeNo 按对外交易号查询（无锁）
func GetOrderByOutTradeNo(ctx context.Context, exec sqlx.ExtContext, outTradeNo string) (*Order, error) {
	sqlStr := `SELECT ` + orderColumns + ` FROM orders WHERE out_trade_no = ? LIMIT 1`
	var o Order
	if err := sqlx.GetContext(ctx, exec, &o, sqlStr, outTradeNo); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderForUpdate 在事务中按对外交易号加锁读取（支付回调用）
func GetOrderForUpdate(ctx context.Context, exec sqlx.ExtContext, outTradeNo string) (*Order, error) {
	sqlStr := `SELECT ` + orderColumns + ` FROM orders WHERE out_trade_no = ? FOR UPDATE`
	var o Order
	if err := sqlx.GetContext(ctx, exec, &o, sqlStr, outTradeNo); err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkPaidIfPending 条件更新 pending → paid，返回受影响行数（幂等点）
// 受影响为 0 表示订单已支付或已过期：重复回调按无害处理
// expireSeconds 内创建的订单才可支付（过期订单派生为 canceled）
func MarkPaidIfPending(ctx context.Context, exec sqlx.ExtContext, outTradeNo, tradeNo string, expireSeconds int64) (int64, error) {
	now := time.Now().UnixMilli()
	earliest := now - expireSeconds*1000

	sqlStr := `UPDATE orders SET status = ?, trade_no = ?, paid_at = ?
		WHERE out_trade_no = ? AND status = ? AND paid_at = 0 AND created_at >= ?`
	res, err := exec.ExecContext(ctx, sqlStr, OrderStatusPaid, tradeNo, now, outTradeNo, OrderStatusPending, earliest)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SumPaidPointsByDraw 汇总某期全部已支付订单金额（奖池毛收入的销售部分）
func SumPaidPointsByDraw(ctx context.Context, exec sqlx.ExtContext, drawID string) (int64, error) {
	sqlStr := "SELECT COALESCE(SUM(total_points), 0) FROM orders WHERE draw_id = ? AND status = ?"
	var sum int64
	if err := sqlx.GetContext(ctx, exec, &sum, sqlStr, drawID, OrderStatusPaid); err != nil {
		return 0, err
	}
	return sum, nil
}

// BackfillBonusPoints 开奖后将票面派彩汇总回填到订单（单条聚合 UPDATE）
func BackfillBonusPoints(ctx context.Context, exec sqlx.ExtContext, drawID string) error {
	sqlStr := `UPDATE orders o
		JOIN (SELECT out_trade_no, COALESCE(SUM(payout_points), 0) AS sp
		      FROM tickets WHERE draw_id = ? GROUP BY out_trade_no) t
		  ON o.out_trade_no = t.out_trade_no
		SET o.bonus_points = t.sp
		WHERE o.draw_id = ?`
	_, err := exec.ExecContext(ctx, sqlStr, drawID, drawID)
	return err
}

// OrderRow 列表接口用的轻量投影
type OrderRow struct {
	OutTradeNo  string `db:"out_trade_no"`
	DrawID      string `db:"draw_id"`
	Nickname    string `db:"nickname"`
	Avatar      string `db:"avatar"`
	TicketCount int    `db:"ticket_count"`
	TotalPoints int64  `db:"total_points"`
	Number      string `db:"number"`
	Status      string `db:"status"`
	BonusPoints int64  `db:"bonus_points"`
	CreatedAt   int64  `db:"created_at"`
	PaidAt      int64  `db:"paid_at"`
}

const orderRowColumns = `out_trade_no, draw_id, nickname, avatar, ticket_count,
	total_points, number, status, bonus_points, created_at, paid_at`

// ListOrdersByUser 按用户倒序分页查询订单
func ListOrdersByUser(ctx context.Context, exec sqlx.ExtContext, userID string, limit, offset int) ([]OrderRow, error) {
	sqlStr := `SELECT ` + orderRowColumns + ` FROM orders WHERE user_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`
	var list []OrderRow
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, userID, limit, offset); err != nil {
		return nil, err
	}
	return list, nil
}

// ListPaidOrdersByDraw 查询某期全部已支付订单（参与榜）
func ListPaidOrdersByDraw(ctx context.Context, exec sqlx.ExtContext, drawID string, limit, offset int) ([]OrderRow, error) {
	sqlStr := `SELECT ` + orderRowColumns + ` FROM orders WHERE draw_id = ? AND status = ? ORDER BY paid_at DESC LIMIT ? OFFSET ?`
	var list []OrderRow
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, drawID, OrderStatusPaid, limit, offset); err != nil {
		return nil, err
	}
	return list, nil
}

// CountPaidOrdersByDraw 统计某期已支付订单数
func CountPaidOrdersByDraw(ctx context.Context, exec sqlx.ExtContext, drawID string) (int64, error) {
	sqlStr := "SELECT COUNT(1) FROM orders WHERE draw_id = ? AND status = ?"
	var cnt int64
	if err := sqlx.GetContext(ctx, exec, &cnt, sqlStr, drawID, OrderStatusPaid); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return cnt, nil
}
