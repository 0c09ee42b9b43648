package model

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// 期次状态（只允许 open → closing → drawn 单向推进）
const (
	DrawStatusOpen    = "open"
	DrawStatusClosing = "closing"
	DrawStatusDrawn   = "drawn"
)

// Draw 对应 draws 表
// 说明：draw_id 为业务日期 "YYYY-MM-DD"，每期恰好一行（唯一键 draw_id）
// winning 仅在 drawn 状态下非空；seed_pending 在开奖时清空（承诺-揭示）
// carry_in_points 为上一期滚入本期的奖池；carry_out_points 为本期滚入下一期的奖池
type Draw struct {
	ID                int64          `db:"id"`
	DrawID            string         `db:"draw_id"`
	Status            string         `db:"status"`
	SalesStartTs      int64          `db:"sales_start_ts"` // 销售窗口起（秒）
	SalesEndTs        int64          `db:"sales_end_ts"`   // 销售窗口止（秒，含）
	Winning           sql.NullString `db:"winning"`
	GrossPoints       int64          `db:"gross_points"`
	PlatformFeePoints int64          `db:"platform_fee_points"`
	NetPoints         int64          `db:"net_points"`
	OperatorFeePoints int64          `db:"operator_fee_points"`
	P1Points          int64          `db:"p1_points"`
	P2Points          int64          `db:"p2_points"`
	P3Points          int64          `db:"p3_points"`
	CarryInPoints     int64          `db:"carry_in_points"`
	CarryOutPoints    int64          `db:"carry_out_points"`
	SeedHash          string         `db:"seed_hash"`
	SeedPending       string         `db:"seed_pending"`
	SeedReveal        string         `db:"seed_reveal"`
	TicketsHash       string         `db:"tickets_hash"`
	TraceID           string         `db:"trace_id"`
	CreatedAt         int64          `db:"created_at"`
	UpdatedAt         int64          `db:"updated_at"`
}

// EnsureDraw 惰性创建期次（幂等）
// 利用唯一键 draw_id，重复创建时 ON DUPLICATE KEY 不做任何修改，
// 保证已存在期次的种子承诺不被覆盖
func EnsureDraw(ctx context.Context, exec sqlx.ExtContext, drawID, seedPending, seedHash string, salesStartTs, salesEndTs int64, traceID string) error {
	now := time.Now().UnixMilli()

	sqlStr := `INSERT INTO draws
		(draw_id, status, sales_start_ts, sales_end_ts, seed_hash, seed_pending, seed_reveal, tickets_hash, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, '', '', ?, ?, ?)
		ON DUPLICATE KEY UPDATE draw_id = draw_id`
	args := []interface{}{drawID, DrawStatusOpen, salesStartTs, salesEndTs, seedHash, seedPending, traceID, now, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

const drawColumns = `id, draw_id, status, sales_start_ts, sales_end_ts, winning,
	gross_points, platform_fee_points, net_points, operator_fee_points,
	p1_points, p2_points, p3_points, carry_in_points, carry_out_points,
	seed_hash, seed_pending, seed_reveal, tickets_hash, trace_id, created_at, updated_at`

// GetDraw 按期号查询（无锁）
func GetDraw(ctx context.Context, exec sqlx.ExtContext, drawID string) (*Draw, error) {
	sqlStr := `SELECT ` + drawColumns + ` FROM draws WHERE draw_id = ? LIMIT 1`
	var d Draw
	if err := sqlx.GetContext(ctx, exec, &d, sqlStr, drawID); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDrawForUpdate 在事务中按期号加锁读取
// 开奖事务内用于复核当前状态（双重检查）
func GetDrawForUpdate(ctx context.Context, exec sqlx.ExtContext, drawID string) (*Draw, error) {
	sqlStr := `SELECT ` + drawColumns + ` FROM draws WHERE draw_id = ? FOR UPDATE`
	var d Draw
	if err := sqlx.GetContext(ctx, exec, &d, sqlStr, drawID); err != nil {
		return nil, err
	}
	return &d, nil
}

// SetClosingIfOpen 条件更新 open → closing，返回受影响行数
// 这是并发开奖之间唯一的互斥点：单行 CAS，不依赖外部锁服务
func SetClosingIfOpen(ctx context.Context, exec sqlx.ExtContext, drawID string) (int64, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE draws SET status = ?, updated_at = ? WHERE draw_id = ? AND status = ?"
	res, err := exec.ExecContext(ctx, sqlStr, DrawStatusClosing, now, drawID, DrawStatusOpen)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FinalizeParams 开奖提交点需要落库的全部派生值
type FinalizeParams struct {
	DrawID            string
	Winning           string
	SeedReveal        string
	TicketsHash       string
	GrossPoints       int64
	PlatformFeePoints int64
	NetPoints         int64
	OperatorFeePoints int64
	P1Points          int64
	P2Points          int64
	P3Points          int64
	CarryInPoints     int64
	CarryOutPoints    int64
}

// FinalizeIfClosing 条件更新 closing → drawn（提交点），返回受影响行数
// 受影响为 0 表示本次竞争失败（另一写入者已完成开奖），调用方不得宣告成功
// seed_pending 在此处清空：揭示后秘密不再保留
func FinalizeIfClosing(ctx context.Context, exec sqlx.ExtContext, p FinalizeParams) (int64, error) {
	now := time.Now().UnixMilli()

	sqlStr := `UPDATE draws SET
		status = ?, winning = ?, seed_reveal = ?, seed_pending = '', tickets_hash = ?,
		gross_points = ?, platform_fee_points = ?, net_points = ?, operator_fee_points = ?,
		p1_points = ?, p2_points = ?, p3_points = ?, carry_in_points = ?, carry_out_points = ?,
		updated_at = ?
		WHERE draw_id = ? AND status = ? AND winning IS NULL`
	args := []interface{}{
		DrawStatusDrawn, p.Winning, p.SeedReveal, p.TicketsHash,
		p.GrossPoints, p.PlatformFeePoints, p.NetPoints, p.OperatorFeePoints,
		p.P1Points, p.P2Points, p.P3Points, p.CarryInPoints, p.CarryOutPoints,
		now, p.DrawID, DrawStatusClosing,
	}

	res, err := exec.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DrawSnapshot 提供 GET 接口所需的最小字段集合（不含 seed_pending 秘密）
type DrawSnapshot struct {
	DrawID         string         `db:"draw_id"`
	Status         string         `db:"status"`
	SalesStartTs   int64          `db:"sales_start_ts"`
	SalesEndTs     int64          `db:"sales_end_ts"`
	Winning        sql.NullString `db:"winning"`
	GrossPoints    int64          `db:"gross_points"`
	NetPoints      int64          `db:"net_points"`
	P1Points       int64          `db:"p1_points"`
	P2Points       int64          `db:"p2_points"`
	P3Points       int64          `db:"p3_points"`
	CarryInPoints  int64          `db:"carry_in_points"`
	CarryOutPoints int64          `db:"carry_out_points"`
	SeedHash       string         `db:"seed_hash"`
	SeedReveal     string         `db:"seed_reveal"`
	TicketsHash    string         `db:"tickets_hash"`
}

const drawSnapshotColumns = `draw_id, status, sales_start_ts, sales_end_ts, winning,
	gross_points, net_points, p1_points, p2_points, p3_points,
	carry_in_points, carry_out_points, seed_hash, seed_reveal, tickets_hash`

// GetDrawSnapshot 按期号查询展示用投影（无锁）
func GetDrawSnapshot(ctx context.Context, exec sqlx.ExtContext, drawID string) (*DrawSnapshot, error) {
	sqlStr := `SELECT ` + drawSnapshotColumns + ` FROM draws WHERE draw_id = ? LIMIT 1`
	var s DrawSnapshot
	if err := sqlx.GetContext(ctx, exec, &s, sqlStr, drawID); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListDraws 按期号倒序分页查询展示用投影
func ListDraws(ctx context.Context, exec sqlx.ExtContext, limit, offset int) ([]DrawSnapshot, error) {
	sqlStr := `SELECT ` + drawSnapshotColumns + ` FROM draws ORDER BY draw_id DESC LIMIT ? OFFSET ?`
	var list []DrawSnapshot
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, limit, offset); err != nil {
		return nil, err
	}
	return list, nil
}

// GetCarryOutPoints 查询某期产生的滚存（上一期未开奖或不存在时返回 0）
func GetCarryOutPoints(ctx context.Context, exec sqlx.ExtContext, drawID string) (int64, error) {
	sqlStr := "SELECT carry_out_points FROM draws WHERE draw_id = ? AND status = ? LIMIT 1"
	var v int64
	if err := sqlx.GetContext(ctx, exec, &v, sqlStr, drawID, DrawStatusDrawn); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return v, nil
}
