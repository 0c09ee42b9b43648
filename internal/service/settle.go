package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/config"
	infmysql "lotto-server/internal/infra/mysql"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/lottery"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"
	"lotto-server/internal/state"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var (
	ErrBadDrawID      = errors.New("bad draw id format")
	ErrDrawNotFound   = errors.New("draw not found")
	ErrSalesNotClosed = errors.New("sales window not closed yet")
	ErrSeedMismatch   = errors.New("seed reveal does not match commitment")
)

// 开奖结果状态
// ok: 本次调用完成开奖
// already_drawn: 早已开奖（幂等确认，携带相同中奖号码）
// closing: 另一调用方持有结算权，稍后重试
// race_lost: 提交点竞争失败，稍后重试
const (
	SettleStatusOK           = "ok"
	SettleStatusAlreadyDrawn = "already_drawn"
	SettleStatusClosing      = "closing"
	SettleStatusRaceLost     = "race_lost"
)

type SettleInput struct {
	DrawID   string
	Operator string
	TraceID  string
}

type SettleResult struct {
	DrawID  string `json:"draw_id"`
	Status  string `json:"status"`
	Winning string `json:"winning,omitempty"`
}

type SettleService interface {
	RunSettlement(ctx context.Context, in SettleInput) (*SettleResult, error)
}

// settleStore 抽象结算依赖的存储操作，生产实现委托给 model 层
type settleStore interface {
	EnsureDraw(ctx context.Context, drawID, seedPending, seedHash string, salesStartTs, salesEndTs int64, traceID string) error
	SetClosingIfOpen(ctx context.Context, drawID string) (int64, error)
	GetDraw(ctx context.Context, drawID string) (*model.Draw, error)
	GetDrawSnapshot(ctx context.Context, drawID string) (*model.DrawSnapshot, error)
	InsertAudit(ctx context.Context, ev *model.AuditEvent) error
	Begin(ctx context.Context) (settleTx, error)
}

// settleTx 结算事务内的存储操作
type settleTx interface {
	GetDrawForUpdate(ctx context.Context, drawID string) (*model.Draw, error)
	SumPaidPointsByDraw(ctx context.Context, drawID string) (int64, error)
	GetCarryOutPoints(ctx context.Context, drawID string) (int64, error)
	ListTicketsByDrawAsc(ctx context.Context, drawID string) ([]model.Ticket, error)
	ResetPrizes(ctx context.Context, drawID string) error
	SetTierFullMatch(ctx context.Context, drawID, winning string, perPoints int64) (int64, error)
	SetTierBySuffix(ctx context.Context, drawID string, tier int8, suffixLen int, suffix string, perPoints int64) (int64, error)
	ListWinningTickets(ctx context.Context, drawID string) ([]model.Ticket, error)
	InsertPayouts(ctx context.Context, rows []model.Payout) error
	BackfillBonusPoints(ctx context.Context, drawID string) error
	FinalizeIfClosing(ctx context.Context, p model.FinalizeParams) (int64, error)
	InsertAudit(ctx context.Context, ev *model.AuditEvent) error
	CreateOutbox(ctx context.Context, topic, bizKey string, payload any) error
	Commit() error
	Rollback() error
}

type settleService struct {
	store settleStore
}

func NewSettleService() SettleService { return &settleService{store: sqlSettleStore{}} }

// RunSettlement 开奖结算
// 并发安全完全依赖 draws 行上的两次条件更新：
// open→closing 抢锁，closing→drawn 提交。任何重复/并发调用都会
// 落到 already_drawn / closing / race_lost 之一，绝不会开出两个号码。
// 中途失败的结算把行留在 closing，下一次调用从事务头安全续跑。
func (s *settleService) RunSettlement(ctx context.Context, in SettleInput) (*SettleResult, error) {
	if !lottery.ValidDrawID(in.DrawID) {
		return nil, ErrBadDrawID
	}

	start := time.Now()
	statusLabel := "error"
	defer func() { metrics.RecordSettle(statusLabel, start) }()

	// 销售窗口必须已经关闭才允许开奖
	startTs, endTs, err := lottery.SalesWindow(in.DrawID)
	if err != nil {
		return nil, ErrBadDrawID
	}
	if time.Now().Unix() <= endTs {
		return nil, ErrSalesNotClosed
	}

	// 惰性建期：首次引用本期时创建 open 行并生成种子承诺
	seed := lottery.NewSeed(in.DrawID)
	if err := s.store.EnsureDraw(ctx, in.DrawID, seed, lottery.SHA256Hex(seed), startTs, endTs, in.TraceID); err != nil {
		return nil, err
	}

	// 抢锁：open → closing，唯一互斥点
	affected, err := s.store.SetClosingIfOpen(ctx, in.DrawID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// 没抢到：区分"已开奖"、"他人正在推进"与"残留的 closing"
		d, err := s.store.GetDraw(ctx, in.DrawID)
		if err != nil {
			return nil, err
		}
		if state.IsTerminal(d.Status) && d.Winning.Valid {
			statusLabel = SettleStatusAlreadyDrawn
			return &SettleResult{DrawID: in.DrawID, Status: SettleStatusAlreadyDrawn, Winning: d.Winning.String}, nil
		}
		if d.Status != state.StateClosing {
			statusLabel = SettleStatusClosing
			return &SettleResult{DrawID: in.DrawID, Status: SettleStatusClosing}, nil
		}
		// 行停在 closing：上次结算中途失败后留下的锁，直接续跑。
		// 与活跃持有者撞上也安全：事务内 FOR UPDATE 复核 + closing→drawn
		// CAS 仍只放行一个提交，另一方收敛到 already_drawn / race_lost。
	}

	res, err := s.settleLocked(ctx, in)
	if err != nil {
		// 失败审计走独立连接（事务已回滚），尽力而为
		s.auditRunError(ctx, in, err)
		return nil, err
	}
	statusLabel = res.Status

	if res.Status == SettleStatusOK {
		s.afterSettled(ctx, in.DrawID, in.TraceID)
	}
	return res, nil
}

// settleLocked 持有（或续接）closing 锁之后的结算事务
func (s *settleService) settleLocked(ctx context.Context, in SettleInput) (*SettleResult, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// 双重检查：锁内复核状态，防止抢锁与事务之间被他人完成开奖
	d, err := tx.GetDrawForUpdate(ctx, in.DrawID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("draw not found after lock acquired")
		}
		return nil, err
	}
	if state.IsTerminal(d.Status) {
		if d.Winning.Valid {
			return &SettleResult{DrawID: in.DrawID, Status: SettleStatusAlreadyDrawn, Winning: d.Winning.String}, nil
		}
		return &SettleResult{DrawID: in.DrawID, Status: SettleStatusRaceLost}, nil
	}
	if d.Status != state.StateClosing {
		return &SettleResult{DrawID: in.DrawID, Status: SettleStatusRaceLost}, nil
	}

	// 揭示校验：承诺存在时必须能复算出同一哈希，否则种子被篡改，立即中止
	if d.SeedHash != "" && !lottery.VerifySeed(d.SeedPending, d.SeedHash) {
		return nil, ErrSeedMismatch
	}

	// 奖池毛收入 = 本期实付 + 上期滚存
	paid, err := tx.SumPaidPointsByDraw(ctx, in.DrawID)
	if err != nil {
		return nil, err
	}
	carryIn := int64(0)
	if prevID, perr := lottery.PrevDrawID(in.DrawID); perr == nil {
		carryIn, err = tx.GetCarryOutPoints(ctx, prevID)
		if err != nil {
			return nil, err
		}
	}

	// 定格票集并计算指纹（id 升序，顺序即指纹的一部分）
	tickets, err := tx.ListTicketsByDrawAsc(ctx, in.DrawID)
	if err != nil {
		return nil, err
	}
	materials := make([]lottery.TicketMaterial, 0, len(tickets))
	for _, t := range tickets {
		materials = append(materials, lottery.TicketMaterial{ID: t.ID, Number: t.Number})
	}
	ticketsHash := lottery.TicketsHash(materials)

	// 中奖号码：绑定期号、预承诺种子与定格后的票集，任何一方变动号码即变
	winning := lottery.WinningNumber(in.DrawID, d.SeedPending, ticketsHash)

	feeRate := config.Get().FeeRate()
	pool := lottery.CalculatePool(paid, carryIn, feeRate)

	// 奖级注数统计（一行票可含多张，按 ticket_count 累计）
	var w1, w2, w3 int64
	for _, t := range tickets {
		switch lottery.PrizeTier(t.Number, winning) {
		case 1:
			w1 += int64(t.TicketCount)
		case 2:
			w2 += int64(t.TicketCount)
		case 3:
			w3 += int64(t.TicketCount)
		}
	}
	payouts := lottery.CalculateTierPayouts(pool, w1, w2, w3)

	// 先清后置：重算时不残留旧奖级
	if err := tx.ResetPrizes(ctx, in.DrawID); err != nil {
		return nil, err
	}
	if w1 > 0 {
		if _, err := tx.SetTierFullMatch(ctx, in.DrawID, winning, payouts.P1.PerPoints); err != nil {
			return nil, err
		}
	}
	if w2 > 0 {
		if _, err := tx.SetTierBySuffix(ctx, in.DrawID, 2, 3, winning[1:], payouts.P2.PerPoints); err != nil {
			return nil, err
		}
	}
	if w3 > 0 {
		if _, err := tx.SetTierBySuffix(ctx, in.DrawID, 3, 2, winning[2:], payouts.P3.PerPoints); err != nil {
			return nil, err
		}
	}

	// 中奖票逐张落派彩台账
	winners, err := tx.ListWinningTickets(ctx, in.DrawID)
	if err != nil {
		return nil, err
	}
	rows := make([]model.Payout, 0, len(winners))
	for _, t := range winners {
		rows = append(rows, model.Payout{
			DrawID:     in.DrawID,
			TicketID:   t.ID,
			OutTradeNo: t.OutTradeNo,
			UserID:     t.UserID,
			Tier:       t.Tier,
			Points:     t.PayoutPoints,
			TraceID:    in.TraceID,
		})
	}
	if err := tx.InsertPayouts(ctx, rows); err != nil {
		return nil, err
	}

	// 票面派彩汇总回填到订单
	if err := tx.BackfillBonusPoints(ctx, in.DrawID); err != nil {
		return nil, err
	}

	// 提交点：closing → drawn。受影响 0 行说明竞争失败，不得宣告成功
	affected, err := tx.FinalizeIfClosing(ctx, model.FinalizeParams{
		DrawID:            in.DrawID,
		Winning:           winning,
		SeedReveal:        d.SeedPending,
		TicketsHash:       ticketsHash,
		GrossPoints:       pool.GrossPoints,
		PlatformFeePoints: pool.PlatformFeePoints,
		NetPoints:         pool.NetPoints,
		OperatorFeePoints: pool.OperatorFeePoints,
		P1Points:          pool.P1Points,
		P2Points:          pool.P2Points,
		P3Points:          pool.P3Points,
		CarryInPoints:     carryIn,
		CarryOutPoints:    payouts.NextCarryOverPoints,
	})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return &SettleResult{DrawID: in.DrawID, Status: SettleStatusRaceLost}, nil
	}

	// 审计：落全部派生值，事后可离线复算整次开奖
	auditPayload := map[string]any{
		"winning":      winning,
		"seed_reveal":  d.SeedPending,
		"seed_hash":    d.SeedHash,
		"tickets_hash": ticketsHash,
		"ticket_rows":  len(tickets),
		"paid_points":  paid,
		"carry_in":     carryIn,
		"fee_rate":     feeRate,
		"pool":         pool,
		"payouts":      payouts,
	}
	aud := &model.AuditEvent{
		EventType: model.AuditDrawDrawn,
		RefID:     in.DrawID,
		PrevState: state.StateClosing,
		NextState: state.StateDrawn,
		Operator:  in.Operator,
		Source:    "api",
		Payload:   toJSON(auditPayload),
		TraceID:   in.TraceID,
	}
	if err := tx.InsertAudit(ctx, aud); err != nil {
		return nil, err
	}

	// 事务内写 Outbox，与开奖同生共死
	if err := tx.CreateOutbox(ctx, model.TopicDrawFinalized, in.DrawID, map[string]any{
		"event":      "draw_finalized",
		"draw_id":    in.DrawID,
		"winning":    winning,
		"gross":      pool.GrossPoints,
		"net":        pool.NetPoints,
		"carry_out":  payouts.NextCarryOverPoints,
		"winners_p1": payouts.P1.Winners,
		"winners_p2": payouts.P2.Winners,
		"winners_p3": payouts.P3.Winners,
		"trace_id":   in.TraceID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.RecordSettledPool(pool.GrossPoints, pool.NetPoints, pool.P1Points, pool.P2Points, pool.P3Points, payouts.NextCarryOverPoints)
	logger.InfoCtx(ctx, "draw settled",
		zap.String("draw_id", in.DrawID),
		zap.String("winning", winning),
		zap.Int64("gross", pool.GrossPoints),
		zap.Int64("carry_out", payouts.NextCarryOverPoints),
		zap.Int("ticket_rows", len(tickets)))

	return &SettleResult{DrawID: in.DrawID, Status: SettleStatusOK, Winning: winning}, nil
}

// afterSettled 提交后的尽力而为副作用：缓存失效、温快照、预建下一期
// 失败只记日志，绝不回滚或掩盖已提交的开奖
func (s *settleService) afterSettled(ctx context.Context, drawID, traceID string) {
	cfg := config.Get()
	ver := cfg.CacheVersion()

	infrds.Del(ctx, infrds.DrawScopedKeys(ver, drawID)...)

	// 温快照：开奖后详情页大量读取，直接写一份
	if snap, err := s.store.GetDrawSnapshot(ctx, drawID); err == nil {
		ttl := 10 * time.Minute
		if cfg != nil && cfg.Draw.DetailTTLSec > 0 {
			ttl = time.Duration(cfg.Draw.DetailTTLSec) * time.Second
		}
		infrds.SetJSON(ctx, infrds.DrawDetailKey(ver, drawID), snap, ttl)
	} else {
		logger.WarnCtx(ctx, "warm draw snapshot failed", zap.String("draw_id", drawID), zap.Error(err))
	}

	// 预建下一期，避免零点后第一笔订单承担建期成本
	if nextID, err := lottery.NextDrawID(drawID); err == nil {
		seed := lottery.NewSeed(nextID)
		if startTs, endTs, werr := lottery.SalesWindow(nextID); werr == nil {
			if err := s.store.EnsureDraw(ctx, nextID, seed, lottery.SHA256Hex(seed), startTs, endTs, traceID); err != nil {
				logger.WarnCtx(ctx, "precreate next draw failed", zap.String("draw_id", nextID), zap.Error(err))
			}
		}
	}
}

// auditRunError 失败审计（独立连接，尽力而为）
func (s *settleService) auditRunError(ctx context.Context, in SettleInput, cause error) {
	aud := &model.AuditEvent{
		EventType: model.AuditDrawRunError,
		RefID:     in.DrawID,
		Operator:  in.Operator,
		Source:    "api",
		Payload:   toJSON(map[string]any{"error": cause.Error()}),
		TraceID:   in.TraceID,
	}
	if err := s.store.InsertAudit(ctx, aud); err != nil {
		logger.ErrorCtx(ctx, "audit run error failed", zap.String("draw_id", in.DrawID), zap.Error(err))
	}
	logger.ErrorCtx(ctx, "draw settlement failed", zap.String("draw_id", in.DrawID), zap.Error(cause))
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ---- settleStore 的 MySQL 实现：逐一委托给 model 层 ----

type sqlSettleStore struct{}

func (sqlSettleStore) EnsureDraw(ctx context.Context, drawID, seedPending, seedHash string, salesStartTs, salesEndTs int64, traceID string) error {
	return model.EnsureDraw(ctx, infmysql.SQLX(), drawID, seedPending, seedHash, salesStartTs, salesEndTs, traceID)
}

func (sqlSettleStore) SetClosingIfOpen(ctx context.Context, drawID string) (int64, error) {
	return model.SetClosingIfOpen(ctx, infmysql.SQLX(), drawID)
}

func (sqlSettleStore) GetDraw(ctx context.Context, drawID string) (*model.Draw, error) {
	return model.GetDraw(ctx, infmysql.SQLX(), drawID)
}

func (sqlSettleStore) GetDrawSnapshot(ctx context.Context, drawID string) (*model.DrawSnapshot, error) {
	return model.GetDrawSnapshot(ctx, infmysql.SQLX(), drawID)
}

func (sqlSettleStore) InsertAudit(ctx context.Context, ev *model.AuditEvent) error {
	return ev.Insert(ctx, infmysql.SQLX())
}

func (sqlSettleStore) Begin(ctx context.Context) (settleTx, error) {
	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlSettleTx{tx: tx}, nil
}

type sqlSettleTx struct {
	tx *sqlx.Tx
}

func (t *sqlSettleTx) GetDrawForUpdate(ctx context.Context, drawID string) (*model.Draw, error) {
	return model.GetDrawForUpdate(ctx, t.tx, drawID)
}

func (t *sqlSettleTx) SumPaidPointsByDraw(ctx context.Context, drawID string) (int64, error) {
	return model.SumPaidPointsByDraw(ctx, t.tx, drawID)
}

func (t *sqlSettleTx) GetCarryOutPoints(ctx context.Context, drawID string) (int64, error) {
	return model.GetCarryOutPoints(ctx, t.tx, drawID)
}

func (t *sqlSettleTx) ListTicketsByDrawAsc(ctx context.Context, drawID string) ([]model.Ticket, error) {
	return model.ListTicketsByDrawAsc(ctx, t.tx, drawID)
}

func (t *sqlSettleTx) ResetPrizes(ctx context.Context, drawID string) error {
	return model.ResetPrizes(ctx, t.tx, drawID)
}

func (t *sqlSettleTx) SetTierFullMatch(ctx context.Context, drawID, winning string, perPoints int64) (int64, error) {
	return model.SetTierFullMatch(ctx, t.tx, drawID, winning, perPoints)
}

func (t *sqlSettleTx) SetTierBySuffix(ctx context.Context, drawID string, tier int8, suffixLen int, suffix string, perPoints int64) (int64, error) {
	return model.SetTierBySuffix(ctx, t.tx, drawID, tier, suffixLen, suffix, perPoints)
}

func (t *sqlSettleTx) ListWinningTickets(ctx context.Context, drawID string) ([]model.Ticket, error) {
	return model.ListWinningTickets(ctx, t.tx, drawID)
}

func (t *sqlSettleTx) InsertPayouts(ctx context.Context, rows []model.Payout) error {
	return model.InsertPayouts(ctx, t.tx, rows)
}

func (t *sqlSettleTx) BackfillBonusPoints(ctx context.Context, drawID string) error {
	return model.BackfillBonusPoints(ctx, t.tx, drawID)
}

func (t *sqlSettleTx) FinalizeIfClosing(ctx context.Context, p model.FinalizeParams) (int64, error) {
	return model.FinalizeIfClosing(ctx, t.tx, p)
}

func (t *sqlSettleTx) InsertAudit(ctx context.Context, ev *model.AuditEvent) error {
	return ev.Insert(ctx, t.tx)
}

func (t *sqlSettleTx) CreateOutbox(ctx context.Context, topic, bizKey string, payload any) error {
	return model.CreateOutbox(ctx, t.tx, topic, bizKey, payload)
}

func (t *sqlSettleTx) Commit() error   { return t.tx.Commit() }
func (t *sqlSettleTx) Rollback() error { return t.tx.Rollback() }
