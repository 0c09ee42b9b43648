package service

import (
	"context"
	"database/sql"
	"time"

	"lotto-server/internal/config"
	infmysql "lotto-server/internal/infra/mysql"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/lottery"
	"lotto-server/internal/model"
)

// DashboardView 首页聚合视图：当前销售期 + 最近一次开奖
type DashboardView struct {
	CurrentDrawID  string              `json:"current_draw_id"`
	SalesStartTs   int64               `json:"sales_start_ts"`
	SalesEndTs     int64               `json:"sales_end_ts"`
	PoolPoints     int64               `json:"pool_points"` // 实付累计 + 上期滚存（估计值，开奖前未扣费）
	PaidOrders     int64               `json:"paid_orders"`
	LastDrawn      *model.DrawSnapshot `json:"last_drawn,omitempty"`
	LastTierCounts []model.TierCount   `json:"last_tier_counts,omitempty"`
}

// DrawDetailView 单期详情：快照 + 奖级汇总
type DrawDetailView struct {
	Draw       *model.DrawSnapshot `json:"draw"`
	TierCounts []model.TierCount   `json:"tier_counts"`
}

type DrawViewService interface {
	GetDashboard(ctx context.Context, traceID string) (*DashboardView, error)
	GetDrawDetail(ctx context.Context, drawID string) (*DrawDetailView, error)
	GetDrawPool(ctx context.Context, drawID string) (int64, error)
	ListDraws(ctx context.Context, page, pageSize int) ([]model.DrawSnapshot, error)
	ListParticipants(ctx context.Context, drawID string, page, pageSize int) ([]model.OrderRow, int64, error)
}

type drawViewService struct{}

func NewDrawViewService() DrawViewService { return &drawViewService{} }

// GetDashboard 当前期聚合视图（惰性建期的入口之一）
func (s *drawViewService) GetDashboard(ctx context.Context, traceID string) (*DashboardView, error) {
	db := infmysql.SQLX()
	now := time.Now()
	drawID := lottery.CurrentDrawID(now)
	ver := config.Get().CacheVersion()

	var cached DashboardView
	if infrds.GetJSON(ctx, infrds.DashboardKey(ver, drawID), &cached) {
		return &cached, nil
	}

	startTs, endTs, err := lottery.SalesWindow(drawID)
	if err != nil {
		return nil, err
	}
	seed := lottery.NewSeed(drawID)
	if err := model.EnsureDraw(ctx, db, drawID, seed, lottery.SHA256Hex(seed), startTs, endTs, traceID); err != nil {
		return nil, err
	}

	paid, err := model.SumPaidPointsByDraw(ctx, db, drawID)
	if err != nil {
		return nil, err
	}
	carryIn := int64(0)
	if prevID, perr := lottery.PrevDrawID(drawID); perr == nil {
		carryIn, err = model.GetCarryOutPoints(ctx, db, prevID)
		if err != nil {
			return nil, err
		}
	}
	orders, err := model.CountPaidOrdersByDraw(ctx, db, drawID)
	if err != nil {
		return nil, err
	}

	view := &DashboardView{
		CurrentDrawID: drawID,
		SalesStartTs:  startTs,
		SalesEndTs:    endTs,
		PoolPoints:    paid + carryIn,
		PaidOrders:    orders,
	}

	// 最近一次开奖（昨天或更早都可能，取已结算的上一期）
	if prevID, perr := lottery.PrevDrawID(drawID); perr == nil {
		if snap, serr := model.GetDrawSnapshot(ctx, db, prevID); serr == nil && snap.Status == model.DrawStatusDrawn {
			view.LastDrawn = snap
			if counts, cerr := model.WinnerCountsByTier(ctx, db, prevID); cerr == nil {
				view.LastTierCounts = counts
			}
		}
	}

	infrds.SetJSON(ctx, infrds.DashboardKey(ver, drawID), view, dashboardTTL())
	// 奖池实时累计单独一份，供轻量轮询端点读取
	infrds.SetJSON(ctx, infrds.DrawPoolKey(ver, drawID), view.PoolPoints, dashboardTTL())
	return view, nil
}

// GetDrawPool 当前期奖池累计（积分），轻量轮询用
func (s *drawViewService) GetDrawPool(ctx context.Context, drawID string) (int64, error) {
	if !lottery.ValidDrawID(drawID) {
		return 0, ErrBadDrawID
	}
	ver := config.Get().CacheVersion()

	var cached int64
	if infrds.GetJSON(ctx, infrds.DrawPoolKey(ver, drawID), &cached) {
		return cached, nil
	}

	db := infmysql.SQLX()
	paid, err := model.SumPaidPointsByDraw(ctx, db, drawID)
	if err != nil {
		return 0, err
	}
	carryIn := int64(0)
	if prevID, perr := lottery.PrevDrawID(drawID); perr == nil {
		carryIn, err = model.GetCarryOutPoints(ctx, db, prevID)
		if err != nil {
			return 0, err
		}
	}
	pool := paid + carryIn
	infrds.SetJSON(ctx, infrds.DrawPoolKey(ver, drawID), pool, dashboardTTL())
	return pool, nil
}

// GetDrawDetail 单期详情（缓存读穿透）
func (s *drawViewService) GetDrawDetail(ctx context.Context, drawID string) (*DrawDetailView, error) {
	if !lottery.ValidDrawID(drawID) {
		return nil, ErrBadDrawID
	}
	db := infmysql.SQLX()
	ver := config.Get().CacheVersion()

	var cached DrawDetailView
	if infrds.GetJSON(ctx, infrds.DrawDetailKey(ver, drawID), &cached) && cached.Draw != nil {
		return &cached, nil
	}

	snap, err := model.GetDrawSnapshot(ctx, db, drawID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrDrawNotFound
		}
		return nil, err
	}
	counts, err := model.WinnerCountsByTier(ctx, db, drawID)
	if err != nil {
		return nil, err
	}

	view := &DrawDetailView{Draw: snap, TierCounts: counts}
	// 只缓存已开奖的期：销售中的期奖池在涨，缓存意义不大
	if snap.Status == model.DrawStatusDrawn {
		infrds.SetJSON(ctx, infrds.DrawDetailKey(ver, drawID), view, detailTTL())
	}
	return view, nil
}

// ListDraws 历史期次列表
func (s *drawViewService) ListDraws(ctx context.Context, page, pageSize int) ([]model.DrawSnapshot, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	ver := config.Get().CacheVersion()

	var cached []model.DrawSnapshot
	if pageSize == 20 && infrds.GetJSON(ctx, infrds.DrawsListKey(ver, page), &cached) {
		return cached, nil
	}

	list, err := model.ListDraws(ctx, infmysql.SQLX(), pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	if pageSize == 20 {
		infrds.SetJSON(ctx, infrds.DrawsListKey(ver, page), list, listTTL())
	}
	return list, nil
}

// ListParticipants 某期参与榜（已支付订单，昵称/头像为下单时快照）
func (s *drawViewService) ListParticipants(ctx context.Context, drawID string, page, pageSize int) ([]model.OrderRow, int64, error) {
	if !lottery.ValidDrawID(drawID) {
		return nil, 0, ErrBadDrawID
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	db := infmysql.SQLX()
	ver := config.Get().CacheVersion()

	// 只缓存默认首页，翻页流量可以忽略
	cacheable := page == 1 && pageSize == 20
	var cached participantsPage
	if cacheable && infrds.GetJSON(ctx, infrds.ParticipantsKey(ver, drawID), &cached) {
		return cached.List, cached.Total, nil
	}

	total, err := model.CountPaidOrdersByDraw(ctx, db, drawID)
	if err != nil {
		return nil, 0, err
	}
	list, err := model.ListPaidOrdersByDraw(ctx, db, drawID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	if cacheable {
		infrds.SetJSON(ctx, infrds.ParticipantsKey(ver, drawID), participantsPage{List: list, Total: total}, listTTL())
	}
	return list, total, nil
}

type participantsPage struct {
	List  []model.OrderRow `json:"list"`
	Total int64            `json:"total"`
}

func dashboardTTL() time.Duration {
	cfg := config.Get()
	if cfg != nil && cfg.Draw.ListTTLSec > 0 {
		return time.Duration(cfg.Draw.ListTTLSec) * time.Second
	}
	return 30 * time.Second
}

func detailTTL() time.Duration {
	cfg := config.Get()
	if cfg != nil && cfg.Draw.DetailTTLSec > 0 {
		return time.Duration(cfg.Draw.DetailTTLSec) * time.Second
	}
	return 10 * time.Minute
}

func listTTL() time.Duration {
	cfg := config.Get()
	if cfg != nil && cfg.Draw.ListTTLSec > 0 {
		return time.Duration(cfg.Draw.ListTTLSec) * time.Second
	}
	return time.Minute
}
