package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/config"
	"lotto-server/internal/credit"
	infmysql "lotto-server/internal/infra/mysql"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/lottery"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"

	"go.uber.org/zap"
)

var (
	ErrBadRequest    = errors.New("bad request")
	ErrBadNumber     = errors.New("ticket number must be 4 digits")
	ErrBadCount      = errors.New("ticket count out of range")
	ErrOrderNotFound = errors.New("order not found")
)

type OrderInput struct {
	UserID      string
	Nickname    string
	Avatar      string
	TicketCount int
	Number      string   // single 模式；留空则随机选号
	Numbers     []string // multi 模式：每张票一个号码
	TraceID     string
}

type OrderOutput struct {
	OutTradeNo  string `json:"out_trade_no"`
	DrawID      string `json:"draw_id"`
	TotalPoints int64  `json:"total_points"`
	ExpireAt    int64  `json:"expire_at"` // 秒
	PayForm     string `json:"pay_form"`  // 自动提交的收银台跳转页
}

type OrderService interface {
	CreateOrder(ctx context.Context, in OrderInput) (*OrderOutput, error)
	GetOrder(ctx context.Context, userID, outTradeNo string) (*model.Order, error)
	ListUserOrders(ctx context.Context, userID string, limit, offset int) ([]model.OrderRow, error)
}

type orderService struct{}

func NewOrderService() OrderService { return &orderService{} }

// CreateOrder 在当前销售期下单（pending），并生成网关收银台表单
// 积分扣减发生在外部网关，本地只落 pending 订单等回调
func (s *orderService) CreateOrder(ctx context.Context, in OrderInput) (*OrderOutput, error) {
	start := time.Now()
	result := "fail"
	var totalPoints int64
	defer func() { metrics.RecordOrderCreate(result, totalPoints, start) }()

	if in.UserID == "" {
		result = "invalid"
		return nil, ErrBadRequest
	}
	if in.TicketCount < 1 || in.TicketCount > lottery.MaxTicketsPerOrder {
		result = "invalid"
		return nil, ErrBadCount
	}

	mode := lottery.NumberModeSingle
	numbersJSON := ""
	switch {
	case len(in.Numbers) > 0:
		// multi 模式：号码数必须与票数一致
		if len(in.Numbers) != in.TicketCount {
			result = "invalid"
			return nil, ErrBadCount
		}
		for _, n := range in.Numbers {
			if !lottery.ValidTicketNumber(n) {
				result = "invalid"
				return nil, ErrBadNumber
			}
		}
		mode = lottery.NumberModeMulti
		b, _ := json.Marshal(in.Numbers)
		numbersJSON = string(b)
	case in.Number == "":
		in.Number = lottery.RandomTicketNumber()
	case !lottery.ValidTicketNumber(in.Number):
		result = "invalid"
		return nil, ErrBadNumber
	}

	drawID := lottery.CurrentDrawID(time.Now())
	startTs, endTs, err := lottery.SalesWindow(drawID)
	if err != nil {
		return nil, err
	}

	totalPoints = int64(in.TicketCount) * lottery.UnitPricePoints
	outTradeNo := lottery.NewOutTradeNo("lot")

	db := infmysql.SQLX()
	seed := lottery.NewSeed(drawID)
	if err := model.EnsureDraw(ctx, db, drawID, seed, lottery.SHA256Hex(seed), startTs, endTs, in.TraceID); err != nil {
		return nil, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// 昵称/头像快照源：先刷新用户表再下单
	if err := model.UpsertUser(ctx, tx, in.UserID, in.Nickname, in.Avatar); err != nil {
		return nil, err
	}

	order := &model.Order{
		OutTradeNo:      outTradeNo,
		DrawID:          drawID,
		UserID:          in.UserID,
		Nickname:        in.Nickname,
		Avatar:          in.Avatar,
		TicketCount:     in.TicketCount,
		UnitPricePoints: lottery.UnitPricePoints,
		TotalPoints:     totalPoints,
		NumberMode:      mode,
		Number:          in.Number,
		NumbersJSON:     numbersJSON,
		TraceID:         in.TraceID,
	}
	if err := order.Insert(ctx, tx); err != nil {
		return nil, err
	}

	aud := &model.AuditEvent{
		EventType: model.AuditOrderCreated,
		RefID:     outTradeNo,
		NextState: model.OrderStatusPending,
		Operator:  in.UserID,
		Source:    "api",
		Payload: toJSON(map[string]any{
			"draw_id":      drawID,
			"ticket_count": in.TicketCount,
			"total_points": totalPoints,
			"number_mode":  mode,
		}),
		TraceID: in.TraceID,
	}
	if err := aud.Insert(ctx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	cfg := config.Get()
	fields := credit.BuildEpayFields(cfg.Credit.PID, cfg.Credit.Secret, outTradeNo,
		"lottery:"+drawID, totalPoints, cfg.Credit.NotifyURL, cfg.Credit.ReturnURL)
	payForm := credit.RenderAutoSubmitForm(cfg.Credit.GatewayURL, fields)

	result = "success"
	logger.InfoCtx(ctx, "order created",
		zap.String("out_trade_no", outTradeNo),
		zap.String("draw_id", drawID),
		zap.String("user_id", in.UserID),
		zap.Int64("total_points", totalPoints))

	return &OrderOutput{
		OutTradeNo:  outTradeNo,
		DrawID:      drawID,
		TotalPoints: totalPoints,
		ExpireAt:    (order.CreatedAt + cfg.OrderExpireSeconds()*1000) / 1000,
		PayForm:     payForm,
	}, nil
}

// GetOrder 按对外交易号查询本人订单（状态带派生取消判定）
func (s *orderService) GetOrder(ctx context.Context, userID, outTradeNo string) (*model.Order, error) {
	o, err := model.GetOrderByOutTradeNo(ctx, infmysql.SQLX(), outTradeNo)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	if o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	o.Status = lottery.EffectiveOrderStatus(o.Status, o.CreatedAt, time.Now().UnixMilli())
	return o, nil
}

// ListUserOrders 分页查询本人订单，过期 pending 派生为 canceled
func (s *orderService) ListUserOrders(ctx context.Context, userID string, limit, offset int) ([]model.OrderRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := model.ListOrdersByUser(ctx, infmysql.SQLX(), userID, limit, offset)
	if err != nil {
		return nil, err
	}
	now := time.Now().UnixMilli()
	for i := range list {
		list[i].Status = lottery.EffectiveOrderStatus(list[i].Status, list[i].CreatedAt, now)
	}
	return list, nil
}

// invalidateDrawCaches 订单支付后使该期相关缓存整组失效
func invalidateDrawCaches(ctx context.Context, drawID string) {
	ver := config.Get().CacheVersion()
	infrds.Del(ctx, infrds.DrawScopedKeys(ver, drawID)...)
}
