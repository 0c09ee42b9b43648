package service

import (
	"context"
	"encoding/json"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/config"
	"lotto-server/internal/credit"
	infmysql "lotto-server/internal/infra/mysql"
	"lotto-server/internal/lottery"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// 回调处理结果（仅用于指标与审计，对网关永远回固定成功体）
const (
	NotifyOutcomePaid      = "paid"
	NotifyOutcomeDuplicate = "duplicate"
	NotifyOutcomeBadSign   = "bad_sign"
	NotifyOutcomeMismatch  = "mismatch"
	NotifyOutcomeError     = "error"
)

type NotifyService interface {
	HandleCreditNotify(ctx context.Context, params map[string]string, traceID string) string
}

type notifyService struct{}

func NewNotifyService() NotifyService { return &notifyService{} }

// HandleCreditNotify 处理积分网关支付回调
// 返回处理结果标签；无论内部成败，HTTP 层都回固定 "success"，
// 防止网关重试风暴。内部失败只能通过审计日志追查。
func (s *notifyService) HandleCreditNotify(ctx context.Context, params map[string]string, traceID string) string {
	start := time.Now()
	outcome := NotifyOutcomeError
	defer func() { metrics.RecordNotify(outcome, start) }()

	cfg := config.Get()
	outTradeNo := params[credit.FieldOutTradeNo]

	// 1. 必填字段与签名类型：缺字段或 sign_type 非 MD5 直接拒绝
	if field, ok := credit.CheckNotifyParams(params); !ok {
		outcome = NotifyOutcomeBadSign
		s.auditNotifyError(ctx, outTradeNo, "missing or bad field: "+field, params, traceID)
		return outcome
	}

	// 2. 验签（恒定时间比较）
	if !credit.VerifyMD5Lower(params, cfg.Credit.Secret, params[credit.FieldSign]) {
		outcome = NotifyOutcomeBadSign
		s.auditNotifyError(ctx, outTradeNo, "signature verification failed", params, traceID)
		return outcome
	}

	// 3. 商户号与交易状态
	if params[credit.FieldPID] != cfg.Credit.PID {
		outcome = NotifyOutcomeMismatch
		s.auditNotifyError(ctx, outTradeNo, "pid mismatch", params, traceID)
		return outcome
	}
	if params[credit.FieldTradeStatus] != credit.TradeStatusSuccess {
		// 非成功态回调按无害处理，不落审计错误
		outcome = NotifyOutcomeDuplicate
		return outcome
	}

	order, err := model.GetOrderByOutTradeNo(ctx, infmysql.SQLX(), outTradeNo)
	if err != nil {
		outcome = NotifyOutcomeMismatch
		s.auditNotifyError(ctx, outTradeNo, "order not found", params, traceID)
		return outcome
	}

	// 4. 金额核对（按数值比较，"10" 与 "10.00" 等价）
	if !credit.MoneyEquals(params[credit.FieldMoney], order.TotalPoints) {
		outcome = NotifyOutcomeMismatch
		s.auditNotifyError(ctx, outTradeNo, "money mismatch", params, traceID)
		return outcome
	}

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return outcome
	}
	defer func() { _ = tx.Rollback() }()

	// 5. 幂等点：pending → paid 条件更新（过期订单不可支付）
	affected, err := model.MarkPaidIfPending(ctx, tx, outTradeNo, params[credit.FieldTradeNo], cfg.OrderExpireSeconds())
	if err != nil {
		s.auditNotifyError(ctx, outTradeNo, "mark paid failed: "+err.Error(), params, traceID)
		return outcome
	}

	if affected == 0 {
		// 重复回调或过期订单：已支付则走票据修复路径，保证物化恰好一次
		if order.Status == model.OrderStatusPaid {
			repaired, rerr := s.materializeTickets(ctx, tx, order, traceID)
			if rerr != nil {
				s.auditNotifyError(ctx, outTradeNo, "ticket repair failed: "+rerr.Error(), params, traceID)
				return outcome
			}
			if repaired {
				aud := &model.AuditEvent{
					EventType: model.AuditNotifyTicketRepaired,
					RefID:     outTradeNo,
					PrevState: model.OrderStatusPaid,
					NextState: model.OrderStatusPaid,
					Source:    "credit_notify",
					Payload:   toJSON(map[string]any{"draw_id": order.DrawID}),
					TraceID:   traceID,
				}
				if err := aud.Insert(ctx, tx); err != nil {
					return outcome
				}
				if err := tx.Commit(); err != nil {
					return outcome
				}
				invalidateDrawCaches(ctx, order.DrawID)
				logger.InfoCtx(ctx, "notify ticket repaired", zap.String("out_trade_no", outTradeNo))
			}
		}
		outcome = NotifyOutcomeDuplicate
		return outcome
	}

	// 6. 首次支付成功：物化票据 + 审计 + 事务消息，同事务提交
	if _, err := s.materializeTickets(ctx, tx, order, traceID); err != nil {
		s.auditNotifyError(ctx, outTradeNo, "materialize tickets failed: "+err.Error(), params, traceID)
		return outcome
	}

	aud := &model.AuditEvent{
		EventType: model.AuditNotifyPaid,
		RefID:     outTradeNo,
		PrevState: model.OrderStatusPending,
		NextState: model.OrderStatusPaid,
		Source:    "credit_notify",
		Payload: toJSON(map[string]any{
			"draw_id":      order.DrawID,
			"trade_no":     params[credit.FieldTradeNo],
			"money":        params[credit.FieldMoney],
			"ticket_count": order.TicketCount,
		}),
		TraceID: traceID,
	}
	if err := aud.Insert(ctx, tx); err != nil {
		return outcome
	}

	if err := model.CreateOutbox(ctx, tx, model.TopicOrderPaid, outTradeNo, map[string]any{
		"event":        "order_paid",
		"out_trade_no": outTradeNo,
		"draw_id":      order.DrawID,
		"user_id":      order.UserID,
		"total_points": order.TotalPoints,
		"trace_id":     traceID,
	}); err != nil {
		return outcome
	}

	if err := tx.Commit(); err != nil {
		return outcome
	}

	invalidateDrawCaches(ctx, order.DrawID)
	outcome = NotifyOutcomePaid
	logger.InfoCtx(ctx, "order paid",
		zap.String("out_trade_no", outTradeNo),
		zap.String("draw_id", order.DrawID),
		zap.Int64("total_points", order.TotalPoints))
	return outcome
}

// materializeTickets 从订单选号生成票据行（幂等：唯一键冲突视为已物化）
func (s *notifyService) materializeTickets(ctx context.Context, exec sqlx.ExtContext, order *model.Order, traceID string) (bool, error) {
	var rows []model.Ticket

	if order.NumberMode == lottery.NumberModeMulti && order.NumbersJSON != "" {
		var numbers []string
		if err := json.Unmarshal([]byte(order.NumbersJSON), &numbers); err != nil {
			return false, err
		}
		for i, n := range numbers {
			rows = append(rows, model.Ticket{
				DrawID:      order.DrawID,
				OutTradeNo:  order.OutTradeNo,
				Seq:         i,
				UserID:      order.UserID,
				Nickname:    order.Nickname,
				Avatar:      order.Avatar,
				Number:      n,
				TicketCount: 1,
				TraceID:     traceID,
			})
		}
	} else {
		rows = append(rows, model.Ticket{
			DrawID:      order.DrawID,
			OutTradeNo:  order.OutTradeNo,
			Seq:         0,
			UserID:      order.UserID,
			Nickname:    order.Nickname,
			Avatar:      order.Avatar,
			Number:      order.Number,
			TicketCount: order.TicketCount,
			TraceID:     traceID,
		})
	}

	return model.InsertTickets(ctx, exec, rows)
}

// auditNotifyError 回调内部失败审计（独立连接，尽力而为）
func (s *notifyService) auditNotifyError(ctx context.Context, outTradeNo, reason string, params map[string]string, traceID string) {
	safe := make(map[string]string, len(params))
	for k, v := range params {
		if k == credit.FieldSign {
			continue
		}
		safe[k] = v
	}
	aud := &model.AuditEvent{
		EventType: model.AuditNotifyError,
		RefID:     outTradeNo,
		Source:    "credit_notify",
		Payload:   toJSON(map[string]any{"reason": reason, "params": safe}),
		TraceID:   traceID,
	}
	if err := aud.Insert(ctx, infmysql.SQLX()); err != nil {
		logger.ErrorCtx(ctx, "audit notify error failed", zap.String("out_trade_no", outTradeNo), zap.Error(err))
	}
	logger.WarnCtx(ctx, "credit notify rejected",
		zap.String("out_trade_no", outTradeNo),
		zap.String("reason", reason))
}
