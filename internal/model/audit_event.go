package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// 审计事件类型
const (
	AuditDrawDrawn            = "draw.drawn"
	AuditDrawRunError         = "draw.run_error"
	AuditOrderCreated         = "order.created"
	AuditNotifyPaid           = "credit.notify_paid"
	AuditNotifyTicketRepaired = "credit.notify_ticket_repaired"
	AuditNotifyError          = "credit.notify_error"
)

// AuditEvent 对应 audit_events 表（状态机审计，追加写）
// payload 为 JSON 快照，开奖事件需包含全部派生值以便离线复算
type AuditEvent struct {
	ID        int64  `db:"id"`
	EventType string `db:"event_type"`
	RefID     string `db:"ref_id"` // draw_id 或 out_trade_no
	PrevState string `db:"prev_state"`
	NextState string `db:"next_state"`
	Operator  string `db:"operator"`
	Source    string `db:"source"`
	Payload   string `db:"payload"`
	TraceID   string `db:"trace_id"`
	CreatedAt int64  `db:"created_at"`
}

// Insert
func (e *AuditEvent) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	sqlStr := "INSERT INTO audit_events (event_type, ref_id, prev_state, next_state, operator, source, payload, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{e.EventType, e.RefID, e.PrevState, e.NextState, e.Operator, e.Source, e.Payload, e.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListAuditEventsByRef 按业务键查询审计轨迹（排障用）
func ListAuditEventsByRef(ctx context.Context, exec sqlx.ExtContext, refID string, limit int) ([]AuditEvent, error) {
	sqlStr := `SELECT id, event_type, ref_id, prev_state, next_state, operator, source, payload, trace_id, created_at
		FROM audit_events WHERE ref_id = ? ORDER BY id DESC LIMIT ?`
	var list []AuditEvent
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, refID, limit); err != nil {
		return nil, err
	}
	return list, nil
}
