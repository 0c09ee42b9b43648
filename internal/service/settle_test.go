package service

import (
	"context"
	"testing"

	"lotto-server/internal/lottery"
	"lotto-server/internal/model"
	"lotto-server/internal/state"
)

// fakeSettleStore 内存实现，覆盖结算的竞争/幂等分支
type fakeSettleStore struct {
	draw   model.Draw
	txDraw *model.Draw // 事务内 FOR UPDATE 读到的行，nil 时与 draw 相同

	finalizeFail bool // 模拟 closing→drawn 提交点被他人抢先

	beginCount int
	finalized  *model.FinalizeParams
	ensured    []string
	audits     []string
	outbox     []string
	payouts    []model.Payout
	tickets    []model.Ticket
	paidPoints int64
	committed  bool
	rolledBack bool
}

func (f *fakeSettleStore) EnsureDraw(ctx context.Context, drawID, seedPending, seedHash string, salesStartTs, salesEndTs int64, traceID string) error {
	f.ensured = append(f.ensured, drawID)
	if f.draw.DrawID == "" {
		f.draw = model.Draw{
			DrawID:       drawID,
			Status:       state.StateOpen,
			SeedPending:  seedPending,
			SeedHash:     seedHash,
			SalesStartTs: salesStartTs,
			SalesEndTs:   salesEndTs,
		}
	}
	return nil
}

func (f *fakeSettleStore) SetClosingIfOpen(ctx context.Context, drawID string) (int64, error) {
	if f.draw.Status == state.StateOpen {
		f.draw.Status = state.StateClosing
		return 1, nil
	}
	return 0, nil
}

func (f *fakeSettleStore) GetDraw(ctx context.Context, drawID string) (*model.Draw, error) {
	d := f.draw
	return &d, nil
}

func (f *fakeSettleStore) GetDrawSnapshot(ctx context.Context, drawID string) (*model.DrawSnapshot, error) {
	return &model.DrawSnapshot{DrawID: drawID, Status: f.draw.Status}, nil
}

func (f *fakeSettleStore) InsertAudit(ctx context.Context, ev *model.AuditEvent) error {
	f.audits = append(f.audits, ev.EventType)
	return nil
}

func (f *fakeSettleStore) Begin(ctx context.Context) (settleTx, error) {
	f.beginCount++
	return &fakeSettleTx{s: f}, nil
}

type fakeSettleTx struct {
	s *fakeSettleStore
}

func (t *fakeSettleTx) GetDrawForUpdate(ctx context.Context, drawID string) (*model.Draw, error) {
	if t.s.txDraw != nil {
		d := *t.s.txDraw
		return &d, nil
	}
	d := t.s.draw
	return &d, nil
}

func (t *fakeSettleTx) SumPaidPointsByDraw(ctx context.Context, drawID string) (int64, error) {
	return t.s.paidPoints, nil
}

func (t *fakeSettleTx) GetCarryOutPoints(ctx context.Context, drawID string) (int64, error) {
	return 0, nil
}

func (t *fakeSettleTx) ListTicketsByDrawAsc(ctx context.Context, drawID string) ([]model.Ticket, error) {
	return t.s.tickets, nil
}

func (t *fakeSettleTx) ResetPrizes(ctx context.Context, drawID string) error { return nil }

func (t *fakeSettleTx) SetTierFullMatch(ctx context.Context, drawID, winning string, perPoints int64) (int64, error) {
	return 0, nil
}

func (t *fakeSettleTx) SetTierBySuffix(ctx context.Context, drawID string, tier int8, suffixLen int, suffix string, perPoints int64) (int64, error) {
	return 0, nil
}

func (t *fakeSettleTx) ListWinningTickets(ctx context.Context, drawID string) ([]model.Ticket, error) {
	return nil, nil
}

func (t *fakeSettleTx) InsertPayouts(ctx context.Context, rows []model.Payout) error {
	t.s.payouts = append(t.s.payouts, rows...)
	return nil
}

func (t *fakeSettleTx) BackfillBonusPoints(ctx context.Context, drawID string) error { return nil }

func (t *fakeSettleTx) FinalizeIfClosing(ctx context.Context, p model.FinalizeParams) (int64, error) {
	if t.s.finalizeFail {
		return 0, nil
	}
	t.s.finalized = &p
	t.s.draw.Status = state.StateDrawn
	t.s.draw.Winning.Valid = true
	t.s.draw.Winning.String = p.Winning
	return 1, nil
}

func (t *fakeSettleTx) InsertAudit(ctx context.Context, ev *model.AuditEvent) error {
	t.s.audits = append(t.s.audits, ev.EventType)
	return nil
}

func (t *fakeSettleTx) CreateOutbox(ctx context.Context, topic, bizKey string, payload any) error {
	t.s.outbox = append(t.s.outbox, topic)
	return nil
}

func (t *fakeSettleTx) Commit() error {
	t.s.committed = true
	return nil
}

func (t *fakeSettleTx) Rollback() error {
	if !t.s.committed {
		t.s.rolledBack = true
	}
	return nil
}

const testDrawID = "2025-01-02" // 远在过去，销售窗口必然已关闭

func closedDraw(status string) model.Draw {
	seed := "seed_" + testDrawID + "_fixed"
	start, end, _ := lottery.SalesWindow(testDrawID)
	return model.Draw{
		DrawID:       testDrawID,
		Status:       status,
		SeedPending:  seed,
		SeedHash:     lottery.SHA256Hex(seed),
		SalesStartTs: start,
		SalesEndTs:   end,
	}
}

func TestRunSettlementHappyPath(t *testing.T) {
	f := &fakeSettleStore{
		draw:       closedDraw(state.StateOpen),
		paidPoints: 10000,
		tickets: []model.Ticket{
			{ID: 1, Number: "0001", TicketCount: 1},
			{ID: 2, Number: "7777", TicketCount: 2},
		},
	}
	svc := &settleService{store: f}

	res, err := svc.RunSettlement(context.Background(), SettleInput{DrawID: testDrawID, Operator: "admin", TraceID: "t1"})
	if err != nil {
		t.Fatalf("RunSettlement: %v", err)
	}
	if res.Status != SettleStatusOK {
		t.Fatalf("status = %q, want ok", res.Status)
	}
	if len(res.Winning) != 4 {
		t.Fatalf("winning = %q, want 4 digits", res.Winning)
	}
	// 中奖号码必须由期号、预承诺种子与票集指纹确定性派生
	materials := []lottery.TicketMaterial{{ID: 1, Number: "0001"}, {ID: 2, Number: "7777"}}
	want := lottery.WinningNumber(testDrawID, f.draw.SeedPending, lottery.TicketsHash(materials))
	if res.Winning != want {
		t.Fatalf("winning = %q, want %q", res.Winning, want)
	}
	if !f.committed {
		t.Fatal("transaction not committed")
	}
	if f.finalized == nil || f.finalized.SeedReveal != f.draw.SeedPending {
		t.Fatalf("finalize params = %+v", f.finalized)
	}
	if len(f.outbox) != 1 || f.outbox[0] != model.TopicDrawFinalized {
		t.Fatalf("outbox = %v", f.outbox)
	}
	// 开奖成功后应预建下一期
	found := false
	for _, id := range f.ensured {
		if id == "2025-01-03" {
			found = true
		}
	}
	if !found {
		t.Fatalf("next draw not precreated, ensured = %v", f.ensured)
	}
}

// 上一次结算中途失败会把行留在 closing；重试必须续跑而不是永远返回 closing
func TestRunSettlementResumesLeftoverClosing(t *testing.T) {
	f := &fakeSettleStore{
		draw:       closedDraw(state.StateClosing),
		paidPoints: 5000,
		tickets:    []model.Ticket{{ID: 9, Number: "4321", TicketCount: 1}},
	}
	svc := &settleService{store: f}

	res, err := svc.RunSettlement(context.Background(), SettleInput{DrawID: testDrawID, Operator: "admin", TraceID: "t2"})
	if err != nil {
		t.Fatalf("RunSettlement: %v", err)
	}
	if res.Status != SettleStatusOK {
		t.Fatalf("retry on leftover closing: status = %q, want ok", res.Status)
	}
	if res.Winning == "" || !f.committed || f.finalized == nil {
		t.Fatalf("retry did not finalize: winning=%q committed=%v", res.Winning, f.committed)
	}
}

// 已开奖的期次重复结算：幂等返回同一个中奖号码，且不再开启事务
func TestRunSettlementAlreadyDrawnIdempotent(t *testing.T) {
	d := closedDraw(state.StateDrawn)
	d.Winning.Valid = true
	d.Winning.String = "1234"
	f := &fakeSettleStore{draw: d}
	svc := &settleService{store: f}

	for i := 0; i < 2; i++ {
		res, err := svc.RunSettlement(context.Background(), SettleInput{DrawID: testDrawID, Operator: "admin", TraceID: "t3"})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if res.Status != SettleStatusAlreadyDrawn || res.Winning != "1234" {
			t.Fatalf("call %d: status=%q winning=%q", i, res.Status, res.Winning)
		}
	}
	if f.beginCount != 0 {
		t.Fatalf("beginCount = %d, want 0", f.beginCount)
	}
}

// 抢到锁后事务内复核发现已被他人开奖：返回 already_drawn，不重复提交
func TestRunSettlementInTxDoubleCheck(t *testing.T) {
	f := &fakeSettleStore{draw: closedDraw(state.StateOpen)}
	drawn := closedDraw(state.StateDrawn)
	drawn.Winning.Valid = true
	drawn.Winning.String = "5678"
	f.txDraw = &drawn
	svc := &settleService{store: f}

	res, err := svc.RunSettlement(context.Background(), SettleInput{DrawID: testDrawID, Operator: "admin", TraceID: "t4"})
	if err != nil {
		t.Fatalf("RunSettlement: %v", err)
	}
	if res.Status != SettleStatusAlreadyDrawn || res.Winning != "5678" {
		t.Fatalf("status=%q winning=%q", res.Status, res.Winning)
	}
	if f.committed || f.finalized != nil {
		t.Fatal("finalize must not run after double check")
	}
}

// 提交点 closing→drawn 受影响 0 行：竞争失败，不得宣告成功
func TestRunSettlementFinalizeRaceLost(t *testing.T) {
	f := &fakeSettleStore{
		draw:         closedDraw(state.StateOpen),
		finalizeFail: true,
	}
	svc := &settleService{store: f}

	res, err := svc.RunSettlement(context.Background(), SettleInput{DrawID: testDrawID, Operator: "admin", TraceID: "t5"})
	if err != nil {
		t.Fatalf("RunSettlement: %v", err)
	}
	if res.Status != SettleStatusRaceLost {
		t.Fatalf("status = %q, want race_lost", res.Status)
	}
	if f.committed {
		t.Fatal("lost race must not commit")
	}
	if !f.rolledBack {
		t.Fatal("transaction not rolled back")
	}
}

// 销售窗口未关闭时禁止开奖
func TestRunSettlementSalesNotClosed(t *testing.T) {
	f := &fakeSettleStore{}
	svc := &settleService{store: f}

	futureDrawID := "2099-01-01"
	_, err := svc.RunSettlement(context.Background(), SettleInput{DrawID: futureDrawID, Operator: "admin"})
	if err != ErrSalesNotClosed {
		t.Fatalf("err = %v, want ErrSalesNotClosed", err)
	}
}

// 种子承诺对不上时立即中止并落失败审计
func TestRunSettlementSeedMismatch(t *testing.T) {
	d := closedDraw(state.StateOpen)
	d.SeedHash = lottery.SHA256Hex("some other seed")
	f := &fakeSettleStore{draw: d}
	svc := &settleService{store: f}

	_, err := svc.RunSettlement(context.Background(), SettleInput{DrawID: testDrawID, Operator: "admin"})
	if err != ErrSeedMismatch {
		t.Fatalf("err = %v, want ErrSeedMismatch", err)
	}
	found := false
	for _, ev := range f.audits {
		if ev == model.AuditDrawRunError {
			found = true
		}
	}
	if !found {
		t.Fatalf("run error not audited, audits = %v", f.audits)
	}
}
