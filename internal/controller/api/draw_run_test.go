package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"lotto-server/internal/common/response"
	"lotto-server/internal/service"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

type stubSettleService struct {
	res *service.SettleResult
	err error
}

func (s stubSettleService) RunSettlement(ctx context.Context, in service.SettleInput) (*service.SettleResult, error) {
	return s.res, s.err
}

func withSettleStub(t *testing.T, stub service.SettleService) {
	t.Helper()
	orig := newSettleService
	newSettleService = func() service.SettleService { return stub }
	t.Cleanup(func() { newSettleService = orig })
}

func invokeDrawRun(t *testing.T, drawID string) (*httptest.ResponseRecorder, response.APIResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/draw/run?draw_id="+drawID, nil)
	ctx := beegocontext.NewContext()
	ctx.Reset(w, r)
	c := &DrawRunController{}
	c.Init(ctx, "DrawRunController", "Run", nil)
	c.Run()

	var body response.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v, raw=%s", err, w.Body.String())
	}
	return w, body
}

func dataStatus(t *testing.T, body response.APIResponse) string {
	t.Helper()
	m, ok := body.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %#v, want object", body.Data)
	}
	s, _ := m["status"].(string)
	return s
}

func TestDrawRunOK(t *testing.T) {
	withSettleStub(t, stubSettleService{res: &service.SettleResult{
		DrawID: "2025-01-02", Status: service.SettleStatusOK, Winning: "0042",
	}})

	w, body := invokeDrawRun(t, "2025-01-02")
	if w.Code != 200 || body.Code != response.CodeSuccess {
		t.Fatalf("http=%d code=%d", w.Code, body.Code)
	}
	m := body.Data.(map[string]any)
	if m["winning"] != "0042" || m["status"] != service.SettleStatusOK {
		t.Fatalf("data = %v", m)
	}
}

// closing / race_lost 是正常结果而非错误：HTTP 200 成功包络，
// 由 data.status 告知调用方稍后重试
func TestDrawRunRetryableStatusesAreSuccess(t *testing.T) {
	for _, status := range []string{
		service.SettleStatusClosing,
		service.SettleStatusRaceLost,
		service.SettleStatusAlreadyDrawn,
	} {
		withSettleStub(t, stubSettleService{res: &service.SettleResult{
			DrawID: "2025-01-02", Status: status,
		}})

		w, body := invokeDrawRun(t, "2025-01-02")
		if w.Code != 200 {
			t.Fatalf("status %s: http = %d, want 200", status, w.Code)
		}
		if body.Code != response.CodeSuccess {
			t.Fatalf("status %s: code = %d, want success", status, body.Code)
		}
		if got := dataStatus(t, body); got != status {
			t.Fatalf("data.status = %q, want %q", got, status)
		}
	}
}

func TestDrawRunSalesNotClosed(t *testing.T) {
	withSettleStub(t, stubSettleService{err: service.ErrSalesNotClosed})

	w, body := invokeDrawRun(t, "2099-01-01")
	if w.Code != 400 || body.Code != response.CodeSalesNotClosed {
		t.Fatalf("http=%d code=%d", w.Code, body.Code)
	}
}

func TestDrawRunBadDrawID(t *testing.T) {
	// 非法期号在入参校验层就被拦下，服务层不应被调用
	withSettleStub(t, stubSettleService{res: &service.SettleResult{Status: service.SettleStatusOK}})

	w, body := invokeDrawRun(t, "20250102")
	if w.Code != 400 || body.Code != response.CodeBadRequest {
		t.Fatalf("http=%d code=%d", w.Code, body.Code)
	}
}
