package api

import (
	"errors"
	"time"

	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/lottery"
	"lotto-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newSettleService = service.NewSettleService

type DrawRunController struct{ beego.Controller }

// Run 触发开奖：POST /api/draw/run（管理员凭证，cron 与人工补偿共用）
// draw_id 留空时默认当前应开期；重复与并发触发都是安全的
func (c *DrawRunController) Run() {
	traceID := helper.GetTraceID(c.Ctx)

	dp, ok, msg := helper.ParseAndValidateDrawRun(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	drawID := dp.DrawID
	if drawID == "" {
		drawID = lottery.DueDrawID(time.Now())
	}

	svc := newSettleService()
	res, err := svc.RunSettlement(c.Ctx.Request.Context(), service.SettleInput{
		DrawID:   drawID,
		Operator: "admin",
		TraceID:  traceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadDrawID):
			response.Error(&c.Controller, 400, response.CodeBadDrawID, traceID)
		case errors.Is(err, service.ErrSalesNotClosed):
			response.Error(&c.Controller, 400, response.CodeSalesNotClosed, traceID)
		case errors.Is(err, service.ErrSeedMismatch):
			// 完整性故障：不得带着不可信结果继续，向上暴露并报警
			response.ErrorWithMessage(&c.Controller, 500, response.CodeSystemError, "seed integrity fault", traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}

	// 四种结果状态统一走成功包络：closing / race_lost 不是失败，
	// 只是通知调用方稍后重试，由 status 字段区分
	response.Success(&c.Controller, res, traceID)
}
