package api

import (
	"errors"
	"strconv"
	"strings"

	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newDrawViewService = service.NewDrawViewService

type DrawController struct{ beego.Controller }

// Dashboard 首页聚合：GET /api/lottery/dashboard
func (c *DrawController) Dashboard() {
	traceID := helper.GetTraceID(c.Ctx)

	svc := newDrawViewService()
	view, err := svc.GetDashboard(c.Ctx.Request.Context(), traceID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, view, traceID)
}

// Detail 单期详情：GET /api/lottery/draws/:draw_id
func (c *DrawController) Detail() {
	traceID := helper.GetTraceID(c.Ctx)
	drawID := strings.TrimSpace(c.Ctx.Input.Param(":draw_id"))

	svc := newDrawViewService()
	view, err := svc.GetDrawDetail(c.Ctx.Request.Context(), drawID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadDrawID):
			response.Error(&c.Controller, 400, response.CodeBadDrawID, traceID)
		case errors.Is(err, service.ErrDrawNotFound):
			response.NotFound(&c.Controller, "期次不存在", traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}
	response.Success(&c.Controller, view, traceID)
}

// List 历史期次：GET /api/lottery/draws
func (c *DrawController) List() {
	traceID := helper.GetTraceID(c.Ctx)

	page, _ := strconv.Atoi(c.Ctx.Input.Query("page"))
	pageSize, _ := strconv.Atoi(c.Ctx.Input.Query("page_size"))

	svc := newDrawViewService()
	list, err := svc.ListDraws(c.Ctx.Request.Context(), page, pageSize)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, list, traceID)
}

// Pool 奖池实时累计：GET /api/lottery/draws/:draw_id/pool
func (c *DrawController) Pool() {
	traceID := helper.GetTraceID(c.Ctx)
	drawID := strings.TrimSpace(c.Ctx.Input.Param(":draw_id"))

	svc := newDrawViewService()
	pool, err := svc.GetDrawPool(c.Ctx.Request.Context(), drawID)
	if err != nil {
		if errors.Is(err, service.ErrBadDrawID) {
			response.Error(&c.Controller, 400, response.CodeBadDrawID, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]any{
		"draw_id":     drawID,
		"pool_points": pool,
	}, traceID)
}

// Participants 参与榜：GET /api/lottery/draws/:draw_id/participants
func (c *DrawController) Participants() {
	traceID := helper.GetTraceID(c.Ctx)
	drawID := strings.TrimSpace(c.Ctx.Input.Param(":draw_id"))

	page, _ := strconv.Atoi(c.Ctx.Input.Query("page"))
	pageSize, _ := strconv.Atoi(c.Ctx.Input.Query("page_size"))

	svc := newDrawViewService()
	list, total, err := svc.ListParticipants(c.Ctx.Request.Context(), drawID, page, pageSize)
	if err != nil {
		if errors.Is(err, service.ErrBadDrawID) {
			response.Error(&c.Controller, 400, response.CodeBadDrawID, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]any{
		"total": total,
		"list":  list,
	}, traceID)
}
