package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newOrderService = service.NewOrderService

type OrderController struct{ beego.Controller }

// userFromCtx 取认证中间件注入的用户信息
func (c *OrderController) userFromCtx() (userID, nickname, avatar string) {
	if v := c.Ctx.Input.GetData("user_id"); v != nil {
		userID = fmt.Sprint(v)
	}
	if v := c.Ctx.Input.GetData("nickname"); v != nil {
		nickname = fmt.Sprint(v)
	}
	if v := c.Ctx.Input.GetData("avatar"); v != nil {
		avatar = fmt.Sprint(v)
	}
	return
}

// Create 下单：POST /api/lottery/orders
// 返回 pending 订单与收银台自动跳转表单
func (c *OrderController) Create() {
	traceID := helper.GetTraceID(c.Ctx)
	userID, nickname, avatar := c.userFromCtx()
	if userID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	op, ok, msg := helper.ParseAndValidateOrder(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	svc := newOrderService()
	out, err := svc.CreateOrder(c.Ctx.Request.Context(), service.OrderInput{
		UserID:      userID,
		Nickname:    nickname,
		Avatar:      avatar,
		TicketCount: op.TicketCount,
		Number:      op.Number,
		Numbers:     op.Numbers,
		TraceID:     traceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadNumber):
			response.Error(&c.Controller, 400, response.CodeBadTicketNumber, traceID)
		case errors.Is(err, service.ErrBadCount):
			response.Error(&c.Controller, 400, response.CodeBadTicketCount, traceID)
		case errors.Is(err, service.ErrBadRequest):
			response.BadRequest(&c.Controller, "invalid request", traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// Get 查询本人订单：GET /api/lottery/orders/:out_trade_no
func (c *OrderController) Get() {
	traceID := helper.GetTraceID(c.Ctx)
	userID, _, _ := c.userFromCtx()
	if userID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	outTradeNo := strings.TrimSpace(c.Ctx.Input.Param(":out_trade_no"))
	if outTradeNo == "" {
		response.BadRequest(&c.Controller, "out_trade_no required", traceID)
		return
	}

	svc := newOrderService()
	order, err := svc.GetOrder(c.Ctx.Request.Context(), userID, outTradeNo)
	if err != nil {
		response.NotFound(&c.Controller, "订单不存在", traceID)
		return
	}
	response.Success(&c.Controller, order, traceID)
}

// List 分页查询本人订单：GET /api/lottery/orders
func (c *OrderController) List() {
	traceID := helper.GetTraceID(c.Ctx)
	userID, _, _ := c.userFromCtx()
	if userID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	page, _ := strconv.Atoi(c.Ctx.Input.Query("page"))
	pageSize, _ := strconv.Atoi(c.Ctx.Input.Query("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	svc := newOrderService()
	list, err := svc.ListUserOrders(c.Ctx.Request.Context(), userID, pageSize, (page-1)*pageSize)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]any{
		"page":      page,
		"page_size": pageSize,
		"list":      list,
	}, traceID)
}
