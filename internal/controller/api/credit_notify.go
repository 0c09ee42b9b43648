package api

import (
	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newNotifyService = service.NewNotifyService

type CreditNotifyController struct{ beego.Controller }

// Notify 积分网关支付回调：GET/POST /api/credit/notify
// 协议约定：无论内部处理结果如何，一律返回固定字面量 "success"，
// 避免网关因非成功响应无限重试。内部失败只落审计，不对外暴露。
func (c *CreditNotifyController) Notify() {
	traceID := helper.GetTraceID(c.Ctx)

	params := map[string]string{}
	if err := c.Ctx.Request.ParseForm(); err == nil {
		for k, vs := range c.Ctx.Request.Form {
			if len(vs) > 0 {
				params[k] = vs[0]
			}
		}
	}

	svc := newNotifyService()
	svc.HandleCreditNotify(c.Ctx.Request.Context(), params, traceID)

	c.Ctx.Output.SetStatus(200)
	_ = c.Ctx.Output.Body([]byte("success"))
}
