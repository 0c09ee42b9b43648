package routers

import (
	"lotto-server/internal/controller/api"
	"lotto-server/internal/metrics"
	"lotto-server/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
)

// init 注册HTTP路由与全局过滤器
// 过滤器内部自行按配置开关降级，注册本身无条件执行
func init() {
	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（未启用时为空操作）
	beego.InsertFilter("/*", beego.BeforeExec, middleware.CORSFilter)

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// ========== 公开查询 API ==========

	beego.Router("/api/lottery/dashboard", &api.DrawController{}, "get:Dashboard")
	beego.Router("/api/lottery/draws", &api.DrawController{}, "get:List")
	beego.Router("/api/lottery/draws/:draw_id", &api.DrawController{}, "get:Detail")
	beego.Router("/api/lottery/draws/:draw_id/pool", &api.DrawController{}, "get:Pool")
	beego.Router("/api/lottery/draws/:draw_id/participants", &api.DrawController{}, "get:Participants")

	// ========== 用户 API（JWT 认证 + 限流） ==========

	beego.InsertFilter("/api/lottery/orders", beego.BeforeExec, middleware.UserAuthFilter)
	beego.InsertFilter("/api/lottery/orders/*", beego.BeforeExec, middleware.UserAuthFilter)
	beego.InsertFilter("/api/lottery/me/orders", beego.BeforeExec, middleware.UserAuthFilter)
	beego.InsertFilter("/api/lottery/orders", beego.BeforeExec, middleware.RateLimitFilter)
	beego.Router("/api/lottery/orders", &api.OrderController{}, "post:Create")
	beego.Router("/api/lottery/me/orders", &api.OrderController{}, "get:List")
	beego.Router("/api/lottery/orders/:out_trade_no", &api.OrderController{}, "get:Get")

	// ========== 支付网关回调（验签在服务层，永远回 success） ==========

	beego.Router("/api/credit/notify", &api.CreditNotifyController{}, "get:Notify;post:Notify")

	// ========== 管理 API（管理员认证） ==========

	// 开奖触发：cron 定时与人工补偿共用入口，天然幂等
	beego.InsertFilter("/api/draw/run", beego.BeforeExec, middleware.AdminAuthFilter)
	beego.Router("/api/draw/run", &api.DrawRunController{}, "post:Run")
}
