package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"lotto-server/internal/lottery"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// -------- 下单入参 --------

// OrderParsed 为解析后的下单入参（与控制器/服务层解耦）
type OrderParsed struct {
	TicketCount int      `json:"ticket_count"`
	Number      string   `json:"number"`  // 留空=随机选号
	Numbers     []string `json:"numbers"` // multi 模式：每注一个号码
}

// ParseOrderFromJSON 解析 JSON 到 OrderParsed。失败返回 false 与错误消息。
func ParseOrderFromJSON(r io.Reader) (OrderParsed, bool, string) {
	var out OrderParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return OrderParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

// ParseOrderFromForm 从表单读取字段，返回 OrderParsed。
func ParseOrderFromForm(ctx *beegocontext.Context) (OrderParsed, bool, string) {
	var out OrderParsed

	cntStr := strings.TrimSpace(ctx.Input.Query("ticket_count"))
	if cntStr == "" {
		return OrderParsed{}, false, "ticket_count required"
	}
	cnt, err := strconv.Atoi(cntStr)
	if err != nil {
		return OrderParsed{}, false, "ticket_count must be integer"
	}
	out.TicketCount = cnt
	out.Number = strings.TrimSpace(ctx.Input.Query("number"))

	if ns := strings.TrimSpace(ctx.Input.Query("numbers")); ns != "" {
		out.Numbers = strings.Split(ns, ",")
		for i := range out.Numbers {
			out.Numbers[i] = strings.TrimSpace(out.Numbers[i])
		}
	}
	return out, true, ""
}

// ValidateOrder 对通用字段做二次校验（适用于 JSON 与 FORM）。失败返回 false 与错误消息。
func ValidateOrder(in *OrderParsed) (bool, string) {
	if in.TicketCount < 1 || in.TicketCount > lottery.MaxTicketsPerOrder {
		return false, fmt.Sprintf("ticket_count must be 1..%d", lottery.MaxTicketsPerOrder)
	}
	if in.Number != "" && !lottery.ValidTicketNumber(in.Number) {
		return false, "number must be 4 digits"
	}
	if len(in.Numbers) > 0 {
		if len(in.Numbers) != in.TicketCount {
			return false, "numbers length must equal ticket_count"
		}
		for _, n := range in.Numbers {
			if !lottery.ValidTicketNumber(n) {
				return false, "numbers must be 4 digits each"
			}
		}
	}
	return true, ""
}

// ParseAndValidateOrder 按 Content-Type 自动解析并做统一校验
func ParseAndValidateOrder(ctx *beegocontext.Context) (OrderParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseOrderFromJSON, ParseOrderFromForm)
	if !ok {
		return OrderParsed{}, false, msg
	}
	if ok, msg := ValidateOrder(&out); !ok {
		return OrderParsed{}, false, msg
	}
	return out, true, ""
}

// -------- 开奖触发入参 --------

type DrawRunParsed struct {
	DrawID string `json:"draw_id"` // 留空=当前应开期
}

func ParseDrawRunFromJSON(r io.Reader) (DrawRunParsed, bool, string) {
	var out DrawRunParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return DrawRunParsed{}, false, "invalid request"
	}
	return out, true, ""
}

func ParseDrawRunFromForm(ctx *beegocontext.Context) (DrawRunParsed, bool, string) {
	var out DrawRunParsed
	out.DrawID = strings.TrimSpace(ctx.Input.Query("draw_id"))
	return out, true, ""
}

// ValidateDrawRun 期号可留空（默认当前应开期），给定时必须是合法日期格式
func ValidateDrawRun(in *DrawRunParsed) (bool, string) {
	if in.DrawID == "" {
		return true, ""
	}
	if !lottery.ValidDrawID(in.DrawID) {
		return false, "draw_id must be YYYY-MM-DD"
	}
	return true, ""
}

// ParseAndValidateDrawRun 按 Content-Type 自动解析并做统一校验
func ParseAndValidateDrawRun(ctx *beegocontext.Context) (DrawRunParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseDrawRunFromJSON, ParseDrawRunFromForm)
	if !ok {
		return DrawRunParsed{}, false, msg
	}
	if ok, msg := ValidateDrawRun(&out); !ok {
		return DrawRunParsed{}, false, msg
	}
	return out, true, ""
}
