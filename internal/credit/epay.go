package credit

import (
	"fmt"
	"html"
	"sort"
	"strings"

	decimal "github.com/shopspring/decimal"
)

// 网关回调字段
const (
	FieldPID         = "pid"
	FieldOutTradeNo  = "out_trade_no"
	FieldTradeNo     = "trade_no"
	FieldMoney       = "money"
	FieldTradeStatus = "trade_status"
	FieldSign        = "sign"
	FieldSignType    = "sign_type"

	TradeStatusSuccess = "TRADE_SUCCESS"
	SignTypeMD5        = "MD5"
)

// FormatMoney 金额格式化为固定两位小数字符串（网关要求）
func FormatMoney(points int64) string {
	return decimal.NewFromInt(points).StringFixed(2)
}

// 回调必填字段，缺任何一个都拒绝处理
var notifyRequiredFields = []string{
	FieldPID, FieldOutTradeNo, FieldTradeNo,
	FieldMoney, FieldTradeStatus, FieldSign, FieldSignType,
}

// CheckNotifyParams 校验回调必填字段齐全且签名类型为 MD5
// 返回首个不合法的字段名，便于审计定位
func CheckNotifyParams(params map[string]string) (string, bool) {
	for _, k := range notifyRequiredFields {
		if strings.TrimSpace(params[k]) == "" {
			return k, false
		}
	}
	if params[FieldSignType] != SignTypeMD5 {
		return FieldSignType, false
	}
	return "", true
}

// MoneyEquals 按数值比较金额，兼容 "10"、"10.0" 与 "10.00" 等网关写法
func MoneyEquals(money string, points int64) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(money))
	if err != nil {
		return false
	}
	return d.Equal(decimal.NewFromInt(points))
}

// BuildEpayFields 构造外发支付表单字段并签名
func BuildEpayFields(pid, secret, outTradeNo, name string, moneyPoints int64, notifyURL, returnURL string) map[string]string {
	fields := map[string]string{
		FieldPID:        pid,
		"type":          "epay",
		FieldOutTradeNo: outTradeNo,
		"name":          name,
		FieldMoney:      FormatMoney(moneyPoints),
		"notify_url":    notifyURL,
		"return_url":    returnURL,
	}
	sign := SignMD5Lower(fields, secret)
	fields[FieldSignType] = SignTypeMD5
	fields[FieldSign] = sign
	return fields
}

// RenderAutoSubmitForm 渲染自动提交的跳转页面
// 字段按 key 排序输出，保证渲染结果可复现；所有值做 HTML 转义
func RenderAutoSubmitForm(actionURL string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(`<input type="hidden" name="%s" value="%s" />`,
			html.EscapeString(k), html.EscapeString(fields[k])))
	}
	return fmt.Sprintf(`<!doctype html>
<html lang="zh-CN">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Redirecting...</title>
  </head>
  <body>
    <form id="epay" method="post" action="%s">%s</form>
    <script>document.getElementById('epay').submit()</script>
  </body>
</html>`, html.EscapeString(actionURL), sb.String())
}
