package credit

import (
	"strings"
	"testing"
)

func TestBuildSigningString(t *testing.T) {
	params := map[string]string{
		"pid":          "1001",
		"out_trade_no": "ord_abc",
		"money":        "100.00",
		"trade_status": "TRADE_SUCCESS",
		"sign":         "should-be-excluded",
		"sign_type":    "MD5",
		"empty":        "",
	}
	got := BuildSigningString(params)
	want := "money=100.00&out_trade_no=ord_abc&pid=1001&trade_status=TRADE_SUCCESS"
	if got != want {
		t.Fatalf("signing string mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	params := map[string]string{
		"pid":          "1001",
		"out_trade_no": "ord_abc",
		"trade_no":     "gw_123",
		"money":        "50.00",
		"trade_status": "TRADE_SUCCESS",
	}
	sign := SignMD5Lower(params, "secret-key")
	if len(sign) != 32 || sign != strings.ToLower(sign) {
		t.Fatalf("sign not lowercase md5 hex: %s", sign)
	}
	if !VerifyMD5Lower(params, "secret-key", sign) {
		t.Fatalf("verify failed for own signature")
	}
	// 大写签名也应通过（网关大小写不稳定）
	if !VerifyMD5Lower(params, "secret-key", strings.ToUpper(sign)) {
		t.Fatalf("verify failed for uppercase signature")
	}
	if VerifyMD5Lower(params, "wrong-key", sign) {
		t.Fatalf("verify passed with wrong secret")
	}
	params["money"] = "51.00"
	if VerifyMD5Lower(params, "secret-key", sign) {
		t.Fatalf("verify passed with tampered amount")
	}
}

func TestBuildEpayFields(t *testing.T) {
	fields := BuildEpayFields("1001", "secret-key", "ord_abc", "lottery:2025-12-27", 120, "https://x/notify", "https://x/return")
	if fields[FieldMoney] != "120.00" {
		t.Fatalf("money format mismatch: %s", fields[FieldMoney])
	}
	if fields[FieldSignType] != SignTypeMD5 {
		t.Fatalf("sign_type mismatch: %s", fields[FieldSignType])
	}
	// 签名必须可被同一密钥验证
	if !VerifyMD5Lower(fields, "secret-key", fields[FieldSign]) {
		t.Fatalf("built fields fail verification")
	}
}

func TestRenderAutoSubmitFormEscapes(t *testing.T) {
	doc := RenderAutoSubmitForm("https://pay.example/submit", map[string]string{
		"name": `lottery:"<draw>"`,
	})
	if strings.Contains(doc, "<draw>") {
		t.Fatalf("value not escaped: %s", doc)
	}
	if !strings.Contains(doc, "document.getElementById('epay').submit()") {
		t.Fatalf("missing auto submit script")
	}
}

func TestFormatMoney(t *testing.T) {
	if FormatMoney(0) != "0.00" || FormatMoney(7) != "7.00" || FormatMoney(1234) != "1234.00" {
		t.Fatalf("money formatting broken")
	}
}

func TestCheckNotifyParams(t *testing.T) {
	full := func() map[string]string {
		return map[string]string{
			FieldPID:         "1001",
			FieldOutTradeNo:  "ord_abc",
			FieldTradeNo:     "gw_123",
			FieldMoney:       "100.00",
			FieldTradeStatus: TradeStatusSuccess,
			FieldSign:        "deadbeef",
			FieldSignType:    SignTypeMD5,
		}
	}

	if field, ok := CheckNotifyParams(full()); !ok {
		t.Fatalf("complete params rejected on %q", field)
	}

	// 任一必填字段缺失或为空白都拒绝
	for _, k := range notifyRequiredFields {
		p := full()
		delete(p, k)
		if field, ok := CheckNotifyParams(p); ok || field != k {
			t.Fatalf("missing %s: ok=%v field=%q", k, ok, field)
		}
		p = full()
		p[k] = "  "
		if _, ok := CheckNotifyParams(p); ok {
			t.Fatalf("blank %s accepted", k)
		}
	}

	// 签名类型必须是 MD5
	p := full()
	p[FieldSignType] = "RSA"
	if field, ok := CheckNotifyParams(p); ok || field != FieldSignType {
		t.Fatalf("sign_type RSA: ok=%v field=%q", ok, field)
	}
}

func TestMoneyEquals(t *testing.T) {
	// 网关金额写法不稳定，按数值比较
	for _, s := range []string{"10", "10.0", "10.00", " 10.00 "} {
		if !MoneyEquals(s, 10) {
			t.Fatalf("%q should equal 10", s)
		}
	}
	if MoneyEquals("10.01", 10) || MoneyEquals("9.99", 10) {
		t.Fatalf("near-miss amount accepted")
	}
	if MoneyEquals("", 10) || MoneyEquals("abc", 10) {
		t.Fatalf("unparsable amount accepted")
	}
}
