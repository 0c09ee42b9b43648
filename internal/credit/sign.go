package credit

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// 积分网关 MD5 签名：
// 参与签名的参数剔除 sign / sign_type 与空值，按 key 字典序排列为
// "k1=v1&k2=v2..."，末尾直接拼接商户密钥后取 MD5 小写十六进制。

// BuildSigningString 构造待签名串（不含密钥）
func BuildSigningString(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || k == "sign_type" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

// SignMD5Lower 计算签名（小写十六进制）
func SignMD5Lower(params map[string]string, secret string) string {
	sum := md5.Sum([]byte(BuildSigningString(params) + secret))
	return hex.EncodeToString(sum[:])
}

// VerifyMD5Lower 校验签名，恒定时间比较防时序攻击
func VerifyMD5Lower(params map[string]string, secret, expected string) bool {
	computed := SignMD5Lower(params, secret)
	return secureCompare(computed, strings.ToLower(expected))
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return hmac.Equal([]byte(a), []byte(b))
}
