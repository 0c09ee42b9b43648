package lottery

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	// UnitPricePoints 每注单价（积分）
	UnitPricePoints = 10
	// MaxTicketsPerOrder 单笔订单最大注数
	MaxTicketsPerOrder = 200
	// OrderExpireSeconds 待支付订单有效期，超时视为已取消（派生状态，不落库）
	OrderExpireSeconds = 10 * 60
)

// 订单状态
const (
	OrderStatusPending  = "pending"
	OrderStatusPaid     = "paid"
	OrderStatusCanceled = "canceled" // 仅派生，不持久化
)

// 选号模式：single=整单一个号码，multi=每注一个号码
const (
	NumberModeSingle = "single"
	NumberModeMulti  = "multi"
)

var ticketNumberPattern = regexp.MustCompile(`^\d{4}$`)

// ValidTicketNumber 校验 4 位号码（0000-9999）
func ValidTicketNumber(n string) bool { return ticketNumberPattern.MatchString(n) }

// IsOrderExpired 判断待支付订单是否已超时（入参为毫秒时间戳）
func IsOrderExpired(createdAt, now int64) bool {
	return now-createdAt >= OrderExpireSeconds*1000
}

// EffectiveOrderStatus 计算订单的对外状态
// 超过有效期且未支付的订单按已取消处理，但存储状态不回写
func EffectiveOrderStatus(status string, createdAt, now int64) string {
	if status != OrderStatusPaid && IsOrderExpired(createdAt, now) {
		return OrderStatusCanceled
	}
	switch status {
	case OrderStatusPaid, OrderStatusCanceled:
		return status
	}
	return OrderStatusPending
}

// RandomTicketNumber 随机生成一个 4 位号码（crypto/rand）
func RandomTicketNumber() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%04d", binary.BigEndian.Uint32(b[:])%10000)
}

// NewOutTradeNo 生成对外交易号：{prefix}_{时间戳36进制}_{128位随机十六进制}
// 随机部分来自 crypto/rand，不可被外部预测
func NewOutTradeNo(prefix string) string {
	if prefix == "" {
		prefix = "ord"
	}
	var b [16]byte
	_, _ = rand.Read(b[:])
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return fmt.Sprintf("%s_%s_%s", prefix, ts, hex.EncodeToString(b[:]))
}
