package lottery

import (
	decimal "github.com/shopspring/decimal"
)

// PoolBreakdown 单期奖池分解（单位：积分，全部为整数）
type PoolBreakdown struct {
	GrossPoints       int64 `json:"gross_points"`        // 总池 = 本期实付 + 上期滚存
	PlatformFeePoints int64 `json:"platform_fee_points"` // 平台手续费
	NetPoints         int64 `json:"net_points"`          // 净池
	OperatorFeePoints int64 `json:"operator_fee_points"` // 运营费 5%
	P1Points          int64 `json:"p1_points"`           // 一等奖池 80% + 取整余数
	P2Points          int64 `json:"p2_points"`           // 二等奖池 10%
	P3Points          int64 `json:"p3_points"`           // 三等奖池 5%
}

// CalculatePool 计算奖池分解
// 手续费按 gross×feeRate 四舍五入（decimal 半进位，避免浮点误差）；
// 各份额向下取整后的余数全部并入一等奖池，保证
// operator_fee + p1 + p2 + p3 == net 严格成立，一分不丢。
func CalculatePool(paidPoints, carryOverPoints int64, feeRate float64) PoolBreakdown {
	gross := paidPoints + carryOverPoints
	fee := decimal.NewFromInt(gross).
		Mul(decimal.NewFromFloat(feeRate)).
		Round(0).IntPart()
	net := gross - fee

	operatorFee := net * 5 / 100
	p1 := net * 80 / 100
	p2 := net * 10 / 100
	p3 := net * 5 / 100
	p1 += net - (operatorFee + p1 + p2 + p3)

	return PoolBreakdown{
		GrossPoints:       gross,
		PlatformFeePoints: fee,
		NetPoints:         net,
		OperatorFeePoints: operatorFee,
		P1Points:          p1,
		P2Points:          p2,
		P3Points:          p3,
	}
}

// PrizeTier 判定单注号码的奖级（只取最高奖，互斥）
// 1=全匹配 2=后三位匹配 3=后两位匹配 0=未中
func PrizeTier(ticketNumber, winning string) int8 {
	if len(ticketNumber) != 4 || len(winning) != 4 {
		return 0
	}
	if ticketNumber == winning {
		return 1
	}
	if ticketNumber[1:] == winning[1:] {
		return 2
	}
	if ticketNumber[2:] == winning[2:] {
		return 3
	}
	return 0
}

// TierPayout 单个奖级的派彩结果
type TierPayout struct {
	Winners        int64 `json:"winners"`         // 中奖注数
	PerPoints      int64 `json:"per_points"`      // 每注派彩
	RolloverPoints int64 `json:"rollover_points"` // 滚存到下期
}

// DrawPayouts 三个奖级的派彩与下期滚存
type DrawPayouts struct {
	P1                  TierPayout `json:"p1"`
	P2                  TierPayout `json:"p2"`
	P3                  TierPayout `json:"p3"`
	NextCarryOverPoints int64      `json:"next_carry_over_points"`
}

// SplitPool 拆分单个奖级：无人中奖则整池滚存；
// 否则每注 floor(pool/winners)，余数滚存。per×winners+rollover == pool 严格成立。
func SplitPool(pool, winners int64) TierPayout {
	if winners <= 0 {
		return TierPayout{Winners: 0, PerPoints: 0, RolloverPoints: pool}
	}
	per := pool / winners
	return TierPayout{Winners: winners, PerPoints: per, RolloverPoints: pool - per*winners}
}

// CalculateTierPayouts 计算三个奖级的派彩与下期滚存
func CalculateTierPayouts(pool PoolBreakdown, w1, w2, w3 int64) DrawPayouts {
	p1 := SplitPool(pool.P1Points, w1)
	p2 := SplitPool(pool.P2Points, w2)
	p3 := SplitPool(pool.P3Points, w3)
	return DrawPayouts{
		P1:                  p1,
		P2:                  p2,
		P3:                  p3,
		NextCarryOverPoints: p1.RolloverPoints + p2.RolloverPoints + p3.RolloverPoints,
	}
}
