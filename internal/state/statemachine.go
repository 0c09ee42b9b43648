package state

import "fmt"

// State 开奖期状态
// 状态只允许单向推进：open -> closing -> drawn，不允许回退
const (
	StateOpen    = "open"    // 销售中
	StateClosing = "closing" // 封盘结算中(已抢到结算锁)
	StateDrawn   = "drawn"   // 已开奖(终态)
)

// Event 状态推进事件
const (
	EvtCloseSales = "close_sales"
	EvtFinalize   = "finalize"
)

// NextState 根据当前状态与事件计算下一个状态，非法转换报错
func NextState(cur, evt string) (string, error) {
	switch cur {
	case StateOpen:
		if evt == EvtCloseSales {
			return StateClosing, nil
		}
	case StateClosing:
		if evt == EvtFinalize {
			return StateDrawn, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}

// IsTerminal drawn 为终态
func IsTerminal(cur string) bool { return cur == StateDrawn }
