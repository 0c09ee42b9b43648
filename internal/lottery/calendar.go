package lottery

import (
	"fmt"
	"regexp"
	"time"
)

// 业务时区固定为 UTC+8（无夏令时），所有期号与销售窗口均以此换算。
// 期号即一个销售日：每天 08:00 截止上一期销售并进入可结算状态。
var bizZone = time.FixedZone("UTC+8", 8*60*60)

const drawIDLayout = "2006-01-02"

var drawIDPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDrawID 校验期号格式（YYYY-MM-DD 且为合法日期）
func ValidDrawID(drawID string) bool {
	if !drawIDPattern.MatchString(drawID) {
		return false
	}
	_, err := time.ParseInLocation(drawIDLayout, drawID, bizZone)
	return err == nil
}

// CurrentDrawID 返回当前仍在销售的期号
// 业务日 08:00 切期：08:00 前买的是今天这一期，08:00 起买的是明天那一期
func CurrentDrawID(now time.Time) string {
	t := now.In(bizZone)
	if t.Hour() < 8 {
		return t.Format(drawIDLayout)
	}
	return t.AddDate(0, 0, 1).Format(drawIDLayout)
}

// DueDrawID 返回最近一个已过销售截止、待结算的期号
func DueDrawID(now time.Time) string {
	t := now.In(bizZone)
	if t.Hour() >= 8 {
		return t.Format(drawIDLayout)
	}
	return t.AddDate(0, 0, -1).Format(drawIDLayout)
}

// SalesWindow 返回期号对应的销售窗口 [start, end]（Unix 秒）
// 窗口为前一天 08:00:00 至当天 07:59:59
func SalesWindow(drawID string) (startTs, endTs int64, err error) {
	day, err := time.ParseInLocation(drawIDLayout, drawID, bizZone)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid draw id %q: %w", drawID, err)
	}
	start := time.Date(day.Year(), day.Month(), day.Day()-1, 8, 0, 0, 0, bizZone)
	end := time.Date(day.Year(), day.Month(), day.Day(), 7, 59, 59, 0, bizZone)
	return start.Unix(), end.Unix(), nil
}

// PrevDrawID 上一期期号
func PrevDrawID(drawID string) (string, error) {
	day, err := time.ParseInLocation(drawIDLayout, drawID, bizZone)
	if err != nil {
		return "", fmt.Errorf("invalid draw id %q: %w", drawID, err)
	}
	return day.AddDate(0, 0, -1).Format(drawIDLayout), nil
}

// NextDrawID 下一期期号
func NextDrawID(drawID string) (string, error) {
	day, err := time.ParseInLocation(drawIDLayout, drawID, bizZone)
	if err != nil {
		return "", fmt.Errorf("invalid draw id %q: %w", drawID, err)
	}
	return day.AddDate(0, 0, 1).Format(drawIDLayout), nil
}
