package redis

import "strconv"

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。
// 所有 Key 携带 cache_version 段：换版本即整体失效，不需要逐 Key 清理。

const (
	// PrefixDashboard：首页聚合视图缓存（当前期 + 最近开奖）
	PrefixDashboard = "lottery:dashboard:"
	// PrefixDrawDetail：单期详情缓存（开奖后写入温快照）
	PrefixDrawDetail = "lottery:draw:"
	// PrefixDrawPool：期次奖池实时累计缓存
	PrefixDrawPool = "lottery:pool:"
	// PrefixParticipants：期次参与榜缓存
	PrefixParticipants = "lottery:participants:"
	// PrefixDrawsList：历史期次列表缓存
	PrefixDrawsList = "lottery:draws:"
)

func versioned(prefix string, version int, rest string) string {
	return prefix + "v" + strconv.Itoa(version) + ":" + rest
}

// DashboardKey 形如：lottery:dashboard:v{n}:{draw_id}
func DashboardKey(version int, drawID string) string {
	return versioned(PrefixDashboard, version, drawID)
}

// DrawDetailKey 形如：lottery:draw:v{n}:{draw_id}
func DrawDetailKey(version int, drawID string) string {
	return versioned(PrefixDrawDetail, version, drawID)
}

// DrawPoolKey 形如：lottery:pool:v{n}:{draw_id}
func DrawPoolKey(version int, drawID string) string {
	return versioned(PrefixDrawPool, version, drawID)
}

// ParticipantsKey 形如：lottery:participants:v{n}:{draw_id}
func ParticipantsKey(version int, drawID string) string {
	return versioned(PrefixParticipants, version, drawID)
}

// DrawsListKey 形如：lottery:draws:v{n}:p{page}
func DrawsListKey(version, page int) string {
	return versioned(PrefixDrawsList, version, "p"+strconv.Itoa(page))
}

// DrawScopedKeys 返回某一期相关的全部缓存 Key（开奖/支付后整组失效）
func DrawScopedKeys(version int, drawID string) []string {
	return []string{
		DashboardKey(version, drawID),
		DrawDetailKey(version, drawID),
		DrawPoolKey(version, drawID),
		ParticipantsKey(version, drawID),
	}
}
