package lottery

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// commit-reveal 开奖方案：
// 建期时生成随机种子并只公布其 SHA-256 承诺（seed_hash），
// 结算时公开种子（seed_reveal），中奖号码由
// SHA-256(期号|种子|票集指纹) 确定性导出。
// 任何人事后拿到 seed_reveal 均可独立复算验证。

// NewSeed 为指定期号生成一个新的种子明文
func NewSeed(drawID string) string {
	return fmt.Sprintf("seed_%s_%s", drawID, uuid.NewString())
}

// SHA256Hex 返回输入的 SHA-256 十六进制摘要（小写）
func SHA256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// TicketMaterial 票集指纹的输入单元
type TicketMaterial struct {
	ID     int64
	Number string
}

// TicketsHash 计算票集内容指纹
// 输入必须按票 ID 升序，材料格式 "id:number|id:number|..."；
// 结算时先定格票集再揭示种子，事后增删任何一张票都会改变指纹，
// 从而改变中奖号码，保证结果不可被事后操纵。
func TicketsHash(tickets []TicketMaterial) string {
	parts := make([]string, 0, len(tickets))
	for _, t := range tickets {
		parts = append(parts, fmt.Sprintf("%d:%s", t.ID, t.Number))
	}
	return SHA256Hex(strings.Join(parts, "|"))
}

// WinningFromDigest 从摘要导出 4 位中奖号码：取前 8 个十六进制字符按整数取模 10000
func WinningFromDigest(digestHex string) string {
	if len(digestHex) < 8 {
		return ""
	}
	v, err := strconv.ParseUint(digestHex[:8], 16, 64)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%04d", v%10000)
}

// WinningNumber 计算本期中奖号码
// 绑定三个输入：期号、已承诺的种子明文、定格后的票集指纹
func WinningNumber(drawID, seedReveal, ticketsHash string) string {
	return WinningFromDigest(SHA256Hex(drawID + "|" + seedReveal + "|" + ticketsHash))
}

// VerifySeed 校验种子明文与承诺哈希是否一致
func VerifySeed(seedReveal, seedHash string) bool {
	return SHA256Hex(seedReveal) == seedHash
}
