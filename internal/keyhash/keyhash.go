// Package keyhash 提供缓存键与工作副本目录共用的稳定哈希，保证两处派生规则不会各自漂移。
package keyhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Length 是派生名称的固定长度（十六进制字符数）。
const Length = 16

// Short 对输入做 SHA-256，取前 Length/2 字节并输出小写十六进制字符串。
func Short(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:Length/2])
}

// Pair 以 "{a}:{b}" 形式拼接后再派生，用于 (source id, template name) 这类复合键。
func Pair(a, b string) string {
	return Short(a + ":" + b)
}
