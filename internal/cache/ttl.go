package cache

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL 是未配置 TTL 时的缓存有效期。
const DefaultTTL = 7 * 24 * time.Hour

var ttlUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
}

// ParseTTL 解析 "7d"、"24h"、"30m"、"3600s" 或纯数字秒数；无法按单一单位解析时
// 回退到 time.ParseDuration（例如 "1h30m"）。负值视为错误。
func ParseTTL(value string) (time.Duration, error) {
	raw := strings.ToLower(strings.TrimSpace(value))
	if raw == "" {
		return 0, fmt.Errorf("empty ttl")
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return scaleTTL(value, n, time.Second)
	}
	for _, u := range ttlUnits {
		number, ok := strings.CutSuffix(raw, u.suffix)
		if !ok {
			continue
		}
		if n, err := strconv.ParseInt(number, 10, 64); err == nil {
			return scaleTTL(value, n, u.unit)
		}
		break
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid ttl %q", value)
	}
	return checkTTL(value, d)
}

// scaleTTL 在乘以单位前检查溢出，避免超大数值回绕成错误的时长。
func scaleTTL(value string, n int64, unit time.Duration) (time.Duration, error) {
	if n < 0 {
		return 0, fmt.Errorf("ttl %q must not be negative", value)
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("ttl %q is too large", value)
	}
	return time.Duration(n) * unit, nil
}

func checkTTL(value string, d time.Duration) (time.Duration, error) {
	if d < 0 {
		return 0, fmt.Errorf("ttl %q must not be negative", value)
	}
	return d, nil
}

// FormatDuration 以最大的整单位输出，例如 7d、12h、30m、45s。
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	switch {
	case secs >= 86400:
		return strconv.FormatInt(secs/86400, 10) + "d"
	case secs >= 3600:
		return strconv.FormatInt(secs/3600, 10) + "h"
	case secs >= 60:
		return strconv.FormatInt(secs/60, 10) + "m"
	default:
		return strconv.FormatInt(secs, 10) + "s"
	}
}
