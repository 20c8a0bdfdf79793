package cache

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Strategy 描述条目过期后可以使用的校验信号。
type Strategy string

const (
	// StrategyTTL 仅按时间过期，过期后必须重新拉取。
	StrategyTTL Strategy = "ttl"
	// StrategyETag 过期后使用记录的 ETag 发起条件请求。
	StrategyETag Strategy = "etag"
	// StrategyGit 过期后比较远端引用与记录的 commit SHA。
	StrategyGit Strategy = "git"
)

// ParseStrategy 解析配置中的策略名称，大小写不敏感，空值视为 ttl。
func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(value))) {
	case "", StrategyTTL:
		return StrategyTTL, nil
	case StrategyETag:
		return StrategyETag, nil
	case StrategyGit:
		return StrategyGit, nil
	default:
		return "", fmt.Errorf("unknown cache strategy %q", value)
	}
}

// ValidationResult 是一次检查的结论，每次重新计算，不落盘。
type ValidationResult int

const (
	NotFound ValidationResult = iota
	Fresh
	Expired
	NeedsRevalidation
)

func (r ValidationResult) String() string {
	switch r {
	case Fresh:
		return "fresh"
	case Expired:
		return "expired"
	case NeedsRevalidation:
		return "needs_revalidation"
	default:
		return "not_found"
	}
}

// Classify 是纯函数：未过期即 Fresh；过期后若策略对应的校验信号存在则需要再验证，否则视为 Expired。
func Classify(entry *Entry, strategy Strategy, now time.Time) ValidationResult {
	if entry == nil {
		return NotFound
	}
	if !entry.IsExpiredAt(now) {
		return Fresh
	}
	switch strategy {
	case StrategyETag:
		if entry.Metadata.ETag != "" {
			return NeedsRevalidation
		}
	case StrategyGit:
		if entry.Metadata.CommitSHA != "" {
			return NeedsRevalidation
		}
	}
	return Expired
}

// Validator 将 Store 与策略结合，供加载流程判断条目状态。
type Validator struct {
	store Store
	now   func() time.Time
}

// NewValidator 构造校验器，默认使用 time.Now 作为时钟。
func NewValidator(store Store) *Validator {
	return &Validator{store: store, now: time.Now}
}

// Validate 读取条目并分类。条目不存在时返回 NotFound 且 error 为 nil。
func (v *Validator) Validate(sourceID, templateName string, strategy Strategy) (ValidationResult, *Entry, error) {
	entry, err := v.store.Load(sourceID, templateName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NotFound, nil, nil
		}
		return NotFound, nil, err
	}
	return Classify(entry, strategy, v.now()), entry, nil
}

// CleanupExpired 删除所有已过期条目（不区分策略），返回删除数量。
func (v *Validator) CleanupExpired() (int, error) {
	entries, err := v.store.List()
	if err != nil {
		return 0, err
	}
	now := v.now()
	removed := 0
	for _, entry := range entries {
		if !entry.IsExpiredAt(now) {
			continue
		}
		ok, err := v.store.Remove(entry.SourceID, entry.TemplateName)
		if err != nil {
			return removed, fmt.Errorf("remove expired entry %s: %w", entry.Key(), err)
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// EntriesOlderThan 返回缓存时间早于 now-age 的条目。
func (v *Validator) EntriesOlderThan(age time.Duration) ([]Entry, error) {
	entries, err := v.store.List()
	if err != nil {
		return nil, err
	}
	cutoff := v.now().Add(-age)
	var result []Entry
	for _, entry := range entries {
		if entry.Metadata.CachedAt.Before(cutoff) {
			result = append(result, entry)
		}
	}
	return result, nil
}
