package sourcekind

import (
	"time"

	"github.com/devboot/devboot/internal/cache"
)

// PolicyOverrides 描述来自源配置的覆盖项。TTLSet 为 false 时 TTL 只有大于 0 才生效；
// 为 true 时即使是 0 也原样采用。
type PolicyOverrides struct {
	TTL      time.Duration
	TTLSet   bool
	Strategy cache.Strategy
}

// Policy 是一个源最终生效的缓存策略。
type Policy struct {
	TTL      time.Duration
	Strategy cache.Strategy
}

// ResolvePolicy 将传输默认策略与源级覆盖合并。
func ResolvePolicy(meta Metadata, overrides PolicyOverrides) Policy {
	policy := Policy{TTL: meta.DefaultTTL, Strategy: meta.DefaultStrategy}
	if policy.TTL <= 0 {
		policy.TTL = cache.DefaultTTL
	}
	switch {
	case overrides.TTLSet:
		policy.TTL = max(overrides.TTL, 0)
	case overrides.TTL > 0:
		policy.TTL = overrides.TTL
	}
	if overrides.Strategy != "" {
		policy.Strategy = overrides.Strategy
	}
	return normalizePolicy(policy)
}

func normalizePolicy(policy Policy) Policy {
	if policy.Strategy == "" {
		policy.Strategy = cache.StrategyTTL
	}
	return policy
}
