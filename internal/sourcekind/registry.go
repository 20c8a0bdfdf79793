package sourcekind

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/devboot/devboot/internal/cache"
)

// Metadata 记录一种传输类型的静态信息。
type Metadata struct {
	Key                 string
	Description         string
	DefaultStrategy     cache.Strategy
	SupportedStrategies []cache.Strategy
	DefaultTTL          time.Duration
}

// Supports 报告该传输是否支持指定缓存策略。
func (m Metadata) Supports(strategy cache.Strategy) bool {
	for _, s := range m.SupportedStrategies {
		if s == strategy {
			return true
		}
	}
	return false
}

var globalRegistry = newRegistry()

type registry struct {
	mu    sync.RWMutex
	kinds map[string]Metadata
}

func newRegistry() *registry {
	return &registry{kinds: make(map[string]Metadata)}
}

// Register 将传输元数据加入全局注册表，重复键会返回错误。
func Register(meta Metadata) error {
	return globalRegistry.register(meta)
}

// MustRegister 在注册失败时 panic，适合 init() 中调用。
func MustRegister(meta Metadata) {
	if err := Register(meta); err != nil {
		panic(err)
	}
}

// Resolve 返回指定键的传输元数据，大小写不敏感。
func Resolve(key string) (Metadata, bool) {
	return globalRegistry.resolve(key)
}

// List 返回按键排序的元数据列表。
func List() []Metadata {
	return globalRegistry.list()
}

// Keys 返回所有已注册的传输键。
func Keys() []string {
	items := List()
	result := make([]string, len(items))
	for i, meta := range items {
		result[i] = meta.Key
	}
	return result
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *registry) register(meta Metadata) error {
	key := normalizeKey(meta.Key)
	if key == "" {
		return fmt.Errorf("source kind key is required")
	}
	meta.Key = key
	if meta.DefaultStrategy == "" {
		meta.DefaultStrategy = cache.StrategyTTL
	}
	if !meta.Supports(meta.DefaultStrategy) {
		meta.SupportedStrategies = append(meta.SupportedStrategies, meta.DefaultStrategy)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[key]; exists {
		return fmt.Errorf("source kind %s already registered", key)
	}
	r.kinds[key] = meta
	return nil
}

func (r *registry) resolve(key string) (Metadata, bool) {
	normalized := normalizeKey(key)
	if normalized == "" {
		return Metadata{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.kinds[normalized]
	return meta, ok
}

func (r *registry) list() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.kinds) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r.kinds))
	for key := range r.kinds {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Metadata, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.kinds[key])
	}
	return result
}
