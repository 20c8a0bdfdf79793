package cache

import (
	"errors"
	"time"
)

// Store 负责管理模板缓存的读写。磁盘布局遵循：
//
//	<CacheDir>/<hash16>            # 正文 blob
//	<CacheDir>/<hash16>.meta.json  # Entry sidecar
//
// hash16 由 keyhash.Pair(sourceID, templateName) 派生。Store 不判断新鲜度，
// 新鲜度由 Validator 负责。实现可以替换为带锁或事务的后端，调用方无需改动。
type Store interface {
	// Root 返回缓存根目录。
	Root() string

	// ContentPath 返回条目正文的确定性路径，相同输入总是得到相同结果。
	ContentPath(sourceID, templateName string) string

	// Put 写入正文与 sidecar，并返回新条目。根目录不存在时会自动创建。
	Put(sourceID, templateName string, content Content, ttl time.Duration) (*Entry, error)

	// Load 读取 sidecar；不存在时返回 ErrNotFound。
	Load(sourceID, templateName string) (*Entry, error)

	// ReadContent 读取条目正文；sidecar 存在但 blob 缺失时返回 I/O 错误，不做自愈。
	ReadContent(entry *Entry) (Content, error)

	// Update 仅覆盖 sidecar，用于再验证后推进时间戳或校验标识。
	Update(entry *Entry) error

	// Replace 同时覆盖正文与 sidecar，并按新正文刷新 SizeBytes/ContentKind。
	Replace(entry *Entry, content Content) error

	// Remove 删除条目的正文与 sidecar，返回是否删除了任何文件。
	Remove(sourceID, templateName string) (bool, error)

	// List 返回全部条目，按 CachedAt 由新到旧排序。
	List() ([]Entry, error)

	// Clear 删除全部条目并返回删除数量。
	Clear() (int, error)

	// TotalSize 汇总所有条目的 SizeBytes。
	TotalSize() (int64, error)
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")
