package cache

import (
	"time"
)

// ContentKind 区分缓存正文是内联字节还是指向外部工作副本的路径。
type ContentKind string

const (
	// ContentInline 表示 blob 中保存的就是模板正文。
	ContentInline ContentKind = "inline"
	// ContentExternal 表示 blob 中保存的是 git 工作副本路径，真实内容以工作副本为准。
	ContentExternal ContentKind = "external"
)

// Content 是 Inline(bytes) | ExternalPath(path) 的标签联合。
type Content struct {
	Kind ContentKind
	Data []byte
	Path string
}

// Inline 构造内联正文。
func Inline(data []byte) Content {
	return Content{Kind: ContentInline, Data: data}
}

// ExternalPath 构造指向本地工作副本的正文引用。
func ExternalPath(path string) Content {
	return Content{Kind: ContentExternal, Path: path}
}

// IsExternal 报告正文是否为外部路径引用。
func (c Content) IsExternal() bool {
	return c.Kind == ContentExternal
}

// bytes 返回写入 blob 的原始字节。
func (c Content) bytes() []byte {
	if c.IsExternal() {
		return []byte(c.Path)
	}
	return c.Data
}

// Entry 描述一个缓存条目，对应磁盘上的 blob + sidecar 文件对。
type Entry struct {
	SourceID     string   `json:"source_id"`
	TemplateName string   `json:"template_name"`
	ContentPath  string   `json:"content_path"`
	Metadata     Metadata `json:"metadata"`
}

// Metadata 记录校验所需的时间戳与来源标识。
type Metadata struct {
	CachedAt    time.Time   `json:"cached_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	ETag        string      `json:"etag,omitempty"`
	CommitSHA   string      `json:"commit_sha,omitempty"`
	SizeBytes   int64       `json:"size_bytes"`
	ContentKind ContentKind `json:"content_kind,omitempty"`
}

// newEntry 以 now 为缓存时间构建条目，ttl 为负时按 0 处理以保证 ExpiresAt >= CachedAt。
func newEntry(sourceID, templateName, contentPath string, ttl time.Duration, now time.Time) Entry {
	if ttl < 0 {
		ttl = 0
	}
	now = now.UTC()
	return Entry{
		SourceID:     sourceID,
		TemplateName: templateName,
		ContentPath:  contentPath,
		Metadata: Metadata{
			CachedAt:  now,
			ExpiresAt: now.Add(ttl),
		},
	}
}

// Key 返回条目的明文键 "{source_id}:{template_name}"。
func (e Entry) Key() string {
	return e.SourceID + ":" + e.TemplateName
}

// IsExpired 使用当前时间判断条目是否过期。
func (e Entry) IsExpired() bool {
	return e.IsExpiredAt(time.Now())
}

// IsExpiredAt 在 now 晚于 ExpiresAt 时视为过期；零寿命条目（ExpiresAt == CachedAt）从写入起即过期。
func (e Entry) IsExpiredAt(now time.Time) bool {
	if !e.Metadata.ExpiresAt.After(e.Metadata.CachedAt) {
		return true
	}
	return now.After(e.Metadata.ExpiresAt)
}

// Age 返回条目自缓存以来经过的时间。
func (e Entry) Age() time.Duration {
	return time.Since(e.Metadata.CachedAt)
}

// RemainingTTL 返回剩余有效期，最小为 0。
func (m Metadata) RemainingTTL() time.Duration {
	return m.RemainingTTLAt(time.Now())
}

// RemainingTTLAt 以 now 为基准计算剩余有效期，结果不会为负。
func (m Metadata) RemainingTTLAt(now time.Time) time.Duration {
	remaining := m.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// extend 将过期时间推到 now+ttl，不改动 CachedAt 与正文。
func (m *Metadata) extend(now time.Time, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	m.ExpiresAt = now.UTC().Add(ttl)
}
