package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devboot/devboot/internal/fetch"
)

// ConditionalFetcher 是再验证 HTTP 条目所需的最小能力，*fetch.HTTPFetcher 满足该接口。
type ConditionalFetcher interface {
	FetchIfChanged(ctx context.Context, url, etag string) (*fetch.Response, error)
}

// RepositoryFetcher 是再验证 git 条目所需的最小能力，*fetch.GitFetcher 满足该接口。
type RepositoryFetcher interface {
	Fetch(ctx context.Context, url, ref string) (*fetch.GitResult, error)
	ResolveRef(ctx context.Context, url, ref string) (string, error)
}

// RevalidationStatus 描述一次再验证的结果类型。
type RevalidationStatus int

const (
	Unchanged RevalidationStatus = iota
	Updated
	Failed
)

func (s RevalidationStatus) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	default:
		return "failed"
	}
}

// RevalidationResult 为 Unchanged | Updated(Content) | Failed(Reason)。
type RevalidationResult struct {
	Status  RevalidationStatus
	Content Content
	Reason  string
}

func failed(err error) RevalidationResult {
	return RevalidationResult{Status: Failed, Reason: err.Error()}
}

// Revalidator 通过传输层低成本地确认过期条目是否仍然有效，并通过 Store 落盘。
// 失败时错误与 Failed 结果一并返回，是否使用旧副本由调用方决定，此处不重试。
type Revalidator struct {
	store Store
	http  ConditionalFetcher
	git   RepositoryFetcher
	now   func() time.Time
}

// NewRevalidator 构造再验证器；未使用的传输可以传 nil。
func NewRevalidator(store Store, httpFetcher ConditionalFetcher, gitFetcher RepositoryFetcher) *Revalidator {
	return &Revalidator{
		store: store,
		http:  httpFetcher,
		git:   gitFetcher,
		now:   time.Now,
	}
}

var errNoTransport = errors.New("transport not configured")

// RevalidateETag 携带记录的 ETag 发起条件请求：304 只推进 ExpiresAt；
// 新内容覆盖正文并刷新 ETag、SizeBytes、CachedAt、ExpiresAt。
func (r *Revalidator) RevalidateETag(ctx context.Context, url string, entry *Entry, ttl time.Duration) (RevalidationResult, error) {
	if r.http == nil {
		return failed(errNoTransport), errNoTransport
	}
	if entry == nil {
		err := errors.New("cache entry is nil")
		return failed(err), err
	}

	resp, err := r.http.FetchIfChanged(ctx, url, entry.Metadata.ETag)
	if err != nil {
		err = fmt.Errorf("revalidate %s: %w", entry.Key(), err)
		return failed(err), err
	}

	now := r.now()
	if resp == nil {
		entry.Metadata.extend(now, ttl)
		if err := r.store.Update(entry); err != nil {
			return failed(err), err
		}
		return RevalidationResult{Status: Unchanged}, nil
	}

	content := Inline(resp.Content)
	r.refresh(entry, now, ttl)
	entry.Metadata.ETag = resp.ETag
	if err := r.store.Replace(entry, content); err != nil {
		return failed(err), err
	}
	return RevalidationResult{Status: Updated, Content: content}, nil
}

// RevalidateGit 比较远端引用与记录的 CommitSHA：相同只推进 ExpiresAt；
// 不同或从未记录时完整拉取，并以工作副本路径作为新正文。
func (r *Revalidator) RevalidateGit(ctx context.Context, url, ref string, entry *Entry, ttl time.Duration) (RevalidationResult, error) {
	if r.git == nil {
		return failed(errNoTransport), errNoTransport
	}
	if entry == nil {
		err := errors.New("cache entry is nil")
		return failed(err), err
	}

	if entry.Metadata.CommitSHA != "" {
		remoteSHA, err := r.git.ResolveRef(ctx, url, ref)
		if err != nil {
			err = fmt.Errorf("revalidate %s: %w", entry.Key(), err)
			return failed(err), err
		}
		if remoteSHA == entry.Metadata.CommitSHA {
			entry.Metadata.extend(r.now(), ttl)
			if err := r.store.Update(entry); err != nil {
				return failed(err), err
			}
			return RevalidationResult{Status: Unchanged}, nil
		}
	}

	result, err := r.git.Fetch(ctx, url, ref)
	if err != nil {
		err = fmt.Errorf("revalidate %s: %w", entry.Key(), err)
		return failed(err), err
	}

	content := ExternalPath(result.LocalPath)
	r.refresh(entry, r.now(), ttl)
	entry.Metadata.CommitSHA = result.CommitSHA
	if err := r.store.Replace(entry, content); err != nil {
		return failed(err), err
	}
	return RevalidationResult{Status: Updated, Content: content}, nil
}

func (r *Revalidator) refresh(entry *Entry, now time.Time, ttl time.Duration) {
	entry.Metadata.CachedAt = now.UTC()
	entry.Metadata.extend(now, ttl)
}
