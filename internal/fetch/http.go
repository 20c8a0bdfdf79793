package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxBodySize 限制单个响应正文大小（10 MiB），模板目录通常很小。
const MaxBodySize = 10 << 20

const defaultUserAgent = "devboot-template-fetcher/1.0"

var (
	// ErrHTTPStatus 表示远端返回了非 2xx（且非 304）的状态码。
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrResponseTooLarge 表示响应正文超过上限。
	ErrResponseTooLarge = errors.New("response body too large")
)

// Response 是一次成功 GET 的结果。
type Response struct {
	Content      []byte
	ETag         string
	LastModified string
}

// HTTPFetcher 负责拉取 HTTP 模板源，支持 If-None-Match 条件请求。
type HTTPFetcher struct {
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
	authToken   string
	userAgent   string
}

// HTTPOption 配置 HTTPFetcher。
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient 替换底层 client；c 为 nil 时保持默认值。
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPFetcher) {
		if c != nil {
			h.client = c
		}
	}
}

// WithTimeout 限制单次请求的总耗时。
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPFetcher) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithMaxBodySize 覆盖正文上限。
func WithMaxBodySize(n int64) HTTPOption {
	return func(h *HTTPFetcher) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// WithAuthToken 为请求附加 Bearer token。
func WithAuthToken(token string) HTTPOption {
	return func(h *HTTPFetcher) {
		h.authToken = token
	}
}

// WithUserAgent 覆盖 User-Agent。
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTPFetcher) {
		if ua != "" {
			h.userAgent = ua
		}
	}
}

// NewHTTPFetcher 构造 HTTP 拉取器，默认 30s 超时。
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	h := &HTTPFetcher{
		timeout:     DefaultTimeout,
		maxBodySize: MaxBodySize,
		userAgent:   defaultUserAgent,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		h.client = NewClient(h.timeout)
	}
	return h
}

// Fetch 无条件拉取 url，非 2xx 返回 ErrHTTPStatus。
func (h *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	return h.do(ctx, url, "")
}

// FetchIfChanged 携带 If-None-Match 发起请求；远端返回 304 时结果为 nil。
func (h *HTTPFetcher) FetchIfChanged(ctx context.Context, url, etag string) (*Response, error) {
	return h.do(ctx, url, etag)
}

func (h *HTTPFetcher) do(ctx context.Context, url, etag string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	if h.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.authToken)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if etag != "" && resp.StatusCode == http.StatusNotModified {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s %s", ErrHTTPStatus, resp.Status, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", url, err)
	}
	if int64(len(data)) > h.maxBodySize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrResponseTooLarge, url, h.maxBodySize)
	}

	return &Response{
		Content:      data,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}
