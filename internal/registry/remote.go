package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/devboot/devboot/internal/cache"
	"github.com/devboot/devboot/internal/config"
	"github.com/devboot/devboot/internal/fetch"
	"github.com/devboot/devboot/internal/logging"
	"github.com/devboot/devboot/internal/sourcekind"
	"github.com/devboot/devboot/internal/template"
	"github.com/devboot/devboot/internal/version"
)

// IndexEntry 是每个远端源在缓存中的条目名，一个源只缓存一份目录正文。
const IndexEntry = "_index"

// HTTPTransport 是加载 HTTP 源所需的能力，*fetch.HTTPFetcher 满足该接口。
type HTTPTransport interface {
	cache.ConditionalFetcher
	Fetch(ctx context.Context, url string) (*fetch.Response, error)
}

// Transports 为每个源构造传输实例，便于按源注入令牌与超时。
type Transports interface {
	HTTP(src config.SourceConfig, timeout time.Duration) HTTPTransport
	Git(src config.SourceConfig) cache.RepositoryFetcher
}

type defaultTransports struct {
	client   *http.Client
	cloneDir string
}

func (d defaultTransports) HTTP(src config.SourceConfig, timeout time.Duration) HTTPTransport {
	return fetch.NewHTTPFetcher(
		fetch.WithHTTPClient(d.client),
		fetch.WithTimeout(timeout),
		fetch.WithAuthToken(src.AuthToken),
		fetch.WithUserAgent(version.UserAgent()),
	)
}

func (d defaultTransports) Git(src config.SourceConfig) cache.RepositoryFetcher {
	return fetch.NewGitFetcher(d.cloneDir, fetch.WithGitAuthToken(src.AuthToken))
}

// RemoteTemplate 是远端加载出的模板及其来源。
type RemoteTemplate struct {
	Template template.Template
	Source   string
	Priority int
}

// RemoteSet 是一次加载的结果，加载完成后只读。
type RemoteSet struct {
	PassID    string
	templates map[string]RemoteTemplate
	failed    []string
}

func newRemoteSet(passID string) *RemoteSet {
	return &RemoteSet{PassID: passID, templates: make(map[string]RemoteTemplate)}
}

// ID 返回加载批次标识；尚未加载时为空。
func (s *RemoteSet) ID() string {
	if s == nil {
		return ""
	}
	return s.PassID
}

// Get 返回指定名称的远端模板。
func (s *RemoteSet) Get(name string) (RemoteTemplate, bool) {
	if s == nil {
		return RemoteTemplate{}, false
	}
	tpl, ok := s.templates[name]
	return tpl, ok
}

// Names 返回排序后的模板名称。
func (s *RemoteSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len 返回模板数量。
func (s *RemoteSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.templates)
}

// Failed 返回本次加载失败的源名称。
func (s *RemoteSet) Failed() []string {
	if s == nil {
		return nil
	}
	return s.failed
}

// add 以先到者为准，后续同名模板被丢弃。
func (s *RemoteSet) add(tpl template.Template, src config.SourceConfig) bool {
	if _, exists := s.templates[tpl.Name]; exists {
		return false
	}
	s.templates[tpl.Name] = RemoteTemplate{Template: tpl, Source: src.Name, Priority: src.Priority}
	return true
}

// RemoteLoader 串联 Validator、Revalidator 与传输层，把远端源加载为模板集合。
// 单个源失败只记录日志并跳过，不影响其它源。
type RemoteLoader struct {
	cfg        *config.Config
	store      cache.Store
	validator  *cache.Validator
	transports Transports
	logger     *logrus.Logger
	newPassID  func() string
}

// RemoteOption 配置 RemoteLoader。
type RemoteOption func(*RemoteLoader)

// WithTransports 替换默认的 HTTP/git 传输构造器。
func WithTransports(t Transports) RemoteOption {
	return func(l *RemoteLoader) {
		if t != nil {
			l.transports = t
		}
	}
}

// WithLogger 指定日志输出。
func WithLogger(logger *logrus.Logger) RemoteOption {
	return func(l *RemoteLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRemoteLoader 构造远端加载器，默认传输共享一个 http.Client 并把工作副本放在 CloneDir。
func NewRemoteLoader(cfg *config.Config, store cache.Store, opts ...RemoteOption) *RemoteLoader {
	l := &RemoteLoader{
		cfg:       cfg,
		store:     store,
		validator: cache.NewValidator(store),
		transports: defaultTransports{
			client:   fetch.NewClient(cfg.Global.HTTPTimeout.DurationValue()),
			cloneDir: cfg.Global.CloneDir,
		},
		logger:    logrus.StandardLogger(),
		newPassID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Sources 返回按 Priority 升序（稳定）排列的源配置。
func (l *RemoteLoader) Sources() []config.SourceConfig {
	sources := append([]config.SourceConfig(nil), l.cfg.Sources...)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority < sources[j].Priority
	})
	return sources
}

// Load 依优先级加载所有源；失败的源被跳过并记录在结果中。
func (l *RemoteLoader) Load(ctx context.Context) *RemoteSet {
	set := newRemoteSet(l.newPassID())
	log := l.logger.WithField("pass_id", set.PassID)
	started := time.Now()

	for _, src := range l.Sources() {
		srcLog := log.WithFields(logging.SourceFields(src.Name, src.Type, src.CacheID(), src.Priority))
		templates, err := l.loadSource(ctx, src, srcLog)
		if err != nil {
			set.failed = append(set.failed, src.Name)
			srcLog.WithField("action", "remote_source_failed").WithError(err).Warn("remote template source skipped")
			continue
		}
		for _, tpl := range templates {
			if !set.add(tpl, src) {
				srcLog.WithFields(logrus.Fields{
					"action":   "remote_template_shadowed",
					"template": tpl.Name,
				}).Debug("duplicate remote template ignored")
			}
		}
	}

	log.WithFields(logrus.Fields{
		"action":      "remote_load_complete",
		"templates":   set.Len(),
		"failed":      len(set.failed),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("remote templates loaded")
	return set
}

func (l *RemoteLoader) loadSource(ctx context.Context, src config.SourceConfig, log *logrus.Entry) ([]template.Template, error) {
	meta, ok := src.Kind()
	if !ok {
		return nil, fmt.Errorf("unknown source type %q", src.Type)
	}
	policy := l.cfg.EffectivePolicy(src)
	ctx, cancel := context.WithTimeout(ctx, l.cfg.EffectiveTimeout(src))
	defer cancel()

	sourceID := src.CacheID()
	state, entry, err := l.validator.Validate(sourceID, IndexEntry, policy.Strategy)
	if err != nil {
		log.WithField("action", "cache_unreadable").WithError(err).Warn("cached entry ignored")
		state, entry = cache.NotFound, nil
	}
	log = log.WithFields(logging.CacheFields(sourceID, IndexEntry, state.String(), string(policy.Strategy)))

	switch state {
	case cache.Fresh:
		content, err := l.store.ReadContent(entry)
		if err == nil {
			err = checkWorkingCopy(content)
		}
		if err == nil {
			log.Debug("serving cached templates")
			return l.parse(src, content)
		}
		log.WithField("action", "cache_unreadable").WithError(err).Warn("cached content missing, refetching")
	case cache.NeedsRevalidation:
		content, err := l.revalidate(ctx, meta, src, entry, policy)
		if err != nil {
			log.WithField("action", "cache_revalidate_failed").WithError(err).Warn("revalidation failed")
			return l.serveStale(src, entry, err, log)
		}
		if err := checkWorkingCopy(content); err != nil {
			log.WithField("action", "cache_unreadable").WithError(err).Warn("cached content missing, refetching")
			break
		}
		return l.parse(src, content)
	}

	content, err := l.fetchFresh(ctx, meta, src, policy, log)
	if err != nil {
		if entry != nil {
			return l.serveStale(src, entry, err, log)
		}
		return nil, err
	}
	return l.parse(src, content)
}

func (l *RemoteLoader) revalidate(ctx context.Context, meta sourcekind.Metadata, src config.SourceConfig, entry *cache.Entry, policy sourcekind.Policy) (cache.Content, error) {
	var (
		result cache.RevalidationResult
		err    error
	)
	switch {
	case meta.Key == sourcekind.Git && policy.Strategy == cache.StrategyGit:
		reval := cache.NewRevalidator(l.store, nil, l.transports.Git(src))
		result, err = reval.RevalidateGit(ctx, src.URL, src.Ref, entry, policy.TTL)
	case policy.Strategy == cache.StrategyETag:
		reval := cache.NewRevalidator(l.store, l.transports.HTTP(src, l.cfg.EffectiveTimeout(src)), nil)
		result, err = reval.RevalidateETag(ctx, src.URL, entry, policy.TTL)
	default:
		return cache.Content{}, fmt.Errorf("strategy %s cannot revalidate %s sources", policy.Strategy, meta.Key)
	}
	if err != nil {
		return cache.Content{}, err
	}
	if result.Status == cache.Updated {
		return result.Content, nil
	}
	return l.store.ReadContent(entry)
}

func (l *RemoteLoader) fetchFresh(ctx context.Context, meta sourcekind.Metadata, src config.SourceConfig, policy sourcekind.Policy, log *logrus.Entry) (cache.Content, error) {
	var (
		content cache.Content
		etag    string
		sha     string
	)
	switch meta.Key {
	case sourcekind.Git:
		result, err := l.transports.Git(src).Fetch(ctx, src.URL, src.Ref)
		if err != nil {
			return cache.Content{}, err
		}
		content = cache.ExternalPath(result.LocalPath)
		sha = result.CommitSHA
	default:
		resp, err := l.transports.HTTP(src, l.cfg.EffectiveTimeout(src)).Fetch(ctx, src.URL)
		if err != nil {
			return cache.Content{}, err
		}
		content = cache.Inline(resp.Content)
		etag = resp.ETag
	}

	if err := l.persist(src.CacheID(), content, policy.TTL, etag, sha); err != nil {
		// 写缓存失败不影响本次使用已拉取的内容。
		log.WithField("action", "cache_write_failed").WithError(err).Warn("fetched templates not cached")
	}
	return content, nil
}

func (l *RemoteLoader) persist(sourceID string, content cache.Content, ttl time.Duration, etag, sha string) error {
	entry, err := l.store.Put(sourceID, IndexEntry, content, ttl)
	if err != nil {
		return err
	}
	if etag == "" && sha == "" {
		return nil
	}
	entry.Metadata.ETag = etag
	entry.Metadata.CommitSHA = sha
	return l.store.Update(entry)
}

func (l *RemoteLoader) serveStale(src config.SourceConfig, entry *cache.Entry, cause error, log *logrus.Entry) ([]template.Template, error) {
	content, err := l.store.ReadContent(entry)
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	log.WithFields(logrus.Fields{
		"action":    "serve_stale",
		"cached_at": entry.Metadata.CachedAt,
	}).WithError(cause).Warn("serving stale cached templates")
	return l.parse(src, content)
}

func (l *RemoteLoader) parse(src config.SourceConfig, content cache.Content) ([]template.Template, error) {
	if !content.IsExternal() {
		return template.Parse(content.Data)
	}
	return parseWorkingCopy(content.Path, src.Path)
}

// checkWorkingCopy 确认外部正文指向的工作副本仍然存在。
func checkWorkingCopy(content cache.Content) error {
	if !content.IsExternal() {
		return nil
	}
	if _, err := os.Stat(content.Path); err != nil {
		return fmt.Errorf("working copy %s: %w", content.Path, err)
	}
	return nil
}

// parseWorkingCopy 读取工作副本中的 rel：单个 YAML 文件，或目录下所有 *.yaml/*.yml（不递归）。
func parseWorkingCopy(root, rel string) ([]template.Template, error) {
	target := filepath.Join(root, filepath.FromSlash(rel))
	if inside, err := filepath.Rel(root, target); err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("path %q escapes working copy", rel)
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("read templates at %s: %w", target, err)
	}
	if !info.IsDir() {
		data, err := os.ReadFile(target)
		if err != nil {
			return nil, fmt.Errorf("read template file %s: %w", target, err)
		}
		return template.Parse(data)
	}

	items, err := os.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("list template dir %s: %w", target, err)
	}
	var result []template.Template
	for _, item := range items {
		ext := strings.ToLower(filepath.Ext(item.Name()))
		if item.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(target, item.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template file %s: %w", item.Name(), err)
		}
		parsed, err := template.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", item.Name(), err)
		}
		result = append(result, parsed...)
	}
	return result, nil
}
