package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/devboot/devboot/internal/keyhash"
)

const metaSuffix = ".meta.json"

// NewStore 以 basePath 为根目录构建磁盘缓存，整个进程复用一份实例。根目录在首次写入时创建。
func NewStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("cache dir required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}

	return &fileStore{
		basePath: abs,
		locks:    make(map[string]*entryLock),
		now:      time.Now,
	}, nil
}

// fileStore 通过 entryLock 避免同一条目在进程内并发写入；跨进程不加锁，
// 每次写入都是 temp 文件 + rename 的整体覆盖，最后写入者获胜且不会出现半截文件。
type fileStore struct {
	basePath string
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Root() string {
	return s.basePath
}

func (s *fileStore) ContentPath(sourceID, templateName string) string {
	return filepath.Join(s.basePath, keyhash.Pair(sourceID, templateName))
}

func (s *fileStore) metadataPath(sourceID, templateName string) string {
	return s.ContentPath(sourceID, templateName) + metaSuffix
}

func (s *fileStore) Put(sourceID, templateName string, content Content, ttl time.Duration) (*Entry, error) {
	unlock := s.lockEntry(sourceID, templateName)
	defer unlock()

	if err := s.ensureDir(); err != nil {
		return nil, err
	}

	entry := newEntry(sourceID, templateName, s.ContentPath(sourceID, templateName), ttl, s.now())
	if err := s.writeEntry(&entry, content); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *fileStore) Load(sourceID, templateName string) (*Entry, error) {
	entry, err := readMetadata(s.metadataPath(sourceID, templateName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (s *fileStore) ReadContent(entry *Entry) (Content, error) {
	if entry == nil {
		return Content{}, errors.New("cache entry is nil")
	}
	data, err := os.ReadFile(entry.ContentPath)
	if err != nil {
		return Content{}, fmt.Errorf("read cached content %s: %w", entry.ContentPath, err)
	}
	if entry.Metadata.ContentKind == ContentExternal {
		return ExternalPath(string(data)), nil
	}
	return Inline(data), nil
}

func (s *fileStore) Update(entry *Entry) error {
	if entry == nil {
		return errors.New("cache entry is nil")
	}
	unlock := s.lockEntry(entry.SourceID, entry.TemplateName)
	defer unlock()

	if err := s.ensureDir(); err != nil {
		return err
	}
	return s.writeMetadata(entry)
}

func (s *fileStore) Replace(entry *Entry, content Content) error {
	if entry == nil {
		return errors.New("cache entry is nil")
	}
	unlock := s.lockEntry(entry.SourceID, entry.TemplateName)
	defer unlock()

	if err := s.ensureDir(); err != nil {
		return err
	}
	entry.ContentPath = s.ContentPath(entry.SourceID, entry.TemplateName)
	return s.writeEntry(entry, content)
}

func (s *fileStore) Remove(sourceID, templateName string) (bool, error) {
	unlock := s.lockEntry(sourceID, templateName)
	defer unlock()

	removed := false
	for _, target := range []string{s.ContentPath(sourceID, templateName), s.metadataPath(sourceID, templateName)} {
		err := os.Remove(target)
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, fs.ErrNotExist):
		default:
			return removed, err
		}
	}
	return removed, nil
}

func (s *fileStore) List() ([]Entry, error) {
	items, err := os.ReadDir(s.basePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list cache dir: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if item.IsDir() || !strings.HasSuffix(item.Name(), metaSuffix) {
			continue
		}
		entry, err := readMetadata(filepath.Join(s.basePath, item.Name()))
		if err != nil {
			// 损坏或并发删除的 sidecar 直接跳过。
			continue
		}
		entries = append(entries, *entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Metadata.CachedAt.After(entries[j].Metadata.CachedAt)
	})
	return entries, nil
}

func (s *fileStore) Clear() (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		removed, err := s.Remove(entry.SourceID, entry.TemplateName)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

func (s *fileStore) TotalSize() (int64, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, entry := range entries {
		total += entry.Metadata.SizeBytes
	}
	return total, nil
}

func (s *fileStore) ensureDir() error {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", s.basePath, err)
	}
	return nil
}

// writeEntry 先写正文再写 sidecar，sidecar 是条目存在与否的唯一依据。
func (s *fileStore) writeEntry(entry *Entry, content Content) error {
	data := content.bytes()
	if err := writeFileAtomic(entry.ContentPath, data); err != nil {
		return fmt.Errorf("write cached content: %w", err)
	}
	entry.Metadata.SizeBytes = int64(len(data))
	entry.Metadata.ContentKind = content.Kind
	if entry.Metadata.ContentKind == "" {
		entry.Metadata.ContentKind = ContentInline
	}
	return s.writeMetadata(entry)
}

func (s *fileStore) writeMetadata(entry *Entry) error {
	payload, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache metadata: %w", err)
	}
	if err := writeFileAtomic(s.metadataPath(entry.SourceID, entry.TemplateName), payload); err != nil {
		return fmt.Errorf("write cache metadata: %w", err)
	}
	return nil
}

func (s *fileStore) lockEntry(sourceID, templateName string) func() {
	key := sourceID + "::" + templateName
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

func readMetadata(path string) (*Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode cache metadata %s: %w", path, err)
	}
	return &entry, nil
}

// writeFileAtomic 通过同目录临时文件 + rename 完成整体覆盖，失败时清理临时文件。
func writeFileAtomic(target string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(target), ".cache-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, target); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}
