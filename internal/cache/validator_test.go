package cache

import (
	"testing"
	"time"
)

func TestClassifyStateMachine(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := newEntry("s", "t", "/x", time.Hour, base)
	expired := newEntry("s", "t", "/x", time.Minute, base)
	withETag := expired
	withETag.Metadata.ETag = `"abc"`
	withSHA := expired
	withSHA.Metadata.CommitSHA = "deadbeef"
	withBoth := withETag
	withBoth.Metadata.CommitSHA = "deadbeef"

	now := base.Add(10 * time.Minute)
	cases := []struct {
		name     string
		entry    *Entry
		strategy Strategy
		want     ValidationResult
	}{
		{"missing", nil, StrategyTTL, NotFound},
		{"ttl fresh", &fresh, StrategyTTL, Fresh},
		{"etag fresh", &fresh, StrategyETag, Fresh},
		{"ttl expired ignores validators", &withBoth, StrategyTTL, Expired},
		{"etag expired with etag", &withETag, StrategyETag, NeedsRevalidation},
		{"etag expired without etag", &withSHA, StrategyETag, Expired},
		{"git expired with sha", &withSHA, StrategyGit, NeedsRevalidation},
		{"git expired without sha", &withETag, StrategyGit, Expired},
	}
	for _, tc := range cases {
		if got := Classify(tc.entry, tc.strategy, now); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestValidatorValidate(t *testing.T) {
	store := newTestStore(t)
	validator := NewValidator(store)

	result, entry, err := validator.Validate("http:test", "missing", StrategyTTL)
	if err != nil || result != NotFound || entry != nil {
		t.Fatalf("expected NotFound, got %s %v %v", result, entry, err)
	}

	if _, err := store.Put("http:test", "template", Inline([]byte("content")), time.Hour); err != nil {
		t.Fatalf("put error: %v", err)
	}
	result, entry, err = validator.Validate("http:test", "template", StrategyTTL)
	if err != nil || result != Fresh || entry == nil {
		t.Fatalf("expected Fresh, got %s %v", result, err)
	}

	validator.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	result, _, err = validator.Validate("http:test", "template", StrategyETag)
	if err != nil || result != Expired {
		t.Fatalf("expected Expired without etag, got %s %v", result, err)
	}
}

func TestValidatorCleanupExpired(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Put("http:test", "fresh", Inline([]byte("content")), time.Hour); err != nil {
		t.Fatalf("put error: %v", err)
	}
	stale, err := store.Put("http:test", "stale", Inline([]byte("content")), 0)
	if err != nil {
		t.Fatalf("put error: %v", err)
	}
	stale.Metadata.ETag = `"v1"`
	if err := store.Update(stale); err != nil {
		t.Fatalf("update error: %v", err)
	}

	removed, err := NewValidator(store).CleanupExpired()
	if err != nil {
		t.Fatalf("cleanup error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(entries) != 1 || entries[0].TemplateName != "fresh" {
		t.Fatalf("unexpected remaining entries: %+v", entries)
	}
}

func TestValidatorEntriesOlderThan(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	if _, err := store.Put("http:test", "old", Inline([]byte("a")), time.Hour); err != nil {
		t.Fatalf("put error: %v", err)
	}
	store.now = func() time.Time { return base.Add(50 * time.Minute) }
	if _, err := store.Put("http:test", "recent", Inline([]byte("b")), time.Hour); err != nil {
		t.Fatalf("put error: %v", err)
	}

	validator := NewValidator(store)
	validator.now = func() time.Time { return base.Add(time.Hour) }
	entries, err := validator.EntriesOlderThan(30 * time.Minute)
	if err != nil {
		t.Fatalf("entries older than error: %v", err)
	}
	if len(entries) != 1 || entries[0].TemplateName != "old" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{"": StrategyTTL, "ttl": StrategyTTL, "ETag": StrategyETag, " git ": StrategyGit}
	for input, want := range cases {
		got, err := ParseStrategy(input)
		if err != nil || got != want {
			t.Fatalf("ParseStrategy(%q) = %s, %v", input, got, err)
		}
	}
	if _, err := ParseStrategy("lru"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}
