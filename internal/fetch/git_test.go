package fetch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// originRepo 是用 go-git 构建的本地远端，file:// 传输依赖 git-upload-pack。
type originRepo struct {
	dir  string
	repo *git.Repository
}

func newOriginRepo(t *testing.T, files map[string]string) (*originRepo, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available for file transport")
	}
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	origin := &originRepo{dir: dir, repo: repo}
	return origin, origin.commit(t, files, "init")
}

func (o *originRepo) url() string {
	return "file://" + o.dir
}

func (o *originRepo) commit(t *testing.T, files map[string]string, msg string) string {
	t.Helper()
	wt, err := o.repo.Worktree()
	require.NoError(t, err)
	for rel, content := range files {
		full := filepath.Join(o.dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
		_, err := wt.Add(rel)
		require.NoError(t, err)
	}
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@test", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestGitFetcherResolveRef(t *testing.T) {
	origin, sha := newOriginRepo(t, map[string]string{"templates.yaml": "name: a\n"})
	head, err := origin.repo.Head()
	require.NoError(t, err)
	_, err = origin.repo.CreateTag("v1", head.Hash(), nil)
	require.NoError(t, err)

	fetcher := NewGitFetcher(t.TempDir())
	ctx := context.Background()

	resolved, err := fetcher.ResolveRef(ctx, origin.url(), "")
	require.NoError(t, err)
	require.Equal(t, sha, resolved)

	resolved, err = fetcher.ResolveRef(ctx, origin.url(), "master")
	require.NoError(t, err)
	require.Equal(t, sha, resolved)

	resolved, err = fetcher.ResolveRef(ctx, origin.url(), "v1")
	require.NoError(t, err)
	require.Equal(t, sha, resolved)

	_, err = fetcher.ResolveRef(ctx, origin.url(), "missing")
	require.ErrorIs(t, err, ErrRefNotFound)
}

func TestGitFetcherFetchClonesThenUpdates(t *testing.T) {
	origin, first := newOriginRepo(t, map[string]string{"templates/a.yaml": "name: a\n"})
	fetcher := NewGitFetcher(filepath.Join(t.TempDir(), "clones"))
	ctx := context.Background()

	result, err := fetcher.Fetch(ctx, origin.url(), "")
	require.NoError(t, err)
	require.Equal(t, fetcher.WorkingCopyPath(origin.url()), result.LocalPath)
	require.Equal(t, first, result.CommitSHA)
	data, err := os.ReadFile(filepath.Join(result.LocalPath, "templates", "a.yaml"))
	require.NoError(t, err)
	require.Equal(t, "name: a\n", string(data))

	changed, err := fetcher.HasUpdates(ctx, origin.url(), "", first)
	require.NoError(t, err)
	require.False(t, changed)

	second := origin.commit(t, map[string]string{"templates/a.yaml": "name: a2\n"}, "update")
	changed, err = fetcher.HasUpdates(ctx, origin.url(), "", first)
	require.NoError(t, err)
	require.True(t, changed)

	result, err = fetcher.Fetch(ctx, origin.url(), "master")
	require.NoError(t, err)
	require.Equal(t, second, result.CommitSHA)
	data, err = os.ReadFile(filepath.Join(result.LocalPath, "templates", "a.yaml"))
	require.NoError(t, err)
	require.Equal(t, "name: a2\n", string(data))
}

func TestCheckedOutSHAFollowsHead(t *testing.T) {
	origin, first := newOriginRepo(t, map[string]string{"a.yaml": "name: a\n"})
	second := origin.commit(t, map[string]string{"a.yaml": "name: a2\n"}, "moved on")

	sha, err := checkedOutSHA(origin.repo, plumbing.NewHash(second))
	require.NoError(t, err)
	require.Equal(t, second, sha)

	// 列出引用时看到的是旧提交，但检出的是新提交。
	sha, err = checkedOutSHA(origin.repo, plumbing.NewHash(first))
	require.NoError(t, err)
	require.Equal(t, second, sha)
}

func TestGitFetcherUnknownRefLeavesNoWorkingCopy(t *testing.T) {
	origin, _ := newOriginRepo(t, map[string]string{"a.yaml": "name: a\n"})
	fetcher := NewGitFetcher(t.TempDir())

	_, err := fetcher.Fetch(context.Background(), origin.url(), "nope")
	require.ErrorIs(t, err, ErrRefNotFound)
	_, statErr := os.Stat(fetcher.WorkingCopyPath(origin.url()))
	require.True(t, os.IsNotExist(statErr))
}

func TestWorkingCopyPathIsStable(t *testing.T) {
	fetcher := NewGitFetcher("/tmp/clones")
	a := fetcher.WorkingCopyPath("https://example.com/a.git")
	require.Equal(t, a, fetcher.WorkingCopyPath("https://example.com/a.git"))
	require.NotEqual(t, a, fetcher.WorkingCopyPath("https://example.com/b.git"))
	require.Equal(t, "/tmp/clones", filepath.Dir(a))
	require.Len(t, filepath.Base(a), 16)
}
