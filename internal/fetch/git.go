package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/devboot/devboot/internal/keyhash"
)

// ErrRefNotFound 表示远端没有公布所请求的引用。
var ErrRefNotFound = errors.New("git ref not found")

// GitResult 描述一次完整拉取后的本地工作副本。
type GitResult struct {
	LocalPath string
	// CommitSHA 与 ResolveRef 返回值同源，可直接用于后续比较。
	CommitSHA string
}

// GitFetcher 维护 <cloneDir>/<hash16(url)> 下的浅克隆工作副本。
type GitFetcher struct {
	cloneDir  string
	authToken string
	depth     int
}

// GitOption 配置 GitFetcher。
type GitOption func(*GitFetcher)

// WithGitAuthToken 使用 token 作为 HTTP(S) 远端的 BasicAuth 密码。
func WithGitAuthToken(token string) GitOption {
	return func(g *GitFetcher) {
		g.authToken = token
	}
}

// WithDepth 覆盖浅克隆深度，默认 1。
func WithDepth(depth int) GitOption {
	return func(g *GitFetcher) {
		if depth > 0 {
			g.depth = depth
		}
	}
}

// NewGitFetcher 构造 git 拉取器，cloneDir 在首次 Fetch 时创建。
func NewGitFetcher(cloneDir string, opts ...GitOption) *GitFetcher {
	g := &GitFetcher{cloneDir: cloneDir, depth: 1}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WorkingCopyPath 返回 url 对应的工作副本目录，与 ref 无关。
func (g *GitFetcher) WorkingCopyPath(url string) string {
	return filepath.Join(g.cloneDir, keyhash.Short(url))
}

// ResolveRef 只查询远端公布的引用（等价于 ls-remote），不下载任何对象。
// ref 为空时解析远端 HEAD；否则依次尝试 ref、refs/heads/<ref>、refs/tags/<ref>。
func (g *GitFetcher) ResolveRef(ctx context.Context, url, ref string) (string, error) {
	target, err := g.lookupRef(ctx, url, ref)
	if err != nil {
		return "", err
	}
	return target.hash.String(), nil
}

// HasUpdates 报告远端引用是否已偏离 knownSHA。
func (g *GitFetcher) HasUpdates(ctx context.Context, url, ref, knownSHA string) (bool, error) {
	sha, err := g.ResolveRef(ctx, url, ref)
	if err != nil {
		return false, err
	}
	return sha != knownSHA, nil
}

// Fetch 在工作副本不存在时浅克隆，否则浅拉取并硬重置到目标引用。
// 已有副本无法更新时会删除后重新克隆。
func (g *GitFetcher) Fetch(ctx context.Context, url, ref string) (*GitResult, error) {
	target, err := g.lookupRef(ctx, url, ref)
	if err != nil {
		return nil, err
	}

	path := g.WorkingCopyPath(url)
	if _, statErr := os.Stat(filepath.Join(path, git.GitDirName)); statErr == nil {
		err = g.update(ctx, path, target)
		if err == nil {
			return &GitResult{LocalPath: path, CommitSHA: target.hash.String()}, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return nil, fmt.Errorf("remove stale working copy %s: %w", path, rmErr)
		}
	}

	repo, err := g.clone(ctx, url, path, target)
	if err != nil {
		return nil, err
	}
	sha, err := checkedOutSHA(repo, target.hash)
	if err != nil {
		return nil, err
	}
	return &GitResult{LocalPath: path, CommitSHA: sha}, nil
}

type remoteRef struct {
	name plumbing.ReferenceName
	hash plumbing.Hash
}

func (g *GitFetcher) lookupRef(ctx context.Context, url, ref string) (remoteRef, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{url},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: g.auth()})
	if err != nil {
		return remoteRef{}, fmt.Errorf("list remote refs %s: %w", url, err)
	}
	return matchRef(refs, ref, url)
}

func matchRef(refs []*plumbing.Reference, ref, url string) (remoteRef, error) {
	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, r := range refs {
		byName[r.Name()] = r
	}

	if ref == "" || ref == string(plumbing.HEAD) {
		head := byName[plumbing.HEAD]
		if head == nil {
			return remoteRef{}, fmt.Errorf("%w: HEAD at %s", ErrRefNotFound, url)
		}
		if head.Type() == plumbing.SymbolicReference {
			branch := byName[head.Target()]
			if branch == nil {
				return remoteRef{}, fmt.Errorf("%w: %s at %s", ErrRefNotFound, head.Target(), url)
			}
			return remoteRef{name: branch.Name(), hash: branch.Hash()}, nil
		}
		for _, r := range refs {
			if r.Name().IsBranch() && r.Hash() == head.Hash() {
				return remoteRef{name: r.Name(), hash: r.Hash()}, nil
			}
		}
		return remoteRef{name: plumbing.HEAD, hash: head.Hash()}, nil
	}

	candidates := []plumbing.ReferenceName{
		plumbing.ReferenceName(ref),
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewTagReferenceName(ref),
	}
	for _, name := range candidates {
		if r := byName[name]; r != nil && r.Type() == plumbing.HashReference {
			return remoteRef{name: r.Name(), hash: r.Hash()}, nil
		}
	}
	return remoteRef{}, fmt.Errorf("%w: %s at %s", ErrRefNotFound, ref, url)
}

func (g *GitFetcher) clone(ctx context.Context, url, path string, target remoteRef) (*git.Repository, error) {
	if err := os.MkdirAll(g.cloneDir, 0o755); err != nil {
		return nil, fmt.Errorf("create clone dir %s: %w", g.cloneDir, err)
	}
	opts := &git.CloneOptions{
		URL:          url,
		Auth:         g.auth(),
		SingleBranch: true,
		Depth:        g.depth,
		Tags:         git.NoTags,
	}
	if target.name != plumbing.HEAD {
		opts.ReferenceName = target.name
	}
	repo, err := git.PlainCloneContext(ctx, path, false, opts)
	if err != nil {
		_ = os.RemoveAll(path)
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}
	return repo, nil
}

// checkedOutSHA 返回克隆后实际检出的版本。若检出的提交就是 advertised 指向的提交，
// 则沿用 advertised（附注标签保持标签对象哈希，与 ResolveRef 的结果可比）；
// 列出引用与克隆之间远端有新推送时，以 HEAD 为准。
func checkedOutSHA(repo *git.Repository, advertised plumbing.Hash) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if commit, err := peelCommit(repo, advertised); err == nil && commit == head.Hash() {
		return advertised.String(), nil
	}
	return head.Hash().String(), nil
}

func (g *GitFetcher) update(ctx context.Context, path string, target remoteRef) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("open working copy %s: %w", path, err)
	}

	spec := config.RefSpec(fmt.Sprintf("+%s:%s", target.name, trackingRef(target.name)))
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []config.RefSpec{spec},
		Depth:      g.depth,
		Force:      true,
		Tags:       git.NoTags,
		Auth:       g.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch %s: %w", target.name, err)
	}

	commit, err := peelCommit(repo, target.hash)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: commit, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("reset to %s: %w", commit, err)
	}
	return nil
}

// trackingRef 决定远端引用在本地的落点：分支进入 refs/remotes/origin，其余保持原名。
func trackingRef(name plumbing.ReferenceName) plumbing.ReferenceName {
	switch {
	case name.IsBranch():
		return plumbing.NewRemoteReferenceName(git.DefaultRemoteName, name.Short())
	case name == plumbing.HEAD:
		return plumbing.NewRemoteHEADReferenceName(git.DefaultRemoteName)
	default:
		return name
	}
}

// peelCommit 将附注标签对象解到其指向的提交。
func peelCommit(repo *git.Repository, hash plumbing.Hash) (plumbing.Hash, error) {
	tag, err := repo.TagObject(hash)
	if err != nil {
		return hash, nil
	}
	commit, err := tag.Commit()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("peel tag %s: %w", hash, err)
	}
	return commit.Hash, nil
}

func (g *GitFetcher) auth() transport.AuthMethod {
	if g.authToken == "" {
		return nil
	}
	return &http.BasicAuth{
		Username: "x-access-token",
		Password: g.authToken,
	}
}
