// Package registry 按优先级把本地、远端与内置模板合并为统一的解析入口。
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/devboot/devboot/internal/template"
)

// ErrUnknownTemplate 表示任何一层都找不到该模板。
var ErrUnknownTemplate = errors.New("unknown template")

// Options 描述 Registry 的各层模板来源，未提供的层视为空。
type Options struct {
	Project Loader
	User    Loader
	Builtin Loader
	Remote  *RemoteLoader
}

// Registry 解析优先级：项目本地 > 用户本地 > 远端（按源优先级）> 内置。
type Registry struct {
	project Loader
	user    Loader
	builtin Loader
	loader  *RemoteLoader

	mu     sync.RWMutex
	remote *RemoteSet
	group  singleflight.Group
}

// New 构造 Registry；远端模板需要调用 ReloadRemote 后才可见。
func New(opts Options) *Registry {
	empty := NewMapLoader()
	r := &Registry{
		project: opts.Project,
		user:    opts.User,
		builtin: opts.Builtin,
		loader:  opts.Remote,
	}
	for _, layer := range []*Loader{&r.project, &r.user, &r.builtin} {
		if *layer == nil {
			*layer = empty
		}
	}
	return r
}

// ReloadRemote 重新加载全部远端源并原子替换结果；并发调用共享同一次加载。
func (r *Registry) ReloadRemote(ctx context.Context) (*RemoteSet, error) {
	if r.loader == nil {
		return nil, nil
	}
	result, err, _ := r.group.Do("remote", func() (interface{}, error) {
		set := r.loader.Load(ctx)
		r.mu.Lock()
		r.remote = set
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*RemoteSet), nil
}

// Remote 返回最近一次远端加载结果。
func (r *Registry) Remote() *RemoteSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.remote
}

// Resolve 返回模板及其来源，找不到时返回 ErrUnknownTemplate。
func (r *Registry) Resolve(name string) (*template.Template, Source, error) {
	if tpl, ok := r.project.Get(name); ok {
		return tpl, Source{Kind: SourceProject}, nil
	}
	if tpl, ok := r.user.Get(name); ok {
		return tpl, Source{Kind: SourceUser}, nil
	}
	if remote, ok := r.Remote().Get(name); ok {
		tpl := remote.Template
		return &tpl, Source{Kind: SourceRemote, Name: remote.Source, Priority: remote.Priority}, nil
	}
	if tpl, ok := r.builtin.Get(name); ok {
		return tpl, Source{Kind: SourceBuiltin}, nil
	}
	return nil, Source{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
}

// Has 报告任意一层是否提供该模板。
func (r *Registry) Has(name string) bool {
	_, _, err := r.Resolve(name)
	return err == nil
}

// AllNames 返回所有层的模板名称，排序并去重。
func (r *Registry) AllNames() []string {
	seen := map[string]struct{}{}
	var names []string
	collect := func(items []string) {
		for _, name := range items {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	collect(r.builtin.Names())
	collect(r.Remote().Names())
	collect(r.user.Names())
	collect(r.project.Names())
	sort.Strings(names)
	return names
}

// ValidateInputs 按模板输入契约检查 inputs，返回全部问题；模板不存在时返回 error。
func (r *Registry) ValidateInputs(name string, inputs map[string]any) ([]string, error) {
	tpl, _, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}

	var problems []string
	for _, key := range sortedKeys(tpl.Inputs) {
		if err := tpl.Inputs[key].Validate(key, inputs[key]); err != nil {
			problems = append(problems, err.Error())
		}
	}
	for _, key := range sortedKeys(inputs) {
		if _, ok := tpl.Inputs[key]; !ok {
			problems = append(problems, fmt.Sprintf("unknown input '%s' for template '%s'", key, name))
		}
	}
	return problems, nil
}

// EffectiveInputs 合并提供值与默认值，只包含模板声明过且有值的输入。
func (r *Registry) EffectiveInputs(name string, provided map[string]any) (map[string]any, error) {
	tpl, _, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	effective := make(map[string]any, len(tpl.Inputs))
	for key, input := range tpl.Inputs {
		if value := input.EffectiveValue(provided[key]); value != nil {
			effective[key] = value
		}
	}
	return effective, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
