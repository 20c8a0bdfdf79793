package registry

import (
	"fmt"
	"sort"

	"github.com/devboot/devboot/internal/template"
)

// SourceKind 标记模板来自哪一层，数值越小优先级越高。
type SourceKind int

const (
	SourceProject SourceKind = iota
	SourceUser
	SourceRemote
	SourceBuiltin
)

func (k SourceKind) String() string {
	switch k {
	case SourceProject:
		return "project"
	case SourceUser:
		return "user"
	case SourceRemote:
		return "remote"
	default:
		return "builtin"
	}
}

// Source 描述解析结果的来源；远端模板额外携带源名称与优先级。
type Source struct {
	Kind     SourceKind
	Name     string
	Priority int
}

func (s Source) String() string {
	if s.Kind == SourceRemote {
		return fmt.Sprintf("remote:%s(priority=%d)", s.Name, s.Priority)
	}
	return s.Kind.String()
}

// Loader 是内置与本地模板层的最小能力，文件系统实现位于调用方。
type Loader interface {
	Get(name string) (*template.Template, bool)
	Names() []string
}

// MapLoader 是基于内存的 Loader，同名模板以先出现者为准。
type MapLoader struct {
	templates map[string]template.Template
}

// NewMapLoader 构造内存模板层。
func NewMapLoader(templates ...template.Template) *MapLoader {
	loader := &MapLoader{templates: make(map[string]template.Template, len(templates))}
	for _, tpl := range templates {
		if _, exists := loader.templates[tpl.Name]; !exists {
			loader.templates[tpl.Name] = tpl
		}
	}
	return loader
}

func (m *MapLoader) Get(name string) (*template.Template, bool) {
	tpl, ok := m.templates[name]
	if !ok {
		return nil, false
	}
	return &tpl, true
}

func (m *MapLoader) Names() []string {
	names := make([]string, 0, len(m.templates))
	for name := range m.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
