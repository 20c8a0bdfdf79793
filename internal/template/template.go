// Package template 定义模板的数据结构与 YAML 解析。模板描述一个环境准备步骤及其输入约束。
package template

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultVersion 是未声明 version 时的模板版本。
const DefaultVersion = "1.0.0"

// ErrInvalidTemplate 表示内容既不是单个模板也不是模板列表，或缺少必填字段。
var ErrInvalidTemplate = errors.New("invalid template definition")

// Platform 是模板支持的操作系统。
type Platform string

const (
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
)

// AllPlatforms 是未声明 platforms 时的默认值。
var AllPlatforms = []Platform{PlatformMacOS, PlatformLinux, PlatformWindows}

// IsCurrent 报告平台是否与当前运行环境一致。
func (p Platform) IsCurrent() bool {
	switch p {
	case PlatformMacOS:
		return runtime.GOOS == "darwin"
	case PlatformLinux:
		return runtime.GOOS == "linux"
	case PlatformWindows:
		return runtime.GOOS == "windows"
	default:
		return false
	}
}

// Template 是一条可复用的步骤定义。
type Template struct {
	Name              string             `yaml:"name" json:"name"`
	Description       string             `yaml:"description" json:"description"`
	Category          string             `yaml:"category" json:"category"`
	Version           string             `yaml:"version" json:"version"`
	MinVersion        string             `yaml:"min_devboot_version,omitempty" json:"min_devboot_version,omitempty"`
	Platforms         []Platform         `yaml:"platforms" json:"platforms"`
	Detects           []Detection        `yaml:"detects,omitempty" json:"detects,omitempty"`
	Inputs            map[string]Input   `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Step              Step               `yaml:"step" json:"step"`
	EnvironmentImpact *EnvironmentImpact `yaml:"environment_impact,omitempty" json:"environment_impact,omitempty"`
}

// Detection 描述判断模板是否适用于当前项目的线索。
type Detection struct {
	File    string `yaml:"file,omitempty" json:"file,omitempty"`
	Command string `yaml:"command,omitempty" json:"command,omitempty"`
}

// Step 是模板展开后的执行内容。
type Step struct {
	Title          string            `yaml:"title,omitempty" json:"title,omitempty"`
	Description    string            `yaml:"description,omitempty" json:"description,omitempty"`
	Command        string            `yaml:"command,omitempty" json:"command,omitempty"`
	CompletedCheck map[string]any    `yaml:"completed_check,omitempty" json:"completed_check,omitempty"`
	Env            map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Watches        []string          `yaml:"watches,omitempty" json:"watches,omitempty"`
}

// EnvironmentImpact 记录步骤对 shell 环境的影响，仅用于提示。
type EnvironmentImpact struct {
	ModifiesPath  bool     `yaml:"modifies_path,omitempty" json:"modifies_path,omitempty"`
	ShellFiles    []string `yaml:"shell_files,omitempty" json:"shell_files,omitempty"`
	PathAdditions []string `yaml:"path_additions,omitempty" json:"path_additions,omitempty"`
	Note          string   `yaml:"note,omitempty" json:"note,omitempty"`
}

// SupportsCurrentPlatform 报告模板是否可在当前系统上运行。
func (t *Template) SupportsCurrentPlatform() bool {
	return slices.ContainsFunc(t.Platforms, Platform.IsCurrent)
}

func (t *Template) applyDefaults() {
	if t.Version == "" {
		t.Version = DefaultVersion
	}
	if len(t.Platforms) == 0 {
		t.Platforms = slices.Clone(AllPlatforms)
	}
}

// Parse 先尝试按模板列表解析，再尝试按单个模板解析；每个模板都必须有 name。
func Parse(data []byte) ([]Template, error) {
	var list []Template
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return finalize(list)
	}

	var single Template
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return finalize([]Template{single})
}

func finalize(templates []Template) ([]Template, error) {
	for i := range templates {
		if strings.TrimSpace(templates[i].Name) == "" {
			return nil, fmt.Errorf("%w: template #%d has no name", ErrInvalidTemplate, i+1)
		}
		templates[i].applyDefaults()
	}
	return templates, nil
}
