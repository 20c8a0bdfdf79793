package template

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSingleTemplateAppliesDefaults(t *testing.T) {
	templates, err := Parse([]byte(`
name: test
description: "A test template"
category: common
step:
  command: "echo test"
`))
	require.NoError(t, err)
	require.Len(t, templates, 1)
	require.Equal(t, "test", templates[0].Name)
	require.Equal(t, DefaultVersion, templates[0].Version)
	require.Len(t, templates[0].Platforms, 3)
	require.True(t, templates[0].SupportsCurrentPlatform())
}

func TestParseFullTemplate(t *testing.T) {
	templates, err := Parse([]byte(`
name: yarn
description: "Install Node.js dependencies using Yarn"
category: node
version: "2.0.0"
platforms: [macos, linux]
detects:
  - file: yarn.lock
  - file: package.json
step:
  title: "Install Node dependencies"
  command: "yarn install"
  completed_check:
    type: command_succeeds
    command: "yarn check --verify-tree"
  env:
    NODE_ENV: development
  watches:
    - yarn.lock
environment_impact:
  path_additions:
    - "./node_modules/.bin"
`))
	require.NoError(t, err)
	tpl := templates[0]
	require.Equal(t, "2.0.0", tpl.Version)
	require.Equal(t, []Platform{PlatformMacOS, PlatformLinux}, tpl.Platforms)
	require.Len(t, tpl.Detects, 2)
	require.Equal(t, "yarn install", tpl.Step.Command)
	require.Equal(t, "development", tpl.Step.Env["NODE_ENV"])
	require.Equal(t, "command_succeeds", tpl.Step.CompletedCheck["type"])
	require.NotNil(t, tpl.EnvironmentImpact)
	require.Equal(t, []string{"./node_modules/.bin"}, tpl.EnvironmentImpact.PathAdditions)
}

func TestParseList(t *testing.T) {
	templates, err := Parse([]byte(`
- name: one
  step:
    command: "echo 1"
- name: two
  step:
    command: "echo 2"
`))
	require.NoError(t, err)
	require.Len(t, templates, 2)
	require.Equal(t, "one", templates[0].Name)
	require.Equal(t, "two", templates[1].Name)
}

func TestParseRejectsInvalidContent(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"missing name": "description: nameless\n",
		"list item":    "- name: ok\n- description: nameless\n",
		"scalar":       "just a string",
		"broken yaml":  "name: [unterminated\n",
	}
	for name, input := range cases {
		_, err := Parse([]byte(input))
		require.ErrorIs(t, err, ErrInvalidTemplate, name)
	}
}

func TestParseInputs(t *testing.T) {
	templates, err := Parse([]byte(`
name: database-setup
inputs:
  database_name:
    description: "Name of the database"
    type: string
    required: true
  environment:
    description: "Target environment"
    type: enum
    values: [development, test, staging]
    default: development
step:
  command: "rails db:setup"
`))
	require.NoError(t, err)
	inputs := templates[0].Inputs
	require.True(t, inputs["database_name"].Required)
	require.Len(t, inputs["environment"].Values, 3)
	require.Equal(t, "development", inputs["environment"].Default)
}
