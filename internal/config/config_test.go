package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appship/imageship/internal/model"
)

// writeManifest writes content to a file in a fresh temp dir and
// returns the full path.
func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoad_YAML verifies YAML manifest parsing, normalization, and
// declaration-order preservation.
func TestLoad_YAML(t *testing.T) {
	path := writeManifest(t, "imageship.yaml", `
targets:
  - name: chatws
    context: ./chatws
    registry: registry.example.com/apps
  - name: streamlit
    context: ./streamlit
    registry: registry.example.com/apps
    buildTag: "2.0"
`)

	m, err := Load(path)
	require.NoError(t, err)
	require.Len(t, m.Targets, 2)

	assert.Equal(t, "chatws", m.Targets[0].Name)
	assert.Equal(t, "./chatws", m.Targets[0].Context)
	assert.Equal(t, "1.0", m.Targets[0].BuildTag, "buildTag should default to 1.0")
	assert.Equal(t, "Dockerfile", m.Targets[0].Dockerfile)

	assert.Equal(t, "streamlit", m.Targets[1].Name)
	assert.Equal(t, "2.0", m.Targets[1].BuildTag)
}

// TestLoad_JSONC verifies that JSONC manifests with comments and
// trailing commas parse correctly.
func TestLoad_JSONC(t *testing.T) {
	path := writeManifest(t, "imageship.jsonc", `{
  // published apps
  "targets": [
    {
      "name": "wschat",
      "registry": "registry.example.com/apps",
    },
    {
      "name": "mcp-servers",
      "context": "./mcp_servers",
      "registry": "registry.example.com/apps",
    },
  ],
}`)

	m, err := Load(path)
	require.NoError(t, err)
	require.Len(t, m.Targets, 2)
	assert.Equal(t, "wschat", m.Targets[0].Name)
	assert.Equal(t, "./mcp_servers", m.Targets[1].Context)
}

// TestLoad_RegistryDefaultFromEnv verifies that BASE_LOCATION fills in
// the registry for targets that omit one.
func TestLoad_RegistryDefaultFromEnv(t *testing.T) {
	t.Setenv(EnvRegistry, "registry.example.com/team")

	path := writeManifest(t, "imageship.yaml", `
targets:
  - name: chatws
`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "registry.example.com/team", m.Targets[0].Registry)
}

// TestLoad_Errors verifies the manifest failure modes: missing file,
// no targets, duplicate names, invalid image name.
func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "imageship.yaml"))
		requireExitCode(t, err, model.ExitManifestError)
	})

	t.Run("no targets", func(t *testing.T) {
		path := writeManifest(t, "imageship.yaml", "targets: []\n")
		_, err := Load(path)
		requireExitCode(t, err, model.ExitManifestError)
	})

	t.Run("duplicate names", func(t *testing.T) {
		path := writeManifest(t, "imageship.yaml", `
targets:
  - name: chatws
  - name: chatws
`)
		_, err := Load(path)
		requireExitCode(t, err, model.ExitManifestError)
	})

	t.Run("invalid image name", func(t *testing.T) {
		path := writeManifest(t, "imageship.yaml", `
targets:
  - name: "Chat WS"
`)
		_, err := Load(path)
		requireExitCode(t, err, model.ExitManifestError)
	})
}

// TestResolve_EnvSynthesis verifies the no-manifest path: a single
// target built from DOCKER_NAME and BASE_LOCATION, matching the
// contract of the original publish scripts.
func TestResolve_EnvSynthesis(t *testing.T) {
	t.Setenv(EnvImageName, "chatws")
	t.Setenv(EnvRegistry, "registry.example.com/apps")
	t.Setenv(EnvManifest, "")

	m, err := Resolve(t.TempDir(), "", Overrides{})
	require.NoError(t, err)
	require.Len(t, m.Targets, 1)

	target := m.Targets[0]
	assert.Equal(t, "chatws", target.Name)
	assert.Equal(t, "registry.example.com/apps", target.Registry)
	assert.Equal(t, "1.0", target.BuildTag)
	assert.Equal(t, ".", target.Context)
}

// TestResolve_OverridesBeatEnv verifies that explicit flag values take
// precedence over the environment variables.
func TestResolve_OverridesBeatEnv(t *testing.T) {
	t.Setenv(EnvImageName, "chatws")
	t.Setenv(EnvRegistry, "registry.example.com/apps")
	t.Setenv(EnvManifest, "")

	m, err := Resolve(t.TempDir(), "", Overrides{
		Name:     "streamlit",
		Registry: "localhost:5000",
	})
	require.NoError(t, err)
	assert.Equal(t, "streamlit", m.Targets[0].Name)
	assert.Equal(t, "localhost:5000", m.Targets[0].Registry)
}

// TestResolve_MissingName verifies that the absence of both a manifest
// and DOCKER_NAME fails before any Docker interaction.
func TestResolve_MissingName(t *testing.T) {
	t.Setenv(EnvImageName, "")
	t.Setenv(EnvRegistry, "")
	t.Setenv(EnvManifest, "")

	_, err := Resolve(t.TempDir(), "", Overrides{})
	requireExitCode(t, err, model.ExitManifestError)
}

// TestResolve_Discovery verifies that a well-known manifest file in the
// working directory is picked up without an explicit path.
func TestResolve_Discovery(t *testing.T) {
	t.Setenv(EnvManifest, "")
	dir := t.TempDir()
	content := `
targets:
  - name: googleadk
    registry: registry.example.com/apps
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "imageship.yaml"), []byte(content), 0o644))

	m, err := Resolve(dir, "", Overrides{})
	require.NoError(t, err)
	require.Len(t, m.Targets, 1)
	assert.Equal(t, "googleadk", m.Targets[0].Name)
}

// TestSelect verifies subset selection by name with manifest order
// preserved, and the unknown-target error.
func TestSelect(t *testing.T) {
	m := &Manifest{Targets: []model.Target{
		{Name: "chatws"},
		{Name: "streamlit"},
		{Name: "wschat"},
	}}

	t.Run("all by default", func(t *testing.T) {
		got, err := Select(m, nil)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("subset keeps manifest order", func(t *testing.T) {
		got, err := Select(m, []string{"wschat", "chatws"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "chatws", got[0].Name)
		assert.Equal(t, "wschat", got[1].Name)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := Select(m, []string{"nope"})
		requireExitCode(t, err, model.ExitTargetNotFound)
	})
}

// requireExitCode asserts that err is a CLIError carrying the given
// exit code.
func requireExitCode(t *testing.T, err error, code model.ExitCode) {
	t.Helper()
	require.Error(t, err)
	cliErr, ok := err.(*model.CLIError)
	require.True(t, ok, "expected *model.CLIError, got %T: %v", err, err)
	assert.Equal(t, code, cliErr.Code)
}
