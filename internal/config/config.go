// Package config resolves the set of publish targets for a run.
//
// Targets come from one of two sources, in priority order:
//  1. A manifest file (imageship.yaml / imageship.jsonc) declaring one
//     target per publishable app.
//  2. The environment variables DOCKER_NAME and BASE_LOCATION, which
//     reproduce the contract of the original per-app publish scripts:
//     a single target whose image name and registry base path come
//     straight from the process environment.
//
// Manifest files may be YAML (parsed with gopkg.in/yaml.v3) or JSONC
// (comments stripped with github.com/tidwall/jsonc before parsing with
// encoding/json), selected by file extension.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/appship/imageship/internal/model"
	"github.com/appship/imageship/internal/refname"
)

// Environment variable names forming the external configuration
// contract. DOCKER_NAME and BASE_LOCATION are inherited from the
// original publish scripts and kept verbatim for drop-in compatibility.
const (
	// EnvImageName supplies the image name when no manifest is used.
	EnvImageName = "DOCKER_NAME"

	// EnvRegistry supplies the registry base path. It also provides the
	// default registry for manifest targets that omit one.
	EnvRegistry = "BASE_LOCATION"

	// EnvManifest overrides manifest discovery with an explicit path.
	EnvManifest = "IMAGESHIP_MANIFEST"

	// EnvRegistryAuth optionally carries a pre-encoded registry auth
	// string passed through to the daemon unchanged. imageship does not
	// manage credentials itself.
	EnvRegistryAuth = "IMAGESHIP_REGISTRY_AUTH"
)

// manifestCandidates are the file names probed, in order, when no
// manifest path is given explicitly.
var manifestCandidates = []string{
	"imageship.yaml",
	"imageship.yml",
	"imageship.jsonc",
	"imageship.json",
}

// Manifest is the parsed form of an imageship manifest file.
type Manifest struct {
	// Targets lists the publishable images in declaration order.
	// The publish pipeline processes them strictly in this order.
	Targets []model.Target `json:"targets" yaml:"targets"`
}

// Load reads and parses a manifest file. The format is chosen by
// extension: .yaml/.yml use YAML, anything else is treated as JSONC.
//
// Every target is normalized and validated, and its composed references
// are checked through the refname package, so a malformed manifest
// fails here rather than halfway through a publish run.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitManifestError,
				fmt.Sprintf("manifest not found: %s", path), err)
		}
		return nil, model.WrapCLIError(model.ExitManifestError,
			fmt.Sprintf("failed to read manifest %s", path), err)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, model.WrapCLIError(model.ExitManifestError,
				fmt.Sprintf("failed to parse manifest %s", path), err)
		}
	default:
		// JSONC: strip // and /* */ comments and trailing commas, then
		// parse with the standard library. Plain JSON passes through
		// jsonc.ToJSON unchanged.
		if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
			return nil, model.WrapCLIError(model.ExitManifestError,
				fmt.Sprintf("failed to parse manifest %s", path), err)
		}
	}

	if len(m.Targets) == 0 {
		return nil, model.NewCLIError(model.ExitManifestError,
			fmt.Sprintf("manifest %s declares no targets", path))
	}

	defaultRegistry := os.Getenv(EnvRegistry)
	seen := make(map[string]struct{}, len(m.Targets))
	for i := range m.Targets {
		t := &m.Targets[i]
		t.Normalize()
		if t.Registry == "" {
			t.Registry = defaultRegistry
		}
		if err := validateTarget(t); err != nil {
			return nil, model.WrapCLIError(model.ExitManifestError,
				fmt.Sprintf("manifest %s: invalid target %d", path, i), err)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, model.NewCLIError(model.ExitManifestError,
				fmt.Sprintf("manifest %s: duplicate target %q", path, t.Name))
		}
		seen[t.Name] = struct{}{}
	}

	return &m, nil
}

// Overrides carries command-line values that take precedence over the
// environment when synthesizing a single target without a manifest.
type Overrides struct {
	// Name overrides DOCKER_NAME.
	Name string

	// Registry overrides BASE_LOCATION.
	Registry string
}

// Resolve produces the effective manifest for a run.
//
// Lookup order for the manifest file: the explicit path argument, the
// IMAGESHIP_MANIFEST environment variable, then the well-known file
// names in dir. When none exists, a single target is synthesized from
// the overrides and the DOCKER_NAME/BASE_LOCATION environment
// variables. A missing image name is an error — nothing can be built
// or pushed without one.
func Resolve(dir, manifestPath string, ov Overrides) (*Manifest, error) {
	if manifestPath == "" {
		manifestPath = os.Getenv(EnvManifest)
	}
	if manifestPath == "" {
		manifestPath = discover(dir)
	}
	if manifestPath != "" {
		return Load(manifestPath)
	}

	name := ov.Name
	if name == "" {
		name = os.Getenv(EnvImageName)
	}
	if name == "" {
		return nil, model.NewCLIError(model.ExitManifestError,
			fmt.Sprintf("no manifest found and %s is not set", EnvImageName))
	}

	registry := ov.Registry
	if registry == "" {
		registry = os.Getenv(EnvRegistry)
	}

	t := model.Target{Name: name, Registry: registry}
	t.Normalize()
	if err := validateTarget(&t); err != nil {
		return nil, model.WrapCLIError(model.ExitManifestError,
			"invalid target from environment", err)
	}

	return &Manifest{Targets: []model.Target{t}}, nil
}

// Select returns the manifest targets matching the given names,
// preserving manifest declaration order. An empty name list selects
// every target. A name with no matching target is an error.
func Select(m *Manifest, names []string) ([]model.Target, error) {
	if len(names) == 0 {
		return m.Targets, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = false
	}

	var selected []model.Target
	for _, t := range m.Targets {
		if _, ok := wanted[t.Name]; ok {
			wanted[t.Name] = true
			selected = append(selected, t)
		}
	}

	for _, n := range names {
		if !wanted[n] {
			return nil, model.NewCLIError(model.ExitTargetNotFound,
				fmt.Sprintf("unknown target %q", n))
		}
	}

	return selected, nil
}

// RegistryAuth returns the opaque pre-encoded registry auth string from
// the environment, or "" when unset.
func RegistryAuth() string {
	return os.Getenv(EnvRegistryAuth)
}

// discover probes the well-known manifest file names in dir and returns
// the first that exists, or "" when none does.
func discover(dir string) string {
	for _, name := range manifestCandidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// validateTarget applies structural validation plus reference-syntax
// validation of the names the target will turn into. The registry is
// only checked when present: build-only runs do not need one, and the
// push step fails with a clear error if it is still missing then.
func validateTarget(t *model.Target) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := refname.BuildRef(t.Name, t.BuildTag); err != nil {
		return err
	}
	if t.Registry != "" {
		if _, err := refname.PublishRef(t.Registry, t.Name); err != nil {
			return err
		}
	}
	return nil
}
