// Package model defines the domain types for the imageship CLI.
//
// These are pure data structures shared across the application: publish
// targets (what to build and where to push it), publish results, exit
// codes, and the CLIError type that carries exit codes up to the
// process boundary.
package model

import (
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"
)

// Default values applied by Target.Normalize when the corresponding
// field is left empty in the manifest or the environment.
const (
	// DefaultBuildTag is the tag given to a freshly built image before
	// it is retagged for publishing ("<name>:1.0").
	DefaultBuildTag = "1.0"

	// DefaultDockerfile is the Dockerfile path relative to the build
	// context.
	DefaultDockerfile = "Dockerfile"

	// DefaultContext is the build context directory.
	DefaultContext = "."
)

// Target describes one publishable image: its name, where its build
// context lives, and which registry it is published to.
//
// A manifest file declares a list of Targets. When no manifest is
// present, a single Target is synthesized from the DOCKER_NAME and
// BASE_LOCATION environment variables.
type Target struct {
	// Name is the bare image name (e.g., "chatws"). It becomes both the
	// local build reference "<name>:<buildTag>" and the repository
	// component of the published reference.
	Name string `json:"name" yaml:"name"`

	// Context is the build context directory, relative to the working
	// directory the command runs in. Defaults to ".".
	Context string `json:"context,omitempty" yaml:"context,omitempty"`

	// Dockerfile is the Dockerfile path relative to the context.
	// Defaults to "Dockerfile".
	Dockerfile string `json:"dockerfile,omitempty" yaml:"dockerfile,omitempty"`

	// Registry is the registry base path the image is published under
	// (e.g., "registry.example.com/apps"). May be left empty in the
	// manifest, in which case BASE_LOCATION supplies it.
	Registry string `json:"registry,omitempty" yaml:"registry,omitempty"`

	// BuildTag is the tag for the locally built image. Defaults to "1.0".
	BuildTag string `json:"buildTag,omitempty" yaml:"buildTag,omitempty"`
}

// Normalize fills in default values for optional fields. It is called
// once during manifest resolution so the rest of the pipeline can rely
// on every field being populated.
func (t *Target) Normalize() {
	if t.Context == "" {
		t.Context = DefaultContext
	}
	if t.Dockerfile == "" {
		t.Dockerfile = DefaultDockerfile
	}
	if t.BuildTag == "" {
		t.BuildTag = DefaultBuildTag
	}
}

// Validate checks the structural constraints that do not require
// reference parsing. Image-reference syntax is validated separately by
// the refname package, which delegates to distribution/reference.
func (t *Target) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("target name must not be empty")
	}
	return nil
}

// PublishResult records the outcome of publishing a single target.
// It is the unit of output for the publish/build/push commands in
// both text and JSON modes.
type PublishResult struct {
	// Target is the name of the target this result belongs to.
	Target string `json:"target"`

	// BuildRef is the local build reference ("<name>:<buildTag>").
	BuildRef string `json:"buildRef"`

	// PushRef is the published reference ("<registry>/<name>:latest").
	PushRef string `json:"pushRef,omitempty"`

	// ImageID is the content-addressed ID of the local image
	// ("sha256:..."). Populated by the build step, or by inspecting the
	// existing local image in push-only mode.
	ImageID string `json:"imageId,omitempty"`

	// Digest is the registry content digest of the pushed manifest,
	// reported by the daemon after a successful push. Republishing an
	// unchanged image yields the same digest.
	Digest digest.Digest `json:"digest,omitempty"`

	// Pushed is true when the push step completed.
	Pushed bool `json:"pushed"`
}

// ImageProvenance is the metadata imageship stamps onto built images as
// labels, reconstructed from a label map by docker.ParseLabels.
type ImageProvenance struct {
	// Target is the publish target the image was built for.
	Target string `json:"target"`

	// Revision is the source commit hash at build time.
	// Empty when the build context was not inside a Git repository.
	Revision string `json:"revision,omitempty"`

	// BuiltAt is the UTC build timestamp.
	BuiltAt time.Time `json:"builtAt"`
}

// ExitCode defines the CLI exit codes. Each failing pipeline step maps
// to its own code so scripts and CI systems can distinguish a build
// failure from a push failure.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitManifestError indicates the target manifest was missing,
	// unparseable, or produced an invalid target (including the
	// no-manifest case where DOCKER_NAME is unset).
	ExitManifestError ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitBuildFailed indicates the image build step failed. No tag or
	// push is attempted after this.
	ExitBuildFailed ExitCode = 4

	// ExitPushFailed indicates the tag or push step failed.
	ExitPushFailed ExitCode = 5

	// ExitTargetNotFound indicates a target named on the command line
	// does not exist in the manifest.
	ExitTargetNotFound ExitCode = 6
)

// CLIError is an error that carries an exit code, letting the CLI layer
// translate domain failures into process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface, including the underlying error
// when present.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
