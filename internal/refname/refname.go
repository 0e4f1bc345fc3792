// Package refname composes and validates the image references used by
// the publishing pipeline.
//
// Two reference shapes exist:
//   - the local build reference "<name>:<buildTag>" produced by the
//     build step, and
//   - the published reference "<registry>/<name>:latest" that is
//     retagged from the build reference and pushed.
//
// All syntax validation is delegated to github.com/distribution/reference,
// the same library the Docker daemon uses, so anything accepted here is
// accepted by the daemon as well.
package refname

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// BuildRef returns the local build reference "<name>:<buildTag>" in
// familiar (shortest unambiguous) form.
//
// The name must be a bare repository name or path without a tag or
// digest; the tag is supplied separately so the two cannot conflict.
func BuildRef(name, buildTag string) (string, error) {
	if buildTag == "" {
		return "", fmt.Errorf("build tag must not be empty")
	}
	return tagged(name, buildTag)
}

// PublishRef returns the published reference
// "<registry>/<name>:latest" in familiar form. The registry base path
// and the image name are joined with "/" before normalization, which
// matches how the original per-app publish scripts composed the
// destination reference.
func PublishRef(registry, name string) (string, error) {
	if registry == "" {
		return "", fmt.Errorf("registry base path must not be empty")
	}
	return tagged(strings.TrimSuffix(registry, "/")+"/"+name, "latest")
}

// tagged normalizes repo into a named reference and attaches tag.
// An already-tagged or digested repo string is rejected rather than
// silently overridden.
func tagged(repo, tag string) (string, error) {
	if repo == "" || strings.HasSuffix(repo, "/") {
		return "", fmt.Errorf("image name must not be empty")
	}

	named, err := reference.ParseNormalizedNamed(repo)
	if err != nil {
		return "", fmt.Errorf("invalid image reference %q: %w", repo, err)
	}

	// ParseNormalizedNamed accepts "name:tag" and "name@digest" forms.
	// The manifest schema keeps name and tag separate, so a name that
	// already carries either is a configuration mistake.
	if !reference.IsNameOnly(named) {
		return "", fmt.Errorf("image name %q must not include a tag or digest", repo)
	}

	withTag, err := reference.WithTag(named, tag)
	if err != nil {
		return "", fmt.Errorf("invalid tag %q for image %q: %w", tag, repo, err)
	}

	return reference.FamiliarString(withTag), nil
}
