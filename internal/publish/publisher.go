// Package publish implements the sequential build → tag → push
// pipeline.
//
// The pipeline is strict: steps run in a fixed order and the first
// failing step aborts everything after it, including any remaining
// targets in a multi-target run. The original pair of publish scripts
// disagreed on this (one ran under errexit, one did not); the strict
// behavior is standardized here so a failed build can never be followed
// by pushing a stale image left over from an earlier run.
package publish

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/appship/imageship/internal/docker"
	"github.com/appship/imageship/internal/gitinfo"
	"github.com/appship/imageship/internal/model"
	"github.com/appship/imageship/internal/refname"
)

// Options configures a Publisher.
type Options struct {
	// Output receives the daemon's build and push progress streams.
	// nil discards them.
	Output io.Writer

	// RegistryAuth is an opaque pre-encoded auth string passed through
	// to the daemon on push. Empty means anonymous.
	RegistryAuth string

	// SkipBuild switches to push-only mode: the existing local image at
	// the build reference is retagged and pushed. The image must exist;
	// there is no silent fallback to whatever happens to be cached.
	SkipBuild bool

	// SkipPush switches to build-only mode: the pipeline stops after
	// the local image is built and tagged "<name>:<buildTag>".
	SkipPush bool

	// now is the clock for the built-at label, overridable in tests.
	now func() time.Time
}

// Publisher drives the publishing pipeline against a Docker API.
type Publisher struct {
	api  docker.ImageAPI
	opts Options
}

// New creates a Publisher. SkipBuild and SkipPush are mutually
// exclusive by construction at the CLI layer (they correspond to the
// push and build subcommands).
func New(api docker.ImageAPI, opts Options) *Publisher {
	if opts.now == nil {
		opts.now = time.Now
	}
	return &Publisher{api: api, opts: opts}
}

// Publish runs the pipeline for a single target:
//
//  1. compose the build and publish references,
//  2. build the context into "<name>:<buildTag>" (or, in push-only
//     mode, verify that reference exists locally),
//  3. retag it as "<registry>/<name>:latest",
//  4. push the latest reference and capture its manifest digest.
//
// The first failing step returns its error and nothing after it runs.
func (p *Publisher) Publish(ctx context.Context, target model.Target) (*model.PublishResult, error) {
	target.Normalize()

	buildRef, err := refname.BuildRef(target.Name, target.BuildTag)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitManifestError,
			fmt.Sprintf("invalid build reference for target %q", target.Name), err)
	}

	result := &model.PublishResult{
		Target:   target.Name,
		BuildRef: buildRef,
	}

	// Compose the publish reference up front so a missing or malformed
	// registry fails before any Docker call, not after a build.
	if !p.opts.SkipPush {
		pushRef, err := refname.PublishRef(target.Registry, target.Name)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitManifestError,
				fmt.Sprintf("invalid publish reference for target %q", target.Name), err)
		}
		result.PushRef = pushRef
	}

	if p.opts.SkipBuild {
		// Push-only mode publishes the image currently at the build
		// reference. Requiring it to exist makes the "push after a
		// failed build" hazard of the original scripts impossible.
		id, _, err := docker.InspectImage(ctx, p.api, buildRef)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitBuildFailed,
				fmt.Sprintf("no local image at %s — build it first", buildRef), err)
		}
		result.ImageID = id
	} else {
		revision := gitinfo.Revision(target.Context)
		id, err := docker.BuildImage(ctx, p.api, docker.BuildOptions{
			ContextDir: target.Context,
			Dockerfile: target.Dockerfile,
			Ref:        buildRef,
			Labels:     docker.BuildLabels(target.Name, revision, p.opts.now()),
			Output:     p.opts.Output,
		})
		if err != nil {
			return nil, err
		}
		result.ImageID = id
	}

	if p.opts.SkipPush {
		return result, nil
	}

	if err := docker.TagImage(ctx, p.api, buildRef, result.PushRef); err != nil {
		return nil, err
	}

	dgst, err := docker.PushImage(ctx, p.api, result.PushRef, p.opts.RegistryAuth, p.opts.Output)
	if err != nil {
		return nil, err
	}
	result.Digest = dgst
	result.Pushed = true

	return result, nil
}

// PublishAll runs Publish for each target in order. The first failure
// aborts the remaining targets; results of the targets that completed
// are returned alongside the error.
func (p *Publisher) PublishAll(ctx context.Context, targets []model.Target) ([]*model.PublishResult, error) {
	results := make([]*model.PublishResult, 0, len(targets))
	for _, target := range targets {
		result, err := p.Publish(ctx, target)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
